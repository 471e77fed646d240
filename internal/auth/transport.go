package auth

import (
	"io"
	"net/http"
	"time"
)

const retryLimit = 3

// retryDelays is the backoff schedule between attempts.
var retryDelays = []time.Duration{500 * time.Millisecond, time.Second, 2 * time.Second}

// retryTransport retries requests that fail with a 5xx status. Client errors
// (4xx) are terminal authorization failures and are never retried.
type retryTransport struct {
	base   http.RoundTripper
	delays []time.Duration
}

func newRetryTransport(base http.RoundTripper) *retryTransport {
	if base == nil {
		base = http.DefaultTransport
	}
	return &retryTransport{base: base, delays: retryDelays}
}

// RoundTrip implements http.RoundTripper.
func (t *retryTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	var resp *http.Response
	var err error

	for attempt := 0; attempt <= retryLimit; attempt++ {
		if attempt > 0 {
			select {
			case <-req.Context().Done():
				return nil, req.Context().Err()
			case <-time.After(t.delays[attempt-1]):
			}

			// The body was consumed by the previous attempt.
			if req.GetBody != nil {
				body, bodyErr := req.GetBody()
				if bodyErr != nil {
					return resp, bodyErr
				}
				req.Body = body
			} else if req.Body != nil {
				// Unreplayable body; give up with the last response.
				return resp, err
			}
		}

		resp, err = t.base.RoundTrip(req)
		if err != nil {
			return nil, err
		}

		if resp.StatusCode < 500 || attempt == retryLimit {
			return resp, nil
		}

		// Drain so the connection can be reused.
		_, _ = io.Copy(io.Discard, resp.Body)
		_ = resp.Body.Close()
	}

	return resp, err
}
