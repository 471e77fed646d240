// Package auth implements the Spotify OAuth2 token lifecycle: initiating
// authorization, exchanging a callback code for tokens, detecting expiry,
// and refreshing.
package auth

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/zmb3/spotify/v2"
	spotifyauth "github.com/zmb3/spotify/v2/auth"
	"golang.org/x/oauth2"
)

var (
	// ErrStateMismatch is returned when the callback state parameter doesn't
	// match the one issued at authorization time. The code must not be
	// exchanged in that case.
	ErrStateMismatch = errors.New("OAuth state mismatch")

	// ErrTokenExchange is returned when the authorization-code exchange fails.
	ErrTokenExchange = errors.New("token exchange failed")

	// ErrRefresh is returned when the refresh-token grant fails. The caller
	// must force full re-authentication.
	ErrRefresh = errors.New("token refresh failed")
)

// Config holds the credentials and endpoints for the token manager.
// AuthURL and TokenURL default to the Spotify accounts service.
type Config struct {
	ClientID     string
	ClientSecret string
	RedirectURI  string
	AuthURL      string
	TokenURL     string
}

// Manager owns the OAuth2 Authorization-Code-with-refresh lifecycle for one
// application. It holds no per-user state; tokens belong to sessions.
type Manager struct {
	conf       *oauth2.Config
	httpClient *http.Client
}

// NewManager creates a Manager from the given configuration.
func NewManager(cfg Config) *Manager {
	authURL := cfg.AuthURL
	if authURL == "" {
		authURL = spotifyauth.AuthURL
	}
	tokenURL := cfg.TokenURL
	if tokenURL == "" {
		tokenURL = spotifyauth.TokenURL
	}

	return &Manager{
		conf: &oauth2.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			RedirectURL:  cfg.RedirectURI,
			Scopes:       []string{spotifyauth.ScopeUserTopRead},
			Endpoint: oauth2.Endpoint{
				AuthURL:  authURL,
				TokenURL: tokenURL,
			},
		},
		httpClient: &http.Client{
			Transport: newRetryTransport(nil),
			Timeout:   30 * time.Second,
		},
	}
}

// BeginAuthorization generates a fresh unpredictable state token and the
// provider authorization URL embedding it. It has no side effect on any
// stored token; the caller is responsible for remembering the state until
// the callback arrives.
func (m *Manager) BeginAuthorization() (authURL, state string) {
	state = uuid.NewString()
	return m.conf.AuthCodeURL(state), state
}

// ExchangeCode verifies the callback state and exchanges the authorization
// code for a token pair. A state mismatch returns ErrStateMismatch without
// contacting the token endpoint.
func (m *Manager) ExchangeCode(ctx context.Context, code, receivedState, expectedState string) (*oauth2.Token, error) {
	if expectedState == "" || receivedState != expectedState {
		return nil, ErrStateMismatch
	}

	token, err := m.conf.Exchange(m.withHTTPClient(ctx), code)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrTokenExchange, err)
	}
	if token.AccessToken == "" {
		return nil, fmt.Errorf("%w: response contained no access token", ErrTokenExchange)
	}

	return token, nil
}

// IsExpired reports whether the token is expired at the given instant.
// Tokens without an expiry never report expired.
func (m *Manager) IsExpired(token *oauth2.Token, now time.Time) bool {
	if token == nil {
		return true
	}
	if token.Expiry.IsZero() {
		return false
	}
	return !now.Before(token.Expiry)
}

// Refresh exchanges the stored refresh token for a new access token. When
// the provider omits a refresh token in its response, the previous one is
// retained.
func (m *Manager) Refresh(ctx context.Context, token *oauth2.Token) (*oauth2.Token, error) {
	if token == nil || token.RefreshToken == "" {
		return nil, fmt.Errorf("%w: no refresh token", ErrRefresh)
	}

	// A token holding only the refresh token makes the source refresh
	// unconditionally instead of handing back a stale access token.
	stale := &oauth2.Token{RefreshToken: token.RefreshToken}
	fresh, err := m.conf.TokenSource(m.withHTTPClient(ctx), stale).Token()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrRefresh, err)
	}
	if fresh.RefreshToken == "" {
		fresh.RefreshToken = token.RefreshToken
	}

	return fresh, nil
}

// APIClient returns a Spotify Web API client backed by the token, with
// rate-limit retries enabled.
func (m *Manager) APIClient(ctx context.Context, token *oauth2.Token) *spotify.Client {
	return spotify.New(m.conf.Client(ctx, token), spotify.WithRetry(true))
}

// withHTTPClient injects the retrying HTTP client into the context so the
// oauth2 package uses it for token-endpoint calls.
func (m *Manager) withHTTPClient(ctx context.Context) context.Context {
	return context.WithValue(ctx, oauth2.HTTPClient, m.httpClient)
}
