// Package spotify wraps the Spotify Web API for this application.
package spotify

import (
	"context"
	"fmt"

	"github.com/zmb3/spotify/v2"
	"golang.org/x/time/rate"
)

// requestsPerSecond keeps sequential pagination under the per-second rate
// limit for a single credential.
const requestsPerSecond = 5

// Client wraps the Spotify API client with convenience methods.
type Client struct {
	api     *spotify.Client
	limiter *rate.Limiter
}

// New creates a new Spotify client wrapper.
// The underlying client should already be authenticated.
func New(api *spotify.Client) *Client {
	return &Client{
		api:     api,
		limiter: rate.NewLimiter(rate.Limit(requestsPerSecond), 1),
	}
}

// User holds the identity of the authenticated user.
type User struct {
	ID          string
	DisplayName string
}

// CurrentUser returns the authenticated user's identity.
func (c *Client) CurrentUser(ctx context.Context) (User, error) {
	user, err := c.api.CurrentUser(ctx)
	if err != nil {
		return User{}, fmt.Errorf("getting current user: %w", err)
	}
	return User{ID: user.ID, DisplayName: user.DisplayName}, nil
}
