package spotify

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strings"

	"github.com/zmb3/spotify/v2"

	"github.com/justestif/go-spotify-yearly-albums/internal/albums"
)

// pageSize is the provider maximum for the top-tracks endpoint.
const pageSize = 50

// TopTracks retrieves the user's complete long-term top tracks, 50 per page,
// sequentially until a short page. Pagination is deliberately not fanned out:
// a single credential has to stay under the provider's per-second rate limit.
// A timeout is reported as albums.ErrServiceUnavailable.
func (c *Client) TopTracks(ctx context.Context) ([]albums.Track, error) {
	var tracks []albums.Track

	for offset := 0; ; offset += pageSize {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, err
		}

		page, err := c.api.CurrentUsersTopTracks(ctx,
			spotify.Timerange(spotify.LongTermRange),
			spotify.Limit(pageSize),
			spotify.Offset(offset),
		)
		if err != nil {
			if isTimeout(err) {
				return nil, fmt.Errorf("%w: %v", albums.ErrServiceUnavailable, err)
			}
			return nil, fmt.Errorf("fetching top tracks at offset %d: %w", offset, err)
		}

		for _, track := range page.Tracks {
			tracks = append(tracks, convertTrack(track))
		}

		if len(page.Tracks) < pageSize {
			break
		}
	}

	return tracks, nil
}

// convertTrack maps a provider track to the aggregator's view of it.
func convertTrack(track spotify.FullTrack) albums.Track {
	album := track.Album

	artists := make([]string, len(album.Artists))
	for i, a := range album.Artists {
		artists[i] = a.Name
	}

	var coverURL string
	if len(album.Images) > 0 {
		coverURL = album.Images[0].URL
	}

	return albums.Track{
		Name:             track.Name,
		AlbumName:        album.Name,
		AlbumArtist:      strings.Join(artists, ", "),
		CoverURL:         coverURL,
		ReleaseDate:      album.ReleaseDate,
		AlbumTotalTracks: int(album.TotalTracks),
	}
}

// isTimeout reports whether the error is a network timeout rather than a
// provider rejection.
func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}
