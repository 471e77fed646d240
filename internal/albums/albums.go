// Package albums turns a user's top tracks into albums bucketed by release
// month over a fixed 13-month window.
package albums

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/charmbracelet/log"
)

const (
	// WindowMonths is the fixed number of month buckets: December of the
	// previous year through December of the current year.
	WindowMonths = 13

	// minAlbumTracks excludes short-form releases (singles, most EPs).
	minAlbumTracks = 3

	// monthKeyLayout renders bucket keys as "MM/YY".
	monthKeyLayout = "01/06"

	// earliestValidYear guards against malformed upstream release dates.
	earliestValidYear = 1900
)

// ErrServiceUnavailable is returned when the track source timed out. The
// caller should surface a retry prompt rather than an error page.
var ErrServiceUnavailable = errors.New("music service unavailable, retry later")

// Track is the slice of provider track metadata the aggregator needs.
type Track struct {
	Name             string
	AlbumName        string
	AlbumArtist      string // comma-joined contributing artist names
	CoverURL         string // empty when the album has no images
	ReleaseDate      string // "YYYY", "YYYY-MM", or "YYYY-MM-DD"
	AlbumTotalTracks int
}

// Album is one bucketed release.
type Album struct {
	Name     string `json:"name"`
	Artist   string `json:"artist"`
	CoverURL string `json:"cover_url,omitempty"`
}

// Bucket holds the albums for one month, in track iteration order.
type Bucket struct {
	Key    string  `json:"key"` // "MM/YY"
	Albums []Album `json:"albums"`
}

// Result is the ordered 13-bucket window. Every month key is always
// present, with an empty album list when nothing qualified.
type Result []Bucket

// Source supplies the full top-tracks feed, already paginated.
type Source interface {
	TopTracks(ctx context.Context) ([]Track, error)
}

// MonthKeys returns the 13 ordered bucket keys for the window ending in
// December of now's year.
func MonthKeys(now time.Time) []string {
	keys := make([]string, 0, WindowMonths)
	keys = append(keys, time.Date(now.Year()-1, time.December, 1, 0, 0, 0, 0, time.UTC).Format(monthKeyLayout))
	for month := time.January; month <= time.December; month++ {
		keys = append(keys, time.Date(now.Year(), month, 1, 0, 0, 0, 0, time.UTC).Format(monthKeyLayout))
	}
	return keys
}

// Empty returns a correctly shaped result with all buckets empty.
func Empty(now time.Time) Result {
	keys := MonthKeys(now)
	res := make(Result, len(keys))
	for i, key := range keys {
		res[i] = Bucket{Key: key, Albums: []Album{}}
	}
	return res
}

// Aggregate fetches the user's top tracks and buckets their albums by
// release month. On any failure it returns a correctly shaped empty result
// alongside the error, so callers never see a partially populated year.
func Aggregate(ctx context.Context, src Source, now time.Time, logger *log.Logger) (Result, error) {
	res := Empty(now)

	tracks, err := src.TopTracks(ctx)
	if err != nil {
		if errors.Is(err, ErrServiceUnavailable) {
			return res, err
		}
		return res, fmt.Errorf("fetching top tracks: %w", err)
	}

	byKey := make(map[string][]Album, WindowMonths)
	seen := make(map[string]struct{})

	for _, track := range tracks {
		if track.AlbumTotalTracks < minAlbumTracks {
			continue
		}

		released, hasMonth, err := parseReleaseDate(track.ReleaseDate, now)
		if err != nil {
			logger.Warn("skipping album with bad release date",
				"album", track.AlbumName, "release_date", track.ReleaseDate, "err", err)
			continue
		}
		if !hasMonth {
			// A year-only date carries no month to bucket by; treating it
			// as January would misplace the album, so it is excluded.
			logger.Debug("skipping album with year-only release date",
				"album", track.AlbumName, "release_date", track.ReleaseDate)
			continue
		}

		if !inWindow(released, now) {
			continue
		}

		if _, dup := seen[track.AlbumName]; dup {
			continue
		}
		seen[track.AlbumName] = struct{}{}

		key := released.Format(monthKeyLayout)
		byKey[key] = append(byKey[key], Album{
			Name:     track.AlbumName,
			Artist:   track.AlbumArtist,
			CoverURL: track.CoverURL,
		})
	}

	for i := range res {
		if albums, ok := byKey[res[i].Key]; ok {
			res[i].Albums = albums
		}
	}

	return res, nil
}

// parseReleaseDate parses the provider's release date, which comes in three
// granularities distinguished by string length. hasMonth is false for
// year-only dates.
func parseReleaseDate(s string, now time.Time) (released time.Time, hasMonth bool, err error) {
	var layout string
	switch len(s) {
	case 4:
		layout = "2006"
	case 7:
		layout = "2006-01"
		hasMonth = true
	default:
		layout = "2006-01-02"
		hasMonth = true
	}

	released, err = time.Parse(layout, s)
	if err != nil {
		return time.Time{}, false, err
	}

	if released.Year() <= earliestValidYear || released.Year() > now.Year() {
		return time.Time{}, false, fmt.Errorf("release year %d out of range", released.Year())
	}

	return released, hasMonth, nil
}

// inWindow reports whether a release falls in the 13-month window: the
// current year, or December of the year before.
func inWindow(released, now time.Time) bool {
	if released.Year() == now.Year() {
		return true
	}
	return released.Year() == now.Year()-1 && released.Month() == time.December
}
