package spotify

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strconv"
	"sync"
	"testing"
	"time"

	zspotify "github.com/zmb3/spotify/v2"

	"github.com/justestif/go-spotify-yearly-albums/internal/albums"
)

// topTracksServer mocks the top-tracks endpoint over a fixed feed,
// recording the offset of every page request.
func topTracksServer(t *testing.T, total int) (*httptest.Server, *[]int) {
	t.Helper()

	var mu sync.Mutex
	var offsets []int

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/me/top/tracks" {
			http.NotFound(w, r)
			return
		}

		offset, _ := strconv.Atoi(r.URL.Query().Get("offset"))
		limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))

		mu.Lock()
		offsets = append(offsets, offset)
		mu.Unlock()

		items := make([]map[string]any, 0, limit)
		for i := offset; i < total && i < offset+limit; i++ {
			items = append(items, map[string]any{
				"name": fmt.Sprintf("Track %d", i),
				"album": map[string]any{
					"name":         fmt.Sprintf("Album %d", i),
					"release_date": "2024-03-15",
					"total_tracks": 10,
					"artists":      []map[string]any{{"name": "Artist"}},
					"images":       []map[string]any{{"url": fmt.Sprintf("https://img.example/%d.jpg", i), "height": 640, "width": 640}},
				},
			})
		}

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"href":   r.URL.String(),
			"items":  items,
			"limit":  limit,
			"offset": offset,
			"total":  total,
		})
	}))
	t.Cleanup(server.Close)

	return server, &offsets
}

func clientFor(server *httptest.Server) *Client {
	api := zspotify.New(server.Client(), zspotify.WithBaseURL(server.URL+"/"))
	return New(api)
}

func TestTopTracks_PaginatesSequentially(t *testing.T) {
	// 52 tracks: the first page is full, the second is short and final.
	server, offsets := topTracksServer(t, 52)
	client := clientFor(server)

	tracks, err := client.TopTracks(context.Background())
	if err != nil {
		t.Fatalf("TopTracks() error = %v", err)
	}

	if len(tracks) != 52 {
		t.Errorf("got %d tracks, want 52", len(tracks))
	}

	wantOffsets := []int{0, 50}
	if len(*offsets) != len(wantOffsets) {
		t.Fatalf("issued %d page fetches %v, want %d", len(*offsets), *offsets, len(wantOffsets))
	}
	for i, want := range wantOffsets {
		if (*offsets)[i] != want {
			t.Errorf("fetch %d used offset %d, want %d", i, (*offsets)[i], want)
		}
	}

	// Tracks from both pages must be present.
	if tracks[0].AlbumName != "Album 0" {
		t.Errorf("first track album = %q, want %q", tracks[0].AlbumName, "Album 0")
	}
	if tracks[51].AlbumName != "Album 51" {
		t.Errorf("last track album = %q, want %q", tracks[51].AlbumName, "Album 51")
	}
}

func TestTopTracks_SinglePartialPage(t *testing.T) {
	server, offsets := topTracksServer(t, 7)
	client := clientFor(server)

	tracks, err := client.TopTracks(context.Background())
	if err != nil {
		t.Fatalf("TopTracks() error = %v", err)
	}

	if len(tracks) != 7 {
		t.Errorf("got %d tracks, want 7", len(tracks))
	}
	if len(*offsets) != 1 {
		t.Errorf("issued %d page fetches, want 1", len(*offsets))
	}
}

func TestTopTracks_ExactPageBoundary(t *testing.T) {
	// Exactly 50 tracks: the second page comes back empty and ends the loop.
	server, offsets := topTracksServer(t, 50)
	client := clientFor(server)

	tracks, err := client.TopTracks(context.Background())
	if err != nil {
		t.Fatalf("TopTracks() error = %v", err)
	}

	if len(tracks) != 50 {
		t.Errorf("got %d tracks, want 50", len(tracks))
	}
	if len(*offsets) != 2 {
		t.Errorf("issued %d page fetches, want 2", len(*offsets))
	}
}

func TestTopTracks_TimeoutIsServiceUnavailable(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(200 * time.Millisecond)
	}))
	t.Cleanup(server.Close)

	httpClient := &http.Client{Timeout: 20 * time.Millisecond}
	api := zspotify.New(httpClient, zspotify.WithBaseURL(server.URL+"/"))
	client := New(api)

	_, err := client.TopTracks(context.Background())
	if !errors.Is(err, albums.ErrServiceUnavailable) {
		t.Errorf("TopTracks() error = %v, want ErrServiceUnavailable", err)
	}
}

func TestConvertTrack(t *testing.T) {
	tests := []struct {
		name  string
		track zspotify.FullTrack
		want  albums.Track
	}{
		{
			name: "single artist with cover",
			track: fullTrack("Song", "Album A", "2024-03-15", 10,
				[]string{"Artist One"},
				[]string{"https://img.example/a.jpg"}),
			want: albums.Track{
				Name:             "Song",
				AlbumName:        "Album A",
				AlbumArtist:      "Artist One",
				CoverURL:         "https://img.example/a.jpg",
				ReleaseDate:      "2024-03-15",
				AlbumTotalTracks: 10,
			},
		},
		{
			name: "multiple artists joined",
			track: fullTrack("Collab", "Album B", "2024-07", 12,
				[]string{"Artist A", "Artist B", "Artist C"},
				[]string{"https://img.example/b.jpg", "https://img.example/b-small.jpg"}),
			want: albums.Track{
				Name:             "Collab",
				AlbumName:        "Album B",
				AlbumArtist:      "Artist A, Artist B, Artist C",
				CoverURL:         "https://img.example/b.jpg",
				ReleaseDate:      "2024-07",
				AlbumTotalTracks: 12,
			},
		},
		{
			name:  "no images",
			track: fullTrack("Bare", "Album C", "2024", 3, []string{"Artist"}, nil),
			want: albums.Track{
				Name:             "Bare",
				AlbumName:        "Album C",
				AlbumArtist:      "Artist",
				CoverURL:         "",
				ReleaseDate:      "2024",
				AlbumTotalTracks: 3,
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := convertTrack(tt.track); got != tt.want {
				t.Errorf("convertTrack() = %+v, want %+v", got, tt.want)
			}
		})
	}
}

// fullTrack builds a provider track for tests.
func fullTrack(name, album, releaseDate string, totalTracks int, artists, images []string) zspotify.FullTrack {
	simpleArtists := make([]zspotify.SimpleArtist, len(artists))
	for i, a := range artists {
		simpleArtists[i] = zspotify.SimpleArtist{Name: a}
	}

	albumImages := make([]zspotify.Image, len(images))
	for i, url := range images {
		albumImages[i] = zspotify.Image{URL: url}
	}

	return zspotify.FullTrack{
		SimpleTrack: zspotify.SimpleTrack{Name: name},
		Album: zspotify.SimpleAlbum{
			Name:        album,
			Artists:     simpleArtists,
			Images:      albumImages,
			ReleaseDate: releaseDate,
			TotalTracks: zspotify.Numeric(totalTracks),
		},
	}
}
