// Package render draws the downloadable composite image: one row of album
// covers per month, with a label band above each row.
package render

import (
	"context"
	"image"
	"image/color"
	"io"

	"github.com/charmbracelet/log"
	"github.com/disintegration/imaging"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"

	"github.com/justestif/go-spotify-yearly-albums/internal/albums"
)

const (
	// CellSize is the width and height of one album cell in pixels.
	CellSize = 300

	margin      = 10
	labelHeight = 50 // band above each row for the month label
	textPadding = 6
	maxTextLen  = 20 // characters before truncation with an ellipsis
)

var (
	white       = color.NRGBA{255, 255, 255, 255}
	gray        = color.NRGBA{128, 128, 128, 255}
	labelColor  = color.NRGBA{0, 0, 0, 255}
	overlayFill = color.NRGBA{255, 255, 255, 200}
)

// Compositor assembles the composite PNG.
type Compositor struct {
	fetcher Fetcher
	logger  *log.Logger
}

// NewCompositor creates a Compositor that fetches covers with fetcher.
func NewCompositor(fetcher Fetcher, logger *log.Logger) *Compositor {
	return &Compositor{fetcher: fetcher, logger: logger}
}

// Compose renders the bucketed albums into a single image with one row per
// month and up to perMonth cells per row. A cover that cannot be fetched
// degrades to a gray placeholder; unused slots stay white.
func (c *Compositor) Compose(ctx context.Context, res albums.Result, perMonth int) *image.NRGBA {
	width := perMonth*(CellSize+margin) + margin
	height := len(res)*(CellSize+margin+labelHeight) + margin

	canvas := imaging.New(width, height, white)

	y := margin
	for _, bucket := range res {
		drawLabel(canvas, bucket.Key, margin, y)

		row := bucket.Albums
		if len(row) > perMonth {
			row = row[:perMonth]
		}
		for i, album := range row {
			x := margin + i*(CellSize+margin)
			cell := c.cell(ctx, album)
			canvas = imaging.Paste(canvas, cell, image.Pt(x, y+labelHeight))
		}

		y += CellSize + margin + labelHeight
	}

	return canvas
}

// EncodePNG writes the image as PNG.
func EncodePNG(w io.Writer, img image.Image) error {
	return imaging.Encode(w, img, imaging.PNG)
}

// cell renders one 300×300 album cell: the cover with artist and album name
// overlaid top-left, or a gray placeholder when the cover is unavailable.
func (c *Compositor) cell(ctx context.Context, album albums.Album) *image.NRGBA {
	if album.CoverURL == "" {
		return imaging.New(CellSize, CellSize, gray)
	}

	cover, err := c.fetcher.Fetch(ctx, album.CoverURL)
	if err != nil {
		c.logger.Warn("cover fetch failed, using placeholder",
			"album", album.Name, "err", err)
		return imaging.New(CellSize, CellSize, gray)
	}

	cell := imaging.Resize(cover, CellSize, CellSize, imaging.Lanczos)
	overlay(cell, Truncate(album.Artist), textPadding, textPadding)
	overlay(cell, Truncate(album.Name), textPadding, textPadding+basicfont.Face7x13.Height+5)
	return cell
}

// drawLabel draws a month label at the top-left of a row's label band.
func drawLabel(dst *image.NRGBA, label string, x, y int) {
	drawString(dst, label, labelColor, x, y)
}

// overlay draws translucent white text onto a cell.
func overlay(dst *image.NRGBA, text string, x, y int) {
	drawString(dst, text, overlayFill, x, y)
}

// drawString draws text with its top-left corner at (x, y).
func drawString(dst *image.NRGBA, text string, fill color.NRGBA, x, y int) {
	face := basicfont.Face7x13
	d := font.Drawer{
		Dst:  dst,
		Src:  image.NewUniform(fill),
		Face: face,
		Dot:  fixed.P(x, y+face.Ascent),
	}
	d.DrawString(text)
}

// Truncate shortens display text to 20 characters plus an ellipsis.
func Truncate(s string) string {
	runes := []rune(s)
	if len(runes) <= maxTextLen {
		return s
	}
	return string(runes[:maxTextLen]) + "..."
}
