package imaging

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	"sort"

	"github.com/anthonynsimon/bild/segment"
	"github.com/disintegration/imaging"
	colorful "github.com/lucasb-eyer/go-colorful"
)

const (
	// DefaultThreshold is the gray level separating ink from paper after
	// normalization. Pixels at or above it become white.
	DefaultThreshold uint8 = 128

	// DarkLightness is the Lab lightness (0-1) below which a background is
	// considered dark, e.g. chalk on a blackboard canvas.
	DarkLightness = 0.5

	// sampleGrid bounds how many points per axis are sampled when estimating
	// the background.
	sampleGrid = 48
)

// OCROptions controls PrepareForOCR.
type OCROptions struct {
	// MaxDimension caps the longest edge in pixels. Zero disables resizing.
	MaxDimension int

	// Threshold is the binarization level. Zero means DefaultThreshold.
	Threshold uint8
}

// PrepareForOCR turns a drawing into dark ink on a white background, which is
// what Tesseract recognizes best.
//
// Steps:
//  1. Downscale so the longest edge fits MaxDimension (Lanczos)
//  2. Flatten transparency onto black, the usual canvas colour
//  3. Invert when the background is dark
//  4. Convert to grayscale and threshold to pure black/white
func PrepareForOCR(img image.Image, opts OCROptions) *image.Gray {
	threshold := opts.Threshold
	if threshold == 0 {
		threshold = DefaultThreshold
	}

	flat := Flatten(fit(img, opts.MaxDimension), color.Black)
	if IsDarkBackground(flat) {
		flat = imaging.Invert(flat)
	}

	return segment.Threshold(imaging.Grayscale(flat), threshold)
}

// Flatten composites img over an opaque background colour.
func Flatten(img image.Image, bg color.Color) *image.NRGBA {
	b := img.Bounds()
	canvas := imaging.New(b.Dx(), b.Dy(), bg)
	return imaging.Overlay(canvas, img, image.Pt(0, 0), 1.0)
}

// IsDarkBackground reports whether the dominant lightness of img is below
// DarkLightness.
func IsDarkBackground(img image.Image) bool {
	return BackgroundLightness(img) < DarkLightness
}

// BackgroundLightness estimates the lightness of the background as the median
// Lab L (0 = black, 1 = white) over a sparse sample grid. Strokes cover a small
// share of a drawing, so the median lands on the background. Fully transparent
// pixels are skipped; an image with nothing opaque reports 0.
func BackgroundLightness(img image.Image) float64 {
	b := img.Bounds()
	if b.Empty() {
		return 0
	}

	stepX := b.Dx() / sampleGrid
	if stepX < 1 {
		stepX = 1
	}
	stepY := b.Dy() / sampleGrid
	if stepY < 1 {
		stepY = 1
	}

	values := make([]float64, 0, sampleGrid*sampleGrid)
	for y := b.Min.Y; y < b.Max.Y; y += stepY {
		for x := b.Min.X; x < b.Max.X; x += stepX {
			c, ok := colorful.MakeColor(img.At(x, y))
			if !ok {
				continue
			}
			l, _, _ := c.Lab()
			values = append(values, l)
		}
	}

	if len(values) == 0 {
		return 0
	}
	sort.Float64s(values)
	return values[len(values)/2]
}

// ForUpload returns bytes suitable for sending to a remote analysis backend.
// Images whose longest edge fits maxDimension are passed through untouched;
// larger ones are downscaled and re-encoded as PNG.
func ForUpload(d *Decoded, maxDimension int) ([]byte, string, error) {
	if maxDimension <= 0 || (d.Width() <= maxDimension && d.Height() <= maxDimension) {
		return d.Data, d.MediaType, nil
	}

	data, err := EncodePNG(fit(d.Image, maxDimension))
	if err != nil {
		return nil, "", err
	}
	return data, "image/png", nil
}

// EncodePNG encodes img as PNG.
func EncodePNG(img image.Image) ([]byte, error) {
	var buf bytes.Buffer
	if err := imaging.Encode(&buf, img, imaging.PNG); err != nil {
		return nil, fmt.Errorf("failed to encode image: %w", err)
	}
	return buf.Bytes(), nil
}

func fit(img image.Image, maxDimension int) image.Image {
	if maxDimension <= 0 {
		return img
	}
	b := img.Bounds()
	if b.Dx() <= maxDimension && b.Dy() <= maxDimension {
		return img
	}
	return imaging.Fit(img, maxDimension, maxDimension, imaging.Lanczos)
}
