package imaging

import (
	"image"
	"image/color"
	"image/draw"
)

// DefaultInkMargin is the white border kept around the ink after cropping.
// Tesseract misreads glyphs that touch the image edge.
const DefaultInkMargin = 10

// InkBounds returns the smallest rectangle containing every dark pixel of a
// binarized image (gray level below 128). ok is false when there is no ink.
func InkBounds(gray *image.Gray) (bounds image.Rectangle, ok bool) {
	b := gray.Bounds()
	minX, minY := b.Max.X, b.Max.Y
	maxX, maxY := b.Min.X-1, b.Min.Y-1

	for y := b.Min.Y; y < b.Max.Y; y++ {
		row := gray.Pix[gray.PixOffset(b.Min.X, y):gray.PixOffset(b.Max.X, y)]
		for i, v := range row {
			if v >= 128 {
				continue
			}
			x := b.Min.X + i
			if x < minX {
				minX = x
			}
			if x > maxX {
				maxX = x
			}
			if y < minY {
				minY = y
			}
			if y > maxY {
				maxY = y
			}
		}
	}

	if maxX < minX || maxY < minY {
		return image.Rectangle{}, false
	}
	return image.Rect(minX, minY, maxX+1, maxY+1), true
}

// CropToInk crops a binarized image to its ink and surrounds it with a white
// margin. The result starts at (0,0). ok is false for a blank image, in which
// case the input is returned unchanged.
func CropToInk(gray *image.Gray, margin int) (*image.Gray, bool) {
	ink, ok := InkBounds(gray)
	if !ok {
		return gray, false
	}
	if margin < 0 {
		margin = 0
	}

	out := image.NewGray(image.Rect(0, 0, ink.Dx()+2*margin, ink.Dy()+2*margin))
	draw.Draw(out, out.Bounds(), image.NewUniform(color.White), image.Point{}, draw.Src)

	dst := image.Rect(margin, margin, margin+ink.Dx(), margin+ink.Dy())
	draw.Draw(out, dst, gray, ink.Min, draw.Src)
	return out, true
}
