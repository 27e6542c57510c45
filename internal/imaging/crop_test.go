package imaging

import (
	"image"
	"image/color"
	"testing"
)

// createGrayCanvas returns a white canvas with a black rectangle at ink.
func createGrayCanvas(width, height int, ink image.Rectangle) *image.Gray {
	img := image.NewGray(image.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			if image.Pt(x, y).In(ink) {
				img.SetGray(x, y, color.Gray{Y: 0})
			} else {
				img.SetGray(x, y, color.Gray{Y: 255})
			}
		}
	}
	return img
}

func TestInkBounds(t *testing.T) {
	ink := image.Rect(12, 5, 30, 9)
	img := createGrayCanvas(60, 20, ink)

	got, ok := InkBounds(img)
	if !ok {
		t.Fatal("expected ink to be found")
	}
	if got != ink {
		t.Errorf("got %v, want %v", got, ink)
	}
}

func TestInkBounds_Blank(t *testing.T) {
	img := createGrayCanvas(40, 40, image.Rectangle{})
	if _, ok := InkBounds(img); ok {
		t.Error("blank canvas should have no ink")
	}
}

func TestInkBounds_SinglePixel(t *testing.T) {
	img := createGrayCanvas(10, 10, image.Rect(9, 9, 10, 10))
	got, ok := InkBounds(img)
	if !ok || got != image.Rect(9, 9, 10, 10) {
		t.Errorf("got %v, %v", got, ok)
	}
}

func TestInkBounds_SubImage(t *testing.T) {
	img := createGrayCanvas(50, 50, image.Rect(20, 20, 25, 25))
	sub := img.SubImage(image.Rect(10, 10, 40, 40)).(*image.Gray)

	got, ok := InkBounds(sub)
	if !ok || got != image.Rect(20, 20, 25, 25) {
		t.Errorf("got %v, %v", got, ok)
	}
}

func TestCropToInk(t *testing.T) {
	img := createGrayCanvas(100, 50, image.Rect(40, 20, 60, 30))

	out, ok := CropToInk(img, 5)
	if !ok {
		t.Fatal("expected ink")
	}
	if out.Bounds() != image.Rect(0, 0, 30, 20) {
		t.Fatalf("bounds: got %v, want 30x20 at origin", out.Bounds())
	}

	if out.GrayAt(0, 0).Y != 255 || out.GrayAt(29, 19).Y != 255 {
		t.Error("margin should be white")
	}
	if out.GrayAt(5, 5).Y != 0 || out.GrayAt(24, 14).Y != 0 {
		t.Error("ink should be copied into the margin frame")
	}
	if out.GrayAt(4, 5).Y != 255 || out.GrayAt(25, 14).Y != 255 {
		t.Error("ink should not spill past its bounds")
	}
}

func TestCropToInk_Blank(t *testing.T) {
	img := createGrayCanvas(20, 20, image.Rectangle{})
	out, ok := CropToInk(img, DefaultInkMargin)
	if ok {
		t.Error("blank canvas should report no ink")
	}
	if out != img {
		t.Error("blank canvas should be returned unchanged")
	}
}

func TestCropToInk_NegativeMargin(t *testing.T) {
	img := createGrayCanvas(20, 20, image.Rect(2, 3, 6, 8))
	out, ok := CropToInk(img, -4)
	if !ok || out.Bounds() != image.Rect(0, 0, 4, 5) {
		t.Errorf("got %v, %v", out.Bounds(), ok)
	}
}
