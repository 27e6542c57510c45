package analysis

import (
	"context"
	"fmt"
	"image"

	"github.com/ironsheep/image-calc-server/internal/imaging"
	"github.com/ironsheep/image-calc-server/internal/ocr"
	"golang.org/x/sync/semaphore"
)

// LineReader recognizes text lines in an image. *ocr.Engine implements it.
type LineReader interface {
	ReadLines(img image.Image) ([]ocr.Line, error)
}

// LocalAnalyzer reads expressions with OCR and evaluates them in process.
// A canvas without ink yields no items and never reaches the reader. Lines
// scored below MinConfidence are returned raw instead of evaluated.
//
// OCR is CPU bound, so at most `concurrency` images are recognized at once;
// further requests wait for a slot until their context ends.
type LocalAnalyzer struct {
	// MinConfidence is compared against ocr.Line.Confidence. Lines of
	// unknown confidence are always evaluated.
	MinConfidence float64

	reader LineReader
	opts   imaging.OCROptions
	slots  *semaphore.Weighted
}

// NewLocalAnalyzer creates an OCR-backed Analyzer.
func NewLocalAnalyzer(reader LineReader, maxDimension, concurrency int) *LocalAnalyzer {
	if concurrency < 1 {
		concurrency = 1
	}
	return &LocalAnalyzer{
		reader: reader,
		opts:   imaging.OCROptions{MaxDimension: maxDimension},
		slots:  semaphore.NewWeighted(int64(concurrency)),
	}
}

// Analyze implements Analyzer.
func (l *LocalAnalyzer) Analyze(ctx context.Context, req Request) (Result, error) {
	if err := l.slots.Acquire(ctx, 1); err != nil {
		return Result{}, err
	}
	defer l.slots.Release(1)

	prepared := imaging.PrepareForOCR(req.Image.Image, l.opts)
	cropped, hasInk := imaging.CropToInk(prepared, imaging.DefaultInkMargin)
	if !hasInk {
		return Success(), nil
	}
	if err := ctx.Err(); err != nil {
		return Result{}, err
	}

	lines, err := l.reader.ReadLines(cropped)
	if err != nil {
		return Result{}, fmt.Errorf("ocr: %w", err)
	}

	env := Env(req.Vars)
	items := make([]Item, 0, len(lines))
	for _, line := range lines {
		if line.Confidence != ocr.UnknownConfidence && line.Confidence < l.MinConfidence {
			items = append(items, Raw(line.Text))
			continue
		}
		items = append(items, evaluateLine(line.Text, env))
	}

	return Success(items...), nil
}
