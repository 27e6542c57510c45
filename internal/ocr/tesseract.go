package ocr

import (
	"fmt"
	"image"
	"strings"

	"github.com/ironsheep/image-calc-server/internal/imaging"
	"github.com/otiai10/gosseract/v2"
)

// DefaultLanguage is the Tesseract language used when none is configured.
const DefaultLanguage = "eng"

// MathWhitelist restricts recognition to characters that appear in
// arithmetic expressions and variable assignments.
const MathWhitelist = "0123456789abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ+-*/=().,^% "

// UnknownConfidence marks lines from the plain-text fallback.
const UnknownConfidence = -1.0

// Line is one recognized line of text.
type Line struct {
	// Text is the recognized content with whitespace collapsed.
	Text string `json:"text"`

	// Confidence is Tesseract's confidence score (0.0 to 1.0), or
	// UnknownConfidence when the line came from the plain-text fallback.
	Confidence float64 `json:"confidence"`
}

// Engine runs Tesseract on in-memory images.
//
// A fresh gosseract client is created per call, so an Engine is safe for
// concurrent use. Each call is CPU heavy; callers bound concurrency themselves.
type Engine struct {
	// Language is the Tesseract language code, e.g. "eng".
	Language string

	// TessdataPrefix overrides the directory holding *.traineddata files.
	// Empty uses Tesseract's compiled-in default or TESSDATA_PREFIX.
	TessdataPrefix string

	// Whitelist limits recognized characters. Empty disables the restriction.
	Whitelist string
}

// NewEngine returns an Engine tuned for mathematical expressions.
func NewEngine(language, tessdataPrefix string) *Engine {
	if language == "" {
		language = DefaultLanguage
	}
	return &Engine{
		Language:       language,
		TessdataPrefix: tessdataPrefix,
		Whitelist:      MathWhitelist,
	}
}

// ReadLines recognizes img and returns its non-empty text lines top to bottom.
//
// Lines come from Tesseract's RIL_TEXTLINE iterator. If that fails the plain
// text is split on newlines instead, without confidence scores.
func (e *Engine) ReadLines(img image.Image) ([]Line, error) {
	data, err := imaging.EncodePNG(img)
	if err != nil {
		return nil, err
	}

	client := gosseract.NewClient()
	defer client.Close()

	if e.TessdataPrefix != "" {
		if err := client.SetTessdataPrefix(e.TessdataPrefix); err != nil {
			return nil, fmt.Errorf("failed to set tessdata path: %w", err)
		}
	}

	if err := client.SetLanguage(e.Language); err != nil {
		return nil, fmt.Errorf("failed to set language: %w", err)
	}

	if e.Whitelist != "" {
		if err := client.SetWhitelist(e.Whitelist); err != nil {
			return nil, fmt.Errorf("failed to set whitelist: %w", err)
		}
	}

	if err := client.SetImageFromBytes(data); err != nil {
		return nil, fmt.Errorf("failed to set image: %w", err)
	}

	boxes, err := client.GetBoundingBoxes(gosseract.RIL_TEXTLINE)
	if err != nil {
		text, textErr := client.Text()
		if textErr != nil {
			return nil, fmt.Errorf("OCR failed: %w", textErr)
		}
		return SplitLines(text), nil
	}

	lines := make([]Line, 0, len(boxes))
	for _, box := range boxes {
		text := CleanLine(box.Word)
		if text == "" {
			continue
		}
		lines = append(lines, Line{
			Text:       text,
			Confidence: float64(box.Confidence) / 100.0,
		})
	}

	return lines, nil
}

// SplitLines turns plain OCR output into Lines, dropping blank ones.
func SplitLines(text string) []Line {
	raw := strings.Split(text, "\n")
	lines := make([]Line, 0, len(raw))
	for _, r := range raw {
		if cleaned := CleanLine(r); cleaned != "" {
			lines = append(lines, Line{Text: cleaned, Confidence: UnknownConfidence})
		}
	}
	return lines
}

// CleanLine trims a line and collapses internal runs of whitespace.
func CleanLine(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
