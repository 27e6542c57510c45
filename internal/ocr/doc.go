// Package ocr reads text lines from images using Tesseract.
//
// This package wraps the Tesseract OCR engine (via gosseract/v2). It is used by
// the local analysis backend, which turns each recognized line into an
// expression to evaluate.
//
// # Prerequisites
//
// Tesseract and its development headers must be installed:
//   - Ubuntu/Debian: apt-get install tesseract-ocr libtesseract-dev tesseract-ocr-eng
//   - macOS: brew install tesseract
//
// # Input
//
// ReadLines works best on the black-on-white output of
// imaging.PrepareForOCR. Images are passed to Tesseract in memory as PNG; no
// temporary files are written.
//
// # Error Handling
//
// Functions return errors for:
//   - Unsupported language codes or a missing tessdata directory
//   - Tesseract initialization failures
//   - Images that cannot be encoded
//
// If the text-line iterator fails, ReadLines falls back to the plain text
// split on newlines, with UnknownConfidence on every line.
package ocr
