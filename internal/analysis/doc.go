// Package analysis connects decoded images to the collaborator that reads and
// computes the mathematics in them.
//
// # Pipeline
//
//	Adapter.Analyze   calls the Analyzer with a deadline and classifies failures
//	Normalize         resolves Items into the response's list of mappings
//
// # Items
//
// Collaborators return a mix of structured records and free text. Item is a
// tagged union of the two: Record(mapping) or Raw(text). Normalize keeps
// records, parses raw text that holds a JSON object, and wraps everything else
// as {"raw": text}.
//
// # Backends
//
//   - ClaudeAnalyzer: Anthropic Messages API with an image block
//   - OpenAIAnalyzer: OpenAI Chat Completions with an image data-URI part
//   - LocalAnalyzer: Tesseract OCR followed by in-process expression evaluation
//
// The vision backends share the same prompt and ParseModelOutput, so their
// records use the same keys as LocalAnalyzer: expr, result and assign.
package analysis
