package analysis

import (
	"context"
	"fmt"

	"github.com/ironsheep/image-calc-server/internal/imaging"
)

// Request is the input to an Analyzer.
type Request struct {
	// Image is the validated, decoded upload.
	Image *imaging.Decoded

	// Vars maps variable names to their values (strings or numbers) as sent
	// in dict_of_vars. Never nil.
	Vars map[string]any
}

// Analyzer is the collaborator that interprets an image.
//
// Implementations should honor ctx cancellation. An Analyzer reports its own
// refusals with Failure rather than an error; an error means the call itself
// broke.
type Analyzer interface {
	Analyze(ctx context.Context, req Request) (Result, error)
}

// AnalyzerFunc adapts a function to the Analyzer interface.
type AnalyzerFunc func(ctx context.Context, req Request) (Result, error)

// Analyze calls f.
func (f AnalyzerFunc) Analyze(ctx context.Context, req Request) (Result, error) {
	return f(ctx, req)
}

// Result is what a collaborator returns: items, or an explicit error signal.
type Result struct {
	Items []Item

	// Failed is set when the collaborator signalled an error itself, e.g. a
	// payload of the form {"error": "..."}.
	Failed bool

	// Message is the collaborator's error text when Failed is set.
	Message string
}

// Success wraps items in a Result.
func Success(items ...Item) Result {
	return Result{Items: items}
}

// Failure is a Result carrying the collaborator's error message.
func Failure(message string) Result {
	return Result{Failed: true, Message: message}
}

// ItemKind tags the variant held by an Item.
type ItemKind int

const (
	// KindRecord is an already structured mapping.
	KindRecord ItemKind = iota
	// KindRaw is text that may or may not be a JSON object.
	KindRaw
)

// Item is one entry of collaborator output: either a structured record or raw
// text to be resolved by Normalize.
type Item struct {
	kind   ItemKind
	record map[string]any
	text   string
}

// Record makes a structured item.
func Record(m map[string]any) Item {
	return Item{kind: KindRecord, record: m}
}

// Raw makes a text item.
func Raw(text string) Item {
	return Item{kind: KindRaw, text: text}
}

// Kind returns the variant.
func (it Item) Kind() ItemKind { return it.kind }

// RecordValue returns the mapping of a record item.
func (it Item) RecordValue() (map[string]any, bool) {
	return it.record, it.kind == KindRecord
}

// Text returns the text of a raw item.
func (it Item) Text() (string, bool) {
	return it.text, it.kind == KindRaw
}

// String renders the item for logs.
func (it Item) String() string {
	if it.kind == KindRecord {
		return fmt.Sprintf("record%v", it.record)
	}
	return fmt.Sprintf("raw(%q)", it.text)
}
