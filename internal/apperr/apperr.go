// Package apperr defines the error taxonomy shared by every stage of the
// calculation pipeline.
//
// Stages return *Error values instead of writing responses themselves. The
// server package is the only place where a Kind is turned into an HTTP status
// code, so decoding, analysis and normalization stay transport agnostic.
//
// # Public Messages
//
// Message is the text a caller is allowed to see. The wrapped Err carries the
// underlying cause for logs and is never rendered into a response body.
package apperr

import (
	"errors"
	"net/http"
)

// Kind classifies a failure.
type Kind int

const (
	// KindInternal is any failure nobody classified.
	KindInternal Kind = iota
	// KindValidation is a malformed image or data-URI.
	KindValidation
	// KindMalformedRequest is a request body that is not a valid ImageRequest.
	KindMalformedRequest
	// KindAnalysis is a collaborator failure or an explicit error signal from it.
	KindAnalysis
	// KindTimeout is a collaborator call that exceeded its deadline.
	KindTimeout
	// KindRateLimit is a client over its request quota.
	KindRateLimit
)

// InternalMessage is the only text ever returned for unclassified failures.
const InternalMessage = "Internal server error"

func (k Kind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindMalformedRequest:
		return "malformed_request"
	case KindAnalysis:
		return "analysis"
	case KindTimeout:
		return "timeout"
	case KindRateLimit:
		return "rate_limit"
	default:
		return "internal"
	}
}

// HTTPStatus returns the status code a Kind maps to.
func (k Kind) HTTPStatus() int {
	switch k {
	case KindValidation:
		return http.StatusBadRequest
	case KindMalformedRequest:
		return http.StatusUnprocessableEntity
	case KindTimeout:
		return http.StatusGatewayTimeout
	case KindRateLimit:
		return http.StatusTooManyRequests
	default:
		return http.StatusInternalServerError
	}
}

// Error is a classified pipeline failure.
type Error struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return e.Message + ": " + e.Err.Error()
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

// New creates a classified error. err may be nil.
func New(kind Kind, message string, err error) *Error {
	return &Error{Kind: kind, Message: message, Err: err}
}

// Validation reports a bad image or data-URI.
func Validation(message string, err error) *Error {
	return New(KindValidation, message, err)
}

// MalformedRequest reports a request body that could not be read as an ImageRequest.
func MalformedRequest(message string, err error) *Error {
	return New(KindMalformedRequest, message, err)
}

// Analysis reports a collaborator failure.
func Analysis(message string, err error) *Error {
	return New(KindAnalysis, message, err)
}

// Timeout reports a collaborator call that ran out of time.
func Timeout(message string, err error) *Error {
	return New(KindTimeout, message, err)
}

// RateLimit reports a client over quota.
func RateLimit(message string) *Error {
	return New(KindRateLimit, message, nil)
}

// KindOf returns the Kind of the first *Error in err's chain, or KindInternal.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindInternal
}

// PublicMessage returns the caller-safe text for err. The Message of a
// classified error is returned as is, even when empty.
func PublicMessage(err error) string {
	var e *Error
	if errors.As(err, &e) && e.Kind != KindInternal {
		return e.Message
	}
	return InternalMessage
}
