package pkgerror

import (
	"errors"
	"fmt"
)

// ErrNotFound indicates that an input file could not be found.
var ErrNotFound = errors.New("input not found")

// Kind classifies errors into the buckets a pipeline step reacts to.
type Kind int

const (
	KindInternal       Kind = iota // Unclassified failure.
	KindMissingInput               // A source file is absent.
	KindMalformedInput             // A source file cannot be parsed.
	KindSchemaMismatch             // A later batch disagrees with the frozen schema.
	KindRemote                     // Object storage or warehouse call failed.
	KindConfig                     // Invalid configuration.
)

func (k Kind) String() string {
	switch k {
	case KindMissingInput:
		return "MISSING_INPUT"
	case KindMalformedInput:
		return "MALFORMED_INPUT"
	case KindSchemaMismatch:
		return "SCHEMA_MISMATCH"
	case KindRemote:
		return "REMOTE"
	case KindConfig:
		return "CONFIG"
	default:
		return "INTERNAL"
	}
}

// Error is a classified error carrying the logical source it belongs to.
type Error struct {
	err    error
	kind   Kind
	source string
}

// Error implements the error interface.
func (e *Error) Error() string {
	msg := e.kind.String()
	if e.err != nil {
		msg = e.err.Error()
	}
	if e.source != "" {
		return e.source + ": " + msg
	}
	return msg
}

// String returns a verbose representation of the error for debugging/logging.
func (e *Error) String() string {
	return fmt.Sprintf("Kind: %s, Source: %s, Underlying Error: %v", e.kind, e.source, e.err)
}

// Kind returns the error classification.
func (e *Error) Kind() Kind {
	return e.kind
}

// Source returns the logical source name, if set.
func (e *Error) Source() string {
	return e.source
}

// Unwrap returns the underlying error.
func (e *Error) Unwrap() error {
	return e.err
}

func newError(err error, kind Kind, source string) error {
	return &Error{err: err, kind: kind, source: source}
}

// New wraps err with the given kind. A nil err returns nil.
func New(kind Kind, err error) error {
	if err == nil {
		return nil
	}
	return newError(err, kind, "")
}

// NewMissingInput reports an absent source file at path.
func NewMissingInput(source, path string) error {
	return newError(fmt.Errorf("%w: %s", ErrNotFound, path), KindMissingInput, source)
}

// NewMalformedInput wraps a parse failure of a source file.
func NewMalformedInput(err error) error {
	return New(KindMalformedInput, err)
}

// NewSchemaMismatch wraps a coercion failure against a frozen schema.
func NewSchemaMismatch(err error) error {
	return New(KindSchemaMismatch, err)
}

// NewRemote wraps a failed object storage or warehouse call.
func NewRemote(err error) error {
	return New(KindRemote, err)
}

// NewConfig wraps an invalid configuration value.
func NewConfig(err error) error {
	return New(KindConfig, err)
}

// WithSource attaches a logical source name to err, keeping its kind.
func WithSource(err error, source string) error {
	if err == nil {
		return nil
	}
	return newError(err, KindOf(err), source)
}

// KindOf returns the kind of the first classified error in err's chain.
// Unclassified errors are KindInternal.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.kind
	}
	return KindInternal
}

// Is reports whether err's chain carries the given kind.
func Is(err error, kind Kind) bool {
	return err != nil && KindOf(err) == kind
}
