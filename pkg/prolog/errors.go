package prolog

import (
	errors "gopkg.in/src-d/go-errors.v1"
)

// API-level error kinds. Goal failure is never one of these: a goal that
// cannot be proven yields an empty stream and drives backtracking. Errors
// are reserved for malformed inputs handed to the KB, the parser, or the
// wire codec.
var (
	// ErrMalformedClause is returned when a rule's head or body does not
	// have the expected shape. The knowledge base rejects the change.
	ErrMalformedClause = errors.NewKind("malformed clause: %s")

	// ErrMalformedTerm is returned when term data handed to the engine is
	// not one of the supported term shapes.
	ErrMalformedTerm = errors.NewKind("malformed term: %s")

	// ErrUnknownWireTag is returned when decoding wire data with an
	// unrecognized type tag.
	ErrUnknownWireTag = errors.NewKind("unknown wire tag: %q")

	// ErrImportData is returned when an import payload fails validation.
	// The knowledge base is left untouched.
	ErrImportData = errors.NewKind("invalid import data: %s")

	// ErrParse is returned for syntax errors in the textual term notation.
	ErrParse = errors.NewKind("parse error at %d: %s")
)
