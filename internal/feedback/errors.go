package feedback

import (
	"errors"
	"fmt"
	"strings"
)

// Kind classifies every failure a Repository may report.
type Kind int

const (
	KindUnknown Kind = iota
	// KindValidation is a local, pre-flight rejection; the store was not contacted.
	KindValidation
	// KindSchema means the store answered but the feedback table does not exist.
	KindSchema
	// KindConnection covers an unreachable store and any other unexpected failure.
	KindConnection
)

func (k Kind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindSchema:
		return "schema"
	case KindConnection:
		return "connection"
	default:
		return "unknown"
	}
}

// Error is the only error type repositories return.
type Error struct {
	Kind   Kind
	Op     string
	Detail string
	Err    error
}

func (e *Error) Error() string {
	var b strings.Builder
	b.WriteString("feedback")
	if e.Op != "" {
		b.WriteString(" ")
		b.WriteString(e.Op)
	}
	b.WriteString(": ")
	b.WriteString(e.Kind.String())
	if e.Detail != "" {
		b.WriteString(": ")
		b.WriteString(e.Detail)
	}
	if e.Err != nil {
		fmt.Fprintf(&b, " (%v)", e.Err)
	}
	return b.String()
}

func (e *Error) Unwrap() error { return e.Err }

// Validation builds a KindValidation error.
func Validation(detail string) *Error {
	return &Error{Kind: KindValidation, Op: "validate", Detail: detail}
}

// Schema builds a KindSchema error wrapping the store's answer.
func Schema(op string, err error) *Error {
	return &Error{Kind: KindSchema, Op: op, Detail: "feedback table is missing", Err: err}
}

// Connection builds a KindConnection error wrapping the transport failure.
func Connection(op string, err error) *Error {
	return &Error{Kind: KindConnection, Op: op, Err: err}
}

// KindOf returns the Kind carried by err, or KindUnknown.
func KindOf(err error) Kind {
	var fe *Error
	if errors.As(err, &fe) {
		return fe.Kind
	}
	return KindUnknown
}

func IsValidation(err error) bool { return KindOf(err) == KindValidation }
func IsSchema(err error) bool     { return KindOf(err) == KindSchema }
func IsConnection(err error) bool { return KindOf(err) == KindConnection }

// Classify maps a raw store error onto the taxonomy using the error text.
// Backends with structured error codes check those first and fall back here.
func Classify(op string, err error) error {
	if err == nil {
		return nil
	}
	var fe *Error
	if errors.As(err, &fe) {
		return err
	}
	if MissingTableText(err.Error()) {
		return Schema(op, err)
	}
	return Connection(op, err)
}

var missingSignatures = []string{
	"does not exist",
	"could not find the table",
	"no such table",
	"undefined table",
}

// MissingTableText reports whether msg reads like a store complaining that
// the feedback table is absent, e.g. `relation "public.feedback" does not
// exist`, `no such table: feedback` or PostgREST's PGRST205 schema-cache miss.
func MissingTableText(msg string) bool {
	m := strings.ToLower(msg)
	if !strings.Contains(m, TableName) {
		return false
	}
	if !strings.Contains(m, "table") && !strings.Contains(m, "relation") {
		return false
	}
	if strings.Contains(m, "pgrst205") || strings.Contains(m, "42p01") {
		return true
	}
	for _, sig := range missingSignatures {
		if strings.Contains(m, sig) {
			return true
		}
	}
	return false
}
