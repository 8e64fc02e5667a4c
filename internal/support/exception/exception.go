// Package exception provides the classified error type used across the ETL.
// Every failure surfaced by a component carries the module it originated in
// and one of a small set of kinds, so callers can decide on exit codes and
// log severity without string matching.
package exception

import (
	"errors"
	"fmt"
)

// Kind classifies a failure by its origin.
type Kind int

const (
	// KindInternal is the zero value, used for faults that fit no other kind.
	KindInternal Kind = iota
	// KindConfiguration covers a missing or malformed configuration source,
	// including the locations file.
	KindConfiguration
	// KindUpstream covers transport failures and non-2xx responses from the
	// weather provider.
	KindUpstream
	// KindSchema covers responses that decode but miss the expected shape.
	KindSchema
	// KindIO covers snapshot read/write failures.
	KindIO
	// KindUpsert covers database failures during the staging/merge sequence.
	KindUpsert
)

// String returns the kind's name as used in logs.
func (k Kind) String() string {
	switch k {
	case KindConfiguration:
		return "configuration"
	case KindUpstream:
		return "upstream"
	case KindSchema:
		return "schema"
	case KindIO:
		return "io"
	case KindUpsert:
		return "upsert"
	default:
		return "internal"
	}
}

// ETLError is the error type raised by ETL components.
type ETLError struct {
	// Kind classifies the failure.
	Kind Kind
	// Module names the component where the error occurred (e.g. "fetcher", "loader").
	Module string
	// Message is a concise description of the failure.
	Message string
	// Err is the wrapped cause, if any.
	Err error
}

// New creates a classified error.
func New(kind Kind, module, message string, cause error) *ETLError {
	return &ETLError{Kind: kind, Module: module, Message: message, Err: cause}
}

// Newf creates a classified error with a formatted message. If the last
// argument is an error it is wrapped as the cause rather than formatted.
func Newf(kind Kind, module, format string, a ...interface{}) *ETLError {
	var cause error
	if len(a) > 0 {
		if err, ok := a[len(a)-1].(error); ok {
			cause = err
			a = a[:len(a)-1]
		}
	}
	return &ETLError{Kind: kind, Module: module, Message: fmt.Sprintf(format, a...), Err: cause}
}

// Configuration creates a KindConfiguration error.
func Configuration(module, message string, cause error) *ETLError {
	return New(KindConfiguration, module, message, cause)
}

// Upstream creates a KindUpstream error.
func Upstream(module, message string, cause error) *ETLError {
	return New(KindUpstream, module, message, cause)
}

// Schema creates a KindSchema error.
func Schema(module, message string, cause error) *ETLError {
	return New(KindSchema, module, message, cause)
}

// IO creates a KindIO error.
func IO(module, message string, cause error) *ETLError {
	return New(KindIO, module, message, cause)
}

// Upsert creates a KindUpsert error.
func Upsert(module, message string, cause error) *ETLError {
	return New(KindUpsert, module, message, cause)
}

// Error implements the error interface.
func (e *ETLError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Module, e.Message, e.Err)
	}
	return fmt.Sprintf("[%s] %s", e.Module, e.Message)
}

// Unwrap returns the wrapped cause for errors.Is / errors.As.
func (e *ETLError) Unwrap() error {
	return e.Err
}

// IsKind reports whether err or anything in its chain is an ETLError of the
// given kind.
func IsKind(err error, kind Kind) bool {
	var etlErr *ETLError
	for errors.As(err, &etlErr) {
		if etlErr.Kind == kind {
			return true
		}
		err = etlErr.Err
		if err == nil {
			return false
		}
		etlErr = nil
	}
	return false
}

// KindOf returns the kind of the outermost ETLError in the chain, or
// KindInternal when there is none.
func KindOf(err error) Kind {
	var etlErr *ETLError
	if errors.As(err, &etlErr) {
		return etlErr.Kind
	}
	return KindInternal
}
