package domain

import (
	"errors"
	"fmt"
)

// ErrorKind classifies failures that cross component boundaries.
type ErrorKind int

const (
	KindInternal ErrorKind = iota
	KindNotFound
	KindInvalidUpstreamPayload
	KindInvalidMatchData
	KindDuplicateWrite
	KindUpstreamUnavailable
	KindAggregationFailure
	KindInvalidInput
)

var kindCodes = map[ErrorKind]string{
	KindInternal:               "INTERNAL",
	KindNotFound:               "NOT_FOUND",
	KindInvalidUpstreamPayload: "INVALID_UPSTREAM_PAYLOAD",
	KindInvalidMatchData:       "INVALID_MATCH_DATA",
	KindDuplicateWrite:         "DUPLICATE_WRITE",
	KindUpstreamUnavailable:    "UPSTREAM_UNAVAILABLE",
	KindAggregationFailure:     "AGGREGATION_FAILURE",
	KindInvalidInput:           "INVALID_INPUT",
}

// Code returns the machine-readable code for the kind.
func (k ErrorKind) Code() string {
	if c, ok := kindCodes[k]; ok {
		return c
	}
	return kindCodes[KindInternal]
}

// KindForCode is the inverse of Code. Unknown codes map to KindInternal.
func KindForCode(code string) ErrorKind {
	for k, c := range kindCodes {
		if c == code {
			return k
		}
	}
	return KindInternal
}

func (k ErrorKind) String() string {
	return k.Code()
}

// Error is a failure tagged with a kind and the operation that produced it.
type Error struct {
	Kind ErrorKind
	Op   string
	Err  error
}

// NewError creates a kind-tagged error.
func NewError(kind ErrorKind, op string, err error) *Error {
	return &Error{Kind: kind, Op: op, Err: err}
}

// Errorf creates a kind-tagged error with a formatted cause.
func Errorf(kind ErrorKind, op, format string, args ...interface{}) *Error {
	return &Error{Kind: kind, Op: op, Err: fmt.Errorf(format, args...)}
}

func (e *Error) Error() string {
	switch {
	case e.Op != "" && e.Err != nil:
		return fmt.Sprintf("%s: %s: %v", e.Op, e.Kind.Code(), e.Err)
	case e.Err != nil:
		return fmt.Sprintf("%s: %v", e.Kind.Code(), e.Err)
	case e.Op != "":
		return fmt.Sprintf("%s: %s", e.Op, e.Kind.Code())
	default:
		return e.Kind.Code()
	}
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Code returns the machine-readable code of the error's kind.
func (e *Error) Code() string {
	return e.Kind.Code()
}

// KindOf returns the kind of the first *Error in err's chain,
// or KindInternal when there is none.
func KindOf(err error) ErrorKind {
	var de *Error
	if errors.As(err, &de) {
		return de.Kind
	}
	return KindInternal
}

// IsKind reports whether err carries the given kind.
func IsKind(err error, kind ErrorKind) bool {
	var de *Error
	return errors.As(err, &de) && de.Kind == kind
}

// CodeOf returns the machine-readable code for err, or "" for nil.
func CodeOf(err error) string {
	if err == nil {
		return ""
	}
	return KindOf(err).Code()
}
