package kv

import (
	"errors"
	"fmt"
)

// Kind classifies a store failure so callers can branch on it
// instead of parsing the message.
type Kind uint8

const (
	// KindOther is a free-form failure with no more specific kind.
	KindOther Kind = iota
	// KindIO is a failure reading, writing or applying data.
	KindIO
	// KindCorrupt means stored or journaled data could not be decoded.
	KindCorrupt
)

func (k Kind) String() string {
	switch k {
	case KindIO:
		return "i/o failure"
	case KindCorrupt:
		return "corrupt data"
	default:
		return "store error"
	}
}

// Error is the error type returned by Store implementations.
// A missing key is never an Error.
type Error struct {
	Kind Kind
	Op   string // operation, e.g. "set"; optional
	Key  string // key involved; optional
	Err  error
}

func (e *Error) Error() string {
	var prefix string
	switch {
	case e.Op != "" && e.Key != "":
		prefix = fmt.Sprintf("%s %q: ", e.Op, e.Key)
	case e.Op != "":
		prefix = e.Op + ": "
	}
	if e.Err == nil {
		return prefix + e.Kind.String()
	}
	return fmt.Sprintf("%s%s: %v", prefix, e.Kind, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Errorf returns a free-form *Error of the given kind.
func Errorf(kind Kind, format string, args ...any) error {
	return &Error{Kind: kind, Err: fmt.Errorf(format, args...)}
}

// IsKind reports whether any *Error in err's chain has the given kind.
func IsKind(err error, kind Kind) bool {
	var kerr *Error
	if !errors.As(err, &kerr) {
		return false
	}
	return kerr.Kind == kind
}
