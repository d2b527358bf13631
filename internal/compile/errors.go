package compile

import (
	"errors"
	"fmt"
)

// ErrorKind enumerates the compile-time failure classes. None of these are
// recoverable at runtime; a circuit violating them is undefined hardware.
type ErrorKind int

const (
	// UnknownGroup: a control node references an undeclared group.
	UnknownGroup ErrorKind = iota
	// NonExclusiveGuard: mutual exclusion could not be proven for some
	// destination port.
	NonExclusiveGuard
	// LatencyMismatch: static promotion was requested over a subtree with a
	// dynamic-latency descendant.
	LatencyMismatch
	// MissingDone: a dynamic group has no assignment driving its done wire.
	MissingDone
)

func (k ErrorKind) String() string {
	switch k {
	case UnknownGroup:
		return "unknown group"
	case NonExclusiveGuard:
		return "non-exclusive guard"
	case LatencyMismatch:
		return "latency mismatch"
	case MissingDone:
		return "missing done"
	default:
		return "compile error"
	}
}

// Error is a typed compile failure.
type Error struct {
	Kind ErrorKind
	Msg  string
}

func (e *Error) Error() string {
	return e.Kind.String() + ": " + e.Msg
}

// Errorf builds an Error of the given kind.
func Errorf(kind ErrorKind, format string, args ...any) *Error {
	return &Error{Kind: kind, Msg: fmt.Sprintf(format, args...)}
}

// KindOf extracts the kind from err when it wraps a compile Error.
func KindOf(err error) (ErrorKind, bool) {
	var ce *Error
	if errors.As(err, &ce) {
		return ce.Kind, true
	}
	return 0, false
}
