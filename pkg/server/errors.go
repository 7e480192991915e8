package server

import (
	"errors"
	"fmt"
)

// ErrorKind classifies a server-side failure so the HTTP front door and
// housekeeping can decide how to respond without string-matching error
// text (§7).
type ErrorKind int

const (
	// KindProtocol marks a malformed or out-of-sequence packet: the
	// current packet is dropped, the stream continues.
	KindProtocol ErrorKind = iota
	// KindAuth marks a failed or missing authentication: the client
	// receives RESTART/"Server has restarted" and must re-login.
	KindAuth
	// KindPermission marks an otherwise well-formed request the caller
	// lacks privilege for.
	KindPermission
	// KindNotFound marks a reference (match, channel, user) that no
	// longer exists.
	KindNotFound
)

// Error is the structured error type returned by core operations (§7).
type Error struct {
	Kind ErrorKind
	Op   string
	Err  error
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// ProtocolError wraps err as a KindProtocol Error.
func ProtocolError(op string, err error) *Error {
	return &Error{Kind: KindProtocol, Op: op, Err: err}
}

// AuthError wraps err as a KindAuth Error.
func AuthError(op string, err error) *Error {
	return &Error{Kind: KindAuth, Op: op, Err: err}
}

// PermissionError wraps err as a KindPermission Error.
func PermissionError(op string, err error) *Error {
	return &Error{Kind: KindPermission, Op: op, Err: err}
}

// NotFoundError wraps err as a KindNotFound Error.
func NotFoundError(op string, err error) *Error {
	return &Error{Kind: KindNotFound, Op: op, Err: err}
}

// KindOf reports the ErrorKind of err if it is (or wraps) an *Error,
// defaulting to KindProtocol for anything else — an unclassified failure
// is treated the same as a malformed packet: drop and continue.
func KindOf(err error) ErrorKind {
	var se *Error
	if errors.As(err, &se) {
		return se.Kind
	}
	return KindProtocol
}
