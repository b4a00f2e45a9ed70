package repoerr

import (
	"errors"
	"fmt"
)

// Code classifies repository errors. Each code maps to a distinct caller
// path: CLI commands turn codes into exit codes, callers branch on them
// with the Is* predicates.
type Code int

const (
	CodeUnknown Code = iota
	CodeConnection
	CodeNotFound
	CodeAlreadyExists
	CodeSerialization
	CodeInvalidStatusTransition
	CodeConflict
)

// Error is a structured repository error with a code and optional cause.
type Error struct {
	Code    Code
	Message string
	Cause   error
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

// Unwrap returns the underlying error.
func (e *Error) Unwrap() error {
	return e.Cause
}

// New creates an Error with the given code.
func New(code Code, message string, cause error) *Error {
	return &Error{Code: code, Message: message, Cause: cause}
}

// Connection wraps a store connectivity or timeout failure.
func Connection(message string, cause error) *Error {
	return New(CodeConnection, message, cause)
}

// NotFound reports an operation against an unknown record id.
func NotFound(id string) *Error {
	return New(CodeNotFound, fmt.Sprintf("record not found: %s", id), nil)
}

// AlreadyExists reports a duplicate id on create.
func AlreadyExists(id string) *Error {
	return New(CodeAlreadyExists, fmt.Sprintf("record already exists: %s", id), nil)
}

// Serialization reports a malformed stored value.
func Serialization(message string, cause error) *Error {
	return New(CodeSerialization, message, cause)
}

// InvalidStatusTransition is part of the taxonomy but no operation raises
// it: status changes are accepted unconditionally.
func InvalidStatusTransition(from, to string) *Error {
	return New(CodeInvalidStatusTransition, fmt.Sprintf("invalid status transition from %s to %s", from, to), nil)
}

// Conflict reports that a guarded update lost to a concurrent writer.
func Conflict(id string) *Error {
	return New(CodeConflict, fmt.Sprintf("concurrent modification of record %s", id), nil)
}

// CodeOf extracts the code from an error chain, or CodeUnknown.
func CodeOf(err error) Code {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return CodeUnknown
}

// IsNotFound reports whether err carries CodeNotFound.
func IsNotFound(err error) bool {
	return CodeOf(err) == CodeNotFound
}

// IsAlreadyExists reports whether err carries CodeAlreadyExists.
func IsAlreadyExists(err error) bool {
	return CodeOf(err) == CodeAlreadyExists
}

// IsConflict reports whether err carries CodeConflict.
func IsConflict(err error) bool {
	return CodeOf(err) == CodeConflict
}

// IsConnection reports whether err carries CodeConnection.
func IsConnection(err error) bool {
	return CodeOf(err) == CodeConnection
}

// ExitCode maps an error code to a process exit code for the CLI.
func (c Code) ExitCode() int {
	switch c {
	case CodeNotFound:
		return 2
	case CodeAlreadyExists:
		return 3
	case CodeSerialization:
		return 4
	case CodeConflict:
		return 5
	case CodeInvalidStatusTransition:
		return 6
	case CodeConnection:
		return 7
	default:
		return 1
	}
}

// String returns the code's name for logs and metrics labels.
func (c Code) String() string {
	switch c {
	case CodeConnection:
		return "connection"
	case CodeNotFound:
		return "not_found"
	case CodeAlreadyExists:
		return "already_exists"
	case CodeSerialization:
		return "serialization"
	case CodeInvalidStatusTransition:
		return "invalid_status_transition"
	case CodeConflict:
		return "conflict"
	default:
		return "unknown"
	}
}
