package vm

import (
	"errors"
	"fmt"
)

// ErrorType represents the type of runtime error.
type ErrorType string

const (
	// Fatal errors - the context must stop
	ErrorStackOverflow   ErrorType = "STACK_OVERFLOW"
	ErrorDivisionByZero  ErrorType = "DIVISION_BY_ZERO"
	ErrorBadJump         ErrorType = "BAD_JUMP"
	ErrorTruncated       ErrorType = "TRUNCATED_STREAM"
	ErrorZeroDenominator ErrorType = "ZERO_DENOMINATOR"
	ErrorUndefinedOpcode ErrorType = "UNDEFINED_OPCODE"

	// Non-fatal errors - logged, execution continues
	ErrorIndexOutOfRange  ErrorType = "INDEX_OUT_OF_RANGE"
	ErrorInvalidOperation ErrorType = "INVALID_OPERATION"
	ErrorResourceNotFound ErrorType = "RESOURCE_NOT_FOUND"
)

// RuntimeError is an error raised while a context executes bytecode.
// Pos is the stream position of the failing instruction, -1 when unknown.
type RuntimeError struct {
	Type    ErrorType
	Message string
	Pos     int
	Opcode  Opcode
	Err     error
}

// Error implements the error interface.
func (e *RuntimeError) Error() string {
	msg := e.Message
	if e.Err != nil {
		msg = fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	if e.Pos >= 0 {
		return fmt.Sprintf("[%s] %s at %#x (op %s)", e.Type, msg, e.Pos, e.Opcode)
	}
	return fmt.Sprintf("[%s] %s", e.Type, msg)
}

// Unwrap returns the underlying cause.
func (e *RuntimeError) Unwrap() error { return e.Err }

// IsFatal returns true if the error stops the context.
func (e *RuntimeError) IsFatal() bool {
	switch e.Type {
	case ErrorStackOverflow, ErrorDivisionByZero, ErrorBadJump,
		ErrorTruncated, ErrorZeroDenominator, ErrorUndefinedOpcode:
		return true
	default:
		return false
	}
}

// NewRuntimeError creates a new RuntimeError without position information.
func NewRuntimeError(errType ErrorType, message string) *RuntimeError {
	return &RuntimeError{Type: errType, Message: message, Pos: -1}
}

func wrapError(errType ErrorType, message string, err error) *RuntimeError {
	return &RuntimeError{Type: errType, Message: message, Pos: -1, Err: err}
}

// NewDivisionByZeroError creates a division by zero error.
func NewDivisionByZeroError() *RuntimeError {
	return NewRuntimeError(ErrorDivisionByZero, "division by zero")
}

// NewStackOverflowError creates an evaluator or return stack overflow error.
func NewStackOverflowError(depth int) *RuntimeError {
	return NewRuntimeError(ErrorStackOverflow, fmt.Sprintf("stack overflow: depth %d exceeds maximum", depth))
}

// NewIndexOutOfRangeError creates an index out of range error.
func NewIndexOutOfRangeError(what string, index int64, length int) *RuntimeError {
	return NewRuntimeError(ErrorIndexOutOfRange, fmt.Sprintf("%s index %d out of range (length %d)", what, index, length))
}

// NewUndefinedOpcodeError creates an undefined opcode error.
func NewUndefinedOpcodeError(op Opcode) *RuntimeError {
	return &RuntimeError{Type: ErrorUndefinedOpcode, Message: "undefined opcode", Pos: -1, Opcode: op}
}

// at fills in position information if it is missing.
func at(err error, pos int, op Opcode) error {
	var re *RuntimeError
	if errors.As(err, &re) {
		if re.Pos < 0 {
			re.Pos = pos
			re.Opcode = op
		}
		return re
	}
	return &RuntimeError{Type: ErrorTruncated, Message: "stream access failed", Pos: pos, Opcode: op, Err: err}
}

// IsFatal reports whether err must stop the context. Errors that are not
// RuntimeErrors are treated as fatal.
func IsFatal(err error) bool {
	if err == nil {
		return false
	}
	var re *RuntimeError
	if errors.As(err, &re) {
		return re.IsFatal()
	}
	return true
}
