package errors

import (
	stderrors "errors"
	"fmt"
	"runtime"
	"strings"
)

// JSON-RPC 2.0 reserved error codes plus the gateway extension ranges.
const (
	CodeParseError     = -32700
	CodeInvalidRequest = -32600
	CodeMethodNotFound = -32601
	CodeInvalidParams  = -32602
	CodeInternalError  = -32603

	// Server error range (-32000 ~ -32099)
	CodeServerError    = -32000
	CodeAuthentication = -32001
	CodeAuthorization  = -32002
	CodeRateLimit      = -32003
	CodeTimeout        = -32004

	// Application error range (-32100 ~ -32199)
	CodeSession        = -32100
	CodeEntityNotFound = -32101
	CodeInvalidState   = -32102
	CodeRouting        = -32103
)

// Error is a gateway error. Code, Message and Data are the only fields that
// cross the protocol boundary back to the caller; Cause and Stack stay
// server-side.
type Error struct {
	Code    int            `json:"code"`
	Message string         `json:"message"`
	Data    map[string]any `json:"data,omitempty"`
	Cause   error          `json:"-"`
	Stack   []string       `json:"-"`
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s (%d): %v", e.Message, e.Code, e.Cause)
	}
	return fmt.Sprintf("%s (%d)", e.Message, e.Code)
}

// Unwrap supports errors.Is / errors.As chains.
func (e *Error) Unwrap() error {
	return e.Cause
}

// WithData sets a single data field and returns the error for chaining.
func (e *Error) WithData(key string, value any) *Error {
	if e.Data == nil {
		e.Data = make(map[string]any)
	}
	e.Data[key] = value
	return e
}

// WithStack records the current call stack on the error. The stack is never
// serialized; Detail renders it into Data when verbose diagnostics are on.
func (e *Error) WithStack() *Error {
	const depth = 32
	var pcs [depth]uintptr
	n := runtime.Callers(2, pcs[:])
	frames := runtime.CallersFrames(pcs[:n])

	stack := make([]string, 0, n)
	for {
		frame, more := frames.Next()
		if !strings.Contains(frame.File, "runtime/") {
			stack = append(stack, fmt.Sprintf("%s:%d %s", frame.File, frame.Line, frame.Function))
		}
		if !more {
			break
		}
	}

	e.Stack = stack
	return e
}

// Detail returns a copy of the error whose Data also carries the cause and
// stack. Only for verbose diagnostics; default output never includes either.
func (e *Error) Detail() *Error {
	out := &Error{
		Code:    e.Code,
		Message: e.Message,
		Cause:   e.Cause,
		Stack:   e.Stack,
		Data:    make(map[string]any, len(e.Data)+2),
	}
	for k, v := range e.Data {
		out.Data[k] = v
	}
	if e.Cause != nil {
		out.Data["cause"] = e.Cause.Error()
	}
	if len(e.Stack) > 0 {
		out.Data["stack"] = e.Stack
	}
	return out
}

// New creates a gateway error.
func New(code int, message string, cause error) *Error {
	return &Error{
		Code:    code,
		Message: message,
		Cause:   cause,
	}
}

// From normalizes any error into a gateway error. Known gateway errors keep
// their code; everything else becomes an internal error with a generic
// message, the original kept as cause.
func From(err error) *Error {
	var gwErr *Error
	if stderrors.As(err, &gwErr) {
		return gwErr
	}
	return New(CodeInternalError, "internal error", err)
}

// Is reports whether err carries the given gateway error code.
func Is(err error, code int) bool {
	var gwErr *Error
	if stderrors.As(err, &gwErr) {
		return gwErr.Code == code
	}
	return false
}

// GetCode returns the gateway error code of err, or CodeInternalError for
// unknown errors.
func GetCode(err error) int {
	var gwErr *Error
	if stderrors.As(err, &gwErr) {
		return gwErr.Code
	}
	return CodeInternalError
}

// RootCause walks the error chain to its origin.
func RootCause(err error) error {
	for err != nil {
		unwrapped := stderrors.Unwrap(err)
		if unwrapped == nil {
			return err
		}
		err = unwrapped
	}
	return err
}
