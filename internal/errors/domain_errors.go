package errors

import (
	"fmt"
)

// Protocol errors

// ParseError creates an error for input that is not valid JSON.
func ParseError(cause error) *Error {
	return New(CodeParseError, "parse error", cause)
}

// InvalidRequest creates an error for input that is structurally not a
// JSON-RPC request.
func InvalidRequest(message string) *Error {
	if message == "" {
		message = "invalid request"
	}
	return New(CodeInvalidRequest, message, nil)
}

// MethodNotFound creates an error for an unregistered method. The offending
// method name is carried in the error data.
func MethodNotFound(method string) *Error {
	return New(CodeMethodNotFound, fmt.Sprintf("method not found: %s", method), nil).
		WithData("method", method)
}

// InvalidParams creates an error for a params shape or type the handler
// cannot consume.
func InvalidParams(message string) *Error {
	if message == "" {
		message = "invalid params"
	}
	return New(CodeInvalidParams, message, nil)
}

// Internal creates an error for an uncaught failure inside a handler.
func Internal(cause error) *Error {
	return New(CodeInternalError, "internal error", cause).WithStack()
}

// Server errors

// Server creates a generic server-side error.
func Server(message string, cause error) *Error {
	return New(CodeServerError, message, cause)
}

// Authentication creates an error for missing or invalid credentials.
func Authentication(message string) *Error {
	if message == "" {
		message = "authentication required"
	}
	return New(CodeAuthentication, message, nil)
}

// Authorization creates an error for an authenticated caller that lacks a
// permission scope. The missing scope is carried in the error data.
func Authorization(scope string) *Error {
	return New(CodeAuthorization, fmt.Sprintf("missing permission: %s", scope), nil).
		WithData("required_permission", scope)
}

// RateLimit creates an error for a caller that exceeded its allowed rate.
func RateLimit(message string) *Error {
	if message == "" {
		message = "rate limit exceeded"
	}
	return New(CodeRateLimit, message, nil)
}

// Timeout creates an error for an operation that exceeded its deadline.
func Timeout(operation string) *Error {
	return New(CodeTimeout, fmt.Sprintf("operation timed out: %s", operation), nil).
		WithData("operation", operation)
}

// Application errors

// Session creates an error for a session-layer inconsistency.
func Session(message string, cause error) *Error {
	return New(CodeSession, message, cause)
}

// EntityNotFound creates an error for a referenced entity that is absent.
func EntityNotFound(entityID string) *Error {
	return New(CodeEntityNotFound, fmt.Sprintf("entity not found: %s", entityID), nil).
		WithData("entity_id", entityID)
}

// InvalidState creates an error for an operation invalid in the current state.
func InvalidState(message string) *Error {
	return New(CodeInvalidState, message, nil)
}

// Routing creates an error for a message that could not be routed.
func Routing(message string, cause error) *Error {
	return New(CodeRouting, message, cause)
}
