package errors

import (
	"fmt"
	"strings"
)

// JoinErrors merges multiple errors into one. A single non-nil error is
// returned as-is; several are folded into one internal error keeping the
// first as cause.
func JoinErrors(errs ...error) error {
	var nonNil []error
	for _, err := range errs {
		if err != nil {
			nonNil = append(nonNil, err)
		}
	}

	if len(nonNil) == 0 {
		return nil
	}

	if len(nonNil) == 1 {
		return nonNil[0]
	}

	messages := make([]string, 0, len(nonNil))
	for _, err := range nonNil {
		messages = append(messages, err.Error())
	}

	return New(CodeInternalError,
		fmt.Sprintf("multiple errors occurred: %s", strings.Join(messages, "; ")),
		nonNil[0])
}

// HasCause reports whether cause appears anywhere in err's chain.
func HasCause(err error, cause error) bool {
	if err == nil || cause == nil {
		return false
	}
	for err != nil {
		if err == cause {
			return true
		}
		u, ok := err.(interface{ Unwrap() error })
		if !ok {
			return false
		}
		err = u.Unwrap()
	}
	return false
}
