package cli

import (
	"context"
	"errors"
	"fmt"
)

type ErrorCode string

const (
	ErrUsage       ErrorCode = "E_USAGE"
	ErrInput       ErrorCode = "E_INPUT"
	ErrAPI         ErrorCode = "E_API"
	ErrIO          ErrorCode = "E_IO"
	ErrInterrupted ErrorCode = "E_INTERRUPTED"
	ErrInternal    ErrorCode = "E_INTERNAL"
)

// AppError is an error a command wants reported with a specific code.
type AppError struct {
	Code    ErrorCode
	Message string
	Err     error
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Err
}

func NewAppError(code ErrorCode, message string) error {
	return &AppError{Code: code, Message: message}
}

// Wrap attaches code to err. A nil err stays nil.
func Wrap(code ErrorCode, message string, err error) error {
	if err == nil {
		return nil
	}
	return &AppError{Code: code, Message: message, Err: err}
}

func ExitCodeFor(err error) int {
	if err == nil {
		return 0
	}

	var appErr *AppError
	if !errors.As(err, &appErr) {
		if errors.Is(err, context.Canceled) {
			return 130
		}
		return 1
	}

	switch appErr.Code {
	case ErrUsage:
		return 2
	case ErrInput:
		return 3
	case ErrAPI:
		return 4
	case ErrIO:
		return 5
	case ErrInterrupted:
		return 130
	default:
		return 1
	}
}

func FormatErrorLine(err error) string {
	if err == nil {
		return ""
	}

	var appErr *AppError
	if errors.As(err, &appErr) {
		return fmt.Sprintf("ERROR %s %s", appErr.Code, appErr.Error())
	}
	if errors.Is(err, context.Canceled) {
		return fmt.Sprintf("ERROR %s %s", ErrInterrupted, err.Error())
	}

	return fmt.Sprintf("ERROR %s %s", ErrInternal, err.Error())
}
