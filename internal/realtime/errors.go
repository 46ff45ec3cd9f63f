package realtime

import (
	"errors"
	"fmt"
)

// Error codes reported to callers. They travel as plain strings inside
// error intents.
const (
	CodeEmailTaken      = "EMAIL_TAKEN"
	CodeInvalidEmail    = "INVALID_EMAIL"
	CodeInvalidPassword = "INVALID_PASSWORD"
	CodeInvalidUser     = "INVALID_USER"
	CodeNotFound        = "NOT_FOUND"
	CodeInvalidQuery    = "INVALID_QUERY"
	CodeNetworkError    = "NETWORK_ERROR"
)

var (
	ErrNotFound   = errors.New("not found")
	ErrEmailTaken = errors.New("email already registered")
)

// Error 带错误码的数据库错误
type Error struct {
	Code string
	Op   string
	Err  error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("realtime %s: %s: %v", e.Op, e.Code, e.Err)
	}
	return fmt.Sprintf("realtime %s: %s", e.Op, e.Code)
}

func (e *Error) Unwrap() error {
	return e.Err
}

func newError(code, op string, err error) *Error {
	return &Error{Code: code, Op: op, Err: err}
}

// wrap turns storage errors into coded errors.
func wrap(op string, err error) error {
	if err == nil {
		return nil
	}
	var e *Error
	if errors.As(err, &e) {
		return err
	}
	switch {
	case errors.Is(err, ErrNotFound):
		return newError(CodeNotFound, op, err)
	case errors.Is(err, ErrEmailTaken):
		return newError(CodeEmailTaken, op, err)
	default:
		return newError(CodeNetworkError, op, err)
	}
}

// Code extracts the error code, "" for nil.
func Code(err error) string {
	if err == nil {
		return ""
	}
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return CodeNetworkError
}
