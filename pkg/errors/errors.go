// Package errors gives every yiyin failure a [Code].
//
// Messages of coded errors are written for the chat: a plugin that gets an
// [*Error] back can reply with [UserMessage] as is. Logs and the CLI print
// [Error.Error], which adds the code and the wrapped cause.
//
//	if err := book.AddMember(ctx, group, name); errors.Is(err, errors.ErrCodeAlreadyExists) {
//		return reply(errors.UserMessage(err))
//	}
package errors

import (
	"errors"
	"fmt"
)

// Code classifies an error.
type Code string

// Bad input from a chat command or the CLI.
const (
	ErrCodeInvalidInput     Code = "INVALID_INPUT"
	ErrCodeInvalidName      Code = "INVALID_NAME"
	ErrCodeInvalidGroup     Code = "INVALID_GROUP"
	ErrCodeInvalidDirection Code = "INVALID_DIRECTION"
	ErrCodeInvalidLanguage  Code = "INVALID_LANGUAGE"
	ErrCodeInvalidFeature   Code = "INVALID_FEATURE"
)

// Stored records.
const (
	ErrCodeNotFound      Code = "NOT_FOUND"
	ErrCodeMemberMissing Code = "MEMBER_NOT_FOUND"
	ErrCodeQuoteMissing  Code = "QUOTE_NOT_FOUND"
	ErrCodeFileNotFound  Code = "FILE_NOT_FOUND"
	ErrCodeAlreadyExists Code = "ALREADY_EXISTS"
	ErrCodeConflict      Code = "CONFLICT"
)

// Image decoding and encoding.
const (
	ErrCodeDecode         Code = "DECODE_FAILED"
	ErrCodeEncode         Code = "ENCODE_FAILED"
	ErrCodeEmptyAnimation Code = "EMPTY_ANIMATION"
)

// Upstream services: OneBot, translation, WolframAlpha, chat models.
const (
	ErrCodeNetwork       Code = "NETWORK_ERROR"
	ErrCodeTimeout       Code = "TIMEOUT"
	ErrCodeRateLimited   Code = "RATE_LIMITED"
	ErrCodeNotConfigured Code = "NOT_CONFIGURED"
	ErrCodeUpstream      Code = "UPSTREAM_ERROR"
)

const (
	ErrCodeForbidden   Code = "FORBIDDEN"
	ErrCodeInternal    Code = "INTERNAL_ERROR"
	ErrCodeUnsupported Code = "UNSUPPORTED"
)

// Error is a coded error. Message is shown to users; Cause is only logged.
type Error struct {
	Code    Code
	Message string
	Cause   error
}

func (e *Error) Error() string {
	s := string(e.Code) + ": " + e.Message
	if e.Cause != nil {
		s += ": " + e.Cause.Error()
	}
	return s
}

func (e *Error) Unwrap() error { return e.Cause }

// New returns an error with code and a formatted message.
func New(code Code, format string, args ...any) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...)}
}

// Wrap is [New] with an underlying cause.
func Wrap(code Code, cause error, format string, args ...any) *Error {
	e := New(code, format, args...)
	e.Cause = cause
	return e
}

// Is reports whether the outermost [*Error] in err's chain has code.
func Is(err error, code Code) bool {
	return GetCode(err) == code && code != ""
}

// GetCode returns the code of the outermost [*Error] in err's chain, or ""
// when there is none.
func GetCode(err error) Code {
	if e, ok := asError(err); ok {
		return e.Code
	}
	return ""
}

// UserMessage returns the message of the outermost [*Error], without code
// or cause. Other errors are returned verbatim.
func UserMessage(err error) string {
	if e, ok := asError(err); ok {
		return e.Message
	}
	return err.Error()
}

func asError(err error) (*Error, bool) {
	var e *Error
	ok := errors.As(err, &e)
	return e, ok
}
