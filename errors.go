package auth

import "net/http"

// ErrorCode identifies one of the failure modes of the authentication
// subsystem. Every code maps to a single human-readable message and
// an HTTP status.
type ErrorCode int

// The failure modes surfaced by this package.
const (
	ErrCodeNoSuchUser ErrorCode = iota + 1
	ErrCodeDB
	ErrCodeInvalidInput
	ErrCodeIncorrectCredentials
	ErrCodeCannotSetCookie
	ErrCodePasswordComplexityUnmet
	ErrCodeCannotSendPassword
)

// Error is the error type returned by all authentication operations.
// It satisfies HTTPError, so errors that escape a handler are converted
// into a response by RecoverErrors rather than propagating further.
type Error struct {
	Code ErrorCode
}

func (e *Error) Error() string {
	switch e.Code {
	case ErrCodeNoSuchUser:
		return "no such user"
	case ErrCodeDB:
		return "a database error occurred"
	case ErrCodeInvalidInput:
		return "invalid input"
	case ErrCodeIncorrectCredentials:
		return "password was incorrect"
	case ErrCodeCannotSetCookie:
		return "could not set login cookie"
	case ErrCodePasswordComplexityUnmet:
		return "new password does not meet minimum complexity requirements"
	case ErrCodeCannotSendPassword:
		return "could not send password recovery message"
	}
	return "unknown error"
}

// StatusCode implements HTTPError.
func (e *Error) StatusCode() int {
	switch e.Code {
	case ErrCodeNoSuchUser:
		return http.StatusNotFound
	case ErrCodeInvalidInput, ErrCodePasswordComplexityUnmet:
		return http.StatusBadRequest
	case ErrCodeIncorrectCredentials, ErrCodeCannotSetCookie:
		return http.StatusUnauthorized
	}
	return http.StatusInternalServerError
}

// The errors returned by engine operations. Callers can compare directly;
// each value is a singleton.
var (
	ErrNoSuchUser              = &Error{ErrCodeNoSuchUser}
	ErrDB                      = &Error{ErrCodeDB}
	ErrInvalidInput            = &Error{ErrCodeInvalidInput}
	ErrIncorrectCredentials    = &Error{ErrCodeIncorrectCredentials}
	ErrCannotSetCookie         = &Error{ErrCodeCannotSetCookie}
	ErrPasswordComplexityUnmet = &Error{ErrCodePasswordComplexityUnmet}
	ErrCannotSendPassword      = &Error{ErrCodeCannotSendPassword}
)
