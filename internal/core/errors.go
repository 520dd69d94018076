// AngelaMos | 2026
// errors.go

package core

import (
	"errors"
	"fmt"
	"net/http"
)

var (
	ErrNotFound      = errors.New("resource not found")
	ErrDuplicateKey  = errors.New("duplicate key")
	ErrInvalidInput  = errors.New("invalid input")
	ErrInvalidState  = errors.New("invalid state transition")
	ErrQuotaExceeded = errors.New("quota exceeded")
	ErrUnauthorized  = errors.New("unauthorized")
	ErrForbidden     = errors.New("forbidden")
	ErrTokenExpired  = errors.New("token expired")
	ErrTokenRevoked  = errors.New("token revoked")
	ErrTokenInvalid  = errors.New("token invalid")
)

// ErrorKind classifies every error the core surfaces. The HTTP layer is the
// only place a kind is turned into a status code.
type ErrorKind string

const (
	KindInvalidInput    ErrorKind = "INVALID_INPUT"
	KindQuotaExceeded   ErrorKind = "QUOTA_EXCEEDED"
	KindNotFound        ErrorKind = "NOT_FOUND"
	KindInvalidState    ErrorKind = "INVALID_STATE"
	KindUnauthorized    ErrorKind = "UNAUTHORIZED"
	KindUnauthenticated ErrorKind = "UNAUTHENTICATED"
	KindConflict        ErrorKind = "CONFLICT"
	KindInfrastructure  ErrorKind = "INFRASTRUCTURE"
)

type AppError struct {
	Kind    ErrorKind
	Code    string
	Message string
	Details map[string]any
	Err     error
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *AppError) Unwrap() error {
	if e.Err != nil {
		return e.Err
	}
	return sentinelFor(e.Kind)
}

func (e *AppError) StatusCode() int {
	return HTTPStatus(e.Kind)
}

func (e *AppError) WithDetail(key string, value any) *AppError {
	if e.Details == nil {
		e.Details = make(map[string]any)
	}
	e.Details[key] = value
	return e
}

func NewAppError(kind ErrorKind, code, message string) *AppError {
	return &AppError{Kind: kind, Code: code, Message: message}
}

func IsAppError(err error) bool {
	var appErr *AppError
	return errors.As(err, &appErr)
}

func AsAppError(err error) (*AppError, bool) {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr, true
	}
	return nil, false
}

// KindOf reports the kind of err. Anything unrecognised is infrastructure.
func KindOf(err error) ErrorKind {
	if err == nil {
		return ""
	}
	if appErr, ok := AsAppError(err); ok {
		return appErr.Kind
	}

	switch {
	case errors.Is(err, ErrNotFound):
		return KindNotFound
	case errors.Is(err, ErrInvalidInput):
		return KindInvalidInput
	case errors.Is(err, ErrInvalidState):
		return KindInvalidState
	case errors.Is(err, ErrQuotaExceeded):
		return KindQuotaExceeded
	case errors.Is(err, ErrForbidden):
		return KindUnauthorized
	case errors.Is(err, ErrDuplicateKey):
		return KindConflict
	case errors.Is(err, ErrUnauthorized),
		errors.Is(err, ErrTokenExpired),
		errors.Is(err, ErrTokenRevoked),
		errors.Is(err, ErrTokenInvalid):
		return KindUnauthenticated
	}
	return KindInfrastructure
}

func HTTPStatus(kind ErrorKind) int {
	switch kind {
	case KindInvalidInput:
		return http.StatusBadRequest
	case KindUnauthenticated:
		return http.StatusUnauthorized
	case KindQuotaExceeded, KindUnauthorized:
		return http.StatusForbidden
	case KindNotFound:
		return http.StatusNotFound
	case KindInvalidState, KindConflict:
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

func sentinelFor(kind ErrorKind) error {
	switch kind {
	case KindInvalidInput:
		return ErrInvalidInput
	case KindQuotaExceeded:
		return ErrQuotaExceeded
	case KindNotFound:
		return ErrNotFound
	case KindInvalidState:
		return ErrInvalidState
	case KindUnauthorized:
		return ErrForbidden
	case KindUnauthenticated:
		return ErrUnauthorized
	case KindConflict:
		return ErrDuplicateKey
	}
	return nil
}

func InvalidInputError(message string) *AppError {
	return NewAppError(KindInvalidInput, "INVALID_INPUT", message)
}

func NotFoundError(resource string) *AppError {
	return NewAppError(KindNotFound, "NOT_FOUND", resource+" not found")
}

func QuotaExceededError(resource string, limit float64) *AppError {
	return NewAppError(
		KindQuotaExceeded,
		"QUOTA_EXCEEDED",
		fmt.Sprintf("monthly %s quota exhausted", resource),
	).WithDetail("resource", resource).WithDetail("limit", limit)
}

// InvalidStateError describes a rejected transition on a stateful entity.
func InvalidStateError(entity, current, attempted string) *AppError {
	return NewAppError(
		KindInvalidState,
		"INVALID_STATE",
		fmt.Sprintf("%s cannot move from %s to %s", entity, current, attempted),
	).WithDetail("current_status", current).WithDetail("attempted", attempted)
}

func UnauthorizedError(message string) *AppError {
	return NewAppError(KindUnauthenticated, "UNAUTHORIZED", message)
}

func ForbiddenError(message string) *AppError {
	return NewAppError(KindUnauthorized, "FORBIDDEN", message)
}

func AdminRequiredError() *AppError {
	return NewAppError(KindUnauthorized, "ADMIN_REQUIRED", "admin privileges required")
}

func TokenExpiredError() *AppError {
	return &AppError{
		Kind:    KindUnauthenticated,
		Code:    "TOKEN_EXPIRED",
		Message: "access token has expired",
		Err:     ErrTokenExpired,
	}
}

func TokenRevokedError() *AppError {
	return &AppError{
		Kind:    KindUnauthenticated,
		Code:    "TOKEN_REVOKED",
		Message: "access token has been revoked",
		Err:     ErrTokenRevoked,
	}
}

func TokenInvalidError() *AppError {
	return &AppError{
		Kind:    KindUnauthenticated,
		Code:    "TOKEN_INVALID",
		Message: "access token is invalid",
		Err:     ErrTokenInvalid,
	}
}

func InfrastructureError(op string, err error) *AppError {
	return &AppError{
		Kind:    KindInfrastructure,
		Code:    "INTERNAL_ERROR",
		Message: op,
		Err:     err,
	}
}
