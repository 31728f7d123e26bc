package errors

import (
	"fmt"
	"net/http"
)

// AppError es la estructura estándar de error HTTP de la aplicación.
type AppError struct {
	Code       string `json:"code"`
	Message    string `json:"message"`
	Detail     string `json:"detail,omitempty"`
	HTTPStatus int    `json:"-"`
	Err        error  `json:"-"` // causa original, solo para logs
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

func (e *AppError) Unwrap() error { return e.Err }

// FromError convierte un error genérico en AppError; si no lo es, lo envuelve
// como error interno conservando la causa.
func FromError(err error) *AppError {
	if appErr, ok := err.(*AppError); ok {
		return appErr
	}
	return ErrInternalServerError.WithCause(err)
}

// WithDetail retorna una copia con detalle adicional (no muta los globales).
func (e *AppError) WithDetail(detail string) *AppError {
	out := *e
	out.Detail = detail
	return &out
}

// WithCause retorna una copia con la causa original.
func (e *AppError) WithCause(err error) *AppError {
	out := *e
	out.Err = err
	return &out
}

// Errores predefinidos.

var (
	ErrBadRequest = &AppError{
		Code:       "BAD_REQUEST",
		Message:    "The request is missing parameters or is malformed.",
		HTTPStatus: http.StatusBadRequest,
	}

	ErrUnauthorized = &AppError{
		Code:       "UNAUTHORIZED",
		Message:    "Authentication is required.",
		HTTPStatus: http.StatusUnauthorized,
	}

	ErrMethodNotAllowed = &AppError{
		Code:       "METHOD_NOT_ALLOWED",
		Message:    "The HTTP method is not allowed for this resource.",
		HTTPStatus: http.StatusMethodNotAllowed,
	}

	ErrNotFound = &AppError{
		Code:       "NOT_FOUND",
		Message:    "The requested resource was not found.",
		HTTPStatus: http.StatusNotFound,
	}

	ErrWorkspaceNotFound = &AppError{
		Code:       "WORKSPACE_NOT_FOUND",
		Message:    "No workspace exists with that name.",
		HTTPStatus: http.StatusNotFound,
	}

	// Login state inválido/expirado/reusado: accionable por el usuario.
	ErrLoginStateInvalid = &AppError{
		Code:       "LOGIN_STATE_INVALID",
		Message:    "The sign-in attempt is no longer valid. Please try signing in again.",
		HTTPStatus: http.StatusBadRequest,
	}

	ErrWorkspaceMismatch = &AppError{
		Code:       "WORKSPACE_MISMATCH",
		Message:    "You signed in through a different Slack workspace than this one is connected to.",
		HTTPStatus: http.StatusForbidden,
	}

	ErrIdentityInUse = &AppError{
		Code:       "IDENTITY_IN_USE",
		Message:    "This account already belongs to another workspace. Contact your administrator to move it.",
		HTTPStatus: http.StatusConflict,
	}

	ErrConflict = &AppError{
		Code:       "CONFLICT",
		Message:    "The request conflicts with the current state of the server.",
		HTTPStatus: http.StatusConflict,
	}

	ErrInternalServerError = &AppError{
		Code:       "INTERNAL_SERVER_ERROR",
		Message:    "Something went wrong on our side. Please try again.",
		HTTPStatus: http.StatusInternalServerError,
	}

	ErrServiceUnavailable = &AppError{
		Code:       "SERVICE_UNAVAILABLE",
		Message:    "The service is temporarily unavailable. Please try again.",
		HTTPStatus: http.StatusServiceUnavailable,
	}
)
