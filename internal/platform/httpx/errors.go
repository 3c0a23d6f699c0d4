// Package httpx provides HTTP response utilities.
package httpx

import (
	"errors"
	"net/http"
)

// Sentinel errors for domain layer.
var (
	ErrNotFound     = errors.New("resource not found")
	ErrConflict     = errors.New("conflict")
	ErrValidation   = errors.New("validation failed")
	ErrForbidden    = errors.New("forbidden")
	ErrUnauthorized = errors.New("unauthorized")
	ErrBadGateway   = errors.New("upstream unavailable")
)

// GenericMessage is shown when no better detail is available.
const GenericMessage = "Ocurrió un error, intentá nuevamente."

// StatusError is implemented by errors that know their HTTP status, such as
// upstream API failures.
type StatusError interface {
	error
	HTTPStatus() int
	PublicMessage() string
}

// RespondError maps domain errors to HTTP responses using RFC7807.
func RespondError(w http.ResponseWriter, err error) {
	var se StatusError
	switch {
	case errors.Is(err, ErrUnauthorized):
		w.Header().Set("Location", "/auth/login")
		Problem(w, http.StatusUnauthorized, "Unauthorized", "La sesión expiró, volvé a ingresar.")
	case errors.As(err, &se):
		status := se.HTTPStatus()
		if status == http.StatusUnauthorized {
			w.Header().Set("Location", "/auth/login")
		}
		detail := se.PublicMessage()
		if detail == "" {
			detail = GenericMessage
		}
		Problem(w, status, http.StatusText(status), detail)
	case errors.Is(err, ErrNotFound):
		Problem(w, http.StatusNotFound, "Not Found", err.Error())
	case errors.Is(err, ErrConflict):
		Problem(w, http.StatusConflict, "Conflict", err.Error())
	case errors.Is(err, ErrValidation):
		Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
	case errors.Is(err, ErrForbidden):
		Problem(w, http.StatusForbidden, "Forbidden", err.Error())
	case errors.Is(err, ErrBadGateway):
		Problem(w, http.StatusBadGateway, "Bad Gateway", err.Error())
	default:
		Problem(w, http.StatusInternalServerError, "Internal Error", GenericMessage)
	}
}
