package auth

import (
	"github.com/ringmotos/ringpos/internal/identity"
	"github.com/ringmotos/ringpos/internal/platform/httpx"
)

// LoginInput carries the credentials forwarded upstream.
type LoginInput struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// RegisterInput is the sign-up form.
type RegisterInput struct {
	FirstName string `json:"firstname" validate:"required,max=80"`
	LastName  string `json:"lastname" validate:"required,max=80"`
	Email     string `json:"email" validate:"required,email"`
	Password  string `json:"password" validate:"required,min=6"`
}

// Session is what login returns to the UI. The bearer token stays server side.
type Session struct {
	User      identity.User `json:"user"`
	CSRFToken string        `json:"csrfToken"`
}

// ErrInvalidCredentials is returned when the upstream rejects the login.
var ErrInvalidCredentials error = &authError{"email o contraseña inválidos", httpx.ErrValidation}

// ErrNoToken is returned when the upstream login response carries no token.
var ErrNoToken error = &authError{"el servidor no devolvió un token de acceso", httpx.ErrBadGateway}

type authError struct {
	msg  string
	kind error
}

func (e *authError) Error() string { return e.msg }

func (e *authError) Unwrap() error { return e.kind }
