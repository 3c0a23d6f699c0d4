package shared

import (
	"errors"
	"fmt"

	"github.com/ringmotos/ringpos/internal/platform/httpx"
)

var (
	// ErrNotAuthenticated indicates the request carries no usable session.
	ErrNotAuthenticated = fmt.Errorf("not authenticated: %w", httpx.ErrUnauthorized)
	// ErrCSRFTokenMissing occurs when CSRF token missing.
	ErrCSRFTokenMissing = errors.New("csrf token missing")
	// ErrCSRFTokenMismatch occurs when CSRF tokens do not match.
	ErrCSRFTokenMismatch = errors.New("csrf token mismatch")
)
