package auth

import (
	"net/http"

	"github.com/ringmotos/ringpos/internal/platform/httpx"
	"github.com/ringmotos/ringpos/internal/shared"
)

// RequireToken rejects requests whose session holds no upstream token.
func RequireToken(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if shared.SessionFromContext(r.Context()).Token() == "" {
			httpx.RespondError(w, httpx.ErrUnauthorized)
			return
		}
		next.ServeHTTP(w, r)
	})
}
