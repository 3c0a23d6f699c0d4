package auth

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/ringmotos/ringpos/internal/identity"
	"github.com/ringmotos/ringpos/internal/platform/httpx"
	"github.com/ringmotos/ringpos/internal/shared"
)

// Handler wires HTTP endpoints for authentication flows.
type Handler struct {
	logger         *slog.Logger
	service        *Service
	sessionManager *shared.SessionManager
	csrfManager    *shared.CSRFManager
}

// NewHandler constructs a Handler instance.
func NewHandler(logger *slog.Logger, service *Service, sessions *shared.SessionManager, csrf *shared.CSRFManager) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{
		logger:         logger,
		service:        service,
		sessionManager: sessions,
		csrfManager:    csrf,
	}
}

// MountRoutes registers auth routes on provided router.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/csrf", h.csrf)
	r.Post("/login", h.handleLogin)
	r.Post("/logout", h.handleLogout)
	r.Post("/register", h.handleRegister)
	r.With(RequireToken).Get("/me", h.me)
}

func (h *Handler) csrf(w http.ResponseWriter, r *http.Request) {
	token, err := h.csrfManager.EnsureToken(r.Context(), shared.SessionFromContext(r.Context()))
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]string{"csrfToken": token})
}

func (h *Handler) handleLogin(w http.ResponseWriter, r *http.Request) {
	sess := shared.SessionFromContext(r.Context())
	if sess == nil {
		h.logger.Error("session missing during login")
		httpx.RespondError(w, shared.ErrNotAuthenticated)
		return
	}
	var in LoginInput
	if err := httpx.DecodeJSON(r, &in); err != nil {
		httpx.RespondError(w, err)
		return
	}
	token, user, err := h.service.Login(r.Context(), in)
	if err != nil {
		h.logger.Info("login rejected", slog.String("email", in.Email), slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	sess.SetToken(token)
	sess.SetUser(user.ID)
	csrfToken, err := h.csrfManager.Rotate(r.Context(), sess)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	h.logger.Info("login", slog.String("user_id", user.ID))
	httpx.JSON(w, http.StatusOK, Session{User: user, CSRFToken: csrfToken})
}

func (h *Handler) handleLogout(w http.ResponseWriter, r *http.Request) {
	if sess := shared.SessionFromContext(r.Context()); sess != nil {
		h.sessionManager.Destroy(sess)
	}
	httpx.NoContent(w)
}

func (h *Handler) handleRegister(w http.ResponseWriter, r *http.Request) {
	var in RegisterInput
	if err := httpx.DecodeJSON(r, &in); err != nil {
		httpx.RespondError(w, err)
		return
	}
	if err := h.service.Register(r.Context(), in); err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, map[string]string{"message": "Usuario registrado, ya podés ingresar."})
}

func (h *Handler) me(w http.ResponseWriter, r *http.Request) {
	user, err := identity.FromToken(shared.SessionFromContext(r.Context()).Token())
	if err != nil {
		httpx.RespondError(w, httpx.ErrUnauthorized)
		return
	}
	httpx.JSON(w, http.StatusOK, user)
}
