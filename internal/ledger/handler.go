package ledger

import (
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/ringmotos/ringpos/internal/platform/httpx"
)

// Handler exposes a client's ledger under /clients/{id}/ledger.
type Handler struct {
	logger  *slog.Logger
	service *Service
	now     func() time.Time
}

// NewHandler constructs a Handler.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{logger: logger, service: service, now: time.Now}
}

// MountRoutes registers ledger routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/history", h.history)
	r.Get("/summary", h.summary)
	r.Post("/payments", h.pay)
}

func (h *Handler) history(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	entries, err := h.service.History(r.Context(), chi.URLParam(r, "id"), q.Get("start"), q.Get("end"))
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, entries)
}

func (h *Handler) summary(w http.ResponseWriter, r *http.Request) {
	now := h.now()
	month, err := intParam(r, "month", int(now.Month()))
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	year, err := intParam(r, "year", now.Year())
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	out, err := h.service.Summary(r.Context(), chi.URLParam(r, "id"), month, year)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, out)
}

func (h *Handler) pay(w http.ResponseWriter, r *http.Request) {
	var in DebtPayment
	if err := httpx.DecodeJSON(r, &in); err != nil {
		httpx.RespondError(w, err)
		return
	}
	in.ClientID = chi.URLParam(r, "id")
	entries, err := h.service.PayDebt(r.Context(), in)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, entries)
}

func intParam(r *http.Request, name string, fallback int) (int, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return fallback, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("%w: %s must be a number", httpx.ErrValidation, name)
	}
	return v, nil
}
