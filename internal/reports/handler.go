package reports

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/ringmotos/ringpos/internal/platform/httpx"
)

// Handler exposes reports under /reports.
type Handler struct {
	logger  *slog.Logger
	service *Service
	now     func() time.Time
}

// NewHandler constructs a Handler.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{logger: logger, service: service, now: time.Now}
}

// MountRoutes registers report routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/sales/range", h.salesByRange)
	r.Get("/sales/by-client", h.salesByClient)
	r.Get("/sales/by-user", h.salesByUser)
	r.Get("/dashboard", h.dashboard)
	r.Post("/refresh", h.refresh)
}

func queryRange(r *http.Request) (Range, error) {
	q := r.URL.Query()
	return ParseRange(q.Get("from"), q.Get("to"))
}

func (h *Handler) salesByRange(w http.ResponseWriter, r *http.Request) {
	rng, err := queryRange(r)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	out, err := h.service.SalesByRange(r.Context(), rng)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, out)
}

func (h *Handler) salesByClient(w http.ResponseWriter, r *http.Request) {
	rng, err := queryRange(r)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	out, err := h.service.SalesByClient(r.Context(), rng)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, out)
}

func (h *Handler) salesByUser(w http.ResponseWriter, r *http.Request) {
	rng, err := queryRange(r)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	out, err := h.service.SalesByUser(r.Context(), rng)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, out)
}

func (h *Handler) dashboard(w http.ResponseWriter, r *http.Request) {
	rng, err := queryRange(r)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	if rng.Empty() {
		rng = CurrentMonth(h.now())
	}
	out, err := h.service.Dashboard(r.Context(), rng)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, out)
}

func (h *Handler) refresh(w http.ResponseWriter, r *http.Request) {
	if err := h.service.Invalidate(r.Context()); err != nil {
		h.logger.Error("reports cache bump failed", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.NoContent(w)
}
