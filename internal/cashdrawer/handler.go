package cashdrawer

import (
	"fmt"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"

	"github.com/ringmotos/ringpos/internal/platform/httpx"
	"github.com/ringmotos/ringpos/internal/shared"
)

// Handler exposes the drawer of the caller's terminal.
type Handler struct {
	logger    *slog.Logger
	service   *Service
	validator *validator.Validate
}

// NewHandler constructs a Handler.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{logger: logger, service: service, validator: validator.New()}
}

// MountRoutes registers cash routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/", h.current)
	r.Post("/open", h.open)
	r.Post("/close", h.close)
	r.Get("/movements", h.listMovements)
	r.Post("/movements", h.recordMovement)
	r.Get("/server-movements", h.serverMovements)
}

type openRequest struct {
	Amount decimal.Decimal `json:"amount"`
	Name   string          `json:"name" validate:"max=80"`
}

func (h *Handler) current(w http.ResponseWriter, r *http.Request) {
	reg, err := h.service.Current(r.Context(), shared.TerminalFromContext(r.Context()))
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, reg)
}

func (h *Handler) open(w http.ResponseWriter, r *http.Request) {
	var req openRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.RespondError(w, err)
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.RespondError(w, fmt.Errorf("%w: %v", httpx.ErrValidation, err))
		return
	}
	reg, err := h.service.Open(r.Context(), shared.TerminalFromContext(r.Context()), req.Amount, req.Name)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, reg)
}

func (h *Handler) close(w http.ResponseWriter, r *http.Request) {
	summary, err := h.service.Close(r.Context(), shared.TerminalFromContext(r.Context()))
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, summary)
}

func (h *Handler) listMovements(w http.ResponseWriter, r *http.Request) {
	reg, err := h.service.Current(r.Context(), shared.TerminalFromContext(r.Context()))
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	movements, err := h.service.Movements(r.Context(), reg.ID)
	if err != nil {
		h.logger.Error("list movements", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, Summarize(*reg, movements))
}

func (h *Handler) recordMovement(w http.ResponseWriter, r *http.Request) {
	var req MovementInput
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.RespondError(w, err)
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.RespondError(w, fmt.Errorf("%w: %v", httpx.ErrValidation, err))
		return
	}
	mv, err := h.service.RecordMovement(r.Context(), shared.TerminalFromContext(r.Context()), req)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, mv)
}

func (h *Handler) serverMovements(w http.ResponseWriter, r *http.Request) {
	out, err := h.service.ServerMovements(r.Context())
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, out)
}
