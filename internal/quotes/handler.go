package quotes

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/ringmotos/ringpos/internal/platform/httpx"
)

// Handler exposes quote building under /quotes.
type Handler struct {
	logger   *slog.Logger
	builder  *Builder
	renderer PDFRenderer
}

// NewHandler constructs a Handler.
func NewHandler(logger *slog.Logger, builder *Builder, renderer PDFRenderer) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{logger: logger, builder: builder, renderer: renderer}
}

// MountRoutes registers quote routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Post("/preview", h.preview)
	r.Post("/html", h.html)
	r.Post("/pdf", h.pdf)
}

func (h *Handler) build(w http.ResponseWriter, r *http.Request) (*Quote, bool) {
	var in Input
	if err := httpx.DecodeJSON(r, &in); err != nil {
		httpx.RespondError(w, err)
		return nil, false
	}
	q, err := h.builder.Build(r.Context(), in)
	if err != nil {
		httpx.RespondError(w, err)
		return nil, false
	}
	return q, true
}

func (h *Handler) preview(w http.ResponseWriter, r *http.Request) {
	q, ok := h.build(w, r)
	if !ok {
		return
	}
	httpx.JSON(w, http.StatusOK, q)
}

func (h *Handler) html(w http.ResponseWriter, r *http.Request) {
	q, ok := h.build(w, r)
	if !ok {
		return
	}
	page, err := RenderHTML(q)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(page))
}

func (h *Handler) pdf(w http.ResponseWriter, r *http.Request) {
	q, ok := h.build(w, r)
	if !ok {
		return
	}
	body, err := RenderPDF(r.Context(), h.renderer, q)
	if err != nil {
		h.logger.Error("quote pdf render failed", slog.String("number", q.Number), slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.PDF(w, "presupuesto-"+q.Number+".pdf", body)
}
