package pos

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"

	"github.com/ringmotos/ringpos/internal/apiclient"
	"github.com/ringmotos/ringpos/internal/identity"
	"github.com/ringmotos/ringpos/internal/platform/httpx"
	"github.com/ringmotos/ringpos/internal/shared"
)

// ClientNamer resolves a client id to the name printed on tickets.
type ClientNamer interface {
	DisplayName(ctx context.Context, clientID string) (string, error)
}

// Handler exposes the active sale of the caller's terminal as JSON.
type Handler struct {
	logger    *slog.Logger
	store     *Store
	gateway   Gateway
	notifier  PrintNotifier
	clients   ClientNamer
	metrics   Recorder
	business  string
	validator *validator.Validate
}

// NewHandler builds the POS handler.
func NewHandler(logger *slog.Logger, store *Store, gateway Gateway, notifier PrintNotifier, clients ClientNamer, metrics Recorder, business string) *Handler {
	return &Handler{
		logger:    logger,
		store:     store,
		gateway:   gateway,
		notifier:  notifier,
		clients:   clients,
		metrics:   metrics,
		business:  business,
		validator: validator.New(),
	}
}

// MountRoutes registers POS routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/", h.current)
	r.Post("/sales", h.createSale)
	r.Post("/items", h.addItem)
	r.Delete("/items/{itemID}", h.removeItem)
	r.Put("/client", h.setClient)
	r.Post("/payments", h.registerPayment)
	r.Post("/confirm", h.confirm)
	r.Post("/finalize", h.finalize)
	r.Post("/cancel", h.cancel)
	r.Post("/reset", h.reset)
	r.Post("/remito", h.createRemito)
	r.Post("/remito/printed", h.remitoPrinted)
	r.Get("/ticket.pdf", h.ticket)
}

type saleResponse struct {
	Sale           *Sale `json:"sale"`
	ReadyToConfirm bool  `json:"readyToConfirm"`
}

type createSaleRequest struct {
	ClientID *string `json:"clientId"`
}

type addItemRequest struct {
	ProductID   *string         `json:"productId"`
	Qty         decimal.Decimal `json:"qty"`
	UnitPrice   decimal.Decimal `json:"unitPrice"`
	Description string          `json:"description" validate:"required"`
}

type setClientRequest struct {
	ClientID *string `json:"clientId"`
}

// paymentRequest requires an explicit amount; 0 is the deliberate
// send-to-running-account action.
type paymentRequest struct {
	Amount *decimal.Decimal `json:"amount" validate:"required"`
	Method PaymentMethod   `json:"method" validate:"omitempty,oneof=CASH TRANSFER CARD"`
}

type printedRequest struct {
	RemitoID string `json:"remitoId"`
}

const saveTimeout = 3 * time.Second

// run loads the terminal's sale, applies fn and, for mutations, saves the
// result under the per-terminal lock.
func (h *Handler) run(w http.ResponseWriter, r *http.Request, mutate bool, fn func(ctx context.Context, m *Manager) error) {
	ctx := r.Context()
	sess := shared.SessionFromContext(ctx)
	if sess == nil {
		httpx.RespondError(w, httpx.ErrUnauthorized)
		return
	}
	terminal := shared.TerminalFromContext(ctx)

	if mutate {
		unlock, err := h.store.Lock(ctx, sess.ID, terminal)
		if err != nil {
			httpx.RespondError(w, err)
			return
		}
		defer unlock()
	}

	saved, err := h.store.Load(ctx, sess.ID, terminal)
	if err != nil {
		h.logger.Error("load sale state", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	manager := NewManager(h.gateway, h.notifier, h.logger.With(slog.String("terminal", terminal)), h.metrics)
	manager.Restore(saved)

	opErr := fn(ctx, manager)

	if mutate {
		// The upstream already holds the change; persist it even if the request is gone.
		saveCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), saveTimeout)
		err := h.store.Save(saveCtx, sess.ID, terminal, manager.Snapshot())
		cancel()
		if err != nil {
			h.logger.Error("save sale state", slog.Any("error", err))
			if opErr == nil {
				opErr = err
			}
		}
	}
	if opErr != nil {
		h.respondError(w, opErr)
		return
	}
	sale := manager.Sale()
	httpx.JSON(w, http.StatusOK, saleResponse{Sale: sale, ReadyToConfirm: sale.ReadyToConfirm()})
}

func (h *Handler) respondError(w http.ResponseWriter, err error) {
	var stepErr *StepError
	if errors.As(err, &stepErr) {
		detail := fmt.Sprintf("Falló el paso %q: %s", stepErr.Step, apiclient.Message(stepErr.Err, httpx.GenericMessage))
		httpx.Problem(w, http.StatusBadGateway, "Bad Gateway", detail)
		return
	}
	httpx.RespondError(w, err)
}

func (h *Handler) decode(w http.ResponseWriter, r *http.Request, target any) bool {
	if err := httpx.DecodeJSON(r, target); err != nil {
		httpx.RespondError(w, err)
		return false
	}
	if err := h.validator.Struct(target); err != nil {
		httpx.RespondError(w, fmt.Errorf("%w: %v", httpx.ErrValidation, err))
		return false
	}
	return true
}

func (h *Handler) current(w http.ResponseWriter, r *http.Request) {
	h.run(w, r, false, func(context.Context, *Manager) error { return nil })
}

func (h *Handler) createSale(w http.ResponseWriter, r *http.Request) {
	var req createSaleRequest
	if r.ContentLength != 0 && !h.decode(w, r, &req) {
		return
	}
	h.run(w, r, true, func(ctx context.Context, m *Manager) error {
		return m.CreateSale(ctx, req.ClientID)
	})
}

func (h *Handler) addItem(w http.ResponseWriter, r *http.Request) {
	var req addItemRequest
	if !h.decode(w, r, &req) {
		return
	}
	h.run(w, r, true, func(ctx context.Context, m *Manager) error {
		return m.AddItem(ctx, AddItemInput(req))
	})
}

func (h *Handler) removeItem(w http.ResponseWriter, r *http.Request) {
	itemID := chi.URLParam(r, "itemID")
	h.run(w, r, true, func(ctx context.Context, m *Manager) error {
		return m.RemoveItem(ctx, itemID)
	})
}

func (h *Handler) setClient(w http.ResponseWriter, r *http.Request) {
	var req setClientRequest
	if !h.decode(w, r, &req) {
		return
	}
	h.run(w, r, true, func(ctx context.Context, m *Manager) error {
		return m.SetClient(ctx, req.ClientID)
	})
}

func (h *Handler) registerPayment(w http.ResponseWriter, r *http.Request) {
	var req paymentRequest
	if !h.decode(w, r, &req) {
		return
	}
	actor := ""
	if user, err := identity.FromToken(shared.SessionFromContext(r.Context()).Token()); err == nil {
		actor = user.ID
	}
	h.run(w, r, true, func(ctx context.Context, m *Manager) error {
		return m.RegisterPayment(ctx, *req.Amount, req.Method, actor)
	})
}

func (h *Handler) confirm(w http.ResponseWriter, r *http.Request) {
	h.run(w, r, true, func(ctx context.Context, m *Manager) error {
		return m.ConfirmSale(ctx)
	})
}

func (h *Handler) finalize(w http.ResponseWriter, r *http.Request) {
	h.run(w, r, true, func(ctx context.Context, m *Manager) error {
		return m.FinalizeAndRemit(ctx)
	})
}

func (h *Handler) cancel(w http.ResponseWriter, r *http.Request) {
	h.run(w, r, true, func(ctx context.Context, m *Manager) error {
		return m.CancelSale(ctx)
	})
}

func (h *Handler) reset(w http.ResponseWriter, r *http.Request) {
	h.run(w, r, true, func(_ context.Context, m *Manager) error {
		m.ResetSale()
		return nil
	})
}

func (h *Handler) createRemito(w http.ResponseWriter, r *http.Request) {
	h.run(w, r, true, func(ctx context.Context, m *Manager) error {
		return m.CreateRemito(ctx)
	})
}

func (h *Handler) remitoPrinted(w http.ResponseWriter, r *http.Request) {
	var req printedRequest
	if r.ContentLength != 0 && !h.decode(w, r, &req) {
		return
	}
	h.run(w, r, false, func(ctx context.Context, m *Manager) error {
		return m.MarkRemitoAsPrinted(ctx, req.RemitoID)
	})
}

func (h *Handler) ticket(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	sess := shared.SessionFromContext(ctx)
	if sess == nil {
		httpx.RespondError(w, httpx.ErrUnauthorized)
		return
	}
	sale, err := h.store.Load(ctx, sess.ID, shared.TerminalFromContext(ctx))
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	if sale == nil {
		httpx.RespondError(w, ErrNoActiveSale)
		return
	}

	data := TicketData{Business: h.business, Sale: sale}
	if sale.ClientID != nil && h.clients != nil {
		if name, err := h.clients.DisplayName(ctx, *sale.ClientID); err == nil {
			data.ClientName = name
		} else {
			h.logger.Warn("ticket client lookup", slog.Any("error", err))
		}
	}
	if user, err := identity.FromToken(sess.Token()); err == nil {
		data.Cashier = user.Email
	}
	pdf, err := RenderTicket(data)
	if err != nil {
		h.logger.Error("render ticket", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.PDF(w, "venta-"+sale.ID+".pdf", pdf)
}
