package pos

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/shopspring/decimal"

	"github.com/ringmotos/ringpos/internal/identity"
	"github.com/ringmotos/ringpos/internal/platform/httpx"
)

// PrintNotifier forwards remito print events without blocking the sale flow.
type PrintNotifier interface {
	NotifyPrinted(ctx context.Context, remitoID string) error
}

// Recorder counts operation outcomes.
type Recorder interface {
	CountOperation(op, outcome string)
}

// ErrNoActor is returned when a payment has no resolvable cashier.
var ErrNoActor = fmt.Errorf("%w: %w", identity.ErrNoIdentity, httpx.ErrUnauthorized)

// Manager owns one active sale. It is not a singleton: each terminal tab gets
// its own Manager, restored from and saved to a Store between requests.
type Manager struct {
	gateway  Gateway
	notifier PrintNotifier
	logger   *slog.Logger
	metrics  Recorder

	mu   sync.Mutex
	sale *Sale
	busy atomic.Bool
}

// NewManager constructs a Manager with no active sale.
func NewManager(gateway Gateway, notifier PrintNotifier, logger *slog.Logger, metrics Recorder) *Manager {
	if logger == nil {
		logger = slog.Default()
	}
	return &Manager{gateway: gateway, notifier: notifier, logger: logger, metrics: metrics}
}

// Sale returns a copy of the active sale, nil when there is none.
func (m *Manager) Sale() *Sale {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.sale.Clone()
}

// Busy reports whether a mutating call is in flight.
func (m *Manager) Busy() bool {
	return m.busy.Load()
}

// Snapshot is the persisted form of the manager state.
func (m *Manager) Snapshot() *Sale {
	return m.Sale()
}

// Restore replaces the state with a previously saved snapshot.
func (m *Manager) Restore(sale *Sale) {
	m.set(sale.Clone())
}

// ResetSale forgets the active sale locally.
func (m *Manager) ResetSale() {
	m.set(nil)
}

func (m *Manager) set(sale *Sale) {
	m.mu.Lock()
	m.sale = sale
	m.mu.Unlock()
}

func (m *Manager) begin() error {
	if !m.busy.CompareAndSwap(false, true) {
		return ErrBusy
	}
	return nil
}

func (m *Manager) end() {
	m.busy.Store(false)
}

func (m *Manager) count(op string, err error) {
	if m.metrics == nil {
		return
	}
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	m.metrics.CountOperation(op, outcome)
}

// open returns a copy of the active sale, failing when there is none or it is closed.
func (m *Manager) open() (*Sale, error) {
	sale := m.Sale()
	if sale == nil {
		return nil, ErrNoActiveSale
	}
	if sale.Status.Closed() {
		return nil, ErrSaleClosed
	}
	return sale, nil
}

// CreateSale opens a new draft. On failure the previous state is kept.
func (m *Manager) CreateSale(ctx context.Context, clientID *string) (err error) {
	if err := m.begin(); err != nil {
		return err
	}
	defer m.end()
	defer func() { m.count("create", err) }()

	sale, err := m.gateway.CreateSale(ctx, clientID)
	if err != nil {
		m.logger.Warn("create sale", slog.Any("error", err))
		return err
	}
	if sale.Status == "" {
		sale.Status = StatusDraft
	}
	m.set(sale)
	return nil
}

// AddItem posts a line and folds the server answer into the local sale.
func (m *Manager) AddItem(ctx context.Context, in AddItemInput) (err error) {
	if err := in.Validate(); err != nil {
		return err
	}
	if err := m.begin(); err != nil {
		return err
	}
	defer m.end()
	defer func() { m.count("add_item", err) }()

	current, err := m.open()
	if err != nil {
		return err
	}
	res, err := m.gateway.AddItem(ctx, current.ID, in)
	if err != nil {
		m.logger.Warn("add item", slog.String("sale_id", current.ID), slog.Any("error", err))
		return err
	}
	if res.Sale != nil {
		m.set(res.Sale)
		return nil
	}

	item := *res.Item
	if item.Description == "" {
		item.Description = in.Description
	}
	if item.Qty.IsZero() {
		item.Qty = in.Qty
	}
	if item.UnitPrice.IsZero() {
		item.UnitPrice = in.UnitPrice
	}
	item.Total = item.LineTotal()

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.sale == nil || m.sale.ID != current.ID {
		return nil
	}
	m.sale.Items = append(m.sale.Items, item)
	m.sale.Subtotal = m.sale.Subtotal.Add(item.Total)
	m.sale.Total = m.sale.Total.Add(item.Total)
	m.sale.Balance = m.sale.Balance.Add(item.Total)
	return nil
}

// RemoveItem drops a line optimistically and rolls back if the upstream refuses.
func (m *Manager) RemoveItem(ctx context.Context, itemID string) (err error) {
	if err := m.begin(); err != nil {
		return err
	}
	defer m.end()
	defer func() { m.count("remove_item", err) }()

	snapshot, err := m.open()
	if err != nil {
		return err
	}
	idx := snapshot.indexOf(itemID)
	if idx < 0 {
		return ErrItemNotFound
	}

	optimistic := snapshot.Clone()
	removed := optimistic.Items[idx]
	optimistic.Items = append(optimistic.Items[:idx], optimistic.Items[idx+1:]...)
	optimistic.Subtotal = optimistic.Subtotal.Sub(removed.LineTotal())
	optimistic.Total = optimistic.Total.Sub(removed.LineTotal())
	optimistic.Balance = optimistic.Balance.Sub(removed.LineTotal())
	m.set(optimistic)

	updated, err := m.gateway.RemoveItem(ctx, snapshot.ID, itemID)
	if err != nil {
		m.set(snapshot)
		m.logger.Warn("remove item, restored snapshot", slog.String("sale_id", snapshot.ID), slog.String("item_id", itemID), slog.Any("error", err))
		return err
	}
	if updated != nil {
		m.set(updated)
		return nil
	}
	fresh, ferr := m.gateway.FetchSale(ctx, snapshot.ID)
	if ferr != nil {
		m.logger.Warn("refetch after remove", slog.String("sale_id", snapshot.ID), slog.Any("error", ferr))
		return nil
	}
	m.set(fresh)
	return nil
}

// SetClient changes the payer of the active sale. nil means final consumer.
func (m *Manager) SetClient(ctx context.Context, clientID *string) (err error) {
	if err := m.begin(); err != nil {
		return err
	}
	defer m.end()
	defer func() { m.count("set_client", err) }()

	current, err := m.open()
	if err != nil {
		return err
	}
	sale, err := m.gateway.UpdateClient(ctx, current.ID, clientID)
	if err != nil {
		return err
	}
	m.set(sale)
	return nil
}

// RegisterPayment applies amount to the sale on behalf of actor. A zero amount
// closes the sale into the client's running account.
func (m *Manager) RegisterPayment(ctx context.Context, amount decimal.Decimal, method PaymentMethod, actor string) (err error) {
	if amount.IsNegative() {
		return ValidationError("el monto no puede ser negativo")
	}
	if amount.IsPositive() && !method.Valid() {
		return ValidationError("medio de pago inválido")
	}
	if actor == "" {
		return ErrNoActor
	}
	if err := m.begin(); err != nil {
		return err
	}
	defer m.end()
	defer func() { m.count("payment", err) }()

	current, err := m.open()
	if err != nil {
		return err
	}
	if amount.GreaterThan(current.Balance) {
		return ErrPaymentExceedsBalance
	}

	sale, err := m.gateway.RegisterPayment(ctx, PaymentRequest{
		SaleID:     current.ID,
		Amount:     amount,
		Method:     method,
		ReceivedBy: actor,
	})
	if err != nil {
		m.logger.Warn("register payment", slog.String("sale_id", current.ID), slog.Any("error", err))
		return err
	}
	if sale == nil {
		if sale, err = m.gateway.FetchSale(ctx, current.ID); err != nil {
			return err
		}
	}
	m.set(sale)
	return nil
}

// CancelSale discards the sale. Locally it always succeeds; an upstream
// failure is logged and counted only.
func (m *Manager) CancelSale(ctx context.Context) error {
	if err := m.begin(); err != nil {
		return err
	}
	defer m.end()

	current, err := m.open()
	if err != nil {
		return err
	}
	err = m.gateway.Cancel(ctx, current.ID)
	m.set(nil)
	if err != nil {
		m.logger.Warn("cancel sale upstream failed, cleared locally", slog.String("sale_id", current.ID), slog.Any("error", err))
		if m.metrics != nil {
			m.metrics.CountOperation("cancel", "upstream_failed")
		}
		return nil
	}
	m.count("cancel", nil)
	return nil
}

// ConfirmSale closes the draft as confirmed. Empty sales are refused locally.
func (m *Manager) ConfirmSale(ctx context.Context) (err error) {
	if err := m.begin(); err != nil {
		return err
	}
	defer m.end()
	defer func() { m.count("confirm", err) }()

	current, err := m.open()
	if err != nil {
		return err
	}
	if len(current.Items) == 0 {
		return ErrNoItems
	}
	return m.confirm(ctx, current)
}

func (m *Manager) confirm(ctx context.Context, current *Sale) error {
	sale, err := m.gateway.Confirm(ctx, current.ID)
	if err != nil {
		return err
	}
	if sale == nil {
		sale = current.Clone()
	}
	if !sale.Status.Closed() {
		sale.Status = StatusConfirmed
	}
	m.set(sale)
	return nil
}

// CreateRemito issues the delivery note for a confirmed sale.
func (m *Manager) CreateRemito(ctx context.Context) (err error) {
	if err := m.begin(); err != nil {
		return err
	}
	defer m.end()
	defer func() { m.count("remito", err) }()

	current := m.Sale()
	if current == nil {
		return ErrNoActiveSale
	}
	if current.Status != StatusConfirmed {
		return ErrNotConfirmed
	}
	return m.remito(ctx, current)
}

func (m *Manager) remito(ctx context.Context, current *Sale) error {
	remitoID, err := m.gateway.CreateRemito(ctx, current.ID)
	if err != nil {
		return err
	}
	m.mu.Lock()
	if m.sale != nil && m.sale.ID == current.ID {
		m.sale.RemitoID = remitoID
	}
	m.mu.Unlock()
	return nil
}

// FinalizeAndRemit confirms, issues the remito and reloads the sale. A
// confirmed sale without remito resumes at the remito step. Failures are
// reported as *StepError; nothing is rolled back.
func (m *Manager) FinalizeAndRemit(ctx context.Context) (err error) {
	if err := m.begin(); err != nil {
		return err
	}
	defer m.end()
	defer func() { m.count("finalize", err) }()

	current := m.Sale()
	if current == nil {
		return ErrNoActiveSale
	}
	if current.Status == StatusCancelled {
		return ErrSaleClosed
	}
	if len(current.Items) == 0 {
		return ErrNoItems
	}

	if current.Status != StatusConfirmed {
		if err := m.confirm(ctx, current); err != nil {
			return m.stepFailed(StepConfirm, current.ID, err)
		}
	}
	if current.RemitoID == "" {
		if err := m.remito(ctx, current); err != nil {
			return m.stepFailed(StepRemito, current.ID, err)
		}
	}

	fresh, err := m.gateway.FetchSale(ctx, current.ID)
	if err != nil {
		return m.stepFailed(StepRefetch, current.ID, err)
	}
	m.mu.Lock()
	if m.sale != nil && fresh.RemitoID == "" {
		fresh.RemitoID = m.sale.RemitoID
	}
	m.sale = fresh
	m.mu.Unlock()
	return nil
}

func (m *Manager) stepFailed(step Step, saleID string, err error) error {
	m.logger.Error("finalize sale", slog.String("step", string(step)), slog.String("sale_id", saleID), slog.Any("error", err))
	return &StepError{Step: step, Err: err}
}

// MarkRemitoAsPrinted reports a print event. An empty id uses the active
// sale's remito. Delivery errors are logged, not returned.
func (m *Manager) MarkRemitoAsPrinted(ctx context.Context, remitoID string) error {
	if remitoID == "" {
		if sale := m.Sale(); sale != nil {
			remitoID = sale.RemitoID
		}
	}
	if remitoID == "" {
		return ErrNoRemito
	}
	if m.notifier == nil {
		return nil
	}
	if err := m.notifier.NotifyPrinted(ctx, remitoID); err != nil {
		m.logger.Warn("mark remito printed", slog.String("remito_id", remitoID), slog.Any("error", err))
	}
	return nil
}

// IsStep reports whether err is a StepError for step.
func IsStep(err error, step Step) bool {
	var se *StepError
	return errors.As(err, &se) && se.Step == step
}
