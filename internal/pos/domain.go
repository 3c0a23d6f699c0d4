package pos

import (
	"encoding/json"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/ringmotos/ringpos/internal/platform/httpx"
)

// Status is the lifecycle state of a sale.
type Status string

const (
	StatusDraft     Status = "DRAFT"
	StatusConfirmed Status = "CONFIRMED"
	StatusCancelled Status = "CANCELLED"
)

// UnmarshalJSON accepts the older OPEN/PAID vocabulary.
func (s *Status) UnmarshalJSON(data []byte) error {
	var raw string
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	*s = NormalizeStatus(raw)
	return nil
}

// NormalizeStatus maps any known status spelling to the canonical set.
func NormalizeStatus(raw string) Status {
	switch strings.ToUpper(strings.TrimSpace(raw)) {
	case "", "OPEN", "DRAFT":
		return StatusDraft
	case "PAID", "CONFIRMED":
		return StatusConfirmed
	case "CANCELLED", "CANCELED":
		return StatusCancelled
	default:
		return Status(strings.ToUpper(raw))
	}
}

// Closed reports whether no further mutation is allowed.
func (s Status) Closed() bool {
	return s == StatusConfirmed || s == StatusCancelled
}

// PaymentMethod enumerates accepted tenders.
type PaymentMethod string

const (
	MethodCash     PaymentMethod = "CASH"
	MethodTransfer PaymentMethod = "TRANSFER"
	MethodCard     PaymentMethod = "CARD"
)

// Valid reports whether m is a known method.
func (m PaymentMethod) Valid() bool {
	switch m {
	case MethodCash, MethodTransfer, MethodCard:
		return true
	}
	return false
}

// Label returns the Spanish label shown on receipts.
func (m PaymentMethod) Label() string {
	switch m {
	case MethodCash:
		return "Efectivo"
	case MethodTransfer:
		return "Transferencia"
	case MethodCard:
		return "Tarjeta"
	}
	return string(m)
}

// SaleItem is one line of a sale.
type SaleItem struct {
	ID          string          `json:"id"`
	ProductID   *string         `json:"productId,omitempty"`
	Description string          `json:"description"`
	Qty         decimal.Decimal `json:"qty"`
	UnitPrice   decimal.Decimal `json:"unitPrice"`
	Total       decimal.Decimal `json:"total"`
}

// LineTotal returns Total, computing qty × unitPrice when the server omitted it.
func (i SaleItem) LineTotal() decimal.Decimal {
	if !i.Total.IsZero() {
		return i.Total
	}
	return i.Qty.Mul(i.UnitPrice)
}

// Payment is an amount applied to a sale.
type Payment struct {
	ID         string          `json:"id"`
	Amount     decimal.Decimal `json:"amount"`
	Method     PaymentMethod   `json:"method"`
	CreatedAt  time.Time       `json:"createdAt"`
	ReceivedBy string          `json:"receivedBy,omitempty"`
}

// Sale mirrors the upstream sale resource.
type Sale struct {
	ID       string          `json:"id"`
	Status   Status          `json:"status"`
	ClientID *string         `json:"clientId"`
	Items    []SaleItem      `json:"items"`
	Payments []Payment       `json:"payments"`
	Subtotal decimal.Decimal `json:"subtotal"`
	Total    decimal.Decimal `json:"total"`
	Balance  decimal.Decimal `json:"balance"`
	RemitoID string          `json:"remitoId,omitempty"`
}

// Paid sums all payments.
func (s *Sale) Paid() decimal.Decimal {
	paid := decimal.Zero
	for _, p := range s.Payments {
		paid = paid.Add(p.Amount)
	}
	return paid
}

// Recompute derives subtotal, total and balance from items and payments.
func (s *Sale) Recompute() {
	total := decimal.Zero
	for i := range s.Items {
		s.Items[i].Total = s.Items[i].LineTotal()
		total = total.Add(s.Items[i].Total)
	}
	s.Subtotal = total
	s.Total = total
	s.Balance = total.Sub(s.Paid())
}

// ReadyToConfirm is true for a draft with items and nothing left to pay.
func (s *Sale) ReadyToConfirm() bool {
	return s != nil && !s.Status.Closed() && len(s.Items) > 0 && !s.Balance.IsPositive()
}

func (s *Sale) indexOf(itemID string) int {
	for i, item := range s.Items {
		if item.ID == itemID {
			return i
		}
	}
	return -1
}

// Clone returns a deep copy.
func (s *Sale) Clone() *Sale {
	if s == nil {
		return nil
	}
	out := *s
	if s.ClientID != nil {
		id := *s.ClientID
		out.ClientID = &id
	}
	out.Items = append([]SaleItem(nil), s.Items...)
	out.Payments = append([]Payment(nil), s.Payments...)
	return &out
}

// AddItemInput is the request to add a line.
type AddItemInput struct {
	ProductID   *string         `json:"productId,omitempty"`
	Qty         decimal.Decimal `json:"qty"`
	UnitPrice   decimal.Decimal `json:"unitPrice"`
	Description string          `json:"description"`
}

// Validate enforces qty > 0, unitPrice > 0 and a description.
func (in AddItemInput) Validate() error {
	switch {
	case !in.Qty.IsPositive():
		return ValidationError("la cantidad debe ser mayor a cero")
	case !in.UnitPrice.IsPositive():
		return ValidationError("el precio unitario debe ser mayor a cero")
	case strings.TrimSpace(in.Description) == "":
		return ValidationError("la descripción es obligatoria")
	}
	return nil
}

var (
	ErrNoActiveSale          error = &stateError{"no hay una venta activa", httpx.ErrConflict}
	ErrSaleClosed            error = &stateError{"la venta ya está cerrada", httpx.ErrConflict}
	ErrItemNotFound          error = &stateError{"el ítem no pertenece a la venta", httpx.ErrNotFound}
	ErrNoItems               error = &stateError{"la venta no tiene ítems", httpx.ErrValidation}
	ErrPaymentExceedsBalance error = &stateError{"el monto supera el saldo pendiente", httpx.ErrValidation}
	ErrBusy                  error = &stateError{"hay otra operación en curso", httpx.ErrConflict}
	ErrNoRemito              error = &stateError{"la venta no tiene remito", httpx.ErrConflict}
	ErrNotConfirmed          error = &stateError{"la venta todavía no fue confirmada", httpx.ErrConflict}
)

type stateError struct {
	msg  string
	kind error
}

func (e *stateError) Error() string { return e.msg }

func (e *stateError) Unwrap() error { return e.kind }

// ValidationError is a local precondition failure with a user-facing message.
type ValidationError string

func (e ValidationError) Error() string { return string(e) }

// Unwrap lets httpx map it to 400.
func (e ValidationError) Unwrap() error { return httpx.ErrValidation }

// Step names the stage of a multi-step operation.
type Step string

const (
	StepConfirm Step = "confirm"
	StepRemito  Step = "remito"
	StepRefetch Step = "refetch"
)

// StepError reports which stage of FinalizeAndRemit failed.
type StepError struct {
	Step Step
	Err  error
}

func (e *StepError) Error() string {
	return "pos: finalize failed at " + string(e.Step) + ": " + e.Err.Error()
}

func (e *StepError) Unwrap() error { return e.Err }
