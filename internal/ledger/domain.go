// Package ledger reads a client's running account and records debt payments.
package ledger

import (
	"encoding/json"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/ringmotos/ringpos/internal/platform/httpx"
)

// EntryType classifies a ledger line.
type EntryType string

const (
	EntryCharge     EntryType = "CHARGE"
	EntryPayment    EntryType = "PAYMENT"
	EntryAdjustment EntryType = "ADJUSTMENT"
)

// UnmarshalJSON maps DEBIT to CHARGE.
func (t *EntryType) UnmarshalJSON(data []byte) error {
	var raw string
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	raw = strings.ToUpper(strings.TrimSpace(raw))
	if raw == "DEBIT" {
		raw = string(EntryCharge)
	}
	*t = EntryType(raw)
	return nil
}

// EntryLabel is the Spanish label for an entry type.
func EntryLabel(t EntryType) string {
	switch t {
	case EntryCharge:
		return "Cargo (Venta)"
	case EntryPayment:
		return "Pago"
	case EntryAdjustment:
		return "Ajuste"
	}
	return string(t)
}

// EntrySale is the sale a charge originated from.
type EntrySale struct {
	ID          string          `json:"id"`
	Status      string          `json:"status"`
	TotalAmount decimal.Decimal `json:"totalAmount"`
	PaidAmount  decimal.Decimal `json:"paidAmount"`
	CreatedAt   time.Time       `json:"createdAt"`
	ConfirmedAt *time.Time      `json:"confirmedAt"`
	PrintedAt   *time.Time      `json:"printedAt"`
}

// Pending is what is still owed on the sale.
func (s EntrySale) Pending() decimal.Decimal {
	return s.TotalAmount.Sub(s.PaidAmount)
}

// Entry is one ledger line.
type Entry struct {
	ID           string          `json:"id"`
	Type         EntryType       `json:"type"`
	Label        string          `json:"label"`
	Amount       decimal.Decimal `json:"amount"`
	BalanceAfter decimal.Decimal `json:"balanceAfter"`
	Description  string          `json:"description"`
	CreatedAt    time.Time       `json:"createdAt"`
	Status       string          `json:"status"`
	Sale         *EntrySale      `json:"sale"`
}

// Summary aggregates a month of entries.
type Summary struct {
	Charges     decimal.Decimal `json:"charges"`
	Payments    decimal.Decimal `json:"payments"`
	Adjustments decimal.Decimal `json:"adjustments"`
	LastBalance decimal.Decimal `json:"lastBalance"`
}

// DebtPayment is a payment against a client's running account.
type DebtPayment struct {
	ClientID    string          `json:"-" validate:"required"`
	Amount      decimal.Decimal `json:"amount"`
	Method      string          `json:"method" validate:"required,oneof=CASH TRANSFER CARD"`
	Description string          `json:"description" validate:"max=200"`
}

// Allocation assigns part of a payment to one sale.
type Allocation struct {
	SaleID string          `json:"saleId"`
	Amount decimal.Decimal `json:"amount"`
}

var (
	ErrInvalidAmount error = &ledgerError{"el monto debe ser mayor a cero", httpx.ErrValidation}
	ErrOverpayment   error = &ledgerError{"el monto supera la deuda pendiente", httpx.ErrValidation}
	ErrNoPendingSale error = &ledgerError{"no se encontró una venta pendiente para confirmar", httpx.ErrConflict}
)

type ledgerError struct {
	msg  string
	kind error
}

func (e *ledgerError) Error() string { return e.msg }

func (e *ledgerError) Unwrap() error { return e.kind }
