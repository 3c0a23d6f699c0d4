// Package cashdrawer keeps the advisory cash-register session of a terminal.
// It is bookkeeping for the operator, not an accounting ledger: nothing here is
// reconciled against sale payments.
package cashdrawer

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/ringmotos/ringpos/internal/platform/httpx"
)

// Status of a register session.
type Status string

const (
	StatusOpen   Status = "OPEN"
	StatusClosed Status = "CLOSED"
)

// MovementType is the direction of a cash movement.
type MovementType string

const (
	MovementIn  MovementType = "IN"
	MovementOut MovementType = "OUT"
)

// DefaultReason is used when a movement carries no reason.
const DefaultReason = "Movimiento de caja"

// Label returns the Spanish column label.
func (t MovementType) Label() string {
	if t == MovementIn {
		return "INGRESO"
	}
	return "EGRESO"
}

// Register is one open/close session of a drawer.
type Register struct {
	ID            string          `json:"id"`
	Name          string          `json:"name,omitempty"`
	Terminal      string          `json:"terminal"`
	Status        Status          `json:"status"`
	OpeningAmount decimal.Decimal `json:"openingAmount"`
	OpenedAt      time.Time       `json:"openedAt"`
	ClosedAt      *time.Time      `json:"closedAt,omitempty"`
}

// Movement is a manual cash entry recorded against an open register.
type Movement struct {
	ID        string          `json:"id"`
	Type      MovementType    `json:"type"`
	Amount    decimal.Decimal `json:"amount"`
	Reason    string          `json:"reason"`
	CreatedAt time.Time       `json:"createdAt"`
}

// MovementInput is the request to record a movement.
type MovementInput struct {
	Type   MovementType    `json:"type" validate:"required,oneof=IN OUT"`
	Amount decimal.Decimal `json:"amount"`
	Reason string          `json:"reason" validate:"max=200"`
}

// CloseSummary is returned when a register is closed.
type CloseSummary struct {
	Register  Register        `json:"register"`
	Movements []Movement      `json:"movements"`
	In        decimal.Decimal `json:"in"`
	Out       decimal.Decimal `json:"out"`
	Expected  decimal.Decimal `json:"expected"`
}

// Summarize computes expected cash as opening + ins − outs.
func Summarize(reg Register, movements []Movement) CloseSummary {
	in, out := decimal.Zero, decimal.Zero
	for _, m := range movements {
		if m.Type == MovementIn {
			in = in.Add(m.Amount)
		} else {
			out = out.Add(m.Amount)
		}
	}
	return CloseSummary{
		Register:  reg,
		Movements: movements,
		In:        in,
		Out:       out,
		Expected:  reg.OpeningAmount.Add(in).Sub(out),
	}
}

// ServerMovement is a row of the upstream cash-movements listing.
type ServerMovement struct {
	ID        string          `json:"id"`
	Type      MovementType    `json:"type"`
	Amount    decimal.Decimal `json:"amount"`
	Reason    string          `json:"reason"`
	CreatedAt time.Time       `json:"createdAt"`
	Balance   decimal.Decimal `json:"balance"`
}

// ServerMovements is the listing with running balances.
type ServerMovements struct {
	Movements []ServerMovement `json:"movements"`
	Balance   decimal.Decimal  `json:"balance"`
}

// RunningBalance fills Balance on every row, in order, and returns the total.
func RunningBalance(rows []ServerMovement) decimal.Decimal {
	balance := decimal.Zero
	for i := range rows {
		if rows[i].Reason == "" {
			rows[i].Reason = DefaultReason
		}
		if rows[i].Type == MovementIn {
			balance = balance.Add(rows[i].Amount)
		} else {
			balance = balance.Sub(rows[i].Amount)
		}
		rows[i].Balance = balance
	}
	return balance
}

var (
	ErrAlreadyOpen    error = &drawerError{"ya hay una caja abierta en esta terminal", httpx.ErrConflict}
	ErrNoOpenRegister error = &drawerError{"no hay una caja abierta", httpx.ErrNotFound}
	ErrInvalidAmount  error = &drawerError{"monto inválido", httpx.ErrValidation}

	ErrConcurrentUpdate error = &drawerError{"la caja se modificó en otra terminal, reintentá", httpx.ErrConflict}
)

type drawerError struct {
	msg  string
	kind error
}

func (e *drawerError) Error() string { return e.msg }

func (e *drawerError) Unwrap() error { return e.kind }
