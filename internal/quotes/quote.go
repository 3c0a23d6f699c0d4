// Package quotes builds printable price quotes ("presupuestos"). Quotes are not
// persisted upstream.
package quotes

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/ringmotos/ringpos/internal/clients"
	"github.com/ringmotos/ringpos/internal/platform/httpx"
)

// FinalConsumer is printed when no client is selected.
const FinalConsumer = "Consumidor Final"

// LineInput is one editable row.
type LineInput struct {
	Description string          `json:"description"`
	Qty         decimal.Decimal `json:"qty"`
	UnitPrice   decimal.Decimal `json:"unitPrice"`
}

// Input is the quote form.
type Input struct {
	ClientID     string      `json:"clientId"`
	ValidityDays int         `json:"validityDays" validate:"gte=0,lte=365"`
	Items        []LineInput `json:"items"`
}

// Line is a priced row.
type Line struct {
	Description string          `json:"description"`
	Qty         decimal.Decimal `json:"qty"`
	UnitPrice   decimal.Decimal `json:"unitPrice"`
	Total       decimal.Decimal `json:"total"`
}

// Customer is the client block printed on the quote.
type Customer struct {
	ID      string `json:"id,omitempty"`
	Name    string `json:"name"`
	Phone   string `json:"phone,omitempty"`
	Address string `json:"address,omitempty"`
}

// Quote is a built quote ready to render.
type Quote struct {
	ID           string          `json:"id"`
	Number       string          `json:"number"`
	Business     string          `json:"business"`
	IssuedAt     time.Time       `json:"issuedAt"`
	ValidUntil   time.Time       `json:"validUntil"`
	ValidityDays int             `json:"validityDays"`
	Customer     Customer        `json:"customer"`
	Lines        []Line          `json:"lines"`
	Total        decimal.Decimal `json:"total"`
}

// ErrNoPricedLines is returned when every row is blank or free.
var ErrNoPricedLines = fmt.Errorf("%w: el presupuesto necesita al menos un ítem con precio", httpx.ErrValidation)

// ClientLookup resolves a client for the quote header.
type ClientLookup interface {
	Get(ctx context.Context, id string) (*clients.Client, error)
}

// Builder turns form input into quotes.
type Builder struct {
	clients         ClientLookup
	business        string
	defaultValidity int
	validator       *validator.Validate
	now             func() time.Time
}

// NewBuilder constructs a Builder.
func NewBuilder(lookup ClientLookup, business string, defaultValidity int) *Builder {
	if defaultValidity <= 0 {
		defaultValidity = 15
	}
	return &Builder{
		clients:         lookup,
		business:        business,
		defaultValidity: defaultValidity,
		validator:       validator.New(),
		now:             time.Now,
	}
}

// Build validates the input and prices every non-blank line.
func (b *Builder) Build(ctx context.Context, in Input) (*Quote, error) {
	if err := b.validator.Struct(in); err != nil {
		return nil, fmt.Errorf("%w: %v", httpx.ErrValidation, err)
	}
	lines := make([]Line, 0, len(in.Items))
	total := decimal.Zero
	priced := false
	for i, item := range in.Items {
		desc := strings.TrimSpace(item.Description)
		if desc == "" {
			continue
		}
		if !item.Qty.IsPositive() {
			return nil, fmt.Errorf("%w: fila %d: la cantidad debe ser mayor a cero", httpx.ErrValidation, i+1)
		}
		if item.UnitPrice.IsNegative() {
			return nil, fmt.Errorf("%w: fila %d: el precio no puede ser negativo", httpx.ErrValidation, i+1)
		}
		lineTotal := item.Qty.Mul(item.UnitPrice).Round(2)
		if lineTotal.IsPositive() {
			priced = true
		}
		total = total.Add(lineTotal)
		lines = append(lines, Line{Description: desc, Qty: item.Qty, UnitPrice: item.UnitPrice, Total: lineTotal})
	}
	if !priced {
		return nil, ErrNoPricedLines
	}

	customer := Customer{Name: FinalConsumer}
	if id := strings.TrimSpace(in.ClientID); id != "" && b.clients != nil {
		c, err := b.clients.Get(ctx, id)
		if err != nil {
			return nil, err
		}
		customer = Customer{ID: c.ID, Name: c.FullName(), Phone: c.Phone, Address: c.Address}
	}

	validity := in.ValidityDays
	if validity == 0 {
		validity = b.defaultValidity
	}
	issued := b.now()
	id := uuid.New()
	return &Quote{
		ID:           id.String(),
		Number:       "P-" + issued.Format("20060102") + "-" + strings.ToUpper(id.String()[:6]),
		Business:     b.business,
		IssuedAt:     issued,
		ValidUntil:   issued.AddDate(0, 0, validity),
		ValidityDays: validity,
		Customer:     customer,
		Lines:        lines,
		Total:        total,
	}, nil
}
