package ledger

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"

	"github.com/shopspring/decimal"

	"github.com/ringmotos/ringpos/internal/apiclient"
)

// Payment modes selectable by configuration.
const (
	ModeDirect         = "direct"
	ModeAllocations    = "allocations"
	ModeConfirmPending = "confirm_pending"
)

// PaymentStrategy is one upstream contract for settling client debt.
type PaymentStrategy interface {
	Name() string
	Pay(ctx context.Context, p DebtPayment) error
}

// NewStrategy returns the strategy for mode.
func NewStrategy(mode string, api *apiclient.Client) (PaymentStrategy, error) {
	switch mode {
	case ModeDirect, "":
		return directStrategy{api: api}, nil
	case ModeAllocations:
		return allocationStrategy{api: api}, nil
	case ModeConfirmPending:
		return confirmPendingStrategy{api: api}, nil
	}
	return nil, fmt.Errorf("ledger: unknown payment mode %q", mode)
}

func number(d decimal.Decimal) any {
	return json.Number(d.String())
}

type directStrategy struct {
	api *apiclient.Client
}

func (directStrategy) Name() string { return ModeDirect }

func (s directStrategy) Pay(ctx context.Context, p DebtPayment) error {
	body := map[string]any{
		"clientId":      p.ClientID,
		"amount":        number(p.Amount),
		"paymentMethod": p.Method,
		"description":   p.Description,
	}
	return s.api.Post(ctx, "/payments/direct", body, nil)
}

type allocationStrategy struct {
	api *apiclient.Client
}

func (allocationStrategy) Name() string { return ModeAllocations }

func (s allocationStrategy) Pay(ctx context.Context, p DebtPayment) error {
	entries, err := clientEntries(ctx, s.api, p.ClientID)
	if err != nil {
		return err
	}
	allocations, err := Allocate(entries, p.Amount)
	if err != nil {
		return err
	}
	wire := make([]map[string]any, 0, len(allocations))
	for _, a := range allocations {
		wire = append(wire, map[string]any{"saleId": a.SaleID, "amount": number(a.Amount)})
	}
	body := map[string]any{
		"clientId":    p.ClientID,
		"amount":      number(p.Amount),
		"method":      p.Method,
		"allocations": wire,
	}
	return s.api.Post(ctx, "/payments", body, nil)
}

// Allocate spreads amount over pending charged sales, oldest first.
func Allocate(entries []Entry, amount decimal.Decimal) ([]Allocation, error) {
	type pendingSale struct {
		id      string
		created int64
		pending decimal.Decimal
	}
	seen := map[string]bool{}
	var pending []pendingSale
	total := decimal.Zero
	for _, e := range entries {
		if e.Type != EntryCharge || e.Sale == nil || e.Sale.ID == "" || seen[e.Sale.ID] {
			continue
		}
		if e.Sale.Status == "CANCELLED" {
			continue
		}
		owed := e.Sale.Pending()
		if !owed.IsPositive() {
			continue
		}
		seen[e.Sale.ID] = true
		created := e.Sale.CreatedAt
		if created.IsZero() {
			created = e.CreatedAt
		}
		pending = append(pending, pendingSale{id: e.Sale.ID, created: created.UnixNano(), pending: owed})
		total = total.Add(owed)
	}
	if amount.GreaterThan(total) {
		return nil, ErrOverpayment
	}
	sort.SliceStable(pending, func(i, j int) bool { return pending[i].created < pending[j].created })

	remaining := amount
	out := make([]Allocation, 0, len(pending))
	for _, sale := range pending {
		if !remaining.IsPositive() {
			break
		}
		part := decimal.Min(remaining, sale.pending)
		out = append(out, Allocation{SaleID: sale.id, Amount: part})
		remaining = remaining.Sub(part)
	}
	return out, nil
}

type confirmPendingStrategy struct {
	api *apiclient.Client
}

func (confirmPendingStrategy) Name() string { return ModeConfirmPending }

func (s confirmPendingStrategy) Pay(ctx context.Context, p DebtPayment) error {
	entries, err := clientEntries(ctx, s.api, p.ClientID)
	if err != nil {
		return err
	}
	for _, e := range entries {
		if e.Type == EntryCharge && e.Sale != nil && e.Sale.ID != "" {
			return s.api.Patch(ctx, "/sales/"+apiclient.Segment(e.Sale.ID)+"/confirm", nil, nil)
		}
	}
	return ErrNoPendingSale
}

func clientEntries(ctx context.Context, api *apiclient.Client, clientID string) ([]Entry, error) {
	var entries []Entry
	if err := api.Get(ctx, "/account-entries/client/"+apiclient.Segment(clientID), &entries); err != nil {
		return nil, err
	}
	return entries, nil
}
