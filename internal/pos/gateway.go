package pos

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/ringmotos/ringpos/internal/apiclient"
)

// Payment contracts understood by the upstream API.
const (
	ContractAction = "action"
	ContractLegacy = "legacy"
)

// Action names sent on the action-based payment contract.
const (
	ActionPayment   = "PAYMENT"
	ActionNoPayment = "NO_PAYMENT"
)

// PaymentRequest is a payment, or a zero-amount close to the running account.
type PaymentRequest struct {
	SaleID     string
	Amount     decimal.Decimal
	Method     PaymentMethod
	ReceivedBy string
}

// AddItemResult holds whichever shape the upstream returned for an added item.
type AddItemResult struct {
	Item *SaleItem
	Sale *Sale
}

// Gateway is the upstream sale contract used by the Manager.
type Gateway interface {
	CreateSale(ctx context.Context, clientID *string) (*Sale, error)
	FetchSale(ctx context.Context, saleID string) (*Sale, error)
	AddItem(ctx context.Context, saleID string, in AddItemInput) (AddItemResult, error)
	// RemoveItem returns nil when the upstream answers without a body.
	RemoveItem(ctx context.Context, saleID, itemID string) (*Sale, error)
	UpdateClient(ctx context.Context, saleID string, clientID *string) (*Sale, error)
	RegisterPayment(ctx context.Context, req PaymentRequest) (*Sale, error)
	Confirm(ctx context.Context, saleID string) (*Sale, error)
	Cancel(ctx context.Context, saleID string) error
	CreateRemito(ctx context.Context, saleID string) (string, error)
	MarkRemitoPrinted(ctx context.Context, remitoID string) error
}

// HTTPGateway implements Gateway over the API client.
type HTTPGateway struct {
	api      *apiclient.Client
	contract string
}

// NewHTTPGateway builds a gateway for the given payment contract.
func NewHTTPGateway(api *apiclient.Client, contract string) *HTTPGateway {
	if contract == "" {
		contract = ContractAction
	}
	return &HTTPGateway{api: api, contract: contract}
}

func salePath(saleID string, suffix string) string {
	return "/sales/" + apiclient.Segment(saleID) + suffix
}

func number(d decimal.Decimal) json.Number {
	return json.Number(d.String())
}

// CreateSale opens a draft sale upstream.
func (g *HTTPGateway) CreateSale(ctx context.Context, clientID *string) (*Sale, error) {
	var sale Sale
	body := map[string]any{"clientId": clientID, "status": StatusDraft}
	if err := g.api.Post(ctx, "/sales", body, &sale); err != nil {
		return nil, err
	}
	return &sale, nil
}

// FetchSale loads the authoritative sale.
func (g *HTTPGateway) FetchSale(ctx context.Context, saleID string) (*Sale, error) {
	var sale Sale
	if err := g.api.Get(ctx, salePath(saleID, ""), &sale); err != nil {
		return nil, err
	}
	return &sale, nil
}

// AddItem posts a line. Some deployments answer with the item, others with the whole sale.
func (g *HTTPGateway) AddItem(ctx context.Context, saleID string, in AddItemInput) (AddItemResult, error) {
	body := map[string]any{
		"qty":         number(in.Qty),
		"unitPrice":   number(in.UnitPrice),
		"description": in.Description,
	}
	if in.ProductID != nil {
		body["productId"] = *in.ProductID
	}
	var raw json.RawMessage
	if err := g.api.Post(ctx, salePath(saleID, "/items"), body, &raw); err != nil {
		return AddItemResult{}, err
	}
	return decodeAddItem(raw)
}

func decodeAddItem(raw json.RawMessage) (AddItemResult, error) {
	if len(bytes.TrimSpace(raw)) == 0 {
		return AddItemResult{}, fmt.Errorf("pos: empty add-item response")
	}
	var probe map[string]json.RawMessage
	if err := json.Unmarshal(raw, &probe); err != nil {
		return AddItemResult{}, fmt.Errorf("pos: decode add-item response: %w", err)
	}
	if _, ok := probe["items"]; ok {
		var sale Sale
		if err := json.Unmarshal(raw, &sale); err != nil {
			return AddItemResult{}, fmt.Errorf("pos: decode sale: %w", err)
		}
		return AddItemResult{Sale: &sale}, nil
	}
	var item SaleItem
	if err := json.Unmarshal(raw, &item); err != nil {
		return AddItemResult{}, fmt.Errorf("pos: decode item: %w", err)
	}
	return AddItemResult{Item: &item}, nil
}

// RemoveItem deletes a line. The sale id travels in the body.
func (g *HTTPGateway) RemoveItem(ctx context.Context, saleID, itemID string) (*Sale, error) {
	var raw json.RawMessage
	path := "/sales/items/" + apiclient.Segment(itemID)
	if err := g.api.Delete(ctx, path, map[string]string{"saleId": saleID}, &raw); err != nil {
		return nil, err
	}
	return decodeOptionalSale(raw)
}

// UpdateClient sets or clears the payer of the sale.
func (g *HTTPGateway) UpdateClient(ctx context.Context, saleID string, clientID *string) (*Sale, error) {
	var sale Sale
	if err := g.api.Patch(ctx, salePath(saleID, ""), map[string]any{"clientId": clientID}, &sale); err != nil {
		return nil, err
	}
	return &sale, nil
}

// RegisterPayment sends the payment on the configured contract.
func (g *HTTPGateway) RegisterPayment(ctx context.Context, req PaymentRequest) (*Sale, error) {
	var raw json.RawMessage
	switch g.contract {
	case ContractLegacy:
		if !req.Amount.IsPositive() {
			return nil, ValidationError("el monto debe ser mayor a cero")
		}
		body := map[string]any{"saleId": req.SaleID, "amount": number(req.Amount), "method": req.Method}
		if err := g.api.Post(ctx, "/payments", body, &raw); err != nil {
			return nil, err
		}
	default:
		action := ActionPayment
		if req.Amount.IsZero() {
			action = ActionNoPayment
		}
		body := map[string]any{
			"action":        action,
			"amount":        number(req.Amount),
			"paymentMethod": req.Method,
			"receivedBy":    req.ReceivedBy,
		}
		if err := g.api.Post(ctx, "/pos/sales/"+apiclient.Segment(req.SaleID)+"/action", body, &raw); err != nil {
			return nil, err
		}
	}
	return decodeOptionalSale(raw)
}

// Confirm closes the sale as confirmed.
func (g *HTTPGateway) Confirm(ctx context.Context, saleID string) (*Sale, error) {
	var raw json.RawMessage
	if err := g.api.Patch(ctx, salePath(saleID, "/confirm"), nil, &raw); err != nil {
		return nil, err
	}
	return decodeOptionalSale(raw)
}

// Cancel discards the sale upstream.
func (g *HTTPGateway) Cancel(ctx context.Context, saleID string) error {
	return g.api.Patch(ctx, salePath(saleID, "/cancel"), nil, nil)
}

// CreateRemito issues the delivery note and returns its id when the upstream sends one.
func (g *HTTPGateway) CreateRemito(ctx context.Context, saleID string) (string, error) {
	var out struct {
		ID       string `json:"id"`
		RemitoID string `json:"remitoId"`
	}
	if err := g.api.Post(ctx, "/remitos", map[string]string{"saleId": saleID}, &out); err != nil {
		return "", err
	}
	if out.ID != "" {
		return out.ID, nil
	}
	return out.RemitoID, nil
}

// MarkRemitoPrinted timestamps a print event.
func (g *HTTPGateway) MarkRemitoPrinted(ctx context.Context, remitoID string) error {
	return g.api.Post(ctx, "/remitos/"+apiclient.Segment(remitoID)+"/printed", nil, nil)
}

func decodeOptionalSale(raw json.RawMessage) (*Sale, error) {
	if len(bytes.TrimSpace(raw)) == 0 || string(bytes.TrimSpace(raw)) == "null" {
		return nil, nil
	}
	var sale Sale
	if err := json.Unmarshal(raw, &sale); err != nil {
		return nil, fmt.Errorf("pos: decode sale: %w", err)
	}
	if sale.ID == "" {
		return nil, nil
	}
	return &sale, nil
}
