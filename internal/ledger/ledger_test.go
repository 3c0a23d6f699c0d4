package ledger

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/ringmotos/ringpos/internal/apiclient"
	"github.com/ringmotos/ringpos/internal/platform/httpx"
)

const clientEntriesJSON = `[
 {"id":"e3","type":"CHARGE","amount":"300","balanceAfter":"800","createdAt":"2026-03-03T10:00:00Z",
  "sale":{"id":"s3","status":"CONFIRMED","totalAmount":"300","paidAmount":"0","createdAt":"2026-03-03T10:00:00Z"}},
 {"id":"e1","type":"DEBIT","amount":"500","balanceAfter":"500","createdAt":"2026-03-01T10:00:00Z",
  "sale":{"id":"s1","status":"CONFIRMED","totalAmount":"500","paidAmount":"200","createdAt":"2026-03-01T10:00:00Z"}},
 {"id":"e2","type":"PAYMENT","amount":"200","balanceAfter":"300","createdAt":"2026-03-02T10:00:00Z","sale":null}
]`

type fakeUpstream struct {
	mu       sync.Mutex
	requests []string
	bodies   []map[string]any
	entries  string
}

func (f *fakeUpstream) record(r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.requests = append(f.requests, r.Method+" "+r.URL.RequestURI())
	var body map[string]any
	if r.Body != nil {
		_ = json.NewDecoder(r.Body).Decode(&body)
	}
	f.bodies = append(f.bodies, body)
}

func (f *fakeUpstream) calls() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.requests...)
}

func (f *fakeUpstream) bodyOf(call string) map[string]any {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i := len(f.requests) - 1; i >= 0; i-- {
		if f.requests[i] == call {
			return f.bodies[i]
		}
	}
	return nil
}

func newFakeUpstream(t *testing.T) (*fakeUpstream, *apiclient.Client) {
	t.Helper()
	f := &fakeUpstream{entries: clientEntriesJSON}
	r := chi.NewRouter()
	r.Get("/account-entries/client/{id}", func(w http.ResponseWriter, req *http.Request) {
		f.record(req)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(f.entries))
	})
	r.Get("/account-entries/history/{id}", func(w http.ResponseWriter, req *http.Request) {
		f.record(req)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(f.entries))
	})
	r.Get("/account-entries/summary/{id}", func(w http.ResponseWriter, req *http.Request) {
		f.record(req)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"charges":"800","payments":"200","adjustments":"0","lastBalance":"600"}`))
	})
	r.Post("/payments", func(w http.ResponseWriter, req *http.Request) {
		f.record(req)
		w.WriteHeader(http.StatusCreated)
	})
	r.Post("/payments/direct", func(w http.ResponseWriter, req *http.Request) {
		f.record(req)
		w.WriteHeader(http.StatusCreated)
	})
	r.Patch("/sales/{id}/confirm", func(w http.ResponseWriter, req *http.Request) {
		f.record(req)
		w.WriteHeader(http.StatusNoContent)
	})
	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)
	return f, apiclient.New(apiclient.Options{BaseURL: srv.URL})
}

func TestEntryTypeNormalisesDebit(t *testing.T) {
	var entries []Entry
	require.NoError(t, json.Unmarshal([]byte(clientEntriesJSON), &entries))
	require.Equal(t, EntryCharge, entries[1].Type)
	require.Equal(t, "Cargo (Venta)", EntryLabel(entries[1].Type))
	require.Equal(t, "Pago", EntryLabel(entries[2].Type))
	require.Nil(t, entries[2].Sale)
	require.True(t, entries[1].Sale.Pending().Equal(decimal.NewFromInt(300)))
}

func TestAllocateOldestFirst(t *testing.T) {
	var entries []Entry
	require.NoError(t, json.Unmarshal([]byte(clientEntriesJSON), &entries))

	out, err := Allocate(entries, decimal.NewFromInt(450))
	require.NoError(t, err)
	require.Len(t, out, 2)
	require.Equal(t, "s1", out[0].SaleID)
	require.True(t, out[0].Amount.Equal(decimal.NewFromInt(300)))
	require.Equal(t, "s3", out[1].SaleID)
	require.True(t, out[1].Amount.Equal(decimal.NewFromInt(150)))

	_, err = Allocate(entries, decimal.NewFromInt(601))
	require.ErrorIs(t, err, ErrOverpayment)
	require.ErrorIs(t, err, httpx.ErrValidation)
}

func TestAllocateSkipsSettledAndCancelledSales(t *testing.T) {
	entries := []Entry{
		{Type: EntryCharge, Sale: &EntrySale{ID: "paid", TotalAmount: decimal.NewFromInt(100), PaidAmount: decimal.NewFromInt(100)}},
		{Type: EntryCharge, Sale: &EntrySale{ID: "gone", Status: "CANCELLED", TotalAmount: decimal.NewFromInt(100)}},
		{Type: EntryCharge, Sale: &EntrySale{ID: "open", TotalAmount: decimal.NewFromInt(80)}},
	}
	out, err := Allocate(entries, decimal.NewFromInt(80))
	require.NoError(t, err)
	require.Equal(t, []Allocation{{SaleID: "open", Amount: decimal.NewFromInt(80)}}, out)
}

func TestPayDebtDirectThenRefetchesHistory(t *testing.T) {
	up, api := newFakeUpstream(t)
	strategy, err := NewStrategy(ModeDirect, api)
	require.NoError(t, err)
	svc := NewService(api, strategy, nil)

	entries, err := svc.PayDebt(context.Background(), DebtPayment{ClientID: "c1", Amount: decimal.RequireFromString("150.50"), Method: "transfer"})
	require.NoError(t, err)
	require.Len(t, entries, 3)

	calls := up.calls()
	require.Equal(t, "POST /payments/direct", calls[0])
	require.True(t, strings.HasPrefix(calls[1], "GET /account-entries/history/c1"))
	body := up.bodyOf("POST /payments/direct")
	require.Equal(t, "c1", body["clientId"])
	require.Equal(t, 150.5, body["amount"])
	require.Equal(t, "TRANSFER", body["paymentMethod"])
}

func TestPayDebtAllocationsPostsPlan(t *testing.T) {
	up, api := newFakeUpstream(t)
	strategy, err := NewStrategy(ModeAllocations, api)
	require.NoError(t, err)
	svc := NewService(api, strategy, nil)

	_, err = svc.PayDebt(context.Background(), DebtPayment{ClientID: "c1", Amount: decimal.NewFromInt(350), Method: "CASH"})
	require.NoError(t, err)

	calls := up.calls()
	require.Equal(t, []string{"GET /account-entries/client/c1", "POST /payments"}, calls[:2])
	body := up.bodyOf("POST /payments")
	allocs := body["allocations"].([]any)
	require.Len(t, allocs, 2)
	require.Equal(t, "s1", allocs[0].(map[string]any)["saleId"])
	require.Equal(t, float64(50), allocs[1].(map[string]any)["amount"])
}

func TestPayDebtConfirmPending(t *testing.T) {
	up, api := newFakeUpstream(t)
	strategy, err := NewStrategy(ModeConfirmPending, api)
	require.NoError(t, err)
	svc := NewService(api, strategy, nil)

	_, err = svc.PayDebt(context.Background(), DebtPayment{ClientID: "c1", Amount: decimal.NewFromInt(10), Method: "CASH"})
	require.NoError(t, err)
	require.Contains(t, up.calls(), "PATCH /sales/s3/confirm")

	up.mu.Lock()
	up.entries = `[{"id":"e2","type":"PAYMENT","amount":"200","balanceAfter":"0","sale":null}]`
	up.mu.Unlock()
	_, err = svc.PayDebt(context.Background(), DebtPayment{ClientID: "c1", Amount: decimal.NewFromInt(10), Method: "CASH"})
	require.ErrorIs(t, err, ErrNoPendingSale)
}

func TestPayDebtRejectsBadInput(t *testing.T) {
	up, api := newFakeUpstream(t)
	strategy, _ := NewStrategy(ModeDirect, api)
	svc := NewService(api, strategy, nil)

	_, err := svc.PayDebt(context.Background(), DebtPayment{ClientID: "c1", Amount: decimal.Zero, Method: "CASH"})
	require.ErrorIs(t, err, ErrInvalidAmount)
	_, err = svc.PayDebt(context.Background(), DebtPayment{ClientID: "c1", Amount: decimal.NewFromInt(5), Method: "BITCOIN"})
	require.ErrorIs(t, err, httpx.ErrValidation)
	require.Empty(t, up.calls())
}

func TestUnknownStrategy(t *testing.T) {
	_, err := NewStrategy("barter", nil)
	require.Error(t, err)
}

func TestHistoryAndSummaryQueries(t *testing.T) {
	up, api := newFakeUpstream(t)
	svc := NewService(api, nil, nil)

	entries, err := svc.History(context.Background(), "c1", "2026-03-01", "2026-03-31")
	require.NoError(t, err)
	require.Equal(t, "Cargo (Venta)", entries[0].Label)
	_, err = svc.History(context.Background(), "c1", "03/01/2026", "")
	require.ErrorIs(t, err, httpx.ErrValidation)

	sum, err := svc.Summary(context.Background(), "c1", 3, 2026)
	require.NoError(t, err)
	require.True(t, sum.LastBalance.Equal(decimal.NewFromInt(600)))
	_, err = svc.Summary(context.Background(), "c1", 13, 2026)
	require.ErrorIs(t, err, httpx.ErrValidation)

	calls := up.calls()
	require.Equal(t, "GET /account-entries/history/c1?end=2026-03-31&start=2026-03-01", calls[0])
	require.Equal(t, "GET /account-entries/summary/c1?month=3&year=2026", calls[1])
}

func TestHandlerRoutes(t *testing.T) {
	up, api := newFakeUpstream(t)
	strategy, _ := NewStrategy(ModeDirect, api)
	h := NewHandler(nil, NewService(api, strategy, nil))
	h.now = func() time.Time { return time.Date(2026, 4, 10, 0, 0, 0, 0, time.UTC) }
	r := chi.NewRouter()
	r.Route("/clients/{id}/ledger", h.MountRoutes)

	res := httptest.NewRecorder()
	r.ServeHTTP(res, httptest.NewRequest(http.MethodGet, "/clients/c9/ledger/summary", nil))
	require.Equal(t, http.StatusOK, res.Code)
	require.Contains(t, up.calls(), "GET /account-entries/summary/c9?month=4&year=2026")

	res = httptest.NewRecorder()
	r.ServeHTTP(res, httptest.NewRequest(http.MethodPost, "/clients/c9/ledger/payments", strings.NewReader(`{"amount":"-5","method":"CASH"}`)))
	require.Equal(t, http.StatusBadRequest, res.Code)

	res = httptest.NewRecorder()
	r.ServeHTTP(res, httptest.NewRequest(http.MethodPost, "/clients/c9/ledger/payments", strings.NewReader(`{"amount":"25","method":"CARD"}`)))
	require.Equal(t, http.StatusOK, res.Code)
	require.Equal(t, "CARD", up.bodyOf("POST /payments/direct")["paymentMethod"])
}
