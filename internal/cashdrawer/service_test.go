package cashdrawer

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/ringmotos/ringpos/internal/apiclient"
	"github.com/ringmotos/ringpos/internal/platform/httpx"
)

func newTestService(t *testing.T, api *apiclient.Client) (*Service, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	svc := NewService(client, api, slog.New(slog.NewTextHandler(io.Discard, nil)))
	svc.now = func() time.Time { return time.Date(2024, 6, 1, 9, 0, 0, 0, time.UTC) }
	return svc, mr
}

func TestOpenRejectsSecondRegister(t *testing.T) {
	svc, _ := newTestService(t, nil)
	ctx := context.Background()

	reg, err := svc.Open(ctx, "main", decimal.NewFromInt(5000), "Mañana")
	require.NoError(t, err)
	require.Equal(t, StatusOpen, reg.Status)
	require.NotEmpty(t, reg.ID)

	_, err = svc.Open(ctx, "main", decimal.NewFromInt(1), "")
	require.ErrorIs(t, err, ErrAlreadyOpen)
	require.ErrorIs(t, err, httpx.ErrConflict)

	_, err = svc.Open(ctx, "caja-2", decimal.Zero, "")
	require.NoError(t, err)

	current, err := svc.Current(ctx, "main")
	require.NoError(t, err)
	require.Equal(t, reg.ID, current.ID)
	require.True(t, current.OpeningAmount.Equal(decimal.NewFromInt(5000)))
}

func TestOpenRejectsNegativeFloat(t *testing.T) {
	svc, _ := newTestService(t, nil)
	_, err := svc.Open(context.Background(), "main", decimal.NewFromInt(-1), "")
	require.ErrorIs(t, err, ErrInvalidAmount)
}

func TestCurrentWithoutRegister(t *testing.T) {
	svc, _ := newTestService(t, nil)
	_, err := svc.Current(context.Background(), "main")
	require.ErrorIs(t, err, ErrNoOpenRegister)
}

func TestMovementsAndClose(t *testing.T) {
	svc, mr := newTestService(t, nil)
	ctx := context.Background()

	reg, err := svc.Open(ctx, "main", decimal.NewFromInt(1000), "")
	require.NoError(t, err)

	_, err = svc.RecordMovement(ctx, "main", MovementInput{Type: MovementIn, Amount: decimal.NewFromInt(500)})
	require.NoError(t, err)
	out, err := svc.RecordMovement(ctx, "main", MovementInput{Type: MovementOut, Amount: decimal.NewFromInt(200), Reason: "Proveedor"})
	require.NoError(t, err)
	require.Equal(t, "Proveedor", out.Reason)

	_, err = svc.RecordMovement(ctx, "main", MovementInput{Type: MovementIn, Amount: decimal.Zero})
	require.ErrorIs(t, err, ErrInvalidAmount)

	movements, err := svc.Movements(ctx, reg.ID)
	require.NoError(t, err)
	require.Len(t, movements, 2)
	require.Equal(t, DefaultReason, movements[0].Reason)

	summary, err := svc.Close(ctx, "main")
	require.NoError(t, err)
	require.Equal(t, StatusClosed, summary.Register.Status)
	require.NotNil(t, summary.Register.ClosedAt)
	require.True(t, summary.Expected.Equal(decimal.NewFromInt(1300)))

	_, err = svc.Current(ctx, "main")
	require.ErrorIs(t, err, ErrNoOpenRegister)
	require.True(t, mr.TTL(movementsKey(reg.ID)) > 0)

	_, err = svc.RecordMovement(ctx, "main", MovementInput{Type: MovementIn, Amount: decimal.NewFromInt(1)})
	require.ErrorIs(t, err, ErrNoOpenRegister)
}

func TestConcurrentClosesReturnOneSummary(t *testing.T) {
	svc, _ := newTestService(t, nil)
	ctx := context.Background()
	_, err := svc.Open(ctx, "main", decimal.NewFromInt(1000), "")
	require.NoError(t, err)

	var closed, missing atomic.Int32
	var wg sync.WaitGroup
	for i := 0; i < 6; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := svc.Close(ctx, "main")
			switch {
			case err == nil:
				closed.Add(1)
			case errors.Is(err, ErrNoOpenRegister):
				missing.Add(1)
			default:
				t.Errorf("close: %v", err)
			}
		}()
	}
	wg.Wait()
	require.Equal(t, int32(1), closed.Load())
	require.Equal(t, int32(5), missing.Load())
}

func TestMovementsRacingCloseAreInSummaryOrRejected(t *testing.T) {
	svc, _ := newTestService(t, nil)
	ctx := context.Background()
	_, err := svc.Open(ctx, "main", decimal.Zero, "")
	require.NoError(t, err)

	var recorded atomic.Int32
	var wg sync.WaitGroup
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := svc.RecordMovement(ctx, "main", MovementInput{Type: MovementIn, Amount: decimal.NewFromInt(100)})
			if err == nil {
				recorded.Add(1)
				return
			}
			if !errors.Is(err, ErrNoOpenRegister) && !errors.Is(err, ErrConcurrentUpdate) {
				t.Errorf("record movement: %v", err)
			}
		}()
	}

	var summary *CloseSummary
	for summary == nil {
		summary, err = svc.Close(ctx, "main")
		if err != nil {
			require.ErrorIs(t, err, ErrConcurrentUpdate)
		}
	}
	wg.Wait()

	require.Len(t, summary.Movements, int(recorded.Load()))
	require.True(t, summary.Expected.Equal(decimal.NewFromInt(100).Mul(decimal.NewFromInt(int64(recorded.Load())))))
}

func TestServerMovementsRunningBalance(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/cash-movements", r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`[
			{"id":"1","type":"IN","amount":"1000.50","reason":"Venta","createdAt":"2024-06-01T10:00:00Z"},
			{"id":"2","type":"OUT","amount":"200","reason":null,"createdAt":"2024-06-01T11:00:00Z"},
			{"id":"3","type":"IN","amount":"49.50","reason":"","createdAt":"2024-06-01T12:00:00Z"}
		]`))
	}))
	defer srv.Close()

	svc, _ := newTestService(t, apiclient.New(apiclient.Options{BaseURL: srv.URL}))
	out, err := svc.ServerMovements(context.Background())
	require.NoError(t, err)
	require.Len(t, out.Movements, 3)
	require.True(t, out.Movements[0].Balance.Equal(decimal.RequireFromString("1000.50")))
	require.True(t, out.Movements[1].Balance.Equal(decimal.RequireFromString("800.50")))
	require.True(t, out.Balance.Equal(decimal.NewFromInt(850)))
	require.Equal(t, DefaultReason, out.Movements[1].Reason)
	require.Equal(t, "EGRESO", out.Movements[1].Type.Label())
}
