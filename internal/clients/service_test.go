package clients

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/ringmotos/ringpos/internal/apiclient"
	"github.com/ringmotos/ringpos/internal/platform/httpx"
)

func TestClientDecodesBothAddressSpellings(t *testing.T) {
	var a, b Client
	require.NoError(t, json.Unmarshal([]byte(`{"id":"1","name":"Ana","lastName":"Gil","adress":"San Martín 12","balance":"150"}`), &a))
	require.NoError(t, json.Unmarshal([]byte(`{"id":"2","name":"Luis","address":"Mitre 40","balance":0}`), &b))
	require.Equal(t, "San Martín 12", a.Address)
	require.Equal(t, "Mitre 40", b.Address)
	require.Equal(t, "Ana Gil", a.FullName())
	require.True(t, a.HasDebt())
	require.False(t, b.HasDebt())
}

func TestBalanceSignNormalisation(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`[{"id":"1","name":"Ana","balance":-300},{"id":"2","name":"Luis","balance":50}]`))
	}))
	defer srv.Close()
	api := apiclient.New(apiclient.Options{BaseURL: srv.URL})

	list, err := NewService(api, NegativeOwes, nil).List(context.Background())
	require.NoError(t, err)
	require.True(t, list[0].Balance.Equal(decimal.NewFromInt(300)))
	require.True(t, list[0].HasDebt())
	require.False(t, list[1].HasDebt())

	list, err = NewService(api, PositiveOwes, nil).List(context.Background())
	require.NoError(t, err)
	require.False(t, list[0].HasDebt())
}

func TestCreateValidatesAndSendsUpstreamSpelling(t *testing.T) {
	var got map[string]string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewDecoder(r.Body).Decode(&got)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"id":"c1","name":"Ana","lastName":"Gil","dni":"30111222","adress":"Belgrano 1"}`))
	}))
	defer srv.Close()
	svc := NewService(apiclient.New(apiclient.Options{BaseURL: srv.URL}), PositiveOwes, nil)

	_, err := svc.Create(context.Background(), CreateInput{Name: "Ana"})
	require.ErrorIs(t, err, httpx.ErrValidation)
	require.Nil(t, got)

	c, err := svc.Create(context.Background(), CreateInput{DNI: " 30111222 ", Name: "Ana", LastName: "Gil", Address: "Belgrano 1"})
	require.NoError(t, err)
	require.Equal(t, "c1", c.ID)
	require.Equal(t, "Belgrano 1", got["adress"])
	require.Equal(t, "30111222", got["dni"])
}

func TestFinalConsumerIsFetchedOnce(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		time.Sleep(20 * time.Millisecond)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id":"cf","name":"Consumidor","lastName":"Final"}`))
	}))
	defer srv.Close()
	svc := NewService(apiclient.New(apiclient.Options{BaseURL: srv.URL}), PositiveOwes, nil)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			c, err := svc.FinalConsumer(context.Background())
			require.NoError(t, err)
			require.Equal(t, "cf", c.ID)
		}()
	}
	wg.Wait()
	_, err := svc.FinalConsumer(context.Background())
	require.NoError(t, err)
	require.Equal(t, int32(1), hits.Load())
}
