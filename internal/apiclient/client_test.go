package apiclient

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/stretchr/testify/require"

	"github.com/ringmotos/ringpos/internal/platform/httpx"
)

type recordedCall struct {
	method string
	route  string
	status int
}

type fakeRecorder struct {
	calls []recordedCall
}

func (f *fakeRecorder) ObserveUpstream(method, route string, status int, _ time.Duration) {
	f.calls = append(f.calls, recordedCall{method: method, route: route, status: status})
}

func TestDoInjectsBearerAndDecodes(t *testing.T) {
	var gotAuth, gotBody string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		data, _ := io.ReadAll(r.Body)
		gotBody = string(data)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id":"s-1"}`))
	}))
	defer srv.Close()

	rec := &fakeRecorder{}
	client := New(Options{BaseURL: srv.URL + "/", Metrics: rec})
	ctx := WithToken(context.Background(), "tok")

	var out struct {
		ID string `json:"id"`
	}
	require.NoError(t, client.Post(ctx, "/sales", map[string]any{"clientId": nil}, &out))
	require.Equal(t, "s-1", out.ID)
	require.Equal(t, "Bearer tok", gotAuth)
	require.JSONEq(t, `{"clientId":null}`, gotBody)
	require.Equal(t, []recordedCall{{method: http.MethodPost, route: "/sales", status: 200}}, rec.calls)
}

func TestNoContentLeavesOutUntouched(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	out := map[string]string{"keep": "me"}
	require.NoError(t, New(Options{BaseURL: srv.URL}).Delete(context.Background(), "/sales/items/i-1", map[string]string{"saleId": "s"}, &out))
	require.Equal(t, "me", out["keep"])
}

func TestErrorCarriesUpstreamMessage(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"statusCode":400,"message":["amount must be positive","method is required"],"error":"Bad Request"}`))
	}))
	defer srv.Close()

	err := New(Options{BaseURL: srv.URL}).Post(context.Background(), "/payments", map[string]int{"amount": 0}, nil)
	var apiErr *Error
	require.ErrorAs(t, err, &apiErr)
	require.Equal(t, http.StatusBadRequest, apiErr.HTTPStatus())
	require.Equal(t, "amount must be positive, method is required", Message(err, "fallback"))
}

func TestServerErrorMapsToBadGateway(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "<html>boom</html>", http.StatusInternalServerError)
	}))
	defer srv.Close()

	err := New(Options{BaseURL: srv.URL}).Get(context.Background(), "/sales/1", nil)
	var apiErr *Error
	require.ErrorAs(t, err, &apiErr)
	require.Equal(t, http.StatusBadGateway, apiErr.HTTPStatus())
	require.Equal(t, "fallback", Message(err, "fallback"))
}

func TestUnauthorizedInvokesHook(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer srv.Close()

	calls := 0
	client := New(Options{BaseURL: srv.URL, OnUnauthorized: func(context.Context) { calls++ }})
	err := client.Get(context.Background(), "/clients", nil)
	require.ErrorIs(t, err, ErrUnauthorized)
	require.Equal(t, 1, calls)
}

func TestTransportFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	base := srv.URL
	srv.Close()

	rec := &fakeRecorder{}
	err := New(Options{BaseURL: base, Metrics: rec}).Get(context.Background(), "/clients", nil)
	require.ErrorIs(t, err, ErrTransport)
	require.True(t, errors.Is(err, httpx.ErrBadGateway))
	require.Len(t, rec.calls, 1)
	require.Equal(t, 0, rec.calls[0].status)
}

func TestRouteTemplate(t *testing.T) {
	require.Equal(t, "/sales/{id}/items", RouteTemplate("/sales/42/items"))
	require.Equal(t, "/clients/final-consumer", RouteTemplate("/clients/final-consumer"))
	require.Equal(t, "/account-entries/history/{id}", RouteTemplate("/account-entries/history/c9?start=2024-01-01"))
	require.Equal(t, "/sales/{id}", RouteTemplate("/sales/ckz8q0abcdefghijklmnop"))
}

func TestWithQueryDropsEmpty(t *testing.T) {
	require.Equal(t, "/reports/sales/by-client", WithQuery("/reports/sales/by-client", url.Values{"from": {""}}))
	require.Equal(t, "/reports/sales/range?from=2024-01-01&to=2024-01-31",
		WithQuery("/reports/sales/range", url.Values{"from": {"2024-01-01"}, "to": {"2024-01-31"}}))
}

func TestTruncateKeepsRunesWhole(t *testing.T) {
	msg := strings.Repeat("a", 299) + "ónica"
	out := truncate(msg, 300)
	require.True(t, utf8.ValidString(out))
	require.Equal(t, strings.Repeat("a", 299), out)

	require.Equal(t, "sesión", truncate("sesión", 300))
	require.Equal(t, "sesi", truncate("sesión", 5))
	require.Equal(t, "sesió", truncate("sesión", 6))
}
