package printing

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/ringmotos/ringpos/internal/platform/httpx"
)

func TestRenderHTMLPostsMultipartForm(t *testing.T) {
	var gotHTML, gotWidth, gotBackground string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/forms/chromium/convert/html", r.URL.Path)
		require.NoError(t, r.ParseMultipartForm(1<<20))
		file, header, err := r.FormFile("files")
		require.NoError(t, err)
		require.Equal(t, "index.html", header.Filename)
		raw, _ := io.ReadAll(file)
		gotHTML = string(raw)
		gotWidth = r.FormValue("paperWidth")
		gotBackground = r.FormValue("printBackground")
		w.Header().Set("Content-Type", "application/pdf")
		_, _ = w.Write([]byte("%PDF-1.4 fake"))
	}))
	defer srv.Close()

	pdf, err := NewClient(srv.URL+"/").RenderHTML(context.Background(), "<h1>Presupuesto</h1>", A4)
	require.NoError(t, err)
	require.Equal(t, "%PDF-1.4 fake", string(pdf))
	require.Equal(t, "<h1>Presupuesto</h1>", gotHTML)
	require.Equal(t, "8.27", gotWidth)
	require.Equal(t, "true", gotBackground)
}

func TestRenderHTMLMapsFailures(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	_, err := NewClient(srv.URL).RenderHTML(context.Background(), "<p></p>", A4)
	require.ErrorIs(t, err, ErrRenderFailed)
	require.ErrorIs(t, err, httpx.ErrBadGateway)
}

func TestPing(t *testing.T) {
	healthy := true
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/health", r.URL.Path)
		if !healthy {
			w.WriteHeader(http.StatusInternalServerError)
		}
	}))
	defer srv.Close()

	c := NewClient(srv.URL)
	require.NoError(t, c.Ping(context.Background()))
	healthy = false
	require.Error(t, c.Ping(context.Background()))
}
