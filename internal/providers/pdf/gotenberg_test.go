package pdf

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/smallbiznis/invoicely/internal/invoice/render"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestGotenbergExporterPostsRenderedHTML(t *testing.T) {
	var gotPath, gotFile, gotBody string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		file, header, err := r.FormFile("files")
		if err == nil {
			gotFile = header.Filename
			raw, _ := io.ReadAll(file)
			gotBody = string(raw)
		}
		w.Header().Set("Content-Type", "application/pdf")
		_, _ = w.Write([]byte("%PDF-1.7 fake"))
	}))
	defer server.Close()

	doc, err := render.NewRenderer().Render("modern", sampleView("modern", true))
	require.NoError(t, err)

	exporter := NewGotenbergExporter(NewGotenbergClient(server.URL, server.Client()), 5*time.Second, zap.NewNop(), nil)
	out := exporter.Export(context.Background(), FromDocument(doc))

	assert.Equal(t, "gotenberg", exporter.Name())
	assert.Equal(t, "%PDF-1.7 fake", string(out))
	assert.Equal(t, "/forms/chromium/convert/html", gotPath)
	assert.Equal(t, "index.html", gotFile)
	assert.Equal(t, string(doc.HTML), gotBody)
}

func TestGotenbergExporterRendersBareView(t *testing.T) {
	var gotBody string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if file, _, err := r.FormFile("files"); err == nil {
			raw, _ := io.ReadAll(file)
			gotBody = string(raw)
		}
		_, _ = w.Write([]byte("%PDF"))
	}))
	defer server.Close()

	exporter := NewGotenbergExporter(NewGotenbergClient(server.URL, nil), time.Second, nil, nil)
	out := exporter.Export(context.Background(), FromView(sampleView("classic", false)))

	assert.Equal(t, "%PDF", string(out))
	assert.True(t, strings.Contains(gotBody, "INV-0042"))
}

func TestGotenbergExporterSoftFailures(t *testing.T) {
	failing := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "chromium crashed", http.StatusInternalServerError)
	}))
	defer failing.Close()

	slow := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(time.Second):
		}
		_, _ = w.Write([]byte("%PDF"))
	}))
	defer slow.Close()

	cases := map[string]Exporter{
		"server_error":   NewGotenbergExporter(NewGotenbergClient(failing.URL, nil), time.Second, nil, nil),
		"timeout":        NewGotenbergExporter(NewGotenbergClient(slow.URL, nil), 50*time.Millisecond, nil, nil),
		"not_configured": NewGotenbergExporter(NewGotenbergClient("", nil), time.Second, nil, nil),
	}
	for name, exporter := range cases {
		t.Run(name, func(t *testing.T) {
			out := exporter.Export(context.Background(), FromView(sampleView("classic", true)))
			assert.NotNil(t, out)
			assert.Empty(t, out)
		})
	}
}

func TestGotenbergPing(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/health" {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	assert.NoError(t, NewGotenbergClient(server.URL, nil).Ping(context.Background()))
	assert.ErrorIs(t, NewGotenbergClient("", nil).Ping(context.Background()), ErrGotenbergNotConfigured)
}
