package pdf

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"time"

	"github.com/smallbiznis/invoicely/internal/invoice/render"
	"github.com/smallbiznis/invoicely/internal/observability/metrics"
	"github.com/smallbiznis/invoicely/internal/observability/tracing"
	"go.opentelemetry.io/otel/propagation"
	"go.uber.org/zap"
)

var ErrGotenbergNotConfigured = errors.New("gotenberg_url_not_configured")

// GotenbergClient converts rendered HTML into PDF through a Gotenberg service.
type GotenbergClient struct {
	baseURL    string
	httpClient *http.Client
	renderer   render.Renderer
}

func NewGotenbergClient(baseURL string, httpClient *http.Client) *GotenbergClient {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 30 * time.Second}
	}
	return &GotenbergClient{
		baseURL:    baseURL,
		httpClient: httpClient,
		renderer:   render.NewRenderer(),
	}
}

// NewGotenbergExporter prints the same HTML the browser preview shows.
func NewGotenbergExporter(client *GotenbergClient, timeout time.Duration, log *zap.Logger, m *metrics.InvoiceMetrics) Exporter {
	return newSoftExporter("gotenberg", client.generate, timeout, log, m)
}

func (c *GotenbergClient) generate(ctx context.Context, src Source) ([]byte, error) {
	html, err := c.html(src)
	if err != nil {
		return nil, err
	}
	return c.RenderHTML(ctx, html)
}

func (c *GotenbergClient) html(src Source) ([]byte, error) {
	if src.Document != nil && len(src.Document.HTML) > 0 {
		return src.Document.HTML, nil
	}
	view, ok := src.view()
	if !ok {
		return nil, errNoView
	}
	doc, err := c.renderer.Render(view.Template, view)
	if err != nil {
		return nil, err
	}
	return doc.HTML, nil
}

// Ping checks if the remote Gotenberg service is available.
func (c *GotenbergClient) Ping(ctx context.Context) error {
	if c.baseURL == "" {
		return ErrGotenbergNotConfigured
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fmt.Sprintf("%s/health", c.baseURL), nil)
	if err != nil {
		return err
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer func() {
		_ = resp.Body.Close()
	}()
	if resp.StatusCode >= 400 {
		return fmt.Errorf("gotenberg returned status %d", resp.StatusCode)
	}
	return nil
}

// RenderHTML converts raw HTML into a PDF document.
func (c *GotenbergClient) RenderHTML(ctx context.Context, html []byte) ([]byte, error) {
	if c.baseURL == "" {
		return nil, ErrGotenbergNotConfigured
	}
	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)
	part, err := writer.CreateFormFile("files", "index.html")
	if err != nil {
		return nil, err
	}
	if _, err := io.Copy(part, bytes.NewReader(html)); err != nil {
		return nil, err
	}
	if err := writer.Close(); err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, fmt.Sprintf("%s/forms/chromium/convert/html", c.baseURL), body)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())
	tracing.InjectContext(ctx, propagation.HeaderCarrier(req.Header))

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer func() {
		_ = resp.Body.Close()
	}()
	if resp.StatusCode >= 400 {
		return nil, fmt.Errorf("gotenberg render failed with status %d", resp.StatusCode)
	}
	return io.ReadAll(resp.Body)
}
