package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"golang.org/x/sync/singleflight"
	"golang.org/x/time/rate"
)

const defaultTimeout = 60 * time.Second

// Operation names the service endpoints. They key the single-flight
// groups so at most one call per operation kind is in flight.
const (
	opUploadTemplate  = "upload-template"
	opUploadCSV       = "upload-csv"
	opSaveMapping     = "save-mapping"
	opGeneratePreview = "generate-preview"
	opPreviewEmail    = "preview-email"
	opSendCerts       = "send-certificates"
)

// Client talks to the certificate service. Calls are rate limited
// client-side and deduplicated per operation kind; failed calls are
// never retried automatically.
type Client struct {
	baseURL    string
	httpClient *http.Client
	limiter    *rate.Limiter
	group      singleflight.Group
	logger     *slog.Logger
}

// ClientOption configures a Client.
type ClientOption func(*Client)

// WithLogger sets the logger for the client.
func WithLogger(logger *slog.Logger) ClientOption {
	return func(c *Client) {
		c.logger = logger
	}
}

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(hc *http.Client) ClientOption {
	return func(c *Client) {
		c.httpClient = hc
	}
}

// WithRateLimit sets the client-side request rate in queries per second.
func WithRateLimit(qps float64) ClientOption {
	return func(c *Client) {
		if qps > 0 {
			c.limiter = rate.NewLimiter(rate.Limit(qps), int(qps)+1)
		}
	}
}

// NewClient creates a client for the service at baseURL.
func NewClient(baseURL string, opts ...ClientOption) *Client {
	c := &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: defaultTimeout},
		limiter:    rate.NewLimiter(rate.Limit(5), 10),
		logger:     slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// UploadTemplate posts the template file and returns the durable file
// name plus the placeholders discovered in it.
func (c *Client) UploadTemplate(ctx context.Context, path string) (*TemplateUpload, error) {
	var out TemplateUpload
	err := c.uploadFile(ctx, opUploadTemplate, "/api/upload-template", path, &out)
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// UploadCSV posts the recipient CSV and returns the durable file name
// plus the header columns.
func (c *Client) UploadCSV(ctx context.Context, path string) (*CSVUpload, error) {
	var out CSVUpload
	err := c.uploadFile(ctx, opUploadCSV, "/api/upload-csv", path, &out)
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// SaveMapping persists the mapping configuration on the service.
func (c *Client) SaveMapping(ctx context.Context, cfg MappingConfig) error {
	_, err := c.postJSON(ctx, opSaveMapping, "/api/save-mapping", cfg)
	return err
}

// GeneratePreview renders one certificate from the first data row and
// returns the binary payload (a PDF).
func (c *Client) GeneratePreview(ctx context.Context, req PreviewRequest) ([]byte, error) {
	return c.postJSON(ctx, opGeneratePreview, "/api/generate-preview", req)
}

// PreviewEmail renders the email subject and body with substitutions
// from the first data row.
func (c *Client) PreviewEmail(ctx context.Context, req EmailPreviewRequest) (*EmailPreview, error) {
	data, err := c.postJSON(ctx, opPreviewEmail, "/api/preview-email", req)
	if err != nil {
		return nil, err
	}
	var out EmailPreview
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, fmt.Errorf("parse email preview: %w", err)
	}
	return &out, nil
}

// SendCertificates generates and mails every certificate.
func (c *Client) SendCertificates(ctx context.Context, req SendRequest) (*SendResult, error) {
	data, err := c.postJSON(ctx, opSendCerts, "/api/send-certificates", req)
	if err != nil {
		return nil, err
	}
	var out SendResult
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, fmt.Errorf("parse send result: %w", err)
	}
	return &out, nil
}

// postJSON marshals v and posts it to path, deduplicating concurrent
// calls of the same operation kind.
func (c *Client) postJSON(ctx context.Context, op, path string, v any) ([]byte, error) {
	body, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}
	res, err, _ := c.group.Do(op, func() (any, error) {
		return c.do(ctx, path, "application/json", bytes.NewReader(body))
	})
	if err != nil {
		return nil, err
	}
	return res.([]byte), nil
}

// uploadFile posts the file at path as a multipart form under the
// "file" field and unmarshals the JSON response into out.
func (c *Client) uploadFile(ctx context.Context, op, urlPath, filePath string, out any) error {
	res, err, _ := c.group.Do(op, func() (any, error) {
		f, err := os.Open(filePath)
		if err != nil {
			return nil, fmt.Errorf("open %s: %w", filePath, err)
		}
		defer f.Close()

		var buf bytes.Buffer
		mw := multipart.NewWriter(&buf)
		part, err := mw.CreateFormFile("file", filepath.Base(filePath))
		if err != nil {
			return nil, fmt.Errorf("create form file: %w", err)
		}
		if _, err := io.Copy(part, f); err != nil {
			return nil, fmt.Errorf("read %s: %w", filePath, err)
		}
		if err := mw.Close(); err != nil {
			return nil, fmt.Errorf("finish form: %w", err)
		}

		return c.do(ctx, urlPath, mw.FormDataContentType(), &buf)
	})
	if err != nil {
		return err
	}
	return json.Unmarshal(res.([]byte), out)
}

// do performs a single POST. No retries: the wizard surfaces failures
// to the operator, who decides whether to try again.
func (c *Client) do(ctx context.Context, path, contentType string, body io.Reader) ([]byte, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limit: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, body)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", contentType)

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("http request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	c.logger.Debug("service call",
		"path", path,
		"status", resp.StatusCode,
		"bytes", len(respBody),
		"duration", time.Since(start),
	)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, newAPIError(resp.StatusCode, respBody)
	}
	return respBody, nil
}

// newAPIError builds an APIError, pulling the "error" field out of a
// JSON body when one is present.
func newAPIError(status int, body []byte) *APIError {
	apiErr := &APIError{StatusCode: status, Body: string(body)}
	var parsed struct {
		Error   string `json:"error"`
		Message string `json:"message"`
	}
	if err := json.Unmarshal(body, &parsed); err == nil {
		if parsed.Error != "" {
			apiErr.Message = parsed.Error
		} else if parsed.Message != "" {
			apiErr.Message = parsed.Message
		}
	}
	return apiErr
}
