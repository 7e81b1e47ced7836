// Package docling converts documents through a docling-serve HTTP endpoint.
package docling

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"
)

const (
	// DefaultBaseURL is the docling-serve default listen address.
	DefaultBaseURL = "http://localhost:5001"
	// DefaultConvertPath is the file conversion endpoint.
	DefaultConvertPath = "/v1/convert/file"
)

// Config holds the docling-serve settings.
type Config struct {
	BaseURL string
	Path    string
	Timeout time.Duration
}

// Document is the converted document in a docling-serve response.
type Document struct {
	Filename    string `json:"filename"`
	MDContent   string `json:"md_content"`
	TextContent string `json:"text_content"`
}

// Response is the raw body of a conversion request.
type Response struct {
	Document Document `json:"document"`
	Status   string   `json:"status"`
	Errors   []struct {
		Message string `json:"error_message"`
	} `json:"errors"`
	ProcessingTime float64 `json:"processing_time"`
}

// Client talks to docling-serve.
type Client struct {
	baseURL string
	path    string
	client  *http.Client
}

// New creates a client.
func New(cfg Config) *Client {
	baseURL := strings.TrimRight(cfg.BaseURL, "/")
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	path := cfg.Path
	if path == "" {
		path = DefaultConvertPath
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 5 * time.Minute
	}
	return &Client{
		baseURL: baseURL,
		path:    path,
		client:  &http.Client{Timeout: timeout},
	}
}

// HealthCheck probes the /health endpoint.
func (c *Client) HealthCheck(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/health", nil)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("docling health: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("docling health: status %d", resp.StatusCode)
	}
	return nil
}

// Convert uploads the file at path and requests markdown output.
func (c *Client) Convert(ctx context.Context, path string) (Response, error) {
	body, contentType, err := buildUpload(path)
	if err != nil {
		return Response{}, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+c.path, body)
	if err != nil {
		return Response{}, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", contentType)
	req.Header.Set("Accept", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return Response{}, fmt.Errorf("docling request: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return Response{}, fmt.Errorf("docling returned status %d: %s", resp.StatusCode, strings.TrimSpace(string(msg)))
	}

	var out Response
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return Response{}, fmt.Errorf("decode docling response: %w", err)
	}
	if out.Status == "failure" {
		return Response{}, fmt.Errorf("docling conversion failed: %s", out.errorMessage())
	}
	return out, nil
}

func (r Response) errorMessage() string {
	msgs := make([]string, 0, len(r.Errors))
	for _, e := range r.Errors {
		if e.Message != "" {
			msgs = append(msgs, e.Message)
		}
	}
	if len(msgs) == 0 {
		return "no details"
	}
	return strings.Join(msgs, "; ")
}

// ExtractText prefers markdown content and falls back to plain text.
func ExtractText(r Response) (string, bool) {
	for _, s := range []string{r.Document.MDContent, r.Document.TextContent} {
		if strings.TrimSpace(s) != "" {
			return s, true
		}
	}
	return "", false
}

func buildUpload(path string) (io.Reader, string, error) {
	f, err := os.Open(path) //nolint:gosec // path comes from the indexed folder
	if err != nil {
		return nil, "", fmt.Errorf("open %s: %w", path, err)
	}
	defer func() { _ = f.Close() }()

	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	if err := w.WriteField("to_formats", "md"); err != nil {
		return nil, "", fmt.Errorf("write form: %w", err)
	}
	part, err := w.CreateFormFile("files", filepath.Base(path))
	if err != nil {
		return nil, "", fmt.Errorf("create form file: %w", err)
	}
	if _, err := io.Copy(part, f); err != nil {
		return nil, "", fmt.Errorf("copy %s: %w", path, err)
	}
	if err := w.Close(); err != nil {
		return nil, "", fmt.Errorf("close form: %w", err)
	}
	return &buf, w.FormDataContentType(), nil
}
