// Package markitdown runs the markitdown CLI to convert documents to markdown.
package markitdown

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"
	"time"
)

// DefaultBinary is the markitdown executable looked up on PATH.
const DefaultBinary = "markitdown"

// ErrUnavailable signals that the markitdown binary cannot be found.
var ErrUnavailable = errors.New("markitdown binary not found")

// Config holds the CLI settings.
type Config struct {
	Binary  string
	Timeout time.Duration
}

// Result is the raw output of one markitdown run.
type Result struct {
	Markdown string
	Stderr   string
}

// Client invokes markitdown once per file.
type Client struct {
	binary  string
	timeout time.Duration
}

// New creates a client. It does not check that the binary exists; see Available.
func New(cfg Config) *Client {
	bin := cfg.Binary
	if bin == "" {
		bin = DefaultBinary
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 2 * time.Minute
	}
	return &Client{binary: bin, timeout: timeout}
}

// Available reports whether the binary resolves on PATH.
func (c *Client) Available() bool {
	_, err := exec.LookPath(c.binary)
	return err == nil
}

// HealthCheck fails when the binary cannot be found.
func (c *Client) HealthCheck(_ context.Context) error {
	if !c.Available() {
		return fmt.Errorf("%s: %w", c.binary, ErrUnavailable)
	}
	return nil
}

// Convert runs `markitdown <path>` and captures stdout as markdown.
func (c *Client) Convert(ctx context.Context, path string) (Result, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	var stdout, stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, c.binary, path) //nolint:gosec // binary comes from config
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		if errors.Is(err, exec.ErrNotFound) {
			return Result{}, fmt.Errorf("%s: %w", c.binary, ErrUnavailable)
		}
		if msg := lastLine(stderr.String()); msg != "" {
			return Result{}, fmt.Errorf("markitdown failed: %s: %w", msg, err)
		}
		return Result{}, fmt.Errorf("markitdown failed: %w", err)
	}
	return Result{Markdown: stdout.String(), Stderr: stderr.String()}, nil
}

// ExtractText returns the markdown of r, false when it is blank.
func ExtractText(r Result) (string, bool) {
	if strings.TrimSpace(r.Markdown) == "" {
		return "", false
	}
	return r.Markdown, true
}

func lastLine(s string) string {
	lines := strings.Split(strings.TrimSpace(s), "\n")
	return strings.TrimSpace(lines[len(lines)-1])
}
