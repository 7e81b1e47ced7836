package conversion

import (
	"context"
	"os"
	"path/filepath"
	"testing"
)

// mockConverter returns canned text or error and counts calls.
type mockConverter struct {
	text  string
	err   error
	calls int
}

func (m *mockConverter) Convert(_ context.Context, _ string) (string, error) {
	m.calls++
	return m.text, m.err
}

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
	return path
}
