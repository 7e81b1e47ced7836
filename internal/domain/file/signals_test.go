package file

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestNewSignals_LowercasesExtension(t *testing.T) {
	s := NewSignals("/tmp/Report.PDF", 2_500_000, "application/pdf", nil)
	if s.Extension() != ".pdf" {
		t.Errorf("Extension() = %q, want .pdf", s.Extension())
	}
	if s.SizeMegabytes() != 2.5 {
		t.Errorf("SizeMegabytes() = %v, want 2.5", s.SizeMegabytes())
	}
	if s.HasHistory() {
		t.Error("expected no history")
	}
}

func TestNewSignals_CopiesHistory(t *testing.T) {
	h := map[string]float64{"docling": 0.8}
	s := NewSignals("a.pdf", 1, "", h)
	h["docling"] = 0.1

	v, ok := s.HistoricalSuccess("docling")
	if !ok || v != 0.8 {
		t.Errorf("HistoricalSuccess = %v, %v; want 0.8, true", v, ok)
	}
	if _, ok := s.HistoricalSuccess("markitdown"); ok {
		t.Error("expected markitdown to be unknown")
	}
}

func TestSizeMegabytes_Empty(t *testing.T) {
	if got := NewSignals("a.txt", 0, "", nil).SizeMegabytes(); got != 0 {
		t.Errorf("SizeMegabytes() = %v, want 0", got)
	}
}

func TestGather_TextFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "notes.TXT")
	if err := os.WriteFile(path, []byte("hello world\n"), 0o600); err != nil {
		t.Fatal(err)
	}

	s, err := Gather(path, map[string]float64{"markitdown": 0.65})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if s.SizeBytes() != 12 {
		t.Errorf("SizeBytes() = %d, want 12", s.SizeBytes())
	}
	if s.Extension() != ".txt" {
		t.Errorf("Extension() = %q", s.Extension())
	}
	if !strings.HasPrefix(s.MIMEType(), "text/") {
		t.Errorf("MIMEType() = %q, want text/*", s.MIMEType())
	}
	if v, _ := s.HistoricalSuccess("markitdown"); v != 0.65 {
		t.Errorf("history = %v", v)
	}
}

func TestGather_Missing(t *testing.T) {
	if _, err := Gather(filepath.Join(t.TempDir(), "nope.pdf"), nil); err == nil {
		t.Fatal("expected error for missing file")
	}
}

func TestGather_Directory(t *testing.T) {
	if _, err := Gather(t.TempDir(), nil); err == nil {
		t.Fatal("expected error for directory")
	}
}
