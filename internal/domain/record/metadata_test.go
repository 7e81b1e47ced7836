package record

import (
	"reflect"
	"testing"
	"time"

	"github.com/kailas-cloud/semdesk/internal/domain"
)

func TestNewMetadata(t *testing.T) {
	loc := time.FixedZone("X", 3*3600)
	mod := time.Date(2026, 3, 1, 12, 0, 0, 0, loc)
	now := time.Date(2026, 3, 2, 9, 30, 0, 0, loc)

	m := NewMetadata(Source{Path: "/docs/Q1 Report.PDF", SizeBytes: 1234, ModifiedAt: mod},
		"/idx/docs/Q1 Report.PDF.md", "docling", now)

	if m.FileName != "Q1 Report.PDF" {
		t.Errorf("FileName = %q", m.FileName)
	}
	if m.FileExtension != ".pdf" {
		t.Errorf("FileExtension = %q", m.FileExtension)
	}
	if m.FileType != "application/pdf" {
		t.Errorf("FileType = %q", m.FileType)
	}
	if m.IndexedAt.Location() != time.UTC || !m.IndexedAt.Equal(now) {
		t.Errorf("IndexedAt = %v", m.IndexedAt)
	}
	if !m.ModifiedAt.Equal(mod) {
		t.Errorf("ModifiedAt = %v", m.ModifiedAt)
	}
	if m.Description != "" || len(m.Tags) != 0 || m.Tags == nil {
		t.Errorf("expected empty description and non-nil empty tags, got %q %v", m.Description, m.Tags)
	}
}

func TestNewMetadata_UnknownConverterAndType(t *testing.T) {
	m := NewMetadata(Source{Path: "/nonexistent/blob.zzzq"}, "x.md", "", time.Now())
	if m.Converter != UnknownConverter {
		t.Errorf("Converter = %q", m.Converter)
	}
	if m.FileType != fallbackMIME {
		t.Errorf("FileType = %q, want %q", m.FileType, fallbackMIME)
	}
}

func TestWithSummary(t *testing.T) {
	m := NewMetadata(Source{Path: "a.txt"}, "a.txt.md", "markitdown", time.Now())
	got := m.WithSummary("  A memo.  ", []string{"Budget", "budget", "Q1 plan!"})
	if got.Description != "A memo." {
		t.Errorf("Description = %q", got.Description)
	}
	if !reflect.DeepEqual(got.Tags, []string{"budget", "q1 plan"}) {
		t.Errorf("Tags = %v", got.Tags)
	}
	if len(m.Tags) != 0 {
		t.Error("receiver must not be mutated")
	}
}

func TestNormalizeTags(t *testing.T) {
	tests := []struct {
		name string
		in   []string
		want []string
	}{
		{"empty", nil, []string{}},
		{"punctuation", []string{"Tax-Return.", "  invoices, "}, []string{"tax-return", "invoices"}},
		{"dedupe keeps first", []string{"b", "a", "B"}, []string{"b", "a"}},
		{"drops blanks", []string{"", "!!!", "ok"}, []string{"ok"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := NormalizeTags(tt.in); !reflect.DeepEqual(got, tt.want) {
				t.Errorf("NormalizeTags(%v) = %v, want %v", tt.in, got, tt.want)
			}
		})
	}
}

func TestEmbeddingBuilders(t *testing.T) {
	d := DocumentEmbedding("s", "m", []float32{1})
	if d.Variant != domain.VariantDocument || d.Label != "" {
		t.Errorf("document row = %+v", d)
	}
	tg := TagEmbedding("s", "m", "alpha", []float32{1})
	if tg.Variant != domain.VariantTags || tg.Label != "alpha" {
		t.Errorf("tag row = %+v", tg)
	}
}

func TestSourceID(t *testing.T) {
	a, b := SourceID("/docs/a.txt"), SourceID("/docs/b.txt")
	if a == b {
		t.Fatal("distinct paths must yield distinct ids")
	}
	if a != SourceID("/docs/a.txt") {
		t.Error("SourceID must be deterministic")
	}
	if len(a) != 32 {
		t.Errorf("len = %d, want 32", len(a))
	}
}
