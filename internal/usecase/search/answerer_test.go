package search

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/kailas-cloud/semdesk/internal/domain"
)

func TestContextAnswerer_Prompt(t *testing.T) {
	gen := &mockGenerator{resp: "Answer text"}
	a := NewContextAnswerer(gen, AnswererOptions{})

	got, err := a.Answer(context.Background(), "  What changed? ", []Context{
		{SourcePath: "/a.txt", Content: "alpha"},
		{Content: "beta"},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != "Answer text" {
		t.Errorf("answer = %q", got)
	}
	if gen.model != "gemma3:4b-it-qat" {
		t.Errorf("model = %q", gen.model)
	}

	want := "You are a helpful assistant with access to document snippets.\n" +
		"Use ONLY the provided documents to answer the question.\n" +
		"Cite the most relevant document when responding.\n" +
		"\n" +
		"Document 1 (source: /a.txt):\nalpha" +
		"\n\n" +
		"Document 2 (source: unknown):\nbeta" +
		"\n\nQuestion: What changed?\nAnswer:"
	if gen.prompt != want {
		t.Errorf("prompt mismatch:\n got %q\nwant %q", gen.prompt, want)
	}
}

func TestContextAnswerer_Limits(t *testing.T) {
	gen := &mockGenerator{resp: "ok"}
	a := NewContextAnswerer(gen, AnswererOptions{Model: "m", MaxDocuments: 2, MaxCharsPerDoc: 4})

	_, err := a.Answer(context.Background(), "q", []Context{
		{SourcePath: "1", Content: "abcdefgh"},
		{SourcePath: "2", Content: "xy"},
		{SourcePath: "3", Content: "dropped"},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if strings.Contains(gen.prompt, "dropped") || strings.Contains(gen.prompt, "Document 3") {
		t.Error("contexts beyond MaxDocuments must be dropped")
	}
	if !strings.Contains(gen.prompt, "Document 1 (source: 1):\nabcd\n") {
		t.Errorf("content must be truncated, prompt = %q", gen.prompt)
	}
}

func TestContextAnswerer_Validation(t *testing.T) {
	gen := &mockGenerator{}
	a := NewContextAnswerer(gen, AnswererOptions{})

	_, err := a.Answer(context.Background(), " ", []Context{{Content: "x"}})
	if !errors.Is(err, domain.ErrInvalidInput) || !strings.Contains(err.Error(), "question must contain text") {
		t.Errorf("empty question: %v", err)
	}
	_, err = a.Answer(context.Background(), "q", nil)
	if !errors.Is(err, domain.ErrInvalidInput) || !strings.Contains(err.Error(), "at least one context snippet is required") {
		t.Errorf("no contexts: %v", err)
	}
	if gen.calls != 0 {
		t.Error("generator must not be called on invalid input")
	}
}

func TestContextAnswerer_GeneratorError(t *testing.T) {
	a := NewContextAnswerer(&mockGenerator{err: domain.ErrGeneratorError}, AnswererOptions{})
	_, err := a.Answer(context.Background(), "q", []Context{{Content: "x"}})
	if !errors.Is(err, domain.ErrGeneratorError) {
		t.Fatalf("expected ErrGeneratorError, got %v", err)
	}
}
