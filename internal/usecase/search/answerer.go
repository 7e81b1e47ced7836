package search

import (
	"context"
	"fmt"
	"strings"

	"github.com/kailas-cloud/semdesk/internal/domain"
)

const answerInstructions = "You are a helpful assistant with access to document snippets.\n" +
	"Use ONLY the provided documents to answer the question.\n" +
	"Cite the most relevant document when responding.\n"

// AnswererOptions tune the prompt built by ContextAnswerer.
type AnswererOptions struct {
	Model          string
	MaxDocuments   int
	MaxCharsPerDoc int
}

// ContextAnswerer asks a text generator to answer from document snippets only.
type ContextAnswerer struct {
	gen  domain.Generator
	opts AnswererOptions
}

// NewContextAnswerer creates an answerer. Zero options fall back to gemma3:4b-it-qat, 3 documents and 2000 chars.
func NewContextAnswerer(gen domain.Generator, opts AnswererOptions) *ContextAnswerer {
	if opts.Model == "" {
		opts.Model = "gemma3:4b-it-qat"
	}
	if opts.MaxDocuments <= 0 {
		opts.MaxDocuments = 3
	}
	if opts.MaxCharsPerDoc <= 0 {
		opts.MaxCharsPerDoc = 2000
	}
	return &ContextAnswerer{gen: gen, opts: opts}
}

// Answer generates an answer to question citing contexts.
func (a *ContextAnswerer) Answer(ctx context.Context, question string, contexts []Context) (string, error) {
	question = strings.TrimSpace(question)
	if question == "" {
		return "", fmt.Errorf("question must contain text: %w", domain.ErrInvalidInput)
	}
	if len(contexts) == 0 {
		return "", fmt.Errorf("at least one context snippet is required: %w", domain.ErrInvalidInput)
	}
	if len(contexts) > a.opts.MaxDocuments {
		contexts = contexts[:a.opts.MaxDocuments]
	}

	text, err := a.gen.Generate(ctx, a.opts.Model, a.buildPrompt(question, contexts))
	if err != nil {
		return "", fmt.Errorf("generate answer: %w", err)
	}
	return text, nil
}

func (a *ContextAnswerer) buildPrompt(question string, contexts []Context) string {
	blocks := make([]string, 0, len(contexts))
	for i, c := range contexts {
		source := c.SourcePath
		if source == "" {
			source = "unknown"
		}
		blocks = append(blocks, fmt.Sprintf("Document %d (source: %s):\n%s",
			i+1, source, truncateRunes(c.Content, a.opts.MaxCharsPerDoc)))
	}
	return answerInstructions + "\n" + strings.Join(blocks, "\n\n") + "\n\nQuestion: " + question + "\nAnswer:"
}
