// Package summary distills markdown into a short description and topic tags
// with a text generator.
package summary

import (
	"context"
	"encoding/json"
	"fmt"
	"regexp"
	"strings"

	"github.com/kailas-cloud/semdesk/internal/domain"
	"github.com/kailas-cloud/semdesk/internal/domain/record"
)

const instructions = "You are an assistant that distills markdown documents. " +
	"Read the content and respond with compact JSON that matches:\n" +
	"{\n  \"description\": \"2-3 sentence summary\",\n" +
	"  \"tags\": [\"noun phrase 1\", \"noun phrase 2\"]\n}\n" +
	"Prefer 3-8 lower-case noun tags without punctuation. Do not explain the JSON."

var tagSeparators = regexp.MustCompile(`[;,]`)

// Generator produces text from a prompt.
type Generator interface {
	Generate(ctx context.Context, model, prompt string) (string, error)
}

// Options configure the summarizer. Zero fields take defaults.
type Options struct {
	Model    string
	MaxChars int
}

// Summary is a generated description with normalized tags.
type Summary struct {
	Description string
	Tags        []string
}

// Service summarizes markdown.
type Service struct {
	gen  Generator
	opts Options
}

// New creates a summarizer.
func New(gen Generator, opts Options) *Service {
	if opts.Model == "" {
		opts.Model = "gemma3:4b-it-qat"
	}
	if opts.MaxChars <= 0 {
		opts.MaxChars = 12_000
	}
	return &Service{gen: gen, opts: opts}
}

// Summarize asks the generator for a JSON description and tag list.
func (s *Service) Summarize(ctx context.Context, markdown string) (Summary, error) {
	text := strings.TrimSpace(markdown)
	if text == "" {
		return Summary{}, fmt.Errorf("markdown content is empty: %w", domain.ErrInvalidInput)
	}

	resp, err := s.gen.Generate(ctx, s.opts.Model, s.buildPrompt(text))
	if err != nil {
		return Summary{}, fmt.Errorf("generate summary: %w", err)
	}

	payload, err := parseResponse(resp)
	if err != nil {
		return Summary{}, err
	}

	description := stringField(payload, "description")
	if description == "" {
		description = stringField(payload, "summary")
	}
	if description == "" {
		return Summary{}, fmt.Errorf("response did not include a description: %w", domain.ErrInvalidSummary)
	}

	return Summary{Description: description, Tags: normalizeTags(payload["tags"])}, nil
}

func (s *Service) buildPrompt(text string) string {
	if r := []rune(text); len(r) > s.opts.MaxChars {
		text = string(r[:s.opts.MaxChars])
	}
	return instructions + "\n\n<<<CONTENT START>>>\n" + text + "\n<<<CONTENT END>>>"
}

// parseResponse decodes the whole response, then the outermost brace-delimited block.
func parseResponse(resp string) (map[string]any, error) {
	raw := strings.TrimSpace(resp)
	for _, candidate := range []string{raw, jsonBlock(raw)} {
		if candidate == "" {
			continue
		}
		var payload map[string]any
		if err := json.Unmarshal([]byte(candidate), &payload); err == nil && payload != nil {
			return payload, nil
		}
	}
	return nil, fmt.Errorf("unable to parse JSON from response: %w", domain.ErrInvalidSummary)
}

func jsonBlock(s string) string {
	start := strings.Index(s, "{")
	end := strings.LastIndex(s, "}")
	if start == -1 || end <= start {
		return ""
	}
	return s[start : end+1]
}

func stringField(payload map[string]any, key string) string {
	v, _ := payload[key].(string)
	return strings.TrimSpace(v)
}

// normalizeTags accepts a JSON list or a delimited string; non-string items are dropped.
func normalizeTags(v any) []string {
	var candidates []string
	switch tags := v.(type) {
	case string:
		candidates = tagSeparators.Split(tags, -1)
	case []any:
		for _, t := range tags {
			if s, ok := t.(string); ok {
				candidates = append(candidates, s)
			}
		}
	}
	return record.NormalizeTags(candidates)
}
