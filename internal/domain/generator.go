package domain

import "context"

// Generator produces free text from a prompt with the named model.
type Generator interface {
	Generate(ctx context.Context, model, prompt string) (string, error)
}
