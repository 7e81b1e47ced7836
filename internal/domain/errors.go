package domain

import "errors"

var (
	// ErrNotFound signals a missing resource.
	ErrNotFound = errors.New("not found")
	// ErrInvalidInput signals a request rejected before any I/O.
	ErrInvalidInput = errors.New("invalid input")
	// ErrUnknownVariant signals an embedding variant other than document or tags.
	ErrUnknownVariant = errors.New("unknown embedding variant")
	// ErrConversionFailed signals that no converter produced usable text.
	ErrConversionFailed = errors.New("conversion failed")
	// ErrEmbeddingProviderError signals an embedding provider failure.
	ErrEmbeddingProviderError = errors.New("embedding provider error")
	// ErrGeneratorError signals a text generation failure.
	ErrGeneratorError = errors.New("generator error")
	// ErrInvalidSummary signals a generator response without a usable description.
	ErrInvalidSummary = errors.New("invalid summary response")
)
