package domain

import (
	"fmt"
	"strings"
)

// KeyPrefix namespaces every key semdesk writes to the shared store.
const KeyPrefix = "semdesk:"

// Variant discriminates embeddings over a whole document from per-tag embeddings.
type Variant string

const (
	// VariantDocument is one embedding over the full markdown text.
	VariantDocument Variant = "document"
	// VariantTags is one embedding per tag string.
	VariantTags Variant = "tags"
)

// ParseVariant resolves a user-supplied variant name. Empty means document.
func ParseVariant(s string) (Variant, error) {
	switch Variant(strings.ToLower(strings.TrimSpace(s))) {
	case "", VariantDocument:
		return VariantDocument, nil
	case VariantTags:
		return VariantTags, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownVariant, s)
	}
}

// Valid reports whether v is a known variant.
func (v Variant) Valid() bool {
	return v == VariantDocument || v == VariantTags
}
