package db

import (
	"errors"
	"fmt"
	"strings"
)

// DistanceMetric is the vector distance reported by KNN queries. Lower is closer.
type DistanceMetric string

// Supported distance metrics.
const (
	DistanceL2     DistanceMetric = "L2"     // squared euclidean
	DistanceIP     DistanceMetric = "IP"     // 1 - dot(a, b)
	DistanceCosine DistanceMetric = "COSINE" // 1 - cos(a, b), in [0, 2]
)

// VectorAlgorithm is the ANN structure built for the vector attribute.
type VectorAlgorithm string

// Supported vector algorithms.
const (
	VectorHNSW VectorAlgorithm = "HNSW"
	VectorFlat VectorAlgorithm = "FLAT"
)

// ParseVectorAlgorithm maps a config value to an algorithm, case-insensitively.
// Empty selects HNSW.
func ParseVectorAlgorithm(s string) (VectorAlgorithm, error) {
	switch strings.ToUpper(s) {
	case "", string(VectorHNSW):
		return VectorHNSW, nil
	case string(VectorFlat):
		return VectorFlat, nil
	}
	return "", fmt.Errorf("unknown vector algorithm %q", s)
}

// VectorField is the single FLOAT32 vector attribute of an index.
type VectorField struct {
	// Field is the hash field holding the little-endian float32 blob.
	Field string
	// Alias is the attribute name KNN clauses refer to. Empty means Field.
	Alias string
	Dim   int

	Algorithm VectorAlgorithm // empty means HNSW
	Distance  DistanceMetric  // empty means COSINE

	// HNSW tuning, zero keeps server defaults. Ignored for FLAT.
	M              int
	EFConstruction int
}

// Name is the attribute name used in queries.
func (v VectorField) Name() string {
	if v.Alias != "" {
		return v.Alias
	}
	return v.Field
}

// IndexDefinition describes a hash index over every key under Prefix:
// exact-match tag attributes plus one vector attribute.
type IndexDefinition struct {
	Name   string
	Prefix string
	Tags   []string
	Vector VectorField
}

// Validate reports the first problem with the definition.
func (idx *IndexDefinition) Validate() error {
	switch {
	case idx.Name == "":
		return errors.New("index name is required")
	case !isValidIdentifier(idx.Name):
		return fmt.Errorf("index name %q contains invalid characters", idx.Name)
	case idx.Vector.Field == "":
		return errors.New("vector field is required")
	case idx.Vector.Dim <= 0:
		return fmt.Errorf("vector dimension must be positive, got %d", idx.Vector.Dim)
	}

	seen := map[string]struct{}{idx.Vector.Name(): {}}
	for _, tag := range idx.Tags {
		if tag == "" {
			return errors.New("tag attribute name is required")
		}
		if _, dup := seen[tag]; dup {
			return fmt.Errorf("duplicate attribute %q", tag)
		}
		seen[tag] = struct{}{}
	}
	return nil
}

// isValidIdentifier reports whether s is non-empty and made of [a-zA-Z0-9_:-].
func isValidIdentifier(s string) bool {
	if s == "" {
		return false
	}
	return strings.IndexFunc(s, func(r rune) bool {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			return false
		case r == '_' || r == ':' || r == '-':
			return false
		}
		return true
	}) < 0
}
