package db

// KNNQuery is the input for vector similarity search.
type KNNQuery struct {
	IndexName string
	// VectorAttr names the vector attribute to search. Empty means "vector".
	VectorAttr string
	Vector     []float32
	K          int
	// Scope restricts candidates to entries whose TAG field equals the value.
	Scope        map[string]string
	ReturnFields []string
}

// SearchResult is the output of a search operation.
type SearchResult struct {
	Total   int
	Entries []SearchEntry
}

// SearchEntry is a single hit. Distance is the raw metric value, lower is closer.
type SearchEntry struct {
	Key      string
	Distance float64
	Fields   map[string]string
}
