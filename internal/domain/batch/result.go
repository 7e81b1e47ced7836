// Package batch describes per-file outcomes of an indexing run.
package batch

// Action is what an indexing run did with one source file.
type Action string

// Indexing actions.
const (
	ActionConverted  Action = "converted"
	ActionBackfilled Action = "backfilled"
	ActionSkipped    Action = "skipped"
	ActionFailed     Action = "failed"
)

// Result is the outcome of processing one source file in an indexing run.
type Result struct {
	source    string
	action    Action
	converter string
	degraded  bool
	err       error
}

// NewConverted records a fresh conversion by the named converter.
func NewConverted(source, converter string) Result {
	return Result{source: source, action: ActionConverted, converter: converter}
}

// NewBackfilled records enrichment of an existing markdown file.
func NewBackfilled(source string) Result {
	return Result{source: source, action: ActionBackfilled}
}

// NewSkipped records a file that was already fully indexed.
func NewSkipped(source string) Result { return Result{source: source, action: ActionSkipped} }

// NewFailed records a file that could not be indexed.
func NewFailed(source string, err error) Result {
	return Result{source: source, action: ActionFailed, err: err}
}

// WithDegraded marks a result whose enrichment partially failed.
func (r Result) WithDegraded() Result {
	r.degraded = true
	return r
}

// Source returns the source file path.
func (r Result) Source() string { return r.source }

// Action returns what was done with the file.
func (r Result) Action() Action { return r.action }

// Converter returns the converter that produced the markdown, if any.
func (r Result) Converter() string { return r.converter }

// Degraded reports whether summary or embeddings are missing.
func (r Result) Degraded() bool { return r.degraded }

// Err returns the error, if any.
func (r Result) Err() error { return r.err }
