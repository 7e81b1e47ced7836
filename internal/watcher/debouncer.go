package watcher

import (
	"slices"
	"strings"
	"sync"
	"time"
)

// Operation is the kind of change seen for a path.
type Operation int

const (
	// OpCreate is a new file.
	OpCreate Operation = iota
	// OpModify is a changed file.
	OpModify
	// OpDelete is a removed or renamed-away file.
	OpDelete
)

func (o Operation) String() string {
	switch o {
	case OpCreate:
		return "create"
	case OpModify:
		return "modify"
	case OpDelete:
		return "delete"
	default:
		return "unknown"
	}
}

// Event is one coalesced change.
type Event struct {
	Path      string
	Operation Operation
}

// Debouncer coalesces rapid events per path and emits them as one batch
// after the window passes without new events.
//   - CREATE + MODIFY = CREATE
//   - CREATE + DELETE = nothing
//   - DELETE + CREATE = MODIFY
//   - otherwise the latest operation wins
type Debouncer struct {
	window  time.Duration
	mu      sync.Mutex
	pending map[string]Operation
	timer   *time.Timer
	output  chan []Event
	stopped bool
}

// NewDebouncer creates a debouncer with the given window.
func NewDebouncer(window time.Duration) *Debouncer {
	return &Debouncer{
		window:  window,
		pending: make(map[string]Operation),
		output:  make(chan []Event, 1),
	}
}

// Add records an event and restarts the window.
func (d *Debouncer) Add(e Event) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.stopped {
		return
	}

	if prev, ok := d.pending[e.Path]; ok {
		switch {
		case prev == OpCreate && e.Operation == OpModify:
		case prev == OpCreate && e.Operation == OpDelete:
			delete(d.pending, e.Path)
		case prev == OpDelete && e.Operation == OpCreate:
			d.pending[e.Path] = OpModify
		default:
			d.pending[e.Path] = e.Operation
		}
	} else {
		d.pending[e.Path] = e.Operation
	}

	if d.timer != nil {
		d.timer.Stop()
	}
	d.timer = time.AfterFunc(d.window, d.flush)
}

// flush emits pending events sorted by path. A batch still unread merges into the next one.
func (d *Debouncer) flush() {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.stopped || len(d.pending) == 0 {
		return
	}

	batch := make([]Event, 0, len(d.pending))
	for p, op := range d.pending {
		batch = append(batch, Event{Path: p, Operation: op})
	}
	slices.SortFunc(batch, func(a, b Event) int { return strings.Compare(a.Path, b.Path) })

	select {
	case d.output <- batch:
		d.pending = make(map[string]Operation)
	default:
		// keep pending; retry after another window
		d.timer = time.AfterFunc(d.window, d.flush)
	}
}

// Output returns the channel of debounced batches.
func (d *Debouncer) Output() <-chan []Event {
	return d.output
}

// Stop discards pending events and closes the output channel. Safe to call multiple times.
func (d *Debouncer) Stop() {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.stopped {
		return
	}
	d.stopped = true
	if d.timer != nil {
		d.timer.Stop()
	}
	close(d.output)
}
