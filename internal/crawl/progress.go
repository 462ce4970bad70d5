package crawl

import "fmt"

// EventKind classifies crawl progress events.
type EventKind string

const (
	EventQueued   EventKind = "queued"   // directory discovered, waiting for analysis
	EventAnalyzed EventKind = "analyzed" // directory graph built
	EventSkipped  EventKind = "skipped"  // file kept as a bare node after a failed fetch or parse
	EventFailed   EventKind = "failed"   // directory analysis failed; subtree unreachable
)

// Event is one progress notification from a crawl.
type Event struct {
	Kind    EventKind `json:"kind"`
	Path    string    `json:"path"`
	Detail  string    `json:"detail,omitempty"`
	Files   int       `json:"files,omitempty"`
	Subdirs int       `json:"subdirs,omitempty"`
}

// Reporter emits crawl events through a buffered channel.
type Reporter struct {
	ch chan Event
}

// NewReporter creates a Reporter with a buffered channel of size 64.
func NewReporter() *Reporter {
	return &Reporter{
		ch: make(chan Event, 64),
	}
}

// Emit sends an event in a non-blocking fashion. If the channel is full,
// the event is silently dropped; a slow consumer never stalls the crawl.
func (r *Reporter) Emit(event Event) {
	select {
	case r.ch <- event:
	default:
		// Drop the event if the channel is full.
	}
}

// Subscribe returns a read-only channel for consuming events.
func (r *Reporter) Subscribe() <-chan Event {
	return r.ch
}

// Close closes the event channel.
func (r *Reporter) Close() {
	close(r.ch)
}

// FormatEvent formats an Event as a human-readable status line.
func FormatEvent(event Event) string {
	switch event.Kind {
	case EventQueued:
		return fmt.Sprintf("  ○ %s (queued)", event.Path)
	case EventAnalyzed:
		return fmt.Sprintf("  ✓ %s (%d files, %d subdirs)", event.Path, event.Files, event.Subdirs)
	case EventSkipped:
		return fmt.Sprintf("  - %s skipped: %s", event.Path, event.Detail)
	case EventFailed:
		return fmt.Sprintf("  ✗ %s failed: %s", event.Path, event.Detail)
	default:
		return fmt.Sprintf("  ? %s", event.Path)
	}
}
