package orchestrator

import (
	"fmt"
	"sync"
)

// ProgressReporter emits progress events through a buffered channel.
type ProgressReporter struct {
	mu     sync.RWMutex
	ch     chan ProgressEvent
	closed bool
}

// NewProgressReporter creates a ProgressReporter with a buffered channel of size 64.
func NewProgressReporter() *ProgressReporter {
	return &ProgressReporter{
		ch: make(chan ProgressEvent, 64),
	}
}

// Emit sends a progress event in a non-blocking fashion.
// If the channel is full, the event is silently dropped.
// Events emitted after Close are discarded.
func (pr *ProgressReporter) Emit(event ProgressEvent) {
	pr.mu.RLock()
	defer pr.mu.RUnlock()
	if pr.closed {
		return
	}
	select {
	case pr.ch <- event:
	default:
		// Drop the event if the channel is full.
	}
}

// Subscribe returns a read-only channel for consuming progress events.
func (pr *ProgressReporter) Subscribe() <-chan ProgressEvent {
	return pr.ch
}

// Close closes the progress event channel.
func (pr *ProgressReporter) Close() {
	pr.mu.Lock()
	defer pr.mu.Unlock()
	if pr.closed {
		return
	}
	pr.closed = true
	close(pr.ch)
}

// FormatProgress formats a ProgressEvent as a human-readable status line.
func FormatProgress(event ProgressEvent) string {
	label := event.Node
	if event.Iteration > 0 {
		label = fmt.Sprintf("%s #%d", event.Node, event.Iteration)
	}
	switch event.Status {
	case ProgressPending:
		return fmt.Sprintf("  \u25cb %s (pending)", label)
	case ProgressWorking:
		return fmt.Sprintf("  \u25cf %s...", label)
	case ProgressComplete:
		if event.Message != "" {
			return fmt.Sprintf("  \u2713 %s complete (%s)", label, event.Message)
		}
		return fmt.Sprintf("  \u2713 %s complete", label)
	case ProgressFailed:
		return fmt.Sprintf("  \u2717 %s failed: %s", label, event.Message)
	default:
		return fmt.Sprintf("  ? %s (unknown status)", label)
	}
}

// FormatCaseHeader formats a case header for display.
// Returns: "[{docket}] In re {topic}"
func FormatCaseHeader(docket, topic string) string {
	return fmt.Sprintf("[%s] In re %s", docket, topic)
}
