package downloader

import (
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/zoomscribe/zoomscribe/internal/zoom"
)

// Outcome is the terminal state of one download task.
type Outcome string

const (
	OutcomeSucceeded Outcome = "succeeded"
	OutcomeSkipped   Outcome = "skipped"
	OutcomeFailed    Outcome = "failed"
)

// Skip reasons recorded in manifest entries.
const (
	ReasonExists        = "already exists"
	ReasonWouldDownload = "dry run (would download)"
)

// Entry records the outcome of a single recording file.
type Entry struct {
	MeetingUUID string
	FileID      string
	FileType    string
	Path        string
	Outcome     Outcome
	Bytes       int64
	Resumed     bool
	Reason      string
	Err         error
}

// Manifest is the single source of truth for a download run. Workers append
// entries concurrently; all accessors take copies.
type Manifest struct {
	// RunID identifies this run in logs and audit events.
	RunID string

	// StartedAt is when the run began.
	StartedAt time.Time

	mu      sync.Mutex
	entries []Entry
}

// NewManifest creates an empty manifest with a fresh run identifier.
func NewManifest() *Manifest {
	return &Manifest{
		RunID:     uuid.NewString(),
		StartedAt: time.Now().UTC(),
	}
}

func (m *Manifest) add(e Entry) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries = append(m.entries, e)
}

// Entries returns a copy of all recorded entries in completion order.
func (m *Manifest) Entries() []Entry {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Entry, len(m.entries))
	copy(out, m.entries)
	return out
}

// Counts returns the number of succeeded, skipped, and failed entries.
func (m *Manifest) Counts() (succeeded, skipped, failed int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, e := range m.entries {
		switch e.Outcome {
		case OutcomeSucceeded:
			succeeded++
		case OutcomeSkipped:
			skipped++
		case OutcomeFailed:
			failed++
		}
	}
	return succeeded, skipped, failed
}

// Err summarizes the run's failures. It returns nil when no task failed.
// Permission-denied failures are always surfaced: a run that silently
// dropped a restricted file must not look clean to callers.
func (m *Manifest) Err() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	var failed, denied int
	var first error
	for _, e := range m.entries {
		if e.Outcome != OutcomeFailed {
			continue
		}
		failed++
		if zoom.IsPermission(e.Err) {
			denied++
		}
		if first == nil {
			first = e.Err
		}
	}
	if failed == 0 {
		return nil
	}
	if denied > 0 {
		return fmt.Errorf("%d of %d failed downloads were permission-denied (first: %w)", denied, failed, first)
	}
	return fmt.Errorf("%d downloads failed (first: %w)", failed, first)
}
