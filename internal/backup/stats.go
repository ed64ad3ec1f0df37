// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package backup

import (
	"fmt"
	"io"
	"sync"

	"github.com/pdiddy/wizbak/pkg/types"
)

// DocFailure records one document that did not reach the committed state.
// Failed identities are reported individually so a later run can be
// targeted at them.
type DocFailure struct {
	GUID  string
	Title string
	Err   error
}

// RunStats aggregates per-document outcomes for one run. It is passed
// explicitly through the coordinator rather than kept in package state, and
// is safe for concurrent use by the worker pool.
type RunStats struct {
	mu        sync.Mutex
	succeeded int
	skipped   int
	failures  []DocFailure
}

func (s *RunStats) addSuccess() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.succeeded++
}

func (s *RunStats) addFailure(note types.Note, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failures = append(s.failures, DocFailure{GUID: note.GUID, Title: note.Title, Err: err})
}

func (s *RunStats) addSkipped(n int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.skipped += n
}

// Succeeded returns the number of committed documents.
func (s *RunStats) Succeeded() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.succeeded
}

// Skipped returns the number of documents the plan or writer skipped.
func (s *RunStats) Skipped() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.skipped
}

// Failures returns the per-document failure records.
func (s *RunStats) Failures() []DocFailure {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]DocFailure(nil), s.failures...)
}

// HasFailures reports whether any document failed.
func (s *RunStats) HasFailures() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.failures) > 0
}

// Summary prints the run outcome in one block: counts plus one line per
// failed document.
func (s *RunStats) Summary(w io.Writer) {
	s.mu.Lock()
	defer s.mu.Unlock()

	fmt.Fprintf(w, "\nBackup summary: %d backed up, %d skipped, %d failed\n",
		s.succeeded, s.skipped, len(s.failures))
	for _, f := range s.failures {
		fmt.Fprintf(w, "  failed: %s (%s): %v\n", f.Title, f.GUID, f.Err)
	}
}
