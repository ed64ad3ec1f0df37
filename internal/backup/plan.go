// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package backup drives a backup run: planning which documents to fetch,
// fanning them out through a bounded worker pool, converting block trees to
// Markdown, and committing output plus index state per document.
package backup

import (
	"fmt"
	"strings"

	"github.com/pdiddy/wizbak/internal/index"
	"github.com/pdiddy/wizbak/pkg/types"
)

// markerIndex is the read side of the index the planner consults.
type markerIndex interface {
	Get(guid string) (index.Entry, bool, error)
}

// Plan is the set of documents a run will fetch, plus the count of listed
// documents the incremental comparison skipped.
type Plan struct {
	Items   []types.Note
	Skipped int
}

// BuildPlan selects the documents to fetch this run. A document is planned
// when the run is a full resync, when the index has no entry for it, or
// when its remote version differs from the last-synced version. Exclusion
// prefixes are applied before the marker comparison. A rename that does not
// change the version is treated as unchanged.
func BuildPlan(remote []types.Note, idx markerIndex, cfg types.SyncConfig) (Plan, error) {
	var plan Plan
	for _, note := range remote {
		if excluded(note.Folder, cfg.Exclude) {
			plan.Skipped++
			continue
		}
		if cfg.Full {
			plan.Items = append(plan.Items, note)
			continue
		}

		entry, ok, err := idx.Get(note.GUID)
		if err != nil {
			return Plan{}, fmt.Errorf("planning %s: %w", note.GUID, err)
		}
		if ok && entry.Version == note.Version {
			plan.Skipped++
			continue
		}
		plan.Items = append(plan.Items, note)
	}
	return plan, nil
}

func excluded(folder string, prefixes []string) bool {
	for _, p := range prefixes {
		if p != "" && strings.HasPrefix(folder, p) {
			return true
		}
	}
	return false
}
