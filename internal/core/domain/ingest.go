package domain

import (
	"fmt"
	"time"
)

// Ingestion report statuses.
const (
	StatusUpdated        = "updated"
	StatusNoChanges      = "no changes"
	StatusNoSources      = "no sources found"
	StatusSourceNotFound = "source not found"
)

// IngestReport summarises one ingestion run for a single type.
type IngestReport struct {
	// Type is the knowledge domain that was ingested.
	Type string

	// Loaded is the number of source identifiers the loader returned.
	Loaded int

	// Added is the number of sources whose chunks were (re)written.
	Added int

	// Unchanged is the number of sources skipped because their hash matched.
	Unchanged int

	// Failed is the number of sources that could not be loaded.
	Failed int

	// Deleted is the number of stale sources whose chunks were replaced.
	Deleted int

	// Chunks is the number of chunk documents written.
	Chunks int

	// Status distinguishes "nothing to do" from "nothing found".
	Status string

	// Duration is the wall time of the run.
	Duration time.Duration
}

// String renders the report the way operators read it in logs.
func (r *IngestReport) String() string {
	switch r.Status {
	case StatusNoSources, StatusSourceNotFound:
		return fmt.Sprintf("%s: %s", r.Type, r.Status)
	}
	return fmt.Sprintf("%s: loaded: %d, added: %d documents in %d chunks (unchanged: %d, failed: %d)",
		r.Type, r.Loaded, r.Added, r.Chunks, r.Unchanged, r.Failed)
}
