package sync

import (
	"time"

	"github.com/matthewdavidson09/cloud-attribute-sync/internal/reconcile"
)

type Status string

const (
	StatusProcessed Status = "processed"
	StatusSkipped   Status = "skipped"
	StatusNotFound  Status = "not_found"
	StatusFailed    Status = "failed"
)

// RowResult is the outcome of one CSV row.
type RowResult struct {
	Line          int
	PrincipalName string
	Status        Status
	Writes        reconcile.WriteSet
	ImmutableID   string
	// CrossReferenced is set when the immutable id was pushed to the
	// cloud record during this run.
	CrossReferenced bool
	Snapshots       []string
	Err             error
	Warnings        []error
	Duration        time.Duration
}

// Tally aggregates row results.
type Tally struct {
	Total     int
	Processed int
	Skipped   int
	NotFound  int
	Failed    int
	Warnings  int
}

func Summarize(results []RowResult) Tally {
	t := Tally{Total: len(results)}
	for _, r := range results {
		switch r.Status {
		case StatusProcessed:
			t.Processed++
		case StatusSkipped:
			t.Skipped++
		case StatusNotFound:
			t.NotFound++
		case StatusFailed:
			t.Failed++
		}
		t.Warnings += len(r.Warnings)
	}
	return t
}
