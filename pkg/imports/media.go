package imports

import (
	"time"

	"mediasort/pkg/camera"
	"mediasort/pkg/metadata"
)

// SourceEntry is one file of a source directory listing.
type SourceEntry struct {
	Name string
	Path string
	Size int64
}

// MediaFile is a scanned file and what was learned about it.
type MediaFile struct {
	Path   string
	Name   string
	Size   int64
	Kind   metadata.Kind
	Taken  metadata.Result
	Camera string
}

// Status of one file after a run.
type Status string

const (
	StatusMoved     Status = "moved"
	StatusPlanned   Status = "planned"
	StatusDuplicate Status = "duplicate"
	StatusSkipped   Status = "skipped"
	StatusFailed    Status = "failed"
)

// ItemResult reports what happened to one file.
type ItemResult struct {
	Name        string
	Source      string
	Destination string
	Kind        metadata.Kind
	Taken       metadata.Result
	Camera      string
	Status      Status
	DuplicateOf string
	Err         error
}

// Summary counts item statuses.
type Summary struct {
	Moved      int
	Planned    int
	Duplicates int
	Skipped    int
	Failed     int
	NoDate     int
}

// Report is the outcome of Service.Run.
type Report struct {
	RunID      string
	SourceDir  string
	OutputDir  string
	DryRun     bool
	StartedAt  time.Time
	FinishedAt time.Time
	Items      []ItemResult
	Cameras    camera.Counts
	Summary    Summary
}

// Finalize recomputes the summary from the items.
func (r *Report) Finalize() {
	var s Summary
	for _, it := range r.Items {
		switch it.Status {
		case StatusMoved:
			s.Moved++
		case StatusPlanned:
			s.Planned++
		case StatusDuplicate:
			s.Duplicates++
		case StatusSkipped:
			s.Skipped++
		case StatusFailed:
			s.Failed++
		}
		if (it.Status == StatusMoved || it.Status == StatusPlanned) && !it.Taken.Known() {
			s.NoDate++
		}
	}
	r.Summary = s
}

// Failed lists the items that failed.
func (r *Report) Failed() []ItemResult {
	var failed []ItemResult
	for _, it := range r.Items {
		if it.Status == StatusFailed {
			failed = append(failed, it)
		}
	}
	return failed
}

// MoveRecord is a completed move as kept in the catalog.
type MoveRecord struct {
	RunID       string
	Source      string
	Destination string
	Taken       time.Time
	TakenSource string
	Camera      string
	MovedAt     time.Time
}

// RunRecord summarizes a run in the catalog.
type RunRecord struct {
	ID         string
	SourceDir  string
	OutputDir  string
	DryRun     bool
	StartedAt  time.Time
	FinishedAt time.Time
	Moved      int
	Duplicates int
	Failed     int
}
