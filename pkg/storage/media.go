package storage

import "time"

// DbMove defines the storage form of one completed move.
type DbMove struct {
	Key         string
	RunID       string
	Source      string
	Destination string
	Taken       time.Time
	TakenSource string
	Camera      string
	MovedAt     time.Time
}

// DbRun defines the storage form of one pipeline invocation.
type DbRun struct {
	Key        string
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
