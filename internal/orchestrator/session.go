// Package orchestrator drives upload sessions from the client side: local
// validation, submission, outcome tracking and summarization retries.
package orchestrator

import (
	"time"

	"app/internal/model"
)

// Outcome is the terminal state of a processing session. A session with a
// nil Outcome is still processing.
type Outcome interface {
	outcome()
}

// Completed is a fully processed recording.
type Completed struct {
	OriginalFilename string
	DurationMinutes  float64
	Transcript       string
	Summary          model.Summary
}

// PartialFailure means transcription succeeded but summarization did not.
// CacheKey entitles the session to free retries.
type PartialFailure struct {
	OriginalFilename string
	DurationMinutes  float64
	Transcript       string
	CacheKey         string
	Error            string
	Message          string
}

// HardFailure means processing produced nothing usable.
type HardFailure struct {
	Error string
}

func (Completed) outcome()      {}
func (PartialFailure) outcome() {}
func (HardFailure) outcome()    {}

// Session is one upload attempt. Sessions are owned by the orchestrator
// and ordered by creation.
type Session struct {
	ID        string
	Filename  string
	SizeBytes int64
	CreatedAt time.Time
	Outcome   Outcome
}

// Processing reports whether the session has no outcome yet.
func (s *Session) Processing() bool {
	return s.Outcome == nil
}
