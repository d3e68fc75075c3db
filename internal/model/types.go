// internal/model/types.go
// Package model defines shared data structures.
package model

import "time"

// Kind distinguishes what an attempt scored.
type Kind string

const (
	// KindSymbol is one keyed symbol
	KindSymbol Kind = "symbol"
	// KindTurn is one submitted conversation turn
	KindTurn Kind = "turn"
)

// Attempt is the plain record emitted for every scored symbol or turn.
// Persistence collaborators consume it; the core does not care how.
type Attempt struct {
	Kind      Kind
	Expected  string
	Actual    string
	Correct   bool
	Timestamp time.Time
}

// AttemptSink receives attempts. Implementations must not block.
type AttemptSink interface {
	RecordAttempt(a Attempt)
}

// AttemptFunc adapts a function to AttemptSink.
type AttemptFunc func(a Attempt)

// RecordAttempt calls f(a).
func (f AttemptFunc) RecordAttempt(a Attempt) {
	f(a)
}

// SessionInfo describes a practice session for storage.
type SessionInfo struct {
	StartedAt time.Time
	EndedAt   time.Time
	Mode      string
	Style     string
	WPM       int
}

// SessionSummary summarizes a stored session for reporting.
type SessionSummary struct {
	SessionID int64
	EndedAt   time.Time
	Mode      string
	Style     string
	WPM       int
	Correct   int
	Incorrect int
}

// Accuracy returns the fraction of correct attempts, 0 when there are none.
func (s SessionSummary) Accuracy() float64 {
	total := s.Correct + s.Incorrect
	if total == 0 {
		return 0
	}
	return float64(s.Correct) / float64(total)
}

// SymbolAggregate aggregates symbol attempts across sessions.
type SymbolAggregate struct {
	Symbol    string
	Correct   int
	Incorrect int
}

// ErrorRate returns the fraction of incorrect attempts, 0 when there are none.
func (a SymbolAggregate) ErrorRate() float64 {
	total := a.Correct + a.Incorrect
	if total == 0 {
		return 0
	}
	return float64(a.Incorrect) / float64(total)
}
