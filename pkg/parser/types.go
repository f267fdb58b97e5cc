// Package parser classifies Counter-Strike 2 server log lines into typed events.
package parser

import "time"

// RawLine is a single line read from a log source before classification.
type RawLine struct {
	// Content is the raw line text.
	Content string

	// Source is the file path (or "-" for stdin) this line came from.
	Source string

	// LineNum is the 1-based line number in the source file.
	LineNum int
}

// LogLine is one non-blank input line of a classification batch.
type LogLine struct {
	// LineNumber is the 1-based position among the non-blank lines of the batch.
	LineNumber int

	// Content is the trimmed line with any ingestion envelope removed.
	Content string
}

// Envelope is the prefix some ingestion paths add in front of native log text:
//
//	[2025-08-19T15:12:44Z] 18a5c248-c891-42a6-b72e-af0b184937c1: L 08/19/2025 - ...
type Envelope struct {
	// ReceivedAt is the ingestion timestamp. Zero when the envelope only carries a server id.
	ReceivedAt time.Time

	// ServerID identifies the game server that produced the line.
	ServerID string
}

// Outcome is the result of classifying one line. Exactly one of Event and
// Error is set.
type Outcome struct {
	Event Event
	Error string
}

// Parsed reports whether the line matched a known grammar.
func (o Outcome) Parsed() bool {
	return o.Event != nil
}

// LineResult pairs an input line with its outcome.
type LineResult struct {
	LineNumber int
	Content    string

	// GameTime is the server clock text (e.g. "08/19/2025 - 18:13:03.123"), if present.
	GameTime string

	Outcome
}

// BatchResult aggregates the outcomes of one classification call.
type BatchResult struct {
	TotalLines  int
	ParsedCount int
	FailedCount int
	Results     []LineResult
}

// EventTypeCounts returns how many parsed lines carry each event type.
func (b *BatchResult) EventTypeCounts() map[EventType]int {
	counts := make(map[EventType]int)
	for _, r := range b.Results {
		if r.Parsed() {
			counts[r.Event.Type()]++
		}
	}
	return counts
}

// Failures returns the failed line results in input order.
func (b *BatchResult) Failures() []LineResult {
	var failed []LineResult
	for _, r := range b.Results {
		if !r.Parsed() {
			failed = append(failed, r)
		}
	}
	return failed
}
