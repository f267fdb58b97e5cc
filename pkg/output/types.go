// Package output provides formatting for classification reports.
package output

import (
	"sort"
	"time"

	"github.com/ccollicutt/cs2log/pkg/parser"
)

// Report is the complete output of a parse run.
type Report struct {
	// Summary provides aggregate statistics across all files.
	Summary Summary `json:"summary"`

	// Files holds the classification of each input, in input order.
	Files []FileReport `json:"files"`

	// Metadata provides context about the run.
	Metadata Metadata `json:"metadata"`
}

// FileReport is the classification of one input source.
type FileReport struct {
	Source string              `json:"source"`
	Result *parser.BatchResult `json:"result"`
}

// Summary provides aggregate statistics.
type Summary struct {
	Files       int                      `json:"files"`
	TotalLines  int                      `json:"total_lines"`
	ParsedCount int                      `json:"parsed_count"`
	FailedCount int                      `json:"failed_count"`
	EventTypes  map[parser.EventType]int `json:"event_types"`
}

// Metadata provides context about the run.
type Metadata struct {
	ParsedAt   time.Time `json:"parsed_at"`
	DurationMS int64     `json:"duration_ms"`
}

// EventTypeCount is one row of Summary.SortedEventTypes.
type EventTypeCount struct {
	Type  parser.EventType
	Count int
}

// NewReport aggregates per-file results into a Report.
func NewReport(files []FileReport, started, finished time.Time) *Report {
	report := &Report{
		Files: files,
		Summary: Summary{
			Files:      len(files),
			EventTypes: make(map[parser.EventType]int),
		},
		Metadata: Metadata{
			ParsedAt:   finished,
			DurationMS: finished.Sub(started).Milliseconds(),
		},
	}

	for _, f := range files {
		report.Summary.TotalLines += f.Result.TotalLines
		report.Summary.ParsedCount += f.Result.ParsedCount
		report.Summary.FailedCount += f.Result.FailedCount
		for t, n := range f.Result.EventTypeCounts() {
			report.Summary.EventTypes[t] += n
		}
	}

	return report
}

// HasFailures returns true if any line failed to parse.
func (r *Report) HasFailures() bool {
	return r.Summary.FailedCount > 0
}

// SortedEventTypes returns the event type counts by count descending, then name.
func (s Summary) SortedEventTypes() []EventTypeCount {
	counts := make([]EventTypeCount, 0, len(s.EventTypes))
	for t, n := range s.EventTypes {
		counts = append(counts, EventTypeCount{Type: t, Count: n})
	}
	sort.Slice(counts, func(i, j int) bool {
		if counts[i].Count != counts[j].Count {
			return counts[i].Count > counts[j].Count
		}
		return counts[i].Type < counts[j].Type
	})
	return counts
}
