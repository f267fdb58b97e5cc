// Package detector identifies the line prefix formats of CS2 log files and
// how much of a sample the classifier recognizes.
package detector

import (
	"context"
	"errors"
	"io"
	"sort"
	"strings"
	"time"

	"github.com/ccollicutt/cs2log/pkg/parser"
)

// DetectionResult holds the result of analyzing a log sample.
type DetectionResult struct {
	Matches      []FormatMatch // Formats that matched, sorted by confidence descending
	SampledLines int           // Number of non-blank lines sampled
	Coverage     Coverage      // How the classifier handled the sample
	ServerIDs    []string      // Distinct envelope server ids, in order of first appearance
}

// FormatMatch represents a format that matched with its confidence score.
type FormatMatch struct {
	Format     *PrefixFormat
	Confidence float64   // 0.0 to 1.0 (fraction of sampled lines matched)
	MatchCount int       // Number of lines that matched
	SampleLine string    // Example line that matched
	ParsedTime time.Time // Time parsed from the sample, zero for formats without a layout
}

// Coverage is the classifier outcome over the sample.
type Coverage struct {
	ParsedCount int
	FailedCount int
	EventTypes  map[parser.EventType]int

	// FirstFailure is the first line the classifier rejected, if any.
	FirstFailure string
}

// Ratio returns the fraction of sampled lines that parsed.
func (c Coverage) Ratio() float64 {
	total := c.ParsedCount + c.FailedCount
	if total == 0 {
		return 0
	}
	return float64(c.ParsedCount) / float64(total)
}

// Detector analyzes log samples to identify prefix formats.
type Detector struct {
	formats    []*PrefixFormat
	sampleSize int
}

// Option configures the Detector.
type Option func(*Detector)

// WithSampleSize sets the number of lines to sample (default 100).
func WithSampleSize(n int) Option {
	return func(d *Detector) {
		if n > 0 {
			d.sampleSize = n
		}
	}
}

// New creates a new Detector with default formats.
func New(opts ...Option) *Detector {
	d := &Detector{
		formats:    DefaultFormats(),
		sampleSize: 100,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// DetectFromFile analyzes the first lines of a log file ("-" for stdin).
func (d *Detector) DetectFromFile(ctx context.Context, path string) (*DetectionResult, error) {
	src := parser.NewFileSource([]string{path})
	defer src.Close()
	return d.detectFromSource(ctx, src)
}

// DetectFromReader analyzes the first lines read from r.
func (d *Detector) DetectFromReader(ctx context.Context, r io.Reader) (*DetectionResult, error) {
	src := parser.NewReaderSource(r, parser.StdinPath)
	defer src.Close()
	return d.detectFromSource(ctx, src)
}

func (d *Detector) detectFromSource(ctx context.Context, src parser.LogSource) (*DetectionResult, error) {
	lines, err := d.sample(ctx, src)
	if err != nil {
		return nil, err
	}
	return d.DetectFromLines(lines), nil
}

// DetectFromLines analyzes a slice of log lines. Blank lines are ignored.
func (d *Detector) DetectFromLines(lines []string) *DetectionResult {
	result := &DetectionResult{}

	type formatStats struct {
		format     *PrefixFormat
		matchCount int
		sampleLine string
		parsedTime time.Time
	}
	stats := make(map[string]*formatStats)

	var sample []string
	seenServers := make(map[string]bool)
	for _, line := range lines {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		sample = append(sample, line)

		stripped, env := parser.StripEnvelope(line)
		if env != nil && env.ServerID != "" && !seenServers[env.ServerID] {
			seenServers[env.ServerID] = true
			result.ServerIDs = append(result.ServerIDs, env.ServerID)
		}

		_, clock := parser.StripGameClock(stripped)

		for _, format := range d.formats {
			target := line
			if format.Layer == LayerClock {
				if clock == "" {
					continue
				}
				target = stripped
			} else if env == nil {
				continue
			}

			matches := format.Pattern.FindStringSubmatch(target)
			if matches == nil {
				continue
			}

			var parsedTime time.Time
			if format.hasTime() {
				t, err := format.parseTime(matches[1])
				if err != nil {
					continue
				}
				parsedTime = t
			}

			if stats[format.Name] == nil {
				stats[format.Name] = &formatStats{
					format:     format,
					sampleLine: line,
					parsedTime: parsedTime,
				}
			}
			stats[format.Name].matchCount++
		}
	}

	result.SampledLines = len(sample)
	if len(sample) == 0 {
		return result
	}

	for _, s := range stats {
		result.Matches = append(result.Matches, FormatMatch{
			Format:     s.format,
			Confidence: float64(s.matchCount) / float64(len(sample)),
			MatchCount: s.matchCount,
			SampleLine: s.sampleLine,
			ParsedTime: s.parsedTime,
		})
	}

	// Sort by confidence descending, then by pattern length (more specific first)
	sort.Slice(result.Matches, func(i, j int) bool {
		if result.Matches[i].Confidence != result.Matches[j].Confidence {
			return result.Matches[i].Confidence > result.Matches[j].Confidence
		}
		return len(result.Matches[i].Format.PatternStr) > len(result.Matches[j].Format.PatternStr)
	})

	batch := parser.Parse(sample)
	result.Coverage = Coverage{
		ParsedCount: batch.ParsedCount,
		FailedCount: batch.FailedCount,
		EventTypes:  batch.EventTypeCounts(),
	}
	if failures := batch.Failures(); len(failures) > 0 {
		result.Coverage.FirstFailure = failures[0].Content
	}

	return result
}

// sample reads up to sampleSize non-blank lines from src.
func (d *Detector) sample(ctx context.Context, src parser.LogSource) ([]string, error) {
	var lines []string
	for len(lines) < d.sampleSize {
		line, err := src.Next(ctx)
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, err
		}
		if strings.TrimSpace(line.Content) != "" {
			lines = append(lines, line.Content)
		}
	}

	return lines, nil
}

// BestMatch returns the highest confidence match of the given layer, or nil if none found.
func (r *DetectionResult) BestMatch(layer Layer) *FormatMatch {
	for i := range r.Matches {
		if r.Matches[i].Format.Layer == layer {
			return &r.Matches[i]
		}
	}
	return nil
}

// HasMatch returns true if at least one format matched.
func (r *DetectionResult) HasMatch() bool {
	return len(r.Matches) > 0
}
