package detector

import (
	"regexp"
	"time"

	"github.com/ccollicutt/cs2log/pkg/parser"
)

// Layer says which part of a line a format describes.
type Layer string

const (
	// LayerEnvelope formats are prefixes added by an ingestion path.
	LayerEnvelope Layer = "envelope"
	// LayerClock formats are the server clock written by CS2 itself.
	LayerClock Layer = "clock"
)

// PrefixFormat represents a known CS2 log line prefix.
type PrefixFormat struct {
	Name       string         // Human-readable name
	Layer      Layer          // Envelope formats match the raw line, clock formats the envelope-stripped line
	Pattern    *regexp.Regexp // Compiled regex (set during init)
	PatternStr string         // Pattern string for display
	Layout     string         // Go time layout for the first capture group
	Examples   []string       // Example prefixes

	// ParseTime parses the first capture group when no single layout fits.
	ParseTime func(string) (time.Time, error)
}

func (f *PrefixFormat) parseTime(s string) (time.Time, error) {
	if f.ParseTime != nil {
		return f.ParseTime(s)
	}
	return time.Parse(f.Layout, s)
}

func (f *PrefixFormat) hasTime() bool {
	return f.ParseTime != nil || f.Layout != ""
}

// DefaultFormats returns the built-in prefix formats to detect.
// Envelope and clock expressions come from the parser, so a detected
// prefix is always one the classifier strips.
func DefaultFormats() []*PrefixFormat {
	formats := []*PrefixFormat{
		{
			Name:       "Ingestion envelope",
			Layer:      LayerEnvelope,
			PatternStr: parser.EnvelopeExpr,
			ParseTime:  parser.ParseEnvelopeTime,
			Examples:   []string{"[2025-08-19T15:12:44Z] 18a5c248-c891-42a6-b72e-af0b184937c1: "},
		},
		{
			Name:       "Server id prefix",
			Layer:      LayerEnvelope,
			PatternStr: parser.ServerIDExpr,
			Examples:   []string{"18a5c248-c891-42a6-b72e-af0b184937c1: "},
		},
		{
			Name:       "L marker, millisecond clock",
			Layer:      LayerClock,
			PatternStr: `^L (` + parser.GameClockExpr + `\.\d{3}) - `,
			Layout:     "01/02/2006 - 15:04:05.000",
			Examples:   []string{"L 08/19/2025 - 18:13:03.123 - "},
		},
		{
			Name:       "L marker, classic clock",
			Layer:      LayerClock,
			PatternStr: `^L (` + parser.GameClockExpr + `): `,
			Layout:     "01/02/2006 - 15:04:05",
			Examples:   []string{"L 08/19/2025 - 18:13:03: "},
		},
		{
			Name:       "Bare clock",
			Layer:      LayerClock,
			PatternStr: `^(` + parser.GameClockExpr + `(?:\.\d{1,6})?)(?::\s|\s-\s)`,
			Layout:     "01/02/2006 - 15:04:05",
			Examples:   []string{"08/19/2025 - 18:13:03.123 - ", "08/19/2025 - 18:13:03: "},
		},
	}

	// Compile all patterns
	for _, f := range formats {
		f.Pattern = regexp.MustCompile(f.PatternStr)
	}

	return formats
}
