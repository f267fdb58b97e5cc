package output

import (
	"context"
	"fmt"
	"io"

	"github.com/ccollicutt/cs2log/pkg/parser"
)

// TextFormatter formats reports as human-readable text.
type TextFormatter struct {
	opts FormatOptions
}

// NewTextFormatter creates a new text formatter with the given options.
func NewTextFormatter(opts FormatOptions) *TextFormatter {
	return &TextFormatter{opts: opts}
}

// Name returns the format name.
func (f *TextFormatter) Name() string {
	return "text"
}

// Format renders the report as text.
func (f *TextFormatter) Format(ctx context.Context, report *Report, w io.Writer) error {
	if f.opts.Quiet {
		return f.formatQuiet(report, w)
	}
	return f.formatFull(report, w)
}

func (f *TextFormatter) formatQuiet(report *Report, w io.Writer) error {
	s := report.Summary
	_, err := fmt.Fprintf(w, "cs2log: %d files, %d lines, %d parsed, %d failed\n",
		s.Files, s.TotalLines, s.ParsedCount, s.FailedCount)
	return err
}

func (f *TextFormatter) formatFull(report *Report, w io.Writer) error {
	fmt.Fprintln(w, "=== cs2log Parse Report ===")
	fmt.Fprintln(w)

	for _, file := range report.Files {
		f.formatFile(file, w)
	}

	if counts := report.Summary.SortedEventTypes(); len(counts) > 0 {
		fmt.Fprintln(w, "Event types:")
		for _, c := range counts {
			fmt.Fprintf(w, "  %-20s %d\n", c.Type, c.Count)
		}
		fmt.Fprintln(w)
	}

	s := report.Summary
	fmt.Fprintln(w, "---")
	_, err := fmt.Fprintf(w, "Summary: %d files, %d lines, %d parsed, %d failed\n",
		s.Files, s.TotalLines, s.ParsedCount, s.FailedCount)
	if err != nil {
		return err
	}

	if f.opts.Verbose {
		fmt.Fprintf(w, "Duration: %dms\n", report.Metadata.DurationMS)
	}

	return nil
}

func (f *TextFormatter) formatFile(file FileReport, w io.Writer) {
	res := file.Result
	fmt.Fprintf(w, "[%s] %d lines, %d parsed, %d failed\n",
		file.Source, res.TotalLines, res.ParsedCount, res.FailedCount)

	for _, line := range res.Results {
		switch {
		case !line.Parsed():
			fmt.Fprintf(w, "  FAIL %s\n", line.Error)
			fmt.Fprintf(w, "       %s\n", line.Content)
		case f.opts.Verbose:
			f.formatParsed(line, w)
		}
	}

	if res.FailedCount == 0 && !f.opts.Verbose {
		fmt.Fprintln(w, "  All lines parsed")
	}
	fmt.Fprintln(w)
}

func (f *TextFormatter) formatParsed(line parser.LineResult, w io.Writer) {
	data, err := parser.EventJSON(line.Event)
	if err != nil {
		data = []byte(err.Error())
	}
	fmt.Fprintf(w, "  %4d %-20s %s\n", line.LineNumber, line.Event.Type(), data)
}
