package parser

import (
	"fmt"
	"strings"
)

// Parse classifies a batch of raw lines. Blank lines are dropped before
// numbering, so line numbers are 1..TotalLines with no gaps.
// Parse holds no state and is safe for concurrent use.
func Parse(lines []string) *BatchResult {
	result := &BatchResult{Results: make([]LineResult, 0, len(lines))}

	for _, raw := range lines {
		raw = strings.TrimSpace(raw)
		if raw == "" {
			continue
		}

		line := LogLine{LineNumber: len(result.Results) + 1}
		line.Content, _ = StripEnvelope(raw)

		res := classify(line)
		if res.Parsed() {
			result.ParsedCount++
		} else {
			result.FailedCount++
		}
		result.Results = append(result.Results, res)
	}

	result.TotalLines = len(result.Results)
	return result
}

// ParseText splits text on line breaks and classifies every non-blank line.
func ParseText(text string) *BatchResult {
	return Parse(SplitLines(text))
}

// ParseLine classifies a single line, envelope included.
func ParseLine(line string) Outcome {
	content, _ := StripEnvelope(strings.TrimSpace(line))
	body, _ := StripGameClock(content)
	return match(body)
}

// SplitLines splits text on "\n" and returns the non-blank lines, trimmed.
func SplitLines(text string) []string {
	var lines []string
	for _, l := range strings.Split(text, "\n") {
		if l = strings.TrimSpace(l); l != "" {
			lines = append(lines, l)
		}
	}
	return lines
}

func classify(line LogLine) LineResult {
	body, clock := StripGameClock(line.Content)

	res := LineResult{
		LineNumber: line.LineNumber,
		Content:    line.Content,
		GameTime:   clock,
		Outcome:    match(body),
	}
	if !res.Parsed() {
		res.Error = fmt.Sprintf("line %d: %s", line.LineNumber, res.Error)
	}
	return res
}

func match(body string) Outcome {
	if strings.TrimSpace(body) == "" {
		return Outcome{Error: "empty log line"}
	}

	for _, gr := range grammars {
		m := gr.pattern.FindStringSubmatch(body)
		if m == nil {
			continue
		}

		g := newGroups(m)
		event := gr.build(g)
		if g.err != nil {
			return Outcome{Error: fmt.Sprintf("%s: %v", gr.event, g.err)}
		}
		return Outcome{Event: event}
	}

	return Outcome{Error: "no matching pattern"}
}
