package parser

import (
	"context"
	"errors"
	"io"
)

// LogSource provides an iterator over raw log lines.
// Implementations must be safe for sequential access (not concurrent).
type LogSource interface {
	// Next returns the next raw line.
	// Returns io.EOF when no more lines are available.
	Next(ctx context.Context) (*RawLine, error)

	// Close releases any resources held by the source.
	Close() error
}

// ReadAll drains src and returns the text of every line in order.
func ReadAll(ctx context.Context, src LogSource) ([]string, error) {
	var lines []string
	for {
		line, err := src.Next(ctx)
		if errors.Is(err, io.EOF) {
			return lines, nil
		}
		if err != nil {
			return nil, err
		}
		lines = append(lines, line.Content)
	}
}
