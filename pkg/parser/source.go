package parser

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
)

// StdinPath is the path that selects standard input.
const StdinPath = "-"

const maxLineSize = 1024 * 1024

// FileSource implements LogSource for reading CS2 server log files.
type FileSource struct {
	files     []string
	stdin     io.Reader
	stdinName string

	currentFile    io.Closer
	currentScanner *bufio.Scanner
	currentSource  string
	currentLine    int
	fileIndex      int
}

// NewFileSource creates a LogSource that reads every line of the given files
// in order. The path "-" reads from standard input.
func NewFileSource(files []string) *FileSource {
	return &FileSource{
		files:     files,
		stdin:     os.Stdin,
		stdinName: StdinPath,
		fileIndex: -1,
	}
}

// NewReaderSource creates a LogSource over a single reader, reported as source name.
func NewReaderSource(r io.Reader, name string) *FileSource {
	return &FileSource{
		files:     []string{StdinPath},
		stdin:     r,
		stdinName: name,
		fileIndex: -1,
	}
}

// Next returns the next line.
// Returns io.EOF when all files have been exhausted.
func (s *FileSource) Next(ctx context.Context) (*RawLine, error) {
	for {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}

		if s.currentScanner == nil {
			if err := s.openNextFile(); err != nil {
				return nil, err
			}
		}

		if s.currentScanner.Scan() {
			s.currentLine++
			return &RawLine{
				Content: s.currentScanner.Text(),
				Source:  s.currentSource,
				LineNum: s.currentLine,
			}, nil
		}

		if err := s.currentScanner.Err(); err != nil {
			return nil, fmt.Errorf("reading %s: %w", s.currentSource, err)
		}

		// Current file exhausted, try next
		if err := s.closeCurrentFile(); err != nil {
			return nil, err
		}
		s.currentScanner = nil
	}
}

// Close releases resources.
func (s *FileSource) Close() error {
	return s.closeCurrentFile()
}

func (s *FileSource) openNextFile() error {
	s.fileIndex++
	if s.fileIndex >= len(s.files) {
		return io.EOF
	}

	path := s.files[s.fileIndex]
	var r io.Reader
	source := path
	if path == StdinPath {
		r = s.stdin
		source = s.stdinName
	} else {
		f, err := os.Open(path) // #nosec G304 -- user-provided paths are expected
		if err != nil {
			return fmt.Errorf("opening log file %s: %w", path, err)
		}
		s.currentFile = f
		r = f
	}

	s.currentScanner = bufio.NewScanner(r)
	s.currentScanner.Buffer(make([]byte, 0, 64*1024), maxLineSize)
	s.currentSource = source
	s.currentLine = 0

	return nil
}

func (s *FileSource) closeCurrentFile() error {
	s.currentScanner = nil
	if s.currentFile != nil {
		err := s.currentFile.Close()
		s.currentFile = nil
		return err
	}
	return nil
}
