package session

import (
	"bufio"
	"io"
	"os"
	"strings"
)

const (
	initialScanBufSize = 64 * 1024        // 64KB
	maxLineSize        = 20 * 1024 * 1024 // 20MB
)

// lineReader reads JSONL files line by line, skipping lines
// that exceed maxLineSize rather than aborting. The buffer
// starts small and grows on demand.
type lineReader struct {
	r   *bufio.Reader
	buf []byte
}

func newLineReader(r io.Reader) *lineReader {
	return &lineReader{
		r:   bufio.NewReaderSize(r, initialScanBufSize),
		buf: make([]byte, 0, initialScanBufSize),
	}
}

// next returns the next non-blank line (without trailing
// newline) and true, or ("", false) at EOF. Oversized lines
// are silently skipped.
func (lr *lineReader) next() (string, bool) {
	for {
		line, err := lr.readLine()
		if err != nil {
			return "", false
		}
		if line != "" {
			return line, true
		}
	}
}

func (lr *lineReader) readLine() (string, error) {
	lr.buf = lr.buf[:0]
	oversized := false

	for {
		chunk, isPrefix, err := lr.r.ReadLine()
		if err != nil {
			if len(lr.buf) > 0 && err == io.EOF {
				break
			}
			return "", err
		}

		if oversized {
			if !isPrefix {
				return "", nil // done skipping
			}
			continue
		}

		lr.buf = append(lr.buf, chunk...)

		if len(lr.buf) > maxLineSize {
			oversized = true
			lr.buf = lr.buf[:0]
			if !isPrefix {
				return "", nil
			}
			continue
		}

		if !isPrefix {
			break
		}
	}

	return string(lr.buf), nil
}

// ReadLines returns every physical line of path without
// trailing newlines, preserving blank lines so that line
// numbers match the file. Oversized lines come back empty.
func ReadLines(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	lr := newLineReader(f)
	var lines []string
	for {
		line, err := lr.readLine()
		if err != nil {
			if err == io.EOF {
				return lines, nil
			}
			return nil, err
		}
		lines = append(lines, line)
	}
}

// FirstLine returns the first non-blank line of path, or ""
// when the file is empty or unreadable.
func FirstLine(path string) string {
	f, err := os.Open(path)
	if err != nil {
		return ""
	}
	defer f.Close()

	lr := newLineReader(f)
	line, ok := lr.next()
	if !ok {
		return ""
	}
	return strings.TrimSpace(line)
}
