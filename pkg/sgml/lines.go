package sgml

import (
	"bufio"
	"errors"
	"io"
)

// LineSource yields one line at a time, terminator included. After the last
// line every call returns io.EOF.
type LineSource interface {
	ReadLine() (string, error)
}

// LineReader is a buffered LineSource with no line-length limit.
type LineReader struct {
	r    *bufio.Reader
	done bool
}

// NewLineReader wraps r.
func NewLineReader(r io.Reader) *LineReader {
	return &LineReader{r: bufio.NewReader(r)}
}

// ReadLine returns the next line. A final unterminated line is returned
// before io.EOF.
func (lr *LineReader) ReadLine() (string, error) {
	if lr.done {
		return "", io.EOF
	}
	line, err := lr.r.ReadString('\n')
	if err != nil {
		if !errors.Is(err, io.EOF) {
			return "", err
		}
		lr.done = true
		if line == "" {
			return "", io.EOF
		}
	}
	return line, nil
}

// lineCounter tracks the line number of the most recent line read.
type lineCounter struct {
	src  LineSource
	line int
}

// next returns the next line, or ok=false at end of input.
func (c *lineCounter) next() (line string, ok bool, err error) {
	line, err = c.src.ReadLine()
	if errors.Is(err, io.EOF) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	c.line++
	return line, true, nil
}
