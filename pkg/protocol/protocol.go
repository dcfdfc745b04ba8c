// Package protocol defines the GoRelay wire format: newline-delimited text
// lines, the command verbs a client may send, and the reply and envelope
// texts the server writes back.
package protocol

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strings"
	"unicode"
)

const (
	// DefaultMaxLineLength is the largest line, in bytes, accepted from a client.
	DefaultMaxLineLength = 4096

	// MinLineLength is the smallest line limit a server may be configured with.
	MinLineLength = 64
)

// ErrLineTooLong is returned when a client sends a line longer than the
// reader's limit. The stream cannot be resynchronized after it.
var ErrLineTooLong = errors.New("protocol: line too long")

// LineReader decodes newline-delimited lines from a stream. A trailing "\r"
// is dropped, so CRLF clients work unchanged.
type LineReader struct {
	sc *bufio.Scanner
}

// NewLineReader wraps r. maxLen <= 0 selects DefaultMaxLineLength.
func NewLineReader(r io.Reader, maxLen int) *LineReader {
	if maxLen <= 0 {
		maxLen = DefaultMaxLineLength
	}
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, min(maxLen, 4096)), maxLen)
	return &LineReader{sc: sc}
}

// ReadLine blocks until a full line is available. It returns io.EOF when the
// peer closed the stream cleanly, ErrLineTooLong for oversized input, and a
// wrapped transport error otherwise.
func (lr *LineReader) ReadLine() (string, error) {
	if lr.sc.Scan() {
		return lr.sc.Text(), nil
	}
	err := lr.sc.Err()
	switch {
	case err == nil:
		return "", io.EOF
	case errors.Is(err, bufio.ErrTooLong):
		return "", ErrLineTooLong
	default:
		return "", fmt.Errorf("protocol: read line: %w", err)
	}
}

// WriteLine writes text followed by exactly one "\n" in a single Write call,
// so one reply maps to one transport write.
func WriteLine(w io.Writer, text string) error {
	text = strings.TrimRight(text, "\r\n")
	if _, err := io.WriteString(w, text+"\n"); err != nil {
		return fmt.Errorf("protocol: write line: %w", err)
	}
	return nil
}

// Sanitize strips control characters from client-supplied text.
// Tabs become spaces; everything else non-printable is dropped.
func Sanitize(s string) string {
	return strings.Map(func(r rune) rune {
		if r == '\t' {
			return ' '
		}
		if unicode.IsControl(r) {
			return -1
		}
		return r
	}, s)
}
