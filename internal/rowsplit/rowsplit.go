// Package rowsplit splits delimited lines into fields at the byte level.
//
// Quotes are not interpreted: a delimiter byte always ends a field and every
// line stands alone, so a stray quote or embedded delimiter in one row can
// never shift the columns of a later row.
package rowsplit

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"io"
)

// DefaultMaxLine is the longest line a Scanner accepts unless configured otherwise.
const DefaultMaxLine = 16 << 20

// ErrEmpty is returned by ReadHeader when the input has no first line.
var ErrEmpty = errors.New("empty input: no header row")

var bom = []byte{0xEF, 0xBB, 0xBF}

// NewScanner returns a line scanner over r whose buffer grows up to maxLine bytes.
// Line terminators (\n and \r\n) are stripped from each token.
func NewScanner(r io.Reader, maxLine int) *bufio.Scanner {
	if maxLine <= 0 {
		maxLine = DefaultMaxLine
	}
	initial := 64 * 1024
	if initial > maxLine {
		initial = maxLine
	}
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, initial), maxLine)
	return sc
}

// Split appends the fields of line to dst and returns the extended slice.
// The returned fields alias line; copy them before line is reused.
func Split(dst [][]byte, line []byte, delim byte) [][]byte {
	for {
		i := bytes.IndexByte(line, delim)
		if i < 0 {
			return append(dst, line)
		}
		dst = append(dst, line[:i])
		line = line[i+1:]
	}
}

// TrimBOM removes a leading UTF-8 byte order mark.
func TrimBOM(line []byte) []byte {
	return bytes.TrimPrefix(line, bom)
}

// TrimCR removes a single trailing carriage return.
func TrimCR(line []byte) []byte {
	if n := len(line); n > 0 && line[n-1] == '\r' {
		return line[:n-1]
	}
	return line
}

// Header splits a header line into column names, dropping any BOM and CR.
func Header(line []byte, delim byte) []string {
	parts := Split(nil, TrimCR(TrimBOM(line)), delim)
	names := make([]string, len(parts))
	for i, p := range parts {
		names[i] = string(p)
	}
	return names
}

// ReadHeader reads the first line of r and returns its column names.
func ReadHeader(r io.Reader, delim byte, maxLine int) ([]string, error) {
	sc := NewScanner(r, maxLine)
	if !sc.Scan() {
		if err := sc.Err(); err != nil {
			return nil, fmt.Errorf("reading header: %w", err)
		}
		return nil, ErrEmpty
	}
	return Header(sc.Bytes(), delim), nil
}
