package sqldump

import (
	"bufio"
	"errors"
	"io"
	"strings"

	"github.com/darianmavgo/sqldump2xlsx/converters/common"
)

// SourceReader yields the non-blank, non-comment lines of a dump.
// It is forward only.
type SourceReader struct {
	r       *bufio.Reader
	grammar common.Grammar
	line    int // physical line number of the last line read
	err     error
	done    bool
}

// NewSourceReader creates a SourceReader over r.
func NewSourceReader(r io.Reader, grammar common.Grammar) *SourceReader {
	return &SourceReader{
		r:       bufio.NewReaderSize(r, 65536),
		grammar: grammar,
	}
}

// Next returns the next line without its line ending.
// It returns false once the input is exhausted or a read error occurred.
func (s *SourceReader) Next() (string, bool) {
	for {
		text, ok := s.NextRaw()
		if !ok {
			return "", false
		}
		if strings.TrimSpace(text) == "" || s.grammar.IsComment(text) {
			continue
		}
		return text, true
	}
}

// NextRaw returns the next physical line, blank and comment lines included.
// It is used where a line continues data that started earlier: the rest of
// a multi-line literal or the rows of a bulk-load block.
func (s *SourceReader) NextRaw() (string, bool) {
	if s.done {
		return "", false
	}
	raw, err := s.r.ReadString('\n')
	if err != nil {
		s.done = true
		if !errors.Is(err, io.EOF) {
			s.err = err
			return "", false
		}
		if raw == "" {
			return "", false
		}
	}
	s.line++
	return strings.TrimRight(raw, "\r\n"), true
}

// Line returns the physical line number of the line last returned by Next.
func (s *SourceReader) Line() int {
	return s.line
}

// Err returns the first read error other than io.EOF.
func (s *SourceReader) Err() error {
	return s.err
}
