package common

import (
	"log/slog"
	"strings"
	"unicode/utf8"
)

// DefaultMaxFieldSize is the field size limit used when none is configured.
const DefaultMaxFieldSize = 255

// ConversionConfig stores configuration options for the conversion process.
type ConversionConfig struct {
	Grammar      Grammar      // Input grammar of the dump
	MaxFieldSize int          // Longest field value kept, in characters. 0 means unlimited
	Logger       *slog.Logger // Receives warnings about salvaged input
}

// DefaultConversionConfig returns a config with the default grammar and field limit.
func DefaultConversionConfig() *ConversionConfig {
	return &ConversionConfig{
		Grammar:      DefaultGrammar(),
		MaxFieldSize: DefaultMaxFieldSize,
	}
}

// Log returns the configured logger or slog.Default().
func (c *ConversionConfig) Log() *slog.Logger {
	if c == nil || c.Logger == nil {
		return slog.Default()
	}
	return c.Logger
}

// Grammar holds the characters that structure a dump file.
type Grammar struct {
	Terminator      rune   // Ends a statement
	CommentPrefixes []rune // A line whose first non-blank char is one of these is dropped
	QuoteChars      []rune // Open and close a literal
	Escape          rune   // Keeps the next char inside a literal
	Open            rune
	Close           rune
	Separator       rune   // List separator
	BulkTerminator  string // Standalone line ending a bulk-load block
}

// DefaultGrammar returns the MySQL/Postgres dump grammar.
func DefaultGrammar() Grammar {
	return Grammar{
		Terminator:      ';',
		CommentPrefixes: []rune{'-', '/'},
		QuoteChars:      []rune{'\'', '"', '`'},
		Escape:          '\\',
		Open:            '(',
		Close:           ')',
		Separator:       ',',
		BulkTerminator:  `\.`,
	}
}

// IsQuote reports whether r opens a literal.
func (g Grammar) IsQuote(r rune) bool {
	for _, q := range g.QuoteChars {
		if r == q {
			return true
		}
	}
	return false
}

// IsComment reports whether line is a comment line.
func (g Grammar) IsComment(line string) bool {
	line = strings.TrimLeft(line, " \t")
	if line == "" {
		return false
	}
	first, _ := utf8.DecodeRuneInString(line)
	for _, p := range g.CommentPrefixes {
		if first == p {
			return true
		}
	}
	return false
}

// IsDelimiter reports whether r ends a word.
func (g Grammar) IsDelimiter(r rune) bool {
	switch r {
	case ' ', '\t', '\r', '\n', g.Terminator, g.Open, g.Close, g.Separator:
		return true
	}
	return g.IsQuote(r)
}

// IsBulkTerminator reports whether line is the bulk-load terminator line.
func (g Grammar) IsBulkTerminator(line string) bool {
	return g.BulkTerminator != "" && strings.TrimRight(line, " \t\r") == g.BulkTerminator
}

// Truncate shortens s to at most max characters. max <= 0 means unlimited.
func Truncate(s string, max int) (string, bool) {
	if max <= 0 || len(s) <= max {
		return s, false
	}
	if utf8.RuneCountInString(s) <= max {
		return s, false
	}
	n := 0
	for i := range s {
		if n == max {
			return s[:i], true
		}
		n++
	}
	return s, false
}
