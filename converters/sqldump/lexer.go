package sqldump

import (
	"log/slog"
	"strings"
	"unicode/utf8"

	"github.com/darianmavgo/sqldump2xlsx/converters/common"
)

// TokenKind classifies a Token.
type TokenKind int

const (
	// Word is an identifier, keyword or unquoted value such as 42 or NULL.
	Word TokenKind = iota + 1
	// Punct is one of the bracket or list separator characters.
	Punct
	// Quoted is the raw text between two matching quote characters.
	Quoted
	// End marks the terminator of a command.
	End
)

func (k TokenKind) String() string {
	switch k {
	case Word:
		return "Word"
	case Punct:
		return "Punct"
	case Quoted:
		return "Quoted"
	case End:
		return "End"
	}
	return "Unknown"
}

// Token is one lexical unit of a dump.
type Token struct {
	Kind  TokenKind
	Text  string // for Quoted, the text between the quotes with escapes intact
	Quote rune   // quote character of a Quoted token
}

// Is reports whether t is the Word kw, ignoring case.
func (t Token) Is(kw string) bool {
	return t.Kind == Word && strings.EqualFold(t.Text, kw)
}

// IsPunct reports whether t is the punctuation character r.
func (t Token) IsPunct(r rune) bool {
	return t.Kind == Punct && t.Text == string(r)
}

// Command is the ordered tokens of one terminated statement.
type Command struct {
	Tokens []Token
	Line   int // physical line the command started on
}

type lexState int

const (
	scanning lexState = iota
	inWord
	inQuote
	inEscape
)

// Lexer groups the characters of a SourceReader into Commands.
type Lexer struct {
	src     *SourceReader
	grammar common.Grammar
	logger  *slog.Logger

	buf string // current line
	pos int    // byte offset into buf

	badUTF8 bool // invalid UTF-8 already reported

	rowMode    bool
	rowColumns int
}

// NewLexer creates a Lexer reading from src.
func NewLexer(src *SourceReader, config *common.ConversionConfig) *Lexer {
	if config == nil {
		config = common.DefaultConversionConfig()
	}
	return &Lexer{
		src:     src,
		grammar: config.Grammar,
		logger:  config.Log(),
	}
}

// SetRowMode makes the next call to Next read a bulk-load row block: every
// line up to the bulk terminator is split into fields, one Word per field.
// columns is the expected field count per line; with one column the whole
// line is a single field.
func (l *Lexer) SetRowMode(columns int) {
	l.rowMode = true
	l.rowColumns = columns
}

// Line returns the physical line number of the line being lexed.
func (l *Lexer) Line() int {
	return l.src.Line()
}

// Err returns the read error of the underlying source, if any.
func (l *Lexer) Err() error {
	return l.src.Err()
}

// Next returns the next non-empty Command. At EOF a pending unterminated
// command is still returned. In row mode an empty block is returned too.
func (l *Lexer) Next() (Command, bool) {
	if l.rowMode {
		return l.nextRows()
	}

	var cmd Command
	for {
		if l.pos >= len(l.buf) {
			line, ok := l.src.Next()
			if !ok {
				l.buf, l.pos = "", 0
				return cmd, len(cmd.Tokens) > 0
			}
			if l.grammar.IsBulkTerminator(line) {
				l.buf, l.pos = "", 0
				if len(cmd.Tokens) > 0 {
					cmd.Tokens = append(cmd.Tokens, Token{Kind: End, Text: l.grammar.BulkTerminator})
					return cmd, true
				}
				continue
			}
			l.buf, l.pos = line, 0
		}

		r, size := l.peek()
		switch {
		case r == ' ' || r == '\t' || r == '\r':
			l.pos += size
		case r == l.grammar.Terminator:
			l.pos += size
			if len(cmd.Tokens) > 0 {
				cmd.Tokens = append(cmd.Tokens, Token{Kind: End, Text: string(r)})
				return cmd, true
			}
		case r == l.grammar.Open || r == l.grammar.Close || r == l.grammar.Separator:
			l.pos += size
			l.begin(&cmd)
			cmd.Tokens = append(cmd.Tokens, Token{Kind: Punct, Text: string(r)})
		case l.grammar.IsQuote(r):
			l.begin(&cmd)
			cmd.Tokens = append(cmd.Tokens, l.readQuoted(r))
		default:
			l.begin(&cmd)
			cmd.Tokens = append(cmd.Tokens, l.readWord())
		}
	}
}

func (l *Lexer) begin(cmd *Command) {
	if len(cmd.Tokens) == 0 {
		cmd.Line = l.src.Line()
	}
}

// peek decodes the character at the current position. A byte that is not
// valid UTF-8 comes back as utf8.RuneError with size 1; it matches no
// grammar character and is copied into tokens unchanged.
func (l *Lexer) peek() (rune, int) {
	r, size := utf8.DecodeRuneInString(l.buf[l.pos:])
	if r == utf8.RuneError && size == 1 && !l.badUTF8 {
		l.badUTF8 = true
		l.logger.Warn("input is not valid UTF-8, bytes kept as read; set the input encoding",
			"line", l.src.Line())
	}
	return r, size
}

// readWord reads up to the next delimiter.
func (l *Lexer) readWord() Token {
	start := l.pos
	state := inWord
	for state == inWord && l.pos < len(l.buf) {
		r, size := l.peek()
		if l.grammar.IsDelimiter(r) {
			state = scanning
			continue
		}
		l.pos += size
	}
	return Token{Kind: Word, Text: l.buf[start:l.pos]}
}

// readQuoted reads a literal opened by quote at the current position.
// The literal may span lines; each line break is kept as the two
// characters of an escaped newline. An unterminated literal at EOF is
// returned as read so far.
func (l *Lexer) readQuoted(quote rune) Token {
	var b strings.Builder
	l.pos += utf8.RuneLen(quote)
	state := inQuote
	for {
		if l.pos >= len(l.buf) {
			line, ok := l.src.NextRaw()
			if !ok {
				l.buf, l.pos = "", 0
				l.logger.Warn("unterminated literal at end of input", "line", l.src.Line())
				return Token{Kind: Quoted, Text: b.String(), Quote: quote}
			}
			if state == inEscape {
				// the escape char already written escapes the line break
				b.WriteRune('n')
				state = inQuote
			} else {
				b.WriteRune(l.grammar.Escape)
				b.WriteRune('n')
			}
			l.buf, l.pos = line, 0
			continue
		}

		r, size := l.peek()
		raw := l.buf[l.pos : l.pos+size]
		l.pos += size
		switch state {
		case inEscape:
			b.WriteString(raw)
			state = inQuote
		case inQuote:
			switch {
			case r == l.grammar.Escape:
				b.WriteString(raw)
				state = inEscape
			case r == quote:
				if strings.HasPrefix(l.buf[l.pos:], raw) {
					// doubled quote stays part of the literal
					b.WriteString(raw)
					b.WriteString(raw)
					l.pos += size
					continue
				}
				return Token{Kind: Quoted, Text: b.String(), Quote: quote}
			default:
				b.WriteString(raw)
			}
		}
	}
}

// nextRows reads a bulk-load row block up to the bulk terminator line.
func (l *Lexer) nextRows() (Command, bool) {
	l.rowMode = false
	// the rest of the line holding the COPY statement is not row data
	l.buf, l.pos = "", 0

	var cmd Command
	for {
		line, ok := l.src.NextRaw()
		if !ok {
			l.logger.Warn("bulk-load block not terminated", "line", cmd.Line)
			return cmd, len(cmd.Tokens) > 0
		}
		if cmd.Line == 0 {
			cmd.Line = l.src.Line()
		}
		if l.grammar.IsBulkTerminator(line) {
			cmd.Tokens = append(cmd.Tokens, Token{Kind: End, Text: l.grammar.BulkTerminator})
			return cmd, true
		}
		if l.rowColumns != 1 && strings.TrimSpace(line) == "" {
			continue
		}
		for _, field := range l.splitRow(line) {
			cmd.Tokens = append(cmd.Tokens, Token{Kind: Word, Text: field})
		}
	}
}

func (l *Lexer) splitRow(line string) []string {
	line = strings.TrimRight(line, "\r")
	switch {
	case l.rowColumns == 1:
		return []string{line}
	case strings.ContainsRune(line, '\t'):
		return strings.Split(line, "\t")
	default:
		return strings.Fields(line)
	}
}
