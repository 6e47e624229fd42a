package sqldump

import (
	"fmt"
	"io"
	"iter"

	"github.com/darianmavgo/sqldump2xlsx/converters/common"
)

// DumpConverter translates a SQL dump into Statements.
type DumpConverter struct {
	lexer      *Lexer
	translator *Translator
	Config     common.ConversionConfig
}

// Ensure DumpConverter implements StreamConverter
var _ common.StreamConverter = (*DumpConverter)(nil)

// NewDumpConverter creates a new DumpConverter from an io.Reader.
func NewDumpConverter(r io.Reader) *DumpConverter {
	return NewDumpConverterWithConfig(r, nil)
}

// NewDumpConverterWithConfig creates a new DumpConverter from an io.Reader with optional config.
func NewDumpConverterWithConfig(r io.Reader, config *common.ConversionConfig) *DumpConverter {
	if config == nil {
		config = common.DefaultConversionConfig()
	}
	// the caller's config is left as passed
	cfg := *config
	if len(cfg.Grammar.QuoteChars) == 0 {
		cfg.Grammar = common.DefaultGrammar()
	}

	lx := NewLexer(NewSourceReader(r, cfg.Grammar), &cfg)
	return &DumpConverter{
		lexer:      lx,
		translator: NewTranslator(lx, &cfg),
		Config:     cfg,
	}
}

// Statements returns the translated statements in emission order.
// The sequence can be consumed once.
func (c *DumpConverter) Statements() iter.Seq[common.Statement] {
	return c.translator.All()
}

// Translator returns the translator, e.g. to inspect recorded schemas.
func (c *DumpConverter) Translator() *Translator {
	return c.translator
}

// Err returns the read error that ended the statement sequence early, if any.
func (c *DumpConverter) Err() error {
	if err := c.lexer.Err(); err != nil {
		return fmt.Errorf("failed to read dump: %w", err)
	}
	return nil
}

// ConvertToSQL implements StreamConverter: every statement is written as
// one line of SQL with its arguments inlined.
func (c *DumpConverter) ConvertToSQL(writer io.Writer) error {
	for stmt := range c.Statements() {
		if _, err := fmt.Fprintf(writer, "%s;\n", common.GenLiteralSQL(stmt)); err != nil {
			return fmt.Errorf("failed to write statement: %w", err)
		}
	}
	return c.Err()
}
