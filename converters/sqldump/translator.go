package sqldump

import (
	"fmt"
	"iter"
	"log/slog"
	"strings"

	"github.com/darianmavgo/sqldump2xlsx/converters/common"
)

// TableSchema is the name and ordered column names of one table.
type TableSchema struct {
	Name    string
	Columns []string
}

type state int

const (
	idle state = iota
	inCreate
	inInsertHeader
	inInsertValues
	inCopyHeader
	inCopyRows
)

// Translator turns the Commands of a Lexer into Statements: one per
// CREATE TABLE and one per data row. Commands it does not understand are
// dropped. A Translator holds the schemas of one dump and must not be
// shared between dumps.
type Translator struct {
	lx      *Lexer
	grammar common.Grammar
	maxSize int
	logger  *slog.Logger

	state   state
	schemas map[string]*TableSchema
	last    *TableSchema // most recently recorded schema
	pending []common.Statement
}

// NewTranslator creates a Translator reading from lx.
func NewTranslator(lx *Lexer, config *common.ConversionConfig) *Translator {
	if config == nil {
		config = common.DefaultConversionConfig()
	}
	return &Translator{
		lx:      lx,
		grammar: config.Grammar,
		maxSize: config.MaxFieldSize,
		logger:  config.Log(),
		schemas: make(map[string]*TableSchema),
	}
}

// Next returns the next Statement, reading Commands as needed.
func (t *Translator) Next() (common.Statement, bool) {
	for len(t.pending) == 0 {
		cmd, ok := t.lx.Next()
		if !ok {
			return common.Statement{}, false
		}
		t.translate(cmd)
		t.state = idle
	}
	stmt := t.pending[0]
	t.pending[0] = common.Statement{}
	t.pending = t.pending[1:]
	return stmt, true
}

// All returns the remaining Statements as a sequence.
func (t *Translator) All() iter.Seq[common.Statement] {
	return func(yield func(common.Statement) bool) {
		for {
			stmt, ok := t.Next()
			if !ok || !yield(stmt) {
				return
			}
		}
	}
}

// Schema returns the recorded schema of table.
func (t *Translator) Schema(table string) (TableSchema, bool) {
	s, ok := t.schemas[strings.ToLower(table)]
	if !ok {
		return TableSchema{}, false
	}
	return *s, true
}

// Last returns the most recently recorded schema.
func (t *Translator) Last() (TableSchema, bool) {
	if t.last == nil {
		return TableSchema{}, false
	}
	return *t.last, true
}

func (t *Translator) translate(cmd Command) {
	toks := cmd.Tokens
	if len(toks) == 0 {
		return
	}
	switch {
	case toks[0].Is("CREATE"):
		if i, ok := tableKeyword(toks); ok {
			t.state = inCreate
			t.translateCreate(cmd, i+1)
		}
	case toks[0].Is("INSERT") || toks[0].Is("REPLACE"):
		t.state = inInsertHeader
		t.translateInsert(cmd)
	case toks[0].Is("COPY"):
		t.state = inCopyHeader
		t.translateCopy(cmd)
	}
}

// tableKeyword finds TABLE in CREATE TABLE or CREATE TEMPORARY TABLE.
func tableKeyword(toks []Token) (int, bool) {
	for i := 1; i < len(toks) && i <= 2; i++ {
		if toks[i].Is("TABLE") {
			return i, true
		}
		if !toks[i].Is("TEMPORARY") && !toks[i].Is("TEMP") && !toks[i].Is("UNLOGGED") {
			return 0, false
		}
	}
	return 0, false
}

func (t *Translator) translateCreate(cmd Command, i int) {
	toks := cmd.Tokens
	name := ""
	// the table name is the last word before the column list, which
	// skips modifiers such as IF NOT EXISTS
	for ; i < len(toks) && !toks[i].IsPunct(t.grammar.Open); i++ {
		if toks[i].Kind == Word && toks[i].Text == "." {
			continue
		}
		if toks[i].Kind == Word || toks[i].Kind == Quoted {
			name = nameOf(toks[i])
		}
	}
	if i >= len(toks) || name == "" {
		t.logger.Warn("CREATE TABLE without column list skipped", "line", cmd.Line, "table", name)
		return
	}

	elems, _, closed := readList(toks, i, t.grammar)
	if !closed {
		t.logger.Warn("missing closing bracket in CREATE TABLE", "line", cmd.Line, "table", name)
	}
	cols := columnNames(elems)
	if len(cols) == 0 {
		t.logger.Warn("CREATE TABLE without columns skipped", "line", cmd.Line, "table", name)
		return
	}
	t.record(name, cols)
	t.emitCreate(name, cols)
}

func (t *Translator) translateInsert(cmd Command) {
	toks := cmd.Tokens
	i := 1
	// skip modifiers such as IGNORE or LOW_PRIORITY
	for i < len(toks) && toks[i].Kind == Word && !toks[i].Is("INTO") {
		i++
	}
	if i >= len(toks) || !toks[i].Is("INTO") {
		t.logger.Warn("INSERT without INTO skipped", "line", cmd.Line)
		return
	}
	name, i := readName(toks, i+1)
	if name == "" {
		t.logger.Warn("INSERT without table name skipped", "line", cmd.Line)
		return
	}

	var cols []string
	if i < len(toks) && toks[i].IsPunct(t.grammar.Open) {
		elems, next, closed := readList(toks, i, t.grammar)
		if !closed {
			t.logger.Warn("missing closing bracket in column list", "line", cmd.Line, "table", name)
			return
		}
		cols = listNames(elems)
		t.record(name, cols)
		i = next
	} else if s, ok := t.schemas[strings.ToLower(name)]; ok {
		cols = s.Columns
	}

	for i < len(toks) && !toks[i].Is("VALUES") && !toks[i].Is("VALUE") {
		if toks[i].Is("SELECT") {
			t.logger.Warn("INSERT ... SELECT skipped", "line", cmd.Line, "table", name)
			return
		}
		i++
	}
	if i >= len(toks) {
		t.logger.Warn("INSERT without VALUES skipped", "line", cmd.Line, "table", name)
		return
	}
	i++

	t.state = inInsertValues
	for i < len(toks) {
		if !toks[i].IsPunct(t.grammar.Open) {
			t.logger.Warn("expected value tuple", "line", cmd.Line, "table", name, "token", toks[i].Text)
			return
		}
		elems, next, closed := readList(toks, i, t.grammar)
		if !closed {
			// keep the values read so far, the rest of the command is lost
			t.logger.Warn("missing closing bracket in value tuple", "line", cmd.Line, "table", name)
			next = len(toks)
		}
		values := t.clip(cmd.Line, name, tupleValues(elems, t.grammar))
		if cols == nil && len(values) > 0 {
			cols = placeholderNames(len(values))
			t.record(name, cols)
			t.logger.Warn("no schema for table, columns named by position", "line", cmd.Line, "table", name)
		}
		t.emitRow(cmd.Line, name, cols, values)

		i = next
		if i >= len(toks) {
			return
		}
		switch {
		case toks[i].IsPunct(t.grammar.Separator):
			i++
		case toks[i].Kind == End, toks[i].Is("ON"):
			return
		default:
			t.logger.Warn("missing separator after value tuple", "line", cmd.Line, "table", name, "token", toks[i].Text)
			return
		}
	}
}

func (t *Translator) translateCopy(cmd Command) {
	toks := cmd.Tokens
	name, i := readName(toks, 1)

	var cols []string
	explicit := false
	if i < len(toks) && toks[i].IsPunct(t.grammar.Open) {
		elems, next, closed := readList(toks, i, t.grammar)
		if closed {
			cols = listNames(elems)
			explicit = len(cols) > 0
		}
		i = next
	}

	fromStdin := false
	for ; i+1 < len(toks); i++ {
		if toks[i].Is("FROM") && toks[i+1].Is("STDIN") {
			fromStdin = true
			break
		}
	}
	if !fromStdin {
		// COPY from a file or to stdout carries no row block
		return
	}

	if cols == nil {
		if s, ok := t.schemas[strings.ToLower(name)]; ok {
			cols = s.Columns
		}
	}

	t.state = inCopyRows
	t.lx.SetRowMode(len(cols))
	block, ok := t.lx.Next()
	if !ok {
		return
	}
	if name == "" || len(cols) == 0 {
		t.logger.Warn("bulk-load block without known columns skipped", "line", cmd.Line, "table", name)
		return
	}
	if explicit {
		t.record(name, cols)
	}

	var fields []Token
	for _, tok := range block.Tokens {
		if tok.Kind == Word {
			fields = append(fields, tok)
		}
	}
	if rem := len(fields) % len(cols); rem != 0 {
		t.logger.Warn("bulk-load field count is not a multiple of the column count",
			"line", block.Line, "table", name, "fields", len(fields), "columns", len(cols))
	}

	for start := 0; start < len(fields); start += len(cols) {
		end := min(start+len(cols), len(fields))
		values := make([]any, len(cols))
		for j, tok := range fields[start:end] {
			values[j] = copyValue(tok.Text, t.grammar.Escape)
		}
		t.emitRow(block.Line, name, cols, t.clip(block.Line, name, values))
	}
}

// clip truncates string values longer than the maximum field size.
func (t *Translator) clip(line int, table string, values []any) []any {
	for i, v := range values {
		s, ok := v.(string)
		if !ok {
			continue
		}
		if cut, truncated := common.Truncate(s, t.maxSize); truncated {
			t.logger.Warn("field value truncated", "line", line, "table", table,
				"length", len(s), "max_field_size", t.maxSize)
			values[i] = cut
		}
	}
	return values
}

func (t *Translator) record(name string, cols []string) {
	s := &TableSchema{Name: name, Columns: cols}
	t.schemas[strings.ToLower(name)] = s
	t.last = s
}

func (t *Translator) emitCreate(name string, cols []string) {
	sql, err := common.GenPreparedStmt(name, cols, common.CreateTableStmt)
	if err != nil {
		t.logger.Warn("failed to generate CREATE TABLE", "table", name, "error", err)
		return
	}
	t.pending = append(t.pending, common.Statement{
		Type:    common.CreateTableStmt,
		Table:   name,
		Columns: cols,
		SQL:     sql,
	})
}

// emitRow queues one insert naming as many columns as there are values.
func (t *Translator) emitRow(line int, name string, cols []string, values []any) {
	if len(values) == 0 {
		return
	}
	if len(values) > len(cols) {
		t.logger.Warn("more values than columns, extra values dropped",
			"line", line, "table", name, "values", len(values), "columns", len(cols))
		values = values[:len(cols)]
	}
	rowCols := cols[:len(values)]
	sql, err := common.GenPreparedStmt(name, rowCols, common.InsertStmt)
	if err != nil {
		t.logger.Warn("failed to generate INSERT", "line", line, "table", name, "error", err)
		return
	}
	t.pending = append(t.pending, common.Statement{
		Type:    common.InsertStmt,
		Table:   name,
		Columns: rowCols,
		SQL:     sql,
		Args:    values,
	})
}

// tupleValues converts the elements of one value tuple into arguments.
// Quotes are stripped and escapes decoded; unquoted NULL becomes nil.
func tupleValues(elems [][]Token, g common.Grammar) []any {
	if len(elems) == 1 && len(elems[0]) == 0 {
		return nil
	}
	values := make([]any, len(elems))
	for i, elem := range elems {
		values[i] = elementValue(elem, g)
	}
	return values
}

func elementValue(elem []Token, g common.Grammar) any {
	switch len(elem) {
	case 0:
		return ""
	case 1:
		tok := elem[0]
		if tok.Kind == Quoted {
			return common.UnescapeLiteral(tok.Text, tok.Quote, g.Escape)
		}
		if tok.Is("NULL") {
			return nil
		}
		return tok.Text
	}
	// charset introducers and prefixes such as _binary '..' or E'..'
	// qualify the literal that follows them
	for j := len(elem) - 1; j >= 0; j-- {
		if elem[j].Kind == Quoted {
			return common.UnescapeLiteral(elem[j].Text, elem[j].Quote, g.Escape)
		}
	}
	parts := make([]string, len(elem))
	for j, tok := range elem {
		parts[j] = tok.Text
	}
	return strings.Join(parts, " ")
}

// copyValue decodes one bulk-load field. \N is NULL.
func copyValue(field string, escape rune) any {
	if field == string(escape)+"N" {
		return nil
	}
	return common.UnescapeLiteral(field, 0, escape)
}

func placeholderNames(n int) []string {
	cols := make([]string, n)
	for i := range cols {
		cols[i] = fmt.Sprintf("c%d", i+1)
	}
	return cols
}
