package common

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenFileNames(t *testing.T) {
	rawnames := []string{"Organized", "Time/line", "Raw Content", "", "organized", ".."}
	expected := []string{"Organized", "Time_line", "Raw_Content", "tb3", "organized_2", "tb5"}
	assert.Equal(t, expected, GenFileNames(rawnames))
}

func TestGenCreateTableSQL(t *testing.T) {
	got := GenCreateTableSQL("users", []string{"id", "na`me"})
	assert.Equal(t, "CREATE TABLE IF NOT EXISTS `users` (`id`, `na``me`)", got)
}

func TestGenPreparedStmt(t *testing.T) {
	got, err := GenPreparedStmt("t", []string{"a", "b", "c"}, InsertStmt)
	require.NoError(t, err)
	assert.Equal(t, "INSERT INTO `t` (`a`, `b`, `c`) VALUES (?, ?, ?)", got)

	_, err = GenPreparedStmt("", []string{"a"}, InsertStmt)
	assert.Error(t, err, "empty table name")
	_, err = GenPreparedStmt("t", []string{"a"}, SQLStmtType("DROP"))
	assert.Error(t, err, "unsupported statement type")
}

func TestGenLiteralSQL(t *testing.T) {
	stmt := Statement{
		Type:    InsertStmt,
		Table:   "t",
		Columns: []string{"a", "b"},
		Args:    []any{"it's", nil},
	}
	assert.Equal(t, "INSERT INTO `t` (`a`, `b`) VALUES ('it''s', NULL)", GenLiteralSQL(stmt))
}

func TestUnescapeLiteral(t *testing.T) {
	tests := []struct {
		name   string
		raw    string
		quote  rune
		expect string
	}{
		{"Plain", "abc", '\'', "abc"},
		{"DoubledQuote", "it''s", '\'', "it's"},
		{"BackslashQuote", `it\'s`, '\'', "it's"},
		{"Newline", `a\nb`, '\'', "a\nb"},
		{"Tab", `a\tb`, 0, "a\tb"},
		{"Backslash", `a\\b`, '\'', `a\b`},
		{"TrailingEscape", `abc\`, '\'', `abc\`},
		{"OtherQuoteUntouched", `say ""hi""`, '\'', `say ""hi""`},
		{"DoubleQuoteLiteral", `say ""hi""`, '"', `say "hi"`},
		{"MultiByte", `caf\é ''x''`, '\'', "café 'x'"},
		{"InvalidBytesKept", "caf\xe9\\n", '\'', "caf\xe9\n"},
		{"EscapedInvalidByte", "a\\\xe9b", '\'', "a\xe9b"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expect, UnescapeLiteral(tt.raw, tt.quote, '\\'), "UnescapeLiteral(%q)", tt.raw)
		})
	}
}

func TestIsConstraintKeyword(t *testing.T) {
	for _, word := range []string{"KEY", "primary", "Constraint", "UNIQUE"} {
		assert.True(t, IsConstraintKeyword(word), word)
	}
	for _, word := range []string{"id", "first", "name", "order"} {
		assert.False(t, IsConstraintKeyword(word), word)
	}
}

func TestToText(t *testing.T) {
	tests := []struct {
		in   any
		want string
	}{
		{nil, ""},
		{"x", "x"},
		{[]byte("y"), "y"},
		{int64(42), "42"},
		{1.5, "1.5"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, ToText(tt.in))
	}
}
