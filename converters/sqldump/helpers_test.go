package sqldump

import (
	"bytes"
	"io"
	"log/slog"
	"slices"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/darianmavgo/sqldump2xlsx/converters/common"
)

// testConfig returns an unlimited-size config whose warnings go to logs.
func testConfig(logs io.Writer) *common.ConversionConfig {
	cfg := common.DefaultConversionConfig()
	cfg.MaxFieldSize = 0
	cfg.Logger = slog.New(slog.NewTextHandler(logs, nil))
	return cfg
}

// translate runs the whole dump through a fresh converter.
func translate(t *testing.T, input string) ([]common.Statement, string) {
	t.Helper()
	var logs bytes.Buffer
	conv := NewDumpConverterWithConfig(strings.NewReader(input), testConfig(&logs))
	stmts := slices.Collect(conv.Statements())
	require.NoError(t, conv.Err())
	return stmts, logs.String()
}

// lex returns every command of input.
func lex(t *testing.T, input string) []Command {
	t.Helper()
	cfg := testConfig(io.Discard)
	lx := NewLexer(NewSourceReader(strings.NewReader(input), cfg.Grammar), cfg)
	var cmds []Command
	for {
		cmd, ok := lx.Next()
		if !ok {
			return cmds
		}
		cmds = append(cmds, cmd)
	}
}

func texts(cmd Command) []string {
	out := make([]string, len(cmd.Tokens))
	for i, tok := range cmd.Tokens {
		out[i] = tok.Text
	}
	return out
}
