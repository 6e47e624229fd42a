package sqldump

import (
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/darianmavgo/sqldump2xlsx/converters/common"
)

func TestSourceReaderSkipsBlankAndCommentLines(t *testing.T) {
	input := "-- header\n\nCREATE TABLE t (a INT);\n   \n  -- indented\n/*!40101 SET x=1 */;\r\nINSERT INTO t VALUES (1);\r\n"
	r := NewSourceReader(strings.NewReader(input), common.DefaultGrammar())

	var lines []string
	for {
		line, ok := r.Next()
		if !ok {
			break
		}
		lines = append(lines, line)
	}

	assert.Equal(t, []string{"CREATE TABLE t (a INT);", "INSERT INTO t VALUES (1);"}, lines)
	assert.Equal(t, 7, r.Line())
	assert.NoError(t, r.Err())
}

func TestSourceReaderLastLineWithoutNewline(t *testing.T) {
	r := NewSourceReader(strings.NewReader("a\nb"), common.DefaultGrammar())

	line, ok := r.Next()
	require.True(t, ok)
	assert.Equal(t, "a", line)

	line, ok = r.Next()
	require.True(t, ok)
	assert.Equal(t, "b", line)

	_, ok = r.Next()
	assert.False(t, ok)
}

func TestSourceReaderRawKeepsCommentLines(t *testing.T) {
	r := NewSourceReader(strings.NewReader("-1\tx\n\n"), common.DefaultGrammar())

	line, ok := r.NextRaw()
	require.True(t, ok)
	assert.Equal(t, "-1\tx", line)

	line, ok = r.NextRaw()
	require.True(t, ok)
	assert.Equal(t, "", line)
}

func TestSourceReaderCustomCommentPrefix(t *testing.T) {
	g := common.DefaultGrammar()
	g.CommentPrefixes = []rune{'#'}
	r := NewSourceReader(strings.NewReader("# comment\n-- kept\n"), g)

	line, ok := r.Next()
	require.True(t, ok)
	assert.Equal(t, "-- kept", line)
}

type failingReader struct{}

func (failingReader) Read([]byte) (int, error) {
	return 0, errors.New("disk on fire")
}

func TestSourceReaderError(t *testing.T) {
	r := NewSourceReader(failingReader{}, common.DefaultGrammar())
	_, ok := r.Next()
	assert.False(t, ok)
	require.Error(t, r.Err())
	assert.Contains(t, r.Err().Error(), "disk on fire")
}
