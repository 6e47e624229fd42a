package converters_test

import (
	"bytes"
	"compress/gzip"
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/darianmavgo/sqldump2xlsx/converters"
	_ "github.com/darianmavgo/sqldump2xlsx/converters/all"
)

const shopDump = `-- MySQL dump
/*!40101 SET NAMES utf8mb4 */;
CREATE TABLE ` + "`customers`" + ` (
  ` + "`id`" + ` int NOT NULL,
  ` + "`name`" + ` varchar(100),
  ` + "`joined`" + ` datetime,
  PRIMARY KEY (` + "`id`" + `)
);
INSERT INTO ` + "`customers`" + ` VALUES (1,'Ann','2024-01-02 03:04:05'),(2,'a much longer name',NULL);
CREATE TABLE ` + "`empty`" + ` (` + "`id`" + ` int);
INSERT INTO ` + "`orders`" + ` (id, total) VALUES (10,'9.90');
`

func testOptions(format string) *converters.Options {
	opts := converters.DefaultOptions()
	opts.Format = format
	opts.Logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	return opts
}

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(p, []byte(content), 0644))
	return p
}

func TestConvertDumpXLSX(t *testing.T) {
	dump := writeFile(t, "shop.sql", shopDump)
	outDir := filepath.Join(t.TempDir(), "out")

	report, err := converters.ConvertDump(context.Background(), dump, outDir, testOptions("xlsx"))
	require.NoError(t, err)

	assert.NotEmpty(t, report.RunID)
	assert.Empty(t, report.StorePath)
	assert.Equal(t, 2, report.Ingest.Tables)
	assert.Equal(t, 3, report.Ingest.Rows)
	require.Len(t, report.Tables, 2)
	assert.Equal(t, "customers", report.Tables[0].Table)
	assert.Equal(t, "orders", report.Tables[1].Table)
	assert.NoFileExists(t, filepath.Join(outDir, "empty.xlsx"))

	f, err := excelize.OpenFile(filepath.Join(outDir, "customers.xlsx"))
	require.NoError(t, err)
	defer f.Close()
	assert.Equal(t, []string{"customers"}, f.GetSheetList())
	rows, err := f.GetRows("customers")
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, []string{"id", "name", "joined"}, rows[0])
	assert.Equal(t, "Ann", rows[1][1])
	assert.True(t, strings.HasPrefix(rows[1][2], "2024-01-02"), rows[1][2])
	assert.Equal(t, "a much longer name", rows[2][1])
}

func TestConvertDumpCSVTruncates(t *testing.T) {
	dump := writeFile(t, "shop.sql", shopDump)
	outDir := t.TempDir()
	opts := testOptions("csv")
	opts.MaxFieldSize = 6

	_, err := converters.ConvertDump(context.Background(), dump, outDir, opts)
	require.NoError(t, err)

	data, err := os.ReadFile(filepath.Join(outDir, "customers.csv"))
	require.NoError(t, err)
	assert.Equal(t, "id,name,joined\n1,Ann,2024-0\n2,a much,\n", string(data))
}

func TestConvertDumpGzip(t *testing.T) {
	var buf bytes.Buffer
	gz := gzip.NewWriter(&buf)
	_, err := gz.Write([]byte(shopDump))
	require.NoError(t, err)
	require.NoError(t, gz.Close())
	dump := writeFile(t, "shop.sql.gz", buf.String())

	outDir := t.TempDir()
	opts := testOptions("html")
	opts.KeepStore = true
	report, err := converters.ConvertDump(context.Background(), dump, outDir, opts)
	require.NoError(t, err)

	assert.Equal(t, filepath.Join(outDir, "shop.sqlite"), report.StorePath)
	assert.FileExists(t, report.StorePath)
	assert.FileExists(t, filepath.Join(outDir, "orders.html"))

	// the kept store can be exported again
	again := filepath.Join(t.TempDir(), "again")
	opts = testOptions("csv")
	opts.KeepEmptyTables = true
	report, err = converters.ExportDatabase(context.Background(), filepath.Join(outDir, "shop.sqlite"), again, opts)
	require.NoError(t, err)
	assert.Len(t, report.Tables, 3)
	assert.FileExists(t, filepath.Join(again, "empty.csv"))
}

func TestConvertDumpPreflight(t *testing.T) {
	dump := writeFile(t, "shop.sql", shopDump)
	ctx := context.Background()

	_, err := converters.ConvertDump(ctx, dump, t.TempDir(), testOptions("pdf"))
	assert.ErrorIs(t, err, converters.ErrUnknownFormat)

	_, err = converters.ConvertDump(ctx, filepath.Join(t.TempDir(), "missing.sql"), t.TempDir(), testOptions("csv"))
	assert.Error(t, err)

	busy := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(busy, "old.csv"), nil, 0644))
	_, err = converters.ConvertDump(ctx, dump, busy, testOptions("csv"))
	assert.ErrorIs(t, err, converters.ErrDestinationNotEmpty)

	_, err = converters.ConvertDump(ctx, dump, dump, testOptions("csv"))
	assert.ErrorIs(t, err, converters.ErrDestinationExists)

	opts := testOptions("csv")
	opts.KeepStore = true
	opts.StorePath = writeFile(t, "taken.sqlite", "")
	outDir := filepath.Join(t.TempDir(), "out")
	_, err = converters.ConvertDump(ctx, dump, outDir, opts)
	assert.ErrorIs(t, err, converters.ErrDestinationExists)
	assert.NoDirExists(t, outDir)
}

func TestConvertDumpInterrupted(t *testing.T) {
	dump := writeFile(t, "shop.sql", shopDump)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := converters.ConvertDump(ctx, dump, t.TempDir(), testOptions("csv"))
	assert.ErrorIs(t, err, converters.ErrInterrupted)
}

func TestWriteSQL(t *testing.T) {
	var out bytes.Buffer
	err := converters.WriteSQL(strings.NewReader("INSERT INTO t (a) VALUES ('x'),(NULL);"), &out, testOptions("xlsx"))
	require.NoError(t, err)
	assert.Equal(t,
		"INSERT INTO `t` (`a`) VALUES ('x');\nINSERT INTO `t` (`a`) VALUES (NULL);\n",
		out.String())
}

func TestConvertDumpStdin(t *testing.T) {
	outDir := filepath.Join(t.TempDir(), "out")
	opts := testOptions("csv")
	opts.Stdin = strings.NewReader("CREATE TABLE Cities (name TEXT, pop INT);\n" +
		"INSERT INTO CITIES VALUES ('K\xf6ln', 1084831);\n")
	opts.Encoding = "latin1"
	opts.KeepStore = true

	report, err := converters.ConvertDump(context.Background(), converters.StdinPath, outDir, opts)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(outDir, "stdin.sqlite"), report.StorePath)
	require.Len(t, report.Tables, 1)
	assert.Equal(t, 1, report.Tables[0].Rows)

	data, err := os.ReadFile(report.Tables[0].Path)
	require.NoError(t, err)
	assert.Equal(t, "name,pop\nKöln,1084831\n", string(data))
}

func TestConvertDumpUnknownEncoding(t *testing.T) {
	dump := writeFile(t, "shop.sql", shopDump)
	outDir := filepath.Join(t.TempDir(), "out")
	opts := testOptions("csv")
	opts.Encoding = "klingon"

	_, err := converters.ConvertDump(context.Background(), dump, outDir, opts)
	assert.ErrorContains(t, err, "unknown input encoding")
	assert.NoDirExists(t, outDir)
}
