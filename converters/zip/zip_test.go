package zip

import (
	"archive/zip"
	"compress/gzip"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const dump = "CREATE TABLE t (a INT);\nINSERT INTO t VALUES (1);\n"

type entry struct {
	name, content string
}

func writeZip(t *testing.T, entries ...entry) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), "dump.zip")
	f, err := os.Create(p)
	require.NoError(t, err)
	defer f.Close()

	zw := zip.NewWriter(f)
	for _, e := range entries {
		w, err := zw.Create(e.name)
		require.NoError(t, err)
		_, err = io.WriteString(w, e.content)
		require.NoError(t, err)
	}
	require.NoError(t, zw.Close())
	return p
}

func readAll(t *testing.T, rc io.ReadCloser) string {
	t.Helper()
	b, err := io.ReadAll(rc)
	require.NoError(t, err)
	require.NoError(t, rc.Close())
	return string(b)
}

func TestOpenDumpZip(t *testing.T) {
	p := writeZip(t, entry{"README.txt", "not a dump"}, entry{"backup/shop.sql", dump})

	rc, name, err := OpenDump(p)
	require.NoError(t, err)
	assert.Equal(t, "shop.sql", name)
	assert.Equal(t, dump, readAll(t, rc))
}

func TestOpenDumpZipSingleFile(t *testing.T) {
	p := writeZip(t, entry{"export.dump", dump})

	rc, name, err := OpenDump(p)
	require.NoError(t, err)
	assert.Equal(t, "export.dump", name)
	assert.Equal(t, dump, readAll(t, rc))
}

func TestOpenDumpZipWithoutDump(t *testing.T) {
	p := writeZip(t, entry{"a.txt", "a"}, entry{"b.txt", "b"})

	_, _, err := OpenDump(p)
	assert.ErrorIs(t, err, ErrNoDump)
}

func TestOpenDumpGzip(t *testing.T) {
	p := filepath.Join(t.TempDir(), "shop.sql.gz")
	f, err := os.Create(p)
	require.NoError(t, err)
	gz := gzip.NewWriter(f)
	_, err = io.WriteString(gz, dump)
	require.NoError(t, err)
	require.NoError(t, gz.Close())
	require.NoError(t, f.Close())

	rc, name, err := OpenDump(p)
	require.NoError(t, err)
	assert.Equal(t, "shop.sql", name)
	assert.Equal(t, dump, readAll(t, rc))
}

func TestOpenDumpPlain(t *testing.T) {
	p := filepath.Join(t.TempDir(), "shop.sql")
	require.NoError(t, os.WriteFile(p, []byte(dump), 0644))

	rc, name, err := OpenDump(p)
	require.NoError(t, err)
	assert.Equal(t, "shop.sql", name)
	assert.Equal(t, dump, readAll(t, rc))

	_, _, err = OpenDump(filepath.Join(t.TempDir(), "missing.sql"))
	assert.Error(t, err)
}
