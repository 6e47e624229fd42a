package zip

import (
	"archive/zip"
	"compress/gzip"
	"errors"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"strings"
)

// ErrNoDump is returned for an archive without a dump entry.
var ErrNoDump = errors.New("archive contains no .sql file")

// DumpExtension is the extension of dump entries inside an archive.
const DumpExtension = ".sql"

// OpenDump opens the dump at p. A .zip archive yields its first .sql entry,
// or its only file; a .gz file is decompressed on the fly. Any other file is
// opened as is. The returned name is the dump's own file name.
func OpenDump(p string) (io.ReadCloser, string, error) {
	switch strings.ToLower(filepath.Ext(p)) {
	case ".zip":
		return openZipEntry(p)
	case ".gz", ".gzip":
		return openGzip(p)
	}
	f, err := os.Open(p)
	if err != nil {
		return nil, "", fmt.Errorf("failed to open dump: %w", err)
	}
	return f, filepath.Base(p), nil
}

// archiveEntry closes the archive together with the entry.
type archiveEntry struct {
	io.ReadCloser
	archive *zip.ReadCloser
}

func (e *archiveEntry) Close() error {
	err := e.ReadCloser.Close()
	if cerr := e.archive.Close(); err == nil {
		err = cerr
	}
	return err
}

func openZipEntry(p string) (io.ReadCloser, string, error) {
	zr, err := zip.OpenReader(p)
	if err != nil {
		return nil, "", fmt.Errorf("failed to open zip archive: %w", err)
	}

	entry := pickEntry(zr.File)
	if entry == nil {
		zr.Close()
		return nil, "", fmt.Errorf("%w: %s", ErrNoDump, p)
	}
	rc, err := entry.Open()
	if err != nil {
		zr.Close()
		return nil, "", fmt.Errorf("failed to open zip entry %s: %w", entry.Name, err)
	}
	return &archiveEntry{ReadCloser: rc, archive: zr}, path.Base(entry.Name), nil
}

// pickEntry returns the first .sql file, or the only file of the archive.
func pickEntry(files []*zip.File) *zip.File {
	var regular []*zip.File
	for _, f := range files {
		if f.FileInfo().IsDir() {
			continue
		}
		if strings.EqualFold(path.Ext(f.Name), DumpExtension) {
			return f
		}
		regular = append(regular, f)
	}
	if len(regular) == 1 {
		return regular[0]
	}
	return nil
}

// gzipFile closes the file together with the decompressor.
type gzipFile struct {
	*gzip.Reader
	file *os.File
}

func (g *gzipFile) Close() error {
	err := g.Reader.Close()
	if cerr := g.file.Close(); err == nil {
		err = cerr
	}
	return err
}

func openGzip(p string) (io.ReadCloser, string, error) {
	f, err := os.Open(p)
	if err != nil {
		return nil, "", fmt.Errorf("failed to open dump: %w", err)
	}
	gz, err := gzip.NewReader(f)
	if err != nil {
		f.Close()
		return nil, "", fmt.Errorf("failed to read gzip header: %w", err)
	}
	name := gz.Name
	if name == "" {
		base := filepath.Base(p)
		name = strings.TrimSuffix(base, filepath.Ext(base))
	}
	return &gzipFile{Reader: gz, file: f}, filepath.Base(name), nil
}
