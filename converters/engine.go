package converters

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/darianmavgo/sqldump2xlsx/converters/common"
	"github.com/darianmavgo/sqldump2xlsx/converters/sqldump"
	"github.com/darianmavgo/sqldump2xlsx/converters/zip"
)

var ErrDestinationExists = errors.New("destination already exists")
var ErrDestinationNotEmpty = errors.New("destination directory is not empty")

// StdinPath names standard input as the dump source.
const StdinPath = "-"

// Options defines configuration for a conversion run.
type Options struct {
	Format          string          // Output writer, e.g. "xlsx", "csv" or "html"
	MaxFieldSize    int             // 0 means unlimited
	Delimiter       rune            // CSV field delimiter. 0 means ','
	BatchSize       int             // Statements per store transaction. 0 uses BatchSize
	LogErrors       bool            // If true, failed statements are recorded in ErrorTable
	KeepEmptyTables bool            // If true, tables without rows are exported too
	KeepStore       bool            // If true, the SQLite store is kept next to the output
	StorePath       string          // Store file to keep. Defaults to <outDir>/<dump name>.sqlite
	StallTimeout    time.Duration   // Give up when the dump yields no statement for this long. 0 disables
	Grammar         *common.Grammar // nil uses common.DefaultGrammar()
	Encoding        string          // Character set of the dump, e.g. "latin1". Empty reads it as UTF-8
	Stdin           io.Reader       // Read for StdinPath. nil means os.Stdin
	RunID           string          // Generated when empty
	Logger          *slog.Logger
}

// DefaultOptions returns the options of a plain xlsx conversion.
func DefaultOptions() *Options {
	return &Options{
		Format:       "xlsx",
		MaxFieldSize: common.DefaultMaxFieldSize,
	}
}

// Report summarizes a run.
type Report struct {
	RunID     string
	Source    string
	StorePath string // empty when the store was a temporary file
	Ingest    IngestStats
	Tables    []ExportedTable
	Elapsed   time.Duration
}

func (o *Options) logger() *slog.Logger {
	if o.Logger == nil {
		return slog.Default()
	}
	return o.Logger
}

func (o *Options) grammar() common.Grammar {
	if o.Grammar == nil {
		return common.DefaultGrammar()
	}
	return *o.Grammar
}

func (o *Options) exportOptions(logger *slog.Logger) *ExportOptions {
	return &ExportOptions{
		Format:          o.Format,
		MaxFieldSize:    o.MaxFieldSize,
		Delimiter:       o.Delimiter,
		KeepEmptyTables: o.KeepEmptyTables,
		Logger:          logger,
	}
}

// ConvertDump loads the SQL dump at dumpPath into an SQLite store and writes
// one file per table into outDir. outDir must be empty or missing. Nothing
// is written before the source, the destination and the store path have
// been checked.
func ConvertDump(ctx context.Context, dumpPath, outDir string, opts *Options) (*Report, error) {
	if opts == nil {
		opts = DefaultOptions()
	}
	start := time.Now()
	report := &Report{RunID: opts.RunID, Source: dumpPath}
	if report.RunID == "" {
		report.RunID = uuid.NewString()
	}
	logger := opts.logger().With("run_id", report.RunID)

	// Pre-flight
	if _, err := LookupWriter(opts.Format); err != nil {
		return report, err
	}
	if _, err := sqldump.LookupEncoding(opts.Encoding); err != nil {
		return report, err
	}
	opened, err := openSource(dumpPath, opts.Stdin)
	if err != nil {
		return report, err
	}
	// Ingest may return while its producer is still reading
	source := &sourceCloser{rc: opened}
	defer source.Close()
	if err := checkOutputDir(outDir); err != nil {
		return report, err
	}
	storePath := ""
	if opts.KeepStore {
		storePath = opts.StorePath
		if storePath == "" {
			storePath = filepath.Join(outDir, storeName(dumpPath))
		}
		if _, err := os.Stat(storePath); err == nil {
			return report, fmt.Errorf("%w: %s", ErrDestinationExists, storePath)
		}
	}

	if err := os.MkdirAll(outDir, 0755); err != nil {
		return report, fmt.Errorf("failed to create output directory: %w", err)
	}
	if storePath == "" {
		tmpFile, err := os.CreateTemp("", "sqldump2xlsx-*.db")
		if err != nil {
			return report, fmt.Errorf("failed to create temp file: %w", err)
		}
		storePath = tmpFile.Name()
		tmpFile.Close() // Close it so sql.Open can use it
		defer os.Remove(storePath)
		logger.Debug("Created temp store", "path", storePath)
	} else {
		report.StorePath = storePath
	}

	store, err := OpenStore(storePath, &StoreOptions{
		BatchSize:    opts.BatchSize,
		MaxFieldSize: opts.MaxFieldSize,
		LogErrors:    opts.LogErrors,
		StallTimeout: opts.StallTimeout,
		RunID:        report.RunID,
		Logger:       logger,
	})
	if err != nil {
		return report, err
	}
	defer store.Close()

	logger.Info("Loading dump", "source", dumpPath, "store", storePath)
	input, err := sqldump.DecodeInput(source, opts.Encoding)
	if err != nil {
		return report, err
	}
	conv := sqldump.NewDumpConverterWithConfig(input, &common.ConversionConfig{
		Grammar:      opts.grammar(),
		MaxFieldSize: opts.MaxFieldSize,
		Logger:       logger,
	})
	report.Ingest, err = store.Ingest(ctx, conv.Statements())
	if err != nil {
		report.Elapsed = time.Since(start)
		return report, err
	}
	if err := conv.Err(); err != nil {
		report.Elapsed = time.Since(start)
		return report, err
	}
	logger.Info("Dump loaded",
		"statements", report.Ingest.Statements, "tables", report.Ingest.Tables,
		"rows", report.Ingest.Rows, "failed", report.Ingest.Failed)

	report.Tables, err = ExportTables(ctx, store, outDir, opts.exportOptions(logger))
	report.Elapsed = time.Since(start)
	if err != nil {
		return report, err
	}
	logger.Info("Conversion completed", "files", len(report.Tables), "elapsed", report.Elapsed)
	return report, nil
}

// ExportDatabase writes one file per table of the existing SQLite database
// at dbPath into outDir. outDir must be empty or missing.
func ExportDatabase(ctx context.Context, dbPath, outDir string, opts *Options) (*Report, error) {
	if opts == nil {
		opts = DefaultOptions()
	}
	start := time.Now()
	report := &Report{RunID: opts.RunID, Source: dbPath, StorePath: dbPath}
	if report.RunID == "" {
		report.RunID = uuid.NewString()
	}
	logger := opts.logger().With("run_id", report.RunID)

	if _, err := LookupWriter(opts.Format); err != nil {
		return report, err
	}
	info, err := os.Stat(dbPath)
	if err != nil {
		return report, fmt.Errorf("failed to stat database: %w", err)
	}
	if info.IsDir() {
		return report, fmt.Errorf("failed to open database: %s is a directory", dbPath)
	}
	if err := checkOutputDir(outDir); err != nil {
		return report, err
	}
	if err := os.MkdirAll(outDir, 0755); err != nil {
		return report, fmt.Errorf("failed to create output directory: %w", err)
	}

	store, err := OpenStore(dbPath, &StoreOptions{MaxFieldSize: opts.MaxFieldSize, Logger: logger})
	if err != nil {
		return report, err
	}
	defer store.Close()

	report.Tables, err = ExportTables(ctx, store, outDir, opts.exportOptions(logger))
	report.Elapsed = time.Since(start)
	if err != nil {
		return report, err
	}
	logger.Info("Export completed", "files", len(report.Tables), "elapsed", report.Elapsed)
	return report, nil
}

// WriteSQL translates the dump read from r and writes the statements as
// plain SQL to w, one per line.
func WriteSQL(r io.Reader, w io.Writer, opts *Options) error {
	if opts == nil {
		opts = DefaultOptions()
	}
	g := opts.grammar()
	input, err := sqldump.DecodeInput(r, opts.Encoding)
	if err != nil {
		return err
	}
	conv := sqldump.NewDumpConverterWithConfig(input, &common.ConversionConfig{
		Grammar:      g,
		MaxFieldSize: opts.MaxFieldSize,
		Logger:       opts.logger(),
	})
	return conv.ConvertToSQL(w)
}

// openSource opens the dump, or stdin for StdinPath. Zip and gzip
// compressed dumps are unpacked on the fly.
func openSource(path string, stdin io.Reader) (io.ReadCloser, error) {
	if path == StdinPath {
		if stdin == nil {
			stdin = os.Stdin
		}
		return io.NopCloser(stdin), nil
	}
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("failed to stat dump: %w", err)
	}
	if info.IsDir() {
		return nil, fmt.Errorf("failed to open dump: %s is a directory", path)
	}
	rc, _, err := zip.OpenDump(path)
	if err != nil {
		return nil, err
	}
	return rc, nil
}

// sourceCloser defers closing the dump until a Read in progress returns.
type sourceCloser struct {
	mu      sync.Mutex
	rc      io.ReadCloser
	reading bool
	closed  bool
}

func (s *sourceCloser) Read(p []byte) (int, error) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return 0, os.ErrClosed
	}
	s.reading = true
	s.mu.Unlock()

	n, err := s.rc.Read(p)

	s.mu.Lock()
	s.reading = false
	late := s.closed
	s.mu.Unlock()
	if late {
		s.rc.Close()
	}
	return n, err
}

// Close closes the dump now, or when the pending Read returns.
func (s *sourceCloser) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	busy := s.reading
	s.mu.Unlock()
	if busy {
		return nil
	}
	return s.rc.Close()
}

// checkOutputDir fails unless dir is missing or an empty directory.
func checkOutputDir(dir string) error {
	info, err := os.Stat(dir)
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to stat output directory: %w", err)
	}
	if !info.IsDir() {
		return fmt.Errorf("%w: %s is not a directory", ErrDestinationExists, dir)
	}
	f, err := os.Open(dir)
	if err != nil {
		return fmt.Errorf("failed to open output directory: %w", err)
	}
	defer f.Close()
	names, err := f.Readdirnames(1)
	if err != nil && !errors.Is(err, io.EOF) {
		return fmt.Errorf("failed to read output directory: %w", err)
	}
	if len(names) > 0 {
		return fmt.Errorf("%w: %s", ErrDestinationNotEmpty, dir)
	}
	return nil
}

// storeName is the file name of a kept store for the dump at path.
func storeName(path string) string {
	if path == StdinPath {
		return "stdin.sqlite"
	}
	base := filepath.Base(path)
	for _, ext := range []string{".gz", ".gzip", ".zip", ".sql"} {
		if strings.HasSuffix(strings.ToLower(base), ext) {
			base = base[:len(base)-len(ext)]
		}
	}
	if base == "" {
		base = "dump"
	}
	return base + ".sqlite"
}
