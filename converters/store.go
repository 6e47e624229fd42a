package converters

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"iter"
	"log/slog"
	"strings"
	"time"

	"github.com/darianmavgo/sqldump2xlsx/converters/common"

	_ "modernc.org/sqlite"
)

var ErrInterrupted = errors.New("operation interrupted by user")
var ErrScanTimeout = errors.New("no statement read within the stall timeout")

var (
	// BatchSize defines the number of statements to execute before committing a transaction.
	// This ensures that long-running dumps save progress periodically.
	BatchSize = 1000
)

// ErrorTable receives failed statements when StoreOptions.LogErrors is set.
const ErrorTable = "_sqldump2xlsx_errors"

// StoreOptions defines configuration for a Store.
type StoreOptions struct {
	BatchSize    int           // Statements per transaction. 0 uses the package BatchSize
	MaxFieldSize int           // Read-back values are truncated to this many characters. 0 means unlimited
	LogErrors    bool          // If true, failed statements are also recorded in ErrorTable
	StallTimeout time.Duration // Ingest gives up when no statement arrives for this long. 0 disables
	RunID        string        // Stored with every ErrorTable row
	Logger       *slog.Logger
}

// IngestStats counts what Ingest did.
type IngestStats struct {
	Statements int // statements read
	Tables     int // CREATE TABLE statements executed
	Rows       int // rows inserted
	Failed     int // statements rejected by the store
}

// Store is the embedded SQLite database a dump is loaded into and exported from.
// Writes go through one running transaction committed every BatchSize
// statements. A Store is not safe for concurrent use.
type Store struct {
	db     *sql.DB
	path   string
	opts   StoreOptions
	logger *slog.Logger

	tx      *sql.Tx
	txStmts map[string]*sql.Stmt
	pending int

	columns map[string]map[string]bool // lower-cased table -> lower-cased columns
}

// Ensure Store implements TableSource
var _ common.TableSource = (*Store)(nil)

// OpenStore opens or creates the SQLite database at path.
func OpenStore(path string, opts *StoreOptions) (*Store, error) {
	var o StoreOptions
	if opts != nil {
		o = *opts
	}
	if o.BatchSize <= 0 {
		o.BatchSize = BatchSize
	}
	logger := o.Logger
	if logger == nil {
		logger = slog.Default()
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// One connection: the running transaction owns it.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec("PRAGMA page_size = 65536; PRAGMA cache_size = -2000;"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to set PRAGMAs: %w", err)
	}

	if o.LogErrors {
		_, err := db.Exec(`CREATE TABLE IF NOT EXISTS ` + ErrorTable + ` (
			timestamp DATETIME DEFAULT CURRENT_TIMESTAMP,
			run_id TEXT,
			message TEXT,
			table_name TEXT,
			sql_text TEXT,
			row_data TEXT
		)`)
		if err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to create error log table: %w", err)
		}
	}

	return &Store{
		db:      db,
		path:    path,
		opts:    o,
		logger:  logger,
		columns: make(map[string]map[string]bool),
	}, nil
}

// Path returns the database file path.
func (s *Store) Path() string {
	return s.path
}

// DB returns the underlying database handle.
func (s *Store) DB() *sql.DB {
	return s.db
}

// Execute runs stmt inside the store's running transaction, starting one if
// needed. An insert into a table the store does not have creates it first,
// and columns the table lacks are added. A failing statement leaves the
// transaction and the statements before it intact.
func (s *Store) Execute(ctx context.Context, stmt common.Statement) error {
	if err := ctx.Err(); err != nil {
		return ErrInterrupted
	}
	if err := s.begin(ctx); err != nil {
		return err
	}

	switch stmt.Type {
	case common.CreateTableStmt:
		if _, err := s.tx.ExecContext(ctx, stmt.SQL); err != nil {
			return fmt.Errorf("failed to create table %s: %w", stmt.Table, err)
		}
		delete(s.columns, strings.ToLower(stmt.Table))
		return s.ensureTable(ctx, stmt.Table, stmt.Columns)
	case common.InsertStmt:
		if err := s.ensureTable(ctx, stmt.Table, stmt.Columns); err != nil {
			return err
		}
		ps, err := s.prepare(ctx, stmt.SQL)
		if err != nil {
			return fmt.Errorf("failed to prepare insert for table %s: %w", stmt.Table, err)
		}
		if _, err := ps.ExecContext(ctx, stmt.Args...); err != nil {
			return fmt.Errorf("failed to insert row in table %s: %w", stmt.Table, err)
		}
		return nil
	default:
		return fmt.Errorf("unsupported statement type: %s", stmt.Type)
	}
}

// Commit commits the running transaction, if any.
func (s *Store) Commit() error {
	if s.tx == nil {
		return nil
	}
	for _, ps := range s.txStmts {
		ps.Close()
	}
	s.txStmts = nil
	tx := s.tx
	s.tx = nil
	s.pending = 0
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// Ingest executes stmts in order. A statement the store rejects is logged
// and skipped. The transaction is committed every BatchSize statements and
// once at the end; when ctx is cancelled or the source stalls, the work done
// so far is committed and ErrInterrupted or ErrScanTimeout is returned.
//
// stmts is pulled on its own goroutine. On the normal path Ingest returns
// after stmts is exhausted. On the early paths it returns without waiting:
// a stalled producer may be blocked in a Read of the dump, and it stops at
// its next statement. The caller must not close that reader under it; see
// ConvertDump.
func (s *Store) Ingest(ctx context.Context, stmts iter.Seq[common.Statement]) (IngestStats, error) {
	var stats IngestStats

	items := make(chan common.Statement)
	cancelCh := make(chan struct{})
	go func() {
		defer close(items)
		for stmt := range stmts {
			select {
			case items <- stmt:
			case <-cancelCh:
				return
			}
		}
	}()
	defer close(cancelCh)

	wd := common.NewWatchdog(s.opts.StallTimeout, s.logger)
	wdDone := wd.Start()
	defer wd.Stop()

	for {
		select {
		case stmt, ok := <-items:
			if !ok {
				return stats, s.Commit()
			}
			wd.Kick()
			if err := s.apply(ctx, stmt, &stats); err != nil {
				return stats, err
			}
		case <-wdDone:
			return stats, s.stop(ErrScanTimeout)
		case <-ctx.Done():
			return stats, s.stop(ErrInterrupted)
		}
	}
}

func (s *Store) apply(ctx context.Context, stmt common.Statement, stats *IngestStats) error {
	stats.Statements++
	err := s.Execute(ctx, stmt)
	switch {
	case errors.Is(err, ErrInterrupted):
		return s.stop(ErrInterrupted)
	case err != nil:
		stats.Failed++
		if err := s.recordFailure(ctx, stmt, err); err != nil {
			return err
		}
	case stmt.Type == common.CreateTableStmt:
		stats.Tables++
	default:
		stats.Rows++
	}

	s.pending++
	if s.pending >= s.opts.BatchSize {
		return s.Commit()
	}
	return nil
}

// stop commits the partial work and returns cause.
func (s *Store) stop(cause error) error {
	s.logger.Info("stopped, committing partial transaction", "reason", cause)
	if err := s.Commit(); err != nil {
		s.logger.Error("failed to commit on stop", "error", err)
	}
	return cause
}

func (s *Store) recordFailure(ctx context.Context, stmt common.Statement, cause error) error {
	s.logger.Warn("statement failed, skipped",
		"table", stmt.Table, "sql", stmt.SQL, "args", stmt.Args, "error", cause)
	if !s.opts.LogErrors {
		return nil
	}
	if err := s.begin(ctx); err != nil {
		return err
	}
	_, err := s.tx.ExecContext(ctx,
		`INSERT INTO `+ErrorTable+` (run_id, message, table_name, sql_text, row_data) VALUES (?, ?, ?, ?, ?)`,
		s.opts.RunID, cause.Error(), stmt.Table, stmt.SQL, fmt.Sprintf("%v", stmt.Args))
	if err != nil {
		return fmt.Errorf("failed to log error: %w", err)
	}
	return nil
}

func (s *Store) begin(ctx context.Context) error {
	if s.tx != nil {
		return nil
	}
	// a cancelled ctx must not roll back the work committed on stop
	tx, err := s.db.BeginTx(context.WithoutCancel(ctx), nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	s.tx = tx
	s.txStmts = make(map[string]*sql.Stmt)
	return nil
}

func (s *Store) prepare(ctx context.Context, query string) (*sql.Stmt, error) {
	if ps, ok := s.txStmts[query]; ok {
		return ps, nil
	}
	ps, err := s.tx.PrepareContext(ctx, query)
	if err != nil {
		return nil, err
	}
	s.txStmts[query] = ps
	return ps, nil
}

// ensureTable creates table if it does not exist and adds the columns it lacks.
func (s *Store) ensureTable(ctx context.Context, table string, cols []string) error {
	known, err := s.knownColumns(ctx, table)
	if err != nil {
		return err
	}
	if known == nil {
		if _, err := s.tx.ExecContext(ctx, common.GenCreateTableSQL(table, cols)); err != nil {
			return fmt.Errorf("failed to create table %s: %w", table, err)
		}
		known = make(map[string]bool, len(cols))
		for _, c := range cols {
			known[strings.ToLower(c)] = true
		}
		s.columns[strings.ToLower(table)] = known
		s.logger.Debug("created table for rows without CREATE TABLE", "table", table, "columns", cols)
		return nil
	}
	for _, c := range cols {
		if known[strings.ToLower(c)] {
			continue
		}
		alter := fmt.Sprintf("ALTER TABLE %s ADD COLUMN %s", common.QuoteIdentifier(table), common.QuoteIdentifier(c))
		if _, err := s.tx.ExecContext(ctx, alter); err != nil {
			return fmt.Errorf("failed to add column %s to table %s: %w", c, table, err)
		}
		known[strings.ToLower(c)] = true
		s.logger.Debug("added column", "table", table, "column", c)
	}
	return nil
}

// knownColumns returns the column set of table, or nil if it does not exist.
func (s *Store) knownColumns(ctx context.Context, table string) (map[string]bool, error) {
	key := strings.ToLower(table)
	if known, ok := s.columns[key]; ok {
		return known, nil
	}
	rows, err := s.tx.QueryContext(ctx, "SELECT name FROM pragma_table_info(?)", table)
	if err != nil {
		return nil, fmt.Errorf("failed to read columns of table %s: %w", table, err)
	}
	defer rows.Close()

	var known map[string]bool
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("failed to read columns of table %s: %w", table, err)
		}
		if known == nil {
			known = make(map[string]bool)
		}
		known[strings.ToLower(name)] = true
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read columns of table %s: %w", table, err)
	}
	if known != nil {
		s.columns[key] = known
	}
	return known, nil
}

// Tables returns the user tables in creation order. Any running
// transaction is committed first.
func (s *Store) Tables(ctx context.Context) ([]string, error) {
	if err := s.Commit(); err != nil {
		return nil, err
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT name FROM sqlite_master WHERE type = 'table' AND name NOT LIKE 'sqlite\_%' ESCAPE '\' ORDER BY rowid`)
	if err != nil {
		return nil, fmt.Errorf("failed to list tables: %w", err)
	}
	defer rows.Close()

	var tables []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("failed to list tables: %w", err)
		}
		if name == ErrorTable {
			continue
		}
		tables = append(tables, name)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to list tables: %w", err)
	}
	return tables, nil
}

// Columns returns the column names of table in declaration order.
func (s *Store) Columns(ctx context.Context, table string) ([]string, error) {
	if err := s.Commit(); err != nil {
		return nil, err
	}
	rows, err := s.db.QueryContext(ctx, "SELECT name FROM pragma_table_info(?) ORDER BY cid", table)
	if err != nil {
		return nil, fmt.Errorf("failed to read columns of table %s: %w", table, err)
	}
	defer rows.Close()

	var cols []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("failed to read columns of table %s: %w", table, err)
		}
		cols = append(cols, name)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read columns of table %s: %w", table, err)
	}
	return cols, nil
}

// ScanRows iterates over the rows of table in insertion order.
// Values are strings or nil, truncated to MaxFieldSize. If yield returns an
// error, iteration stops and that error is returned.
func (s *Store) ScanRows(ctx context.Context, table string, yield func(row []any) error) error {
	cols, err := s.Columns(ctx, table)
	if err != nil {
		return err
	}
	if len(cols) == 0 {
		return fmt.Errorf("failed to scan table %s: no such table", table)
	}

	quoted := make([]string, len(cols))
	for i, c := range cols {
		quoted[i] = common.QuoteIdentifier(c)
	}
	query := fmt.Sprintf("SELECT %s FROM %s ORDER BY rowid", strings.Join(quoted, ", "), common.QuoteIdentifier(table))
	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return fmt.Errorf("failed to scan table %s: %w", table, err)
	}
	defer rows.Close()

	raw := make([]any, len(cols))
	ptrs := make([]any, len(cols))
	for i := range raw {
		ptrs[i] = &raw[i]
	}
	for rows.Next() {
		if ctx.Err() != nil {
			return ErrInterrupted
		}
		if err := rows.Scan(ptrs...); err != nil {
			return fmt.Errorf("failed to scan row of table %s: %w", table, err)
		}
		row := make([]any, len(cols))
		for i, v := range raw {
			if v == nil {
				continue
			}
			text, _ := common.Truncate(common.ToText(v), s.opts.MaxFieldSize)
			row[i] = text
		}
		if err := yield(row); err != nil {
			return err
		}
	}
	if ctx.Err() != nil {
		return ErrInterrupted
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("failed to scan table %s: %w", table, err)
	}
	return nil
}

// RowCount returns the number of rows in table.
func (s *Store) RowCount(ctx context.Context, table string) (int, error) {
	if err := s.Commit(); err != nil {
		return 0, err
	}
	var n int
	if err := s.db.QueryRowContext(ctx, "SELECT count(*) FROM "+common.QuoteIdentifier(table)).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count rows of table %s: %w", table, err)
	}
	return n, nil
}

// Close commits any running transaction and closes the database.
func (s *Store) Close() error {
	commitErr := s.Commit()
	if err := s.db.Close(); err != nil {
		return fmt.Errorf("failed to close database: %w", err)
	}
	return commitErr
}
