package common

import (
	"context"
	"io"
)

// Statement is one translated, parameter-bound statement ready for execution.
type Statement struct {
	Type    SQLStmtType // CreateTableStmt or InsertStmt
	Table   string      // Unquoted table name
	Columns []string    // Unquoted column names, in placeholder order for inserts
	SQL     string      // Statement text with ? placeholders
	Args    []any       // One value per placeholder. nil binds SQL NULL
}

// StreamConverter defines the interface for converting an input to SQL text output
type StreamConverter interface {
	ConvertToSQL(writer io.Writer) error
}

// TableSource enumerates tables and rows for export.
type TableSource interface {
	Tables(ctx context.Context) ([]string, error)
	Columns(ctx context.Context, table string) ([]string, error)
	// ScanRows iterates over rows for the given table.
	// It calls the yield function for each row.
	// If yield returns an error, iteration stops and that error is returned.
	ScanRows(ctx context.Context, table string, yield func(row []any) error) error
}

// Writer receives the rows of one table.
type Writer interface {
	Append(row []any) error
	Close() error
}

// WriterConfig holds options shared by all writers.
type WriterConfig struct {
	MaxFieldSize int  // 0 means unlimited
	Delimiter    rune // Field delimiter for delimited text writers
}

// WriterDriver defines the interface that must be implemented by an output format package.
type WriterDriver interface {
	// Extension returns the file extension including the dot.
	Extension() string

	// Open creates the file at path and writes the table header.
	Open(path, table string, columns []string, config *WriterConfig) (Writer, error)
}
