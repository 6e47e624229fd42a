package converters

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"

	"github.com/darianmavgo/sqldump2xlsx/converters/common"
)

// ExportOptions defines configuration for ExportTables.
type ExportOptions struct {
	Format          string // Registered writer name, e.g. "xlsx"
	MaxFieldSize    int    // 0 means unlimited
	Delimiter       rune   // For delimited text writers. 0 uses the writer default
	KeepEmptyTables bool   // If true, tables without rows get a header-only file
	Logger          *slog.Logger
}

// ExportedTable describes one written output file.
type ExportedTable struct {
	Table string
	Path  string
	Rows  int
}

// ExportTables writes every table of src to its own file in dir, in the
// order src lists them. Exactly one Writer is open at a time: the writer of
// a table is closed before the next table's writer is opened.
func ExportTables(ctx context.Context, src common.TableSource, dir string, opts *ExportOptions) ([]ExportedTable, error) {
	if opts == nil {
		opts = &ExportOptions{}
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	driver, err := LookupWriter(opts.Format)
	if err != nil {
		return nil, err
	}
	wcfg := &common.WriterConfig{
		MaxFieldSize: opts.MaxFieldSize,
		Delimiter:    opts.Delimiter,
	}

	tables, err := src.Tables(ctx)
	if err != nil {
		return nil, err
	}
	fileNames := common.GenFileNames(tables)

	var exported []ExportedTable
	for i, table := range tables {
		if ctx.Err() != nil {
			return exported, ErrInterrupted
		}
		columns, err := src.Columns(ctx, table)
		if err != nil {
			return exported, err
		}
		if len(columns) == 0 {
			continue
		}

		out := ExportedTable{Table: table, Path: filepath.Join(dir, fileNames[i]+driver.Extension())}
		var w common.Writer
		open := func() error {
			logger.Info("Working table", "table", table, "file", out.Path)
			opened, err := driver.Open(out.Path, table, columns, wcfg)
			if err != nil {
				return fmt.Errorf("failed to open writer for table %s: %w", table, err)
			}
			w = opened
			return nil
		}

		err = src.ScanRows(ctx, table, func(row []any) error {
			if w == nil {
				if err := open(); err != nil {
					return err
				}
			}
			if err := w.Append(row); err != nil {
				return fmt.Errorf("failed to write row of table %s: %w", table, err)
			}
			out.Rows++
			return nil
		})
		if err == nil && w == nil && opts.KeepEmptyTables {
			err = open()
		}
		if w != nil {
			if closeErr := w.Close(); closeErr != nil && err == nil {
				err = fmt.Errorf("failed to close writer for table %s: %w", table, closeErr)
			}
		}
		if err != nil {
			return exported, err
		}

		if w == nil {
			logger.Debug("table has no rows, skipped", "table", table)
			continue
		}
		exported = append(exported, out)
	}
	return exported, nil
}
