package csv

import (
	"bufio"
	"encoding/csv"
	"fmt"
	"os"

	"github.com/darianmavgo/sqldump2xlsx/converters"
	"github.com/darianmavgo/sqldump2xlsx/converters/common"
)

func init() {
	converters.Register("csv", &csvDriver{})
}

type csvDriver struct{}

func (d *csvDriver) Extension() string {
	return ".csv"
}

func (d *csvDriver) Open(path, table string, columns []string, config *common.WriterConfig) (common.Writer, error) {
	w, err := NewCSVWriter(path, columns, config)
	if err != nil {
		return nil, err
	}
	return w, nil
}

// CSVWriter writes the rows of one table as delimited text with a header line.
// Fields are quoted only when needed; NULL is written as an empty field.
type CSVWriter struct {
	file    *os.File
	buf     *bufio.Writer
	csv     *csv.Writer
	record  []string
	maxSize int
}

// Ensure CSVWriter implements Writer
var _ common.Writer = (*CSVWriter)(nil)

// NewCSVWriter creates the file at path and writes the header line.
func NewCSVWriter(path string, columns []string, config *common.WriterConfig) (*CSVWriter, error) {
	if config == nil {
		config = &common.WriterConfig{}
	}

	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("failed to create output file: %w", err)
	}
	buf := bufio.NewWriterSize(f, 65536)
	cw := csv.NewWriter(buf)
	if config.Delimiter != 0 {
		cw.Comma = config.Delimiter
	}

	w := &CSVWriter{
		file:    f,
		buf:     buf,
		csv:     cw,
		maxSize: config.MaxFieldSize,
	}
	if err := cw.Write(columns); err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to write CSV header: %w", err)
	}
	return w, nil
}

// Append writes one record.
func (w *CSVWriter) Append(row []any) error {
	w.record = w.record[:0]
	for _, v := range row {
		text, _ := common.Truncate(common.ToText(v), w.maxSize)
		w.record = append(w.record, text)
	}
	if err := w.csv.Write(w.record); err != nil {
		return fmt.Errorf("failed to write CSV record: %w", err)
	}
	return nil
}

// Close flushes the buffered records and closes the file.
func (w *CSVWriter) Close() error {
	w.csv.Flush()
	if err := w.csv.Error(); err != nil {
		w.file.Close()
		return fmt.Errorf("failed to flush CSV writer: %w", err)
	}
	if err := w.buf.Flush(); err != nil {
		w.file.Close()
		return fmt.Errorf("failed to flush output file: %w", err)
	}
	if err := w.file.Close(); err != nil {
		return fmt.Errorf("failed to close output file: %w", err)
	}
	return nil
}
