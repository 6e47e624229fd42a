package excel

import (
	"fmt"
	"strings"
	"time"

	"github.com/darianmavgo/sqldump2xlsx/converters"
	"github.com/darianmavgo/sqldump2xlsx/converters/common"

	"github.com/xuri/excelize/v2"
)

func init() {
	converters.Register("xlsx", &excelDriver{})
}

// DateTimeFormat is the number format of cells holding a date and time.
const DateTimeFormat = "yyyy-mm-dd hh:mm"

// maxSheetName is the longest sheet name Excel accepts.
const maxSheetName = 31

// datetimeLayouts are the text forms recognised as datetimes.
var datetimeLayouts = []string{
	"2006-01-02 15:04:05",
	"2006-01-02 15:04:05.999999999",
	"2006-01-02T15:04:05",
	"2006-01-02T15:04:05Z07:00",
	"2006-01-02 15:04",
}

type excelDriver struct{}

func (d *excelDriver) Extension() string {
	return ".xlsx"
}

func (d *excelDriver) Open(path, table string, columns []string, config *common.WriterConfig) (common.Writer, error) {
	w, err := NewExcelWriter(path, table, columns, config)
	if err != nil {
		return nil, err
	}
	return w, nil
}

// ExcelWriter writes the rows of one table to a single sheet workbook.
// Rows are streamed; the workbook is saved on Close.
type ExcelWriter struct {
	path     string
	file     *excelize.File
	stream   *excelize.StreamWriter
	row      int
	maxSize  int
	dateTime int // style ID
}

// Ensure ExcelWriter implements Writer
var _ common.Writer = (*ExcelWriter)(nil)

// NewExcelWriter creates the workbook for table and writes the bold header row.
func NewExcelWriter(path, table string, columns []string, config *common.WriterConfig) (*ExcelWriter, error) {
	if config == nil {
		config = &common.WriterConfig{}
	}

	f := excelize.NewFile()
	sheet := SheetName(table)
	if sheet != "Sheet1" {
		if err := f.SetSheetName("Sheet1", sheet); err != nil {
			f.Close()
			return nil, fmt.Errorf("failed to name sheet %s: %w", sheet, err)
		}
	}

	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to create header style: %w", err)
	}
	numFmt := DateTimeFormat
	dateTime, err := f.NewStyle(&excelize.Style{CustomNumFmt: &numFmt})
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to create datetime style: %w", err)
	}

	sw, err := f.NewStreamWriter(sheet)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to create stream writer: %w", err)
	}

	header := make([]any, len(columns))
	for i, c := range columns {
		header[i] = excelize.Cell{StyleID: bold, Value: c}
	}
	if err := sw.SetRow("A1", header); err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to write header row: %w", err)
	}

	return &ExcelWriter{
		path:     path,
		file:     f,
		stream:   sw,
		row:      1,
		maxSize:  config.MaxFieldSize,
		dateTime: dateTime,
	}, nil
}

// Append writes one row below the previous one.
func (w *ExcelWriter) Append(row []any) error {
	if w.row >= excelize.TotalRows {
		return fmt.Errorf("failed to append row: sheet is full (%d rows)", excelize.TotalRows)
	}
	w.row++

	cells := make([]any, len(row))
	for i, v := range row {
		cells[i] = w.cell(v)
	}
	cell, err := excelize.CoordinatesToCellName(1, w.row)
	if err != nil {
		return fmt.Errorf("failed to address row %d: %w", w.row, err)
	}
	if err := w.stream.SetRow(cell, cells); err != nil {
		return fmt.Errorf("failed to write row %d: %w", w.row, err)
	}
	return nil
}

func (w *ExcelWriter) cell(v any) any {
	switch val := v.(type) {
	case nil:
		return nil
	case time.Time:
		return excelize.Cell{StyleID: w.dateTime, Value: val}
	case string:
		if t, ok := ParseDateTime(val); ok {
			return excelize.Cell{StyleID: w.dateTime, Value: t}
		}
		limit := excelize.TotalCellChars
		if w.maxSize > 0 && w.maxSize < limit {
			limit = w.maxSize
		}
		text, _ := common.Truncate(val, limit)
		return text
	default:
		text, _ := common.Truncate(common.ToText(val), excelize.TotalCellChars)
		return text
	}
}

// Close flushes the rows and saves the workbook.
func (w *ExcelWriter) Close() error {
	defer w.file.Close()
	if err := w.stream.Flush(); err != nil {
		return fmt.Errorf("failed to flush sheet: %w", err)
	}
	if err := w.file.SaveAs(w.path); err != nil {
		return fmt.Errorf("failed to save workbook: %w", err)
	}
	return nil
}

// ParseDateTime reports whether s is a date with a time of day and returns it.
func ParseDateTime(s string) (time.Time, bool) {
	if len(s) < len("2006-01-02 15:04") || s[4] != '-' {
		return time.Time{}, false
	}
	for _, layout := range datetimeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// SheetName turns a table name into a valid sheet name.
func SheetName(table string) string {
	name := strings.Map(func(r rune) rune {
		switch r {
		case ':', '\\', '/', '?', '*', '[', ']':
			return '_'
		}
		return r
	}, table)
	name = strings.Trim(name, "'")
	if r := []rune(name); len(r) > maxSheetName {
		name = string(r[:maxSheetName])
	}
	if strings.TrimSpace(name) == "" {
		return "Sheet1"
	}
	return name
}
