package html

import (
	"bufio"
	"fmt"
	"os"

	"github.com/darianmavgo/sqldump2xlsx/converters"
	"github.com/darianmavgo/sqldump2xlsx/converters/common"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

func init() {
	converters.Register("html", &htmlDriver{})
}

type htmlDriver struct{}

func (d *htmlDriver) Extension() string {
	return ".html"
}

func (d *htmlDriver) Open(path, table string, columns []string, config *common.WriterConfig) (common.Writer, error) {
	w, err := NewHTMLWriter(path, table, columns, config)
	if err != nil {
		return nil, err
	}
	return w, nil
}

// HTMLWriter writes the rows of one table as a standalone page with a single <table>.
type HTMLWriter struct {
	file    *os.File
	buf     *bufio.Writer
	maxSize int
}

// Ensure HTMLWriter implements Writer
var _ common.Writer = (*HTMLWriter)(nil)

// NewHTMLWriter creates the page at path and writes everything up to the first row.
func NewHTMLWriter(path, table string, columns []string, config *common.WriterConfig) (*HTMLWriter, error) {
	if config == nil {
		config = &common.WriterConfig{}
	}
	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("failed to create output file: %w", err)
	}
	w := &HTMLWriter{
		file:    f,
		buf:     bufio.NewWriterSize(f, 65536),
		maxSize: config.MaxFieldSize,
	}

	title := html.EscapeString(table)
	fmt.Fprintf(w.buf, "<!DOCTYPE html>\n<html>\n<head>\n<meta charset=\"utf-8\">\n<title>%s</title>\n</head>\n<body>\n<table>\n<caption>%s</caption>\n<thead>\n", title, title)

	header := make([]any, len(columns))
	for i, c := range columns {
		header[i] = c
	}
	if err := w.writeRow(atom.Th, header); err != nil {
		f.Close()
		return nil, err
	}
	w.buf.WriteString("</thead>\n<tbody>\n")
	return w, nil
}

// Append writes one <tr>. NULL becomes an empty cell.
func (w *HTMLWriter) Append(row []any) error {
	return w.writeRow(atom.Td, row)
}

func (w *HTMLWriter) writeRow(cell atom.Atom, values []any) error {
	tr := &html.Node{Type: html.ElementNode, DataAtom: atom.Tr, Data: atom.Tr.String()}
	for _, v := range values {
		text, _ := common.Truncate(common.ToText(v), w.maxSize)
		c := &html.Node{Type: html.ElementNode, DataAtom: cell, Data: cell.String()}
		if text != "" {
			c.AppendChild(&html.Node{Type: html.TextNode, Data: text})
		}
		tr.AppendChild(c)
	}
	if err := html.Render(w.buf, tr); err != nil {
		return fmt.Errorf("failed to write table row: %w", err)
	}
	if err := w.buf.WriteByte('\n'); err != nil {
		return fmt.Errorf("failed to write table row: %w", err)
	}
	return nil
}

// Close finishes the page and closes the file.
func (w *HTMLWriter) Close() error {
	w.buf.WriteString("</tbody>\n</table>\n</body>\n</html>\n")
	if err := w.buf.Flush(); err != nil {
		w.file.Close()
		return fmt.Errorf("failed to flush output file: %w", err)
	}
	if err := w.file.Close(); err != nil {
		return fmt.Errorf("failed to close output file: %w", err)
	}
	return nil
}
