package sqldump

import (
	"fmt"
	"io"
	"strings"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/encoding/htmlindex"
	"golang.org/x/text/transform"
)

// charmaps are the single-byte encodings looked up before the WHATWG index,
// which maps the ISO-8859-1 labels onto Windows-1252.
var charmaps = map[string]encoding.Encoding{
	"latin1":      charmap.ISO8859_1,
	"iso-8859-1":  charmap.ISO8859_1,
	"iso8859-1":   charmap.ISO8859_1,
	"latin9":      charmap.ISO8859_15,
	"iso-8859-15": charmap.ISO8859_15,
	"cp1252":      charmap.Windows1252,
	"cp1251":      charmap.Windows1251,
	"cp437":       charmap.CodePage437,
	"cp850":       charmap.CodePage850,
}

// LookupEncoding returns the encoding named by name. An empty name and the
// UTF-8 labels return nil: the input is read as is.
func LookupEncoding(name string) (encoding.Encoding, error) {
	label := strings.ToLower(strings.TrimSpace(name))
	switch label {
	case "", "utf8", "utf-8", "utf8mb4":
		return nil, nil
	}
	if enc, ok := charmaps[label]; ok {
		return enc, nil
	}
	enc, err := htmlindex.Get(label)
	if err != nil {
		return nil, fmt.Errorf("unknown input encoding %q", name)
	}
	return enc, nil
}

// DecodeInput wraps r so that the dump, written in the named encoding, is
// read as UTF-8.
func DecodeInput(r io.Reader, name string) (io.Reader, error) {
	enc, err := LookupEncoding(name)
	if err != nil {
		return nil, err
	}
	if enc == nil {
		return r, nil
	}
	return transform.NewReader(r, enc.NewDecoder()), nil
}
