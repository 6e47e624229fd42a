package common

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"
)

// SQLStmtType defines the type of SQL statement to generate
type SQLStmtType string

const (
	CreateTableStmt SQLStmtType = "CREATE"
	InsertStmt      SQLStmtType = "INSERT"

	TBPRE = "tb"
)

var (
	space = regexp.MustCompile(`\s+`)
	reg   = regexp.MustCompile(`[^\p{L}\p{N} _.\-]+`)
)

// QuoteIdentifier wraps name in backticks, doubling embedded backticks.
func QuoteIdentifier(name string) string {
	return "`" + strings.ReplaceAll(name, "`", "``") + "`"
}

// QuoteLiteral wraps a string value in single quotes, escaping any
// embedded single-quote characters by doubling them (standard SQL).
func QuoteLiteral(value string) string {
	return "'" + strings.ReplaceAll(value, "'", "''") + "'"
}

func quoteAll(names []string) string {
	quoted := make([]string, len(names))
	for i, name := range names {
		quoted[i] = QuoteIdentifier(name)
	}
	return strings.Join(quoted, ", ")
}

// GenCreateTableSQL generates a CREATE TABLE SQL statement.
// Columns carry no declared type so values keep the form they were bound with.
func GenCreateTableSQL(tableName string, columnNames []string) string {
	var builder strings.Builder
	builder.Grow(len(tableName) + len(columnNames)*20) // Heuristic pre-allocation
	builder.WriteString("CREATE TABLE IF NOT EXISTS ")
	builder.WriteString(QuoteIdentifier(tableName))
	builder.WriteString(" (")
	builder.WriteString(quoteAll(columnNames))
	builder.WriteByte(')')
	return builder.String()
}

// GenPreparedStmt generates a prepared statement for the specified operation
func GenPreparedStmt(table string, fields []string, stmtType SQLStmtType) (string, error) {
	// Validate inputs
	if table == "" || len(fields) == 0 {
		return "", fmt.Errorf("table name and fields are required")
	}

	switch stmtType {
	case CreateTableStmt:
		return GenCreateTableSQL(table, fields), nil
	case InsertStmt:
		return fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)",
			QuoteIdentifier(table),
			quoteAll(fields),
			strings.Repeat("?, ", len(fields)-1)+"?",
		), nil
	default:
		return "", fmt.Errorf("unsupported statement type: %s", stmtType)
	}
}

// GenLiteralSQL renders stmt as plain SQL text with its arguments inlined.
func GenLiteralSQL(stmt Statement) string {
	if stmt.Type != InsertStmt {
		return stmt.SQL
	}
	values := make([]string, len(stmt.Args))
	for i, arg := range stmt.Args {
		if arg == nil {
			values[i] = "NULL"
			continue
		}
		values[i] = QuoteLiteral(ToText(arg))
	}
	return fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)",
		QuoteIdentifier(stmt.Table),
		quoteAll(stmt.Columns),
		strings.Join(values, ", "),
	)
}

// ToText converts a scanned or bound value to its text form. nil becomes "".
func ToText(v any) string {
	switch val := v.(type) {
	case nil:
		return ""
	case string:
		return val
	case []byte:
		return string(val)
	case int64:
		return strconv.FormatInt(val, 10)
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(val)
	case time.Time:
		return val.Format("2006-01-02 15:04:05")
	default:
		return fmt.Sprintf("%v", val)
	}
}

/*
GenFileNames generates names that can be used as output file names.
Separators and other disallowed characters are replaced, names that end up empty
become {prefix}{idx}, and names colliding on a case-insensitive file system get
a counter suffix.
*/
func GenFileNames(rawnames []string) []string {
	gorgeous := make([]string, len(rawnames))

	counter := map[string]int{}
	for idx, item := range rawnames {
		item = strings.TrimSpace(item)
		item = reg.ReplaceAllString(item, "_")
		item = space.ReplaceAllString(item, "_")
		item = strings.Trim(item, ".")

		// If stripping non-compliant chars leaves us with nothing, give it a default index name
		if len(item) == 0 {
			item = fmt.Sprintf("%s%d", TBPRE, idx)
		}

		key := strings.ToLower(item)
		counter[key]++
		if counter[key] == 1 {
			gorgeous[idx] = item
		} else {
			// use counter to avoid collision
			gorgeous[idx] = fmt.Sprintf("%s_%d", item, counter[key])
		}
	}
	return gorgeous
}

// UnescapeLiteral decodes the raw text of a literal: a doubled quote
// becomes one quote and escape sequences become the characters they name.
// quote may be 0 for unquoted text such as bulk-load fields.
func UnescapeLiteral(raw string, quote, escape rune) string {
	if !strings.ContainsRune(raw, escape) && (quote == 0 || !strings.ContainsRune(raw, quote)) {
		return raw
	}
	var b strings.Builder
	b.Grow(len(raw))
	for i := 0; i < len(raw); {
		r, size := utf8.DecodeRuneInString(raw[i:])
		next := i + size
		switch {
		case r == escape && next < len(raw):
			er, esize := utf8.DecodeRuneInString(raw[next:])
			if er == utf8.RuneError && esize == 1 {
				// bytes that are not UTF-8 are kept as read
				b.WriteString(raw[next : next+1])
			} else {
				b.WriteRune(escapedRune(er))
			}
			next += esize
		case quote != 0 && r == quote && strings.HasPrefix(raw[next:], string(quote)):
			next += size
			b.WriteRune(quote)
		default:
			b.WriteString(raw[i:next])
		}
		i = next
	}
	return b.String()
}

func escapedRune(r rune) rune {
	switch r {
	case 'n':
		return '\n'
	case 't':
		return '\t'
	case 'r':
		return '\r'
	case '0':
		return 0
	case 'b':
		return '\b'
	case 'f':
		return '\f'
	case 'v':
		return '\v'
	case 'Z':
		return 0x1a
	}
	return r
}

// ConstraintKeywords introduce a table element that is not a column,
// e.g. PRIMARY KEY (...) or CONSTRAINT fk FOREIGN KEY (...).
var ConstraintKeywords = []string{
	"CHECK",
	"CONSTRAINT",
	"EXCLUDE",
	"FOREIGN",
	"FULLTEXT",
	"INDEX",
	"KEY",
	"LIKE",
	"PERIOD",
	"PRIMARY",
	"SPATIAL",
	"UNIQUE",
}

var constraintKeywordSet = func() map[string]struct{} {
	set := make(map[string]struct{}, len(ConstraintKeywords))
	for _, kw := range ConstraintKeywords {
		set[kw] = struct{}{}
	}
	return set
}()

// IsConstraintKeyword reports whether word is one of ConstraintKeywords, ignoring case.
func IsConstraintKeyword(word string) bool {
	_, ok := constraintKeywordSet[strings.ToUpper(word)]
	return ok
}
