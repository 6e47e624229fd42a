package sqldump

import (
	"strings"

	"github.com/darianmavgo/sqldump2xlsx/converters/common"
)

// readList reads the bracketed, comma separated list whose opening bracket
// is toks[start]. Each element holds the element's top-level tokens; nested
// bracket groups are skipped, not descended into. next is the index after
// the closing bracket. closed is false when the list ran out of tokens (or
// hit the end of the statement) before its closing bracket; the elements
// read so far are still returned.
//
// Depth is tracked with a counter. The list ends as soon as the depth
// drops back to zero.
func readList(toks []Token, start int, g common.Grammar) (elems [][]Token, next int, closed bool) {
	depth := 0
	var cur []Token
	for i := start; i < len(toks); i++ {
		tok := toks[i]
		switch {
		case tok.Kind == End:
			if cur != nil {
				elems = append(elems, cur)
			}
			return elems, i, false
		case tok.IsPunct(g.Open):
			depth++
			if depth == 1 {
				continue
			}
		case tok.IsPunct(g.Close):
			depth--
			if depth <= 0 {
				elems = append(elems, cur)
				return elems, i + 1, true
			}
			continue
		case tok.IsPunct(g.Separator) && depth == 1:
			elems = append(elems, cur)
			cur = nil
			continue
		}
		if depth == 1 {
			cur = append(cur, tok)
		}
	}
	if cur != nil {
		elems = append(elems, cur)
	}
	return elems, len(toks), false
}

// readName reads a possibly qualified name starting at toks[i], such as
// t, db.t, `db`.`t` or "public"."t", and returns the unqualified part.
func readName(toks []Token, i int) (string, int) {
	if i >= len(toks) || (toks[i].Kind != Word && toks[i].Kind != Quoted) {
		return "", i
	}
	name := nameOf(toks[i])
	i++
	for i+1 < len(toks) && toks[i].Kind == Word && toks[i].Text == "." &&
		(toks[i+1].Kind == Word || toks[i+1].Kind == Quoted) {
		name = nameOf(toks[i+1])
		i += 2
	}
	return name, i
}

// nameOf returns the identifier a single token names.
func nameOf(tok Token) string {
	if tok.Kind == Quoted {
		return common.UnescapeLiteral(tok.Text, tok.Quote, 0)
	}
	if idx := strings.LastIndexByte(tok.Text, '.'); idx >= 0 && idx < len(tok.Text)-1 {
		return tok.Text[idx+1:]
	}
	return tok.Text
}

// columnNames returns the column name of every element of a table
// definition. Elements starting with a constraint keyword are skipped.
func columnNames(elems [][]Token) []string {
	var cols []string
	for _, elem := range elems {
		if len(elem) == 0 {
			continue
		}
		first := elem[0]
		switch first.Kind {
		case Quoted:
			cols = append(cols, nameOf(first))
		case Word:
			if common.IsConstraintKeyword(first.Text) {
				continue
			}
			cols = append(cols, nameOf(first))
		}
	}
	return cols
}

// listNames returns the name of every element of an explicit column list.
func listNames(elems [][]Token) []string {
	cols := make([]string, 0, len(elems))
	for _, elem := range elems {
		if len(elem) == 0 {
			continue
		}
		cols = append(cols, nameOf(elem[0]))
	}
	return cols
}
