package grammar

import (
	"fmt"
	"strings"
)

type tokenKind int

const (
	tokSpace tokenKind = iota
	tokWord
	tokIdent
	tokString
	tokPunct
)

// sqlToken is one lexical token of a stored CREATE TABLE statement.
type sqlToken struct {
	kind tokenKind
	text string
}

// name returns the identifier a bare word or quoted identifier denotes.
func (t sqlToken) name() (string, bool) {
	switch t.kind {
	case tokWord:
		return t.text, true
	case tokIdent:
		inner := t.text[1 : len(t.text)-1]
		switch t.text[0] {
		case '"':
			inner = strings.ReplaceAll(inner, `""`, `"`)
		case '`':
			inner = strings.ReplaceAll(inner, "``", "`")
		}
		return inner, true
	}
	return "", false
}

func (t sqlToken) is(keyword string) bool {
	return t.kind == tokWord && strings.EqualFold(t.text, keyword)
}

func (t sqlToken) punct(c string) bool {
	return t.kind == tokPunct && t.text == c
}

// tokenize splits sql into tokens. Comments become whitespace.
func tokenize(sql string) ([]sqlToken, error) {
	var out []sqlToken
	for i := 0; i < len(sql); {
		start := i
		c := sql[i]
		switch {
		case c == ' ' || c == '\t' || c == '\n' || c == '\r':
			for i < len(sql) && strings.IndexByte(" \t\n\r", sql[i]) >= 0 {
				i++
			}
			out = append(out, sqlToken{tokSpace, sql[start:i]})
		case strings.HasPrefix(sql[i:], "--"):
			end := strings.IndexByte(sql[i:], '\n')
			if end < 0 {
				i = len(sql)
			} else {
				i += end
			}
			out = append(out, sqlToken{tokSpace, " "})
		case strings.HasPrefix(sql[i:], "/*"):
			end := strings.Index(sql[i+2:], "*/")
			if end < 0 {
				return nil, fmt.Errorf("unterminated comment")
			}
			i += end + 4
			out = append(out, sqlToken{tokSpace, " "})
		case c == '\'' || c == '"' || c == '`':
			end, err := closeQuote(sql, i, c)
			if err != nil {
				return nil, err
			}
			i = end
			kind := tokIdent
			if c == '\'' {
				kind = tokString
			}
			out = append(out, sqlToken{kind, sql[start:i]})
		case c == '[':
			end := strings.IndexByte(sql[i:], ']')
			if end < 0 {
				return nil, fmt.Errorf("unterminated [ quote")
			}
			i += end + 1
			out = append(out, sqlToken{tokIdent, sql[start:i]})
		case isWordByte(c):
			for i < len(sql) && isWordByte(sql[i]) {
				i++
			}
			out = append(out, sqlToken{tokWord, sql[start:i]})
		default:
			i++
			out = append(out, sqlToken{tokPunct, sql[start:i]})
		}
	}
	return out, nil
}

// closeQuote returns the offset just past the quote opened at start. A
// doubled quote character is an escaped one.
func closeQuote(sql string, start int, q byte) (int, error) {
	for i := start + 1; i < len(sql); i++ {
		if sql[i] != q {
			continue
		}
		if i+1 < len(sql) && sql[i+1] == q {
			i++
			continue
		}
		return i + 1, nil
	}
	return 0, fmt.Errorf("unterminated %c quote", q)
}

func isWordByte(c byte) bool {
	return c == '_' || c == '$' || c >= 0x80 ||
		('0' <= c && c <= '9') || ('a' <= c && c <= 'z') || ('A' <= c && c <= 'Z')
}

// group returns the tokens from the parenthesis at open through its match.
func group(tokens []sqlToken, open int) ([]sqlToken, bool) {
	depth := 0
	for i := open; i < len(tokens); i++ {
		switch {
		case tokens[i].punct("("):
			depth++
		case tokens[i].punct(")"):
			depth--
			if depth == 0 {
				return tokens[open : i+1], true
			}
		}
	}
	return nil, false
}

// nextToken returns the index of the first non-space token at or after
// from, or -1.
func nextToken(tokens []sqlToken, from int) int {
	for i := from; i < len(tokens); i++ {
		if tokens[i].kind != tokSpace {
			return i
		}
	}
	return -1
}

// splitDefinitions splits a column list at its top-level commas.
func splitDefinitions(tokens []sqlToken) [][]sqlToken {
	var out [][]sqlToken
	depth, start := 0, 0
	for i, t := range tokens {
		switch {
		case t.punct("("):
			depth++
		case t.punct(")"):
			depth--
		case t.punct(",") && depth == 0:
			out = append(out, tokens[start:i])
			start = i + 1
		}
	}
	return append(out, tokens[start:])
}

// checkConstraint is a CHECK clause read from a stored table definition.
type checkConstraint struct {
	name   string
	column string
	expr   []sqlToken
}

// parseChecks returns the CHECK constraints of a stored CREATE TABLE
// statement in declaration order. Column-level checks record the column
// they were declared on.
func parseChecks(ddl string) ([]checkConstraint, error) {
	if strings.TrimSpace(ddl) == "" {
		return nil, nil
	}
	tokens, err := tokenize(ddl)
	if err != nil {
		return nil, err
	}
	open := -1
	for i, t := range tokens {
		if t.punct("(") {
			open = i
			break
		}
	}
	if open < 0 {
		return nil, fmt.Errorf("table definition has no column list")
	}
	body, ok := group(tokens, open)
	if !ok {
		return nil, fmt.Errorf("unbalanced parentheses in table definition")
	}

	var checks []checkConstraint
	for _, def := range splitDefinitions(body[1 : len(body)-1]) {
		first := nextToken(def, 0)
		if first < 0 {
			continue
		}
		def = def[first:]
		if isTableConstraint(def[0]) {
			c, found, err := tableCheck(def)
			if err != nil {
				return nil, err
			}
			if found {
				checks = append(checks, c)
			}
			continue
		}
		column, _ := def[0].name()
		for i := 1; i < len(def); i++ {
			switch {
			case def[i].punct("("):
				g, ok := group(def, i)
				if !ok {
					return nil, fmt.Errorf("unbalanced parentheses in column %s", column)
				}
				i += len(g) - 1
			case def[i].is("CHECK"):
				expr, end, err := checkExpr(def, i)
				if err != nil {
					return nil, err
				}
				checks = append(checks, checkConstraint{column: column, expr: expr})
				i = end
			}
		}
	}
	return checks, nil
}

func isTableConstraint(t sqlToken) bool {
	for _, kw := range []string{"CONSTRAINT", "PRIMARY", "UNIQUE", "CHECK", "FOREIGN"} {
		if t.is(kw) {
			return true
		}
	}
	return false
}

// tableCheck reads a table constraint, reporting false when it is not a
// CHECK.
func tableCheck(def []sqlToken) (checkConstraint, bool, error) {
	var c checkConstraint
	i := 0
	if def[0].is("CONSTRAINT") {
		j := nextToken(def, 1)
		if j < 0 {
			return c, false, fmt.Errorf("constraint without a name")
		}
		c.name, _ = def[j].name()
		if i = nextToken(def, j+1); i < 0 {
			return c, false, fmt.Errorf("constraint %s has no body", c.name)
		}
	}
	if !def[i].is("CHECK") {
		return c, false, nil
	}
	expr, _, err := checkExpr(def, i)
	c.expr = expr
	return c, err == nil, err
}

// checkExpr returns the parenthesised expression following the CHECK
// keyword at i, and the index of its closing parenthesis.
func checkExpr(def []sqlToken, i int) ([]sqlToken, int, error) {
	open := nextToken(def, i+1)
	if open < 0 || !def[open].punct("(") {
		return nil, 0, fmt.Errorf("CHECK without an expression")
	}
	expr, ok := group(def, open)
	if !ok {
		return nil, 0, fmt.Errorf("unbalanced parentheses in CHECK")
	}
	return expr, open + len(expr) - 1, nil
}

// references returns the live columns the expression mentions. columns
// maps lower-cased names to live names.
func (c checkConstraint) references(columns map[string]string) []string {
	var out []string
	seen := map[string]bool{}
	for _, t := range c.expr {
		if n, ok := t.name(); ok {
			if live, ok := columns[strings.ToLower(n)]; ok && !seen[live] {
				seen[live] = true
				out = append(out, live)
			}
		}
	}
	return out
}

// render writes the constraint back with column references renamed.
func (c checkConstraint) render(q quoter, rename func(string) string, columns map[string]string) string {
	var b strings.Builder
	if c.name != "" {
		b.WriteString("CONSTRAINT " + q.wrap(c.name) + " ")
	}
	b.WriteString("CHECK ")
	for _, t := range c.expr {
		if n, ok := t.name(); ok {
			if live, ok := columns[strings.ToLower(n)]; ok {
				if to := rename(live); to != live {
					b.WriteString(q.wrap(to))
					continue
				}
			}
		}
		b.WriteString(t.text)
	}
	return b.String()
}
