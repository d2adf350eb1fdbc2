package sql

import (
	"regexp"
	"strings"
)

// SelectColumn is one output column parsed from a SELECT list.
type SelectColumn struct {
	Name string // column name or alias
	Expr string // full source expression
}

var (
	// Alias after AS: quoted forms may contain spaces, bare forms may not.
	asAliasPattern  = regexp.MustCompile("(?i)\\s+as\\s+(\"[^\"]*\"|`[^`]*`|\\[[^\\]]*\\]|\\S+)\\s*$")
	funcNamePattern = regexp.MustCompile(`^(\w+)\s*\(`)
	nonWordPattern  = regexp.MustCompile(`[^\w]`)
)

// ParseSelectColumns extracts the output column names of a SELECT
// statement without consulting the schema. It handles plain columns,
// table-qualified columns, AS and implicit aliases, function calls and
// CASE expressions. It returns nil for non-SELECT statements and for
// wildcard projections, where the column set depends on the schema.
func ParseSelectColumns(sqlQuery string) []SelectColumn {
	stripped := StripLiteralsAndComments(sqlQuery)
	start, end := selectListBounds(stripped)
	if start == -1 {
		return nil
	}

	var cols []SelectColumn
	for _, expr := range splitTopLevelCommas(sqlQuery, stripped, start, end) {
		expr = strings.TrimSpace(expr)
		if expr == "" {
			continue
		}
		if expr == "*" || strings.HasSuffix(expr, ".*") {
			return nil
		}
		cols = append(cols, parseColumnExpr(expr))
	}
	return cols
}

// selectListBounds locates the projection list of the top-level SELECT:
// the byte range between the SELECT keyword (plus an optional DISTINCT or
// ALL) and the clause that follows it. Returns -1, -1 when the statement
// has no top-level SELECT.
func selectListBounds(stripped string) (int, int) {
	depth := 0
	start := -1
	i := 0
	for i < len(stripped) {
		ch := stripped[i]
		if ch == '(' {
			depth++
			i++
			continue
		}
		if ch == ')' {
			if depth > 0 {
				depth--
			}
			i++
			continue
		}
		if !isWordByte(ch) {
			i++
			continue
		}

		j := i
		for j < len(stripped) && isWordByte(stripped[j]) {
			j++
		}
		word := strings.ToLower(stripped[i:j])
		if depth == 0 {
			if start == -1 {
				if word == "select" {
					start = j
				}
			} else {
				switch word {
				case "distinct", "all":
					if strings.TrimSpace(stripped[start:i]) == "" {
						start = j
					}
				case "from", "where", "group", "order", "limit", "union", "intersect", "except", "fetch", "offset", "into":
					return start, i
				}
			}
		}
		i = j
	}
	if start == -1 {
		return -1, -1
	}
	return start, len(stripped)
}

// splitTopLevelCommas splits original[start:end] on commas that sit at
// parenthesis depth zero, using the stripped text for structure so commas
// inside literals do not split.
func splitTopLevelCommas(original, stripped string, start, end int) []string {
	var parts []string
	depth := 0
	last := start
	for i := start; i < end; i++ {
		switch stripped[i] {
		case '(':
			depth++
		case ')':
			if depth > 0 {
				depth--
			}
		case ',':
			if depth == 0 {
				parts = append(parts, original[last:i])
				last = i + 1
			}
		}
	}
	return append(parts, original[last:end])
}

func parseColumnExpr(expr string) SelectColumn {
	if m := asAliasPattern.FindStringSubmatch(expr); m != nil {
		return SelectColumn{Name: trimIdentifier(m[1]), Expr: expr}
	}

	// Implicit alias: a trailing bare identifier after a complete
	// expression, as in "COUNT(*) total".
	if fields := strings.Fields(expr); len(fields) > 1 {
		last := fields[len(fields)-1]
		head := strings.Join(fields[:len(fields)-1], " ")
		if isAliasCandidate(last) && strings.Count(head, "(") == strings.Count(head, ")") {
			return SelectColumn{Name: trimIdentifier(last), Expr: expr}
		}
	}

	return SelectColumn{Name: deriveColumnName(expr), Expr: expr}
}

// Words that can trail a projection expression without being an alias.
var aliasStopWords = map[string]bool{
	"and": true, "or": true, "not": true, "is": true, "null": true,
	"in": true, "like": true, "between": true, "case": true, "when": true,
	"then": true, "else": true, "end": true, "asc": true, "desc": true,
}

func isAliasCandidate(tok string) bool {
	if tok == "" {
		return false
	}
	switch tok[0] {
	case '"', '`', '[':
		return true
	}
	first := tok[0]
	if first != '_' && !(first >= 'a' && first <= 'z') && !(first >= 'A' && first <= 'Z') {
		return false
	}
	for i := 1; i < len(tok); i++ {
		if !isWordByte(tok[i]) {
			return false
		}
	}
	return !aliasStopWords[strings.ToLower(tok)]
}

// deriveColumnName produces a name for an unaliased expression: function
// calls yield the function name, CASE expressions yield "case_result",
// plain references yield the column part without the table qualifier.
func deriveColumnName(expr string) string {
	expr = strings.TrimSpace(expr)
	if m := funcNamePattern.FindStringSubmatch(expr); m != nil {
		return strings.ToLower(m[1])
	}
	if strings.HasPrefix(strings.ToLower(expr), "case") {
		return "case_result"
	}
	if dot := strings.LastIndex(expr, "."); dot != -1 {
		expr = expr[dot+1:]
	}
	name := nonWordPattern.ReplaceAllString(trimIdentifier(expr), "")
	return strings.ToLower(name)
}

func trimIdentifier(s string) string {
	return strings.TrimSpace(strings.Trim(s, "`\"[]"))
}
