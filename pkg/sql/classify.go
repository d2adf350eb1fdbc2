package sql

import "strings"

// Statements that produce a row set. Everything else goes through the
// exec path and reports affected rows.
var readKeywords = map[string]bool{
	"select":   true,
	"show":     true,
	"explain":  true,
	"describe": true,
	"desc":     true,
	"pragma":   true,
	"values":   true,
	"table":    true,
}

// Keywords that turn a WITH statement into a data-modifying one when they
// appear at the top level of the CTE chain.
var modifyingKeywords = map[string]bool{
	"insert":  true,
	"update":  true,
	"delete":  true,
	"merge":   true,
	"replace": true,
}

// FirstKeyword returns the first keyword of the statement, lowercased.
// Leading comments and opening parentheses are skipped, so a union operand
// like "(SELECT ...) UNION ..." classifies as a select.
func FirstKeyword(sqlQuery string) string {
	stripped := StripLiteralsAndComments(sqlQuery)
	start := -1
	for i := 0; i < len(stripped); i++ {
		ch := stripped[i]
		if ch == ' ' || ch == '\t' || ch == '\n' || ch == '\r' || ch == '(' {
			continue
		}
		start = i
		break
	}
	if start == -1 {
		return ""
	}

	end := start
	for end < len(stripped) && isWordByte(stripped[end]) {
		end++
	}
	return strings.ToLower(stripped[start:end])
}

// IsReadLike reports whether the statement returns rows rather than an
// affected-row count. A WITH statement counts as a read only when no
// data-modifying keyword appears at the top level of the CTE chain.
func IsReadLike(sqlQuery string) bool {
	kw := FirstKeyword(sqlQuery)
	if kw == "with" {
		return !hasTopLevelModifyingKeyword(sqlQuery)
	}
	return readKeywords[kw]
}

// hasTopLevelModifyingKeyword tokenizes the statement outside literals and
// comments and looks for INSERT/UPDATE/DELETE/MERGE/REPLACE at parenthesis
// depth zero. Occurrences inside CTE bodies sit at depth one or deeper and
// are ignored.
func hasTopLevelModifyingKeyword(sqlQuery string) bool {
	stripped := StripLiteralsAndComments(sqlQuery)

	depth := 0
	wordStart := -1
	checkWord := func(end int) bool {
		if wordStart == -1 {
			return false
		}
		word := strings.ToLower(stripped[wordStart:end])
		wordStart = -1
		return depth == 0 && modifyingKeywords[word]
	}

	for i := 0; i < len(stripped); i++ {
		ch := stripped[i]
		if isWordByte(ch) {
			if wordStart == -1 {
				wordStart = i
			}
			continue
		}
		if checkWord(i) {
			return true
		}
		switch ch {
		case '(':
			depth++
		case ')':
			if depth > 0 {
				depth--
			}
		}
	}
	return checkWord(len(stripped))
}

func isWordByte(ch byte) bool {
	return ch == '_' || (ch >= 'a' && ch <= 'z') || (ch >= 'A' && ch <= 'Z') || (ch >= '0' && ch <= '9')
}
