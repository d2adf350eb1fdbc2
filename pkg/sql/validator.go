// Package sql provides dialect-agnostic SQL text utilities used by the
// query pipeline: single-statement validation, statement classification,
// guard checks for generated SQL, and complexity analysis.
package sql

import (
	"strings"

	"github.com/guangxiangdebizi/MySQL-ragLLM/pkg/apperrors"
)

// ValidationResult contains the normalized SQL and any validation error.
type ValidationResult struct {
	NormalizedSQL string
	Error         error
}

// ValidateAndNormalize prepares a statement for execution:
//
//  1. Trim surrounding whitespace.
//  2. Strip a single trailing semicolon.
//  3. Reject empty input and anything that still contains a statement
//     separator outside string literals, quoted identifiers and comments.
func ValidateAndNormalize(sqlQuery string) ValidationResult {
	sqlQuery = strings.TrimSpace(sqlQuery)
	if sqlQuery == "" {
		return ValidationResult{Error: apperrors.ErrEmptySQL}
	}

	normalized := stripTrailingSemicolon(sqlQuery)
	if normalized == "" {
		return ValidationResult{Error: apperrors.ErrEmptySQL}
	}

	if hasSeparatorSemicolon(normalized) {
		return ValidationResult{Error: apperrors.ErrMultipleStatements}
	}

	return ValidationResult{NormalizedSQL: normalized}
}

// Scanner states shared by the statement scanner and the literal stripper.
// Covers the quoting forms of all supported dialects: '...' strings,
// "..." identifiers, `...` identifiers (MySQL) and [...] identifiers
// (SQL Server).
const (
	stateNormal = iota
	stateSingleQuote
	stateDoubleQuote
	stateBacktick
	stateBracket
	stateLineComment
	stateBlockComment
)

// hasSeparatorSemicolon reports whether the SQL contains a semicolon that
// acts as a statement separator. Semicolons inside string literals, quoted
// identifiers and comments do not count.
func hasSeparatorSemicolon(sqlQuery string) bool {
	found := false
	scanStatement(sqlQuery, func(i int, ch byte, state int) {
		if state == stateNormal && ch == ';' {
			found = true
		}
	})
	return found
}

// scanStatement walks the SQL byte by byte, tracking the quoting state,
// and calls visit for every byte with the state it appears in. Escapes
// handled: backslash and doubled quote inside '...', doubled quote inside
// "..." and doubled closing bracket inside [...].
//
// Byte iteration is safe here: every delimiter is ASCII and multi-byte
// UTF-8 sequences never contain ASCII bytes.
func scanStatement(sqlQuery string, visit func(i int, ch byte, state int)) {
	state := stateNormal
	for i := 0; i < len(sqlQuery); i++ {
		ch := sqlQuery[i]

		switch state {
		case stateNormal:
			switch {
			case ch == '\'':
				visit(i, ch, stateSingleQuote)
				state = stateSingleQuote
				continue
			case ch == '"':
				visit(i, ch, stateDoubleQuote)
				state = stateDoubleQuote
				continue
			case ch == '`':
				visit(i, ch, stateBacktick)
				state = stateBacktick
				continue
			case ch == '[':
				visit(i, ch, stateBracket)
				state = stateBracket
				continue
			case ch == '-' && i+1 < len(sqlQuery) && sqlQuery[i+1] == '-':
				visit(i, ch, stateLineComment)
				state = stateLineComment
				continue
			case ch == '/' && i+1 < len(sqlQuery) && sqlQuery[i+1] == '*':
				visit(i, ch, stateBlockComment)
				state = stateBlockComment
				continue
			}
		case stateSingleQuote:
			switch ch {
			case '\\':
				visit(i, ch, state)
				if i+1 < len(sqlQuery) {
					i++
					visit(i, sqlQuery[i], state)
				}
				continue
			case '\'':
				if i+1 < len(sqlQuery) && sqlQuery[i+1] == '\'' {
					visit(i, ch, state)
					i++
					visit(i, sqlQuery[i], state)
					continue
				}
				visit(i, ch, state)
				state = stateNormal
				continue
			}
		case stateDoubleQuote:
			if ch == '"' {
				if i+1 < len(sqlQuery) && sqlQuery[i+1] == '"' {
					visit(i, ch, state)
					i++
					visit(i, sqlQuery[i], state)
					continue
				}
				visit(i, ch, state)
				state = stateNormal
				continue
			}
		case stateBacktick:
			if ch == '`' {
				visit(i, ch, state)
				state = stateNormal
				continue
			}
		case stateBracket:
			if ch == ']' {
				if i+1 < len(sqlQuery) && sqlQuery[i+1] == ']' {
					visit(i, ch, state)
					i++
					visit(i, sqlQuery[i], state)
					continue
				}
				visit(i, ch, state)
				state = stateNormal
				continue
			}
		case stateLineComment:
			if ch == '\n' {
				visit(i, ch, stateNormal)
				state = stateNormal
				continue
			}
		case stateBlockComment:
			if ch == '*' && i+1 < len(sqlQuery) && sqlQuery[i+1] == '/' {
				visit(i, ch, state)
				i++
				visit(i, sqlQuery[i], state)
				state = stateNormal
				continue
			}
		}

		visit(i, ch, state)
	}
}

// StripLiteralsAndComments blanks out string literals, quoted identifiers
// and comments so keyword scans cannot match text inside them. Every
// blanked byte becomes a space, so indices and word boundaries survive.
func StripLiteralsAndComments(sqlQuery string) string {
	out := []byte(sqlQuery)
	scanStatement(sqlQuery, func(i int, ch byte, state int) {
		if state != stateNormal && ch != '\n' {
			out[i] = ' '
		}
	})
	return string(out)
}

// LineCommentIndex returns the offset where a -- comment begins outside
// string literals and quoted identifiers, or -1 when there is none.
func LineCommentIndex(line string) int {
	idx := -1
	scanStatement(line, func(i int, _ byte, state int) {
		if idx == -1 && state == stateLineComment {
			idx = i
		}
	})
	return idx
}

// stripTrailingSemicolon removes one trailing semicolon and surrounding
// whitespace.
func stripTrailingSemicolon(sqlQuery string) string {
	sqlQuery = strings.TrimRight(sqlQuery, " \t\n\r")
	if strings.HasSuffix(sqlQuery, ";") {
		sqlQuery = strings.TrimSuffix(sqlQuery, ";")
		sqlQuery = strings.TrimRight(sqlQuery, " \t\n\r")
	}
	return sqlQuery
}
