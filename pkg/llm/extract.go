package llm

import (
	"errors"
	"fmt"
	"regexp"
	"strings"

	sqlutil "github.com/guangxiangdebizi/MySQL-ragLLM/pkg/sql"
)

// ErrNoSQL reports model output that contains nothing executable. The
// pipeline fails closed on it: no statement is guessed at or executed.
var ErrNoSQL = errors.New("model output contains no SQL statement")

// AmbiguityError reports that the model declined to translate the
// question, using the ERROR: marker the prompt instructs it to emit.
type AmbiguityError struct {
	Reason string
}

func (e *AmbiguityError) Error() string {
	return fmt.Sprintf("model declined to generate SQL: %s", e.Reason)
}

// Extraction is the parsed form of a model reply.
type Extraction struct {
	SQL         string // normalized single statement
	Explanation string // prose surrounding the statement, may be empty
}

var (
	fencePattern = regexp.MustCompile("(?s)```[a-zA-Z]*\\s*\\n?(.*?)```")
	// Reasoning models (GLM among them) may open the reply with a
	// <think> block before the answer proper.
	thinkTagPattern = regexp.MustCompile(`(?s)^\s*<think>.*?</think>\s*`)
	// Words that can begin a statement. Openers that double as common
	// English sentence starters (SET, VALUES) are left out so prose
	// lines are not mistaken for SQL.
	sqlKeywords = map[string]bool{
		"select": true, "insert": true, "update": true, "delete": true,
		"with": true, "create": true, "alter": true, "drop": true,
		"show": true, "describe": true, "desc": true, "explain": true,
		"truncate": true, "replace": true, "merge": true, "pragma": true,
	}
)

// ExtractSQL recovers one executable statement from raw model output.
//
// A leading <think> block is dropped, then the reply is interpreted in
// order:
//
//  1. An ERROR: prefix means the model declined; the rest of the line is
//     the reason and an AmbiguityError is returned.
//  2. If the reply contains a fenced code block, the first block is the
//     statement and the prose around it becomes the explanation.
//  3. Otherwise the statement starts at the first line that begins with a
//     SQL keyword and runs to the end; any lines before it become the
//     explanation.
//
// The recovered text is normalized (comments dropped, whitespace
// collapsed, trailing semicolon stripped) and must still begin with a SQL
// keyword, otherwise ErrNoSQL is returned.
func ExtractSQL(raw string) (*Extraction, error) {
	trimmed := strings.TrimSpace(thinkTagPattern.ReplaceAllString(raw, ""))
	if trimmed == "" {
		return nil, ErrNoSQL
	}

	if reason, declined := declineReason(trimmed); declined {
		return nil, &AmbiguityError{Reason: reason}
	}

	candidate, explanation := splitReply(trimmed)

	normalized := NormalizeSQL(candidate)
	if normalized == "" {
		return nil, ErrNoSQL
	}

	// The ERROR: marker may itself be wrapped in a fence.
	if reason, declined := declineReason(normalized); declined {
		return nil, &AmbiguityError{Reason: reason}
	}

	if !startsWithKeyword(normalized) {
		return nil, ErrNoSQL
	}

	return &Extraction{
		SQL:         normalized,
		Explanation: strings.Join(strings.Fields(explanation), " "),
	}, nil
}

// declineReason recognizes the ERROR: contract from the generation prompt.
func declineReason(text string) (string, bool) {
	if !strings.HasPrefix(text, "ERROR:") {
		return "", false
	}
	reason := strings.TrimSpace(strings.TrimPrefix(text, "ERROR:"))
	if idx := strings.IndexByte(reason, '\n'); idx != -1 {
		reason = strings.TrimSpace(reason[:idx])
	}
	if reason == "" {
		reason = "ambiguous question"
	}
	return reason, true
}

// splitReply separates the statement candidate from the surrounding prose.
func splitReply(reply string) (candidate, explanation string) {
	if loc := fencePattern.FindStringSubmatchIndex(reply); loc != nil {
		candidate = reply[loc[2]:loc[3]]
		explanation = reply[:loc[0]] + " " + reply[loc[1]:]
		return candidate, explanation
	}

	lines := strings.Split(reply, "\n")
	for i, line := range lines {
		first := firstWord(line)
		if sqlKeywords[strings.ToLower(first)] {
			return strings.Join(lines[i:], "\n"), strings.Join(lines[:i], "\n")
		}
	}

	// No keyword line found: treat the whole reply as the candidate and
	// let normalization decide.
	return reply, ""
}

// NormalizeSQL cleans a statement candidate: fence markers and comment
// lines are dropped, inline comments outside literals are cut, runs of
// whitespace collapse to one space and a trailing semicolon is removed.
func NormalizeSQL(candidate string) string {
	candidate = strings.TrimSpace(candidate)
	candidate = strings.TrimPrefix(candidate, "```sql")
	candidate = strings.TrimPrefix(candidate, "```")
	candidate = strings.TrimSuffix(strings.TrimSpace(candidate), "```")

	var kept []string
	for _, line := range strings.Split(candidate, "\n") {
		line = stripInlineComment(line)
		if trimmed := strings.TrimSpace(line); trimmed != "" {
			kept = append(kept, trimmed)
		}
	}

	joined := strings.Join(kept, " ")
	joined = strings.Join(strings.Fields(joined), " ")
	joined = strings.TrimSuffix(joined, ";")
	return strings.TrimSpace(joined)
}

// stripInlineComment removes a trailing -- comment, leaving dashes inside
// string literals alone.
func stripInlineComment(line string) string {
	if idx := sqlutil.LineCommentIndex(line); idx != -1 {
		return line[:idx]
	}
	return line
}

func startsWithKeyword(sqlText string) bool {
	return sqlKeywords[strings.ToLower(firstWord(sqlText))]
}

func firstWord(line string) string {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return ""
	}
	return fields[0]
}
