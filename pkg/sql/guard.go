package sql

import (
	"fmt"
	"regexp"
)

// guardRule matches a destructive statement shape in generated SQL.
// Rules with whereLifts set are tolerated when a WHERE clause follows the
// match, so targeted updates and deletes pass while blanket ones do not.
type guardRule struct {
	name       string
	pattern    *regexp.Regexp
	whereLifts bool
}

var guardRules = []guardRule{
	{name: "DROP DATABASE", pattern: regexp.MustCompile(`(?i)\bDROP\s+DATABASE\b`)},
	{name: "DROP TABLE", pattern: regexp.MustCompile(`(?i)\bDROP\s+TABLE\b`)},
	{name: "TRUNCATE", pattern: regexp.MustCompile(`(?i)\bTRUNCATE\b`)},
	{name: "ALTER TABLE ... DROP", pattern: regexp.MustCompile(`(?i)\bALTER\s+TABLE\b[\s\S]*\bDROP\b`)},
	{name: "DELETE without WHERE", pattern: regexp.MustCompile(`(?i)\bDELETE\s+FROM\b`), whereLifts: true},
	{name: "UPDATE without WHERE", pattern: regexp.MustCompile(`(?i)\bUPDATE\b`), whereLifts: true},
}

var wherePattern = regexp.MustCompile(`(?i)\bWHERE\b`)

// GuardGeneratedSQL rejects model-generated statements that match a
// destructive shape. It runs only on the natural-language pipeline;
// SQL submitted directly by the caller is not screened here. Matching
// happens on text with literals and comments blanked, so a phrase inside
// a string cannot trigger a rule.
func GuardGeneratedSQL(sqlQuery string) error {
	stripped := StripLiteralsAndComments(sqlQuery)
	for _, rule := range guardRules {
		loc := rule.pattern.FindStringIndex(stripped)
		if loc == nil {
			continue
		}
		if rule.whereLifts && wherePattern.MatchString(stripped[loc[1]:]) {
			continue
		}
		return fmt.Errorf("refusing to run generated statement: %s", rule.name)
	}
	return nil
}
