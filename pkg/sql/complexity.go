package sql

import (
	"regexp"
	"strings"
)

// Complexity levels reported by AnalyzeComplexity.
const (
	ComplexitySimple   = "simple"
	ComplexityModerate = "moderate"
	ComplexityComplex  = "complex"
)

// Complexity summarizes the structural weight of a statement.
type Complexity struct {
	Level        string `json:"level"`
	Score        int    `json:"score"`
	Joins        int    `json:"joins"`
	Conditions   int    `json:"conditions"`
	Subqueries   int    `json:"subqueries"`
	Aggregations bool   `json:"aggregations"`
	Grouping     bool   `json:"grouping"`
	Sorting      bool   `json:"sorting"`
	Limited      bool   `json:"limited"`
}

var (
	joinPattern        = regexp.MustCompile(`\bjoin\b`)
	conditionPattern   = regexp.MustCompile(`\band\b|\bor\b`)
	aggregationPattern = regexp.MustCompile(`\b(count|sum|avg|min|max)\s*\(`)
	subqueryPattern    = regexp.MustCompile(`\(\s*select\b`)
	wherePat           = regexp.MustCompile(`\bwhere\b`)
	groupByPattern     = regexp.MustCompile(`\bgroup\s+by\b`)
	orderByPattern     = regexp.MustCompile(`\border\s+by\b`)
	limitPattern       = regexp.MustCompile(`\blimit\b|\bfetch\s+first\b|\btop\s*\(`)
)

// AnalyzeComplexity scores a statement by its structural features. Joins
// weigh 2, subqueries 3, aggregate functions 3, GROUP BY 2, ORDER BY 1 and
// each WHERE condition 1. Scores above 10 rate complex, above 5 moderate.
// Literals and comments are blanked before matching.
func AnalyzeComplexity(sqlQuery string) Complexity {
	text := strings.ToLower(StripLiteralsAndComments(sqlQuery))

	c := Complexity{
		Level:        ComplexitySimple,
		Joins:        len(joinPattern.FindAllString(text, -1)),
		Subqueries:   len(subqueryPattern.FindAllString(text, -1)),
		Aggregations: aggregationPattern.MatchString(text),
		Grouping:     groupByPattern.MatchString(text),
		Sorting:      orderByPattern.MatchString(text),
		Limited:      limitPattern.MatchString(text),
	}
	c.Conditions = countConditions(text)

	c.Score = c.Joins*2 + c.Conditions + c.Subqueries*3
	if c.Aggregations {
		c.Score += 3
	}
	if c.Grouping {
		c.Score += 2
	}
	if c.Sorting {
		c.Score++
	}

	switch {
	case c.Score > 10:
		c.Level = ComplexityComplex
	case c.Score > 5:
		c.Level = ComplexityModerate
	}
	return c
}

// countConditions estimates the number of WHERE predicates as one plus the
// AND/OR connectives between WHERE and the next clause.
func countConditions(lowered string) int {
	loc := wherePat.FindStringIndex(lowered)
	if loc == nil {
		return 0
	}
	clause := lowered[loc[1]:]
	for _, stop := range []*regexp.Regexp{groupByPattern, orderByPattern, limitPattern} {
		if end := stop.FindStringIndex(clause); end != nil {
			clause = clause[:end[0]]
		}
	}
	return len(conditionPattern.FindAllString(clause, -1)) + 1
}
