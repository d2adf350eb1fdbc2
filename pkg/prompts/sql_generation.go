// Package prompts assembles the text sent to the AI provider: the SQL
// generation prompt built from introspected schema, and the answer prompt
// built from query results. Builders are pure functions so budget behavior
// is testable without a database or a provider.
package prompts

import (
	"fmt"
	"strings"
	"unicode/utf8"
)

// maxHistoryExchanges bounds the conversation context carried into the
// generation prompt.
const maxHistoryExchanges = 10

// maxSampleCellRunes bounds a single rendered sample value.
const maxSampleCellRunes = 120

// TableContext is the prompt-facing view of one introspected table.
type TableContext struct {
	Name        string
	RowCount    *int64
	Columns     []ColumnContext
	ForeignKeys []ForeignKeyContext
	// SampleColumns and SampleRows carry a bounded row sample, already
	// rendered to strings. Both may be empty.
	SampleColumns []string
	SampleRows    [][]string
}

// ColumnContext is the prompt-facing view of one column.
type ColumnContext struct {
	Name         string
	DataType     string
	Nullable     bool
	IsPrimaryKey bool
	Default      string
}

// ForeignKeyContext describes one outgoing reference.
type ForeignKeyContext struct {
	Column           string
	ReferencedTable  string
	ReferencedColumn string
}

// Exchange is one prior question and the SQL generated for it.
type Exchange struct {
	Question string
	SQL      string
}

// SQLPromptInput carries everything the generation prompt is built from.
type SQLPromptInput struct {
	Dialect  string // "mysql", "postgres", "sqlserver", "sqlite"
	Database string
	Question string
	Tables   []TableContext
	History  []Exchange
	// Budget caps the assembled prompt in runes. Zero or negative means
	// unlimited.
	Budget int
}

// BuildSQLPrompt renders the generation prompt. When the full rendering
// exceeds the budget, content is shed in fixed order: sample rows of the
// least relevant table first, then whole tables, and only as a last resort
// the question itself is truncated. A table whose name occurs in the
// question outranks one that does not; within a relevance class tables are
// dropped from the end of introspection order. The returned prompt never
// exceeds the budget.
func BuildSQLPrompt(in *SQLPromptInput) (string, error) {
	if strings.TrimSpace(in.Question) == "" {
		return "", fmt.Errorf("question is empty")
	}

	tables := make([]TableContext, len(in.Tables))
	copy(tables, in.Tables)

	prompt := renderSQLPrompt(in, tables, in.Question)
	if in.Budget <= 0 || utf8.RuneCountInString(prompt) <= in.Budget {
		return prompt, nil
	}

	order := dropOrder(tables, in.Question)

	// Pass 1: shed sample rows.
	for _, idx := range order {
		if len(tables[idx].SampleRows) == 0 {
			continue
		}
		tables[idx].SampleColumns = nil
		tables[idx].SampleRows = nil

		prompt = renderSQLPrompt(in, tables, in.Question)
		if utf8.RuneCountInString(prompt) <= in.Budget {
			return prompt, nil
		}
	}

	// Pass 2: shed whole tables.
	dropped := make(map[int]bool, len(tables))
	for _, idx := range order {
		dropped[idx] = true

		prompt = renderSQLPrompt(in, keepTables(tables, dropped), in.Question)
		if utf8.RuneCountInString(prompt) <= in.Budget {
			return prompt, nil
		}
	}

	// Pass 3: truncate the question to whatever the scaffold leaves over.
	scaffold := utf8.RuneCountInString(renderSQLPrompt(in, nil, ""))
	room := in.Budget - scaffold
	if room <= 0 {
		return "", fmt.Errorf("prompt budget %d leaves no room for the question", in.Budget)
	}

	questionRunes := []rune(in.Question)
	if room < len(questionRunes) {
		questionRunes = questionRunes[:room]
	}
	return renderSQLPrompt(in, nil, string(questionRunes)), nil
}

// dropOrder lists table indices in shedding order: tables not named in the
// question first, each class walked from the end of introspection order.
func dropOrder(tables []TableContext, question string) []int {
	lowerQuestion := strings.ToLower(question)

	var irrelevant, relevant []int
	for i := len(tables) - 1; i >= 0; i-- {
		if strings.Contains(lowerQuestion, strings.ToLower(tables[i].Name)) {
			relevant = append(relevant, i)
		} else {
			irrelevant = append(irrelevant, i)
		}
	}
	return append(irrelevant, relevant...)
}

func keepTables(tables []TableContext, dropped map[int]bool) []TableContext {
	kept := make([]TableContext, 0, len(tables))
	for i, table := range tables {
		if !dropped[i] {
			kept = append(kept, table)
		}
	}
	return kept
}

func renderSQLPrompt(in *SQLPromptInput, tables []TableContext, question string) string {
	var prompt strings.Builder

	prompt.WriteString("# SQL Generation\n\n")
	prompt.WriteString(fmt.Sprintf("You are an expert SQL analyst. Convert the question at the end into exactly one %s statement using only the schema below.\n\n", dialectLabel(in.Dialect)))

	prompt.WriteString("## Database Schema\n\n")
	if in.Database != "" {
		prompt.WriteString(fmt.Sprintf("Database: %s\n\n", in.Database))
	}
	for _, table := range tables {
		writeTableContext(&prompt, &table)
	}

	prompt.WriteString("## Rules\n\n")
	prompt.WriteString("1. Return exactly one SQL statement inside a ```sql fence, nothing else.\n")
	prompt.WriteString("2. Reference only tables and columns shown above.\n")
	prompt.WriteString("3. Prefer LEFT JOIN when rows without a match still answer the question.\n")
	prompt.WriteString("4. Use table aliases and explicit column lists instead of SELECT *.\n")
	prompt.WriteString("5. Add LIMIT when the result could be large.\n")
	prompt.WriteString("6. If the question cannot be answered from this schema, reply with a single line starting with ERROR: followed by a short reason.\n\n")

	writeHistory(&prompt, in.History)

	prompt.WriteString("## Question\n\n")
	prompt.WriteString(question)
	prompt.WriteString("\n")

	return prompt.String()
}

func writeTableContext(prompt *strings.Builder, table *TableContext) {
	prompt.WriteString(fmt.Sprintf("### %s", table.Name))
	if table.RowCount != nil {
		prompt.WriteString(fmt.Sprintf(" (%d rows)", *table.RowCount))
	}
	prompt.WriteString("\n")

	prompt.WriteString("Columns:\n")
	for _, col := range table.Columns {
		attrs := make([]string, 0, 3)
		if col.IsPrimaryKey {
			attrs = append(attrs, "primary key")
		}
		if col.Nullable {
			attrs = append(attrs, "nullable")
		}
		if col.Default != "" {
			attrs = append(attrs, "default "+col.Default)
		}
		if len(attrs) > 0 {
			prompt.WriteString(fmt.Sprintf("- %s (%s, %s)\n", col.Name, col.DataType, strings.Join(attrs, ", ")))
		} else {
			prompt.WriteString(fmt.Sprintf("- %s (%s)\n", col.Name, col.DataType))
		}
	}

	if len(table.ForeignKeys) > 0 {
		prompt.WriteString("Foreign keys:\n")
		for _, fk := range table.ForeignKeys {
			prompt.WriteString(fmt.Sprintf("- %s → %s.%s\n", fk.Column, fk.ReferencedTable, fk.ReferencedColumn))
		}
	}

	if len(table.SampleRows) > 0 {
		prompt.WriteString("Sample rows:\n")
		prompt.WriteString("  " + strings.Join(table.SampleColumns, " | ") + "\n")
		for _, row := range table.SampleRows {
			cells := make([]string, len(row))
			for i, cell := range row {
				cells[i] = elideCell(cell)
			}
			prompt.WriteString("  " + strings.Join(cells, " | ") + "\n")
		}
	}
	prompt.WriteString("\n")
}

func writeHistory(prompt *strings.Builder, history []Exchange) {
	if len(history) == 0 {
		return
	}
	if len(history) > maxHistoryExchanges {
		history = history[len(history)-maxHistoryExchanges:]
	}

	prompt.WriteString("## Conversation History\n\n")
	prompt.WriteString("Earlier questions in this session and the SQL that answered them:\n\n")
	for _, exchange := range history {
		prompt.WriteString(fmt.Sprintf("Q: %s\n", exchange.Question))
		prompt.WriteString(fmt.Sprintf("SQL: %s\n\n", exchange.SQL))
	}
}

func elideCell(cell string) string {
	if utf8.RuneCountInString(cell) <= maxSampleCellRunes {
		return cell
	}
	return string([]rune(cell)[:maxSampleCellRunes]) + "..."
}

func dialectLabel(dialect string) string {
	switch strings.ToLower(dialect) {
	case "mysql":
		return "MySQL"
	case "postgres", "postgresql":
		return "PostgreSQL"
	case "sqlserver", "mssql":
		return "SQL Server"
	case "sqlite", "sqlite3":
		return "SQLite"
	default:
		return "SQL"
	}
}
