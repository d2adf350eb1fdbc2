package prompts

import (
	"fmt"
	"strings"
)

// MaxAnswerRows bounds how many result rows the explanation prompt carries.
const MaxAnswerRows = 20

// AnswerPromptInput carries the pieces of the result-explanation prompt.
type AnswerPromptInput struct {
	Question string
	SQL      string
	Columns  []string
	// Rows are result values already rendered to strings.
	Rows [][]string
	// TotalRows is the full result size before truncation.
	TotalRows int
}

// BuildAnswerPrompt renders the prompt for the result-explanation call. At
// most 20 rows are included; the model is told when more exist.
func BuildAnswerPrompt(in *AnswerPromptInput) string {
	var prompt strings.Builder

	prompt.WriteString("# Result Explanation\n\n")
	prompt.WriteString("A user asked a question about their database. The SQL below was run and returned the results shown. Explain the results to the user.\n\n")

	prompt.WriteString("## Question\n\n")
	prompt.WriteString(in.Question)
	prompt.WriteString("\n\n")

	prompt.WriteString("## SQL\n\n")
	prompt.WriteString("```sql\n")
	prompt.WriteString(in.SQL)
	prompt.WriteString("\n```\n\n")

	prompt.WriteString("## Results\n\n")
	writeResultRows(&prompt, in)

	prompt.WriteString("## Instructions\n\n")
	prompt.WriteString("- Answer in the same language as the question.\n")
	prompt.WriteString("- Describe only what the results show; never invent values.\n")
	prompt.WriteString("- Mention totals, extremes or trends when the rows make them visible.\n")
	prompt.WriteString("- Keep the answer short and in plain prose, no markdown tables.\n")

	return prompt.String()
}

func writeResultRows(prompt *strings.Builder, in *AnswerPromptInput) {
	if len(in.Rows) == 0 {
		prompt.WriteString("The query returned no rows.\n\n")
		return
	}

	rows := in.Rows
	if len(rows) > MaxAnswerRows {
		rows = rows[:MaxAnswerRows]
	}

	total := in.TotalRows
	if total < len(in.Rows) {
		total = len(in.Rows)
	}
	if total > len(rows) {
		prompt.WriteString(fmt.Sprintf("%d rows total, showing the first %d:\n\n", total, len(rows)))
	} else {
		prompt.WriteString(fmt.Sprintf("%d rows:\n\n", total))
	}

	prompt.WriteString(strings.Join(in.Columns, " | ") + "\n")
	for _, row := range rows {
		cells := make([]string, len(row))
		for i, cell := range row {
			cells[i] = elideCell(cell)
		}
		prompt.WriteString(strings.Join(cells, " | ") + "\n")
	}
	prompt.WriteString("\n")
}
