package prompt

import (
	"strings"

	"github.com/KaramelBytes/datacopilot/internal/dataset"
	"github.com/KaramelBytes/datacopilot/internal/utils"
)

// PreviewRows is how many data rows are shown to the model.
const PreviewRows = 3

// PreviewCellTokens caps the size of each cell in the preview. The dataset
// itself is never modified.
const PreviewCellTokens = 64

const instructions = `Your task is to autonomously analyze the user's data-related question using the dataframe 'df' and deliver a comprehensive, actionable report.
STRICT INSTRUCTIONS:
- Always generate a single, complete Python code block that answers ALL parts of the user's question using the dataframe 'df'.
- The code must print all relevant results (numbers, tables, lists, etc.) and generate all relevant visualizations (matplotlib) in one go.
- DO NOT explain, DO NOT describe steps, DO NOT ask follow-up questions, DO NOT output markdown or any text outside the code block.
- The code block must start with ` + "```python" + ` and be fully self-contained and executable as-is.
- If the user asks a theory question (not related to the data), answer conversationally without any code.
`

// Build composes the single system message for question. The dataset section
// is present only when ds is non-nil.
func Build(question string, ds *dataset.Dataset) string {
	var sb strings.Builder
	sb.WriteString("You are a professional Data Science AI Agent.\n")
	sb.WriteString(Context(ds))
	sb.WriteString(instructions)
	sb.WriteString("User's message: ")
	sb.WriteString(question)
	sb.WriteString("\n")
	return sb.String()
}

// Context renders the dataset section, or "" when ds is nil.
func Context(ds *dataset.Dataset) string {
	if ds == nil {
		return ""
	}
	var sb strings.Builder
	sb.WriteString("\nThe dataframe 'df' has columns: ")
	sb.WriteString(strings.Join(ds.Columns, ", "))
	sb.WriteString(".\n")
	sb.WriteString("Here are the first few rows:\n")
	sb.WriteString(preview(ds))
	sb.WriteString("\n")
	return sb.String()
}

func preview(ds *dataset.Dataset) string {
	head := ds.Head(PreviewRows)
	capped := &dataset.Dataset{Name: ds.Name, Columns: ds.Columns, Rows: make([][]string, len(head))}
	for i, row := range head {
		r := make([]string, len(row))
		for j, cell := range row {
			r[j] = utils.TruncateToTokenLimit(cell, PreviewCellTokens)
		}
		capped.Rows[i] = r
	}
	return capped.Preview(PreviewRows)
}

// Estimate approximates the prompt size in tokens.
func Estimate(p string) int { return utils.CountTokens(p) }
