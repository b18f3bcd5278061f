package narrative

import (
	"context"
	"fmt"
	"strings"

	"google.golang.org/genai"

	"github.com/ledgerlens/ledgerlens/internal/ledger"
)

// Placeholder is returned when no summarizer is configured or the model
// call fails. The analytics tables are always the source of truth; the
// narrative is decoration.
const Placeholder = "AI summary unavailable."

// DefaultModelName is used when no model is configured explicitly.
const DefaultModelName = "gemini-2.5-flash"

// Summarizer turns a summary result into a short prose narrative. It never
// returns an error: callers always get usable text.
type Summarizer interface {
	Summarize(ctx context.Context, glAccount string, result *ledger.SummaryResult) string
}

// NoopSummarizer always returns the placeholder. Used when narrative
// generation is disabled.
type NoopSummarizer struct{}

func (NoopSummarizer) Summarize(ctx context.Context, glAccount string, result *ledger.SummaryResult) string {
	return Placeholder
}

// GeminiSummarizer asks Gemini for a narrative over the aggregated tables.
type GeminiSummarizer struct {
	model string
}

// NewGeminiSummarizer creates a summarizer for the given model name. The
// genai client reads GOOGLE_API_KEY / GEMINI_API_KEY from the environment.
func NewGeminiSummarizer(model string) *GeminiSummarizer {
	if model == "" {
		model = DefaultModelName
	}
	return &GeminiSummarizer{model: model}
}

// Summarize calls the model and falls back to Placeholder on any failure.
func (g *GeminiSummarizer) Summarize(ctx context.Context, glAccount string, result *ledger.SummaryResult) string {
	if result == nil {
		return Placeholder
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		HTTPOptions: genai.HTTPOptions{APIVersion: "v1"},
	})
	if err != nil {
		return Placeholder
	}

	prompt := buildSummaryPrompt(glAccount, result)
	contents := []*genai.Content{
		{
			Role: "user",
			Parts: []*genai.Part{
				{Text: prompt},
			},
		},
	}

	resp, err := client.Models.GenerateContent(ctx, g.model, contents, nil)
	if err != nil {
		return Placeholder
	}

	text := strings.TrimSpace(resp.Text())
	if text == "" {
		return Placeholder
	}
	return text
}

// buildSummaryPrompt renders the ageing and division tables as plain text so
// the model can reason over exact figures rather than a JSON blob.
func buildSummaryPrompt(glAccount string, result *ledger.SummaryResult) string {
	var b strings.Builder

	b.WriteString("You are a financial analyst reviewing open items on a general ledger account.\n\n")
	fmt.Fprintf(&b, "G/L account: %s\n\n", glAccount)

	b.WriteString("Ageing breakdown (bucket, total amount):\n")
	writeResultTable(&b, result.Ageing)

	b.WriteString("\nDivision breakdown (division, total amount):\n")
	writeResultTable(&b, result.Division)

	b.WriteString("\nTask:\n" +
		"- Write 2-4 sentences summarizing the ageing profile and which divisions carry the balance.\n" +
		"- Call out concentrations in old buckets (1 year and above) if material.\n" +
		"- Use plain business language. Do not repeat every number.\n" +
		"- Output plain text only. No Markdown, no bullet points.\n")

	return b.String()
}

func writeResultTable(b *strings.Builder, table ledger.ResultTable) {
	if len(table.Rows) == 0 {
		b.WriteString("  (no rows)\n")
		return
	}
	for _, row := range table.Rows {
		var cells []string
		for _, col := range table.Columns {
			cells = append(cells, fmt.Sprintf("%v", row[col]))
		}
		fmt.Fprintf(b, "  %s\n", strings.Join(cells, " | "))
	}
}
