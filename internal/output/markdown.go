package output

import (
	"fmt"
	"strings"
	"time"

	"github.com/smsgate/smsgate/internal/core"
)

// MarkdownFormatter renders results as a markdown table.
type MarkdownFormatter struct{}

// FormatResult renders a send result as Markdown.
func (f *MarkdownFormatter) FormatResult(result *core.SendResult) (string, error) {
	if result == nil {
		return "", nil
	}

	var sb strings.Builder
	sb.WriteString("## SMS sent\n\n")
	sb.WriteString("| Field | Value |\n")
	sb.WriteString("|-------|-------|\n")
	sb.WriteString(fmt.Sprintf("| Message ID | %s |\n", escapeMarkdownCell(result.MessageID)))
	sb.WriteString(fmt.Sprintf("| Recipient | %s |\n", escapeMarkdownCell(result.Recipient)))
	sb.WriteString(fmt.Sprintf("| Sender | %s |\n", escapeMarkdownCell(result.Sender)))
	sb.WriteString(fmt.Sprintf("| Timestamp | %s |\n", result.Timestamp.UTC().Format(time.RFC3339)))
	return sb.String(), nil
}

// FormatSends renders audit records as Markdown.
func (f *MarkdownFormatter) FormatSends(records []core.SendRecord) (string, error) {
	var sb strings.Builder
	sb.WriteString("## Recent sends\n\n")
	sb.WriteString("| Time | Recipient | Sender | Status | Message ID / Error |\n")
	sb.WriteString("|------|-----------|--------|--------|--------------------|\n")

	committed := 0
	for _, rec := range records {
		if rec.Status == core.SendStatusCommitted {
			committed++
		}
		sb.WriteString(fmt.Sprintf("| %s | %s | %s | %s | %s |\n",
			rec.CreatedAt.UTC().Format(time.RFC3339),
			escapeMarkdownCell(rec.Recipient),
			escapeMarkdownCell(rec.Sender),
			escapeMarkdownCell(string(rec.Status)),
			escapeMarkdownCell(messageIDLabel(rec)),
		))
	}

	sb.WriteString(fmt.Sprintf("\n**Summary**: %s\n", summary(committed, len(records))))
	return sb.String(), nil
}

func escapeMarkdownCell(value string) string {
	return strings.ReplaceAll(value, "|", "\\|")
}

func summary(committed, total int) string {
	return fmt.Sprintf("%d/%d committed", committed, total)
}
