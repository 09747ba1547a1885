package output

import (
	"time"

	"github.com/jedib0t/go-pretty/v6/table"

	"github.com/smsgate/smsgate/internal/core"
)

// TableFormatter renders results as an ASCII table.
type TableFormatter struct{}

// FormatResult renders an accepted send as a two-column table.
func (f *TableFormatter) FormatResult(result *core.SendResult) (string, error) {
	if result == nil {
		return "", nil
	}

	t := table.NewWriter()
	t.SetStyle(table.StyleRounded)
	t.AppendRow(table.Row{"Message ID", result.MessageID})
	t.AppendRow(table.Row{"Recipient", result.Recipient})
	t.AppendRow(table.Row{"Sender", result.Sender})
	if result.Status != "" {
		t.AppendRow(table.Row{"Status", result.Status})
	}
	t.AppendRow(table.Row{"Timestamp", result.Timestamp.UTC().Format(time.RFC3339)})
	return t.Render(), nil
}

// FormatSends renders audit records newest first.
func (f *TableFormatter) FormatSends(records []core.SendRecord) (string, error) {
	t := table.NewWriter()
	t.SetStyle(table.StyleRounded)
	t.AppendHeader(table.Row{"Time", "Recipient", "Sender", "Status", "Message ID / Error", "Preview"})

	committed := 0
	for _, rec := range records {
		if rec.Status == core.SendStatusCommitted {
			committed++
		}
		t.AppendRow(table.Row{
			rec.CreatedAt.UTC().Format(time.RFC3339),
			rec.Recipient,
			rec.Sender,
			string(rec.Status),
			messageIDLabel(rec),
			rec.BodyPreview,
		})
	}

	t.AppendFooter(table.Row{"", "", "", "", "", summary(committed, len(records))})
	return t.Render(), nil
}
