package output

import (
	"fmt"
	"strings"

	"github.com/smsgate/smsgate/internal/core"
)

// Format represents an output format.
type Format string

const (
	FormatTable    Format = "table"
	FormatJSON     Format = "json"
	FormatYAML     Format = "yaml"
	FormatMarkdown Format = "markdown"
)

// Formatter renders send results and audit records.
type Formatter interface {
	FormatResult(result *core.SendResult) (string, error)
	FormatSends(records []core.SendRecord) (string, error)
}

// ParseFormat validates and normalizes a format string.
func ParseFormat(value string) (Format, error) {
	normalized := strings.ToLower(strings.TrimSpace(value))
	switch normalized {
	case "", string(FormatTable):
		return FormatTable, nil
	case string(FormatJSON):
		return FormatJSON, nil
	case string(FormatYAML), "yml":
		return FormatYAML, nil
	case string(FormatMarkdown), "md":
		return FormatMarkdown, nil
	default:
		return "", fmt.Errorf("unsupported output format: %s", value)
	}
}

// NewFormatter returns a formatter for the requested format.
func NewFormatter(format Format) Formatter {
	switch format {
	case FormatJSON:
		return &JSONFormatter{Indent: true}
	case FormatYAML:
		return &YAMLFormatter{}
	case FormatMarkdown:
		return &MarkdownFormatter{}
	default:
		return &TableFormatter{}
	}
}

// Extension returns the file extension used when writing format to disk.
func Extension(format Format) string {
	switch format {
	case FormatJSON:
		return "json"
	case FormatYAML:
		return "yaml"
	case FormatMarkdown:
		return "md"
	default:
		return "txt"
	}
}

func messageIDLabel(rec core.SendRecord) string {
	switch {
	case rec.MessageID != "":
		return rec.MessageID
	case rec.ErrorCode != "":
		return rec.ErrorCode
	default:
		return "-"
	}
}

// inUTC copies result with its timestamp in UTC for serialized formats.
func inUTC(result *core.SendResult) *core.SendResult {
	out := *result
	out.Timestamp = out.Timestamp.UTC()
	return &out
}

func recordsInUTC(records []core.SendRecord) []core.SendRecord {
	out := make([]core.SendRecord, len(records))
	for i, rec := range records {
		rec.CreatedAt = rec.CreatedAt.UTC()
		out[i] = rec
	}
	return out
}
