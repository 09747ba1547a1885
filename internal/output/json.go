package output

import (
	"encoding/json"

	"github.com/smsgate/smsgate/internal/core"
)

// JSONFormatter renders results as JSON.
type JSONFormatter struct {
	Indent bool
}

// FormatResult renders a send result as JSON.
func (f *JSONFormatter) FormatResult(result *core.SendResult) (string, error) {
	if result == nil {
		return "", nil
	}
	return f.marshal(inUTC(result))
}

// FormatSends renders audit records as a JSON array.
func (f *JSONFormatter) FormatSends(records []core.SendRecord) (string, error) {
	if records == nil {
		records = []core.SendRecord{}
	}
	return f.marshal(recordsInUTC(records))
}

func (f *JSONFormatter) marshal(v any) (string, error) {
	var (
		data []byte
		err  error
	)

	if f.Indent {
		data, err = json.MarshalIndent(v, "", "  ")
	} else {
		data, err = json.Marshal(v)
	}
	if err != nil {
		return "", err
	}

	return string(data), nil
}
