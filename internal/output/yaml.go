package output

import (
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/smsgate/smsgate/internal/core"
)

// YAMLFormatter renders results as YAML.
type YAMLFormatter struct{}

// FormatResult renders a send result as YAML.
func (f *YAMLFormatter) FormatResult(result *core.SendResult) (string, error) {
	if result == nil {
		return "", nil
	}
	return marshalYAML(inUTC(result))
}

// FormatSends renders audit records as a YAML sequence.
func (f *YAMLFormatter) FormatSends(records []core.SendRecord) (string, error) {
	if records == nil {
		records = []core.SendRecord{}
	}
	return marshalYAML(recordsInUTC(records))
}

func marshalYAML(v any) (string, error) {
	data, err := yaml.Marshal(v)
	if err != nil {
		return "", err
	}
	return strings.TrimRight(string(data), "\n"), nil
}
