package output

import (
	"encoding/json"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/marketfeed/marketfeed/internal/core"
)

// YAMLFormatter renders the JSON document shape as YAML.
type YAMLFormatter struct{}

func (f *YAMLFormatter) FormatAggregation(result *core.AggregationResult) (string, error) {
	if result == nil {
		return "", nil
	}
	return marshalYAML(result)
}

func (f *YAMLFormatter) FormatUsage(usage []core.RateLimitUsage) (string, error) {
	return marshalYAML(usageEntries(usage))
}

func (f *YAMLFormatter) FormatPayload(service core.ServiceName, query string, payload json.RawMessage) (string, error) {
	return marshalYAML(payloadEnvelope{Service: service, Query: query, Data: nullIfEmpty(payload)})
}

// marshalYAML goes through JSON first so raw payloads and custom JSON
// marshalers keep their shape instead of being encoded as byte slices.
func marshalYAML(value interface{}) (string, error) {
	data, err := json.Marshal(value)
	if err != nil {
		return "", err
	}
	var generic interface{}
	if err := json.Unmarshal(data, &generic); err != nil {
		return "", err
	}

	var sb strings.Builder
	encoder := yaml.NewEncoder(&sb)
	encoder.SetIndent(2)
	if err := encoder.Encode(generic); err != nil {
		return "", err
	}
	if err := encoder.Close(); err != nil {
		return "", err
	}
	return strings.TrimRight(sb.String(), "\n"), nil
}
