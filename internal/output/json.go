package output

import (
	"encoding/json"

	"github.com/marketfeed/marketfeed/internal/core"
)

// JSONFormatter renders results as JSON.
type JSONFormatter struct {
	Indent bool
}

// FormatAggregation renders a result with absent categories as null.
func (f *JSONFormatter) FormatAggregation(result *core.AggregationResult) (string, error) {
	if result == nil {
		return "", nil
	}
	return f.marshal(result)
}

// FormatUsage renders quota usage with the remaining count.
func (f *JSONFormatter) FormatUsage(usage []core.RateLimitUsage) (string, error) {
	return f.marshal(usageEntries(usage))
}

// FormatPayload renders one service payload unchanged under "data".
func (f *JSONFormatter) FormatPayload(service core.ServiceName, query string, payload json.RawMessage) (string, error) {
	return f.marshal(payloadEnvelope{Service: service, Query: query, Data: nullIfEmpty(payload)})
}

func (f *JSONFormatter) marshal(value interface{}) (string, error) {
	var (
		data []byte
		err  error
	)
	if f.Indent {
		data, err = json.MarshalIndent(value, "", "  ")
	} else {
		data, err = json.Marshal(value)
	}
	if err != nil {
		return "", err
	}
	return string(data), nil
}

type payloadEnvelope struct {
	Service core.ServiceName `json:"service"`
	Query   string           `json:"query"`
	Data    json.RawMessage  `json:"data"`
}

type usageEntry struct {
	core.RateLimitUsage
	Remaining int `json:"remaining"`
}

func usageEntries(usage []core.RateLimitUsage) []usageEntry {
	entries := make([]usageEntry, 0, len(usage))
	for _, u := range usage {
		entries = append(entries, usageEntry{RateLimitUsage: u, Remaining: u.Remaining()})
	}
	return entries
}

func nullIfEmpty(payload json.RawMessage) json.RawMessage {
	if len(payload) == 0 {
		return json.RawMessage("null")
	}
	return payload
}
