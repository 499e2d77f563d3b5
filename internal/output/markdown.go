package output

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/marketfeed/marketfeed/internal/core"
)

// MarkdownFormatter renders results as markdown tables.
type MarkdownFormatter struct{}

// FormatAggregation renders a heading and one row per category.
func (f *MarkdownFormatter) FormatAggregation(result *core.AggregationResult) (string, error) {
	if result == nil {
		return "", nil
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("## %s market data\n\n", escapeMarkdown(result.Symbol)))
	sb.WriteString(aggregationTable(result).RenderMarkdown())
	if !result.CompletedAt.IsZero() {
		sb.WriteString(fmt.Sprintf("\n\n_Completed %s_\n", formatTime(result.CompletedAt)))
	}
	return sb.String(), nil
}

func (f *MarkdownFormatter) FormatUsage(usage []core.RateLimitUsage) (string, error) {
	return "## Rate limits\n\n" + usageTable(usage).RenderMarkdown(), nil
}

func (f *MarkdownFormatter) FormatPayload(service core.ServiceName, query string, payload json.RawMessage) (string, error) {
	heading := fmt.Sprintf("## %s: %s\n\n", service, escapeMarkdown(query))
	return heading + payloadTable(service, payload).RenderMarkdown(), nil
}

func escapeMarkdown(value string) string {
	return strings.NewReplacer("|", "\\|", "*", "\\*", "_", "\\_").Replace(value)
}
