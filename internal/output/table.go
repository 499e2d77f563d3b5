package output

import (
	"encoding/json"
	"fmt"

	"github.com/jedib0t/go-pretty/v6/table"

	"github.com/marketfeed/marketfeed/internal/core"
)

// TableFormatter renders results as an ASCII table.
type TableFormatter struct{}

// FormatAggregation renders one row per category.
func (f *TableFormatter) FormatAggregation(result *core.AggregationResult) (string, error) {
	if result == nil {
		return "", nil
	}
	t := aggregationTable(result)
	t.SetStyle(table.StyleRounded)
	t.SetTitle(result.Symbol)
	return t.Render(), nil
}

// FormatUsage renders one row per service quota.
func (f *TableFormatter) FormatUsage(usage []core.RateLimitUsage) (string, error) {
	t := usageTable(usage)
	t.SetStyle(table.StyleRounded)
	return t.Render(), nil
}

// FormatPayload renders the newest entries of a single service payload.
func (f *TableFormatter) FormatPayload(service core.ServiceName, query string, payload json.RawMessage) (string, error) {
	t := payloadTable(service, payload)
	t.SetStyle(table.StyleRounded)
	t.SetTitle(fmt.Sprintf("%s: %s", service, query))
	return t.Render(), nil
}

func aggregationTable(result *core.AggregationResult) table.Writer {
	t := table.NewWriter()
	t.AppendHeader(table.Row{"Category", "Service", "Status", "Summary"})

	for _, category := range core.Categories {
		outcome := result.Outcomes[category]
		if outcome == nil {
			continue
		}
		t.AppendRow(table.Row{
			string(category),
			string(outcome.Provenance.Service),
			statusLabel(outcome),
			summarizeOutcome(outcome),
		})
	}

	t.AppendFooter(table.Row{
		"",
		"",
		fmt.Sprintf("%d/%d present", result.PresentCount(), len(core.Categories)),
		"",
	})
	return t
}

func usageTable(usage []core.RateLimitUsage) table.Writer {
	t := table.NewWriter()
	t.AppendHeader(table.Row{"Service", "Used", "Limit", "Remaining", "Window", "Oldest"})
	for _, u := range usage {
		limit := "-"
		if !u.Unbounded {
			limit = fmt.Sprintf("%d", u.Limit)
		}
		t.AppendRow(table.Row{
			string(u.Service),
			u.Used,
			limit,
			formatRemaining(u),
			formatWindow(u),
			formatOldest(u),
		})
	}
	return t
}

func payloadTable(service core.ServiceName, payload json.RawMessage) table.Writer {
	header, rows := payloadRows(service, payload)

	t := table.NewWriter()
	headerRow := make(table.Row, 0, len(header))
	for _, h := range header {
		headerRow = append(headerRow, h)
	}
	t.AppendHeader(headerRow)
	for _, row := range rows {
		r := make(table.Row, 0, len(row))
		for _, cell := range row {
			r = append(r, cell)
		}
		t.AppendRow(r)
	}
	return t
}
