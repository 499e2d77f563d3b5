package output

import (
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/marketfeed/marketfeed/internal/core"
)

const dailySeries = `{
  "Meta Data": {"2. Symbol": "IBM", "3. Last Refreshed": "2026-10-16"},
  "Time Series (Daily)": {
    "2026-10-15": {"1. open": "180.00", "2. high": "182.00", "3. low": "179.50", "4. close": "181.25", "5. volume": "4000000"},
    "2026-10-16": {"1. open": "181.30", "2. high": "184.10", "3. low": "181.00", "4. close": "183.90", "5. volume": "5100000"}
  }
}`

const newsBody = `{"status":"ok","totalResults":2,"articles":[
  {"title":"IBM beats estimates","publishedAt":"2026-10-16T12:00:00Z","source":{"name":"Wire"}},
  {"title":"Older story","publishedAt":"2026-10-15T09:00:00Z","source":{"name":"Daily"}}
]}`

const socialBody = `{"data":[
  {"id":"1","text":"$IBM looking strong","public_metrics":{"like_count":3}},
  {"id":"2","text":"$IBM   to the\nmoon","public_metrics":{"like_count":40}}
],"meta":{"result_count":2}}`

func sampleResult() *core.AggregationResult {
	result := core.NewAggregationResult("IBM")
	stock := result.Outcomes[core.CategoryStockData]
	stock.Status = core.SourceStatusOK
	stock.Message = ""
	stock.Payload = json.RawMessage(dailySeries)
	stock.Provenance.Service = core.ServiceQuotes

	news := result.Outcomes[core.CategoryNews]
	news.Status = core.SourceStatusOK
	news.Message = ""
	news.Payload = json.RawMessage(newsBody)

	social := result.Outcomes[core.CategorySocialSentiment]
	social.Status = core.SourceStatusRequestFailed
	social.Message = "social request failed with status 503: unavailable"
	social.Provenance.StatusCode = 503

	result.CompletedAt = time.Date(2026, 10, 17, 8, 0, 0, 0, time.UTC)
	return result
}

func TestParseFormat(t *testing.T) {
	format, err := ParseFormat("table")
	require.NoError(t, err)
	require.Equal(t, FormatTable, format)

	format, err = ParseFormat("JSON")
	require.NoError(t, err)
	require.Equal(t, FormatJSON, format)

	format, err = ParseFormat("yml")
	require.NoError(t, err)
	require.Equal(t, FormatYAML, format)

	format, err = ParseFormat("")
	require.NoError(t, err)
	require.Equal(t, FormatTable, format)

	_, err = ParseFormat("csv")
	require.Error(t, err)

	require.Equal(t, "md", FormatMarkdown.Extension())
}

func TestFormatAggregationJSONKeepsAbsentCategories(t *testing.T) {
	rendered, err := NewFormatter(FormatJSON).FormatAggregation(sampleResult())
	require.NoError(t, err)

	var doc struct {
		Symbol string                     `json:"symbol"`
		Data   map[string]json.RawMessage `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(rendered), &doc))
	require.Equal(t, "IBM", doc.Symbol)
	require.Len(t, doc.Data, 3)
	require.Equal(t, "null", string(doc.Data["social_sentiment"]))
	require.Contains(t, string(doc.Data["news"]), "IBM beats estimates")
}

func TestFormatAggregationYAML(t *testing.T) {
	rendered, err := NewFormatter(FormatYAML).FormatAggregation(sampleResult())
	require.NoError(t, err)

	var doc map[string]interface{}
	require.NoError(t, yaml.Unmarshal([]byte(rendered), &doc))
	data, ok := doc["data"].(map[string]interface{})
	require.True(t, ok)
	require.Nil(t, data["social_sentiment"])
	news, ok := data["news"].(map[string]interface{})
	require.True(t, ok, "payload should render as a mapping, not bytes")
	require.Equal(t, "ok", news["status"])
}

func TestFormatAggregationTable(t *testing.T) {
	rendered, err := NewFormatter(FormatTable).FormatAggregation(sampleResult())
	require.NoError(t, err)
	require.Contains(t, rendered, "CATEGORY")
	require.Contains(t, rendered, "stock_data")
	require.Contains(t, rendered, "2026-10-16 close 183.90 (2 points)")
	require.Contains(t, rendered, "2 articles; latest: IBM beats estimates (Wire)")
	require.Contains(t, rendered, "failed (503)")
	require.Contains(t, strings.ToLower(rendered), "2/3 present")
}

func TestFormatAggregationMarkdown(t *testing.T) {
	rendered, err := NewFormatter(FormatMarkdown).FormatAggregation(sampleResult())
	require.NoError(t, err)
	require.True(t, strings.HasPrefix(rendered, "## IBM market data"))
	require.Contains(t, strings.ToLower(rendered), "| category |")
	require.Contains(t, rendered, "social_sentiment")
	require.Contains(t, rendered, "_Completed 2026-10-17T08:00:00Z_")
}

func TestFormatAggregationList(t *testing.T) {
	results := []*core.AggregationResult{sampleResult(), nil, core.NewAggregationResult("MSFT")}

	rendered, err := FormatAggregationList(FormatJSON, results[:1])
	require.NoError(t, err)
	require.True(t, strings.HasPrefix(rendered, "["))

	rendered, err = FormatAggregationList(FormatMarkdown, results)
	require.NoError(t, err)
	require.Contains(t, rendered, "## IBM market data")
	require.Contains(t, rendered, "## MSFT market data")
}

func TestFormatUsage(t *testing.T) {
	oldest := time.Date(2026, 10, 17, 7, 0, 0, 0, time.UTC)
	usage := []core.RateLimitUsage{
		{Service: core.ServiceQuotes, Used: 25, Limit: 25, Period: core.PeriodDay, Oldest: &oldest},
		{Service: core.ServiceSocial, Used: 4, Limit: 300, Period: core.PeriodFifteenMinutes},
		{Service: "custom", Used: 2, Unbounded: true},
	}

	rendered, err := NewFormatter(FormatTable).FormatUsage(usage)
	require.NoError(t, err)
	require.Contains(t, rendered, "REMAINING")
	require.Contains(t, rendered, "15_minutes")
	require.Contains(t, rendered, "2026-10-17T07:00:00Z")
	require.Contains(t, rendered, "unbounded")

	rendered, err = NewFormatter(FormatJSON).FormatUsage(usage)
	require.NoError(t, err)
	var entries []struct {
		Service   string `json:"service"`
		Remaining int    `json:"remaining"`
	}
	require.NoError(t, json.Unmarshal([]byte(rendered), &entries))
	require.Len(t, entries, 3)
	require.Equal(t, 0, entries[0].Remaining)
	require.Equal(t, 296, entries[1].Remaining)
	require.Equal(t, -1, entries[2].Remaining)
}

func TestFormatPayloadTable(t *testing.T) {
	rendered, err := NewFormatter(FormatTable).FormatPayload(core.ServiceQuotes, "IBM", json.RawMessage(dailySeries))
	require.NoError(t, err)
	require.Contains(t, rendered, "quotes: IBM")
	require.Less(t, strings.Index(rendered, "2026-10-16"), strings.Index(rendered, "2026-10-15"), "newest bar first")

	rendered, err = NewFormatter(FormatTable).FormatPayload(core.ServiceSocial, "$IBM", json.RawMessage(socialBody))
	require.NoError(t, err)
	require.Contains(t, rendered, "$IBM to the moon")
}

func TestSummaries(t *testing.T) {
	require.Equal(t, "notice: Thank you for using Alpha Vantage!",
		summarizeQuotes(json.RawMessage(`{"Note":"Thank you for using Alpha Vantage!"}`)))
	require.Equal(t, "price 181.20 (0.52%)",
		summarizeQuotes(json.RawMessage(`{"Global Quote":{"05. price":"181.20","10. change percent":"0.52%"}}`)))
	require.Equal(t, "2 posts; top: $IBM to the moon", summarizeSocial(json.RawMessage(socialBody)))
	require.Equal(t, "no articles", summarizeNews(json.RawMessage(`{"status":"ok","articles":[]}`)))
	require.Equal(t, "4 bytes", summarizeNews(json.RawMessage(`[1,]`)))
}

func TestMarkdownEscaping(t *testing.T) {
	result := core.NewAggregationResult("A|B")
	rendered, err := NewFormatter(FormatMarkdown).FormatAggregation(result)
	require.NoError(t, err)
	require.Contains(t, rendered, "A\\|B")
}

func TestTruncate(t *testing.T) {
	long := strings.Repeat("x", 100)
	require.Len(t, []rune(truncate(long)), maxSummaryRunes)
	require.True(t, strings.HasSuffix(truncate(long), "..."))
	require.Equal(t, "short", truncate("short"))
}
