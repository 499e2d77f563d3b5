package output

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/marketfeed/marketfeed/internal/core"
)

const (
	maxSummaryRunes = 60
	maxPayloadRows  = 10
)

// Alpha Vantage reports throttling and bad symbols in a 200 body under one of
// these keys.
var quoteNoticeKeys = []string{"Error Message", "Note", "Information"}

func statusLabel(outcome *core.SourceOutcome) string {
	if outcome == nil {
		return "unknown"
	}
	switch outcome.Status {
	case core.SourceStatusOK:
		return "ok"
	case core.SourceStatusRateLimited:
		return "rate limited"
	case core.SourceStatusRequestFailed:
		if outcome.Provenance.StatusCode != 0 {
			return fmt.Sprintf("failed (%d)", outcome.Provenance.StatusCode)
		}
		return "failed"
	default:
		return "error"
	}
}

func summarizeOutcome(outcome *core.SourceOutcome) string {
	if outcome == nil {
		return ""
	}
	if !outcome.Present() {
		return truncate(outcome.Message)
	}
	switch outcome.Category {
	case core.CategoryStockData:
		return summarizeQuotes(outcome.Payload)
	case core.CategoryNews:
		return summarizeNews(outcome.Payload)
	case core.CategorySocialSentiment:
		return summarizeSocial(outcome.Payload)
	default:
		return fmt.Sprintf("%d bytes", len(outcome.Payload))
	}
}

type quoteBar struct {
	Date   string
	Open   string
	High   string
	Low    string
	Close  string
	Volume string
}

// parseQuotes extracts the notice text or the time series bars, newest first.
func parseQuotes(payload json.RawMessage) (string, []quoteBar, map[string]string) {
	var doc map[string]json.RawMessage
	if err := json.Unmarshal(payload, &doc); err != nil {
		return "", nil, nil
	}

	for _, key := range quoteNoticeKeys {
		if raw, ok := doc[key]; ok {
			var notice string
			if err := json.Unmarshal(raw, &notice); err == nil {
				return notice, nil, nil
			}
		}
	}

	if raw, ok := doc["Global Quote"]; ok {
		var quote map[string]string
		if err := json.Unmarshal(raw, &quote); err == nil {
			return "", nil, quote
		}
	}

	for key, raw := range doc {
		if !strings.HasPrefix(key, "Time Series") {
			continue
		}
		var series map[string]map[string]string
		if err := json.Unmarshal(raw, &series); err != nil {
			return "", nil, nil
		}
		bars := make([]quoteBar, 0, len(series))
		for date, values := range series {
			bars = append(bars, quoteBar{
				Date:   date,
				Open:   values["1. open"],
				High:   values["2. high"],
				Low:    values["3. low"],
				Close:  values["4. close"],
				Volume: firstNonEmpty(values["5. volume"], values["6. volume"]),
			})
		}
		sort.Slice(bars, func(i, j int) bool { return bars[i].Date > bars[j].Date })
		return "", bars, nil
	}

	return "", nil, nil
}

func summarizeQuotes(payload json.RawMessage) string {
	notice, bars, quote := parseQuotes(payload)
	switch {
	case notice != "":
		return truncate("notice: " + notice)
	case quote != nil:
		return fmt.Sprintf("price %s (%s)", quote["05. price"], quote["10. change percent"])
	case len(bars) > 0:
		return fmt.Sprintf("%s close %s (%d points)", bars[0].Date, bars[0].Close, len(bars))
	default:
		return fmt.Sprintf("%d bytes", len(payload))
	}
}

type newsArticle struct {
	Title       string    `json:"title"`
	PublishedAt time.Time `json:"publishedAt"`
	URL         string    `json:"url"`
	Source      struct {
		Name string `json:"name"`
	} `json:"source"`
}

type newsDocument struct {
	Status       string        `json:"status"`
	TotalResults int           `json:"totalResults"`
	Articles     []newsArticle `json:"articles"`
}

func summarizeNews(payload json.RawMessage) string {
	var doc newsDocument
	if err := json.Unmarshal(payload, &doc); err != nil {
		return fmt.Sprintf("%d bytes", len(payload))
	}
	if len(doc.Articles) == 0 {
		return "no articles"
	}
	latest := doc.Articles[0]
	summary := fmt.Sprintf("%d articles; latest: %s", doc.TotalResults, latest.Title)
	if latest.Source.Name != "" {
		summary += " (" + latest.Source.Name + ")"
	}
	return truncate(summary)
}

type socialPost struct {
	ID            string    `json:"id"`
	Text          string    `json:"text"`
	CreatedAt     time.Time `json:"created_at"`
	PublicMetrics struct {
		LikeCount    int `json:"like_count"`
		RetweetCount int `json:"retweet_count"`
		ReplyCount   int `json:"reply_count"`
	} `json:"public_metrics"`
}

type socialDocument struct {
	Data []socialPost `json:"data"`
	Meta struct {
		ResultCount int `json:"result_count"`
	} `json:"meta"`
}

func summarizeSocial(payload json.RawMessage) string {
	var doc socialDocument
	if err := json.Unmarshal(payload, &doc); err != nil {
		return fmt.Sprintf("%d bytes", len(payload))
	}
	if len(doc.Data) == 0 {
		return "no posts"
	}

	count := doc.Meta.ResultCount
	if count == 0 {
		count = len(doc.Data)
	}
	top := doc.Data[0]
	for _, post := range doc.Data[1:] {
		if post.PublicMetrics.LikeCount > top.PublicMetrics.LikeCount {
			top = post
		}
	}
	return truncate(fmt.Sprintf("%d posts; top: %s", count, oneLine(top.Text)))
}

// payloadRows returns a header and up to maxPayloadRows rows for a single
// service payload.
func payloadRows(service core.ServiceName, payload json.RawMessage) ([]string, [][]string) {
	switch service {
	case core.ServiceQuotes:
		notice, bars, quote := parseQuotes(payload)
		switch {
		case notice != "":
			return []string{"Notice"}, [][]string{{notice}}
		case quote != nil:
			keys := make([]string, 0, len(quote))
			for key := range quote {
				keys = append(keys, key)
			}
			sort.Strings(keys)
			rows := make([][]string, 0, len(keys))
			for _, key := range keys {
				rows = append(rows, []string{key, quote[key]})
			}
			return []string{"Field", "Value"}, rows
		}
		rows := make([][]string, 0, maxPayloadRows)
		for i, bar := range bars {
			if i == maxPayloadRows {
				break
			}
			rows = append(rows, []string{bar.Date, bar.Open, bar.High, bar.Low, bar.Close, bar.Volume})
		}
		return []string{"Date", "Open", "High", "Low", "Close", "Volume"}, rows
	case core.ServiceNews:
		var doc newsDocument
		_ = json.Unmarshal(payload, &doc)
		rows := make([][]string, 0, maxPayloadRows)
		for i, article := range doc.Articles {
			if i == maxPayloadRows {
				break
			}
			rows = append(rows, []string{formatTime(article.PublishedAt), article.Source.Name, truncate(article.Title)})
		}
		return []string{"Published", "Source", "Title"}, rows
	case core.ServiceSocial:
		var doc socialDocument
		_ = json.Unmarshal(payload, &doc)
		rows := make([][]string, 0, maxPayloadRows)
		for i, post := range doc.Data {
			if i == maxPayloadRows {
				break
			}
			rows = append(rows, []string{
				formatTime(post.CreatedAt),
				fmt.Sprintf("%d", post.PublicMetrics.LikeCount),
				fmt.Sprintf("%d", post.PublicMetrics.RetweetCount),
				truncate(oneLine(post.Text)),
			})
		}
		return []string{"Created", "Likes", "Reposts", "Text"}, rows
	default:
		return []string{"Bytes"}, [][]string{{fmt.Sprintf("%d", len(payload))}}
	}
}

func formatWindow(usage core.RateLimitUsage) string {
	if usage.Unbounded {
		return "unbounded"
	}
	return string(usage.Period)
}

func formatRemaining(usage core.RateLimitUsage) string {
	if usage.Unbounded {
		return "-"
	}
	return fmt.Sprintf("%d", usage.Remaining())
}

func formatOldest(usage core.RateLimitUsage) string {
	if usage.Oldest == nil {
		return "-"
	}
	return usage.Oldest.UTC().Format(time.RFC3339)
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return "-"
	}
	return t.UTC().Format(time.RFC3339)
}

func oneLine(value string) string {
	return strings.Join(strings.Fields(value), " ")
}

func truncate(value string) string {
	runes := []rune(value)
	if len(runes) <= maxSummaryRunes {
		return value
	}
	return string(runes[:maxSummaryRunes-3]) + "..."
}

func firstNonEmpty(values ...string) string {
	for _, value := range values {
		if value != "" {
			return value
		}
	}
	return ""
}
