package core

import (
	"encoding/json"
	"time"
)

// ServiceName identifies an external data service.
type ServiceName string

const (
	ServiceQuotes ServiceName = "quotes"
	ServiceNews   ServiceName = "news"
	ServiceSocial ServiceName = "social"
)

// Services lists the known services in fetch order.
var Services = []ServiceName{ServiceQuotes, ServiceNews, ServiceSocial}

// Category identifies a slot in an aggregation result.
type Category string

const (
	CategoryStockData       Category = "stock_data"
	CategoryNews            Category = "news"
	CategorySocialSentiment Category = "social_sentiment"
)

// Categories lists the aggregation categories in fetch order.
var Categories = []Category{CategoryStockData, CategoryNews, CategorySocialSentiment}

// ServiceForCategory maps a category to the service that fills it.
func ServiceForCategory(category Category) ServiceName {
	switch category {
	case CategoryStockData:
		return ServiceQuotes
	case CategoryNews:
		return ServiceNews
	case CategorySocialSentiment:
		return ServiceSocial
	default:
		return ""
	}
}

// SourceStatus reports how a category was resolved.
type SourceStatus string

const (
	SourceStatusOK            SourceStatus = "ok"
	SourceStatusRateLimited   SourceStatus = "rate_limited"
	SourceStatusRequestFailed SourceStatus = "request_failed"
	SourceStatusError         SourceStatus = "error"
)

// Provenance captures metadata about how a source call was resolved.
type Provenance struct {
	CheckID     string      `json:"check_id"`
	RequestedAt time.Time   `json:"requested_at"`
	ResolvedAt  time.Time   `json:"resolved_at"`
	Service     ServiceName `json:"service"`
	Server      string      `json:"server,omitempty"`
	StatusCode  int         `json:"status_code,omitempty"`
	ToolVersion string      `json:"tool_version,omitempty"`
}

// SourceOutcome is either a raw payload or an absent marker with the reason.
type SourceOutcome struct {
	Category   Category        `json:"-"`
	Status     SourceStatus    `json:"status"`
	Message    string          `json:"message,omitempty"`
	Payload    json.RawMessage `json:"-"`
	Provenance Provenance      `json:"provenance"`
}

// Present reports whether the outcome carries a payload.
func (o *SourceOutcome) Present() bool {
	return o != nil && o.Status == SourceStatusOK && o.Payload != nil
}

// AggregationResult holds one outcome per category.
type AggregationResult struct {
	Symbol      string                      `json:"symbol"`
	Outcomes    map[Category]*SourceOutcome `json:"-"`
	CompletedAt time.Time                   `json:"completed_at"`
}

// NewAggregationResult returns a result where every category starts absent.
func NewAggregationResult(symbol string) *AggregationResult {
	outcomes := make(map[Category]*SourceOutcome, len(Categories))
	for _, category := range Categories {
		outcomes[category] = &SourceOutcome{
			Category:   category,
			Status:     SourceStatusError,
			Message:    "not fetched",
			Provenance: Provenance{Service: ServiceForCategory(category)},
		}
	}
	return &AggregationResult{Symbol: symbol, Outcomes: outcomes}
}

// Payload returns the raw payload for a category and whether it is present.
func (r *AggregationResult) Payload(category Category) (json.RawMessage, bool) {
	if r == nil {
		return nil, false
	}
	outcome, ok := r.Outcomes[category]
	if !ok || !outcome.Present() {
		return nil, false
	}
	return outcome.Payload, true
}

// PresentCount counts categories that carry a payload.
func (r *AggregationResult) PresentCount() int {
	if r == nil {
		return 0
	}
	count := 0
	for _, outcome := range r.Outcomes {
		if outcome.Present() {
			count++
		}
	}
	return count
}

// Data flattens the result into category -> payload, with nil for absent
// categories. Every category key is always present.
func (r *AggregationResult) Data() map[Category]json.RawMessage {
	data := make(map[Category]json.RawMessage, len(Categories))
	for _, category := range Categories {
		payload, _ := r.Payload(category)
		data[category] = payload
	}
	return data
}

type aggregationJSON struct {
	Symbol      string                       `json:"symbol"`
	Data        map[Category]json.RawMessage `json:"data"`
	Sources     map[Category]*SourceOutcome  `json:"sources"`
	CompletedAt time.Time                    `json:"completed_at"`
}

// MarshalJSON renders absent categories as null under "data" and keeps the
// failure reason under "sources".
func (r *AggregationResult) MarshalJSON() ([]byte, error) {
	data := r.Data()
	for category, payload := range data {
		if payload == nil {
			data[category] = json.RawMessage("null")
		}
	}
	return json.Marshal(aggregationJSON{
		Symbol:      r.Symbol,
		Data:        data,
		Sources:     r.Outcomes,
		CompletedAt: r.CompletedAt,
	})
}
