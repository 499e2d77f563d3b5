package cmd

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	gferrors "github.com/fulmenhq/gofulmen/errors"
	"github.com/fulmenhq/gofulmen/foundry"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/marketfeed/marketfeed/internal/config"
	"github.com/marketfeed/marketfeed/internal/core"
	"github.com/marketfeed/marketfeed/internal/core/engine"
	"github.com/marketfeed/marketfeed/internal/core/source"
	"github.com/marketfeed/marketfeed/internal/server/handlers"
)

// newUpstream serves the three services; social always answers 503.
func newUpstream(t *testing.T) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		switch {
		case r.URL.Path == "/query":
			_, _ = fmt.Fprintf(w, `{"Meta Data":{"2. Symbol":%q,"function":%q}}`,
				r.URL.Query().Get("symbol"), r.URL.Query().Get("function"))
		case r.URL.Path == "/v2/everything":
			_, _ = fmt.Fprintf(w, `{"status":"ok","totalResults":0,"articles":[],"q":%q}`, r.URL.Query().Get("q"))
		case strings.HasSuffix(r.URL.Path, "/tweets/search/recent"):
			w.WriteHeader(http.StatusServiceUnavailable)
			_, _ = w.Write([]byte(`{"title":"Service Unavailable"}`))
		default:
			http.NotFound(w, r)
		}
	}))
	t.Cleanup(srv.Close)
	return srv
}

func useTestConfig(t *testing.T, baseURL string) {
	t.Helper()
	previous := appConfig
	appConfig = &config.Config{
		Sources: config.SourcesConfig{
			Quotes: config.QuotesConfig{APIKey: "qk", BaseURL: baseURL + "/query", Function: source.DefaultQuoteFunction},
			News:   config.NewsConfig{APIKey: "nk", BaseURL: baseURL + "/v2", Language: "en"},
			Social: config.SocialConfig{BearerToken: "st", BaseURL: baseURL + "/2", MaxResults: 10},
		},
		HTTP: config.HTTPConfig{Timeout: 2 * time.Second},
	}
	t.Cleanup(func() { appConfig = previous })
}

func newTestCommand(t *testing.T, format string) (*cobra.Command, *bytes.Buffer) {
	t.Helper()
	cmd := &cobra.Command{Use: "test"}
	addOutputFlags(cmd)
	require.NoError(t, cmd.Flags().Set("output-format", format))
	var buf bytes.Buffer
	cmd.SetOut(&buf)
	cmd.SetContext(context.Background())
	return cmd, &buf
}

func TestExitCodeFor(t *testing.T) {
	envelope := gferrors.NewErrorEnvelope("CONFIG_INVALID", "bad config")

	tests := []struct {
		name string
		err  error
		want foundry.ExitCode
	}{
		{"nil", nil, foundry.ExitCode(0)},
		{"missing credential", &source.ConfigurationError{Service: core.ServiceNews, Field: "news API key"}, foundry.ExitConfigInvalid},
		{"rate limited", &source.RateLimitExceededError{Service: core.ServiceQuotes}, foundry.ExitExternalServiceUnavailable},
		{"upstream failure", &source.RequestFailedError{Service: core.ServiceSocial, StatusCode: 503, Err: fmt.Errorf("boom")}, foundry.ExitExternalServiceUnavailable},
		{"incomplete", fmt.Errorf("%w: 1 categories missing", errIncompleteResult), foundry.ExitExternalServiceUnavailable},
		{"config envelope", envelope, foundry.ExitConfigInvalid},
		{"other", fmt.Errorf("unexpected"), foundry.ExitFailure},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ExitCodeFor(tt.err))
		})
	}
}

func TestSanitizeFilename(t *testing.T) {
	assert.Equal(t, "fetch.aapl-msft", sanitizeFilename("fetch.AAPL-MSFT"))
	assert.Equal(t, "social.-tsla", sanitizeFilename("social.$TSLA"))
	assert.Equal(t, "news.aapl-earnings", sanitizeFilename("news.AAPL earnings"))
	assert.Equal(t, "output", sanitizeFilename("  $$ "))
}

func TestCredentialStatus(t *testing.T) {
	assert.Equal(t, "missing", credentialStatus("  "))
	assert.Equal(t, "set", credentialStatus("short"))
	assert.Equal(t, "set (…wxyz)", credentialStatus("abcdefghijklmnopqrstuvwxyz"))
}

func TestRunFetchIsolatesFailingSource(t *testing.T) {
	up := newUpstream(t)
	useTestConfig(t, up.URL)

	cmd, buf := newTestCommand(t, "json")
	require.NoError(t, runFetch(cmd, []string{" ibm "}))

	var results []struct {
		Symbol  string                     `json:"symbol"`
		Data    map[string]json.RawMessage `json:"data"`
		Sources map[string]struct {
			Status string `json:"status"`
		} `json:"sources"`
	}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &results))
	require.Len(t, results, 1)

	result := results[0]
	assert.Equal(t, "IBM", result.Symbol)
	assert.Contains(t, string(result.Data[string(core.CategoryStockData)]), `"IBM"`)
	assert.Contains(t, string(result.Data[string(core.CategoryNews)]), `"articles"`)
	assert.Equal(t, "null", string(result.Data[string(core.CategorySocialSentiment)]))
	assert.Equal(t, string(core.SourceStatusRequestFailed), result.Sources[string(core.CategorySocialSentiment)].Status)
}

func TestRunFetchStrict(t *testing.T) {
	up := newUpstream(t)
	useTestConfig(t, up.URL)

	fetchStrict = true
	t.Cleanup(func() { fetchStrict = false })

	cmd, _ := newTestCommand(t, "json")
	err := runFetch(cmd, []string{"IBM"})
	require.ErrorIs(t, err, errIncompleteResult)
	assert.Equal(t, foundry.ExitExternalServiceUnavailable, ExitCodeFor(err))
}

func TestRunFetchMissingCredential(t *testing.T) {
	useTestConfig(t, "http://127.0.0.1:1")
	appConfig.Sources.Social.BearerToken = ""

	cmd, _ := newTestCommand(t, "json")
	err := runFetch(cmd, []string{"IBM"})
	require.Error(t, err)
	assert.True(t, source.IsConfigurationError(err))
	assert.Equal(t, foundry.ExitConfigInvalid, ExitCodeFor(err))
}

func TestRunFetchWritesToOutDir(t *testing.T) {
	up := newUpstream(t)
	useTestConfig(t, up.URL)

	dir := t.TempDir()
	cmd, buf := newTestCommand(t, "markdown")
	require.NoError(t, cmd.Flags().Set("out-dir", dir))
	require.NoError(t, runFetch(cmd, []string{"AAPL"}))

	assert.Empty(t, buf.String())
	data, err := os.ReadFile(filepath.Join(dir, "fetch.aapl.md"))
	require.NoError(t, err)
	assert.Contains(t, string(data), "AAPL")
}

func TestQuotesCommandUsesFunctionFlag(t *testing.T) {
	up := newUpstream(t)
	useTestConfig(t, up.URL)

	quotesFunction = "TIME_SERIES_WEEKLY"
	t.Cleanup(func() { quotesFunction = "" })

	cmd, buf := newTestCommand(t, "json")
	require.NoError(t, quotesCmd.RunE(cmd, []string{"msft"}))

	var payload struct {
		Service string          `json:"service"`
		Query   string          `json:"query"`
		Data    json.RawMessage `json:"data"`
	}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &payload))
	assert.Equal(t, string(core.ServiceQuotes), payload.Service)
	assert.Equal(t, "MSFT", payload.Query)
	assert.Contains(t, string(payload.Data), "TIME_SERIES_WEEKLY")
}

func TestQuotesCommandUsesConfiguredFunction(t *testing.T) {
	up := newUpstream(t)
	useTestConfig(t, up.URL)
	appConfig.Sources.Quotes.Function = "TIME_SERIES_MONTHLY"

	cmd, buf := newTestCommand(t, "json")
	require.NoError(t, quotesCmd.RunE(cmd, []string{"msft"}))
	assert.Contains(t, buf.String(), "TIME_SERIES_MONTHLY")
}

func TestRunFetchUsesConfiguredFunction(t *testing.T) {
	up := newUpstream(t)
	useTestConfig(t, up.URL)
	appConfig.Sources.Quotes.Function = "TIME_SERIES_WEEKLY"

	cmd, buf := newTestCommand(t, "json")
	require.NoError(t, runFetch(cmd, []string{"IBM"}))

	var results []struct {
		Data map[string]json.RawMessage `json:"data"`
	}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &results))
	require.Len(t, results, 1)
	assert.Contains(t, string(results[0].Data[string(core.CategoryStockData)]), "TIME_SERIES_WEEKLY")
}

func TestNewsCommandDefaultsQuery(t *testing.T) {
	up := newUpstream(t)
	useTestConfig(t, up.URL)

	cmd, buf := newTestCommand(t, "json")
	require.NoError(t, newsCmd.RunE(cmd, nil))
	assert.Contains(t, buf.String(), source.DefaultNewsQuery)
}

func TestSocialCommandReturnsUpstreamFailure(t *testing.T) {
	up := newUpstream(t)
	useTestConfig(t, up.URL)

	cmd, _ := newTestCommand(t, "json")
	err := socialCmd.RunE(cmd, []string{"$TSLA"})
	require.ErrorIs(t, err, source.ErrRequestFailed)
	assert.Equal(t, foundry.ExitExternalServiceUnavailable, ExitCodeFor(err))
}

func TestRateLimitListLocal(t *testing.T) {
	useTestConfig(t, "http://127.0.0.1:1")
	appConfig.RateLimits = map[string]core.Quota{
		string(core.ServiceQuotes): {RequestsPerWindow: 5, Period: core.PeriodHour},
	}

	cmd, buf := newTestCommand(t, "json")
	require.NoError(t, rateLimitListCmd.RunE(cmd, nil))

	var entries []struct {
		Service   string `json:"service"`
		Limit     int    `json:"limit"`
		Remaining int    `json:"remaining"`
	}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entries))
	require.NotEmpty(t, entries)

	byService := map[string]int{}
	for _, entry := range entries {
		byService[entry.Service] = entry.Limit
		assert.Equal(t, entry.Limit, entry.Remaining)
	}
	assert.Equal(t, 5, byService[string(core.ServiceQuotes)])
}

func TestRateLimitListFromServer(t *testing.T) {
	useTestConfig(t, "http://127.0.0.1:1")

	paths := make(chan string, 1)
	api := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case paths <- r.URL.Path:
		default:
		}
		usage := core.RateLimitUsage{Service: core.ServiceNews, Used: 7, Limit: 1000, Period: core.PeriodDay}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(handlers.RateLimitsResponse{
			Services:  []handlers.RateLimitEntry{{RateLimitUsage: usage, Remaining: usage.Remaining()}},
			Timestamp: time.Now().UTC(),
		})
	}))
	t.Cleanup(api.Close)

	rateLimitListServer = api.URL + "/"
	t.Cleanup(func() { rateLimitListServer = "" })

	cmd, buf := newTestCommand(t, "table")
	require.NoError(t, rateLimitListCmd.RunE(cmd, nil))
	assert.Contains(t, buf.String(), api.URL)
	assert.Contains(t, buf.String(), "news")
	assert.Contains(t, buf.String(), "993")
	assert.Equal(t, "/v1/rate-limits", <-paths)
}

func TestReloadRateLimits(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("rate_limits:\n  quotes:\n    requests: 5\n    period: hour\nrate_limit_margin: 0.5\n"), 0644))

	v := viper.New()
	config.SetDefaults(v)
	config.AddConfigPaths(v, path)

	limiter := engine.NewRateLimiter()
	require.NoError(t, reloadRateLimits(context.Background(), v, limiter, zap.NewNop()))

	quotes, ok := limiter.Quota(core.ServiceQuotes)
	require.True(t, ok)
	assert.Equal(t, core.Quota{RequestsPerWindow: 5, Period: core.PeriodHour}, quotes)
	assert.InDelta(t, 0.5, limiter.SafetyMargin(), 0.0001)
}

func TestReloadRateLimitsInvalidFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("rate_limits: [\n"), 0644))

	v := viper.New()
	config.SetDefaults(v)
	config.AddConfigPaths(v, path)

	err := reloadRateLimits(context.Background(), v, engine.NewRateLimiter(), zap.NewNop())
	require.Error(t, err)
	assert.Equal(t, foundry.ExitConfigInvalid, ExitCodeFor(err))
}

func TestVersionCommand(t *testing.T) {
	handlers.SetVersionInfo("1.2.3", "abc123", "2026-01-01")
	t.Cleanup(func() { handlers.SetVersionInfo("dev", "unknown", "unknown") })

	cmd, buf := newTestCommand(t, "table")
	require.NoError(t, versionCmd.RunE(cmd, nil))
	assert.Equal(t, "marketfeed 1.2.3\n", buf.String())

	extended = true
	t.Cleanup(func() { extended = false })
	buf.Reset()
	require.NoError(t, versionCmd.RunE(cmd, nil))
	assert.Contains(t, buf.String(), "Commit: abc123")
	assert.Contains(t, buf.String(), "Gofulmen:")
}
