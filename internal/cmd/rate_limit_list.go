package cmd

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/fulmenhq/gofulmen/ascii"
	"github.com/spf13/cobra"

	"github.com/marketfeed/marketfeed/internal/core"
	"github.com/marketfeed/marketfeed/internal/output"
	"github.com/marketfeed/marketfeed/internal/server/handlers"
)

var rateLimitListServer string

var rateLimitListCmd = &cobra.Command{
	Use:   "list",
	Short: "List quota usage per service",
	Long: `List the effective quota of every service. Without --server the quotas
come from the local configuration and usage is always zero, because each CLI
invocation starts with an empty window. With --server the live usage of a
running "marketfeed serve" is shown.`,
	Example: `  marketfeed rate-limit list
  marketfeed rate-limit list --server http://localhost:8080 -o json`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		format, err := resolveOutputFormat(cmd)
		if err != nil {
			return err
		}

		origin := "local configuration"
		var usage []core.RateLimitUsage
		if server := strings.TrimSpace(rateLimitListServer); server != "" {
			usage, err = fetchServerUsage(cmd, server)
			if err != nil {
				return err
			}
			origin = server
		} else {
			usage = appConfig.NewRateLimiter().Snapshot()
		}

		rendered, err := output.NewFormatter(format).FormatUsage(usage)
		if err != nil {
			return err
		}
		if format == output.FormatTable {
			header := ascii.DrawBox(fmt.Sprintf("Rate Limits\n\nsource: %s", origin), 0)
			rendered = strings.TrimRight(header, "\n") + "\n" + rendered
		}
		return writeRendered(cmd, format, "rate-limit.list", rendered)
	},
}

func init() {
	addOutputFlags(rateLimitListCmd)
	rateLimitListCmd.Flags().StringVar(&rateLimitListServer, "server", "", "base URL of a running marketfeed server")
}

func fetchServerUsage(cmd *cobra.Command, server string) ([]core.RateLimitUsage, error) {
	endpoint := strings.TrimRight(server, "/") + "/v1/rate-limits"
	req, err := http.NewRequestWithContext(cmd.Context(), http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	client := &http.Client{Timeout: appConfig.HTTP.Timeout}
	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("query %s: %w", endpoint, err)
	}
	defer resp.Body.Close() // nolint:errcheck // best-effort cleanup

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("query %s: unexpected status %d", endpoint, resp.StatusCode)
	}

	var body handlers.RateLimitsResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("decode rate limits: %w", err)
	}
	usage := make([]core.RateLimitUsage, 0, len(body.Services))
	for _, entry := range body.Services {
		usage = append(usage, entry.RateLimitUsage)
	}
	return usage, nil
}
