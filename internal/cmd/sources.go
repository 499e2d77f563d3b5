package cmd

import (
	"encoding/json"

	"github.com/spf13/cobra"

	"github.com/marketfeed/marketfeed/internal/core"
	"github.com/marketfeed/marketfeed/internal/core/engine"
	"github.com/marketfeed/marketfeed/internal/output"
)

var (
	quotesFunction   string
	newsLanguage     string
	socialMaxResults int
)

var quotesCmd = &cobra.Command{
	Use:   "quotes <symbol>",
	Short: "Fetch the stock time series for a symbol",
	Example: `  marketfeed quotes IBM
  marketfeed quotes msft --function TIME_SERIES_WEEKLY -o json`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := appConfig.NewQuotesClient(toolVersion(), appConfig.NewRateLimiter(), cliLogger())
		if err != nil {
			return err
		}
		symbol := engine.NormalizeSymbol(args[0])
		payload, err := client.GetStockData(cmd.Context(), symbol, quotesFunction)
		if err != nil {
			return err
		}
		return writePayload(cmd, core.ServiceQuotes, symbol, payload)
	},
}

var newsCmd = &cobra.Command{
	Use:   "news [query]",
	Short: "Search financial news",
	Long:  `Search the newest articles. Without a query the search term "financial" is used.`,
	Example: `  marketfeed news
  marketfeed news "AAPL earnings" --language de`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := appConfig.NewNewsClient(toolVersion(), appConfig.NewRateLimiter(), cliLogger())
		if err != nil {
			return err
		}
		query := ""
		if len(args) == 1 {
			query = args[0]
		}
		payload, err := client.GetFinancialNews(cmd.Context(), query, newsLanguage)
		if err != nil {
			return err
		}
		return writePayload(cmd, core.ServiceNews, query, payload)
	},
}

var socialCmd = &cobra.Command{
	Use:   "social <query>",
	Short: "Search recent social posts",
	Example: `  marketfeed social '$TSLA'
  marketfeed social '$AAPL lang:en' --max-results 50`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := appConfig.NewSocialClient(toolVersion(), appConfig.NewRateLimiter(), cliLogger())
		if err != nil {
			return err
		}
		payload, err := client.SearchPosts(cmd.Context(), args[0], socialMaxResults)
		if err != nil {
			return err
		}
		return writePayload(cmd, core.ServiceSocial, args[0], payload)
	},
}

func init() {
	rootCmd.AddCommand(quotesCmd, newsCmd, socialCmd)

	addOutputFlags(quotesCmd)
	quotesCmd.Flags().StringVar(&quotesFunction, "function", "", "Alpha Vantage function (default from config, TIME_SERIES_DAILY)")

	addOutputFlags(newsCmd)
	newsCmd.Flags().StringVar(&newsLanguage, "language", "", "article language (default from config, en)")

	addOutputFlags(socialCmd)
	socialCmd.Flags().IntVar(&socialMaxResults, "max-results", 0, "number of posts, capped at 100 (default from config, 10)")
}

func writePayload(cmd *cobra.Command, service core.ServiceName, query string, payload json.RawMessage) error {
	format, err := resolveOutputFormat(cmd)
	if err != nil {
		return err
	}
	rendered, err := output.NewFormatter(format).FormatPayload(service, query, payload)
	if err != nil {
		return err
	}
	return writeRendered(cmd, format, string(service)+"."+query, rendered)
}
