package cmd

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/marketfeed/marketfeed/internal/core"
	"github.com/marketfeed/marketfeed/internal/core/engine"
	"github.com/marketfeed/marketfeed/internal/metrics"
	"github.com/marketfeed/marketfeed/internal/output"
)

var errIncompleteResult = errors.New("incomplete result")

var fetchStrict bool

var fetchCmd = &cobra.Command{
	Use:   "fetch <symbol> [symbol...]",
	Short: "Fetch quotes, news and social posts for one or more symbols",
	Long: `Fetch the daily time series, the newest financial news and recent social
posts for each symbol. A failing provider leaves its category empty; the other
categories are still returned.

Examples:
  marketfeed fetch AAPL
  marketfeed fetch aapl msft -o json
  marketfeed fetch IBM --out-dir ./reports -o markdown`,
	Args: cobra.MinimumNArgs(1),
	RunE: runFetch,
}

func init() {
	rootCmd.AddCommand(fetchCmd)
	addOutputFlags(fetchCmd)
	fetchCmd.Flags().BoolVar(&fetchStrict, "strict", false, "exit non-zero when any category is missing")
}

func runFetch(cmd *cobra.Command, args []string) error {
	format, err := resolveOutputFormat(cmd)
	if err != nil {
		return err
	}

	agg, _, err := appConfig.NewAggregator(toolVersion(), cliLogger())
	if err != nil {
		return err
	}
	agg.Observer = metrics.SourceObserver{}

	results := make([]*core.AggregationResult, 0, len(args))
	missing := 0
	for _, arg := range args {
		symbol := engine.NormalizeSymbol(arg)
		if symbol == "" {
			return fmt.Errorf("empty symbol")
		}
		result := agg.GetComprehensiveData(cmd.Context(), symbol)
		missing += len(core.Categories) - result.PresentCount()
		results = append(results, result)
	}

	rendered, err := output.FormatAggregationList(format, results)
	if err != nil {
		return err
	}
	if err := writeRendered(cmd, format, "fetch."+strings.Join(args, "-"), rendered); err != nil {
		return err
	}

	if missing > 0 {
		cliLogger().Debug("Some categories were not fetched", zap.Int("missing", missing))
		if fetchStrict {
			return fmt.Errorf("%w: %d categories missing", errIncompleteResult, missing)
		}
	}
	return nil
}
