package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/tgparkk/RoboTrader-ORB-sub002/internal/analysis/scoring"
)

// fileProvider serves market data from a pre-collected snapshot file. The
// live data feed is a separate collector; the engine only consumes its
// output.
type fileProvider map[string]scoring.MarketData

func (p fileProvider) FetchMarketData(_ context.Context, symbol string) (scoring.MarketData, error) {
	data, ok := p[symbol]
	if !ok {
		return scoring.MarketData{}, fmt.Errorf("no market data for %s", symbol)
	}
	if data.Symbol == "" {
		data.Symbol = symbol
	}
	return data, nil
}

// newScanCmd scores a market-data snapshot and stores the candidate list.
// The snapshot is a JSON object keyed by symbol code, each value carrying
// the daily bars, weekly bars and quote the scorer consumes.
func newScanCmd(app *App) *cobra.Command {
	var (
		dateStr string
		save    bool
	)

	cmd := &cobra.Command{
		Use:   "scan <market-data.json>",
		Short: "Score a market-data snapshot into a candidate list",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			date, err := time.ParseInLocation("2006-01-02", dateStr, time.Local)
			if err != nil {
				return fmt.Errorf("parsing date %q: %w", dateStr, err)
			}

			raw, err := os.ReadFile(args[0])
			if err != nil {
				return err
			}
			provider := fileProvider{}
			if err := json.Unmarshal(raw, &provider); err != nil {
				return fmt.Errorf("parsing %s: %w", args[0], err)
			}

			symbols := make([]string, 0, len(provider))
			for symbol := range provider {
				symbols = append(symbols, symbol)
			}

			scanner := scoring.NewScanner(
				scoring.NewScorer(app.Config.Scorer), provider, app.Config.Scan, app.Logger)
			candidates, err := scanner.Scan(cmd.Context(), symbols)
			if err != nil {
				return err
			}

			fmt.Printf("%d of %d symbols qualified\n", len(candidates), len(symbols))
			for _, c := range candidates {
				fmt.Printf("%-8s %-20s %3d  %s\n", c.Code, c.Name, c.Score, c.Reason)
			}

			if save {
				if app.Store == nil {
					return fmt.Errorf("store unavailable")
				}
				if err := app.Store.SaveCandidates(cmd.Context(), date, candidates); err != nil {
					return err
				}
				fmt.Printf("Saved %d candidates for %s\n", len(candidates), dateStr)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&dateStr, "date", time.Now().Format("2006-01-02"), "selection date (YYYY-MM-DD)")
	cmd.Flags().BoolVar(&save, "save", false, "store the candidate list for replay")
	return cmd
}
