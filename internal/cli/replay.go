package cli

import (
	"context"
	"encoding/csv"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"github.com/tgparkk/RoboTrader-ORB-sub002/internal/analysis/filters"
	"github.com/tgparkk/RoboTrader-ORB-sub002/internal/analysis/orb"
	"github.com/tgparkk/RoboTrader-ORB-sub002/internal/analysis/pattern"
	apperrors "github.com/tgparkk/RoboTrader-ORB-sub002/internal/errors"
	"github.com/tgparkk/RoboTrader-ORB-sub002/internal/feed"
	"github.com/tgparkk/RoboTrader-ORB-sub002/internal/ledger"
	"github.com/tgparkk/RoboTrader-ORB-sub002/internal/mlgate"
	"github.com/tgparkk/RoboTrader-ORB-sub002/internal/models"
	"github.com/tgparkk/RoboTrader-ORB-sub002/internal/store"
	"github.com/tgparkk/RoboTrader-ORB-sub002/internal/trading"
	"github.com/tgparkk/RoboTrader-ORB-sub002/pkg/utils"
)

// newReplayCmd replays a stored trading day through the full pipeline.
func newReplayCmd(app *App) *cobra.Command {
	var dateStr string

	cmd := &cobra.Command{
		Use:   "replay [symbols...]",
		Short: "Replay stored bars for a trading day through the signal pipeline",
		Long: `Replay runs the breakout pipeline over bars previously imported for the
given date. Symbols default to the stored candidate list for that date.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if app.Store == nil {
				return fmt.Errorf("store unavailable")
			}
			date, err := time.ParseInLocation("2006-01-02", dateStr, time.Local)
			if err != nil {
				return fmt.Errorf("parsing date %q: %w", dateStr, err)
			}

			candidates, err := replayCandidates(cmd.Context(), app, date, args)
			if err != nil {
				return err
			}
			if len(candidates) == 0 {
				return fmt.Errorf("no candidates for %s; pass symbols or import a candidate list", dateStr)
			}

			cfg := app.Config
			clock, err := utils.NewSessionClock(
				cfg.Session.MarketOpen, cfg.Session.ORBEnd,
				cfg.Session.BuyStart, cfg.Session.BuyEnd, cfg.Session.LiquidationTime)
			if err != nil {
				return err
			}

			book := ledger.New(store.NewMemoryStore(), cfg.Risk, app.Logger)
			engine := trading.NewDecisionEngine(
				pattern.NewClassifier(cfg.Pattern, app.Logger),
				filters.NewChain(cfg.Filters),
				mlgate.New(nil, cfg.ML, app.Logger),
				book,
				cfg.Filters,
				app.Logger,
			)
			session := trading.NewSession(cfg, clock, orb.NewCalculator(cfg.ORB), engine,
				feed.NewStoreFeed(app.Store), app.Logger)

			if err := session.Run(cmd.Context(), date, candidates); err != nil {
				return err
			}

			snap := book.BalanceSnapshot()
			fmt.Printf("Replay %s: balance %.0f -> %.0f (%+.2f%%)\n",
				dateStr, snap.Initial, snap.Current, snap.ProfitRate)
			return book.VerifyConservation(cmd.Context())
		},
	}

	cmd.Flags().StringVar(&dateStr, "date", time.Now().Format("2006-01-02"), "session date (YYYY-MM-DD)")
	return cmd
}

func replayCandidates(ctx context.Context, app *App, date time.Time, symbols []string) ([]models.CandidateStock, error) {
	if len(symbols) > 0 {
		out := make([]models.CandidateStock, 0, len(symbols))
		for _, s := range symbols {
			out = append(out, models.CandidateStock{Code: s, Name: s, Market: models.MarketKOSPI})
		}
		return out, nil
	}
	return app.Store.GetCandidates(ctx, date)
}

// newImportBarsCmd loads minute bars from a CSV file into the store.
// Expected columns: symbol, timestamp (RFC3339), open, high, low, close,
// volume; a header row is skipped.
func newImportBarsCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "import-bars <file.csv>",
		Short: "Import minute bars from a CSV file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if app.Store == nil {
				return fmt.Errorf("store unavailable")
			}
			f, err := os.Open(args[0])
			if err != nil {
				return err
			}
			defer f.Close()

			rows, err := csv.NewReader(f).ReadAll()
			if err != nil {
				return fmt.Errorf("reading %s: %w", args[0], err)
			}

			bySymbol := make(map[string][]models.Bar)
			for i, row := range rows {
				if i == 0 && row[0] == "symbol" {
					continue
				}
				bar, err := parseBarRow(row)
				if err != nil {
					app.Logger.Warn().Err(err).Int("row", i+1).Msg("Bar row skipped")
					continue
				}
				bySymbol[bar.Symbol] = append(bySymbol[bar.Symbol], bar)
			}

			total := 0
			for symbol, bars := range bySymbol {
				if err := app.Store.SaveBars(cmd.Context(), symbol, bars); err != nil {
					return err
				}
				total += len(bars)
			}
			fmt.Printf("Imported %d bars for %d symbols\n", total, len(bySymbol))
			return nil
		},
	}
	return cmd
}

func parseBarRow(row []string) (models.Bar, error) {
	if len(row) < 7 {
		return models.Bar{}, fmt.Errorf("expected 7 columns, got %d", len(row))
	}
	ts, err := time.Parse(time.RFC3339, row[1])
	if err != nil {
		return models.Bar{}, fmt.Errorf("parsing timestamp %q: %w", row[1], err)
	}
	prices := make([]float64, 4)
	for i := 0; i < 4; i++ {
		v, err := strconv.ParseFloat(row[2+i], 64)
		if err != nil {
			return models.Bar{}, fmt.Errorf("parsing price %q: %w", row[2+i], err)
		}
		prices[i] = v
	}
	volume, err := strconv.ParseInt(row[6], 10, 64)
	if err != nil {
		return models.Bar{}, fmt.Errorf("parsing volume %q: %w", row[6], err)
	}

	bar := models.Bar{
		Symbol:    row[0],
		Timestamp: ts.In(time.Local),
		Open:      prices[0],
		High:      prices[1],
		Low:       prices[2],
		Close:     prices[3],
		Volume:    volume,
	}
	if !bar.Valid() {
		return models.Bar{}, fmt.Errorf("bar for %s at %s: %w", bar.Symbol, bar.Timestamp, apperrors.ErrMalformedBar)
	}
	return bar, nil
}
