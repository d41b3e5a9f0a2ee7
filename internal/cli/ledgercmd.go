package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/tgparkk/RoboTrader-ORB-sub002/internal/models"
)

// newBalanceCmd prints the current balance replayed from the ledger store.
func newBalanceCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "balance",
		Short: "Show the current virtual balance and realized P/L",
		RunE: func(cmd *cobra.Command, args []string) error {
			if app.Store == nil {
				return fmt.Errorf("store unavailable")
			}
			records, err := app.Store.Records(cmd.Context())
			if err != nil {
				return err
			}

			initial := app.Config.Risk.InitialBalance
			balance := initial
			var realized float64
			open := 0
			for _, r := range records {
				switch r.Side {
				case models.SideBuy:
					balance -= r.Amount()
					open++
				case models.SideSell:
					balance += r.Amount()
					realized += r.ProfitLoss
					open--
				}
			}

			rate := 0.0
			if initial > 0 {
				rate = (balance - initial) / initial * 100
			}
			fmt.Printf("Balance:       %15.0f KRW\n", balance)
			fmt.Printf("Initial:       %15.0f KRW\n", initial)
			fmt.Printf("Realized P/L:  %15.0f KRW (%+.2f%%)\n", realized, rate)
			fmt.Printf("Open positions: %d\n", open)
			fmt.Printf("Records:        %d\n", len(records))
			return nil
		},
	}
	return cmd
}

// newVerifyCmd audits the ledger: every SELL must link to exactly one BUY
// with a matching quantity, and the replayed balance must never go negative.
func newVerifyCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "verify",
		Short: "Audit ledger records for settlement integrity",
		RunE: func(cmd *cobra.Command, args []string) error {
			if app.Store == nil {
				return fmt.Errorf("store unavailable")
			}
			records, err := app.Store.Records(cmd.Context())
			if err != nil {
				return err
			}

			buys := make(map[int64]models.PositionRecord)
			settled := make(map[int64]bool)
			balance := app.Config.Risk.InitialBalance
			for _, r := range records {
				switch r.Side {
				case models.SideBuy:
					buys[r.ID] = r
					balance -= r.Amount()
				case models.SideSell:
					buy, ok := buys[r.LinkedBuyID]
					if !ok {
						return fmt.Errorf("record %d: SELL references unknown BUY %d", r.ID, r.LinkedBuyID)
					}
					if settled[r.LinkedBuyID] {
						return fmt.Errorf("record %d: BUY %d settled twice", r.ID, r.LinkedBuyID)
					}
					if r.Quantity != buy.Quantity {
						return fmt.Errorf("record %d: quantity %d does not match BUY quantity %d",
							r.ID, r.Quantity, buy.Quantity)
					}
					settled[r.LinkedBuyID] = true
					balance += r.Amount()
				default:
					return fmt.Errorf("record %d: unknown side %q", r.ID, r.Side)
				}
				if balance < 0 {
					return fmt.Errorf("record %d: balance went negative (%.2f)", r.ID, balance)
				}
			}

			fmt.Printf("OK: %d records, %d buys, %d settled, final balance %.0f KRW\n",
				len(records), len(buys), len(settled), balance)
			return nil
		},
	}
	return cmd
}

// newCandidatesCmd lists the stored candidate selection for a date.
func newCandidatesCmd(app *App) *cobra.Command {
	var dateStr string

	cmd := &cobra.Command{
		Use:   "candidates",
		Short: "List the stored candidate selection for a date",
		RunE: func(cmd *cobra.Command, args []string) error {
			if app.Store == nil {
				return fmt.Errorf("store unavailable")
			}
			date, err := time.ParseInLocation("2006-01-02", dateStr, time.Local)
			if err != nil {
				return fmt.Errorf("parsing date %q: %w", dateStr, err)
			}
			candidates, err := app.Store.GetCandidates(cmd.Context(), date)
			if err != nil {
				return err
			}
			if len(candidates) == 0 {
				fmt.Printf("No candidates stored for %s\n", dateStr)
				return nil
			}

			fmt.Printf("%-8s %-20s %-8s %5s\n", "CODE", "NAME", "MARKET", "SCORE")
			for _, c := range candidates {
				fmt.Printf("%-8s %-20s %-8s %5d\n", c.Code, c.Name, c.Market, c.Score)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&dateStr, "date", time.Now().Format("2006-01-02"), "selection date (YYYY-MM-DD)")
	return cmd
}
