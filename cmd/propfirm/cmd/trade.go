package cmd

import (
	"fmt"
	"text/tabwriter"

	"github.com/rustyeddy/propfirm/journal"
	"github.com/rustyeddy/propfirm/trading"
	"github.com/spf13/cobra"
)

var tradeCmd = &cobra.Command{
	Use:   "trade <challenge-id> <symbol> <BUY|SELL> <size>",
	Short: "Execute one trade at the current market price",
	Long: `Submit a trade against a challenge. The entry price always comes from
the configured price source.

Example:
  propfirm trade 01HZX3... BTC-USD BUY 0.05`,
	Args: cobra.ExactArgs(4),
	RunE: runTrade,
}

var tradesCmd = &cobra.Command{
	Use:   "trades <challenge-id>",
	Short: "List the trade ledger of a challenge",
	Long: `Print the trades of a challenge in ledger order, or write them to CSV.

Examples:
  propfirm trades 01HZX3...
  propfirm trades 01HZX3... --csv trades.csv`,
	Args: cobra.ExactArgs(1),
	RunE: runTrades,
}

var tradesCSV string

func init() {
	rootCmd.AddCommand(tradeCmd)
	rootCmd.AddCommand(tradesCmd)

	tradesCmd.Flags().StringVar(&tradesCSV, "csv", "", "write the ledger to this CSV file ('-' for stdout)")
}

func runTrade(cmd *cobra.Command, args []string) error {
	a, err := setup(cmd.Context())
	if err != nil {
		return err
	}
	defer a.Close()

	res, err := a.svc.SubmitTrade(cmd.Context(), trading.TradeRequest{
		ChallengeID: args[0],
		Symbol:      args[1],
		Side:        args[2],
		Size:        args[3],
	})
	if err != nil {
		return err
	}

	t, c := res.Trade, res.Challenge
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "✓ %s %s %s @ %s -> %s  pnl %s\n",
		t.Side, t.Size, t.Symbol, t.EntryPrice.StringFixed(2), t.ExitPrice.StringFixed(2), t.PnL.StringFixed(2))
	fmt.Fprintf(out, "  Trade:  %s\n", t.ID)
	fmt.Fprintf(out, "  Equity: %s  Status: %s\n", c.Equity.StringFixed(2), c.Status)
	return nil
}

func runTrades(cmd *cobra.Command, args []string) error {
	a, err := setup(cmd.Context())
	if err != nil {
		return err
	}
	defer a.Close()

	trades, err := a.svc.Trades(cmd.Context(), args[0])
	if err != nil {
		return err
	}

	switch tradesCSV {
	case "":
	case "-":
		return journal.WriteTradesCSV(cmd.OutOrStdout(), trades)
	default:
		if err := journal.ExportTradesCSV(tradesCSV, trades); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "✓ Wrote %d trades to %s\n", len(trades), tradesCSV)
		return nil
	}

	tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tOPENED\tSYMBOL\tSIDE\tSIZE\tENTRY\tEXIT\tPNL")
	for _, t := range trades {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\t%s\t%s\n",
			t.ID, t.OpenedAt.Format("2006-01-02 15:04:05"), t.Symbol, t.Side,
			t.Size, t.EntryPrice.StringFixed(2), t.ExitPrice.StringFixed(4), t.PnL.StringFixed(2))
	}
	return tw.Flush()
}
