// journal/csv.go
package journal

import (
	"encoding/csv"
	"io"
	"os"
	"time"

	"github.com/rustyeddy/propfirm/challenge"
)

var tradeHeader = []string{
	"id", "challenge_id", "symbol", "side", "entry_price", "exit_price",
	"size", "pnl", "status", "opened_at", "closed_at",
}

// WriteTradesCSV writes a header row followed by one row per trade.
func WriteTradesCSV(w io.Writer, trades []challenge.Trade) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(tradeHeader); err != nil {
		return err
	}
	for _, t := range trades {
		if err := cw.Write([]string{
			t.ID,
			t.ChallengeID,
			t.Symbol,
			string(t.Side),
			t.EntryPrice.String(),
			t.ExitPrice.String(),
			t.Size.String(),
			t.PnL.String(),
			string(t.Status),
			t.OpenedAt.UTC().Format(time.RFC3339Nano),
			t.ClosedAt.UTC().Format(time.RFC3339Nano),
		}); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// ExportTradesCSV writes trades to a new file at path.
func ExportTradesCSV(path string, trades []challenge.Trade) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := WriteTradesCSV(f, trades); err != nil {
		_ = f.Close()
		return err
	}
	return f.Close()
}
