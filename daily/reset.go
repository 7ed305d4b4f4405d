// Package daily rolls the daily-loss baseline at UTC day boundaries.
package daily

import (
	"time"

	"github.com/rustyeddy/propfirm/challenge"
)

// RollIfNeeded starts a new trading day when the UTC date of now is past
// c.DailyDate: the current equity becomes the day's baseline. It must run
// before the P&L of the triggering trade is applied.
func RollIfNeeded(c challenge.Challenge, now time.Time) (bool, challenge.Challenge) {
	today := challenge.UTCDate(now)
	if c.DailyDate != "" && c.DailyDate >= today {
		return false, c
	}
	return true, roll(c, today)
}

// RollFromUpdatedAt is the reload variant. A record read back from storage
// carries no trusted daily date, so the day of its last mutation is used.
func RollFromUpdatedAt(c challenge.Challenge, now time.Time) (bool, challenge.Challenge) {
	today := challenge.UTCDate(now)
	if !c.UpdatedAt.IsZero() && challenge.UTCDate(c.UpdatedAt) >= today {
		return false, c
	}
	return true, roll(c, today)
}

func roll(c challenge.Challenge, today string) challenge.Challenge {
	c.DailyStartingBalance = c.Equity
	c.DailyDate = today
	return c
}
