package daily

import (
	"testing"
	"time"

	"github.com/rustyeddy/propfirm/challenge"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var day1 = time.Date(2024, 3, 10, 23, 59, 0, 0, time.UTC)

func opened(t *testing.T) challenge.Challenge {
	t.Helper()
	c, err := challenge.New("u1", challenge.DefaultPlans["STARTER"], challenge.StatusActive, day1)
	require.NoError(t, err)
	c.Equity = decimal.NewFromInt(4800)
	c.CurrentBalance = c.Equity
	return c
}

func TestRollIfNeeded(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		now    time.Time
		rolled bool
	}{
		{"same day", day1.Add(30 * time.Second), false},
		{"next UTC day", day1.Add(2 * time.Minute), true},
		{"local evening is next UTC day", time.Date(2024, 3, 10, 20, 0, 0, 0, time.FixedZone("EST", -5*3600)), true},
		{"clock behind stored date", day1.Add(-48 * time.Hour), false},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			c := opened(t)
			rolled, got := RollIfNeeded(c, tt.now)
			assert.Equal(t, tt.rolled, rolled)
			if tt.rolled {
				assert.True(t, got.DailyStartingBalance.Equal(decimal.NewFromInt(4800)))
				assert.Equal(t, challenge.UTCDate(tt.now), got.DailyDate)
				return
			}
			assert.Equal(t, c, got)
		})
	}
}

func TestRollIfNeededWithoutDate(t *testing.T) {
	t.Parallel()

	c := opened(t)
	c.DailyDate = ""
	rolled, got := RollIfNeeded(c, day1)
	assert.True(t, rolled)
	assert.Equal(t, "2024-03-10", got.DailyDate)
}

func TestRollDoesNotTouchInput(t *testing.T) {
	t.Parallel()

	c := opened(t)
	_, _ = RollIfNeeded(c, day1.Add(time.Hour))
	assert.True(t, c.DailyStartingBalance.Equal(decimal.NewFromInt(5000)))
	assert.Equal(t, "2024-03-10", c.DailyDate)
}

func TestRollFromUpdatedAt(t *testing.T) {
	t.Parallel()

	c := opened(t)
	c.DailyDate = "2099-01-01" // ignored on this path

	rolled, got := RollFromUpdatedAt(c, day1.Add(time.Minute))
	assert.False(t, rolled)
	assert.Equal(t, c, got)

	rolled, got = RollFromUpdatedAt(c, day1.Add(25*time.Hour))
	assert.True(t, rolled)
	assert.True(t, got.DailyStartingBalance.Equal(c.Equity))
	assert.Equal(t, "2024-03-12", got.DailyDate)
}
