package state

import (
	"testing"
	"time"

	"github.com/rustyeddy/propfirm/challenge"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryGetPut(t *testing.T) {
	t.Parallel()

	m := NewMemory()
	_, err := m.Get("missing")
	assert.ErrorIs(t, err, ErrNotFound)

	c, err := challenge.New("u1", challenge.DefaultPlans["STARTER"], challenge.StatusActive, time.Now())
	require.NoError(t, err)
	m.Put(c)
	assert.Equal(t, 1, m.Len())

	got, err := m.Get(c.ID)
	require.NoError(t, err)
	assert.Equal(t, c.ID, got.ID)

	// Mutating the copy must not leak into the store.
	got.Equity = decimal.NewFromInt(1)
	again, err := m.Get(c.ID)
	require.NoError(t, err)
	assert.True(t, again.Equity.Equal(c.Equity))

	m.Delete(c.ID)
	_, err = m.Get(c.ID)
	assert.ErrorIs(t, err, ErrNotFound)
}
