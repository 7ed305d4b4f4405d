package journal

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"

	_ "github.com/mattn/go-sqlite3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestSQLite(t *testing.T) (*SQLite, string) {
	t.Helper()

	dir := t.TempDir()
	path := filepath.Join(dir, "test.db")

	j, err := NewSQLite(path)
	require.NoError(t, err)
	t.Cleanup(func() { _ = j.Close() })

	return j, path
}

func TestSQLiteStore(t *testing.T) {
	t.Parallel()
	runStoreContract(t, func(t *testing.T) Store {
		j, _ := newTestSQLite(t)
		return j
	})
}

func TestSQLiteSchemaCreated(t *testing.T) {
	t.Parallel()

	j, path := newTestSQLite(t)
	assert.NoError(t, j.Close())

	db, err := sql.Open("sqlite3", path)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	rows, err := db.Query(`SELECT name FROM sqlite_master WHERE type='table' AND name IN ('challenges','trades','audit_log')`)
	require.NoError(t, err)
	defer rows.Close()

	found := map[string]bool{}
	for rows.Next() {
		var name string
		assert.NoError(t, rows.Scan(&name))
		found[name] = true
	}
	assert.NoError(t, rows.Err())

	assert.True(t, found["challenges"])
	assert.True(t, found["trades"])
	assert.True(t, found["audit_log"])
}

func TestSQLiteMoneyStoredAsText(t *testing.T) {
	t.Parallel()

	j, path := newTestSQLite(t)
	ctx := context.Background()

	c := newChallenge(t)
	c.Equity = dec("10000.10000001")
	c.CurrentBalance = c.Equity
	c.MaxEquity = c.Equity
	require.NoError(t, j.SaveChallenge(ctx, c))
	require.NoError(t, j.Close())

	db, err := sql.Open("sqlite3", path)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	var equity, typ string
	require.NoError(t, db.QueryRow(`SELECT equity, typeof(equity) FROM challenges WHERE id = ?`, c.ID).Scan(&equity, &typ))
	assert.Equal(t, "10000.10000001", equity)
	assert.Equal(t, "text", typ)
}

func TestSQLiteReopenKeepsData(t *testing.T) {
	t.Parallel()

	j, path := newTestSQLite(t)
	ctx := context.Background()

	c := newChallenge(t)
	require.NoError(t, j.CommitTrade(ctx, newTrade(c, 1, t0, "5"), c))
	require.NoError(t, j.Close())

	again, err := NewSQLite(path)
	require.NoError(t, err)
	t.Cleanup(func() { _ = again.Close() })

	got, err := again.LoadChallenge(ctx, c.ID)
	require.NoError(t, err)
	assertSameChallenge(t, c, got)

	trades, err := again.ListTrades(ctx, c.ID)
	require.NoError(t, err)
	assert.Len(t, trades, 1)
}

func TestSQLiteAuditTrail(t *testing.T) {
	t.Parallel()

	j, _ := newTestSQLite(t)
	ctx := context.Background()

	require.NoError(t, j.RecordAudit(ctx, AuditEvent{ID: "a2", UserID: "u", ChallengeID: "c1", Action: ActionStatusChange, Details: "ACTIVE->PASSED", Time: t0.Add(1)}))
	require.NoError(t, j.RecordAudit(ctx, AuditEvent{ID: "a1", UserID: "u", ChallengeID: "c1", Action: ActionTradeExecute, Details: "{}", Time: t0}))
	require.NoError(t, j.RecordAudit(ctx, AuditEvent{ID: "b1", UserID: "u", ChallengeID: "c2", Action: ActionTradeExecute, Details: "{}", Time: t0}))

	got, err := j.ListAudit(ctx, "c1")
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "a1", got[0].ID)
	assert.Equal(t, ActionStatusChange, got[1].Action)
	assert.True(t, got[0].Time.Equal(t0))
}
