package cmd

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/rustyeddy/propfirm/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// run executes the root command with fresh flag state and returns stdout.
func run(t *testing.T, args ...string) (string, error) {
	t.Helper()

	cfgFile = ""
	createUser, createPlan, createPending = "", "STARTER", false
	tradesCSV = ""

	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetArgs(args)
	err := rootCmd.Execute()
	return out.String(), err
}

func sqliteConfig(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()

	cfg := config.Default()
	cfg.Storage.Driver = "sqlite"
	cfg.Storage.Path = filepath.Join(dir, "propfirm.db")
	path := filepath.Join(dir, "propfirm.yaml")
	require.NoError(t, cfg.SaveToFile(path))
	return path
}

func TestVersion(t *testing.T) {
	out, err := run(t, "version")
	require.NoError(t, err)
	assert.Contains(t, out, "propfirm version "+version)
}

func TestConfigInitAndValidate(t *testing.T) {
	path := filepath.Join(t.TempDir(), "pf.yaml")

	out, err := run(t, "config", "init", "-o", path)
	require.NoError(t, err)
	assert.Contains(t, out, "Created default configuration")

	out, err = run(t, "config", "validate", "-f", path)
	require.NoError(t, err)
	assert.Contains(t, out, "Storage: sqlite")
	assert.Contains(t, out, "[ELITE PRO STARTER]")
}

func TestChallengeLifecycleAgainstSQLite(t *testing.T) {
	cfg := sqliteConfig(t)

	out, err := run(t, "--config", cfg, "challenge", "create", "--user", "u-1", "--plan", "pro")
	require.NoError(t, err)
	line := strings.Fields(strings.SplitN(out, "\n", 2)[0])
	require.Len(t, line, 4, out)
	id := line[3]

	// Each command is a new process view: state is re-hydrated from SQLite.
	out, err = run(t, "--config", cfg, "trade", id, "BTC-USD", "buy", "0.01")
	require.NoError(t, err)
	assert.Contains(t, out, "BUY 0.01 BTC-USD @ 65000.00")

	out, err = run(t, "--config", cfg, "trade", id, "ETH-USD", "SELL", "0.5")
	require.NoError(t, err)
	assert.Contains(t, out, "Status: ACTIVE")

	out, err = run(t, "--config", cfg, "trades", id, "--csv", "-")
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(out), "\n")
	assert.Len(t, lines, 3)
	assert.True(t, strings.HasPrefix(lines[0], "id,challenge_id"), lines[0])

	out, err = run(t, "--config", cfg, "challenge", "verify", id)
	require.NoError(t, err)
	assert.Contains(t, out, "✓ Ledger matches")

	out, err = run(t, "--config", cfg, "challenge", "show", id)
	require.NoError(t, err)
	assert.Contains(t, out, "Plan:     PRO")
}

func TestTradeRejected(t *testing.T) {
	cfg := sqliteConfig(t)

	out, err := run(t, "--config", cfg, "challenge", "create", "--user", "u-2", "--pending")
	require.NoError(t, err)
	id := strings.Fields(strings.SplitN(out, "\n", 2)[0])[3]

	_, err = run(t, "--config", cfg, "trade", id, "BTC-USD", "BUY", "0.01")
	assert.ErrorContains(t, err, "CHALLENGE_NOT_ACTIVE")

	_, err = run(t, "--config", cfg, "challenge", "activate", id)
	require.NoError(t, err)

	_, err = run(t, "--config", cfg, "trade", id, "BTC-USD", "BUY", "1")
	assert.ErrorContains(t, err, "INSUFFICIENT_EQUITY")
}

func TestNewResolverReplaysQuotesFile(t *testing.T) {
	dir := t.TempDir()
	ticks := filepath.Join(dir, "ticks.csv")
	require.NoError(t, os.WriteFile(ticks, []byte("time,symbol,price\n2026-01-24T09:30:00Z,SOL-USD,150\n"), 0o644))

	cfg := config.Default()
	cfg.Pricing.QuotesFile = ticks
	r, err := newResolver(cfg)
	require.NoError(t, err)

	p, err := r.Resolve(context.Background(), "sol-usd")
	require.NoError(t, err)
	assert.Equal(t, "150", p.String())

	p, err = r.Resolve(context.Background(), "BTC-USD")
	require.NoError(t, err)
	assert.Equal(t, "65000", p.String())

	cfg.Pricing.QuotesFile = filepath.Join(dir, "missing.csv")
	_, err = newResolver(cfg)
	assert.ErrorContains(t, err, "pricing.quotes_file")
}

func TestOpenStore(t *testing.T) {
	cfg := config.Default()
	cfg.Storage.Driver = "memory"
	s, err := openStore(context.Background(), cfg)
	require.NoError(t, err)
	require.NoError(t, s.Close())

	cfg.Storage.Driver = "sqlite"
	cfg.Storage.Path = filepath.Join(t.TempDir(), "pf.db")
	s, err = openStore(context.Background(), cfg)
	require.NoError(t, err)
	require.NoError(t, s.Close())

	cfg.Storage.Driver = "oracle"
	_, err = openStore(context.Background(), cfg)
	assert.Error(t, err)
}
