// journal/schema.go
package journal

// Schema is applied on every SQLite open. Money is TEXT so decimals come
// back exactly as written; times are fixed-width UTC text so they sort.
const Schema = `
CREATE TABLE IF NOT EXISTS challenges (
	id TEXT PRIMARY KEY,
	user_id TEXT NOT NULL,
	plan TEXT NOT NULL,
	status TEXT NOT NULL,
	initial_balance TEXT NOT NULL,
	current_balance TEXT NOT NULL,
	equity TEXT NOT NULL,
	max_equity TEXT NOT NULL,
	daily_starting_balance TEXT NOT NULL,
	daily_date TEXT NOT NULL,
	profit_target TEXT NOT NULL,
	max_daily_loss_limit TEXT NOT NULL,
	max_total_loss_limit TEXT NOT NULL,
	created_at TEXT NOT NULL,
	updated_at TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS trades (
	id TEXT PRIMARY KEY,
	challenge_id TEXT NOT NULL,
	symbol TEXT NOT NULL,
	side TEXT NOT NULL,
	entry_price TEXT NOT NULL,
	exit_price TEXT NOT NULL,
	size TEXT NOT NULL,
	pnl TEXT NOT NULL,
	status TEXT NOT NULL,
	opened_at TEXT NOT NULL,
	closed_at TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_trades_challenge ON trades(challenge_id, opened_at, id);

CREATE TABLE IF NOT EXISTS audit_log (
	id TEXT PRIMARY KEY,
	user_id TEXT NOT NULL,
	challenge_id TEXT NOT NULL,
	action TEXT NOT NULL,
	details TEXT NOT NULL,
	created_at TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_audit_challenge ON audit_log(challenge_id, created_at);
`

// timeLayout is fixed width so that text comparison matches time order.
const timeLayout = "2006-01-02T15:04:05.000000000Z"
