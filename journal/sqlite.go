package journal

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/mattn/go-sqlite3"
	"github.com/rustyeddy/propfirm/challenge"
)

type SQLite struct {
	db *sql.DB
}

var (
	_ Store     = (*SQLite)(nil)
	_ Committer = (*SQLite)(nil)
)

// NewSQLite opens (or creates) the database at path and applies Schema.
func NewSQLite(path string) (*SQLite, error) {
	db, err := sql.Open("sqlite3", path+"?_busy_timeout=5000&_journal_mode=WAL")
	if err != nil {
		return nil, err
	}

	if _, err := db.Exec(Schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("apply schema: %w", err)
	}

	return &SQLite{db: db}, nil
}

// execer is satisfied by both *sql.DB and *sql.Tx.
type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

const upsertChallenge = `
	INSERT INTO challenges
	(id, user_id, plan, status, initial_balance, current_balance, equity, max_equity,
	 daily_starting_balance, daily_date, profit_target, max_daily_loss_limit, max_total_loss_limit,
	 created_at, updated_at)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	ON CONFLICT(id) DO UPDATE SET
		user_id = excluded.user_id,
		plan = excluded.plan,
		status = excluded.status,
		initial_balance = excluded.initial_balance,
		current_balance = excluded.current_balance,
		equity = excluded.equity,
		max_equity = excluded.max_equity,
		daily_starting_balance = excluded.daily_starting_balance,
		daily_date = excluded.daily_date,
		profit_target = excluded.profit_target,
		max_daily_loss_limit = excluded.max_daily_loss_limit,
		max_total_loss_limit = excluded.max_total_loss_limit,
		updated_at = excluded.updated_at`

func saveChallenge(ctx context.Context, x execer, c challenge.Challenge) error {
	_, err := x.ExecContext(ctx, upsertChallenge,
		c.ID, c.UserID, c.Plan, string(c.Status),
		c.InitialBalance.String(), c.CurrentBalance.String(), c.Equity.String(), c.MaxEquity.String(),
		c.DailyStartingBalance.String(), c.DailyDate,
		c.ProfitTarget.String(), c.MaxDailyLossLimit.String(), c.MaxTotalLossLimit.String(),
		fmtTime(c.CreatedAt), fmtTime(c.UpdatedAt),
	)
	if err != nil {
		return fmt.Errorf("save challenge %q: %w", c.ID, err)
	}
	return nil
}

func appendTrade(ctx context.Context, x execer, t challenge.Trade) error {
	_, err := x.ExecContext(ctx, `
		INSERT INTO trades
		(id, challenge_id, symbol, side, entry_price, exit_price, size, pnl, status, opened_at, closed_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		t.ID, t.ChallengeID, t.Symbol, string(t.Side),
		t.EntryPrice.String(), t.ExitPrice.String(), t.Size.String(), t.PnL.String(),
		string(t.Status), fmtTime(t.OpenedAt), fmtTime(t.ClosedAt),
	)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("trade %q: %w", t.ID, ErrDuplicateKey)
		}
		return fmt.Errorf("append trade %q: %w", t.ID, err)
	}
	return nil
}

func (j *SQLite) SaveChallenge(ctx context.Context, c challenge.Challenge) error {
	return saveChallenge(ctx, j.db, c)
}

func (j *SQLite) AppendTrade(ctx context.Context, t challenge.Trade) error {
	return appendTrade(ctx, j.db, t)
}

// CommitTrade appends t and saves c in one transaction.
func (j *SQLite) CommitTrade(ctx context.Context, t challenge.Trade, c challenge.Challenge) error {
	tx, err := j.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	if err := appendTrade(ctx, tx, t); err != nil {
		return err
	}
	if err := saveChallenge(ctx, tx, c); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}

func (j *SQLite) RecordAudit(ctx context.Context, e AuditEvent) error {
	_, err := j.db.ExecContext(ctx, `
		INSERT INTO audit_log (id, user_id, challenge_id, action, details, created_at)
		VALUES (?, ?, ?, ?, ?, ?)`,
		e.ID, e.UserID, e.ChallengeID, string(e.Action), e.Details, fmtTime(e.Time),
	)
	if err != nil {
		return fmt.Errorf("record audit %s: %w", e.Action, err)
	}
	return nil
}

func (j *SQLite) Close() error {
	return j.db.Close()
}

func isUniqueViolation(err error) bool {
	var se sqlite3.Error
	if errors.As(err, &se) {
		return se.ExtendedCode == sqlite3.ErrConstraintPrimaryKey ||
			se.ExtendedCode == sqlite3.ErrConstraintUnique
	}
	return false
}

func fmtTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func parseTime(s string) (time.Time, error) {
	return time.Parse(timeLayout, s)
}
