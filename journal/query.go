package journal

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/rustyeddy/propfirm/challenge"
	"github.com/shopspring/decimal"
)

// LoadChallenge returns a single challenge by id.
func (j *SQLite) LoadChallenge(ctx context.Context, id string) (challenge.Challenge, error) {
	row := j.db.QueryRowContext(ctx, `
		SELECT id, user_id, plan, status, initial_balance, current_balance, equity, max_equity,
		       daily_starting_balance, daily_date, profit_target, max_daily_loss_limit,
		       max_total_loss_limit, created_at, updated_at
		FROM challenges
		WHERE id = ?`, id)

	var (
		c       challenge.Challenge
		status  string
		money   [8]string
		created string
		updated string
	)
	err := row.Scan(
		&c.ID, &c.UserID, &c.Plan, &status,
		&money[0], &money[1], &money[2], &money[3], &money[4],
		&c.DailyDate,
		&money[5], &money[6], &money[7],
		&created, &updated,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return challenge.Challenge{}, fmt.Errorf("challenge %q: %w", id, ErrNotFound)
		}
		return challenge.Challenge{}, fmt.Errorf("load challenge %q: %w", id, err)
	}

	c.Status = challenge.Status(status)
	dst := []*decimal.Decimal{
		&c.InitialBalance, &c.CurrentBalance, &c.Equity, &c.MaxEquity, &c.DailyStartingBalance,
		&c.ProfitTarget, &c.MaxDailyLossLimit, &c.MaxTotalLossLimit,
	}
	for i, d := range dst {
		if *d, err = decimal.NewFromString(money[i]); err != nil {
			return challenge.Challenge{}, fmt.Errorf("load challenge %q: %w", id, err)
		}
	}
	if c.CreatedAt, err = parseTime(created); err != nil {
		return challenge.Challenge{}, fmt.Errorf("load challenge %q: %w", id, err)
	}
	if c.UpdatedAt, err = parseTime(updated); err != nil {
		return challenge.Challenge{}, fmt.Errorf("load challenge %q: %w", id, err)
	}
	return c, nil
}

// ListTrades returns the trades of one challenge, oldest first.
func (j *SQLite) ListTrades(ctx context.Context, challengeID string) ([]challenge.Trade, error) {
	rows, err := j.db.QueryContext(ctx, `
		SELECT id, challenge_id, symbol, side, entry_price, exit_price, size, pnl, status, opened_at, closed_at
		FROM trades
		WHERE challenge_id = ?
		ORDER BY opened_at ASC, id ASC`, challengeID)
	if err != nil {
		return nil, fmt.Errorf("list trades %q: %w", challengeID, err)
	}
	defer rows.Close()

	var out []challenge.Trade
	for rows.Next() {
		var (
			t                      challenge.Trade
			side, status           string
			entry, exit, size, pnl string
			opened, closed         string
		)
		if err := rows.Scan(
			&t.ID, &t.ChallengeID, &t.Symbol, &side,
			&entry, &exit, &size, &pnl,
			&status, &opened, &closed,
		); err != nil {
			return nil, err
		}
		t.Side = challenge.Side(side)
		t.Status = challenge.TradeStatus(status)
		if t.EntryPrice, err = decimal.NewFromString(entry); err != nil {
			return nil, fmt.Errorf("trade %q: %w", t.ID, err)
		}
		if t.ExitPrice, err = decimal.NewFromString(exit); err != nil {
			return nil, fmt.Errorf("trade %q: %w", t.ID, err)
		}
		if t.Size, err = decimal.NewFromString(size); err != nil {
			return nil, fmt.Errorf("trade %q: %w", t.ID, err)
		}
		if t.PnL, err = decimal.NewFromString(pnl); err != nil {
			return nil, fmt.Errorf("trade %q: %w", t.ID, err)
		}
		if t.OpenedAt, err = parseTime(opened); err != nil {
			return nil, fmt.Errorf("trade %q: %w", t.ID, err)
		}
		if t.ClosedAt, err = parseTime(closed); err != nil {
			return nil, fmt.Errorf("trade %q: %w", t.ID, err)
		}
		out = append(out, t)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

// ListAudit returns the audit trail of one challenge in time order.
func (j *SQLite) ListAudit(ctx context.Context, challengeID string) ([]AuditEvent, error) {
	rows, err := j.db.QueryContext(ctx, `
		SELECT id, user_id, challenge_id, action, details, created_at
		FROM audit_log
		WHERE challenge_id = ?
		ORDER BY created_at ASC, id ASC`, challengeID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []AuditEvent
	for rows.Next() {
		var (
			e      AuditEvent
			action string
			at     string
		)
		if err := rows.Scan(&e.ID, &e.UserID, &e.ChallengeID, &action, &e.Details, &at); err != nil {
			return nil, err
		}
		e.Action = Action(action)
		if e.Time, err = parseTime(at); err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}
