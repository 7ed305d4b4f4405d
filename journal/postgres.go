package journal

import (
	"context"
	_ "embed"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rustyeddy/propfirm/challenge"
	"github.com/shopspring/decimal"
)

// PostgresSchema is applied by NewPostgres.
//
//go:embed postgres.sql
var PostgresSchema string

// Postgres stores money as NUMERIC and reads it back as text so that no
// float conversion happens on the way out.
type Postgres struct {
	pool *pgxpool.Pool
}

var (
	_ Store     = (*Postgres)(nil)
	_ Committer = (*Postgres)(nil)
)

// NewPostgres connects to dsn, pings it and applies PostgresSchema.
func NewPostgres(ctx context.Context, dsn string) (*Postgres, error) {
	config, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("parse postgres dsn: %w", err)
	}

	pool, err := pgxpool.NewWithConfig(ctx, config)
	if err != nil {
		return nil, fmt.Errorf("connect to postgres: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}

	if _, err := pool.Exec(ctx, PostgresSchema); err != nil {
		pool.Close()
		return nil, fmt.Errorf("apply schema: %w", err)
	}

	return &Postgres{pool: pool}, nil
}

const pgErrUniqueViolation = "23505"

func isDuplicateKeyError(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == pgErrUniqueViolation
	}
	return false
}

// pgExecer is satisfied by both *pgxpool.Pool and pgx.Tx.
type pgExecer interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

func pgSaveChallenge(ctx context.Context, x pgExecer, c challenge.Challenge) error {
	_, err := x.Exec(ctx, `
		INSERT INTO challenges (
			id, user_id, plan, status,
			initial_balance, current_balance, equity, max_equity,
			daily_starting_balance, daily_date,
			profit_target, max_daily_loss_limit, max_total_loss_limit,
			created_at, updated_at
		) VALUES (
			$1, $2, $3, $4,
			$5::numeric, $6::numeric, $7::numeric, $8::numeric,
			$9::numeric, $10,
			$11::numeric, $12::numeric, $13::numeric,
			$14, $15
		)
		ON CONFLICT (id) DO UPDATE SET
			user_id = EXCLUDED.user_id,
			plan = EXCLUDED.plan,
			status = EXCLUDED.status,
			initial_balance = EXCLUDED.initial_balance,
			current_balance = EXCLUDED.current_balance,
			equity = EXCLUDED.equity,
			max_equity = EXCLUDED.max_equity,
			daily_starting_balance = EXCLUDED.daily_starting_balance,
			daily_date = EXCLUDED.daily_date,
			profit_target = EXCLUDED.profit_target,
			max_daily_loss_limit = EXCLUDED.max_daily_loss_limit,
			max_total_loss_limit = EXCLUDED.max_total_loss_limit,
			updated_at = EXCLUDED.updated_at
	`,
		c.ID, c.UserID, c.Plan, string(c.Status),
		c.InitialBalance.String(), c.CurrentBalance.String(), c.Equity.String(), c.MaxEquity.String(),
		c.DailyStartingBalance.String(), c.DailyDate,
		c.ProfitTarget.String(), c.MaxDailyLossLimit.String(), c.MaxTotalLossLimit.String(),
		c.CreatedAt.UTC(), c.UpdatedAt.UTC(),
	)
	if err != nil {
		return fmt.Errorf("save challenge %q: %w", c.ID, err)
	}
	return nil
}

func pgAppendTrade(ctx context.Context, x pgExecer, t challenge.Trade) error {
	_, err := x.Exec(ctx, `
		INSERT INTO trades (
			id, challenge_id, symbol, side,
			entry_price, exit_price, size, pnl,
			status, opened_at, closed_at
		) VALUES (
			$1, $2, $3, $4,
			$5::numeric, $6::numeric, $7::numeric, $8::numeric,
			$9, $10, $11
		)
	`,
		t.ID, t.ChallengeID, t.Symbol, string(t.Side),
		t.EntryPrice.String(), t.ExitPrice.String(), t.Size.String(), t.PnL.String(),
		string(t.Status), t.OpenedAt.UTC(), t.ClosedAt.UTC(),
	)
	if err != nil {
		if isDuplicateKeyError(err) {
			return fmt.Errorf("trade %q: %w", t.ID, ErrDuplicateKey)
		}
		return fmt.Errorf("insert trade %q: %w", t.ID, err)
	}
	return nil
}

func (p *Postgres) SaveChallenge(ctx context.Context, c challenge.Challenge) error {
	return pgSaveChallenge(ctx, p.pool, c)
}

func (p *Postgres) AppendTrade(ctx context.Context, t challenge.Trade) error {
	return pgAppendTrade(ctx, p.pool, t)
}

// CommitTrade inserts t and upserts c atomically.
func (p *Postgres) CommitTrade(ctx context.Context, t challenge.Trade, c challenge.Challenge) error {
	tx, err := p.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	if err := pgAppendTrade(ctx, tx, t); err != nil {
		return err
	}
	if err := pgSaveChallenge(ctx, tx, c); err != nil {
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}

func (p *Postgres) LoadChallenge(ctx context.Context, id string) (challenge.Challenge, error) {
	var (
		c      challenge.Challenge
		status string
		money  [8]string
	)
	err := p.pool.QueryRow(ctx, `
		SELECT id, user_id, plan, status,
		       initial_balance::text, current_balance::text, equity::text, max_equity::text,
		       daily_starting_balance::text, daily_date,
		       profit_target::text, max_daily_loss_limit::text, max_total_loss_limit::text,
		       created_at, updated_at
		FROM challenges
		WHERE id = $1
	`, id).Scan(
		&c.ID, &c.UserID, &c.Plan, &status,
		&money[0], &money[1], &money[2], &money[3],
		&money[4], &c.DailyDate,
		&money[5], &money[6], &money[7],
		&c.CreatedAt, &c.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return challenge.Challenge{}, fmt.Errorf("challenge %q: %w", id, ErrNotFound)
		}
		return challenge.Challenge{}, fmt.Errorf("load challenge %q: %w", id, err)
	}

	c.Status = challenge.Status(status)
	c.CreatedAt = c.CreatedAt.UTC()
	c.UpdatedAt = c.UpdatedAt.UTC()
	dst := []*decimal.Decimal{
		&c.InitialBalance, &c.CurrentBalance, &c.Equity, &c.MaxEquity, &c.DailyStartingBalance,
		&c.ProfitTarget, &c.MaxDailyLossLimit, &c.MaxTotalLossLimit,
	}
	for i, d := range dst {
		if *d, err = decimal.NewFromString(money[i]); err != nil {
			return challenge.Challenge{}, fmt.Errorf("load challenge %q: %w", id, err)
		}
	}
	return c, nil
}

func (p *Postgres) ListTrades(ctx context.Context, challengeID string) ([]challenge.Trade, error) {
	rows, err := p.pool.Query(ctx, `
		SELECT id, challenge_id, symbol, side,
		       entry_price::text, exit_price::text, size::text, pnl::text,
		       status, opened_at, closed_at
		FROM trades
		WHERE challenge_id = $1
		ORDER BY opened_at ASC, id ASC
	`, challengeID)
	if err != nil {
		return nil, fmt.Errorf("query trades: %w", err)
	}
	defer rows.Close()

	var out []challenge.Trade
	for rows.Next() {
		var (
			t            challenge.Trade
			side, status string
			money        [4]string
		)
		if err := rows.Scan(
			&t.ID, &t.ChallengeID, &t.Symbol, &side,
			&money[0], &money[1], &money[2], &money[3],
			&status, &t.OpenedAt, &t.ClosedAt,
		); err != nil {
			return nil, fmt.Errorf("scan trade: %w", err)
		}
		t.Side = challenge.Side(side)
		t.Status = challenge.TradeStatus(status)
		t.OpenedAt = t.OpenedAt.UTC()
		t.ClosedAt = t.ClosedAt.UTC()
		for i, d := range []*decimal.Decimal{&t.EntryPrice, &t.ExitPrice, &t.Size, &t.PnL} {
			if *d, err = decimal.NewFromString(money[i]); err != nil {
				return nil, fmt.Errorf("trade %q: %w", t.ID, err)
			}
		}
		out = append(out, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate trades: %w", err)
	}
	return out, nil
}

func (p *Postgres) RecordAudit(ctx context.Context, e AuditEvent) error {
	_, err := p.pool.Exec(ctx, `
		INSERT INTO audit_log (id, user_id, challenge_id, action, details, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, e.ID, e.UserID, e.ChallengeID, string(e.Action), e.Details, e.Time.UTC())
	if err != nil {
		return fmt.Errorf("record audit %s: %w", e.Action, err)
	}
	return nil
}

func (p *Postgres) Close() error {
	p.pool.Close()
	return nil
}
