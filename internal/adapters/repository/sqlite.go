package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/okian/chatrank/internal/domain/model"
	"github.com/okian/chatrank/internal/domain/period"
	"github.com/okian/chatrank/pkg/logger"
	"github.com/okian/chatrank/pkg/metrics"
)

const schema = `
CREATE TABLE IF NOT EXISTS events (
	event_id   TEXT PRIMARY KEY,
	kind       TEXT NOT NULL,
	created_at TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS sales (
	event_id        TEXT PRIMARY KEY,
	team_id         TEXT NOT NULL DEFAULT '',
	worker_id       TEXT NOT NULL DEFAULT '',
	worker_name     TEXT NOT NULL DEFAULT '',
	date            TEXT NOT NULL,
	gross           REAL NOT NULL,
	commission_rate REAL NOT NULL,
	created_at      TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_sales_date ON sales(date, team_id);

CREATE TABLE IF NOT EXISTS hours (
	event_id    TEXT PRIMARY KEY,
	team_id     TEXT NOT NULL DEFAULT '',
	worker_id   TEXT NOT NULL DEFAULT '',
	worker_name TEXT NOT NULL DEFAULT '',
	date        TEXT NOT NULL,
	hours       REAL NOT NULL,
	hourly_rate REAL NOT NULL,
	created_at  TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_hours_date ON hours(date, team_id);

CREATE TABLE IF NOT EXISTS bonuses (
	event_id     TEXT PRIMARY KEY,
	team_id      TEXT NOT NULL DEFAULT '',
	worker_id    TEXT NOT NULL DEFAULT '',
	worker_name  TEXT NOT NULL DEFAULT '',
	period_start TEXT NOT NULL,
	amount       REAL NOT NULL,
	created_at   TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_bonuses_period ON bonuses(period_start, team_id);
`

// SQLiteStore persists events in a SQLite database, one table per kind.
// The events table claims each id once across all kinds.
type SQLiteStore struct {
	db           *sql.DB
	log          logger.Logger
	metrics      *metrics.Manager
	maxOpenConns int

	closeOnce sync.Once
}

var _ Store = (*SQLiteStore)(nil)

// NewSQLiteStore opens (creating if needed) the database at path and
// migrates the schema.
func NewSQLiteStore(path string, opts ...Option) (*SQLiteStore, error) {
	s := &SQLiteStore{maxOpenConns: 4}
	for _, opt := range opts {
		opt(s)
	}
	if s.log == nil {
		s.log = logger.Nop()
	}

	db, err := sql.Open("sqlite3", dsn(path))
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	db.SetMaxOpenConns(s.maxOpenConns)
	s.db = db

	if err := s.migrate(context.Background()); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("migrate database: %w", err)
	}
	if s.metrics != nil {
		if err := s.metrics.Register(collectors.NewDBStatsCollector(db, "chatrank")); err != nil {
			s.log.Warn(context.Background(), "db stats collector not registered", logger.Error(err))
		}
	}
	s.log.Info(context.Background(), "sqlite store opened", logger.String("path", path))
	return s, nil
}

// dsn appends the connection pragmas to path, which may already be a
// file: URI carrying its own query.
func dsn(path string) string {
	sep := "?"
	if strings.Contains(path, "?") {
		sep = "&"
	}
	return path + sep + "_journal_mode=WAL&_busy_timeout=5000"
}

func (s *SQLiteStore) migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, schema)
	return err
}

// Record inserts e into the table of its kind. An event id already
// recorded under any kind is ignored and the first copy kept.
func (s *SQLiteStore) Record(ctx context.Context, e model.Event) error {
	if err := e.Validate(); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidEvent, err)
	}

	now := time.Now().UTC().Format(time.RFC3339)
	day := period.FormatDate(period.Day(e.Date))

	var (
		query string
		args  []any
	)
	switch e.Kind {
	case model.KindSale:
		query = `INSERT OR IGNORE INTO sales
			(event_id, team_id, worker_id, worker_name, date, gross, commission_rate, created_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?)`
		args = []any{e.EventID, e.TeamID, e.Worker.ID, e.Worker.Name, day, e.Amount, e.Rate, now}
	case model.KindHours:
		query = `INSERT OR IGNORE INTO hours
			(event_id, team_id, worker_id, worker_name, date, hours, hourly_rate, created_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?)`
		args = []any{e.EventID, e.TeamID, e.Worker.ID, e.Worker.Name, day, e.Amount, e.Rate, now}
	case model.KindBonus:
		query = `INSERT OR IGNORE INTO bonuses
			(event_id, team_id, worker_id, worker_name, period_start, amount, created_at)
			VALUES (?, ?, ?, ?, ?, ?, ?)`
		args = []any{e.EventID, e.TeamID, e.Worker.ID, e.Worker.Name, day, e.Amount, now}
	}

	op := "record " + e.Kind.String()
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return s.wrap(op, err)
	}
	defer func() { _ = tx.Rollback() }()

	res, err := tx.ExecContext(ctx,
		`INSERT OR IGNORE INTO events (event_id, kind, created_at) VALUES (?, ?, ?)`,
		e.EventID, e.Kind.String(), now)
	if err != nil {
		return s.wrap(op, err)
	}
	claimed, err := res.RowsAffected()
	if err != nil {
		return s.wrap(op, err)
	}
	if claimed == 0 {
		s.log.Debug(ctx, "duplicate event id ignored", logger.String("event_id", e.EventID), logger.String("kind", e.Kind.String()))
		return nil
	}
	if _, err := tx.ExecContext(ctx, query, args...); err != nil {
		return s.wrap(op, err)
	}
	if err := tx.Commit(); err != nil {
		return s.wrap(op, err)
	}
	return nil
}

func (s *SQLiteStore) FetchSales(ctx context.Context, p period.Period, teamID string) ([]model.Sale, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT event_id, team_id, worker_id, worker_name, date, gross, commission_rate
		FROM sales
		WHERE date BETWEEN ? AND ? AND (? = '' OR team_id = ?)
		ORDER BY date, event_id`,
		period.FormatDate(p.Start), period.FormatDate(p.End), teamID, teamID)
	if err != nil {
		return nil, s.wrap("fetch sales", err)
	}
	defer rows.Close()

	var out []model.Sale
	for rows.Next() {
		var (
			r    model.Sale
			date string
		)
		if err := rows.Scan(&r.EventID, &r.TeamID, &r.Worker.ID, &r.Worker.Name, &date, &r.Gross, &r.CommissionRate); err != nil {
			return nil, fmt.Errorf("scan sale: %w", err)
		}
		if r.Date, err = period.ParseDate(date); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, s.wrap("fetch sales", err)
	}
	return out, nil
}

func (s *SQLiteStore) FetchHours(ctx context.Context, p period.Period, teamID string) ([]model.Hours, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT event_id, team_id, worker_id, worker_name, date, hours, hourly_rate
		FROM hours
		WHERE date BETWEEN ? AND ? AND (? = '' OR team_id = ?)
		ORDER BY date, event_id`,
		period.FormatDate(p.Start), period.FormatDate(p.End), teamID, teamID)
	if err != nil {
		return nil, s.wrap("fetch hours", err)
	}
	defer rows.Close()

	var out []model.Hours
	for rows.Next() {
		var (
			r    model.Hours
			date string
		)
		if err := rows.Scan(&r.EventID, &r.TeamID, &r.Worker.ID, &r.Worker.Name, &date, &r.Hours, &r.HourlyRate); err != nil {
			return nil, fmt.Errorf("scan hours: %w", err)
		}
		if r.Date, err = period.ParseDate(date); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, s.wrap("fetch hours", err)
	}
	return out, nil
}

func (s *SQLiteStore) FetchBonuses(ctx context.Context, periodStart time.Time, teamID string) ([]model.Bonus, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT event_id, team_id, worker_id, worker_name, period_start, amount
		FROM bonuses
		WHERE period_start = ? AND (? = '' OR team_id = ?)
		ORDER BY event_id`,
		period.FormatDate(period.Day(periodStart)), teamID, teamID)
	if err != nil {
		return nil, s.wrap("fetch bonuses", err)
	}
	defer rows.Close()

	var out []model.Bonus
	for rows.Next() {
		var (
			r     model.Bonus
			start string
		)
		if err := rows.Scan(&r.EventID, &r.TeamID, &r.Worker.ID, &r.Worker.Name, &start, &r.Amount); err != nil {
			return nil, fmt.Errorf("scan bonus: %w", err)
		}
		if r.PeriodStart, err = period.ParseDate(start); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, s.wrap("fetch bonuses", err)
	}
	return out, nil
}

func (s *SQLiteStore) Count(ctx context.Context) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM events`).Scan(&n)
	if err != nil {
		return 0, s.wrap("count", err)
	}
	return n, nil
}

// Close closes the database. Later calls return ErrClosed from every
// operation.
func (s *SQLiteStore) Close() error {
	var err error
	s.closeOnce.Do(func() {
		err = s.db.Close()
	})
	return err
}

// wrap maps database/sql's closed error onto ErrClosed.
func (s *SQLiteStore) wrap(op string, err error) error {
	if errors.Is(err, sql.ErrConnDone) || err.Error() == "sql: database is closed" {
		return fmt.Errorf("%s: %w", op, ErrClosed)
	}
	return fmt.Errorf("%s: %w", op, err)
}
