// Package sqlite stores reminders in an embedded SQLite database. It can be
// selected instead of the JSON file as the fallback for the document store.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"wellness/pkg/reminders"
)

const busyTimeoutMs = 2000

const columns = `id, owner, text, time_of_day, priority, repeat_rule, category,
	next_occurrence, active, completed, created_at, updated_at`

// Store is a reminders.Store backed by SQLite.
type Store struct {
	db    *sql.DB
	clock clock.Clock
}

// Option configures a Store.
type Option func(*Store)

// WithClock sets the clock used for timestamps.
func WithClock(c clock.Clock) Option {
	return func(s *Store) { s.clock = c }
}

// Open connects to the database file and ensures the table exists.
func Open(file string, opts ...Option) (*Store, error) {
	db, err := sql.Open("sqlite", connectionString(file))
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if err := ensureTable(db); err != nil {
		db.Close()
		return nil, err
	}

	s := &Store{
		db:    db,
		clock: clock.New(),
	}
	for _, o := range opts {
		o(s)
	}
	return s, nil
}

func connectionString(file string) string {
	qs := url.Values{
		"_txlock": []string{"immediate"},
		"_pragma": []string{
			"journal_mode(WAL)",
			fmt.Sprintf("busy_timeout(%d)", busyTimeoutMs),
		},
	}

	return "file:" + file + "?" + qs.Encode()
}

func ensureTable(db *sql.DB) error {
	_, err := db.ExecContext(context.TODO(),
		`CREATE TABLE IF NOT EXISTS reminders (
			id TEXT NOT NULL PRIMARY KEY,
			owner TEXT NOT NULL,
			text TEXT NOT NULL,
			time_of_day TEXT NOT NULL,
			priority TEXT NOT NULL DEFAULT 'medium',
			repeat_rule TEXT NOT NULL DEFAULT 'none',
			category TEXT NOT NULL DEFAULT 'general',
			next_occurrence INTEGER NOT NULL,
			active INTEGER NOT NULL DEFAULT 1,
			completed INTEGER NOT NULL DEFAULT 0,
			created_at INTEGER NOT NULL,
			updated_at INTEGER NOT NULL
		) WITHOUT ROWID;

		CREATE INDEX IF NOT EXISTS owner_active_next_idx ON reminders (owner, active, next_occurrence ASC);
		CREATE INDEX IF NOT EXISTS next_occurrence_idx ON reminders (next_occurrence ASC);
		`,
	)
	if err != nil {
		return fmt.Errorf("failed to create table: %w", err)
	}
	return nil
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) Name() string {
	return "sqlite"
}

func (s *Store) Create(ctx context.Context, r *reminders.Reminder) (*reminders.Reminder, error) {
	now := s.now()
	rem := *r
	rem.ID = uuid.NewString()
	rem.CreatedAt = now
	rem.UpdatedAt = now

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO reminders (`+columns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		rem.ID, rem.Owner, rem.Text, rem.TimeOfDay, string(rem.Priority), string(rem.Repeat), rem.Category,
		rem.NextOccurrence.UnixMilli(), rem.Active, rem.Completed,
		rem.CreatedAt.UnixMilli(), rem.UpdatedAt.UnixMilli(),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to insert reminder: %w", err)
	}
	return &rem, nil
}

func (s *Store) Get(ctx context.Context, id string) (*reminders.Reminder, error) {
	return getReminder(ctx, s.db, id)
}

// Update reads, patches and writes the row inside one immediate transaction.
func (s *Store) Update(ctx context.Context, id string, p reminders.Patch) (*reminders.Reminder, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	rem, err := getReminder(ctx, tx, id)
	if err != nil {
		return nil, err
	}
	p.Apply(rem)
	rem.UpdatedAt = s.now()
	if err := writeReminder(ctx, tx, rem); err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit: %w", err)
	}
	return rem, nil
}

func (s *Store) Replace(ctx context.Context, r *reminders.Reminder) (*reminders.Reminder, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	existing, err := getReminder(ctx, tx, r.ID)
	if err != nil {
		return nil, err
	}
	rem := *r
	rem.CreatedAt = existing.CreatedAt
	rem.UpdatedAt = s.now()
	if err := writeReminder(ctx, tx, &rem); err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit: %w", err)
	}
	return &rem, nil
}

func (s *Store) Delete(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM reminders WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete reminder: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to delete reminder: %w", err)
	}
	if n == 0 {
		return reminders.ErrNotFound
	}
	return nil
}

func (s *Store) List(ctx context.Context, q reminders.Query) ([]reminders.Reminder, error) {
	where, args := whereClause(q)
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+columns+` FROM reminders`+where+
			` ORDER BY next_occurrence ASC, created_at ASC, id ASC`,
		args...,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list reminders: %w", err)
	}
	defer rows.Close()

	res := []reminders.Reminder{}
	for rows.Next() {
		rem, err := scanReminder(rows)
		if err != nil {
			return nil, err
		}
		res = append(res, *rem)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to list reminders: %w", err)
	}
	return res, nil
}

func (s *Store) now() time.Time {
	return s.clock.Now().Truncate(time.Millisecond)
}

func whereClause(q reminders.Query) (string, []any) {
	var (
		conds []string
		args  []any
	)
	if q.Owner != "" {
		conds = append(conds, "owner = ?")
		args = append(args, q.Owner)
	}
	if q.Active != nil {
		conds = append(conds, "active = ?")
		args = append(args, *q.Active)
	}
	if q.Category != "" {
		conds = append(conds, "category = ?")
		args = append(args, q.Category)
	}
	if !q.From.IsZero() {
		conds = append(conds, "next_occurrence >= ?")
		args = append(args, q.From.UnixMilli())
	}
	if !q.To.IsZero() {
		conds = append(conds, "next_occurrence <= ?")
		args = append(args, q.To.UnixMilli())
	}
	if len(conds) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(conds, " AND "), args
}

type queryer interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

type scanner interface {
	Scan(dest ...any) error
}

func getReminder(ctx context.Context, db queryer, id string) (*reminders.Reminder, error) {
	row := db.QueryRowContext(ctx, `SELECT `+columns+` FROM reminders WHERE id = ?`, id)
	rem, err := scanReminder(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, reminders.ErrNotFound
	}
	return rem, err
}

func writeReminder(ctx context.Context, db queryer, r *reminders.Reminder) error {
	res, err := db.ExecContext(ctx,
		`UPDATE reminders SET text = ?, time_of_day = ?, priority = ?, repeat_rule = ?, category = ?,
			next_occurrence = ?, active = ?, completed = ?, updated_at = ?
		WHERE id = ?`,
		r.Text, r.TimeOfDay, string(r.Priority), string(r.Repeat), r.Category,
		r.NextOccurrence.UnixMilli(), r.Active, r.Completed, r.UpdatedAt.UnixMilli(),
		r.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update reminder: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return reminders.ErrNotFound
	}
	return nil
}

func scanReminder(row scanner) (*reminders.Reminder, error) {
	var (
		rem                              reminders.Reminder
		priority, repeat                 string
		nextOccurrence, created, updated int64
	)
	err := row.Scan(&rem.ID, &rem.Owner, &rem.Text, &rem.TimeOfDay, &priority, &repeat, &rem.Category,
		&nextOccurrence, &rem.Active, &rem.Completed, &created, &updated)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to scan reminder: %w", err)
	}
	rem.Priority = reminders.Priority(priority)
	rem.Repeat = reminders.Repeat(repeat)
	rem.NextOccurrence = time.UnixMilli(nextOccurrence)
	rem.CreatedAt = time.UnixMilli(created)
	rem.UpdatedAt = time.UnixMilli(updated)
	return &rem, nil
}
