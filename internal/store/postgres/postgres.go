// Package postgres is the PostgreSQL Store. Candidates and answers are
// kept as JSONB columns on their owning row.
package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/lib/pq"

	"meetgrid/internal/model"
	"meetgrid/internal/store"
)

const (
	pqUniqueViolation     = "23505"
	pqForeignKeyViolation = "23503"
)

var schema = []string{
	`CREATE TABLE IF NOT EXISTS events (
		id                 TEXT PRIMARY KEY,
		host_name          TEXT NOT NULL DEFAULT '',
		host_token_hash    TEXT NOT NULL,
		title              TEXT NOT NULL,
		description        TEXT NOT NULL DEFAULT '',
		duration           INTEGER NOT NULL,
		timezone           TEXT NOT NULL,
		candidates         JSONB NOT NULL DEFAULT '[]',
		status             TEXT NOT NULL DEFAULT 'planning',
		fixed_candidate_id TEXT NOT NULL DEFAULT '',
		expires_at         TIMESTAMPTZ NOT NULL,
		created_at         TIMESTAMPTZ NOT NULL,
		updated_at         TIMESTAMPTZ NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS events_expires_at_idx ON events (expires_at)`,
	`CREATE TABLE IF NOT EXISTS guests (
		id              TEXT PRIMARY KEY,
		event_id        TEXT NOT NULL REFERENCES events (id) ON DELETE CASCADE,
		name            TEXT NOT NULL,
		email           TEXT NOT NULL DEFAULT '',
		edit_token_hash TEXT NOT NULL,
		answers         JSONB NOT NULL DEFAULT '[]',
		registered_at   TIMESTAMPTZ NOT NULL,
		updated_at      TIMESTAMPTZ NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS guests_event_id_idx ON guests (event_id, registered_at)`,
	`CREATE UNIQUE INDEX IF NOT EXISTS guests_event_email_idx ON guests (event_id, email) WHERE email <> ''`,
}

var _ store.Store = (*Store)(nil)

// Store implements store.Store on a *sql.DB opened with the "postgres"
// driver.
type Store struct {
	DB *sql.DB
}

// New wraps db. Call Migrate before first use.
func New(db *sql.DB) *Store {
	return &Store{DB: db}
}

// Migrate creates tables and indexes. Safe to call repeatedly.
func (s *Store) Migrate(ctx context.Context) error {
	for _, stmt := range schema {
		if _, err := s.DB.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("migrate: %w", err)
		}
	}
	return nil
}

func (s *Store) CreateEvent(ctx context.Context, ev model.Event) error {
	cands, err := json.Marshal(nonNilCandidates(ev.Candidates))
	if err != nil {
		return err
	}
	query := `
		INSERT INTO events (id, host_name, host_token_hash, title, description, duration, timezone,
			candidates, status, fixed_candidate_id, expires_at, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
	`
	_, err = s.DB.ExecContext(ctx, query,
		ev.ID, ev.HostName, ev.HostTokenHash, ev.Title, ev.Description, ev.Duration, ev.Timezone,
		string(cands), string(ev.Status), ev.FixedCandidateID, ev.ExpiresAt, ev.CreatedAt, ev.UpdatedAt,
	)
	if isPQCode(err, pqUniqueViolation) {
		return store.ErrAlreadyExists
	}
	return err
}

func (s *Store) GetEvent(ctx context.Context, id string) (model.Event, error) {
	query := `
		SELECT id, host_name, host_token_hash, title, description, duration, timezone,
			candidates, status, fixed_candidate_id, expires_at, created_at, updated_at
		FROM events
		WHERE id = $1
	`
	var ev model.Event
	var cands []byte
	var status string
	err := s.DB.QueryRowContext(ctx, query, id).Scan(
		&ev.ID, &ev.HostName, &ev.HostTokenHash, &ev.Title, &ev.Description, &ev.Duration, &ev.Timezone,
		&cands, &status, &ev.FixedCandidateID, &ev.ExpiresAt, &ev.CreatedAt, &ev.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return model.Event{}, store.ErrNotFound
		}
		return model.Event{}, err
	}
	ev.Status = model.EventStatus(status)
	if err := json.Unmarshal(cands, &ev.Candidates); err != nil {
		return model.Event{}, fmt.Errorf("decode candidates of %s: %w", id, err)
	}
	return ev, nil
}

func (s *Store) UpdateEvent(ctx context.Context, ev model.Event, guests ...model.Guest) error {
	cands, err := json.Marshal(nonNilCandidates(ev.Candidates))
	if err != nil {
		return err
	}

	tx, err := s.DB.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx, `
		UPDATE events
		SET title = $2, description = $3, duration = $4, timezone = $5, candidates = $6,
			status = $7, fixed_candidate_id = $8, expires_at = $9, updated_at = $10
		WHERE id = $1
	`, ev.ID, ev.Title, ev.Description, ev.Duration, ev.Timezone, string(cands),
		string(ev.Status), ev.FixedCandidateID, ev.ExpiresAt, ev.UpdatedAt)
	if err != nil {
		return err
	}
	if err := expectOneRow(res); err != nil {
		return err
	}

	for _, g := range guests {
		if err := updateGuest(ctx, tx, ev.ID, g); err != nil {
			return err
		}
	}
	return tx.Commit()
}

func (s *Store) DeleteEvent(ctx context.Context, id string) error {
	res, err := s.DB.ExecContext(ctx, `DELETE FROM events WHERE id = $1`, id)
	if err != nil {
		return err
	}
	return expectOneRow(res)
}

func (s *Store) ListGuests(ctx context.Context, eventID string) ([]model.Guest, error) {
	var exists bool
	if err := s.DB.QueryRowContext(ctx, `SELECT EXISTS (SELECT 1 FROM events WHERE id = $1)`, eventID).Scan(&exists); err != nil {
		return nil, err
	}
	if !exists {
		return nil, store.ErrNotFound
	}

	rows, err := s.DB.QueryContext(ctx, `
		SELECT id, name, email, edit_token_hash, answers, registered_at, updated_at
		FROM guests
		WHERE event_id = $1
		ORDER BY registered_at, id
	`, eventID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	guests := make([]model.Guest, 0)
	for rows.Next() {
		g, err := scanGuest(rows)
		if err != nil {
			return nil, err
		}
		guests = append(guests, g)
	}
	return guests, rows.Err()
}

func (s *Store) GetGuest(ctx context.Context, eventID, guestID string) (model.Guest, error) {
	row := s.DB.QueryRowContext(ctx, `
		SELECT id, name, email, edit_token_hash, answers, registered_at, updated_at
		FROM guests
		WHERE event_id = $1 AND id = $2
	`, eventID, guestID)
	g, err := scanGuest(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return model.Guest{}, store.ErrNotFound
		}
		return model.Guest{}, err
	}
	return g, nil
}

func (s *Store) CreateGuest(ctx context.Context, eventID string, g model.Guest) error {
	answers, err := json.Marshal(nonNilAnswers(g.Answers))
	if err != nil {
		return err
	}
	_, err = s.DB.ExecContext(ctx, `
		INSERT INTO guests (id, event_id, name, email, edit_token_hash, answers, registered_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`, g.ID, eventID, g.Name, g.Email, g.EditTokenHash, string(answers), g.RegisteredAt, g.UpdatedAt)
	switch {
	case isPQCode(err, pqUniqueViolation):
		var perr *pq.Error
		if errors.As(err, &perr) && perr.Constraint == "guests_pkey" {
			return store.ErrAlreadyExists
		}
		return store.ErrDuplicateEmail
	case isPQCode(err, pqForeignKeyViolation):
		return store.ErrNotFound
	}
	return err
}

func (s *Store) UpdateGuest(ctx context.Context, eventID string, g model.Guest) error {
	return updateGuest(ctx, s.DB, eventID, g)
}

func (s *Store) DeleteExpired(ctx context.Context, now time.Time) (int, error) {
	res, err := s.DB.ExecContext(ctx, `DELETE FROM events WHERE expires_at <= $1`, now)
	if err != nil {
		return 0, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, err
	}
	return int(n), nil
}

func (s *Store) Close() error {
	return s.DB.Close()
}

type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

type scanner interface {
	Scan(dest ...any) error
}

func updateGuest(ctx context.Context, db execer, eventID string, g model.Guest) error {
	answers, err := json.Marshal(nonNilAnswers(g.Answers))
	if err != nil {
		return err
	}
	res, err := db.ExecContext(ctx, `
		UPDATE guests
		SET name = $3, answers = $4, updated_at = $5
		WHERE event_id = $1 AND id = $2
	`, eventID, g.ID, g.Name, string(answers), g.UpdatedAt)
	if err != nil {
		return err
	}
	return expectOneRow(res)
}

func scanGuest(row scanner) (model.Guest, error) {
	var g model.Guest
	var answers []byte
	if err := row.Scan(&g.ID, &g.Name, &g.Email, &g.EditTokenHash, &answers, &g.RegisteredAt, &g.UpdatedAt); err != nil {
		return model.Guest{}, err
	}
	if err := json.Unmarshal(answers, &g.Answers); err != nil {
		return model.Guest{}, fmt.Errorf("decode answers of guest %s: %w", g.ID, err)
	}
	return g, nil
}

func expectOneRow(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return store.ErrNotFound
	}
	return nil
}

func isPQCode(err error, code string) bool {
	var perr *pq.Error
	return errors.As(err, &perr) && string(perr.Code) == code
}

func nonNilCandidates(c []model.Candidate) []model.Candidate {
	if c == nil {
		return []model.Candidate{}
	}
	return c
}

func nonNilAnswers(a []model.Answer) []model.Answer {
	if a == nil {
		return []model.Answer{}
	}
	return a
}
