package postgres

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/lib/pq"
	"github.com/stretchr/testify/require"

	"meetgrid/internal/model"
	"meetgrid/internal/store"
)

var (
	created = time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	expires = created.AddDate(0, 0, 90)
)

const candidatesJSON = `[{"id":"c1","start":"2026-03-15T10:00:00Z","end":"2026-03-15T11:00:00Z"}]`

func sampleEvent() model.Event {
	return model.Event{
		ID:            "ev-1",
		HostName:      "Host",
		HostTokenHash: "hash",
		Title:         "Sync",
		Duration:      60,
		Timezone:      "Asia/Tokyo",
		Candidates: []model.Candidate{
			{ID: "c1", Start: time.Date(2026, 3, 15, 10, 0, 0, 0, time.UTC), End: time.Date(2026, 3, 15, 11, 0, 0, 0, time.UTC)},
		},
		Status:    model.EventPlanning,
		ExpiresAt: expires,
		CreatedAt: created,
		UpdatedAt: created,
	}
}

var eventColumns = []string{"id", "host_name", "host_token_hash", "title", "description", "duration", "timezone",
	"candidates", "status", "fixed_candidate_id", "expires_at", "created_at", "updated_at"}

var guestColumns = []string{"id", "name", "email", "edit_token_hash", "answers", "registered_at", "updated_at"}

func newMock(t *testing.T) (*Store, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return New(db), mock
}

func TestStore_Migrate(t *testing.T) {
	s, mock := newMock(t)
	for range schema {
		mock.ExpectExec(`CREATE`).WillReturnResult(sqlmock.NewResult(0, 0))
	}
	require.NoError(t, s.Migrate(context.Background()))
	require.NoError(t, mock.ExpectationsWereMet())

	s, mock = newMock(t)
	mock.ExpectExec(`CREATE TABLE IF NOT EXISTS events`).WillReturnError(sql.ErrConnDone)
	require.ErrorIs(t, s.Migrate(context.Background()), sql.ErrConnDone)
}

func TestStore_CreateEvent(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name    string
		mock    func(mock sqlmock.Sqlmock)
		wantErr error
	}{
		{
			name: "success",
			mock: func(mock sqlmock.Sqlmock) {
				mock.ExpectExec(`INSERT INTO events \(id, host_name, host_token_hash`).
					WithArgs("ev-1", "Host", "hash", "Sync", "", 60, "Asia/Tokyo",
						candidatesJSON, "planning", "", expires, created, created).
					WillReturnResult(sqlmock.NewResult(0, 1))
			},
		},
		{
			name: "duplicate id",
			mock: func(mock sqlmock.Sqlmock) {
				mock.ExpectExec(`INSERT INTO events`).
					WillReturnError(&pq.Error{Code: "23505", Constraint: "events_pkey"})
			},
			wantErr: store.ErrAlreadyExists,
		},
		{
			name: "db error",
			mock: func(mock sqlmock.Sqlmock) {
				mock.ExpectExec(`INSERT INTO events`).WillReturnError(sql.ErrConnDone)
			},
			wantErr: sql.ErrConnDone,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, mock := newMock(t)
			tt.mock(mock)
			err := s.CreateEvent(ctx, sampleEvent())
			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			require.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

func TestStore_GetEvent(t *testing.T) {
	ctx := context.Background()

	s, mock := newMock(t)
	mock.ExpectQuery(`SELECT id, host_name, host_token_hash, title`).
		WithArgs("ev-1").
		WillReturnRows(sqlmock.NewRows(eventColumns).
			AddRow("ev-1", "Host", "hash", "Sync", "", 60, "Asia/Tokyo",
				[]byte(candidatesJSON), "planning", "", expires, created, created))

	got, err := s.GetEvent(ctx, "ev-1")
	require.NoError(t, err)
	require.Equal(t, sampleEvent(), got)
	require.NoError(t, mock.ExpectationsWereMet())

	s, mock = newMock(t)
	mock.ExpectQuery(`SELECT id, host_name`).WithArgs("ev-missing").WillReturnError(sql.ErrNoRows)
	_, err = s.GetEvent(ctx, "ev-missing")
	require.ErrorIs(t, err, store.ErrNotFound)

	s, mock = newMock(t)
	mock.ExpectQuery(`SELECT id, host_name`).
		WithArgs("ev-1").
		WillReturnRows(sqlmock.NewRows(eventColumns).
			AddRow("ev-1", "Host", "hash", "Sync", "", 60, "Asia/Tokyo",
				[]byte(`{broken`), "planning", "", expires, created, created))
	_, err = s.GetEvent(ctx, "ev-1")
	require.Error(t, err)
}

func TestStore_UpdateEvent(t *testing.T) {
	ctx := context.Background()
	guest := model.Guest{ID: "g-1", Name: "Alice", UpdatedAt: created}

	t.Run("commits event and guests together", func(t *testing.T) {
		s, mock := newMock(t)
		mock.ExpectBegin()
		mock.ExpectExec(`UPDATE events`).
			WithArgs("ev-1", "Sync", "", 60, "Asia/Tokyo", candidatesJSON, "planning", "", expires, created).
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectExec(`UPDATE guests`).
			WithArgs("ev-1", "g-1", "Alice", `[]`, created).
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectCommit()

		require.NoError(t, s.UpdateEvent(ctx, sampleEvent(), guest))
		require.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("missing event rolls back", func(t *testing.T) {
		s, mock := newMock(t)
		mock.ExpectBegin()
		mock.ExpectExec(`UPDATE events`).WillReturnResult(sqlmock.NewResult(0, 0))
		mock.ExpectRollback()

		require.ErrorIs(t, s.UpdateEvent(ctx, sampleEvent(), guest), store.ErrNotFound)
		require.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("missing guest rolls back", func(t *testing.T) {
		s, mock := newMock(t)
		mock.ExpectBegin()
		mock.ExpectExec(`UPDATE events`).WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectExec(`UPDATE guests`).WillReturnResult(sqlmock.NewResult(0, 0))
		mock.ExpectRollback()

		require.ErrorIs(t, s.UpdateEvent(ctx, sampleEvent(), guest), store.ErrNotFound)
		require.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestStore_DeleteEvent(t *testing.T) {
	ctx := context.Background()

	s, mock := newMock(t)
	mock.ExpectExec(`DELETE FROM events WHERE id = \$1`).WithArgs("ev-1").WillReturnResult(sqlmock.NewResult(0, 1))
	require.NoError(t, s.DeleteEvent(ctx, "ev-1"))

	mock.ExpectExec(`DELETE FROM events WHERE id = \$1`).WithArgs("ev-2").WillReturnResult(sqlmock.NewResult(0, 0))
	require.ErrorIs(t, s.DeleteEvent(ctx, "ev-2"), store.ErrNotFound)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestStore_ListGuests(t *testing.T) {
	ctx := context.Background()

	s, mock := newMock(t)
	mock.ExpectQuery(`SELECT EXISTS`).WithArgs("ev-1").
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(true))
	mock.ExpectQuery(`SELECT id, name, email, edit_token_hash, answers, registered_at, updated_at\s+FROM guests`).
		WithArgs("ev-1").
		WillReturnRows(sqlmock.NewRows(guestColumns).
			AddRow("g-1", "Alice", "alice@example.com", "h1", []byte(`[{"candidate_id":"c1","status":"ok"}]`), created, created).
			AddRow("g-2", "Bob", "", "h2", []byte(`[]`), created.Add(time.Minute), created.Add(time.Minute)))

	guests, err := s.ListGuests(ctx, "ev-1")
	require.NoError(t, err)
	require.Len(t, guests, 2)
	require.Equal(t, "g-1", guests[0].ID)
	require.Equal(t, []model.Answer{{CandidateID: "c1", Status: model.StatusOK}}, guests[0].Answers)
	require.Equal(t, "h2", guests[1].EditTokenHash)
	require.Empty(t, guests[1].Answers)
	require.NoError(t, mock.ExpectationsWereMet())

	s, mock = newMock(t)
	mock.ExpectQuery(`SELECT EXISTS`).WithArgs("nope").
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(false))
	_, err = s.ListGuests(ctx, "nope")
	require.ErrorIs(t, err, store.ErrNotFound)
}

func TestStore_GetGuest(t *testing.T) {
	ctx := context.Background()

	s, mock := newMock(t)
	mock.ExpectQuery(`FROM guests\s+WHERE event_id = \$1 AND id = \$2`).
		WithArgs("ev-1", "g-1").
		WillReturnRows(sqlmock.NewRows(guestColumns).
			AddRow("g-1", "Alice", "", "h1", []byte(`[]`), created, created))
	g, err := s.GetGuest(ctx, "ev-1", "g-1")
	require.NoError(t, err)
	require.Equal(t, "Alice", g.Name)

	mock.ExpectQuery(`FROM guests`).WithArgs("ev-1", "g-9").WillReturnError(sql.ErrNoRows)
	_, err = s.GetGuest(ctx, "ev-1", "g-9")
	require.ErrorIs(t, err, store.ErrNotFound)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestStore_CreateGuest(t *testing.T) {
	ctx := context.Background()
	guest := model.Guest{
		ID: "g-1", Name: "Alice", Email: "alice@example.com", EditTokenHash: "h1",
		Answers:      []model.Answer{{CandidateID: "c1", Status: model.StatusMaybe}},
		RegisteredAt: created, UpdatedAt: created,
	}

	tests := []struct {
		name    string
		err     error
		wantErr error
	}{
		{name: "success"},
		{name: "duplicate email", err: &pq.Error{Code: "23505", Constraint: "guests_event_email_idx"}, wantErr: store.ErrDuplicateEmail},
		{name: "duplicate id", err: &pq.Error{Code: "23505", Constraint: "guests_pkey"}, wantErr: store.ErrAlreadyExists},
		{name: "missing event", err: &pq.Error{Code: "23503"}, wantErr: store.ErrNotFound},
		{name: "db error", err: sql.ErrConnDone, wantErr: sql.ErrConnDone},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, mock := newMock(t)
			exp := mock.ExpectExec(`INSERT INTO guests`).
				WithArgs("g-1", "ev-1", "Alice", "alice@example.com", "h1",
					`[{"candidate_id":"c1","status":"maybe"}]`, created, created)
			if tt.err != nil {
				exp.WillReturnError(tt.err)
			} else {
				exp.WillReturnResult(sqlmock.NewResult(0, 1))
			}

			err := s.CreateGuest(ctx, "ev-1", guest)
			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			require.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

func TestStore_UpdateGuest(t *testing.T) {
	ctx := context.Background()
	s, mock := newMock(t)

	mock.ExpectExec(`UPDATE guests`).
		WithArgs("ev-1", "g-1", "Alice", `[{"candidate_id":"c1","status":"ng"}]`, created).
		WillReturnResult(sqlmock.NewResult(0, 1))
	require.NoError(t, s.UpdateGuest(ctx, "ev-1", model.Guest{
		ID: "g-1", Name: "Alice", UpdatedAt: created,
		Answers: []model.Answer{{CandidateID: "c1", Status: model.StatusNG}},
	}))

	mock.ExpectExec(`UPDATE guests`).WillReturnResult(sqlmock.NewResult(0, 0))
	require.ErrorIs(t, s.UpdateGuest(ctx, "ev-1", model.Guest{ID: "g-9"}), store.ErrNotFound)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestStore_DeleteExpired(t *testing.T) {
	ctx := context.Background()
	s, mock := newMock(t)

	mock.ExpectExec(`DELETE FROM events WHERE expires_at <= \$1`).
		WithArgs(expires).
		WillReturnResult(sqlmock.NewResult(0, 3))
	n, err := s.DeleteExpired(ctx, expires)
	require.NoError(t, err)
	require.Equal(t, 3, n)

	mock.ExpectExec(`DELETE FROM events`).WillReturnError(sql.ErrConnDone)
	_, err = s.DeleteExpired(ctx, expires)
	require.ErrorIs(t, err, sql.ErrConnDone)
	require.NoError(t, mock.ExpectationsWereMet())
}
