package store

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
)

func setupMockDB(t *testing.T) (*SQLiteStore, sqlmock.Sqlmock, func()) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("create sqlmock: %v", err)
	}
	s := NewWithDB(db)
	return s, mock, func() { db.Close() }
}

func TestSQLiteStore_UpsertUser(t *testing.T) {
	s, mock, done := setupMockDB(t)
	defer done()

	mock.ExpectExec("INSERT INTO users").
		WithArgs("U1", "Ada", "Lovelace", "Engineering").
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := s.UpsertUser(context.Background(), &User{
		SlackID: "U1", FirstName: "Ada", LastName: "Lovelace", Department: "Engineering",
	})
	if err != nil {
		t.Fatal(err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Error(err)
	}
}

func TestSQLiteStore_GetUser_NotFound(t *testing.T) {
	s, mock, done := setupMockDB(t)
	defer done()

	mock.ExpectQuery("SELECT slack_id, first_name, last_name, department").
		WithArgs("U404").
		WillReturnError(sql.ErrNoRows)

	_, err := s.GetUser(context.Background(), "U404")
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestSQLiteStore_CloseMatch(t *testing.T) {
	closedAt := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name     string
		affected int64
		want     bool
	}{
		{name: "transitions when active", affected: 1, want: true},
		{name: "no-op when already closed", affected: 0, want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, mock, done := setupMockDB(t)
			defer done()

			mock.ExpectExec("UPDATE matches SET status").
				WithArgs("closed", "summary", closedAt, "m1", "active").
				WillReturnResult(sqlmock.NewResult(0, tt.affected))

			did, err := s.CloseMatch(context.Background(), "m1", "summary", closedAt)
			if err != nil {
				t.Fatal(err)
			}
			if did != tt.want {
				t.Errorf("CloseMatch = %v, want %v", did, tt.want)
			}
			if err := mock.ExpectationsWereMet(); err != nil {
				t.Error(err)
			}
		})
	}
}

func TestSQLiteStore_ClosePoll(t *testing.T) {
	s, mock, done := setupMockDB(t)
	defer done()

	mock.ExpectExec("UPDATE polls SET status").
		WithArgs("closed", "p1", "open").
		WillReturnResult(sqlmock.NewResult(0, 1))

	did, err := s.ClosePoll(context.Background(), "p1")
	if err != nil {
		t.Fatal(err)
	}
	if !did {
		t.Error("expected transition")
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Error(err)
	}
}

func TestSQLiteStore_UpsertVote(t *testing.T) {
	s, mock, done := setupMockDB(t)
	defer done()

	mock.ExpectExec("INSERT OR REPLACE INTO votes").
		WithArgs("p1", "U1", 2).
		WillReturnResult(sqlmock.NewResult(1, 1))

	err := s.UpsertVote(context.Background(), &Vote{PollID: "p1", UserID: "U1", OptionIndex: 2})
	if err != nil {
		t.Fatal(err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Error(err)
	}
}

func TestSQLiteStore_TallyVotes(t *testing.T) {
	s, mock, done := setupMockDB(t)
	defer done()

	rows := sqlmock.NewRows([]string{"option_index", "count"}).
		AddRow(0, 3).
		AddRow(2, 1)
	mock.ExpectQuery("SELECT option_index, COUNT").
		WithArgs("p1").
		WillReturnRows(rows)

	tally, err := s.TallyVotes(context.Background(), "p1")
	if err != nil {
		t.Fatal(err)
	}
	if tally[0] != 3 || tally[2] != 1 {
		t.Errorf("unexpected tally: %v", tally)
	}
}

func TestSQLiteStore_GetPoll(t *testing.T) {
	s, mock, done := setupMockDB(t)
	defer done()

	created := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)
	ends := created.Add(30 * time.Minute)
	rows := sqlmock.NewRows([]string{
		"id", "channel_id", "message_ts", "creator_id", "topic", "options", "status", "created_at", "ends_at",
	}).AddRow("p1", "C1", "1700.100", "U1", "lunch", `["pizza","kebab"]`, "open", created, ends)

	mock.ExpectQuery("SELECT id, channel_id, message_ts").
		WithArgs("p1").
		WillReturnRows(rows)

	poll, err := s.GetPoll(context.Background(), "p1")
	if err != nil {
		t.Fatal(err)
	}
	if len(poll.Options) != 2 || poll.Options[1] != "kebab" {
		t.Errorf("options not decoded: %v", poll.Options)
	}
	if poll.Status != PollOpen || poll.MessageTS != "1700.100" {
		t.Errorf("unexpected poll: %+v", poll)
	}
}

func TestSQLiteStore_SetPollMessage_NotFound(t *testing.T) {
	s, mock, done := setupMockDB(t)
	defer done()

	mock.ExpectExec("UPDATE polls SET message_ts").
		WithArgs("1700.100", "missing").
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := s.SetPollMessage(context.Background(), "missing", "1700.100")
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}
