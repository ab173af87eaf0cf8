package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite" // Pure-Go SQLite driver
)

// SQLiteStore is the production Store backed by a local SQLite database.
type SQLiteStore struct {
	db *sql.DB
}

// Open creates or opens a SQLite database at path and prepares the schema.
func Open(path string) (*SQLiteStore, error) {
	if dir := filepath.Dir(path); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create data dir: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	// SQLite handles one writer at a time; serialize access through a
	// single connection instead of relying on busy retries.
	db.SetMaxOpenConns(1)

	s := &SQLiteStore{db: db}
	if err := s.init(); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

// NewWithDB wraps an existing database handle. The schema is assumed to be
// prepared; used in tests.
func NewWithDB(db *sql.DB) *SQLiteStore {
	return &SQLiteStore{db: db}
}

func (s *SQLiteStore) init() error {
	schema := []string{
		`CREATE TABLE IF NOT EXISTS users (
			slack_id TEXT PRIMARY KEY,
			first_name TEXT,
			last_name TEXT,
			department TEXT,
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
			updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)`,
		`CREATE TABLE IF NOT EXISTS matches (
			id TEXT PRIMARY KEY,
			user1_id TEXT NOT NULL,
			user2_id TEXT NOT NULL,
			channel_id TEXT NOT NULL,
			status TEXT NOT NULL DEFAULT 'active',
			summary TEXT,
			created_at DATETIME NOT NULL,
			closed_at DATETIME
		)`,
		`CREATE TABLE IF NOT EXISTS polls (
			id TEXT PRIMARY KEY,
			channel_id TEXT NOT NULL,
			message_ts TEXT,
			creator_id TEXT NOT NULL,
			topic TEXT NOT NULL,
			options TEXT NOT NULL,
			status TEXT NOT NULL DEFAULT 'open',
			created_at DATETIME NOT NULL,
			ends_at DATETIME NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_polls_message ON polls (channel_id, message_ts)`,
		`CREATE TABLE IF NOT EXISTS votes (
			poll_id TEXT NOT NULL,
			user_id TEXT NOT NULL,
			option_index INTEGER NOT NULL,
			PRIMARY KEY (poll_id, user_id),
			FOREIGN KEY (poll_id) REFERENCES polls(id)
		)`,
		`CREATE TABLE IF NOT EXISTS feedback (
			id TEXT PRIMARY KEY,
			category TEXT NOT NULL,
			content TEXT NOT NULL,
			created_at DATETIME NOT NULL
		)`,
	}
	for _, stmt := range schema {
		if _, err := s.db.Exec(stmt); err != nil {
			return fmt.Errorf("prepare schema: %w", err)
		}
	}
	return nil
}

func (s *SQLiteStore) UpsertUser(ctx context.Context, user *User) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO users (slack_id, first_name, last_name, department)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(slack_id) DO UPDATE SET
			first_name = excluded.first_name,
			last_name = excluded.last_name,
			department = excluded.department,
			updated_at = CURRENT_TIMESTAMP`,
		user.SlackID, user.FirstName, user.LastName, user.Department)
	if err != nil {
		return fmt.Errorf("upsert user: %w", err)
	}
	return nil
}

func (s *SQLiteStore) GetUser(ctx context.Context, slackID string) (*User, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT slack_id, first_name, last_name, department, created_at, updated_at
		FROM users WHERE slack_id = ?`, slackID)
	return scanUser(row)
}

func (s *SQLiteStore) ListUsers(ctx context.Context) ([]*User, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT slack_id, first_name, last_name, department, created_at, updated_at
		FROM users ORDER BY slack_id`)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	defer rows.Close()

	var out []*User
	for rows.Next() {
		user, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, user)
	}
	return out, rows.Err()
}

func (s *SQLiteStore) CreateMatch(ctx context.Context, match *Match) error {
	if match.CreatedAt.IsZero() {
		match.CreatedAt = time.Now().UTC()
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO matches (id, user1_id, user2_id, channel_id, status, summary, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		match.ID, match.User1, match.User2, match.ChannelID, string(match.Status), match.Summary, match.CreatedAt)
	if err != nil {
		return fmt.Errorf("create match: %w", err)
	}
	return nil
}

func (s *SQLiteStore) GetMatch(ctx context.Context, id string) (*Match, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, user1_id, user2_id, channel_id, status, summary, created_at, closed_at
		FROM matches WHERE id = ?`, id)
	return scanMatch(row)
}

func (s *SQLiteStore) CloseMatch(ctx context.Context, id, summary string, closedAt time.Time) (bool, error) {
	// The status guard in the WHERE clause makes the transition atomic;
	// a second closer sees zero affected rows.
	res, err := s.db.ExecContext(ctx, `
		UPDATE matches SET status = ?, summary = ?, closed_at = ?
		WHERE id = ? AND status = ?`,
		string(MatchClosed), summary, closedAt, id, string(MatchActive))
	if err != nil {
		return false, fmt.Errorf("close match: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("close match: %w", err)
	}
	return affected > 0, nil
}

func (s *SQLiteStore) ListMatches(ctx context.Context) ([]*Match, error) {
	return s.queryMatches(ctx, `
		SELECT id, user1_id, user2_id, channel_id, status, summary, created_at, closed_at
		FROM matches ORDER BY created_at DESC`)
}

func (s *SQLiteStore) ListActiveMatches(ctx context.Context) ([]*Match, error) {
	return s.queryMatches(ctx, `
		SELECT id, user1_id, user2_id, channel_id, status, summary, created_at, closed_at
		FROM matches WHERE status = 'active' ORDER BY created_at DESC`)
}

func (s *SQLiteStore) queryMatches(ctx context.Context, query string, args ...any) ([]*Match, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list matches: %w", err)
	}
	defer rows.Close()

	var out []*Match
	for rows.Next() {
		match, err := scanMatch(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, match)
	}
	return out, rows.Err()
}

func (s *SQLiteStore) CreatePoll(ctx context.Context, poll *Poll) error {
	if poll.CreatedAt.IsZero() {
		poll.CreatedAt = time.Now().UTC()
	}
	options, err := json.Marshal(poll.Options)
	if err != nil {
		return fmt.Errorf("encode poll options: %w", err)
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO polls (id, channel_id, message_ts, creator_id, topic, options, status, created_at, ends_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		poll.ID, poll.ChannelID, poll.MessageTS, poll.CreatorID, poll.Topic, string(options),
		string(poll.Status), poll.CreatedAt, poll.EndsAt)
	if err != nil {
		return fmt.Errorf("create poll: %w", err)
	}
	return nil
}

func (s *SQLiteStore) GetPoll(ctx context.Context, id string) (*Poll, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, channel_id, message_ts, creator_id, topic, options, status, created_at, ends_at
		FROM polls WHERE id = ?`, id)
	return scanPoll(row)
}

func (s *SQLiteStore) GetPollByMessage(ctx context.Context, channelID, messageTS string) (*Poll, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, channel_id, message_ts, creator_id, topic, options, status, created_at, ends_at
		FROM polls WHERE channel_id = ? AND message_ts = ?`, channelID, messageTS)
	return scanPoll(row)
}

func (s *SQLiteStore) SetPollMessage(ctx context.Context, id, messageTS string) error {
	res, err := s.db.ExecContext(ctx, `UPDATE polls SET message_ts = ? WHERE id = ?`, messageTS, id)
	if err != nil {
		return fmt.Errorf("set poll message: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("set poll message: %w", err)
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *SQLiteStore) ClosePoll(ctx context.Context, id string) (bool, error) {
	res, err := s.db.ExecContext(ctx, `
		UPDATE polls SET status = ? WHERE id = ? AND status = ?`,
		string(PollClosed), id, string(PollOpen))
	if err != nil {
		return false, fmt.Errorf("close poll: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("close poll: %w", err)
	}
	return affected > 0, nil
}

func (s *SQLiteStore) ListPolls(ctx context.Context) ([]*Poll, error) {
	return s.queryPolls(ctx, `
		SELECT id, channel_id, message_ts, creator_id, topic, options, status, created_at, ends_at
		FROM polls ORDER BY created_at DESC`)
}

func (s *SQLiteStore) ListOpenPolls(ctx context.Context) ([]*Poll, error) {
	return s.queryPolls(ctx, `
		SELECT id, channel_id, message_ts, creator_id, topic, options, status, created_at, ends_at
		FROM polls WHERE status = 'open' ORDER BY created_at DESC`)
}

func (s *SQLiteStore) queryPolls(ctx context.Context, query string, args ...any) ([]*Poll, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list polls: %w", err)
	}
	defer rows.Close()

	var out []*Poll
	for rows.Next() {
		poll, err := scanPoll(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, poll)
	}
	return out, rows.Err()
}

func (s *SQLiteStore) UpsertVote(ctx context.Context, vote *Vote) error {
	// Single-statement upsert; concurrent votes for the same (poll, user)
	// resolve to the last writer without any application-level locking.
	_, err := s.db.ExecContext(ctx, `
		INSERT OR REPLACE INTO votes (poll_id, user_id, option_index)
		VALUES (?, ?, ?)`,
		vote.PollID, vote.UserID, vote.OptionIndex)
	if err != nil {
		return fmt.Errorf("upsert vote: %w", err)
	}
	return nil
}

func (s *SQLiteStore) TallyVotes(ctx context.Context, pollID string) (map[int]int, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT option_index, COUNT(*) FROM votes WHERE poll_id = ? GROUP BY option_index`, pollID)
	if err != nil {
		return nil, fmt.Errorf("tally votes: %w", err)
	}
	defer rows.Close()

	tally := make(map[int]int)
	for rows.Next() {
		var index, count int
		if err := rows.Scan(&index, &count); err != nil {
			return nil, fmt.Errorf("tally votes: %w", err)
		}
		tally[index] = count
	}
	return tally, rows.Err()
}

func (s *SQLiteStore) CountVotes(ctx context.Context) (int, error) {
	var count int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM votes`).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count votes: %w", err)
	}
	return count, nil
}

func (s *SQLiteStore) AddFeedback(ctx context.Context, feedback *Feedback) error {
	if feedback.CreatedAt.IsZero() {
		feedback.CreatedAt = time.Now().UTC()
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO feedback (id, category, content, created_at)
		VALUES (?, ?, ?, ?)`,
		feedback.ID, feedback.Category, feedback.Content, feedback.CreatedAt)
	if err != nil {
		return fmt.Errorf("add feedback: %w", err)
	}
	return nil
}

func (s *SQLiteStore) ListFeedback(ctx context.Context) ([]*Feedback, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, category, content, created_at FROM feedback ORDER BY created_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("list feedback: %w", err)
	}
	defer rows.Close()

	var out []*Feedback
	for rows.Next() {
		feedback := &Feedback{}
		if err := rows.Scan(&feedback.ID, &feedback.Category, &feedback.Content, &feedback.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan feedback: %w", err)
		}
		out = append(out, feedback)
	}
	return out, rows.Err()
}

func (s *SQLiteStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanUser(row rowScanner) (*User, error) {
	user := &User{}
	var firstName, lastName, department sql.NullString
	err := row.Scan(&user.SlackID, &firstName, &lastName, &department, &user.CreatedAt, &user.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan user: %w", err)
	}
	user.FirstName = firstName.String
	user.LastName = lastName.String
	user.Department = department.String
	return user, nil
}

func scanMatch(row rowScanner) (*Match, error) {
	match := &Match{}
	var status string
	var summary sql.NullString
	var closedAt sql.NullTime
	err := row.Scan(&match.ID, &match.User1, &match.User2, &match.ChannelID, &status, &summary, &match.CreatedAt, &closedAt)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan match: %w", err)
	}
	match.Status = MatchStatus(status)
	match.Summary = summary.String
	if closedAt.Valid {
		match.ClosedAt = closedAt.Time
	}
	return match, nil
}

func scanPoll(row rowScanner) (*Poll, error) {
	poll := &Poll{}
	var status, options string
	var messageTS sql.NullString
	err := row.Scan(&poll.ID, &poll.ChannelID, &messageTS, &poll.CreatorID, &poll.Topic, &options, &status, &poll.CreatedAt, &poll.EndsAt)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan poll: %w", err)
	}
	poll.MessageTS = messageTS.String
	poll.Status = PollStatus(status)
	if err := json.Unmarshal([]byte(options), &poll.Options); err != nil {
		return nil, fmt.Errorf("decode poll options: %w", err)
	}
	return poll, nil
}

var _ Store = (*SQLiteStore)(nil)
