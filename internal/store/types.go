// Package store persists users, matches, polls, votes, and feedback.
//
// Store implementations follow the same contract: MemoryStore for tests and
// SQLiteStore for production. Returned records are copies; mutating them does
// not affect stored state.
package store

import (
	"errors"
	"strings"
	"time"
)

// ErrNotFound is returned when a requested record does not exist.
var ErrNotFound = errors.New("store: not found")

// MatchStatus is the lifecycle state of a coffee match.
type MatchStatus string

const (
	MatchActive MatchStatus = "active"
	MatchClosed MatchStatus = "closed"
)

// PollStatus is the lifecycle state of a poll.
type PollStatus string

const (
	PollOpen   PollStatus = "open"
	PollClosed PollStatus = "closed"
)

// User is a registered workspace member profile.
type User struct {
	SlackID    string
	FirstName  string
	LastName   string
	Department string
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// FullName returns the user's display name, falling back to the Slack ID.
func (u *User) FullName() string {
	name := strings.TrimSpace(u.FirstName + " " + u.LastName)
	if name == "" {
		return u.SlackID
	}
	return name
}

// Match is a realized coffee pairing. Status transitions active -> closed
// exactly once; rows are kept forever for statistics.
type Match struct {
	ID        string
	User1     string
	User2     string
	ChannelID string
	Status    MatchStatus
	Summary   string
	CreatedAt time.Time
	ClosedAt  time.Time
}

// Poll is a time-boxed multi-option vote.
type Poll struct {
	ID        string
	ChannelID string
	// MessageTS is the Slack timestamp of the interactive poll message,
	// set after the message is posted.
	MessageTS string
	CreatorID string
	Topic     string
	Options   []string
	Status    PollStatus
	CreatedAt time.Time
	EndsAt    time.Time
}

// Vote is one user's current choice within one poll. Writes are upserts
// keyed by (PollID, UserID); a later vote replaces the earlier one.
type Vote struct {
	PollID      string
	UserID      string
	OptionIndex int
}

// Feedback is an anonymous feedback entry. No author identity is stored.
type Feedback struct {
	ID        string
	Category  string
	Content   string
	CreatedAt time.Time
}
