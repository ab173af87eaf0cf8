package store

import (
	"context"
	"time"
)

// Store defines the persistence contract for the bot.
type Store interface {
	// UpsertUser inserts or replaces a user profile keyed by Slack ID.
	UpsertUser(ctx context.Context, user *User) error

	// GetUser retrieves a user by Slack ID. Returns ErrNotFound if absent.
	GetUser(ctx context.Context, slackID string) (*User, error)

	// ListUsers returns all registered users.
	ListUsers(ctx context.Context) ([]*User, error)

	// CreateMatch persists a new match row.
	CreateMatch(ctx context.Context, match *Match) error

	// GetMatch retrieves a match by ID. Returns ErrNotFound if absent.
	GetMatch(ctx context.Context, id string) (*Match, error)

	// CloseMatch transitions a match to closed with the given summary.
	// Returns false when the match was already closed; the transition is
	// applied at most once.
	CloseMatch(ctx context.Context, id, summary string, closedAt time.Time) (bool, error)

	// ListMatches returns all matches, newest first.
	ListMatches(ctx context.Context) ([]*Match, error)

	// ListActiveMatches returns matches still in the active state.
	ListActiveMatches(ctx context.Context) ([]*Match, error)

	// CreatePoll persists a new poll row.
	CreatePoll(ctx context.Context, poll *Poll) error

	// GetPoll retrieves a poll by ID. Returns ErrNotFound if absent.
	GetPoll(ctx context.Context, id string) (*Poll, error)

	// GetPollByMessage retrieves a poll by its channel and message timestamp.
	GetPollByMessage(ctx context.Context, channelID, messageTS string) (*Poll, error)

	// SetPollMessage records the posted message timestamp for a poll.
	SetPollMessage(ctx context.Context, id, messageTS string) error

	// ClosePoll transitions a poll to closed. Returns false when the poll
	// was already closed; the transition is applied at most once.
	ClosePoll(ctx context.Context, id string) (bool, error)

	// ListPolls returns all polls, newest first.
	ListPolls(ctx context.Context) ([]*Poll, error)

	// ListOpenPolls returns polls still in the open state.
	ListOpenPolls(ctx context.Context) ([]*Poll, error)

	// UpsertVote records a vote keyed by (poll, user), replacing any
	// earlier vote by the same user on the same poll.
	UpsertVote(ctx context.Context, vote *Vote) error

	// TallyVotes returns the vote count per option index for a poll.
	// Options with no votes are absent from the map.
	TallyVotes(ctx context.Context, pollID string) (map[int]int, error)

	// CountVotes returns the total number of stored votes.
	CountVotes(ctx context.Context) (int, error)

	// AddFeedback persists an anonymous feedback entry.
	AddFeedback(ctx context.Context, feedback *Feedback) error

	// ListFeedback returns all feedback entries, newest first.
	ListFeedback(ctx context.Context) ([]*Feedback, error)

	// Ping verifies the store is reachable.
	Ping(ctx context.Context) error

	// Close releases store resources.
	Close() error
}
