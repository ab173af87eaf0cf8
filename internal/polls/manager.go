// Package polls runs time-boxed multi-option votes in channels.
//
// A poll is posted as an interactive message with one button per option.
// Votes are upserts; a user's later vote replaces their earlier one. When
// the duration elapses the poll closes exactly once: the original message
// is removed and a results message is posted.
package polls

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/brewcrew/barista/internal/observability"
	"github.com/brewcrew/barista/internal/scheduler"
	"github.com/brewcrew/barista/internal/store"
)

const (
	MinOptions  = 2
	MaxOptions  = 10
	MinDuration = time.Minute
	MaxDuration = 24 * time.Hour
)

// Messenger abstracts the chat platform operations the manager needs.
type Messenger interface {
	// PostPoll posts the interactive poll message and returns its
	// timestamp.
	PostPoll(ctx context.Context, channelID string, poll *store.Poll) (string, error)

	// DeleteMessage removes a posted message.
	DeleteMessage(ctx context.Context, channelID, messageTS string) error

	// PostMessage posts a plain message to a channel.
	PostMessage(ctx context.Context, channelID, text string) error
}

// Manager owns the poll lifecycle.
type Manager struct {
	store   store.Store
	sched   scheduler.Scheduler
	msgr    Messenger
	logger  *slog.Logger
	metrics *observability.Metrics
	now     func() time.Time
}

// Option customizes a Manager.
type Option func(*Manager)

// WithNow overrides the clock; used in tests.
func WithNow(now func() time.Time) Option {
	return func(m *Manager) { m.now = now }
}

// NewManager creates a Manager. metrics may be nil.
func NewManager(st store.Store, sched scheduler.Scheduler, msgr Messenger, logger *slog.Logger, metrics *observability.Metrics, opts ...Option) *Manager {
	m := &Manager{
		store:   st,
		sched:   sched,
		msgr:    msgr,
		logger:  logger.With("component", "polls"),
		metrics: metrics,
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Outcome is the user-facing result of a poll operation.
type Outcome struct {
	OK   bool
	Text string
}

// CreatePoll validates, posts, and persists a new poll, then schedules its
// close. Validation failures return a user-facing Outcome and touch nothing.
func (m *Manager) CreatePoll(ctx context.Context, channelID, creatorID, topic string, options []string, duration time.Duration) (Outcome, error) {
	if strings.TrimSpace(topic) == "" {
		return Outcome{Text: "The poll needs a topic."}, nil
	}
	if len(options) < MinOptions {
		return Outcome{Text: fmt.Sprintf("A poll needs at least %d options.", MinOptions)}, nil
	}
	if len(options) > MaxOptions {
		return Outcome{Text: fmt.Sprintf("A poll can have at most %d options.", MaxOptions)}, nil
	}
	if duration < MinDuration {
		return Outcome{Text: "The poll duration must be at least 1 minute."}, nil
	}
	if duration > MaxDuration {
		return Outcome{Text: "The poll duration must be at most 1440 minutes."}, nil
	}

	now := m.now()
	poll := &store.Poll{
		ID:        uuid.NewString(),
		ChannelID: channelID,
		CreatorID: creatorID,
		Topic:     strings.TrimSpace(topic),
		Options:   options,
		Status:    store.PollOpen,
		CreatedAt: now,
		EndsAt:    now.Add(duration),
	}

	messageTS, err := m.msgr.PostPoll(ctx, channelID, poll)
	if err != nil {
		return Outcome{}, fmt.Errorf("post poll message: %w", err)
	}
	poll.MessageTS = messageTS

	if err := m.store.CreatePoll(ctx, poll); err != nil {
		// The message is already visible; remove it rather than leave a
		// poll nobody can vote on.
		if delErr := m.msgr.DeleteMessage(ctx, channelID, messageTS); delErr != nil {
			m.logger.Warn("failed to remove orphaned poll message", "poll", poll.ID, "error", delErr)
		}
		return Outcome{}, fmt.Errorf("persist poll: %w", err)
	}

	m.sched.ScheduleOnce(closeTaskID(poll.ID), duration, func() {
		m.ClosePoll(context.Background(), poll.ID)
	})

	if m.metrics != nil {
		m.metrics.PollsTotal.WithLabelValues("created").Inc()
	}
	m.logger.Info("poll created", "poll", poll.ID, "channel", channelID, "options", len(options), "duration", duration)
	return Outcome{OK: true, Text: fmt.Sprintf("Poll created! It closes in %d minute(s).", int(duration.Minutes()))}, nil
}

// CastVote records a vote identified by the poll message. The returned text
// is the ephemeral acknowledgement; empty means no reply.
func (m *Manager) CastVote(ctx context.Context, channelID, messageTS, userID string, optionIndex int) (string, error) {
	poll, err := m.store.GetPollByMessage(ctx, channelID, messageTS)
	if err == store.ErrNotFound {
		// Stale button press on a message we no longer track.
		m.logger.Warn("vote for unknown poll message", "channel", channelID, "ts", messageTS)
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("load poll: %w", err)
	}

	if poll.Status == store.PollClosed {
		return "This poll has already ended.", nil
	}
	if optionIndex < 0 || optionIndex >= len(poll.Options) {
		m.logger.Warn("vote with out-of-range option", "poll", poll.ID, "index", optionIndex)
		return "", nil
	}

	if err := m.store.UpsertVote(ctx, &store.Vote{PollID: poll.ID, UserID: userID, OptionIndex: optionIndex}); err != nil {
		return "", fmt.Errorf("record vote: %w", err)
	}

	if m.metrics != nil {
		m.metrics.VotesTotal.Inc()
	}
	return fmt.Sprintf("Your vote is now *%s*.", poll.Options[optionIndex]), nil
}

// ClosePoll tallies and closes a poll. Safe to call more than once; only
// the first call past the store transition sends messages.
func (m *Manager) ClosePoll(ctx context.Context, pollID string) {
	poll, err := m.store.GetPoll(ctx, pollID)
	if err != nil {
		m.logger.Error("close poll: load failed", "poll", pollID, "error", err)
		return
	}

	tally, err := m.store.TallyVotes(ctx, pollID)
	if err != nil {
		m.logger.Error("close poll: tally failed", "poll", pollID, "error", err)
		return
	}

	didClose, err := m.store.ClosePoll(ctx, pollID)
	if err != nil {
		m.logger.Error("close poll: transition failed", "poll", pollID, "error", err)
		return
	}
	if !didClose {
		return
	}

	if poll.MessageTS != "" {
		if err := m.msgr.DeleteMessage(ctx, poll.ChannelID, poll.MessageTS); err != nil {
			m.logger.Warn("failed to delete poll message", "poll", pollID, "error", err)
		}
	}

	if err := m.msgr.PostMessage(ctx, poll.ChannelID, formatResults(poll, tally)); err != nil {
		m.logger.Warn("failed to post poll results", "poll", pollID, "error", err)
	}

	if m.metrics != nil {
		m.metrics.PollsTotal.WithLabelValues("closed").Inc()
	}
	m.logger.Info("poll closed", "poll", pollID)
}

// CloseLatestInChannel closes the most recent open poll in a channel ahead
// of schedule. Only the creator or an admin may do this.
func (m *Manager) CloseLatestInChannel(ctx context.Context, channelID, userID string, isAdmin bool) (Outcome, error) {
	open, err := m.store.ListOpenPolls(ctx)
	if err != nil {
		return Outcome{}, fmt.Errorf("list open polls: %w", err)
	}

	var poll *store.Poll
	for _, p := range open {
		if p.ChannelID == channelID {
			poll = p
			break
		}
	}
	if poll == nil {
		return Outcome{Text: "There's no open poll in this channel."}, nil
	}
	if poll.CreatorID != userID && !isAdmin {
		return Outcome{Text: "Only the poll creator or an admin can close this poll."}, nil
	}

	m.sched.Cancel(closeTaskID(poll.ID))
	m.ClosePoll(ctx, poll.ID)
	return Outcome{OK: true, Text: "Poll closed."}, nil
}

// Rearm reschedules close timers for polls that were open when the process
// last stopped. Overdue polls close immediately.
func (m *Manager) Rearm(ctx context.Context) error {
	open, err := m.store.ListOpenPolls(ctx)
	if err != nil {
		return fmt.Errorf("list open polls: %w", err)
	}

	now := m.now()
	for _, poll := range open {
		delay := poll.EndsAt.Sub(now)
		if delay < 0 {
			delay = 0
		}
		id := poll.ID
		m.sched.ScheduleOnce(closeTaskID(id), delay, func() {
			m.ClosePoll(context.Background(), id)
		})
		m.logger.Info("rearmed poll close", "poll", id, "delay", delay)
	}
	return nil
}

// formatResults renders the results message: every option with its count,
// then the winner line. Ties list every leading option.
func formatResults(poll *store.Poll, tally map[int]int) string {
	var b strings.Builder
	fmt.Fprintf(&b, "📊 *Poll results: %s*\n", poll.Topic)

	max := 0
	for i, option := range poll.Options {
		count := tally[i]
		fmt.Fprintf(&b, "• %s: %d\n", option, count)
		if count > max {
			max = count
		}
	}

	if max == 0 {
		b.WriteString("No votes were cast.")
		return b.String()
	}

	var winners []string
	for i, option := range poll.Options {
		if tally[i] == max {
			winners = append(winners, "*"+option+"*")
		}
	}
	if len(winners) == 1 {
		fmt.Fprintf(&b, "Winner: %s", winners[0])
	} else {
		fmt.Fprintf(&b, "It's a tie between %s", strings.Join(winners, " and "))
	}
	return b.String()
}

func closeTaskID(pollID string) string { return "poll-close-" + pollID }
