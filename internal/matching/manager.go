// Package matching pairs users for coffee chats.
//
// Users enter a waiting pool; the first two waiting users are paired into a
// fresh group conversation, given an icebreaker question, and the chat is
// closed and summarized after a fixed duration. Waiting users who find no
// partner in time are notified and removed.
package matching

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/brewcrew/barista/internal/observability"
	"github.com/brewcrew/barista/internal/scheduler"
	"github.com/brewcrew/barista/internal/store"
)

// noConversationSummary is recorded when a match produced no human messages.
const noConversationSummary = "No conversation took place during this match."

// Message is one entry of a conversation history.
type Message struct {
	UserID  string
	Text    string
	FromBot bool
}

// Conversations abstracts the chat platform operations the manager needs.
type Conversations interface {
	// OpenConversation opens a group conversation with the given users and
	// returns its channel ID.
	OpenConversation(ctx context.Context, userIDs []string) (string, error)

	// History returns up to limit recent messages from a channel.
	History(ctx context.Context, channelID string, limit int) ([]Message, error)

	// PostMessage posts a message to a channel.
	PostMessage(ctx context.Context, channelID, text string) error

	// Notify sends a direct message to a single user.
	Notify(ctx context.Context, userID, text string) error

	// CloseConversation archives or leaves a conversation.
	CloseConversation(ctx context.Context, channelID string) error
}

// Config holds the matching timings.
type Config struct {
	Cooldown     time.Duration
	WaitTimeout  time.Duration
	ChatDuration time.Duration
	// AdminChannel receives match summaries. Empty disables reports.
	AdminChannel string
}

// Manager owns the waiting pool and the match lifecycle.
type Manager struct {
	cfg     Config
	store   store.Store
	sched   scheduler.Scheduler
	convs   Conversations
	llm     Completer
	logger  *slog.Logger
	metrics *observability.Metrics

	mu          sync.Mutex
	pool        []string
	lastRequest map[string]time.Time

	now func() time.Time
}

// Completer is the LLM surface used for icebreakers and summaries.
type Completer interface {
	Complete(ctx context.Context, system, prompt string) (string, error)
}

// Option customizes a Manager.
type Option func(*Manager)

// WithNow overrides the clock; used in tests.
func WithNow(now func() time.Time) Option {
	return func(m *Manager) { m.now = now }
}

// NewManager creates a Manager. metrics may be nil.
func NewManager(cfg Config, st store.Store, sched scheduler.Scheduler, convs Conversations, llm Completer, logger *slog.Logger, metrics *observability.Metrics, opts ...Option) *Manager {
	m := &Manager{
		cfg:         cfg,
		store:       st,
		sched:       sched,
		convs:       convs,
		llm:         llm,
		logger:      logger.With("component", "matching"),
		metrics:     metrics,
		lastRequest: make(map[string]time.Time),
		now:         time.Now,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Outcome is the user-facing result of a match request.
type Outcome struct {
	// Matched is true when a partner was found immediately.
	Matched bool
	Text    string
}

// RequestMatch handles a /coffee request from userID.
func (m *Manager) RequestMatch(ctx context.Context, userID string) (Outcome, error) {
	m.mu.Lock()

	now := m.now()
	if last, ok := m.lastRequest[userID]; ok {
		elapsed := now.Sub(last)
		if elapsed < m.cfg.Cooldown {
			remaining := int(m.cfg.Cooldown.Minutes()) - int(elapsed.Minutes())
			m.mu.Unlock()
			return Outcome{Text: fmt.Sprintf("You requested a coffee chat recently. Please try again in %d minute(s).", remaining)}, nil
		}
	}

	for _, waiting := range m.pool {
		if waiting == userID {
			m.mu.Unlock()
			return Outcome{Text: "You're already in the waiting pool. Hang tight, we'll pair you up as soon as someone joins!"}, nil
		}
	}

	m.lastRequest[userID] = now

	if len(m.pool) > 0 {
		partner := m.pool[0]
		m.pool = m.pool[1:]
		m.setPoolGauge()
		m.mu.Unlock()

		m.sched.Cancel(timeoutTaskID(partner))
		return m.startMatch(ctx, userID, partner)
	}

	m.pool = append(m.pool, userID)
	m.setPoolGauge()
	m.mu.Unlock()

	m.sched.ScheduleOnce(timeoutTaskID(userID), m.cfg.WaitTimeout, func() {
		m.ExpireWaitingUser(context.Background(), userID)
	})
	m.logger.Info("user joined waiting pool", "user", userID)
	return Outcome{Text: fmt.Sprintf("You're in the pool! We'll pair you up as soon as someone else wants a coffee. Your request expires in %d minutes.", int(m.cfg.WaitTimeout.Minutes()))}, nil
}

// startMatch opens the conversation and persists the match. On failure the
// partner is returned to the front of the pool with a fresh timeout.
func (m *Manager) startMatch(ctx context.Context, userID, partner string) (Outcome, error) {
	channelID, err := m.convs.OpenConversation(ctx, []string{userID, partner})
	if err != nil {
		m.requeue(partner)
		return Outcome{}, fmt.Errorf("open match conversation: %w", err)
	}

	match := &store.Match{
		ID:        uuid.NewString(),
		User1:     userID,
		User2:     partner,
		ChannelID: channelID,
		Status:    store.MatchActive,
		CreatedAt: m.now(),
	}
	if err := m.store.CreateMatch(ctx, match); err != nil {
		m.requeue(partner)
		return Outcome{}, fmt.Errorf("persist match: %w", err)
	}

	minutes := int(m.cfg.ChatDuration.Minutes())
	intro := fmt.Sprintf("☕ <@%s> and <@%s>, you've been matched for a coffee chat! This chat closes in %d minutes.\n\nIcebreaker: %s",
		userID, partner, minutes, m.icebreaker(ctx))
	if err := m.convs.PostMessage(ctx, channelID, intro); err != nil {
		m.logger.Warn("failed to post icebreaker", "match", match.ID, "error", err)
	}

	m.sched.ScheduleOnce(closeTaskID(match.ID), m.cfg.ChatDuration, func() {
		m.CloseMatch(context.Background(), match.ID)
	})

	if m.metrics != nil {
		m.metrics.MatchesTotal.WithLabelValues("created").Inc()
	}
	m.logger.Info("match created", "match", match.ID, "user1", userID, "user2", partner, "channel", channelID)
	return Outcome{Matched: true, Text: fmt.Sprintf("You've been matched with <@%s>! Check your new group chat.", partner)}, nil
}

// ExpireWaitingUser removes a user whose wait timed out. A no-op when the
// user was matched before the timer fired.
func (m *Manager) ExpireWaitingUser(ctx context.Context, userID string) {
	m.mu.Lock()
	found := false
	for i, waiting := range m.pool {
		if waiting == userID {
			m.pool = append(m.pool[:i], m.pool[i+1:]...)
			found = true
			break
		}
	}
	m.setPoolGauge()
	m.mu.Unlock()

	if !found {
		return
	}

	if err := m.convs.Notify(ctx, userID, "No coffee partner turned up this time. Try `/coffee` again later!"); err != nil {
		m.logger.Warn("failed to notify expired user", "user", userID, "error", err)
	}
	if m.metrics != nil {
		m.metrics.MatchesTotal.WithLabelValues("expired").Inc()
	}
	m.logger.Info("waiting user expired", "user", userID)
}

// CloseMatch summarizes and closes a match. Safe to call more than once;
// only the first call past the store transition sends messages.
func (m *Manager) CloseMatch(ctx context.Context, matchID string) {
	match, err := m.store.GetMatch(ctx, matchID)
	if err != nil {
		m.logger.Error("close match: load failed", "match", matchID, "error", err)
		return
	}
	if match.Status == store.MatchClosed {
		return
	}

	summary := m.summarize(ctx, match.ChannelID)

	didClose, err := m.store.CloseMatch(ctx, matchID, summary, m.now())
	if err != nil {
		m.logger.Error("close match: transition failed", "match", matchID, "error", err)
		return
	}
	if !didClose {
		return
	}

	if m.cfg.AdminChannel != "" {
		report := fmt.Sprintf("Coffee chat between <@%s> and <@%s> ended.\nSummary: %s", match.User1, match.User2, summary)
		if err := m.convs.PostMessage(ctx, m.cfg.AdminChannel, report); err != nil {
			m.logger.Warn("failed to post admin report", "match", matchID, "error", err)
		}
	}

	if err := m.convs.PostMessage(ctx, match.ChannelID, "⏰ Time's up! Hope you enjoyed the chat. This conversation will be archived shortly."); err != nil {
		m.logger.Warn("failed to post closing notice", "match", matchID, "error", err)
	}

	m.sched.ScheduleOnce(archiveTaskID(matchID), time.Minute, func() {
		if err := m.convs.CloseConversation(context.Background(), match.ChannelID); err != nil {
			m.logger.Warn("failed to archive match channel", "match", matchID, "error", err)
		}
	})

	if m.metrics != nil {
		m.metrics.MatchesTotal.WithLabelValues("closed").Inc()
	}
	m.logger.Info("match closed", "match", matchID)
}

// summarize produces a one-sentence summary of the human messages in the
// match channel. LLM failures degrade to a fixed notice.
func (m *Manager) summarize(ctx context.Context, channelID string) string {
	history, err := m.convs.History(ctx, channelID, 50)
	if err != nil {
		m.logger.Warn("failed to fetch match history", "channel", channelID, "error", err)
		return "Summary unavailable."
	}

	var lines []string
	for _, msg := range history {
		if msg.FromBot {
			continue
		}
		lines = append(lines, fmt.Sprintf("%s: %s", msg.UserID, msg.Text))
	}
	if len(lines) == 0 {
		return noConversationSummary
	}

	summary, err := m.llm.Complete(ctx,
		"You summarize casual workplace conversations. Reply with exactly one sentence.",
		"Summarize this coffee chat:\n"+strings.Join(lines, "\n"))
	if err != nil {
		m.logger.Warn("summary generation failed", "channel", channelID, "error", err)
		return "Summary unavailable."
	}
	return strings.TrimSpace(summary)
}

// Rearm reschedules close timers for matches that were active when the
// process last stopped. Overdue matches close immediately.
func (m *Manager) Rearm(ctx context.Context) error {
	active, err := m.store.ListActiveMatches(ctx)
	if err != nil {
		return fmt.Errorf("list active matches: %w", err)
	}

	now := m.now()
	for _, match := range active {
		delay := match.CreatedAt.Add(m.cfg.ChatDuration).Sub(now)
		if delay < 0 {
			delay = 0
		}
		id := match.ID
		m.sched.ScheduleOnce(closeTaskID(id), delay, func() {
			m.CloseMatch(context.Background(), id)
		})
		m.logger.Info("rearmed match close", "match", id, "delay", delay)
	}
	return nil
}

// PoolSize returns the number of users currently waiting.
func (m *Manager) PoolSize() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.pool)
}

// requeue puts a partner back at the front of the pool with a fresh
// timeout after a failed match attempt.
func (m *Manager) requeue(userID string) {
	m.mu.Lock()
	m.pool = append([]string{userID}, m.pool...)
	m.setPoolGauge()
	m.mu.Unlock()

	m.sched.ScheduleOnce(timeoutTaskID(userID), m.cfg.WaitTimeout, func() {
		m.ExpireWaitingUser(context.Background(), userID)
	})
}

func (m *Manager) setPoolGauge() {
	if m.metrics != nil {
		m.metrics.WaitingPool.Set(float64(len(m.pool)))
	}
}

func (m *Manager) icebreaker(ctx context.Context) string {
	question, err := m.llm.Complete(ctx,
		"You write short, friendly icebreaker questions for coworkers meeting over coffee. Reply with exactly one question.",
		"Give me an icebreaker question.")
	if err != nil || strings.TrimSpace(question) == "" {
		return fallbackIcebreakers[rand.Intn(len(fallbackIcebreakers))]
	}
	return strings.TrimSpace(question)
}

func timeoutTaskID(userID string) string { return "coffee-timeout-" + userID }
func closeTaskID(matchID string) string  { return "match-close-" + matchID }
func archiveTaskID(matchID string) string {
	return "match-archive-" + matchID
}
