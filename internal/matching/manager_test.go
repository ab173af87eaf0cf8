package matching

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/brewcrew/barista/internal/scheduler"
	"github.com/brewcrew/barista/internal/store"
)

type fakeConvs struct {
	mu          sync.Mutex
	openErr     error
	nextChannel int
	opened      [][]string
	messages    map[string][]string
	notices     map[string][]string
	history     map[string][]Message
	closed      []string
}

func newFakeConvs() *fakeConvs {
	return &fakeConvs{
		messages: make(map[string][]string),
		notices:  make(map[string][]string),
		history:  make(map[string][]Message),
	}
}

func (f *fakeConvs) OpenConversation(ctx context.Context, userIDs []string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.openErr != nil {
		return "", f.openErr
	}
	f.nextChannel++
	f.opened = append(f.opened, userIDs)
	return fmt.Sprintf("C%d", f.nextChannel), nil
}

func (f *fakeConvs) History(ctx context.Context, channelID string, limit int) ([]Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.history[channelID], nil
}

func (f *fakeConvs) PostMessage(ctx context.Context, channelID, text string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.messages[channelID] = append(f.messages[channelID], text)
	return nil
}

func (f *fakeConvs) Notify(ctx context.Context, userID, text string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.notices[userID] = append(f.notices[userID], text)
	return nil
}

func (f *fakeConvs) CloseConversation(ctx context.Context, channelID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed = append(f.closed, channelID)
	return nil
}

type fakeLLM struct {
	reply string
	err   error
}

func (f *fakeLLM) Complete(ctx context.Context, system, prompt string) (string, error) {
	return f.reply, f.err
}

func testManager(t *testing.T) (*Manager, *store.MemoryStore, *scheduler.ManualScheduler, *fakeConvs, *time.Time) {
	t.Helper()
	st := store.NewMemoryStore()
	sched := scheduler.NewManual()
	convs := newFakeConvs()
	now := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	clock := &now

	m := NewManager(
		Config{
			Cooldown:     5 * time.Minute,
			WaitTimeout:  5 * time.Minute,
			ChatDuration: 5 * time.Minute,
			AdminChannel: "CADMIN",
		},
		st, sched, convs,
		&fakeLLM{reply: "What's your favorite coffee?"},
		slog.New(slog.NewTextHandler(io.Discard, nil)),
		nil,
		WithNow(func() time.Time { return *clock }),
	)
	return m, st, sched, convs, clock
}

func TestRequestMatch_QueuesFirstUser(t *testing.T) {
	m, _, sched, _, _ := testManager(t)

	out, err := m.RequestMatch(context.Background(), "U1")
	if err != nil {
		t.Fatal(err)
	}
	if out.Matched {
		t.Error("first user should not be matched")
	}
	if !strings.Contains(out.Text, "pool") {
		t.Errorf("unexpected reply: %q", out.Text)
	}
	if m.PoolSize() != 1 {
		t.Errorf("pool size = %d, want 1", m.PoolSize())
	}
	if delay, ok := sched.Delay("coffee-timeout-U1"); !ok || delay != 5*time.Minute {
		t.Errorf("timeout not scheduled: %v %v", delay, ok)
	}
}

func TestRequestMatch_PairsTwoUsers(t *testing.T) {
	m, st, sched, convs, _ := testManager(t)
	ctx := context.Background()

	if _, err := m.RequestMatch(ctx, "U1"); err != nil {
		t.Fatal(err)
	}
	out, err := m.RequestMatch(ctx, "U2")
	if err != nil {
		t.Fatal(err)
	}
	if !out.Matched {
		t.Fatalf("second user should be matched: %q", out.Text)
	}
	if m.PoolSize() != 0 {
		t.Errorf("pool not drained: %d", m.PoolSize())
	}
	if sched.Pending("coffee-timeout-U1") {
		t.Error("partner timeout should be cancelled on match")
	}

	matches, _ := st.ListActiveMatches(ctx)
	if len(matches) != 1 {
		t.Fatalf("expected 1 active match, got %d", len(matches))
	}
	match := matches[0]
	if match.ChannelID != "C1" {
		t.Errorf("unexpected channel: %s", match.ChannelID)
	}
	if !sched.Pending("match-close-" + match.ID) {
		t.Error("close task not scheduled")
	}
	if len(convs.messages["C1"]) != 1 || !strings.Contains(convs.messages["C1"][0], "Icebreaker") {
		t.Errorf("icebreaker not posted: %v", convs.messages["C1"])
	}
}

func TestRequestMatch_Cooldown(t *testing.T) {
	m, _, _, _, clock := testManager(t)
	ctx := context.Background()

	if _, err := m.RequestMatch(ctx, "U1"); err != nil {
		t.Fatal(err)
	}

	*clock = clock.Add(time.Minute)
	out, err := m.RequestMatch(ctx, "U1")
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out.Text, "4 minute") {
		t.Errorf("expected 4 minute cooldown notice, got %q", out.Text)
	}

	// Past the cooldown the user is still waiting in the pool.
	*clock = clock.Add(5 * time.Minute)
	out, err = m.RequestMatch(ctx, "U1")
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out.Text, "already in the waiting pool") {
		t.Errorf("unexpected reply: %q", out.Text)
	}
}

func TestRequestMatch_SucceedsAfterExpiryAndCooldown(t *testing.T) {
	m, _, sched, _, clock := testManager(t)
	ctx := context.Background()

	if _, err := m.RequestMatch(ctx, "U1"); err != nil {
		t.Fatal(err)
	}
	*clock = clock.Add(5 * time.Minute)
	sched.Fire("coffee-timeout-U1")

	*clock = clock.Add(time.Minute)
	out, err := m.RequestMatch(ctx, "U1")
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out.Text, "pool") || strings.Contains(out.Text, "already") {
		t.Errorf("re-request after expiry should enter the pool: %q", out.Text)
	}
	if m.PoolSize() != 1 {
		t.Errorf("pool size = %d, want 1", m.PoolSize())
	}
}

func TestExpireWaitingUser(t *testing.T) {
	m, _, sched, convs, _ := testManager(t)
	ctx := context.Background()

	if _, err := m.RequestMatch(ctx, "U1"); err != nil {
		t.Fatal(err)
	}
	if !sched.Fire("coffee-timeout-U1") {
		t.Fatal("timeout task missing")
	}
	if m.PoolSize() != 0 {
		t.Error("expired user still in pool")
	}
	if len(convs.notices["U1"]) != 1 {
		t.Errorf("expected one DM, got %v", convs.notices["U1"])
	}

	// A timeout that races a match is a no-op once the user left the pool.
	m.ExpireWaitingUser(ctx, "U1")
	if len(convs.notices["U1"]) != 1 {
		t.Error("no-op expiry sent a DM")
	}
}

func TestRequestMatch_RollbackOnOpenFailure(t *testing.T) {
	m, st, sched, convs, _ := testManager(t)
	ctx := context.Background()

	if _, err := m.RequestMatch(ctx, "U1"); err != nil {
		t.Fatal(err)
	}
	convs.openErr = errors.New("slack unavailable")

	if _, err := m.RequestMatch(ctx, "U2"); err == nil {
		t.Fatal("expected error from failed conversation open")
	}
	if m.PoolSize() != 1 {
		t.Errorf("partner not returned to pool: size %d", m.PoolSize())
	}
	if !sched.Pending("coffee-timeout-U1") {
		t.Error("partner timeout not re-armed")
	}
	matches, _ := st.ListMatches(ctx)
	if len(matches) != 0 {
		t.Error("no match should be persisted on failure")
	}
}

func TestCloseMatch_SummaryAndIdempotence(t *testing.T) {
	m, st, sched, convs, _ := testManager(t)
	ctx := context.Background()

	_, _ = m.RequestMatch(ctx, "U1")
	out, _ := m.RequestMatch(ctx, "U2")
	if !out.Matched {
		t.Fatal("setup: no match")
	}
	matches, _ := st.ListActiveMatches(ctx)
	match := matches[0]

	convs.history[match.ChannelID] = []Message{
		{UserID: "BBOT", Text: "icebreaker", FromBot: true},
		{UserID: "U1", Text: "hi!"},
		{UserID: "U2", Text: "hello!"},
	}
	m.llm = &fakeLLM{reply: "They greeted each other warmly."}

	if !sched.Fire("match-close-" + match.ID) {
		t.Fatal("close task missing")
	}

	got, _ := st.GetMatch(ctx, match.ID)
	if got.Status != store.MatchClosed {
		t.Fatal("match not closed")
	}
	if got.Summary != "They greeted each other warmly." {
		t.Errorf("unexpected summary: %q", got.Summary)
	}
	if len(convs.messages["CADMIN"]) != 1 {
		t.Errorf("expected one admin report, got %v", convs.messages["CADMIN"])
	}
	// Icebreaker plus closing notice.
	if len(convs.messages[match.ChannelID]) != 2 {
		t.Errorf("expected closing notice, got %v", convs.messages[match.ChannelID])
	}
	if !sched.Pending("match-archive-" + match.ID) {
		t.Error("archive task not scheduled")
	}

	m.CloseMatch(ctx, match.ID)
	if len(convs.messages["CADMIN"]) != 1 || len(convs.messages[match.ChannelID]) != 2 {
		t.Error("second close sent messages again")
	}
}

func TestCloseMatch_NoHumanMessages(t *testing.T) {
	m, st, sched, convs, _ := testManager(t)
	ctx := context.Background()

	_, _ = m.RequestMatch(ctx, "U1")
	_, _ = m.RequestMatch(ctx, "U2")
	matches, _ := st.ListActiveMatches(ctx)
	match := matches[0]

	convs.history[match.ChannelID] = []Message{
		{UserID: "BBOT", Text: "icebreaker", FromBot: true},
	}
	sched.Fire("match-close-" + match.ID)

	got, _ := st.GetMatch(ctx, match.ID)
	if got.Summary != noConversationSummary {
		t.Errorf("unexpected summary: %q", got.Summary)
	}
}

func TestRearm(t *testing.T) {
	m, st, sched, _, clock := testManager(t)
	ctx := context.Background()

	overdue := &store.Match{ID: "m-old", User1: "U1", User2: "U2", ChannelID: "C9",
		Status: store.MatchActive, CreatedAt: clock.Add(-10 * time.Minute)}
	fresh := &store.Match{ID: "m-new", User1: "U3", User2: "U4", ChannelID: "C10",
		Status: store.MatchActive, CreatedAt: clock.Add(-2 * time.Minute)}
	_ = st.CreateMatch(ctx, overdue)
	_ = st.CreateMatch(ctx, fresh)

	if err := m.Rearm(ctx); err != nil {
		t.Fatal(err)
	}

	if delay, ok := sched.Delay("match-close-m-old"); !ok || delay != 0 {
		t.Errorf("overdue match should close immediately: %v %v", delay, ok)
	}
	if delay, ok := sched.Delay("match-close-m-new"); !ok || delay != 3*time.Minute {
		t.Errorf("fresh match delay = %v %v, want 3m", delay, ok)
	}
}
