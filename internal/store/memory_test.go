package store

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestMemoryStore_UserUpsert(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()

	if _, err := s.GetUser(ctx, "U1"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}

	if err := s.UpsertUser(ctx, &User{SlackID: "U1", FirstName: "Ada", LastName: "Lovelace", Department: "Engineering"}); err != nil {
		t.Fatal(err)
	}
	if err := s.UpsertUser(ctx, &User{SlackID: "U1", FirstName: "Ada", LastName: "Lovelace", Department: "Research"}); err != nil {
		t.Fatal(err)
	}

	user, err := s.GetUser(ctx, "U1")
	if err != nil {
		t.Fatal(err)
	}
	if user.Department != "Research" {
		t.Errorf("upsert did not replace department: %s", user.Department)
	}
	if user.FullName() != "Ada Lovelace" {
		t.Errorf("unexpected full name: %s", user.FullName())
	}

	users, err := s.ListUsers(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(users) != 1 {
		t.Errorf("expected 1 user, got %d", len(users))
	}
}

func TestMemoryStore_CloseMatchOnce(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()

	match := &Match{ID: "m1", User1: "UA", User2: "UB", ChannelID: "C1", Status: MatchActive}
	if err := s.CreateMatch(ctx, match); err != nil {
		t.Fatal(err)
	}

	closedAt := time.Now()
	did, err := s.CloseMatch(ctx, "m1", "they talked about coffee", closedAt)
	if err != nil || !did {
		t.Fatalf("first close: did=%v err=%v", did, err)
	}

	did, err = s.CloseMatch(ctx, "m1", "second summary", closedAt)
	if err != nil {
		t.Fatal(err)
	}
	if did {
		t.Error("second close should report no transition")
	}

	got, err := s.GetMatch(ctx, "m1")
	if err != nil {
		t.Fatal(err)
	}
	if got.Summary != "they talked about coffee" {
		t.Errorf("second close overwrote summary: %s", got.Summary)
	}
	if got.Status != MatchClosed {
		t.Errorf("unexpected status: %s", got.Status)
	}

	active, err := s.ListActiveMatches(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(active) != 0 {
		t.Errorf("closed match still listed as active")
	}
}

func TestMemoryStore_VoteReplace(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()

	if err := s.UpsertVote(ctx, &Vote{PollID: "p1", UserID: "U1", OptionIndex: 0}); err != nil {
		t.Fatal(err)
	}
	if err := s.UpsertVote(ctx, &Vote{PollID: "p1", UserID: "U1", OptionIndex: 2}); err != nil {
		t.Fatal(err)
	}
	if err := s.UpsertVote(ctx, &Vote{PollID: "p1", UserID: "U2", OptionIndex: 0}); err != nil {
		t.Fatal(err)
	}

	tally, err := s.TallyVotes(ctx, "p1")
	if err != nil {
		t.Fatal(err)
	}
	if tally[0] != 1 || tally[2] != 1 {
		t.Errorf("unexpected tally: %v", tally)
	}

	total, err := s.CountVotes(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if total != 2 {
		t.Errorf("expected 2 votes counted, got %d", total)
	}
}

func TestMemoryStore_PollByMessage(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()

	poll := &Poll{
		ID:        "p1",
		ChannelID: "C1",
		CreatorID: "U1",
		Topic:     "lunch",
		Options:   []string{"pizza", "kebab"},
		Status:    PollOpen,
		EndsAt:    time.Now().Add(10 * time.Minute),
	}
	if err := s.CreatePoll(ctx, poll); err != nil {
		t.Fatal(err)
	}
	if err := s.SetPollMessage(ctx, "p1", "1700000000.000100"); err != nil {
		t.Fatal(err)
	}

	got, err := s.GetPollByMessage(ctx, "C1", "1700000000.000100")
	if err != nil {
		t.Fatal(err)
	}
	if got.ID != "p1" {
		t.Errorf("wrong poll: %s", got.ID)
	}

	// Mutating the returned copy must not affect stored state.
	got.Options[0] = "mutated"
	fresh, _ := s.GetPoll(ctx, "p1")
	if fresh.Options[0] != "pizza" {
		t.Error("stored poll options were mutated through a returned copy")
	}

	if _, err := s.GetPollByMessage(ctx, "C1", "999.999"); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}

	open, err := s.ListOpenPolls(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(open) != 1 {
		t.Errorf("expected 1 open poll, got %d", len(open))
	}

	if did, _ := s.ClosePoll(ctx, "p1"); !did {
		t.Fatal("close should transition")
	}
	if did, _ := s.ClosePoll(ctx, "p1"); did {
		t.Error("second close should not transition")
	}
}

func TestMemoryStore_FeedbackOrder(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()

	_ = s.AddFeedback(ctx, &Feedback{ID: "f1", Category: "general", Content: "older"})
	_ = s.AddFeedback(ctx, &Feedback{ID: "f2", Category: "bug", Content: "newer"})

	list, err := s.ListFeedback(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(list) != 2 || list[0].ID != "f2" {
		t.Errorf("expected newest first, got %+v", list)
	}
}
