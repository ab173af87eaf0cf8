// Package stats aggregates usage numbers for the admin /stats command.
package stats

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/brewcrew/barista/internal/store"
)

// Snapshot is a point-in-time aggregation of stored activity.
type Snapshot struct {
	Users        int
	ByDepartment map[string]int

	MatchesTotal  int
	MatchesActive int
	MatchesClosed int

	PollsTotal  int
	PollsOpen   int
	PollsClosed int

	Votes int

	FeedbackTotal      int
	FeedbackByCategory map[string]int
}

// Collect builds a Snapshot from the store.
func Collect(ctx context.Context, st store.Store) (*Snapshot, error) {
	snap := &Snapshot{
		ByDepartment:       make(map[string]int),
		FeedbackByCategory: make(map[string]int),
	}

	users, err := st.ListUsers(ctx)
	if err != nil {
		return nil, fmt.Errorf("collect users: %w", err)
	}
	snap.Users = len(users)
	for _, user := range users {
		dept := user.Department
		if dept == "" {
			dept = "unassigned"
		}
		snap.ByDepartment[dept]++
	}

	matches, err := st.ListMatches(ctx)
	if err != nil {
		return nil, fmt.Errorf("collect matches: %w", err)
	}
	snap.MatchesTotal = len(matches)
	for _, match := range matches {
		if match.Status == store.MatchActive {
			snap.MatchesActive++
		} else {
			snap.MatchesClosed++
		}
	}

	polls, err := st.ListPolls(ctx)
	if err != nil {
		return nil, fmt.Errorf("collect polls: %w", err)
	}
	snap.PollsTotal = len(polls)
	for _, poll := range polls {
		if poll.Status == store.PollOpen {
			snap.PollsOpen++
		} else {
			snap.PollsClosed++
		}
	}

	snap.Votes, err = st.CountVotes(ctx)
	if err != nil {
		return nil, fmt.Errorf("collect votes: %w", err)
	}

	entries, err := st.ListFeedback(ctx)
	if err != nil {
		return nil, fmt.Errorf("collect feedback: %w", err)
	}
	snap.FeedbackTotal = len(entries)
	for _, entry := range entries {
		snap.FeedbackByCategory[entry.Category]++
	}

	return snap, nil
}

// Format renders a Snapshot as a Slack markdown report.
func Format(s *Snapshot) string {
	var b strings.Builder
	b.WriteString("*📈 Barista statistics*\n")

	fmt.Fprintf(&b, "*Users:* %d\n", s.Users)
	for _, dept := range sortedKeys(s.ByDepartment) {
		fmt.Fprintf(&b, "  • %s: %d\n", dept, s.ByDepartment[dept])
	}

	fmt.Fprintf(&b, "*Coffee matches:* %d (%d active, %d closed)\n",
		s.MatchesTotal, s.MatchesActive, s.MatchesClosed)
	fmt.Fprintf(&b, "*Polls:* %d (%d open, %d closed), %d votes\n",
		s.PollsTotal, s.PollsOpen, s.PollsClosed, s.Votes)

	fmt.Fprintf(&b, "*Feedback:* %d", s.FeedbackTotal)
	if s.FeedbackTotal > 0 {
		var parts []string
		for _, cat := range sortedKeys(s.FeedbackByCategory) {
			parts = append(parts, fmt.Sprintf("%s %d", cat, s.FeedbackByCategory[cat]))
		}
		fmt.Fprintf(&b, " (%s)", strings.Join(parts, ", "))
	}
	return b.String()
}

func sortedKeys(m map[string]int) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
