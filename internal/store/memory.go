package store

import (
	"context"
	"sort"
	"sync"
	"time"
)

// MemoryStore is an in-memory Store implementation used in tests and as a
// reference for the contract.
type MemoryStore struct {
	mu sync.RWMutex

	users    map[string]*User
	matches  map[string]*Match
	polls    map[string]*Poll
	votes    map[string]map[string]*Vote // pollID -> userID -> vote
	feedback []*Feedback
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		users:   make(map[string]*User),
		matches: make(map[string]*Match),
		polls:   make(map[string]*Poll),
		votes:   make(map[string]map[string]*Vote),
	}
}

func (s *MemoryStore) UpsertUser(ctx context.Context, user *User) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	clone := *user
	now := time.Now()
	if existing, ok := s.users[user.SlackID]; ok {
		clone.CreatedAt = existing.CreatedAt
	} else {
		clone.CreatedAt = now
	}
	clone.UpdatedAt = now
	s.users[user.SlackID] = &clone
	return nil
}

func (s *MemoryStore) GetUser(ctx context.Context, slackID string) (*User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	user, ok := s.users[slackID]
	if !ok {
		return nil, ErrNotFound
	}
	clone := *user
	return &clone, nil
}

func (s *MemoryStore) ListUsers(ctx context.Context) ([]*User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*User, 0, len(s.users))
	for _, user := range s.users {
		clone := *user
		out = append(out, &clone)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].SlackID < out[j].SlackID })
	return out, nil
}

func (s *MemoryStore) CreateMatch(ctx context.Context, match *Match) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	clone := *match
	if clone.CreatedAt.IsZero() {
		clone.CreatedAt = time.Now()
	}
	s.matches[match.ID] = &clone
	return nil
}

func (s *MemoryStore) GetMatch(ctx context.Context, id string) (*Match, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	match, ok := s.matches[id]
	if !ok {
		return nil, ErrNotFound
	}
	clone := *match
	return &clone, nil
}

func (s *MemoryStore) CloseMatch(ctx context.Context, id, summary string, closedAt time.Time) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	match, ok := s.matches[id]
	if !ok {
		return false, ErrNotFound
	}
	if match.Status == MatchClosed {
		return false, nil
	}
	match.Status = MatchClosed
	match.Summary = summary
	match.ClosedAt = closedAt
	return true, nil
}

func (s *MemoryStore) ListMatches(ctx context.Context) ([]*Match, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.listMatchesLocked(func(*Match) bool { return true }), nil
}

func (s *MemoryStore) ListActiveMatches(ctx context.Context) ([]*Match, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.listMatchesLocked(func(m *Match) bool { return m.Status == MatchActive }), nil
}

func (s *MemoryStore) listMatchesLocked(keep func(*Match) bool) []*Match {
	out := make([]*Match, 0, len(s.matches))
	for _, match := range s.matches {
		if keep(match) {
			clone := *match
			out = append(out, &clone)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out
}

func (s *MemoryStore) CreatePoll(ctx context.Context, poll *Poll) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	clone := *poll
	clone.Options = append([]string(nil), poll.Options...)
	if clone.CreatedAt.IsZero() {
		clone.CreatedAt = time.Now()
	}
	s.polls[poll.ID] = &clone
	return nil
}

func (s *MemoryStore) GetPoll(ctx context.Context, id string) (*Poll, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	poll, ok := s.polls[id]
	if !ok {
		return nil, ErrNotFound
	}
	return clonePoll(poll), nil
}

func (s *MemoryStore) GetPollByMessage(ctx context.Context, channelID, messageTS string) (*Poll, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, poll := range s.polls {
		if poll.ChannelID == channelID && poll.MessageTS == messageTS {
			return clonePoll(poll), nil
		}
	}
	return nil, ErrNotFound
}

func (s *MemoryStore) SetPollMessage(ctx context.Context, id, messageTS string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	poll, ok := s.polls[id]
	if !ok {
		return ErrNotFound
	}
	poll.MessageTS = messageTS
	return nil
}

func (s *MemoryStore) ClosePoll(ctx context.Context, id string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	poll, ok := s.polls[id]
	if !ok {
		return false, ErrNotFound
	}
	if poll.Status == PollClosed {
		return false, nil
	}
	poll.Status = PollClosed
	return true, nil
}

func (s *MemoryStore) ListPolls(ctx context.Context) ([]*Poll, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.listPollsLocked(func(*Poll) bool { return true }), nil
}

func (s *MemoryStore) ListOpenPolls(ctx context.Context) ([]*Poll, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.listPollsLocked(func(p *Poll) bool { return p.Status == PollOpen }), nil
}

func (s *MemoryStore) listPollsLocked(keep func(*Poll) bool) []*Poll {
	out := make([]*Poll, 0, len(s.polls))
	for _, poll := range s.polls {
		if keep(poll) {
			out = append(out, clonePoll(poll))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out
}

func (s *MemoryStore) UpsertVote(ctx context.Context, vote *Vote) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	byUser, ok := s.votes[vote.PollID]
	if !ok {
		byUser = make(map[string]*Vote)
		s.votes[vote.PollID] = byUser
	}
	clone := *vote
	byUser[vote.UserID] = &clone
	return nil
}

func (s *MemoryStore) TallyVotes(ctx context.Context, pollID string) (map[int]int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	tally := make(map[int]int)
	for _, vote := range s.votes[pollID] {
		tally[vote.OptionIndex]++
	}
	return tally, nil
}

func (s *MemoryStore) CountVotes(ctx context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	total := 0
	for _, byUser := range s.votes {
		total += len(byUser)
	}
	return total, nil
}

func (s *MemoryStore) AddFeedback(ctx context.Context, feedback *Feedback) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	clone := *feedback
	if clone.CreatedAt.IsZero() {
		clone.CreatedAt = time.Now()
	}
	s.feedback = append(s.feedback, &clone)
	return nil
}

func (s *MemoryStore) ListFeedback(ctx context.Context) ([]*Feedback, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*Feedback, 0, len(s.feedback))
	for i := len(s.feedback) - 1; i >= 0; i-- {
		clone := *s.feedback[i]
		out = append(out, &clone)
	}
	return out, nil
}

func (s *MemoryStore) Ping(ctx context.Context) error { return nil }

func (s *MemoryStore) Close() error { return nil }

func clonePoll(poll *Poll) *Poll {
	clone := *poll
	clone.Options = append([]string(nil), poll.Options...)
	return &clone
}

var _ Store = (*MemoryStore)(nil)
