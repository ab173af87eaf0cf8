// Package feedback collects anonymous feedback and relays it to admins.
package feedback

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"

	"github.com/brewcrew/barista/internal/store"
)

// Categories accepted by Submit. Anything else falls back to "general".
var categories = map[string]bool{
	"general": true,
	"bug":     true,
	"idea":    true,
}

// Notifier posts messages to a channel.
type Notifier interface {
	PostMessage(ctx context.Context, channelID, text string) error
}

// Service stores feedback entries without any author identity.
type Service struct {
	store        store.Store
	notifier     Notifier
	adminChannel string
	logger       *slog.Logger
}

// NewService creates a Service. An empty adminChannel disables relaying.
func NewService(st store.Store, notifier Notifier, adminChannel string, logger *slog.Logger) *Service {
	return &Service{
		store:        st,
		notifier:     notifier,
		adminChannel: adminChannel,
		logger:       logger.With("component", "feedback"),
	}
}

// Submit stores one feedback entry and relays it to the admin channel.
// The relay is best-effort; the entry is kept even when it fails.
func (s *Service) Submit(ctx context.Context, category, content string) (string, error) {
	content = strings.TrimSpace(content)
	if content == "" {
		return "Please include your feedback, e.g. `/feedback bug the poll buttons are broken`.", nil
	}

	category = strings.ToLower(strings.TrimSpace(category))
	if !categories[category] {
		category = "general"
	}

	entry := &store.Feedback{
		ID:       uuid.NewString(),
		Category: category,
		Content:  content,
	}
	if err := s.store.AddFeedback(ctx, entry); err != nil {
		return "", fmt.Errorf("store feedback: %w", err)
	}

	if s.adminChannel != "" {
		relay := fmt.Sprintf("📬 New anonymous feedback (*%s*):\n> %s", category, content)
		if err := s.notifier.PostMessage(ctx, s.adminChannel, relay); err != nil {
			s.logger.Warn("failed to relay feedback", "error", err)
		}
	}

	s.logger.Info("feedback recorded", "category", category)
	return "Thanks! Your feedback was passed on anonymously.", nil
}
