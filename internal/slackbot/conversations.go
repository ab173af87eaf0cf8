package slackbot

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/slack-go/slack"

	"github.com/brewcrew/barista/internal/matching"
	"github.com/brewcrew/barista/internal/store"
)

// Conversations implements the chat-platform operations the matching and
// polls managers need on top of the Slack Web API.
type Conversations struct {
	api    API
	logger *slog.Logger
}

// NewConversations creates a Conversations wrapper.
func NewConversations(api API, logger *slog.Logger) *Conversations {
	return &Conversations{api: api, logger: logger.With("component", "slack")}
}

// OpenConversation opens a group conversation with the given users.
func (c *Conversations) OpenConversation(ctx context.Context, userIDs []string) (string, error) {
	channel, _, _, err := c.api.OpenConversationContext(ctx, &slack.OpenConversationParameters{
		Users: userIDs,
	})
	if err != nil {
		return "", fmt.Errorf("open conversation: %w", err)
	}
	return channel.ID, nil
}

// History returns up to limit recent messages from a channel, oldest first.
func (c *Conversations) History(ctx context.Context, channelID string, limit int) ([]matching.Message, error) {
	resp, err := c.api.GetConversationHistoryContext(ctx, &slack.GetConversationHistoryParameters{
		ChannelID: channelID,
		Limit:     limit,
	})
	if err != nil {
		return nil, fmt.Errorf("conversation history: %w", err)
	}

	// Slack returns newest first; reverse for reading order.
	out := make([]matching.Message, 0, len(resp.Messages))
	for i := len(resp.Messages) - 1; i >= 0; i-- {
		msg := resp.Messages[i]
		out = append(out, matching.Message{
			UserID:  msg.User,
			Text:    msg.Text,
			FromBot: msg.BotID != "",
		})
	}
	return out, nil
}

// PostMessage posts a plain message to a channel.
func (c *Conversations) PostMessage(ctx context.Context, channelID, text string) error {
	_, _, err := c.api.PostMessageContext(ctx, channelID, slack.MsgOptionText(text, false))
	if err != nil {
		return fmt.Errorf("post message: %w", err)
	}
	return nil
}

// Notify opens a DM with a single user and posts to it.
func (c *Conversations) Notify(ctx context.Context, userID, text string) error {
	channel, _, _, err := c.api.OpenConversationContext(ctx, &slack.OpenConversationParameters{
		Users: []string{userID},
	})
	if err != nil {
		return fmt.Errorf("open dm: %w", err)
	}
	return c.PostMessage(ctx, channel.ID, text)
}

// CloseConversation closes a conversation.
func (c *Conversations) CloseConversation(ctx context.Context, channelID string) error {
	_, _, err := c.api.CloseConversationContext(ctx, channelID)
	if err != nil {
		return fmt.Errorf("close conversation: %w", err)
	}
	return nil
}

// PostPoll posts the interactive poll message and returns its timestamp.
func (c *Conversations) PostPoll(ctx context.Context, channelID string, poll *store.Poll) (string, error) {
	_, ts, err := c.api.PostMessageContext(ctx, channelID,
		slack.MsgOptionText(pollFallbackText(poll), false),
		slack.MsgOptionBlocks(pollBlocks(poll)...),
	)
	if err != nil {
		return "", fmt.Errorf("post poll: %w", err)
	}
	return ts, nil
}

// DeleteMessage removes a posted message.
func (c *Conversations) DeleteMessage(ctx context.Context, channelID, messageTS string) error {
	_, _, err := c.api.DeleteMessageContext(ctx, channelID, messageTS)
	if err != nil {
		return fmt.Errorf("delete message: %w", err)
	}
	return nil
}

var _ matching.Conversations = (*Conversations)(nil)
