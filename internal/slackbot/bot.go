// Package slackbot connects the managers to Slack over Socket Mode.
//
// Slash commands and block-action button presses arrive through the socket
// connection; replies to the invoking user are ephemeral.
package slackbot

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/slack-go/slack"
	"github.com/slack-go/slack/socketmode"

	"github.com/brewcrew/barista/internal/commands"
	"github.com/brewcrew/barista/internal/feedback"
	"github.com/brewcrew/barista/internal/health"
	"github.com/brewcrew/barista/internal/knowledge"
	"github.com/brewcrew/barista/internal/matching"
	"github.com/brewcrew/barista/internal/observability"
	"github.com/brewcrew/barista/internal/polls"
	"github.com/brewcrew/barista/internal/ratelimit"
	"github.com/brewcrew/barista/internal/scheduler"
	"github.com/brewcrew/barista/internal/store"
)

// Config holds the bot's channel and daily-question settings.
type Config struct {
	HomeChannel  string
	AdminChannel string
	DailyEnabled bool
	DailyHour    int
	DailyMinute  int
}

// Deps are the services the bot dispatches into.
type Deps struct {
	Store     store.Store
	Matching  *matching.Manager
	Polls     *polls.Manager
	Knowledge *knowledge.Service
	Feedback  *feedback.Service
	Health    *health.Checker
	Limiter   *ratelimit.Limiter
	Scheduler scheduler.Scheduler
	Metrics   *observability.Metrics
}

// Bot runs the Socket Mode event loop.
type Bot struct {
	cfg      Config
	api      API
	socket   SocketClient
	deps     Deps
	registry *commands.Registry
	logger   *slog.Logger

	botUserID string
}

// New creates a Bot and registers its command table.
func New(cfg Config, api API, socket SocketClient, deps Deps, logger *slog.Logger) (*Bot, error) {
	b := &Bot{
		cfg:      cfg,
		api:      api,
		socket:   socket,
		deps:     deps,
		registry: commands.NewRegistry(),
		logger:   logger.With("component", "bot"),
	}
	if err := b.registerCommands(); err != nil {
		return nil, fmt.Errorf("register commands: %w", err)
	}
	return b, nil
}

// Run connects to Slack and processes events until the context is
// cancelled or the socket connection fails.
func (b *Bot) Run(ctx context.Context) error {
	auth, err := b.api.AuthTestContext(ctx)
	if err != nil {
		return fmt.Errorf("slack auth: %w", err)
	}
	b.botUserID = auth.UserID
	b.logger.Info("authenticated", "bot_user", auth.UserID, "team", auth.Team)

	if b.cfg.HomeChannel != "" {
		if _, _, err := b.api.PostMessageContext(ctx, b.cfg.HomeChannel,
			slack.MsgOptionText(startupGreeting, false)); err != nil {
			b.logger.Warn("failed to post startup greeting", "error", err)
		}
	}

	if b.cfg.DailyEnabled && b.cfg.HomeChannel != "" {
		err := b.deps.Scheduler.Daily(b.cfg.DailyHour, b.cfg.DailyMinute, func() {
			b.postDailyQuestion(context.Background())
		})
		if err != nil {
			return fmt.Errorf("schedule daily question: %w", err)
		}
	}

	runErr := make(chan error, 1)
	go func() { runErr <- b.socket.Run() }()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case err := <-runErr:
			return fmt.Errorf("socket mode: %w", err)
		case event, ok := <-b.socket.EventChannel():
			if !ok {
				return nil
			}
			b.handleEvent(ctx, event)
		}
	}
}

func (b *Bot) handleEvent(ctx context.Context, event socketmode.Event) {
	switch event.Type {
	case socketmode.EventTypeConnecting:
		b.logger.Info("connecting to socket mode")
	case socketmode.EventTypeConnectionError:
		b.logger.Error("socket mode connection error", "data", event.Data)
	case socketmode.EventTypeConnected:
		b.logger.Info("connected to socket mode")
	case socketmode.EventTypeSlashCommand:
		b.handleSlashCommand(ctx, event)
	case socketmode.EventTypeInteractive:
		b.handleInteractive(ctx, event)
	}
}

func (b *Bot) handleSlashCommand(ctx context.Context, event socketmode.Event) {
	cmd, ok := event.Data.(slack.SlashCommand)
	if !ok {
		b.logger.Warn("unexpected slash command payload", "data", event.Data)
		return
	}
	if event.Request != nil {
		b.socket.Ack(*event.Request)
	}

	name := strings.TrimPrefix(cmd.Command, "/")

	if b.deps.Limiter != nil {
		if allowed, wait := b.deps.Limiter.Allow(cmd.UserID); !allowed {
			b.replyEphemeral(ctx, cmd.ChannelID, cmd.UserID,
				fmt.Sprintf("Easy there! Too many commands. Try again in %d seconds.", int(wait.Seconds())+1))
			b.countCommand(name, "rate_limited")
			return
		}
	}

	inv := commands.Invocation{
		Name:      name,
		Args:      strings.TrimSpace(cmd.Text),
		ChannelID: cmd.ChannelID,
		UserID:    cmd.UserID,
		IsAdmin:   b.isAdmin(ctx, cmd.UserID),
	}

	result, err := b.registry.Execute(ctx, inv)
	if err != nil {
		b.logger.Error("command failed", "command", name, "user", cmd.UserID, "error", err)
		b.replyEphemeral(ctx, cmd.ChannelID, cmd.UserID, "Something went wrong. Please try again.")
		b.countCommand(name, "error")
		return
	}
	if result.Text != "" {
		b.replyEphemeral(ctx, cmd.ChannelID, cmd.UserID, result.Text)
	}
	b.countCommand(name, "ok")
}

func (b *Bot) handleInteractive(ctx context.Context, event socketmode.Event) {
	callback, ok := event.Data.(slack.InteractionCallback)
	if !ok {
		b.logger.Warn("unexpected interactive payload", "data", event.Data)
		return
	}
	if event.Request != nil {
		b.socket.Ack(*event.Request)
	}

	if callback.Type != slack.InteractionTypeBlockActions {
		return
	}

	for _, action := range callback.ActionCallback.BlockActions {
		index, ok := voteIndex(action.ActionID)
		if !ok {
			continue
		}
		ack, err := b.deps.Polls.CastVote(ctx,
			callback.Container.ChannelID, callback.Container.MessageTs,
			callback.User.ID, index)
		if err != nil {
			b.logger.Error("vote failed", "user", callback.User.ID, "error", err)
			continue
		}
		if ack != "" {
			b.replyEphemeral(ctx, callback.Container.ChannelID, callback.User.ID, ack)
		}
	}
}

// isAdmin asks Slack whether the user is a workspace admin or owner.
// Lookup failures deny, never grant.
func (b *Bot) isAdmin(ctx context.Context, userID string) bool {
	user, err := b.api.GetUserInfoContext(ctx, userID)
	if err != nil {
		b.logger.Warn("user info lookup failed", "user", userID, "error", err)
		return false
	}
	return user.IsAdmin || user.IsOwner
}

func (b *Bot) replyEphemeral(ctx context.Context, channelID, userID, text string) {
	if _, err := b.api.PostEphemeralContext(ctx, channelID, userID,
		slack.MsgOptionText(text, false)); err != nil {
		b.logger.Warn("failed to post ephemeral reply", "channel", channelID, "error", err)
	}
}

func (b *Bot) countCommand(name, outcome string) {
	if b.deps.Metrics != nil {
		b.deps.Metrics.CommandsTotal.WithLabelValues(name, outcome).Inc()
	}
}

func (b *Bot) postDailyQuestion(ctx context.Context) {
	question := dailyQuestion()
	if _, _, err := b.api.PostMessageContext(ctx, b.cfg.HomeChannel,
		slack.MsgOptionText("☀️ *Question of the day*\n"+question, false)); err != nil {
		b.logger.Warn("failed to post daily question", "error", err)
		return
	}
	b.logger.Info("posted daily question")
}
