package slackbot

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/brewcrew/barista/internal/commands"
	"github.com/brewcrew/barista/internal/stats"
	"github.com/brewcrew/barista/internal/store"
)

const defaultPollMinutes = 60

const pollUsage = "Usage: `/poll topic | option 1 | option 2 [| more options] [| minutes]`\n" +
	"Example: `/poll Lunch? | Pizza | Kebab | Salad | 30`"

func (b *Bot) registerCommands() error {
	table := []*commands.Command{
		{
			Name:        "coffee",
			Description: "get matched with a coworker for a coffee chat",
			Usage:       "/coffee",
			Handler:     b.handleCoffee,
		},
		{
			Name:        "poll",
			Description: "start a timed poll in this channel",
			Usage:       "/poll topic | option 1 | option 2 [| minutes]",
			Handler:     b.handlePoll,
		},
		{
			Name:        "poll-close",
			Description: "close this channel's open poll early",
			Usage:       "/poll-close",
			Handler:     b.handlePollClose,
		},
		{
			Name:        "ask",
			Description: "ask the knowledge base a question",
			Usage:       "/ask <question>",
			Handler:     b.handleAsk,
		},
		{
			Name:        "reindex",
			Description: "reload the knowledge base from disk",
			Usage:       "/reindex",
			AdminOnly:   true,
			Handler:     b.handleReindex,
		},
		{
			Name:        "feedback",
			Description: "send anonymous feedback (categories: general, bug, idea)",
			Usage:       "/feedback [category] <text>",
			Handler:     b.handleFeedback,
		},
		{
			Name:        "register",
			Description: "register your profile",
			Usage:       "/register <first name> <last name> [department]",
			Handler:     b.handleRegister,
		},
		{
			Name:        "whoami",
			Description: "show your registered profile",
			Usage:       "/whoami",
			Handler:     b.handleWhoami,
		},
		{
			Name:        "department",
			Description: "set your department",
			Usage:       "/department <name>",
			Handler:     b.handleDepartment,
		},
		{
			Name:        "stats",
			Description: "show usage statistics",
			Usage:       "/stats",
			AdminOnly:   true,
			Handler:     b.handleStats,
		},
		{
			Name:        "health",
			Description: "show component health",
			Usage:       "/health",
			AdminOnly:   true,
			Handler:     b.handleHealth,
		},
		{
			Name:        "help",
			Description: "list available commands",
			Usage:       "/help",
			Handler:     b.handleHelp,
		},
	}

	for _, cmd := range table {
		if err := b.registry.Register(cmd); err != nil {
			return err
		}
	}
	return nil
}

func (b *Bot) handleCoffee(ctx context.Context, inv commands.Invocation) (commands.Result, error) {
	outcome, err := b.deps.Matching.RequestMatch(ctx, inv.UserID)
	if err != nil {
		return commands.Result{}, err
	}
	return commands.Result{Text: outcome.Text}, nil
}

func (b *Bot) handlePoll(ctx context.Context, inv commands.Invocation) (commands.Result, error) {
	topic, options, duration, ok := parsePollArgs(inv.Args)
	if !ok {
		return commands.Result{Text: pollUsage}, nil
	}
	outcome, err := b.deps.Polls.CreatePoll(ctx, inv.ChannelID, inv.UserID, topic, options, duration)
	if err != nil {
		return commands.Result{}, err
	}
	return commands.Result{Text: outcome.Text}, nil
}

func (b *Bot) handlePollClose(ctx context.Context, inv commands.Invocation) (commands.Result, error) {
	outcome, err := b.deps.Polls.CloseLatestInChannel(ctx, inv.ChannelID, inv.UserID, inv.IsAdmin)
	if err != nil {
		return commands.Result{}, err
	}
	return commands.Result{Text: outcome.Text}, nil
}

func (b *Bot) handleAsk(ctx context.Context, inv commands.Invocation) (commands.Result, error) {
	answer, err := b.deps.Knowledge.Ask(ctx, inv.Args)
	if err != nil {
		return commands.Result{}, err
	}
	return commands.Result{Text: answer}, nil
}

func (b *Bot) handleReindex(ctx context.Context, inv commands.Invocation) (commands.Result, error) {
	if err := b.deps.Knowledge.Reindex(); err != nil {
		return commands.Result{}, err
	}
	return commands.Result{Text: fmt.Sprintf("Knowledge base reloaded: %d document(s).", b.deps.Knowledge.Count())}, nil
}

func (b *Bot) handleFeedback(ctx context.Context, inv commands.Invocation) (commands.Result, error) {
	category, content := splitFeedback(inv.Args)
	reply, err := b.deps.Feedback.Submit(ctx, category, content)
	if err != nil {
		return commands.Result{}, err
	}
	return commands.Result{Text: reply}, nil
}

func (b *Bot) handleRegister(ctx context.Context, inv commands.Invocation) (commands.Result, error) {
	fields := strings.Fields(inv.Args)
	if len(fields) < 2 {
		return commands.Result{Text: "Usage: `/register <first name> <last name> [department]`"}, nil
	}
	user := &store.User{
		SlackID:    inv.UserID,
		FirstName:  fields[0],
		LastName:   fields[1],
		Department: strings.Join(fields[2:], " "),
	}
	if err := b.deps.Store.UpsertUser(ctx, user); err != nil {
		return commands.Result{}, err
	}
	return commands.Result{Text: fmt.Sprintf("Welcome aboard, %s! You're registered.", user.FirstName)}, nil
}

func (b *Bot) handleWhoami(ctx context.Context, inv commands.Invocation) (commands.Result, error) {
	user, err := b.deps.Store.GetUser(ctx, inv.UserID)
	if err == store.ErrNotFound {
		return commands.Result{Text: "You're not registered yet. Use `/register <first name> <last name> [department]`."}, nil
	}
	if err != nil {
		return commands.Result{}, err
	}
	dept := user.Department
	if dept == "" {
		dept = "not set"
	}
	return commands.Result{Text: fmt.Sprintf("*%s*\nDepartment: %s", user.FullName(), dept)}, nil
}

func (b *Bot) handleDepartment(ctx context.Context, inv commands.Invocation) (commands.Result, error) {
	dept := strings.TrimSpace(inv.Args)
	if dept == "" {
		return commands.Result{Text: "Usage: `/department <name>`"}, nil
	}

	user, err := b.deps.Store.GetUser(ctx, inv.UserID)
	if err == store.ErrNotFound {
		user = &store.User{SlackID: inv.UserID}
	} else if err != nil {
		return commands.Result{}, err
	}
	user.Department = dept

	if err := b.deps.Store.UpsertUser(ctx, user); err != nil {
		return commands.Result{}, err
	}
	return commands.Result{Text: fmt.Sprintf("Your department is now *%s*.", dept)}, nil
}

func (b *Bot) handleStats(ctx context.Context, inv commands.Invocation) (commands.Result, error) {
	snapshot, err := stats.Collect(ctx, b.deps.Store)
	if err != nil {
		return commands.Result{}, err
	}
	return commands.Result{Text: stats.Format(snapshot)}, nil
}

func (b *Bot) handleHealth(ctx context.Context, inv commands.Invocation) (commands.Result, error) {
	results := b.deps.Health.Check(ctx)
	return commands.Result{Text: b.deps.Health.Format(results)}, nil
}

func (b *Bot) handleHelp(ctx context.Context, inv commands.Invocation) (commands.Result, error) {
	return commands.Result{Text: b.registry.HelpText(inv.IsAdmin)}, nil
}

// parsePollArgs splits "topic | opt1 | opt2 [| optN] [| minutes]". A final
// all-digit segment is the duration in minutes.
func parsePollArgs(args string) (topic string, options []string, duration time.Duration, ok bool) {
	parts := strings.Split(args, "|")
	var segments []string
	for _, part := range parts {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			segments = append(segments, trimmed)
		}
	}
	if len(segments) < 3 {
		return "", nil, 0, false
	}

	minutes := defaultPollMinutes
	last := segments[len(segments)-1]
	if n, err := strconv.Atoi(last); err == nil {
		minutes = n
		segments = segments[:len(segments)-1]
		if len(segments) < 3 {
			return "", nil, 0, false
		}
	}

	return segments[0], segments[1:], time.Duration(minutes) * time.Minute, true
}

// splitFeedback peels a leading category keyword off the feedback text.
func splitFeedback(args string) (category, content string) {
	fields := strings.SplitN(strings.TrimSpace(args), " ", 2)
	switch strings.ToLower(fields[0]) {
	case "general", "bug", "idea":
		if len(fields) == 2 {
			return fields[0], fields[1]
		}
		return fields[0], ""
	}
	return "", args
}
