package main

import (
	"context"
	"errors"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/slack-go/slack"
	"github.com/slack-go/slack/socketmode"
	"github.com/spf13/cobra"

	"github.com/brewcrew/barista/internal/config"
	"github.com/brewcrew/barista/internal/feedback"
	"github.com/brewcrew/barista/internal/health"
	"github.com/brewcrew/barista/internal/knowledge"
	"github.com/brewcrew/barista/internal/llm"
	"github.com/brewcrew/barista/internal/matching"
	"github.com/brewcrew/barista/internal/observability"
	"github.com/brewcrew/barista/internal/polls"
	"github.com/brewcrew/barista/internal/ratelimit"
	"github.com/brewcrew/barista/internal/scheduler"
	"github.com/brewcrew/barista/internal/slackbot"
	"github.com/brewcrew/barista/internal/store"
)

func buildServeCmd() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the bot",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(configPath)
		},
	}
	cmd.Flags().StringVarP(&configPath, "config", "c", "barista.yaml", "path to config file")
	return cmd
}

func runServe(configPath string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	logger := observability.NewLogger(observability.LogConfig{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
	})
	logger.Info("starting barista", "version", version)

	st, err := store.Open(cfg.Database.Path)
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer st.Close()

	llmClient, err := llm.New(cfg.LLM)
	if err != nil {
		return err
	}

	sched := scheduler.New(logger)
	defer sched.Stop()

	api := slack.New(cfg.Slack.BotToken, slack.OptionAppLevelToken(cfg.Slack.AppToken))
	socket := slackbot.NewSocketClient(socketmode.New(api))
	convs := slackbot.NewConversations(api, logger)

	var metrics *observability.Metrics
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if cfg.Metrics.Enabled {
		m, promReg := observability.NewMetrics()
		metrics = m
		go observability.ServeMetrics(ctx, cfg.Metrics.Listen, promReg, logger)
	}

	matchMgr := matching.NewManager(matching.Config{
		Cooldown:     cfg.Matching.Cooldown(),
		WaitTimeout:  cfg.Matching.WaitTimeout(),
		ChatDuration: cfg.Matching.ChatDuration(),
		AdminChannel: cfg.Slack.AdminChannel,
	}, st, sched, convs, llmClient, logger, metrics)

	pollMgr := polls.NewManager(st, sched, convs, logger, metrics)

	know := knowledge.NewService(cfg.Knowledge.Dir, llmClient, logger)
	if err := know.Load(); err != nil {
		logger.Warn("knowledge base load failed", "error", err)
	}

	limiter := ratelimit.New(ratelimit.Config{
		Enabled:     cfg.RateLimit.Enabled,
		MaxRequests: cfg.RateLimit.MaxRequests,
		Window:      cfg.RateLimit.Window(),
	})

	bot, err := slackbot.New(slackbot.Config{
		HomeChannel:  cfg.Slack.HomeChannel,
		AdminChannel: cfg.Slack.AdminChannel,
		DailyEnabled: cfg.Daily.Enabled,
		DailyHour:    cfg.Daily.Hour,
		DailyMinute:  cfg.Daily.Minute,
	}, api, socket, slackbot.Deps{
		Store:     st,
		Matching:  matchMgr,
		Polls:     pollMgr,
		Knowledge: know,
		Feedback:  feedback.NewService(st, convs, cfg.Slack.AdminChannel, logger),
		Health:    health.NewChecker(st, know, cfg.LLM.APIKey != "", version),
		Limiter:   limiter,
		Scheduler: sched,
		Metrics:   metrics,
	}, logger)
	if err != nil {
		return err
	}

	// Timers for matches and polls that were live before the last restart.
	if err := matchMgr.Rearm(ctx); err != nil {
		logger.Warn("match rearm failed", "error", err)
	}
	if err := pollMgr.Rearm(ctx); err != nil {
		logger.Warn("poll rearm failed", "error", err)
	}

	if err := bot.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	logger.Info("shutting down")
	return nil
}
