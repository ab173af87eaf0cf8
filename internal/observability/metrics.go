package observability

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the Prometheus collectors for the bot.
type Metrics struct {
	CommandsTotal *prometheus.CounterVec
	MatchesTotal  *prometheus.CounterVec
	PollsTotal    *prometheus.CounterVec
	VotesTotal    prometheus.Counter
	WaitingPool   prometheus.Gauge
}

// NewMetrics registers the bot collectors on a fresh registry.
func NewMetrics() (*Metrics, *prometheus.Registry) {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	m := &Metrics{
		CommandsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "barista_commands_total",
			Help: "Slash commands handled, by command name and outcome.",
		}, []string{"command", "outcome"}),
		MatchesTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "barista_matches_total",
			Help: "Coffee matches, by lifecycle event (created, closed, expired).",
		}, []string{"event"}),
		PollsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "barista_polls_total",
			Help: "Polls, by lifecycle event (created, closed).",
		}, []string{"event"}),
		VotesTotal: factory.NewCounter(prometheus.CounterOpts{
			Name: "barista_votes_total",
			Help: "Votes accepted (including replaced votes).",
		}),
		WaitingPool: factory.NewGauge(prometheus.GaugeOpts{
			Name: "barista_waiting_pool_size",
			Help: "Users currently in the coffee waiting pool.",
		}),
	}
	return m, reg
}

// ServeMetrics exposes /metrics until the context is cancelled.
func ServeMetrics(ctx context.Context, addr string, reg *prometheus.Registry, logger *slog.Logger) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))

	server := &http.Server{Addr: addr, Handler: mux}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = server.Shutdown(shutdownCtx)
	}()

	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("metrics listener failed", "addr", addr, "error", err)
	}
}
