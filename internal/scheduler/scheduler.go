// Package scheduler runs delayed one-shot tasks and daily recurring jobs.
//
// One-shot tasks are identified by caller-chosen IDs so they can be cancelled
// or replaced; daily jobs use cron underneath.
package scheduler

import (
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
)

// Scheduler schedules cancellable one-shot tasks and daily jobs.
type Scheduler interface {
	// ScheduleOnce runs fn after delay. Scheduling with an ID that is
	// already pending replaces the earlier task.
	ScheduleOnce(id string, delay time.Duration, fn func())

	// Cancel stops a pending one-shot task. Returns false when no task
	// with that ID is pending.
	Cancel(id string) bool

	// Daily registers fn to run every day at the given local time.
	Daily(hour, minute int, fn func()) error

	// Stop cancels all pending tasks and stops the daily jobs.
	Stop()
}

// TimerScheduler is the production Scheduler backed by time.Timer for
// one-shots and robfig/cron for daily jobs.
type TimerScheduler struct {
	mu     sync.Mutex
	timers map[string]*time.Timer
	cron   *cron.Cron
	logger *slog.Logger
}

// New creates a started TimerScheduler.
func New(logger *slog.Logger) *TimerScheduler {
	s := &TimerScheduler{
		timers: make(map[string]*time.Timer),
		cron:   cron.New(),
		logger: logger.With("component", "scheduler"),
	}
	s.cron.Start()
	return s
}

func (s *TimerScheduler) ScheduleOnce(id string, delay time.Duration, fn func()) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if existing, ok := s.timers[id]; ok {
		existing.Stop()
	}
	s.timers[id] = time.AfterFunc(delay, func() {
		// Remove the entry before running so the task cannot be
		// cancelled while it executes.
		s.mu.Lock()
		delete(s.timers, id)
		s.mu.Unlock()
		fn()
	})
	s.logger.Debug("scheduled task", "id", id, "delay", delay)
}

func (s *TimerScheduler) Cancel(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	timer, ok := s.timers[id]
	if !ok {
		return false
	}
	delete(s.timers, id)
	stopped := timer.Stop()
	s.logger.Debug("cancelled task", "id", id, "stopped", stopped)
	return stopped
}

func (s *TimerScheduler) Daily(hour, minute int, fn func()) error {
	spec := fmt.Sprintf("%d %d * * *", minute, hour)
	if _, err := s.cron.AddFunc(spec, fn); err != nil {
		return fmt.Errorf("add daily job: %w", err)
	}
	s.logger.Info("registered daily job", "hour", hour, "minute", minute)
	return nil
}

func (s *TimerScheduler) Stop() {
	s.mu.Lock()
	for id, timer := range s.timers {
		timer.Stop()
		delete(s.timers, id)
	}
	s.mu.Unlock()

	ctx := s.cron.Stop()
	<-ctx.Done()
}

var _ Scheduler = (*TimerScheduler)(nil)
