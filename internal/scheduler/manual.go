package scheduler

import (
	"sync"
	"time"
)

// ManualScheduler collects tasks without timers so tests can fire them
// deterministically.
type ManualScheduler struct {
	mu    sync.Mutex
	tasks map[string]manualTask
	daily []func()
}

type manualTask struct {
	delay time.Duration
	fn    func()
}

// NewManual creates an empty ManualScheduler.
func NewManual() *ManualScheduler {
	return &ManualScheduler{tasks: make(map[string]manualTask)}
}

func (s *ManualScheduler) ScheduleOnce(id string, delay time.Duration, fn func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tasks[id] = manualTask{delay: delay, fn: fn}
}

func (s *ManualScheduler) Cancel(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.tasks[id]
	delete(s.tasks, id)
	return ok
}

func (s *ManualScheduler) Daily(hour, minute int, fn func()) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.daily = append(s.daily, fn)
	return nil
}

func (s *ManualScheduler) Stop() {}

// Fire runs a pending task by ID. Returns false when no task is pending.
func (s *ManualScheduler) Fire(id string) bool {
	s.mu.Lock()
	task, ok := s.tasks[id]
	delete(s.tasks, id)
	s.mu.Unlock()
	if !ok {
		return false
	}
	task.fn()
	return true
}

// Pending reports whether a task with the given ID is scheduled.
func (s *ManualScheduler) Pending(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.tasks[id]
	return ok
}

// Delay returns the delay the task was scheduled with.
func (s *ManualScheduler) Delay(id string) (time.Duration, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	task, ok := s.tasks[id]
	return task.delay, ok
}

var _ Scheduler = (*ManualScheduler)(nil)
