package main

import (
	"log/slog"
	"sync"
	"time"
)

// timerEntry tracks a running timer
type timerEntry struct {
	timer    *time.Timer
	cmd      command
	duration time.Duration
}

// scheduler owns the command queue consumed by the event loop and the named
// timers that feed it. Timer callbacks never touch the machine directly.
type scheduler struct {
	cmds    chan command
	timers  map[string]*timerEntry
	timerMu sync.Mutex
	logger  *slog.Logger
}

func newScheduler(size int, logger *slog.Logger) *scheduler {
	return &scheduler{
		cmds:   make(chan command, size),
		timers: make(map[string]*timerEntry),
		logger: logger,
	}
}

// send queues a command for the event loop
func (s *scheduler) send(cmd command) {
	select {
	case s.cmds <- cmd:
	default:
		s.logger.Warn("command queue full, dropping command", "command", cmd.name)
	}
}

// startTimer starts a named timer that queues cmd when it fires.
// If a timer with the same name exists, it is reset.
func (s *scheduler) startTimer(name string, duration time.Duration, cmd command) {
	s.timerMu.Lock()
	defer s.timerMu.Unlock()

	if existing, ok := s.timers[name]; ok {
		existing.timer.Stop()
		delete(s.timers, name)
	}

	t := time.AfterFunc(duration, func() {
		s.timerMu.Lock()
		// Check timer still exists (wasn't cancelled)
		if _, ok := s.timers[name]; !ok {
			s.timerMu.Unlock()
			return
		}
		delete(s.timers, name)
		s.timerMu.Unlock()

		s.logger.Debug("timer fired", "name", name, "command", cmd.name)
		s.send(cmd)
	})

	s.timers[name] = &timerEntry{
		timer:    t,
		cmd:      cmd,
		duration: duration,
	}

	s.logger.Debug("timer started", "name", name, "duration", duration, "command", cmd.name)
}

// stopTimer stops a timer by name. No-op if the timer doesn't exist.
func (s *scheduler) stopTimer(name string) {
	s.timerMu.Lock()
	defer s.timerMu.Unlock()

	if entry, ok := s.timers[name]; ok {
		entry.timer.Stop()
		delete(s.timers, name)
		s.logger.Debug("timer stopped", "name", name)
	}
}

// stopAllTimers stops all running timers
func (s *scheduler) stopAllTimers() {
	s.timerMu.Lock()
	defer s.timerMu.Unlock()

	for name, entry := range s.timers {
		entry.timer.Stop()
		s.logger.Debug("timer stopped (cleanup)", "name", name)
	}
	s.timers = make(map[string]*timerEntry)
}

// timerActive checks if a timer is running
func (s *scheduler) timerActive(name string) bool {
	s.timerMu.Lock()
	defer s.timerMu.Unlock()
	_, ok := s.timers[name]
	return ok
}
