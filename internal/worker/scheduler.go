// Package worker runs the periodic background jobs of the gateway: the
// signal countdown tick and the idle session cache sweep.
package worker

import (
	"fmt"
	"time"

	"github.com/go-co-op/gocron/v2"

	"github.com/signal-miniapp/internal/logging"
	"github.com/signal-miniapp/internal/storage"
)

// SchedulerConfig holds the job intervals
type SchedulerConfig struct {
	CountdownInterval time.Duration
	SweepInterval     time.Duration
	SessionIdle       time.Duration
}

// Scheduler drives the countdown board and the cache sweep on fixed intervals
type Scheduler struct {
	sched  gocron.Scheduler
	board  *CountdownBoard
	caches *storage.SessionCaches
	cfg    SchedulerConfig
	logger *logging.Logger
}

// NewScheduler registers the jobs; nothing runs until Start
func NewScheduler(cfg SchedulerConfig, board *CountdownBoard, caches *storage.SessionCaches) (*Scheduler, error) {
	if board == nil || caches == nil {
		return nil, fmt.Errorf("board and session caches are required")
	}
	if cfg.CountdownInterval <= 0 {
		return nil, fmt.Errorf("countdown interval must be positive, got %v", cfg.CountdownInterval)
	}
	if cfg.SweepInterval <= 0 {
		cfg.SweepInterval = time.Minute
	}
	if cfg.SessionIdle <= 0 {
		cfg.SessionIdle = time.Hour
	}

	sched, err := gocron.NewScheduler()
	if err != nil {
		return nil, fmt.Errorf("failed to create scheduler: %w", err)
	}

	s := &Scheduler{
		sched:  sched,
		board:  board,
		caches: caches,
		cfg:    cfg,
		logger: logging.GetGlobalLogger().WithField("component", "scheduler"),
	}

	if _, err := sched.NewJob(
		gocron.DurationJob(cfg.CountdownInterval),
		gocron.NewTask(s.tickCountdown),
		gocron.WithName("signal-countdown"),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
	); err != nil {
		return nil, fmt.Errorf("failed to register countdown job: %w", err)
	}

	if _, err := sched.NewJob(
		gocron.DurationJob(cfg.SweepInterval),
		gocron.NewTask(s.sweepSessions),
		gocron.WithName("session-cache-sweep"),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
	); err != nil {
		return nil, fmt.Errorf("failed to register sweep job: %w", err)
	}

	return s, nil
}

// Start begins running the jobs
func (s *Scheduler) Start() {
	s.logger.WithFields(map[string]interface{}{
		"countdown_interval": s.cfg.CountdownInterval.String(),
		"sweep_interval":     s.cfg.SweepInterval.String(),
	}).Info("Starting scheduler")
	s.sched.Start()
}

// Shutdown stops the jobs and waits for running ones
func (s *Scheduler) Shutdown() error {
	s.logger.Info("Stopping scheduler")
	return s.sched.Shutdown()
}

func (s *Scheduler) tickCountdown() {
	s.board.Refresh(s.caches)
}

func (s *Scheduler) sweepSessions() {
	if dropped := s.caches.Sweep(s.cfg.SessionIdle); dropped > 0 {
		s.logger.WithField("dropped", dropped).Debug("swept idle session caches")
	}
}
