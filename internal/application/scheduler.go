package application

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"signupbot/internal/domain"
	"signupbot/internal/ports/output"
)

// DefaultTickInterval is the scheduler period.
const DefaultTickInterval = time.Minute

type schedulerStep struct {
	name string
	run  func(ctx context.Context, now time.Time) error
}

// Scheduler runs the periodic lifecycle work. Steps run in a fixed order on
// every tick: reminders, activation, archiving, deletion, voice, log cleanup.
type Scheduler struct {
	steps    []schedulerStep
	interval time.Duration
	log      zerolog.Logger
	now      func() time.Time

	ticking sync.Mutex

	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
}

type SchedulerConfig struct {
	Interval     time.Duration
	LogRetention time.Duration // 0 keeps audit entries forever
}

func NewScheduler(
	cfg SchedulerConfig,
	store output.Store,
	reminders *ReminderService,
	lifecycle *LifecycleService,
	voice *VoiceService,
	log zerolog.Logger,
) *Scheduler {
	if cfg.Interval <= 0 {
		cfg.Interval = DefaultTickInterval
	}
	s := &Scheduler{
		interval: cfg.Interval,
		log:      log.With().Str("component", "scheduler").Logger(),
		now:      time.Now,
	}
	s.steps = []schedulerStep{
		{"reminders", reminders.Dispatch},
		{"activation", lifecycle.ActivateDue},
		{"archiving", lifecycle.ArchiveDue},
		{"deletion", lifecycle.DeleteDue},
		{"voice", voice.Sync},
		{"log_retention", func(ctx context.Context, now time.Time) error {
			if cfg.LogRetention <= 0 {
				return nil
			}
			n, err := store.AuditLog().DeleteOlderThan(ctx, now.Add(-cfg.LogRetention))
			if err != nil {
				return domain.NewPersistenceError("prune audit log", err)
			}
			if n > 0 {
				s.log.Debug().Int64("deleted", n).Msg("audit log pruned")
			}
			return nil
		}},
	}
	return s
}

// Tick runs every step once. It returns false without doing anything when
// another tick is still running. Once started, a tick runs all of its steps
// even if ctx is cancelled meanwhile.
func (s *Scheduler) Tick(ctx context.Context) bool {
	if !s.ticking.TryLock() {
		s.log.Warn().Msg("previous tick still running, skipping")
		return false
	}
	defer s.ticking.Unlock()

	ctx = context.WithoutCancel(ctx)
	now := s.now()
	log := s.log.With().Str("tick_id", uuid.New().String()).Logger()
	start := time.Now()
	for _, step := range s.steps {
		if err := runStep(ctx, step, now); err != nil {
			log.Error().Err(err).Str("step", step.name).Msg("scheduler step failed")
		}
	}
	log.Debug().Dur("elapsed", time.Since(start)).Msg("tick done")
	return true
}

func runStep(ctx context.Context, step schedulerStep, now time.Time) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic in %s: %v", step.name, r)
		}
	}()
	return step.run(ctx, now)
}

// Run ticks immediately and then every interval until ctx is done. A tick
// already running when ctx is done completes first.
func (s *Scheduler) Run(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()
	s.Tick(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.Tick(ctx)
		}
	}
}

// Start launches Run in the background.
func (s *Scheduler) Start() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cancel != nil {
		return
	}
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	s.cancel, s.done = cancel, done
	go func() {
		defer close(done)
		s.Run(ctx)
	}()
	s.log.Info().Dur("interval", s.interval).Msg("scheduler started")
}

// Stop cancels future ticks and waits for the one in flight.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	cancel, done := s.cancel, s.done
	s.cancel, s.done = nil, nil
	s.mu.Unlock()
	if cancel == nil {
		return
	}
	cancel()
	<-done
	s.log.Info().Msg("scheduler stopped")
}
