package treasury

import (
	"context"
	"errors"
	"sync/atomic"
	"time"

	"github.com/go-co-op/gocron"
	"github.com/sirupsen/logrus"
)

// SchedulerState is Idle between cycles and Running during one.
type SchedulerState int32

const (
	Idle SchedulerState = iota
	Running
)

func (s SchedulerState) String() string {
	if s == Running {
		return "running"
	}
	return "idle"
}

// Scheduler runs Watcher cycles on a fixed interval, never two at a time.
type Scheduler struct {
	watcher   *Watcher
	announcer Announcer // optional
	interval  time.Duration
	log       logrus.FieldLogger

	state  atomic.Int32
	cycles atomic.Int64
}

// NewScheduler returns a Scheduler running w every interval. The announcer
// may be nil.
func NewScheduler(w *Watcher, announcer Announcer, interval time.Duration, log logrus.FieldLogger) (*Scheduler, error) {
	if w == nil {
		return nil, errors.New("scheduler: no watcher")
	}
	if interval <= 0 {
		return nil, errors.New("scheduler: interval must be positive")
	}
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Scheduler{
		watcher:   w,
		announcer: announcer,
		interval:  interval,
		log:       log.WithField("pkg", "scheduler"),
	}, nil
}

// State returns whether a scheduled cycle is in progress.
func (s *Scheduler) State() SchedulerState { return SchedulerState(s.state.Load()) }

// Cycles returns the number of scheduled cycles run so far, failed ones included.
func (s *Scheduler) Cycles() int64 { return s.cycles.Load() }

// Start announces the presence once, then runs a cycle immediately and every
// interval until ctx is done. Cycle failures are logged, and do not stop the
// schedule. Start returns nil once ctx is done and the running cycle, if
// any, has returned.
func (s *Scheduler) Start(ctx context.Context) error {
	if s.announcer != nil {
		if err := s.announcer.Announce(ctx); err != nil {
			s.log.WithError(err).Warn("presence not announced")
		}
	}

	sched := gocron.NewScheduler(time.UTC)
	sched.SingletonModeAll()
	if _, err := sched.Every(s.interval).Do(s.run, ctx); err != nil {
		return err
	}
	s.log.WithField("interval", s.interval).Info("watching")
	sched.StartAsync()
	<-ctx.Done()
	// Stop waits for the running job.
	sched.Stop()
	s.log.Info("stopped")
	return nil
}

func (s *Scheduler) run(ctx context.Context) {
	if ctx.Err() != nil {
		return
	}
	s.state.Store(int32(Running))
	defer s.state.Store(int32(Idle))
	s.cycles.Add(1)
	// errors are logged by the watcher
	_, _ = s.watcher.Cycle(ctx)
}
