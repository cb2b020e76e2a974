package jobs

import (
	"context"
	"fmt"
	"time"

	"github.com/go-co-op/gocron/v2"
	"github.com/rs/zerolog"

	"community-ledger/internal/logging"
)

// Scheduler runs periodic maintenance tasks. A task never overlaps with
// its own previous run.
type Scheduler struct {
	sched   gocron.Scheduler
	timeout time.Duration
	log     zerolog.Logger
}

// NewScheduler creates a stopped scheduler. Each run gets a context bounded by timeout.
func NewScheduler(timeout time.Duration) (*Scheduler, error) {
	sched, err := gocron.NewScheduler()
	if err != nil {
		return nil, fmt.Errorf("failed to create scheduler: %w", err)
	}
	if timeout <= 0 {
		timeout = 5 * time.Minute
	}
	return &Scheduler{sched: sched, timeout: timeout, log: logging.WithComponent("jobs")}, nil
}

// Every registers fn to run once per interval
func (s *Scheduler) Every(interval time.Duration, name string, fn func(ctx context.Context)) error {
	_, err := s.sched.NewJob(
		gocron.DurationJob(interval),
		gocron.NewTask(func() {
			ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
			defer cancel()

			start := time.Now()
			fn(ctx)
			s.log.Debug().Str("job", name).Dur("took", time.Since(start)).Msg("Job finished")
		}),
		gocron.WithName(name),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
	)
	if err != nil {
		return fmt.Errorf("failed to schedule %s: %w", name, err)
	}

	s.log.Info().Str("job", name).Dur("interval", interval).Msg("Job scheduled")
	return nil
}

func (s *Scheduler) Start() {
	s.sched.Start()
}

// Shutdown stops scheduling and waits for running jobs
func (s *Scheduler) Shutdown() error {
	return s.sched.Shutdown()
}
