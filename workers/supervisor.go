package workers

import (
	"context"
	"log/slog"
	"sync"
	"time"

	lanterrors "lantalk/errors"
)

const waitTimeBeforeRestart = 200 * time.Millisecond

type Worker interface {
	Name() string
	Run(ctx context.Context) error
}

// Supervisor runs each worker in a goroutine, recovers panics, restarts
// crashed workers, and shuts everything down when the parent context is
// canceled. A failure in one worker never stops the supervisor itself.
type Supervisor struct {
	Cancel  context.CancelFunc
	wg      *sync.WaitGroup
	log     *slog.Logger
	workers []Worker
}

func NewSupervisor(log *slog.Logger) *Supervisor {
	return &Supervisor{wg: &sync.WaitGroup{}, log: log}
}

func (s *Supervisor) Add(worker ...Worker) *Supervisor {
	s.workers = append(s.workers, worker...)
	return s
}

// Run blocks until every supervised worker has finished. Canceling the
// parent context, or calling Stop, winds everything down.
func (s *Supervisor) Run(ctx context.Context) {
	supervisedCtx, cancel := context.WithCancel(ctx)
	s.Cancel = cancel
	defer s.Cancel()

	for _, worker := range s.workers {
		s.start(supervisedCtx, worker)
	}
	s.wg.Wait()
}

func (s *Supervisor) start(ctx context.Context, worker Worker) {
	s.wg.Add(1)

	go func() {
		defer s.wg.Done()

		for {
			if ctx.Err() != nil {
				s.log.Info("stopping worker", "name", worker.Name())
				return
			}

			err := func() (err error) {
				defer func() {
					if r := recover(); r != nil {
						err = lanterrors.ErrWorkerPanic
					}
				}()
				return worker.Run(ctx)
			}()

			if err == nil {
				// Terminated properly, never restart.
				s.log.Info("worker finished", "name", worker.Name())
				return
			}

			if ctx.Err() != nil {
				s.log.Info("worker stopped (context canceled)", "name", worker.Name())
				return
			}

			s.log.Warn("worker crashed, restarting", "name", worker.Name(), "error", err)
			select {
			case <-ctx.Done():
				return
			case <-time.After(waitTimeBeforeRestart):
			}
		}
	}()
}

func (s *Supervisor) Stop() {
	if s.Cancel != nil {
		s.Cancel()
	}
}
