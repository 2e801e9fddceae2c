package workers

import (
	"context"
	"log/slog"
	"time"
)

type TransferEvictor interface {
	EvictStale(ttl time.Duration) []string
}

// Sweeper reclaims abandoned transfers: a sender that disappears mid-stream
// would otherwise leave its chunk buffers in memory forever. Every interval
// it evicts transfers untouched for longer than ttl.
type Sweeper struct {
	store    TransferEvictor
	interval time.Duration
	ttl      time.Duration
	log      *slog.Logger
}

func NewSweeper(store TransferEvictor, interval, ttl time.Duration, log *slog.Logger) *Sweeper {
	return &Sweeper{store: store, interval: interval, ttl: ttl, log: log}
}

func (s *Sweeper) Name() string {
	return "transfer-sweeper"
}

func (s *Sweeper) Run(ctx context.Context) error {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			if evicted := s.store.EvictStale(s.ttl); len(evicted) > 0 {
				s.log.Warn("evicted abandoned transfers",
					"count", len(evicted),
					"transfer_ids", evicted,
					"ttl", s.ttl)
			}
		}
	}
}
