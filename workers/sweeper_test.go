package workers

import (
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

type stubEvictor struct {
	calls chan time.Duration
}

func (s stubEvictor) EvictStale(ttl time.Duration) []string {
	s.calls <- ttl
	return []string{"t1"}
}

func Test_Sweeper_Evicts_On_Every_Tick(t *testing.T) {
	req := require.New(t)
	evictor := stubEvictor{calls: make(chan time.Duration, 8)}
	sweeper := NewSweeper(evictor, 10*time.Millisecond, time.Minute, slog.Default())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- sweeper.Run(ctx) }()

	select {
	case ttl := <-evictor.calls:
		req.Equal(time.Minute, ttl)
	case <-time.After(2 * time.Second):
		t.Fatal("sweeper never ticked")
	}

	cancel()
	select {
	case err := <-done:
		req.NoError(err)
	case <-time.After(2 * time.Second):
		t.Fatal("sweeper did not stop on cancel")
	}
}
