package jobs

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type countingSweeper struct {
	mu    sync.Mutex
	calls int
	err   error
}

func (s *countingSweeper) Sweep(ctx context.Context) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	return 1, s.err
}

func (s *countingSweeper) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls
}

func TestScheduler_InvalidSchedule(t *testing.T) {
	scheduler := NewScheduler(&countingSweeper{}, "not a schedule")

	err := scheduler.Start(context.Background())
	assert.Error(t, err)
}

func TestScheduler_StartStop(t *testing.T) {
	scheduler := NewScheduler(&countingSweeper{}, "@every 5m")

	require.NoError(t, scheduler.Start(context.Background()))
	assert.Len(t, scheduler.cron.Entries(), 1)
	scheduler.Stop()
}

func TestScheduler_RunSweep(t *testing.T) {
	t.Run("runs sweeper", func(t *testing.T) {
		sweeper := &countingSweeper{err: errors.New("store down")}
		scheduler := NewScheduler(sweeper, "@every 5m")

		scheduler.runSweep(context.Background())
		assert.Equal(t, 1, sweeper.count())
	})

	t.Run("skips after shutdown", func(t *testing.T) {
		sweeper := &countingSweeper{}
		scheduler := NewScheduler(sweeper, "@every 5m")
		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		scheduler.runSweep(ctx)
		assert.Zero(t, sweeper.count())
	})
}
