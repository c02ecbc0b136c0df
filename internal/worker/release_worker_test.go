package worker

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/ignatzorin/jobmarket-backend/internal/logger"
)

type countingReleaser struct {
	calls int32
	err   error
}

func (r *countingReleaser) ReleaseDuePayments(ctx context.Context, now time.Time) (int, error) {
	atomic.AddInt32(&r.calls, 1)
	if r.err != nil {
		return 0, r.err
	}
	return 1, nil
}

func (r *countingReleaser) count() int32 {
	return atomic.LoadInt32(&r.calls)
}

func TestReleaseWorker_SweepsImmediatelyOnStart(t *testing.T) {
	logger.Init("error")
	releaser := &countingReleaser{}
	w := NewReleaseWorker(releaser, time.Hour, logger.WithComponent("release_worker"))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		w.Run(ctx)
		close(done)
	}()

	assert.Eventually(t, func() bool {
		return releaser.count() == 1
	}, time.Second, 10*time.Millisecond)

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("воркер не остановился после отмены контекста")
	}
}

func TestReleaseWorker_SweepsOnTicker(t *testing.T) {
	logger.Init("error")
	releaser := &countingReleaser{}
	w := NewReleaseWorker(releaser, 20*time.Millisecond, logger.WithComponent("release_worker"))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go w.Run(ctx)

	assert.Eventually(t, func() bool {
		return releaser.count() >= 3
	}, time.Second, 10*time.Millisecond)
}

func TestReleaseWorker_KeepsRunningAfterSweepError(t *testing.T) {
	logger.Init("error")
	releaser := &countingReleaser{err: errors.New("база недоступна")}
	w := NewReleaseWorker(releaser, 20*time.Millisecond, logger.WithComponent("release_worker"))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go w.Run(ctx)

	assert.Eventually(t, func() bool {
		return releaser.count() >= 2
	}, time.Second, 10*time.Millisecond)
}
