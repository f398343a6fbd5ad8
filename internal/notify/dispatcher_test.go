package notify

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
	"go.uber.org/zap"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func fastPolicy(retries int) RetryPolicy {
	return RetryPolicy{MaxRetries: retries, InitialInterval: time.Millisecond, MaxInterval: 5 * time.Millisecond}
}

func TestRetry_SucceedsAfterFailures(t *testing.T) {
	var calls int
	var notified int
	err := Retry(context.Background(), fastPolicy(3), func() error {
		calls++
		if calls < 3 {
			return errors.New("boom")
		}
		return nil
	}, func(error, time.Duration) { notified++ })
	require.NoError(t, err)
	require.Equal(t, 3, calls)
	require.Equal(t, 2, notified)
}

func TestRetry_GivesUp(t *testing.T) {
	var calls int
	err := Retry(context.Background(), fastPolicy(2), func() error {
		calls++
		return errors.New("boom")
	}, nil)
	require.EqualError(t, err, "boom")
	require.Equal(t, 3, calls)
}

func TestRetry_NoRetriesRunsOnce(t *testing.T) {
	for _, retries := range []int{0, -1} {
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		var calls, notified int
		err := Retry(ctx, fastPolicy(retries), func() error {
			calls++
			return errors.New("boom")
		}, func(error, time.Duration) { notified++ })
		cancel()
		require.EqualError(t, err, "boom", "retries=%d", retries)
		require.Equal(t, 1, calls, "retries=%d", retries)
		require.Zero(t, notified, "retries=%d", retries)
	}
}

func TestDispatcher_NoRetriesDoesNotBlockWorker(t *testing.T) {
	d := NewDispatcher(zap.NewNop().Sugar(), 1, 4, fastPolicy(0))
	d.Start(context.Background())

	var calls atomic.Int32
	ran := make(chan struct{})
	require.NoError(t, d.Enqueue(Job{Name: "fail", Run: func(context.Context) error {
		calls.Add(1)
		return errors.New("boom")
	}}))
	require.NoError(t, d.Enqueue(Job{Name: "next", Run: func(context.Context) error {
		close(ran)
		return nil
	}}))

	select {
	case <-ran:
	case <-time.After(2 * time.Second):
		t.Fatal("second job never ran")
	}
	require.NoError(t, d.Close(context.Background()))
	require.EqualValues(t, 1, calls.Load())
}

func TestDispatcher_RunsAndDrainsOnClose(t *testing.T) {
	d := NewDispatcher(zap.NewNop().Sugar(), 2, 16, fastPolicy(1))
	d.Start(context.Background())

	var done atomic.Int32
	for i := 0; i < 10; i++ {
		require.NoError(t, d.Enqueue(Job{Name: "count", Run: func(context.Context) error {
			done.Add(1)
			return nil
		}}))
	}

	require.NoError(t, d.Close(context.Background()))
	require.EqualValues(t, 10, done.Load())
	require.ErrorIs(t, d.Enqueue(Job{Name: "late", Run: func(context.Context) error { return nil }}), ErrClosed)
	require.NoError(t, d.Close(context.Background()))
}

func TestDispatcher_RetriesFailingJob(t *testing.T) {
	d := NewDispatcher(zap.NewNop().Sugar(), 1, 4, fastPolicy(2))
	d.Start(context.Background())

	var calls atomic.Int32
	require.NoError(t, d.Enqueue(Job{Name: "flaky", Run: func(context.Context) error {
		if calls.Add(1) < 3 {
			return errors.New("transient")
		}
		return nil
	}}))

	require.NoError(t, d.Close(context.Background()))
	require.EqualValues(t, 3, calls.Load())
}

func TestDispatcher_QueueFull(t *testing.T) {
	d := NewDispatcher(zap.NewNop().Sugar(), 1, 1, fastPolicy(0))
	release := make(chan struct{})
	started := make(chan struct{})
	d.Start(context.Background())

	require.NoError(t, d.Enqueue(Job{Name: "block", Run: func(context.Context) error {
		close(started)
		<-release
		return nil
	}}))
	<-started
	require.NoError(t, d.Enqueue(Job{Name: "queued", Run: func(context.Context) error { return nil }}))
	require.ErrorIs(t, d.Enqueue(Job{Name: "overflow", Run: func(context.Context) error { return nil }}), ErrQueueFull)

	close(release)
	require.NoError(t, d.Close(context.Background()))
}

func TestDispatcher_CloseTimeoutCancelsJobs(t *testing.T) {
	d := NewDispatcher(zap.NewNop().Sugar(), 1, 2, fastPolicy(0))
	d.Start(context.Background())

	started := make(chan struct{})
	require.NoError(t, d.Enqueue(Job{Name: "slow", Run: func(ctx context.Context) error {
		close(started)
		<-ctx.Done()
		return ctx.Err()
	}}))
	<-started

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	require.ErrorIs(t, d.Close(ctx), context.DeadlineExceeded)
}
