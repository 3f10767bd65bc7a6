package jobs

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEnqueueRequiresStart(t *testing.T) {
	q := NewQueue("test", func(context.Context, Job) error { return nil }, QueueConfig{})
	assert.Error(t, q.Enqueue(Job{Type: "noop"}))
}

func TestQueueProcessesJob(t *testing.T) {
	handled := make(chan Job, 1)
	q := NewQueue("test", func(ctx context.Context, job Job) error {
		handled <- job
		return nil
	}, QueueConfig{Workers: 1})
	q.Start(context.Background())
	defer q.Stop()

	require.NoError(t, q.Enqueue(Job{ID: "j1", Type: "rebuild"}))
	select {
	case job := <-handled:
		assert.Equal(t, "j1", job.ID)
	case <-time.After(time.Second):
		t.Fatal("job was not handled")
	}
}

func TestQueueCoalescesPendingDuplicates(t *testing.T) {
	block := make(chan struct{})
	handled := make(chan string, 8)
	q := NewQueue("test", func(ctx context.Context, job Job) error {
		<-block
		handled <- job.DedupeKey
		return nil
	}, QueueConfig{Workers: 1, BufferSize: 8})
	q.Start(context.Background())
	defer q.Stop()

	require.NoError(t, q.Enqueue(Job{Type: "rebuild", DedupeKey: "s1|2026-08-31"}))
	assert.ErrorIs(t, q.Enqueue(Job{Type: "rebuild", DedupeKey: "s1|2026-08-31"}), ErrDuplicateJob)
	require.NoError(t, q.Enqueue(Job{Type: "rebuild", DedupeKey: "s1|2026-09-01"}))

	close(block)
	for i := 0; i < 2; i++ {
		select {
		case <-handled:
		case <-time.After(time.Second):
			t.Fatal("jobs were not handled")
		}
	}

	// the key frees up once its job has run
	require.Eventually(t, func() bool {
		return q.Enqueue(Job{Type: "rebuild", DedupeKey: "s1|2026-08-31"}) == nil
	}, time.Second, 10*time.Millisecond)
}

func TestQueueReleasesKeyAfterExhaustedRetries(t *testing.T) {
	failures := make(chan struct{}, 8)
	q := NewQueue("test", func(ctx context.Context, job Job) error {
		failures <- struct{}{}
		return assert.AnError
	}, QueueConfig{Workers: 1, MaxRetries: 1, RetryDelay: time.Millisecond})
	q.Start(context.Background())
	defer q.Stop()

	require.NoError(t, q.Enqueue(Job{Type: "rebuild", DedupeKey: "s1|2026-08-31"}))
	for i := 0; i < 2; i++ {
		select {
		case <-failures:
		case <-time.After(time.Second):
			t.Fatal("job attempts did not run")
		}
	}

	require.Eventually(t, func() bool {
		return q.Enqueue(Job{Type: "rebuild", DedupeKey: "s1|2026-08-31"}) == nil
	}, time.Second, 10*time.Millisecond)
}
