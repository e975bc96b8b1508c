package jobs

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestQueueProcessesJobs(t *testing.T) {
	var mu sync.Mutex
	seen := map[string]int{}
	done := make(chan struct{}, 8)

	q := NewQueue("test", func(_ context.Context, job Job) error {
		mu.Lock()
		seen[job.Key]++
		mu.Unlock()
		done <- struct{}{}
		return nil
	}, QueueConfig{Workers: 2})
	q.Start(context.Background())
	defer q.Stop()

	require.NoError(t, q.Enqueue(Job{ID: "1", Type: "timetable.invalidate", Key: "t1"}))
	require.NoError(t, q.Enqueue(Job{ID: "2", Type: "timetable.invalidate", Key: "t2"}))

	for i := 0; i < 2; i++ {
		select {
		case <-done:
		case <-time.After(2 * time.Second):
			t.Fatal("timed out waiting for jobs")
		}
	}
	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, 1, seen["t1"])
	assert.Equal(t, 1, seen["t2"])
}

func TestQueueCoalescesSameKey(t *testing.T) {
	entered := make(chan struct{})
	block := make(chan struct{})
	processed := make(chan string, 8)

	q := NewQueue("test", func(_ context.Context, job Job) error {
		if job.Key == "pin" {
			entered <- struct{}{}
			<-block
			return nil
		}
		processed <- job.Key
		return nil
	}, QueueConfig{Workers: 1, BufferSize: 8})
	q.Start(context.Background())
	defer q.Stop()

	// occupy the single worker so the following jobs stay buffered
	require.NoError(t, q.Enqueue(Job{ID: "0", Key: "pin"}))
	<-entered

	require.NoError(t, q.Enqueue(Job{ID: "1", Key: "t1"}))
	require.NoError(t, q.Enqueue(Job{ID: "2", Key: "t1"}))
	require.NoError(t, q.Enqueue(Job{ID: "3", Key: "t1"}))
	close(block)

	select {
	case key := <-processed:
		assert.Equal(t, "t1", key)
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for job")
	}

	select {
	case <-processed:
		t.Fatal("duplicate job for the same key was processed")
	case <-time.After(100 * time.Millisecond):
	}
}

func TestQueueEnqueueBeforeStart(t *testing.T) {
	q := NewQueue("test", func(context.Context, Job) error { return nil }, QueueConfig{})
	err := q.Enqueue(Job{ID: "1"})
	assert.Error(t, err)
}
