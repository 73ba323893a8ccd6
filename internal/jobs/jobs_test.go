package jobs

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// waitFor polls the registry until the job reaches a terminal state.
func waitFor(t *testing.T, registry *Registry, jobID string) Status {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		if status, ok := registry.Get(jobID); ok && status.Terminal() {
			return status
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("job %s did not reach a terminal state", jobID)
	return Status{}
}

func TestRegistry(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	registry := NewRegistry()
	go registry.Run(ctx)

	t.Run("unknown job id", func(t *testing.T) {
		_, ok := registry.Get("nope")
		assert.False(t, ok)
	})

	t.Run("updates apply in publish order", func(t *testing.T) {
		registry.Publish("job-1", Pending())
		registry.Publish("job-1", InProgress(42))
		registry.Publish("job-1", Completed("done"))

		status := waitFor(t, registry, "job-1")
		assert.Equal(t, StateCompleted, status.State)
		assert.Equal(t, "done", status.Payload)
	})
}

func TestScheduler(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	registry := NewRegistry()
	go registry.Run(ctx)
	scheduler := NewScheduler(registry, 2)

	t.Run("successful job completes with payload", func(t *testing.T) {
		seenID := make(chan string, 1)
		jobID := scheduler.Schedule(ctx, "test", func(ctx context.Context, id string, report func(uint)) (string, error) {
			seenID <- id
			report(50)
			report(100)
			return "payload", nil
		})
		require.NotEmpty(t, jobID)

		status := waitFor(t, registry, jobID)
		assert.Equal(t, StateCompleted, status.State)
		assert.Equal(t, "payload", status.Payload)
		assert.Empty(t, status.Message)
		assert.Equal(t, jobID, <-seenID)
	})

	t.Run("failing job carries the error message", func(t *testing.T) {
		jobID := scheduler.Schedule(ctx, "test", func(context.Context, string, func(uint)) (string, error) {
			return "", errors.New("it broke")
		})

		status := waitFor(t, registry, jobID)
		assert.Equal(t, StateFailed, status.State)
		assert.Equal(t, "it broke", status.Message)
	})

	t.Run("panicking job fails instead of crashing", func(t *testing.T) {
		jobID := scheduler.Schedule(ctx, "test", func(context.Context, string, func(uint)) (string, error) {
			panic("boom")
		})

		status := waitFor(t, registry, jobID)
		assert.Equal(t, StateFailed, status.State)
		assert.Contains(t, status.Message, "internal error")
	})

	t.Run("distinct jobs get distinct ids", func(t *testing.T) {
		a := scheduler.Schedule(ctx, "test", func(context.Context, string, func(uint)) (string, error) {
			return "", nil
		})
		b := scheduler.Schedule(ctx, "test", func(context.Context, string, func(uint)) (string, error) {
			return "", nil
		})
		assert.NotEqual(t, a, b)
	})
}

func TestStatusTerminal(t *testing.T) {
	assert.False(t, Pending().Terminal())
	assert.False(t, InProgress(10).Terminal())
	assert.True(t, Completed("x").Terminal())
	assert.True(t, Failed("x").Terminal())
}
