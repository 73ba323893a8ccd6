package jobs

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/templify-app/templify/internal/logger"
)

// Work is the blocking body of a job. It runs on a worker slot, reports
// intermediate progress through report, and returns the completion payload
// or an error that becomes the job's failure message. Implementations run to
// completion; there is no cancellation.
type Work func(ctx context.Context, jobID string, report func(progress uint)) (string, error)

// Scheduler hands blocking job bodies to a bounded worker pool and translates
// their lifecycle into registry updates.
type Scheduler struct {
	registry *Registry
	slots    chan struct{}
}

// NewScheduler creates a scheduler with the given number of worker slots.
func NewScheduler(registry *Registry, workers int) *Scheduler {
	if workers < 1 {
		workers = 1
	}
	return &Scheduler{
		registry: registry,
		slots:    make(chan struct{}, workers),
	}
}

// Schedule allocates a fresh job id, records it as pending, and spawns the
// supervisory goroutine that runs the work on a worker slot and forwards its
// result as the terminal status. It returns the job id immediately.
func (s *Scheduler) Schedule(ctx context.Context, kind string, work Work) string {
	jobID := uuid.NewString()
	s.registry.Publish(jobID, Pending())

	go func() {
		s.slots <- struct{}{}
		defer func() { <-s.slots }()

		defer func() {
			if rec := recover(); rec != nil {
				logger.Errorf("%s job %s panicked: %v", kind, jobID, rec)
				s.registry.Publish(jobID, Failed(fmt.Sprintf("internal error: %v", rec)))
			}
		}()

		logger.Infof("%s job %s started", kind, jobID)
		payload, err := work(ctx, jobID, func(progress uint) {
			s.registry.Publish(jobID, InProgress(progress))
		})
		if err != nil {
			logger.Warnf("%s job %s failed: %v", kind, jobID, err)
			s.registry.Publish(jobID, Failed(err.Error()))
			return
		}
		logger.Infof("%s job %s completed", kind, jobID)
		s.registry.Publish(jobID, Completed(payload))
	}()

	return jobID
}
