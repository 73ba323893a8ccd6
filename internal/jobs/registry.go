package jobs

import (
	"context"
	"sync"

	"github.com/templify-app/templify/internal/logger"
)

// updateBuffer is the capacity of the registry's update channel. Producers
// block once the buffer is full, which backpressures chunk processing rather
// than dropping progress updates.
const updateBuffer = 100

// Update is a status change for a specific job, sent by background workers
// through the registry's update channel.
type Update struct {
	JobID  string
	Status Status
}

// Registry is the process-wide mapping from job id to current status.
//
// All mutation is routed through a single update channel drained by the
// consumer goroutine started with Run, so the map has exactly one writer.
// Readers take a read lock and poll. Entries live for the process lifetime;
// there is no eviction.
type Registry struct {
	mu      sync.RWMutex
	jobs    map[string]Status
	updates chan Update
}

// NewRegistry creates an empty registry. Run must be started before any
// job is scheduled.
func NewRegistry() *Registry {
	return &Registry{
		jobs:    make(map[string]Status),
		updates: make(chan Update, updateBuffer),
	}
}

// Run drains the update channel and applies updates into the registry map
// until the context is cancelled. It is meant to be started once, as a
// long-running goroutine, at process start.
func (r *Registry) Run(ctx context.Context) {
	logger.Info("job registry started")
	for {
		select {
		case <-ctx.Done():
			logger.Info("job registry received shutdown signal, stopping...")
			return
		case update := <-r.updates:
			r.mu.Lock()
			r.jobs[update.JobID] = update.Status
			r.mu.Unlock()
		}
	}
}

// Publish sends a status update into the registry's channel. Updates for a
// single job are applied in the order they were published.
func (r *Registry) Publish(jobID string, status Status) {
	r.updates <- Update{JobID: jobID, Status: status}
}

// Get returns a read-only snapshot of a job's status. The second return
// value is false when the job id is unknown.
func (r *Registry) Get(jobID string) (Status, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	status, ok := r.jobs[jobID]
	return status, ok
}
