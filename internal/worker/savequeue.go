// Package worker provides background persistence and audio probing.
package worker

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/scoady/backbeat/internal/core/domain"
	"github.com/scoady/backbeat/internal/core/ports"
)

const saveTimeout = 30 * time.Second

// SaveQueue persists project snapshots in the background so editing never
// waits on the database. A single worker drains the queue, which keeps saves
// of the same project ordered: the last submitted snapshot is the last
// committed one.
type SaveQueue struct {
	repo ports.ProjectRepository
	log  *zap.Logger
	jobs chan domain.Project
	wg   sync.WaitGroup

	// onResult, when set, receives the outcome of every attempted save.
	// The UI uses it for the transient save status indicator.
	onResult func(projectID string, err error)
}

// NewSaveQueue creates a queue with the given capacity.
func NewSaveQueue(repo ports.ProjectRepository, queueSize int, onResult func(projectID string, err error), log *zap.Logger) *SaveQueue {
	if queueSize < 1 {
		queueSize = 1
	}
	return &SaveQueue{
		repo:     repo,
		log:      log,
		jobs:     make(chan domain.Project, queueSize),
		onResult: onResult,
	}
}

// Start launches the worker goroutine.
func (q *SaveQueue) Start() {
	q.wg.Add(1)
	go func() {
		defer q.wg.Done()
		for snapshot := range q.jobs {
			q.save(snapshot)
		}
	}()
}

// Stop drains the queue and waits for the worker to finish.
func (q *SaveQueue) Stop() {
	close(q.jobs)
	q.wg.Wait()
}

// Submit queues a snapshot without blocking. Dropping on a full queue is
// safe: every snapshot carries the whole tree, so a later one supersedes
// whatever was lost.
func (q *SaveQueue) Submit(snapshot domain.Project) {
	select {
	case q.jobs <- snapshot:
	default:
		q.log.Warn("save queue full, dropping snapshot", zap.String("project", snapshot.ID))
	}
}

func (q *SaveQueue) save(snapshot domain.Project) {
	ctx, cancel := context.WithTimeout(context.Background(), saveTimeout)
	defer cancel()

	err := q.repo.SaveProjectTree(ctx, snapshot)
	if err != nil {
		q.log.Warn("background save failed", zap.String("project", snapshot.ID), zap.Error(err))
	} else {
		q.log.Debug("background save committed", zap.String("project", snapshot.ID))
	}
	if q.onResult != nil {
		q.onResult(snapshot.ID, err)
	}
}
