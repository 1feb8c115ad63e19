// Package reconcile drains the dirty-collection queue and runs a placeholder
// reconcile pass on every collection it pops.
package reconcile

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/ivankudzin/giftexchange/internal/services/assignments"
)

type Queue interface {
	Pop(ctx context.Context, limit int) ([]int64, error)
	MarkDirty(ctx context.Context, collectionID int64) error
}

type Reconciler interface {
	Reconcile(ctx context.Context, collectionID int64) (assignments.ReconcileReport, error)
}

type Result struct {
	Popped    int
	Changed   int
	Requeued  int
	Conflicts int
	Failed    int
}

type Job struct {
	queue      Queue
	reconciler Reconciler
	batchSize  int
	logger     *zap.Logger
}

func New(queue Queue, reconciler Reconciler, batchSize int, logger *zap.Logger) *Job {
	if batchSize <= 0 {
		batchSize = 20
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Job{
		queue:      queue,
		reconciler: reconciler,
		batchSize:  batchSize,
		logger:     logger,
	}
}

// Run handles one batch. A collection held by another run goes back on the
// queue; any other failure is logged and dropped, since the next manual edit
// marks it dirty again.
func (j *Job) Run(ctx context.Context) (Result, error) {
	var result Result
	if j.queue == nil || j.reconciler == nil {
		return result, fmt.Errorf("reconcile job is not configured")
	}

	ids, err := j.queue.Pop(ctx, j.batchSize)
	if err != nil {
		return result, fmt.Errorf("pop dirty collections: %w", err)
	}
	result.Popped = len(ids)

	for _, collectionID := range ids {
		if err := ctx.Err(); err != nil {
			if requeueErr := j.queue.MarkDirty(context.WithoutCancel(ctx), collectionID); requeueErr != nil {
				j.logger.Warn("requeue dirty collection failed", zap.Int64("collection_id", collectionID), zap.Error(requeueErr))
			}
			result.Requeued++
			continue
		}

		report, err := j.reconciler.Reconcile(ctx, collectionID)
		switch {
		case errors.Is(err, assignments.ErrCollectionBusy):
			if requeueErr := j.queue.MarkDirty(ctx, collectionID); requeueErr != nil {
				j.logger.Warn("requeue dirty collection failed", zap.Int64("collection_id", collectionID), zap.Error(requeueErr))
			}
			result.Requeued++
		case err != nil:
			j.logger.Error("reconcile dirty collection failed", zap.Int64("collection_id", collectionID), zap.Error(err))
			result.Failed++
		default:
			if report.Changed() {
				result.Changed++
			}
			result.Conflicts += len(report.Conflicts)
		}
	}

	if result.Popped > 0 {
		j.logger.Info("reconcile batch completed",
			zap.Int("popped", result.Popped),
			zap.Int("changed", result.Changed),
			zap.Int("requeued", result.Requeued),
			zap.Int("conflicts", result.Conflicts),
			zap.Int("failed", result.Failed),
		)
	}

	return result, nil
}
