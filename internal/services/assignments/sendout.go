package assignments

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/ivankudzin/giftexchange/internal/domain/model"
)

type dispatch struct {
	giver      *model.Participant
	assignment *model.Assignment
}

// SendOut stamps every assignment as sent and then notifies each giver whose
// assignment resolves to both a giver and a request. Stamps commit before any
// notification goes out; delivery failures are counted, not returned.
func (s *Service) SendOut(ctx context.Context, collectionID int64) (SendOutReport, error) {
	if collectionID <= 0 {
		return SendOutReport{}, ErrValidation
	}
	if err := s.ready(); err != nil {
		return SendOutReport{}, err
	}

	report := SendOutReport{
		RunID:        uuid.NewString(),
		CollectionID: collectionID,
		StartedAt:    s.now().UTC(),
	}

	var (
		collection model.Collection
		queue      []dispatch
	)
	err := s.withCollectionLock(ctx, collectionID, func(lockCtx context.Context) error {
		return s.tx(lockCtx, func(txCtx context.Context, tx pgx.Tx) error {
			ws, err := s.load(txCtx, tx, collectionID)
			if err != nil {
				return err
			}
			collection = ws.collection

			sentAt := s.now().UTC()
			for _, assignment := range ws.assignments {
				if err := s.assignments.MarkSent(txCtx, tx, assignment.ID, sentAt); err != nil {
					return &PersistenceError{
						Op:           "mark assignment sent",
						CollectionID: collectionID,
						AssignmentID: assignment.ID,
						Err:          err,
					}
				}
				stamp := sentAt
				assignment.SentAt = &stamp
				report.Stamped++

				giver := assignment.Giver()
				if giver == nil || assignment.Recipient() == nil {
					report.Unresolved++
					continue
				}
				queue = append(queue, dispatch{giver: giver, assignment: assignment})
			}
			return nil
		})
	})
	if err != nil {
		report.FinishedAt = s.now().UTC()
		s.logger.Error("send out assignments failed", zap.Int64("collection_id", collectionID), zap.Error(err))
		return report, err
	}

	for _, item := range queue {
		if s.notifier == nil {
			report.Failed++
			continue
		}
		if err := s.notifier.Notify(ctx, collection, item.giver, item.assignment); err != nil {
			report.Failed++
			s.logger.Warn("assignment notification failed",
				zap.Int64("collection_id", collectionID),
				zap.Int64("assignment_id", item.assignment.ID),
				zap.Int64("participant_id", item.giver.ID),
				zap.Error(err),
			)
			continue
		}
		report.Notified++
	}
	if s.notifier == nil && len(queue) > 0 {
		s.logger.Warn("no notifier configured, assignments stamped without delivery",
			zap.Int64("collection_id", collectionID),
			zap.Int("pending", len(queue)),
		)
	}

	report.FinishedAt = s.now().UTC()
	s.logger.Info("send out assignments completed",
		zap.Int64("collection_id", collectionID),
		zap.String("run_id", report.RunID),
		zap.Int("stamped", report.Stamped),
		zap.Int("notified", report.Notified),
		zap.Int("unresolved", report.Unresolved),
		zap.Int("failed", report.Failed),
	)
	s.record(ctx, RunRecord{
		RunID:        report.RunID,
		CollectionID: collectionID,
		Kind:         RunKindSendOut,
		FinishedAt:   report.FinishedAt,
		Report:       report,
	})
	return report, nil
}
