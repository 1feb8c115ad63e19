package assignments

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/ivankudzin/giftexchange/internal/domain/enums"
	"github.com/ivankudzin/giftexchange/internal/domain/model"
)

var roles = [...]enums.Role{enums.RoleRequest, enums.RoleOffer}

// Reconcile repairs bookkeeping after manual edits: every signup ends up
// holding exactly one assignment per role. Redundant placeholders are
// destroyed, missing ones are created, and the signup flags are brought in
// line with what each signup holds. It never pairs anyone.
func (s *Service) Reconcile(ctx context.Context, collectionID int64) (ReconcileReport, error) {
	if collectionID <= 0 {
		return ReconcileReport{}, ErrValidation
	}
	if err := s.ready(); err != nil {
		return ReconcileReport{}, err
	}

	report := ReconcileReport{
		RunID:        uuid.NewString(),
		CollectionID: collectionID,
		StartedAt:    s.now().UTC(),
	}

	err := s.withCollectionLock(ctx, collectionID, func(lockCtx context.Context) error {
		return s.tx(lockCtx, func(txCtx context.Context, tx pgx.Tx) error {
			ws, err := s.load(txCtx, tx, collectionID)
			if err != nil {
				return err
			}
			return s.reconcile(txCtx, tx, ws, &report)
		})
	})
	report.FinishedAt = s.now().UTC()
	if err != nil {
		s.logger.Error("reconcile assignments failed",
			zap.Int64("collection_id", collectionID),
			zap.String("run_id", report.RunID),
			zap.Error(err),
		)
		return report, err
	}

	for _, conflict := range report.Conflicts {
		s.logger.Warn("signup holds several populated assignments",
			zap.Int64("collection_id", collectionID),
			zap.Int64("signup_id", conflict.SignupID),
			zap.String("role", string(conflict.Role)),
			zap.Int64s("assignment_ids", conflict.AssignmentIDs),
			zap.Int64("kept_id", conflict.KeptID),
		)
	}
	s.logger.Info("reconcile assignments completed",
		zap.Int64("collection_id", collectionID),
		zap.String("run_id", report.RunID),
		zap.Int("destroyed", report.Destroyed),
		zap.Int("created", report.Created),
		zap.Int("flags_fixed", report.FlagsFixed),
		zap.Int("conflicts", len(report.Conflicts)),
	)
	s.record(ctx, RunRecord{
		RunID:        report.RunID,
		CollectionID: collectionID,
		Kind:         RunKindReconcile,
		FinishedAt:   report.FinishedAt,
		Report:       report,
	})
	return report, nil
}

func (s *Service) reconcile(ctx context.Context, tx pgx.Tx, ws *workset, report *ReconcileReport) error {
	for _, signup := range ws.signups {
		for _, role := range roles {
			held := ws.held(signup, role)
			if len(held) > 1 {
				var populated []*model.Assignment
				for _, assignment := range held {
					if assignment.HasCounterpart(role) {
						populated = append(populated, assignment)
						continue
					}
					if err := s.destroyAssignment(ctx, tx, ws, assignment); err != nil {
						return err
					}
					report.Destroyed++
				}
				if len(populated) > 1 {
					report.Conflicts = append(report.Conflicts, newConflict(signup, role, populated))
				}
			}

			if len(ws.held(signup, role)) == 0 {
				placeholder := &model.Assignment{CollectionID: ws.collection.ID}
				placeholder.SetSignup(role, signup)
				if err := s.createAssignment(ctx, tx, ws, placeholder); err != nil {
					return err
				}
				report.Created++
			}
		}
	}

	// Destroying a placeholder resets the flags of the signup it named even
	// when that signup still holds another record in the role.
	for _, signup := range ws.signups {
		changed := false
		for _, role := range roles {
			holds := len(ws.held(signup, role)) > 0
			if signup.Assigned(role) != holds {
				signup.SetAssigned(role, holds)
				changed = true
			}
		}
		if !changed {
			continue
		}
		if err := s.persistSignup(ctx, tx, signup); err != nil {
			return err
		}
		report.FlagsFixed++
	}

	return nil
}

// newConflict keeps the oldest populated record as the primary one.
func newConflict(signup *model.Signup, role enums.Role, populated []*model.Assignment) Conflict {
	ids := make([]int64, 0, len(populated))
	for _, assignment := range populated {
		ids = append(ids, assignment.ID)
	}
	return Conflict{
		SignupID:      signup.ID,
		Role:          role,
		AssignmentIDs: ids,
		KeptID:        ids[0],
	}
}
