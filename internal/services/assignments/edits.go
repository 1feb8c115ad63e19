package assignments

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/ivankudzin/giftexchange/internal/domain/model"
	"github.com/ivankudzin/giftexchange/internal/pkg/validate"
	pgrepo "github.com/ivankudzin/giftexchange/internal/repo/postgres"
)

// SetPinchHitter names a substitute giver by byline ("name" or
// "name (login)"). An empty byline removes the pinch hitter.
func (s *Service) SetPinchHitter(ctx context.Context, collectionID, assignmentID int64, byline string) (*model.Assignment, error) {
	return s.editAssignment(ctx, collectionID, assignmentID, "set pinch hitter", func(ctx context.Context, tx pgx.Tx, ws *workset, assignment *model.Assignment) error {
		return s.applyPinchHitter(ctx, tx, ws, assignment, byline)
	})
}

// SetPinchRequest names a substitute recipient by byline. The participant
// must have a signup in the same collection. An empty byline removes it.
func (s *Service) SetPinchRequest(ctx context.Context, collectionID, assignmentID int64, byline string) (*model.Assignment, error) {
	return s.editAssignment(ctx, collectionID, assignmentID, "set pinch request", func(ctx context.Context, tx pgx.Tx, ws *workset, assignment *model.Assignment) error {
		return s.applyPinchRequest(ctx, tx, ws, assignment, byline)
	})
}

// UpdatePinches applies a pinch hitter and a pinch request byline in one
// transaction. A nil byline leaves that field untouched. Either both edits
// are saved or neither is.
func (s *Service) UpdatePinches(ctx context.Context, collectionID, assignmentID int64, hitter, request *string) (*model.Assignment, error) {
	if hitter == nil && request == nil {
		return nil, ErrValidation
	}
	return s.editAssignment(ctx, collectionID, assignmentID, "update pinches", func(ctx context.Context, tx pgx.Tx, ws *workset, assignment *model.Assignment) error {
		if hitter != nil {
			if err := s.applyPinchHitter(ctx, tx, ws, assignment, *hitter); err != nil {
				return err
			}
		}
		if request != nil {
			if err := s.applyPinchRequest(ctx, tx, ws, assignment, *request); err != nil {
				return err
			}
		}
		return nil
	})
}

func (s *Service) applyPinchHitter(ctx context.Context, tx pgx.Tx, ws *workset, assignment *model.Assignment, byline string) error {
	if !validate.Required(byline) {
		assignment.PinchHitter = nil
		return nil
	}
	participant, err := s.findParticipant(ctx, tx, ws, byline)
	if err != nil {
		return err
	}
	assignment.PinchHitter = participant
	return nil
}

func (s *Service) applyPinchRequest(ctx context.Context, tx pgx.Tx, ws *workset, assignment *model.Assignment, byline string) error {
	if !validate.Required(byline) {
		assignment.PinchRequestSignup = nil
		return nil
	}
	participant, err := s.findParticipant(ctx, tx, ws, byline)
	if err != nil {
		return err
	}
	signup := ws.signupForParticipant(participant.ID)
	if signup == nil {
		return ErrSignupNotFound
	}
	assignment.PinchRequestSignup = signup
	return nil
}

// DeleteAssignment removes one assignment by hand. The collection is queued
// for reconciliation afterwards.
func (s *Service) DeleteAssignment(ctx context.Context, collectionID, assignmentID int64) error {
	if collectionID <= 0 || assignmentID <= 0 {
		return ErrValidation
	}
	if err := s.ready(); err != nil {
		return err
	}

	err := s.withCollectionLock(ctx, collectionID, func(lockCtx context.Context) error {
		return s.tx(lockCtx, func(txCtx context.Context, tx pgx.Tx) error {
			ws, err := s.load(txCtx, tx, collectionID)
			if err != nil {
				return err
			}
			assignment := ws.assignment(assignmentID)
			if assignment == nil {
				return ErrAssignmentNotFound
			}
			return s.destroyAssignment(txCtx, tx, ws, assignment)
		})
	})
	if err != nil {
		return err
	}

	s.logger.Info("assignment deleted by hand",
		zap.Int64("collection_id", collectionID),
		zap.Int64("assignment_id", assignmentID),
	)
	s.markDirty(ctx, collectionID)
	return nil
}

func (s *Service) editAssignment(
	ctx context.Context,
	collectionID, assignmentID int64,
	op string,
	edit func(context.Context, pgx.Tx, *workset, *model.Assignment) error,
) (*model.Assignment, error) {
	if collectionID <= 0 || assignmentID <= 0 {
		return nil, ErrValidation
	}
	if err := s.ready(); err != nil {
		return nil, err
	}

	var edited *model.Assignment
	err := s.withCollectionLock(ctx, collectionID, func(lockCtx context.Context) error {
		return s.tx(lockCtx, func(txCtx context.Context, tx pgx.Tx) error {
			ws, err := s.load(txCtx, tx, collectionID)
			if err != nil {
				return err
			}
			assignment := ws.assignment(assignmentID)
			if assignment == nil {
				return ErrAssignmentNotFound
			}
			if err := edit(txCtx, tx, ws, assignment); err != nil {
				return err
			}
			if err := s.updateAssignment(txCtx, tx, ws, assignment); err != nil {
				return err
			}
			edited = assignment
			return nil
		})
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("assignment edited by hand",
		zap.String("op", op),
		zap.Int64("collection_id", collectionID),
		zap.Int64("assignment_id", assignmentID),
	)
	s.markDirty(ctx, collectionID)
	return edited, nil
}

func (s *Service) findParticipant(ctx context.Context, tx pgx.Tx, ws *workset, byline string) (*model.Participant, error) {
	if s.participants == nil {
		return nil, fmt.Errorf("participant store is not configured")
	}
	name, login := model.ParseByline(byline)
	rec, err := s.participants.FindByByline(ctx, tx, name, login)
	if err != nil {
		if errors.Is(err, pgrepo.ErrParticipantNotFound) {
			return nil, ErrParticipantNotFound
		}
		return nil, fmt.Errorf("find participant %q: %w", byline, err)
	}
	return ws.addParticipant(rec), nil
}
