package assignments

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/ivankudzin/giftexchange/internal/domain/enums"
	"github.com/ivankudzin/giftexchange/internal/domain/model"
	pgrepo "github.com/ivankudzin/giftexchange/internal/repo/postgres"
)

const defaultLockTTL = 5 * time.Minute

// Service runs the assignment engine for one collection at a time. Each
// operation takes the collection lock, loads the whole collection inside a
// transaction and applies every write in walk order within that transaction.
type Service struct {
	tx           pgrepo.TxFunc
	collections  CollectionStore
	assignments  AssignmentStore
	signups      SignupStore
	participants ParticipantStore
	locker       Locker
	notifier     Notifier
	recorders    []Recorder
	status       StatusStore
	dirty        DirtyMarker
	newShuffler  func() Shuffler
	lockTTL      time.Duration
	now          func() time.Time
	logger       *zap.Logger
}

func NewService(deps Dependencies, cfg Config) *Service {
	tx := deps.Tx
	if tx == nil && deps.Pool != nil {
		tx = pgrepo.Transactor(deps.Pool)
	}
	locker := deps.Locker
	if locker == nil {
		locker = newLocalLocker()
	}
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	lockTTL := cfg.LockTTL
	if lockTTL <= 0 {
		lockTTL = defaultLockTTL
	}

	return &Service{
		tx:           tx,
		collections:  deps.Collections,
		assignments:  deps.Assignments,
		signups:      deps.Signups,
		participants: deps.Participants,
		locker:       locker,
		notifier:     deps.Notifier,
		recorders:    deps.Recorders,
		status:       deps.Status,
		dirty:        deps.Dirty,
		newShuffler:  newShufflerFactory(cfg.RandomSeed),
		lockTTL:      lockTTL,
		now:          time.Now,
		logger:       logger,
	}
}

// WithShuffler replaces the random source used for bucket order.
func (s *Service) WithShuffler(factory func() Shuffler) *Service {
	if factory != nil {
		s.newShuffler = factory
	}
	return s
}

// Generate clears the collection's assignments and rebuilds them from the
// potential matches, scarcest signups first. It is safe to run again at any
// time; a failed run rolls back and leaves the previous assignments intact.
func (s *Service) Generate(ctx context.Context, collectionID int64) (RunReport, error) {
	if collectionID <= 0 {
		return RunReport{}, ErrValidation
	}
	if err := s.ready(); err != nil {
		return RunReport{}, err
	}

	report := RunReport{
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
			report.Signups = len(ws.signups)
			report.SkippedEdges = ws.skippedEdges
			if len(ws.signups) == 0 {
				return ErrNoSignups
			}

			cleared, err := s.clearAll(txCtx, tx, ws)
			if err != nil {
				return err
			}
			report.Cleared = cleared
			if err := s.resetStaleFlags(txCtx, tx, ws); err != nil {
				return err
			}

			walker := &assigner{svc: s, tx: tx, ws: ws}
			for _, step := range Schedule(ws.signups, s.newShuffler()) {
				if step.Signup.Assigned(step.Role) {
					continue
				}
				if step.Role == enums.RoleRequest {
					_, err = walker.assignRequest(txCtx, step.Signup)
				} else {
					_, err = walker.assignOffer(txCtx, step.Signup)
				}
				if err != nil {
					return err
				}
			}

			summarize(&report, ws)
			return nil
		})
	})
	report.FinishedAt = s.now().UTC()
	if err != nil {
		s.logger.Error("generate assignments failed",
			zap.Int64("collection_id", collectionID),
			zap.String("run_id", report.RunID),
			zap.Error(err),
		)
		return report, err
	}

	s.logger.Info("generate assignments completed",
		zap.Int64("collection_id", collectionID),
		zap.String("run_id", report.RunID),
		zap.Int("signups", report.Signups),
		zap.Int("matched", report.Matched),
		zap.Int("request_placeholders", report.RequestPlaceholders),
		zap.Int("offer_placeholders", report.OfferPlaceholders),
		zap.Int("skipped_edges", len(report.SkippedEdges)),
	)
	s.record(ctx, RunRecord{
		RunID:        report.RunID,
		CollectionID: collectionID,
		Kind:         RunKindGenerate,
		FinishedAt:   report.FinishedAt,
		Report:       report,
	})
	return report, nil
}

// Clear destroys every assignment in the collection, resetting the flags of
// the signups each one referenced.
func (s *Service) Clear(ctx context.Context, collectionID int64) (int, error) {
	if collectionID <= 0 {
		return 0, ErrValidation
	}
	if err := s.ready(); err != nil {
		return 0, err
	}

	var cleared int
	err := s.withCollectionLock(ctx, collectionID, func(lockCtx context.Context) error {
		return s.tx(lockCtx, func(txCtx context.Context, tx pgx.Tx) error {
			ws, err := s.load(txCtx, tx, collectionID)
			if err != nil {
				return err
			}
			cleared, err = s.clearAll(txCtx, tx, ws)
			return err
		})
	})
	if err != nil {
		return 0, err
	}

	s.logger.Info("clear assignments completed",
		zap.Int64("collection_id", collectionID),
		zap.Int("cleared", cleared),
	)
	now := s.now().UTC()
	s.record(ctx, RunRecord{
		RunID:        uuid.NewString(),
		CollectionID: collectionID,
		Kind:         RunKindClear,
		FinishedAt:   now,
		Report:       map[string]int{"cleared": cleared},
	})
	return cleared, nil
}

// Filter narrows ListAssignments to one user's side of the exchange. Zero
// fields do not filter.
type Filter struct {
	OfferingUserID   int64
	RequestingUserID int64
}

func (f Filter) match(a *model.Assignment) bool {
	if f.OfferingUserID > 0 {
		if a.OfferSignup == nil || a.OfferSignup.Participant == nil || a.OfferSignup.Participant.UserID != f.OfferingUserID {
			return false
		}
	}
	if f.RequestingUserID > 0 {
		if a.RequestSignup == nil || a.RequestSignup.Participant == nil || a.RequestSignup.Participant.UserID != f.RequestingUserID {
			return false
		}
	}
	return true
}

// ListAssignments returns the collection's assignments sorted by recipient
// name.
func (s *Service) ListAssignments(ctx context.Context, collectionID int64, filter Filter) ([]*model.Assignment, error) {
	if collectionID <= 0 || filter.OfferingUserID < 0 || filter.RequestingUserID < 0 {
		return nil, ErrValidation
	}
	if err := s.ready(); err != nil {
		return nil, err
	}

	var items []*model.Assignment
	err := s.tx(ctx, func(txCtx context.Context, tx pgx.Tx) error {
		ws, err := s.load(txCtx, tx, collectionID)
		if err != nil {
			return err
		}
		items = make([]*model.Assignment, 0, len(ws.assignments))
		for _, assignment := range ws.assignments {
			if filter.match(assignment) {
				items = append(items, assignment)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	SortAssignments(items)
	return items, nil
}

func (s *Service) ready() error {
	if s.tx == nil || s.collections == nil || s.assignments == nil || s.signups == nil {
		return fmt.Errorf("assignment dependencies are not configured")
	}
	return nil
}

func (s *Service) withCollectionLock(ctx context.Context, collectionID int64, fn func(context.Context) error) error {
	key := lockKey(collectionID)
	token, ok, err := s.locker.Acquire(ctx, key, s.lockTTL)
	if err != nil {
		return fmt.Errorf("acquire collection lock: %w", err)
	}
	if !ok {
		return ErrCollectionBusy
	}
	defer func() {
		// Released on a fresh context so a cancelled run still frees the lock.
		releaseCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
		defer cancel()
		if err := s.locker.Release(releaseCtx, key, token); err != nil {
			s.logger.Warn("release collection lock failed", zap.Int64("collection_id", collectionID), zap.Error(err))
		}
	}()

	runCtx, cancel := context.WithCancelCause(ctx)
	defer cancel(nil)
	stop := s.keepLock(runCtx, cancel, collectionID, key, token)
	err = fn(runCtx)
	stop()

	if err != nil && errors.Is(context.Cause(runCtx), ErrLockLost) {
		return fmt.Errorf("%w: %w", ErrLockLost, err)
	}
	return err
}

func (s *Service) load(ctx context.Context, tx pgx.Tx, collectionID int64) (*workset, error) {
	snapshot, err := s.collections.LoadSnapshot(ctx, tx, collectionID)
	if err != nil {
		if errors.Is(err, pgrepo.ErrCollectionNotFound) {
			return nil, ErrCollectionNotFound
		}
		return nil, fmt.Errorf("load collection %d: %w", collectionID, err)
	}

	ws := newWorkset(snapshot)
	for _, edge := range ws.skippedEdges {
		s.logger.Warn("skipping potential match with unknown signup",
			zap.Int64("collection_id", collectionID),
			zap.Int64("potential_match_id", edge.PotentialMatchID),
			zap.Int64("offer_signup_id", edge.OfferSignupID),
			zap.Int64("request_signup_id", edge.RequestSignupID),
		)
	}
	return ws, nil
}

func (s *Service) clearAll(ctx context.Context, tx pgx.Tx, ws *workset) (int, error) {
	victims := append([]*model.Assignment(nil), ws.assignments...)
	for _, assignment := range victims {
		if err := s.destroyAssignment(ctx, tx, ws, assignment); err != nil {
			return 0, err
		}
	}
	return len(victims), nil
}

// resetStaleFlags clears flags left set on signups that no longer hold any
// assignment, so the walk does not skip them.
func (s *Service) resetStaleFlags(ctx context.Context, tx pgx.Tx, ws *workset) error {
	for _, signup := range ws.signups {
		if !signup.AssignedAsOffer && !signup.AssignedAsRequest {
			continue
		}
		s.logger.Warn("resetting stale signup flags",
			zap.Int64("collection_id", ws.collection.ID),
			zap.Int64("signup_id", signup.ID),
		)
		signup.AssignedAsOffer = false
		signup.AssignedAsRequest = false
		if err := s.persistSignup(ctx, tx, signup); err != nil {
			return err
		}
	}
	return nil
}

// destroyAssignment is the only deletion path. It resets the matched flags of
// the offer and request signups the record pointed at, then deletes it.
func (s *Service) destroyAssignment(ctx context.Context, tx pgx.Tx, ws *workset, assignment *model.Assignment) error {
	if offer := assignment.OfferSignup; offer != nil {
		offer.AssignedAsOffer = false
		if err := s.persistSignup(ctx, tx, offer); err != nil {
			return err
		}
	}
	if request := assignment.RequestSignup; request != nil {
		request.AssignedAsRequest = false
		if err := s.persistSignup(ctx, tx, request); err != nil {
			return err
		}
	}

	if err := s.assignments.Delete(ctx, tx, assignment.ID); err != nil {
		return &PersistenceError{
			Op:           "delete assignment",
			CollectionID: ws.collection.ID,
			AssignmentID: assignment.ID,
			Err:          err,
		}
	}
	ws.remove(assignment)
	return nil
}

func (s *Service) createAssignment(ctx context.Context, tx pgx.Tx, ws *workset, assignment *model.Assignment) error {
	id, err := s.assignments.Create(ctx, tx, toRecord(assignment))
	if err != nil {
		perr := &PersistenceError{Op: "create assignment", CollectionID: ws.collection.ID, Err: err}
		if signup := assignment.RequestSignup; signup != nil {
			perr.SignupID = signup.ID
		} else if signup := assignment.OfferSignup; signup != nil {
			perr.SignupID = signup.ID
		}
		return perr
	}
	assignment.ID = id
	if assignment.CreatedAt.IsZero() {
		assignment.CreatedAt = s.now().UTC()
	}
	ws.assignments = append(ws.assignments, assignment)
	return nil
}

func (s *Service) updateAssignment(ctx context.Context, tx pgx.Tx, ws *workset, assignment *model.Assignment) error {
	if err := s.assignments.Update(ctx, tx, toRecord(assignment)); err != nil {
		if errors.Is(err, pgrepo.ErrParticipantNotFound) {
			return ErrParticipantNotFound
		}
		return &PersistenceError{
			Op:           "update assignment",
			CollectionID: ws.collection.ID,
			AssignmentID: assignment.ID,
			Err:          err,
		}
	}
	return nil
}

func (s *Service) persistSignup(ctx context.Context, tx pgx.Tx, signup *model.Signup) error {
	if err := s.signups.UpdateFlags(ctx, tx, signup.ID, signup.AssignedAsOffer, signup.AssignedAsRequest); err != nil {
		return &PersistenceError{
			Op:           "update signup flags",
			CollectionID: signup.CollectionID,
			SignupID:     signup.ID,
			Err:          err,
		}
	}
	return nil
}

func (s *Service) record(ctx context.Context, rec RunRecord) {
	if s.status != nil {
		payload, err := json.Marshal(rec)
		if err == nil {
			err = s.status.SaveRun(ctx, rec.CollectionID, rec.Kind, payload)
		}
		if err != nil {
			s.logger.Warn("save run status failed",
				zap.Int64("collection_id", rec.CollectionID),
				zap.String("kind", rec.Kind),
				zap.Error(err),
			)
		}
	}
	for _, recorder := range s.recorders {
		if recorder == nil {
			continue
		}
		if err := recorder.Record(ctx, rec); err != nil {
			s.logger.Warn("record run failed",
				zap.Int64("collection_id", rec.CollectionID),
				zap.String("kind", rec.Kind),
				zap.Error(err),
			)
		}
	}
}

// LastRuns returns the latest recorded run of each kind for the collection,
// keyed by run kind.
func (s *Service) LastRuns(ctx context.Context, collectionID int64) (map[string]json.RawMessage, error) {
	if collectionID <= 0 {
		return nil, ErrValidation
	}
	out := make(map[string]json.RawMessage)
	if s.status == nil {
		return out, nil
	}
	runs, err := s.status.LatestRuns(ctx, collectionID)
	if err != nil {
		return nil, fmt.Errorf("load run status: %w", err)
	}
	for kind, payload := range runs {
		out[kind] = json.RawMessage(payload)
	}
	return out, nil
}

func (s *Service) markDirty(ctx context.Context, collectionID int64) {
	if s.dirty == nil {
		return
	}
	if err := s.dirty.MarkDirty(ctx, collectionID); err != nil {
		s.logger.Warn("mark collection dirty failed", zap.Int64("collection_id", collectionID), zap.Error(err))
	}
}

func summarize(report *RunReport, ws *workset) {
	report.Assignments = len(ws.assignments)
	for _, assignment := range ws.assignments {
		switch {
		case assignment.OfferSignup != nil && assignment.RequestSignup != nil:
			report.Matched++
		case assignment.RequestSignup != nil:
			report.RequestPlaceholders++
		case assignment.OfferSignup != nil:
			report.OfferPlaceholders++
		}
	}
}
