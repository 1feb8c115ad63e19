package assignments

import (
	"context"

	"github.com/jackc/pgx/v5"

	"github.com/ivankudzin/giftexchange/internal/domain/enums"
	"github.com/ivankudzin/giftexchange/internal/domain/model"
)

// assigner commits greedy pairings inside one run. It never revisits a
// pairing once made.
type assigner struct {
	svc *Service
	tx  pgx.Tx
	ws  *workset
}

func (a *assigner) assignRequest(ctx context.Context, request *model.Signup) (*model.Assignment, error) {
	return a.assign(ctx, request, enums.RoleRequest)
}

func (a *assigner) assignOffer(ctx context.Context, offer *model.Signup) (*model.Assignment, error) {
	return a.assign(ctx, offer, enums.RoleOffer)
}

// assign creates the assignment for signup in role and claims the best
// counterpart that does not yet hold the opposite role. Without one the
// assignment is stored as a placeholder. The signup is flagged either way.
func (a *assigner) assign(ctx context.Context, signup *model.Signup, role enums.Role) (*model.Assignment, error) {
	if signup.Assigned(role) {
		return nil, nil
	}

	assignment := &model.Assignment{CollectionID: a.ws.collection.ID}
	assignment.SetSignup(role, signup)

	opposite := role.Opposite()
	for _, candidate := range signup.PotentialMatches(role) {
		counterpart := candidate.Counterpart(role)
		if counterpart == nil || counterpart.Assigned(opposite) {
			continue
		}
		assignment.SetSignup(opposite, counterpart)
		counterpart.SetAssigned(opposite, true)
		if err := a.svc.persistSignup(ctx, a.tx, counterpart); err != nil {
			return nil, err
		}
		break
	}

	signup.SetAssigned(role, true)
	if err := a.svc.persistSignup(ctx, a.tx, signup); err != nil {
		return nil, err
	}

	if err := a.svc.createAssignment(ctx, a.tx, a.ws, assignment); err != nil {
		return nil, err
	}
	return assignment, nil
}
