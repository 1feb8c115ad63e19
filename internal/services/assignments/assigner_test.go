package assignments

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/ivankudzin/giftexchange/internal/domain/model"
	"github.com/ivankudzin/giftexchange/internal/testutil"
)

// walkFixture holds a collection whose potential matches are attached by
// hand, so a test controls exactly which lists each signup has.
type walkFixture struct {
	store   *testutil.MemoryStore
	svc     *Service
	ws      *workset
	signups map[string]*model.Signup
}

func newWalkFixture(t *testing.T, names ...string) *walkFixture {
	t.Helper()

	store := testutil.NewMemoryStore()
	collectionID := store.AddCollection("walk")
	for _, name := range names {
		store.AddSignup(collectionID, store.AddParticipant(name, name, 0))
	}

	svc := NewService(Dependencies{
		Tx:          store.Tx,
		Collections: store,
		Assignments: store,
		Signups:     store,
	}, Config{})

	snapshot, err := store.LoadSnapshot(context.Background(), nil, collectionID)
	require.NoError(t, err)
	ws := newWorkset(snapshot)

	byName := make(map[string]*model.Signup, len(names))
	for _, signup := range ws.signups {
		byName[signup.Participant.Name] = signup
	}
	return &walkFixture{store: store, svc: svc, ws: ws, signups: byName}
}

// edge links offer → request in both directions, like a loaded snapshot.
func (f *walkFixture) edge(offer, request string, score float64) {
	match := &model.PotentialMatch{
		OfferSignup:   f.signups[offer],
		RequestSignup: f.signups[request],
		Score:         score,
	}
	f.signups[request].RequestPotentialMatches = append(f.signups[request].RequestPotentialMatches, match)
	f.signups[offer].OfferPotentialMatches = append(f.signups[offer].OfferPotentialMatches, match)
}

func (f *walkFixture) sort() {
	for _, signup := range f.ws.signups {
		model.SortBestFirst(signup.RequestPotentialMatches)
		model.SortBestFirst(signup.OfferPotentialMatches)
	}
}

func (f *walkFixture) walker() *assigner {
	return &assigner{svc: f.svc, ws: f.ws}
}

func (f *walkFixture) run(t *testing.T, shuffler Shuffler) {
	t.Helper()

	walker := f.walker()
	for _, step := range Schedule(f.ws.signups, shuffler) {
		_, err := walker.assign(context.Background(), step.Signup, step.Role)
		require.NoError(t, err)
	}
}

func TestAssignRequestTakesBestAvailableOffer(t *testing.T) {
	f := newWalkFixture(t, "R", "O1", "O2", "O3")
	f.edge("O1", "R", 2)
	f.edge("O2", "R", 8)
	f.edge("O3", "R", 5)
	f.sort()

	f.signups["O2"].AssignedAsOffer = true

	assignment, err := f.walker().assignRequest(context.Background(), f.signups["R"])
	require.NoError(t, err)
	require.NotNil(t, assignment)
	require.Same(t, f.signups["O3"], assignment.OfferSignup)
	require.True(t, f.signups["O3"].AssignedAsOffer)
	require.True(t, f.signups["R"].AssignedAsRequest)
	require.False(t, f.signups["O1"].AssignedAsOffer)

	stored := f.store.Signup(f.signups["O3"].ID)
	require.True(t, stored.AssignedAsOffer)
	require.Len(t, f.store.Assignments(f.ws.collection.ID), 1)
}

func TestAssignOfferLeavesPlaceholderWhenAllRequestsTaken(t *testing.T) {
	f := newWalkFixture(t, "O", "R1", "R2")
	f.edge("O", "R1", 3)
	f.edge("O", "R2", 4)
	f.sort()
	f.signups["R1"].AssignedAsRequest = true
	f.signups["R2"].AssignedAsRequest = true

	assignment, err := f.walker().assignOffer(context.Background(), f.signups["O"])
	require.NoError(t, err)
	require.Same(t, f.signups["O"], assignment.OfferSignup)
	require.Nil(t, assignment.RequestSignup)
	require.True(t, f.signups["O"].AssignedAsOffer)
	require.NotZero(t, assignment.ID)
}

func TestAssignIsNoOpForAlreadyAssignedRole(t *testing.T) {
	f := newWalkFixture(t, "R", "O")
	f.edge("O", "R", 1)
	f.signups["R"].AssignedAsRequest = true

	assignment, err := f.walker().assignRequest(context.Background(), f.signups["R"])
	require.NoError(t, err)
	require.Nil(t, assignment)
	require.False(t, f.signups["O"].AssignedAsOffer)
	require.Empty(t, f.store.Assignments(f.ws.collection.ID))
}

func TestAssignWalksCandidatesInDescendingScoreOrder(t *testing.T) {
	f := newWalkFixture(t, "R", "A", "B", "C", "D")
	f.edge("A", "R", 1)
	f.edge("B", "R", 7)
	f.edge("C", "R", 7)
	f.edge("D", "R", 4)
	f.sort()

	var scores []float64
	for _, match := range f.signups["R"].RequestPotentialMatches {
		scores = append(scores, match.Score)
	}
	require.Equal(t, []float64{7, 7, 4, 1}, scores)
	// Ties keep insertion order.
	require.Same(t, f.signups["B"], f.signups["R"].RequestPotentialMatches[0].OfferSignup)

	f.signups["B"].AssignedAsOffer = true
	assignment, err := f.walker().assignRequest(context.Background(), f.signups["R"])
	require.NoError(t, err)
	require.Same(t, f.signups["C"], assignment.OfferSignup)
}

func TestScarceRequestClaimsSharedOfferFirst(t *testing.T) {
	f := newWalkFixture(t, "R1", "R2", "O1", "O2", "O3")
	f.edge("O1", "R1", 9)
	f.edge("O2", "R1", 5)
	f.edge("O3", "R1", 1)
	f.edge("O1", "R2", 7)
	f.sort()

	// Input order kept: O2 precedes O3 in the shared offer bucket.
	f.run(t, nil)

	pairs := make(map[string]string)
	for _, assignment := range f.ws.assignments {
		if assignment.OfferSignup != nil && assignment.RequestSignup != nil {
			pairs[assignment.RequestSignup.Participant.Name] = assignment.OfferSignup.Participant.Name
		}
	}
	require.Equal(t, map[string]string{"R2": "O1", "R1": "O2"}, pairs)

	var o3Offers []*model.Assignment
	for _, assignment := range f.ws.assignments {
		if assignment.OfferSignup == f.signups["O3"] {
			o3Offers = append(o3Offers, assignment)
		}
	}
	require.Len(t, o3Offers, 1)
	require.Nil(t, o3Offers[0].RequestSignup)
}
