package assignments_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/ivankudzin/giftexchange/internal/domain/model"
	"github.com/ivankudzin/giftexchange/internal/services/assignments"
)

func requestFor(name string) *model.Assignment {
	return &model.Assignment{RequestSignup: &model.Signup{Participant: &model.Participant{Name: name}}}
}

func TestCompareAssignments(t *testing.T) {
	noRequest := &model.Assignment{OfferSignup: &model.Signup{Participant: &model.Participant{Name: "Zed"}}}
	noParticipant := &model.Assignment{RequestSignup: &model.Signup{}}

	require.Negative(t, assignments.CompareAssignments(requestFor("alice"), requestFor("Bob")))
	require.Positive(t, assignments.CompareAssignments(requestFor("bob"), requestFor("Alice")))
	require.Zero(t, assignments.CompareAssignments(requestFor("ALICE"), requestFor("alice")))
	require.Negative(t, assignments.CompareAssignments(requestFor("zoe"), noRequest))
	require.Positive(t, assignments.CompareAssignments(noRequest, requestFor("zoe")))
	require.Zero(t, assignments.CompareAssignments(noRequest, noParticipant))
	require.Zero(t, assignments.CompareAssignments(nil, noRequest))
}

func TestSortAssignmentsPlaceholdersLastStable(t *testing.T) {
	firstOrphan := &model.Assignment{ID: 1}
	secondOrphan := &model.Assignment{ID: 2}
	carol := requestFor("carol")
	alice := requestFor("Alice")

	items := []*model.Assignment{firstOrphan, carol, secondOrphan, alice}
	assignments.SortAssignments(items)

	require.Equal(t, []*model.Assignment{alice, carol, firstOrphan, secondOrphan}, items)
}
