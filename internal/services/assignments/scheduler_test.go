package assignments_test

import (
	"math/rand/v2"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/ivankudzin/giftexchange/internal/domain/enums"
	"github.com/ivankudzin/giftexchange/internal/domain/model"
	"github.com/ivankudzin/giftexchange/internal/services/assignments"
)

// signupWithCounts builds a signup carrying the given number of request and
// offer potential matches. Only list lengths matter to the scheduler.
func signupWithCounts(id int64, requests, offers int) *model.Signup {
	signup := &model.Signup{ID: id}
	for i := 0; i < requests; i++ {
		signup.RequestPotentialMatches = append(signup.RequestPotentialMatches, &model.PotentialMatch{RequestSignup: signup})
	}
	for i := 0; i < offers; i++ {
		signup.OfferPotentialMatches = append(signup.OfferPotentialMatches, &model.PotentialMatch{OfferSignup: signup})
	}
	return signup
}

func seeded(seed uint64) *rand.Rand {
	return rand.New(rand.NewPCG(seed, seed))
}

func countOf(step assignments.Step) int {
	return len(step.Signup.PotentialMatches(step.Role))
}

func TestScheduleVisitsBucketsByCountRequestFirst(t *testing.T) {
	signups := []*model.Signup{
		signupWithCounts(1, 2, 0),
		signupWithCounts(2, 0, 3),
		signupWithCounts(3, 1, 1),
		signupWithCounts(4, 3, 2),
		signupWithCounts(5, 0, 0),
	}

	steps := assignments.Schedule(signups, seeded(1))
	require.Len(t, steps, 2*len(signups))

	prevCount, prevRole := -1, enums.RoleRequest
	for _, step := range steps {
		count := countOf(step)
		require.GreaterOrEqual(t, count, prevCount, "counts must not decrease")
		if count == prevCount && prevRole == enums.RoleOffer {
			require.Equal(t, enums.RoleOffer, step.Role, "request bucket follows offer bucket at count %d", count)
		}
		prevCount, prevRole = count, step.Role
	}
}

func TestScheduleEmitsEverySignupOncePerRole(t *testing.T) {
	var signups []*model.Signup
	for i := int64(1); i <= 20; i++ {
		signups = append(signups, signupWithCounts(i, int(i%4), int(i%3)))
	}

	steps := assignments.Schedule(signups, seeded(9))

	seen := make(map[enums.Role]map[int64]int)
	for _, step := range steps {
		if seen[step.Role] == nil {
			seen[step.Role] = make(map[int64]int)
		}
		seen[step.Role][step.Signup.ID]++
	}
	for _, role := range []enums.Role{enums.RoleRequest, enums.RoleOffer} {
		require.Len(t, seen[role], len(signups))
		for id, n := range seen[role] {
			require.Equal(t, 1, n, "signup %d role %s", id, role)
		}
	}
}

func TestScheduleIncludesZeroMatchBucket(t *testing.T) {
	lonely := signupWithCounts(1, 0, 0)

	steps := assignments.Schedule([]*model.Signup{lonely}, nil)
	require.Equal(t, []assignments.Step{
		{Signup: lonely, Role: enums.RoleRequest},
		{Signup: lonely, Role: enums.RoleOffer},
	}, steps)
}

func TestScheduleSameSeedSameOrder(t *testing.T) {
	var signups []*model.Signup
	for i := int64(1); i <= 30; i++ {
		signups = append(signups, signupWithCounts(i, 1, 1))
	}

	first := assignments.Schedule(signups, seeded(42))
	second := assignments.Schedule(signups, seeded(42))
	require.Equal(t, ids(first), ids(second))
}

func TestScheduleShufflesWithinBucket(t *testing.T) {
	var signups []*model.Signup
	for i := int64(1); i <= 30; i++ {
		signups = append(signups, signupWithCounts(i, 1, 1))
	}

	orders := make(map[string]struct{})
	for seed := uint64(1); seed <= 10; seed++ {
		steps := assignments.Schedule(signups, seeded(seed))
		key := ""
		for _, id := range ids(steps)[:len(signups)] {
			key += string(rune('A' + id))
		}
		orders[key] = struct{}{}
	}
	require.Greater(t, len(orders), 1, "different seeds should produce different bucket orders")
}

func TestScheduleDoesNotMutateInput(t *testing.T) {
	signups := []*model.Signup{
		signupWithCounts(1, 2, 1),
		signupWithCounts(2, 1, 2),
		signupWithCounts(3, 0, 1),
	}

	assignments.Schedule(signups, seeded(3))

	require.Equal(t, []int64{1, 2, 3}, []int64{signups[0].ID, signups[1].ID, signups[2].ID})
	for _, signup := range signups {
		require.False(t, signup.AssignedAsOffer)
		require.False(t, signup.AssignedAsRequest)
	}
	require.Len(t, signups[0].RequestPotentialMatches, 2)
}

func TestScheduleEmpty(t *testing.T) {
	require.Empty(t, assignments.Schedule(nil, seeded(1)))
}

func ids(steps []assignments.Step) []int64 {
	out := make([]int64, 0, len(steps))
	for _, step := range steps {
		out = append(out, step.Signup.ID)
	}
	return out
}
