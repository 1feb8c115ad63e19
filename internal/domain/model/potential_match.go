package model

import (
	"cmp"
	"slices"

	"github.com/ivankudzin/giftexchange/internal/domain/enums"
)

// PotentialMatch is a scored compatibility edge produced by the scoring
// process.
type PotentialMatch struct {
	ID            int64
	CollectionID  int64
	OfferSignup   *Signup
	RequestSignup *Signup
	Score         float64
}

// Counterpart returns the signup on the other side of the edge, seen from a
// signup holding role.
func (m *PotentialMatch) Counterpart(role enums.Role) *Signup {
	if role == enums.RoleRequest {
		return m.OfferSignup
	}
	return m.RequestSignup
}

// SortBestFirst orders matches by descending score. Equal scores keep their
// input order.
func SortBestFirst(matches []*PotentialMatch) {
	slices.SortStableFunc(matches, func(a, b *PotentialMatch) int {
		return cmp.Compare(b.Score, a.Score)
	})
}
