package assignments

import (
	"slices"
	"strings"

	"github.com/ivankudzin/giftexchange/internal/domain/model"
)

// CompareAssignments orders by the request side's participant name, case
// insensitive. Assignments without a resolvable request side sort last and
// compare equal to each other.
func CompareAssignments(a, b *model.Assignment) int {
	aName, aOK := requesterName(a)
	bName, bOK := requesterName(b)
	switch {
	case !aOK && !bOK:
		return 0
	case !aOK:
		return 1
	case !bOK:
		return -1
	}
	return strings.Compare(strings.ToLower(aName), strings.ToLower(bName))
}

// SortAssignments sorts in place with CompareAssignments, keeping the input
// order among equals.
func SortAssignments(items []*model.Assignment) {
	slices.SortStableFunc(items, CompareAssignments)
}

func requesterName(a *model.Assignment) (string, bool) {
	if a == nil || a.RequestSignup == nil || a.RequestSignup.Participant == nil {
		return "", false
	}
	return a.RequestSignup.ParticipantName(), true
}
