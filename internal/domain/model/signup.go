package model

import "github.com/ivankudzin/giftexchange/internal/domain/enums"

// Signup is one participant's entry in a collection. It may be matched as a
// request, as an offer, or both; the two roles are tracked independently.
type Signup struct {
	ID                int64
	CollectionID      int64
	Participant       *Participant
	AssignedAsOffer   bool
	AssignedAsRequest bool

	// Best first. Populated from scoring output, never written by the engine.
	RequestPotentialMatches []*PotentialMatch
	OfferPotentialMatches   []*PotentialMatch
}

func (s *Signup) Assigned(role enums.Role) bool {
	if role == enums.RoleRequest {
		return s.AssignedAsRequest
	}
	return s.AssignedAsOffer
}

func (s *Signup) SetAssigned(role enums.Role, assigned bool) {
	if role == enums.RoleRequest {
		s.AssignedAsRequest = assigned
		return
	}
	s.AssignedAsOffer = assigned
}

func (s *Signup) PotentialMatches(role enums.Role) []*PotentialMatch {
	if role == enums.RoleRequest {
		return s.RequestPotentialMatches
	}
	return s.OfferPotentialMatches
}

// ParticipantName is the display name used for ordering, empty when the
// participant is not loaded.
func (s *Signup) ParticipantName() string {
	if s == nil || s.Participant == nil {
		return ""
	}
	return s.Participant.Name
}
