package model

import (
	"time"

	"github.com/ivankudzin/giftexchange/internal/domain/enums"
)

// Assignment pairs a giver with a recipient. A record with only one side set
// is a placeholder for a signup that has no counterpart yet.
type Assignment struct {
	ID                 int64
	CollectionID       int64
	OfferSignup        *Signup
	RequestSignup      *Signup
	PinchHitter        *Participant
	PinchRequestSignup *Signup
	SentAt             *time.Time
	CreatedAt          time.Time
}

// Signup returns the signup referenced in role, nil when unset.
func (a *Assignment) Signup(role enums.Role) *Signup {
	if role == enums.RoleRequest {
		return a.RequestSignup
	}
	return a.OfferSignup
}

func (a *Assignment) SetSignup(role enums.Role, signup *Signup) {
	if role == enums.RoleRequest {
		a.RequestSignup = signup
		return
	}
	a.OfferSignup = signup
}

// HasCounterpart reports whether the side opposite to role is filled, either
// by a matched signup or by a manual pinch substitute.
func (a *Assignment) HasCounterpart(role enums.Role) bool {
	if role == enums.RoleRequest {
		return a.OfferSignup != nil || a.PinchHitter != nil
	}
	return a.RequestSignup != nil || a.PinchRequestSignup != nil
}

// Giver resolves who creates the gift: the offer signup's participant, else
// the pinch hitter.
func (a *Assignment) Giver() *Participant {
	if a.OfferSignup != nil && a.OfferSignup.Participant != nil {
		return a.OfferSignup.Participant
	}
	return a.PinchHitter
}

// Recipient resolves the request being fulfilled: the request signup, else
// the pinch request signup.
func (a *Assignment) Recipient() *Signup {
	if a.RequestSignup != nil {
		return a.RequestSignup
	}
	return a.PinchRequestSignup
}

func (a *Assignment) PinchHitterByline() string {
	return a.PinchHitter.Byline()
}

func (a *Assignment) PinchRequestByline() string {
	if a.PinchRequestSignup == nil {
		return ""
	}
	return a.PinchRequestSignup.Participant.Byline()
}

func (a *Assignment) Sent() bool {
	return a.SentAt != nil
}
