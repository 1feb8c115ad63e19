package dto

import (
	"encoding/json"
	"time"

	"github.com/ivankudzin/giftexchange/internal/domain/model"
)

type SignupRef struct {
	SignupID      int64  `json:"signup_id"`
	ParticipantID int64  `json:"participant_id,omitempty"`
	UserID        int64  `json:"user_id,omitempty"`
	Byline        string `json:"byline"`
}

type AssignmentResponse struct {
	ID           int64      `json:"id"`
	CollectionID int64      `json:"collection_id"`
	Offer        *SignupRef `json:"offer"`
	Request      *SignupRef `json:"request"`
	PinchHitter  string     `json:"pinch_hitter,omitempty"`
	PinchRequest string     `json:"pinch_request,omitempty"`
	Giver        string     `json:"giver,omitempty"`
	Recipient    string     `json:"recipient,omitempty"`
	SentAt       *time.Time `json:"sent_at"`
	CreatedAt    time.Time  `json:"created_at"`
}

type AssignmentsResponse struct {
	Items []AssignmentResponse `json:"items"`
	Total int                  `json:"total"`
}

// UpdateAssignmentRequest edits pinch substitutes. Absent fields are left
// alone; an empty string removes the substitute.
type UpdateAssignmentRequest struct {
	PinchHitter  *string `json:"pinch_hitter"`
	PinchRequest *string `json:"pinch_request"`
}

type ClearResponse struct {
	OK      bool `json:"ok"`
	Cleared int  `json:"cleared"`
}

type DeleteResponse struct {
	OK bool `json:"ok"`
}

type RunStatusResponse struct {
	CollectionID int64                      `json:"collection_id"`
	Runs         map[string]json.RawMessage `json:"runs"`
}

type HealthResponse struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks,omitempty"`
}

// FromAssignment renders an assignment with resolved bylines.
func FromAssignment(a *model.Assignment) AssignmentResponse {
	response := AssignmentResponse{
		ID:           a.ID,
		CollectionID: a.CollectionID,
		Offer:        signupRef(a.OfferSignup),
		Request:      signupRef(a.RequestSignup),
		PinchHitter:  a.PinchHitterByline(),
		PinchRequest: a.PinchRequestByline(),
		SentAt:       a.SentAt,
		CreatedAt:    a.CreatedAt,
	}
	if giver := a.Giver(); giver != nil {
		response.Giver = giver.Byline()
	}
	if recipient := a.Recipient(); recipient != nil && recipient.Participant != nil {
		response.Recipient = recipient.Participant.Byline()
	}
	return response
}

func signupRef(signup *model.Signup) *SignupRef {
	if signup == nil {
		return nil
	}
	ref := &SignupRef{SignupID: signup.ID}
	if p := signup.Participant; p != nil {
		ref.ParticipantID = p.ID
		ref.UserID = p.UserID
		ref.Byline = p.Byline()
	}
	return ref
}
