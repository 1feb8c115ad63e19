package postgres

import "time"

type CollectionRecord struct {
	ID        int64
	Name      string
	CreatedAt time.Time
}

type ParticipantRecord struct {
	ID             int64
	UserID         int64
	Name           string
	Login          string
	TelegramChatID int64
}

type SignupRecord struct {
	ID                int64
	CollectionID      int64
	ParticipantID     int64
	AssignedAsOffer   bool
	AssignedAsRequest bool
}

type PotentialMatchRecord struct {
	ID              int64
	CollectionID    int64
	OfferSignupID   int64
	RequestSignupID int64
	Score           float64
}

type AssignmentRecord struct {
	ID                   int64
	CollectionID         int64
	OfferSignupID        *int64
	RequestSignupID      *int64
	PinchHitterID        *int64
	PinchRequestSignupID *int64
	SentAt               *time.Time
	CreatedAt            time.Time
}

// CollectionSnapshot is everything the matching engine reads for one
// collection, loaded up front.
type CollectionSnapshot struct {
	Collection       CollectionRecord
	Participants     []ParticipantRecord
	Signups          []SignupRecord
	PotentialMatches []PotentialMatchRecord
	Assignments      []AssignmentRecord
}
