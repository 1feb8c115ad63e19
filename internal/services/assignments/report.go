package assignments

import (
	"time"

	"github.com/ivankudzin/giftexchange/internal/domain/enums"
)

const (
	RunKindGenerate  = "generate"
	RunKindClear     = "clear"
	RunKindReconcile = "reconcile"
	RunKindSendOut   = "send_out"
)

// SkippedEdge is a potential match dropped at load time because one of its
// signups is not part of the collection.
type SkippedEdge struct {
	PotentialMatchID int64 `json:"potential_match_id"`
	OfferSignupID    int64 `json:"offer_signup_id"`
	RequestSignupID  int64 `json:"request_signup_id"`
}

type RunReport struct {
	RunID               string        `json:"run_id"`
	CollectionID        int64         `json:"collection_id"`
	Signups             int           `json:"signups"`
	Cleared             int           `json:"cleared"`
	Assignments         int           `json:"assignments"`
	Matched             int           `json:"matched"`
	RequestPlaceholders int           `json:"request_placeholders"`
	OfferPlaceholders   int           `json:"offer_placeholders"`
	SkippedEdges        []SkippedEdge `json:"skipped_edges,omitempty"`
	StartedAt           time.Time     `json:"started_at"`
	FinishedAt          time.Time     `json:"finished_at"`
}

// Conflict is a signup holding more than one populated assignment in a role.
// Reconcile keeps all of them and names the one it treats as primary.
type Conflict struct {
	SignupID      int64      `json:"signup_id"`
	Role          enums.Role `json:"role"`
	AssignmentIDs []int64    `json:"assignment_ids"`
	KeptID        int64      `json:"kept_id"`
}

type ReconcileReport struct {
	RunID        string     `json:"run_id"`
	CollectionID int64      `json:"collection_id"`
	Destroyed    int        `json:"destroyed"`
	Created      int        `json:"created"`
	FlagsFixed   int        `json:"flags_fixed"`
	Conflicts    []Conflict `json:"conflicts,omitempty"`
	StartedAt    time.Time  `json:"started_at"`
	FinishedAt   time.Time  `json:"finished_at"`
}

// Changed reports whether the pass wrote anything.
func (r ReconcileReport) Changed() bool {
	return r.Destroyed > 0 || r.Created > 0 || r.FlagsFixed > 0
}

type SendOutReport struct {
	RunID        string    `json:"run_id"`
	CollectionID int64     `json:"collection_id"`
	Stamped      int       `json:"stamped"`
	Notified     int       `json:"notified"`
	Unresolved   int       `json:"unresolved"`
	Failed       int       `json:"failed"`
	StartedAt    time.Time `json:"started_at"`
	FinishedAt   time.Time `json:"finished_at"`
}

// RunRecord is what gets handed to recorders after a run commits.
type RunRecord struct {
	RunID        string    `json:"run_id"`
	CollectionID int64     `json:"collection_id"`
	Kind         string    `json:"kind"`
	FinishedAt   time.Time `json:"finished_at"`
	Report       any       `json:"report"`
}
