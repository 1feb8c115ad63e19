package assignments

import (
	"github.com/ivankudzin/giftexchange/internal/domain/enums"
	"github.com/ivankudzin/giftexchange/internal/domain/model"
	pgrepo "github.com/ivankudzin/giftexchange/internal/repo/postgres"
)

// workset is the in-memory graph one run operates on. It is built from a
// snapshot at the start of the run and discarded at the end; every flag flip
// lands here first so the next step of the walk sees it.
type workset struct {
	collection   model.Collection
	signups      []*model.Signup
	signupByID   map[int64]*model.Signup
	participants map[int64]*model.Participant
	assignments  []*model.Assignment
	skippedEdges []SkippedEdge
}

func newWorkset(snapshot pgrepo.CollectionSnapshot) *workset {
	ws := &workset{
		collection: model.Collection{
			ID:        snapshot.Collection.ID,
			Name:      snapshot.Collection.Name,
			CreatedAt: snapshot.Collection.CreatedAt,
		},
		signups:      make([]*model.Signup, 0, len(snapshot.Signups)),
		signupByID:   make(map[int64]*model.Signup, len(snapshot.Signups)),
		participants: make(map[int64]*model.Participant, len(snapshot.Participants)),
		assignments:  make([]*model.Assignment, 0, len(snapshot.Assignments)),
	}

	for _, rec := range snapshot.Participants {
		ws.addParticipant(rec)
	}

	for _, rec := range snapshot.Signups {
		signup := &model.Signup{
			ID:                rec.ID,
			CollectionID:      rec.CollectionID,
			Participant:       ws.participants[rec.ParticipantID],
			AssignedAsOffer:   rec.AssignedAsOffer,
			AssignedAsRequest: rec.AssignedAsRequest,
		}
		ws.signups = append(ws.signups, signup)
		ws.signupByID[signup.ID] = signup
	}

	for _, rec := range snapshot.PotentialMatches {
		offer := ws.signupByID[rec.OfferSignupID]
		request := ws.signupByID[rec.RequestSignupID]
		if offer == nil || request == nil {
			ws.skippedEdges = append(ws.skippedEdges, SkippedEdge{
				PotentialMatchID: rec.ID,
				OfferSignupID:    rec.OfferSignupID,
				RequestSignupID:  rec.RequestSignupID,
			})
			continue
		}
		match := &model.PotentialMatch{
			ID:            rec.ID,
			CollectionID:  rec.CollectionID,
			OfferSignup:   offer,
			RequestSignup: request,
			Score:         rec.Score,
		}
		request.RequestPotentialMatches = append(request.RequestPotentialMatches, match)
		offer.OfferPotentialMatches = append(offer.OfferPotentialMatches, match)
	}

	for _, signup := range ws.signups {
		model.SortBestFirst(signup.RequestPotentialMatches)
		model.SortBestFirst(signup.OfferPotentialMatches)
	}

	for _, rec := range snapshot.Assignments {
		assignment := &model.Assignment{
			ID:                 rec.ID,
			CollectionID:       rec.CollectionID,
			OfferSignup:        ws.signupRef(rec.OfferSignupID),
			RequestSignup:      ws.signupRef(rec.RequestSignupID),
			PinchHitter:        ws.participantRef(rec.PinchHitterID),
			PinchRequestSignup: ws.signupRef(rec.PinchRequestSignupID),
			SentAt:             rec.SentAt,
			CreatedAt:          rec.CreatedAt,
		}
		ws.assignments = append(ws.assignments, assignment)
	}

	return ws
}

func (ws *workset) addParticipant(rec pgrepo.ParticipantRecord) *model.Participant {
	if existing, ok := ws.participants[rec.ID]; ok {
		return existing
	}
	participant := &model.Participant{
		ID:             rec.ID,
		UserID:         rec.UserID,
		Name:           rec.Name,
		Login:          rec.Login,
		TelegramChatID: rec.TelegramChatID,
	}
	ws.participants[rec.ID] = participant
	return participant
}

func (ws *workset) signupRef(id *int64) *model.Signup {
	if id == nil {
		return nil
	}
	return ws.signupByID[*id]
}

func (ws *workset) participantRef(id *int64) *model.Participant {
	if id == nil {
		return nil
	}
	return ws.participants[*id]
}

func (ws *workset) signupForParticipant(participantID int64) *model.Signup {
	for _, signup := range ws.signups {
		if signup.Participant != nil && signup.Participant.ID == participantID {
			return signup
		}
	}
	return nil
}

func (ws *workset) assignment(id int64) *model.Assignment {
	for _, assignment := range ws.assignments {
		if assignment.ID == id {
			return assignment
		}
	}
	return nil
}

// held returns the assignments that reference signup in role, in id order.
func (ws *workset) held(signup *model.Signup, role enums.Role) []*model.Assignment {
	var out []*model.Assignment
	for _, assignment := range ws.assignments {
		if assignment.Signup(role) == signup {
			out = append(out, assignment)
		}
	}
	return out
}

func (ws *workset) remove(target *model.Assignment) {
	for i, assignment := range ws.assignments {
		if assignment == target {
			ws.assignments = append(ws.assignments[:i], ws.assignments[i+1:]...)
			return
		}
	}
}

func toRecord(a *model.Assignment) pgrepo.AssignmentRecord {
	rec := pgrepo.AssignmentRecord{
		ID:           a.ID,
		CollectionID: a.CollectionID,
		SentAt:       a.SentAt,
		CreatedAt:    a.CreatedAt,
	}
	if a.OfferSignup != nil {
		rec.OfferSignupID = idRef(a.OfferSignup.ID)
	}
	if a.RequestSignup != nil {
		rec.RequestSignupID = idRef(a.RequestSignup.ID)
	}
	if a.PinchHitter != nil {
		rec.PinchHitterID = idRef(a.PinchHitter.ID)
	}
	if a.PinchRequestSignup != nil {
		rec.PinchRequestSignupID = idRef(a.PinchRequestSignup.ID)
	}
	return rec
}

func idRef(id int64) *int64 {
	return &id
}
