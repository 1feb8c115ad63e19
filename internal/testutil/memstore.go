// Package testutil holds in-memory stand-ins for the Postgres repositories.
package testutil

import (
	"cmp"
	"context"
	"fmt"
	"maps"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/jackc/pgx/v5"

	pgrepo "github.com/ivankudzin/giftexchange/internal/repo/postgres"
)

// Operation names passed to MemoryStore.FailOn.
const (
	OpCreateAssignment = "create_assignment"
	OpUpdateAssignment = "update_assignment"
	OpDeleteAssignment = "delete_assignment"
	OpMarkSent         = "mark_sent"
	OpUpdateSignup     = "update_signup"
)

// MemoryStore implements the collection, signup, participant and assignment
// stores over maps. Tx snapshots state and restores it when fn fails, which
// mirrors a rolled back Postgres transaction.
type MemoryStore struct {
	txMu sync.Mutex
	mu   sync.Mutex

	collections  map[int64]pgrepo.CollectionRecord
	participants map[int64]pgrepo.ParticipantRecord
	signups      map[int64]pgrepo.SignupRecord
	matches      map[int64]pgrepo.PotentialMatchRecord
	assignments  map[int64]pgrepo.AssignmentRecord
	nextID       int64

	// FailOn, when set, is consulted before every write. A non-nil error is
	// returned from the write unchanged.
	FailOn func(op string, id int64) error

	Writes int
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		collections:  make(map[int64]pgrepo.CollectionRecord),
		participants: make(map[int64]pgrepo.ParticipantRecord),
		signups:      make(map[int64]pgrepo.SignupRecord),
		matches:      make(map[int64]pgrepo.PotentialMatchRecord),
		assignments:  make(map[int64]pgrepo.AssignmentRecord),
	}
}

func (m *MemoryStore) id() int64 {
	m.nextID++
	return m.nextID
}

func (m *MemoryStore) AddCollection(name string) int64 {
	m.mu.Lock()
	defer m.mu.Unlock()

	id := m.id()
	m.collections[id] = pgrepo.CollectionRecord{ID: id, Name: name, CreatedAt: time.Unix(0, 0).UTC()}
	return id
}

// AddParticipant registers a pseud. The user id mirrors the pseud id.
func (m *MemoryStore) AddParticipant(name, login string, chatID int64) int64 {
	m.mu.Lock()
	defer m.mu.Unlock()

	id := m.id()
	m.participants[id] = pgrepo.ParticipantRecord{ID: id, UserID: id, Name: name, Login: login, TelegramChatID: chatID}
	return id
}

func (m *MemoryStore) AddSignup(collectionID, participantID int64) int64 {
	m.mu.Lock()
	defer m.mu.Unlock()

	id := m.id()
	m.signups[id] = pgrepo.SignupRecord{ID: id, CollectionID: collectionID, ParticipantID: participantID}
	return id
}

func (m *MemoryStore) AddPotentialMatch(collectionID, offerSignupID, requestSignupID int64, score float64) int64 {
	m.mu.Lock()
	defer m.mu.Unlock()

	id := m.id()
	m.matches[id] = pgrepo.PotentialMatchRecord{
		ID:              id,
		CollectionID:    collectionID,
		OfferSignupID:   offerSignupID,
		RequestSignupID: requestSignupID,
		Score:           score,
	}
	return id
}

// AddAssignment inserts a row directly, bypassing the engine, the way a
// manual edit would.
func (m *MemoryStore) AddAssignment(rec pgrepo.AssignmentRecord) int64 {
	m.mu.Lock()
	defer m.mu.Unlock()

	rec.ID = m.id()
	m.assignments[rec.ID] = rec
	return rec.ID
}

func (m *MemoryStore) SetFlags(signupID int64, assignedAsOffer, assignedAsRequest bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	rec := m.signups[signupID]
	rec.AssignedAsOffer = assignedAsOffer
	rec.AssignedAsRequest = assignedAsRequest
	m.signups[signupID] = rec
}

func (m *MemoryStore) Signup(id int64) pgrepo.SignupRecord {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.signups[id]
}

func (m *MemoryStore) SignupIDs(collectionID int64) []int64 {
	m.mu.Lock()
	defer m.mu.Unlock()

	var ids []int64
	for id, rec := range m.signups {
		if rec.CollectionID == collectionID {
			ids = append(ids, id)
		}
	}
	slices.Sort(ids)
	return ids
}

func (m *MemoryStore) Assignments(collectionID int64) []pgrepo.AssignmentRecord {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.assignmentsLocked(collectionID)
}

func (m *MemoryStore) assignmentsLocked(collectionID int64) []pgrepo.AssignmentRecord {
	var out []pgrepo.AssignmentRecord
	for _, rec := range m.assignments {
		if rec.CollectionID == collectionID {
			out = append(out, rec)
		}
	}
	slices.SortFunc(out, func(a, b pgrepo.AssignmentRecord) int { return cmp.Compare(a.ID, b.ID) })
	return out
}

func (m *MemoryStore) Tx(ctx context.Context, fn func(context.Context, pgx.Tx) error) error {
	m.txMu.Lock()
	defer m.txMu.Unlock()

	m.mu.Lock()
	savedSignups := maps.Clone(m.signups)
	savedAssignments := maps.Clone(m.assignments)
	savedNextID := m.nextID
	m.mu.Unlock()

	if err := fn(ctx, nil); err != nil {
		m.mu.Lock()
		m.signups = savedSignups
		m.assignments = savedAssignments
		m.nextID = savedNextID
		m.mu.Unlock()
		return err
	}
	return nil
}

func (m *MemoryStore) LoadSnapshot(_ context.Context, _ pgx.Tx, collectionID int64) (pgrepo.CollectionSnapshot, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	collection, ok := m.collections[collectionID]
	if !ok {
		return pgrepo.CollectionSnapshot{}, pgrepo.ErrCollectionNotFound
	}

	snapshot := pgrepo.CollectionSnapshot{Collection: collection}
	participantIDs := make(map[int64]struct{})
	for _, rec := range m.signups {
		if rec.CollectionID == collectionID {
			snapshot.Signups = append(snapshot.Signups, rec)
			participantIDs[rec.ParticipantID] = struct{}{}
		}
	}
	slices.SortFunc(snapshot.Signups, func(a, b pgrepo.SignupRecord) int { return cmp.Compare(a.ID, b.ID) })

	for _, rec := range m.matches {
		if rec.CollectionID == collectionID {
			snapshot.PotentialMatches = append(snapshot.PotentialMatches, rec)
		}
	}
	slices.SortFunc(snapshot.PotentialMatches, func(a, b pgrepo.PotentialMatchRecord) int {
		if c := cmp.Compare(b.Score, a.Score); c != 0 {
			return c
		}
		return cmp.Compare(a.ID, b.ID)
	})

	snapshot.Assignments = m.assignmentsLocked(collectionID)
	for _, rec := range snapshot.Assignments {
		if rec.PinchHitterID != nil {
			participantIDs[*rec.PinchHitterID] = struct{}{}
		}
	}
	for id := range participantIDs {
		if rec, ok := m.participants[id]; ok {
			snapshot.Participants = append(snapshot.Participants, rec)
		}
	}
	slices.SortFunc(snapshot.Participants, func(a, b pgrepo.ParticipantRecord) int { return cmp.Compare(a.ID, b.ID) })

	return snapshot, nil
}

func (m *MemoryStore) fail(op string, id int64) error {
	if m.FailOn == nil {
		return nil
	}
	return m.FailOn(op, id)
}

func (m *MemoryStore) Create(_ context.Context, _ pgx.Tx, rec pgrepo.AssignmentRecord) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var key int64
	switch {
	case rec.RequestSignupID != nil:
		key = *rec.RequestSignupID
	case rec.OfferSignupID != nil:
		key = *rec.OfferSignupID
	}
	if err := m.fail(OpCreateAssignment, key); err != nil {
		return 0, err
	}
	if _, ok := m.collections[rec.CollectionID]; !ok {
		return 0, fmt.Errorf("unknown collection %d", rec.CollectionID)
	}

	rec.ID = m.id()
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Unix(0, 0).UTC()
	}
	m.assignments[rec.ID] = rec
	m.Writes++
	return rec.ID, nil
}

func (m *MemoryStore) Update(_ context.Context, _ pgx.Tx, rec pgrepo.AssignmentRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.fail(OpUpdateAssignment, rec.ID); err != nil {
		return err
	}
	existing, ok := m.assignments[rec.ID]
	if !ok {
		return pgrepo.ErrAssignmentNotFound
	}
	rec.CollectionID = existing.CollectionID
	rec.CreatedAt = existing.CreatedAt
	m.assignments[rec.ID] = rec
	m.Writes++
	return nil
}

func (m *MemoryStore) Delete(_ context.Context, _ pgx.Tx, assignmentID int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.fail(OpDeleteAssignment, assignmentID); err != nil {
		return err
	}
	if _, ok := m.assignments[assignmentID]; !ok {
		return pgrepo.ErrAssignmentNotFound
	}
	delete(m.assignments, assignmentID)
	m.Writes++
	return nil
}

func (m *MemoryStore) MarkSent(_ context.Context, _ pgx.Tx, assignmentID int64, sentAt time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.fail(OpMarkSent, assignmentID); err != nil {
		return err
	}
	rec, ok := m.assignments[assignmentID]
	if !ok {
		return pgrepo.ErrAssignmentNotFound
	}
	stamp := sentAt.UTC()
	rec.SentAt = &stamp
	m.assignments[assignmentID] = rec
	m.Writes++
	return nil
}

func (m *MemoryStore) UpdateFlags(_ context.Context, _ pgx.Tx, signupID int64, assignedAsOffer, assignedAsRequest bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.fail(OpUpdateSignup, signupID); err != nil {
		return err
	}
	rec, ok := m.signups[signupID]
	if !ok {
		return pgrepo.ErrSignupNotFound
	}
	rec.AssignedAsOffer = assignedAsOffer
	rec.AssignedAsRequest = assignedAsRequest
	m.signups[signupID] = rec
	m.Writes++
	return nil
}

func (m *MemoryStore) FindByByline(_ context.Context, _ pgx.Tx, name, login string) (pgrepo.ParticipantRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	ids := slices.Sorted(maps.Keys(m.participants))
	for _, id := range ids {
		rec := m.participants[id]
		if !strings.EqualFold(rec.Name, name) {
			continue
		}
		if login != "" && !strings.EqualFold(rec.Login, login) {
			continue
		}
		return rec, nil
	}
	return pgrepo.ParticipantRecord{}, pgrepo.ErrParticipantNotFound
}
