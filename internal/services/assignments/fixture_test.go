package assignments_test

import (
	"context"
	"errors"
	"math/rand/v2"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/ivankudzin/giftexchange/internal/domain/model"
	pgrepo "github.com/ivankudzin/giftexchange/internal/repo/postgres"
	"github.com/ivankudzin/giftexchange/internal/services/assignments"
	"github.com/ivankudzin/giftexchange/internal/testutil"
)

type fixture struct {
	t            *testing.T
	store        *testutil.MemoryStore
	collectionID int64
	signups      map[string]int64
	participants map[string]int64
	notifier     *fakeNotifier
	dirty        *fakeDirty
	status       *fakeStatus
}

// newFixture creates one collection with a signup per name.
func newFixture(t *testing.T, names ...string) *fixture {
	t.Helper()

	store := testutil.NewMemoryStore()
	f := &fixture{
		t:            t,
		store:        store,
		collectionID: store.AddCollection("Yuletide"),
		signups:      make(map[string]int64),
		participants: make(map[string]int64),
		notifier:     &fakeNotifier{},
		dirty:        &fakeDirty{},
		status:       &fakeStatus{runs: make(map[int64]map[string][]byte)},
	}
	for _, name := range names {
		f.addSignup(name)
	}
	return f
}

func (f *fixture) addParticipant(name string) int64 {
	id := f.store.AddParticipant(name, strings.ToLower(name), int64(1000+len(f.participants)))
	f.participants[name] = id
	return id
}

func (f *fixture) addSignup(name string) int64 {
	id := f.store.AddSignup(f.collectionID, f.addParticipant(name))
	f.signups[name] = id
	return id
}

// edge records that offer could fulfil request's request with the given score.
func (f *fixture) edge(offer, request string, score float64) {
	f.store.AddPotentialMatch(f.collectionID, f.signups[offer], f.signups[request], score)
}

func (f *fixture) service() *assignments.Service {
	return assignments.NewService(assignments.Dependencies{
		Tx:           f.store.Tx,
		Collections:  f.store,
		Assignments:  f.store,
		Signups:      f.store,
		Participants: f.store,
		Notifier:     f.notifier,
		Dirty:        f.dirty,
		Status:       f.status,
	}, assignments.Config{RandomSeed: 7})
}

// inputOrder keeps every bucket in signup id order.
func inputOrder() assignments.Shuffler {
	return nil
}

func (f *fixture) name(signupID *int64) string {
	if signupID == nil {
		return ""
	}
	for name, id := range f.signups {
		if id == *signupID {
			return name
		}
	}
	return "?"
}

// pairs maps request name to offer name for every populated assignment.
func (f *fixture) pairs() map[string]string {
	out := make(map[string]string)
	for _, rec := range f.store.Assignments(f.collectionID) {
		if rec.OfferSignupID != nil && rec.RequestSignupID != nil {
			out[f.name(rec.RequestSignupID)] = f.name(rec.OfferSignupID)
		}
	}
	return out
}

func (f *fixture) held(signupID int64, offerSide bool) []pgrepo.AssignmentRecord {
	var out []pgrepo.AssignmentRecord
	for _, rec := range f.store.Assignments(f.collectionID) {
		ref := rec.RequestSignupID
		if offerSide {
			ref = rec.OfferSignupID
		}
		if ref != nil && *ref == signupID {
			out = append(out, rec)
		}
	}
	return out
}

// requireComplete checks that every signup holds exactly one assignment per
// role and has both flags set.
func (f *fixture) requireComplete() {
	f.t.Helper()

	for _, id := range f.store.SignupIDs(f.collectionID) {
		require.Len(f.t, f.held(id, false), 1, "signup %d request side", id)
		require.Len(f.t, f.held(id, true), 1, "signup %d offer side", id)
		rec := f.store.Signup(id)
		require.True(f.t, rec.AssignedAsRequest, "signup %d request flag", id)
		require.True(f.t, rec.AssignedAsOffer, "signup %d offer flag", id)
	}
}

func (f *fixture) requireNoFlags() {
	f.t.Helper()

	for _, id := range f.store.SignupIDs(f.collectionID) {
		rec := f.store.Signup(id)
		require.False(f.t, rec.AssignedAsRequest, "signup %d request flag", id)
		require.False(f.t, rec.AssignedAsOffer, "signup %d offer flag", id)
	}
}

// randomGraph adds n signups and links each ordered pair with probability p.
func randomGraph(t *testing.T, seed uint64, n int, p float64) *fixture {
	t.Helper()

	rng := rand.New(rand.NewPCG(seed, seed+1))
	f := newFixture(t)
	names := make([]string, 0, n)
	for i := 0; i < n; i++ {
		name := string(rune('a'+i%26)) + strings.Repeat("x", i/26)
		f.addSignup(name)
		names = append(names, name)
	}
	for _, offer := range names {
		for _, request := range names {
			if offer == request || rng.Float64() >= p {
				continue
			}
			f.edge(offer, request, float64(rng.IntN(100)))
		}
	}
	return f
}

type notification struct {
	collection string
	giver      string
	recipient  string
}

type fakeNotifier struct {
	mu    sync.Mutex
	sent  []notification
	failX string
}

func (n *fakeNotifier) Notify(_ context.Context, collection model.Collection, giver *model.Participant, assignment *model.Assignment) error {
	n.mu.Lock()
	defer n.mu.Unlock()

	if n.failX != "" && giver.Name == n.failX {
		return errors.New("chat not found")
	}
	n.sent = append(n.sent, notification{
		collection: collection.Name,
		giver:      giver.Name,
		recipient:  assignment.Recipient().ParticipantName(),
	})
	return nil
}

type fakeDirty struct {
	mu  sync.Mutex
	ids []int64
}

func (d *fakeDirty) MarkDirty(_ context.Context, collectionID int64) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.ids = append(d.ids, collectionID)
	return nil
}

type fakeStatus struct {
	mu   sync.Mutex
	runs map[int64]map[string][]byte
}

func (s *fakeStatus) SaveRun(_ context.Context, collectionID int64, kind string, payload []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.runs[collectionID] == nil {
		s.runs[collectionID] = make(map[string][]byte)
	}
	s.runs[collectionID][kind] = payload
	return nil
}

func (s *fakeStatus) LatestRuns(_ context.Context, collectionID int64) (map[string][]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(map[string][]byte)
	for kind, payload := range s.runs[collectionID] {
		out[kind] = payload
	}
	return out, nil
}

// busyLocker never grants the lock.
type busyLocker struct{}

func (busyLocker) Acquire(context.Context, string, time.Duration) (string, bool, error) {
	return "", false, nil
}

func (busyLocker) Release(context.Context, string, string) error {
	return nil
}
