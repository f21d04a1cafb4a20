package services

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/anonto42/mindhaven/backend/internal/events"
	"github.com/anonto42/mindhaven/backend/internal/models"
	"github.com/anonto42/mindhaven/backend/internal/repositories"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"gorm.io/datatypes"
)

// fakeMatchStore mirrors the conditional SQL of PostgresBuddyMatchRepository.
type fakeMatchStore struct {
	mu     sync.Mutex
	rows   []*models.BuddyMatch
	writes int
	calls  int
	err    error
	// beforeClaim runs inside ClaimPending before the guard is evaluated,
	// standing in for a concurrent request.
	beforeClaim func(matchID uuid.UUID)
}

func (f *fakeMatchStore) add(m *models.BuddyMatch) *models.BuddyMatch {
	if m.ID == uuid.Nil {
		m.ID = uuid.New()
	}
	f.rows = append(f.rows, m)
	return m
}

func (f *fakeMatchStore) isActive(userID uuid.UUID) bool {
	for _, r := range f.rows {
		if r.Status == models.MatchStatusActive && r.HasUser(userID) {
			return true
		}
	}
	return false
}

func (f *fakeMatchStore) activeCount(userID uuid.UUID) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, r := range f.rows {
		if r.Status == models.MatchStatusActive && r.HasUser(userID) {
			n++
		}
	}
	return n
}

func (f *fakeMatchStore) FindActiveForUser(_ context.Context, userID uuid.UUID) (*models.BuddyMatch, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	for _, r := range f.rows {
		if r.Status == models.MatchStatusActive && r.HasUser(userID) {
			c := *r
			return &c, nil
		}
	}
	return nil, nil
}

func (f *fakeMatchStore) FindPendingForUser(_ context.Context, userID uuid.UUID) (*models.BuddyMatch, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	for i := len(f.rows) - 1; i >= 0; i-- {
		r := f.rows[i]
		if r.Status == models.MatchStatusPending && r.User1ID == userID && r.User2ID == nil {
			c := *r
			return &c, nil
		}
	}
	return nil, nil
}

func (f *fakeMatchStore) ListPendingCandidates(_ context.Context, userID uuid.UUID, limit int) ([]models.BuddyMatch, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	var out []models.BuddyMatch
	for _, r := range f.rows {
		if len(out) == limit {
			break
		}
		if r.Status != models.MatchStatusPending || r.User2ID != nil || r.User1ID == userID || f.isActive(r.User1ID) {
			continue
		}
		out = append(out, *r)
	}
	return out, nil
}

func (f *fakeMatchStore) ClaimPending(_ context.Context, matchID, userID uuid.UUID, goals []string, matchedAt time.Time) (bool, error) {
	if f.beforeClaim != nil {
		f.beforeClaim(matchID)
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	for _, r := range f.rows {
		if r.ID != matchID {
			continue
		}
		if r.Status != models.MatchStatusPending || r.User2ID != nil || r.User1ID == userID ||
			f.isActive(r.User1ID) || f.isActive(userID) {
			return false, nil
		}
		shared := r.GoalsShared.Data()
		shared.User2Goals = goals
		r.GoalsShared = datatypes.NewJSONType(shared)
		uid := userID
		r.User2ID = &uid
		r.Status = models.MatchStatusActive
		at := matchedAt
		r.MatchedAt = &at
		f.writes++
		f.dropPendingBy(userID)
		return true, nil
	}
	return false, nil
}

func (f *fakeMatchStore) dropPendingBy(userID uuid.UUID) {
	kept := f.rows[:0]
	for _, r := range f.rows {
		if r.Status == models.MatchStatusPending && r.User2ID == nil && r.User1ID == userID {
			continue
		}
		kept = append(kept, r)
	}
	f.rows = kept
}

func (f *fakeMatchStore) CreatePending(_ context.Context, match *models.BuddyMatch) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	match.ID = uuid.New()
	match.Status = models.MatchStatusPending
	c := *match
	f.rows = append(f.rows, &c)
	f.writes++
	return nil
}

func (f *fakeMatchStore) RefreshPending(_ context.Context, matchID uuid.UUID, shared models.SharedGoals) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	for _, r := range f.rows {
		if r.ID == matchID && r.Status == models.MatchStatusPending && r.User2ID == nil {
			r.GoalsShared = datatypes.NewJSONType(shared)
			f.writes++
			return true, nil
		}
	}
	return false, nil
}

func (f *fakeMatchStore) GetByID(_ context.Context, id uuid.UUID) (*models.BuddyMatch, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	for _, r := range f.rows {
		if r.ID == id {
			c := *r
			return &c, nil
		}
	}
	return nil, repositories.ErrNotFound
}

type fakeProfiles struct {
	byID    map[uuid.UUID]models.Profile
	byEmail map[string]models.Profile
}

func newFakeProfiles(profiles ...models.Profile) *fakeProfiles {
	f := &fakeProfiles{byID: map[uuid.UUID]models.Profile{}, byEmail: map[string]models.Profile{}}
	for _, p := range profiles {
		f.byID[p.ID] = p
		if p.Email != "" {
			f.byEmail[p.Email] = p
		}
	}
	return f
}

func (f *fakeProfiles) GetByIDs(_ context.Context, ids []uuid.UUID) (map[uuid.UUID]models.Profile, error) {
	out := map[uuid.UUID]models.Profile{}
	for _, id := range ids {
		if p, ok := f.byID[id]; ok {
			out[id] = p
		}
	}
	return out, nil
}

func (f *fakeProfiles) GetByID(_ context.Context, id uuid.UUID) (*models.Profile, error) {
	p, ok := f.byID[id]
	if !ok {
		return nil, repositories.ErrNotFound
	}
	return &p, nil
}

func (f *fakeProfiles) GetByEmail(_ context.Context, email string) (*models.Profile, error) {
	p, ok := f.byEmail[email]
	if !ok {
		return nil, repositories.ErrNotFound
	}
	return &p, nil
}

type fakeNotifications struct {
	created []models.Notification
	err     error
}

func (f *fakeNotifications) CreateNotification(_ context.Context, n *models.Notification) error {
	if f.err != nil {
		return f.err
	}
	f.created = append(f.created, *n)
	return nil
}

type fakeAudit struct {
	events []models.MatchEvent
}

func (f *fakeAudit) Record(_ context.Context, e *models.MatchEvent) error {
	f.events = append(f.events, *e)
	return nil
}

func (f *fakeAudit) ListByUser(_ context.Context, userID string, limit int64) ([]models.MatchEvent, error) {
	var out []models.MatchEvent
	for i := len(f.events) - 1; i >= 0 && int64(len(out)) < limit; i-- {
		if f.events[i].UserID == userID {
			out = append(out, f.events[i])
		}
	}
	return out, nil
}

func (f *fakeAudit) last() models.MatchEvent {
	return f.events[len(f.events)-1]
}

type fakePublisher struct {
	published []events.MatchEvent
	err       error
}

func (f *fakePublisher) PublishMatchEvent(_ context.Context, e events.MatchEvent) error {
	if f.err != nil {
		return f.err
	}
	f.published = append(f.published, e)
	return nil
}

func (f *fakePublisher) Close() error { return nil }

var errStoreDown = errors.New("connection refused")

func quietLogger() *logrus.Logger {
	log := logrus.New()
	log.SetLevel(logrus.PanicLevel)
	return log
}
