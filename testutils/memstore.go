package testutils

import (
	"sort"
	"sync"
	"time"

	"github.com/samber/lo"

	"github.com/flanksource/gigs/api"
	"github.com/flanksource/gigs/context"
	"github.com/flanksource/gigs/models"
)

// MemoryStore is an in-memory application store and gig ownership resolver.
// It enforces the same constraints as the database schema: one application per
// (gig, user) pair and references to existing gigs, users and statuses.
type MemoryStore struct {
	mu       sync.Mutex
	txMu     sync.Mutex
	nextID   int64
	epoch    time.Time
	users    map[int64]models.User
	gigs     map[int64]models.Gig
	apps     map[int64]models.Application
	statuses map[models.ApplicationStatus]bool
	failures map[string]error
	calls    map[string]int
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		epoch:    time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
		users:    map[int64]models.User{},
		gigs:     map[int64]models.Gig{},
		apps:     map[int64]models.Application{},
		statuses: lo.SliceToMap(models.ApplicationStatuses, func(s models.ApplicationStatus) (models.ApplicationStatus, bool) { return s, true }),
		failures: map[string]error{},
		calls:    map[string]int{},
	}
}

func (m *MemoryStore) AddUser(users ...models.User) *MemoryStore {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range users {
		m.users[u.ID] = u
	}
	return m
}

func (m *MemoryStore) AddGig(gigs ...models.Gig) *MemoryStore {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, g := range gigs {
		m.gigs[g.ID] = g
	}
	return m
}

// RemoveStatus drops a status from the reference table so writes of it fail.
func (m *MemoryStore) RemoveStatus(status models.ApplicationStatus) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.statuses, status)
}

// Fail makes every later call of operation return err. A nil err clears it.
func (m *MemoryStore) Fail(operation string, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err == nil {
		delete(m.failures, operation)
		return
	}
	m.failures[operation] = err
}

// Calls reports how often operation was invoked.
func (m *MemoryStore) Calls(operation string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls[operation]
}

// Get returns the stored application, bypassing any locking.
func (m *MemoryStore) Get(id int64) (models.Application, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	app, ok := m.apps[id]
	return app, ok
}

func (m *MemoryStore) enter(operation string) error {
	m.calls[operation]++
	return m.failures[operation]
}

func (m *MemoryStore) Insert(ctx context.Context, gigID, userID int64) (*models.Application, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.enter("insert"); err != nil {
		return nil, err
	}

	if _, ok := m.gigs[gigID]; !ok {
		return nil, api.Errorf(api.EREFERENCE, "application failed")
	}
	if _, ok := m.users[userID]; !ok {
		return nil, api.Errorf(api.EREFERENCE, "application failed")
	}
	for _, app := range m.apps {
		if app.GigID == gigID && app.UserID == userID {
			return nil, api.Errorf(api.EDUPLICATE, "application already exists")
		}
	}

	m.nextID++
	app := models.Application{
		ID:        m.nextID,
		GigID:     gigID,
		UserID:    userID,
		Status:    models.ApplicationStatusApplied,
		AppliedAt: m.epoch.Add(time.Duration(m.nextID) * time.Minute),
	}
	m.apps[app.ID] = app
	return &app, nil
}

func (m *MemoryStore) GetForUpdate(ctx context.Context, applicationID int64) (*models.ApplicationOwnership, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.enter("get"); err != nil {
		return nil, err
	}

	app, ok := m.apps[applicationID]
	if !ok {
		return nil, api.Errorf(api.ENOTFOUND, "application not found")
	}
	return &models.ApplicationOwnership{
		Application:    app,
		PostedByUserID: m.gigs[app.GigID].PostedByUserID,
	}, nil
}

func (m *MemoryStore) list(operation string, match func(models.Application) bool, withApplicant bool) ([]models.ApplicationView, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.enter(operation); err != nil {
		return nil, err
	}

	views := []models.ApplicationView{}
	for _, app := range m.apps {
		if !match(app) {
			continue
		}
		gig := m.gigs[app.GigID]
		view := models.ApplicationView{
			ApplicationID: app.ID,
			UserID:        app.UserID,
			GigID:         app.GigID,
			Status:        app.Status,
			AppliedAt:     app.AppliedAt,
			GigName:       gig.Name,
			GigDate:       gig.Date,
			TypeName:      gig.TypeName,
			GigDetails:    gig.Details,
		}
		if withApplicant {
			view.ApplicantName = m.users[app.UserID].Name
			view.ApplicantEmail = m.users[app.UserID].Email
		}
		views = append(views, view)
	}

	sort.Slice(views, func(i, j int) bool {
		if views[i].AppliedAt.Equal(views[j].AppliedAt) {
			return views[i].ApplicationID > views[j].ApplicationID
		}
		return views[i].AppliedAt.After(views[j].AppliedAt)
	})
	return views, nil
}

func (m *MemoryStore) ListByUser(ctx context.Context, userID int64) ([]models.ApplicationView, error) {
	return m.list("list_by_user", func(a models.Application) bool { return a.UserID == userID }, false)
}

func (m *MemoryStore) ListByGig(ctx context.Context, gigID int64) ([]models.ApplicationView, error) {
	return m.list("list_by_gig", func(a models.Application) bool { return a.GigID == gigID }, true)
}

func (m *MemoryStore) UpdateStatus(ctx context.Context, applicationID int64, status models.ApplicationStatus) (*models.Application, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.enter("update_status"); err != nil {
		return nil, err
	}

	if !m.statuses[status] {
		return nil, api.Errorf(api.EREFERENCE, "unknown application status")
	}
	app, ok := m.apps[applicationID]
	if !ok {
		return nil, api.Errorf(api.ENOTFOUND, "application not found")
	}
	app.Status = status
	m.apps[applicationID] = app
	return &app, nil
}

func (m *MemoryStore) DeleteByPair(ctx context.Context, userID, gigID int64) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.enter("delete"); err != nil {
		return 0, err
	}

	var deleted int64
	for id, app := range m.apps {
		if app.UserID == userID && app.GigID == gigID {
			delete(m.apps, id)
			deleted++
		}
	}
	return deleted, nil
}

// Transaction serializes fn against other transactions and restores the
// applications to their prior state when fn fails.
func (m *MemoryStore) Transaction(ctx context.Context, fn func(ctx context.Context) error) error {
	m.txMu.Lock()
	defer m.txMu.Unlock()

	m.mu.Lock()
	snapshot := make(map[int64]models.Application, len(m.apps))
	for k, v := range m.apps {
		snapshot[k] = v
	}
	m.mu.Unlock()

	if err := fn(ctx); err != nil {
		m.mu.Lock()
		m.apps = snapshot
		m.mu.Unlock()
		return err
	}
	return nil
}

func (m *MemoryStore) OwnerOf(ctx context.Context, gigID int64) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.enter("owner"); err != nil {
		return 0, err
	}

	gig, ok := m.gigs[gigID]
	if !ok {
		return 0, api.Errorf(api.ENOTFOUND, "gig %d not found", gigID)
	}
	return gig.PostedByUserID, nil
}
