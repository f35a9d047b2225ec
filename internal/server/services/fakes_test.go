package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/dmitrijs2005/qrbind/internal/common"
	"github.com/dmitrijs2005/qrbind/internal/dbx"
	"github.com/dmitrijs2005/qrbind/internal/logging"
	"github.com/dmitrijs2005/qrbind/internal/server/models"
	"github.com/dmitrijs2005/qrbind/internal/server/repositories/originals"
	"github.com/dmitrijs2005/qrbind/internal/server/repositories/replicas"
)

var (
	catX = models.Category{BrandID: "brand-x", TypeID: "type-x"}
	catY = models.Category{BrandID: "brand-y", TypeID: "type-y"}

	errBoom = errors.New("boom")
)

// memStore keeps both pools in memory and honours the same conditional
// update contract as the Postgres repositories.
type memStore struct {
	mu        sync.Mutex
	replicas  map[string]*models.Replica
	originals map[string]*models.Original

	// conflicts makes the next n MarkConsumed calls lose to a phantom binder.
	conflicts int

	getByTokenErr error
	getByIDErr    error
	lockErr       error
	nextErr       error
	markBoundErr  error
	statsErr      error

	writes int
}

func newMemStore() *memStore {
	return &memStore{
		replicas:  map[string]*models.Replica{},
		originals: map[string]*models.Original{},
	}
}

func (m *memStore) addReplica(id, token string, c models.Category) *models.Replica {
	r := &models.Replica{ID: id, Token: token, Category: c, CreatedAt: time.Now()}
	m.replicas[id] = r
	return r
}

func (m *memStore) addOriginal(id, url string, c models.Category, created time.Time) *models.Original {
	o := &models.Original{ID: id, URL: url, Category: c, CreatedAt: created}
	m.originals[id] = o
	return o
}

func (m *memStore) bindDirect(replicaID, originalID string, at time.Time) {
	r := m.replicas[replicaID]
	r.Scanned, r.ScannedAt, r.BoundOriginalID = true, &at, &originalID
	if o, ok := m.originals[originalID]; ok {
		o.Scanned, o.ScannedAt, o.ReplicaID = true, &at, &replicaID
	}
}

func (m *memStore) consumedCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, o := range m.originals {
		if o.Scanned {
			n++
		}
	}
	return n
}

func copyReplica(r *models.Replica) *models.Replica {
	c := *r
	return &c
}

func (m *memStore) GetByToken(_ context.Context, token string) (*models.Replica, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.getByTokenErr != nil {
		return nil, m.getByTokenErr
	}
	for _, r := range m.replicas {
		if r.Token == token {
			return copyReplica(r), nil
		}
	}
	return nil, common.ErrorNotFound
}

func (m *memStore) GetByIDForUpdate(_ context.Context, id string) (*models.Replica, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.lockErr != nil {
		return nil, m.lockErr
	}
	r, ok := m.replicas[id]
	if !ok {
		return nil, common.ErrorNotFound
	}
	return copyReplica(r), nil
}

func (m *memStore) MarkBound(_ context.Context, replicaID, originalID string, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.markBoundErr != nil {
		return m.markBoundErr
	}
	r, ok := m.replicas[replicaID]
	if !ok || r.Bound() {
		return common.ErrBindConflict
	}
	r.Scanned, r.ScannedAt, r.BoundOriginalID = true, &at, &originalID
	m.writes++
	return nil
}

func (m *memStore) CountByCategory(_ context.Context, c models.Category) (int, int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.statsErr != nil {
		return 0, 0, m.statsErr
	}
	total, scanned := 0, 0
	for _, r := range m.replicas {
		if r.Category == c {
			total++
			if r.Scanned {
				scanned++
			}
		}
	}
	return total, scanned, nil
}

func (m *memStore) GetByID(_ context.Context, id string) (*models.Original, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.getByIDErr != nil {
		return nil, m.getByIDErr
	}
	o, ok := m.originals[id]
	if !ok {
		return nil, common.ErrorNotFound
	}
	c := *o
	return &c, nil
}

func (m *memStore) NextAvailable(_ context.Context, c models.Category) (*models.Original, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.nextErr != nil {
		return nil, m.nextErr
	}
	var free []*models.Original
	for _, o := range m.originals {
		if o.Category == c && !o.Scanned {
			free = append(free, o)
		}
	}
	if len(free) == 0 {
		return nil, common.ErrorNotFound
	}
	sort.Slice(free, func(i, j int) bool {
		if free[i].CreatedAt.Equal(free[j].CreatedAt) {
			return free[i].ID < free[j].ID
		}
		return free[i].CreatedAt.Before(free[j].CreatedAt)
	})
	o := *free[0]
	return &o, nil
}

func (m *memStore) MarkConsumed(_ context.Context, originalID, replicaID string, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	o, ok := m.originals[originalID]
	if !ok || o.Scanned {
		return common.ErrBindConflict
	}
	if m.conflicts > 0 {
		m.conflicts--
		phantom := fmt.Sprintf("phantom-%d", m.conflicts)
		o.Scanned, o.ScannedAt, o.ReplicaID = true, &at, &phantom
		return common.ErrBindConflict
	}
	o.Scanned, o.ScannedAt, o.ReplicaID = true, &at, &replicaID
	m.writes++
	return nil
}

func (m *memStore) Stats(_ context.Context) (*models.Stats, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.statsErr != nil {
		return nil, m.statsErr
	}
	s := &models.Stats{}
	brands, types := map[string]struct{}{}, map[string]struct{}{}
	for _, o := range m.originals {
		brands[o.Category.BrandID], types[o.Category.TypeID] = struct{}{}, struct{}{}
		s.Originals++
		if !o.Scanned {
			s.FreeOriginals++
		}
	}
	for _, r := range m.replicas {
		brands[r.Category.BrandID], types[r.Category.TypeID] = struct{}{}, struct{}{}
		s.Replicas++
		if r.Scanned {
			s.ScannedReplicas++
		}
	}
	s.Brands, s.Types = len(brands), len(types)
	return s, nil
}

func (m *memStore) CategoryStats(_ context.Context, c models.Category) (int, int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.statsErr != nil {
		return 0, 0, m.statsErr
	}
	total, free := 0, 0
	for _, o := range m.originals {
		if o.Category == c {
			total++
			if !o.Scanned {
				free++
			}
		}
	}
	return total, free, nil
}

type fakeRepoManager struct {
	store *memStore
}

func (f *fakeRepoManager) RunMigrations(context.Context, *sql.DB) error { return nil }
func (f *fakeRepoManager) Originals(dbx.DBTX) originals.Repository      { return f.store }
func (f *fakeRepoManager) Replicas(dbx.DBTX) replicas.Repository        { return f.store }

// recLogger records messages per level.
type recLogger struct {
	mu      sync.Mutex
	entries []string
}

func (r *recLogger) add(level, msg string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries = append(r.entries, level+": "+msg)
}

func (r *recLogger) Debug(_ context.Context, msg string, _ ...any) { r.add("DEBUG", msg) }
func (r *recLogger) Info(_ context.Context, msg string, _ ...any)  { r.add("INFO", msg) }
func (r *recLogger) Warn(_ context.Context, msg string, _ ...any)  { r.add("WARN", msg) }
func (r *recLogger) Error(_ context.Context, msg string, _ ...any) { r.add("ERROR", msg) }
func (r *recLogger) With(...any) logging.Logger                    { return r }

func (r *recLogger) has(entry string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, e := range r.entries {
		if e == entry {
			return true
		}
	}
	return false
}
