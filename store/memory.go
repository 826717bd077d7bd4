package store

import (
	"context"
	"sort"
	"strings"
	"sync"

	"greenreport-be/models"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// MemoryStore keeps everything in process memory. Transactions are
// serialized and roll back through an undo log of the entries they touched.
type MemoryStore struct {
	mu      sync.RWMutex
	txMu    sync.Mutex
	reports map[primitive.ObjectID]models.Report
	users   map[primitive.ObjectID]models.User
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		reports: make(map[primitive.ObjectID]models.Report),
		users:   make(map[primitive.ObjectID]models.User),
	}
}

func (s *MemoryStore) Reports() ReportRepository { return memoryReports{s} }
func (s *MemoryStore) Users() UserRepository     { return memoryUsers{s} }

type memoryTxKey struct{}

// memoryTx records the value each touched entry had before the transaction.
// A nil entry means the key did not exist.
type memoryTx struct {
	reports map[primitive.ObjectID]*models.Report
	users   map[primitive.ObjectID]*models.User
}

func (s *MemoryStore) WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	if _, nested := ctx.Value(memoryTxKey{}).(*memoryTx); nested {
		return fn(ctx)
	}
	s.txMu.Lock()
	defer s.txMu.Unlock()

	tx := &memoryTx{
		reports: make(map[primitive.ObjectID]*models.Report),
		users:   make(map[primitive.ObjectID]*models.User),
	}
	if err := fn(context.WithValue(ctx, memoryTxKey{}, tx)); err != nil {
		s.mu.Lock()
		for id, prev := range tx.reports {
			if prev == nil {
				delete(s.reports, id)
			} else {
				s.reports[id] = *prev
			}
		}
		for id, prev := range tx.users {
			if prev == nil {
				delete(s.users, id)
			} else {
				s.users[id] = *prev
			}
		}
		s.mu.Unlock()
		return err
	}
	return nil
}

// recordReport must be called with s.mu held for writing.
func (s *MemoryStore) recordReport(ctx context.Context, id primitive.ObjectID) {
	tx, ok := ctx.Value(memoryTxKey{}).(*memoryTx)
	if !ok {
		return
	}
	if _, seen := tx.reports[id]; seen {
		return
	}
	if prev, exists := s.reports[id]; exists {
		c := cloneReport(prev)
		tx.reports[id] = &c
	} else {
		tx.reports[id] = nil
	}
}

// recordUser must be called with s.mu held for writing.
func (s *MemoryStore) recordUser(ctx context.Context, id primitive.ObjectID) {
	tx, ok := ctx.Value(memoryTxKey{}).(*memoryTx)
	if !ok {
		return
	}
	if _, seen := tx.users[id]; seen {
		return
	}
	if prev, exists := s.users[id]; exists {
		tx.users[id] = &prev
	} else {
		tx.users[id] = nil
	}
}

func cloneReport(r models.Report) models.Report {
	if r.AssignedWorker != nil {
		id := *r.AssignedWorker
		r.AssignedWorker = &id
	}
	if r.ImageURLAfter != nil {
		v := *r.ImageURLAfter
		r.ImageURLAfter = &v
	}
	if r.WorkerNotes != nil {
		v := *r.WorkerNotes
		r.WorkerNotes = &v
	}
	return r
}

type memoryReports struct{ s *MemoryStore }

func (m memoryReports) Create(ctx context.Context, report *models.Report) error {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	if report.ID.IsZero() {
		report.ID = primitive.NewObjectID()
	}
	if _, exists := m.s.reports[report.ID]; exists {
		return ErrDuplicate
	}
	m.s.recordReport(ctx, report.ID)
	m.s.reports[report.ID] = cloneReport(*report)
	return nil
}

func (m memoryReports) FindByID(ctx context.Context, id primitive.ObjectID) (models.Report, error) {
	m.s.mu.RLock()
	defer m.s.mu.RUnlock()
	r, ok := m.s.reports[id]
	if !ok {
		return models.Report{}, ErrNotFound
	}
	return cloneReport(r), nil
}

func (m memoryReports) List(ctx context.Context, filter ReportFilter) ([]models.Report, error) {
	m.s.mu.RLock()
	defer m.s.mu.RUnlock()
	out := make([]models.Report, 0, len(m.s.reports))
	for _, r := range m.s.reports {
		if filter.Status != "" && r.Status != filter.Status {
			continue
		}
		if filter.CityKey != "" && r.CityKey != filter.CityKey {
			continue
		}
		if filter.AssignedWorker != nil && !r.IsAssignedTo(*filter.AssignedWorker) {
			continue
		}
		out = append(out, cloneReport(r))
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out, nil
}

func (m memoryReports) Transition(ctx context.Context, id primitive.ObjectID, from models.ReportStatus, patch models.ReportPatch) (models.Report, error) {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	r, ok := m.s.reports[id]
	if !ok {
		return models.Report{}, ErrNotFound
	}
	if r.Status != from {
		return models.Report{}, ErrStaleState
	}
	m.s.recordReport(ctx, id)
	patch.Apply(&r)
	m.s.reports[id] = r
	return cloneReport(r), nil
}

func (m memoryReports) CountAssigned(ctx context.Context, workerID primitive.ObjectID) (int, error) {
	m.s.mu.RLock()
	defer m.s.mu.RUnlock()
	count := 0
	for _, r := range m.s.reports {
		if r.Status == models.StatusAssigned && r.IsAssignedTo(workerID) {
			count++
		}
	}
	return count, nil
}

type memoryUsers struct{ s *MemoryStore }

func (m memoryUsers) Create(ctx context.Context, user *models.User) error {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	for _, u := range m.s.users {
		if strings.EqualFold(u.Email, user.Email) {
			return ErrDuplicate
		}
	}
	if user.ID.IsZero() {
		user.ID = primitive.NewObjectID()
	}
	m.s.recordUser(ctx, user.ID)
	m.s.users[user.ID] = *user
	return nil
}

func (m memoryUsers) FindByID(ctx context.Context, id primitive.ObjectID) (models.User, error) {
	m.s.mu.RLock()
	defer m.s.mu.RUnlock()
	u, ok := m.s.users[id]
	if !ok {
		return models.User{}, ErrNotFound
	}
	return u, nil
}

func (m memoryUsers) FindByEmail(ctx context.Context, email string) (models.User, error) {
	m.s.mu.RLock()
	defer m.s.mu.RUnlock()
	for _, u := range m.s.users {
		if strings.EqualFold(u.Email, email) {
			return u, nil
		}
	}
	return models.User{}, ErrNotFound
}

func (m memoryUsers) FindByIDs(ctx context.Context, ids []primitive.ObjectID) ([]models.User, error) {
	m.s.mu.RLock()
	defer m.s.mu.RUnlock()
	out := make([]models.User, 0, len(ids))
	for _, id := range ids {
		if u, ok := m.s.users[id]; ok {
			out = append(out, u)
		}
	}
	return out, nil
}

func (m memoryUsers) List(ctx context.Context, filter UserFilter) ([]models.User, error) {
	m.s.mu.RLock()
	defer m.s.mu.RUnlock()
	out := make([]models.User, 0, len(m.s.users))
	for _, u := range m.s.users {
		if filter.Role != "" && u.Role != filter.Role {
			continue
		}
		if filter.CityKey != "" && u.CityKey != filter.CityKey {
			continue
		}
		out = append(out, u)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out, nil
}

func (m memoryUsers) AdjustPendingTasks(ctx context.Context, id primitive.ObjectID, delta int) error {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	u, ok := m.s.users[id]
	if !ok || u.Role != models.RoleWorker {
		return ErrNotFound
	}
	if u.PendingTaskCount+delta < 0 {
		return ErrCounterUnderflow
	}
	m.s.recordUser(ctx, id)
	u.PendingTaskCount += delta
	m.s.users[id] = u
	return nil
}

func (m memoryUsers) SetPendingTasks(ctx context.Context, id primitive.ObjectID, expected, count int) error {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	u, ok := m.s.users[id]
	if !ok {
		return ErrNotFound
	}
	if count < 0 {
		return ErrCounterUnderflow
	}
	if u.PendingTaskCount != expected {
		return ErrStaleState
	}
	m.s.recordUser(ctx, id)
	u.PendingTaskCount = count
	m.s.users[id] = u
	return nil
}
