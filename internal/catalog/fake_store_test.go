package catalog

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/Clark-Hu/media-catalog/internal/domain"
	"github.com/Clark-Hu/media-catalog/internal/repository"
)

// memoryStore is an in-process EntryStore. Its List honours scope, type and
// createdAt/id ordering, which is enough to exercise pagination.
type memoryStore struct {
	mu      sync.Mutex
	nextID  int64
	entries map[int64]domain.Entry
	calls   map[string]int
	err     error
}

func newMemoryStore() *memoryStore {
	return &memoryStore{entries: map[int64]domain.Entry{}, calls: map[string]int{}}
}

func (m *memoryStore) Create(_ context.Context, p repository.EntryCreateParams) (domain.Entry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls["create"]++
	if m.err != nil {
		return domain.Entry{}, m.err
	}
	m.nextID++
	e := domain.Entry{ID: m.nextID, CreatedByID: p.CreatedByID, Status: p.Status, CreatedAt: p.Now, UpdatedAt: p.Now}
	applyContent(&e, p.EntryContent)
	m.entries[e.ID] = e
	return e, nil
}

func (m *memoryStore) GetByID(_ context.Context, id int64) (domain.Entry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls["get"]++
	if m.err != nil {
		return domain.Entry{}, m.err
	}
	e, ok := m.entries[id]
	if !ok || e.Deleted() {
		return domain.Entry{}, repository.ErrNotFound
	}
	return e, nil
}

func (m *memoryStore) Update(_ context.Context, id int64, p repository.EntryUpdateParams) (domain.Entry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls["update"]++
	e, ok := m.entries[id]
	if !ok || e.Deleted() {
		return domain.Entry{}, repository.ErrNotFound
	}
	applyContent(&e, p.EntryContent)
	e.Status = p.Status
	e.UpdatedAt = p.Now
	m.entries[id] = e
	return e, nil
}

func (m *memoryStore) SetStatus(_ context.Context, id int64, status domain.Status, now time.Time) (domain.Entry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls["setStatus"]++
	e, ok := m.entries[id]
	if !ok || e.Deleted() {
		return domain.Entry{}, repository.ErrNotFound
	}
	e.Status = status
	e.UpdatedAt = now
	m.entries[id] = e
	return e, nil
}

func (m *memoryStore) SoftDelete(_ context.Context, id int64, now time.Time) (domain.Entry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls["delete"]++
	e, ok := m.entries[id]
	if !ok || e.Deleted() {
		return domain.Entry{}, repository.ErrNotFound
	}
	e.DeletedAt = &now
	e.UpdatedAt = now
	m.entries[id] = e
	return e, nil
}

func (m *memoryStore) List(_ context.Context, q repository.EntryQuery) ([]domain.Entry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls["list"]++
	if m.err != nil {
		return nil, m.err
	}

	all := make([]domain.Entry, 0, len(m.entries))
	for _, e := range m.entries {
		all = append(all, e)
	}
	sort.Slice(all, func(i, j int) bool {
		if !all[i].CreatedAt.Equal(all[j].CreatedAt) {
			return all[i].CreatedAt.After(all[j].CreatedAt)
		}
		return all[i].ID > all[j].ID
	})

	seeking := q.AfterID != nil
	var out []domain.Entry
	for _, e := range all {
		if seeking {
			if e.ID == *q.AfterID {
				seeking = false
			}
			continue
		}
		if e.Deleted() {
			continue
		}
		if q.CreatedByID != nil && e.CreatedByID != *q.CreatedByID {
			continue
		}
		if q.Status != nil && e.Status != *q.Status {
			continue
		}
		if q.Type != nil && e.Type != *q.Type {
			continue
		}
		out = append(out, e)
		if len(out) == q.Limit {
			break
		}
	}
	return out, nil
}

func applyContent(e *domain.Entry, c repository.EntryContent) {
	e.Title = c.Title
	e.Type = c.Type
	e.Director = c.Director
	e.Budget = c.Budget
	e.Location = c.Location
	e.Duration = c.Duration
	e.YearTime = c.YearTime
	e.Year = domain.ExtractYear(c.YearTime)
	e.Description = c.Description
	e.PosterURL = c.PosterURL
	e.ThumbURL = c.ThumbURL
}
