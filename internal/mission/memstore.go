package mission

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/elliotttmiller/sentinel/internal/types"
)

// MemoryStore is an in-memory MissionStore used by one-shot CLI runs and
// tests. It enforces the same transition rules as the SQLite store.
type MemoryStore struct {
	mu       sync.RWMutex
	missions map[string]*Mission
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{missions: make(map[string]*Mission)}
}

// Save persists a new mission.
func (s *MemoryStore) Save(ctx context.Context, m *Mission) error {
	if err := m.Validate(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.missions[m.ID]; exists {
		return types.NewError(types.MISSION_INVALID, "mission "+m.ID+" already exists")
	}
	s.missions[m.ID] = m.Clone()
	return nil
}

// Get retrieves a mission by ID.
func (s *MemoryStore) Get(ctx context.Context, id string) (*Mission, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	m, ok := s.missions[id]
	if !ok {
		return nil, types.NewError(types.MISSION_NOT_FOUND, "no mission with id "+id)
	}
	return m.Clone(), nil
}

// List retrieves missions matching the filter, newest first.
func (s *MemoryStore) List(ctx context.Context, filter *Filter) ([]*Mission, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []*Mission
	for _, m := range s.missions {
		if matchesFilter(m, filter) {
			out = append(out, m.Clone())
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })

	if filter != nil {
		if filter.Offset > 0 {
			if filter.Offset >= len(out) {
				return nil, nil
			}
			out = out[filter.Offset:]
		}
		if filter.Limit > 0 && len(out) > filter.Limit {
			out = out[:filter.Limit]
		}
	}
	return out, nil
}

// UpdateStatus transitions a mission and applies the given fields.
func (s *MemoryStore) UpdateStatus(ctx context.Context, id string, status Status, fields StatusFields) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	m, ok := s.missions[id]
	if !ok {
		return types.NewError(types.MISSION_NOT_FOUND, "no mission with id "+id)
	}
	if m.Status.IsTerminal() {
		return types.NewError(types.MISSION_TERMINAL,
			"mission "+id+" is "+m.Status.String()+" and cannot be mutated")
	}
	if !m.Status.CanTransitionTo(status) {
		return types.NewError(types.MISSION_INVALID,
			"invalid transition "+m.Status.String()+" -> "+status.String())
	}

	applyStatusFields(m, status, fields)
	return nil
}

// UpdateProgress updates only the progress field of a running mission.
func (s *MemoryStore) UpdateProgress(ctx context.Context, id string, progress int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	m, ok := s.missions[id]
	if !ok {
		return types.NewError(types.MISSION_NOT_FOUND, "no mission with id "+id)
	}
	if m.Status.IsTerminal() {
		return types.NewError(types.MISSION_TERMINAL,
			"mission "+id+" is "+m.Status.String()+" and cannot be mutated")
	}

	m.Progress = progress
	m.UpdatedAt = time.Now().UTC()
	return nil
}

// GetActive retrieves all missions in a non-terminal state.
func (s *MemoryStore) GetActive(ctx context.Context) ([]*Mission, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []*Mission
	for _, m := range s.missions {
		if !m.Status.IsTerminal() {
			out = append(out, m.Clone())
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

// Count returns the number of missions matching the filter.
func (s *MemoryStore) Count(ctx context.Context, filter *Filter) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	n := 0
	for _, m := range s.missions {
		if matchesFilter(m, filter) {
			n++
		}
	}
	return n, nil
}

// Delete removes a terminal mission.
func (s *MemoryStore) Delete(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	m, ok := s.missions[id]
	if !ok {
		return types.NewError(types.MISSION_NOT_FOUND, "no mission with id "+id)
	}
	if !m.Status.IsTerminal() {
		return types.NewError(types.MISSION_INVALID,
			"mission "+id+" is "+m.Status.String()+"; only terminal missions can be deleted")
	}
	delete(s.missions, id)
	return nil
}

var _ MissionStore = (*MemoryStore)(nil)
