package sandbox

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/google/uuid"
)

// ActionStore persists SimulatedAction records. The Gate owns these
// records exclusively and treats the store as the single source of truth.
type ActionStore interface {
	// CreateAction persists a new action record.
	CreateAction(ctx context.Context, action *SimulatedAction) error

	// GetAction returns an action by id, or ErrActionNotFound.
	GetAction(ctx context.Context, id uuid.UUID) (*SimulatedAction, error)

	// UpdateAction replaces a stored action record.
	UpdateAction(ctx context.Context, action *SimulatedAction) error

	// ListActions returns actions matching the filter, newest first.
	ListActions(ctx context.Context, filter ActionFilter) ([]*SimulatedAction, error)
}

// MemoryActionStore is an in-memory ActionStore for tests and local
// development.
type MemoryActionStore struct {
	mu      sync.RWMutex
	actions map[uuid.UUID]*SimulatedAction
}

// NewMemoryActionStore creates an in-memory action store.
func NewMemoryActionStore() *MemoryActionStore {
	return &MemoryActionStore{
		actions: make(map[uuid.UUID]*SimulatedAction),
	}
}

// CreateAction implements ActionStore.
func (s *MemoryActionStore) CreateAction(ctx context.Context, action *SimulatedAction) error {
	if action == nil {
		return errors.New("action cannot be nil")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.actions[action.ID]; exists {
		return fmt.Errorf("action with ID %s already exists", action.ID)
	}

	actionCopy := *action
	s.actions[action.ID] = &actionCopy
	return nil
}

// GetAction implements ActionStore.
func (s *MemoryActionStore) GetAction(ctx context.Context, id uuid.UUID) (*SimulatedAction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	action, exists := s.actions[id]
	if !exists {
		return nil, ErrActionNotFound
	}

	actionCopy := *action
	return &actionCopy, nil
}

// UpdateAction implements ActionStore.
func (s *MemoryActionStore) UpdateAction(ctx context.Context, action *SimulatedAction) error {
	if action == nil {
		return errors.New("action cannot be nil")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.actions[action.ID]; !exists {
		return ErrActionNotFound
	}

	actionCopy := *action
	s.actions[action.ID] = &actionCopy
	return nil
}

// ListActions implements ActionStore.
func (s *MemoryActionStore) ListActions(ctx context.Context, filter ActionFilter) ([]*SimulatedAction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []*SimulatedAction
	for _, action := range s.actions {
		if filter.Status != "" && action.Status != filter.Status {
			continue
		}
		if filter.Platform != "" && action.Platform != filter.Platform {
			continue
		}
		actionCopy := *action
		out = append(out, &actionCopy)
	}

	sort.Slice(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})

	if filter.Limit > 0 && len(out) > filter.Limit {
		out = out[:filter.Limit]
	}
	return out, nil
}
