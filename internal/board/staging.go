package board

import (
	"context"
	"fmt"
	"sync"
)

// Staging holds actions proposed by a session until they are committed in
// one go. It is safe for concurrent use.
type Staging struct {
	mu     sync.RWMutex
	staged map[string][]Action
}

func NewStaging() *Staging {
	return &Staging{
		staged: make(map[string][]Action),
	}
}

// Add validates and queues an action for the session.
func (sm *Staging) Add(sessionID string, a Action) error {
	if a == nil {
		return fmt.Errorf("%w: nil action", ErrInvalidAction)
	}
	if err := a.Validate(); err != nil {
		return fmt.Errorf("%w: %s: %v", ErrInvalidAction, a.Kind(), err)
	}

	sm.mu.Lock()
	defer sm.mu.Unlock()
	sm.staged[sessionID] = append(sm.staged[sessionID], a)
	return nil
}

func (sm *Staging) GetAndClear(sessionID string) []Action {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	items := sm.staged[sessionID]
	delete(sm.staged, sessionID)
	if items == nil {
		return []Action{}
	}
	return items
}

func (sm *Staging) Peek(sessionID string) []Action {
	sm.mu.RLock()
	defer sm.mu.RUnlock()

	return append([]Action{}, sm.staged[sessionID]...)
}

// CommitStaged dispatches every action staged for the session, in order.
// Actions were validated when staged, so an individual no-op does not stop
// the batch.
func (s *Store) CommitStaged(ctx context.Context, staging *Staging, sessionID string) ([]Result, error) {
	items := staging.GetAndClear(sessionID)
	results := make([]Result, 0, len(items))
	for i, a := range items {
		res, err := s.Dispatch(ctx, a)
		if err != nil {
			return results, fmt.Errorf("staged action %d (%s): %w", i, a.Kind(), err)
		}
		results = append(results, res)
	}
	return results, nil
}
