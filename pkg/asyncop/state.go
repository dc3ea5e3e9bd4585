package asyncop

import (
	"sort"
	"sync"
	"time"
)

// LoadingState is the observable state of one operation id. Error is the
// already-coerced message of the last failure; empty means no error.
type LoadingState struct {
	IsLoading   bool       `json:"is_loading"`
	Error       string     `json:"error,omitempty"`
	RetryCount  int        `json:"retry_count"`
	LastAttempt *time.Time `json:"last_attempt,omitempty"`
}

// stateStore holds exactly one LoadingState per operation id. Records are
// created lazily with zero-value defaults and persist until removed.
// It is pure data: it never notifies anyone.
type stateStore struct {
	mu     sync.RWMutex
	states map[string]LoadingState
}

func newStateStore() *stateStore {
	return &stateStore{states: make(map[string]LoadingState)}
}

func (s *stateStore) get(id string) LoadingState {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.states[id]
}

// update applies mutate to the current record for id (default if unseen),
// stores the result, and returns the post-update state.
func (s *stateStore) update(id string, mutate func(*LoadingState)) LoadingState {
	s.mu.Lock()
	defer s.mu.Unlock()
	state := s.states[id]
	mutate(&state)
	s.states[id] = state
	return state
}

func (s *stateStore) remove(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.states, id)
}

func (s *stateStore) reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.states = make(map[string]LoadingState)
}

func (s *stateStore) hasActive() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, state := range s.states {
		if state.IsLoading {
			return true
		}
	}
	return false
}

func (s *stateStore) activeIDs() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var ids []string
	for id, state := range s.states {
		if state.IsLoading {
			ids = append(ids, id)
		}
	}
	sort.Strings(ids)
	return ids
}
