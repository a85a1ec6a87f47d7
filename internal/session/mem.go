package session

import "sync"

// MemStore is an in-memory Store for tests and embedded use.
type MemStore struct {
	mu      sync.Mutex
	current *string
	last    *LastCommand
}

func NewMemStore() *MemStore { return &MemStore{} }

func (s *MemStore) CurrentAgent() *string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.current
}

func (s *MemStore) SetCurrentAgent(name *string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.current = name
	return nil
}

func (s *MemStore) SaveLastCommand(lc LastCommand) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.last = &lc
	return nil
}

func (s *MemStore) LastCommand() *LastCommand {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.last == nil {
		return nil
	}
	lc := *s.last
	return &lc
}

func (s *MemStore) ClearLastCommand() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.last = nil
	return nil
}
