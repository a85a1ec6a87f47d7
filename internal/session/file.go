package session

import (
	"bytes"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"sync"

	"github.com/natefinch/atomic"
)

// FileStore keeps session state in one small JSON file. Reads swallow
// missing and corrupt files as empty state; writes go through a read-merge-
// write cycle under a lock so unrelated fields survive every mutation, and
// land atomically so a crash never leaves a torn record.
type FileStore struct {
	path string
	mu   sync.Mutex
}

func NewFileStore(path string) *FileStore {
	return &FileStore{path: path}
}

func (s *FileStore) CurrentAgent() *string {
	s.mu.Lock()
	defer s.mu.Unlock()

	data := s.read()
	return decodeAgent(data["current_agent"])
}

func (s *FileStore) SetCurrentAgent(name *string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	data := s.read()
	raw, err := json.Marshal(name)
	if err != nil {
		return err
	}
	data["current_agent"] = raw
	return s.write(data)
}

func (s *FileStore) SaveLastCommand(lc LastCommand) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	data := s.read()
	raw, err := json.Marshal(lc)
	if err != nil {
		return err
	}
	data["last_command"] = raw
	return s.write(data)
}

func (s *FileStore) LastCommand() *LastCommand {
	s.mu.Lock()
	defer s.mu.Unlock()

	data := s.read()
	raw, ok := data["last_command"]
	if !ok {
		return nil
	}
	var lc LastCommand
	if err := json.Unmarshal(raw, &lc); err != nil {
		slog.Warn("session: unreadable last_command, treating as absent", "err", err)
		return nil
	}
	return &lc
}

func (s *FileStore) ClearLastCommand() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	data := s.read()
	delete(data, "last_command")
	return s.write(data)
}

// read loads the whole record as raw fields. Corruption is not an error
// here: a session that cannot be read is an empty session.
func (s *FileStore) read() map[string]json.RawMessage {
	data := make(map[string]json.RawMessage)
	b, err := os.ReadFile(s.path)
	if err != nil {
		return data
	}
	if err := json.Unmarshal(b, &data); err != nil {
		slog.Warn("session: corrupt state file, starting empty", "path", s.path, "err", err)
		return make(map[string]json.RawMessage)
	}
	return data
}

func (s *FileStore) write(data map[string]json.RawMessage) error {
	b, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("encode session: %w", err)
	}
	if err := atomic.WriteFile(s.path, bytes.NewReader(b)); err != nil {
		return fmt.Errorf("write session: %w", err)
	}
	return nil
}

func decodeAgent(raw json.RawMessage) *string {
	if raw == nil {
		return nil
	}
	var name *string
	if err := json.Unmarshal(raw, &name); err != nil {
		return nil
	}
	return name
}
