package chat

import (
	"errors"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// ConversationState is what survives between invocations: the hub-assigned
// conversation id for continuing a conversation from the command line.
type ConversationState struct {
	ConversationID string `yaml:"conversation_id"`
}

// ConversationStore persists ConversationState as a small YAML file in the
// config directory.
type ConversationStore struct {
	path string
}

// NewConversationStore creates a store at path. An empty path disables
// persistence; Load returns zero state and Save is a no-op.
func NewConversationStore(path string) *ConversationStore {
	return &ConversationStore{path: path}
}

// Load reads the persisted state. A missing file is zero state, not an error.
func (s *ConversationStore) Load() (ConversationState, error) {
	var state ConversationState
	if s.path == "" {
		return state, nil
	}
	data, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return state, nil
		}
		return state, err
	}
	if err := yaml.Unmarshal(data, &state); err != nil {
		return state, err
	}
	return state, nil
}

// Save writes the state atomically.
func (s *ConversationStore) Save(state ConversationState) error {
	if s.path == "" {
		return nil
	}
	data, err := yaml.Marshal(state)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return err
	}
	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return err
	}
	return os.Rename(tmp, s.path)
}

// Reset removes the persisted state.
func (s *ConversationStore) Reset() error {
	if s.path == "" {
		return nil
	}
	if err := os.Remove(s.path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	return nil
}
