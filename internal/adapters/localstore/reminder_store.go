// Package localstore provides JSON-file persistence for state that the
// browser client kept in localStorage: the reminder set and an offline
// experiment mirror.
package localstore

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"labflow/internal/domain"
)

// ReminderStore persists the scheduler's reminder set as a JSON file.
type ReminderStore struct {
	path string
}

// DefaultRootDir resolves the labflow data directory under the user
// config dir.
func DefaultRootDir() (string, error) {
	configDir, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("resolve user config dir: %w", err)
	}
	return filepath.Join(configDir, "labflow"), nil
}

func NewReminderStore(rootPath string) *ReminderStore {
	return &ReminderStore{path: filepath.Join(rootPath, "reminders.json")}
}

// Load reads the persisted reminder set. A missing file is an empty set.
func (s *ReminderStore) Load() ([]domain.Reminder, error) {
	data, err := os.ReadFile(s.path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read reminders file: %w", err)
	}

	var reminders []domain.Reminder
	if err := json.Unmarshal(data, &reminders); err != nil {
		return nil, fmt.Errorf("decode reminders file: %w", err)
	}
	return reminders, nil
}

// Save writes the full reminder set, atomically via temp file + rename.
func (s *ReminderStore) Save(reminders []domain.Reminder) error {
	if reminders == nil {
		reminders = []domain.Reminder{}
	}
	data, err := json.MarshalIndent(reminders, "", "  ")
	if err != nil {
		return fmt.Errorf("encode reminders: %w", err)
	}
	return writeFileAtomic(s.path, data)
}

func writeFileAtomic(path string, data []byte) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return fmt.Errorf("create data directory: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), filepath.Base(path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		return fmt.Errorf("write temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("close temp file: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("replace %s: %w", filepath.Base(path), err)
	}
	return nil
}
