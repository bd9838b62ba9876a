package client

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
)

const prefsFileName = "budgy_notification_prefs.json"

// NotificationPrefs is client-local only and never synced to the server.
type NotificationPrefs struct {
	BillReminders  bool `json:"billReminders"`
	BudgetWarnings bool `json:"budgetWarnings"`
	GoalReached    bool `json:"goalReached"`
}

// DefaultNotificationPrefs enables everything.
func DefaultNotificationPrefs() NotificationPrefs {
	return NotificationPrefs{BillReminders: true, BudgetWarnings: true, GoalReached: true}
}

// PrefsStore persists notification preferences beside the session token.
type PrefsStore struct {
	dir string
}

func NewPrefsStore(dir string) (*PrefsStore, error) {
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, fmt.Errorf("creating prefs directory: %w", err)
	}
	return &PrefsStore{dir: dir}, nil
}

func (s *PrefsStore) path() string {
	return filepath.Join(s.dir, prefsFileName)
}

// Load returns the stored preferences, falling back to defaults when no
// file exists yet.
func (s *PrefsStore) Load() (NotificationPrefs, error) {
	data, err := os.ReadFile(s.path())
	if errors.Is(err, os.ErrNotExist) {
		return DefaultNotificationPrefs(), nil
	}
	if err != nil {
		return DefaultNotificationPrefs(), fmt.Errorf("reading preferences: %w", err)
	}

	var prefs NotificationPrefs
	if err := json.Unmarshal(data, &prefs); err != nil {
		return DefaultNotificationPrefs(), fmt.Errorf("parsing preferences: %w", err)
	}
	return prefs, nil
}

func (s *PrefsStore) Save(prefs NotificationPrefs) error {
	data, err := json.MarshalIndent(prefs, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding preferences: %w", err)
	}
	if err := os.WriteFile(s.path(), data, 0o600); err != nil {
		return fmt.Errorf("writing preferences: %w", err)
	}
	return nil
}
