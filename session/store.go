// store.go - session recovery store.
// Copyright (C) 2024  hmdev contributors
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as
// published by the Free Software Foundation, either version 3 of the
// License, or (at your option) any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU Affero General Public License for more details.
//
// You should have received a copy of the GNU Affero General Public License
// along with this program.  If not, see <http://www.gnu.org/licenses/>.

// Package session implements session-recovery persistence: a process-wide
// mapping from channel key to the last server-issued sessionId, so a
// later connect can present it as a reconnect hint. Grounded on the
// original agent's session_recovery_utility.py, behind a Store interface
// so tests can inject an in-memory store.
package session

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/hmdev/agentsdk/constants"
	"github.com/hmdev/agentsdk/internal/logging"
)

var log = logging.GetLogger("session")

// Store persists and recalls a sessionId per channel key.
type Store interface {
	Load(channelKey string) (string, bool)
	Save(channelKey, sessionID string) error
}

// sanitize replaces path separators so a channel key can be used as a
// filename, mirroring the original utility's slash replacement.
func sanitize(channelKey string) string {
	r := strings.NewReplacer("/", "_", "\\", "_")
	return r.Replace(channelKey)
}

type fileRecord struct {
	SessionID string `json:"sessionId"`
}

// FileStore persists one JSON file per channel under a directory, by
// default ~/.agent_sessions/.
type FileStore struct {
	dir string
}

// NewFileStore creates a FileStore rooted at dir. If dir is empty, the
// user's home directory plus constants.SessionRecoveryDir is used.
func NewFileStore(dir string) *FileStore {
	if dir == "" {
		if home, err := os.UserHomeDir(); err == nil {
			dir = filepath.Join(home, constants.SessionRecoveryDir)
		} else {
			dir = constants.SessionRecoveryDir
		}
	}
	return &FileStore{dir: dir}
}

func (f *FileStore) path(channelKey string) string {
	return filepath.Join(f.dir, sanitize(channelKey)+".json")
}

// Load returns the previously saved sessionId for channelKey, if any.
func (f *FileStore) Load(channelKey string) (string, bool) {
	if channelKey == "" {
		return "", false
	}
	data, err := os.ReadFile(f.path(channelKey))
	if err != nil {
		return "", false
	}
	var rec fileRecord
	if err := json.Unmarshal(data, &rec); err != nil {
		log.Debugf("session recovery file for %q is malformed: %v", channelKey, err)
		return "", false
	}
	if rec.SessionID == "" {
		return "", false
	}
	return rec.SessionID, true
}

// Save persists sessionId for channelKey, creating the recovery
// directory if needed.
func (f *FileStore) Save(channelKey, sessionID string) error {
	if channelKey == "" {
		return nil
	}
	if err := os.MkdirAll(f.dir, 0700); err != nil {
		return fmt.Errorf("session: create recovery dir: %w", err)
	}
	data, err := json.Marshal(fileRecord{SessionID: sessionID})
	if err != nil {
		return fmt.Errorf("session: marshal recovery record: %w", err)
	}
	if err := os.WriteFile(f.path(channelKey), data, 0600); err != nil {
		return fmt.Errorf("session: write recovery file: %w", err)
	}
	return nil
}

// MemoryStore is an in-memory Store for tests.
type MemoryStore struct {
	mu   sync.Mutex
	data map[string]string
}

// NewMemoryStore creates an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{data: make(map[string]string)}
}

// Load implements Store.
func (m *MemoryStore) Load(channelKey string) (string, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.data[channelKey]
	return v, ok
}

// Save implements Store.
func (m *MemoryStore) Save(channelKey, sessionID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[channelKey] = sessionID
	return nil
}
