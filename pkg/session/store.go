package session

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	"github.com/sachindrat2/notewire/internal/atomicfile"
	"github.com/sachindrat2/notewire/pkg/core"
)

const sessionFileName = "session.json"

// FileStore persists the single session slot as a JSON file under the data
// directory. Writes go through a temp file and rename, so another process
// reading the slot never sees a torn value.
type FileStore struct {
	path   string
	logger *slog.Logger
}

// NewFileStore creates a store rooted at dir.
func NewFileStore(dir string, logger *slog.Logger) *FileStore {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &FileStore{
		path:   filepath.Join(dir, sessionFileName),
		logger: logger,
	}
}

// Path returns the location of the session slot, for watchers.
func (s *FileStore) Path() string {
	return s.path
}

// Load reads the stored session. A missing slot yields (nil, nil). A slot
// that does not decode, or decodes to a session without a token, is treated
// identically to "no session" and is cleared so the next Load is clean.
func (s *FileStore) Load() (*core.Session, error) {
	data, err := os.ReadFile(s.path)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read session slot: %w", err)
	}

	var sess core.Session
	if err := json.Unmarshal(data, &sess); err != nil {
		s.logger.Warn("stored session is corrupt, clearing slot", "path", s.path, "err", err)
		return nil, s.Clear()
	}
	if !sess.Valid() {
		s.logger.Warn("stored session has no token, clearing slot", "path", s.path)
		return nil, s.Clear()
	}
	return &sess, nil
}

// Save replaces the stored session wholesale.
func (s *FileStore) Save(sess *core.Session) error {
	if !sess.Valid() {
		return fmt.Errorf("refusing to persist a session without a token")
	}
	data, err := json.MarshalIndent(sess, "", "  ")
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(s.path), 0700); err != nil {
		return fmt.Errorf("failed to create session directory: %w", err)
	}
	return atomicfile.WriteFile(s.path, data, 0600)
}

// Clear removes the stored session. Clearing an already-empty slot is a no-op.
func (s *FileStore) Clear() error {
	if err := os.Remove(s.path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to clear session slot: %w", err)
	}
	return nil
}

// MemStore is an in-memory core.SessionStore for tests and embedding.
type MemStore struct {
	mu   sync.Mutex
	sess *core.Session
}

func (m *MemStore) Load() (*core.Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.sess == nil {
		return nil, nil
	}
	cp := *m.sess
	return &cp, nil
}

func (m *MemStore) Save(sess *core.Session) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *sess
	m.sess = &cp
	return nil
}

func (m *MemStore) Clear() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sess = nil
	return nil
}
