// Package notes keeps a last-known-good mirror of the server's note list and
// applies mutations optimistically against it, so the UI always has
// something to show when the network or auth layer fails.
package notes

import (
	"encoding/json"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/sachindrat2/notewire/internal/atomicfile"
	"github.com/sachindrat2/notewire/pkg/core"
)

// legacySlot is the unscoped cache file kept for installs that predate
// per-user slots.
const legacySlot = "notes.json"

// Cache stores one JSON slot per known user id plus the legacy unscoped
// slot. Entries are overwritten wholesale on every successful fetch and are
// never proactively expired: staleness is unbounded because the cache is a
// fallback, not a source of truth.
type Cache struct {
	dir    string
	logger *slog.Logger
}

// NewCache creates a cache rooted at dir.
func NewCache(dir string, logger *slog.Logger) *Cache {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Cache{dir: dir, logger: logger}
}

func (c *Cache) slotPath(subject string) string {
	if subject == "" {
		return filepath.Join(c.dir, legacySlot)
	}
	return filepath.Join(c.dir, "notes-"+sanitizeSlot(subject)+".json")
}

// sanitizeSlot keeps user ids from escaping the cache directory.
func sanitizeSlot(subject string) string {
	r := strings.NewReplacer("/", "_", "\\", "_", ":", "_", "..", "_")
	return r.Replace(subject)
}

// Load returns the cached list for the user, falling back to the legacy
// unscoped slot. A corrupt slot is dropped so the next Load is clean, and
// reported as a miss.
func (c *Cache) Load(subject string) ([]core.Note, bool) {
	paths := []string{c.slotPath(subject)}
	if subject != "" {
		paths = append(paths, c.slotPath(""))
	}

	for _, path := range paths {
		data, err := os.ReadFile(path)
		if os.IsNotExist(err) {
			continue
		}
		if err != nil {
			c.logger.Warn("failed to read cache slot", "path", path, "err", err)
			continue
		}
		var notes []core.Note
		if err := json.Unmarshal(data, &notes); err != nil {
			c.logger.Warn("cache slot is corrupt, dropping it", "path", path, "err", err)
			os.Remove(path)
			continue
		}
		return notes, true
	}
	return nil, false
}

// Save replaces the user's slot wholesale. The write is atomic so a reader
// in another process never observes a torn list.
func (c *Cache) Save(subject string, notes []core.Note) error {
	if err := os.MkdirAll(c.dir, 0700); err != nil {
		return err
	}
	data, err := json.MarshalIndent(notes, "", "  ")
	if err != nil {
		return err
	}
	return atomicfile.WriteFile(c.slotPath(subject), data, 0600)
}

// Wipe removes the user's slot and the legacy slot. Used on logout and on
// session invalidation.
func (c *Cache) Wipe(subject string) error {
	for _, path := range []string{c.slotPath(subject), c.slotPath("")} {
		if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
			return err
		}
	}
	return nil
}
