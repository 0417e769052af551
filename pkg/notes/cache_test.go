package notes

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/sachindrat2/notewire/pkg/core"
	"github.com/stretchr/testify/require"
)

func TestCache_SaveLoad(t *testing.T) {
	c := NewCache(t.TempDir(), nil)

	notes := []core.Note{
		{ID: "1", Title: "A", Tags: []string{"work"}},
		{ID: "2", Title: "B"},
	}
	require.NoError(t, c.Save("alice", notes))

	loaded, ok := c.Load("alice")
	require.True(t, ok)
	require.Equal(t, notes, loaded)
}

func TestCache_MissWhenEmpty(t *testing.T) {
	c := NewCache(t.TempDir(), nil)
	_, ok := c.Load("alice")
	require.False(t, ok)
}

func TestCache_LegacySlotFallback(t *testing.T) {
	dir := t.TempDir()
	c := NewCache(dir, nil)

	// An old install wrote the unscoped slot.
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.json"), []byte(`[{"id":"9","title":"old"}]`), 0600))

	loaded, ok := c.Load("alice")
	require.True(t, ok)
	require.Len(t, loaded, 1)
	require.Equal(t, core.NoteID("9"), loaded[0].ID)

	// A per-user slot takes precedence once it exists.
	require.NoError(t, c.Save("alice", []core.Note{{ID: "1", Title: "new"}}))
	loaded, ok = c.Load("alice")
	require.True(t, ok)
	require.Equal(t, "new", loaded[0].Title)
}

func TestCache_CorruptSlotDropped(t *testing.T) {
	dir := t.TempDir()
	c := NewCache(dir, nil)
	path := filepath.Join(dir, "notes-alice.json")
	require.NoError(t, os.WriteFile(path, []byte("{corrupt"), 0600))

	_, ok := c.Load("alice")
	require.False(t, ok)

	_, err := os.Stat(path)
	require.True(t, os.IsNotExist(err), "corrupt slot should self-heal by removal")
}

func TestCache_WipeRemovesUserAndLegacySlots(t *testing.T) {
	dir := t.TempDir()
	c := NewCache(dir, nil)
	require.NoError(t, c.Save("alice", []core.Note{{ID: "1"}}))
	require.NoError(t, c.Save("", []core.Note{{ID: "2"}}))

	require.NoError(t, c.Wipe("alice"))

	_, ok := c.Load("alice")
	require.False(t, ok)
	_, ok = c.Load("")
	require.False(t, ok)
}

func TestCache_NumericServerIDs(t *testing.T) {
	dir := t.TempDir()
	c := NewCache(dir, nil)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes-alice.json"), []byte(`[{"id":42,"title":"n"}]`), 0600))

	loaded, ok := c.Load("alice")
	require.True(t, ok)
	require.Equal(t, core.NoteID("42"), loaded[0].ID)
}

func TestCache_SubjectCannotEscapeDir(t *testing.T) {
	dir := t.TempDir()
	c := NewCache(dir, nil)
	require.NoError(t, c.Save("../evil", []core.Note{{ID: "1"}}))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1, "the slot must stay inside the cache directory")
}
