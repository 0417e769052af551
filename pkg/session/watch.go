package session

import (
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
)

// StoreEventType describes a transition observed on the session slot.
type StoreEventType string

const (
	EventSignedIn  StoreEventType = "SIGNED_IN"
	EventSignedOut StoreEventType = "SIGNED_OUT"
)

// StoreEvent is one observed transition of the persisted session.
type StoreEvent struct {
	Type    StoreEventType
	Subject string
	At      time.Time
}

// WatchStore watches the session slot for changes made by other processes
// (a login or logout in another terminal) and emits an event per transition.
// The channel closes when ctx is canceled.
func WatchStore(ctx context.Context, store *FileStore, logger *slog.Logger) (<-chan StoreEvent, error) {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	dir := filepath.Dir(store.Path())
	if err := os.MkdirAll(dir, 0700); err != nil {
		return nil, err
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	// Watch the directory, not the file: atomic writes replace the inode.
	if err := watcher.Add(dir); err != nil {
		watcher.Close()
		return nil, err
	}

	events := make(chan StoreEvent, 8)

	go func() {
		defer watcher.Close()
		defer close(events)

		last := EventSignedOut
		if sess, err := store.Load(); err == nil && sess.Valid() {
			last = EventSignedIn
		}

		for {
			select {
			case <-ctx.Done():
				return
			case ev, ok := <-watcher.Events:
				if !ok {
					return
				}
				if filepath.Clean(ev.Name) != store.Path() {
					continue
				}
				typ := EventSignedOut
				subject := ""
				if sess, err := store.Load(); err == nil && sess.Valid() {
					typ = EventSignedIn
					subject = sess.Subject
				}
				if typ == last {
					continue
				}
				last = typ
				select {
				case events <- StoreEvent{Type: typ, Subject: subject, At: time.Now()}:
				case <-ctx.Done():
					return
				}
			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				logger.Warn("session watch error", "err", err)
			}
		}
	}()

	return events, nil
}
