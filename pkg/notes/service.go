package notes

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"slices"
	"time"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/sachindrat2/notewire/pkg/core"
	"github.com/sachindrat2/notewire/pkg/gateway"
)

// Config holds the configuration for the Service.
type Config struct {
	API     *gateway.Client
	Cache   *Cache
	Subject func() string    // current user id, for cache slot namespacing
	Logger  *slog.Logger     // optional
	Now     func() time.Time // optional, for tests
}

// Service is the read-through/write-through layer between callers and the
// remote API. Reads fall back to the cache; writes are applied optimistically
// and rolled back when the server rejects them.
type Service struct {
	api     *gateway.Client
	cache   *Cache
	subject func() string
	logger  *slog.Logger
	now     func() time.Time
}

// NewService creates a Service.
func NewService(cfg Config) *Service {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	now := cfg.Now
	if now == nil {
		now = time.Now
	}
	subject := cfg.Subject
	if subject == nil {
		subject = func() string { return "" }
	}
	return &Service{
		api:     cfg.API,
		cache:   cfg.Cache,
		subject: subject,
		logger:  logger,
		now:     now,
	}
}

// ListResult is the outcome of FetchList. FromCache marks a list served from
// the last-known-good mirror after a live fetch failed.
type ListResult struct {
	Notes     []core.Note
	FromCache bool
}

// FetchList always tries the live API first. On any classified failure it
// falls back to the cached list rather than propagating the error; the error
// only surfaces when there is no cache to fall back to. A fresh server list
// is merged with notes created offline so they are neither dropped nor
// duplicated.
func (s *Service) FetchList(ctx context.Context) (ListResult, error) {
	sub := s.subject()

	var fresh []core.Note
	err := s.api.JSON(ctx, http.MethodGet, "/notes", nil, &fresh)
	if err != nil {
		if cached, ok := s.cache.Load(sub); ok {
			s.logger.Warn("live fetch failed, serving cached notes", "err", err)
			return ListResult{Notes: cached, FromCache: true}, nil
		}
		return ListResult{}, err
	}

	merged := append(fresh, s.pendingLocal(sub)...)
	if err := s.cache.Save(sub, merged); err != nil {
		s.logger.Warn("failed to persist fetched notes", "err", err)
	}
	return ListResult{Notes: merged}, nil
}

// pendingLocal returns cached notes still carrying a local id. Local ids
// never collide with server ids, so re-appending them cannot duplicate.
func (s *Service) pendingLocal(subject string) []core.Note {
	cached, ok := s.cache.Load(subject)
	if !ok {
		return nil
	}
	var pending []core.Note
	for _, n := range cached {
		if n.ID.Local() {
			pending = append(pending, n)
		}
	}
	return pending
}

// Create adds a note optimistically under a local id and reconciles it with
// the server-assigned id on success. When the server rejects the note it is
// rolled back; when the server was unreachable the note stays in the list
// under its local id so it is still visible offline, and the transport error
// is surfaced alongside it.
func (s *Service) Create(ctx context.Context, n core.Note) (core.Note, error) {
	sub := s.subject()
	now := s.now()
	n.ID = core.NewLocalID()
	n.CreatedAt, n.UpdatedAt = now, now

	current, _ := s.cache.Load(sub)
	tentative := append(slices.Clone(current), n)

	var created core.Note
	_, err := applyOptimistic(ctx, s.persister(sub), current, tentative,
		func(ctx context.Context) ([]core.Note, error) {
			if err := s.api.JSON(ctx, http.MethodPost, "/notes", n, &created); err != nil {
				return nil, err
			}
			if created.ID == "" {
				created = n
			}
			return replaceByID(tentative, n.ID, created), nil
		},
		transportFailure,
	)
	if err != nil {
		if transportFailure(err) {
			return n, err
		}
		return core.Note{}, err
	}
	return created, nil
}

// Update replaces a note optimistically and rolls back when the server
// rejects the change. A note still carrying a local id is mutated locally
// only, since the server has no record of it yet.
func (s *Service) Update(ctx context.Context, n core.Note) (core.Note, error) {
	sub := s.subject()
	n.UpdatedAt = s.now()

	current, _ := s.cache.Load(sub)
	tentative := replaceByID(slices.Clone(current), n.ID, n)

	if n.ID.Local() {
		if err := s.cache.Save(sub, tentative); err != nil {
			return core.Note{}, err
		}
		return n, nil
	}

	var updated core.Note
	_, err := applyOptimistic(ctx, s.persister(sub), current, tentative,
		func(ctx context.Context) ([]core.Note, error) {
			if err := s.api.JSON(ctx, http.MethodPut, "/notes/"+string(n.ID), n, &updated); err != nil {
				return nil, err
			}
			if updated.ID == "" {
				// Some backends reply with an empty body on update.
				updated = n
			}
			return replaceByID(tentative, n.ID, updated), nil
		},
		nil,
	)
	if err != nil {
		return core.Note{}, err
	}
	return updated, nil
}

// Delete removes a note optimistically and restores it when the server
// rejects the deletion. Deleting a note with a local id is local-only and
// issues zero network calls.
func (s *Service) Delete(ctx context.Context, id core.NoteID) error {
	sub := s.subject()

	current, _ := s.cache.Load(sub)
	tentative := removeByID(slices.Clone(current), id)

	if id.Local() {
		return s.cache.Save(sub, tentative)
	}

	_, err := applyOptimistic(ctx, s.persister(sub), current, tentative,
		func(ctx context.Context) ([]core.Note, error) {
			if _, err := s.api.Request(ctx, http.MethodDelete, "/notes/"+string(id), nil); err != nil {
				return nil, err
			}
			return tentative, nil
		},
		nil,
	)
	return err
}

func (s *Service) persister(subject string) func([]core.Note) error {
	return func(list []core.Note) error {
		return s.cache.Save(subject, list)
	}
}

// transportFailure reports whether the server never processed the request.
func transportFailure(err error) bool {
	return errors.Is(err, core.ErrNetwork) ||
		errors.Is(err, core.ErrTimeout) ||
		errors.Is(err, core.ErrCrossOrigin)
}

func replaceByID(list []core.Note, id core.NoteID, n core.Note) []core.Note {
	for i := range list {
		if list[i].ID == id {
			list[i] = n
			return list
		}
	}
	return append(list, n)
}

func removeByID(list []core.Note, id core.NoteID) []core.Note {
	return slices.DeleteFunc(list, func(n core.Note) bool {
		return n.ID == id
	})
}

// FilterTag returns notes with at least one tag matching the glob pattern
// (doublestar syntax, so "work/**" matches nested tags). An empty pattern
// returns the list unchanged.
func FilterTag(list []core.Note, pattern string) []core.Note {
	if pattern == "" {
		return list
	}
	var out []core.Note
	for _, n := range list {
		for _, tag := range n.Tags {
			if ok, err := doublestar.Match(pattern, tag); err == nil && ok {
				out = append(out, n)
				break
			}
		}
	}
	return out
}
