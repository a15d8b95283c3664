// Package contacts is the client-side record cache for the contacts API.
//
// The Store keeps three lists: the active contacts shown to the user, the
// trash, and a backup buffer holding contacts removed from the active list
// while their delete is pending. Deletes are applied optimistically and
// rolled back when the server rejects them; creates and updates round-trip
// first. The store lock is held only while memory is touched, never across
// a remote call, so independent operations and push events interleave at
// those call boundaries.
package contacts

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"sync"

	"github.com/Makepad-fr/rolodex/internal/api"
	"github.com/Makepad-fr/rolodex/internal/metrics"
	"github.com/Makepad-fr/rolodex/internal/model"
)

var (
	// ErrNotInList is returned by Delete when the id is not an active contact.
	ErrNotInList = errors.New("contact not in list")
	// ErrUnknownField is returned by Sort for fields that cannot order a list.
	ErrUnknownField = errors.New("unknown sort field")
)

// Remote is the contacts backend as seen by the cache.
type Remote interface {
	ListActive(ctx context.Context) ([]model.Contact, error)
	Get(ctx context.Context, id int64) (model.Contact, error)
	Create(ctx context.Context, p model.Payload) (model.Contact, error)
	Patch(ctx context.Context, id int64, p model.Payload) error
	SoftDelete(ctx context.Context, id int64) error
	ListTrash(ctx context.Context) ([]model.Contact, error)
	Restore(ctx context.Context, id int64) error
}

// ViewMode is the display density chosen by the user.
type ViewMode string

const (
	ViewList  ViewMode = "list"
	ViewGrid  ViewMode = "grid"
	ViewSmall ViewMode = "small"
)

// ViewModes lists every display density, in toggle order.
var ViewModes = []ViewMode{ViewList, ViewGrid, ViewSmall}

// Store owns the cached contact state. The zero value is not usable; call New.
type Store struct {
	remote    Remote
	persist   Persister
	log       *slog.Logger
	bulkLimit int

	mu           sync.Mutex
	active       []model.Contact
	trash        []model.Contact
	backup       []model.Contact
	selected     Selection
	trashSel     Selection
	loading      int
	trashLoading int
	lastErr      string
	version      uint64
	query        string
	view         ViewMode
	sortField    model.Field
	memo         projection
	dirty        bool

	saveMu       sync.Mutex
	savedVersion uint64
}

// Option configures a Store.
type Option func(*Store)

// WithLogger sets the store logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Store) { s.log = l }
}

// WithPersister enables save-on-change to p. Call Hydrate to load from it.
func WithPersister(p Persister) Option {
	return func(s *Store) { s.persist = p }
}

// WithBulkConcurrency caps in-flight remote calls per bulk operation.
// Zero or negative means no cap.
func WithBulkConcurrency(n int) Option {
	return func(s *Store) { s.bulkLimit = n }
}

// New returns an empty store backed by remote.
func New(remote Remote, opts ...Option) *Store {
	s := &Store{
		remote: remote,
		log:    slog.New(slog.DiscardHandler),
		view:   ViewList,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// FetchAll replaces the active list with the server's. A not-found answer
// means the user has no contacts. On any other failure the current list is
// kept and the message is available from LastError.
func (s *Store) FetchAll(ctx context.Context) error {
	s.begin()
	list, err := s.remote.ListActive(ctx)

	s.mu.Lock()
	defer s.unlock()
	s.loading--
	if err != nil {
		if errors.Is(err, api.ErrNotFound) {
			s.active = nil
			s.changedLocked()
			return nil
		}
		s.lastErr = api.Message(err, "Failed to load contacts")
		s.log.Warn("fetch contacts failed", "err", err)
		return fmt.Errorf("fetch contacts: %w", err)
	}
	s.active = s.acceptLocked(list)
	s.changedLocked()
	return nil
}

// Get fetches a single contact without touching the cached lists.
func (s *Store) Get(ctx context.Context, id int64) (model.Contact, error) {
	s.begin()
	c, err := s.remote.Get(ctx, id)

	s.mu.Lock()
	defer s.unlock()
	s.loading--
	if err != nil {
		s.lastErr = api.Message(err, "Failed to fetch contact")
		return model.Contact{}, fmt.Errorf("get contact %d: %w", id, err)
	}
	return c, nil
}

// Add creates a contact and appends the server's record once confirmed.
func (s *Store) Add(ctx context.Context, p model.Payload) (model.Contact, error) {
	s.begin()
	c, err := s.remote.Create(ctx, p)

	s.mu.Lock()
	defer s.unlock()
	s.loading--
	if err != nil {
		s.lastErr = api.Message(err, "Failed to add contact")
		s.log.Warn("add contact failed", "err", err)
		return model.Contact{}, fmt.Errorf("add contact: %w", err)
	}
	s.upsertLocked(c)
	s.changedLocked()
	s.log.Info("contact added", "id", c.ID)
	return c, nil
}

// Update patches a contact and then refetches the whole list. Nothing is
// changed locally before the server confirms.
func (s *Store) Update(ctx context.Context, id int64, p model.Payload) error {
	s.begin()
	err := s.remote.Patch(ctx, id, p)

	s.mu.Lock()
	s.loading--
	if err != nil {
		s.lastErr = api.Message(err, "Failed to update contact")
		s.unlock()
		s.log.Warn("update contact failed", "id", id, "err", err)
		return fmt.Errorf("update contact %d: %w", id, err)
	}
	s.unlock()

	// A failed refetch is recorded in LastError; the update itself succeeded.
	_ = s.FetchAll(ctx)
	return nil
}

// SetSearchQuery sets the free text filter applied by Filtered.
func (s *Store) SetSearchQuery(q string) {
	s.mu.Lock()
	defer s.unlock()
	if s.query == q {
		return
	}
	s.query = q
	s.changedLocked()
}

// SearchQuery returns the current filter text.
func (s *Store) SearchQuery() string {
	s.mu.Lock()
	defer s.unlock()
	return s.query
}

// SetView switches the display density.
func (s *Store) SetView(v ViewMode) error {
	if !slices.Contains(ViewModes, v) {
		return fmt.Errorf("unknown view %q", v)
	}
	s.mu.Lock()
	defer s.unlock()
	s.view = v
	s.changedLocked()
	return nil
}

// View returns the display density.
func (s *Store) View() ViewMode {
	s.mu.Lock()
	defer s.unlock()
	return s.view
}

// Contacts returns a copy of the active list in display order.
func (s *Store) Contacts() []model.Contact {
	s.mu.Lock()
	defer s.unlock()
	return slices.Clone(s.active)
}

// Trash returns a copy of the trash list.
func (s *Store) Trash() []model.Contact {
	s.mu.Lock()
	defer s.unlock()
	return slices.Clone(s.trash)
}

// Backup returns a copy of the contacts whose delete is pending.
func (s *Store) Backup() []model.Contact {
	s.mu.Lock()
	defer s.unlock()
	return slices.Clone(s.backup)
}

// Find looks up an active contact by id.
func (s *Store) Find(id int64) (model.Contact, bool) {
	s.mu.Lock()
	defer s.unlock()
	if i := indexOf(s.active, id); i >= 0 {
		return s.active[i], true
	}
	return model.Contact{}, false
}

// Contains reports whether id is an active contact.
func (s *Store) Contains(id int64) bool {
	_, ok := s.Find(id)
	return ok
}

// Pending reports whether id sits in the backup buffer.
func (s *Store) Pending(id int64) bool {
	s.mu.Lock()
	defer s.unlock()
	return indexOf(s.backup, id) >= 0
}

// Count is the number of active contacts.
func (s *Store) Count() int {
	s.mu.Lock()
	defer s.unlock()
	return len(s.active)
}

// TrashCount is the number of trashed contacts.
func (s *Store) TrashCount() int {
	s.mu.Lock()
	defer s.unlock()
	return len(s.trash)
}

// Loading reports whether an active-list remote call is in flight.
func (s *Store) Loading() bool {
	s.mu.Lock()
	defer s.unlock()
	return s.loading > 0
}

// TrashLoading reports whether a trash remote call is in flight.
func (s *Store) TrashLoading() bool {
	s.mu.Lock()
	defer s.unlock()
	return s.trashLoading > 0
}

// LastError returns the message of the last failed remote operation, or "".
func (s *Store) LastError() string {
	s.mu.Lock()
	defer s.unlock()
	return s.lastErr
}

// ClearError forgets the last error message.
func (s *Store) ClearError() {
	s.mu.Lock()
	defer s.unlock()
	s.lastErr = ""
}

// Version increases on every change to the cached lists or filter.
func (s *Store) Version() uint64 {
	s.mu.Lock()
	defer s.unlock()
	return s.version
}

func (s *Store) begin() {
	s.mu.Lock()
	s.loading++
	s.lastErr = ""
	s.unlock()
}

func (s *Store) changedLocked() {
	s.version++
	s.dirty = true
	metrics.SetCacheSizes(len(s.active), len(s.trash), len(s.backup))
}

// unlock releases s.mu and then saves the state if a change was marked
// while it was held. Save never runs under s.mu. saveMu orders saves and a
// snapshot older than the last one saved is dropped.
func (s *Store) unlock() {
	if !s.dirty || s.persist == nil {
		s.dirty = false
		s.mu.Unlock()
		return
	}
	s.dirty = false
	snap, version := s.snapshotLocked(), s.version
	s.mu.Unlock()

	s.saveMu.Lock()
	defer s.saveMu.Unlock()
	if version <= s.savedVersion {
		return
	}
	s.savedVersion = version
	if err := s.persist.Save(context.Background(), snap); err != nil {
		s.log.Warn("save snapshot failed", "err", err)
	}
}

// acceptLocked prepares a server list for use as the active list: ids
// pending deletion stay hidden and duplicate ids keep their first record.
func (s *Store) acceptLocked(list []model.Contact) []model.Contact {
	out := make([]model.Contact, 0, len(list))
	seen := make(map[int64]struct{}, len(list))
	for _, c := range list {
		if _, dup := seen[c.ID]; dup {
			continue
		}
		seen[c.ID] = struct{}{}
		if indexOf(s.backup, c.ID) >= 0 {
			continue
		}
		out = append(out, c)
	}
	return out
}

// upsertLocked replaces the active record with c's id or appends c.
func (s *Store) upsertLocked(c model.Contact) {
	if i := indexOf(s.active, c.ID); i >= 0 {
		s.active[i] = c
		return
	}
	s.active = append(s.active, c)
}

// restoreLocked puts a backed-up record back unless a fresher copy of the
// same id already reached the active list. It reports whether c was added.
func (s *Store) restoreLocked(c model.Contact) bool {
	if indexOf(s.active, c.ID) >= 0 {
		return false
	}
	s.active = append(s.active, c)
	return true
}

func indexOf(list []model.Contact, id int64) int {
	return slices.IndexFunc(list, func(c model.Contact) bool { return c.ID == id })
}

// take removes the record with id from *list and returns it.
func take(list *[]model.Contact, id int64) (model.Contact, bool) {
	i := indexOf(*list, id)
	if i < 0 {
		return model.Contact{}, false
	}
	c := (*list)[i]
	*list = slices.Delete(*list, i, i+1)
	return c, true
}
