package contacts

import (
	"context"
	"fmt"
	"slices"
	"sync"
	"testing"
	"time"

	"github.com/Makepad-fr/rolodex/internal/model"
)

// fakeRemote is a programmable Remote. Per-id errors decide outcomes and
// gates hold a SoftDelete until the test closes them.
type fakeRemote struct {
	mu sync.Mutex

	active  []model.Contact
	trash   []model.Contact
	created model.Contact

	listErr   error
	trashErr  error
	getErr    error
	createErr error
	patchErr  error

	deleteErrs  map[int64]error
	restoreErrs map[int64]error
	gates       map[int64]chan struct{}
	finished    chan int64

	calls []string
}

func newFakeRemote(active ...model.Contact) *fakeRemote {
	return &fakeRemote{
		active:      active,
		deleteErrs:  map[int64]error{},
		restoreErrs: map[int64]error{},
		gates:       map[int64]chan struct{}{},
		finished:    make(chan int64, 64),
	}
}

func (f *fakeRemote) record(format string, args ...any) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, fmt.Sprintf(format, args...))
}

func (f *fakeRemote) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

func (f *fakeRemote) ListActive(context.Context) ([]model.Contact, error) {
	f.record("list")
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.listErr != nil {
		return nil, f.listErr
	}
	out := make([]model.Contact, len(f.active))
	copy(out, f.active)
	return out, nil
}

func (f *fakeRemote) Get(_ context.Context, id int64) (model.Contact, error) {
	f.record("get %d", id)
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.getErr != nil {
		return model.Contact{}, f.getErr
	}
	for _, c := range f.active {
		if c.ID == id {
			return c, nil
		}
	}
	return model.Contact{}, fmt.Errorf("no contact %d", id)
}

func (f *fakeRemote) Create(context.Context, model.Payload) (model.Contact, error) {
	f.record("create")
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.createErr != nil {
		return model.Contact{}, f.createErr
	}
	f.active = append(f.active, f.created)
	return f.created, nil
}

func (f *fakeRemote) Patch(_ context.Context, id int64, p model.Payload) error {
	f.record("patch %d", id)
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.patchErr != nil {
		return f.patchErr
	}
	for i := range f.active {
		if f.active[i].ID == id && p.FirstName != nil {
			f.active[i].FirstName = *p.FirstName
		}
	}
	return nil
}

func (f *fakeRemote) SoftDelete(_ context.Context, id int64) error {
	f.record("delete %d", id)
	f.mu.Lock()
	gate := f.gates[id]
	err := f.deleteErrs[id]
	f.mu.Unlock()
	if gate != nil {
		<-gate
	}
	f.finished <- id
	return err
}

func (f *fakeRemote) ListTrash(context.Context) ([]model.Contact, error) {
	f.record("trash")
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.trashErr != nil {
		return nil, f.trashErr
	}
	out := make([]model.Contact, len(f.trash))
	copy(out, f.trash)
	return out, nil
}

func (f *fakeRemote) Restore(_ context.Context, id int64) error {
	f.record("restore %d", id)
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.restoreErrs[id]
}

func (f *fakeRemote) gate(ids ...int64) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, id := range ids {
		f.gates[id] = make(chan struct{})
	}
}

func (f *fakeRemote) release(id int64) {
	f.mu.Lock()
	g := f.gates[id]
	f.mu.Unlock()
	close(g)
}

// waitForCall blocks until the remote has recorded call.
func (f *fakeRemote) waitForCall(t *testing.T, call string) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		f.mu.Lock()
		seen := slices.Contains(f.calls, call)
		f.mu.Unlock()
		if seen {
			return
		}
		time.Sleep(time.Millisecond)
	}
	t.Fatalf("remote never saw %q", call)
}

func contact(id int64, first string) model.Contact {
	return model.Contact{
		ID:          id,
		FirstName:   first,
		LastName:    "Doe",
		Email:       fmt.Sprintf("%s@example.com", first),
		PhoneNumber: "555-0100",
		Company:     "Acme Corp",
		Notes:       "Important client",
		CreatedAt:   time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
		UpdatedAt:   time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
	}
}

// seeded returns a store whose active list mirrors the remote's.
func seeded(t *testing.T, remote *fakeRemote, opts ...Option) *Store {
	t.Helper()
	s := New(remote, opts...)
	if err := s.FetchAll(context.Background()); err != nil {
		t.Fatalf("seed fetch: %v", err)
	}
	return s
}

func ids(list []model.Contact) []int64 {
	out := make([]int64, 0, len(list))
	for _, c := range list {
		out = append(out, c.ID)
	}
	return out
}
