package contacts

import (
	"context"
	"fmt"

	"github.com/Makepad-fr/rolodex/internal/api"
)

// BulkResult reports which ids of a batch the server confirmed.
type BulkResult struct {
	Count  int     // len(IDs)
	IDs    []int64 // confirmed ids, in submission order
	Failed []int64 // rejected ids, in submission order
}

// Delete removes a contact from the active list at once and keeps it in the
// backup buffer. With deferRemote the server is not called and the delete
// stays undoable until BulkDelete confirms it. Otherwise the soft delete is
// sent and a rejection puts the contact back.
func (s *Store) Delete(ctx context.Context, id int64, deferRemote bool) error {
	s.mu.Lock()
	c, ok := take(&s.active, id)
	if !ok {
		s.unlock()
		return ErrNotInList
	}
	s.backup = append(s.backup, c)
	s.changedLocked()
	if deferRemote {
		s.unlock()
		return nil
	}
	s.loading++
	s.lastErr = ""
	s.unlock()

	err := s.remote.SoftDelete(ctx, id)

	s.mu.Lock()
	defer s.unlock()
	s.loading--
	if err != nil {
		if b, ok := take(&s.backup, id); ok {
			s.restoreLocked(b)
		}
		s.lastErr = api.Message(err, "Failed to delete contact")
		s.changedLocked()
		s.log.Warn("delete contact failed, restored", "id", id, "err", err)
		return fmt.Errorf("delete contact %d: %w", id, err)
	}
	s.confirmDeletedLocked(id)
	s.changedLocked()
	return nil
}

// UndoDelete moves a pending contact back to the active list. It reports
// whether the backup copy was put back; calling it for an unknown id is
// harmless. A pending id that already reappeared in the active list only
// leaves the backup buffer.
func (s *Store) UndoDelete(id int64) bool {
	s.mu.Lock()
	defer s.unlock()
	c, ok := take(&s.backup, id)
	if !ok {
		return false
	}
	restored := s.restoreLocked(c)
	s.changedLocked()
	return restored
}

// BulkDeleteOptimistic moves every matching active contact to the backup
// buffer and clears the selection. No remote call is made. It returns the
// number of contacts moved.
func (s *Store) BulkDeleteOptimistic(ids []int64) int {
	want := idSet(ids)
	s.mu.Lock()
	defer s.unlock()

	kept := s.active[:0:0]
	moved := 0
	for _, c := range s.active {
		if _, hit := want[c.ID]; hit {
			s.backup = append(s.backup, c)
			moved++
			continue
		}
		kept = append(kept, c)
	}
	s.active = kept
	s.selected.Clear()
	s.changedLocked()
	return moved
}

// BulkDelete sends a soft delete for every id concurrently. Confirmed ids
// leave the backup buffer for good; rejected ids are put back into the
// active list. Call BulkDeleteOptimistic first to hide the contacts while
// the requests run.
func (s *Store) BulkDelete(ctx context.Context, ids []int64) BulkResult {
	ids = uniqueIDs(ids)
	if len(ids) == 0 {
		return BulkResult{}
	}
	s.mu.Lock()
	s.loading++
	s.unlock()

	out := fanOut(ctx, ids, s.bulkLimit, s.remote.SoftDelete)

	s.mu.Lock()
	defer s.unlock()
	s.loading--
	for _, id := range out.succeeded {
		s.confirmDeletedLocked(id)
	}
	for _, id := range out.failed {
		if c, ok := take(&s.backup, id); ok {
			s.restoreLocked(c)
		}
		s.log.Warn("bulk delete rejected, restored", "id", id, "err", out.errs[id])
	}
	s.changedLocked()
	return BulkResult{Count: len(out.succeeded), IDs: out.succeeded, Failed: out.failed}
}

// UndoBulkDelete moves every matching pending contact back to the active
// list. It returns how many backup copies were put back, which leaves out
// ids that reappeared in the active list while pending.
func (s *Store) UndoBulkDelete(ids []int64) int {
	want := idSet(ids)
	s.mu.Lock()
	defer s.unlock()

	kept := s.backup[:0:0]
	restored := 0
	for _, c := range s.backup {
		if _, hit := want[c.ID]; hit {
			if s.restoreLocked(c) {
				restored++
			}
			continue
		}
		kept = append(kept, c)
	}
	s.backup = kept
	s.changedLocked()
	return restored
}

// confirmDeletedLocked forgets a contact the server has trashed. An undo
// that raced the confirmation would have put it back in the active list,
// so it is dropped from there too.
func (s *Store) confirmDeletedLocked(id int64) {
	take(&s.backup, id)
	take(&s.active, id)
}

func idSet(ids []int64) map[int64]struct{} {
	set := make(map[int64]struct{}, len(ids))
	for _, id := range ids {
		set[id] = struct{}{}
	}
	return set
}

func uniqueIDs(ids []int64) []int64 {
	seen := make(map[int64]struct{}, len(ids))
	out := make([]int64, 0, len(ids))
	for _, id := range ids {
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
