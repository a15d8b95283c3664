package contacts

import (
	"context"
	"fmt"

	"github.com/Makepad-fr/rolodex/internal/api"
)

// FetchTrash replaces the trash list with the server's.
func (s *Store) FetchTrash(ctx context.Context) error {
	s.beginTrash()
	list, err := s.remote.ListTrash(ctx)

	s.mu.Lock()
	defer s.unlock()
	s.trashLoading--
	if err != nil {
		s.lastErr = api.Message(err, "Failed to fetch trash")
		s.log.Warn("fetch trash failed", "err", err)
		return fmt.Errorf("fetch trash: %w", err)
	}
	s.trash = list
	s.changedLocked()
	return nil
}

// Restore takes a contact out of the trash. The trash list only changes
// once the server confirms; the restored contact then rejoins the active
// list.
func (s *Store) Restore(ctx context.Context, id int64) error {
	s.beginTrash()
	err := s.remote.Restore(ctx, id)

	s.mu.Lock()
	defer s.unlock()
	s.trashLoading--
	if err != nil {
		s.lastErr = api.Message(err, "Failed to restore contact")
		s.log.Warn("restore contact failed", "id", id, "err", err)
		return fmt.Errorf("restore contact %d: %w", id, err)
	}
	if c, ok := take(&s.trash, id); ok {
		c.InTrash = false
		s.upsertLocked(c)
	}
	s.changedLocked()
	return nil
}

// BulkRestore restores every id selected in the trash, one after the
// other, carrying on past failures. The trash selection is cleared.
func (s *Store) BulkRestore(ctx context.Context) BulkResult {
	s.mu.Lock()
	ids := s.trashSel.IDs()
	if len(ids) == 0 {
		s.unlock()
		return BulkResult{}
	}
	s.trashLoading++
	s.unlock()

	var res BulkResult
	for _, id := range ids {
		if err := s.Restore(ctx, id); err != nil {
			res.Failed = append(res.Failed, id)
			continue
		}
		res.IDs = append(res.IDs, id)
	}
	res.Count = len(res.IDs)

	s.mu.Lock()
	s.trashLoading--
	s.trashSel.Clear()
	s.unlock()
	return res
}

func (s *Store) beginTrash() {
	s.mu.Lock()
	s.trashLoading++
	s.lastErr = ""
	s.unlock()
}
