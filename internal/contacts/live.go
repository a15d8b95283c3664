package contacts

import (
	"context"

	"github.com/Makepad-fr/rolodex/internal/metrics"
	"github.com/Makepad-fr/rolodex/internal/model"
)

// Apply folds one push event into the active list without coordinating
// with local operations in flight.
//
// ADD is an upsert by id, so an echo of a local create does not duplicate
// it; if the id is waiting in the backup buffer the backup copy is
// refreshed instead. UPDATE replaces a present record and DELETE removes
// one; both ignore unknown ids. DELETE never goes through the backup
// buffer, so a server-side delete cannot be undone locally.
func (s *Store) Apply(ev model.Event) {
	s.mu.Lock()
	defer s.unlock()

	c := ev.Data
	switch ev.Type {
	case model.EventAdd:
		if i := indexOf(s.backup, c.ID); i >= 0 {
			s.backup[i] = c
		} else {
			s.upsertLocked(c)
		}
	case model.EventUpdate:
		i := indexOf(s.active, c.ID)
		if i < 0 {
			return
		}
		s.active[i] = c
	case model.EventDelete:
		if _, ok := take(&s.active, c.ID); !ok {
			return
		}
	default:
		s.log.Warn("ignoring live event", "type", ev.Type, "id", c.ID)
		return
	}
	metrics.LiveEvent(string(ev.Type))
	s.log.Debug("live event applied", "type", ev.Type, "id", c.ID)
	s.changedLocked()
}

// Listen applies events until the channel closes or ctx is done. after, when
// not nil, runs once per event once it has been applied.
func (s *Store) Listen(ctx context.Context, events <-chan model.Event, after func(model.Event)) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case ev, ok := <-events:
			if !ok {
				return nil
			}
			s.Apply(ev)
			if after != nil {
				after(ev)
			}
		}
	}
}
