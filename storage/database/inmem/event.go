package inmemdb

import (
	"context"
	"sort"
	"strings"
	"time"

	"github.com/volatiletech/null/v8"

	"github.com/lo-maxwell/hkn-rails/core"
	"github.com/lo-maxwell/hkn-rails/core/event"
)

type eventRepository struct {
	db *DB
}

var _ event.Repository = (*eventRepository)(nil) // interface compliance check

func NewEventRepository(db *DB) event.Repository {
	return &eventRepository{db: db}
}

// read returns a copy of evt with its event type name.
func (repo *eventRepository) read(evt *event.Event) event.Event {
	e := *evt
	e.Blocks = nil
	if et, ok := repo.db.eventTypes[e.EventTypeID]; ok {
		e.EventType = et.Name
	}
	return e
}

func (repo *eventRepository) CreateEvent(_ context.Context, evt event.Event, _ ...core.DBExecutor) (event.Event, error) {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	if _, ok := repo.db.eventTypes[evt.EventTypeID]; !ok {
		return event.Event{}, event.ErrTypeNotFound
	}
	evt.Blocks = nil
	repo.db.events[evt.ID] = &evt
	return repo.read(&evt), nil
}

func inRange(t null.Time, from, to time.Time) bool {
	if from.IsZero() && to.IsZero() {
		return true
	}
	if !t.Valid {
		return false
	}
	return !(!from.IsZero() && t.Time.Before(from)) && !(!to.IsZero() && t.Time.After(to))
}

func (repo *eventRepository) QueryEvents(_ context.Context, filter event.QueryFilter, ordering []core.DBOrdering, _ ...core.DBExecutor) ([]event.Event, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	events := make([]event.Event, 0)
	for _, evt := range repo.db.events {
		if !filter.Visibility.Allows(evt.ViewPermissionGroupID) {
			continue
		}
		if !inRange(evt.StartTime, filter.StartFrom, filter.StartTo) || !inRange(evt.EndTime, filter.EndFrom, filter.EndTo) {
			continue
		}
		if filter.NotNotified && evt.RSVPNotifiedAt.Valid {
			continue
		}
		events = append(events, repo.read(evt))
	}

	sort.SliceStable(events, func(i, j int) bool {
		for _, ord := range ordering {
			if c := compareEvents(events[i], events[j], ord.Field); c != 0 {
				if ord.Ascending {
					return c < 0
				}
				return c > 0
			}
		}
		return events[i].ID < events[j].ID
	})
	if filter.Limit > 0 && len(events) > filter.Limit {
		events = events[:filter.Limit]
	}
	return events, nil
}

func compareEvents(a, b event.Event, field string) int {
	switch field {
	case event.SortStartTime:
		switch {
		case a.StartTime.Valid && !b.StartTime.Valid:
			return -1
		case !a.StartTime.Valid && b.StartTime.Valid:
			return 1
		case a.StartTime.Time.Before(b.StartTime.Time):
			return -1
		case a.StartTime.Time.After(b.StartTime.Time):
			return 1
		}
		return 0
	case event.SortName:
		return strings.Compare(a.Name, b.Name)
	case event.SortLocation:
		return strings.Compare(a.Location, b.Location)
	case event.SortEventType:
		return strings.Compare(a.EventType, b.EventType)
	}
	return 0
}

func (repo *eventRepository) GetEvent(_ context.Context, id string, _ ...core.DBExecutor) (event.Event, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	if evt, ok := repo.db.events[id]; ok {
		return repo.read(evt), nil
	}
	return event.Event{}, event.ErrNotFound
}

func (repo *eventRepository) UpdateEvent(_ context.Context, evt event.Event, _ ...core.DBExecutor) (event.Event, error) {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	if _, ok := repo.db.events[evt.ID]; !ok {
		return event.Event{}, event.ErrNotFound
	}
	if _, ok := repo.db.eventTypes[evt.EventTypeID]; !ok {
		return event.Event{}, event.ErrTypeNotFound
	}
	evt.Blocks = nil
	repo.db.events[evt.ID] = &evt
	return repo.read(&evt), nil
}

func (repo *eventRepository) DeleteEvent(_ context.Context, id string, _ ...core.DBExecutor) error {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	if _, ok := repo.db.events[id]; !ok {
		return event.ErrNotFound
	}
	delete(repo.db.events, id)
	for bid, b := range repo.db.blocks {
		if b.EventID == id {
			delete(repo.db.blocks, bid)
		}
	}
	for rid, r := range repo.db.rsvps {
		if r.EventID == id {
			delete(repo.db.rsvps, rid)
		}
	}
	return nil
}

func (repo *eventRepository) MarkNotified(_ context.Context, id string, at time.Time, _ ...core.DBExecutor) error {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	evt, ok := repo.db.events[id]
	if !ok {
		return event.ErrNotFound
	}
	evt.RSVPNotifiedAt = null.TimeFrom(at)
	return nil
}

func (repo *eventRepository) CreateEventType(_ context.Context, et event.EventType, _ ...core.DBExecutor) (event.EventType, error) {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	for _, t := range repo.db.eventTypes {
		if t.Name == et.Name {
			return event.EventType{}, event.ErrTypeExists
		}
	}
	repo.db.eventTypes[et.ID] = &et
	return et, nil
}

func (repo *eventRepository) QueryEventTypes(_ context.Context, _ ...core.DBExecutor) ([]event.EventType, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	types := make([]event.EventType, 0, len(repo.db.eventTypes))
	for _, t := range repo.db.eventTypes {
		types = append(types, *t)
	}
	sort.Slice(types, func(i, j int) bool { return types[i].Name < types[j].Name })
	return types, nil
}

func (repo *eventRepository) GetEventType(_ context.Context, id string, _ ...core.DBExecutor) (event.EventType, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	if t, ok := repo.db.eventTypes[id]; ok {
		return *t, nil
	}
	return event.EventType{}, event.ErrTypeNotFound
}

func (repo *eventRepository) GetEventTypeByName(_ context.Context, name string, _ ...core.DBExecutor) (event.EventType, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	for _, t := range repo.db.eventTypes {
		if t.Name == name {
			return *t, nil
		}
	}
	return event.EventType{}, event.ErrTypeNotFound
}

func (repo *eventRepository) CreateBlock(_ context.Context, blk event.Block, _ ...core.DBExecutor) (event.Block, error) {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	if _, ok := repo.db.events[blk.EventID]; !ok {
		return event.Block{}, event.ErrNotFound
	}
	repo.db.blocks[blk.ID] = &blk
	return blk, nil
}

func (repo *eventRepository) QueryBlocks(_ context.Context, eventID string, _ ...core.DBExecutor) ([]event.Block, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	blocks := make([]event.Block, 0)
	for _, b := range repo.db.blocks {
		if b.EventID == eventID {
			blocks = append(blocks, *b)
		}
	}
	sort.Slice(blocks, func(i, j int) bool {
		a, b := blocks[i], blocks[j]
		if !a.StartTime.Time.Equal(b.StartTime.Time) {
			return a.StartTime.Time.Before(b.StartTime.Time)
		}
		return a.CreatedAt.Before(b.CreatedAt)
	})
	return blocks, nil
}

func (repo *eventRepository) DeleteBlock(_ context.Context, eventID, blockID string, _ ...core.DBExecutor) error {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	b, ok := repo.db.blocks[blockID]
	if !ok || b.EventID != eventID {
		return event.ErrBlockNotFound
	}
	delete(repo.db.blocks, blockID)
	for _, r := range repo.db.rsvps {
		ids := r.BlockIDs[:0]
		for _, id := range r.BlockIDs {
			if id != blockID {
				ids = append(ids, id)
			}
		}
		r.BlockIDs = ids
	}
	return nil
}

func (repo *eventRepository) CountBlockRSVPs(_ context.Context, blockID string, _ ...core.DBExecutor) (int, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	var cnt int
	for _, r := range repo.db.rsvps {
		for _, id := range r.BlockIDs {
			if id == blockID {
				cnt++
				break
			}
		}
	}
	return cnt, nil
}

func (repo *eventRepository) CreateRSVP(_ context.Context, rsvp event.RSVP, _ ...core.DBExecutor) (event.RSVP, error) {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	for _, r := range repo.db.rsvps {
		if r.EventID == rsvp.EventID && r.PersonID == rsvp.PersonID {
			return event.RSVP{}, event.ErrRSVPExists
		}
	}
	rsvp.BlockIDs = append([]string(nil), rsvp.BlockIDs...)
	repo.db.rsvps[rsvp.ID] = &rsvp
	return rsvp, nil
}

func (repo *eventRepository) QueryRSVPs(_ context.Context, eventID string, _ ...core.DBExecutor) ([]event.RSVP, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	rsvps := make([]event.RSVP, 0)
	for _, r := range repo.db.rsvps {
		if r.EventID == eventID {
			rsvp := *r
			rsvp.BlockIDs = append([]string(nil), r.BlockIDs...)
			rsvps = append(rsvps, rsvp)
		}
	}
	sort.Slice(rsvps, func(i, j int) bool { return rsvps[i].CreatedAt.Before(rsvps[j].CreatedAt) })
	return rsvps, nil
}

func (repo *eventRepository) GetRSVP(_ context.Context, eventID, personID string, _ ...core.DBExecutor) (event.RSVP, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	for _, r := range repo.db.rsvps {
		if r.EventID == eventID && r.PersonID == personID {
			rsvp := *r
			rsvp.BlockIDs = append([]string(nil), r.BlockIDs...)
			return rsvp, nil
		}
	}
	return event.RSVP{}, event.ErrRSVPNotFound
}

func (repo *eventRepository) DeleteRSVP(_ context.Context, id string, _ ...core.DBExecutor) error {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	if _, ok := repo.db.rsvps[id]; !ok {
		return event.ErrRSVPNotFound
	}
	delete(repo.db.rsvps, id)
	return nil
}
