package inmemdb

import (
	"context"
	"sort"

	"github.com/lo-maxwell/hkn-rails/core"
	"github.com/lo-maxwell/hkn-rails/core/slot"
)

type slotRepository struct {
	db *DB
}

var _ slot.Repository = (*slotRepository)(nil) // interface compliance check

func NewSlotRepository(db *DB) slot.Repository {
	return &slotRepository{db: db}
}

func (repo *slotRepository) find(room slot.Room, wday, hour int) (*slot.Slot, bool) {
	for _, s := range repo.db.slots {
		if s.Room == room && s.Wday == wday && s.Hour == hour {
			return s, true
		}
	}
	return nil, false
}

func (repo *slotRepository) CreateSlot(_ context.Context, slt slot.Slot, _ ...core.DBExecutor) (slot.Slot, error) {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	if _, ok := repo.find(slt.Room, slt.Wday, slt.Hour); ok {
		return slot.Slot{}, slot.ErrTaken
	}
	repo.db.slots[slt.ID] = &slt
	return slt, nil
}

func (repo *slotRepository) QuerySlots(_ context.Context, filter slot.QueryFilter, _ ...core.DBExecutor) ([]slot.Slot, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	slots := make([]slot.Slot, 0, len(repo.db.slots))
	for _, s := range repo.db.slots {
		if filter.Wday != nil && s.Wday != *filter.Wday {
			continue
		}
		if filter.Hour != nil && s.Hour != *filter.Hour {
			continue
		}
		if filter.Room != nil && s.Room != *filter.Room {
			continue
		}
		slots = append(slots, *s)
	}
	sortSlots(slots)
	return slots, nil
}

func sortSlots(slots []slot.Slot) {
	sort.Slice(slots, func(i, j int) bool {
		a, b := slots[i], slots[j]
		if a.Wday != b.Wday {
			return a.Wday < b.Wday
		}
		if a.Hour != b.Hour {
			return a.Hour < b.Hour
		}
		return a.Room < b.Room
	})
}

func (repo *slotRepository) GetSlot(_ context.Context, id string, _ ...core.DBExecutor) (slot.Slot, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	if s, ok := repo.db.slots[id]; ok {
		return *s, nil
	}
	return slot.Slot{}, slot.ErrNotFound
}

func (repo *slotRepository) FindSlot(_ context.Context, room slot.Room, wday, hour int, _ ...core.DBExecutor) (slot.Slot, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	if s, ok := repo.find(room, wday, hour); ok {
		return *s, nil
	}
	return slot.Slot{}, slot.ErrNotFound
}

func (repo *slotRepository) UpdateSlot(_ context.Context, slt slot.Slot, _ ...core.DBExecutor) (slot.Slot, error) {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	if _, ok := repo.db.slots[slt.ID]; !ok {
		return slot.Slot{}, slot.ErrNotFound
	}
	if other, ok := repo.find(slt.Room, slt.Wday, slt.Hour); ok && other.ID != slt.ID {
		return slot.Slot{}, slot.ErrTaken
	}
	repo.db.slots[slt.ID] = &slt
	return slt, nil
}

func (repo *slotRepository) DeleteSlot(_ context.Context, id string, _ ...core.DBExecutor) error {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	if _, ok := repo.db.slots[id]; !ok {
		return slot.ErrNotFound
	}
	delete(repo.db.slots, id)
	delete(repo.db.slotTutors, id)
	changes := repo.db.slotChanges[:0]
	for _, c := range repo.db.slotChanges {
		if c.SlotID != id {
			changes = append(changes, c)
		}
	}
	repo.db.slotChanges = changes
	return nil
}

// LockTime is a no-op: the slot service already serializes attempts in process.
func (repo *slotRepository) LockTime(_ context.Context, _, _ int, _ ...core.DBExecutor) error {
	return nil
}

func (repo *slotRepository) AddTutor(_ context.Context, slotID, personID string, _ ...core.DBExecutor) error {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	if _, ok := repo.db.slots[slotID]; !ok {
		return slot.ErrNotFound
	}
	tutors, ok := repo.db.slotTutors[slotID]
	if !ok {
		tutors = make(set)
		repo.db.slotTutors[slotID] = tutors
	}
	tutors[personID] = true
	return nil
}

func (repo *slotRepository) RemoveTutor(_ context.Context, slotID, personID string, _ ...core.DBExecutor) error {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	if !repo.db.slotTutors[slotID][personID] {
		return slot.ErrNotAssigned
	}
	delete(repo.db.slotTutors[slotID], personID)
	return nil
}

func (repo *slotRepository) TutorIDs(_ context.Context, slotID string, _ ...core.DBExecutor) ([]string, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	return repo.db.slotTutors[slotID].sorted(), nil
}

func (repo *slotRepository) SlotsOfTutor(_ context.Context, personID string, _ ...core.DBExecutor) ([]slot.Slot, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	slots := make([]slot.Slot, 0)
	for sid, tutors := range repo.db.slotTutors {
		if s, ok := repo.db.slots[sid]; ok && tutors[personID] {
			slots = append(slots, *s)
		}
	}
	sortSlots(slots)
	return slots, nil
}

func (repo *slotRepository) AddChange(_ context.Context, change slot.SlotChange, _ ...core.DBExecutor) error {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	repo.db.slotChanges = append(repo.db.slotChanges, change)
	return nil
}

func (repo *slotRepository) QueryChanges(_ context.Context, slotID string, _ ...core.DBExecutor) ([]slot.SlotChange, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	changes := make([]slot.SlotChange, 0)
	for _, c := range repo.db.slotChanges {
		if c.SlotID == slotID {
			changes = append(changes, c)
		}
	}
	return changes, nil
}

func (repo *slotRepository) UpsertAvailability(_ context.Context, avail slot.Availability, _ ...core.DBExecutor) (slot.Availability, error) {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	for _, a := range repo.db.availabilities {
		if a.PersonID == avail.PersonID && a.Wday == avail.Wday && a.Hour == avail.Hour {
			avail.ID = a.ID
			avail.CreatedAt = a.CreatedAt
			break
		}
	}
	repo.db.availabilities[avail.ID] = &avail
	return avail, nil
}

func (repo *slotRepository) QueryAvailabilities(_ context.Context, wday, hour int, _ ...core.DBExecutor) ([]slot.Availability, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	avails := make([]slot.Availability, 0)
	for _, a := range repo.db.availabilities {
		if a.Wday == wday && a.Hour == hour {
			avails = append(avails, *a)
		}
	}
	sort.Slice(avails, func(i, j int) bool {
		if avails[i].Preference != avails[j].Preference {
			return avails[i].Preference > avails[j].Preference
		}
		return avails[i].PersonID < avails[j].PersonID
	})
	return avails, nil
}

func (repo *slotRepository) DeleteAvailability(_ context.Context, id string, _ ...core.DBExecutor) error {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	if _, ok := repo.db.availabilities[id]; !ok {
		return slot.ErrAvailabilityNotFound
	}
	delete(repo.db.availabilities, id)
	return nil
}
