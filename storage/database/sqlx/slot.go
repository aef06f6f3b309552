package sqlxrepos

import (
	"context"
	"strings"

	"github.com/pkg/errors"

	"github.com/lo-maxwell/hkn-rails/core"
	"github.com/lo-maxwell/hkn-rails/core/slot"
)

const (
	slotColumns         = "id, room, wday, hour, created_at, updated_at"
	availabilityColumns = "id, person_id, wday, hour, preference, preferred_room, created_at, updated_at"
)

type slotRepository struct {
	repository
}

var _ slot.Repository = (*slotRepository)(nil) // interface compliance check

func NewSlotRepository(exec core.DBExecutor) slot.Repository {
	return &slotRepository{repository{exec: exec}}
}

func (repo slotRepository) CreateSlot(ctx context.Context, slt slot.Slot, exec ...core.DBExecutor) (slot.Slot, error) {
	_, err := repo.getExec(exec).ExecContext(ctx,
		`INSERT INTO slots (`+slotColumns+`) VALUES ($1, $2, $3, $4, $5, $6)`,
		slt.ID, slt.Room, slt.Wday, slt.Hour, slt.CreatedAt, slt.UpdatedAt)
	if isUniqueViolation(err) {
		return slot.Slot{}, slot.ErrTaken
	}
	if err != nil {
		return slot.Slot{}, errors.Wrap(err, "inserting slot")
	}
	return slt, nil
}

func (repo slotRepository) QuerySlots(ctx context.Context, filter slot.QueryFilter, exec ...core.DBExecutor) ([]slot.Slot, error) {
	var (
		where []string
		args  []interface{}
	)
	if filter.Wday != nil {
		where = append(where, "wday = ?")
		args = append(args, *filter.Wday)
	}
	if filter.Hour != nil {
		where = append(where, "hour = ?")
		args = append(args, *filter.Hour)
	}
	if filter.Room != nil {
		where = append(where, "room = ?")
		args = append(args, *filter.Room)
	}

	q := `SELECT ` + slotColumns + ` FROM slots`
	if len(where) > 0 {
		q += ` WHERE ` + strings.Join(where, " AND ")
	}
	q += ` ORDER BY wday, hour, room`

	exe := repo.getExec(exec)
	slots := make([]slot.Slot, 0)
	err := exe.SelectContext(ctx, &slots, exe.Rebind(q), args...)
	return slots, errors.Wrap(err, "querying slots")
}

func (repo slotRepository) GetSlot(ctx context.Context, id string, exec ...core.DBExecutor) (slot.Slot, error) {
	if !validID(id) {
		return slot.Slot{}, slot.ErrNotFound
	}
	var slt slot.Slot
	err := repo.getExec(exec).GetContext(ctx, &slt, `SELECT `+slotColumns+` FROM slots WHERE id = $1`, id)
	if err != nil {
		return slot.Slot{}, trapNoRowsErr(err, slot.ErrNotFound, "finding slot")
	}
	return slt, nil
}

func (repo slotRepository) FindSlot(ctx context.Context, room slot.Room, wday, hour int, exec ...core.DBExecutor) (slot.Slot, error) {
	var slt slot.Slot
	err := repo.getExec(exec).GetContext(ctx, &slt,
		`SELECT `+slotColumns+` FROM slots WHERE room = $1 AND wday = $2 AND hour = $3`, room, wday, hour)
	if err != nil {
		return slot.Slot{}, trapNoRowsErr(err, slot.ErrNotFound, "finding slot by time")
	}
	return slt, nil
}

func (repo slotRepository) UpdateSlot(ctx context.Context, slt slot.Slot, exec ...core.DBExecutor) (slot.Slot, error) {
	res, err := repo.getExec(exec).ExecContext(ctx,
		`UPDATE slots SET room = $2, wday = $3, hour = $4, updated_at = $5 WHERE id = $1`,
		slt.ID, slt.Room, slt.Wday, slt.Hour, slt.UpdatedAt)
	if isUniqueViolation(err) {
		return slot.Slot{}, slot.ErrTaken
	}
	if err != nil {
		return slot.Slot{}, errors.Wrap(err, "updating slot")
	}
	return slt, checkAffected(res, slot.ErrNotFound)
}

// DeleteSlot relies on ON DELETE CASCADE for assignments and history.
func (repo slotRepository) DeleteSlot(ctx context.Context, id string, exec ...core.DBExecutor) error {
	if !validID(id) {
		return slot.ErrNotFound
	}
	res, err := repo.getExec(exec).ExecContext(ctx, `DELETE FROM slots WHERE id = $1`, id)
	if err != nil {
		return errors.Wrap(err, "deleting slot")
	}
	return checkAffected(res, slot.ErrNotFound)
}

// LockTime takes a transaction scoped advisory lock on (wday, hour).
// Outside a transaction the lock is released as soon as it is taken.
func (repo slotRepository) LockTime(ctx context.Context, wday, hour int, exec ...core.DBExecutor) error {
	_, err := repo.getExec(exec).ExecContext(ctx, `SELECT pg_advisory_xact_lock($1)`, int64(wday*100+hour))
	return errors.Wrap(err, "taking slot time lock")
}

func (repo slotRepository) AddTutor(ctx context.Context, slotID, personID string, exec ...core.DBExecutor) error {
	_, err := repo.getExec(exec).ExecContext(ctx,
		`INSERT INTO slots_tutors (slot_id, person_id) VALUES ($1, $2) ON CONFLICT DO NOTHING`, slotID, personID)
	return errors.Wrap(err, "inserting slot tutor")
}

func (repo slotRepository) RemoveTutor(ctx context.Context, slotID, personID string, exec ...core.DBExecutor) error {
	if !validID(personID) {
		return slot.ErrNotAssigned
	}
	res, err := repo.getExec(exec).ExecContext(ctx,
		`DELETE FROM slots_tutors WHERE slot_id = $1 AND person_id = $2`, slotID, personID)
	if err != nil {
		return errors.Wrap(err, "deleting slot tutor")
	}
	return checkAffected(res, slot.ErrNotAssigned)
}

func (repo slotRepository) TutorIDs(ctx context.Context, slotID string, exec ...core.DBExecutor) ([]string, error) {
	ids := make([]string, 0)
	err := repo.getExec(exec).SelectContext(ctx, &ids,
		`SELECT person_id FROM slots_tutors WHERE slot_id = $1 ORDER BY person_id`, slotID)
	return ids, errors.Wrap(err, "querying slot tutors")
}

func (repo slotRepository) SlotsOfTutor(ctx context.Context, personID string, exec ...core.DBExecutor) ([]slot.Slot, error) {
	slots := make([]slot.Slot, 0)
	if !validID(personID) {
		return slots, nil
	}
	err := repo.getExec(exec).SelectContext(ctx, &slots,
		`SELECT s.id, s.room, s.wday, s.hour, s.created_at, s.updated_at
		FROM slots s JOIN slots_tutors st ON st.slot_id = s.id
		WHERE st.person_id = $1 ORDER BY s.wday, s.hour, s.room`, personID)
	return slots, errors.Wrap(err, "querying slots of tutor")
}

func (repo slotRepository) AddChange(ctx context.Context, change slot.SlotChange, exec ...core.DBExecutor) error {
	_, err := repo.getExec(exec).ExecContext(ctx,
		`INSERT INTO slot_changes (id, slot_id, person_id, action, created_at) VALUES ($1, $2, $3, $4, $5)`,
		change.ID, change.SlotID, change.PersonID, change.Action, change.CreatedAt)
	return errors.Wrap(err, "inserting slot change")
}

func (repo slotRepository) QueryChanges(ctx context.Context, slotID string, exec ...core.DBExecutor) ([]slot.SlotChange, error) {
	changes := make([]slot.SlotChange, 0)
	err := repo.getExec(exec).SelectContext(ctx, &changes,
		`SELECT id, slot_id, person_id, action, created_at FROM slot_changes WHERE slot_id = $1 ORDER BY created_at`, slotID)
	return changes, errors.Wrap(err, "querying slot changes")
}

func (repo slotRepository) UpsertAvailability(ctx context.Context, avail slot.Availability, exec ...core.DBExecutor) (slot.Availability, error) {
	var saved slot.Availability
	err := repo.getExec(exec).GetContext(ctx, &saved,
		`INSERT INTO availabilities (`+availabilityColumns+`) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (person_id, wday, hour) DO UPDATE
		SET preference = EXCLUDED.preference, preferred_room = EXCLUDED.preferred_room, updated_at = EXCLUDED.updated_at
		RETURNING `+availabilityColumns,
		avail.ID, avail.PersonID, avail.Wday, avail.Hour, avail.Preference, avail.PreferredRoom, avail.CreatedAt, avail.UpdatedAt)
	return saved, errors.Wrap(err, "upserting availability")
}

func (repo slotRepository) QueryAvailabilities(ctx context.Context, wday, hour int, exec ...core.DBExecutor) ([]slot.Availability, error) {
	avails := make([]slot.Availability, 0)
	err := repo.getExec(exec).SelectContext(ctx, &avails,
		`SELECT `+availabilityColumns+` FROM availabilities WHERE hour = $1 AND wday = $2
		ORDER BY preference DESC, person_id`, hour, wday)
	return avails, errors.Wrap(err, "querying availabilities")
}

func (repo slotRepository) DeleteAvailability(ctx context.Context, id string, exec ...core.DBExecutor) error {
	if !validID(id) {
		return slot.ErrAvailabilityNotFound
	}
	res, err := repo.getExec(exec).ExecContext(ctx, `DELETE FROM availabilities WHERE id = $1`, id)
	if err != nil {
		return errors.Wrap(err, "deleting availability")
	}
	return checkAffected(res, slot.ErrAvailabilityNotFound)
}
