package slot

import (
	"context"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/kat-co/vala"
	"github.com/pkg/errors"

	"github.com/lo-maxwell/hkn-rails/core"
	"github.com/lo-maxwell/hkn-rails/core/person"
)

const doubleBookedMsg = "tutor double-booked across rooms at same time"

var (
	// errors
	ErrNotFound             = errors.New("slot not found")
	ErrAvailabilityNotFound = errors.New("availability not found")
	ErrNotAssigned          = errors.New("tutor is not assigned to this slot")
	ErrTaken                = errors.New("a slot already exists at this room, day and hour")
)

type (
	Repository interface {
		CreateSlot(ctx context.Context, slt Slot, exec ...core.DBExecutor) (Slot, error)
		QuerySlots(ctx context.Context, filter QueryFilter, exec ...core.DBExecutor) ([]Slot, error)
		GetSlot(ctx context.Context, id string, exec ...core.DBExecutor) (Slot, error)
		// FindSlot returns the slot at room, wday and hour or ErrNotFound.
		FindSlot(ctx context.Context, room Room, wday, hour int, exec ...core.DBExecutor) (Slot, error)
		UpdateSlot(ctx context.Context, slt Slot, exec ...core.DBExecutor) (Slot, error)
		// DeleteSlot also removes the slot's assignments and history.
		DeleteSlot(ctx context.Context, id string, exec ...core.DBExecutor) error

		// LockTime blocks other LockTime callers for the same wday and hour until exec's transaction ends.
		LockTime(ctx context.Context, wday, hour int, exec ...core.DBExecutor) error
		AddTutor(ctx context.Context, slotID, personID string, exec ...core.DBExecutor) error
		// RemoveTutor returns ErrNotAssigned if personID is not assigned to slotID.
		RemoveTutor(ctx context.Context, slotID, personID string, exec ...core.DBExecutor) error
		TutorIDs(ctx context.Context, slotID string, exec ...core.DBExecutor) ([]string, error)
		SlotsOfTutor(ctx context.Context, personID string, exec ...core.DBExecutor) ([]Slot, error)

		AddChange(ctx context.Context, change SlotChange, exec ...core.DBExecutor) error
		QueryChanges(ctx context.Context, slotID string, exec ...core.DBExecutor) ([]SlotChange, error)

		// UpsertAvailability replaces any availability of the same person, wday and hour.
		UpsertAvailability(ctx context.Context, avail Availability, exec ...core.DBExecutor) (Availability, error)
		QueryAvailabilities(ctx context.Context, wday, hour int, exec ...core.DBExecutor) ([]Availability, error)
		DeleteAvailability(ctx context.Context, id string, exec ...core.DBExecutor) error
	}

	// People resolves tutor IDs into people.
	People interface {
		Get(ctx context.Context, id string) (person.Person, error)
		Query(ctx context.Context, filter person.QueryFilter) ([]person.Person, error)
	}

	Service struct {
		repo     Repository
		tx       core.Transactor
		people   People
		validate *validator.Validate
		locks    core.KeyedMutex
	}
)

func NewService(repo Repository, tx core.Transactor, people People, validate *validator.Validate) *Service {
	vala.BeginValidation().Validate(
		vala.IsNotNil(repo, "repo"),
		vala.IsNotNil(tx, "tx"),
		vala.IsNotNil(people, "people"),
		vala.IsNotNil(validate, "validate"),
	).CheckAndPanic()
	return &Service{repo: repo, tx: tx, people: people, validate: validate}
}

func timeKey(wday, hour int) string {
	return fmt.Sprintf("%d:%d", wday, hour)
}

func (svc *Service) checkUniqueness(ctx context.Context, room Room, wday, hour int, exclID string) error {
	found, err := svc.repo.FindSlot(ctx, room, wday, hour)
	switch {
	case errors.Is(err, ErrNotFound):
		return nil
	case err != nil:
		return errors.Wrap(err, "checking slot uniqueness")
	case found.ID != exclID:
		return core.NewValidationError(ErrTaken, core.FieldError{Field: "hour", Error: takenText})
	}
	return nil
}

func (svc *Service) Create(ctx context.Context, ns NewSlot) (Slot, error) {
	if err := svc.validate.Struct(ns); err != nil {
		return Slot{}, err
	}
	if err := svc.checkUniqueness(ctx, *ns.Room, ns.Wday, ns.Hour, ""); err != nil {
		return Slot{}, err
	}

	now := time.Now().UTC()
	return svc.repo.CreateSlot(ctx, Slot{
		ID:        uuid.NewString(),
		Room:      *ns.Room,
		Wday:      ns.Wday,
		Hour:      ns.Hour,
		CreatedAt: now,
		UpdatedAt: now,
	})
}

func (svc *Service) Get(ctx context.Context, id string) (Slot, error) {
	return svc.repo.GetSlot(ctx, id)
}

func (svc *Service) Query(ctx context.Context, filter QueryFilter) ([]Slot, error) {
	return svc.repo.QuerySlots(ctx, filter)
}

func (svc *Service) Update(ctx context.Context, id string, us UpdateSlot) (Slot, error) {
	slt, err := svc.repo.GetSlot(ctx, id)
	if err != nil {
		return Slot{}, err
	}
	if us.Room != nil {
		slt.Room = *us.Room
	}
	if us.Wday != nil {
		slt.Wday = *us.Wday
	}
	if us.Hour != nil {
		slt.Hour = *us.Hour
	}

	// revalidate the merged slot as a whole
	if err = svc.validate.Struct(NewSlot{Room: &slt.Room, Wday: slt.Wday, Hour: slt.Hour}); err != nil {
		return Slot{}, err
	}
	if err = svc.checkUniqueness(ctx, slt.Room, slt.Wday, slt.Hour, slt.ID); err != nil {
		return Slot{}, err
	}
	slt.UpdatedAt = time.Now().UTC()
	return svc.repo.UpdateSlot(ctx, slt)
}

func (svc *Service) Delete(ctx context.Context, id string) error {
	return svc.repo.DeleteSlot(ctx, id)
}

// AttemptAssign assigns tutorID to the slot unless the tutor already covers the
// mirror slot, in which case a *core.ConflictError is returned and nothing is written.
// Assigning a tutor twice to the same slot is a no-op.
//
// Attempts for the same weekday and hour are serialized, in process and across
// processes sharing the database.
func (svc *Service) AttemptAssign(ctx context.Context, slotID, tutorID string) error {
	slt, err := svc.repo.GetSlot(ctx, slotID)
	if err != nil {
		return err
	}
	if _, err = svc.people.Get(ctx, tutorID); err != nil {
		return err
	}

	unlock := svc.locks.Lock(timeKey(slt.Wday, slt.Hour))
	defer unlock()

	return svc.tx.WithinTx(ctx, func(exec core.DBExecutor) error {
		execs := core.Execs(exec)
		if err := svc.repo.LockTime(ctx, slt.Wday, slt.Hour, execs...); err != nil {
			return errors.Wrap(err, "locking slot time")
		}

		mirror := slt.Mirror()
		other, err := svc.repo.FindSlot(ctx, mirror.Room, mirror.Wday, mirror.Hour, execs...)
		switch {
		case errors.Is(err, ErrNotFound):
			// no mirror slot, nothing to conflict with
		case err != nil:
			return errors.Wrap(err, "finding mirror slot")
		default:
			otherTutors, err := svc.repo.TutorIDs(ctx, other.ID, execs...)
			if err != nil {
				return errors.Wrap(err, "querying mirror slot tutors")
			}
			if contains(otherTutors, tutorID) {
				return core.NewConflictError(doubleBookedMsg)
			}
		}

		tutors, err := svc.repo.TutorIDs(ctx, slt.ID, execs...)
		if err != nil {
			return errors.Wrap(err, "querying slot tutors")
		}
		if contains(tutors, tutorID) {
			return nil
		}

		if err = svc.repo.AddTutor(ctx, slt.ID, tutorID, execs...); err != nil {
			return errors.Wrap(err, "assigning tutor")
		}
		return svc.recordChange(ctx, slt.ID, tutorID, ActionAssign, execs...)
	})
}

// Unassign removes tutorID from the slot.
func (svc *Service) Unassign(ctx context.Context, slotID, tutorID string) error {
	slt, err := svc.repo.GetSlot(ctx, slotID)
	if err != nil {
		return err
	}
	return svc.tx.WithinTx(ctx, func(exec core.DBExecutor) error {
		execs := core.Execs(exec)
		if err := svc.repo.RemoveTutor(ctx, slt.ID, tutorID, execs...); err != nil {
			return err
		}
		return svc.recordChange(ctx, slt.ID, tutorID, ActionUnassign, execs...)
	})
}

func (svc *Service) recordChange(ctx context.Context, slotID, personID, action string, exec ...core.DBExecutor) error {
	err := svc.repo.AddChange(ctx, SlotChange{
		ID:        uuid.NewString(),
		SlotID:    slotID,
		PersonID:  personID,
		Action:    action,
		CreatedAt: time.Now().UTC(),
	}, exec...)
	return errors.Wrap(err, "recording slot change")
}

// TutorsOf returns the tutors assigned to the slot.
func (svc *Service) TutorsOf(ctx context.Context, slotID string) ([]person.Person, error) {
	if _, err := svc.repo.GetSlot(ctx, slotID); err != nil {
		return nil, err
	}
	ids, err := svc.repo.TutorIDs(ctx, slotID)
	if err != nil {
		return nil, err
	}
	if len(ids) == 0 {
		return []person.Person{}, nil
	}
	return svc.people.Query(ctx, person.QueryFilter{IDs: ids})
}

// AssignmentsOf returns the slots tutorID is assigned to.
func (svc *Service) AssignmentsOf(ctx context.Context, tutorID string) ([]Slot, error) {
	return svc.repo.SlotsOfTutor(ctx, tutorID)
}

// History returns the slot's assignment changes, oldest first.
func (svc *Service) History(ctx context.Context, slotID string) ([]SlotChange, error) {
	if _, err := svc.repo.GetSlot(ctx, slotID); err != nil {
		return nil, err
	}
	return svc.repo.QueryChanges(ctx, slotID)
}

// AvailabilitiesFor returns every availability at the slot's weekday and hour, whatever the room.
func (svc *Service) AvailabilitiesFor(ctx context.Context, slt Slot) ([]Availability, error) {
	return svc.repo.QueryAvailabilities(ctx, slt.Wday, slt.Hour)
}

func (svc *Service) AddAvailability(ctx context.Context, na NewAvailability) (Availability, error) {
	if err := svc.validate.Struct(na); err != nil {
		return Availability{}, err
	}
	if _, err := svc.people.Get(ctx, na.PersonID); err != nil {
		return Availability{}, err
	}

	now := time.Now().UTC()
	return svc.repo.UpsertAvailability(ctx, Availability{
		ID:            uuid.NewString(),
		PersonID:      na.PersonID,
		Wday:          na.Wday,
		Hour:          na.Hour,
		Preference:    na.Preference,
		PreferredRoom: na.PreferredRoom,
		CreatedAt:     now,
		UpdatedAt:     now,
	})
}

func (svc *Service) DeleteAvailability(ctx context.Context, id string) error {
	return svc.repo.DeleteAvailability(ctx, id)
}

func contains(ids []string, id string) bool {
	for _, i := range ids {
		if i == id {
			return true
		}
	}
	return false
}
