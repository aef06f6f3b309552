package slot

import (
	"fmt"
	"time"

	"github.com/volatiletech/null/v8"
)

// Room is one of the two tutoring offices.
type Room int

const (
	Cory Room = 0
	Soda Room = 1
)

var (
	Rooms    = []Room{Cory, Soda}
	dayNames = map[int]string{1: "Monday", 2: "Tuesday", 3: "Wednesday", 4: "Thursday", 5: "Friday"}
)

// Mirror returns the other room.
func (r Room) Mirror() Room { return 1 - r }

func (r Room) Valid() bool { return r == Cory || r == Soda }

func (r Room) String() string {
	switch r {
	case Cory:
		return "Cory"
	case Soda:
		return "Soda"
	}
	return fmt.Sprintf("Room(%d)", int(r))
}

// Slot is one tutoring office hour: a room, a weekday (1 = Monday .. 5 = Friday) and an hour.
type Slot struct {
	ID        string    `json:"id" db:"id"`
	Room      Room      `json:"room" db:"room"`
	Wday      int       `json:"wday" db:"wday"`
	Hour      int       `json:"hour" db:"hour"`
	CreatedAt time.Time `json:"created_at" db:"created_at"` // UTC
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"` // UTC
}

// Mirror returns the slot at the same weekday and hour in the other room.
// The returned slot has no ID; it only identifies a time and place.
func (s Slot) Mirror() Slot {
	return Slot{Room: s.Room.Mirror(), Wday: s.Wday, Hour: s.Hour}
}

// AdjacentTo reports whether s and other are consecutive hours on the same day.
func (s Slot) AdjacentTo(other Slot) bool {
	diff := s.Hour - other.Hour
	return s.Wday == other.Wday && (diff == 1 || diff == -1)
}

func (s Slot) DayName() string { return dayNames[s.Wday] }

func (s Slot) String() string {
	return fmt.Sprintf("Slot %s %s %d", s.Room, s.DayName(), s.Hour)
}

// NewSlot contains information needed to create a new Slot.
type NewSlot struct {
	Room *Room `json:"room" validate:"required,room"`
	Wday int   `json:"wday" validate:"wday"`
	Hour int   `json:"hour" validate:"tutoringhour"`
}

// UpdateSlot defines what information may be provided to modify an existing Slot.
type UpdateSlot struct {
	Room *Room `json:"room" validate:"omitempty,room"`
	Wday *int  `json:"wday" validate:"omitempty,wday"`
	Hour *int  `json:"hour" validate:"omitempty,tutoringhour"`
}

// Slot change actions
const (
	ActionAssign   = "assign"
	ActionUnassign = "unassign"
)

// SlotChange records one assignment or unassignment of a tutor.
type SlotChange struct {
	ID        string    `json:"id" db:"id"`
	SlotID    string    `json:"slot_id" db:"slot_id"`
	PersonID  string    `json:"person_id" db:"person_id"`
	Action    string    `json:"action" db:"action"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

// Availability is a tutor's declared preference for a weekday and hour, regardless of room.
type Availability struct {
	ID            string    `json:"id" db:"id"`
	PersonID      string    `json:"person_id" db:"person_id"`
	Wday          int       `json:"wday" db:"wday"`
	Hour          int       `json:"hour" db:"hour"`
	Preference    int       `json:"preference" db:"preference"` // 1 (available) .. 3 (preferred)
	PreferredRoom null.Int  `json:"preferred_room" db:"preferred_room"`
	CreatedAt     time.Time `json:"created_at" db:"created_at"`
	UpdatedAt     time.Time `json:"updated_at" db:"updated_at"`
}

// NewAvailability contains information needed to declare an Availability.
type NewAvailability struct {
	PersonID      string   `json:"-" validate:"required"`
	Wday          int      `json:"wday" validate:"wday"`
	Hour          int      `json:"hour" validate:"tutoringhour"`
	Preference    int      `json:"preference" validate:"min=1,max=3"`
	PreferredRoom null.Int `json:"preferred_room" validate:"omitempty,room"`
}

type QueryFilter struct {
	Wday *int  `query:"wday"`
	Hour *int  `query:"hour"`
	Room *Room `query:"room"`
}
