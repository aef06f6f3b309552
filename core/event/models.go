package event

import (
	"fmt"
	"time"

	"github.com/volatiletech/null/v8"

	"github.com/lo-maxwell/hkn-rails/core"
	"github.com/lo-maxwell/hkn-rails/core/person"
)

// Sortable fields
const (
	SortStartTime = "start_time"
	SortName      = "name"
	SortLocation  = "location"
	SortEventType = "event_type"
)

var ValidSortFields = []string{SortStartTime, SortName, SortLocation, SortEventType}

type EventType struct {
	ID   string `json:"id" db:"id"`
	Name string `json:"name" db:"name"`
}

type Event struct {
	ID                    string      `json:"id" db:"id"`
	Name                  string      `json:"name" db:"name"`
	Slug                  string      `json:"slug" db:"slug"`
	Location              string      `json:"location" db:"location"`
	Description           string      `json:"description" db:"description"`
	StartTime             null.Time   `json:"start_time" db:"start_time"`
	EndTime               null.Time   `json:"end_time" db:"end_time"`
	EventTypeID           string      `json:"event_type_id" db:"event_type_id"`
	EventType             string      `json:"event_type" db:"event_type"` // name, read only
	NeedTransportation    bool        `json:"need_transportation" db:"need_transportation"`
	ViewPermissionGroupID null.String `json:"view_permission_group_id" db:"view_permission_group_id"`
	RSVPPermissionGroupID null.String `json:"rsvp_permission_group_id" db:"rsvp_permission_group_id"`
	RSVPNotifiedAt        null.Time   `json:"-" db:"rsvp_notified_at"`
	CreatedAt             time.Time   `json:"created_at" db:"created_at"` // UTC
	UpdatedAt             time.Time   `json:"updated_at" db:"updated_at"` // UTC
	Blocks                []Block     `json:"blocks,omitempty" db:"-"`
}

// CanView reports whether viewer (nil for anonymous) may see the event.
// Events without a view permission group are public.
func (e *Event) CanView(viewer *person.Person) bool {
	if !e.ViewPermissionGroupID.Valid {
		return true
	}
	return viewer != nil && viewer.InGroup(e.ViewPermissionGroupID.String)
}

// CanRsvp reports whether viewer belongs to the RSVP permission group.
// It does not check AllowsRsvps; callers check both.
func (e *Event) CanRsvp(viewer *person.Person) bool {
	if viewer == nil || !e.RSVPPermissionGroupID.Valid {
		return false
	}
	return viewer.InGroup(e.RSVPPermissionGroupID.String)
}

// AllowsRsvps reports whether the event has any block to RSVP to. Blocks must have been loaded.
func (e *Event) AllowsRsvps() bool {
	return len(e.Blocks) > 0
}

// ValidTimeRange fails when both times are set and the end is not after the start.
func (e *Event) ValidTimeRange() error {
	return ValidTimeRange(e.StartTime, e.EndTime)
}

// ShortStartTime formats the start time like "2p", "205p" or "12a".
func (e *Event) ShortStartTime() string {
	if !e.StartTime.Valid {
		return ""
	}
	return shortTime(e.StartTime.Time)
}

func shortTime(t time.Time) string {
	ampm := "a"
	if t.Hour() >= 12 {
		ampm = "p"
	}
	hour := t.Hour() % 12
	if hour == 0 {
		hour = 12
	}
	var min string
	if t.Minute() > 0 {
		min = fmt.Sprintf("%02d", t.Minute())
	}
	return fmt.Sprintf("%d%s%s", hour, min, ampm)
}

// StartDate formats the start day like "2024 03/01".
func (e *Event) StartDate() string {
	if !e.StartTime.Valid {
		return ""
	}
	return e.StartTime.Time.Format("2006 01/02")
}

// NiceTimeRange formats the event span, omitting the end date when the event ends the day it starts.
func (e *Event) NiceTimeRange() string {
	if !e.StartTime.Valid || !e.EndTime.Valid {
		return ""
	}
	const dayTime, timeOnly = "Mon 01/02 03:04PM", "03:04PM"
	start, end := e.StartTime.Time, e.EndTime.Time.In(e.StartTime.Time.Location())
	if sameDay(start, end) {
		return start.Format(dayTime) + " - " + end.Format(timeOnly)
	}
	return start.Format(dayTime) + " - " + end.Format(dayTime)
}

func sameDay(a, b time.Time) bool {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	return ay == by && am == bm && ad == bd
}

// In returns a copy of e with its times in loc.
func (e Event) In(loc *time.Location) Event {
	if e.StartTime.Valid {
		e.StartTime.Time = e.StartTime.Time.In(loc)
	}
	if e.EndTime.Valid {
		e.EndTime.Time = e.EndTime.Time.In(loc)
	}
	return e
}

// NotifyMessage is the text sent to every RSVP'd person before the event starts.
func (e *Event) NotifyMessage(opsEmail string) string {
	return fmt.Sprintf("%s starts at %s. Meet at %s! To unsubscribe, email %s",
		e.Name, e.ShortStartTime(), e.Location, opsEmail)
}

// Block is a time span of an event people RSVP to.
type Block struct {
	ID        string    `json:"id" db:"id"`
	EventID   string    `json:"event_id" db:"event_id"`
	RSVPCap   null.Int  `json:"rsvp_cap" db:"rsvp_cap"`
	StartTime null.Time `json:"start_time" db:"start_time"`
	EndTime   null.Time `json:"end_time" db:"end_time"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

// RSVP is a person's signup to some blocks of an event.
type RSVP struct {
	ID             string    `json:"id" db:"id"`
	EventID        string    `json:"event_id" db:"event_id"`
	PersonID       string    `json:"person_id" db:"person_id"`
	Comment        string    `json:"comment" db:"comment"`
	Transportation int       `json:"transportation" db:"transportation"` // seats offered (> 0) or needed (< 0)
	BlockIDs       []string  `json:"block_ids" db:"-"`
	CreatedAt      time.Time `json:"created_at" db:"created_at"`
	UpdatedAt      time.Time `json:"updated_at" db:"updated_at"`
}

// NewEvent contains information needed to create a new Event.
type NewEvent struct {
	Name                  string      `json:"name" validate:"required,notblank"`
	Location              string      `json:"location" validate:"required,notblank"`
	Description           string      `json:"description" validate:"required,notblank"`
	StartTime             null.Time   `json:"start_time"`
	EndTime               null.Time   `json:"end_time"`
	EventTypeID           string      `json:"event_type_id" validate:"required,uuid"`
	NeedTransportation    bool        `json:"need_transportation"`
	ViewPermissionGroupID null.String `json:"view_permission_group_id" validate:"omitempty,uuid"`
	RSVPPermissionGroupID null.String `json:"rsvp_permission_group_id" validate:"omitempty,uuid"`
}

func (ne *NewEvent) Clean() {
	ne.Name = core.CleanString(ne.Name)
	ne.Location = core.CleanString(ne.Location)
	ne.Description = core.CleanString(ne.Description)
}

// UpdateEvent defines what information may be provided to modify an existing Event.
// Unset (or null) fields keep their current value.
type UpdateEvent struct {
	Name                  *string     `json:"name"`
	Location              *string     `json:"location"`
	Description           *string     `json:"description"`
	StartTime             null.Time   `json:"start_time"`
	EndTime               null.Time   `json:"end_time"`
	EventTypeID           *string     `json:"event_type_id"`
	NeedTransportation    *bool       `json:"need_transportation"`
	ViewPermissionGroupID null.String `json:"view_permission_group_id"`
	RSVPPermissionGroupID null.String `json:"rsvp_permission_group_id"`
}

// apply merges ue into the creation payload of e.
func (ue UpdateEvent) apply(e Event) NewEvent {
	ne := NewEvent{
		Name:                  e.Name,
		Location:              e.Location,
		Description:           e.Description,
		StartTime:             e.StartTime,
		EndTime:               e.EndTime,
		EventTypeID:           e.EventTypeID,
		NeedTransportation:    e.NeedTransportation,
		ViewPermissionGroupID: e.ViewPermissionGroupID,
		RSVPPermissionGroupID: e.RSVPPermissionGroupID,
	}
	if ue.Name != nil {
		ne.Name = *ue.Name
	}
	if ue.Location != nil {
		ne.Location = *ue.Location
	}
	if ue.Description != nil {
		ne.Description = *ue.Description
	}
	if ue.StartTime.Valid {
		ne.StartTime = ue.StartTime
	}
	if ue.EndTime.Valid {
		ne.EndTime = ue.EndTime
	}
	if ue.EventTypeID != nil {
		ne.EventTypeID = *ue.EventTypeID
	}
	if ue.NeedTransportation != nil {
		ne.NeedTransportation = *ue.NeedTransportation
	}
	if ue.ViewPermissionGroupID.Valid {
		ne.ViewPermissionGroupID = ue.ViewPermissionGroupID
	}
	if ue.RSVPPermissionGroupID.Valid {
		ne.RSVPPermissionGroupID = ue.RSVPPermissionGroupID
	}
	return ne
}

type NewEventType struct {
	Name string `json:"name" validate:"required,notblank"`
}

type NewBlock struct {
	RSVPCap   null.Int  `json:"rsvp_cap" validate:"omitempty,min=1"`
	StartTime null.Time `json:"start_time"`
	EndTime   null.Time `json:"end_time"`
}

type NewRSVP struct {
	Comment        string   `json:"comment" validate:"max=1000"`
	Transportation int      `json:"transportation" validate:"min=-10,max=10"`
	BlockIDs       []string `json:"block_ids" validate:"required,min=1,dive,uuid"`
}

// Scope selects a listing of events.
type Scope string

const (
	ScopeAll      Scope = "all"
	ScopeUpcoming Scope = "upcoming" // not started yet
	ScopePast     Scope = "past"     // already started
	ScopeCurrent  Scope = "current"  // started this semester
)

func (s Scope) Valid() bool {
	switch s {
	case ScopeAll, ScopeUpcoming, ScopePast, ScopeCurrent:
		return true
	}
	return false
}

// Visibility restricts a query to events without a view group or whose view group is in GroupIDs.
type Visibility struct {
	GroupIDs []string
}

// VisibleTo returns the visibility of viewer (nil for anonymous), whose groups must have been loaded.
func VisibleTo(viewer *person.Person) *Visibility {
	vis := &Visibility{}
	if viewer != nil {
		for _, g := range viewer.Groups {
			vis.GroupIDs = append(vis.GroupIDs, g.ID)
		}
	}
	return vis
}

// Allows reports whether an event with the given view group passes the restriction.
func (v *Visibility) Allows(viewGroupID null.String) bool {
	if v == nil || !viewGroupID.Valid {
		return true
	}
	for _, id := range v.GroupIDs {
		if id == viewGroupID.String {
			return true
		}
	}
	return false
}

// QueryFilter applies AND on its set fields; zero times are ignored and time bounds are inclusive.
// Events without the bounded time never match a bound on it.
type QueryFilter struct {
	Visibility  *Visibility // nil: no restriction
	StartFrom   time.Time
	StartTo     time.Time
	EndFrom     time.Time
	EndTo       time.Time
	NotNotified bool
	Limit       int
}
