package group

import (
	"time"

	"github.com/lo-maxwell/hkn-rails/core"
)

// Group is a set of people; events use groups to gate who may view or RSVP.
type Group struct {
	ID          string    `json:"id" db:"id"`
	Name        string    `json:"name" db:"name"`
	Description string    `json:"description" db:"description"`
	CreatedAt   time.Time `json:"created_at" db:"created_at"` // UTC
	UpdatedAt   time.Time `json:"updated_at" db:"updated_at"` // UTC
}

// NewGroup contains information needed to create a new Group.
type NewGroup struct {
	Name        string `json:"name" validate:"required,notblank"`
	Description string `json:"description"`
}

func (ng *NewGroup) Clean() {
	ng.Name = core.CleanString(ng.Name)
	ng.Description = core.CleanString(ng.Description)
}

// UpdateGroup defines what information may be provided to modify an existing Group.
type UpdateGroup struct {
	Name        *string `json:"name" validate:"omitempty,notblank"`
	Description *string `json:"description"`
}

func (ug *UpdateGroup) Clean() {
	if ug.Name != nil {
		name := core.CleanString(*ug.Name)
		ug.Name = &name
	}
	if ug.Description != nil {
		desc := core.CleanString(*ug.Description)
		ug.Description = &desc
	}
}

// IDs returns the IDs of groups, in order.
func IDs(groups []Group) []string {
	ids := make([]string, 0, len(groups))
	for _, g := range groups {
		ids = append(ids, g.ID)
	}
	return ids
}
