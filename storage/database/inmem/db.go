// Package inmemdb implements every repository in memory, for tests and local runs.
package inmemdb

import (
	"context"
	"sort"
	"sync"

	"github.com/lo-maxwell/hkn-rails/core"
	"github.com/lo-maxwell/hkn-rails/core/event"
	"github.com/lo-maxwell/hkn-rails/core/group"
	"github.com/lo-maxwell/hkn-rails/core/person"
	"github.com/lo-maxwell/hkn-rails/core/slot"
)

type (
	set map[string]bool

	// DB holds all tables behind a single lock.
	DB struct {
		mu sync.RWMutex

		people      map[string]*person.Person
		groups      map[string]*group.Group
		memberships map[string]set // group ID: person IDs

		slots          map[string]*slot.Slot
		slotTutors     map[string]set // slot ID: person IDs
		slotChanges    []slot.SlotChange
		availabilities map[string]*slot.Availability

		eventTypes map[string]*event.EventType
		events     map[string]*event.Event
		blocks     map[string]*event.Block
		rsvps      map[string]*event.RSVP
	}
)

func Open() *DB {
	return &DB{
		people:         make(map[string]*person.Person),
		groups:         make(map[string]*group.Group),
		memberships:    make(map[string]set),
		slots:          make(map[string]*slot.Slot),
		slotTutors:     make(map[string]set),
		availabilities: make(map[string]*slot.Availability),
		eventTypes:     make(map[string]*event.EventType),
		events:         make(map[string]*event.Event),
		blocks:         make(map[string]*event.Block),
		rsvps:          make(map[string]*event.RSVP),
	}
}

// transactor runs units of work without isolation or rollback.
type transactor struct{}

var _ core.Transactor = transactor{}

func NewTransactor() core.Transactor { return transactor{} }

func (transactor) WithinTx(_ context.Context, fn func(exec core.DBExecutor) error) error {
	return fn(nil)
}

func (s set) sorted() []string {
	keys := make([]string, 0, len(s))
	for k := range s {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
