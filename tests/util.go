// Package testutil wires the domain services over the in-memory repositories for tests.
package testutil

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/volatiletech/null/v8"

	"github.com/lo-maxwell/hkn-rails/core"
	"github.com/lo-maxwell/hkn-rails/core/event"
	"github.com/lo-maxwell/hkn-rails/core/group"
	"github.com/lo-maxwell/hkn-rails/core/person"
	"github.com/lo-maxwell/hkn-rails/core/slot"
	"github.com/lo-maxwell/hkn-rails/core/tour"
	appfs "github.com/lo-maxwell/hkn-rails/fs"
	emailsvc "github.com/lo-maxwell/hkn-rails/services/email"
	inmemdb "github.com/lo-maxwell/hkn-rails/storage/database/inmem"
)

// Services holds every domain service over a fresh in-memory database.
type Services struct {
	Conf       *core.Config
	DB         *inmemdb.DB
	Validate   *validator.Validate
	Translator ut.Translator
	Logger     *Logger
	Messenger  *Messenger
	Mail       core.EmailService

	Groups *group.Service
	People *person.Service
	Slots  *slot.Service
	Events *event.Service
	Tours  *tour.Service
}

// NewValidator returns a validator with every custom tag registered.
func NewValidator(conf *core.Config) (*validator.Validate, ut.Translator) {
	validate := validator.New()
	translator := core.NewTranslator()
	core.InitValidators(validate, translator)
	slot.InitValidators(validate, translator, conf.Tutoring)
	event.InitValidators(validate, translator)
	return validate, translator
}

func NewServices(t *testing.T) *Services {
	t.Helper()
	conf := core.NewTestConfig()
	if err := core.ParseEmailTemplates(appfs.FS, appfs.EmailTemplatesDir, true); err != nil {
		t.Fatalf("ParseEmailTemplates() failed: %v", err)
	}
	validate, translator := NewValidator(conf)
	db := inmemdb.Open()
	tx := inmemdb.NewTransactor()

	s := &Services{
		Conf:       conf,
		DB:         db,
		Validate:   validate,
		Translator: translator,
		Logger:     new(Logger),
		Messenger:  NewMessenger(),
		Mail:       emailsvc.NewConsoleServiceMock(conf),
	}
	s.Groups = group.NewService(inmemdb.NewGroupRepository(db), validate)
	s.People = person.NewService(inmemdb.NewPersonRepository(db), s.Groups, validate)
	s.Slots = slot.NewService(inmemdb.NewSlotRepository(db), tx, s.People, validate)
	s.Events = event.NewService(inmemdb.NewEventRepository(db), tx, s.People, s.Messenger, s.Logger, conf, validate)
	s.Tours = tour.NewService(s.Mail, conf, validate)
	return s
}

// FreezeTime makes core.NowFunc return now until the test ends.
func FreezeTime(t *testing.T, now time.Time) {
	t.Helper()
	orig := core.NowFunc
	core.NowFunc = func() time.Time { return now }
	t.Cleanup(func() { core.NowFunc = orig })
}

func CreateGroup(t *testing.T, s *Services, name string) group.Group {
	t.Helper()
	grp, err := s.Groups.Create(context.Background(), group.NewGroup{Name: name})
	if err != nil {
		t.Fatalf("createGroup() failed: %v", err)
	}
	return grp
}

// CreatePerson creates a person named after uname, member of groups.
func CreatePerson(t *testing.T, s *Services, uname string, groups ...group.Group) person.Person {
	t.Helper()
	p, err := s.People.Create(context.Background(), person.NewPerson{
		Name:     "Test " + uname,
		Username: uname,
		Email:    uname + "@berkeley.edu",
		GroupIDs: group.IDs(groups),
	})
	if err != nil {
		t.Fatalf("createPerson() failed: %v", err)
	}
	return p
}

func CreateSlot(t *testing.T, s *Services, room slot.Room, wday, hour int) slot.Slot {
	t.Helper()
	slt, err := s.Slots.Create(context.Background(), slot.NewSlot{Room: &room, Wday: wday, Hour: hour})
	if err != nil {
		t.Fatalf("createSlot() failed: %v", err)
	}
	return slt
}

func CreateEventType(t *testing.T, s *Services, name string) event.EventType {
	t.Helper()
	et, err := s.Events.CreateType(context.Background(), event.NewEventType{Name: name})
	if err != nil {
		t.Fatalf("createEventType() failed: %v", err)
	}
	return et
}

// CreateEvent creates an event of type et spanning [start, start+dur).
func CreateEvent(t *testing.T, s *Services, name string, et event.EventType, start time.Time, dur time.Duration, opts ...func(*event.NewEvent)) event.Event {
	t.Helper()
	ne := event.NewEvent{
		Name:        name,
		Location:    "Soda 290",
		Description: "About " + name,
		StartTime:   null.TimeFrom(start),
		EndTime:     null.TimeFrom(start.Add(dur)),
		EventTypeID: et.ID,
	}
	for _, opt := range opts {
		opt(&ne)
	}
	evt, err := s.Events.Create(context.Background(), ne)
	if err != nil {
		t.Fatalf("createEvent() failed: %v", err)
	}
	return evt
}

// ViewableBy restricts an event's visibility to grp.
func ViewableBy(grp group.Group) func(*event.NewEvent) {
	return func(ne *event.NewEvent) { ne.ViewPermissionGroupID = null.StringFrom(grp.ID) }
}

// RsvpableBy lets grp RSVP to an event.
func RsvpableBy(grp group.Group) func(*event.NewEvent) {
	return func(ne *event.NewEvent) { ne.RSVPPermissionGroupID = null.StringFrom(grp.ID) }
}

func AddBlock(t *testing.T, s *Services, evt event.Event, capacity int) event.Block {
	t.Helper()
	nb := event.NewBlock{StartTime: evt.StartTime, EndTime: evt.EndTime}
	if capacity > 0 {
		nb.RSVPCap = null.IntFrom(capacity)
	}
	blk, err := s.Events.AddBlock(context.Background(), evt.ID, nb)
	if err != nil {
		t.Fatalf("addBlock() failed: %v", err)
	}
	return blk
}

// LogEntry is a message recorded by Logger.
type LogEntry struct {
	Level string
	Msg   string
	Args  []interface{}
}

// Logger records log entries instead of printing them.
type Logger struct {
	mu      sync.Mutex
	entries []LogEntry
}

var _ core.Logger = (*Logger)(nil)

func (l *Logger) log(level, msg string, args []interface{}) {
	l.mu.Lock()
	l.entries = append(l.entries, LogEntry{Level: level, Msg: msg, Args: args})
	l.mu.Unlock()
}

func (l *Logger) Debug(msg string, args ...interface{}) { l.log("debug", msg, args) }
func (l *Logger) Info(msg string, args ...interface{})  { l.log("info", msg, args) }
func (l *Logger) Warn(msg string, args ...interface{})  { l.log("warning", msg, args) }
func (l *Logger) Error(msg string, args ...interface{}) { l.log("error", msg, args) }
func (l *Logger) Fatal(msg string, args ...interface{}) { l.log("critical", msg, args) }

// Entries returns the recorded entries of level, or all of them if level is "".
func (l *Logger) Entries(level string) []LogEntry {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]LogEntry, 0, len(l.entries))
	for _, e := range l.entries {
		if level == "" || e.Level == level {
			out = append(out, e)
		}
	}
	return out
}

// SentText is a text delivered by Messenger.
type SentText struct {
	PersonID string
	Text     string
}

// Messenger records sent texts and fails for the people marked with FailFor.
type Messenger struct {
	mu   sync.Mutex
	fail map[string]bool
	sent []SentText
}

var _ event.Messenger = (*Messenger)(nil)

func NewMessenger() *Messenger {
	return &Messenger{fail: make(map[string]bool)}
}

func (m *Messenger) FailFor(personIDs ...string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, id := range personIDs {
		m.fail[id] = true
	}
}

func (m *Messenger) Send(_ context.Context, p person.Person, text string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.fail[p.ID] {
		return fmt.Errorf("gateway rejected message to %s", p.Username)
	}
	m.sent = append(m.sent, SentText{PersonID: p.ID, Text: text})
	return nil
}

func (m *Messenger) Sent() []SentText {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]SentText(nil), m.sent...)
}
