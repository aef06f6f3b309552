package event

import (
	"context"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/kat-co/vala"
	"github.com/pkg/errors"
	"go.uber.org/multierr"

	"github.com/lo-maxwell/hkn-rails/core"
	"github.com/lo-maxwell/hkn-rails/core/person"
)

const upcomingWindow = 7 * 24 * time.Hour

var (
	// errors
	ErrNotFound         = errors.New("event not found")
	ErrTypeNotFound     = errors.New("event type not found")
	ErrTypeExists       = errors.New("an event type with this name already exists")
	ErrBlockNotFound    = errors.New("block not found")
	ErrRSVPNotFound     = errors.New("rsvp not found")
	ErrRSVPExists       = errors.New("already rsvp'd to this event")
	ErrRSVPsClosed      = errors.New("this event does not accept rsvps")
	ErrRSVPForbidden    = errors.New("not allowed to rsvp to this event")
	ErrBlockFull        = errors.New("block is full")
	ErrNotScheduled     = errors.New("event has no start time")
	ErrInvalidScope     = errors.New("invalid event scope")
	ErrInvalidSortField = errors.New("invalid sort field")
)

const foreignBlockText = "block does not belong to this event"

type (
	Repository interface {
		CreateEvent(ctx context.Context, evt Event, exec ...core.DBExecutor) (Event, error)
		// QueryEvents orders by the given fields (from ValidSortFields), start time ascending by default.
		QueryEvents(ctx context.Context, filter QueryFilter, ordering []core.DBOrdering, exec ...core.DBExecutor) ([]Event, error)
		GetEvent(ctx context.Context, id string, exec ...core.DBExecutor) (Event, error)
		UpdateEvent(ctx context.Context, evt Event, exec ...core.DBExecutor) (Event, error)
		// DeleteEvent also removes the event's blocks and RSVPs.
		DeleteEvent(ctx context.Context, id string, exec ...core.DBExecutor) error
		MarkNotified(ctx context.Context, id string, at time.Time, exec ...core.DBExecutor) error

		CreateEventType(ctx context.Context, et EventType, exec ...core.DBExecutor) (EventType, error)
		QueryEventTypes(ctx context.Context, exec ...core.DBExecutor) ([]EventType, error)
		GetEventType(ctx context.Context, id string, exec ...core.DBExecutor) (EventType, error)
		GetEventTypeByName(ctx context.Context, name string, exec ...core.DBExecutor) (EventType, error)

		CreateBlock(ctx context.Context, blk Block, exec ...core.DBExecutor) (Block, error)
		// QueryBlocks returns the event's blocks ordered by start time.
		QueryBlocks(ctx context.Context, eventID string, exec ...core.DBExecutor) ([]Block, error)
		DeleteBlock(ctx context.Context, eventID, blockID string, exec ...core.DBExecutor) error
		CountBlockRSVPs(ctx context.Context, blockID string, exec ...core.DBExecutor) (int, error)

		CreateRSVP(ctx context.Context, rsvp RSVP, exec ...core.DBExecutor) (RSVP, error)
		QueryRSVPs(ctx context.Context, eventID string, exec ...core.DBExecutor) ([]RSVP, error)
		GetRSVP(ctx context.Context, eventID, personID string, exec ...core.DBExecutor) (RSVP, error)
		DeleteRSVP(ctx context.Context, id string, exec ...core.DBExecutor) error
	}

	// People resolves RSVP'd person IDs into people.
	People interface {
		Query(ctx context.Context, filter person.QueryFilter) ([]person.Person, error)
	}

	// Messenger delivers a short text to a person.
	Messenger interface {
		Send(ctx context.Context, p person.Person, text string) error
	}

	Service struct {
		repo      Repository
		tx        core.Transactor
		people    People
		messenger Messenger
		logger    core.Logger
		conf      *core.Config
		validate  *validator.Validate
		rsvpLocks core.KeyedMutex
	}
)

func NewService(
	repo Repository,
	tx core.Transactor,
	people People,
	messenger Messenger,
	logger core.Logger,
	conf *core.Config,
	validate *validator.Validate,
) *Service {
	vala.BeginValidation().Validate(
		vala.IsNotNil(repo, "repo"),
		vala.IsNotNil(tx, "tx"),
		vala.IsNotNil(people, "people"),
		vala.IsNotNil(messenger, "messenger"),
		vala.IsNotNil(logger, "logger"),
		vala.IsNotNil(conf, "conf"),
		vala.IsNotNil(validate, "validate"),
	).CheckAndPanic()
	return &Service{
		repo:      repo,
		tx:        tx,
		people:    people,
		messenger: messenger,
		logger:    logger,
		conf:      conf,
		validate:  validate,
	}
}

func (svc *Service) validateEvent(ctx context.Context, ne *NewEvent) error {
	ne.Clean()
	if err := svc.validate.Struct(ne); err != nil {
		return err
	}
	if _, err := svc.repo.GetEventType(ctx, ne.EventTypeID); err != nil {
		if errors.Is(err, ErrTypeNotFound) {
			return core.NewFieldError("event_type_id", ErrTypeNotFound.Error())
		}
		return err
	}
	return nil
}

func (svc *Service) Create(ctx context.Context, ne NewEvent) (Event, error) {
	if err := svc.validateEvent(ctx, &ne); err != nil {
		return Event{}, err
	}

	now := time.Now().UTC()
	evt, err := svc.repo.CreateEvent(ctx, Event{
		ID:                    uuid.NewString(),
		Name:                  ne.Name,
		Slug:                  core.Slugify(ne.Name),
		Location:              ne.Location,
		Description:           ne.Description,
		StartTime:             ne.StartTime,
		EndTime:               ne.EndTime,
		EventTypeID:           ne.EventTypeID,
		NeedTransportation:    ne.NeedTransportation,
		ViewPermissionGroupID: ne.ViewPermissionGroupID,
		RSVPPermissionGroupID: ne.RSVPPermissionGroupID,
		CreatedAt:             now,
		UpdatedAt:             now,
	})
	if err != nil {
		return Event{}, err
	}
	evt.Blocks = []Block{}
	return evt, nil
}

func (svc *Service) Update(ctx context.Context, id string, ue UpdateEvent) (Event, error) {
	evt, err := svc.repo.GetEvent(ctx, id)
	if err != nil {
		return Event{}, err
	}

	ne := ue.apply(evt)
	if err = svc.validateEvent(ctx, &ne); err != nil {
		return Event{}, err
	}
	if ne.StartTime.Valid != evt.StartTime.Valid || !ne.StartTime.Time.Equal(evt.StartTime.Time) {
		// rescheduled events get a new reminder
		evt.RSVPNotifiedAt.Valid = false
	}
	evt.Name = ne.Name
	evt.Slug = core.Slugify(ne.Name)
	evt.Location = ne.Location
	evt.Description = ne.Description
	evt.StartTime = ne.StartTime
	evt.EndTime = ne.EndTime
	evt.EventTypeID = ne.EventTypeID
	evt.NeedTransportation = ne.NeedTransportation
	evt.ViewPermissionGroupID = ne.ViewPermissionGroupID
	evt.RSVPPermissionGroupID = ne.RSVPPermissionGroupID
	evt.UpdatedAt = time.Now().UTC()

	if evt, err = svc.repo.UpdateEvent(ctx, evt); err != nil {
		return Event{}, err
	}
	return svc.loadBlocks(ctx, evt)
}

func (svc *Service) Delete(ctx context.Context, id string) error {
	return svc.repo.DeleteEvent(ctx, id)
}

func (svc *Service) loadBlocks(ctx context.Context, evt Event) (Event, error) {
	blocks, err := svc.repo.QueryBlocks(ctx, evt.ID)
	if err != nil {
		return Event{}, errors.Wrap(err, "loading blocks")
	}
	evt.Blocks = blocks
	return evt, nil
}

// Get returns the event with its blocks, whatever its visibility.
func (svc *Service) Get(ctx context.Context, id string) (Event, error) {
	evt, err := svc.repo.GetEvent(ctx, id)
	if err != nil {
		return Event{}, err
	}
	return svc.loadBlocks(ctx, evt)
}

// GetVisible is Get for viewer; events hidden from viewer are ErrNotFound.
func (svc *Service) GetVisible(ctx context.Context, id string, viewer *person.Person) (Event, error) {
	evt, err := svc.Get(ctx, id)
	if err != nil {
		return Event{}, err
	}
	if !evt.CanView(viewer) {
		return Event{}, ErrNotFound
	}
	return evt, nil
}

// Upcoming returns up to limit events visible to viewer ending within the next 7 days, soonest first.
func (svc *Service) Upcoming(ctx context.Context, limit int, viewer *person.Person) ([]Event, error) {
	now := core.NowFunc()
	return svc.repo.QueryEvents(ctx, QueryFilter{
		Visibility: VisibleTo(viewer),
		EndFrom:    now,
		EndTo:      now.Add(upcomingWindow),
		Limit:      limit,
	}, startTimeAsc())
}

// Current returns the events visible to viewer that started since the start of the semester.
func (svc *Service) Current(ctx context.Context, viewer *person.Person) ([]Event, error) {
	return svc.List(ctx, ScopeCurrent, viewer, nil)
}

func (svc *Service) Past(ctx context.Context, viewer *person.Person) ([]Event, error) {
	return svc.List(ctx, ScopePast, viewer, nil)
}

func (svc *Service) All(ctx context.Context, viewer *person.Person) ([]Event, error) {
	return svc.List(ctx, ScopeAll, viewer, nil)
}

// List returns the events of scope visible to viewer.
func (svc *Service) List(ctx context.Context, scope Scope, viewer *person.Person, ordering []core.DBOrdering) ([]Event, error) {
	if !scope.Valid() {
		return nil, core.NewFieldError("scope", ErrInvalidScope.Error())
	}
	for _, ord := range ordering {
		if !validSortField(ord.Field) {
			return nil, core.NewFieldError("ordering", ErrInvalidSortField.Error()+": "+ord.Field)
		}
	}
	if len(ordering) == 0 {
		ordering = startTimeAsc()
	}

	now := core.NowFunc()
	filter := QueryFilter{Visibility: VisibleTo(viewer)}
	switch scope {
	case ScopeUpcoming:
		filter.StartFrom = now
	case ScopePast:
		filter.StartTo = now
	case ScopeCurrent:
		filter.StartFrom = svc.conf.SemesterStart(now)
		filter.StartTo = now
	}
	return svc.repo.QueryEvents(ctx, filter, ordering)
}

func startTimeAsc() []core.DBOrdering {
	return []core.DBOrdering{{Field: SortStartTime, Ascending: true}}
}

func validSortField(field string) bool {
	for _, f := range ValidSortFields {
		if f == field {
			return true
		}
	}
	return false
}

func (svc *Service) CreateType(ctx context.Context, net NewEventType) (EventType, error) {
	net.Name = core.CleanString(net.Name)
	if err := svc.validate.Struct(net); err != nil {
		return EventType{}, err
	}
	if _, err := svc.repo.GetEventTypeByName(ctx, net.Name); err == nil {
		return EventType{}, core.NewValidationError(ErrTypeExists, core.FieldError{Field: "name", Error: ErrTypeExists.Error()})
	} else if !errors.Is(err, ErrTypeNotFound) {
		return EventType{}, err
	}
	return svc.repo.CreateEventType(ctx, EventType{ID: uuid.NewString(), Name: net.Name})
}

func (svc *Service) Types(ctx context.Context) ([]EventType, error) {
	return svc.repo.QueryEventTypes(ctx)
}

func (svc *Service) AddBlock(ctx context.Context, eventID string, nb NewBlock) (Block, error) {
	if _, err := svc.repo.GetEvent(ctx, eventID); err != nil {
		return Block{}, err
	}
	if err := svc.validate.Struct(nb); err != nil {
		return Block{}, err
	}

	now := time.Now().UTC()
	return svc.repo.CreateBlock(ctx, Block{
		ID:        uuid.NewString(),
		EventID:   eventID,
		RSVPCap:   nb.RSVPCap,
		StartTime: nb.StartTime,
		EndTime:   nb.EndTime,
		CreatedAt: now,
		UpdatedAt: now,
	})
}

func (svc *Service) DeleteBlock(ctx context.Context, eventID, blockID string) error {
	return svc.repo.DeleteBlock(ctx, eventID, blockID)
}

// CreateRSVP signs viewer up to blocks of the event. The event must both allow RSVPs
// and let viewer RSVP; full blocks and blocks of other events are rejected.
func (svc *Service) CreateRSVP(ctx context.Context, eventID string, viewer *person.Person, nr NewRSVP) (RSVP, error) {
	evt, err := svc.GetVisible(ctx, eventID, viewer)
	if err != nil {
		return RSVP{}, err
	}
	if !evt.AllowsRsvps() {
		return RSVP{}, ErrRSVPsClosed
	}
	if !evt.CanRsvp(viewer) {
		return RSVP{}, ErrRSVPForbidden
	}

	nr.Comment = core.CleanString(nr.Comment)
	nr.BlockIDs = dedupe(nr.BlockIDs)
	if err = svc.validate.Struct(nr); err != nil {
		return RSVP{}, err
	}
	blocks := make(map[string]Block, len(evt.Blocks))
	for _, blk := range evt.Blocks {
		blocks[blk.ID] = blk
	}
	for _, id := range nr.BlockIDs {
		if _, ok := blocks[id]; !ok {
			return RSVP{}, core.NewFieldError("block_ids", foreignBlockText)
		}
	}

	unlock := svc.rsvpLocks.Lock(evt.ID)
	defer unlock()

	var rsvp RSVP
	err = svc.tx.WithinTx(ctx, func(exec core.DBExecutor) error {
		execs := core.Execs(exec)
		if _, err := svc.repo.GetRSVP(ctx, evt.ID, viewer.ID, execs...); err == nil {
			return core.NewValidationError(ErrRSVPExists, core.FieldError{Field: "event", Error: ErrRSVPExists.Error()})
		} else if !errors.Is(err, ErrRSVPNotFound) {
			return err
		}

		for _, id := range nr.BlockIDs {
			blk := blocks[id]
			if !blk.RSVPCap.Valid {
				continue
			}
			cnt, err := svc.repo.CountBlockRSVPs(ctx, blk.ID, execs...)
			if err != nil {
				return errors.Wrap(err, "counting block rsvps")
			}
			if cnt >= blk.RSVPCap.Int {
				return core.NewValidationError(ErrBlockFull, core.FieldError{Field: "block_ids", Error: ErrBlockFull.Error()})
			}
		}

		now := time.Now().UTC()
		created, err := svc.repo.CreateRSVP(ctx, RSVP{
			ID:             uuid.NewString(),
			EventID:        evt.ID,
			PersonID:       viewer.ID,
			Comment:        nr.Comment,
			Transportation: nr.Transportation,
			BlockIDs:       nr.BlockIDs,
			CreatedAt:      now,
			UpdatedAt:      now,
		}, execs...)
		rsvp = created
		return err
	})
	if err != nil {
		return RSVP{}, err
	}
	return rsvp, nil
}

// CancelRSVP removes the RSVP of personID to the event.
func (svc *Service) CancelRSVP(ctx context.Context, eventID, personID string) error {
	rsvp, err := svc.repo.GetRSVP(ctx, eventID, personID)
	if err != nil {
		return err
	}
	return svc.repo.DeleteRSVP(ctx, rsvp.ID)
}

func (svc *Service) RSVPs(ctx context.Context, eventID string) ([]RSVP, error) {
	if _, err := svc.repo.GetEvent(ctx, eventID); err != nil {
		return nil, err
	}
	return svc.repo.QueryRSVPs(ctx, eventID)
}

// NotifyRsvps texts every RSVP'd person that the event is about to start.
// Each send is independent: failures are logged, the others still go out,
// and all failures are returned together.
func (svc *Service) NotifyRsvps(ctx context.Context, evt Event) error {
	if !evt.StartTime.Valid {
		return ErrNotScheduled
	}
	rsvps, err := svc.repo.QueryRSVPs(ctx, evt.ID)
	if err != nil {
		return errors.Wrap(err, "querying rsvps")
	}
	if len(rsvps) == 0 {
		return nil
	}

	ids := make([]string, 0, len(rsvps))
	for _, r := range rsvps {
		ids = append(ids, r.PersonID)
	}
	people, err := svc.people.Query(ctx, person.QueryFilter{IDs: ids})
	if err != nil {
		return errors.Wrap(err, "querying rsvp'd people")
	}

	local := evt.In(svc.conf.Location())
	msg := local.NotifyMessage(svc.conf.Notifications.OpsEmail)

	var errs error
	for _, p := range people {
		if err := svc.messenger.Send(ctx, p, msg); err != nil {
			err = errors.Wrapf(err, "notifying %s of %s", p.Username, evt.Name)
			svc.logger.Error(err.Error(), err, map[string]interface{}{"event_id": evt.ID, "person_id": p.ID})
			errs = multierr.Append(errs, err)
		}
	}
	return errs
}

// NotifyDue notifies the RSVPs of every event starting between now and now plus the reminder lead
// that was not notified yet, then marks them notified. It returns the number of events processed.
func (svc *Service) NotifyDue(ctx context.Context, now time.Time) (int, error) {
	events, err := svc.repo.QueryEvents(ctx, QueryFilter{
		StartFrom:   now,
		StartTo:     now.Add(svc.conf.Notifications.ReminderLead),
		NotNotified: true,
	}, startTimeAsc())
	if err != nil {
		return 0, errors.Wrap(err, "querying due events")
	}

	var errs error
	for _, evt := range events {
		// failed sends are not retried, so marking happens regardless
		errs = multierr.Append(errs, svc.NotifyRsvps(ctx, evt))
		if err := svc.repo.MarkNotified(ctx, evt.ID, now.UTC()); err != nil {
			errs = multierr.Append(errs, errors.Wrap(err, "marking event notified"))
		}
	}
	return len(events), errs
}

func dedupe(ids []string) []string {
	seen := make(map[string]bool, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if !seen[id] {
			seen[id] = true
			out = append(out, id)
		}
	}
	return out
}
