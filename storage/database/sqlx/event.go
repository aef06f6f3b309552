package sqlxrepos

import (
	"context"
	"strings"
	"time"

	"github.com/pkg/errors"

	"github.com/lo-maxwell/hkn-rails/core"
	"github.com/lo-maxwell/hkn-rails/core/event"
)

const (
	eventColumns = `e.id, e.name, e.slug, e.location, e.description, e.start_time, e.end_time, e.event_type_id,
	t.name AS event_type, e.need_transportation, e.view_permission_group_id, e.rsvp_permission_group_id,
	e.rsvp_notified_at, e.created_at, e.updated_at`
	eventFrom    = ` FROM events e JOIN event_types t ON t.id = e.event_type_id`
	blockColumns = "id, event_id, rsvp_cap, start_time, end_time, created_at, updated_at"
	rsvpColumns  = "id, event_id, person_id, comment, transportation, created_at, updated_at"
)

// sortColumns maps event.ValidSortFields to SQL expressions.
var sortColumns = map[string]string{
	event.SortStartTime: "e.start_time",
	event.SortName:      "e.name",
	event.SortLocation:  "e.location",
	event.SortEventType: "t.name",
}

type eventRepository struct {
	repository
}

var _ event.Repository = (*eventRepository)(nil) // interface compliance check

func NewEventRepository(exec core.DBExecutor) event.Repository {
	return &eventRepository{repository{exec: exec}}
}

func (repo eventRepository) CreateEvent(ctx context.Context, evt event.Event, exec ...core.DBExecutor) (event.Event, error) {
	exe := repo.getExec(exec)
	_, err := exe.ExecContext(ctx,
		`INSERT INTO events (id, name, slug, location, description, start_time, end_time, event_type_id,
		need_transportation, view_permission_group_id, rsvp_permission_group_id, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)`,
		evt.ID, evt.Name, evt.Slug, evt.Location, evt.Description, evt.StartTime, evt.EndTime, evt.EventTypeID,
		evt.NeedTransportation, evt.ViewPermissionGroupID, evt.RSVPPermissionGroupID, evt.CreatedAt, evt.UpdatedAt)
	if err != nil {
		return event.Event{}, errors.Wrap(err, "inserting event")
	}
	return repo.GetEvent(ctx, evt.ID, exe)
}

func (repo eventRepository) QueryEvents(ctx context.Context, filter event.QueryFilter, ordering []core.DBOrdering, exec ...core.DBExecutor) ([]event.Event, error) {
	var (
		where []string
		args  []interface{}
	)
	if vis := filter.Visibility; vis != nil {
		if len(vis.GroupIDs) > 0 {
			where = append(where, "(e.view_permission_group_id IS NULL OR e.view_permission_group_id IN (?))")
			args = append(args, vis.GroupIDs)
		} else {
			where = append(where, "e.view_permission_group_id IS NULL")
		}
	}
	addBound := func(cond string, t time.Time) {
		if !t.IsZero() {
			where = append(where, cond)
			args = append(args, t)
		}
	}
	addBound("e.start_time >= ?", filter.StartFrom)
	addBound("e.start_time <= ?", filter.StartTo)
	addBound("e.end_time >= ?", filter.EndFrom)
	addBound("e.end_time <= ?", filter.EndTo)
	if filter.NotNotified {
		where = append(where, "e.rsvp_notified_at IS NULL")
	}

	q := `SELECT ` + eventColumns + eventFrom
	if len(where) > 0 {
		q += ` WHERE ` + strings.Join(where, " AND ")
	}
	orderList := make([]string, 0, len(ordering)+1)
	for _, ord := range ordering {
		col, ok := sortColumns[ord.Field]
		if !ok {
			return nil, errors.Errorf("invalid event ordering %q", ord.Field)
		}
		orderList = append(orderList, core.DBOrdering{Field: col, Ascending: ord.Ascending}.String())
	}
	orderList = append(orderList, "e.id")
	q += ` ORDER BY ` + strings.Join(orderList, ", ")
	if filter.Limit > 0 {
		q += ` LIMIT ?`
		args = append(args, filter.Limit)
	}

	exe := repo.getExec(exec)
	q, args, err := in(exe, q, args...)
	if err != nil {
		return nil, errors.Wrap(err, "building events query")
	}
	events := make([]event.Event, 0)
	err = exe.SelectContext(ctx, &events, q, args...)
	return events, errors.Wrap(err, "querying events")
}

func (repo eventRepository) GetEvent(ctx context.Context, id string, exec ...core.DBExecutor) (event.Event, error) {
	if !validID(id) {
		return event.Event{}, event.ErrNotFound
	}
	var evt event.Event
	err := repo.getExec(exec).GetContext(ctx, &evt, `SELECT `+eventColumns+eventFrom+` WHERE e.id = $1`, id)
	if err != nil {
		return event.Event{}, trapNoRowsErr(err, event.ErrNotFound, "finding event")
	}
	return evt, nil
}

func (repo eventRepository) UpdateEvent(ctx context.Context, evt event.Event, exec ...core.DBExecutor) (event.Event, error) {
	exe := repo.getExec(exec)
	res, err := exe.ExecContext(ctx,
		`UPDATE events SET name = $2, slug = $3, location = $4, description = $5, start_time = $6, end_time = $7,
		event_type_id = $8, need_transportation = $9, view_permission_group_id = $10, rsvp_permission_group_id = $11,
		rsvp_notified_at = $12, updated_at = $13 WHERE id = $1`,
		evt.ID, evt.Name, evt.Slug, evt.Location, evt.Description, evt.StartTime, evt.EndTime, evt.EventTypeID,
		evt.NeedTransportation, evt.ViewPermissionGroupID, evt.RSVPPermissionGroupID, evt.RSVPNotifiedAt, evt.UpdatedAt)
	if err != nil {
		return event.Event{}, errors.Wrap(err, "updating event")
	}
	if err = checkAffected(res, event.ErrNotFound); err != nil {
		return event.Event{}, err
	}
	return repo.GetEvent(ctx, evt.ID, exe)
}

// DeleteEvent relies on ON DELETE CASCADE for blocks and RSVPs.
func (repo eventRepository) DeleteEvent(ctx context.Context, id string, exec ...core.DBExecutor) error {
	if !validID(id) {
		return event.ErrNotFound
	}
	res, err := repo.getExec(exec).ExecContext(ctx, `DELETE FROM events WHERE id = $1`, id)
	if err != nil {
		return errors.Wrap(err, "deleting event")
	}
	return checkAffected(res, event.ErrNotFound)
}

func (repo eventRepository) MarkNotified(ctx context.Context, id string, at time.Time, exec ...core.DBExecutor) error {
	res, err := repo.getExec(exec).ExecContext(ctx, `UPDATE events SET rsvp_notified_at = $2 WHERE id = $1`, id, at)
	if err != nil {
		return errors.Wrap(err, "marking event notified")
	}
	return checkAffected(res, event.ErrNotFound)
}

func (repo eventRepository) CreateEventType(ctx context.Context, et event.EventType, exec ...core.DBExecutor) (event.EventType, error) {
	_, err := repo.getExec(exec).ExecContext(ctx, `INSERT INTO event_types (id, name) VALUES ($1, $2)`, et.ID, et.Name)
	if isUniqueViolation(err) {
		return event.EventType{}, event.ErrTypeExists
	}
	if err != nil {
		return event.EventType{}, errors.Wrap(err, "inserting event type")
	}
	return et, nil
}

func (repo eventRepository) QueryEventTypes(ctx context.Context, exec ...core.DBExecutor) ([]event.EventType, error) {
	types := make([]event.EventType, 0)
	err := repo.getExec(exec).SelectContext(ctx, &types, `SELECT id, name FROM event_types ORDER BY name`)
	return types, errors.Wrap(err, "querying event types")
}

func (repo eventRepository) GetEventType(ctx context.Context, id string, exec ...core.DBExecutor) (event.EventType, error) {
	if !validID(id) {
		return event.EventType{}, event.ErrTypeNotFound
	}
	var et event.EventType
	err := repo.getExec(exec).GetContext(ctx, &et, `SELECT id, name FROM event_types WHERE id = $1`, id)
	if err != nil {
		return event.EventType{}, trapNoRowsErr(err, event.ErrTypeNotFound, "finding event type")
	}
	return et, nil
}

func (repo eventRepository) GetEventTypeByName(ctx context.Context, name string, exec ...core.DBExecutor) (event.EventType, error) {
	var et event.EventType
	err := repo.getExec(exec).GetContext(ctx, &et, `SELECT id, name FROM event_types WHERE name = $1`, name)
	if err != nil {
		return event.EventType{}, trapNoRowsErr(err, event.ErrTypeNotFound, "finding event type by name")
	}
	return et, nil
}

func (repo eventRepository) CreateBlock(ctx context.Context, blk event.Block, exec ...core.DBExecutor) (event.Block, error) {
	_, err := repo.getExec(exec).ExecContext(ctx,
		`INSERT INTO blocks (`+blockColumns+`) VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		blk.ID, blk.EventID, blk.RSVPCap, blk.StartTime, blk.EndTime, blk.CreatedAt, blk.UpdatedAt)
	return blk, errors.Wrap(err, "inserting block")
}

func (repo eventRepository) QueryBlocks(ctx context.Context, eventID string, exec ...core.DBExecutor) ([]event.Block, error) {
	blocks := make([]event.Block, 0)
	err := repo.getExec(exec).SelectContext(ctx, &blocks,
		`SELECT `+blockColumns+` FROM blocks WHERE event_id = $1 ORDER BY start_time, created_at`, eventID)
	return blocks, errors.Wrap(err, "querying blocks")
}

func (repo eventRepository) DeleteBlock(ctx context.Context, eventID, blockID string, exec ...core.DBExecutor) error {
	if !validID(blockID) {
		return event.ErrBlockNotFound
	}
	res, err := repo.getExec(exec).ExecContext(ctx, `DELETE FROM blocks WHERE id = $1 AND event_id = $2`, blockID, eventID)
	if err != nil {
		return errors.Wrap(err, "deleting block")
	}
	return checkAffected(res, event.ErrBlockNotFound)
}

func (repo eventRepository) CountBlockRSVPs(ctx context.Context, blockID string, exec ...core.DBExecutor) (int, error) {
	var cnt int
	err := repo.getExec(exec).GetContext(ctx, &cnt, `SELECT COUNT(*) FROM blocks_rsvps WHERE block_id = $1`, blockID)
	return cnt, errors.Wrap(err, "counting block rsvps")
}

func (repo eventRepository) CreateRSVP(ctx context.Context, rsvp event.RSVP, exec ...core.DBExecutor) (event.RSVP, error) {
	exe := repo.getExec(exec)
	_, err := exe.ExecContext(ctx,
		`INSERT INTO rsvps (`+rsvpColumns+`) VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		rsvp.ID, rsvp.EventID, rsvp.PersonID, rsvp.Comment, rsvp.Transportation, rsvp.CreatedAt, rsvp.UpdatedAt)
	if isUniqueViolation(err) {
		return event.RSVP{}, event.ErrRSVPExists
	}
	if err != nil {
		return event.RSVP{}, errors.Wrap(err, "inserting rsvp")
	}
	for _, blockID := range rsvp.BlockIDs {
		if _, err = exe.ExecContext(ctx,
			`INSERT INTO blocks_rsvps (block_id, rsvp_id) VALUES ($1, $2)`, blockID, rsvp.ID); err != nil {
			return event.RSVP{}, errors.Wrap(err, "inserting rsvp block")
		}
	}
	return rsvp, nil
}

// loadBlockIDs fills the BlockIDs of rsvps.
func (repo eventRepository) loadBlockIDs(ctx context.Context, exe core.DBExecutor, rsvps []event.RSVP) error {
	if len(rsvps) == 0 {
		return nil
	}
	ids := make([]string, 0, len(rsvps))
	idx := make(map[string]int, len(rsvps))
	for i, r := range rsvps {
		ids = append(ids, r.ID)
		idx[r.ID] = i
		rsvps[i].BlockIDs = []string{}
	}

	q, args, err := in(exe, `SELECT rsvp_id, block_id FROM blocks_rsvps WHERE rsvp_id IN (?) ORDER BY block_id`, ids)
	if err != nil {
		return errors.Wrap(err, "building rsvp blocks query")
	}
	var links []struct {
		RSVPID  string `db:"rsvp_id"`
		BlockID string `db:"block_id"`
	}
	if err = exe.SelectContext(ctx, &links, q, args...); err != nil {
		return errors.Wrap(err, "querying rsvp blocks")
	}
	for _, l := range links {
		i := idx[l.RSVPID]
		rsvps[i].BlockIDs = append(rsvps[i].BlockIDs, l.BlockID)
	}
	return nil
}

func (repo eventRepository) QueryRSVPs(ctx context.Context, eventID string, exec ...core.DBExecutor) ([]event.RSVP, error) {
	exe := repo.getExec(exec)
	rsvps := make([]event.RSVP, 0)
	if err := exe.SelectContext(ctx, &rsvps,
		`SELECT `+rsvpColumns+` FROM rsvps WHERE event_id = $1 ORDER BY created_at`, eventID); err != nil {
		return nil, errors.Wrap(err, "querying rsvps")
	}
	return rsvps, repo.loadBlockIDs(ctx, exe, rsvps)
}

func (repo eventRepository) GetRSVP(ctx context.Context, eventID, personID string, exec ...core.DBExecutor) (event.RSVP, error) {
	if !validID(eventID) || !validID(personID) {
		return event.RSVP{}, event.ErrRSVPNotFound
	}
	exe := repo.getExec(exec)
	rsvps := make([]event.RSVP, 1)
	err := exe.GetContext(ctx, &rsvps[0],
		`SELECT `+rsvpColumns+` FROM rsvps WHERE event_id = $1 AND person_id = $2`, eventID, personID)
	if err != nil {
		return event.RSVP{}, trapNoRowsErr(err, event.ErrRSVPNotFound, "finding rsvp")
	}
	if err = repo.loadBlockIDs(ctx, exe, rsvps); err != nil {
		return event.RSVP{}, err
	}
	return rsvps[0], nil
}

func (repo eventRepository) DeleteRSVP(ctx context.Context, id string, exec ...core.DBExecutor) error {
	res, err := repo.getExec(exec).ExecContext(ctx, `DELETE FROM rsvps WHERE id = $1`, id)
	if err != nil {
		return errors.Wrap(err, "deleting rsvp")
	}
	return checkAffected(res, event.ErrRSVPNotFound)
}
