package sqlxrepos

import (
	"context"

	"github.com/pkg/errors"

	"github.com/lo-maxwell/hkn-rails/core"
	"github.com/lo-maxwell/hkn-rails/core/group"
)

const groupColumns = "id, name, description, created_at, updated_at"

type groupRepository struct {
	repository
}

var _ group.Repository = (*groupRepository)(nil) // interface compliance check

func NewGroupRepository(exec core.DBExecutor) group.Repository {
	return &groupRepository{repository{exec: exec}}
}

func (repo groupRepository) CreateGroup(ctx context.Context, grp group.Group, exec ...core.DBExecutor) (group.Group, error) {
	_, err := repo.getExec(exec).ExecContext(ctx,
		`INSERT INTO groups (`+groupColumns+`) VALUES ($1, $2, $3, $4, $5)`,
		grp.ID, grp.Name, grp.Description, grp.CreatedAt, grp.UpdatedAt)
	if isUniqueViolation(err) {
		return group.Group{}, group.ErrNameExists
	}
	if err != nil {
		return group.Group{}, errors.Wrap(err, "inserting group")
	}
	return grp, nil
}

func (repo groupRepository) QueryGroups(ctx context.Context, exec ...core.DBExecutor) ([]group.Group, error) {
	groups := make([]group.Group, 0)
	err := repo.getExec(exec).SelectContext(ctx, &groups, `SELECT `+groupColumns+` FROM groups ORDER BY name`)
	return groups, errors.Wrap(err, "querying groups")
}

func (repo groupRepository) GetGroup(ctx context.Context, id string, exec ...core.DBExecutor) (group.Group, error) {
	if !validID(id) {
		return group.Group{}, group.ErrNotFound
	}
	var grp group.Group
	err := repo.getExec(exec).GetContext(ctx, &grp, `SELECT `+groupColumns+` FROM groups WHERE id = $1`, id)
	if err != nil {
		return group.Group{}, trapNoRowsErr(err, group.ErrNotFound, "finding group")
	}
	return grp, nil
}

func (repo groupRepository) GetGroupByName(ctx context.Context, name string, exec ...core.DBExecutor) (group.Group, error) {
	var grp group.Group
	err := repo.getExec(exec).GetContext(ctx, &grp, `SELECT `+groupColumns+` FROM groups WHERE name = $1`, name)
	if err != nil {
		return group.Group{}, trapNoRowsErr(err, group.ErrNotFound, "finding group by name")
	}
	return grp, nil
}

func (repo groupRepository) UpdateGroup(ctx context.Context, grp group.Group, exec ...core.DBExecutor) (group.Group, error) {
	res, err := repo.getExec(exec).ExecContext(ctx,
		`UPDATE groups SET name = $2, description = $3, updated_at = $4 WHERE id = $1`,
		grp.ID, grp.Name, grp.Description, grp.UpdatedAt)
	if isUniqueViolation(err) {
		return group.Group{}, group.ErrNameExists
	}
	if err != nil {
		return group.Group{}, errors.Wrap(err, "updating group")
	}
	return grp, checkAffected(res, group.ErrNotFound)
}

func (repo groupRepository) DeleteGroup(ctx context.Context, id string, exec ...core.DBExecutor) error {
	if !validID(id) {
		return group.ErrNotFound
	}
	res, err := repo.getExec(exec).ExecContext(ctx, `DELETE FROM groups WHERE id = $1`, id)
	if err != nil {
		return errors.Wrap(err, "deleting group")
	}
	return checkAffected(res, group.ErrNotFound)
}

func (repo groupRepository) AddMember(ctx context.Context, groupID, personID string, exec ...core.DBExecutor) error {
	if !validID(groupID) || !validID(personID) {
		return group.ErrNotFound
	}
	_, err := repo.getExec(exec).ExecContext(ctx,
		`INSERT INTO group_memberships (group_id, person_id) VALUES ($1, $2) ON CONFLICT DO NOTHING`,
		groupID, personID)
	return errors.Wrap(err, "adding group member")
}

func (repo groupRepository) RemoveMember(ctx context.Context, groupID, personID string, exec ...core.DBExecutor) error {
	if !validID(groupID) || !validID(personID) {
		return nil
	}
	_, err := repo.getExec(exec).ExecContext(ctx,
		`DELETE FROM group_memberships WHERE group_id = $1 AND person_id = $2`, groupID, personID)
	return errors.Wrap(err, "removing group member")
}

func (repo groupRepository) MemberIDs(ctx context.Context, groupID string, exec ...core.DBExecutor) ([]string, error) {
	ids := make([]string, 0)
	if !validID(groupID) {
		return ids, nil
	}
	err := repo.getExec(exec).SelectContext(ctx, &ids,
		`SELECT person_id FROM group_memberships WHERE group_id = $1 ORDER BY person_id`, groupID)
	return ids, errors.Wrap(err, "querying group members")
}

func (repo groupRepository) GroupsOf(ctx context.Context, personID string, exec ...core.DBExecutor) ([]group.Group, error) {
	groups := make([]group.Group, 0)
	if !validID(personID) {
		return groups, nil
	}
	err := repo.getExec(exec).SelectContext(ctx, &groups,
		`SELECT g.id, g.name, g.description, g.created_at, g.updated_at
		FROM groups g JOIN group_memberships m ON m.group_id = g.id
		WHERE m.person_id = $1 ORDER BY g.name`, personID)
	return groups, errors.Wrap(err, "querying groups of person")
}
