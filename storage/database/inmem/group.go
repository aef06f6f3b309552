package inmemdb

import (
	"context"
	"sort"

	"github.com/lo-maxwell/hkn-rails/core"
	"github.com/lo-maxwell/hkn-rails/core/group"
)

type groupRepository struct {
	db *DB
}

var _ group.Repository = (*groupRepository)(nil) // interface compliance check

func NewGroupRepository(db *DB) group.Repository {
	return &groupRepository{db: db}
}

func sortGroups(groups []group.Group) {
	sort.Slice(groups, func(i, j int) bool { return groups[i].Name < groups[j].Name })
}

func (repo *groupRepository) CreateGroup(_ context.Context, grp group.Group, _ ...core.DBExecutor) (group.Group, error) {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	for _, g := range repo.db.groups {
		if g.Name == grp.Name {
			return group.Group{}, group.ErrNameExists
		}
	}
	repo.db.groups[grp.ID] = &grp
	return grp, nil
}

func (repo *groupRepository) QueryGroups(_ context.Context, _ ...core.DBExecutor) ([]group.Group, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	groups := make([]group.Group, 0, len(repo.db.groups))
	for _, g := range repo.db.groups {
		groups = append(groups, *g)
	}
	sortGroups(groups)
	return groups, nil
}

func (repo *groupRepository) GetGroup(_ context.Context, id string, _ ...core.DBExecutor) (group.Group, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	if g, ok := repo.db.groups[id]; ok {
		return *g, nil
	}
	return group.Group{}, group.ErrNotFound
}

func (repo *groupRepository) GetGroupByName(_ context.Context, name string, _ ...core.DBExecutor) (group.Group, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	for _, g := range repo.db.groups {
		if g.Name == name {
			return *g, nil
		}
	}
	return group.Group{}, group.ErrNotFound
}

func (repo *groupRepository) UpdateGroup(_ context.Context, grp group.Group, _ ...core.DBExecutor) (group.Group, error) {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	if _, ok := repo.db.groups[grp.ID]; !ok {
		return group.Group{}, group.ErrNotFound
	}
	repo.db.groups[grp.ID] = &grp
	return grp, nil
}

func (repo *groupRepository) DeleteGroup(_ context.Context, id string, _ ...core.DBExecutor) error {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	if _, ok := repo.db.groups[id]; !ok {
		return group.ErrNotFound
	}
	delete(repo.db.groups, id)
	delete(repo.db.memberships, id)
	for _, evt := range repo.db.events {
		if evt.ViewPermissionGroupID.String == id {
			evt.ViewPermissionGroupID.Valid = false
			evt.ViewPermissionGroupID.String = ""
		}
		if evt.RSVPPermissionGroupID.String == id {
			evt.RSVPPermissionGroupID.Valid = false
			evt.RSVPPermissionGroupID.String = ""
		}
	}
	return nil
}

func (repo *groupRepository) AddMember(_ context.Context, groupID, personID string, _ ...core.DBExecutor) error {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	if _, ok := repo.db.groups[groupID]; !ok {
		return group.ErrNotFound
	}
	members, ok := repo.db.memberships[groupID]
	if !ok {
		members = make(set)
		repo.db.memberships[groupID] = members
	}
	members[personID] = true
	return nil
}

func (repo *groupRepository) RemoveMember(_ context.Context, groupID, personID string, _ ...core.DBExecutor) error {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	delete(repo.db.memberships[groupID], personID)
	return nil
}

func (repo *groupRepository) MemberIDs(_ context.Context, groupID string, _ ...core.DBExecutor) ([]string, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	return repo.db.memberships[groupID].sorted(), nil
}

func (repo *groupRepository) GroupsOf(_ context.Context, personID string, _ ...core.DBExecutor) ([]group.Group, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	groups := make([]group.Group, 0)
	for gid, members := range repo.db.memberships {
		if members[personID] {
			if g, ok := repo.db.groups[gid]; ok {
				groups = append(groups, *g)
			}
		}
	}
	sortGroups(groups)
	return groups, nil
}
