package inmemdb

import (
	"context"
	"sort"

	"github.com/lo-maxwell/hkn-rails/core"
	"github.com/lo-maxwell/hkn-rails/core/person"
)

type personRepository struct {
	db *DB
}

var _ person.Repository = (*personRepository)(nil) // interface compliance check

func NewPersonRepository(db *DB) person.Repository {
	return &personRepository{db: db}
}

func (repo *personRepository) CheckUniqueness(_ context.Context, username, email, excludedID string, _ ...core.DBExecutor) error {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()
	return repo.checkUniqueness(username, email, excludedID)
}

func (repo *personRepository) checkUniqueness(username, email, excludedID string) error {
	for _, p := range repo.db.people {
		if p.ID == excludedID {
			continue
		}
		if p.Username == username {
			return person.ErrUsernameExists
		}
		if p.Email == email {
			return person.ErrEmailExists
		}
	}
	return nil
}

func (repo *personRepository) CreatePerson(_ context.Context, p person.Person, _ ...core.DBExecutor) (person.Person, error) {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	if err := repo.checkUniqueness(p.Username, p.Email, ""); err != nil {
		return person.Person{}, err
	}
	p.Groups = nil
	repo.db.people[p.ID] = &p
	return p, nil
}

func (repo *personRepository) QueryPeople(_ context.Context, filter person.QueryFilter, _ ...core.DBExecutor) ([]person.Person, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	var ids set
	if filter.IDs != nil {
		ids = make(set, len(filter.IDs))
		for _, id := range filter.IDs {
			ids[id] = true
		}
	}

	people := make([]person.Person, 0)
	for _, p := range repo.db.people {
		if ids != nil && !ids[p.ID] {
			continue
		}
		if filter.GroupID != "" && !repo.db.memberships[filter.GroupID][p.ID] {
			continue
		}
		if filter.Graduated && !p.Graduation.Valid {
			continue
		}
		people = append(people, *p)
	}
	sort.Slice(people, func(i, j int) bool { return people[i].Name < people[j].Name })
	return people, nil
}

func (repo *personRepository) GetPerson(_ context.Context, id string, _ ...core.DBExecutor) (person.Person, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	if p, ok := repo.db.people[id]; ok {
		return *p, nil
	}
	return person.Person{}, person.ErrNotFound
}

func (repo *personRepository) GetPersonByUsername(_ context.Context, username string, _ ...core.DBExecutor) (person.Person, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	for _, p := range repo.db.people {
		if p.Username == username {
			return *p, nil
		}
	}
	return person.Person{}, person.ErrNotFound
}

func (repo *personRepository) UpdatePerson(_ context.Context, p person.Person, _ ...core.DBExecutor) (person.Person, error) {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	if _, ok := repo.db.people[p.ID]; !ok {
		return person.Person{}, person.ErrNotFound
	}
	if err := repo.checkUniqueness(p.Username, p.Email, p.ID); err != nil {
		return person.Person{}, err
	}
	p.Groups = nil
	repo.db.people[p.ID] = &p
	return p, nil
}

func (repo *personRepository) DeletePerson(_ context.Context, id string, _ ...core.DBExecutor) error {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	if _, ok := repo.db.people[id]; !ok {
		return person.ErrNotFound
	}
	delete(repo.db.people, id)
	for _, members := range repo.db.memberships {
		delete(members, id)
	}
	for _, tutors := range repo.db.slotTutors {
		delete(tutors, id)
	}
	changes := repo.db.slotChanges[:0]
	for _, c := range repo.db.slotChanges {
		if c.PersonID != id {
			changes = append(changes, c)
		}
	}
	repo.db.slotChanges = changes
	for aid, a := range repo.db.availabilities {
		if a.PersonID == id {
			delete(repo.db.availabilities, aid)
		}
	}
	for rid, r := range repo.db.rsvps {
		if r.PersonID == id {
			delete(repo.db.rsvps, rid)
		}
	}
	return nil
}
