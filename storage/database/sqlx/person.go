package sqlxrepos

import (
	"context"
	"strings"

	"github.com/pkg/errors"

	"github.com/lo-maxwell/hkn-rails/core"
	"github.com/lo-maxwell/hkn-rails/core/person"
)

const personColumns = "id, name, username, email, phone, sms_gateway, graduation, created_at, updated_at"

type personRepository struct {
	repository
}

var _ person.Repository = (*personRepository)(nil) // interface compliance check

func NewPersonRepository(exec core.DBExecutor) person.Repository {
	return &personRepository{repository{exec: exec}}
}

func (repo personRepository) CheckUniqueness(ctx context.Context, username, email, excludedID string, exec ...core.DBExecutor) error {
	var taken []struct {
		Username string `db:"username"`
		Email    string `db:"email"`
	}
	q := `SELECT username, email FROM people WHERE (username = $1 OR email = $2)`
	args := []interface{}{username, email}
	if validID(excludedID) {
		q += ` AND id <> $3`
		args = append(args, excludedID)
	}
	if err := repo.getExec(exec).SelectContext(ctx, &taken, q, args...); err != nil {
		return errors.Wrap(err, "checking username uniqueness")
	}
	for _, t := range taken {
		if t.Username == username {
			return person.ErrUsernameExists
		}
	}
	if len(taken) > 0 {
		return person.ErrEmailExists
	}
	return nil
}

// trapUniqueErr maps a unique violation on people to the matching sentinel error.
func trapUniqueErr(err error, msg string) error {
	if isUniqueViolation(err) {
		if strings.Contains(err.Error(), "username") {
			return person.ErrUsernameExists
		}
		return person.ErrEmailExists
	}
	return errors.Wrap(err, msg)
}

func (repo personRepository) CreatePerson(ctx context.Context, p person.Person, exec ...core.DBExecutor) (person.Person, error) {
	_, err := repo.getExec(exec).ExecContext(ctx,
		`INSERT INTO people (`+personColumns+`) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		p.ID, p.Name, p.Username, p.Email, p.Phone, p.SMSGateway, p.Graduation, p.CreatedAt, p.UpdatedAt)
	if err != nil {
		return person.Person{}, trapUniqueErr(err, "inserting person")
	}
	p.Groups = nil
	return p, nil
}

func (repo personRepository) QueryPeople(ctx context.Context, filter person.QueryFilter, exec ...core.DBExecutor) ([]person.Person, error) {
	people := make([]person.Person, 0)
	exe := repo.getExec(exec)

	var (
		where []string
		args  []interface{}
	)
	if filter.IDs != nil {
		ids := make([]string, 0, len(filter.IDs))
		for _, id := range filter.IDs {
			if validID(id) {
				ids = append(ids, id)
			}
		}
		if len(ids) == 0 {
			return people, nil
		}
		where = append(where, "id IN (?)")
		args = append(args, ids)
	}
	if filter.GroupID != "" {
		if !validID(filter.GroupID) {
			return people, nil
		}
		where = append(where, "id IN (SELECT person_id FROM group_memberships WHERE group_id = ?)")
		args = append(args, filter.GroupID)
	}
	if filter.Graduated {
		where = append(where, "graduation IS NOT NULL")
	}

	q := `SELECT ` + personColumns + ` FROM people`
	if len(where) > 0 {
		q += ` WHERE ` + strings.Join(where, " AND ")
	}
	q += ` ORDER BY name`

	q, args, err := in(exe, q, args...)
	if err != nil {
		return nil, errors.Wrap(err, "building people query")
	}
	err = exe.SelectContext(ctx, &people, q, args...)
	return people, errors.Wrap(err, "querying people")
}

func (repo personRepository) GetPerson(ctx context.Context, id string, exec ...core.DBExecutor) (person.Person, error) {
	if !validID(id) {
		return person.Person{}, person.ErrNotFound
	}
	var p person.Person
	err := repo.getExec(exec).GetContext(ctx, &p, `SELECT `+personColumns+` FROM people WHERE id = $1`, id)
	if err != nil {
		return person.Person{}, trapNoRowsErr(err, person.ErrNotFound, "finding person")
	}
	return p, nil
}

func (repo personRepository) GetPersonByUsername(ctx context.Context, username string, exec ...core.DBExecutor) (person.Person, error) {
	var p person.Person
	err := repo.getExec(exec).GetContext(ctx, &p, `SELECT `+personColumns+` FROM people WHERE username = $1`, username)
	if err != nil {
		return person.Person{}, trapNoRowsErr(err, person.ErrNotFound, "finding person by username")
	}
	return p, nil
}

func (repo personRepository) UpdatePerson(ctx context.Context, p person.Person, exec ...core.DBExecutor) (person.Person, error) {
	res, err := repo.getExec(exec).ExecContext(ctx,
		`UPDATE people SET name = $2, username = $3, email = $4, phone = $5, sms_gateway = $6,
		graduation = $7, updated_at = $8 WHERE id = $1`,
		p.ID, p.Name, p.Username, p.Email, p.Phone, p.SMSGateway, p.Graduation, p.UpdatedAt)
	if err != nil {
		return person.Person{}, trapUniqueErr(err, "updating person")
	}
	p.Groups = nil
	return p, checkAffected(res, person.ErrNotFound)
}

func (repo personRepository) DeletePerson(ctx context.Context, id string, exec ...core.DBExecutor) error {
	if !validID(id) {
		return person.ErrNotFound
	}
	res, err := repo.getExec(exec).ExecContext(ctx, `DELETE FROM people WHERE id = $1`, id)
	if err != nil {
		return errors.Wrap(err, "deleting person")
	}
	return checkAffected(res, person.ErrNotFound)
}
