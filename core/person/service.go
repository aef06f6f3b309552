package person

import (
	"context"
	"sort"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/kat-co/vala"
	"github.com/pkg/errors"

	"github.com/lo-maxwell/hkn-rails/core"
	"github.com/lo-maxwell/hkn-rails/core/group"
)

var (
	// errors
	ErrNotFound       = errors.New("person not found")
	ErrEmailExists    = errors.New("a person with this email already exists")
	ErrUsernameExists = errors.New("a person with this username already exists")
)

type (
	Repository interface {
		// CheckUniqueness returns ErrUsernameExists or ErrEmailExists if another person
		// (than excludedID) already uses username or email.
		CheckUniqueness(ctx context.Context, username, email, excludedID string, exec ...core.DBExecutor) error
		CreatePerson(ctx context.Context, p Person, exec ...core.DBExecutor) (Person, error)
		QueryPeople(ctx context.Context, filter QueryFilter, exec ...core.DBExecutor) ([]Person, error)
		GetPerson(ctx context.Context, id string, exec ...core.DBExecutor) (Person, error)
		GetPersonByUsername(ctx context.Context, username string, exec ...core.DBExecutor) (Person, error)
		UpdatePerson(ctx context.Context, p Person, exec ...core.DBExecutor) (Person, error)
		DeletePerson(ctx context.Context, id string, exec ...core.DBExecutor) error
	}

	Service struct {
		repo     Repository
		groups   *group.Service
		validate *validator.Validate
	}
)

func NewService(repo Repository, groups *group.Service, validate *validator.Validate) *Service {
	vala.BeginValidation().Validate(
		vala.IsNotNil(repo, "repo"),
		vala.IsNotNil(groups, "groups"),
		vala.IsNotNil(validate, "validate"),
	).CheckAndPanic()
	return &Service{repo: repo, groups: groups, validate: validate}
}

func (svc *Service) checkUniqueness(ctx context.Context, uname, email, exclID string) error {
	if err := svc.repo.CheckUniqueness(ctx, uname, email, exclID); err != nil {
		var field string
		switch err {
		case ErrUsernameExists:
			field = "username"
		case ErrEmailExists:
			field = "email"
		default:
			return err
		}
		return core.NewValidationError(err, core.FieldError{Field: field, Error: err.Error()})
	}
	return nil
}

func (svc *Service) Create(ctx context.Context, np NewPerson) (Person, error) {
	np.Clean()
	if err := svc.validate.Struct(np); err != nil {
		return Person{}, err
	}
	if err := svc.checkUniqueness(ctx, np.Username, np.Email, ""); err != nil {
		return Person{}, err
	}

	now := time.Now().UTC()
	p, err := svc.repo.CreatePerson(ctx, Person{
		ID:         uuid.NewString(),
		Name:       np.Name,
		Username:   np.Username,
		Email:      np.Email,
		Phone:      np.Phone,
		SMSGateway: np.SMSGateway,
		Graduation: np.Graduation,
		CreatedAt:  now,
		UpdatedAt:  now,
	})
	if err != nil {
		return Person{}, err
	}
	for _, gid := range np.GroupIDs {
		if err = svc.groups.AddMember(ctx, gid, p.ID); err != nil {
			return Person{}, errors.Wrap(err, "adding person to group")
		}
	}
	return svc.loadGroups(ctx, p)
}

func (svc *Service) loadGroups(ctx context.Context, p Person) (Person, error) {
	groups, err := svc.groups.GroupsOf(ctx, p.ID)
	if err != nil {
		return Person{}, errors.Wrap(err, "loading groups")
	}
	p.Groups = groups
	return p, nil
}

// Get returns the person with id, groups included.
func (svc *Service) Get(ctx context.Context, id string) (Person, error) {
	p, err := svc.repo.GetPerson(ctx, id)
	if err != nil {
		return Person{}, err
	}
	return svc.loadGroups(ctx, p)
}

func (svc *Service) GetByUsername(ctx context.Context, uname string) (Person, error) {
	p, err := svc.repo.GetPersonByUsername(ctx, core.CleanString(uname, true /* lower */))
	if err != nil {
		return Person{}, err
	}
	return svc.loadGroups(ctx, p)
}

// Query lists people without their groups.
func (svc *Service) Query(ctx context.Context, filter QueryFilter) ([]Person, error) {
	return svc.repo.QueryPeople(ctx, filter)
}

func (svc *Service) Members(ctx context.Context, groupID string) ([]Person, error) {
	if _, err := svc.groups.Get(ctx, groupID); err != nil {
		return nil, err
	}
	return svc.repo.QueryPeople(ctx, QueryFilter{GroupID: groupID})
}

// Graduating lists people with a graduation semester, most recent semester first.
func (svc *Service) Graduating(ctx context.Context) ([]Person, error) {
	people, err := svc.repo.QueryPeople(ctx, QueryFilter{Graduated: true})
	if err != nil {
		return nil, err
	}
	sort.SliceStable(people, func(i, j int) bool {
		si, iok := people[i].GraduationSemester()
		sj, jok := people[j].GraduationSemester()
		if iok != jok {
			return iok
		}
		return sj.Before(si)
	})
	return people, nil
}

func (svc *Service) Update(ctx context.Context, id string, up UpdatePerson) (Person, error) {
	p, err := svc.repo.GetPerson(ctx, id)
	if err != nil {
		return Person{}, err
	}

	up.Clean()
	if err = svc.validate.Struct(up); err != nil {
		return Person{}, err
	}
	if up.Name != nil {
		p.Name = *up.Name
	}
	if up.Email != nil && *up.Email != p.Email {
		if err = svc.checkUniqueness(ctx, p.Username, *up.Email, p.ID); err != nil {
			return Person{}, err
		}
		p.Email = *up.Email
	}
	if up.Phone.Valid {
		p.Phone = up.Phone
	}
	if up.SMSGateway.Valid {
		p.SMSGateway = up.SMSGateway
	}
	if up.Graduation.Valid {
		p.Graduation = up.Graduation
	}
	p.UpdatedAt = time.Now().UTC()

	if p, err = svc.repo.UpdatePerson(ctx, p); err != nil {
		return Person{}, err
	}
	return svc.loadGroups(ctx, p)
}

func (svc *Service) Delete(ctx context.Context, id string) error {
	return svc.repo.DeletePerson(ctx, id)
}
