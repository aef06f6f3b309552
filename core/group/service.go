package group

import (
	"context"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/kat-co/vala"
	"github.com/pkg/errors"

	"github.com/lo-maxwell/hkn-rails/core"
)

var (
	// errors
	ErrNotFound   = errors.New("group not found")
	ErrNameExists = errors.New("a group with this name already exists")
)

type (
	Repository interface {
		CreateGroup(ctx context.Context, grp Group, exec ...core.DBExecutor) (Group, error)
		QueryGroups(ctx context.Context, exec ...core.DBExecutor) ([]Group, error)
		GetGroup(ctx context.Context, id string, exec ...core.DBExecutor) (Group, error)
		GetGroupByName(ctx context.Context, name string, exec ...core.DBExecutor) (Group, error)
		UpdateGroup(ctx context.Context, grp Group, exec ...core.DBExecutor) (Group, error)
		DeleteGroup(ctx context.Context, id string, exec ...core.DBExecutor) error
		AddMember(ctx context.Context, groupID, personID string, exec ...core.DBExecutor) error
		RemoveMember(ctx context.Context, groupID, personID string, exec ...core.DBExecutor) error
		MemberIDs(ctx context.Context, groupID string, exec ...core.DBExecutor) ([]string, error)
		// GroupsOf returns the groups personID belongs to, ordered by name.
		GroupsOf(ctx context.Context, personID string, exec ...core.DBExecutor) ([]Group, error)
	}

	Service struct {
		repo     Repository
		validate *validator.Validate
	}
)

func NewService(repo Repository, validate *validator.Validate) *Service {
	vala.BeginValidation().Validate(
		vala.IsNotNil(repo, "repo"),
		vala.IsNotNil(validate, "validate"),
	).CheckAndPanic()
	return &Service{repo: repo, validate: validate}
}

func (svc *Service) checkUniqueness(ctx context.Context, name, exclID string) error {
	grp, err := svc.repo.GetGroupByName(ctx, name)
	switch {
	case errors.Is(err, ErrNotFound):
		return nil
	case err != nil:
		return errors.Wrap(err, "checking group name")
	case grp.ID != exclID:
		return core.NewValidationError(ErrNameExists, core.FieldError{Field: "name", Error: ErrNameExists.Error()})
	}
	return nil
}

func (svc *Service) Create(ctx context.Context, ng NewGroup) (Group, error) {
	ng.Clean()
	if err := svc.validate.Struct(ng); err != nil {
		return Group{}, err
	}
	if err := svc.checkUniqueness(ctx, ng.Name, ""); err != nil {
		return Group{}, err
	}

	now := time.Now().UTC()
	return svc.repo.CreateGroup(ctx, Group{
		ID:          uuid.NewString(),
		Name:        ng.Name,
		Description: ng.Description,
		CreatedAt:   now,
		UpdatedAt:   now,
	})
}

func (svc *Service) QueryAll(ctx context.Context) ([]Group, error) {
	return svc.repo.QueryGroups(ctx)
}

func (svc *Service) Get(ctx context.Context, id string) (Group, error) {
	return svc.repo.GetGroup(ctx, id)
}

func (svc *Service) GetByName(ctx context.Context, name string) (Group, error) {
	return svc.repo.GetGroupByName(ctx, core.CleanString(name))
}

func (svc *Service) Update(ctx context.Context, id string, ug UpdateGroup) (Group, error) {
	grp, err := svc.repo.GetGroup(ctx, id)
	if err != nil {
		return Group{}, err
	}

	ug.Clean()
	if err = svc.validate.Struct(ug); err != nil {
		return Group{}, err
	}
	if ug.Name != nil && *ug.Name != grp.Name {
		if err = svc.checkUniqueness(ctx, *ug.Name, grp.ID); err != nil {
			return Group{}, err
		}
		grp.Name = *ug.Name
	}
	if ug.Description != nil {
		grp.Description = *ug.Description
	}
	grp.UpdatedAt = time.Now().UTC()
	return svc.repo.UpdateGroup(ctx, grp)
}

func (svc *Service) Delete(ctx context.Context, id string) error {
	return svc.repo.DeleteGroup(ctx, id)
}

func (svc *Service) AddMember(ctx context.Context, groupID, personID string) error {
	if _, err := svc.repo.GetGroup(ctx, groupID); err != nil {
		return err
	}
	return svc.repo.AddMember(ctx, groupID, personID)
}

func (svc *Service) RemoveMember(ctx context.Context, groupID, personID string) error {
	return svc.repo.RemoveMember(ctx, groupID, personID)
}

func (svc *Service) MemberIDs(ctx context.Context, groupID string) ([]string, error) {
	if _, err := svc.repo.GetGroup(ctx, groupID); err != nil {
		return nil, err
	}
	return svc.repo.MemberIDs(ctx, groupID)
}

// GroupsOf is the membership oracle used by permission checks.
func (svc *Service) GroupsOf(ctx context.Context, personID string) ([]Group, error) {
	if personID == "" {
		return nil, nil
	}
	return svc.repo.GroupsOf(ctx, personID)
}
