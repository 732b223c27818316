package teacher

import (
	"context"
	"time"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"

	"github.com/trezcool/ratiba/core"
)

var (
	// errors
	ErrNotFound    = errors.WithMessage(core.ErrNotFound, "teacher")
	ErrEmailExists = errors.New("a teacher with this email already exists")
)

type (
	Repository interface {
		CheckEmailUniqueness(ctx context.Context, email string, excludedIDs ...string) error
		// CreateTeacher assigns the ID.
		CreateTeacher(ctx context.Context, t Teacher) (Teacher, error)
		// QueryTeachers applies filter (see QueryFilter.Match); a nil filter returns every teacher.
		QueryTeachers(ctx context.Context, filter *QueryFilter, ordering ...core.DBOrdering) ([]Teacher, error)
		GetTeacher(ctx context.Context, id string) (Teacher, error)
		UpdateTeacher(ctx context.Context, t Teacher) (Teacher, error)
		DeleteTeacher(ctx context.Context, id string) error
	}

	Service struct {
		repo       Repository
		validate   *validator.Validate
		translator ut.Translator
	}
)

func NewService(repo Repository, validate *validator.Validate, translator ut.Translator) *Service {
	InitValidators(validate, translator)
	return &Service{repo: repo, validate: validate, translator: translator}
}

func (svc *Service) clean(ctx context.Context, t *Teacher, excludedIDs ...string) error {
	t.Clean()
	if err := core.ValidateStruct(svc.validate, svc.translator, *t); err != nil {
		return err
	}
	if err := svc.repo.CheckEmailUniqueness(ctx, t.Email, excludedIDs...); err != nil {
		if err == ErrEmailExists {
			return core.NewValidationError(err, core.FieldError{Field: "email", Error: err.Error()})
		}
		return err
	}
	return nil
}

func (svc *Service) List(ctx context.Context) ([]Teacher, error) {
	return svc.repo.QueryTeachers(ctx, nil)
}

func (svc *Service) Query(ctx context.Context, filter *QueryFilter, ordering ...core.DBOrdering) ([]Teacher, error) {
	if filter != nil {
		filter.Clean()
	}
	return svc.repo.QueryTeachers(ctx, filter, ordering...)
}

func (svc *Service) Get(ctx context.Context, id string) (Teacher, error) {
	return svc.repo.GetTeacher(ctx, id)
}

func (svc *Service) Create(ctx context.Context, draft Teacher) (Teacher, error) {
	t := draft.Clone()
	t.ID = ""
	if err := svc.clean(ctx, &t); err != nil {
		return Teacher{}, err
	}
	now := time.Now().UTC()
	t.CreatedAt = now
	t.UpdatedAt = now
	return svc.repo.CreateTeacher(ctx, t)
}

func (svc *Service) Update(ctx context.Context, id string, draft Teacher) (Teacher, error) {
	existing, err := svc.repo.GetTeacher(ctx, id)
	if err != nil {
		return Teacher{}, err
	}
	t := draft.Clone()
	t.ID = existing.ID
	if err := svc.clean(ctx, &t, existing.ID); err != nil {
		return Teacher{}, err
	}
	t.CreatedAt = existing.CreatedAt
	t.UpdatedAt = time.Now().UTC()
	return svc.repo.UpdateTeacher(ctx, t)
}

func (svc *Service) Delete(ctx context.Context, id string) error {
	return svc.repo.DeleteTeacher(ctx, id)
}

func (svc *Service) Summary(ctx context.Context, filter *QueryFilter) (Summary, error) {
	teachers, err := svc.Query(ctx, filter)
	if err != nil {
		return Summary{}, err
	}
	return Summarize(teachers), nil
}
