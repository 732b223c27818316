package course

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
	ErrNotFound   = errors.WithMessage(core.ErrNotFound, "course")
	ErrCodeExists = errors.New("a course with this code already exists")
)

type (
	Repository interface {
		CheckCodeUniqueness(ctx context.Context, code string, excludedIDs ...string) error
		// CreateCourse assigns the ID.
		CreateCourse(ctx context.Context, c Course) (Course, error)
		// QueryCourses applies filter (see QueryFilter.Match); a nil filter returns every course.
		QueryCourses(ctx context.Context, filter *QueryFilter, ordering ...core.DBOrdering) ([]Course, error)
		GetCourse(ctx context.Context, id string) (Course, error)
		UpdateCourse(ctx context.Context, c Course) (Course, error)
		DeleteCourse(ctx context.Context, id string) error
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

func (svc *Service) clean(ctx context.Context, c *Course, excludedIDs ...string) error {
	c.Clean()
	if err := core.ValidateStruct(svc.validate, svc.translator, *c); err != nil {
		return err
	}
	if err := svc.repo.CheckCodeUniqueness(ctx, c.Code, excludedIDs...); err != nil {
		if err == ErrCodeExists {
			return core.NewValidationError(err, core.FieldError{Field: "code", Error: err.Error()})
		}
		return err
	}
	return nil
}

func (svc *Service) List(ctx context.Context) ([]Course, error) {
	return svc.repo.QueryCourses(ctx, nil)
}

func (svc *Service) Query(ctx context.Context, filter *QueryFilter, ordering ...core.DBOrdering) ([]Course, error) {
	if filter != nil {
		filter.Clean()
	}
	return svc.repo.QueryCourses(ctx, filter, ordering...)
}

func (svc *Service) Get(ctx context.Context, id string) (Course, error) {
	return svc.repo.GetCourse(ctx, id)
}

func (svc *Service) Create(ctx context.Context, draft Course) (Course, error) {
	c := draft.Clone()
	c.ID = ""
	if err := svc.clean(ctx, &c); err != nil {
		return Course{}, err
	}
	now := time.Now().UTC()
	c.CreatedAt = now
	c.UpdatedAt = now
	return svc.repo.CreateCourse(ctx, c)
}

func (svc *Service) Update(ctx context.Context, id string, draft Course) (Course, error) {
	existing, err := svc.repo.GetCourse(ctx, id)
	if err != nil {
		return Course{}, err
	}
	c := draft.Clone()
	c.ID = existing.ID
	if err := svc.clean(ctx, &c, existing.ID); err != nil {
		return Course{}, err
	}
	c.CreatedAt = existing.CreatedAt
	c.UpdatedAt = time.Now().UTC()
	return svc.repo.UpdateCourse(ctx, c)
}

func (svc *Service) Delete(ctx context.Context, id string) error {
	return svc.repo.DeleteCourse(ctx, id)
}

func (svc *Service) Summary(ctx context.Context, filter *QueryFilter) (Summary, error) {
	courses, err := svc.Query(ctx, filter)
	if err != nil {
		return Summary{}, err
	}
	return Summarize(courses), nil
}
