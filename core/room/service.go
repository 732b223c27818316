package room

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
	ErrNotFound   = errors.WithMessage(core.ErrNotFound, "room")
	ErrNameExists = errors.New("a room with this name already exists in this building")
)

type (
	Repository interface {
		// CheckNameUniqueness fails with ErrNameExists if another room (not in excludedIDs) has the
		// same name in the same building, case-insensitively.
		CheckNameUniqueness(ctx context.Context, name, building string, excludedIDs ...string) error
		// CreateRoom assigns the ID.
		CreateRoom(ctx context.Context, r Room) (Room, error)
		// QueryRooms applies filter (see QueryFilter.Match); a nil filter returns every room.
		QueryRooms(ctx context.Context, filter *QueryFilter, ordering ...core.DBOrdering) ([]Room, error)
		GetRoom(ctx context.Context, id string) (Room, error)
		UpdateRoom(ctx context.Context, r Room) (Room, error)
		DeleteRoom(ctx context.Context, id string) error
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

func (svc *Service) clean(ctx context.Context, r *Room, excludedIDs ...string) error {
	r.Clean()
	if err := core.ValidateStruct(svc.validate, svc.translator, *r); err != nil {
		return err
	}
	if err := svc.repo.CheckNameUniqueness(ctx, r.Name, r.Building, excludedIDs...); err != nil {
		if err == ErrNameExists {
			return core.NewValidationError(err, core.FieldError{Field: "name", Error: err.Error()})
		}
		return err
	}
	return nil
}

func (svc *Service) List(ctx context.Context) ([]Room, error) {
	return svc.repo.QueryRooms(ctx, nil)
}

func (svc *Service) Query(ctx context.Context, filter *QueryFilter, ordering ...core.DBOrdering) ([]Room, error) {
	if filter != nil {
		filter.Clean()
	}
	return svc.repo.QueryRooms(ctx, filter, ordering...)
}

func (svc *Service) Get(ctx context.Context, id string) (Room, error) {
	return svc.repo.GetRoom(ctx, id)
}

// Create validates the draft; the ID is assigned by the repository.
func (svc *Service) Create(ctx context.Context, draft Room) (Room, error) {
	r := draft.Clone()
	r.ID = ""
	if err := svc.clean(ctx, &r); err != nil {
		return Room{}, err
	}
	now := time.Now().UTC()
	r.CreatedAt = now
	r.UpdatedAt = now
	return svc.repo.CreateRoom(ctx, r)
}

// Update replaces every editable field of room id with the draft's.
func (svc *Service) Update(ctx context.Context, id string, draft Room) (Room, error) {
	existing, err := svc.repo.GetRoom(ctx, id)
	if err != nil {
		return Room{}, err
	}
	r := draft.Clone()
	r.ID = existing.ID
	if err := svc.clean(ctx, &r, existing.ID); err != nil {
		return Room{}, err
	}
	r.CreatedAt = existing.CreatedAt
	r.UpdatedAt = time.Now().UTC()
	return svc.repo.UpdateRoom(ctx, r)
}

func (svc *Service) Delete(ctx context.Context, id string) error {
	return svc.repo.DeleteRoom(ctx, id)
}

// Summary computes the list aggregates over the rooms matching filter.
func (svc *Service) Summary(ctx context.Context, filter *QueryFilter) (Summary, error) {
	rooms, err := svc.Query(ctx, filter)
	if err != nil {
		return Summary{}, err
	}
	return Summarize(rooms), nil
}
