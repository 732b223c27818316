package timetable

import (
	"context"
	"time"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/kat-co/vala"
	"github.com/pkg/errors"

	"github.com/trezcool/ratiba/core"
	"github.com/trezcool/ratiba/core/crud"
)

var (
	// errors
	ErrNotFound       = errors.WithMessage(core.ErrNotFound, "timetable")
	ErrInvalidStatus  = errors.New("unknown timetable status")
	ErrTransition     = errors.New("status change not allowed")
	ErrNotEditable    = errors.New("only draft and rejected timetables can be edited")
	ErrBlankComment   = errors.New("comment cannot be blank")
	ErrCommentTooLong = errors.New("comment cannot exceed 2000 characters")
)

const (
	maxCommentLength   = 2000
	publishedEmailText = `The timetable "{{.Name}}" ({{.Program}}, semester {{.Semester}}{{if .AcademicYear}}, {{.AcademicYear}}{{end}}) was published by {{.Actor}}.
It holds {{.Sessions}} weekly sessions.`
)

type (
	Repository interface {
		// CreateTimetable assigns the ID.
		CreateTimetable(ctx context.Context, tt Timetable) (Timetable, error)
		// QueryTimetables applies filter (see QueryFilter.Match) and returns full records.
		QueryTimetables(ctx context.Context, filter *QueryFilter, ordering ...core.DBOrdering) ([]Timetable, error)
		GetTimetable(ctx context.Context, id string) (Timetable, error)
		// UpdateTimetable saves every field but the comments.
		UpdateTimetable(ctx context.Context, tt Timetable) (Timetable, error)
		AddTimetableComment(ctx context.Context, id string, c Comment) (Timetable, error)
		DeleteTimetable(ctx context.Context, id string) error
	}

	Service struct {
		repo        Repository
		validate    *validator.Validate
		translator  ut.Translator
		mailSvc     core.EmailService
		adminEmails []string
	}
)

func NewService(repo Repository, validate *validator.Validate, translator ut.Translator, mailSvc core.EmailService, adminEmails []string) *Service {
	vala.BeginValidation().Validate(
		core.IsSet(repo, "repo"),
		core.IsSet(mailSvc, "mailSvc"),
	).CheckAndPanic()

	InitValidators(validate, translator)
	return &Service{
		repo:        repo,
		validate:    validate,
		translator:  translator,
		mailSvc:     mailSvc,
		adminEmails: adminEmails,
	}
}

func statusError(err error) error {
	return core.NewValidationError(err, core.FieldError{Field: "status", Error: err.Error()})
}

func (svc *Service) List(ctx context.Context) ([]Timetable, error) {
	return svc.Query(ctx, nil, ProjectionFull)
}

func (svc *Service) Query(ctx context.Context, filter *QueryFilter, p Projection, ordering ...core.DBOrdering) ([]Timetable, error) {
	if filter != nil {
		filter.Clean()
	}
	tts, err := svc.repo.QueryTimetables(ctx, filter, ordering...)
	if err != nil {
		return nil, err
	}
	for i := range tts {
		tts[i] = tts[i].Project(p)
	}
	return tts, nil
}

func (svc *Service) Get(ctx context.Context, id string, p Projection) (Timetable, error) {
	tt, err := svc.repo.GetTimetable(ctx, id)
	if err != nil {
		return Timetable{}, err
	}
	return tt.Project(p), nil
}

// Create imports a timetable. New timetables always start as drafts without comments.
func (svc *Service) Create(ctx context.Context, draft Timetable) (Timetable, error) {
	tt := draft.Clone()
	tt.ID = ""
	tt.Status = StatusDraft
	tt.Comments = []Comment{}
	tt.Clean()
	if err := core.ValidateStruct(svc.validate, svc.translator, tt); err != nil {
		return Timetable{}, err
	}
	now := time.Now().UTC()
	tt.CreatedAt = now
	tt.UpdatedAt = now
	tt, err := svc.repo.CreateTimetable(ctx, tt)
	if err != nil {
		return Timetable{}, err
	}
	return tt.Project(ProjectionFull), nil
}

// Update replaces the header and sessions of a draft or rejected timetable. Status and comments are kept.
func (svc *Service) Update(ctx context.Context, id string, draft Timetable) (Timetable, error) {
	existing, err := svc.repo.GetTimetable(ctx, id)
	if err != nil {
		return Timetable{}, err
	}
	if existing.Status != StatusDraft && existing.Status != StatusRejected {
		return Timetable{}, statusError(ErrNotEditable)
	}
	tt := draft.Clone()
	tt.ID = existing.ID
	tt.Status = existing.Status
	tt.Comments = existing.Comments
	tt.Clean()
	if err := core.ValidateStruct(svc.validate, svc.translator, tt); err != nil {
		return Timetable{}, err
	}
	tt.CreatedAt = existing.CreatedAt
	tt.UpdatedAt = time.Now().UTC()
	if tt, err = svc.repo.UpdateTimetable(ctx, tt); err != nil {
		return Timetable{}, err
	}
	return tt.Project(ProjectionFull), nil
}

// UpdateStatus moves the timetable along its review workflow. Publishing notifies the admins by email.
func (svc *Service) UpdateStatus(ctx context.Context, id, status, actor string) (Timetable, error) {
	status = core.CleanString(status, true /* lower */)
	if !crud.Contains(Statuses, status) {
		return Timetable{}, statusError(ErrInvalidStatus)
	}
	tt, err := svc.repo.GetTimetable(ctx, id)
	if err != nil {
		return Timetable{}, err
	}
	if !CanTransition(tt.Status, status) {
		return Timetable{}, statusError(errors.Wrapf(ErrTransition, "%s to %s", tt.Status, status))
	}

	tt.Status = status
	tt.UpdatedAt = time.Now().UTC()
	if tt, err = svc.repo.UpdateTimetable(ctx, tt); err != nil {
		return Timetable{}, err
	}
	if status == StatusPublished {
		svc.notifyPublished(tt, actor)
	}
	return tt.Project(ProjectionFull), nil
}

func (svc *Service) notifyPublished(tt Timetable, actor string) {
	if len(svc.adminEmails) == 0 {
		return
	}
	svc.mailSvc.SendMessages(&core.EmailMessage{
		To:           core.Addresses(svc.adminEmails...),
		Subject:      "Timetable published: " + tt.Name,
		TextTemplate: publishedEmailText,
		TemplateData: map[string]interface{}{
			"Name":         tt.Name,
			"Program":      tt.Program,
			"Semester":     tt.Semester,
			"AcademicYear": tt.AcademicYear,
			"Actor":        actor,
			"Sessions":     len(tt.Sessions),
		},
	})
}

// AddComment appends a review comment signed by author.
func (svc *Service) AddComment(ctx context.Context, id, author, text string) (Timetable, error) {
	text = core.CleanString(text)
	if text == "" {
		return Timetable{}, core.NewValidationError(ErrBlankComment, core.FieldError{Field: "text", Error: ErrBlankComment.Error()})
	}
	if len([]rune(text)) > maxCommentLength {
		return Timetable{}, core.NewValidationError(ErrCommentTooLong, core.FieldError{Field: "text", Error: ErrCommentTooLong.Error()})
	}
	c := Comment{
		ID:        uuid.New().String(),
		Author:    core.CleanString(author),
		Text:      text,
		CreatedAt: time.Now().UTC(),
	}
	tt, err := svc.repo.AddTimetableComment(ctx, id, c)
	if err != nil {
		return Timetable{}, err
	}
	return tt.Project(ProjectionFull), nil
}

func (svc *Service) Delete(ctx context.Context, id string) error {
	return svc.repo.DeleteTimetable(ctx, id)
}
