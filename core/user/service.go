package user

import (
	"context"
	"net/mail"
	"time"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/kat-co/vala"
	"github.com/pkg/errors"

	"github.com/trezcool/ratiba/core"
)

var (
	// errors
	ErrNotFound           = errors.WithMessage(core.ErrNotFound, "user")
	ErrEmailExists        = errors.New("a user with this email already exists")
	ErrUsernameExists     = errors.New("a user with this username already exists")
	ErrInvalidCredentials = errors.New("unable to login with provided credentials")
	ErrInvalidResetLink   = errors.New("the password reset link is invalid or has expired")
)

const passwordResetText = `Hi {{.Name}},

A password reset was requested for your {{.AppName}} account.
Use the following values to choose a new password:

uid:   {{.UID}}
token: {{.Token}}

If you did not request it, you can ignore this email.
`

type (
	Repository interface {
		// CheckUsernameUniqueness fails with ErrUsernameExists or ErrEmailExists if another user (not in
		// excludedIDs) already uses username or email. Empty values are not checked.
		CheckUsernameUniqueness(ctx context.Context, username, email string, excludedIDs ...string) error
		// CreateUser assigns the ID.
		CreateUser(ctx context.Context, usr User) (User, error)
		// QueryUsers applies filter (see QueryFilter.Match); a nil filter returns every user.
		QueryUsers(ctx context.Context, filter *QueryFilter, ordering ...core.DBOrdering) ([]User, error)
		GetUser(ctx context.Context, filter GetFilter) (User, error)
		UpdateUser(ctx context.Context, usr User) (User, error)
		DeleteUsersByID(ctx context.Context, ids ...string) error
	}

	Service struct {
		repo       Repository
		validate   *validator.Validate
		translator ut.Translator
		mailSvc    core.EmailService
		tokens     *tokenGenerator
		appName    string
	}
)

func NewService(
	repo Repository,
	validate *validator.Validate,
	translator ut.Translator,
	mailSvc core.EmailService,
	conf *core.Config,
) *Service {
	vala.BeginValidation().Validate(
		core.IsSet(repo, "repo"),
		core.IsSet(mailSvc, "mailSvc"),
		core.IsSet(conf, "conf"),
	).CheckAndPanic()

	InitValidators(validate, translator)
	return &Service{
		repo:       repo,
		validate:   validate,
		translator: translator,
		mailSvc:    mailSvc,
		tokens:     newTokenGenerator(conf.SecretKey, conf.PasswordResetTimeout),
		appName:    conf.AppName,
	}
}

func (svc *Service) checkUniqueness(ctx context.Context, uname, email string, excludedIDs ...string) error {
	if err := svc.repo.CheckUsernameUniqueness(ctx, uname, email, excludedIDs...); err != nil {
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

// Create registers a new active user; users without roles are students.
func (svc *Service) Create(ctx context.Context, nu NewUser) (User, error) {
	nu.Clean()
	if err := core.ValidateStruct(svc.validate, svc.translator, nu); err != nil {
		return User{}, err
	}
	if err := svc.checkUniqueness(ctx, nu.Username, nu.Email); err != nil {
		return User{}, err
	}

	roles := nu.Roles
	if len(roles) == 0 {
		roles = []string{RoleStudent}
	}
	now := time.Now().UTC()
	usr := User{
		Name:      nu.Name,
		Username:  nu.Username,
		Email:     nu.Email,
		IsActive:  true,
		Roles:     roles,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := usr.SetPassword(nu.Password); err != nil {
		return User{}, err
	}
	return svc.repo.CreateUser(ctx, usr)
}

// Authenticate checks the credentials of an active user and records the login.
func (svc *Service) Authenticate(ctx context.Context, username, pwd string) (User, error) {
	usr, err := svc.GetByUsernameOrEmail(ctx, username)
	if err != nil {
		if errors.Is(err, core.ErrNotFound) {
			return User{}, ErrInvalidCredentials
		}
		return User{}, err
	}
	if !usr.IsActive || usr.CheckPassword(pwd) != nil {
		return User{}, ErrInvalidCredentials
	}

	usr.LastLogin = time.Now().UTC()
	return svc.repo.UpdateUser(ctx, usr)
}

func (svc *Service) Query(ctx context.Context, filter *QueryFilter, ordering ...core.DBOrdering) ([]User, error) {
	if filter != nil {
		filter.Clean()
	}
	return svc.repo.QueryUsers(ctx, filter, ordering...)
}

func (svc *Service) GetByID(ctx context.Context, id string) (User, error) {
	return svc.repo.GetUser(ctx, GetFilter{ID: id})
}

func (svc *Service) GetByUsernameOrEmail(ctx context.Context, uname string) (User, error) {
	return svc.repo.GetUser(ctx, GetFilter{UsernameOrEmail: core.CleanString(uname, true /* lower */)})
}

// SetPassword applies the password policy then replaces the password of user id.
func (svc *Service) SetPassword(ctx context.Context, id string, sp SetUserPassword) (User, error) {
	usr, err := svc.GetByID(ctx, id)
	if err != nil {
		return User{}, err
	}
	sp.user = usr
	if err := core.ValidateStruct(svc.validate, svc.translator, sp); err != nil {
		return User{}, err
	}
	if err := usr.SetPassword(sp.Password); err != nil {
		return User{}, err
	}
	usr.UpdatedAt = time.Now().UTC()
	return svc.repo.UpdateUser(ctx, usr)
}

func (svc *Service) SetActive(ctx context.Context, id string, active bool) (User, error) {
	usr, err := svc.GetByID(ctx, id)
	if err != nil {
		return User{}, err
	}
	usr.IsActive = active
	usr.UpdatedAt = time.Now().UTC()
	return svc.repo.UpdateUser(ctx, usr)
}

func (svc *Service) Delete(ctx context.Context, ids ...string) error {
	return svc.repo.DeleteUsersByID(ctx, ids...)
}

// RequestPasswordReset emails a reset token to the active user owning email.
// Unknown emails are ignored so callers cannot discover which accounts exist.
func (svc *Service) RequestPasswordReset(ctx context.Context, email string) error {
	usr, err := svc.repo.GetUser(ctx, GetFilter{Email: core.CleanString(email, true /* lower */)})
	if err != nil {
		if errors.Is(err, core.ErrNotFound) {
			return nil
		}
		return err
	}
	if !usr.IsActive {
		return nil
	}

	svc.mailSvc.SendMessages(&core.EmailMessage{
		To:           []mail.Address{{Name: usr.Name, Address: usr.Email}},
		Subject:      "Password reset on " + svc.appName,
		TextTemplate: passwordResetText,
		TemplateData: map[string]string{
			"Name":    usr.Name,
			"AppName": svc.appName,
			"UID":     EncodeUID(usr),
			"Token":   svc.tokens.makeToken(usr),
		},
	})
	return nil
}

// ResetPassword sets a new password if the uid and token of the reset email are still valid.
func (svc *Service) ResetPassword(ctx context.Context, rp ResetUserPassword) (User, error) {
	if err := core.ValidateStruct(svc.validate, svc.translator, rp); err != nil {
		return User{}, err
	}
	id, err := decodeUID(rp.UID)
	if err != nil {
		return User{}, ErrInvalidResetLink
	}
	usr, err := svc.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, core.ErrNotFound) {
			return User{}, ErrInvalidResetLink
		}
		return User{}, err
	}
	if err := svc.tokens.verifyToken(usr, rp.Token); err != nil {
		return User{}, ErrInvalidResetLink
	}
	return svc.SetPassword(ctx, usr.ID, SetUserPassword{Password: rp.Password, PasswordConfirm: rp.PasswordConfirm})
}
