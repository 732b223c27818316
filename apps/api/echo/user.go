package echoapi

import (
	"net/http"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/ratiba/core"
	"github.com/trezcool/ratiba/core/user"
)

const passwordResetSent = "If the email address supplied is associated with an active account on this system, " +
	"an email will arrive in your inbox shortly with instructions to reset your password."

type userAPI struct {
	svc        *user.Service
	auth       *authenticator
	validate   *validator.Validate
	translator ut.Translator
}

func registerUserAPI(
	g *echo.Group,
	jwt echo.MiddlewareFunc,
	auth *authenticator,
	svc *user.Service,
	validate *validator.Validate,
	translator ut.Translator,
	limiter HitCounter,
	conf core.ServerConfig,
) {
	api := userAPI{
		svc:        svc,
		auth:       auth,
		validate:   validate,
		translator: translator,
	}

	ug := g.Group("/users")

	// un-authed endpoints
	limit := rateLimitMiddleware(limiter, "login", conf.LoginRateLimit, conf.LoginRateWindow)
	ug.POST("/login", api.login, limit)
	ug.POST("/register", api.register, limit)
	ug.POST("/password-reset", api.resetPassword, limit)
	ug.POST("/password-reset-confirm", api.confirmPasswordReset)

	// authed endpoints
	ag := ug.Group("", jwt)
	ag.POST("/token-refresh", api.refreshToken)
	ag.GET("/me", api.me)
	ag.PUT("/me/password", api.setPassword)
	ag.GET("", api.query, adminMiddleware())
	ag.GET("/roles", api.queryRoles, adminMiddleware())
	ag.POST("", api.create, adminMiddleware())
	ag.PUT("/:id/active", api.setActive, adminMiddleware())
	ag.DELETE("/:id", api.destroy, adminMiddleware())
}

type (
	LoginResponse struct {
		Token string    `json:"token"`
		User  user.User `json:"user"`
	}

	TokenResponse struct {
		Token string `json:"token"`
	}

	PasswordResetRequest struct {
		Email string `json:"email" validate:"required,email"`
	}

	ActiveRequest struct {
		IsActive bool `json:"is_active"`
	}

	MessageResponse struct {
		Message string `json:"message"`
	}
)

// Handlers

func (api *userAPI) login(ctx echo.Context) error {
	var data user.LoginUser
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to LoginUser")
	}
	data.Username = core.CleanString(data.Username, true /* lower */)
	if err := core.ValidateStruct(api.validate, api.translator, data); err != nil {
		return err
	}

	usr, err := api.svc.Authenticate(ctx.Request().Context(), data.Username, data.Password)
	if err != nil {
		return err
	}
	token, err := api.auth.Token(usr)
	if err != nil {
		return errors.Wrap(err, "generating token")
	}
	return ok(ctx, LoginResponse{Token: token, User: usr})
}

// register signs up a student account; roles can only be granted by an admin.
func (api *userAPI) register(ctx echo.Context) error {
	var data user.NewUser
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewUser")
	}
	data.Roles = nil

	usr, err := api.svc.Create(ctx.Request().Context(), data)
	if err != nil {
		return err
	}
	token, err := api.auth.Token(usr)
	if err != nil {
		return errors.Wrap(err, "generating token")
	}
	return respond(ctx, http.StatusCreated, LoginResponse{Token: token, User: usr})
}

// create lets an admin add a user with roles up to their own.
func (api *userAPI) create(ctx echo.Context) error {
	var data user.NewUser
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewUser")
	}

	ctxUsr, err := getContextUser(ctx, api.svc)
	if err != nil {
		return err
	}
	if user.MaxRolePriority(data.Roles) > user.MaxRolePriority(ctxUsr.Roles) {
		return core.NewValidationError(nil, core.FieldError{Field: "roles", Error: "not enough rights to set these roles"})
	}

	usr, err := api.svc.Create(ctx.Request().Context(), data)
	if err != nil {
		return err
	}
	return respond(ctx, http.StatusCreated, usr)
}

func (api *userAPI) resetPassword(ctx echo.Context) error {
	var data PasswordResetRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to PasswordResetRequest")
	}
	data.Email = core.CleanString(data.Email, true /* lower */)
	if err := core.ValidateStruct(api.validate, api.translator, data); err != nil {
		return err
	}

	if err := api.svc.RequestPasswordReset(ctx.Request().Context(), data.Email); err != nil {
		// do not return errors to attackers
		ctx.Logger().Errorf("%+v", errors.Wrap(err, "requesting password reset"))
	}
	return ok(ctx, MessageResponse{Message: passwordResetSent})
}

func (api *userAPI) confirmPasswordReset(ctx echo.Context) error {
	var data user.ResetUserPassword
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to ResetUserPassword")
	}
	if _, err := api.svc.ResetPassword(ctx.Request().Context(), data); err != nil {
		return err
	}
	return ok(ctx, MessageResponse{Message: "Password has been reset with the new password."})
}

func (api *userAPI) refreshToken(ctx echo.Context) error {
	token, err := api.auth.refresh(ctx, api.svc)
	if err != nil {
		return err
	}
	return ok(ctx, TokenResponse{Token: token})
}

func (api *userAPI) me(ctx echo.Context) error {
	usr, err := getContextUser(ctx, api.svc)
	if err != nil {
		return err
	}
	return ok(ctx, usr)
}

func (api *userAPI) setPassword(ctx echo.Context) error {
	var data user.SetUserPassword
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to SetUserPassword")
	}
	usr, err := getContextUser(ctx, api.svc)
	if err != nil {
		return err
	}
	usr, err = api.svc.SetPassword(ctx.Request().Context(), usr.ID, data)
	if err != nil {
		return err
	}
	return ok(ctx, usr)
}

func (api *userAPI) query(ctx echo.Context) error {
	filter := &user.QueryFilter{
		Search: ctx.QueryParam("search"),
		Role:   ctx.QueryParam("role"),
	}
	if v := ctx.QueryParam("is_active"); v != "" {
		active, err := core.ParseBool(v)
		if err != nil {
			return core.NewValidationError(err, core.FieldError{Field: "is_active", Error: "is_active must be true or false"})
		}
		filter.IsActive = &active
	}
	ordering := new(Ordering)
	ordering.Bind(ctx)

	users, err := api.svc.Query(ctx.Request().Context(), filter, ordering.Orderings...)
	if err != nil {
		return errors.Wrap(err, "querying users")
	}
	if users == nil {
		users = []user.User{}
	}
	return ok(ctx, users)
}

func (api *userAPI) queryRoles(ctx echo.Context) error {
	return ok(ctx, user.Roles)
}

func (api *userAPI) setActive(ctx echo.Context) error {
	var data ActiveRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to ActiveRequest")
	}
	ctxUsr, err := getContextUser(ctx, api.svc)
	if err != nil {
		return err
	}
	if ctx.Param("id") == ctxUsr.ID {
		return errHTTPForbidden
	}
	usr, err := api.svc.SetActive(ctx.Request().Context(), ctx.Param("id"), data.IsActive)
	if err != nil {
		return err
	}
	return ok(ctx, usr)
}

func (api *userAPI) destroy(ctx echo.Context) error {
	// Say No to Suicide! ctxUser cannot delete themselves
	ctxUsr, err := getContextUser(ctx, api.svc)
	if err != nil {
		return err
	}
	id := ctx.Param("id")
	if id == ctxUsr.ID {
		return errHTTPForbidden
	}
	if _, err := api.svc.GetByID(ctx.Request().Context(), id); err != nil {
		return err
	}
	if err := api.svc.Delete(ctx.Request().Context(), id); err != nil {
		return errors.Wrap(err, "deleting user")
	}
	return ctx.NoContent(http.StatusNoContent)
}
