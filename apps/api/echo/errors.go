package echoapi

import (
	"net/http"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/pkg/errors"

	"github.com/trezcool/ratiba/core"
	"github.com/trezcool/ratiba/core/user"
)

var (
	errUnauthorized       = echo.NewHTTPError(http.StatusUnauthorized, "user not authenticated")
	errAccountDeactivated = echo.NewHTTPError(http.StatusForbidden, "account deactivated")
	errRefreshExpired     = echo.NewHTTPError(http.StatusForbidden, "refresh has expired")
	errHTTPForbidden      = echo.NewHTTPError(http.StatusForbidden, "permission denied")
	errTooManyRequests    = echo.NewHTTPError(http.StatusTooManyRequests, "too many requests, try again later")
)

// newAppHTTPErrorHandler returns a custom echo.HTTPErrorHandler that knows how to handle our errors.
// signalShutdown is called in order to gracefully shutdown the Server whenever a core.shutdown error is caught.
func newAppHTTPErrorHandler(logger core.Logger, translator ut.Translator, signalShutdown func()) echo.HTTPErrorHandler {
	return func(err error, ctx echo.Context) {
		var (
			code int
			body errorResponse
		)

		var (
			httpErr *echo.HTTPError
			vErr    *core.ValidationError
			vErrs   validator.ValidationErrors
		)
		switch {
		case errors.As(err, &vErr):
			code = http.StatusBadRequest
			body.Error = vErr.Error()
			if len(vErr.Fields) > 0 {
				body.Error = "invalid input"
				body.Fields = vErr.FieldMap()
			}
		case errors.As(err, &vErrs):
			code = http.StatusBadRequest
			body.Error = "invalid input"
			body.Fields = core.TranslateErrors(vErrs, translator)
		case errors.Is(err, core.ErrNotFound):
			code = http.StatusNotFound
			body.Error = "not found"
		case errors.Is(err, user.ErrInvalidCredentials), errors.Is(err, user.ErrInvalidResetLink):
			code = http.StatusBadRequest
			body.Error = errors.Cause(err).Error()
		case errors.As(err, &httpErr):
			if httpErr == middleware.ErrJWTMissing {
				code = http.StatusUnauthorized
				body.Error = httpErr.Message.(string)
				break
			}
			if httpErr.Internal != nil {
				if herr, ok := httpErr.Internal.(*echo.HTTPError); ok {
					httpErr = herr
				}
			}
			code = httpErr.Code
			if msg, ok := httpErr.Message.(string); ok {
				body.Error = msg
			} else {
				body.Error = http.StatusText(code)
			}
		default: // any other error is a server error
			code = http.StatusInternalServerError
			msg := http.StatusText(http.StatusInternalServerError)
			body.Error = msg

			var sess core.Session
			if claims, cErr := getContextClaims(ctx); cErr == nil {
				sess = claims.Session("")
			}
			logger.Error(msg, errors.Wrap(err, msg), sess, map[string]interface{}{
				"method": ctx.Request().Method,
				"path":   ctx.Path(),
			})

			// shutting down...
			if core.IsShutdown(err) {
				signalShutdown()
			}
		}

		if ctx.Echo().Debug && code >= http.StatusInternalServerError {
			body.Error = err.Error()
		}

		// Send response
		if !ctx.Response().Committed {
			if ctx.Request().Method == http.MethodHead { // Issue #608
				err = ctx.NoContent(code)
			} else {
				err = ctx.JSON(code, body)
			}
			if err != nil {
				ctx.Echo().Logger.Error(err)
			}
		}
	}
}
