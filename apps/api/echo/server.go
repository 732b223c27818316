package echoapi

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/kat-co/vala"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/labstack/gommon/log"

	"github.com/trezcool/ratiba/core"
	"github.com/trezcool/ratiba/core/course"
	"github.com/trezcool/ratiba/core/room"
	"github.com/trezcool/ratiba/core/stats"
	"github.com/trezcool/ratiba/core/teacher"
	"github.com/trezcool/ratiba/core/timetable"
	"github.com/trezcool/ratiba/core/user"
)

type (
	ServerDeps struct {
		Conf       *core.Config
		Logger     core.Logger
		Validate   *validator.Validate
		Translator ut.Translator

		UserSvc      *user.Service
		RoomSvc      *room.Service
		TeacherSvc   *teacher.Service
		CourseSvc    *course.Service
		TimetableSvc *timetable.Service
		StatsSvc     *stats.Service

		// optional
		LoginLimiter   HitCounter
		Metrics        *Metrics
		DisableReqLogs bool
	}

	Server struct {
		deps     ServerDeps
		app      *echo.Echo
		auth     *authenticator
		errors   chan error
		shutdown chan os.Signal
	}
)

func NewServer(deps ServerDeps) *Server {
	vala.BeginValidation().Validate(
		core.IsSet(deps.Conf, "Conf"),
		core.IsSet(deps.Logger, "Logger"),
		core.IsSet(deps.Validate, "Validate"),
		core.IsSet(deps.Translator, "Translator"),
		core.IsSet(deps.UserSvc, "UserSvc"),
		core.IsSet(deps.RoomSvc, "RoomSvc"),
		core.IsSet(deps.TeacherSvc, "TeacherSvc"),
		core.IsSet(deps.CourseSvc, "CourseSvc"),
		core.IsSet(deps.TimetableSvc, "TimetableSvc"),
		core.IsSet(deps.StatsSvc, "StatsSvc"),
	).CheckAndPanic()

	s := &Server{
		deps:     deps,
		app:      echo.New(),
		auth:     newAuthenticator(deps.Conf),
		errors:   make(chan error, 1),
		shutdown: make(chan os.Signal, 1),
	}
	signal.Notify(s.shutdown, os.Interrupt, syscall.SIGTERM)
	s.setup()
	return s
}

func (s *Server) setup() {
	conf := s.deps.Conf

	s.app.HideBanner = true
	s.app.Pre(middleware.RemoveTrailingSlash())
	if !s.deps.DisableReqLogs {
		s.app.Use(middleware.Logger())
	}
	// do not recover in DEV|TEST mode
	if !(conf.Debug || conf.TestMode) {
		s.app.Use(middleware.RecoverWithConfig(middleware.RecoverConfig{LogLevel: log.ERROR}))
	}
	if s.deps.Metrics != nil {
		s.app.Use(s.deps.Metrics.Middleware())
	}

	s.app.HTTPErrorHandler = newAppHTTPErrorHandler(s.deps.Logger, s.deps.Translator, s.signalShutdown)
	s.app.Debug = conf.Debug

	s.app.GET("/", s.home)

	v1 := s.app.Group("/v1")
	jwt := middleware.JWTWithConfig(s.auth.jwtConfig)

	registerUserAPI(v1, jwt, s.auth, s.deps.UserSvc, s.deps.Validate, s.deps.Translator, s.deps.LoginLimiter, conf.Server)
	registerResourceAPI[room.Room, room.QueryFilter, room.Summary](v1.Group("/classrooms", jwt), s.deps.RoomSvc)
	registerResourceAPI[teacher.Teacher, teacher.QueryFilter, teacher.Summary](v1.Group("/teachers", jwt), s.deps.TeacherSvc)
	registerResourceAPI[course.Course, course.QueryFilter, course.Summary](v1.Group("/courses", jwt), s.deps.CourseSvc)
	registerTimetableAPI(v1.Group("/timetables", jwt), s.deps.TimetableSvc)
	registerStatsAPI(v1.Group("/statistics", jwt), s.deps.StatsSvc)
}

// Start serves until the server is shut down; unexpected failures are sent to Errors.
func (s *Server) Start() {
	if err := s.app.Start(s.deps.Conf.Server.Address); err != nil && err != http.ErrServerClosed {
		s.errors <- err
	}
}

func (s *Server) Errors() <-chan error {
	return s.errors
}

func (s *Server) ShutdownSignal() <-chan os.Signal {
	return s.shutdown
}

func (s *Server) signalShutdown() {
	select {
	case s.shutdown <- syscall.SIGTERM:
	default: // already shutting down
	}
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.app.Shutdown(ctx)
}

func (s *Server) Close() error {
	return s.app.Close()
}

// IssueToken signs a token for usr, as the login endpoint does.
func (s *Server) IssueToken(usr user.User) (string, error) {
	return s.auth.Token(usr)
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) { // for tests
	s.app.ServeHTTP(w, r)
}

func (s *Server) home(ctx echo.Context) error {
	return ctx.String(http.StatusOK, "Welcome to "+s.deps.Conf.AppName+" API!")
}
