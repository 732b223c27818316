package main

import (
	"context"
	"expvar"
	"fmt"
	"net/http"
	_ "net/http/pprof" // /debug/pprof on the debug server

	"github.com/go-redis/redis/v8"
	"github.com/jmoiron/sqlx"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	echoapi "github.com/trezcool/ratiba/apps/api/echo"
	"github.com/trezcool/ratiba/core"
	"github.com/trezcool/ratiba/core/course"
	"github.com/trezcool/ratiba/core/room"
	"github.com/trezcool/ratiba/core/stats"
	"github.com/trezcool/ratiba/core/teacher"
	"github.com/trezcool/ratiba/core/timetable"
	"github.com/trezcool/ratiba/core/user"
	emailsvc "github.com/trezcool/ratiba/services/email"
	logsvc "github.com/trezcool/ratiba/services/logger"
	"github.com/trezcool/ratiba/storage/database"
	inmemdb "github.com/trezcool/ratiba/storage/database/inmem"
	sqlxrepos "github.com/trezcool/ratiba/storage/database/sqlx"
)

const engineMemory = "memory"

type repositories struct {
	users      user.Repository
	rooms      room.Repository
	teachers   teacher.Repository
	courses    course.Repository
	timetables timetable.Repository
}

func main() {
	// =========================================================================
	// Set up Dependencies

	conf := core.NewConfig()

	// set up loggers
	std := logsvc.NewStdLogger(conf)
	logger := logsvc.NewRollbarLogger(std, "api", conf)
	dbLogger := logsvc.NewRollbarLogger(std, "db", conf)

	// set up DB
	repos, closeDB, err := setUpRepositories(conf)
	if err != nil {
		logger.Fatal(fmt.Sprintf("setting up database: %v", err), err)
	}
	defer func() {
		if err := closeDB(); err != nil {
			dbLogger.Fatal("Failed to close", err)
		}
	}()

	// set up services
	validate, translator := core.NewValidator()
	mailSvc := emailsvc.NewEmailService(conf, logger)

	usrSvc := user.NewService(repos.users, validate, translator, mailSvc, conf)
	roomSvc := room.NewService(repos.rooms, validate, translator)
	teacherSvc := teacher.NewService(repos.teachers, validate, translator)
	courseSvc := course.NewService(repos.courses, validate, translator)
	timetableSvc := timetable.NewService(repos.timetables, validate, translator, mailSvc, conf.AdminEmails)
	statsSvc := stats.NewService(roomSvc, teacherSvc, courseSvc, timetableSvc)

	var limiter echoapi.HitCounter
	if conf.Redis.Addr != "" {
		rdb := redis.NewClient(&redis.Options{
			Addr:     conf.Redis.Addr,
			Password: conf.Redis.Password,
			DB:       conf.Redis.DB,
		})
		defer func() { _ = rdb.Close() }()
		if err := rdb.Ping(context.Background()).Err(); err != nil {
			// requests are let through while redis is down
			logger.Error("redis unreachable, login is not rate limited", err)
		}
		limiter = echoapi.NewRedisCounter(rdb)
	}

	// =========================================================================
	// Initialize App

	logger.Info(fmt.Sprintf("Application initializing : version %q", conf.Build))
	defer logger.Info("Application stopped")

	// =========================================================================
	// Start Debug Service
	//
	// /debug/pprof - Added to the default mux by importing the net/http/pprof package.
	// /debug/vars - Added to the default mux by importing the expvar package.
	// /metrics - Prometheus metrics of the API.

	// Expose important info under /debug/vars.
	expvar.NewString("build").Set(conf.Build)
	expvar.NewString("env").Set(conf.Env)

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	http.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))

	go func() {
		if err := http.ListenAndServe(conf.Server.DebugHost, http.DefaultServeMux); err != nil {
			logger.Error(fmt.Sprintf("debug server closed: %v", err), err)
		}
	}()

	// =========================================================================
	// Start API Service

	server := echoapi.NewServer(
		echoapi.ServerDeps{
			Conf:         conf,
			Logger:       logger,
			Validate:     validate,
			Translator:   translator,
			UserSvc:      usrSvc,
			RoomSvc:      roomSvc,
			TeacherSvc:   teacherSvc,
			CourseSvc:    courseSvc,
			TimetableSvc: timetableSvc,
			StatsSvc:     statsSvc,
			LoginLimiter: limiter,
			Metrics:      echoapi.NewMetrics(reg),
		},
	)

	go func() {
		server.Start()
	}()

	// =========================================================================
	// Shutdown

	select {
	case err = <-server.Errors():
		logger.Fatal(fmt.Sprintf("server error: %v", err), err)

	case sig := <-server.ShutdownSignal():
		logger.Info(fmt.Sprintf("%v: Start shutdown...", sig))

		// give outstanding requests a deadline for completion
		ctx, cancel := context.WithTimeout(context.Background(), conf.Server.ShutdownTimeout)
		defer cancel()

		// asking listener to shutdown and shed load
		if err = server.Shutdown(ctx); err != nil {
			logger.Error(fmt.Sprintf("could not stop server gracefully: %v", err), err)

			if err = server.Close(); err != nil {
				logger.Fatal(fmt.Sprintf("could not force stop server: %v", err), err)
			}
		}
	}
}

// setUpRepositories opens and migrates the configured database.
// The "memory" engine keeps everything in process, for demos.
func setUpRepositories(conf *core.Config) (repositories, func() error, error) {
	if conf.Database.Engine == engineMemory {
		db := inmemdb.Open()
		return repositories{
			users:      inmemdb.NewUserRepository(db),
			rooms:      inmemdb.NewRoomRepository(db),
			teachers:   inmemdb.NewTeacherRepository(db),
			courses:    inmemdb.NewCourseRepository(db),
			timetables: inmemdb.NewTimetableRepository(db),
		}, func() error { return nil }, nil
	}

	db, err := setUpDB(conf)
	if err != nil {
		return repositories{}, nil, err
	}
	return repositories{
		users:      sqlxrepos.NewUserRepository(db),
		rooms:      sqlxrepos.NewRoomRepository(db),
		teachers:   sqlxrepos.NewTeacherRepository(db),
		courses:    sqlxrepos.NewCourseRepository(db),
		timetables: sqlxrepos.NewTimetableRepository(db),
	}, db.Close, nil
}

func setUpDB(conf *core.Config) (*sqlx.DB, error) {
	if err := database.CreateIfNotExist(conf); err != nil {
		return nil, err
	}

	db, err := database.Open(conf)
	if err != nil {
		return nil, err
	}

	if err = database.Migrate(db); err != nil {
		_ = db.Close()
		return nil, err
	}
	return db, nil
}
