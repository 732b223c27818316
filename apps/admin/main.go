package main

import (
	"fmt"
	"os"

	"github.com/pkg/errors"

	"github.com/trezcool/ratiba/core"
	"github.com/trezcool/ratiba/core/course"
	"github.com/trezcool/ratiba/core/room"
	"github.com/trezcool/ratiba/core/teacher"
	"github.com/trezcool/ratiba/core/timetable"
	"github.com/trezcool/ratiba/core/user"
	emailsvc "github.com/trezcool/ratiba/services/email"
	logsvc "github.com/trezcool/ratiba/services/logger"
	"github.com/trezcool/ratiba/storage/database"
	sqlxrepos "github.com/trezcool/ratiba/storage/database/sqlx"
)

var logger core.Logger

func main() {
	conf := core.NewConfig()
	logger = logsvc.NewRollbarLogger(logsvc.NewStdLogger(conf), "admin", conf)

	// set up DB
	db, err := database.Open(conf)
	errAndDie(err)
	defer func() { _ = db.Close() }()

	// set up services
	validate, translator := core.NewValidator()
	mailSvc := emailsvc.NewEmailService(conf, logger)
	usrRepo := sqlxrepos.NewUserRepository(db)

	// start CLI
	cli := commandLine{
		db:         db,
		conf:       conf,
		out:        os.Stdout,
		usrRepo:    usrRepo,
		usrSvc:     user.NewService(usrRepo, validate, translator, mailSvc, conf),
		rooms:      room.NewService(sqlxrepos.NewRoomRepository(db), validate, translator),
		teachers:   teacher.NewService(sqlxrepos.NewTeacherRepository(db), validate, translator),
		courses:    course.NewService(sqlxrepos.NewCourseRepository(db), validate, translator),
		timetables: timetable.NewService(sqlxrepos.NewTimetableRepository(db), validate, translator, mailSvc, conf.AdminEmails),
	}
	if err := cli.run(os.Args); err != nil {
		if !errors.Is(err, errHelp) {
			logger.Error(fmt.Sprintf("%s: %v", cli.command(os.Args), err), err)
		}
		_ = db.Close()
		os.Exit(1)
	}
}

func errAndDie(err error) {
	if err != nil {
		logger.Fatal(err.Error(), err)
	}
}
