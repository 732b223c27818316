// Package testutil wires in-memory services and builds fixtures shared by the API, client and CLI tests.
package testutil

import (
	"context"
	"testing"
	"time"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/sirupsen/logrus/hooks/test"

	"github.com/trezcool/ratiba/core"
	"github.com/trezcool/ratiba/core/course"
	"github.com/trezcool/ratiba/core/room"
	"github.com/trezcool/ratiba/core/stats"
	"github.com/trezcool/ratiba/core/teacher"
	"github.com/trezcool/ratiba/core/timetable"
	"github.com/trezcool/ratiba/core/user"
	emailsvc "github.com/trezcool/ratiba/services/email"
	logsvc "github.com/trezcool/ratiba/services/logger"
	inmemdb "github.com/trezcool/ratiba/storage/database/inmem"
)

// Env holds services backed by a fresh in-memory database.
type Env struct {
	Conf       *core.Config
	Logger     core.Logger
	Validate   *validator.Validate
	Translator ut.Translator
	Mailer     *emailsvc.ConsoleService

	UserRepo user.Repository

	Users      *user.Service
	Rooms      *room.Service
	Teachers   *teacher.Service
	Courses    *course.Service
	Timetables *timetable.Service
	Stats      *stats.Service
}

func NewEnv(t *testing.T) *Env {
	t.Helper()

	conf := core.NewTestConfig()
	std, _ := test.NewNullLogger()
	logger := logsvc.NewRollbarLogger(std, "test", conf)
	validate, translator := core.NewValidator()
	mailer := emailsvc.NewConsoleServiceMock(conf, logger)

	db := inmemdb.Open()
	env := &Env{
		Conf:       conf,
		Logger:     logger,
		Validate:   validate,
		Translator: translator,
		Mailer:     mailer,
		UserRepo:   inmemdb.NewUserRepository(db),
	}
	env.Users = user.NewService(env.UserRepo, validate, translator, mailer, conf)
	env.Rooms = room.NewService(inmemdb.NewRoomRepository(db), validate, translator)
	env.Teachers = teacher.NewService(inmemdb.NewTeacherRepository(db), validate, translator)
	env.Courses = course.NewService(inmemdb.NewCourseRepository(db), validate, translator)
	env.Timetables = timetable.NewService(inmemdb.NewTimetableRepository(db), validate, translator, mailer, conf.AdminEmails)
	env.Stats = stats.NewService(env.Rooms, env.Teachers, env.Courses, env.Timetables)
	return env
}

func CreateUser(
	t *testing.T,
	repo user.Repository,
	name, uname, email, pwd string,
	roles []string,
	isActive bool,
	createdAt ...time.Time,
) user.User {
	t.Helper()

	tstamp := time.Now().UTC()
	if len(createdAt) > 0 {
		tstamp = createdAt[0].UTC()
	}
	usr := user.User{
		Name:      name,
		Username:  uname,
		Email:     email,
		Roles:     roles,
		IsActive:  isActive,
		CreatedAt: tstamp,
		UpdatedAt: tstamp,
	}
	if pwd != "" {
		if err := usr.SetPassword(pwd); err != nil {
			t.Fatalf("createUser() failed: %v", err)
		}
	}
	usr, err := repo.CreateUser(context.Background(), usr)
	if err != nil {
		t.Fatalf("createUser() failed: %v", err)
	}
	return usr
}

func NewRoom(name, building string, capacity int) room.Room {
	r := room.Template()
	r.Name, r.Building, r.Capacity = name, building, capacity
	r.Type = room.TypeLectureHall
	return r
}

func CreateRoom(t *testing.T, svc *room.Service, name, building string, capacity int) room.Room {
	t.Helper()
	r, err := svc.Create(context.Background(), NewRoom(name, building, capacity))
	if err != nil {
		t.Fatalf("createRoom() failed: %v", err)
	}
	return r
}

func NewTeacher(name, email, department string) teacher.Teacher {
	tch := teacher.Template()
	tch.Name, tch.Email, tch.Department = name, email, department
	return tch
}

func CreateTeacher(t *testing.T, svc *teacher.Service, name, email, department string) teacher.Teacher {
	t.Helper()
	tch, err := svc.Create(context.Background(), NewTeacher(name, email, department))
	if err != nil {
		t.Fatalf("createTeacher() failed: %v", err)
	}
	return tch
}

func NewCourse(code, name, program string, semester int) course.Course {
	c := course.Template()
	c.Code, c.Name, c.Program, c.Semester = code, name, program, semester
	return c
}

func CreateCourse(t *testing.T, svc *course.Service, code, name, program string, semester int) course.Course {
	t.Helper()
	c, err := svc.Create(context.Background(), NewCourse(code, name, program, semester))
	if err != nil {
		t.Fatalf("createCourse() failed: %v", err)
	}
	return c
}

// NewTimetable returns a draft with two Monday sessions in A101.
func NewTimetable(name, program string, semester int) timetable.Timetable {
	return timetable.Timetable{
		Name:     name,
		Program:  program,
		Semester: semester,
		Sessions: []timetable.Session{
			{Day: "monday", StartTime: "08:00", EndTime: "10:00", CourseCode: "CS101", CourseName: "Programming",
				SessionType: timetable.SessionLecture, Teacher: "Dr. Otieno", Classroom: "A101", StudentCount: 60},
			{Day: "monday", StartTime: "10:00", EndTime: "12:00", CourseCode: "CS102", CourseName: "Discrete Maths",
				SessionType: timetable.SessionTutorial, Teacher: "Dr. Wanjiru", Classroom: "A101", StudentCount: 40},
		},
	}
}

func CreateTimetable(t *testing.T, svc *timetable.Service, name, program string, semester int) timetable.Timetable {
	t.Helper()
	tt, err := svc.Create(context.Background(), NewTimetable(name, program, semester))
	if err != nil {
		t.Fatalf("createTimetable() failed: %v", err)
	}
	return tt
}
