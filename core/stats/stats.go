// Package stats computes the dashboard figures from the current administration data.
// Nothing is cached: every call reduces fresh lists.
package stats

import (
	"context"

	"github.com/kat-co/vala"
	"github.com/pkg/errors"

	"github.com/trezcool/ratiba/core"
	"github.com/trezcool/ratiba/core/course"
	"github.com/trezcool/ratiba/core/crud"
	"github.com/trezcool/ratiba/core/room"
	"github.com/trezcool/ratiba/core/teacher"
	"github.com/trezcool/ratiba/core/timetable"
)

type (
	DataStatistics struct {
		Teachers           int            `json:"teachers"`
		ActiveTeachers     int            `json:"active_teachers"`
		Classrooms         int            `json:"classrooms"`
		TotalCapacity      int            `json:"total_capacity"`
		Buildings          int            `json:"buildings"`
		Labs               int            `json:"labs"`
		Courses            int            `json:"courses"`
		Programs           int            `json:"programs"`
		Timetables         int            `json:"timetables"`
		TimetablesByStatus map[string]int `json:"timetables_by_status"`
	}

	StudentStats struct {
		TotalStudents    int            `json:"total_students"`
		ByProgram        map[string]int `json:"by_program"`
		BySessionType    map[string]int `json:"by_session_type"`
		AverageClassSize float64        `json:"average_class_size"`
	}
)

// Compute reduces the four collections into the dashboard figures.
func Compute(rooms []room.Room, teachers []teacher.Teacher, courses []course.Course, tts []timetable.Timetable) DataStatistics {
	rs := room.Summarize(rooms)
	ts := teacher.Summarize(teachers)
	cs := course.Summarize(courses)

	byStatus := make(map[string]int, len(timetable.Statuses))
	for _, s := range timetable.Statuses {
		byStatus[s] = 0
	}
	for s, n := range crud.GroupCount(tts, func(tt timetable.Timetable) string { return tt.Status }) {
		byStatus[s] = n
	}

	return DataStatistics{
		Teachers:           ts.Total,
		ActiveTeachers:     ts.Active,
		Classrooms:         rs.Total,
		TotalCapacity:      rs.TotalCapacity,
		Buildings:          rs.Buildings,
		Labs:               rs.Labs,
		Courses:            cs.Total,
		Programs:           cs.Programs,
		Timetables:         crud.Count(tts),
		TimetablesByStatus: byStatus,
	}
}

// ComputeStudents derives enrolment figures from approved and published timetables.
// A timetable's cohort is its largest session; sessions of other timetables are ignored.
func ComputeStudents(tts []timetable.Timetable) StudentStats {
	st := StudentStats{
		ByProgram:     make(map[string]int),
		BySessionType: make(map[string]int),
	}
	var seats, sessions int
	for _, tt := range tts {
		if tt.Status != timetable.StatusApproved && tt.Status != timetable.StatusPublished {
			continue
		}
		var cohort int
		for _, s := range tt.Sessions {
			if s.StudentCount > cohort {
				cohort = s.StudentCount
			}
			st.BySessionType[s.SessionType]++
			seats += s.StudentCount
			sessions++
		}
		st.TotalStudents += cohort
		st.ByProgram[tt.Program] += cohort
	}
	if sessions > 0 {
		st.AverageClassSize = float64(seats) / float64(sessions)
	}
	return st
}

type (
	RoomLister interface {
		List(ctx context.Context) ([]room.Room, error)
	}
	TeacherLister interface {
		List(ctx context.Context) ([]teacher.Teacher, error)
	}
	CourseLister interface {
		List(ctx context.Context) ([]course.Course, error)
	}
	TimetableLister interface {
		List(ctx context.Context) ([]timetable.Timetable, error)
	}

	Service struct {
		rooms      RoomLister
		teachers   TeacherLister
		courses    CourseLister
		timetables TimetableLister
	}
)

func NewService(rooms RoomLister, teachers TeacherLister, courses CourseLister, timetables TimetableLister) *Service {
	vala.BeginValidation().Validate(
		core.IsSet(rooms, "rooms"),
		core.IsSet(teachers, "teachers"),
		core.IsSet(courses, "courses"),
		core.IsSet(timetables, "timetables"),
	).CheckAndPanic()

	return &Service{rooms: rooms, teachers: teachers, courses: courses, timetables: timetables}
}

func (svc *Service) Data(ctx context.Context) (DataStatistics, error) {
	rooms, err := svc.rooms.List(ctx)
	if err != nil {
		return DataStatistics{}, errors.Wrap(err, "listing rooms")
	}
	teachers, err := svc.teachers.List(ctx)
	if err != nil {
		return DataStatistics{}, errors.Wrap(err, "listing teachers")
	}
	courses, err := svc.courses.List(ctx)
	if err != nil {
		return DataStatistics{}, errors.Wrap(err, "listing courses")
	}
	tts, err := svc.timetables.List(ctx)
	if err != nil {
		return DataStatistics{}, errors.Wrap(err, "listing timetables")
	}
	return Compute(rooms, teachers, courses, tts), nil
}

func (svc *Service) Students(ctx context.Context) (StudentStats, error) {
	tts, err := svc.timetables.List(ctx)
	if err != nil {
		return StudentStats{}, errors.Wrap(err, "listing timetables")
	}
	return ComputeStudents(tts), nil
}
