package timetable

import (
	"sort"
	"strings"
	"time"

	"github.com/trezcool/ratiba/core"
	"github.com/trezcool/ratiba/core/crud"
)

// Statuses
const (
	StatusDraft         = "draft"
	StatusPendingReview = "pending_review"
	StatusApproved      = "approved"
	StatusPublished     = "published"
	StatusRejected      = "rejected"
)

// Session types
const (
	SessionLecture  = "Lecture"
	SessionLab      = "Lab"
	SessionTutorial = "Tutorial"
	SessionSeminar  = "Seminar"
)

// Projections of a single timetable.
type Projection string

const (
	ProjectionFull    Projection = "full"
	ProjectionSummary Projection = "summary"
)

var (
	Statuses     = []string{StatusDraft, StatusPendingReview, StatusApproved, StatusPublished, StatusRejected}
	SessionTypes = []string{SessionLecture, SessionLab, SessionTutorial, SessionSeminar}

	// transitions lists the statuses reachable from each status.
	transitions = map[string][]string{
		StatusDraft:         {StatusPendingReview},
		StatusPendingReview: {StatusApproved, StatusRejected, StatusDraft},
		StatusApproved:      {StatusPublished, StatusRejected},
		StatusPublished:     {StatusDraft},
		StatusRejected:      {StatusDraft, StatusPendingReview},
	}
)

// CanTransition reports whether a timetable in status from may move to status to.
func CanTransition(from, to string) bool {
	return crud.Contains(transitions[from], to)
}

func ParseProjection(s string) (Projection, bool) {
	switch Projection(core.CleanString(s, true /* lower */)) {
	case "", ProjectionFull:
		return ProjectionFull, true
	case ProjectionSummary:
		return ProjectionSummary, true
	}
	return "", false
}

// Session is one weekly slot of a timetable.
type Session struct {
	Day          string `json:"day" validate:"weekday"`
	StartTime    string `json:"start_time" validate:"clock"`
	EndTime      string `json:"end_time" validate:"clock"`
	CourseCode   string `json:"course_code" validate:"notblank"`
	CourseName   string `json:"course_name"`
	SessionType  string `json:"session_type" validate:"sessiontype"`
	Teacher      string `json:"teacher"`
	Classroom    string `json:"classroom"`
	StudentCount int    `json:"student_count" validate:"gte=0"`
}

type Comment struct {
	ID        string    `json:"id"`
	Author    string    `json:"author"`
	Text      string    `json:"text"`
	CreatedAt time.Time `json:"created_at"` // UTC
}

type Timetable struct {
	ID           string    `json:"id"`
	Name         string    `json:"name" validate:"notblank,max=200"`
	Program      string    `json:"program" validate:"notblank,max=120"`
	Semester     int       `json:"semester" validate:"min=1,max=12"`
	AcademicYear string    `json:"academic_year" validate:"max=20"`
	Status       string    `json:"status" validate:"oneof=draft pending_review approved published rejected"`
	Sessions     []Session `json:"sessions,omitempty" validate:"dive"`
	Comments     []Comment `json:"comments,omitempty"`
	SessionCount int       `json:"session_count"`
	CommentCount int       `json:"comment_count"`
	CreatedAt    time.Time `json:"created_at"` // UTC
	UpdatedAt    time.Time `json:"updated_at"` // UTC
}

func (tt Timetable) Key() string { return tt.ID }

func (tt Timetable) Clone() Timetable {
	c := tt
	if tt.Sessions != nil {
		c.Sessions = append([]Session(nil), tt.Sessions...)
	}
	if tt.Comments != nil {
		c.Comments = append([]Comment(nil), tt.Comments...)
	}
	return c
}

// Project strips sessions and comments for the summary projection; counts are always kept.
func (tt Timetable) Project(p Projection) Timetable {
	tt.SessionCount = len(tt.Sessions)
	tt.CommentCount = len(tt.Comments)
	if p == ProjectionSummary {
		tt.Sessions = nil
		tt.Comments = nil
	}
	return tt
}

func (tt *Timetable) Clean() {
	tt.Name = core.CleanString(tt.Name)
	tt.Program = core.CleanString(tt.Program)
	tt.AcademicYear = core.CleanString(tt.AcademicYear)
	tt.Status = core.CleanString(tt.Status, true /* lower */)
	if tt.Status == "" {
		tt.Status = StatusDraft
	}
	for i := range tt.Sessions {
		s := &tt.Sessions[i]
		s.Day = core.NormalizeDay(s.Day)
		s.StartTime = core.CleanString(s.StartTime)
		s.EndTime = core.CleanString(s.EndTime)
		s.CourseCode = strings.ToUpper(core.CleanString(s.CourseCode))
		s.CourseName = core.CleanString(s.CourseName)
		s.SessionType = core.CleanString(s.SessionType)
		if s.SessionType == "" {
			s.SessionType = SessionLecture
		}
		s.Teacher = core.CleanString(s.Teacher)
		s.Classroom = core.CleanString(s.Classroom)
	}
	tt.Sessions = SortSessions(tt.Sessions)
}

// SortSessions orders by week day then start time (stable for equal slots).
func SortSessions(sessions []Session) []Session {
	out := append([]Session(nil), sessions...)
	sort.SliceStable(out, func(i, j int) bool {
		di, dj := core.DayIndex(out[i].Day), core.DayIndex(out[j].Day)
		if di != dj {
			return di < dj
		}
		si, _ := core.ParseClock(out[i].StartTime)
		sj, _ := core.ParseClock(out[j].StartTime)
		return si < sj
	})
	return out
}

type QueryFilter struct {
	Status   string `query:"status"`
	Program  string `query:"program"`
	Semester int    `query:"semester"`
	Search   string `query:"search"`
}

func (qf *QueryFilter) IsEmpty() bool {
	return qf == nil || (qf.Status == "" && qf.Program == "" && qf.Semester == 0 && qf.Search == "")
}

func (qf *QueryFilter) Clean() {
	qf.Status = core.CleanString(qf.Status, true /* lower */)
	qf.Program = core.CleanString(qf.Program)
	qf.Search = core.CleanString(qf.Search)
}

// Match applies AND on the set fields; Search is a case-insensitive match on name, program or academic year.
func (qf *QueryFilter) Match(tt Timetable) bool {
	if qf.IsEmpty() {
		return true
	}
	if qf.Status != "" && tt.Status != qf.Status {
		return false
	}
	if qf.Program != "" && !strings.EqualFold(tt.Program, qf.Program) {
		return false
	}
	if qf.Semester != 0 && tt.Semester != qf.Semester {
		return false
	}
	if qf.Search != "" {
		return len(crud.Search([]Timetable{tt}, qf.Search, func(tt Timetable) []string {
			return []string{tt.Name, tt.Program, tt.AcademicYear}
		})) == 1
	}
	return true
}
