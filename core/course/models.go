package course

import (
	"strings"
	"time"

	"github.com/trezcool/ratiba/core"
	"github.com/trezcool/ratiba/core/crud"
)

// Types
const (
	TypeTheory          = "Theory"
	TypePractical       = "Practical"
	TypeTheoryPractical = "Theory+Practical"
	TypeElective        = "Elective"
)

// Statuses
const (
	StatusActive   = "Active"
	StatusInactive = "Inactive"
)

const (
	MinSemester = 1
	MaxSemester = 12
)

var (
	Types    = []string{TypeTheory, TypePractical, TypeTheoryPractical, TypeElective}
	Statuses = []string{StatusActive, StatusInactive}
)

type Course struct {
	ID            string    `json:"id"`
	Name          string    `json:"name" validate:"notblank,max=200"`
	Code          string    `json:"code" validate:"notblank,max=20"`
	Program       string    `json:"program" validate:"notblank,max=120"`
	Department    string    `json:"department" validate:"max=120"`
	Semester      int       `json:"semester" validate:"min=1,max=12"`
	Credits       int       `json:"credits" validate:"gt=0,lte=30"`
	Type          string    `json:"type" validate:"coursetype"`
	HoursPerWeek  int       `json:"hours_per_week" validate:"gt=0,lte=40"`
	HasLab        bool      `json:"has_lab"`
	LabHours      int       `json:"lab_hours" validate:"gte=0,lte=40"`
	Prerequisites []string  `json:"prerequisites" validate:"unique,dive,notblank"`
	Description   string    `json:"description" validate:"max=2000"`
	Status        string    `json:"status" validate:"oneof=Active Inactive"`
	CreatedAt     time.Time `json:"created_at"` // UTC
	UpdatedAt     time.Time `json:"updated_at"` // UTC
}

func Template() Course {
	return Course{
		Semester:      MinSemester,
		Credits:       3,
		Type:          TypeTheory,
		HoursPerWeek:  3,
		Prerequisites: []string{},
		Status:        StatusActive,
	}
}

func (c Course) Key() string { return c.ID }

func (c Course) Clone() Course {
	cc := c
	cc.Prerequisites = crud.CopyStrings(c.Prerequisites)
	return cc
}

func (c *Course) TogglePrerequisite(code string) {
	c.Prerequisites = crud.Toggle(c.Prerequisites, strings.ToUpper(core.CleanString(code)))
}

// TotalHours is the weekly contact time, lab included.
func (c Course) TotalHours() int {
	if !c.HasLab {
		return c.HoursPerWeek
	}
	return c.HoursPerWeek + c.LabHours
}

// Clean trims text, upper-cases codes and clears LabHours when the course has no lab.
func (c *Course) Clean() {
	c.Name = core.CleanString(c.Name)
	c.Code = strings.ToUpper(core.CleanString(c.Code))
	c.Program = core.CleanString(c.Program)
	c.Department = core.CleanString(c.Department)
	c.Type = core.CleanString(c.Type)
	c.Description = core.CleanString(c.Description)
	c.Status = core.CleanString(c.Status)
	if !c.HasLab {
		c.LabHours = 0
	}
	prereqs := make([]string, 0, len(c.Prerequisites))
	for _, p := range c.Prerequisites {
		if p = strings.ToUpper(core.CleanString(p)); p != "" {
			prereqs = append(prereqs, p)
		}
	}
	c.Prerequisites = prereqs
}

// SetField applies a textual form value.
func SetField(c *Course, path, value string) error {
	invalid := func(msg string) error {
		return core.NewValidationError(nil, core.FieldError{Field: path, Error: msg})
	}
	count := func(dst *int) error {
		n, err := core.ParseCount(value)
		if err != nil {
			return invalid(err.Error())
		}
		*dst = n
		return nil
	}

	switch path {
	case "name":
		c.Name = value
	case "code":
		c.Code = value
	case "program":
		c.Program = value
	case "department":
		c.Department = value
	case "type":
		c.Type = value
	case "description":
		c.Description = value
	case "status":
		c.Status = value
	case "prerequisites":
		c.Prerequisites = core.SplitList(value)
	case "semester":
		return count(&c.Semester)
	case "credits":
		return count(&c.Credits)
	case "hours_per_week", "hoursPerWeek":
		return count(&c.HoursPerWeek)
	case "lab_hours", "labHours":
		return count(&c.LabHours)
	case "has_lab", "hasLab":
		b, err := core.ParseBool(value)
		if err != nil {
			return invalid(err.Error())
		}
		c.HasLab = b
	default:
		return invalid("unknown field")
	}
	return nil
}

// Summary holds the list view aggregates.
type Summary struct {
	Total        int `json:"total"`
	Programs     int `json:"programs"`
	TotalCredits int `json:"total_credits"`
	WithLab      int `json:"with_lab"`
}

func Summarize(courses []Course) Summary {
	return Summary{
		Total:        crud.Count(courses),
		Programs:     crud.Distinct(courses, func(c Course) string { return c.Program }),
		TotalCredits: crud.Sum(courses, func(c Course) int { return c.Credits }),
		WithLab:      crud.CountWhere(courses, func(c Course) bool { return c.HasLab }),
	}
}

type QueryFilter struct {
	Search   string `query:"search"`
	Program  string `query:"program"`
	Semester int    `query:"semester"`
	Type     string `query:"type"`
	Status   string `query:"status"`
}

func (qf *QueryFilter) IsEmpty() bool {
	return qf == nil || (qf.Search == "" && qf.Program == "" && qf.Semester == 0 && qf.Type == "" && qf.Status == "")
}

func (qf *QueryFilter) Clean() {
	qf.Search = core.CleanString(qf.Search)
	qf.Program = core.CleanString(qf.Program)
	qf.Type = core.CleanString(qf.Type)
	qf.Status = core.CleanString(qf.Status)
}

// Match applies AND on the set fields; Search is a case-insensitive match on name or code.
func (qf *QueryFilter) Match(c Course) bool {
	if qf.IsEmpty() {
		return true
	}
	if qf.Program != "" && !strings.EqualFold(c.Program, qf.Program) {
		return false
	}
	if qf.Semester != 0 && c.Semester != qf.Semester {
		return false
	}
	if qf.Type != "" && !strings.EqualFold(c.Type, qf.Type) {
		return false
	}
	if qf.Status != "" && !strings.EqualFold(c.Status, qf.Status) {
		return false
	}
	if qf.Search != "" {
		return len(crud.Search([]Course{c}, qf.Search, func(c Course) []string {
			return []string{c.Name, c.Code}
		})) == 1
	}
	return true
}
