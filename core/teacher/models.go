package teacher

import (
	"strings"
	"time"

	"github.com/trezcool/ratiba/core"
	"github.com/trezcool/ratiba/core/crud"
)

// Statuses
const (
	StatusActive   = "Active"
	StatusOnLeave  = "On Leave"
	StatusInactive = "Inactive"
)

// Scheduling priorities
const (
	PriorityLow    = "low"
	PriorityMedium = "medium"
	PriorityHigh   = "high"
)

var (
	Statuses   = []string{StatusActive, StatusOnLeave, StatusInactive}
	Priorities = []string{PriorityLow, PriorityMedium, PriorityHigh}
)

// DayAvailability is the teaching window of one day.
type DayAvailability struct {
	Available bool   `json:"available"`
	StartTime string `json:"start_time"`
	EndTime   string `json:"end_time"`
}

type Teacher struct {
	ID              string                     `json:"id"`
	Name            string                     `json:"name" validate:"notblank,max=120"`
	Email           string                     `json:"email" validate:"required,email"`
	Phone           string                     `json:"phone" validate:"max=32"`
	Department      string                     `json:"department" validate:"notblank,max=120"`
	Designation     string                     `json:"designation" validate:"max=120"`
	Qualification   string                     `json:"qualification" validate:"max=120"`
	Experience      int                        `json:"experience" validate:"gte=0,lte=70"`
	Subjects        []string                   `json:"subjects" validate:"unique,dive,notblank"`
	MaxHoursPerWeek int                        `json:"max_hours_per_week" validate:"gt=0,lte=80"`
	Availability    map[string]DayAvailability `json:"availability" validate:"dive,keys,weekday,endkeys"`
	Priority        string                     `json:"priority" validate:"oneof=low medium high"`
	Status          string                     `json:"status" validate:"teacherstatus"`
	CreatedAt       time.Time                  `json:"created_at"` // UTC
	UpdatedAt       time.Time                  `json:"updated_at"` // UTC
}

// Template is the empty form: every day present and unavailable.
func Template() Teacher {
	avail := make(map[string]DayAvailability, len(core.Days))
	for _, d := range core.Days {
		avail[d] = DayAvailability{}
	}
	return Teacher{
		Subjects:        []string{},
		MaxHoursPerWeek: 20,
		Availability:    avail,
		Priority:        PriorityMedium,
		Status:          StatusActive,
	}
}

func (t Teacher) Key() string { return t.ID }

func (t Teacher) Clone() Teacher {
	c := t
	c.Subjects = crud.CopyStrings(t.Subjects)
	if t.Availability != nil {
		c.Availability = make(map[string]DayAvailability, len(t.Availability))
		for day, da := range t.Availability {
			c.Availability[day] = da
		}
	}
	return c
}

func (t Teacher) IsActive() bool {
	return t.Status == StatusActive
}

func (t *Teacher) ToggleSubject(s string) {
	t.Subjects = crud.Toggle(t.Subjects, s)
}

// SetDay replaces the availability of one day.
func (t *Teacher) SetDay(day string, da DayAvailability) {
	if t.Availability == nil {
		t.Availability = make(map[string]DayAvailability)
	}
	t.Availability[core.NormalizeDay(day)] = da
}

// AvailableOn reports whether the teacher teaches on day.
func (t Teacher) AvailableOn(day string) bool {
	return t.Availability[core.NormalizeDay(day)].Available
}

// AvailableDays lists the available days in week order.
func (t Teacher) AvailableDays() []string {
	days := make([]string, 0, len(core.Days))
	for _, d := range core.Days {
		if t.Availability[d].Available {
			days = append(days, d)
		}
	}
	return days
}

// SubjectBadges returns the first n subjects and the "+N more" label for the rest.
func (t Teacher) SubjectBadges(n int) ([]string, string) {
	shown, more := crud.Truncate(t.Subjects, n)
	return shown, crud.MoreLabel(more)
}

func (t *Teacher) Clean() {
	t.Name = core.CleanString(t.Name)
	t.Email = core.CleanString(t.Email, true /* lower */)
	t.Phone = core.CleanString(t.Phone)
	t.Department = core.CleanString(t.Department)
	t.Designation = core.CleanString(t.Designation)
	t.Qualification = core.CleanString(t.Qualification)
	t.Priority = core.CleanString(t.Priority, true /* lower */)
	t.Status = core.CleanString(t.Status)
	subjects := make([]string, 0, len(t.Subjects))
	for _, s := range t.Subjects {
		if s = core.CleanString(s); s != "" {
			subjects = append(subjects, s)
		}
	}
	t.Subjects = subjects
	avail := make(map[string]DayAvailability, len(core.Days))
	for _, d := range core.Days {
		avail[d] = DayAvailability{}
	}
	for day, da := range t.Availability {
		da.StartTime = core.CleanString(da.StartTime)
		da.EndTime = core.CleanString(da.EndTime)
		avail[core.NormalizeDay(day)] = da
	}
	t.Availability = avail
}

// SetField applies a textual form value. Nested paths are availability.<day>.available|start_time|end_time
// (startTime and endTime are accepted too).
func SetField(t *Teacher, path, value string) error {
	invalid := func(msg string) error {
		return core.NewValidationError(nil, core.FieldError{Field: path, Error: msg})
	}

	switch path {
	case "name":
		t.Name = value
	case "email":
		t.Email = value
	case "phone":
		t.Phone = value
	case "department":
		t.Department = value
	case "designation":
		t.Designation = value
	case "qualification":
		t.Qualification = value
	case "priority":
		t.Priority = value
	case "status":
		t.Status = value
	case "subjects":
		t.Subjects = core.SplitList(value)
	case "experience":
		n, err := core.ParseCount(value)
		if err != nil {
			return invalid(err.Error())
		}
		t.Experience = n
	case "max_hours_per_week", "maxHoursPerWeek":
		n, err := core.ParseCount(value)
		if err != nil {
			return invalid(err.Error())
		}
		t.MaxHoursPerWeek = n
	default:
		parts := strings.Split(path, ".")
		if len(parts) != 3 || parts[0] != "availability" {
			return invalid("unknown field")
		}
		if !core.IsDay(parts[1]) {
			return invalid("unknown day")
		}
		day := core.NormalizeDay(parts[1])
		da := t.Availability[day]
		switch parts[2] {
		case "available":
			b, err := core.ParseBool(value)
			if err != nil {
				return invalid(err.Error())
			}
			da.Available = b
		case "start_time", "startTime":
			da.StartTime = value
		case "end_time", "endTime":
			da.EndTime = value
		default:
			return invalid("unknown field")
		}
		t.SetDay(day, da)
	}
	return nil
}

// Summary holds the list view aggregates.
type Summary struct {
	Total       int     `json:"total"`
	Active      int     `json:"active"`
	Departments int     `json:"departments"`
	AvgMaxHours float64 `json:"avg_max_hours"`
}

func Summarize(teachers []Teacher) Summary {
	sum := Summary{
		Total:       crud.Count(teachers),
		Active:      crud.CountWhere(teachers, Teacher.IsActive),
		Departments: crud.Distinct(teachers, func(t Teacher) string { return t.Department }),
	}
	if sum.Total > 0 {
		hours := crud.Sum(teachers, func(t Teacher) int { return t.MaxHoursPerWeek })
		sum.AvgMaxHours = float64(hours) / float64(sum.Total)
	}
	return sum
}

type QueryFilter struct {
	Search     string `query:"search"`
	Department string `query:"department"`
	Status     string `query:"status"`
	Priority   string `query:"priority"`
	Day        string `query:"day"`
}

func (qf *QueryFilter) IsEmpty() bool {
	return qf == nil || (qf.Search == "" && qf.Department == "" && qf.Status == "" && qf.Priority == "" && qf.Day == "")
}

func (qf *QueryFilter) Clean() {
	qf.Search = core.CleanString(qf.Search)
	qf.Department = core.CleanString(qf.Department)
	qf.Status = core.CleanString(qf.Status)
	qf.Priority = core.CleanString(qf.Priority, true /* lower */)
	qf.Day = core.NormalizeDay(qf.Day)
}

// Match applies AND on the set fields; Search is a case-insensitive match on name, email, department
// or any subject.
func (qf *QueryFilter) Match(t Teacher) bool {
	if qf.IsEmpty() {
		return true
	}
	if qf.Department != "" && !strings.EqualFold(t.Department, qf.Department) {
		return false
	}
	if qf.Status != "" && !strings.EqualFold(t.Status, qf.Status) {
		return false
	}
	if qf.Priority != "" && t.Priority != qf.Priority {
		return false
	}
	if qf.Day != "" && !t.AvailableOn(qf.Day) {
		return false
	}
	if qf.Search != "" {
		return len(crud.Search([]Teacher{t}, qf.Search, func(t Teacher) []string {
			return append([]string{t.Name, t.Email, t.Department}, t.Subjects...)
		})) == 1
	}
	return true
}
