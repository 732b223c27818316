package room

import (
	"sort"
	"strings"
	"time"

	"github.com/trezcool/ratiba/core"
	"github.com/trezcool/ratiba/core/crud"
)

// Statuses
const (
	StatusActive      = "Active"
	StatusMaintenance = "Maintenance"
	StatusInactive    = "Inactive"
)

// Types
const (
	TypeLectureHall = "Lecture Hall"
	TypeClassroom   = "Classroom"
	TypeComputerLab = "Computer Lab"
	TypeScienceLab  = "Science Lab"
	TypeSeminarRoom = "Seminar Room"
	TypeAuditorium  = "Auditorium"
)

var (
	Statuses = []string{StatusActive, StatusMaintenance, StatusInactive}
	Types    = []string{TypeLectureHall, TypeClassroom, TypeComputerLab, TypeScienceLab, TypeSeminarRoom, TypeAuditorium}

	// Features is the fixed vocabulary a room's features are drawn from.
	Features = []string{
		"Projector",
		"Smart Board",
		"Whiteboard",
		"Air Conditioning",
		"Computers",
		"Lab Equipment",
		"Audio System",
		"Video Conferencing",
		"Wheelchair Access",
		"Wi-Fi",
	}
)

type Room struct {
	ID           string              `json:"id"`
	Name         string              `json:"name" validate:"notblank,max=120"`
	Building     string              `json:"building" validate:"notblank,max=120"`
	Floor        int                 `json:"floor" validate:"gte=0,lte=200"`
	Type         string              `json:"type" validate:"roomtype"`
	Capacity     int                 `json:"capacity" validate:"gt=0,lte=5000"`
	Features     []string            `json:"features" validate:"unique,dive,roomfeature"`
	Availability map[string][]string `json:"availability" validate:"dive,keys,weekday,endkeys"`
	Status       string              `json:"status" validate:"roomstatus"`
	CreatedAt    time.Time           `json:"created_at"` // UTC
	UpdatedAt    time.Time           `json:"updated_at"` // UTC
}

// Template is the empty form: every day present with no time ranges.
func Template() Room {
	avail := make(map[string][]string, len(core.Days))
	for _, d := range core.Days {
		avail[d] = []string{}
	}
	return Room{
		Type:         TypeClassroom,
		Status:       StatusActive,
		Features:     []string{},
		Availability: avail,
	}
}

func (r Room) Key() string { return r.ID }

func (r Room) Clone() Room {
	c := r
	c.Features = crud.CopyStrings(r.Features)
	if r.Availability != nil {
		c.Availability = make(map[string][]string, len(r.Availability))
		for day, ranges := range r.Availability {
			c.Availability[day] = crud.CopyStrings(ranges)
		}
	}
	return c
}

func (r Room) IsLab() bool {
	return strings.Contains(r.Type, "Lab")
}

func (r Room) HasFeature(f string) bool {
	return crud.Contains(r.Features, f)
}

func (r *Room) ToggleFeature(f string) {
	r.Features = crud.Toggle(r.Features, f)
}

// SetAvailability replaces the time ranges of one day.
func (r *Room) SetAvailability(day string, ranges []string) {
	if r.Availability == nil {
		r.Availability = make(map[string][]string)
	}
	r.Availability[core.NormalizeDay(day)] = crud.CopyStrings(ranges)
}

// AvailableOn reports whether the room has at least one time range on day.
func (r Room) AvailableOn(day string) bool {
	return len(r.Availability[core.NormalizeDay(day)]) > 0
}

// FeatureBadges returns the first n features and the "+N more" label for the rest.
func (r Room) FeatureBadges(n int) ([]string, string) {
	shown, more := crud.Truncate(r.Features, n)
	return shown, crud.MoreLabel(more)
}

// Clean trims text fields and normalizes availability keys and range order.
func (r *Room) Clean() {
	r.Name = core.CleanString(r.Name)
	r.Building = core.CleanString(r.Building)
	r.Type = core.CleanString(r.Type)
	r.Status = core.CleanString(r.Status)
	if r.Features == nil {
		r.Features = []string{}
	}
	for i, f := range r.Features {
		r.Features[i] = core.CleanString(f)
	}
	avail := make(map[string][]string, len(r.Availability))
	for day, ranges := range r.Availability {
		cleaned := make([]string, 0, len(ranges))
		for _, rng := range ranges {
			if rng = strings.ReplaceAll(rng, " ", ""); rng != "" {
				cleaned = append(cleaned, rng)
			}
		}
		sort.Strings(cleaned)
		avail[core.NormalizeDay(day)] = cleaned
	}
	r.Availability = avail
}

// SetField applies a textual form value. Paths: name, building, floor, type, capacity, status,
// features (comma separated), availability.<day> (comma separated ranges).
func SetField(r *Room, path, value string) error {
	invalid := func(msg string) error {
		return core.NewValidationError(nil, core.FieldError{Field: path, Error: msg})
	}

	switch path {
	case "name":
		r.Name = value
	case "building":
		r.Building = value
	case "type":
		r.Type = value
	case "status":
		r.Status = value
	case "floor":
		n, err := core.ParseCount(value)
		if err != nil {
			return invalid(err.Error())
		}
		r.Floor = n
	case "capacity":
		n, err := core.ParseCount(value)
		if err != nil {
			return invalid(err.Error())
		}
		r.Capacity = n
	case "features":
		r.Features = core.SplitList(value)
	default:
		if day := strings.TrimPrefix(path, "availability."); day != path {
			if !core.IsDay(day) {
				return invalid("unknown day")
			}
			r.SetAvailability(day, core.SplitList(value))
			return nil
		}
		return invalid("unknown field")
	}
	return nil
}

// Summary holds the list view aggregates.
type Summary struct {
	Total         int `json:"total"`
	TotalCapacity int `json:"total_capacity"`
	Buildings     int `json:"buildings"`
	Labs          int `json:"labs"`
	Active        int `json:"active"`
}

func Summarize(rooms []Room) Summary {
	return Summary{
		Total:         crud.Count(rooms),
		TotalCapacity: crud.Sum(rooms, func(r Room) int { return r.Capacity }),
		Buildings:     crud.Distinct(rooms, func(r Room) string { return r.Building }),
		Labs:          crud.CountWhere(rooms, Room.IsLab),
		Active:        crud.CountWhere(rooms, func(r Room) bool { return r.Status == StatusActive }),
	}
}

type QueryFilter struct {
	Search   string `query:"search"`
	Building string `query:"building"`
	Type     string `query:"type"`
	Status   string `query:"status"`
	Day      string `query:"day"`
}

func (qf *QueryFilter) IsEmpty() bool {
	return qf == nil || (qf.Search == "" && qf.Building == "" && qf.Type == "" && qf.Status == "" && qf.Day == "")
}

func (qf *QueryFilter) Clean() {
	qf.Search = core.CleanString(qf.Search)
	qf.Building = core.CleanString(qf.Building)
	qf.Type = core.CleanString(qf.Type)
	qf.Status = core.CleanString(qf.Status)
	qf.Day = core.NormalizeDay(qf.Day)
}

// Match applies AND on the set fields; Search is a case-insensitive match on name, building or type.
func (qf *QueryFilter) Match(r Room) bool {
	if qf.IsEmpty() {
		return true
	}
	if qf.Building != "" && !strings.EqualFold(r.Building, qf.Building) {
		return false
	}
	if qf.Type != "" && !strings.EqualFold(r.Type, qf.Type) {
		return false
	}
	if qf.Status != "" && !strings.EqualFold(r.Status, qf.Status) {
		return false
	}
	if qf.Day != "" && !r.AvailableOn(qf.Day) {
		return false
	}
	if qf.Search != "" {
		return len(crud.Search([]Room{r}, qf.Search, func(r Room) []string {
			return []string{r.Name, r.Building, r.Type}
		})) == 1
	}
	return true
}
