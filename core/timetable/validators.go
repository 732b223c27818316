package timetable

import (
	"fmt"
	"strings"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"

	"github.com/trezcool/ratiba/core"
)

var (
	// custom validation tags & texts
	sessionTypeTag  = "sessiontype"
	sessionTypeText = "must be one of: Lecture, Lab, Tutorial, Seminar"

	sessionTimesTag  = "sessiontimes"
	sessionTimesText = "end time must be after start time"

	clashTag  = "clash"
	clashText = "overlaps another session in the same classroom or with the same teacher"
)

// InitValidators registers the timetable validations on validate.
func InitValidators(validate *validator.Validate, translator ut.Translator) {
	_ = validate.RegisterValidation(sessionTypeTag, core.OneOf(SessionTypes))
	core.RegisterCustomTranslation(validate, translator, sessionTypeTag, sessionTypeText)

	validate.RegisterStructValidation(sessionStructValidation, Session{})
	core.RegisterCustomTranslation(validate, translator, sessionTimesTag, sessionTimesText)

	validate.RegisterStructValidation(timetableStructValidation, Timetable{})
	core.RegisterCustomTranslation(validate, translator, clashTag, clashText)
}

func sessionStructValidation(sl validator.StructLevel) {
	s := sl.Current().Interface().(Session)
	start, errStart := core.ParseClock(s.StartTime)
	end, errEnd := core.ParseClock(s.EndTime)
	if errStart == nil && errEnd == nil && start >= end {
		sl.ReportError(s.EndTime, "end_time", "EndTime", sessionTimesTag, "")
	}
}

// timetableStructValidation reports sessions double booking a classroom or a teacher.
func timetableStructValidation(sl validator.StructLevel) {
	tt := sl.Current().Interface().(Timetable)
	for i, a := range tt.Sessions {
		ra, err := slot(a)
		if err != nil {
			continue
		}
		for j := 0; j < i; j++ {
			b := tt.Sessions[j]
			rb, err := slot(b)
			if err != nil || a.Day != b.Day || !ra.Overlaps(rb) {
				continue
			}
			if same(a.Classroom, b.Classroom) || same(a.Teacher, b.Teacher) {
				sl.ReportError(a, fmt.Sprintf("sessions[%d]", i), "Sessions", clashTag, "")
				break
			}
		}
	}
}

func slot(s Session) (core.TimeRange, error) {
	return core.ParseTimeRange(s.StartTime + "-" + s.EndTime)
}

func same(a, b string) bool {
	return a != "" && strings.EqualFold(a, b)
}
