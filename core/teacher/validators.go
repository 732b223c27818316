package teacher

import (
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"

	"github.com/trezcool/ratiba/core"
)

var (
	// custom validation tags & texts
	statusTag  = "teacherstatus"
	statusText = "must be one of: Active, On Leave, Inactive"

	dayTimesTag  = "daytimes"
	dayTimesText = "available days need a start and an end time (HH:MM), start before end"
)

// InitValidators registers the teacher validations on validate.
func InitValidators(validate *validator.Validate, translator ut.Translator) {
	_ = validate.RegisterValidation(statusTag, core.OneOf(Statuses))
	core.RegisterCustomTranslation(validate, translator, statusTag, statusText)

	validate.RegisterStructValidation(teacherStructValidation, Teacher{})
	core.RegisterCustomTranslation(validate, translator, dayTimesTag, dayTimesText)
}

// teacherStructValidation checks the window of every available day.
func teacherStructValidation(sl validator.StructLevel) {
	t := sl.Current().Interface().(Teacher)
	for _, day := range core.Days {
		da := t.Availability[day]
		if !da.Available {
			continue
		}
		start, errStart := core.ParseClock(da.StartTime)
		end, errEnd := core.ParseClock(da.EndTime)
		if errStart != nil || errEnd != nil || start >= end {
			sl.ReportError(da, "availability."+day, "Availability", dayTimesTag, "")
		}
	}
}
