package room

import (
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"

	"github.com/trezcool/ratiba/core"
)

var (
	// custom validation tags & texts
	typeTag  = "roomtype"
	typeText = "must be one of: Lecture Hall, Classroom, Computer Lab, Science Lab, Seminar Room, Auditorium"

	featureTag  = "roomfeature"
	featureText = "unknown room feature"

	statusTag  = "roomstatus"
	statusText = "must be one of: Active, Maintenance, Inactive"

	rangesTag  = "timeranges"
	rangesText = "time ranges must be formatted as HH:MM-HH:MM and must not overlap"
)

// InitValidators registers the room validations on validate.
func InitValidators(validate *validator.Validate, translator ut.Translator) {
	_ = validate.RegisterValidation(typeTag, core.OneOf(Types))
	core.RegisterCustomTranslation(validate, translator, typeTag, typeText)

	_ = validate.RegisterValidation(featureTag, core.OneOf(Features))
	core.RegisterCustomTranslation(validate, translator, featureTag, featureText)

	_ = validate.RegisterValidation(statusTag, core.OneOf(Statuses))
	core.RegisterCustomTranslation(validate, translator, statusTag, statusText)

	validate.RegisterStructValidation(roomStructValidation, Room{})
	core.RegisterCustomTranslation(validate, translator, rangesTag, rangesText)
}

// roomStructValidation checks every day's time ranges are well formed and disjoint.
func roomStructValidation(sl validator.StructLevel) {
	r := sl.Current().Interface().(Room)
	for _, day := range core.Days {
		if err := core.CheckRanges(r.Availability[day]); err != nil {
			sl.ReportError(r.Availability[day], "availability."+day, "Availability", rangesTag, "")
		}
	}
}
