package course

import (
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"

	"github.com/trezcool/ratiba/core"
	"github.com/trezcool/ratiba/core/crud"
)

var (
	// custom validation tags & texts
	typeTag  = "coursetype"
	typeText = "must be one of: Theory, Practical, Theory+Practical, Elective"

	labHoursTag  = "labhours"
	labHoursText = "a course with a lab needs lab hours"

	selfPrereqTag  = "selfprereq"
	selfPrereqText = "a course cannot be its own prerequisite"
)

// InitValidators registers the course validations on validate.
func InitValidators(validate *validator.Validate, translator ut.Translator) {
	_ = validate.RegisterValidation(typeTag, core.OneOf(Types))
	core.RegisterCustomTranslation(validate, translator, typeTag, typeText)

	validate.RegisterStructValidation(courseStructValidation, Course{})
	core.RegisterCustomTranslation(validate, translator, labHoursTag, labHoursText)
	core.RegisterCustomTranslation(validate, translator, selfPrereqTag, selfPrereqText)
}

func courseStructValidation(sl validator.StructLevel) {
	c := sl.Current().Interface().(Course)
	if c.HasLab && c.LabHours <= 0 {
		sl.ReportError(c.LabHours, "lab_hours", "LabHours", labHoursTag, "")
	}
	if c.Code != "" && crud.Contains(c.Prerequisites, c.Code) {
		sl.ReportError(c.Prerequisites, "prerequisites", "Prerequisites", selfPrereqTag, "")
	}
}
