package event

import (
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/volatiletech/null/v8"

	"github.com/lo-maxwell/hkn-rails/core"
)

var (
	timeRangeTag  = "timerange"
	timeRangeText = "end time must be after start time"
)

func InitValidators(validate *validator.Validate, translator ut.Translator) {
	validate.RegisterStructValidation(timeRangeStructValidation, NewEvent{}, NewBlock{})
	core.RegisterCustomTranslation(validate, translator, timeRangeTag, timeRangeText)
}

// ValidTimeRange fails when both bounds are set and end <= start; a missing bound always passes.
func ValidTimeRange(start, end null.Time) error {
	if endBeforeStart(start, end) {
		return core.NewFieldError("end_time", timeRangeText)
	}
	return nil
}

func endBeforeStart(start, end null.Time) bool {
	return start.Valid && end.Valid && !end.Time.After(start.Time)
}

func timeRangeStructValidation(sl validator.StructLevel) {
	var start, end null.Time
	switch v := sl.Current().Interface().(type) {
	case NewEvent:
		start, end = v.StartTime, v.EndTime
	case NewBlock:
		start, end = v.StartTime, v.EndTime
	default:
		return
	}
	if endBeforeStart(start, end) {
		sl.ReportError(end, "end_time", "EndTime", timeRangeTag, "")
	}
}
