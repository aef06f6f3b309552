package slot

import (
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"

	"github.com/lo-maxwell/hkn-rails/core"
)

var (
	roomTag  = "room"
	roomText = "room needs to be 0 (Cory) or 1 (Soda)"

	wdayTag  = "wday"
	wdayText = "must be a weekday from 1 (Monday) to 5 (Friday)"

	tutoringHourTag  = "tutoringhour"
	tutoringHourText = "hour must be within tutoring hours"

	takenText = "has already been taken"
)

// InitValidators registers the slot validation tags; the tutoring hour range comes from conf.
func InitValidators(validate *validator.Validate, translator ut.Translator, conf core.TutoringConfig) {
	_ = validate.RegisterValidation(roomTag, roomValidation)
	core.RegisterCustomTranslation(validate, translator, roomTag, roomText)

	_ = validate.RegisterValidation(wdayTag, wdayValidation)
	core.RegisterCustomTranslation(validate, translator, wdayTag, wdayText)

	_ = validate.RegisterValidation(tutoringHourTag, tutoringHourValidation(conf))
	core.RegisterCustomTranslation(validate, translator, tutoringHourTag, tutoringHourText)
}

func roomValidation(fl validator.FieldLevel) bool {
	return Room(fl.Field().Int()).Valid()
}

func wdayValidation(fl validator.FieldLevel) bool {
	wday := fl.Field().Int()
	return wday >= 1 && wday <= 5
}

func tutoringHourValidation(conf core.TutoringConfig) validator.Func {
	return func(fl validator.FieldLevel) bool {
		hour := int(fl.Field().Int())
		return hour >= conf.StartHour && hour <= conf.EndHour
	}
}
