package attendance

import (
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"

	"github.com/trezcool/hazira/core"
)

var (
	sessionKeyTag  = "session_key"
	sessionKeyText = "must be formatted as DD-MM-YYYY-HHMM"
)

// InitValidators registers the attendance validation tags.
func InitValidators(validate *validator.Validate, translator ut.Translator) {
	_ = validate.RegisterValidation(sessionKeyTag, sessionKeyValidation)
	core.RegisterCustomTranslation(validate, translator, sessionKeyTag, sessionKeyText)
}

func sessionKeyValidation(fl validator.FieldLevel) bool {
	if str, ok := fl.Field().Interface().(string); ok {
		_, err := ParseSessionKey(str)
		return err == nil
	}
	return false
}
