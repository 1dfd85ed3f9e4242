package core

import (
	"reflect"
	"regexp"
	"strings"

	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	en_translations "github.com/go-playground/validator/v10/translations/en"
)

var (
	// custom validation tags & texts
	digitsTag   = "digitsonly"
	digitsText  = "only digits are allowed"
	digitsRegex = regexp.MustCompile(`^[0-9]+$`)

	phoneTag   = "phone"
	phoneText  = "invalid phone number format"
	phoneRegex = regexp.MustCompile(`^[0-9+\-\s()]+$`)

	personNameTag   = "personname"
	personNameText  = "only letters, spaces, hyphens and apostrophes are allowed"
	personNameRegex = regexp.MustCompile(`^[a-zA-Z\s'-]+$`)

	requiredTag     = "required"
	requiredWithTag = "required_with"
	requiredText    = "this field is required"
)

// NewValidator instantiates the app validator and its translator.
func NewValidator() (*validator.Validate, ut.Translator) {
	validate := validator.New()
	enLocale := en.New()
	uni := ut.New(enLocale, enLocale)
	translator, _ := uni.GetTranslator("en")
	InitValidators(validate, translator)
	return validate, translator
}

// InitValidators instantiates the validator for use.
func InitValidators(validate *validator.Validate, translator ut.Translator) {
	_ = en_translations.RegisterDefaultTranslations(validate, translator)

	// Use JSON tag names for errors instead of Go struct names.
	validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})

	// register custom validators
	_ = validate.RegisterValidation(digitsTag, digitsValidation)
	RegisterCustomTranslation(validate, translator, digitsTag, digitsText)

	_ = validate.RegisterValidation(phoneTag, phoneValidation)
	RegisterCustomTranslation(validate, translator, phoneTag, phoneText)

	_ = validate.RegisterValidation(personNameTag, personNameValidation)
	RegisterCustomTranslation(validate, translator, personNameTag, personNameText)

	RegisterCustomTranslation(validate, translator, requiredTag, requiredText, true)
	RegisterCustomTranslation(validate, translator, requiredWithTag, requiredText, true)
}

// RegisterCustomTranslation registers a custom translation for the specified validation tag.
func RegisterCustomTranslation(validate *validator.Validate, translator ut.Translator, tag, text string, override ...bool) {
	var ovrd bool
	if len(override) > 0 {
		ovrd = override[0]
	}
	_ = validate.RegisterTranslation(
		tag, translator,
		func(t ut.Translator) error { return t.Add(tag, text, ovrd) },
		func(t ut.Translator, fe validator.FieldError) string {
			s, _ := t.T(tag, fe.Field())
			return s
		},
	)
}

// Custom Global Validators

// digitsValidation only allows numeric characters.
func digitsValidation(fl validator.FieldLevel) bool {
	return digitsRegex.MatchString(fl.Field().String())
}

// phoneValidation allows digits, "+", "-", spaces and parentheses.
func phoneValidation(fl validator.FieldLevel) bool {
	return phoneRegex.MatchString(fl.Field().String())
}

// personNameValidation allows letters, spaces, hyphens and apostrophes.
func personNameValidation(fl validator.FieldLevel) bool {
	return personNameRegex.MatchString(fl.Field().String())
}
