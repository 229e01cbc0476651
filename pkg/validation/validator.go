// Package validation wires go-playground/validator with English messages keyed by JSON field names.
package validation

import (
	"errors"
	"reflect"
	"strings"
	"unicode"

	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	en_translations "github.com/go-playground/validator/v10/translations/en"

	appErrors "github.com/noah-isme/uninotes-api/pkg/errors"
)

const (
	mixedCaseTag  = "mixedcase"
	mixedCaseText = "{0} must contain both upper and lower case letters"
	requiredText  = "{0} is required"
)

// Validator validates request structs and reports failures per field.
type Validator struct {
	validate   *validator.Validate
	translator ut.Translator
}

// New builds a validator with English translations and the custom tags registered.
func New() *Validator {
	english := en.New()
	translator, _ := ut.New(english, english).GetTranslator("en")
	validate := validator.New()
	_ = en_translations.RegisterDefaultTranslations(validate, translator)

	validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		if name == "" {
			name = strings.SplitN(fld.Tag.Get("form"), ",", 2)[0]
		}
		return name
	})

	_ = validate.RegisterValidation(mixedCaseTag, mixedCase)
	registerTranslation(validate, translator, mixedCaseTag, mixedCaseText, false)
	registerTranslation(validate, translator, "required", requiredText, true)

	return &Validator{validate: validate, translator: translator}
}

// Struct validates s. Failures come back as a VALIDATION_ERROR carrying one message per field.
func (v *Validator) Struct(s interface{}) error {
	err := v.validate.Struct(s)
	if err == nil {
		return nil
	}
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, appErrors.ErrValidation.Message)
	}
	fields := make(map[string]string, len(fieldErrs))
	for _, fe := range fieldErrs {
		fields[fe.Field()] = fe.Translate(v.translator)
	}
	return appErrors.WithFields(appErrors.Clone(appErrors.ErrValidation, fieldErrs[0].Translate(v.translator)), fields)
}

func registerTranslation(validate *validator.Validate, translator ut.Translator, tag, text string, override bool) {
	_ = validate.RegisterTranslation(
		tag, translator,
		func(t ut.Translator) error { return t.Add(tag, text, override) },
		func(t ut.Translator, fe validator.FieldError) string {
			s, _ := t.T(tag, fe.Field())
			return s
		},
	)
}

func mixedCase(fl validator.FieldLevel) bool {
	var upper, lower bool
	for _, r := range fl.Field().String() {
		switch {
		case unicode.IsUpper(r):
			upper = true
		case unicode.IsLower(r):
			lower = true
		}
	}
	return upper && lower
}
