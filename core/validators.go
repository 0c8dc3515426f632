package core

import (
	"reflect"
	"regexp"
	"strings"

	"github.com/go-playground/locales/es"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	es_translations "github.com/go-playground/validator/v10/translations/es"
	"github.com/pkg/errors"
)

var (
	Validate   *validator.Validate
	Translator ut.Translator

	// custom validation tags & texts
	notBlankTag  = "notblank"
	notBlankText = "este campo no puede estar vacío"

	emailTag   = "correo"
	emailText  = "ingrese un correo electrónico válido"
	emailRegex = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

	requiredTag  = "required"
	requiredText = "este campo es obligatorio"

	datetimeTag  = "datetime"
	datetimeText = "el formato de fecha u hora no es válido"
)

// Instantiate the validator for use.
func init() {
	Validate = validator.New()

	// Register the spanish error messages for validation errors.
	_es := es.New()
	uni := ut.New(_es, _es)
	Translator, _ = uni.GetTranslator("es")
	_ = es_translations.RegisterDefaultTranslations(Validate, Translator)

	// Use JSON tag names for errors instead of Go struct names.
	Validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})

	// register custom validators
	_ = Validate.RegisterValidation(notBlankTag, notBlankValidation)
	RegisterCustomTranslation(notBlankTag, notBlankText)

	_ = Validate.RegisterValidation(emailTag, emailValidation)
	RegisterCustomTranslation(emailTag, emailText)

	RegisterCustomTranslation(requiredTag, requiredText, true)
	RegisterCustomTranslation(datetimeTag, datetimeText, true)
}

// RegisterCustomTranslation registers a custom translation for the specified validation tag.
func RegisterCustomTranslation(tag, text string, override ...bool) {
	var ovrd bool
	if len(override) > 0 {
		ovrd = override[0]
	}
	_ = Validate.RegisterTranslation(
		tag, Translator,
		func(t ut.Translator) error { return t.Add(tag, text, ovrd) },
		func(t ut.Translator, fe validator.FieldError) string {
			s, _ := t.T(tag, fe.Field())
			return s
		},
	)
}

// ValidateStruct validates s and converts validator errors into a *ValidationError.
func ValidateStruct(s interface{}) error {
	err := Validate.Struct(s)
	if err == nil {
		return nil
	}
	var vErrs validator.ValidationErrors
	if !errors.As(err, &vErrs) {
		return err
	}
	fields := make([]FieldError, 0, len(vErrs))
	for _, fe := range vErrs {
		fields = append(fields, FieldError{Field: fe.Field(), Error: fe.Translate(Translator)})
	}
	return NewValidationError(nil, fields...)
}

// IsEmail reports whether s looks like an email address.
func IsEmail(s string) bool {
	return emailRegex.MatchString(s)
}

// Custom Global Validators

func notBlankValidation(fl validator.FieldLevel) bool {
	if str, ok := fl.Field().Interface().(string); ok {
		return strings.TrimSpace(str) != ""
	}
	return false
}

// emailValidation only accepts a basic "local@domain.tld" pattern.
func emailValidation(fl validator.FieldLevel) bool {
	return IsEmail(fl.Field().String())
}
