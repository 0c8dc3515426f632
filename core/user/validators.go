package user

import (
	"fmt"
	"unicode/utf8"

	"github.com/go-playground/validator/v10"

	"github.com/trezcool/academia/core"
)

var (
	// password policy
	pwdMinLen     = 6
	pwdMinLenTag  = "pwdminlen"
	pwdMinLenText = fmt.Sprintf("la contraseña debe tener al menos %d caracteres", pwdMinLen)

	pwdRequiredTag  = "pwdrequired"
	pwdRequiredText = "la contraseña es obligatoria"

	roleNotFoundText = "el rol seleccionado no existe"
	emailExistsText  = "ya existe un usuario con este correo"
)

func init() {
	core.Validate.RegisterStructValidation(userStructValidation, NewUser{}, UpdateUser{})
	core.RegisterCustomTranslation(pwdMinLenTag, pwdMinLenText)
	core.RegisterCustomTranslation(pwdRequiredTag, pwdRequiredText)
}

// userStructValidation does struct level validation on NewUser and UpdateUser structs:
// the password is required on create only, and must be at least pwdMinLen characters when supplied.
func userStructValidation(sl validator.StructLevel) {
	switch usr := sl.Current().Interface().(type) {
	case NewUser:
		if usr.Password == "" {
			sl.ReportError(usr.Password, "password", "Password", pwdRequiredTag, "")
			return
		}
		validatePassword(usr.Password, sl)
	case UpdateUser:
		if usr.Password != "" {
			validatePassword(usr.Password, sl)
		}
	}
}

func validatePassword(pwd string, sl validator.StructLevel) {
	if utf8.RuneCountInString(pwd) < pwdMinLen {
		sl.ReportError(pwd, "password", "Password", pwdMinLenTag, "")
	}
}
