package models

import (
	"regexp"

	"github.com/go-playground/validator/v10"
)

var (
	phoneRegex = regexp.MustCompile(`^\+?[1-9]\d{1,14}$`)
	pinRegex   = regexp.MustCompile(`^\d{4}$`)
	emailRegex = regexp.MustCompile(`^\w+([.-]?\w+)*@\w+([.-]?\w+)*(\.\w{2,3})+$`)
)

func init() {
	_ = Validate.RegisterValidation("e164ish", func(fl validator.FieldLevel) bool {
		return IsValidPhone(fl.Field().String())
	})
	_ = Validate.RegisterValidation("pin", func(fl validator.FieldLevel) bool {
		return IsValidPin(fl.Field().String())
	})
}

func IsValidPhone(phone string) bool {
	return phoneRegex.MatchString(phone)
}

func IsValidPin(pin string) bool {
	return pinRegex.MatchString(pin)
}

func IsValidEmail(email string) bool {
	return emailRegex.MatchString(email)
}

// ValidationMessage flattens validator errors into a single readable sentence.
func ValidationMessage(err error) string {
	verrs, ok := err.(validator.ValidationErrors)
	if !ok || len(verrs) == 0 {
		return err.Error()
	}
	fe := verrs[0]
	switch fe.Tag() {
	case "required":
		return fe.Field() + " is required"
	case "max":
		return fe.Field() + " cannot be more than " + fe.Param() + " characters"
	case "oneof":
		return fe.Field() + " must be one of: " + fe.Param()
	case "e164ish":
		return "please enter a valid phone number"
	case "pin":
		return "PIN must be exactly 4 digits"
	}
	return fe.Field() + " is invalid"
}
