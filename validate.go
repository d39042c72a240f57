package ledger

import (
	"errors"
	"strings"

	"github.com/go-playground/validator/v10"
)

var validate = validator.New()

type holderInput struct {
	Name string `validate:"required"`
	PIN  string `validate:"len=4,number"`
}

// validateHolder trims name and checks it together with pin, returning the
// trimmed name.
func validateHolder(name, pin string) (string, error) {
	in := holderInput{Name: strings.TrimSpace(name), PIN: pin}
	if err := validate.Struct(in); err != nil {
		return "", fieldError(err)
	}
	return in.Name, nil
}

func validatePIN(pin string) error {
	if err := validate.Var(pin, "len=4,number"); err != nil {
		return ErrMalformedPIN
	}
	return nil
}

// ValidPIN reports whether pin has the 4-digit format accounts require.
func ValidPIN(pin string) bool {
	return validatePIN(pin) == nil
}

func fieldError(err error) error {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return err
	}
	switch verrs[0].Field() {
	case "Name":
		return ErrEmptyName
	default:
		return ErrMalformedPIN
	}
}
