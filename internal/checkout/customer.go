package checkout

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	pkgerrors "github.com/angelsplants/checkout-backend/pkg/errors"
)

var customerValidator = newCustomerValidator()

func newCustomerValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "" || name == "-" {
			return f.Name
		}
		return name
	})
	return v
}

// CustomerDetails are the contact and shipping fields copied onto the order.
type CustomerDetails struct {
	Email      string `json:"email" validate:"required,email,max=254"`
	FirstName  string `json:"firstName" validate:"required,max=100"`
	LastName   string `json:"lastName" validate:"required,max=100"`
	Phone      string `json:"phone" validate:"required,min=7,max=20"`
	Address    string `json:"address" validate:"required,max=500"`
	City       string `json:"city" validate:"required,max=100"`
	State      string `json:"state" validate:"required,max=100"`
	PostalCode string `json:"postalCode" validate:"required,min=3,max=12"`
	Country    string `json:"country" validate:"max=100"`
	Notes      string `json:"notes" validate:"max=1000"`
}

// Normalize trims the fields, lowercases the email and fills the default country before validating.
func (c CustomerDetails) Normalize(defaultCountry string) (CustomerDetails, error) {
	out := CustomerDetails{
		Email:      strings.ToLower(strings.TrimSpace(c.Email)),
		FirstName:  strings.TrimSpace(c.FirstName),
		LastName:   strings.TrimSpace(c.LastName),
		Phone:      strings.TrimSpace(c.Phone),
		Address:    strings.TrimSpace(c.Address),
		City:       strings.TrimSpace(c.City),
		State:      strings.TrimSpace(c.State),
		PostalCode: strings.TrimSpace(c.PostalCode),
		Country:    strings.TrimSpace(c.Country),
		Notes:      strings.TrimSpace(c.Notes),
	}
	if out.Country == "" {
		out.Country = defaultCountry
	}
	err := customerValidator.Struct(out)
	if err == nil {
		return out, nil
	}
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return out, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid customer details")
	}
	details := make(map[string]string, len(fieldErrs))
	for _, fe := range fieldErrs {
		details[fe.Field()] = fieldMessage(fe)
	}
	return out, pkgerrors.New(pkgerrors.CodeValidation, "invalid customer details").WithDetails(details)
}

func fieldMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "email":
		return "must be a valid email address"
	case "min":
		return fmt.Sprintf("must be at least %s characters", fe.Param())
	case "max":
		return fmt.Sprintf("must be at most %s characters", fe.Param())
	}
	return "is invalid"
}
