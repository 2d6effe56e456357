// Package validator adapts go-playground/validator to echo's Validator interface.
package validator

import (
	domainerrors "inkwell/internal/domain/errors"

	"github.com/go-playground/validator/v10"
)

// RequestValidator validates request payloads using struct tags.
type RequestValidator struct {
	validate *validator.Validate
}

// New creates a RequestValidator backed by a single validator instance.
func New() *RequestValidator {
	return &RequestValidator{validate: validator.New()}
}

// Validate implements echo.Validator. Failures surface as a validation
// domain error so the error middleware renders a 400 envelope.
func (v *RequestValidator) Validate(i any) error {
	if err := v.validate.Struct(i); err != nil {
		return domainerrors.ErrValidationFailed.WithDetails(err.Error())
	}

	return nil
}
