package handler

import (
	"errors"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v3"
)

type (
	// ErrorResponse represents a validation error response.
	ErrorResponse struct {
		FailedField string `json:"failedField"`
		Tag         string `json:"tag"`
		Value       any    `json:"value"`
	}

	// GlobalErrorHandlerResp represents a global error response structure.
	GlobalErrorHandlerResp struct {
		Success bool            `json:"success"`
		Message string          `json:"message"`
		Errors  []ErrorResponse `json:"errors,omitempty"`
	}

	// XValidator validates request bodies and path parameters.
	XValidator struct {
		validator *validator.Validate
	}
)

// NewValidator returns a XValidator.
func NewValidator() *XValidator {
	return &XValidator{validator: validator.New(validator.WithRequiredStructEnabled())}
}

// Validate performs validation on the provided data and returns a slice of ErrorResponse.
func (v *XValidator) Validate(data any) []ErrorResponse {
	return collect(v.validator.Struct(data))
}

// Var validates a single value against tag.
func (v *XValidator) Var(field string, value any, tag string) []ErrorResponse {
	errs := collect(v.validator.Var(value, tag))
	for i := range errs {
		errs[i].FailedField = field
	}

	return errs
}

func collect(err error) []ErrorResponse {
	var validationErrors validator.ValidationErrors
	if !errors.As(err, &validationErrors) {
		return nil
	}

	out := make([]ErrorResponse, 0, len(validationErrors))
	for _, ve := range validationErrors {
		out = append(out, ErrorResponse{
			FailedField: ve.Field(),
			Tag:         ve.Tag(),
			Value:       ve.Value(),
		})
	}

	return out
}

// BadRequest responds with the validation errors.
func BadRequest(c fiber.Ctx, errs []ErrorResponse) error {
	return c.Status(fiber.StatusBadRequest).JSON(GlobalErrorHandlerResp{
		Message: "validation failed",
		Errors:  errs,
	})
}
