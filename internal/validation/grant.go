package validation

import (
	"strings"

	"github.com/optionfolio/backend/internal/api/request"
)

func ValidateCreateGrant(req request.CreateGrantRequest) error {
	errors := make(map[string]string)

	// Required fields
	if strings.TrimSpace(req.GrantDate) == "" {
		errors["grantDate"] = "grant date is required"
	} else if _, err := ParseDate(req.GrantDate); err != nil {
		errors["grantDate"] = "grant date must be YYYY-MM-DD"
	}

	if req.ExerciseReference <= 0 {
		errors["exerciseReference"] = "exercise reference must be positive"
	}

	if req.Quantity <= 0 {
		errors["quantity"] = "quantity must be a positive integer"
	}

	// optional
	if req.ManualTax != nil && *req.ManualTax < 0 {
		errors["manualTax"] = "manual tax cannot be negative"
	}

	if len(errors) > 0 {
		return &Error{Fields: errors}
	}
	return nil
}

func ValidateMergeGrant(req request.MergeGrantRequest) error {
	errors := make(map[string]string)

	if req.AdditionalQuantity <= 0 {
		errors["additionalQuantity"] = "additional quantity must be a positive integer"
	}

	if req.AdditionalManualTax != nil && *req.AdditionalManualTax < 0 {
		errors["additionalManualTax"] = "additional manual tax cannot be negative"
	}

	if len(errors) > 0 {
		return &Error{Fields: errors}
	}
	return nil
}
