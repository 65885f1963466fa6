package validation

import (
	"strings"

	"github.com/optionfolio/backend/internal/api/request"
)

func ValidateCreateSale(req request.CreateSaleRequest) error {
	errors := make(map[string]string)

	// Required fields
	if strings.TrimSpace(req.GrantID) == "" {
		errors["grantId"] = "grant id is required"
	} else if err := ValidateUUID(req.GrantID); err != nil {
		errors["grantId"] = "grant id must be a valid UUID"
	}

	if strings.TrimSpace(req.SaleDate) == "" {
		errors["saleDate"] = "sale date is required"
	} else if _, err := ParseDate(req.SaleDate); err != nil {
		errors["saleDate"] = "sale date must be YYYY-MM-DD"
	}

	if req.QuantitySold <= 0 {
		errors["quantitySold"] = "quantity sold must be a positive integer"
	}

	if req.SalePrice <= 0 {
		errors["salePrice"] = "sale price must be positive"
	}

	if len(errors) > 0 {
		return &Error{Fields: errors}
	}
	return nil
}

func ValidateUpdateSale(req request.UpdateSaleRequest) error {
	errors := make(map[string]string)

	if strings.TrimSpace(req.SaleDate) == "" {
		errors["saleDate"] = "sale date is required"
	} else if _, err := ParseDate(req.SaleDate); err != nil {
		errors["saleDate"] = "sale date must be YYYY-MM-DD"
	}

	if req.SalePrice <= 0 {
		errors["salePrice"] = "sale price must be positive"
	}

	if len(errors) > 0 {
		return &Error{Fields: errors}
	}
	return nil
}
