package validation

import (
	"fmt"
	"strings"

	"github.com/optionfolio/backend/internal/api/request"
)

func ValidateBulkPrices(req request.BulkPriceRequest) error {
	errors := make(map[string]string)

	if len(req.Records) == 0 {
		errors["records"] = "at least one price record is required"
	}

	for i, record := range req.Records {
		if record.ExerciseReference <= 0 {
			errors[fmt.Sprintf("records[%d].exerciseReference", i)] = "exercise reference must be positive"
		}
		if strings.TrimSpace(record.PriceDate) == "" {
			errors[fmt.Sprintf("records[%d].priceDate", i)] = "price date is required"
		} else if _, err := ParseDate(record.PriceDate); err != nil {
			errors[fmt.Sprintf("records[%d].priceDate", i)] = "price date must be YYYY-MM-DD"
		}
		if record.Value <= 0 {
			errors[fmt.Sprintf("records[%d].value", i)] = "value must be positive"
		}
	}

	if len(errors) > 0 {
		return &Error{Fields: errors}
	}
	return nil
}
