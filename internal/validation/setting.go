package validation

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/optionfolio/backend/internal/api/request"
	"github.com/optionfolio/backend/internal/model"
)

// numericSettings are the keys whose values must parse as numbers.
var numericSettings = map[string]bool{
	model.SettingTaxRatePercent:      true,
	model.SettingUnitCost:            true,
	model.SettingTargetReturnPercent: true,
}

// ValidSettingKey is the set of configuration keys the API accepts.
var ValidSettingKey = map[string]bool{
	model.SettingTaxRatePercent:      true,
	model.SettingUnitCost:            true,
	model.SettingTargetReturnPercent: true,
	model.SettingPriceFeedToken:      true,
}

func ValidateUpdateSetting(key string, req request.UpdateSettingRequest) error {
	errors := make(map[string]string)

	if !ValidSettingKey[key] {
		errors["key"] = fmt.Sprintf("unknown setting key: %s", key)
	}

	if strings.TrimSpace(req.Value) == "" {
		errors["value"] = "value is required"
	} else if numericSettings[key] {
		if v, err := strconv.ParseFloat(req.Value, 64); err != nil {
			errors["value"] = "value must be numeric"
		} else if v < 0 {
			errors["value"] = "value cannot be negative"
		}
	}

	if len(errors) > 0 {
		return &Error{Fields: errors}
	}
	return nil
}
