package model

import "time"

// Setting is a simple key/value configuration row, e.g. the tax rate percent
// or the fixed per-unit cost used for grant amounts and cost basis.
type Setting struct {
	ID        string    `json:"id"`
	Key       string    `json:"key"`
	Value     string    `json:"value"`
	UpdatedAt time.Time `json:"updatedAt,omitempty"`
}

// Well-known setting keys.
const (
	SettingTaxRatePercent      = "tax_rate_percent"
	SettingUnitCost            = "unit_cost"
	SettingTargetReturnPercent = "target_return_percent"
	SettingPriceFeedToken      = "price_feed_token"
)
