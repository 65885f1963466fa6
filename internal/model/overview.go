package model

import "time"

// Selling status values for a grant in the portfolio overview.
const (
	SellingStatusHolding = "holding"
	SellingStatusPartial = "partially_sold"
	SellingStatusSold    = "fully_sold"
)

// GrantOverview is one grant joined with its latest known price and computed
// profit/loss figures. LatestPrice is re-joined against the price store on
// every read; the grant's cached current_value is only a fallback.
type GrantOverview struct {
	GrantID           string    `json:"grantId"`
	GrantDate         time.Time `json:"grantDate"`
	FundName          string    `json:"fundName,omitempty"`
	ExerciseReference float64   `json:"exerciseReference"`
	Quantity          int       `json:"quantity"`
	QuantityRemaining int       `json:"quantityRemaining"`
	LatestPrice       float64   `json:"latestPrice"`
	PriceAvailable    bool      `json:"priceAvailable"`
	CurrentValue      float64   `json:"currentValue"`
	AmountGranted     float64   `json:"amountGranted"`
	Tax               float64   `json:"tax"`
	TaxIsManual       bool      `json:"taxIsManual"`
	UnrealizedGain    float64   `json:"unrealizedGain"`
	RealizedGain      float64   `json:"realizedGain"`
	ReturnPercent     float64   `json:"returnPercent"`
	TargetReached     bool      `json:"targetReached"`
	SellingStatus     string    `json:"sellingStatus"`
}

// PortfolioOverview aggregates all grant overviews with portfolio-wide totals.
type PortfolioOverview struct {
	Grants              []GrantOverview `json:"grants"`
	TotalPortfolioValue float64         `json:"totalPortfolioValue"`
	TotalUnrealizedGain float64         `json:"totalUnrealizedGain"`
	TotalRealizedGain   float64         `json:"totalRealizedGain"`
	TotalOptionsCount   int             `json:"totalOptionsCount"`
	ActiveOptionsCount  int             `json:"activeOptionsCount"`
}
