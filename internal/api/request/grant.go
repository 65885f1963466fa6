package request

// CreateGrantRequest is the payload for adding a new grant. ManualTax, when
// provided, overrides the auto-calculated tax as the authoritative figure.
type CreateGrantRequest struct {
	GrantDate         string   `json:"grantDate"`
	ExerciseReference float64  `json:"exerciseReference"`
	Quantity          int      `json:"quantity"`
	ManualTax         *float64 `json:"manualTax,omitempty"`
}

// MergeGrantRequest is the payload for folding additional options into an
// existing grant.
type MergeGrantRequest struct {
	AdditionalQuantity  int      `json:"additionalQuantity"`
	AdditionalManualTax *float64 `json:"additionalManualTax,omitempty"`
}
