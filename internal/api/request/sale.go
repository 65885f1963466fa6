package request

// CreateSaleRequest is the payload for recording a sale against a grant.
type CreateSaleRequest struct {
	GrantID      string  `json:"grantId"`
	SaleDate     string  `json:"saleDate"`
	QuantitySold int     `json:"quantitySold"`
	SalePrice    float64 `json:"salePrice"`
	Notes        string  `json:"notes,omitempty"`
}

// UpdateSaleRequest is the payload for editing an existing sale. Quantity is
// deliberately absent: an edit never changes what was sold.
type UpdateSaleRequest struct {
	SaleDate  string  `json:"saleDate"`
	SalePrice float64 `json:"salePrice"`
	Notes     string  `json:"notes,omitempty"`
}
