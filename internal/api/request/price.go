package request

// PriceRecordRequest is one raw price record in a bulk ingestion payload.
type PriceRecordRequest struct {
	FundName          string  `json:"fundName,omitempty"`
	ExerciseReference float64 `json:"exerciseReference"`
	PriceDate         string  `json:"priceDate"`
	Value             float64 `json:"value"`
}

// BulkPriceRequest is the payload for bulk price ingestion.
type BulkPriceRequest struct {
	Records []PriceRecordRequest `json:"records"`
}
