package model

import "time"

// PriceObservation is an immutable fact: on price_date, the option series
// identified by (exercise_reference, grant_date) was worth this much.
// Observations are supplied by the external price feed or bulk ingestion;
// the engine never mutates an existing observation.
type PriceObservation struct {
	ID                string    `json:"id"`
	FundName          string    `json:"fundName,omitempty"`
	ExerciseReference float64   `json:"exerciseReference"`
	GrantDate         time.Time `json:"grantDate"`
	PriceDate         time.Time `json:"priceDate"`
	Value             float64   `json:"value"`
	CreatedAt         time.Time `json:"createdAt,omitempty"`
}

// MatchType classifies how a price resolution was satisfied.
type MatchType string

const (
	MatchExact         MatchType = "exact"
	MatchNearestBefore MatchType = "nearest-before"
	MatchNearestAfter  MatchType = "nearest-after"
	MatchDerived       MatchType = "derived"
	MatchUnavailable   MatchType = "unavailable"
)

// PriceResolution is the outcome of resolving a price for a target date.
// An unavailable resolution is a valid, empty result (price zero), not an
// error: callers decide how to degrade.
type PriceResolution struct {
	Price      float64   `json:"price"`
	MatchType  MatchType `json:"matchType"`
	SourceDate time.Time `json:"sourceDate,omitempty"`
}

// PriceRecord is one raw record consumed from the price-fetching collaborator
// or from bulk CSV ingestion.
type PriceRecord struct {
	FundName          string  `json:"fundName"`
	ExerciseReference float64 `json:"exerciseReference"`
	PriceDate         string  `json:"priceDate"`
	Value             float64 `json:"value"`
}
