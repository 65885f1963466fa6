package model

import "time"

// EvolutionSnapshot is one per-day aggregate of total portfolio value with
// append-only human-readable annotations. At most one snapshot exists per
// calendar date; numeric fields hold the latest computed totals while Notes
// accumulates bullet lines.
type EvolutionSnapshot struct {
	ID                  string    `json:"id"`
	SnapshotDate        time.Time `json:"snapshotDate"`
	TotalPortfolioValue float64   `json:"totalPortfolioValue"`
	TotalUnrealizedGain float64   `json:"totalUnrealizedGain"`
	TotalRealizedGain   float64   `json:"totalRealizedGain"`
	TotalOptionsCount   int       `json:"totalOptionsCount"`
	ActiveOptionsCount  int       `json:"activeOptionsCount"`
	Notes               string    `json:"notes,omitempty"`
	CreatedAt           time.Time `json:"createdAt,omitempty"`
	UpdatedAt           time.Time `json:"updatedAt,omitempty"`
}

// PortfolioTotals holds the freshly computed aggregate figures written into a
// snapshot. All call sites compute these through the same code path so the
// numbers cannot silently diverge between triggers.
type PortfolioTotals struct {
	TotalPortfolioValue float64
	TotalUnrealizedGain float64
	TotalRealizedGain   float64
	TotalOptionsCount   int
	ActiveOptionsCount  int
}
