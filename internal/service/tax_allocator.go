package service

// TaxAllocator computes auto-calculated tax, merges tax on grant
// consolidation, and reallocates tax proportionally when quantity is sold.
// All methods are pure; the caller supplies the configured rate and unit cost.
type TaxAllocator struct{}

// NewTaxAllocator creates a new TaxAllocator.
func NewTaxAllocator() *TaxAllocator {
	return &TaxAllocator{}
}

// AutoTax computes the automatic tax figure for a quantity of options:
// quantity x unitCost x taxRatePercent / 100.
func (a *TaxAllocator) AutoTax(quantity int, unitCost, taxRatePercent float64) float64 {
	return float64(quantity) * unitCost * taxRatePercent / 100.0
}

// MergeOutcome describes the authoritative tax fields after merging
// additional quantity into an existing grant.
type MergeOutcome struct {
	// TaxAmount is the manual tax figure after the merge, nil when the grant
	// stays fully auto-calculated.
	TaxAmount *float64
	// TaxAutoCalculated is the auto figure after the merge. Unchanged from the
	// existing grant whenever a manual figure is authoritative.
	TaxAutoCalculated float64
}

// MergeTax applies the consolidation policy when additionalQuantity is merged
// into a grant. The three branches decide which field stays authoritative:
//
//  1. Caller supplies a positive manual amount for the new portion: it is
//     added to the existing authoritative tax and stored as a manual figure.
//  2. The grant already has a manual figure: auto tax for the new portion is
//     added onto the manual figure; the stored auto figure is untouched.
//  3. Fully-auto grant: auto tax for the new portion is added to the auto
//     figure; no manual figure is introduced.
//
// Future sales allocate against whichever field this outcome leaves
// authoritative, so the branch order must not change.
func (a *TaxAllocator) MergeTax(
	existingTaxAmount *float64,
	existingTaxAuto float64,
	additionalQuantity int,
	additionalManualTax *float64,
	unitCost, taxRatePercent float64,
) MergeOutcome {
	addedAuto := a.AutoTax(additionalQuantity, unitCost, taxRatePercent)

	if additionalManualTax != nil && *additionalManualTax > 0 {
		authoritative := existingTaxAuto
		if existingTaxAmount != nil {
			authoritative = *existingTaxAmount
		}
		merged := authoritative + *additionalManualTax
		return MergeOutcome{TaxAmount: &merged, TaxAutoCalculated: existingTaxAuto}
	}

	if existingTaxAmount != nil {
		merged := *existingTaxAmount + addedAuto
		return MergeOutcome{TaxAmount: &merged, TaxAutoCalculated: existingTaxAuto}
	}

	return MergeOutcome{TaxAmount: nil, TaxAutoCalculated: existingTaxAuto + addedAuto}
}

// AllocateForSale reallocates tax when quantitySold options are sold from a
// grant whose remaining (unsold) quantity is remainingBefore and whose
// authoritative tax is totalTax.
//
// The per-option rate is derived from what is left, not from the original
// grant-wide rate, which makes the result path-dependent: sequential partial
// sales yield a different remainder than one larger sale. The order of
// operations here must be preserved exactly.
func (a *TaxAllocator) AllocateForSale(totalTax float64, remainingBefore, quantitySold int) (allocated, newTotal float64) {
	perOptionTax := 0.0
	if remainingBefore > 0 {
		perOptionTax = totalTax / float64(remainingBefore)
	}

	allocated = perOptionTax * float64(quantitySold)

	newTotal = totalTax - allocated
	if newTotal < 0 {
		newTotal = 0
	}

	return allocated, newTotal
}
