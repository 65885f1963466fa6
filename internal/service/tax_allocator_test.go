package service

import (
	"math"
	"testing"
)

func floatPtr(v float64) *float64 {
	return &v
}

func almostEqual(a, b float64) bool {
	return math.Abs(a-b) < 1e-9
}

func TestAutoTax(t *testing.T) {
	allocator := NewTaxAllocator()

	tests := []struct {
		name     string
		quantity int
		unitCost float64
		rate     float64
		want     float64
	}{
		{"standard rate", 100, 10, 30, 300},
		{"zero quantity", 0, 10, 30, 0},
		{"zero rate", 100, 10, 0, 0},
		{"fractional rate", 50, 10, 37.5, 187.5},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := allocator.AutoTax(tt.quantity, tt.unitCost, tt.rate)
			if !almostEqual(got, tt.want) {
				t.Errorf("AutoTax(%d, %v, %v) = %v, want %v", tt.quantity, tt.unitCost, tt.rate, got, tt.want)
			}
		})
	}
}

func TestMergeTax(t *testing.T) {
	allocator := NewTaxAllocator()

	t.Run("fully auto grant stays auto", func(t *testing.T) {
		outcome := allocator.MergeTax(nil, 300, 50, nil, 10, 30)

		if outcome.TaxAmount != nil {
			t.Errorf("expected no manual tax, got %v", *outcome.TaxAmount)
		}
		if !almostEqual(outcome.TaxAutoCalculated, 450) {
			t.Errorf("expected auto tax 450, got %v", outcome.TaxAutoCalculated)
		}
	})

	t.Run("manual grant with auto addition stays manual", func(t *testing.T) {
		outcome := allocator.MergeTax(floatPtr(250), 300, 50, nil, 10, 30)

		if outcome.TaxAmount == nil {
			t.Fatal("expected manual tax to remain authoritative")
		}
		if !almostEqual(*outcome.TaxAmount, 400) {
			t.Errorf("expected manual tax 250+150=400, got %v", *outcome.TaxAmount)
		}
		if !almostEqual(outcome.TaxAutoCalculated, 300) {
			t.Errorf("expected auto tax untouched at 300, got %v", outcome.TaxAutoCalculated)
		}
	})

	t.Run("manual addition onto manual grant", func(t *testing.T) {
		outcome := allocator.MergeTax(floatPtr(250), 300, 50, floatPtr(100), 10, 30)

		if outcome.TaxAmount == nil {
			t.Fatal("expected manual tax to remain authoritative")
		}
		if !almostEqual(*outcome.TaxAmount, 350) {
			t.Errorf("expected manual tax 250+100=350, got %v", *outcome.TaxAmount)
		}
		if !almostEqual(outcome.TaxAutoCalculated, 300) {
			t.Errorf("expected auto tax untouched at 300, got %v", outcome.TaxAutoCalculated)
		}
	})

	t.Run("manual addition onto auto grant becomes manual", func(t *testing.T) {
		outcome := allocator.MergeTax(nil, 300, 50, floatPtr(100), 10, 30)

		if outcome.TaxAmount == nil {
			t.Fatal("expected manual tax to become authoritative")
		}
		if !almostEqual(*outcome.TaxAmount, 400) {
			t.Errorf("expected manual tax 300+100=400, got %v", *outcome.TaxAmount)
		}
		if !almostEqual(outcome.TaxAutoCalculated, 300) {
			t.Errorf("expected auto tax untouched at 300, got %v", outcome.TaxAutoCalculated)
		}
	})

	t.Run("zero manual addition falls through to auto", func(t *testing.T) {
		outcome := allocator.MergeTax(nil, 300, 50, floatPtr(0), 10, 30)

		if outcome.TaxAmount != nil {
			t.Errorf("expected no manual tax, got %v", *outcome.TaxAmount)
		}
		if !almostEqual(outcome.TaxAutoCalculated, 450) {
			t.Errorf("expected auto tax 450, got %v", outcome.TaxAutoCalculated)
		}
	})
}

func TestAllocateForSale(t *testing.T) {
	allocator := NewTaxAllocator()

	t.Run("proportional allocation", func(t *testing.T) {
		allocated, remaining := allocator.AllocateForSale(300, 100, 40)

		if !almostEqual(allocated, 120) {
			t.Errorf("expected 120 allocated, got %v", allocated)
		}
		if !almostEqual(remaining, 180) {
			t.Errorf("expected 180 remaining, got %v", remaining)
		}
	})

	t.Run("sequence differs from single larger sale", func(t *testing.T) {
		// Sell 30 of 100, then 20 of 70.
		first, afterFirst := allocator.AllocateForSale(300, 100, 30)
		if !almostEqual(first, 90) || !almostEqual(afterFirst, 210) {
			t.Fatalf("first sale: allocated %v remaining %v, want 90 and 210", first, afterFirst)
		}
		_, afterSecond := allocator.AllocateForSale(afterFirst, 70, 20)
		if !almostEqual(afterSecond, 150) {
			t.Errorf("sequential remainder = %v, want 150", afterSecond)
		}

		// Selling 50 of 100 directly yields the same remainder here, but the
		// path matters once rates drift; assert the formula directly.
		_, direct := allocator.AllocateForSale(300, 100, 50)
		if !almostEqual(direct, 150) {
			t.Errorf("direct remainder = %v, want 150", direct)
		}
	})

	t.Run("tax conservation ratio", func(t *testing.T) {
		// Selling q of R reduces T to T*(R-q)/R.
		_, remaining := allocator.AllocateForSale(210, 70, 20)
		want := 210 * float64(70-20) / 70
		if !almostEqual(remaining, want) {
			t.Errorf("remaining = %v, want %v", remaining, want)
		}
	})

	t.Run("zero remaining allocates nothing", func(t *testing.T) {
		allocated, remaining := allocator.AllocateForSale(300, 0, 10)

		if allocated != 0 {
			t.Errorf("expected 0 allocated, got %v", allocated)
		}
		if !almostEqual(remaining, 300) {
			t.Errorf("expected tax untouched at 300, got %v", remaining)
		}
	})

	t.Run("selling everything clears the tax", func(t *testing.T) {
		allocated, remaining := allocator.AllocateForSale(300, 60, 60)

		if !almostEqual(allocated, 300) {
			t.Errorf("expected 300 allocated, got %v", allocated)
		}
		if remaining != 0 {
			t.Errorf("expected 0 remaining, got %v", remaining)
		}
	})
}
