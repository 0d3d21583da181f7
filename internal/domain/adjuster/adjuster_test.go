package adjuster

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ledgerline/invoice-adjust-backend/internal/domain/tax"
)

func rate(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

// checkInvariants asserts the arithmetic identities every outcome must
// satisfy regardless of validity.
func checkInvariants(t *testing.T, req Request, out Outcome) {
	t.Helper()
	assert.Equal(t, out.AdjustedSubtotal+out.TaxAmount, out.FinalTotal,
		"final total must be adjusted subtotal plus tax")
	assert.Equal(t, req.Subtotal-out.Discount, out.AdjustedSubtotal,
		"adjusted subtotal must be subtotal minus discount")
	if out.Valid {
		assert.GreaterOrEqual(t, out.AdjustedSubtotal, int64(0),
			"valid outcomes never have a negative adjusted subtotal")
		assert.Empty(t, out.Reason)
	} else {
		assert.NotEmpty(t, out.Reason)
	}
}

func TestSolve_ExactDiscount(t *testing.T) {
	// Real invoice: 290,000 subtotal at 10% should settle at 315,000.
	req := Request{
		Subtotal:    290000,
		TargetTotal: 315000,
		TaxRate:     rate("0.1"),
		RoundMode:   tax.RoundFloor,
	}

	out := Solve(req)

	require.True(t, out.Valid)
	assert.Equal(t, int64(3636), out.Discount)
	assert.Equal(t, int64(286364), out.AdjustedSubtotal)
	assert.Equal(t, int64(28636), out.TaxAmount)
	assert.Equal(t, int64(315000), out.FinalTotal)
	checkInvariants(t, req, out)
}

func TestSolve_AlreadyBalanced(t *testing.T) {
	// 1000 + 10% = 1100 - nothing to do.
	req := Request{
		Subtotal:    1000,
		TargetTotal: 1100,
		TaxRate:     rate("0.1"),
		RoundMode:   tax.RoundFloor,
	}

	out := Solve(req)

	require.True(t, out.Valid)
	assert.Equal(t, int64(0), out.Discount)
	assert.Equal(t, int64(1100), out.FinalTotal)
	checkInvariants(t, req, out)
}

func TestSolve_DiscountScenario(t *testing.T) {
	req := Request{
		Subtotal:    10000,
		TargetTotal: 9900,
		TaxRate:     rate("0.1"),
		RoundMode:   tax.RoundFloor,
	}

	out := Solve(req)

	require.True(t, out.Valid)
	assert.Positive(t, out.Discount)
	assert.Equal(t, int64(9900), out.FinalTotal)
	checkInvariants(t, req, out)
}

func TestSolve_SurchargeScenario(t *testing.T) {
	// Target above the current total requires a negative discount.
	req := Request{
		Subtotal:    10000,
		TargetTotal: 12100,
		TaxRate:     rate("0.1"),
		RoundMode:   tax.RoundFloor,
	}

	out := Solve(req)

	require.True(t, out.Valid)
	assert.Negative(t, out.Discount)
	assert.Equal(t, int64(12100), out.FinalTotal)
	checkInvariants(t, req, out)
}

func TestSolve_Validation(t *testing.T) {
	t.Run("negative subtotal", func(t *testing.T) {
		req := Request{Subtotal: -1, TargetTotal: 100, TaxRate: rate("0.1")}

		out := Solve(req)

		assert.False(t, out.Valid)
		assert.Contains(t, out.Reason, "negative")
		assert.Equal(t, int64(0), out.Discount)
		assert.Equal(t, int64(-1), out.AdjustedSubtotal)
		assert.Equal(t, int64(0), out.TaxAmount)
		assert.Equal(t, int64(-1), out.FinalTotal)
	})

	t.Run("tax rate above one", func(t *testing.T) {
		req := Request{Subtotal: 1000, TargetTotal: 1100, TaxRate: rate("1.5")}

		out := Solve(req)

		assert.False(t, out.Valid)
		assert.Contains(t, out.Reason, "between 0 and 1")
		assert.Equal(t, int64(0), out.Discount)
		assert.Equal(t, int64(1000), out.FinalTotal)
	})

	t.Run("negative tax rate", func(t *testing.T) {
		req := Request{Subtotal: 1000, TargetTotal: 1100, TaxRate: rate("-0.1")}

		out := Solve(req)

		assert.False(t, out.Valid)
		assert.Contains(t, out.Reason, "between 0 and 1")
	})
}

func TestSolve_UnreachableTarget(t *testing.T) {
	t.Run("plateau skips the target", func(t *testing.T) {
		// With floor rounding at 10%, totals jump from 9 (adjusted
		// subtotal 9) straight to 11 (adjusted subtotal 10): a final
		// total of 10 does not exist.
		req := Request{
			Subtotal:    100,
			TargetTotal: 10,
			TaxRate:     rate("0.1"),
			RoundMode:   tax.RoundFloor,
		}

		out := Solve(req)

		assert.False(t, out.Valid)
		assert.Contains(t, out.Reason, "closest achievable")
		assert.Equal(t, int64(1), absDiff(out.FinalTotal, req.TargetTotal),
			"closest total should be one off the target")
		checkInvariants(t, req, out)
	})

	t.Run("target beyond the surcharge bound", func(t *testing.T) {
		req := Request{
			Subtotal:    100,
			TargetTotal: 1000000,
			TaxRate:     rate("0.1"),
			RoundMode:   tax.RoundFloor,
		}

		out := Solve(req)

		assert.False(t, out.Valid)
		// Best achievable is the full surcharge: adjusted subtotal 200.
		assert.Equal(t, int64(-100), out.Discount)
		assert.Equal(t, int64(220), out.FinalTotal)
		checkInvariants(t, req, out)
	})
}

func TestSolve_ZeroSubtotal(t *testing.T) {
	t.Run("trivially balanced", func(t *testing.T) {
		req := Request{Subtotal: 0, TargetTotal: 0, TaxRate: rate("0.1")}

		out := Solve(req)

		require.True(t, out.Valid)
		assert.Equal(t, int64(0), out.Discount)
	})

	t.Run("nothing to adjust", func(t *testing.T) {
		req := Request{Subtotal: 0, TargetTotal: 5, TaxRate: rate("0.1")}

		out := Solve(req)

		assert.False(t, out.Valid)
		assert.Equal(t, int64(0), out.FinalTotal)
		checkInvariants(t, req, out)
	})
}

func TestSolve_DefaultsToFloor(t *testing.T) {
	// 105 at 10%: floor gives 115, ceil and nearest give 116.
	req := Request{Subtotal: 105, TargetTotal: 115, TaxRate: rate("0.1")}

	out := Solve(req)

	require.True(t, out.Valid)
	assert.Equal(t, int64(0), out.Discount)
}

func TestSolve_RoundingModes(t *testing.T) {
	for _, mode := range []tax.RoundMode{tax.RoundCeil, tax.RoundNearest} {
		req := Request{Subtotal: 105, TargetTotal: 116, TaxRate: rate("0.1"), RoundMode: mode}

		out := Solve(req)

		require.True(t, out.Valid, "mode %s", mode)
		assert.Equal(t, int64(0), out.Discount, "mode %s", mode)
	}
}

func TestSolve_ExactMatchesAcrossGrid(t *testing.T) {
	// For every reachable total, solving for it must come back exact.
	req := Request{Subtotal: 777, TaxRate: rate("0.085"), RoundMode: tax.RoundNearest}

	seen := make(map[int64]bool)
	for d := -req.Subtotal; d <= req.Subtotal; d++ {
		adjusted := req.Subtotal - d
		total := adjusted + tax.Apply(adjusted, req.TaxRate, req.RoundMode)
		seen[total] = true
	}

	for target := range seen {
		r := req
		r.TargetTotal = target
		out := Solve(r)
		require.True(t, out.Valid, "target %d should be reachable", target)
		require.Equal(t, target, out.FinalTotal)
		checkInvariants(t, r, out)
	}
}

func TestSolve_TotalIsNonIncreasingInDiscount(t *testing.T) {
	subtotal := int64(500)
	r := rate("0.07")

	for _, mode := range []tax.RoundMode{tax.RoundFloor, tax.RoundCeil, tax.RoundNearest} {
		prev := int64(1 << 62)
		for d := -subtotal; d <= subtotal; d++ {
			adjusted := subtotal - d
			total := adjusted + tax.Apply(adjusted, r, mode)
			require.LessOrEqual(t, total, prev, "mode %s at discount %d", mode, d)
			prev = total
		}
	}
}

func absDiff(a, b int64) int64 {
	if a > b {
		return a - b
	}
	return b - a
}
