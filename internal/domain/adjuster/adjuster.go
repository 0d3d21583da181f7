// Package adjuster solves the inverse tax-total problem: find the integer
// discount (or surcharge, if negative) that makes a subtotal plus its
// rounded tax land exactly on a requested total.
//
// Rounding makes the final total a step function of the discount, so not
// every target is reachable. The solver exploits the fact that the total
// never increases as the discount grows: a bisection narrows the interval
// in O(log subtotal) probes, and a short exhaustive scan closes the gap a
// rounding plateau can leave behind. When no discount hits the target
// exactly, the closest achievable total is reported instead.
package adjuster

import (
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/ledgerline/invoice-adjust-backend/internal/domain/tax"
)

// Request describes a single adjustment problem. Amounts are integers in
// the smallest currency unit.
type Request struct {
	// Subtotal is the pre-tax amount. Must be >= 0.
	Subtotal int64

	// TargetTotal is the desired tax-included total.
	TargetTotal int64

	// TaxRate must be in [0, 1].
	TaxRate decimal.Decimal

	// RoundMode defaults to tax.DefaultRoundMode when empty.
	RoundMode tax.RoundMode
}

// Outcome is the result of solving a Request.
type Outcome struct {
	// Discount is subtracted from the subtotal. Negative means surcharge.
	Discount int64

	// Valid is true iff FinalTotal equals the requested target.
	Valid bool

	// AdjustedSubtotal is Subtotal - Discount.
	AdjustedSubtotal int64

	// TaxAmount is the rounded tax on AdjustedSubtotal.
	TaxAmount int64

	// FinalTotal is AdjustedSubtotal + TaxAmount.
	FinalTotal int64

	// Reason explains why the outcome is not valid (empty if valid).
	Reason string
}

var one = decimal.NewFromInt(1)

// Solve finds the discount whose adjusted total matches the target.
//
// Validation failures and unreachable targets are reported through the
// Outcome, never as an error: every call returns the best self-consistent
// result it can, with Reason describing what went wrong.
func Solve(req Request) Outcome {
	mode := req.RoundMode
	if mode == "" {
		mode = tax.DefaultRoundMode
	}

	if req.Subtotal < 0 {
		return Outcome{
			Valid:            false,
			AdjustedSubtotal: req.Subtotal,
			FinalTotal:       req.Subtotal,
			Reason:           "subtotal cannot be negative",
		}
	}
	if req.TaxRate.IsNegative() || req.TaxRate.GreaterThan(one) {
		return Outcome{
			Valid:            false,
			AdjustedSubtotal: req.Subtotal,
			FinalTotal:       req.Subtotal,
			Reason:           "tax rate must be between 0 and 1",
		}
	}

	total := func(d int64) int64 {
		adjusted := req.Subtotal - d
		return adjusted + tax.Apply(adjusted, req.TaxRate, mode)
	}

	// Fast path: the invoice already adds up.
	current := total(0)
	if current == req.TargetTotal {
		return outcomeAt(req, 0, mode)
	}

	// A discount beyond +subtotal would drive the adjusted subtotal
	// negative; a surcharge beyond -subtotal would more than double it.
	minD, maxD := -req.Subtotal, req.Subtotal

	bestD := int64(0)
	bestTotal := current
	bestDiff := abs(current - req.TargetTotal)

	// total(d) is non-increasing in d, so bisection applies. Plateaus
	// caused by rounding can still hide the target in the final one or
	// two candidates, which the scan below resolves.
	for maxD-minD > 1 {
		mid := floorMid(minD, maxD)
		got := total(mid)

		if diff := abs(got - req.TargetTotal); diff < bestDiff {
			bestD, bestTotal, bestDiff = mid, got, diff
		}

		if got == req.TargetTotal {
			return outcomeAt(req, mid, mode)
		}
		if got > req.TargetTotal {
			// Still above target: more discount needed.
			minD = mid + 1
		} else {
			maxD = mid - 1
		}
	}

	for d := minD; d <= maxD; d++ {
		got := total(d)
		if got == req.TargetTotal {
			return outcomeAt(req, d, mode)
		}
		if diff := abs(got - req.TargetTotal); diff < bestDiff {
			bestD, bestTotal, bestDiff = d, got, diff
		}
	}

	out := outcomeAt(req, bestD, mode)
	out.Valid = false
	out.Reason = fmt.Sprintf("no discount reaches total %d exactly; closest achievable total is %d", req.TargetTotal, bestTotal)
	return out
}

// outcomeAt builds the fully-derived outcome for a specific discount.
func outcomeAt(req Request, discount int64, mode tax.RoundMode) Outcome {
	adjusted := req.Subtotal - discount
	taxAmount := tax.Apply(adjusted, req.TaxRate, mode)
	return Outcome{
		Discount:         discount,
		Valid:            true,
		AdjustedSubtotal: adjusted,
		TaxAmount:        taxAmount,
		FinalTotal:       adjusted + taxAmount,
	}
}

// floorMid is the midpoint rounded toward negative infinity, matching the
// bisection's half-open reasoning even when the interval straddles zero.
func floorMid(lo, hi int64) int64 {
	sum := lo + hi
	mid := sum / 2
	if sum < 0 && sum%2 != 0 {
		mid--
	}
	return mid
}

func abs(v int64) int64 {
	if v < 0 {
		return -v
	}
	return v
}
