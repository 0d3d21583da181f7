// Package validator checks invoice totals for internal consistency.
//
// Before an adjustment is applied, the provider-reported total is
// compared against the total recomputed from the subtotal under the
// requested tax rate and rounding mode. A mismatch usually means the
// caller passed the wrong rate or rounding mode for that invoice.
package validator

import (
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/ledgerline/invoice-adjust-backend/internal/domain/tax"
)

// TotalsValidation contains the result of validating invoice totals.
type TotalsValidation struct {
	// Valid is true if the reported total matches the recomputed one
	Valid bool

	// ReportedTotal is the provider's own tax-included total
	ReportedTotal int64

	// ExpectedTotal is subtotal plus rounded tax under the given policy
	ExpectedTotal int64

	// Difference is reported minus expected
	Difference int64

	// Reason explains why validation failed (empty if valid)
	Reason string
}

// ValidateTotals checks that a provider-reported total is consistent
// with the subtotal under the given tax policy. A reported total of
// zero means the provider did not supply one; that passes trivially.
func ValidateTotals(subtotal, reportedTotal int64, rate decimal.Decimal, mode tax.RoundMode) *TotalsValidation {
	expected := subtotal + tax.Apply(subtotal, rate, mode)

	if reportedTotal == 0 {
		return &TotalsValidation{
			Valid:         true,
			ExpectedTotal: expected,
		}
	}

	diff := reportedTotal - expected
	if diff == 0 {
		return &TotalsValidation{
			Valid:         true,
			ReportedTotal: reportedTotal,
			ExpectedTotal: expected,
		}
	}

	var reason string
	if diff < 0 {
		reason = fmt.Sprintf("reported total %d is %d below subtotal plus %s tax at rate %s; the rate or rounding mode may be wrong for this invoice",
			reportedTotal, -diff, mode, rate)
	} else {
		reason = fmt.Sprintf("reported total %d exceeds subtotal plus %s tax at rate %s by %d; the invoice may already carry extra line items",
			reportedTotal, mode, rate, diff)
	}

	return &TotalsValidation{
		Valid:         false,
		ReportedTotal: reportedTotal,
		ExpectedTotal: expected,
		Difference:    diff,
		Reason:        reason,
	}
}
