package cli

import (
	"fmt"
	"strings"

	"github.com/ledgerline/invoice-adjust-backend/internal/application/service"
	"github.com/ledgerline/invoice-adjust-backend/internal/domain/adjuster"
)

// PrintHeader prints the command header
func PrintHeader(providerName string, dryRun bool) {
	mode := "PRODUCTION"
	if dryRun {
		mode = "DRY-RUN"
	}
	fmt.Printf("invoice-adjust: %s (%s mode)\n", providerName, mode)
}

// PrintRequest prints what is about to be solved
func PrintRequest(invoiceID string, target int64, rate, mode string) {
	fmt.Printf("Invoice: %s | Target: %d | Rate: %s | Rounding: %s\n\n", invoiceID, target, rate, mode)
}

// PrintOutcome prints a solver outcome
func PrintOutcome(outcome adjuster.Outcome) {
	fmt.Println(strings.Repeat("-", 60))
	if !outcome.Valid {
		fmt.Printf("No exact adjustment: %s\n", outcome.Reason)
	}
	fmt.Printf("Discount:          %d\n", outcome.Discount)
	fmt.Printf("Adjusted subtotal: %d\n", outcome.AdjustedSubtotal)
	fmt.Printf("Tax:               %d\n", outcome.TaxAmount)
	fmt.Printf("Final total:       %d\n", outcome.FinalTotal)
}

// PrintApplySummary prints the result of applying an adjustment
func PrintApplySummary(result *service.ApplyResult) {
	PrintOutcome(result.Outcome)
	fmt.Println(strings.Repeat("-", 60))
	fmt.Printf("Request ID: %s\n", result.RequestID)

	if result.DryRun {
		fmt.Println("\nDry run: no line item was written.")
		return
	}

	fmt.Printf("Line item:  %s\n", result.LineItemID)
	fmt.Println("\nAdjustment applied successfully.")
}
