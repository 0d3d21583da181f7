package cli

import "flag"

// AdjustFlags are the flags for the adjust command
type AdjustFlags struct {
	InvoiceID string
	Target    int64
	Rate      string
	Mode      string
	Provider  string
	DryRun    bool
	Verbose   bool
}

// ParseAdjustFlags parses adjust command flags from the command line
func ParseAdjustFlags() AdjustFlags {
	var flags AdjustFlags
	flag.StringVar(&flags.InvoiceID, "invoice", "", "Invoice ID to adjust (required)")
	flag.Int64Var(&flags.Target, "target", 0, "Target tax-included total in the smallest currency unit (required)")
	flag.StringVar(&flags.Rate, "rate", "", "Tax rate as a decimal string, e.g. 0.1 (default from config)")
	flag.StringVar(&flags.Mode, "mode", "", "Tax rounding mode: floor, ceil or nearest (default from config)")
	flag.StringVar(&flags.Provider, "provider", "", "Billing provider name (default from config)")
	flag.BoolVar(&flags.DryRun, "dry-run", false, "Solve and audit without writing to the provider")
	flag.BoolVar(&flags.Verbose, "verbose", false, "Verbose output")
	flag.Parse()
	return flags
}
