package ledger

import "github.com/shopspring/decimal"

// Classification tiers for a closure discrepancy.
const (
	ClassNormal  = "normal"
	ClassWarning = "warning"
	ClassAlert   = "alert"
)

// Thresholds are the classification cut-offs in percent. Both comparisons
// are strict: exactly WarningAbove classifies normal, exactly AlertAbove
// classifies warning.
type Thresholds struct {
	WarningAbove decimal.Decimal
	AlertAbove   decimal.Decimal
}

// DefaultThresholds are the observed production values: warning above 0.5%,
// alert above 1.0%.
func DefaultThresholds() Thresholds {
	return Thresholds{
		WarningAbove: decimal.RequireFromString("0.5"),
		AlertAbove:   decimal.RequireFromString("1.0"),
	}
}

// Classify maps a signed difference percentage to its tier using the
// absolute value.
func Classify(differencePercent decimal.Decimal, t Thresholds) string {
	abs := differencePercent.Abs()
	switch {
	case abs.GreaterThan(t.AlertAbove):
		return ClassAlert
	case abs.GreaterThan(t.WarningAbove):
		return ClassWarning
	default:
		return ClassNormal
	}
}
