package kpi

import (
	"math"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

var printer = message.NewPrinter(language.Spanish)

// FormatCurrency renders an amount for display: whole pesos with grouping
// above 999, two decimals below. Non-finite values render empty so a
// degenerate aggregate never shows as NaN.
func FormatCurrency(v float64) string {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return ""
	}
	if math.Abs(v) > 999 {
		return printer.Sprintf("$%.0f", v)
	}
	return printer.Sprintf("$%.2f", v)
}

// FormatWeight renders a weight in the reference unit.
func FormatWeight(v float64) string {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return ""
	}
	if math.Abs(v) > 999 {
		return printer.Sprintf("%.0f KG", v)
	}
	return printer.Sprintf("%.2f KG", v)
}

// FormatPercent renders a ratio as a percentage.
func FormatPercent(ratio float64, withDecimals bool) string {
	if math.IsNaN(ratio) || math.IsInf(ratio, 0) {
		return ""
	}
	if withDecimals {
		return printer.Sprintf("%.2f%%", ratio*100)
	}
	return printer.Sprintf("%.0f%%", ratio*100)
}
