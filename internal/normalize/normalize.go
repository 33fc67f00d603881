// Package normalize converts monetary amounts to the reference currency and
// physical quantities to the reference weight unit before aggregation.
package normalize

// ReferenceCurrencyFlag marks rows already denominated in the reference
// currency; the legacy record sets encode pesos as flag 1.
const ReferenceCurrencyFlag = 1

// ReferenceWeightUnit is the unit of measure all quantities normalize to.
const ReferenceWeightUnit = "KG"

// Money converts an amount to the reference currency using the row's
// currency flag and exchange rate. Rows already flagged as reference pass
// through unchanged.
func Money(amount float64, currencyFlag int, exchangeRate float64) float64 {
	if currencyFlag == ReferenceCurrencyFlag {
		return amount
	}
	return amount * exchangeRate
}

// Weight converts a quantity to the reference weight unit, applying the
// product conversion factor only when the unit of measure differs from it.
func Weight(qty float64, unit string, factor float64) float64 {
	if unit == ReferenceWeightUnit {
		return qty
	}
	return qty * factor
}

// WeightRaw applies the conversion factor unconditionally. Finished-goods
// billing and order figures use this form so totals reconcile with the
// legacy ERP, which multiplies by the factor even for KG-denominated lines.
func WeightRaw(qty float64, factor float64) float64 {
	return qty * factor
}

// SafeFactor maps a zero conversion factor to 1. Some raw-material product
// records carry a factor of 0 even though they are purchased by weight.
func SafeFactor(factor float64) float64 {
	if factor == 0 {
		return 1
	}
	return factor
}
