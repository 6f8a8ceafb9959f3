package models

import "github.com/shopspring/decimal"

// StoreScale is the scale of every money column in the ledger schema
const StoreScale int32 = 2

// DefaultCurrencyScale is the number of minor-unit digits (cents)
const DefaultCurrencyScale = StoreScale

// RoundMinor rounds an amount to the currency's minor unit using banker's rounding
func RoundMinor(amount decimal.Decimal, scale int32) decimal.Decimal {
	return amount.RoundBank(scale)
}

// FitsMinorUnit reports whether amount is representable in the currency without rounding
func FitsMinorUnit(amount decimal.Decimal, scale int32) bool {
	return amount.Equal(amount.Truncate(scale))
}

// IsPositiveMoney reports whether amount is a strictly positive value in the currency's minor unit
func IsPositiveMoney(amount decimal.Decimal, scale int32) bool {
	return amount.IsPositive() && FitsMinorUnit(amount, scale)
}
