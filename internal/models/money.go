package models

import "github.com/shopspring/decimal"

// FormatMinorUnits renders an amount in minor currency units (cents) as a
// major-unit string with two decimal places, e.g. 1999 -> "19.99".
func FormatMinorUnits(amount BigInt) string {
	return decimal.NewFromBigInt(&amount.Int, -2).StringFixed(2)
}
