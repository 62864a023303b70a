// Package money applies the storefront's rounding policy: every monetary
// value is rounded half away from zero to two decimals at each step.
package money

import "github.com/shopspring/decimal"

func dec(v float64) decimal.Decimal {
	return decimal.NewFromFloat(v)
}

func out(d decimal.Decimal) float64 {
	return d.Round(2).InexactFloat64()
}

// Round2 rounds v to two decimal places.
func Round2(v float64) float64 {
	return out(dec(v))
}

func Add(a, b float64) float64 {
	return out(dec(a).Add(dec(b)))
}

func Sub(a, b float64) float64 {
	return out(dec(a).Sub(dec(b)))
}

// Mul multiplies a price by a quantity.
func Mul(price float64, quantity int) float64 {
	return out(dec(price).Mul(decimal.NewFromInt(int64(quantity))))
}

// Percent returns rate (a fraction such as 0.18) of v.
func Percent(v, rate float64) float64 {
	return out(dec(v).Mul(dec(rate)))
}

// Div divides v into n parts. n must be positive.
func Div(v float64, n int) float64 {
	return out(dec(v).Div(decimal.NewFromInt(int64(n))))
}

// Sum adds values, rounding the running total after each addition.
func Sum(values ...float64) float64 {
	total := decimal.Zero
	for _, v := range values {
		total = total.Add(dec(v)).Round(2)
	}
	return out(total)
}

// Max0 floors v at zero.
func Max0(v float64) float64 {
	if v < 0 {
		return 0
	}
	return v
}

// Cmp compares a and b after rounding both to two decimals.
func Cmp(a, b float64) int {
	return dec(a).Round(2).Cmp(dec(b).Round(2))
}

func IsZero(v float64) bool {
	return dec(v).Round(2).IsZero()
}
