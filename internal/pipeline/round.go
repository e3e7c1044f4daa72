package pipeline

import (
	"math"
	"math/big"

	"github.com/shopspring/decimal"
)

// roundedPtr rounds value to one decimal place with half-to-even ties.
// The exact binary value is rounded, so 0.15 (stored as 0.1499...) gives 0.1.
// NaN and infinities come back as nil so they never reach the output.
func roundedPtr(value float64) *float64 {
	if math.IsNaN(value) || math.IsInf(value, 0) {
		return nil
	}
	rounded, _ := exactDecimal(value).RoundBank(1).Float64()
	return &rounded
}

// exactDecimal expands a finite float64 to the decimal it actually stores.
// decimal.NewFromFloat picks the shortest representation instead, which
// turns near-ties into exact ties.
func exactDecimal(value float64) decimal.Decimal {
	frac, exp := math.Frexp(value)
	mantissa := big.NewInt(int64(math.Ldexp(frac, 53)))
	exp -= 53
	if exp >= 0 {
		return decimal.NewFromBigInt(mantissa.Lsh(mantissa, uint(exp)), 0)
	}
	// m * 2^-k == m * 5^k * 10^-k
	scale := new(big.Int).Exp(big.NewInt(5), big.NewInt(int64(-exp)), nil)
	return decimal.NewFromBigInt(mantissa.Mul(mantissa, scale), int32(exp))
}
