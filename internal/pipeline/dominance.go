package pipeline

import (
	"math"

	"tradedominance/internal/codes"
)

// Dominance is the winning partner of a row. Partner is empty when no
// tracked partner had a value, in which case Share and Amount are nil too.
// Share is also nil when the present values sum to zero.
type Dominance struct {
	Partner string
	Share   *float64
	Amount  *float64
}

func (d Dominance) Resolved() bool {
	return d.Partner != ""
}

// Resolve picks the tracked partner with the largest value. Ties go to the
// partner listed first in codes.TrackedPartners.
func Resolve(values map[string]float64) Dominance {
	var (
		winner   string
		maxValue float64
		total    float64
		found    bool
	)
	for _, partner := range codes.TrackedPartners {
		value, ok := values[partner]
		if !ok || math.IsNaN(value) {
			continue
		}
		total += value
		if !found || value > maxValue {
			winner = partner
			maxValue = value
			found = true
		}
	}
	if !found {
		return Dominance{}
	}

	result := Dominance{
		Partner: winner,
		Amount:  roundedPtr(maxValue),
	}
	if total != 0 {
		result.Share = roundedPtr(maxValue / total * 100)
	}
	return result
}
