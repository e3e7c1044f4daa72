package pipeline

import (
	"math"

	"tradedominance/internal/codes"
)

// Bin classifies a share percentage into one of four buckets. Upper bounds
// are inclusive; values outside [0, 100] are not rejected.
func Bin(share *float64) codes.Bucket {
	if share == nil || math.IsNaN(*share) {
		return codes.BucketUndefined
	}
	switch value := *share; {
	case value <= 25:
		return codes.BucketQuarter
	case value <= 50:
		return codes.BucketHalf
	case value <= 75:
		return codes.BucketThreeQtr
	default:
		return codes.BucketMajority
	}
}
