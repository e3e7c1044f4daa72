package pipeline

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"

	"tradedominance/internal/codes"
)

func f(value float64) *float64 {
	return &value
}

func TestBin(t *testing.T) {
	tests := []struct {
		name  string
		share *float64
		want  codes.Bucket
	}{
		{"missing", nil, codes.BucketUndefined},
		{"nan", f(math.NaN()), codes.BucketUndefined},
		{"zero", f(0), codes.BucketQuarter},
		{"boundary 25", f(25), codes.BucketQuarter},
		{"just above 25", f(25.1), codes.BucketHalf},
		{"boundary 50", f(50), codes.BucketHalf},
		{"boundary 75", f(75), codes.BucketThreeQtr},
		{"just above 75", f(75.1), codes.BucketMajority},
		{"hundred", f(100), codes.BucketMajority},
		{"negative falls through", f(-3), codes.BucketQuarter},
		{"above hundred falls through", f(140), codes.BucketMajority},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Bin(tt.share))
		})
	}
}

func TestBinIsTotalOnPercentRange(t *testing.T) {
	for i := 0; i <= 1000; i++ {
		share := float64(i) / 10
		bucket := Bin(&share)
		assert.GreaterOrEqual(t, int(bucket), int(codes.BucketQuarter))
		assert.LessOrEqual(t, int(bucket), int(codes.BucketMajority))
	}
}
