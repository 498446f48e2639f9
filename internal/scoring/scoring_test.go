package scoring

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBasePoints(t *testing.T) {
	tests := []struct {
		name   string
		rating int
		want   int
	}{
		{name: "floor rating", rating: 800, want: 500},
		{name: "below floor scores as floor", rating: 600, want: 500},
		{name: "zero rating scores as floor", rating: 0, want: 500},
		{name: "one step above floor", rating: 1000, want: 660},
		{name: "rating 1500", rating: 1500, want: 1321},
		{name: "rating 2000", rating: 2000, want: 2645},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, BasePoints(tt.rating))
		})
	}
}

func TestBasePoints_Monotonic(t *testing.T) {
	prev := 0
	for rating := 600; rating <= 3500; rating += 100 {
		got := BasePoints(rating)
		assert.GreaterOrEqual(t, got, prev, "rating %d", rating)
		prev = got
	}
}

func TestAward(t *testing.T) {
	tests := []struct {
		name       string
		rating     int
		multiplier float64
		want       int
	}{
		{name: "no multiplier", rating: 1500, multiplier: 1, want: 1321},
		{name: "mystery doubles", rating: 1500, multiplier: 2, want: 2642},
		{name: "mystery and final lap stack", rating: 1500, multiplier: 4, want: 5284},
		{name: "floor rating doubled", rating: 600, multiplier: 2, want: 1000},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Award(tt.rating, tt.multiplier))
		})
	}
}

// The stacked multiplier is applied to the already-rounded base in a single
// final rounding step, so a 4x award is exactly 4x the base award.
func TestAward_SingleRounding(t *testing.T) {
	for _, rating := range []int{800, 1000, 1300, 1500, 1900, 2400} {
		assert.Equal(t, 4*BasePoints(rating), Award(rating, 4), "rating %d", rating)
	}
}
