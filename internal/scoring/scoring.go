package scoring

import "math"

const (
	// minRating is the floor applied to problem ratings before the base
	// point curve is evaluated. Anything below it scores as if it were
	// exactly at the floor.
	minRating = 800

	baseValue  = 500
	growthRate = 1.32
	ratingStep = 200
)

// BasePoints returns the unmultiplied point value of a problem:
// round(500 * 1.32^((rating-800)/200)), with ratings clamped to 800.
func BasePoints(rating int) int {
	if rating < minRating {
		rating = minRating
	}
	exponent := float64(rating-minRating) / ratingStep
	return int(math.Round(baseValue * math.Pow(growthRate, exponent)))
}

// Award applies a multiplier to the base points for a problem. Rounding
// happens once, on the final product.
func Award(rating int, multiplier float64) int {
	return int(math.Round(float64(BasePoints(rating)) * multiplier))
}
