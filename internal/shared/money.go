package shared

import "math"

// Round2 rounds a monetary amount to 2 decimal places for storage and display.
// Intermediate calculations stay at full precision.
func Round2(v float64) float64 {
	return math.Round(v*100) / 100
}

// Round4 rounds a quantity to 4 decimal places, used for planned material figures.
func Round4(v float64) float64 {
	return math.Round(v*10000) / 10000
}
