package app

import "math"

// Monetary unit conversion lives here and nowhere else. The provider boundary
// speaks minor-unit integers, the caller boundary speaks major-unit decimals;
// keeping the conversion in one place keeps unit-mismatch bugs out of the
// handlers.

const minorUnitsPerMajor = 100

// ToMajorUnits converts minor units (cents) to a major-unit decimal.
func ToMajorUnits(cents int64) float64 {
	return float64(cents) / minorUnitsPerMajor
}

// ToMinorUnits converts a major-unit decimal to minor units, rounding to the
// nearest cent.
func ToMinorUnits(amount float64) int64 {
	return int64(math.Round(amount * minorUnitsPerMajor))
}
