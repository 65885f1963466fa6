package service

import "math"

// RoundingPrecision is the divisor used for rounding monetary values to two
// decimal places.
const RoundingPrecision = 100.0

// round rounds a float64 value to two decimal places. Used throughout the
// service layer for monetary values in API responses.
func round(value float64) float64 {
	return math.Round(value*RoundingPrecision) / RoundingPrecision
}

// roundToTen rounds a value to the nearest multiple of 10. Derived grant-date
// prices use this coarser rounding rule, e.g. 50.41 becomes 50.
func roundToTen(value float64) float64 {
	return math.Round(value/10.0) * 10.0
}
