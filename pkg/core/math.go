package core

import "math"

// Math built-ins that have no direct counterpart in package math.

// Sgn returns -1, 0 or 1 following the sign of x.
func Sgn(x float64) float64 {
	switch {
	case x < 0:
		return -1
	case x > 0:
		return 1
	}
	return 0
}

func Clamp(x, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, x))
}

// Int truncates toward zero. NaN becomes 0.
func Int(x float64) int64 { return truncate(x) }
