package analyzer

import "time"

// RecencyBonus is the multiplicative decay applied to a signal's weight based
// on its age. A step function, not continuous decay: the bands are easy to
// audit and to explain to users.
func RecencyBonus(now, ts time.Time) float64 {
	days := now.Sub(ts).Hours() / 24
	switch {
	case days < 1:
		return 1.5
	case days < 3:
		return 1.2
	case days < 7:
		return 1.0
	case days < 30:
		return 0.7
	default:
		return 0.3
	}
}
