package utils

import "math"

// EngagementRate returns the fraction of a channel's viewers that issued the
// pull command within the trailing window, clamped to [0,1]. A channel with
// zero viewers has a rate of exactly 0.
func EngagementRate(uniquePullers, totalViewers int) float64 {
	if totalViewers <= 0 || uniquePullers <= 0 {
		return 0
	}
	rate := float64(uniquePullers) / float64(totalViewers)
	if rate > 1 {
		return 1
	}
	return rate
}

// PullPower converts one side's engagement into rope force for a single
// tick: rate * baseStrength * ln(uniquePullers + 1).
func PullPower(rate float64, uniquePullers int, baseStrength float64) float64 {
	if uniquePullers < 0 {
		uniquePullers = 0
	}
	return rate * baseStrength * math.Log(float64(uniquePullers)+1)
}

// Clamp bounds v to [lo, hi].
func Clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}
