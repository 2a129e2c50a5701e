package traits

import "math"

// Strength buckets a finalized mean score.
type Strength string

const (
	StrengthDominant Strength = "dominant"
	StrengthModerate Strength = "moderate"
	StrengthWeak     Strength = "weak"
	StrengthAbsent   Strength = "absent"
)

// Classification thresholds, inclusive lower bounds.
const (
	DominantThreshold = 8.0
	ModerateThreshold = 5.0
	WeakThreshold     = 2.0
)

// Classify maps a final score to its strength tier.
func Classify(score float64) Strength {
	switch {
	case score >= DominantThreshold:
		return StrengthDominant
	case score >= ModerateThreshold:
		return StrengthModerate
	case score >= WeakThreshold:
		return StrengthWeak
	default:
		return StrengthAbsent
	}
}

// RoundScore rounds to one decimal place. Exact halves such as 7.25 round
// away from zero; a literal like 1.15 is stored just below the half and may
// round down.
func RoundScore(v float64) float64 {
	return math.Round(v*10) / 10
}

// InRange reports whether v is a usable score.
func InRange(v float64) bool {
	return !math.IsNaN(v) && v >= MinScore && v <= MaxScore
}
