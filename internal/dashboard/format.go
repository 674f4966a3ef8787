package dashboard

import (
	"math"
	"strings"
)

// Stars renders score as a five-point style rating out of max, rounding to
// the nearest whole star and clamping to [0, max].
func Stars(score float64, max int) string {
	if max <= 0 {
		max = 5
	}
	filled := int(math.Round(score))
	if filled < 0 || math.IsNaN(score) {
		filled = 0
	}
	if filled > max {
		filled = max
	}
	return strings.Repeat("★", filled) + strings.Repeat("☆", max-filled)
}

// MoodEmoji maps a 0-10 mood score to a face.
func MoodEmoji(score float64) string {
	switch {
	case score >= 8:
		return "😊"
	case score >= 6:
		return "🙂"
	case score >= 4:
		return "😐"
	case score >= 2:
		return "😔"
	default:
		return "😞"
	}
}

// round1 keeps one decimal place for display values.
func round1(v float64) float64 {
	return math.Round(v*10) / 10
}
