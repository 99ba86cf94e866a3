package scoring

import (
	"math"
	"time"
)

// Score used when an item carries no publish timestamp.
const recencyFallback = 0.3

// Recency maps the age of an item onto a decaying relevance curve with
// four anchor points: 0h=1.0, 24h=0.5, 72h=0.25, 168h=0.0.
func Recency(publishedAt *time.Time, now time.Time) float64 {
	if publishedAt == nil {
		return recencyFallback
	}

	elapsed := now.UTC().Sub(publishedAt.UTC()).Hours()
	switch {
	case elapsed <= 0:
		return 1.0
	case elapsed <= 24:
		return clamp01(1.0 - elapsed/48)
	case elapsed <= 72:
		// Floored so the segment lands on the 72h anchor.
		return math.Max(0.25, 0.5-(elapsed-24)/96)
	case elapsed <= 168:
		return clamp01(0.25 - (elapsed-72)/384)
	default:
		return 0.0
	}
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
