package rfm

import "rfm-segments/pkg/models"

// Score thresholds on the 1-5 scale.
const (
	scoreHigh = 4
	scoreMid  = 3
	scoreLow  = 2
)

// Classify maps a score triple to its segment. Rules are tried in priority order and the
// first match wins; Regular catches everything else, so every triple has exactly one
// segment. Scores on a k-bucket scale are normalized to 1-5 first.
func Classify(s models.Scores, k int) models.Segment {
	r, f, m := normalize(s.Recency, k), normalize(s.Frequency, k), normalize(s.Monetary, k)

	switch {
	case r >= scoreHigh && f >= scoreHigh && m >= scoreHigh:
		return models.SegmentChampion
	case r >= scoreMid && f >= scoreMid:
		return models.SegmentLoyal
	case r >= scoreHigh && f <= scoreLow:
		return models.SegmentPromising
	case r <= scoreLow && f >= scoreMid && m >= scoreMid:
		return models.SegmentAtRisk
	case r <= scoreLow && f <= scoreLow:
		return models.SegmentLost
	default:
		return models.SegmentRegular
	}
}

// normalize projects a score from [1, k] onto [1, 5].
func normalize(score, k int) int {
	if k == 5 || k < 2 {
		return score
	}
	return 1 + (score-1)*4/(k-1)
}
