package rfm

import (
	"sort"

	"rfm-segments/pkg/models"
)

// BucketSizes splits n ranked values into k buckets of equal population. The remainder of
// n/k goes to the lowest-indexed buckets, so sizes differ by at most one.
func BucketSizes(n, k int) []int {
	if k < 1 {
		return nil
	}
	sizes := make([]int, k)
	for i := range sizes {
		sizes[i] = n / k
		if i < n%k {
			sizes[i]++
		}
	}
	return sizes
}

// Quantiles assigns a score in [1, k] to every value. Values are ranked from worst to
// best (ascending when higherIsBetter, descending otherwise), equal values are ordered by
// ids[i] so the ranking is reproducible, and rank positions fill the buckets of
// BucketSizes. Bucket i scores i+1. A run of equal values that straddles a bucket
// boundary takes the lowest bucket of the run, so equal values always share a score.
// A single value scores k.
func Quantiles(values []float64, ids []string, k int, higherIsBetter bool) []int {
	n := len(values)
	scores := make([]int, n)
	if n == 0 || k < 1 {
		return scores
	}
	if n == 1 {
		scores[0] = k
		return scores
	}

	order := make([]int, n)
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool {
		va, vb := values[order[a]], values[order[b]]
		if va != vb {
			if higherIsBetter {
				return va < vb
			}
			return va > vb
		}
		return ids[order[a]] < ids[order[b]]
	})

	bucket := make([]int, n)
	pos := 0
	for b, size := range BucketSizes(n, k) {
		for j := 0; j < size; j++ {
			bucket[pos] = b
			pos++
		}
	}

	runBucket := bucket[0]
	for p := 0; p < n; p++ {
		if p > 0 && values[order[p]] != values[order[p-1]] {
			runBucket = bucket[p]
		}
		scores[order[p]] = runBucket + 1
	}
	return scores
}

// Score computes the (R, F, M) triple of every row of the cohort in one pass over a
// snapshot of the metrics. Rows are not modified. With holidayRelief, a row whose last
// purchase is inside a holiday window has its recency score floored at the middle bucket.
func Score(rows []models.CustomerSegment, k int, holidayRelief bool) []models.Scores {
	n := len(rows)
	ids := make([]string, n)
	recency := make([]float64, n)
	frequency := make([]float64, n)
	monetary := make([]float64, n)
	for i, r := range rows {
		ids[i] = r.CustomerID
		recency[i] = float64(r.RecencyDays)
		frequency[i] = float64(r.Frequency)
		monetary[i] = r.Monetary
	}

	rs := Quantiles(recency, ids, k, false)
	fs := Quantiles(frequency, ids, k, true)
	ms := Quantiles(monetary, ids, k, true)

	middle := (k + 1) / 2
	out := make([]models.Scores, n)
	for i := range rows {
		out[i] = models.Scores{Recency: rs[i], Frequency: fs[i], Monetary: ms[i]}
		if holidayRelief && rows[i].InHolidayWindow() && out[i].Recency < middle {
			out[i].Recency = middle
		}
	}
	return out
}
