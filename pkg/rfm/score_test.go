package rfm

import (
	"fmt"
	"math/rand"
	"testing"

	"rfm-segments/pkg/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func idsFor(n int) []string {
	ids := make([]string, n)
	for i := range ids {
		ids[i] = fmt.Sprintf("c%03d", i)
	}
	return ids
}

func TestBucketSizes_DifferByAtMostOne(t *testing.T) {
	for n := 0; n <= 101; n++ {
		sizes := BucketSizes(n, 5)
		require.Len(t, sizes, 5)
		total, lo, hi := 0, sizes[0], sizes[0]
		for i, s := range sizes {
			total += s
			if s < lo {
				lo = s
			}
			if s > hi {
				hi = s
			}
			if i > 0 && s > sizes[i-1] {
				t.Fatalf("n=%d: remainder not on lowest buckets: %v", n, sizes)
			}
		}
		assert.Equal(t, n, total)
		assert.LessOrEqual(t, hi-lo, 1, "n=%d sizes=%v", n, sizes)
	}
	assert.Equal(t, []int{2, 2, 1, 1, 1}, BucketSizes(7, 5))
}

func TestQuantiles_OnePerQuintile(t *testing.T) {
	got := Quantiles([]float64{1, 2, 3, 4, 10}, idsFor(5), 5, true)
	assert.Equal(t, []int{1, 2, 3, 4, 5}, got)
}

func TestQuantiles_RecencyLowerIsBetter(t *testing.T) {
	got := Quantiles([]float64{300, 2, 45, 10, 90}, idsFor(5), 5, false)
	assert.Equal(t, []int{1, 5, 3, 4, 2}, got)
}

func TestQuantiles_SingleCustomerIsBest(t *testing.T) {
	assert.Equal(t, []int{5}, Quantiles([]float64{42}, idsFor(1), 5, true))
	assert.Equal(t, []int{5}, Quantiles([]float64{42}, idsFor(1), 5, false))
}

func TestQuantiles_SmallCohortFillsLowBucketsFirst(t *testing.T) {
	got := Quantiles([]float64{7, 1, 3}, idsFor(3), 5, true)
	assert.Equal(t, []int{3, 1, 2}, got)
}

func TestQuantiles_TiesShareTheLowerBucket(t *testing.T) {
	// Ten customers, buckets of two. The run of 1s covers positions 0-5 (buckets 0-2),
	// so every 1 scores 1.
	values := []float64{1, 1, 1, 1, 1, 1, 2, 3, 4, 5}
	got := Quantiles(values, idsFor(10), 5, true)
	assert.Equal(t, []int{1, 1, 1, 1, 1, 1, 4, 4, 5, 5}, got)

	all := Quantiles([]float64{3, 3, 3, 3}, idsFor(4), 5, true)
	assert.Equal(t, []int{1, 1, 1, 1}, all)
}

func TestQuantiles_OrderPreserving(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	for trial := 0; trial < 50; trial++ {
		n := 1 + rng.Intn(60)
		values := make([]float64, n)
		for i := range values {
			values[i] = float64(1 + rng.Intn(6))
		}
		scores := Quantiles(values, idsFor(n), 5, true)
		for a := 0; a < n; a++ {
			assert.True(t, scores[a] >= 1 && scores[a] <= 5)
			for b := 0; b < n; b++ {
				if values[a] > values[b] && scores[a] < scores[b] {
					t.Fatalf("trial %d: value %v scored %d below value %v scored %d",
						trial, values[a], scores[a], values[b], scores[b])
				}
				if values[a] == values[b] && scores[a] != scores[b] {
					t.Fatalf("trial %d: tie on %v split into %d and %d", trial, values[a], scores[a], scores[b])
				}
			}
		}
	}
}

func TestQuantiles_IndependentOfInputOrder(t *testing.T) {
	values := []float64{5, 1, 9, 1, 3, 7, 2}
	ids := []string{"e", "a", "g", "b", "c", "f", "d"}
	first := Quantiles(values, ids, 5, true)

	perm := []int{6, 2, 0, 4, 1, 5, 3}
	pv := make([]float64, len(perm))
	pi := make([]string, len(perm))
	for i, p := range perm {
		pv[i], pi[i] = values[p], ids[p]
	}
	second := Quantiles(pv, pi, 5, true)
	for i, p := range perm {
		assert.Equal(t, first[p], second[i], "customer %s", ids[p])
	}
}

func TestScore_HolidayRelief(t *testing.T) {
	rows := make([]models.CustomerSegment, 5)
	for i := range rows {
		rows[i].CustomerID = fmt.Sprintf("c%d", i)
		rows[i].RecencyDays = (i + 1) * 30
		rows[i].Frequency = 1
		rows[i].Monetary = 10
	}
	rows[4].HolidayFlags = []models.HolidayFlag{{Holiday: "Christmas", InWindow: true}}

	plain := Score(rows, 5, false)
	assert.Equal(t, 1, plain[4].Recency)
	assert.Equal(t, 5, plain[0].Recency)

	relieved := Score(rows, 5, true)
	assert.Equal(t, 3, relieved[4].Recency)
	assert.Equal(t, plain[3], relieved[3])
	assert.Equal(t, models.Scores{}, rows[4].Scores, "rows are not modified")
}
