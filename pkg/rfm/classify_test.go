package rfm

import (
	"testing"

	"rfm-segments/pkg/models"

	"github.com/stretchr/testify/assert"
)

func TestClassify_RuleTable(t *testing.T) {
	cases := []struct {
		r, f, m int
		want    models.Segment
	}{
		{5, 5, 5, models.SegmentChampion},
		{4, 4, 4, models.SegmentChampion},
		{1, 1, 1, models.SegmentLost},
		{3, 3, 1, models.SegmentLoyal},
		{5, 5, 3, models.SegmentLoyal},
		{5, 2, 5, models.SegmentPromising},
		{4, 1, 1, models.SegmentPromising},
		{2, 3, 3, models.SegmentAtRisk},
		{1, 5, 5, models.SegmentAtRisk},
		{2, 2, 5, models.SegmentLost},
		{3, 2, 5, models.SegmentRegular},
		{2, 4, 2, models.SegmentRegular},
	}
	for _, tc := range cases {
		got := Classify(models.Scores{Recency: tc.r, Frequency: tc.f, Monetary: tc.m}, 5)
		assert.Equal(t, tc.want, got, "R=%d F=%d M=%d", tc.r, tc.f, tc.m)
	}
}

func TestClassify_TotalOverDomain(t *testing.T) {
	valid := make(map[models.Segment]bool)
	for _, s := range models.Segments {
		valid[s] = true
	}
	hits := make(map[models.Segment]int)
	for r := 1; r <= 5; r++ {
		for f := 1; f <= 5; f++ {
			for m := 1; m <= 5; m++ {
				got := Classify(models.Scores{Recency: r, Frequency: f, Monetary: m}, 5)
				if !valid[got] {
					t.Fatalf("(%d,%d,%d) -> %q outside the segment set", r, f, m, got)
				}
				hits[got]++
			}
		}
	}
	for _, s := range models.Segments {
		assert.NotZero(t, hits[s], "segment %s never produced", s)
	}
}

func TestClassify_NormalizesOtherBucketCounts(t *testing.T) {
	assert.Equal(t, models.SegmentChampion, Classify(models.Scores{Recency: 3, Frequency: 3, Monetary: 3}, 3))
	assert.Equal(t, models.SegmentLost, Classify(models.Scores{Recency: 1, Frequency: 1, Monetary: 1}, 3))
	assert.Equal(t, models.SegmentChampion, Classify(models.Scores{Recency: 10, Frequency: 8, Monetary: 9}, 10))
}
