package models

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestFailure(t *testing.T) {
	err := fmt.Errorf("run: %w", &Failure{
		Kind:  KindData,
		Op:    "quality gate",
		Table: TableOrders,
		Key:   "order_id",
		Err:   fmt.Errorf("2 rows: %w", ErrDuplicateKeys),
	})

	assert.Equal(t, KindData, KindOf(err))
	assert.True(t, errors.Is(err, ErrDuplicateKeys))
	assert.Equal(t, "run: data failure: quality gate table=orders key=order_id: 2 rows: duplicate keys", err.Error())
	assert.Equal(t, FailureKind(""), KindOf(errors.New("plain")))
}

func TestConfig_WithDefaults(t *testing.T) {
	c := Config{}.WithDefaults()
	assert.Equal(t, DefaultNullRateWarnThreshold, c.NullRateWarnThreshold)
	assert.Equal(t, DefaultHolidayWindowDays, c.HolidayWindowDays)
	assert.Equal(t, DefaultScoreBucketCount, c.ScoreBucketCount)
	assert.Equal(t, 1, c.Workers)
	assert.Equal(t, DefaultQueryTimeout, c.QueryTimeout)
	assert.Equal(t, DefaultRetryBackoff, c.RetryBackoff)

	set := Config{NullRateWarnThreshold: 0.5, HolidayWindowDays: 3, Workers: 4, RetryBackoff: time.Second}.WithDefaults()
	assert.Equal(t, 0.5, set.NullRateWarnThreshold)
	assert.Equal(t, 3, set.HolidayWindowDays)
	assert.Equal(t, 4, set.Workers)
	assert.Equal(t, time.Second, set.RetryBackoff)
}

func TestCustomerSegment_InHolidayWindow(t *testing.T) {
	row := CustomerSegment{HolidayFlags: []HolidayFlag{{Holiday: "Christmas"}, {Holiday: "Black Friday", InWindow: true}}}
	assert.True(t, row.InHolidayWindow())
	assert.False(t, CustomerSegment{}.InHolidayWindow())
}
