package report

import (
	"bytes"
	"database/sql"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"rfm-segments/pkg/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/text/language"
)

func sample() []models.CustomerSegment {
	flags := func(bf, xmas bool) []models.HolidayFlag {
		return []models.HolidayFlag{{Holiday: "Black Friday", InWindow: bf}, {Holiday: "Christmas", InWindow: xmas}}
	}
	return []models.CustomerSegment{
		{
			OrderAggregate: models.OrderAggregate{
				CustomerID:      "c1",
				LastPurchase:    time.Date(2018, 11, 20, 14, 0, 0, 0, time.UTC),
				RecencyDays:     3,
				Frequency:       2,
				Monetary:        1234.5,
				AvgOrderValue:   617.25,
				Diversity:       3,
				AvgDeliveryDays: sql.NullFloat64{Float64: 7.5, Valid: true},
				OnTimeRate:      sql.NullFloat64{Float64: 1, Valid: true},
			},
			State:        "SP",
			Region:       models.RegionSoutheast,
			HolidayFlags: flags(true, false),
			Scores:       models.Scores{Recency: 5, Frequency: 5, Monetary: 5},
			Segment:      models.SegmentChampion,
		},
		{
			OrderAggregate: models.OrderAggregate{
				CustomerID:    "c2",
				LastPurchase:  time.Date(2017, 1, 2, 0, 0, 0, 0, time.UTC),
				RecencyDays:   690,
				Frequency:     1,
				Monetary:      10,
				AvgOrderValue: 10,
				Diversity:     1,
			},
			State:        "ZZ",
			Region:       models.RegionUnclassified,
			HolidayFlags: flags(false, false),
			Scores:       models.Scores{Recency: 1, Frequency: 1, Monetary: 1},
			Segment:      models.SegmentLost,
		},
	}
}

func TestHolidayColumn(t *testing.T) {
	assert.Equal(t, "holiday_black_friday", HolidayColumn("Black Friday"))
	assert.Equal(t, "holiday_mothers_day", HolidayColumn("Mother's Day"))
	assert.Equal(t, "holiday_dia_dos_namorados", HolidayColumn(" Dia dos  Namorados "))
}

func TestWriteCSV(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteCSV(&buf, sample()))

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 3)
	assert.Equal(t, "customer_id,state,region,recency_days,frequency,monetary,avg_order_value,diversity,"+
		"avg_delivery_days,on_time_rate,recency_score,frequency_score,monetary_score,segment,"+
		"holiday_black_friday,holiday_christmas", lines[0])
	assert.Equal(t, "c1,SP,Southeast,3,2,1234.50,617.25,3,7.5000,1.0000,5,5,5,Champion,true,false", lines[1])
	assert.Equal(t, "c2,ZZ,Unclassified,690,1,10.00,10.00,1,,,1,1,1,Lost,false,false", lines[2])
}

func TestWriteCSV_EmptyTable(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteCSV(&buf, nil))
	assert.Equal(t, strings.Join(baseColumns, ",")+"\n", buf.String())
}

func TestWriteCSV_RejectsMismatchedFlags(t *testing.T) {
	rows := sample()
	rows[1].HolidayFlags = rows[1].HolidayFlags[:1]
	assert.Error(t, WriteCSV(&bytes.Buffer{}, rows))
}

func TestWriteJSON(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Write(&buf, "json", sample()))

	var got []map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &got))
	require.Len(t, got, 2)
	assert.Equal(t, "c1", got[0]["customer_id"])
	assert.Equal(t, "2018-11-20T14:00:00Z", got[0]["last_purchase_date"])
	assert.Equal(t, 7.5, got[0]["avg_delivery_days"])
	assert.Nil(t, got[1]["avg_delivery_days"])

	flags, ok := got[0]["holiday_flags"].([]any)
	require.True(t, ok)
	require.Len(t, flags, 2)
	assert.Equal(t, map[string]any{"holiday": "Black Friday", "in_window": true}, flags[0])
}

func TestWrite_UnknownFormat(t *testing.T) {
	assert.Error(t, Write(&bytes.Buffer{}, "xml", sample()))
}

func TestSummarize(t *testing.T) {
	stats := Summarize(sample())
	require.Len(t, stats, len(models.Segments))
	assert.Equal(t, models.SegmentChampion, stats[0].Segment)
	assert.Equal(t, 1, stats[0].Customers)
	assert.InDelta(t, 50.0, stats[0].Share, 1e-9)
	assert.InDelta(t, 1234.5, stats[0].Revenue, 1e-9)
	assert.Equal(t, 0, stats[1].Customers)
	assert.Equal(t, models.SegmentLost, stats[4].Segment)
	assert.Equal(t, 1, stats[4].Customers)
}

func TestPrintSummary(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, PrintSummary(&buf, sample(), language.English))
	out := buf.String()
	assert.Contains(t, out, "SEGMENT")
	assert.Contains(t, out, "1,234.50")
	assert.Contains(t, out, "1,244.50")
	assert.Contains(t, out, "50.0%")
}

func TestPrintQuality(t *testing.T) {
	reports := []models.QualityReport{{
		Table:          models.TableOrders,
		Rows:           99441,
		NullRate:       map[string]float64{"order_delivered_customer_date": 2.98, "order_approved_at": 6.1},
		DuplicateCount: 0,
		DateRange: &models.DateRange{
			Min: time.Date(2016, 9, 4, 21, 15, 19, 0, time.UTC),
			Max: time.Date(2018, 10, 17, 17, 30, 18, 0, time.UTC),
		},
	}}
	var buf bytes.Buffer
	require.NoError(t, PrintQuality(&buf, reports, 5, language.English))
	out := buf.String()
	assert.Contains(t, out, "rows=99,441")
	assert.Contains(t, out, "2016-09-04 21:15:19 .. 2018-10-17 17:30:18")

	for _, line := range strings.Split(out, "\n") {
		switch {
		case strings.Contains(line, "order_approved_at"):
			assert.Contains(t, line, "WARN")
		case strings.Contains(line, "order_delivered_customer_date"):
			assert.NotContains(t, line, "WARN")
		}
	}
}
