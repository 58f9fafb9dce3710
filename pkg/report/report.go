// Package report renders the segment table and the quality reports. It holds no
// computation beyond summing the rows it prints.
package report

import (
	"database/sql"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"
	"unicode"

	"rfm-segments/pkg/models"
)

var baseColumns = []string{
	"customer_id",
	"state",
	"region",
	"recency_days",
	"frequency",
	"monetary",
	"avg_order_value",
	"diversity",
	"avg_delivery_days",
	"on_time_rate",
	"recency_score",
	"frequency_score",
	"monetary_score",
	"segment",
}

// Header returns the CSV header for rows flagged against the given holidays.
func Header(holidays []string) []string {
	out := append([]string(nil), baseColumns...)
	for _, h := range holidays {
		out = append(out, HolidayColumn(h))
	}
	return out
}

// HolidayColumn turns a holiday name into its column name: "Black Friday" -> "holiday_black_friday".
func HolidayColumn(name string) string {
	var b strings.Builder
	b.WriteString("holiday_")
	underscore := false
	for _, r := range strings.ToLower(strings.TrimSpace(name)) {
		if r == '\'' {
			continue
		}
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(r)
			underscore = false
			continue
		}
		if !underscore {
			b.WriteByte('_')
			underscore = true
		}
	}
	return strings.TrimRight(b.String(), "_")
}

// WriteCSV writes rows in the order given. Holiday columns follow the flags of the first
// row; every row of a run carries the same calendar.
func WriteCSV(w io.Writer, rows []models.CustomerSegment) error {
	var holidays []string
	if len(rows) > 0 {
		for _, f := range rows[0].HolidayFlags {
			holidays = append(holidays, f.Holiday)
		}
	}

	cw := csv.NewWriter(w)
	if err := cw.Write(Header(holidays)); err != nil {
		return err
	}
	for _, r := range rows {
		rec := []string{
			r.CustomerID,
			r.State,
			string(r.Region),
			strconv.Itoa(r.RecencyDays),
			strconv.Itoa(r.Frequency),
			money(r.Monetary),
			money(r.AvgOrderValue),
			strconv.Itoa(r.Diversity),
			optional(r.AvgDeliveryDays),
			optional(r.OnTimeRate),
			strconv.Itoa(r.Scores.Recency),
			strconv.Itoa(r.Scores.Frequency),
			strconv.Itoa(r.Scores.Monetary),
			string(r.Segment),
		}
		if len(r.HolidayFlags) != len(holidays) {
			return fmt.Errorf("customer %s: %d holiday flags, header has %d", r.CustomerID, len(r.HolidayFlags), len(holidays))
		}
		for _, f := range r.HolidayFlags {
			rec = append(rec, strconv.FormatBool(f.InWindow))
		}
		if err := cw.Write(rec); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

type jsonFlag struct {
	Holiday  string `json:"holiday"`
	InWindow bool   `json:"in_window"`
}

type jsonRow struct {
	CustomerID      string     `json:"customer_id"`
	State           string     `json:"state"`
	Region          string     `json:"region"`
	LastPurchase    string     `json:"last_purchase_date"`
	RecencyDays     int        `json:"recency_days"`
	Frequency       int        `json:"frequency"`
	Monetary        float64    `json:"monetary"`
	AvgOrderValue   float64    `json:"avg_order_value"`
	Diversity       int        `json:"diversity"`
	AvgDeliveryDays *float64   `json:"avg_delivery_days"`
	OnTimeRate      *float64   `json:"on_time_rate"`
	RecencyScore    int        `json:"recency_score"`
	FrequencyScore  int        `json:"frequency_score"`
	MonetaryScore   int        `json:"monetary_score"`
	Segment         string     `json:"segment"`
	HolidayFlags    []jsonFlag `json:"holiday_flags"`
}

// WriteJSON writes rows as one indented JSON array. Holiday flags stay an ordered list.
func WriteJSON(w io.Writer, rows []models.CustomerSegment) error {
	out := make([]jsonRow, len(rows))
	for i, r := range rows {
		flags := make([]jsonFlag, len(r.HolidayFlags))
		for j, f := range r.HolidayFlags {
			flags[j] = jsonFlag{Holiday: f.Holiday, InWindow: f.InWindow}
		}
		out[i] = jsonRow{
			CustomerID:      r.CustomerID,
			State:           r.State,
			Region:          string(r.Region),
			LastPurchase:    r.LastPurchase.UTC().Format("2006-01-02T15:04:05Z"),
			RecencyDays:     r.RecencyDays,
			Frequency:       r.Frequency,
			Monetary:        r.Monetary,
			AvgOrderValue:   r.AvgOrderValue,
			Diversity:       r.Diversity,
			AvgDeliveryDays: pointer(r.AvgDeliveryDays),
			OnTimeRate:      pointer(r.OnTimeRate),
			RecencyScore:    r.Scores.Recency,
			FrequencyScore:  r.Scores.Frequency,
			MonetaryScore:   r.Scores.Monetary,
			Segment:         string(r.Segment),
			HolidayFlags:    flags,
		}
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(out)
}

// Write renders rows in the named format: csv or json.
func Write(w io.Writer, format string, rows []models.CustomerSegment) error {
	switch strings.ToLower(format) {
	case "", "csv":
		return WriteCSV(w, rows)
	case "json":
		return WriteJSON(w, rows)
	default:
		return fmt.Errorf("unknown output format %q", format)
	}
}

func money(v float64) string {
	return strconv.FormatFloat(v, 'f', 2, 64)
}

func optional(v sql.NullFloat64) string {
	if !v.Valid {
		return ""
	}
	return strconv.FormatFloat(v.Float64, 'f', 4, 64)
}

func pointer(v sql.NullFloat64) *float64 {
	if !v.Valid {
		return nil
	}
	f := v.Float64
	return &f
}
