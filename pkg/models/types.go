package models

import (
	"database/sql"
	"time"
)

/*
LOAD → raw rows as read from the transactional store.
*/

// Customer is the immutable reference row for one customer_id.
type Customer struct {
	CustomerID string
	UniqueID   string
	ZipPrefix  string
	City       string
	State      string
}

// Order is one order header. DeliveredAt and EstimatedAt are zero-valued when absent.
type Order struct {
	OrderID     string
	CustomerID  string
	Status      string
	PurchasedAt time.Time
	DeliveredAt sql.NullTime
	EstimatedAt sql.NullTime
}

// Payment is one payment row; an order paid in installments has several.
type Payment struct {
	OrderID      string
	Sequential   int
	Type         string
	Installments int
	Value        float64
}

// Item is one line item of an order.
type Item struct {
	OrderID   string
	ItemID    int
	ProductID string
	SellerID  string
	Price     float64
	Freight   float64
}

// StateCentroid is the mean geolocation of every zip prefix recorded for a state.
type StateCentroid struct {
	State string
	Lat   float64
	Lng   float64
}

/*
COMPUTE → per-customer staging and the exported segment table.
*/

// OrderAggregate holds the transactional metrics of one customer for a scoring run.
type OrderAggregate struct {
	CustomerID      string
	LastPurchase    time.Time
	RecencyDays     int
	Frequency       int     // distinct delivered orders, always >= 1
	Monetary        float64 // sum of every payment row
	AvgOrderValue   float64
	Diversity       int // distinct product ids
	AvgDeliveryDays sql.NullFloat64
	OnTimeRate      sql.NullFloat64
}

// HolidayFlag tells whether a purchase fell inside one named holiday window.
type HolidayFlag struct {
	Holiday  string
	InWindow bool
}

// Scores is the (R, F, M) triple. Each score lies in [1, bucket count], higher is better.
type Scores struct {
	Recency   int
	Frequency int
	Monetary  int
}

// CustomerSegment is one row of the output table.
type CustomerSegment struct {
	OrderAggregate
	State        string
	Region       Region
	HolidayFlags []HolidayFlag
	Scores       Scores
	Segment      Segment
}

// InHolidayWindow reports whether any holiday flag is set.
func (c CustomerSegment) InHolidayWindow() bool {
	for _, f := range c.HolidayFlags {
		if f.InWindow {
			return true
		}
	}
	return false
}

// Region is a macro-region label.
type Region string

const (
	RegionNorth        Region = "North"
	RegionNortheast    Region = "Northeast"
	RegionCenterWest   Region = "Center-West"
	RegionSoutheast    Region = "Southeast"
	RegionSouth        Region = "South"
	RegionUnclassified Region = "Unclassified"
)

// Segment is the closed set of behavioural labels.
type Segment string

const (
	SegmentChampion  Segment = "Champion"
	SegmentLoyal     Segment = "Loyal"
	SegmentPromising Segment = "New/Promising"
	SegmentAtRisk    Segment = "At-Risk (high value)"
	SegmentLost      Segment = "Lost"
	SegmentRegular   Segment = "Regular"
)

// Segments lists every segment in rule priority order.
var Segments = []Segment{
	SegmentChampion,
	SegmentLoyal,
	SegmentPromising,
	SegmentAtRisk,
	SegmentLost,
	SegmentRegular,
}

/*
QUALITY → verdict of the data-quality gate for one table.
*/

// Table names a source table. The set is fixed; identifiers never come from user input.
type Table string

const (
	TableCustomers   Table = "customers"
	TableOrders      Table = "orders"
	TablePayments    Table = "order_payments"
	TableItems       Table = "order_items"
	TableGeolocation Table = "geolocation"
)

// DateRange is the observed [Min, Max] of a date column.
type DateRange struct {
	Min time.Time
	Max time.Time
}

// QualityReport is what the quality gate returns for one table.
type QualityReport struct {
	Table          Table
	Rows           int64
	NullRate       map[string]float64 // column -> percentage of NULL values
	DuplicateCount int64              // rows in excess of distinct key tuples
	DateRange      *DateRange         // nil when no date column was checked or the table is empty
}

/*
CONFIG → engine parameters
*/

// Config holds the knobs of one scoring run.
type Config struct {
	ReferenceDate         time.Time     // zero means latest delivered purchase
	NullRateWarnThreshold float64       // percent, 0 selects the default
	HolidayWindowDays     int           // ± days around each holiday reference date
	ScoreBucketCount      int           // quantile buckets per dimension
	Workers               int           // aggregation goroutines
	HolidayRecencyRelief  bool          // holiday purchases are not scored below the middle recency bucket
	QueryTimeout          time.Duration // per attempt
	RetryBackoff          time.Duration // pause before the single retry
	Verbose               bool          // progress bar on stderr
}

const (
	DefaultNullRateWarnThreshold = 5.0
	DefaultHolidayWindowDays     = 7
	DefaultScoreBucketCount      = 5
	DefaultQueryTimeout          = 60 * time.Second
	DefaultRetryBackoff          = 500 * time.Millisecond
)

// WithDefaults returns a copy of c where unset fields carry their default value.
func (c Config) WithDefaults() Config {
	if c.NullRateWarnThreshold <= 0 {
		c.NullRateWarnThreshold = DefaultNullRateWarnThreshold
	}
	if c.HolidayWindowDays <= 0 {
		c.HolidayWindowDays = DefaultHolidayWindowDays
	}
	if c.ScoreBucketCount <= 0 {
		c.ScoreBucketCount = DefaultScoreBucketCount
	}
	if c.Workers <= 0 {
		c.Workers = 1
	}
	if c.QueryTimeout <= 0 {
		c.QueryTimeout = DefaultQueryTimeout
	}
	if c.RetryBackoff <= 0 {
		c.RetryBackoff = DefaultRetryBackoff
	}
	return c
}
