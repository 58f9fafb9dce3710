package calculator

import (
	"context"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"
	"time"

	"rfm-segments/pkg/calendar"
	"rfm-segments/pkg/database"
	"rfm-segments/pkg/models"
	"rfm-segments/pkg/region"
	"rfm-segments/pkg/rfm"

	"github.com/google/uuid"
	"github.com/schollz/progressbar/v3"
	"github.com/sirupsen/logrus"
)

// Source is the read-only query interface over the transactional store.
type Source interface {
	Customers(ctx context.Context) ([]models.Customer, error)
	DeliveredOrders(ctx context.Context) ([]models.Order, error)
	DeliveredPayments(ctx context.Context) ([]models.Payment, error)
	DeliveredItems(ctx context.Context) ([]models.Item, error)
}

// Gate computes the quality report of one table.
type Gate interface {
	Check(ctx context.Context, table models.Table, keyColumns []string, dateColumn string) (models.QualityReport, error)
}

// TableCheck declares how the gate evaluates a source table.
type TableCheck struct {
	Table      models.Table
	Key        []string
	DateColumn string
	Fatal      bool // duplicate keys abort the run instead of warning
}

// Checks lists the tables validated before every run, in evaluation order.
var Checks = []TableCheck{
	{Table: models.TableCustomers, Key: []string{"customer_id"}, Fatal: true},
	{Table: models.TableOrders, Key: []string{"order_id"}, DateColumn: "order_purchase_timestamp", Fatal: true},
	{Table: models.TablePayments, Key: []string{"order_id", "payment_sequential"}},
	{Table: models.TableItems, Key: []string{"order_id", "order_item_id"}},
}

// Engine runs the segmentation pipeline.
type Engine struct {
	source    Source
	gate      Gate
	log       logrus.FieldLogger
	regions   *region.Table
	holidays  *calendar.Calendar
	transient func(error) bool
	progress  io.Writer
}

// Option customizes an Engine.
type Option func(*Engine)

// WithLogger sets the logger of the run.
func WithLogger(log logrus.FieldLogger) Option {
	return func(e *Engine) { e.log = log }
}

// WithRegions replaces the built-in state to region table.
func WithRegions(t *region.Table) Option {
	return func(e *Engine) { e.regions = t }
}

// WithHolidays replaces the built-in holiday calendar.
func WithHolidays(c *calendar.Calendar) Option {
	return func(e *Engine) { e.holidays = c }
}

// WithTransient replaces the classifier deciding which failures get their single retry.
func WithTransient(fn func(error) bool) Option {
	return func(e *Engine) { e.transient = fn }
}

// WithProgress sets where the progress bar is drawn in verbose runs (stderr by default).
func WithProgress(w io.Writer) Option {
	return func(e *Engine) { e.progress = w }
}

// New wires an engine over its two collaborators.
func New(source Source, gate Gate, opts ...Option) *Engine {
	e := &Engine{
		source:    source,
		gate:      gate,
		log:       logrus.StandardLogger(),
		regions:   region.Default(),
		holidays:  calendar.Default(),
		transient: database.IsTransient,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Validate rejects negative or out-of-range parameters. Zero values are accepted and
// replaced by their defaults.
func Validate(cfg models.Config) error {
	switch {
	case cfg.NullRateWarnThreshold < 0 || cfg.NullRateWarnThreshold > 100:
		return fmt.Errorf("null_rate_warn_threshold must be within [0, 100], got %g", cfg.NullRateWarnThreshold)
	case cfg.HolidayWindowDays < 0:
		return fmt.Errorf("holiday_window_days must be positive, got %d", cfg.HolidayWindowDays)
	case cfg.ScoreBucketCount < 0 || cfg.ScoreBucketCount == 1:
		return fmt.Errorf("score_bucket_count must be at least 2, got %d", cfg.ScoreBucketCount)
	case cfg.Workers < 0:
		return fmt.Errorf("workers must be positive, got %d", cfg.Workers)
	case cfg.QueryTimeout < 0:
		return fmt.Errorf("query_timeout must be positive, got %s", cfg.QueryTimeout)
	case cfg.RetryBackoff < 0:
		return fmt.Errorf("retry_backoff must be positive, got %s", cfg.RetryBackoff)
	}
	return nil
}

// progress bar steps of one run
var stepCount = len(Checks) + 4 + 4

// Run validates the inputs, computes the segment table and returns it sorted by customer
// id. On failure it returns a *models.Failure and no rows.
func (e *Engine) Run(ctx context.Context, cfg models.Config) ([]models.CustomerSegment, error) {
	if err := Validate(cfg); err != nil {
		return nil, &models.Failure{Kind: models.KindConfig, Op: "config", Err: err}
	}
	cfg = cfg.WithDefaults()

	runID := uuid.NewString()
	log := e.log.WithField("run_id", runID)
	bar := e.bar(cfg)
	defer func() { _ = bar.Finish() }()

	bar.Describe("quality gate")
	reports, err := e.quality(ctx, cfg, log, bar)
	if err != nil {
		return nil, err
	}

	bar.Describe("load")
	customers, err := retry(ctx, e, cfg, log, "load", models.TableCustomers, e.source.Customers)
	if err != nil {
		return nil, err
	}
	_ = bar.Add(1)
	orders, err := retry(ctx, e, cfg, log, "load", models.TableOrders, e.source.DeliveredOrders)
	if err != nil {
		return nil, err
	}
	_ = bar.Add(1)
	payments, err := retry(ctx, e, cfg, log, "load", models.TablePayments, e.source.DeliveredPayments)
	if err != nil {
		return nil, err
	}
	_ = bar.Add(1)
	items, err := retry(ctx, e, cfg, log, "load", models.TableItems, e.source.DeliveredItems)
	if err != nil {
		return nil, err
	}
	_ = bar.Add(1)

	ref := cfg.ReferenceDate.UTC()
	if cfg.ReferenceDate.IsZero() {
		latest, ok := rfm.LatestPurchase(orders)
		if !ok {
			log.Warn("no delivered order, nothing to segment")
			return []models.CustomerSegment{}, nil
		}
		ref = latest.UTC()
	}
	log = log.WithField("reference_date", ref.Format(time.RFC3339))
	for _, r := range reports {
		if r.DateRange != nil && r.DateRange.Max.After(ref) {
			log.WithFields(logrus.Fields{
				"table": r.Table,
				"max":   r.DateRange.Max.Format(time.RFC3339),
			}).Warn("dates after the reference date")
		}
	}

	bar.Describe("aggregate")
	agg, err := rfm.Aggregate(ctx, ref, orders, payments, items, cfg.Workers)
	if err != nil {
		return nil, &models.Failure{Kind: models.KindInfra, Op: "aggregate", Err: err}
	}
	for _, a := range agg.Anomalies {
		log.WithFields(logrus.Fields{
			"table":       a.Table,
			"customer_id": a.CustomerID,
			"order_id":    a.OrderID,
			"rule":        a.Rule,
		}).Warn("timestamp anomaly")
	}
	_ = bar.Add(1)

	bar.Describe("annotate")
	adj := rfm.Adjuster{Regions: e.regions}
	if e.holidays != nil {
		adj.Holidays = e.holidays.WithDays(cfg.HolidayWindowDays)
	}
	rows := adj.Annotate(agg.Aggregates, customers)
	unclassified := 0
	for _, r := range rows {
		if r.Region == models.RegionUnclassified {
			unclassified++
		}
	}
	if unclassified > 0 {
		log.WithField("customers", unclassified).Info("customers without a known region")
	}
	_ = bar.Add(1)

	bar.Describe("score")
	scores := rfm.Score(rows, cfg.ScoreBucketCount, cfg.HolidayRecencyRelief)
	_ = bar.Add(1)

	bar.Describe("classify")
	for i := range rows {
		rows[i].Scores = scores[i]
		rows[i].Segment = rfm.Classify(scores[i], cfg.ScoreBucketCount)
	}
	_ = bar.Add(1)

	log.WithFields(logrus.Fields{
		"customers": len(rows),
		"anomalies": len(agg.Anomalies),
		"skipped":   agg.Skipped,
	}).Info("segmentation complete")
	return rows, nil
}

// CentroidSource reads the geolocation centroid of every state.
type CentroidSource interface {
	StateCentroids(ctx context.Context) ([]models.StateCentroid, error)
}

// Centroids loads the state centroids under the same timeout and retry policy as the
// scoring queries.
func (e *Engine) Centroids(ctx context.Context, cfg models.Config, src CentroidSource) ([]models.StateCentroid, error) {
	if err := Validate(cfg); err != nil {
		return nil, &models.Failure{Kind: models.KindConfig, Op: "config", Err: err}
	}
	return retry(ctx, e, cfg.WithDefaults(), e.log, "regions build", models.TableGeolocation, src.StateCentroids)
}

// Quality runs the gate over every table of Checks. Reports are returned even when the
// gate rejects the data, in which case the error is a data failure.
func (e *Engine) Quality(ctx context.Context, cfg models.Config) ([]models.QualityReport, error) {
	if err := Validate(cfg); err != nil {
		return nil, &models.Failure{Kind: models.KindConfig, Op: "config", Err: err}
	}
	cfg = cfg.WithDefaults()
	log := e.log.WithField("run_id", uuid.NewString())
	bar := e.bar(cfg)
	defer func() { _ = bar.Finish() }()
	return e.quality(ctx, cfg, log, bar)
}

func (e *Engine) quality(ctx context.Context, cfg models.Config, log logrus.FieldLogger, bar *progressbar.ProgressBar) ([]models.QualityReport, error) {
	reports := make([]models.QualityReport, 0, len(Checks))
	var rejected error
	for _, chk := range Checks {
		rep, err := retry(ctx, e, cfg, log, "quality gate", chk.Table, func(ctx context.Context) (models.QualityReport, error) {
			return e.gate.Check(ctx, chk.Table, chk.Key, chk.DateColumn)
		})
		if err != nil {
			return nil, err
		}
		reports = append(reports, rep)
		_ = bar.Add(1)

		tlog := log.WithField("table", chk.Table)
		for _, col := range sortedColumns(rep.NullRate) {
			if rate := rep.NullRate[col]; rate > cfg.NullRateWarnThreshold {
				tlog.WithFields(logrus.Fields{"column": col, "null_rate": rate}).Warn("null rate above threshold")
			}
		}
		if rep.DuplicateCount == 0 {
			continue
		}
		key := strings.Join(chk.Key, ",")
		if !chk.Fatal {
			tlog.WithFields(logrus.Fields{"key": key, "duplicates": rep.DuplicateCount}).Warn("duplicate keys")
			continue
		}
		tlog.WithFields(logrus.Fields{"key": key, "duplicates": rep.DuplicateCount}).Error("duplicate keys, aborting")
		if rejected == nil {
			rejected = &models.Failure{
				Kind:  models.KindData,
				Op:    "quality gate",
				Table: chk.Table,
				Key:   key,
				Err:   fmt.Errorf("%d rows: %w", rep.DuplicateCount, models.ErrDuplicateKeys),
			}
		}
	}
	return reports, rejected
}

func (e *Engine) bar(cfg models.Config) *progressbar.ProgressBar {
	if !cfg.Verbose {
		return progressbar.DefaultSilent(int64(stepCount))
	}
	w := e.progress
	if w == nil {
		w = os.Stderr
	}
	return progressbar.NewOptions(stepCount,
		progressbar.OptionSetWriter(w),
		progressbar.OptionSetDescription("segment"),
		progressbar.OptionShowCount(),
		progressbar.OptionClearOnFinish(),
	)
}

func sortedColumns(m map[string]float64) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
