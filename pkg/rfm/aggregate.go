// Package rfm holds the pure stages of the segmentation pipeline: per-customer metric
// aggregation, regional/calendar annotation, quantile scoring and segment classification.
// Nothing in this package performs I/O.
package rfm

import (
	"context"
	"database/sql"
	"sort"
	"strings"
	"time"

	"rfm-segments/pkg/models"

	"golang.org/x/sync/errgroup"
)

const (
	statusDelivered = "delivered"
	day             = 24 * time.Hour
)

// Anomaly rules.
const (
	RuleDeliveredBeforePurchase = "delivered_before_purchase"
	RulePurchaseAfterReference  = "purchase_after_reference"
)

// Anomaly is a non-fatal timestamp inconsistency found while aggregating.
type Anomaly struct {
	Table      models.Table
	CustomerID string
	OrderID    string
	Rule       string
}

// AggregateResult is the output of Aggregate, sorted by customer id.
type AggregateResult struct {
	Aggregates []models.OrderAggregate
	Anomalies  []Anomaly
	Skipped    int // order rows ignored because they were not delivered or repeated an order id
}

// LatestPurchase returns the latest purchase timestamp among delivered orders.
func LatestPurchase(orders []models.Order) (time.Time, bool) {
	var latest time.Time
	found := false
	for _, o := range orders {
		if !isDelivered(o) {
			continue
		}
		if !found || o.PurchasedAt.After(latest) {
			latest = o.PurchasedAt
			found = true
		}
	}
	return latest, found
}

// Aggregate collapses delivered orders with their payments and items into one
// OrderAggregate per customer. Customers without a delivered order never appear.
// With workers > 1 customers are split across goroutines; the result is identical to the
// serial run.
func Aggregate(ctx context.Context, ref time.Time, orders []models.Order, payments []models.Payment, items []models.Item, workers int) (AggregateResult, error) {
	var res AggregateResult

	byCustomer := make(map[string][]models.Order)
	seen := make(map[string]bool, len(orders))
	for _, o := range orders {
		if !isDelivered(o) || seen[o.OrderID] {
			res.Skipped++
			continue
		}
		seen[o.OrderID] = true
		byCustomer[o.CustomerID] = append(byCustomer[o.CustomerID], o)
	}

	paid := make(map[string]float64, len(seen))
	for _, p := range payments {
		if seen[p.OrderID] {
			paid[p.OrderID] += p.Value
		}
	}
	products := make(map[string][]string, len(seen))
	for _, it := range items {
		if seen[it.OrderID] {
			products[it.OrderID] = append(products[it.OrderID], it.ProductID)
		}
	}

	ids := make([]string, 0, len(byCustomer))
	for id := range byCustomer {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	res.Aggregates = make([]models.OrderAggregate, len(ids))
	anomalies := make([][]Anomaly, len(ids))

	if workers < 1 {
		workers = 1
	}
	if workers > len(ids) {
		workers = len(ids)
	}
	g, gctx := errgroup.WithContext(ctx)
	for w := 0; w < workers; w++ {
		w := w
		g.Go(func() error {
			for i := w; i < len(ids); i += workers {
				if i%1024 == 0 {
					if err := gctx.Err(); err != nil {
						return err
					}
				}
				res.Aggregates[i], anomalies[i] = aggregateCustomer(ref, ids[i], byCustomer[ids[i]], paid, products)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return AggregateResult{}, err
	}

	for _, a := range anomalies {
		res.Anomalies = append(res.Anomalies, a...)
	}
	return res, nil
}

func aggregateCustomer(ref time.Time, customerID string, orders []models.Order, paid map[string]float64, products map[string][]string) (models.OrderAggregate, []Anomaly) {
	agg := models.OrderAggregate{CustomerID: customerID, Frequency: len(orders)}
	var anomalies []Anomaly

	var (
		lastValid, lastAny time.Time
		haveValid          bool
		deliverySum        float64
		deliveryN          int
		onTime, onTimeN    int
	)
	distinct := make(map[string]struct{})
	for _, o := range orders {
		agg.Monetary += paid[o.OrderID]
		for _, p := range products[o.OrderID] {
			distinct[p] = struct{}{}
		}

		if o.PurchasedAt.After(lastAny) {
			lastAny = o.PurchasedAt
		}
		if o.PurchasedAt.After(ref) {
			anomalies = append(anomalies, Anomaly{Table: models.TableOrders, CustomerID: customerID, OrderID: o.OrderID, Rule: RulePurchaseAfterReference})
		} else if !haveValid || o.PurchasedAt.After(lastValid) {
			lastValid = o.PurchasedAt
			haveValid = true
		}

		if !o.DeliveredAt.Valid {
			continue
		}
		if o.DeliveredAt.Time.Before(o.PurchasedAt) {
			anomalies = append(anomalies, Anomaly{Table: models.TableOrders, CustomerID: customerID, OrderID: o.OrderID, Rule: RuleDeliveredBeforePurchase})
			continue
		}
		deliverySum += float64(wholeDays(o.DeliveredAt.Time.Sub(o.PurchasedAt)))
		deliveryN++
		if o.EstimatedAt.Valid {
			onTimeN++
			if !o.DeliveredAt.Time.After(o.EstimatedAt.Time) {
				onTime++
			}
		}
	}

	if haveValid {
		agg.LastPurchase = lastValid
		agg.RecencyDays = wholeDays(ref.Sub(lastValid))
	} else {
		// every order lies after the reference date; recency is clamped to zero
		agg.LastPurchase = lastAny
	}
	agg.AvgOrderValue = agg.Monetary / float64(agg.Frequency)
	agg.Diversity = len(distinct)
	if deliveryN > 0 {
		agg.AvgDeliveryDays = sql.NullFloat64{Float64: deliverySum / float64(deliveryN), Valid: true}
	}
	if onTimeN > 0 {
		agg.OnTimeRate = sql.NullFloat64{Float64: float64(onTime) / float64(onTimeN), Valid: true}
	}
	return agg, anomalies
}

func isDelivered(o models.Order) bool {
	return strings.EqualFold(strings.TrimSpace(o.Status), statusDelivered)
}

func wholeDays(d time.Duration) int {
	if d <= 0 {
		return 0
	}
	return int(d / day)
}
