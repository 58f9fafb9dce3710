package database

import (
	"context"
	"database/sql"
	"fmt"

	"rfm-segments/pkg/models"

	"github.com/sirupsen/logrus"
)

const statusDelivered = "delivered"

const (
	qCustomers = `
		SELECT customer_id, customer_unique_id, customer_zip_code_prefix, customer_city, customer_state
		FROM customers
		ORDER BY customer_id`

	qDeliveredOrders = `
		SELECT order_id, customer_id, order_status, order_purchase_timestamp,
		       order_delivered_customer_date, order_estimated_delivery_date
		FROM orders
		WHERE LOWER(order_status) = ?
		ORDER BY order_id`

	qDeliveredPayments = `
		SELECT p.order_id, p.payment_sequential, p.payment_type, p.payment_installments, p.payment_value
		FROM order_payments p
		JOIN orders o ON o.order_id = p.order_id
		WHERE LOWER(o.order_status) = ?
		ORDER BY p.order_id, p.payment_sequential`

	qDeliveredItems = `
		SELECT i.order_id, i.order_item_id, i.product_id, i.seller_id, i.price, i.freight_value
		FROM order_items i
		JOIN orders o ON o.order_id = i.order_id
		WHERE LOWER(o.order_status) = ?
		ORDER BY i.order_id, i.order_item_id`

	qStateCentroids = `
		SELECT geolocation_state, AVG(geolocation_lat), AVG(geolocation_lng)
		FROM geolocation
		WHERE geolocation_lat IS NOT NULL AND geolocation_lng IS NOT NULL
		GROUP BY geolocation_state
		ORDER BY geolocation_state`
)

// Store reads the transactional tables. It never writes.
type Store struct {
	db      *sql.DB
	dialect Dialect
	log     logrus.FieldLogger
}

// NewStore wraps an open connection.
func NewStore(db *sql.DB, dialect Dialect, log logrus.FieldLogger) *Store {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Store{db: db, dialect: dialect, log: log}
}

func (s *Store) query(ctx context.Context, q string, args ...any) (*sql.Rows, error) {
	return s.db.QueryContext(ctx, rebind(s.dialect, q), args...)
}

// Customers returns every customer reference row.
func (s *Store) Customers(ctx context.Context) ([]models.Customer, error) {
	rows, err := s.query(ctx, qCustomers)
	if err != nil {
		return nil, fmt.Errorf("query customers: %w", err)
	}
	defer rows.Close()

	var out []models.Customer
	for rows.Next() {
		var (
			id                       string
			unique, zip, city, state sql.NullString
		)
		if err := rows.Scan(&id, &unique, &zip, &city, &state); err != nil {
			return nil, fmt.Errorf("scan customers: %w", err)
		}
		out = append(out, models.Customer{
			CustomerID: id,
			UniqueID:   unique.String,
			ZipPrefix:  zip.String,
			City:       city.String,
			State:      state.String,
		})
	}
	return out, rows.Err()
}

// DeliveredOrders returns orders whose status is delivered. Rows without a purchase
// timestamp cannot be placed in time and are skipped.
func (s *Store) DeliveredOrders(ctx context.Context) ([]models.Order, error) {
	rows, err := s.query(ctx, qDeliveredOrders, statusDelivered)
	if err != nil {
		return nil, fmt.Errorf("query orders: %w", err)
	}
	defer rows.Close()

	var out []models.Order
	skipped := 0
	for rows.Next() {
		var (
			o                              models.Order
			purchased, delivered, estimate nullTimestamp
		)
		if err := rows.Scan(&o.OrderID, &o.CustomerID, &o.Status, &purchased, &delivered, &estimate); err != nil {
			return nil, fmt.Errorf("scan orders: %w", err)
		}
		if !purchased.Valid {
			skipped++
			continue
		}
		o.PurchasedAt = purchased.Time
		o.DeliveredAt = delivered.nullTime()
		o.EstimatedAt = estimate.nullTime()
		out = append(out, o)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if skipped > 0 {
		s.log.WithFields(logrus.Fields{"table": models.TableOrders, "rows": skipped}).
			Warn("orders without purchase timestamp skipped")
	}
	return out, nil
}

// DeliveredPayments returns the payment rows of delivered orders. A NULL payment value
// counts as zero.
func (s *Store) DeliveredPayments(ctx context.Context) ([]models.Payment, error) {
	rows, err := s.query(ctx, qDeliveredPayments, statusDelivered)
	if err != nil {
		return nil, fmt.Errorf("query order_payments: %w", err)
	}
	defer rows.Close()

	var out []models.Payment
	for rows.Next() {
		var (
			p                 models.Payment
			seq, installments sql.NullInt64
			kind              sql.NullString
			value             sql.NullFloat64
		)
		if err := rows.Scan(&p.OrderID, &seq, &kind, &installments, &value); err != nil {
			return nil, fmt.Errorf("scan order_payments: %w", err)
		}
		p.Sequential = int(seq.Int64)
		p.Type = kind.String
		p.Installments = int(installments.Int64)
		p.Value = value.Float64
		out = append(out, p)
	}
	return out, rows.Err()
}

// DeliveredItems returns the line items of delivered orders.
func (s *Store) DeliveredItems(ctx context.Context) ([]models.Item, error) {
	rows, err := s.query(ctx, qDeliveredItems, statusDelivered)
	if err != nil {
		return nil, fmt.Errorf("query order_items: %w", err)
	}
	defer rows.Close()

	var out []models.Item
	for rows.Next() {
		var (
			it              models.Item
			itemID          sql.NullInt64
			product, seller sql.NullString
			price, freight  sql.NullFloat64
		)
		if err := rows.Scan(&it.OrderID, &itemID, &product, &seller, &price, &freight); err != nil {
			return nil, fmt.Errorf("scan order_items: %w", err)
		}
		it.ItemID = int(itemID.Int64)
		it.ProductID = product.String
		it.SellerID = seller.String
		it.Price = price.Float64
		it.Freight = freight.Float64
		out = append(out, it)
	}
	return out, rows.Err()
}

// StateCentroids returns the mean latitude/longitude of every state in the geolocation
// table.
func (s *Store) StateCentroids(ctx context.Context) ([]models.StateCentroid, error) {
	rows, err := s.query(ctx, qStateCentroids)
	if err != nil {
		return nil, fmt.Errorf("query geolocation: %w", err)
	}
	defer rows.Close()

	var out []models.StateCentroid
	for rows.Next() {
		var (
			state    sql.NullString
			lat, lng sql.NullFloat64
		)
		if err := rows.Scan(&state, &lat, &lng); err != nil {
			return nil, fmt.Errorf("scan geolocation: %w", err)
		}
		if !state.Valid || !lat.Valid || !lng.Valid {
			continue
		}
		out = append(out, models.StateCentroid{State: state.String, Lat: lat.Float64, Lng: lng.Float64})
	}
	return out, rows.Err()
}
