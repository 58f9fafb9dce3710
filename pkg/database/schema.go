package database

import (
	"fmt"
	"regexp"
	"strings"

	"rfm-segments/pkg/models"
)

var identPattern = regexp.MustCompile(`^[A-Za-z0-9_]+$`)

// schema lists the columns the engine reads from each table. Queries are built only from
// these identifiers; callers can choose among them but never supply their own.
var schema = map[models.Table][]string{
	models.TableCustomers: {
		"customer_id", "customer_unique_id", "customer_zip_code_prefix", "customer_city", "customer_state",
	},
	models.TableOrders: {
		"order_id", "customer_id", "order_status", "order_purchase_timestamp",
		"order_delivered_customer_date", "order_estimated_delivery_date",
	},
	models.TablePayments: {
		"order_id", "payment_sequential", "payment_type", "payment_installments", "payment_value",
	},
	models.TableItems: {
		"order_id", "order_item_id", "product_id", "seller_id", "price", "freight_value",
	},
	models.TableGeolocation: {
		"geolocation_zip_code_prefix", "geolocation_lat", "geolocation_lng", "geolocation_city", "geolocation_state",
	},
}

// Columns returns the known columns of table.
func Columns(table models.Table) ([]string, error) {
	cols, ok := schema[table]
	if !ok {
		return nil, fmt.Errorf("unknown table %q", table)
	}
	return append([]string(nil), cols...), nil
}

// checkColumns verifies that every column belongs to the fixed schema of table.
func checkColumns(table models.Table, columns ...string) error {
	cols, err := Columns(table)
	if err != nil {
		return err
	}
	for _, c := range columns {
		if !identPattern.MatchString(c) || !contains(cols, c) {
			return fmt.Errorf("invalid column %s.%s", table, c)
		}
	}
	return nil
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

// rebind rewrites ? placeholders into $1, $2, ... for PostgreSQL.
func rebind(d Dialect, query string) string {
	if d != Postgres {
		return query
	}
	var b strings.Builder
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			fmt.Fprintf(&b, "$%d", n)
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}
