package database

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"rfm-segments/pkg/models"
)

// Checker is the SQL implementation of the data-quality gate. It reports null rates,
// duplicate keys and the date range of a table without modifying it.
type Checker struct {
	db      *sql.DB
	dialect Dialect
}

// NewChecker wraps an open connection.
func NewChecker(db *sql.DB, dialect Dialect) *Checker {
	return &Checker{db: db, dialect: dialect}
}

// Check computes the quality report of table. keyColumns declares the unique key; dateColumn
// may be empty when the table has no date to validate.
func (c *Checker) Check(ctx context.Context, table models.Table, keyColumns []string, dateColumn string) (models.QualityReport, error) {
	report := models.QualityReport{Table: table}

	cols, err := Columns(table)
	if err != nil {
		return report, err
	}
	if len(keyColumns) == 0 {
		return report, fmt.Errorf("%s: empty key", table)
	}
	if err := checkColumns(table, keyColumns...); err != nil {
		return report, err
	}
	if dateColumn != "" {
		if err := checkColumns(table, dateColumn); err != nil {
			return report, err
		}
	}

	if report.Rows, report.NullRate, err = c.nullRates(ctx, table, cols); err != nil {
		return report, err
	}
	if report.DuplicateCount, err = c.duplicates(ctx, table, keyColumns); err != nil {
		return report, err
	}
	if dateColumn != "" {
		if report.DateRange, err = c.dateRange(ctx, table, dateColumn); err != nil {
			return report, err
		}
	}
	return report, nil
}

func (c *Checker) nullRates(ctx context.Context, table models.Table, cols []string) (int64, map[string]float64, error) {
	exprs := make([]string, 0, len(cols)+1)
	exprs = append(exprs, "COUNT(*)")
	for _, col := range cols {
		exprs = append(exprs, fmt.Sprintf("COUNT(%s)", col))
	}
	q := fmt.Sprintf("SELECT %s FROM %s", strings.Join(exprs, ", "), table)

	counts := make([]int64, len(exprs))
	dest := make([]any, len(exprs))
	for i := range counts {
		dest[i] = &counts[i]
	}
	if err := c.db.QueryRowContext(ctx, rebind(c.dialect, q)).Scan(dest...); err != nil {
		return 0, nil, fmt.Errorf("null rates %s: %w", table, err)
	}

	total := counts[0]
	rates := make(map[string]float64, len(cols))
	for i, col := range cols {
		if total == 0 {
			rates[col] = 0
			continue
		}
		rates[col] = float64(total-counts[i+1]) * 100 / float64(total)
	}
	return total, rates, nil
}

func (c *Checker) duplicates(ctx context.Context, table models.Table, keys []string) (int64, error) {
	key := strings.Join(keys, ", ")
	q := fmt.Sprintf(`
		SELECT COALESCE(SUM(n - 1), 0)
		FROM (SELECT COUNT(*) AS n FROM %s GROUP BY %s HAVING COUNT(*) > 1) d`, table, key)

	// SUM comes back as DECIMAL/NUMERIC text on some drivers
	var n sql.NullFloat64
	if err := c.db.QueryRowContext(ctx, rebind(c.dialect, q)).Scan(&n); err != nil {
		return 0, fmt.Errorf("duplicates %s(%s): %w", table, key, err)
	}
	return int64(n.Float64), nil
}

func (c *Checker) dateRange(ctx context.Context, table models.Table, col string) (*models.DateRange, error) {
	q := fmt.Sprintf("SELECT MIN(%s), MAX(%s) FROM %s", col, col, table)
	var lo, hi nullTimestamp
	if err := c.db.QueryRowContext(ctx, rebind(c.dialect, q)).Scan(&lo, &hi); err != nil {
		return nil, fmt.Errorf("date range %s.%s: %w", table, col, err)
	}
	if !lo.Valid || !hi.Valid {
		return nil, nil
	}
	return &models.DateRange{Min: lo.Time, Max: hi.Time}, nil
}
