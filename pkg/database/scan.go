package database

import (
	"database/sql"
	"fmt"
	"strings"
	"time"
)

// timestampLayouts are tried in order for drivers that hand timestamps back as text
// (SQLite, or MIN/MAX expressions that lose the column type).
var timestampLayouts = []string{
	"2006-01-02 15:04:05.999999999-07:00",
	"2006-01-02 15:04:05.999999999",
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02",
}

// nullTimestamp scans a nullable timestamp delivered as time.Time, string or []byte.
type nullTimestamp struct {
	Time  time.Time
	Valid bool
}

func (n *nullTimestamp) Scan(v any) error {
	n.Time, n.Valid = time.Time{}, false
	switch x := v.(type) {
	case nil:
		return nil
	case time.Time:
		n.Time, n.Valid = x.UTC(), true
		return nil
	case []byte:
		return n.parse(string(x))
	case string:
		return n.parse(x)
	default:
		return fmt.Errorf("timestamp: unsupported type %T", v)
	}
}

func (n *nullTimestamp) parse(s string) error {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			n.Time, n.Valid = t.UTC(), true
			return nil
		}
	}
	return fmt.Errorf("unreadable timestamp %q", s)
}

func (n nullTimestamp) nullTime() sql.NullTime {
	return sql.NullTime{Time: n.Time, Valid: n.Valid}
}
