package domain

import (
	"database/sql/driver"
	"fmt"
	"time"

	dErrors "moa/pkg/domain-errors"
)

const monthLayout = "2006-01"

// Month is a calendar month, the unit of billing and settlement.
// Persisted as "YYYY-MM".
type Month struct {
	Year  int
	Month time.Month
}

// MonthOf returns the month containing t, in t's location.
func MonthOf(t time.Time) Month {
	return Month{Year: t.Year(), Month: t.Month()}
}

// ParseMonth parses "YYYY-MM".
func ParseMonth(s string) (Month, error) {
	t, err := time.Parse(monthLayout, s)
	if err != nil {
		return Month{}, dErrors.Wrap(err, dErrors.CodeInvalidInput, "month must be formatted YYYY-MM")
	}
	return MonthOf(t), nil
}

func (m Month) String() string {
	return fmt.Sprintf("%04d-%02d", m.Year, int(m.Month))
}

func (m Month) IsZero() bool {
	return m.Year == 0 && m.Month == 0
}

func (m Month) Next() Month {
	return MonthOf(m.first().AddDate(0, 1, 0))
}

func (m Month) Prev() Month {
	return MonthOf(m.first().AddDate(0, -1, 0))
}

func (m Month) Before(o Month) bool {
	if m.Year != o.Year {
		return m.Year < o.Year
	}
	return m.Month < o.Month
}

// LastDay returns the number of days in the month.
func (m Month) LastDay() int {
	return m.first().AddDate(0, 1, -1).Day()
}

func (m Month) first() time.Time {
	return time.Date(m.Year, m.Month, 1, 0, 0, 0, 0, time.UTC)
}

// Value implements driver.Valuer.
func (m Month) Value() (driver.Value, error) {
	return m.String(), nil
}

// Scan implements sql.Scanner.
func (m *Month) Scan(src any) error {
	var s string
	switch v := src.(type) {
	case string:
		s = v
	case []byte:
		s = string(v)
	default:
		return fmt.Errorf("scan month: unsupported type %T", src)
	}
	parsed, err := ParseMonth(s)
	if err != nil {
		return err
	}
	*m = parsed
	return nil
}
