package analytics

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/diewo77/solodesk/internal/apperr"
	"github.com/diewo77/solodesk/validation"
)

// Bucket granularities.
const (
	Month   = "month"
	Quarter = "quarter"
	Year    = "year"
)

// maxDays caps a day-count period at ten years.
const maxDays = 3650

// Period selects the reporting window. A zero Days means a named period.
type Period struct {
	Name string
	Days int
}

// ParsePeriod accepts month, quarter, year or a positive day count. Empty means month.
func ParsePeriod(raw string) (Period, error) {
	raw = strings.ToLower(strings.TrimSpace(raw))
	switch raw {
	case "":
		return Period{Name: Month}, nil
	case Month, Quarter, Year:
		return Period{Name: raw}, nil
	}
	days, err := strconv.Atoi(raw)
	if err != nil || days <= 0 || days > maxDays {
		return Period{}, apperr.Invalid("Invalid period", validation.Violations{"period": "invalid_value"})
	}
	return Period{Name: raw, Days: days}, nil
}

// Granularity is the bucket size used for time series. Day-count periods bucket by month.
func (p Period) Granularity() string {
	if p.Days > 0 || p.Name == "" {
		return Month
	}
	return p.Name
}

// Window returns the [start, end] range of the period ending at now.
// month covers 12 monthly buckets, quarter 4 calendar years, year 6 calendar years.
func (p Period) Window(now time.Time) (time.Time, time.Time) {
	now = now.UTC()
	if p.Days > 0 {
		return now.AddDate(0, 0, -p.Days), now
	}
	switch p.Name {
	case Quarter:
		return time.Date(now.Year()-3, time.January, 1, 0, 0, 0, 0, time.UTC), now
	case Year:
		return time.Date(now.Year()-5, time.January, 1, 0, 0, 0, 0, time.UTC), now
	default:
		return monthStart(now).AddDate(0, -11, 0), now
	}
}

func (p Period) String() string {
	if p.Days > 0 {
		return fmt.Sprintf("%d days", p.Days)
	}
	return p.Granularity()
}

func monthStart(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, time.UTC)
}

// bucketExpr renders the SQL expression truncating column to a bucket key
// (YYYY-MM, YYYY-Qn or YYYY) for the connected dialect.
func bucketExpr(dialect, granularity, column string) string {
	if dialect == "postgres" {
		switch granularity {
		case Year:
			return fmt.Sprintf("to_char(%s, 'YYYY')", column)
		case Quarter:
			return fmt.Sprintf(`to_char(%s, 'YYYY"-Q"Q')`, column)
		default:
			return fmt.Sprintf("to_char(%s, 'YYYY-MM')", column)
		}
	}
	switch granularity {
	case Year:
		return fmt.Sprintf("strftime('%%Y', %s)", column)
	case Quarter:
		return fmt.Sprintf("strftime('%%Y', %[1]s) || '-Q' || ((CAST(strftime('%%m', %[1]s) AS INTEGER) + 2) / 3)", column)
	default:
		return fmt.Sprintf("strftime('%%Y-%%m', %s)", column)
	}
}

// bucketKey is the Go counterpart of bucketExpr.
func bucketKey(t time.Time, granularity string) string {
	t = t.UTC()
	switch granularity {
	case Year:
		return strconv.Itoa(t.Year())
	case Quarter:
		return fmt.Sprintf("%d-Q%d", t.Year(), (int(t.Month())+2)/3)
	default:
		return t.Format("2006-01")
	}
}
