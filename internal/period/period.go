// Package period defines the calendar month+year bucket used as the unit of
// balance closure.
package period

import (
	"fmt"
	"time"
)

// Period identifies one calendar month. The zero value is invalid.
type Period struct {
	Month time.Month
	Year  int
}

// FromTime returns the period containing t, interpreted in t's location.
func FromTime(t time.Time) Period {
	return Period{Month: t.Month(), Year: t.Year()}
}

// New validates month and year and returns the corresponding period.
func New(month, year int) (Period, error) {
	if month < 1 || month > 12 {
		return Period{}, fmt.Errorf("invalid month %d: must be 1-12", month)
	}
	if year < 2000 || year > 9999 {
		return Period{}, fmt.Errorf("invalid year %d", year)
	}
	return Period{Month: time.Month(month), Year: year}, nil
}

// Prev returns the preceding month, crossing year boundaries.
func (p Period) Prev() Period {
	if p.Month == time.January {
		return Period{Month: time.December, Year: p.Year - 1}
	}
	return Period{Month: p.Month - 1, Year: p.Year}
}

// Next returns the following month.
func (p Period) Next() Period {
	if p.Month == time.December {
		return Period{Month: time.January, Year: p.Year + 1}
	}
	return Period{Month: p.Month + 1, Year: p.Year}
}

// Before reports whether p is strictly earlier than q.
func (p Period) Before(q Period) bool {
	if p.Year != q.Year {
		return p.Year < q.Year
	}
	return p.Month < q.Month
}

// Sub returns the number of months from q to p (positive when p is later).
func (p Period) Sub(q Period) int {
	return (p.Year-q.Year)*12 + int(p.Month) - int(q.Month)
}

// Bounds returns the half-open interval [start, end) covering the whole
// month in loc. Using the first instant of the next month as the exclusive
// end avoids any end-of-month millisecond fencepost.
func (p Period) Bounds(loc *time.Location) (start, end time.Time) {
	start = time.Date(p.Year, p.Month, 1, 0, 0, 0, 0, loc)
	n := p.Next()
	end = time.Date(n.Year, n.Month, 1, 0, 0, 0, 0, loc)
	return start, end
}

func (p Period) String() string {
	return fmt.Sprintf("%04d-%02d", p.Year, int(p.Month))
}
