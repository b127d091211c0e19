package date

import "time"

// Range represents a range of dates, both boundaries included.
type Range struct{ From, To Date }

// Year returns the range covering the calendar year y.
func Year(y int) Range {
	return Range{From: New(y, time.January, 1), To: New(y, time.December, 31)}
}

// Around returns the range of days within n days before or after d.
func Around(d Date, n int) Range {
	return Range{From: d.Add(-n), To: d.Add(n)}
}

// Contains return true date is included in the range (boundaries included)
func (r Range) Contains(date Date) bool { return !date.Before(r.From) && !date.After(r.To) }

// End returns the first instant after the range.
func (r Range) End() time.Time { return r.To.Add(1).Time() }

// String returns the range as "from..to".
func (r Range) String() string { return r.From.String() + ".." + r.To.String() }
