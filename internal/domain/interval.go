package domain

import "time"

// Interval is a single product's reservation window derived from one order
// line item. Intervals are never persisted; they are rebuilt from the
// orders collection on every query. Start and End are inclusive day
// boundaries: Start == End is a valid single-day rental.
type Interval struct {
	OrderID   string
	ProductID string
	Quantity  int
	Start     time.Time
	End       time.Time
	Status    OrderStatus
}

// Overlaps reports whether the interval intersects [start, end] under the
// inclusive boundary rule: a return date and a delivery date falling on the
// same day conflict (same-day turnaround is not assumed possible).
func (iv Interval) Overlaps(start, end time.Time) bool {
	return !iv.Start.After(end) && !start.After(iv.End)
}

// Day truncates t to UTC midnight. All reservation arithmetic happens at
// day granularity regardless of the time component stored on the order.
func Day(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
