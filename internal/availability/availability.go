// Package availability holds the pure capacity arithmetic over reservation
// intervals. Nothing here performs I/O; callers supply the interval set and
// the stock quantity.
package availability

import (
	"sort"
	"time"

	"github.com/omaressamii/high-class-sub002/internal/domain"
)

// Verdict is the outcome of a capacity check over a requested window.
type Verdict struct {
	Admissible        bool `json:"admissible"`
	PeakReserved      int  `json:"peak_reserved"`
	AvailableQuantity int  `json:"available_quantity"`
}

// DayAvailability is one row of the calendar breakdown.
type DayAvailability struct {
	Date      time.Time `json:"date"`
	Reserved  int       `json:"reserved"`
	Available int       `json:"available"`
}

// Check determines whether reserving quantity units over [start, end] fits
// within stock given the existing intervals. Admissible iff the peak
// concurrent reservation inside the window plus the requested quantity does
// not exceed stock.
func Check(stock, quantity int, intervals []domain.Interval, start, end time.Time, excludeOrderID string) Verdict {
	peak := Peak(intervals, start, end, excludeOrderID)
	available := stock - peak
	if available < 0 {
		available = 0
	}
	return Verdict{
		Admissible:        peak+quantity <= stock,
		PeakReserved:      peak,
		AvailableQuantity: available,
	}
}

// Peak computes the maximum concurrent reserved quantity over [start, end]
// (inclusive day boundaries) with a single sweep over interval endpoints.
// Intervals belonging to excludeOrderID are skipped so an order edit is not
// checked against its own existing reservation. Boundaries are inclusive:
// an interval ending the day another starts counts as overlapping.
func Peak(intervals []domain.Interval, start, end time.Time, excludeOrderID string) int {
	start = domain.Day(start)
	end = domain.Day(end)

	type event struct {
		at    time.Time
		delta int
	}
	var events []event

	for _, iv := range intervals {
		if excludeOrderID != "" && iv.OrderID == excludeOrderID {
			continue
		}
		if !iv.Status.Occupying() {
			continue
		}
		if !iv.Overlaps(start, end) {
			continue
		}
		from := iv.Start
		if from.Before(start) {
			from = start
		}
		// The interval stops counting the day after its inclusive end.
		events = append(events,
			event{at: from, delta: iv.Quantity},
			event{at: iv.End.AddDate(0, 0, 1), delta: -iv.Quantity},
		)
	}

	// Releases sort before acquisitions at the same instant: an exclusive
	// end meeting a start on the same day must not stack.
	sort.Slice(events, func(i, j int) bool {
		if !events[i].at.Equal(events[j].at) {
			return events[i].at.Before(events[j].at)
		}
		return events[i].delta < events[j].delta
	})

	current, peak := 0, 0
	for _, ev := range events {
		current += ev.delta
		if current > peak {
			peak = current
		}
	}
	return peak
}

// Calendar returns the reserved and available quantity for every day in
// [start, end]. This backs the read-only calendar view; admission checks
// go through Check.
func Calendar(stock int, intervals []domain.Interval, start, end time.Time, excludeOrderID string) []DayAvailability {
	start = domain.Day(start)
	end = domain.Day(end)
	if end.Before(start) {
		return nil
	}

	var days []DayAvailability
	for day := start; !day.After(end); day = day.AddDate(0, 0, 1) {
		reserved := 0
		for _, iv := range intervals {
			if excludeOrderID != "" && iv.OrderID == excludeOrderID {
				continue
			}
			if !iv.Status.Occupying() {
				continue
			}
			if iv.Overlaps(day, day) {
				reserved += iv.Quantity
			}
		}
		available := stock - reserved
		if available < 0 {
			available = 0
		}
		days = append(days, DayAvailability{Date: day, Reserved: reserved, Available: available})
	}
	return days
}

// TotalCommitted sums the quantities of every occupying interval with no
// date filter. This is the reconciliation semantics for reserved_quantity:
// the counter tracks total committed units across any window, not the
// instantaneous peak.
func TotalCommitted(intervals []domain.Interval) int {
	total := 0
	for _, iv := range intervals {
		if iv.Status.Occupying() {
			total += iv.Quantity
		}
	}
	return total
}

// CommittedForOrder sums the quantities an order currently holds within the
// given interval set. Used to derive the net counter delta for order edits
// and cancellations.
func CommittedForOrder(intervals []domain.Interval, orderID string) int {
	if orderID == "" {
		return 0
	}
	total := 0
	for _, iv := range intervals {
		if iv.OrderID == orderID && iv.Status.Occupying() {
			total += iv.Quantity
		}
	}
	return total
}
