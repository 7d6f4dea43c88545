// Package calendar groups pending membership payments by due day and lays
// them out on a Monday-first month grid.
package calendar

import (
	"gymdash/internal/core"
)

// DayMap groups pending payments by their YYYY-MM-DD due date. Each bucket
// keeps the order the payments were received in.
type DayMap map[string][]core.PendingPayment

// Aggregate builds a fresh DayMap from list. Only pending payments are kept.
// The result never shares state with a previous call, so callers rebuild it
// whenever the fetched list changes instead of patching it.
func Aggregate(list []core.PendingPayment) DayMap {
	m := make(DayMap)
	for _, p := range list {
		if p.Status != core.StatusPending {
			continue
		}
		key := p.DueDate.Key()
		m[key] = append(m[key], p)
	}
	return m
}

// Items returns the bucket for key, or nil.
func (m DayMap) Items(key string) []core.PendingPayment {
	return m[key]
}

// Count returns the number of pending payments due on key.
func (m DayMap) Count(key string) int {
	return len(m[key])
}

// Total returns the summed amount due on key.
func (m DayMap) Total(key string) int64 {
	var total int64
	for _, p := range m[key] {
		total += p.AmountCRC
	}
	return total
}

// Summary is the hover card content for one day.
type Summary struct {
	Date     core.Date
	Count    int
	TotalCRC int64
	Overdue  bool
}

// Summarize returns the day summary for date. Overdue is evaluated against
// today on every call.
func (m DayMap) Summarize(date, today core.Date) Summary {
	key := date.Key()
	return Summary{
		Date:     date,
		Count:    m.Count(key),
		TotalCRC: m.Total(key),
		Overdue:  IsOverdue(date, today),
	}
}

// IsOverdue reports whether a day strictly precedes today.
func IsOverdue(date, today core.Date) bool {
	return date.Key() < today.Key()
}
