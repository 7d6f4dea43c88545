package calendar

import (
	"time"

	"gymdash/internal/core"
)

// Cell is one day square on the month grid.
type Cell struct {
	Date     core.Date
	Key      string
	Day      int
	InMonth  bool
	IsToday  bool
	Count    int
	TotalCRC int64
	Overdue  bool
}

// HasPayments reports whether the cell shows a badge.
func (c Cell) HasPayments() bool {
	return c.Count > 0
}

// Grid is the ordered list of cells for a month, always whole weeks.
type Grid struct {
	Month core.Date
	Cells []Cell
}

// Range returns the Monday before (or on) the 1st of month and the Sunday
// after (or on) its last day.
func Range(month core.Date) (start, end core.Date) {
	first := StartOfMonth(month)
	last := EndOfMonth(month)

	// Monday = 0 ... Sunday = 6
	back := (int(first.Weekday()) + 6) % 7
	forward := (7 - int(last.Weekday())) % 7

	return first.AddDays(-back), last.AddDays(forward)
}

// BuildGrid lays out month on complete Monday-first weeks and decorates
// each cell from days. Cells outside the month still carry their counts.
func BuildGrid(month, today core.Date, days DayMap) Grid {
	start, end := Range(month)
	first := StartOfMonth(month)
	todayKey := today.Key()

	g := Grid{Month: first}
	for d := start; !d.After(end.Time); d = d.AddDays(1) {
		key := d.Key()
		g.Cells = append(g.Cells, Cell{
			Date:     d,
			Key:      key,
			Day:      d.Day(),
			InMonth:  d.Month() == first.Month() && d.Year() == first.Year(),
			IsToday:  key == todayKey,
			Count:    days.Count(key),
			TotalCRC: days.Total(key),
			Overdue:  key < todayKey,
		})
	}
	return g
}

// Len returns the number of cells.
func (g Grid) Len() int {
	return len(g.Cells)
}

// Weeks splits the grid into rows of seven.
func (g Grid) Weeks() [][]Cell {
	weeks := make([][]Cell, 0, len(g.Cells)/7)
	for i := 0; i+7 <= len(g.Cells); i += 7 {
		weeks = append(weeks, g.Cells[i:i+7])
	}
	return weeks
}

// Cell returns the cell for key.
func (g Grid) Cell(key string) (Cell, bool) {
	for _, c := range g.Cells {
		if c.Key == key {
			return c, true
		}
	}
	return Cell{}, false
}

// Weekdays are the column headings, Monday first.
var Weekdays = []string{"Lun", "Mar", "Mié", "Jue", "Vie", "Sáb", "Dom"}

var monthNames = [...]string{
	"enero", "febrero", "marzo", "abril", "mayo", "junio",
	"julio", "agosto", "septiembre", "octubre", "noviembre", "diciembre",
}

// Title renders the month heading, e.g. "septiembre 2025".
func (g Grid) Title() string {
	return MonthTitle(g.Month)
}

// MonthTitle renders the Spanish month and year of d.
func MonthTitle(d core.Date) string {
	return monthNames[d.Month()-time.January] + " " + d.Format("2006")
}
