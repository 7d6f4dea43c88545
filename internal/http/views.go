package http

import (
	"fmt"
	"html/template"
	"strings"
	"unicode"

	"gymdash/internal/auth"
	"gymdash/internal/calendar"
	"gymdash/internal/calview"
	"gymdash/internal/core"
)

var weekdayNames = [...]string{"domingo", "lunes", "martes", "miércoles", "jueves", "viernes", "sábado"}

var templateFuncs = template.FuncMap{
	"crc":      core.FormatCRC,
	"initials": initials,
	"dayLabel": dayLabel,
	"monthKey": calendar.MonthKey,
	"plural": func(n int, one, many string) string {
		if n == 1 {
			return one
		}
		return many
	},
}

// initials returns up to two uppercase letters for the avatar bubble.
func initials(name string) string {
	out := make([]rune, 0, 2)
	for _, word := range strings.Fields(name) {
		r := []rune(word)
		if !unicode.IsLetter(r[0]) {
			continue
		}
		out = append(out, unicode.ToUpper(r[0]))
		if len(out) == 2 {
			break
		}
	}
	if len(out) == 0 {
		return "?"
	}
	return string(out)
}

// dayLabel renders "sábado 13 de septiembre de 2025".
func dayLabel(d core.Date) string {
	if d.IsZero() {
		return ""
	}
	month := strings.Fields(calendar.MonthTitle(d))[0]
	return fmt.Sprintf("%s %d de %s de %d", weekdayNames[d.Weekday()], d.Day(), month, d.Year())
}

type calendarView struct {
	Title    string
	Month    string
	Prev     string
	Next     string
	Weekdays []string
	Weeks    [][]calendar.Cell
	Failed   bool
	Count    int
	TotalCRC int64
	Overdue  int
}

func newCalendarView(c *calview.Controller) calendarView {
	grid := c.Grid()
	month := grid.Month
	v := calendarView{
		Title:    grid.Title(),
		Month:    calendar.MonthKey(month),
		Prev:     calendar.MonthKey(calendar.AddMonths(month, -1)),
		Next:     calendar.MonthKey(calendar.AddMonths(month, 1)),
		Weekdays: calendar.Weekdays,
		Weeks:    grid.Weeks(),
		Failed:   c.Result().Failed(),
	}
	for _, cell := range grid.Cells {
		if !cell.InMonth {
			continue
		}
		v.Count += cell.Count
		v.TotalCRC += cell.TotalCRC
		if cell.Overdue {
			v.Overdue += cell.Count
		}
	}
	return v
}

type dayView struct {
	calview.Modal
	Month string
	Label string
}

func newDayView(m calview.Modal) dayView {
	return dayView{
		Modal: m,
		Month: calendar.MonthKey(m.Date),
		Label: dayLabel(m.Date),
	}
}

type statsView struct {
	core.DashboardStats
	Title  string
	Month  string
	Failed bool
}

type loginView struct {
	Return   string
	Email    string
	Name     string
	Error    string
	Register bool
}

type indexView struct {
	Session  auth.Session
	Calendar calendarView
}
