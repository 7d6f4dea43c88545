package calendar

import (
	"testing"
	"time"

	"gymdash/internal/core"
)

func TestAddMonths(t *testing.T) {
	tests := []struct {
		from core.Date
		n    int
		want string
	}{
		{core.NewDate(2025, 9, 15), 1, "2025-10-15"},
		{core.NewDate(2025, 9, 15), -1, "2025-08-15"},
		{core.NewDate(2025, 1, 31), 1, "2025-02-28"},
		{core.NewDate(2024, 1, 31), 1, "2024-02-29"},
		{core.NewDate(2025, 12, 10), 1, "2026-01-10"},
		{core.NewDate(2025, 1, 10), -1, "2024-12-10"},
		{core.NewDate(2025, 1, 10), -13, "2023-12-10"},
		{core.NewDate(2025, 3, 31), 12, "2026-03-31"},
	}
	for _, tt := range tests {
		if got := AddMonths(tt.from, tt.n).Key(); got != tt.want {
			t.Errorf("AddMonths(%s, %d) = %s, want %s", tt.from, tt.n, got, tt.want)
		}
	}
}

func TestParseMonth(t *testing.T) {
	fallback := core.NewDate(2025, 9, 17)
	got, err := ParseMonth("", fallback)
	if err != nil || got.Key() != "2025-09-01" {
		t.Fatalf("ParseMonth(\"\") = %s, %v", got, err)
	}
	got, err = ParseMonth("2026-02", fallback)
	if err != nil || got.Key() != "2026-02-01" {
		t.Fatalf("ParseMonth(2026-02) = %s, %v", got, err)
	}
	if _, err := ParseMonth("2026-2-1", fallback); err == nil {
		t.Fatalf("expected error")
	}
}

func TestToday(t *testing.T) {
	loc := time.FixedZone("CST", -6*3600)
	now := time.Date(2025, 10, 1, 3, 0, 0, 0, time.UTC) // still Sept 30 in Costa Rica
	if got := Today(now, loc).Key(); got != "2025-09-30" {
		t.Fatalf("Today = %s", got)
	}
}
