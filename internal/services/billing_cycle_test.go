package services

import (
	"errors"
	"testing"

	"gymdash/internal/core"
)

func TestMonthlyCycle_NextDue(t *testing.T) {
	cycle := MonthlyCycle{}

	tests := []struct {
		name   string
		prev   core.Date
		anchor int
		want   string
	}{
		{"plain month", core.NewDate(2025, 9, 13), 13, "2025-10-13"},
		{"clamps to short month", core.NewDate(2025, 1, 31), 31, "2025-02-28"},
		{"leap february", core.NewDate(2024, 1, 31), 31, "2024-02-29"},
		{"returns to anchor after clamp", core.NewDate(2025, 2, 28), 31, "2025-03-31"},
		{"crosses year", core.NewDate(2025, 12, 5), 5, "2026-01-05"},
		{"zero anchor uses prev day", core.NewDate(2025, 9, 18), 0, "2025-10-18"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := cycle.NextDue(tt.prev, tt.anchor)
			if got.Key() != tt.want {
				t.Errorf("MonthlyCycle.NextDue() = %s, want %s", got.Key(), tt.want)
			}
		})
	}
}

func TestQuarterlyAndAnnualCycles(t *testing.T) {
	if got := (QuarterlyCycle{}).NextDue(core.NewDate(2025, 11, 30), 30); got.Key() != "2026-02-28" {
		t.Errorf("QuarterlyCycle.NextDue() = %s", got.Key())
	}
	if got := (AnnualCycle{}).NextDue(core.NewDate(2024, 2, 29), 29); got.Key() != "2025-02-28" {
		t.Errorf("AnnualCycle.NextDue() = %s", got.Key())
	}
}

func TestBillingCycleFees(t *testing.T) {
	tests := []struct {
		plan core.MembershipType
		want int64
	}{
		{core.PlanMonthly, 25000},
		{core.PlanQuarterly, 75000},
		{core.PlanAnnual, 300000},
	}
	for _, tt := range tests {
		cycle, err := GetBillingCycle(tt.plan)
		if err != nil {
			t.Fatalf("GetBillingCycle(%s): %v", tt.plan, err)
		}
		if got := cycle.Fee(25000); got != tt.want {
			t.Errorf("%s fee = %d, want %d", tt.plan, got, tt.want)
		}
	}
}

func TestGetBillingCycle_Unknown(t *testing.T) {
	if _, err := GetBillingCycle("weekly"); !errors.Is(err, core.ErrUnknownPlan) {
		t.Fatalf("expected ErrUnknownPlan, got %v", err)
	}
}
