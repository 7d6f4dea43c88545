// Package services provides business logic and orchestration services.
//
// This file implements the Strategy Pattern for membership billing cycles.
// Each plan (monthly, quarterly, annual) has its own strategy that decides
// when the next payment falls due and how much it costs.

package services

import (
	"fmt"
	"time"

	"gymdash/internal/core"
)

// BillingCycle is the strategy interface for scheduling membership payments.
type BillingCycle interface {
	// NextDue returns the due date one period after prev. anchorDay is the
	// day of month the member joined on; short months clamp to their last day
	// and later months return to the anchor.
	NextDue(prev core.Date, anchorDay int) core.Date
	// Fee returns the plan price given the monthly fee.
	Fee(monthly int64) int64
}

// MonthlyCycle bills every month.
type MonthlyCycle struct{}

func (MonthlyCycle) NextDue(prev core.Date, anchorDay int) core.Date {
	return addMonthsAnchored(prev, 1, anchorDay)
}

func (MonthlyCycle) Fee(monthly int64) int64 { return monthly }

// QuarterlyCycle bills every three months.
type QuarterlyCycle struct{}

func (QuarterlyCycle) NextDue(prev core.Date, anchorDay int) core.Date {
	return addMonthsAnchored(prev, 3, anchorDay)
}

func (QuarterlyCycle) Fee(monthly int64) int64 { return 3 * monthly }

// AnnualCycle bills once a year.
type AnnualCycle struct{}

func (AnnualCycle) NextDue(prev core.Date, anchorDay int) core.Date {
	return addMonthsAnchored(prev, 12, anchorDay)
}

func (AnnualCycle) Fee(monthly int64) int64 { return 12 * monthly }

func addMonthsAnchored(d core.Date, n, anchorDay int) core.Date {
	if anchorDay <= 0 {
		anchorDay = d.Day()
	}
	first := time.Date(d.Year(), d.Month()+time.Month(n), 1, 0, 0, 0, 0, time.UTC)
	lastDay := time.Date(first.Year(), first.Month()+1, 0, 0, 0, 0, 0, time.UTC).Day()
	day := anchorDay
	if day > lastDay {
		day = lastDay
	}
	return core.NewDate(first.Year(), int(first.Month()), day)
}

// billingCycles maps plans to their scheduling strategy.
var billingCycles = map[core.MembershipType]BillingCycle{
	core.PlanMonthly:   MonthlyCycle{},
	core.PlanQuarterly: QuarterlyCycle{},
	core.PlanAnnual:    AnnualCycle{},
}

// GetBillingCycle returns the strategy for plan.
func GetBillingCycle(plan core.MembershipType) (BillingCycle, error) {
	cycle, ok := billingCycles[plan]
	if !ok {
		return nil, fmt.Errorf("%w: %s", core.ErrUnknownPlan, plan)
	}
	return cycle, nil
}
