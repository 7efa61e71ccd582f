// This file implements the Strategy Pattern for advancing cyclic transaction
// schedules. Each period has its own advancer computing the next due date.

package services

import (
	"portfel/internal/core"
)

// PeriodAdvancer computes the due date that follows d.
type PeriodAdvancer interface {
	Next(d core.Date) core.Date
}

// WeeklyAdvancer moves a schedule forward by seven days.
type WeeklyAdvancer struct{}

func (WeeklyAdvancer) Next(d core.Date) core.Date { return d.AddDays(7) }

// MonthlyAdvancer moves a schedule forward by one calendar month, clamping
// the day to the end of shorter months. The clamped day is kept afterwards,
// so a schedule started on the 31st drifts to the 29th after February.
type MonthlyAdvancer struct{}

func (MonthlyAdvancer) Next(d core.Date) core.Date { return d.AddMonths(1) }

// YearlyAdvancer moves a schedule forward by one calendar year.
type YearlyAdvancer struct{}

func (YearlyAdvancer) Next(d core.Date) core.Date { return d.AddYears(1) }

var periodStrategies = map[core.Period]PeriodAdvancer{
	core.Weekly:  WeeklyAdvancer{},
	core.Monthly: MonthlyAdvancer{},
	core.Yearly:  YearlyAdvancer{},
}

// AdvancerFor returns the advancer of a period. Unknown periods are treated
// as monthly so a bad stored value never stalls the catch-up loop.
func AdvancerFor(p core.Period) PeriodAdvancer {
	if a, ok := periodStrategies[p]; ok {
		return a
	}
	return MonthlyAdvancer{}
}

// RegisterAdvancer installs the advancer used for a period.
func RegisterAdvancer(p core.Period, a PeriodAdvancer) {
	periodStrategies[p] = a
}
