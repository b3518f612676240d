package payoff

import (
	"time"

	"debtplan/internal/models"
)

// CompareScenarios runs p once with no extra payment and once with extra on
// top of the required payment. Interest saved is only reported when the
// baseline pays off inside the month cap; otherwise it is left nil.
func CompareScenarios(p models.PayoffParameters, extra float64) (*models.ScenarioComparison, error) {
	if !finite(extra) || extra < 0 {
		return nil, invalid("extra_payment", extra, "cannot be negative")
	}

	_, baseline, err := Simulate(p.WithAdditional(0))
	if err != nil {
		return nil, err
	}
	_, scenario, err := Simulate(p.WithAdditional(extra))
	if err != nil {
		return nil, err
	}

	cmp := &models.ScenarioComparison{
		ExtraPayment:           extra,
		Baseline:               roundSummary(baseline),
		Scenario:               roundSummary(scenario),
		BaselineMonthsToPayoff: baseline.MonthsToPayoff,
		NewMonthsToPayoff:      scenario.MonthsToPayoff,
		MonthsSaved:            baseline.MonthsToPayoff - scenario.MonthsToPayoff,
	}

	if baseline.PaidOff && scenario.PaidOff {
		saved := Round(baseline.TotalInterestPaid - scenario.TotalInterestPaid)
		cmp.InterestSaved = &saved
	}

	return cmp, nil
}

// DebtFreeDate projects the month the last payment lands, counting whole
// calendar months from from. The day is clamped to the end of the target
// month so Jan 31 + 1 month is the last day of February.
func DebtFreeDate(from time.Time, months int) time.Time {
	y, m, d := from.Date()
	first := time.Date(y, m+time.Month(months), 1, 0, 0, 0, 0, from.Location())
	last := first.AddDate(0, 1, -1).Day()
	if d > last {
		d = last
	}
	return time.Date(first.Year(), first.Month(), d, 0, 0, 0, 0, from.Location())
}
