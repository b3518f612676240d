package metrics

import (
	"math"
	"sort"

	"debtplan/internal/models"
	"debtplan/internal/services/payoff"
)

// Service aggregates intake submissions
type Service struct {
	floor float64
}

// New creates a metrics service projecting debts with the given minimum payment floor
func New(floor float64) *Service {
	if floor <= 0 {
		floor = payoff.DefaultMinimumPaymentFloor
	}
	return &Service{floor: floor}
}

// Summarize computes totals over subs. Each debt line is projected at its
// issuer minimum; lines that never pay off are counted, not summed.
func (s *Service) Summarize(subs []models.Submission) *models.IntakeStats {
	stats := &models.IntakeStats{Submissions: len(subs)}

	var weighted float64
	for _, sub := range subs {
		for _, d := range sub.Debts {
			stats.DebtLines++
			stats.TotalDebt += d.Balance
			weighted += d.Balance * d.APR

			floor := s.floor
			if d.MinimumPayment > 0 {
				floor = d.MinimumPayment
			}
			schedule, summary, err := payoff.ComputeSchedule(payoff.IssuerRule(floor).Params(d.Balance, d.APR))
			if err != nil {
				continue
			}
			if len(schedule) > 0 {
				stats.TotalMinimumPayments += schedule[0].PaymentMade
			}
			if !summary.PaidOff {
				stats.NonConvergentLines++
				continue
			}
			stats.ProjectedInterest += summary.TotalInterestPaid
		}
	}

	if stats.TotalDebt > 0 {
		stats.WeightedAPR = payoff.Round(weighted / stats.TotalDebt)
	}
	if stats.Submissions > 0 {
		stats.AverageDebt = payoff.Round(stats.TotalDebt / float64(stats.Submissions))
	}
	stats.TotalDebt = payoff.Round(stats.TotalDebt)
	stats.TotalMinimumPayments = payoff.Round(stats.TotalMinimumPayments)
	stats.ProjectedInterest = payoff.Round(stats.ProjectedInterest)

	s.trend(stats, subs)
	return stats
}

// trend fills the six-month submission counts
func (s *Service) trend(stats *models.IntakeStats, subs []models.Submission) {
	byMonth := make(map[string]int)
	for _, sub := range subs {
		byMonth[sub.CreatedAt.Format("2006-01")]++
	}

	var months []string
	for m := range byMonth {
		months = append(months, m)
	}
	sort.Strings(months)
	if len(months) > 6 {
		months = months[len(months)-6:]
	}

	for _, m := range months {
		stats.TrendLabels = append(stats.TrendLabels, m)
		stats.TrendCounts = append(stats.TrendCounts, byMonth[m])
	}

	if n := len(stats.TrendCounts); n >= 2 {
		stats.MonthOverMonth = payoff.Round(s.PercentChange(float64(stats.TrendCounts[n-1]), float64(stats.TrendCounts[n-2])))
	}
}

// PercentChange calculates the percentage change between two values
func (s *Service) PercentChange(current, previous float64) float64 {
	if previous == 0 {
		if current == 0 {
			return 0
		}
		return 100
	}
	return ((current - previous) / math.Abs(previous)) * 100
}
