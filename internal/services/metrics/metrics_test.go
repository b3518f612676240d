package metrics

import (
	"testing"
	"time"

	"debtplan/internal/models"
)

func submission(month time.Month, debts ...models.DebtLine) models.Submission {
	return models.Submission{
		CreatedAt: time.Date(2026, month, 5, 0, 0, 0, 0, time.UTC),
		Debts:     debts,
	}
}

func TestSummarize(t *testing.T) {
	subs := []models.Submission{
		submission(time.January, models.DebtLine{Balance: 1000, APR: 10}),
		submission(time.February,
			models.DebtLine{Balance: 3000, APR: 20},
			models.DebtLine{Balance: 1000, APR: 30, MinimumPayment: 1},
		),
		submission(time.February, models.DebtLine{Balance: 500, APR: 0}),
	}

	stats := New(25).Summarize(subs)

	if stats.Submissions != 3 || stats.DebtLines != 4 {
		t.Errorf("counts = %d/%d, want 3/4", stats.Submissions, stats.DebtLines)
	}
	if stats.TotalDebt != 5500 {
		t.Errorf("TotalDebt = %v, want 5500", stats.TotalDebt)
	}
	if stats.AverageDebt != 1833.33 {
		t.Errorf("AverageDebt = %v, want 1833.33", stats.AverageDebt)
	}
	// (1000*10 + 3000*20 + 1000*30) / 5500
	if stats.WeightedAPR != 18.18 {
		t.Errorf("WeightedAPR = %v, want 18.18", stats.WeightedAPR)
	}
	if stats.ProjectedInterest <= 0 {
		t.Errorf("ProjectedInterest = %v, want > 0", stats.ProjectedInterest)
	}
	if stats.TotalMinimumPayments <= 0 {
		t.Errorf("TotalMinimumPayments = %v, want > 0", stats.TotalMinimumPayments)
	}
	if len(stats.TrendLabels) != 2 || stats.TrendCounts[1] != 2 {
		t.Errorf("trend = %v %v", stats.TrendLabels, stats.TrendCounts)
	}
	if stats.MonthOverMonth != 100 {
		t.Errorf("MonthOverMonth = %v, want 100", stats.MonthOverMonth)
	}
}

func TestSummarizeEmpty(t *testing.T) {
	stats := New(0).Summarize(nil)
	if stats.Submissions != 0 || stats.TotalDebt != 0 || stats.WeightedAPR != 0 {
		t.Errorf("empty stats = %+v", stats)
	}
}

func TestPercentChange(t *testing.T) {
	s := New(25)
	tests := []struct {
		cur, prev, want float64
	}{
		{0, 0, 0},
		{5, 0, 100},
		{15, 10, 50},
		{5, 10, -50},
	}
	for _, tt := range tests {
		if got := s.PercentChange(tt.cur, tt.prev); got != tt.want {
			t.Errorf("PercentChange(%v, %v) = %v, want %v", tt.cur, tt.prev, got, tt.want)
		}
	}
}
