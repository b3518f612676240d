package payoff

import (
	"errors"
	"testing"

	"debtplan/internal/models"
)

func TestCompareScenarios(t *testing.T) {
	cmp, err := CompareScenarios(cardParams(), 50)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cmp.BaselineMonthsToPayoff != 62 {
		t.Errorf("BaselineMonthsToPayoff = %d, want 62", cmp.BaselineMonthsToPayoff)
	}
	if cmp.NewMonthsToPayoff != 15 {
		t.Errorf("NewMonthsToPayoff = %d, want 15", cmp.NewMonthsToPayoff)
	}
	if cmp.MonthsSaved != 47 {
		t.Errorf("MonthsSaved = %d, want 47", cmp.MonthsSaved)
	}
	if !cmp.InterestSavedKnown() {
		t.Fatal("expected interest saved to be reported")
	}
	want := Round(cmp.Baseline.TotalInterestPaid - cmp.Scenario.TotalInterestPaid)
	if d := *cmp.InterestSaved - want; d > 0.011 || d < -0.011 {
		t.Errorf("InterestSaved = %v, want about %v", *cmp.InterestSaved, want)
	}
	if *cmp.InterestSaved <= 0 {
		t.Errorf("InterestSaved = %v, want > 0", *cmp.InterestSaved)
	}
}

// TestCompareIgnoresParamsExtra checks the baseline always runs with no extra
func TestCompareIgnoresParamsExtra(t *testing.T) {
	p := cardParams()
	p.AdditionalMonthlyPayment = 500

	cmp, err := CompareScenarios(p, 50)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cmp.BaselineMonthsToPayoff != 62 {
		t.Errorf("BaselineMonthsToPayoff = %d, want 62", cmp.BaselineMonthsToPayoff)
	}
	if cmp.NewMonthsToPayoff != 15 {
		t.Errorf("NewMonthsToPayoff = %d, want 15", cmp.NewMonthsToPayoff)
	}
}

func TestCompareZeroExtra(t *testing.T) {
	cmp, err := CompareScenarios(cardParams(), 0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cmp.MonthsSaved != 0 {
		t.Errorf("MonthsSaved = %d, want 0", cmp.MonthsSaved)
	}
	if cmp.InterestSaved == nil || *cmp.InterestSaved != 0 {
		t.Errorf("InterestSaved = %v, want 0", cmp.InterestSaved)
	}
}

// TestCompareNonConvergentBaseline checks interest saved is withheld when the
// baseline never pays off
func TestCompareNonConvergentBaseline(t *testing.T) {
	p := models.PayoffParameters{
		Principal:            1000,
		AnnualPercentageRate: 30,
		MinimumPaymentFloor:  1,
	}

	cmp, err := CompareScenarios(p, 10)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cmp.Baseline.PaidOff {
		t.Error("baseline should not pay off")
	}
	if !cmp.Scenario.PaidOff {
		t.Error("scenario with extra should pay off")
	}
	if cmp.InterestSavedKnown() {
		t.Errorf("InterestSaved = %v, want nil", *cmp.InterestSaved)
	}
	if cmp.NewMonthsToPayoff >= MaxMonths {
		t.Errorf("NewMonthsToPayoff = %d, want < %d", cmp.NewMonthsToPayoff, MaxMonths)
	}
}

// TestMonotonicBenefit checks more extra never costs months or savings
func TestMonotonicBenefit(t *testing.T) {
	rules := []Rule{SimpleRule(25), IssuerRule(25), IssuerRule(40)}
	balances := []float64{500, 4800, 23000}
	aprs := []float64{0, 9.9, 18, 29.99}

	for _, rule := range rules {
		for _, bal := range balances {
			for _, apr := range aprs {
				p := rule.Params(bal, apr)
				prevMonths := MaxMonths + 1
				prevSaved := -1.0

				for extra := 0.0; extra <= 500; extra += 25 {
					cmp, err := CompareScenarios(p, extra)
					if err != nil {
						t.Fatalf("unexpected error: %v", err)
					}
					if cmp.NewMonthsToPayoff > prevMonths {
						t.Errorf("%+v extra %v: months rose %d -> %d", p, extra, prevMonths, cmp.NewMonthsToPayoff)
					}
					prevMonths = cmp.NewMonthsToPayoff
					if !cmp.InterestSavedKnown() {
						continue
					}
					if *cmp.InterestSaved < 0 {
						t.Errorf("%+v extra %v: negative savings %v", p, extra, *cmp.InterestSaved)
					}
					if *cmp.InterestSaved < prevSaved {
						t.Errorf("%+v extra %v: savings fell %v -> %v", p, extra, prevSaved, *cmp.InterestSaved)
					}
					prevSaved = *cmp.InterestSaved
				}
			}
		}
	}
}

func TestCompareRejectsInvalid(t *testing.T) {
	if _, err := CompareScenarios(cardParams(), -1); !errors.Is(err, ErrInvalidParameter) {
		t.Errorf("negative extra: got %v, want ErrInvalidParameter", err)
	}

	p := cardParams()
	p.Principal = 0
	if _, err := CompareScenarios(p, 10); !errors.Is(err, ErrInvalidParameter) {
		t.Errorf("zero principal: got %v, want ErrInvalidParameter", err)
	}
}
