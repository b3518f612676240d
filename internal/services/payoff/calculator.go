// Package payoff simulates credit card payoff under a minimum-payment rule.
package payoff

import (
	"math"

	"github.com/shopspring/decimal"

	"debtplan/internal/models"
)

const (
	// MaxMonths caps every simulation at 50 years
	MaxMonths = 600

	// DefaultMinimumPaymentFloor is the flat floor most issuers print on a statement
	DefaultMinimumPaymentFloor = 25.0

	// IssuerRequiredPrincipalPercentage is the typical principal share of the
	// issuer minimum (interest + 1.5% of balance)
	IssuerRequiredPrincipalPercentage = 1.5
)

// Rule is the minimum-payment rule of a card
type Rule struct {
	Floor                       float64 `json:"floor"`
	RequiredPrincipalPercentage float64 `json:"required_principal_percentage"`
}

// SimpleRule pays the larger of the floor and the month's interest
func SimpleRule(floor float64) Rule {
	return Rule{Floor: floor}
}

// IssuerRule pays the larger of the floor and interest plus 1.5% of balance
func IssuerRule(floor float64) Rule {
	return Rule{Floor: floor, RequiredPrincipalPercentage: IssuerRequiredPrincipalPercentage}
}

// Params builds PayoffParameters for a balance under r
func (r Rule) Params(principal, apr float64) models.PayoffParameters {
	return models.PayoffParameters{
		Principal:                   principal,
		AnnualPercentageRate:        apr,
		MinimumPaymentFloor:         r.Floor,
		RequiredPrincipalPercentage: r.RequiredPrincipalPercentage,
	}
}

// Validate checks p against the payoff invariants
func Validate(p models.PayoffParameters) error {
	if !finite(p.Principal) || p.Principal <= 0 {
		return invalid("principal", p.Principal, "must be greater than 0")
	}
	if !finite(p.AnnualPercentageRate) || p.AnnualPercentageRate < 0 || p.AnnualPercentageRate > 100 {
		return invalid("annual_percentage_rate", p.AnnualPercentageRate, "must be between 0 and 100")
	}
	if !finite(p.MinimumPaymentFloor) || p.MinimumPaymentFloor <= 0 {
		return invalid("minimum_payment_floor", p.MinimumPaymentFloor, "must be greater than 0")
	}
	if !finite(p.RequiredPrincipalPercentage) || p.RequiredPrincipalPercentage < 0 || p.RequiredPrincipalPercentage > 100 {
		return invalid("required_principal_percentage", p.RequiredPrincipalPercentage, "must be between 0 and 100")
	}
	if !finite(p.AdditionalMonthlyPayment) || p.AdditionalMonthlyPayment < 0 {
		return invalid("additional_monthly_payment", p.AdditionalMonthlyPayment, "cannot be negative")
	}
	return nil
}

// ComputeSchedule simulates p month by month and returns the schedule with
// money fields rounded to cents. Arithmetic runs at full precision; rounding
// never feeds back into the next month.
func ComputeSchedule(p models.PayoffParameters) ([]models.ScheduleEntry, models.PayoffSummary, error) {
	schedule, summary, err := Simulate(p)
	if err != nil {
		return nil, models.PayoffSummary{}, err
	}
	for i := range schedule {
		schedule[i] = roundEntry(schedule[i])
	}
	return schedule, roundSummary(summary), nil
}

// Compute is ComputeSchedule packaged as a PayoffResult
func Compute(p models.PayoffParameters) (*models.PayoffResult, error) {
	schedule, summary, err := ComputeSchedule(p)
	if err != nil {
		return nil, err
	}
	return &models.PayoffResult{Parameters: p, Schedule: schedule, Summary: summary}, nil
}

// Simulate is ComputeSchedule without output rounding
func Simulate(p models.PayoffParameters) ([]models.ScheduleEntry, models.PayoffSummary, error) {
	if err := Validate(p); err != nil {
		return nil, models.PayoffSummary{}, err
	}

	monthlyRate := p.AnnualPercentageRate / 100 / 12
	principalShare := p.RequiredPrincipalPercentage / 100

	balance := p.Principal
	month := 0
	var totalInterest, totalPrincipal, totalPaid float64
	schedule := make([]models.ScheduleEntry, 0, 64)

	for balance > 0 && month < MaxMonths {
		month++
		start := balance

		interest := start * monthlyRate
		required := math.Max(p.MinimumPaymentFloor, interest+start*principalShare)
		payment := required + p.AdditionalMonthlyPayment

		principal := payment - interest
		if due := start + interest; payment >= due || start-principal <= 0 {
			payment = due
			principal = start
			balance = 0
		} else {
			balance = start - principal
		}

		totalInterest += interest
		totalPrincipal += principal
		totalPaid += payment

		schedule = append(schedule, models.ScheduleEntry{
			Month:               month,
			StartingBalance:     start,
			InterestAccrued:     interest,
			PaymentMade:         payment,
			PrincipalApplied:    principal,
			EndingBalance:       balance,
			CumulativePrincipal: totalPrincipal,
			CumulativeInterest:  totalInterest,
		})
	}

	summary := models.PayoffSummary{
		TotalInterestPaid:  totalInterest,
		TotalPrincipalPaid: totalPrincipal,
		TotalPaid:          totalPaid,
		MonthsToPayoff:     month,
		YearsToPayoff:      float64(month) / 12,
		PaidOff:            balance <= 0,
		RemainingBalance:   balance,
	}
	return schedule, summary, nil
}

// Round rounds a money amount half away from zero to cents
func Round(v float64) float64 {
	return decimal.NewFromFloat(v).Round(2).InexactFloat64()
}

func roundEntry(e models.ScheduleEntry) models.ScheduleEntry {
	e.StartingBalance = Round(e.StartingBalance)
	e.InterestAccrued = Round(e.InterestAccrued)
	e.PaymentMade = Round(e.PaymentMade)
	e.PrincipalApplied = Round(e.PrincipalApplied)
	e.EndingBalance = Round(e.EndingBalance)
	e.CumulativePrincipal = Round(e.CumulativePrincipal)
	e.CumulativeInterest = Round(e.CumulativeInterest)
	return e
}

func roundSummary(s models.PayoffSummary) models.PayoffSummary {
	s.TotalInterestPaid = Round(s.TotalInterestPaid)
	s.TotalPrincipalPaid = Round(s.TotalPrincipalPaid)
	s.TotalPaid = Round(s.TotalPaid)
	s.RemainingBalance = Round(s.RemainingBalance)
	return s
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
