package models

import "time"

// DebtKind classifies a line on the intake form
type DebtKind string

const (
	DebtCreditCard DebtKind = "credit_card"
	DebtPersonal   DebtKind = "personal_loan"
	DebtMedical    DebtKind = "medical"
	DebtStoreCard  DebtKind = "store_card"
	DebtOther      DebtKind = "other"
)

// DebtKinds lists the kinds offered on the form, in display order
var DebtKinds = []DebtKind{DebtCreditCard, DebtStoreCard, DebtPersonal, DebtMedical, DebtOther}

// Label is the human-readable name of k
func (k DebtKind) Label() string {
	switch k {
	case DebtCreditCard:
		return "Credit card"
	case DebtPersonal:
		return "Personal loan"
	case DebtMedical:
		return "Medical bill"
	case DebtStoreCard:
		return "Store card"
	default:
		return "Other"
	}
}

// DebtLine is one balance a visitor owes
type DebtLine struct {
	Creditor       string   `json:"creditor"`
	Kind           DebtKind `json:"kind"`
	Balance        float64  `json:"balance"`
	APR            float64  `json:"apr"`
	MinimumPayment float64  `json:"minimum_payment,omitempty"`
}

// Submission is a completed intake form
type Submission struct {
	ID            string     `json:"id"`
	CreatedAt     time.Time  `json:"created_at"`
	FirstName     string     `json:"first_name"`
	LastName      string     `json:"last_name"`
	Email         string     `json:"email"`
	Phone         string     `json:"phone,omitempty"`
	State         string     `json:"state,omitempty"`
	Debts         []DebtLine `json:"debts"`
	MonthlyBudget float64    `json:"monthly_budget,omitempty"`
	Consent       bool       `json:"consent"`
}

// TotalDebt sums every line's balance
func (s *Submission) TotalDebt() float64 {
	var total float64
	for _, d := range s.Debts {
		total += d.Balance
	}
	return total
}

// DebtProjection is the payoff outlook for one debt line at its minimum payment
type DebtProjection struct {
	Debt         DebtLine      `json:"debt"`
	Summary      PayoffSummary `json:"summary"`
	DebtFreeDate time.Time     `json:"debt_free_date,omitempty"`
}

// IntakeStats aggregates submissions for the admin view
type IntakeStats struct {
	Submissions          int     `json:"submissions"`
	DebtLines            int     `json:"debt_lines"`
	TotalDebt            float64 `json:"total_debt"`
	AverageDebt          float64 `json:"average_debt"`
	WeightedAPR          float64 `json:"weighted_apr"`
	TotalMinimumPayments float64 `json:"total_minimum_payments"`
	ProjectedInterest    float64 `json:"projected_interest"`
	NonConvergentLines   int     `json:"non_convergent_lines"`

	// Submissions per month over the last six months, oldest first
	TrendLabels    []string `json:"trend_labels"`
	TrendCounts    []int    `json:"trend_counts"`
	MonthOverMonth float64  `json:"month_over_month"` // percent change of the last month vs the one before
}
