package models

// PayoffParameters describes one credit card balance and the rule used to
// compute its minimum payment. Percentages are expressed as 0-100.
type PayoffParameters struct {
	Principal                   float64 `json:"principal"`
	AnnualPercentageRate        float64 `json:"annual_percentage_rate"`
	MinimumPaymentFloor         float64 `json:"minimum_payment_floor"`
	RequiredPrincipalPercentage float64 `json:"required_principal_percentage"`
	AdditionalMonthlyPayment    float64 `json:"additional_monthly_payment,omitempty"`
}

// WithAdditional returns a copy of p with a different extra monthly payment
func (p PayoffParameters) WithAdditional(extra float64) PayoffParameters {
	p.AdditionalMonthlyPayment = extra
	return p
}

// ScheduleEntry is one month of a payoff schedule. Money fields are rounded
// to cents for presentation only.
type ScheduleEntry struct {
	Month               int     `json:"month"`
	StartingBalance     float64 `json:"starting_balance"`
	InterestAccrued     float64 `json:"interest_accrued"`
	PaymentMade         float64 `json:"payment_made"`
	PrincipalApplied    float64 `json:"principal_applied"`
	EndingBalance       float64 `json:"ending_balance"`
	CumulativePrincipal float64 `json:"cumulative_principal"`
	CumulativeInterest  float64 `json:"cumulative_interest"`
}

// PayoffSummary aggregates a schedule
type PayoffSummary struct {
	TotalInterestPaid  float64 `json:"total_interest_paid"`
	TotalPrincipalPaid float64 `json:"total_principal_paid"`
	TotalPaid          float64 `json:"total_paid"`
	MonthsToPayoff     int     `json:"months_to_payoff"`
	YearsToPayoff      float64 `json:"years_to_payoff"`
	PaidOff            bool    `json:"paid_off"`          // false when the month cap was hit first
	RemainingBalance   float64 `json:"remaining_balance"` // non-zero only when PaidOff is false
}

// PayoffResult is a schedule together with its summary
type PayoffResult struct {
	Parameters PayoffParameters `json:"parameters"`
	Schedule   []ScheduleEntry  `json:"schedule"`
	Summary    PayoffSummary    `json:"summary"`
}

// ScenarioComparison contrasts the no-extra baseline with an extra-payment run
type ScenarioComparison struct {
	ExtraPayment           float64       `json:"extra_payment"`
	Baseline               PayoffSummary `json:"baseline"`
	Scenario               PayoffSummary `json:"scenario"`
	BaselineMonthsToPayoff int           `json:"baseline_months_to_payoff"`
	NewMonthsToPayoff      int           `json:"new_months_to_payoff"`
	MonthsSaved            int           `json:"months_saved"`
	InterestSaved          *float64      `json:"interest_saved"` // nil when the baseline never pays off
}

// InterestSavedKnown reports whether InterestSaved carries a meaningful number
func (c *ScenarioComparison) InterestSavedKnown() bool {
	return c != nil && c.InterestSaved != nil
}
