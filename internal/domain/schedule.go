package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// LoanQuote is the output of the amortization calculator: the frozen totals
// plus the per-week breakdown. It is a pure computation result and is never
// persisted as mutable state; committing it to a Loan happens only through an
// explicit apply.
type LoanQuote struct {
	Principal       decimal.Decimal `json:"principal"`
	TermWeeks       int             `json:"term_weeks"`
	TotalInterest   decimal.Decimal `json:"total_interest"`
	InsuranceFee    decimal.Decimal `json:"insurance_fee"`
	TotalLoanAmount decimal.Decimal `json:"total_loan_amount"`
	WeeklyPayment   decimal.Decimal `json:"weekly_payment"`
	Schedule        []ScheduleEntry `json:"schedule"`
}

// ScheduleEntry is one week of the repayment schedule, recomputed on demand
// from the loan's frozen terms. DueDate is zero until the loan is disbursed.
type ScheduleEntry struct {
	Week             int             `json:"week"`
	DueDate          time.Time       `json:"due_date,omitempty"`
	ExpectedPayment  decimal.Decimal `json:"expected_payment"`
	PrincipalPayment decimal.Decimal `json:"principal_payment"`
	InterestPayment  decimal.Decimal `json:"interest_payment"`
	InsurancePayment decimal.Decimal `json:"insurance_payment"`
	RunningBalance   decimal.Decimal `json:"running_balance"`
}

type ScheduleResponse struct {
	LoanID   uuid.UUID       `json:"loan_id"`
	Schedule []ScheduleEntry `json:"schedule"`
}
