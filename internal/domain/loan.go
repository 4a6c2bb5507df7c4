package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

const (
	LoanStatusApplication = "application"
	LoanStatusApproved    = "approved"
	LoanStatusActive      = "active"
	LoanStatusCompleted   = "completed"
	LoanStatusDefaulted   = "defaulted"
	LoanStatusCancelled   = "cancelled"
)

// Loan transition names, used in audit events and error messages.
const (
	LoanOpApprove       = "approve"
	LoanOpDisburse      = "disburse"
	LoanOpCancel        = "cancel"
	LoanOpRestore       = "restore"
	LoanOpComplete      = "complete"
	LoanOpMarkDefaulted = "mark defaulted"
)

// loanTransitions maps each operation to its required source status and the
// status it produces. Legality checks go through CanLoanTransition so the
// table stays the single source of truth.
var loanTransitions = map[string]struct {
	From string
	To   string
}{
	LoanOpApprove:       {From: LoanStatusApplication, To: LoanStatusApproved},
	LoanOpDisburse:      {From: LoanStatusApproved, To: LoanStatusActive},
	LoanOpCancel:        {From: LoanStatusApplication, To: LoanStatusCancelled},
	LoanOpRestore:       {From: LoanStatusCancelled, To: LoanStatusApplication},
	LoanOpComplete:      {From: LoanStatusActive, To: LoanStatusCompleted},
	LoanOpMarkDefaulted: {From: LoanStatusActive, To: LoanStatusDefaulted},
}

// CanLoanTransition reports whether op may run from the given status, and the
// resulting status when it may.
func CanLoanTransition(from, op string) (string, bool) {
	t, ok := loanTransitions[op]
	if !ok || t.From != from {
		return "", false
	}
	return t.To, true
}

// Loan represents a loan entity. The derived terms (TotalInterest,
// InsuranceFee, TotalLoanAmount, WeeklyPayment) are computed once at
// application time and frozen; they are never recomputed afterwards even if
// policy constants change.
type Loan struct {
	ID                  uuid.UUID       `json:"id" db:"id"`
	ClientID            uuid.UUID       `json:"client_id" db:"client_id"`
	Principal           decimal.Decimal `json:"principal" db:"principal"`
	TermWeeks           int             `json:"term_weeks" db:"term_weeks"`
	MonthlyInterestRate decimal.Decimal `json:"monthly_interest_rate" db:"monthly_interest_rate"`
	TotalInterest       decimal.Decimal `json:"total_interest" db:"total_interest"`
	InsuranceFee        decimal.Decimal `json:"insurance_fee" db:"insurance_fee"`
	TotalLoanAmount     decimal.Decimal `json:"total_loan_amount" db:"total_loan_amount"`
	WeeklyPayment       decimal.Decimal `json:"weekly_payment" db:"weekly_payment"`
	OutstandingBalance  decimal.Decimal `json:"outstanding_balance" db:"outstanding_balance"`
	Status              string          `json:"status" db:"status"`
	ApplicationDate     time.Time       `json:"application_date" db:"application_date"`
	ApprovalDate        *time.Time      `json:"approval_date,omitempty" db:"approval_date"`
	DisbursementDate    *time.Time      `json:"disbursement_date,omitempty" db:"disbursement_date"`
	CompletionDate      *time.Time      `json:"completion_date,omitempty" db:"completion_date"`
	ApprovedBy          *uuid.UUID      `json:"approved_by,omitempty" db:"approved_by"`
	CreatedBy           uuid.UUID       `json:"created_by" db:"created_by"`
	CreatedAt           time.Time       `json:"created_at" db:"created_at"`
	UpdatedAt           time.Time       `json:"updated_at" db:"updated_at"`
}

// DTOs for requests and responses

type CalculateLoanRequest struct {
	Principal decimal.Decimal `json:"principal" validate:"required"`
	TermWeeks int             `json:"term_weeks" validate:"required,gt=0"`
}

type ApplyLoanRequest struct {
	ClientID  uuid.UUID       `json:"client_id" validate:"required"`
	Principal decimal.Decimal `json:"principal" validate:"required"`
	TermWeeks int             `json:"term_weeks" validate:"required,gt=0"`
}

type LoanResponse struct {
	Loan      *Loan `json:"loan"`
	IsOverdue bool  `json:"is_overdue"`
}

type OutstandingResponse struct {
	LoanID      uuid.UUID       `json:"loan_id"`
	Outstanding decimal.Decimal `json:"outstanding"`
}

type RejectSheetRequest struct {
	Reason string `json:"reason" validate:"required"`
}
