// Package policy holds the credit-policy decision tables consumed by the
// loan lifecycle and collection sheet services. The rules are deliberately
// table-driven so product can change them without touching state-machine
// code.
package policy

import (
	"github.com/shopspring/decimal"

	"github.com/mfisuite/lending-engine/internal/config"
	"github.com/mfisuite/lending-engine/internal/domain"
)

// CreditPolicy bundles the constants the amortization calculator and the
// eligibility predicates evaluate against.
type CreditPolicy struct {
	MonthlyInterestRate      decimal.Decimal
	InterestMonthsEquivalent int
	MinTermWeeks             int
	MaxTermWeeks             int
	DelinquencyThreshold     int
	FeeSchedule              []FeeBracket
}

// FromConfig builds the policy from loaded configuration.
func FromConfig(cfg *config.Config) CreditPolicy {
	return CreditPolicy{
		MonthlyInterestRate:      cfg.GetMonthlyInterestRate(),
		InterestMonthsEquivalent: cfg.Credit.InterestMonthsEquivalent,
		MinTermWeeks:             cfg.Credit.MinTermWeeks,
		MaxTermWeeks:             cfg.Credit.MaxTermWeeks,
		DelinquencyThreshold:     cfg.Credit.DelinquencyThreshold,
		FeeSchedule:              DefaultFeeSchedule(),
	}
}

// openLoanStatuses are statuses that count as an outstanding loan for the
// one-open-loan-per-client rule. Completed, defaulted and cancelled loans do
// not block a new application.
var openLoanStatuses = map[string]bool{
	domain.LoanStatusApplication: true,
	domain.LoanStatusApproved:    true,
	domain.LoanStatusActive:      true,
}

// collectibleStatuses are statuses in which a loan may receive collection
// items. Defaulted loans still collect; the field does not stop working a
// defaulted client's balance.
var collectibleStatuses = map[string]bool{
	domain.LoanStatusActive:    true,
	domain.LoanStatusDefaulted: true,
}

// CanApply reports whether a client with the given existing loan statuses may
// apply for a new loan.
func (p CreditPolicy) CanApply(existingStatuses []string) bool {
	for _, s := range existingStatuses {
		if openLoanStatuses[s] {
			return false
		}
	}
	return true
}

// CanReceiveCollection reports whether a loan in the given status may accept
// a collection item.
func (p CreditPolicy) CanReceiveCollection(status string) bool {
	return collectibleStatuses[status]
}
