// Package amortization turns a principal/term pair into a fixed repayment
// schedule. Everything here is pure: quotes are safe to recompute for
// preview, and nothing is committed to a loan until an explicit apply.
package amortization

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/mfisuite/lending-engine/internal/domain"
	"github.com/mfisuite/lending-engine/internal/policy"
	apperrors "github.com/mfisuite/lending-engine/pkg/errors"
	"github.com/mfisuite/lending-engine/pkg/utils"
)

// Calculate produces the frozen totals and per-week schedule for the given
// terms. Interest is a flat charge over the policy's fixed months-equivalent
// window regardless of term length; this is the product's pricing rule, not
// declining-balance interest.
func Calculate(principal decimal.Decimal, termWeeks int, p policy.CreditPolicy) (*domain.LoanQuote, error) {
	if principal.LessThanOrEqual(decimal.Zero) {
		return nil, apperrors.WrapInvalidLoanTerms(
			fmt.Sprintf("principal must be positive, got %s", principal))
	}
	if termWeeks < p.MinTermWeeks || termWeeks > p.MaxTermWeeks {
		return nil, apperrors.WrapInvalidLoanTerms(
			fmt.Sprintf("term must be between %d and %d weeks, got %d",
				p.MinTermWeeks, p.MaxTermWeeks, termWeeks))
	}

	totalInterest := principal.
		Mul(p.MonthlyInterestRate).
		Mul(decimal.NewFromInt(int64(p.InterestMonthsEquivalent))).
		Round(2)
	insuranceFee := p.InsuranceFee(principal)
	totalLoanAmount := principal.Add(totalInterest).Add(insuranceFee)

	schedule := BuildSchedule(totalLoanAmount, totalInterest, insuranceFee, termWeeks)

	return &domain.LoanQuote{
		Principal:       principal,
		TermWeeks:       termWeeks,
		TotalInterest:   totalInterest,
		InsuranceFee:    insuranceFee,
		TotalLoanAmount: totalLoanAmount,
		WeeklyPayment:   schedule[0].ExpectedPayment,
		Schedule:        schedule,
	}, nil
}

// BuildSchedule divides frozen loan totals evenly across the term. The final
// week absorbs every rounding remainder, so each column and the expected
// payments sum exactly to their totals. Loans recompute their schedule on
// demand through this from the values frozen at application time; policy
// changes never touch an existing loan.
func BuildSchedule(totalLoanAmount, totalInterest, insuranceFee decimal.Decimal, termWeeks int) []domain.ScheduleEntry {
	weeklyPayment, lastPayment := utils.SplitEvenly(totalLoanAmount, termWeeks)
	weeklyInterest, lastInterest := utils.SplitEvenly(totalInterest, termWeeks)
	weeklyInsurance, lastInsurance := utils.SplitEvenly(insuranceFee, termWeeks)

	schedule := make([]domain.ScheduleEntry, 0, termWeeks)
	balance := totalLoanAmount
	for week := 1; week <= termWeeks; week++ {
		expected, interest, insurance := weeklyPayment, weeklyInterest, weeklyInsurance
		if week == termWeeks {
			expected, interest, insurance = lastPayment, lastInterest, lastInsurance
			// The last payment absorbed the rounding remainder, so the
			// balance lands on exactly zero.
		}

		balance = balance.Sub(expected)

		schedule = append(schedule, domain.ScheduleEntry{
			Week:             week,
			ExpectedPayment:  expected,
			InterestPayment:  interest,
			InsurancePayment: insurance,
			PrincipalPayment: expected.Sub(interest).Sub(insurance),
			RunningBalance:   balance,
		})
	}

	return schedule
}

// Anchor stamps due dates onto a computed schedule once the disbursement
// date is known. Week 1 is due on the disbursement date, each later week 7
// days after the previous.
func Anchor(schedule []domain.ScheduleEntry, disbursedAt time.Time) []domain.ScheduleEntry {
	anchored := make([]domain.ScheduleEntry, len(schedule))
	for i, entry := range schedule {
		entry.DueDate = utils.WeeklyDueDate(disbursedAt, entry.Week)
		anchored[i] = entry
	}
	return anchored
}
