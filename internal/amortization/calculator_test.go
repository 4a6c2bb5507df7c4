package amortization

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mfisuite/lending-engine/internal/policy"
	apperrors "github.com/mfisuite/lending-engine/pkg/errors"
)

func testPolicy() policy.CreditPolicy {
	return policy.CreditPolicy{
		MonthlyInterestRate:      decimal.NewFromFloat(0.05),
		InterestMonthsEquivalent: 4,
		MinTermWeeks:             4,
		MaxTermWeeks:             52,
		DelinquencyThreshold:     2,
		FeeSchedule:              policy.DefaultFeeSchedule(),
	}
}

func TestCalculate_StandardLoan(t *testing.T) {
	quote, err := Calculate(decimal.NewFromInt(10000), 17, testPolicy())
	require.NoError(t, err)

	// 10000 * 0.05 * 4 months
	assert.True(t, quote.TotalInterest.Equal(decimal.NewFromInt(2000)),
		"total interest = %s", quote.TotalInterest)
	assert.True(t, quote.InsuranceFee.Equal(decimal.NewFromInt(300)),
		"insurance fee = %s", quote.InsuranceFee)
	assert.True(t, quote.TotalLoanAmount.Equal(decimal.NewFromInt(12300)))
	assert.True(t, quote.WeeklyPayment.Equal(decimal.NewFromFloat(723.53)),
		"weekly payment = %s", quote.WeeklyPayment)
	assert.Len(t, quote.Schedule, 17)
}

func TestCalculate_ScheduleSumsExactly(t *testing.T) {
	cases := []struct {
		name      string
		principal decimal.Decimal
		termWeeks int
	}{
		{"even split", decimal.NewFromInt(10000), 4},
		{"rounding remainder", decimal.NewFromInt(10000), 17},
		{"small principal", decimal.NewFromFloat(1234.56), 7},
		{"max term", decimal.NewFromInt(50000), 52},
		{"awkward cents", decimal.NewFromFloat(9999.99), 13},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			quote, err := Calculate(tc.principal, tc.termWeeks, testPolicy())
			require.NoError(t, err)

			sum := decimal.Zero
			interestSum := decimal.Zero
			insuranceSum := decimal.Zero
			principalSum := decimal.Zero
			prevBalance := quote.TotalLoanAmount
			for _, entry := range quote.Schedule {
				sum = sum.Add(entry.ExpectedPayment)
				interestSum = interestSum.Add(entry.InterestPayment)
				insuranceSum = insuranceSum.Add(entry.InsurancePayment)
				principalSum = principalSum.Add(entry.PrincipalPayment)

				// Per-row additivity
				assert.True(t, entry.ExpectedPayment.Equal(
					entry.PrincipalPayment.Add(entry.InterestPayment).Add(entry.InsurancePayment)))

				// Monotonically non-increasing balance
				assert.True(t, entry.RunningBalance.LessThanOrEqual(prevBalance))
				prevBalance = entry.RunningBalance
			}

			assert.True(t, sum.Equal(quote.TotalLoanAmount),
				"expected payments sum %s != total %s", sum, quote.TotalLoanAmount)
			assert.True(t, interestSum.Equal(quote.TotalInterest))
			assert.True(t, insuranceSum.Equal(quote.InsuranceFee))
			assert.True(t, principalSum.Equal(tc.principal))
			assert.True(t, quote.Schedule[len(quote.Schedule)-1].RunningBalance.IsZero())
		})
	}
}

func TestCalculate_FlatInterestIgnoresTerm(t *testing.T) {
	p := testPolicy()
	short, err := Calculate(decimal.NewFromInt(10000), 17, p)
	require.NoError(t, err)
	long, err := Calculate(decimal.NewFromInt(10000), 52, p)
	require.NoError(t, err)

	// The interest window is fixed, so term length does not change total
	// interest on the same principal.
	assert.True(t, short.TotalInterest.Equal(long.TotalInterest))
}

func TestCalculate_InvalidTerms(t *testing.T) {
	cases := []struct {
		name      string
		principal decimal.Decimal
		termWeeks int
	}{
		{"zero principal", decimal.Zero, 17},
		{"negative principal", decimal.NewFromInt(-100), 17},
		{"term too short", decimal.NewFromInt(10000), 3},
		{"term too long", decimal.NewFromInt(10000), 53},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			quote, err := Calculate(tc.principal, tc.termWeeks, testPolicy())
			assert.Nil(t, quote)
			require.Error(t, err)
			assert.Equal(t, apperrors.ErrCodeInvalidLoanTerms, apperrors.Code(err))
			assert.ErrorIs(t, err, apperrors.ErrInvalidLoanTerms)
		})
	}
}

func TestAnchor_DueDates(t *testing.T) {
	quote, err := Calculate(decimal.NewFromInt(10000), 4, testPolicy())
	require.NoError(t, err)

	disbursed := time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC)
	anchored := Anchor(quote.Schedule, disbursed)

	require.Len(t, anchored, 4)
	assert.Equal(t, disbursed, anchored[0].DueDate)
	assert.Equal(t, disbursed.AddDate(0, 0, 21), anchored[3].DueDate)

	// The original quote stays untouched.
	assert.True(t, quote.Schedule[0].DueDate.IsZero())
}
