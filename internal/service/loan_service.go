package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/mfisuite/lending-engine/internal/amortization"
	"github.com/mfisuite/lending-engine/internal/audit"
	"github.com/mfisuite/lending-engine/internal/domain"
	"github.com/mfisuite/lending-engine/internal/policy"
	"github.com/mfisuite/lending-engine/internal/repository"
	apperrors "github.com/mfisuite/lending-engine/pkg/errors"
	"github.com/mfisuite/lending-engine/pkg/utils"
)

const scheduleCacheTTL = time.Hour

// LoanService owns the loan state machine. Every transition re-reads the
// loan under a row lock inside a transaction, checks the transition table
// against the freshly-read status, and commits status and side effects
// together; a call from the wrong source state always fails and never
// mutates anything.
type LoanService struct {
	loanRepo    repository.LoanRepository
	paymentRepo repository.PaymentRepository
	tx          repository.TxManager
	redis       *redis.Client
	policy      policy.CreditPolicy
	audit       audit.Recorder
	logger      *zap.Logger
}

func NewLoanService(
	loanRepo repository.LoanRepository,
	paymentRepo repository.PaymentRepository,
	tx repository.TxManager,
	redisClient *redis.Client,
	creditPolicy policy.CreditPolicy,
	recorder audit.Recorder,
	logger *zap.Logger,
) *LoanService {
	return &LoanService{
		loanRepo:    loanRepo,
		paymentRepo: paymentRepo,
		tx:          tx,
		redis:       redisClient,
		policy:      creditPolicy,
		audit:       recorder,
		logger:      logger,
	}
}

// Calculate previews the repayment schedule for the given terms without
// persisting anything.
func (s *LoanService) Calculate(ctx context.Context, principal decimal.Decimal, termWeeks int) (*domain.LoanQuote, error) {
	return amortization.Calculate(principal, termWeeks, s.policy)
}

// Apply runs the eligibility check and the calculator, then persists a new
// loan in application status with its derived terms frozen.
func (s *LoanService) Apply(ctx context.Context, req *domain.ApplyLoanRequest, createdBy uuid.UUID) (*domain.Loan, error) {
	var loan *domain.Loan

	err := s.tx.WithinTx(ctx, func(ctx context.Context) error {
		statuses, err := s.loanRepo.ListStatusesByClient(ctx, req.ClientID)
		if err != nil {
			return apperrors.WrapDatabaseError(err)
		}
		if !s.policy.CanApply(statuses) {
			return apperrors.WrapIneligibleClient(req.ClientID.String())
		}

		quote, err := amortization.Calculate(req.Principal, req.TermWeeks, s.policy)
		if err != nil {
			return err
		}

		now := time.Now()
		loan = &domain.Loan{
			ID:                  uuid.New(),
			ClientID:            req.ClientID,
			Principal:           req.Principal,
			TermWeeks:           req.TermWeeks,
			MonthlyInterestRate: s.policy.MonthlyInterestRate,
			TotalInterest:       quote.TotalInterest,
			InsuranceFee:        quote.InsuranceFee,
			TotalLoanAmount:     quote.TotalLoanAmount,
			WeeklyPayment:       quote.WeeklyPayment,
			OutstandingBalance:  decimal.Zero,
			Status:              domain.LoanStatusApplication,
			ApplicationDate:     now,
			CreatedBy:           createdBy,
			CreatedAt:           now,
			UpdatedAt:           now,
		}

		if err := s.loanRepo.Create(ctx, loan); err != nil {
			return apperrors.WrapDatabaseError(err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.audit.Record(ctx, audit.NewEvent(domain.EntityLoan, loan.ID.String(), "", domain.LoanStatusApplication, createdBy.String()))
	return loan, nil
}

// Approve moves an application to approved. No funds move.
func (s *LoanService) Approve(ctx context.Context, loanID, approverID uuid.UUID) (*domain.Loan, error) {
	return s.transition(ctx, loanID, approverID, domain.LoanOpApprove, func(loan *domain.Loan) {
		now := time.Now()
		loan.ApprovalDate = &now
		loan.ApprovedBy = &approverID
	})
}

// Disburse releases funds: the loan becomes active, the schedule's due dates
// anchor on the disbursement date, and the outstanding balance is seeded
// with the frozen total.
func (s *LoanService) Disburse(ctx context.Context, loanID, actorID uuid.UUID) (*domain.Loan, error) {
	loan, err := s.transition(ctx, loanID, actorID, domain.LoanOpDisburse, func(loan *domain.Loan) {
		now := time.Now()
		loan.DisbursementDate = &now
		loan.OutstandingBalance = loan.TotalLoanAmount
	})
	if err != nil {
		return nil, err
	}

	s.invalidateScheduleCache(ctx, loanID)
	return loan, nil
}

// Cancel withdraws an application. Cancelled loans are never deleted and can
// be restored.
func (s *LoanService) Cancel(ctx context.Context, loanID, actorID uuid.UUID) (*domain.Loan, error) {
	return s.transition(ctx, loanID, actorID, domain.LoanOpCancel, func(*domain.Loan) {})
}

// Restore returns a cancelled loan to application. Restoring from any other
// status is disallowed.
func (s *LoanService) Restore(ctx context.Context, loanID, actorID uuid.UUID) (*domain.Loan, error) {
	return s.transition(ctx, loanID, actorID, domain.LoanOpRestore, func(*domain.Loan) {})
}

// MarkDefaulted moves an active loan to defaulted. Only the scheduler calls
// this, after re-evaluating the same derived-overdue query the API exposes.
func (s *LoanService) MarkDefaulted(ctx context.Context, loanID, actorID uuid.UUID) (*domain.Loan, error) {
	return s.transition(ctx, loanID, actorID, domain.LoanOpMarkDefaulted, func(*domain.Loan) {})
}

func (s *LoanService) transition(ctx context.Context, loanID, actorID uuid.UUID, op string, mutate func(*domain.Loan)) (*domain.Loan, error) {
	var loan *domain.Loan
	var from string

	err := s.tx.WithinTx(ctx, func(ctx context.Context) error {
		var err error
		loan, err = s.loanRepo.GetByIDForUpdate(ctx, loanID)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return apperrors.WrapLoanNotFound(loanID.String())
			}
			return apperrors.WrapDatabaseError(err)
		}

		from = loan.Status
		to, ok := domain.CanLoanTransition(loan.Status, op)
		if !ok {
			return apperrors.WrapInvalidTransition(domain.EntityLoan, loan.Status, op)
		}

		loan.Status = to
		mutate(loan)

		if err := s.loanRepo.Update(ctx, loan); err != nil {
			return apperrors.WrapDatabaseError(err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.audit.Record(ctx, audit.NewEvent(domain.EntityLoan, loan.ID.String(), from, loan.Status, actorID.String()))
	return loan, nil
}

// RecordPayment reduces the loan's running balance and completes the loan
// when the balance reaches zero. Partial payments never change status. It is
// invoked by the posting pipeline inside the pipeline's transaction, never
// by a handler; the returned event is non-nil when the loan completed so the
// caller can emit it after its transaction commits.
func (s *LoanService) RecordPayment(ctx context.Context, loanID uuid.UUID, amount decimal.Decimal, actorID uuid.UUID) (*domain.Loan, *domain.TransitionEvent, error) {
	loan, err := s.loanRepo.GetByIDForUpdate(ctx, loanID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil, apperrors.WrapLoanNotFound(loanID.String())
		}
		return nil, nil, apperrors.WrapDatabaseError(err)
	}

	if !s.policy.CanReceiveCollection(loan.Status) {
		return nil, nil, apperrors.WrapLoanNotActive(loanID.String(), loan.Status)
	}

	loan.OutstandingBalance = loan.OutstandingBalance.Sub(amount)

	var completedEvent *domain.TransitionEvent
	if loan.OutstandingBalance.LessThanOrEqual(decimal.Zero) {
		if to, ok := domain.CanLoanTransition(loan.Status, domain.LoanOpComplete); ok {
			from := loan.Status
			now := time.Now()
			loan.Status = to
			loan.CompletionDate = &now
			event := audit.NewEvent(domain.EntityLoan, loan.ID.String(), from, to, actorID.String())
			completedEvent = &event
		}
	}

	if err := s.loanRepo.Update(ctx, loan); err != nil {
		return nil, nil, apperrors.WrapDatabaseError(err)
	}

	return loan, completedEvent, nil
}

// GetLoan returns a loan along with its derived overdue flag.
func (s *LoanService) GetLoan(ctx context.Context, loanID uuid.UUID) (*domain.LoanResponse, error) {
	loan, err := s.loanRepo.GetByID(ctx, loanID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperrors.WrapLoanNotFound(loanID.String())
		}
		return nil, apperrors.WrapDatabaseError(err)
	}

	overdue, err := s.isOverdue(ctx, loan, time.Now())
	if err != nil {
		return nil, err
	}

	return &domain.LoanResponse{Loan: loan, IsOverdue: overdue}, nil
}

// GetOutstanding returns the loan's running balance.
func (s *LoanService) GetOutstanding(ctx context.Context, loanID uuid.UUID) (*domain.OutstandingResponse, error) {
	loan, err := s.loanRepo.GetByID(ctx, loanID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperrors.WrapLoanNotFound(loanID.String())
		}
		return nil, apperrors.WrapDatabaseError(err)
	}

	return &domain.OutstandingResponse{LoanID: loan.ID, Outstanding: loan.OutstandingBalance}, nil
}

// GetSchedule recomputes the repayment schedule from the loan's frozen terms.
// Due dates are present only once the loan has been disbursed. The result is
// cached read-through in redis; cache errors fall back to recomputing.
func (s *LoanService) GetSchedule(ctx context.Context, loanID uuid.UUID) (*domain.ScheduleResponse, error) {
	cacheKey := scheduleCacheKey(loanID)
	if s.redis != nil {
		if cached, err := s.redis.Get(ctx, cacheKey).Result(); err == nil {
			var resp domain.ScheduleResponse
			if err := json.Unmarshal([]byte(cached), &resp); err == nil {
				return &resp, nil
			}
		}
	}

	loan, err := s.loanRepo.GetByID(ctx, loanID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperrors.WrapLoanNotFound(loanID.String())
		}
		return nil, apperrors.WrapDatabaseError(err)
	}

	resp := &domain.ScheduleResponse{LoanID: loan.ID, Schedule: s.scheduleFor(loan)}

	if s.redis != nil {
		if payload, err := json.Marshal(resp); err == nil {
			if err := s.redis.Set(ctx, cacheKey, payload, scheduleCacheTTL).Err(); err != nil {
				s.logger.Warn("schedule cache write failed", zap.String("loan_id", loanID.String()), zap.Error(err))
			}
		}
	}

	return resp, nil
}

func (s *LoanService) scheduleFor(loan *domain.Loan) []domain.ScheduleEntry {
	schedule := amortization.BuildSchedule(loan.TotalLoanAmount, loan.TotalInterest, loan.InsuranceFee, loan.TermWeeks)
	if loan.DisbursementDate != nil {
		schedule = amortization.Anchor(schedule, utils.TruncateToDay(*loan.DisbursementDate))
	}
	return schedule
}

// isOverdue derives the overdue flag: an active loan is overdue when the
// earliest schedule entry not fully covered by payments has a due date in
// the past. Nothing is persisted; the scheduler re-evaluates the same
// question when deciding defaults.
func (s *LoanService) isOverdue(ctx context.Context, loan *domain.Loan, now time.Time) (bool, error) {
	missed, err := s.missedWeeks(ctx, loan, now)
	if err != nil {
		return false, err
	}
	return missed > 0, nil
}

// MissedWeeks counts the consecutive past-due schedule entries not yet
// covered by cumulative payments. Payments apply oldest-entry first, so the
// uncovered past-due entries are always a contiguous run.
func (s *LoanService) MissedWeeks(ctx context.Context, loanID uuid.UUID, now time.Time) (int, error) {
	loan, err := s.loanRepo.GetByID(ctx, loanID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, apperrors.WrapLoanNotFound(loanID.String())
		}
		return 0, apperrors.WrapDatabaseError(err)
	}
	return s.missedWeeks(ctx, loan, now)
}

func (s *LoanService) missedWeeks(ctx context.Context, loan *domain.Loan, now time.Time) (int, error) {
	if loan.Status != domain.LoanStatusActive || loan.DisbursementDate == nil {
		return 0, nil
	}

	totalPaid, err := s.paymentRepo.GetTotalPaid(ctx, loan.ID)
	if err != nil {
		return 0, apperrors.WrapDatabaseError(err)
	}

	missed := 0
	cumulative := decimal.Zero
	for _, entry := range s.scheduleFor(loan) {
		cumulative = cumulative.Add(entry.ExpectedPayment)
		if !utils.IsDateOverdue(entry.DueDate, now) {
			break
		}
		if cumulative.GreaterThan(totalPaid) {
			missed++
		}
	}

	return missed, nil
}

// ListActiveLoans returns all active loans, for the scheduler's default
// sweep.
func (s *LoanService) ListActiveLoans(ctx context.Context) ([]*domain.Loan, error) {
	loans, err := s.loanRepo.ListByStatus(ctx, domain.LoanStatusActive)
	if err != nil {
		return nil, apperrors.WrapDatabaseError(err)
	}
	return loans, nil
}

// DelinquencyThreshold exposes the configured consecutive-missed-weeks bound.
func (s *LoanService) DelinquencyThreshold() int {
	return s.policy.DelinquencyThreshold
}

func (s *LoanService) invalidateScheduleCache(ctx context.Context, loanID uuid.UUID) {
	if s.redis == nil {
		return
	}
	if err := s.redis.Del(ctx, scheduleCacheKey(loanID)).Err(); err != nil {
		s.logger.Warn("schedule cache invalidation failed", zap.String("loan_id", loanID.String()), zap.Error(err))
	}
}

func scheduleCacheKey(loanID uuid.UUID) string {
	return fmt.Sprintf("loan:%s:schedule", loanID)
}
