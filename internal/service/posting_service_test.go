package service

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/mfisuite/lending-engine/internal/domain"
	"github.com/mfisuite/lending-engine/internal/repository"
	apperrors "github.com/mfisuite/lending-engine/pkg/errors"
	"github.com/mfisuite/lending-engine/tests/mocks"
)

type postingFixture struct {
	sheetRepo   *mocks.MockSheetRepository
	loanRepo    *mocks.MockLoanRepository
	paymentRepo *mocks.MockPaymentRepository
	recorder    *mocks.MockRecorder
	svc         *PostingService
}

func newPostingFixture() *postingFixture {
	f := &postingFixture{
		sheetRepo:   &mocks.MockSheetRepository{},
		loanRepo:    &mocks.MockLoanRepository{},
		paymentRepo: &mocks.MockPaymentRepository{},
		recorder:    &mocks.MockRecorder{},
	}
	loans := NewLoanService(f.loanRepo, f.paymentRepo, mocks.PassthroughTxManager{}, nil, testCreditPolicy(), f.recorder, zap.NewNop())
	f.svc = NewPostingService(f.sheetRepo, f.paymentRepo, loans, mocks.PassthroughTxManager{}, f.recorder, zap.NewNop())
	return f
}

func approvedSheet(officerID uuid.UUID) *domain.CollectionSheet {
	return &domain.CollectionSheet{
		ID:          uuid.New(),
		OfficerID:   officerID,
		SheetDate:   time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC),
		Status:      domain.SheetStatusApproved,
		TotalAmount: decimal.NewFromInt(800),
	}
}

func TestPost_TwoItemsCreateTwoPayments(t *testing.T) {
	f := newPostingFixture()
	actorID := uuid.New()
	sheet := approvedSheet(uuid.New())
	loanA, loanB := uuid.New(), uuid.New()
	itemA := &domain.CollectionItem{ID: uuid.New(), SheetID: sheet.ID, LoanID: loanA, Amount: decimal.NewFromInt(500), Status: domain.ItemStatusPending}
	itemB := &domain.CollectionItem{ID: uuid.New(), SheetID: sheet.ID, LoanID: loanB, Amount: decimal.NewFromInt(300), Status: domain.ItemStatusPending}

	f.sheetRepo.On("GetByIDForUpdate", mock.Anything, sheet.ID).Return(sheet, nil)
	f.sheetRepo.On("ListItems", mock.Anything, sheet.ID).Return([]*domain.CollectionItem{itemA, itemB}, nil)
	f.paymentRepo.On("GetBySourceItemID", mock.Anything, itemA.ID).Return(nil, sql.ErrNoRows)
	f.paymentRepo.On("GetBySourceItemID", mock.Anything, itemB.ID).Return(nil, sql.ErrNoRows)
	f.paymentRepo.On("Create", mock.Anything, mock.MatchedBy(func(p *domain.Payment) bool {
		return p.SourceCollectionItemID != nil && *p.SourceCollectionItemID == itemA.ID && p.Amount.Equal(decimal.NewFromInt(500))
	})).Return(nil)
	f.paymentRepo.On("Create", mock.Anything, mock.MatchedBy(func(p *domain.Payment) bool {
		return p.SourceCollectionItemID != nil && *p.SourceCollectionItemID == itemB.ID && p.Amount.Equal(decimal.NewFromInt(300))
	})).Return(nil)
	f.loanRepo.On("GetByIDForUpdate", mock.Anything, loanA).
		Return(&domain.Loan{ID: loanA, Status: domain.LoanStatusActive, OutstandingBalance: decimal.NewFromInt(5000)}, nil)
	f.loanRepo.On("GetByIDForUpdate", mock.Anything, loanB).
		Return(&domain.Loan{ID: loanB, Status: domain.LoanStatusActive, OutstandingBalance: decimal.NewFromInt(3000)}, nil)
	f.loanRepo.On("Update", mock.Anything, mock.Anything).Return(nil)
	f.sheetRepo.On("UpdateItemStatus", mock.Anything, itemA.ID, domain.ItemStatusPosted).Return(nil)
	f.sheetRepo.On("UpdateItemStatus", mock.Anything, itemB.ID, domain.ItemStatusPosted).Return(nil)
	f.sheetRepo.On("Update", mock.Anything, mock.MatchedBy(func(s *domain.CollectionSheet) bool {
		return s.Status == domain.SheetStatusPosted
	})).Return(nil)

	resp, err := f.svc.Post(context.Background(), sheet.ID, actorID)
	require.NoError(t, err)
	assert.Len(t, resp.Payments, 2)
	assert.Zero(t, resp.Skipped)

	// Posting emits the sheet transition after commit
	require.NotEmpty(t, f.recorder.Events)
	last := f.recorder.Events[len(f.recorder.Events)-1]
	assert.Equal(t, domain.EntitySheet, last.Entity)
	assert.Equal(t, domain.SheetStatusPosted, last.ToState)

	f.sheetRepo.AssertExpectations(t)
	f.paymentRepo.AssertExpectations(t)
}

func TestPost_RetrySkipsAlreadyPaidItems(t *testing.T) {
	f := newPostingFixture()
	sheet := approvedSheet(uuid.New())
	loanB := uuid.New()
	itemA := &domain.CollectionItem{ID: uuid.New(), SheetID: sheet.ID, LoanID: uuid.New(), Amount: decimal.NewFromInt(500), Status: domain.ItemStatusPosted}
	itemB := &domain.CollectionItem{ID: uuid.New(), SheetID: sheet.ID, LoanID: loanB, Amount: decimal.NewFromInt(300), Status: domain.ItemStatusPending}

	f.sheetRepo.On("GetByIDForUpdate", mock.Anything, sheet.ID).Return(sheet, nil)
	f.sheetRepo.On("ListItems", mock.Anything, sheet.ID).Return([]*domain.CollectionItem{itemA, itemB}, nil)
	// Item A already produced a payment on a previous run
	f.paymentRepo.On("GetBySourceItemID", mock.Anything, itemA.ID).
		Return(&domain.Payment{ID: uuid.New(), SourceCollectionItemID: &itemA.ID}, nil)
	f.paymentRepo.On("GetBySourceItemID", mock.Anything, itemB.ID).Return(nil, sql.ErrNoRows)
	f.paymentRepo.On("Create", mock.Anything, mock.MatchedBy(func(p *domain.Payment) bool {
		return p.SourceCollectionItemID != nil && *p.SourceCollectionItemID == itemB.ID
	})).Return(nil)
	f.loanRepo.On("GetByIDForUpdate", mock.Anything, loanB).
		Return(&domain.Loan{ID: loanB, Status: domain.LoanStatusActive, OutstandingBalance: decimal.NewFromInt(3000)}, nil)
	f.loanRepo.On("Update", mock.Anything, mock.Anything).Return(nil)
	f.sheetRepo.On("UpdateItemStatus", mock.Anything, itemB.ID, domain.ItemStatusPosted).Return(nil)
	f.sheetRepo.On("Update", mock.Anything, mock.Anything).Return(nil)

	resp, err := f.svc.Post(context.Background(), sheet.ID, uuid.New())
	require.NoError(t, err)
	assert.Len(t, resp.Payments, 1)
	assert.Equal(t, 1, resp.Skipped)

	// Exactly one new payment; the paid item was never re-created
	f.paymentRepo.AssertNumberOfCalls(t, "Create", 1)
}

func TestPost_RacingDuplicatePaymentCountsAsSkipped(t *testing.T) {
	f := newPostingFixture()
	sheet := approvedSheet(uuid.New())
	item := &domain.CollectionItem{ID: uuid.New(), SheetID: sheet.ID, LoanID: uuid.New(), Amount: decimal.NewFromInt(300), Status: domain.ItemStatusPending}

	f.sheetRepo.On("GetByIDForUpdate", mock.Anything, sheet.ID).Return(sheet, nil)
	f.sheetRepo.On("ListItems", mock.Anything, sheet.ID).Return([]*domain.CollectionItem{item}, nil)
	// The existence check misses, but a racing worker lands its payment
	// first; the unique index rejects ours and the item counts as skipped.
	f.paymentRepo.On("GetBySourceItemID", mock.Anything, item.ID).Return(nil, sql.ErrNoRows)
	f.paymentRepo.On("Create", mock.Anything, mock.Anything).
		Return(&pq.Error{Code: "23505", Constraint: repository.ConstraintOnePaymentPerItem})
	f.sheetRepo.On("Update", mock.Anything, mock.MatchedBy(func(s *domain.CollectionSheet) bool {
		return s.Status == domain.SheetStatusPosted
	})).Return(nil)

	resp, err := f.svc.Post(context.Background(), sheet.ID, uuid.New())
	require.NoError(t, err)
	assert.Empty(t, resp.Payments)
	assert.Equal(t, 1, resp.Skipped)

	// The loan's balance was already moved by whoever created the payment.
	f.loanRepo.AssertNotCalled(t, "GetByIDForUpdate", mock.Anything, mock.Anything)
	f.sheetRepo.AssertExpectations(t)
}

func TestPost_AbortsWholeBatchWhenLoanNotCollectible(t *testing.T) {
	f := newPostingFixture()
	sheet := approvedSheet(uuid.New())
	loanA, loanB := uuid.New(), uuid.New()
	itemA := &domain.CollectionItem{ID: uuid.New(), SheetID: sheet.ID, LoanID: loanA, Amount: decimal.NewFromInt(500), Status: domain.ItemStatusPending}
	itemB := &domain.CollectionItem{ID: uuid.New(), SheetID: sheet.ID, LoanID: loanB, Amount: decimal.NewFromInt(300), Status: domain.ItemStatusPending}

	f.sheetRepo.On("GetByIDForUpdate", mock.Anything, sheet.ID).Return(sheet, nil)
	f.sheetRepo.On("ListItems", mock.Anything, sheet.ID).Return([]*domain.CollectionItem{itemA, itemB}, nil)
	f.paymentRepo.On("GetBySourceItemID", mock.Anything, mock.Anything).Return(nil, sql.ErrNoRows)
	f.paymentRepo.On("Create", mock.Anything, mock.Anything).Return(nil)
	f.loanRepo.On("GetByIDForUpdate", mock.Anything, loanA).
		Return(&domain.Loan{ID: loanA, Status: domain.LoanStatusActive, OutstandingBalance: decimal.NewFromInt(5000)}, nil)
	f.loanRepo.On("Update", mock.Anything, mock.Anything).Return(nil)
	f.sheetRepo.On("UpdateItemStatus", mock.Anything, itemA.ID, domain.ItemStatusPosted).Return(nil)
	// Loan B was settled out from under the sheet
	f.loanRepo.On("GetByIDForUpdate", mock.Anything, loanB).
		Return(&domain.Loan{ID: loanB, Status: domain.LoanStatusCompleted}, nil)

	resp, err := f.svc.Post(context.Background(), sheet.ID, uuid.New())
	require.Error(t, err)
	assert.Nil(t, resp)
	assert.Equal(t, apperrors.ErrCodePostingConflict, apperrors.Code(err))
	assert.Contains(t, err.Error(), itemB.ID.String())
	assert.Contains(t, err.Error(), loanB.String())

	// The sheet is never marked posted and no audit trace is emitted; the
	// surrounding transaction rolls the partial payment back.
	f.sheetRepo.AssertNotCalled(t, "Update", mock.Anything, mock.Anything)
	assert.Empty(t, f.recorder.Events)
}

func TestPost_RejectsNonApprovedSheet(t *testing.T) {
	cases := []string{
		domain.SheetStatusDraft,
		domain.SheetStatusSubmitted,
		domain.SheetStatusPosted,
	}

	for _, status := range cases {
		t.Run(status, func(t *testing.T) {
			f := newPostingFixture()
			sheet := approvedSheet(uuid.New())
			sheet.Status = status

			f.sheetRepo.On("GetByIDForUpdate", mock.Anything, sheet.ID).Return(sheet, nil)

			resp, err := f.svc.Post(context.Background(), sheet.ID, uuid.New())
			require.Error(t, err)
			assert.Nil(t, resp)
			assert.Equal(t, apperrors.ErrCodePostingConflict, apperrors.Code(err))
			f.sheetRepo.AssertNotCalled(t, "ListItems", mock.Anything, mock.Anything)
		})
	}
}

func TestPost_VoidedItemsAreIgnored(t *testing.T) {
	f := newPostingFixture()
	sheet := approvedSheet(uuid.New())
	voided := &domain.CollectionItem{ID: uuid.New(), SheetID: sheet.ID, LoanID: uuid.New(), Amount: decimal.NewFromInt(999), Status: domain.ItemStatusVoided}
	loanID := uuid.New()
	live := &domain.CollectionItem{ID: uuid.New(), SheetID: sheet.ID, LoanID: loanID, Amount: decimal.NewFromInt(300), Status: domain.ItemStatusPending}

	f.sheetRepo.On("GetByIDForUpdate", mock.Anything, sheet.ID).Return(sheet, nil)
	f.sheetRepo.On("ListItems", mock.Anything, sheet.ID).Return([]*domain.CollectionItem{voided, live}, nil)
	f.paymentRepo.On("GetBySourceItemID", mock.Anything, live.ID).Return(nil, sql.ErrNoRows)
	f.paymentRepo.On("Create", mock.Anything, mock.Anything).Return(nil)
	f.loanRepo.On("GetByIDForUpdate", mock.Anything, loanID).
		Return(&domain.Loan{ID: loanID, Status: domain.LoanStatusActive, OutstandingBalance: decimal.NewFromInt(3000)}, nil)
	f.loanRepo.On("Update", mock.Anything, mock.Anything).Return(nil)
	f.sheetRepo.On("UpdateItemStatus", mock.Anything, live.ID, domain.ItemStatusPosted).Return(nil)
	f.sheetRepo.On("Update", mock.Anything, mock.Anything).Return(nil)

	resp, err := f.svc.Post(context.Background(), sheet.ID, uuid.New())
	require.NoError(t, err)
	assert.Len(t, resp.Payments, 1)
	f.paymentRepo.AssertNumberOfCalls(t, "Create", 1)
}

func TestPost_CompletingPaymentEmitsLoanEvent(t *testing.T) {
	f := newPostingFixture()
	sheet := approvedSheet(uuid.New())
	loanID := uuid.New()
	item := &domain.CollectionItem{ID: uuid.New(), SheetID: sheet.ID, LoanID: loanID, Amount: decimal.NewFromInt(300), Status: domain.ItemStatusPending}

	f.sheetRepo.On("GetByIDForUpdate", mock.Anything, sheet.ID).Return(sheet, nil)
	f.sheetRepo.On("ListItems", mock.Anything, sheet.ID).Return([]*domain.CollectionItem{item}, nil)
	f.paymentRepo.On("GetBySourceItemID", mock.Anything, item.ID).Return(nil, sql.ErrNoRows)
	f.paymentRepo.On("Create", mock.Anything, mock.Anything).Return(nil)
	// This payment settles the loan in full
	f.loanRepo.On("GetByIDForUpdate", mock.Anything, loanID).
		Return(&domain.Loan{ID: loanID, Status: domain.LoanStatusActive, OutstandingBalance: decimal.NewFromInt(300)}, nil)
	f.loanRepo.On("Update", mock.Anything, mock.MatchedBy(func(loan *domain.Loan) bool {
		return loan.Status == domain.LoanStatusCompleted
	})).Return(nil)
	f.sheetRepo.On("UpdateItemStatus", mock.Anything, item.ID, domain.ItemStatusPosted).Return(nil)
	f.sheetRepo.On("Update", mock.Anything, mock.Anything).Return(nil)

	_, err := f.svc.Post(context.Background(), sheet.ID, uuid.New())
	require.NoError(t, err)

	require.Len(t, f.recorder.Events, 2)
	assert.Equal(t, domain.EntityLoan, f.recorder.Events[0].Entity)
	assert.Equal(t, domain.LoanStatusCompleted, f.recorder.Events[0].ToState)
	assert.Equal(t, domain.EntitySheet, f.recorder.Events[1].Entity)
}
