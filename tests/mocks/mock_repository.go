package mocks

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/mock"

	"github.com/mfisuite/lending-engine/internal/domain"
)

type MockLoanRepository struct {
	mock.Mock
}

func (m *MockLoanRepository) Create(ctx context.Context, loan *domain.Loan) error {
	args := m.Called(ctx, loan)
	return args.Error(0)
}

func (m *MockLoanRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Loan, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Loan), args.Error(1)
}

func (m *MockLoanRepository) GetByIDForUpdate(ctx context.Context, id uuid.UUID) (*domain.Loan, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Loan), args.Error(1)
}

func (m *MockLoanRepository) Update(ctx context.Context, loan *domain.Loan) error {
	args := m.Called(ctx, loan)
	return args.Error(0)
}

func (m *MockLoanRepository) ListStatusesByClient(ctx context.Context, clientID uuid.UUID) ([]string, error) {
	args := m.Called(ctx, clientID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]string), args.Error(1)
}

func (m *MockLoanRepository) ListByStatus(ctx context.Context, status string) ([]*domain.Loan, error) {
	args := m.Called(ctx, status)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.Loan), args.Error(1)
}

type MockSheetRepository struct {
	mock.Mock
}

func (m *MockSheetRepository) Create(ctx context.Context, sheet *domain.CollectionSheet) error {
	args := m.Called(ctx, sheet)
	return args.Error(0)
}

func (m *MockSheetRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.CollectionSheet, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.CollectionSheet), args.Error(1)
}

func (m *MockSheetRepository) GetByIDForUpdate(ctx context.Context, id uuid.UUID) (*domain.CollectionSheet, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.CollectionSheet), args.Error(1)
}

func (m *MockSheetRepository) GetDraft(ctx context.Context, officerID uuid.UUID, sheetDate time.Time) (*domain.CollectionSheet, error) {
	args := m.Called(ctx, officerID, sheetDate)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.CollectionSheet), args.Error(1)
}

func (m *MockSheetRepository) Update(ctx context.Context, sheet *domain.CollectionSheet) error {
	args := m.Called(ctx, sheet)
	return args.Error(0)
}

func (m *MockSheetRepository) AddItem(ctx context.Context, item *domain.CollectionItem) error {
	args := m.Called(ctx, item)
	return args.Error(0)
}

func (m *MockSheetRepository) GetItem(ctx context.Context, itemID uuid.UUID) (*domain.CollectionItem, error) {
	args := m.Called(ctx, itemID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.CollectionItem), args.Error(1)
}

func (m *MockSheetRepository) ListItems(ctx context.Context, sheetID uuid.UUID) ([]*domain.CollectionItem, error) {
	args := m.Called(ctx, sheetID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.CollectionItem), args.Error(1)
}

func (m *MockSheetRepository) UpdateItemStatus(ctx context.Context, itemID uuid.UUID, status string) error {
	args := m.Called(ctx, itemID, status)
	return args.Error(0)
}

type MockPaymentRepository struct {
	mock.Mock
}

func (m *MockPaymentRepository) Create(ctx context.Context, payment *domain.Payment) error {
	args := m.Called(ctx, payment)
	return args.Error(0)
}

func (m *MockPaymentRepository) GetByLoanID(ctx context.Context, loanID uuid.UUID) ([]*domain.Payment, error) {
	args := m.Called(ctx, loanID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.Payment), args.Error(1)
}

func (m *MockPaymentRepository) GetBySourceItemID(ctx context.Context, itemID uuid.UUID) (*domain.Payment, error) {
	args := m.Called(ctx, itemID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Payment), args.Error(1)
}

func (m *MockPaymentRepository) GetTotalPaid(ctx context.Context, loanID uuid.UUID) (decimal.Decimal, error) {
	args := m.Called(ctx, loanID)
	return args.Get(0).(decimal.Decimal), args.Error(1)
}

// PassthroughTxManager runs the function directly; unit tests assert
// behavior, not transaction mechanics.
type PassthroughTxManager struct{}

func (PassthroughTxManager) WithinTx(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

// MockRecorder captures audit events for assertions.
type MockRecorder struct {
	Events []domain.TransitionEvent
}

func (m *MockRecorder) Record(_ context.Context, event domain.TransitionEvent) {
	m.Events = append(m.Events, event)
}
