package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/mfisuite/lending-engine/internal/domain"
)

// Unique constraint names the services key error translation off.
const (
	ConstraintOneDraftPerOfficerDate = "uq_collection_sheets_officer_date_draft"
	ConstraintOnePaymentPerItem      = "uq_payments_source_collection_item"
)

// LoanRepository defines the interface for loan data operations
type LoanRepository interface {
	// Create persists a new loan
	Create(ctx context.Context, loan *domain.Loan) error

	// GetByID retrieves a loan by id
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Loan, error)

	// GetByIDForUpdate retrieves a loan under a row lock; must be called
	// inside a transaction
	GetByIDForUpdate(ctx context.Context, id uuid.UUID) (*domain.Loan, error)

	// Update writes mutable loan fields (status, dates, balance)
	Update(ctx context.Context, loan *domain.Loan) error

	// ListStatusesByClient returns the statuses of all loans a client holds
	ListStatusesByClient(ctx context.Context, clientID uuid.UUID) ([]string, error)

	// ListByStatus returns all loans in the given status
	ListByStatus(ctx context.Context, status string) ([]*domain.Loan, error)
}

// SheetRepository defines the interface for collection sheet and item data
// operations
type SheetRepository interface {
	// Create persists a new sheet
	Create(ctx context.Context, sheet *domain.CollectionSheet) error

	// GetByID retrieves a sheet by id
	GetByID(ctx context.Context, id uuid.UUID) (*domain.CollectionSheet, error)

	// GetByIDForUpdate retrieves a sheet under a row lock; must be called
	// inside a transaction
	GetByIDForUpdate(ctx context.Context, id uuid.UUID) (*domain.CollectionSheet, error)

	// GetDraft finds the officer's draft sheet for a date, if any
	GetDraft(ctx context.Context, officerID uuid.UUID, sheetDate time.Time) (*domain.CollectionSheet, error)

	// Update writes mutable sheet fields (status, stamps, total)
	Update(ctx context.Context, sheet *domain.CollectionSheet) error

	// AddItem persists a new collection item
	AddItem(ctx context.Context, item *domain.CollectionItem) error

	// GetItem retrieves a single collection item
	GetItem(ctx context.Context, itemID uuid.UUID) (*domain.CollectionItem, error)

	// ListItems returns a sheet's items in stable item-id order
	ListItems(ctx context.Context, sheetID uuid.UUID) ([]*domain.CollectionItem, error)

	// UpdateItemStatus moves a single item between pending/posted/voided
	UpdateItemStatus(ctx context.Context, itemID uuid.UUID, status string) error
}

// PaymentRepository defines the interface for payment data operations
type PaymentRepository interface {
	// Create persists a new payment record
	Create(ctx context.Context, payment *domain.Payment) error

	// GetByLoanID retrieves all payments for a loan
	GetByLoanID(ctx context.Context, loanID uuid.UUID) ([]*domain.Payment, error)

	// GetBySourceItemID finds the payment produced from a collection item,
	// if one exists
	GetBySourceItemID(ctx context.Context, itemID uuid.UUID) (*domain.Payment, error)

	// GetTotalPaid sums all payments against a loan
	GetTotalPaid(ctx context.Context, loanID uuid.UUID) (decimal.Decimal, error)
}
