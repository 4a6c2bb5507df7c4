package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Payment is an authoritative ledger entry against a loan.
// SourceCollectionItemID is set when the payment was produced by the posting
// pipeline; the storage layer enforces that a given collection item yields at
// most one payment, ever.
type Payment struct {
	ID                     uuid.UUID       `json:"id" db:"id"`
	LoanID                 uuid.UUID       `json:"loan_id" db:"loan_id"`
	Amount                 decimal.Decimal `json:"amount" db:"amount"`
	PaymentDate            time.Time       `json:"payment_date" db:"payment_date"`
	RecordedBy             uuid.UUID       `json:"recorded_by" db:"recorded_by"`
	Notes                  string          `json:"notes" db:"notes"`
	SourceCollectionItemID *uuid.UUID      `json:"source_collection_item_id,omitempty" db:"source_collection_item_id"`
	CreatedAt              time.Time       `json:"created_at" db:"created_at"`
}

type PostSheetResponse struct {
	SheetID  uuid.UUID  `json:"sheet_id"`
	Payments []*Payment `json:"payments"`
	Skipped  int        `json:"skipped"`
}
