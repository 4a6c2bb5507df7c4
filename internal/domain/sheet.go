package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

const (
	SheetStatusDraft     = "draft"
	SheetStatusSubmitted = "submitted"
	SheetStatusApproved  = "approved"
	SheetStatusRejected  = "rejected"
	SheetStatusPosted    = "posted"
)

const (
	ItemStatusPending = "pending"
	ItemStatusPosted  = "posted"
	ItemStatusVoided  = "voided"
)

const (
	SheetOpSubmit  = "submit"
	SheetOpApprove = "approve"
	SheetOpReject  = "reject"
	SheetOpPost    = "post"
)

var sheetTransitions = map[string]struct {
	From string
	To   string
}{
	SheetOpSubmit:  {From: SheetStatusDraft, To: SheetStatusSubmitted},
	SheetOpApprove: {From: SheetStatusSubmitted, To: SheetStatusApproved},
	SheetOpReject:  {From: SheetStatusSubmitted, To: SheetStatusDraft},
	SheetOpPost:    {From: SheetStatusApproved, To: SheetStatusPosted},
}

// CanSheetTransition reports whether op may run from the given status, and
// the resulting status when it may. Note that reject lands back on draft, not
// a dead-end: items survive for correction and resubmission.
func CanSheetTransition(from, op string) (string, bool) {
	t, ok := sheetTransitions[op]
	if !ok || t.From != from {
		return "", false
	}
	return t.To, true
}

// CollectionSheet aggregates one officer's collection items for one date.
// TotalAmount is the derived sum of non-voided item amounts, maintained in
// the same transaction as every item mutation.
type CollectionSheet struct {
	ID              uuid.UUID       `json:"id" db:"id"`
	OfficerID       uuid.UUID       `json:"officer_id" db:"officer_id"`
	SheetDate       time.Time       `json:"sheet_date" db:"sheet_date"`
	Status          string          `json:"status" db:"status"`
	TotalAmount     decimal.Decimal `json:"total_amount" db:"total_amount"`
	SubmittedAt     *time.Time      `json:"submitted_at,omitempty" db:"submitted_at"`
	ApprovedAt      *time.Time      `json:"approved_at,omitempty" db:"approved_at"`
	ApprovedBy      *uuid.UUID      `json:"approved_by,omitempty" db:"approved_by"`
	RejectionReason *string         `json:"rejection_reason,omitempty" db:"rejection_reason"`
	CreatedAt       time.Time       `json:"created_at" db:"created_at"`
	UpdatedAt       time.Time       `json:"updated_at" db:"updated_at"`
}

// CollectionItem is a single officer-entered collection against a loan.
// Items are only created or edited while the owning sheet is draft.
type CollectionItem struct {
	ID        uuid.UUID       `json:"id" db:"id"`
	SheetID   uuid.UUID       `json:"sheet_id" db:"sheet_id"`
	ClientID  uuid.UUID       `json:"client_id" db:"client_id"`
	LoanID    uuid.UUID       `json:"loan_id" db:"loan_id"`
	Amount    decimal.Decimal `json:"amount" db:"amount"`
	Notes     string          `json:"notes" db:"notes"`
	Status    string          `json:"status" db:"status"`
	CreatedAt time.Time       `json:"created_at" db:"created_at"`
}

// DTOs

type CreateDraftRequest struct {
	OfficerID uuid.UUID `json:"officer_id" validate:"required"`
	SheetDate string    `json:"sheet_date" validate:"required,datetime=2006-01-02"`
}

type AddItemRequest struct {
	ClientID uuid.UUID       `json:"client_id" validate:"required"`
	LoanID   uuid.UUID       `json:"loan_id" validate:"required"`
	Amount   decimal.Decimal `json:"amount" validate:"required"`
	Notes    string          `json:"notes"`
}

type SheetResponse struct {
	Sheet *CollectionSheet  `json:"sheet"`
	Items []*CollectionItem `json:"items"`
}
