package errors

import (
	"errors"
	"fmt"
)

// Domain errors
var (
	ErrLoanNotFound      = errors.New("loan not found")
	ErrSheetNotFound     = errors.New("collection sheet not found")
	ErrItemNotFound      = errors.New("collection item not found")
	ErrInvalidLoanTerms  = errors.New("loan terms outside policy bounds")
	ErrIneligibleClient  = errors.New("client is not eligible for a new loan")
	ErrInvalidTransition = errors.New("invalid state transition")
	ErrSheetNotEditable  = errors.New("collection sheet is not editable")
	ErrLoanNotActive     = errors.New("loan cannot receive collections")
	ErrPostingConflict   = errors.New("sheet cannot be posted")
	ErrForbiddenActor    = errors.New("actor may not perform this operation")
	ErrInvalidAmount     = errors.New("amount must be positive")
	ErrReasonRequired    = errors.New("rejection reason is required")
	ErrPersistence       = errors.New("persistence failure")
)

// BusinessError represents a business logic error
type BusinessError struct {
	Code    string
	Message string
	Err     error
}

func (e *BusinessError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s (%v)", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *BusinessError) Unwrap() error {
	return e.Err
}

// NewBusinessError creates a new business error
func NewBusinessError(code, message string, err error) *BusinessError {
	return &BusinessError{
		Code:    code,
		Message: message,
		Err:     err,
	}
}

// Error codes
const (
	ErrCodeLoanNotFound       = "LOAN_NOT_FOUND"
	ErrCodeSheetNotFound      = "SHEET_NOT_FOUND"
	ErrCodeItemNotFound       = "ITEM_NOT_FOUND"
	ErrCodeInvalidLoanTerms   = "INVALID_LOAN_TERMS"
	ErrCodeIneligibleClient   = "INELIGIBLE_CLIENT"
	ErrCodeInvalidTransition  = "INVALID_TRANSITION"
	ErrCodeSheetNotEditable   = "SHEET_NOT_EDITABLE"
	ErrCodeLoanNotActive      = "LOAN_NOT_ACTIVE"
	ErrCodePostingConflict    = "POSTING_CONFLICT"
	ErrCodeForbiddenActor     = "FORBIDDEN_ACTOR"
	ErrCodeInvalidAmount      = "INVALID_AMOUNT"
	ErrCodeReasonRequired     = "REJECTION_REASON_REQUIRED"
	ErrCodePersistenceFailure = "PERSISTENCE_FAILURE"
)

// Code extracts the business error code, or PERSISTENCE_FAILURE when the
// error did not originate from this package.
func Code(err error) string {
	var be *BusinessError
	if errors.As(err, &be) {
		return be.Code
	}
	return ErrCodePersistenceFailure
}

// Wrap common errors with business context

func WrapLoanNotFound(loanID string) *BusinessError {
	return NewBusinessError(
		ErrCodeLoanNotFound,
		fmt.Sprintf("Loan %s not found", loanID),
		ErrLoanNotFound,
	)
}

func WrapSheetNotFound(sheetID string) *BusinessError {
	return NewBusinessError(
		ErrCodeSheetNotFound,
		fmt.Sprintf("Collection sheet %s not found", sheetID),
		ErrSheetNotFound,
	)
}

func WrapItemNotFound(itemID string) *BusinessError {
	return NewBusinessError(
		ErrCodeItemNotFound,
		fmt.Sprintf("Collection item %s not found", itemID),
		ErrItemNotFound,
	)
}

func WrapInvalidLoanTerms(detail string) *BusinessError {
	return NewBusinessError(
		ErrCodeInvalidLoanTerms,
		detail,
		ErrInvalidLoanTerms,
	)
}

func WrapIneligibleClient(clientID string) *BusinessError {
	return NewBusinessError(
		ErrCodeIneligibleClient,
		fmt.Sprintf("Client %s already has an open loan", clientID),
		ErrIneligibleClient,
	)
}

func WrapInvalidTransition(entity, from, attempted string) *BusinessError {
	return NewBusinessError(
		ErrCodeInvalidTransition,
		fmt.Sprintf("%s cannot %s from status %s", entity, attempted, from),
		ErrInvalidTransition,
	)
}

func WrapSheetNotEditable(sheetID, status string) *BusinessError {
	return NewBusinessError(
		ErrCodeSheetNotEditable,
		fmt.Sprintf("Sheet %s is %s and can no longer be edited", sheetID, status),
		ErrSheetNotEditable,
	)
}

func WrapLoanNotActive(loanID, status string) *BusinessError {
	return NewBusinessError(
		ErrCodeLoanNotActive,
		fmt.Sprintf("Loan %s is %s and cannot receive collections", loanID, status),
		ErrLoanNotActive,
	)
}

func WrapPostingConflict(detail string) *BusinessError {
	return NewBusinessError(
		ErrCodePostingConflict,
		detail,
		ErrPostingConflict,
	)
}

func WrapForbiddenActor(detail string) *BusinessError {
	return NewBusinessError(
		ErrCodeForbiddenActor,
		detail,
		ErrForbiddenActor,
	)
}

func WrapInvalidAmount(amount string) *BusinessError {
	return NewBusinessError(
		ErrCodeInvalidAmount,
		fmt.Sprintf("Collection amount must be positive, got %s", amount),
		ErrInvalidAmount,
	)
}

func WrapReasonRequired() *BusinessError {
	return NewBusinessError(
		ErrCodeReasonRequired,
		"A rejection must carry a non-empty reason",
		ErrReasonRequired,
	)
}

func WrapDatabaseError(err error) *BusinessError {
	return NewBusinessError(
		ErrCodePersistenceFailure,
		"database operation failed",
		errors.Join(ErrPersistence, err),
	)
}
