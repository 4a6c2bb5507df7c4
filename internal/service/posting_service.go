package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/mfisuite/lending-engine/internal/audit"
	"github.com/mfisuite/lending-engine/internal/domain"
	"github.com/mfisuite/lending-engine/internal/repository"
	apperrors "github.com/mfisuite/lending-engine/pkg/errors"
)

// PostingService converts an approved collection sheet into authoritative
// payment records and loan-balance mutations. The batch is all-or-nothing:
// partial posting would leave the sheet's total inconsistent with money
// actually applied, so any item-level failure rolls the whole run back and
// leaves the sheet approved for a corrected retry.
type PostingService struct {
	sheetRepo   repository.SheetRepository
	paymentRepo repository.PaymentRepository
	loans       *LoanService
	tx          repository.TxManager
	audit       audit.Recorder
	logger      *zap.Logger
}

func NewPostingService(
	sheetRepo repository.SheetRepository,
	paymentRepo repository.PaymentRepository,
	loans *LoanService,
	tx repository.TxManager,
	recorder audit.Recorder,
	logger *zap.Logger,
) *PostingService {
	return &PostingService{
		sheetRepo:   sheetRepo,
		paymentRepo: paymentRepo,
		loans:       loans,
		tx:          tx,
		audit:       recorder,
		logger:      logger,
	}
}

// Post runs the posting pipeline for an approved sheet in one transaction.
// Items that already produced a payment are skipped, so a retried post is
// idempotent; the unique index on source_collection_item_id backs that up at
// the store even for racing duplicates.
func (s *PostingService) Post(ctx context.Context, sheetID, actorID uuid.UUID) (*domain.PostSheetResponse, error) {
	var payments []*domain.Payment
	var skipped int
	var events []domain.TransitionEvent

	err := s.tx.WithinTx(ctx, func(ctx context.Context) error {
		sheet, err := s.sheetRepo.GetByIDForUpdate(ctx, sheetID)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return apperrors.WrapSheetNotFound(sheetID.String())
			}
			return apperrors.WrapDatabaseError(err)
		}

		to, ok := domain.CanSheetTransition(sheet.Status, domain.SheetOpPost)
		if !ok {
			return apperrors.WrapPostingConflict(
				fmt.Sprintf("sheet %s is %s, only approved sheets can be posted", sheet.ID, sheet.Status))
		}

		items, err := s.sheetRepo.ListItems(ctx, sheet.ID)
		if err != nil {
			return apperrors.WrapDatabaseError(err)
		}

		for _, item := range items {
			if item.Status == domain.ItemStatusVoided {
				continue
			}

			if _, err := s.paymentRepo.GetBySourceItemID(ctx, item.ID); err == nil {
				// Already paid on a previous run; never fail the batch for it.
				s.logger.Info("skipping already-posted collection item",
					zap.String("sheet_id", sheet.ID.String()),
					zap.String("item_id", item.ID.String()))
				skipped++
				if item.Status != domain.ItemStatusPosted {
					if err := s.sheetRepo.UpdateItemStatus(ctx, item.ID, domain.ItemStatusPosted); err != nil {
						return apperrors.WrapDatabaseError(err)
					}
				}
				continue
			} else if !errors.Is(err, sql.ErrNoRows) {
				return apperrors.WrapDatabaseError(err)
			}

			payment := &domain.Payment{
				ID:                     uuid.New(),
				LoanID:                 item.LoanID,
				Amount:                 item.Amount,
				PaymentDate:            sheet.SheetDate,
				RecordedBy:             actorID,
				Notes:                  item.Notes,
				SourceCollectionItemID: &item.ID,
				CreatedAt:              time.Now(),
			}
			if err := s.paymentRepo.Create(ctx, payment); err != nil {
				if repository.IsUniqueViolation(err, repository.ConstraintOnePaymentPerItem) {
					skipped++
					continue
				}
				return apperrors.WrapDatabaseError(err)
			}

			_, completedEvent, err := s.loans.RecordPayment(ctx, item.LoanID, item.Amount, actorID)
			if err != nil {
				if errors.Is(err, apperrors.ErrLoanNotActive) || errors.Is(err, apperrors.ErrLoanNotFound) {
					return apperrors.WrapPostingConflict(
						fmt.Sprintf("item %s: loan %s cannot receive payment: %v", item.ID, item.LoanID, err))
				}
				return err
			}
			if completedEvent != nil {
				events = append(events, *completedEvent)
			}

			if err := s.sheetRepo.UpdateItemStatus(ctx, item.ID, domain.ItemStatusPosted); err != nil {
				return apperrors.WrapDatabaseError(err)
			}

			payments = append(payments, payment)
		}

		sheet.Status = to
		if err := s.sheetRepo.Update(ctx, sheet); err != nil {
			return apperrors.WrapDatabaseError(err)
		}

		events = append(events, audit.NewEvent(
			domain.EntitySheet, sheet.ID.String(), domain.SheetStatusApproved, to, actorID.String()))
		return nil
	})
	if err != nil {
		return nil, err
	}

	// Emit only after the transaction committed; a rolled-back run leaves no
	// trace in the audit stream.
	for _, event := range events {
		s.audit.Record(ctx, event)
	}

	return &domain.PostSheetResponse{SheetID: sheetID, Payments: payments, Skipped: skipped}, nil
}
