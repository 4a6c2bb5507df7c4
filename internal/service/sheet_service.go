package service

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/mfisuite/lending-engine/internal/audit"
	"github.com/mfisuite/lending-engine/internal/domain"
	"github.com/mfisuite/lending-engine/internal/policy"
	"github.com/mfisuite/lending-engine/internal/repository"
	apperrors "github.com/mfisuite/lending-engine/pkg/errors"
	"github.com/mfisuite/lending-engine/pkg/utils"
)

// SheetService owns the collection sheet state machine: draft → submitted →
// {approved, rejected}, approved → posted, rejected → draft. Items exist
// only under a sheet and are editable only while the sheet is draft.
type SheetService struct {
	sheetRepo repository.SheetRepository
	loanRepo  repository.LoanRepository
	tx        repository.TxManager
	policy    policy.CreditPolicy
	audit     audit.Recorder
	logger    *zap.Logger
}

func NewSheetService(
	sheetRepo repository.SheetRepository,
	loanRepo repository.LoanRepository,
	tx repository.TxManager,
	creditPolicy policy.CreditPolicy,
	recorder audit.Recorder,
	logger *zap.Logger,
) *SheetService {
	return &SheetService{
		sheetRepo: sheetRepo,
		loanRepo:  loanRepo,
		tx:        tx,
		policy:    creditPolicy,
		audit:     recorder,
		logger:    logger,
	}
}

// CreateOrGetDraft returns the officer's draft sheet for the date, creating
// it when absent. The create is idempotent: a partial unique index allows at
// most one draft per officer per date, and losing the insert race simply
// re-reads the winner.
func (s *SheetService) CreateOrGetDraft(ctx context.Context, officerID uuid.UUID, sheetDate time.Time) (*domain.CollectionSheet, error) {
	sheetDate = utils.TruncateToDay(sheetDate)

	existing, err := s.sheetRepo.GetDraft(ctx, officerID, sheetDate)
	if err == nil {
		return existing, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return nil, apperrors.WrapDatabaseError(err)
	}

	now := time.Now()
	sheet := &domain.CollectionSheet{
		ID:          uuid.New(),
		OfficerID:   officerID,
		SheetDate:   sheetDate,
		Status:      domain.SheetStatusDraft,
		TotalAmount: decimal.Zero,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	if err := s.sheetRepo.Create(ctx, sheet); err != nil {
		if repository.IsUniqueViolation(err, repository.ConstraintOneDraftPerOfficerDate) {
			winner, getErr := s.sheetRepo.GetDraft(ctx, officerID, sheetDate)
			if getErr != nil {
				return nil, apperrors.WrapDatabaseError(getErr)
			}
			return winner, nil
		}
		return nil, apperrors.WrapDatabaseError(err)
	}

	return sheet, nil
}

// AddItem appends a collection item to a draft sheet owned by the acting
// officer. The referenced loan must currently be able to receive
// collections; the sheet total is recomputed in the same transaction.
func (s *SheetService) AddItem(ctx context.Context, sheetID uuid.UUID, req *domain.AddItemRequest, actorID uuid.UUID) (*domain.CollectionItem, error) {
	if req.Amount.LessThanOrEqual(decimal.Zero) {
		return nil, apperrors.WrapInvalidAmount(req.Amount.String())
	}

	var item *domain.CollectionItem

	err := s.tx.WithinTx(ctx, func(ctx context.Context) error {
		sheet, err := s.lockEditableSheet(ctx, sheetID, actorID)
		if err != nil {
			return err
		}

		loan, err := s.loanRepo.GetByID(ctx, req.LoanID)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return apperrors.WrapLoanNotFound(req.LoanID.String())
			}
			return apperrors.WrapDatabaseError(err)
		}
		if !s.policy.CanReceiveCollection(loan.Status) {
			return apperrors.WrapLoanNotActive(loan.ID.String(), loan.Status)
		}

		item = &domain.CollectionItem{
			ID:        uuid.New(),
			SheetID:   sheet.ID,
			ClientID:  req.ClientID,
			LoanID:    req.LoanID,
			Amount:    req.Amount,
			Notes:     req.Notes,
			Status:    domain.ItemStatusPending,
			CreatedAt: time.Now(),
		}
		if err := s.sheetRepo.AddItem(ctx, item); err != nil {
			return apperrors.WrapDatabaseError(err)
		}

		return s.recomputeTotal(ctx, sheet)
	})
	if err != nil {
		return nil, err
	}

	return item, nil
}

// VoidItem voids an item on a draft sheet; voided items are kept for the
// record but excluded from totals and never posted.
func (s *SheetService) VoidItem(ctx context.Context, sheetID, itemID, actorID uuid.UUID) error {
	return s.tx.WithinTx(ctx, func(ctx context.Context) error {
		sheet, err := s.lockEditableSheet(ctx, sheetID, actorID)
		if err != nil {
			return err
		}

		item, err := s.sheetRepo.GetItem(ctx, itemID)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return apperrors.WrapItemNotFound(itemID.String())
			}
			return apperrors.WrapDatabaseError(err)
		}
		if item.SheetID != sheet.ID {
			return apperrors.WrapItemNotFound(itemID.String())
		}

		if err := s.sheetRepo.UpdateItemStatus(ctx, itemID, domain.ItemStatusVoided); err != nil {
			return apperrors.WrapDatabaseError(err)
		}

		return s.recomputeTotal(ctx, sheet)
	})
}

// Submit hands a draft with at least one live item over for approval; items
// become read-only.
func (s *SheetService) Submit(ctx context.Context, sheetID, actorID uuid.UUID) (*domain.CollectionSheet, error) {
	return s.transition(ctx, sheetID, actorID, domain.SheetOpSubmit, func(ctx context.Context, sheet *domain.CollectionSheet) error {
		if sheet.OfficerID != actorID {
			return apperrors.WrapForbiddenActor("only the owning officer may submit a sheet")
		}

		items, err := s.sheetRepo.ListItems(ctx, sheet.ID)
		if err != nil {
			return apperrors.WrapDatabaseError(err)
		}
		if countLive(items) == 0 {
			return apperrors.WrapInvalidTransition(domain.EntitySheet, sheet.Status, "submit without items")
		}

		now := time.Now()
		sheet.SubmittedAt = &now
		sheet.RejectionReason = nil
		return nil
	})
}

// Approve clears a submitted sheet for posting. Officers cannot approve
// their own sheets.
func (s *SheetService) Approve(ctx context.Context, sheetID, approverID uuid.UUID) (*domain.CollectionSheet, error) {
	return s.transition(ctx, sheetID, approverID, domain.SheetOpApprove, func(_ context.Context, sheet *domain.CollectionSheet) error {
		if sheet.OfficerID == approverID {
			return apperrors.WrapForbiddenActor("an officer may not approve their own sheet")
		}

		now := time.Now()
		sheet.ApprovedAt = &now
		sheet.ApprovedBy = &approverID
		return nil
	})
}

// Reject returns a submitted sheet to draft with its items intact, carrying
// a mandatory reason so the officer can correct and resubmit.
func (s *SheetService) Reject(ctx context.Context, sheetID, approverID uuid.UUID, reason string) (*domain.CollectionSheet, error) {
	reason = strings.TrimSpace(reason)
	if reason == "" {
		return nil, apperrors.WrapReasonRequired()
	}

	return s.transition(ctx, sheetID, approverID, domain.SheetOpReject, func(_ context.Context, sheet *domain.CollectionSheet) error {
		if sheet.OfficerID == approverID {
			return apperrors.WrapForbiddenActor("an officer may not reject their own sheet")
		}

		sheet.RejectionReason = &reason
		sheet.SubmittedAt = nil
		return nil
	})
}

// GetSheet returns a sheet with its items.
func (s *SheetService) GetSheet(ctx context.Context, sheetID uuid.UUID) (*domain.SheetResponse, error) {
	sheet, err := s.sheetRepo.GetByID(ctx, sheetID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperrors.WrapSheetNotFound(sheetID.String())
		}
		return nil, apperrors.WrapDatabaseError(err)
	}

	items, err := s.sheetRepo.ListItems(ctx, sheetID)
	if err != nil {
		return nil, apperrors.WrapDatabaseError(err)
	}

	return &domain.SheetResponse{Sheet: sheet, Items: items}, nil
}

func (s *SheetService) transition(ctx context.Context, sheetID, actorID uuid.UUID, op string, prepare func(context.Context, *domain.CollectionSheet) error) (*domain.CollectionSheet, error) {
	var sheet *domain.CollectionSheet
	var from string

	err := s.tx.WithinTx(ctx, func(ctx context.Context) error {
		var err error
		sheet, err = s.sheetRepo.GetByIDForUpdate(ctx, sheetID)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return apperrors.WrapSheetNotFound(sheetID.String())
			}
			return apperrors.WrapDatabaseError(err)
		}

		from = sheet.Status
		to, ok := domain.CanSheetTransition(sheet.Status, op)
		if !ok {
			return apperrors.WrapInvalidTransition(domain.EntitySheet, sheet.Status, op)
		}

		if err := prepare(ctx, sheet); err != nil {
			return err
		}

		sheet.Status = to
		if err := s.sheetRepo.Update(ctx, sheet); err != nil {
			return apperrors.WrapDatabaseError(err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.audit.Record(ctx, audit.NewEvent(domain.EntitySheet, sheet.ID.String(), from, sheet.Status, actorID.String()))
	return sheet, nil
}

// lockEditableSheet locks the sheet row and verifies it is a draft owned by
// the acting officer.
func (s *SheetService) lockEditableSheet(ctx context.Context, sheetID, actorID uuid.UUID) (*domain.CollectionSheet, error) {
	sheet, err := s.sheetRepo.GetByIDForUpdate(ctx, sheetID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperrors.WrapSheetNotFound(sheetID.String())
		}
		return nil, apperrors.WrapDatabaseError(err)
	}

	if sheet.Status != domain.SheetStatusDraft {
		return nil, apperrors.WrapSheetNotEditable(sheet.ID.String(), sheet.Status)
	}
	if sheet.OfficerID != actorID {
		return nil, apperrors.WrapForbiddenActor("sheet belongs to another officer")
	}

	return sheet, nil
}

func (s *SheetService) recomputeTotal(ctx context.Context, sheet *domain.CollectionSheet) error {
	items, err := s.sheetRepo.ListItems(ctx, sheet.ID)
	if err != nil {
		return apperrors.WrapDatabaseError(err)
	}

	total := decimal.Zero
	for _, item := range items {
		if item.Status != domain.ItemStatusVoided {
			total = total.Add(item.Amount)
		}
	}

	sheet.TotalAmount = total
	if err := s.sheetRepo.Update(ctx, sheet); err != nil {
		return apperrors.WrapDatabaseError(err)
	}
	return nil
}

func countLive(items []*domain.CollectionItem) int {
	live := 0
	for _, item := range items {
		if item.Status != domain.ItemStatusVoided {
			live++
		}
	}
	return live
}
