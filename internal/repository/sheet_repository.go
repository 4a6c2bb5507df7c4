package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/mfisuite/lending-engine/internal/domain"
)

type sheetRepository struct {
	db *sqlx.DB
}

func NewSheetRepository(db *sqlx.DB) SheetRepository {
	return &sheetRepository{db: db}
}

const sheetColumns = `
	id, officer_id, sheet_date, status, total_amount, submitted_at,
	approved_at, approved_by, rejection_reason, created_at, updated_at
`

func (r *sheetRepository) Create(ctx context.Context, sheet *domain.CollectionSheet) error {
	query := `
		INSERT INTO collection_sheets (` + sheetColumns + `)
		VALUES (:id, :officer_id, :sheet_date, :status, :total_amount, :submitted_at,
			:approved_at, :approved_by, :rejection_reason, :created_at, :updated_at)
	`

	_, err := sqlx.NamedExecContext(ctx, ext(ctx, r.db), query, sheet)
	return err
}

func (r *sheetRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.CollectionSheet, error) {
	query := `SELECT ` + sheetColumns + ` FROM collection_sheets WHERE id = $1`

	var sheet domain.CollectionSheet
	if err := sqlx.GetContext(ctx, ext(ctx, r.db), &sheet, query, id); err != nil {
		return nil, err
	}

	return &sheet, nil
}

func (r *sheetRepository) GetByIDForUpdate(ctx context.Context, id uuid.UUID) (*domain.CollectionSheet, error) {
	query := `SELECT ` + sheetColumns + ` FROM collection_sheets WHERE id = $1 FOR UPDATE`

	var sheet domain.CollectionSheet
	if err := sqlx.GetContext(ctx, ext(ctx, r.db), &sheet, query, id); err != nil {
		return nil, err
	}

	return &sheet, nil
}

func (r *sheetRepository) GetDraft(ctx context.Context, officerID uuid.UUID, sheetDate time.Time) (*domain.CollectionSheet, error) {
	query := `
		SELECT ` + sheetColumns + `
		FROM collection_sheets
		WHERE officer_id = $1 AND sheet_date = $2 AND status = $3
	`

	var sheet domain.CollectionSheet
	err := sqlx.GetContext(ctx, ext(ctx, r.db), &sheet, query, officerID, sheetDate, domain.SheetStatusDraft)
	if err != nil {
		return nil, err
	}

	return &sheet, nil
}

func (r *sheetRepository) Update(ctx context.Context, sheet *domain.CollectionSheet) error {
	sheet.UpdatedAt = time.Now()

	query := `
		UPDATE collection_sheets
		SET status = :status,
			total_amount = :total_amount,
			submitted_at = :submitted_at,
			approved_at = :approved_at,
			approved_by = :approved_by,
			rejection_reason = :rejection_reason,
			updated_at = :updated_at
		WHERE id = :id
	`

	_, err := sqlx.NamedExecContext(ctx, ext(ctx, r.db), query, sheet)
	return err
}

func (r *sheetRepository) AddItem(ctx context.Context, item *domain.CollectionItem) error {
	query := `
		INSERT INTO collection_items (id, sheet_id, client_id, loan_id, amount, notes, status, created_at)
		VALUES (:id, :sheet_id, :client_id, :loan_id, :amount, :notes, :status, :created_at)
	`

	_, err := sqlx.NamedExecContext(ctx, ext(ctx, r.db), query, item)
	return err
}

func (r *sheetRepository) GetItem(ctx context.Context, itemID uuid.UUID) (*domain.CollectionItem, error) {
	query := `
		SELECT id, sheet_id, client_id, loan_id, amount, notes, status, created_at
		FROM collection_items
		WHERE id = $1
	`

	var item domain.CollectionItem
	if err := sqlx.GetContext(ctx, ext(ctx, r.db), &item, query, itemID); err != nil {
		return nil, err
	}

	return &item, nil
}

func (r *sheetRepository) ListItems(ctx context.Context, sheetID uuid.UUID) ([]*domain.CollectionItem, error) {
	query := `
		SELECT id, sheet_id, client_id, loan_id, amount, notes, status, created_at
		FROM collection_items
		WHERE sheet_id = $1
		ORDER BY id
	`

	var items []*domain.CollectionItem
	if err := sqlx.SelectContext(ctx, ext(ctx, r.db), &items, query, sheetID); err != nil {
		return nil, err
	}

	return items, nil
}

func (r *sheetRepository) UpdateItemStatus(ctx context.Context, itemID uuid.UUID, status string) error {
	query := `UPDATE collection_items SET status = $2 WHERE id = $1`

	_, err := ext(ctx, r.db).ExecContext(ctx, query, itemID, status)
	return err
}
