package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"

	"github.com/mfisuite/lending-engine/internal/domain"
)

type paymentRepository struct {
	db *sqlx.DB
}

func NewPaymentRepository(db *sqlx.DB) PaymentRepository {
	return &paymentRepository{db: db}
}

const paymentColumns = `
	id, loan_id, amount, payment_date, recorded_by, notes,
	source_collection_item_id, created_at
`

func (r *paymentRepository) Create(ctx context.Context, payment *domain.Payment) error {
	query := `
		INSERT INTO payments (` + paymentColumns + `)
		VALUES (:id, :loan_id, :amount, :payment_date, :recorded_by, :notes,
			:source_collection_item_id, :created_at)
	`

	_, err := sqlx.NamedExecContext(ctx, ext(ctx, r.db), query, payment)
	return err
}

func (r *paymentRepository) GetByLoanID(ctx context.Context, loanID uuid.UUID) ([]*domain.Payment, error) {
	query := `SELECT ` + paymentColumns + ` FROM payments WHERE loan_id = $1 ORDER BY payment_date`

	var payments []*domain.Payment
	if err := sqlx.SelectContext(ctx, ext(ctx, r.db), &payments, query, loanID); err != nil {
		return nil, err
	}

	return payments, nil
}

func (r *paymentRepository) GetBySourceItemID(ctx context.Context, itemID uuid.UUID) (*domain.Payment, error) {
	query := `SELECT ` + paymentColumns + ` FROM payments WHERE source_collection_item_id = $1`

	var payment domain.Payment
	if err := sqlx.GetContext(ctx, ext(ctx, r.db), &payment, query, itemID); err != nil {
		return nil, err
	}

	return &payment, nil
}

func (r *paymentRepository) GetTotalPaid(ctx context.Context, loanID uuid.UUID) (decimal.Decimal, error) {
	query := `SELECT COALESCE(SUM(amount), 0) FROM payments WHERE loan_id = $1`

	var total decimal.Decimal
	if err := sqlx.GetContext(ctx, ext(ctx, r.db), &total, query, loanID); err != nil {
		return decimal.Zero, err
	}

	return total, nil
}
