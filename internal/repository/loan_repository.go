package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/mfisuite/lending-engine/internal/domain"
)

type loanRepository struct {
	db *sqlx.DB
}

func NewLoanRepository(db *sqlx.DB) LoanRepository {
	return &loanRepository{db: db}
}

const loanColumns = `
	id, client_id, principal, term_weeks, monthly_interest_rate,
	total_interest, insurance_fee, total_loan_amount, weekly_payment,
	outstanding_balance, status, application_date, approval_date,
	disbursement_date, completion_date, approved_by, created_by,
	created_at, updated_at
`

func (r *loanRepository) Create(ctx context.Context, loan *domain.Loan) error {
	query := `
		INSERT INTO loans (` + loanColumns + `)
		VALUES (:id, :client_id, :principal, :term_weeks, :monthly_interest_rate,
			:total_interest, :insurance_fee, :total_loan_amount, :weekly_payment,
			:outstanding_balance, :status, :application_date, :approval_date,
			:disbursement_date, :completion_date, :approved_by, :created_by,
			:created_at, :updated_at)
	`

	_, err := sqlx.NamedExecContext(ctx, ext(ctx, r.db), query, loan)
	return err
}

func (r *loanRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Loan, error) {
	query := `SELECT ` + loanColumns + ` FROM loans WHERE id = $1`

	var loan domain.Loan
	if err := sqlx.GetContext(ctx, ext(ctx, r.db), &loan, query, id); err != nil {
		return nil, err
	}

	return &loan, nil
}

func (r *loanRepository) GetByIDForUpdate(ctx context.Context, id uuid.UUID) (*domain.Loan, error) {
	query := `SELECT ` + loanColumns + ` FROM loans WHERE id = $1 FOR UPDATE`

	var loan domain.Loan
	if err := sqlx.GetContext(ctx, ext(ctx, r.db), &loan, query, id); err != nil {
		return nil, err
	}

	return &loan, nil
}

func (r *loanRepository) Update(ctx context.Context, loan *domain.Loan) error {
	loan.UpdatedAt = time.Now()

	query := `
		UPDATE loans
		SET status = :status,
			outstanding_balance = :outstanding_balance,
			approval_date = :approval_date,
			disbursement_date = :disbursement_date,
			completion_date = :completion_date,
			approved_by = :approved_by,
			updated_at = :updated_at
		WHERE id = :id
	`

	_, err := sqlx.NamedExecContext(ctx, ext(ctx, r.db), query, loan)
	return err
}

func (r *loanRepository) ListStatusesByClient(ctx context.Context, clientID uuid.UUID) ([]string, error) {
	query := `SELECT status FROM loans WHERE client_id = $1`

	var statuses []string
	if err := sqlx.SelectContext(ctx, ext(ctx, r.db), &statuses, query, clientID); err != nil {
		return nil, err
	}

	return statuses, nil
}

func (r *loanRepository) ListByStatus(ctx context.Context, status string) ([]*domain.Loan, error) {
	query := `SELECT ` + loanColumns + ` FROM loans WHERE status = $1 ORDER BY application_date`

	var loans []*domain.Loan
	if err := sqlx.SelectContext(ctx, ext(ctx, r.db), &loans, query, status); err != nil {
		return nil, err
	}

	return loans, nil
}
