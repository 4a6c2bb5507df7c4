package handler

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/gorilla/mux"

	"github.com/mfisuite/lending-engine/internal/domain"
	"github.com/mfisuite/lending-engine/internal/service"
	"github.com/mfisuite/lending-engine/pkg/response"
)

type LoanHandler struct {
	service   *service.LoanService
	validator *validator.Validate
}

func NewLoanHandler(service *service.LoanService) *LoanHandler {
	return &LoanHandler{
		service:   service,
		validator: validator.New(),
	}
}

// CalculateLoan previews a repayment schedule without persisting anything
func (h *LoanHandler) CalculateLoan(w http.ResponseWriter, r *http.Request) {
	var req domain.CalculateLoanRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "INVALID_REQUEST", err)
		return
	}
	if err := h.validator.Struct(&req); err != nil {
		response.BadRequest(w, "INVALID_REQUEST", err)
		return
	}

	quote, err := h.service.Calculate(r.Context(), req.Principal, req.TermWeeks)
	if err != nil {
		writeError(w, err)
		return
	}

	response.Success(w, quote)
}

// ApplyLoan creates a new loan application
func (h *LoanHandler) ApplyLoan(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorID(r)
	if !ok {
		response.BadRequest(w, "MISSING_ACTOR", errors.New("X-Actor-ID header is required"))
		return
	}

	var req domain.ApplyLoanRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "INVALID_REQUEST", err)
		return
	}
	if err := h.validator.Struct(&req); err != nil {
		response.BadRequest(w, "INVALID_REQUEST", err)
		return
	}

	loan, err := h.service.Apply(r.Context(), &req, actor)
	if err != nil {
		writeError(w, err)
		return
	}

	response.Created(w, loan)
}

// Transition runs a named loan lifecycle transition
func (h *LoanHandler) Transition(op string) http.HandlerFunc {
	run := map[string]func(r *http.Request, loanID, actor uuid.UUID) (*domain.Loan, error){
		domain.LoanOpApprove: func(r *http.Request, loanID, actor uuid.UUID) (*domain.Loan, error) {
			return h.service.Approve(r.Context(), loanID, actor)
		},
		domain.LoanOpDisburse: func(r *http.Request, loanID, actor uuid.UUID) (*domain.Loan, error) {
			return h.service.Disburse(r.Context(), loanID, actor)
		},
		domain.LoanOpCancel: func(r *http.Request, loanID, actor uuid.UUID) (*domain.Loan, error) {
			return h.service.Cancel(r.Context(), loanID, actor)
		},
		domain.LoanOpRestore: func(r *http.Request, loanID, actor uuid.UUID) (*domain.Loan, error) {
			return h.service.Restore(r.Context(), loanID, actor)
		},
	}[op]

	return func(w http.ResponseWriter, r *http.Request) {
		actor, ok := actorID(r)
		if !ok {
			response.BadRequest(w, "MISSING_ACTOR", errors.New("X-Actor-ID header is required"))
			return
		}

		loanID, err := uuid.Parse(mux.Vars(r)["loanId"])
		if err != nil {
			response.BadRequest(w, "INVALID_LOAN_ID", err)
			return
		}

		loan, err := run(r, loanID, actor)
		if err != nil {
			writeError(w, err)
			return
		}

		response.Success(w, loan)
	}
}

// GetLoan returns a loan with its derived overdue flag
func (h *LoanHandler) GetLoan(w http.ResponseWriter, r *http.Request) {
	loanID, err := uuid.Parse(mux.Vars(r)["loanId"])
	if err != nil {
		response.BadRequest(w, "INVALID_LOAN_ID", err)
		return
	}

	loan, err := h.service.GetLoan(r.Context(), loanID)
	if err != nil {
		writeError(w, err)
		return
	}

	response.Success(w, loan)
}

// GetSchedule returns the repayment schedule derived from frozen terms
func (h *LoanHandler) GetSchedule(w http.ResponseWriter, r *http.Request) {
	loanID, err := uuid.Parse(mux.Vars(r)["loanId"])
	if err != nil {
		response.BadRequest(w, "INVALID_LOAN_ID", err)
		return
	}

	schedule, err := h.service.GetSchedule(r.Context(), loanID)
	if err != nil {
		writeError(w, err)
		return
	}

	response.Success(w, schedule)
}

// GetOutstanding returns the loan's running balance
func (h *LoanHandler) GetOutstanding(w http.ResponseWriter, r *http.Request) {
	loanID, err := uuid.Parse(mux.Vars(r)["loanId"])
	if err != nil {
		response.BadRequest(w, "INVALID_LOAN_ID", err)
		return
	}

	outstanding, err := h.service.GetOutstanding(r.Context(), loanID)
	if err != nil {
		writeError(w, err)
		return
	}

	response.Success(w, outstanding)
}
