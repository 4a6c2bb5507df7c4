package handler

import (
	"net/http"

	"github.com/google/uuid"

	apperrors "github.com/mfisuite/lending-engine/pkg/errors"
	"github.com/mfisuite/lending-engine/pkg/response"
)

var statusByCode = map[string]int{
	apperrors.ErrCodeLoanNotFound:       http.StatusNotFound,
	apperrors.ErrCodeSheetNotFound:      http.StatusNotFound,
	apperrors.ErrCodeItemNotFound:       http.StatusNotFound,
	apperrors.ErrCodeInvalidLoanTerms:   http.StatusBadRequest,
	apperrors.ErrCodeInvalidAmount:      http.StatusBadRequest,
	apperrors.ErrCodeReasonRequired:     http.StatusBadRequest,
	apperrors.ErrCodeIneligibleClient:   http.StatusConflict,
	apperrors.ErrCodeInvalidTransition:  http.StatusConflict,
	apperrors.ErrCodeSheetNotEditable:   http.StatusConflict,
	apperrors.ErrCodeLoanNotActive:      http.StatusConflict,
	apperrors.ErrCodePostingConflict:    http.StatusConflict,
	apperrors.ErrCodeForbiddenActor:     http.StatusForbidden,
	apperrors.ErrCodePersistenceFailure: http.StatusInternalServerError,
}

func writeError(w http.ResponseWriter, err error) {
	code := apperrors.Code(err)
	status, ok := statusByCode[code]
	if !ok {
		status = http.StatusInternalServerError
	}
	response.Error(w, status, code, err)
}

// actorID reads the authenticated actor from the X-Actor-ID header. Upstream
// middleware has already authenticated and role-checked the caller; the
// services do the fine-grained ownership checks.
func actorID(r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(r.Header.Get("X-Actor-ID"))
	return id, err == nil
}
