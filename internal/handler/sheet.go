package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/gorilla/mux"

	"github.com/mfisuite/lending-engine/internal/domain"
	"github.com/mfisuite/lending-engine/internal/service"
	"github.com/mfisuite/lending-engine/pkg/response"
)

type SheetHandler struct {
	sheets    *service.SheetService
	posting   *service.PostingService
	validator *validator.Validate
}

func NewSheetHandler(sheets *service.SheetService, posting *service.PostingService) *SheetHandler {
	return &SheetHandler{
		sheets:    sheets,
		posting:   posting,
		validator: validator.New(),
	}
}

// CreateDraft creates or returns the officer's draft sheet for a date
func (h *SheetHandler) CreateDraft(w http.ResponseWriter, r *http.Request) {
	var req domain.CreateDraftRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "INVALID_REQUEST", err)
		return
	}
	if err := h.validator.Struct(&req); err != nil {
		response.BadRequest(w, "INVALID_REQUEST", err)
		return
	}

	sheetDate, err := time.Parse("2006-01-02", req.SheetDate)
	if err != nil {
		response.BadRequest(w, "INVALID_REQUEST", err)
		return
	}

	sheet, err := h.sheets.CreateOrGetDraft(r.Context(), req.OfficerID, sheetDate)
	if err != nil {
		writeError(w, err)
		return
	}

	response.Created(w, sheet)
}

// AddItem adds a collection item to a draft sheet
func (h *SheetHandler) AddItem(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorID(r)
	if !ok {
		response.BadRequest(w, "MISSING_ACTOR", errors.New("X-Actor-ID header is required"))
		return
	}

	sheetID, err := uuid.Parse(mux.Vars(r)["sheetId"])
	if err != nil {
		response.BadRequest(w, "INVALID_SHEET_ID", err)
		return
	}

	var req domain.AddItemRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "INVALID_REQUEST", err)
		return
	}
	if err := h.validator.Struct(&req); err != nil {
		response.BadRequest(w, "INVALID_REQUEST", err)
		return
	}

	item, err := h.sheets.AddItem(r.Context(), sheetID, &req, actor)
	if err != nil {
		writeError(w, err)
		return
	}

	response.Created(w, item)
}

// VoidItem voids an item on a draft sheet
func (h *SheetHandler) VoidItem(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorID(r)
	if !ok {
		response.BadRequest(w, "MISSING_ACTOR", errors.New("X-Actor-ID header is required"))
		return
	}

	vars := mux.Vars(r)
	sheetID, err := uuid.Parse(vars["sheetId"])
	if err != nil {
		response.BadRequest(w, "INVALID_SHEET_ID", err)
		return
	}
	itemID, err := uuid.Parse(vars["itemId"])
	if err != nil {
		response.BadRequest(w, "INVALID_ITEM_ID", err)
		return
	}

	if err := h.sheets.VoidItem(r.Context(), sheetID, itemID, actor); err != nil {
		writeError(w, err)
		return
	}

	response.Success(w, nil)
}

// Submit hands a draft over for approval
func (h *SheetHandler) Submit(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, func(r *http.Request, sheetID, actor uuid.UUID) (*domain.CollectionSheet, error) {
		return h.sheets.Submit(r.Context(), sheetID, actor)
	})
}

// Approve clears a submitted sheet for posting
func (h *SheetHandler) Approve(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, func(r *http.Request, sheetID, actor uuid.UUID) (*domain.CollectionSheet, error) {
		return h.sheets.Approve(r.Context(), sheetID, actor)
	})
}

// Reject returns a submitted sheet to draft with a reason
func (h *SheetHandler) Reject(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorID(r)
	if !ok {
		response.BadRequest(w, "MISSING_ACTOR", errors.New("X-Actor-ID header is required"))
		return
	}

	sheetID, err := uuid.Parse(mux.Vars(r)["sheetId"])
	if err != nil {
		response.BadRequest(w, "INVALID_SHEET_ID", err)
		return
	}

	var req domain.RejectSheetRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "INVALID_REQUEST", err)
		return
	}
	if err := h.validator.Struct(&req); err != nil {
		response.BadRequest(w, "INVALID_REQUEST", err)
		return
	}

	sheet, err := h.sheets.Reject(r.Context(), sheetID, actor, req.Reason)
	if err != nil {
		writeError(w, err)
		return
	}

	response.Success(w, sheet)
}

// Post runs the posting pipeline on an approved sheet
func (h *SheetHandler) Post(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorID(r)
	if !ok {
		response.BadRequest(w, "MISSING_ACTOR", errors.New("X-Actor-ID header is required"))
		return
	}

	sheetID, err := uuid.Parse(mux.Vars(r)["sheetId"])
	if err != nil {
		response.BadRequest(w, "INVALID_SHEET_ID", err)
		return
	}

	result, err := h.posting.Post(r.Context(), sheetID, actor)
	if err != nil {
		writeError(w, err)
		return
	}

	response.Success(w, result)
}

// GetSheet returns a sheet with its items
func (h *SheetHandler) GetSheet(w http.ResponseWriter, r *http.Request) {
	sheetID, err := uuid.Parse(mux.Vars(r)["sheetId"])
	if err != nil {
		response.BadRequest(w, "INVALID_SHEET_ID", err)
		return
	}

	sheet, err := h.sheets.GetSheet(r.Context(), sheetID)
	if err != nil {
		writeError(w, err)
		return
	}

	response.Success(w, sheet)
}

func (h *SheetHandler) transition(w http.ResponseWriter, r *http.Request, run func(r *http.Request, sheetID, actor uuid.UUID) (*domain.CollectionSheet, error)) {
	actor, ok := actorID(r)
	if !ok {
		response.BadRequest(w, "MISSING_ACTOR", errors.New("X-Actor-ID header is required"))
		return
	}

	sheetID, err := uuid.Parse(mux.Vars(r)["sheetId"])
	if err != nil {
		response.BadRequest(w, "INVALID_SHEET_ID", err)
		return
	}

	sheet, err := run(r, sheetID, actor)
	if err != nil {
		writeError(w, err)
		return
	}

	response.Success(w, sheet)
}
