package handler

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/mat-tom-creator/fileledger/internal/middleware"
	"github.com/mat-tom-creator/fileledger/internal/model"
	"github.com/mat-tom-creator/fileledger/internal/service"
	"github.com/mat-tom-creator/fileledger/pkg/apierror"
)

type AuditHandler struct {
	ledger *service.LedgerService
}

func NewAuditHandler(ledger *service.LedgerService) *AuditHandler {
	return &AuditHandler{ledger: ledger}
}

type recordRequest struct {
	Action string `json:"action"`
}

func (h *AuditHandler) Record(w http.ResponseWriter, r *http.Request) {
	caller, ok := middleware.PrincipalFromContext(r.Context())
	if !ok {
		writeError(w, apierror.Forbidden("authentication required", ""))
		return
	}

	var req recordRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}

	record, err := h.ledger.RecordAction(r.Context(), caller, chi.URLParam(r, "fileID"), req.Action)
	if err != nil {
		writeError(w, err)
		return
	}

	writeSuccess(w, http.StatusCreated, record, nil)
}

func (h *AuditHandler) Trail(w http.ResponseWriter, r *http.Request) {
	offset, _ := strconv.Atoi(r.URL.Query().Get("offset"))
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))

	records, total, err := h.ledger.Trail(r.Context(), chi.URLParam(r, "fileID"), offset, limit)
	if err != nil {
		writeError(w, err)
		return
	}

	meta := &model.Meta{Offset: offset, Limit: limit, Total: total}
	writeSuccess(w, http.StatusOK, records, meta)
}

func (h *AuditHandler) Lookup(w http.ResponseWriter, r *http.Request) {
	record, err := h.ledger.Record(r.Context(), chi.URLParam(r, "fileID"), chi.URLParam(r, "recordID"))
	if err != nil {
		writeError(w, err)
		return
	}

	writeSuccess(w, http.StatusOK, record, nil)
}

func (h *AuditHandler) Verify(w http.ResponseWriter, r *http.Request) {
	fileID := chi.URLParam(r, "fileID")

	valid, err := h.ledger.Verify(r.Context(), fileID)
	if err != nil {
		writeError(w, err)
		return
	}

	lastHash, err := h.ledger.LastHash(r.Context(), fileID)
	if err != nil {
		writeError(w, err)
		return
	}

	count, err := h.ledger.Count(r.Context(), fileID)
	if err != nil {
		writeError(w, err)
		return
	}

	writeSuccess(w, http.StatusOK, map[string]any{
		"valid":     valid,
		"last_hash": lastHash,
		"count":     count,
	}, nil)
}
