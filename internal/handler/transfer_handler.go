package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/mat-tom-creator/fileledger/internal/middleware"
	"github.com/mat-tom-creator/fileledger/internal/model"
	"github.com/mat-tom-creator/fileledger/internal/service"
	"github.com/mat-tom-creator/fileledger/pkg/apierror"
)

type TransferHandler struct {
	transfers *service.TransferService
}

func NewTransferHandler(transfers *service.TransferService) *TransferHandler {
	return &TransferHandler{transfers: transfers}
}

type reasonRequest struct {
	Reason string `json:"reason"`
}

type completeRequest struct {
	Proof string `json:"proof"`
}

type resolveRequest struct {
	Resolution string `json:"resolution"`
}

func (h *TransferHandler) Initiate(w http.ResponseWriter, r *http.Request) {
	caller, ok := middleware.PrincipalFromContext(r.Context())
	if !ok {
		writeError(w, apierror.Forbidden("authentication required", ""))
		return
	}

	var input service.InitiateTransferInput
	if err := decodeJSON(r, &input); err != nil {
		writeError(w, err)
		return
	}

	view, err := h.transfers.Initiate(r.Context(), caller, input)
	if err != nil {
		writeError(w, err)
		return
	}

	writeSuccess(w, http.StatusCreated, view, nil)
}

func (h *TransferHandler) Accept(w http.ResponseWriter, r *http.Request) {
	h.simpleTransition(w, r, func(caller model.Principal, id string) (model.TransferView, error) {
		return h.transfers.Accept(r.Context(), caller, id)
	})
}

func (h *TransferHandler) Cancel(w http.ResponseWriter, r *http.Request) {
	h.simpleTransition(w, r, func(caller model.Principal, id string) (model.TransferView, error) {
		return h.transfers.Cancel(r.Context(), caller, id)
	})
}

func (h *TransferHandler) Reject(w http.ResponseWriter, r *http.Request) {
	caller, ok := middleware.PrincipalFromContext(r.Context())
	if !ok {
		writeError(w, apierror.Forbidden("authentication required", ""))
		return
	}

	var req reasonRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}

	view, err := h.transfers.Reject(r.Context(), caller, chi.URLParam(r, "transferID"), req.Reason)
	if err != nil {
		writeError(w, err)
		return
	}

	writeSuccess(w, http.StatusOK, view, nil)
}

func (h *TransferHandler) Complete(w http.ResponseWriter, r *http.Request) {
	caller, ok := middleware.PrincipalFromContext(r.Context())
	if !ok {
		writeError(w, apierror.Forbidden("authentication required", ""))
		return
	}

	var req completeRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}

	view, err := h.transfers.Complete(r.Context(), caller, chi.URLParam(r, "transferID"), req.Proof)
	if err != nil {
		writeError(w, err)
		return
	}

	writeSuccess(w, http.StatusOK, view, nil)
}

func (h *TransferHandler) Dispute(w http.ResponseWriter, r *http.Request) {
	caller, ok := middleware.PrincipalFromContext(r.Context())
	if !ok {
		writeError(w, apierror.Forbidden("authentication required", ""))
		return
	}

	var req reasonRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}

	view, err := h.transfers.Dispute(r.Context(), caller, chi.URLParam(r, "transferID"), req.Reason)
	if err != nil {
		writeError(w, err)
		return
	}

	writeSuccess(w, http.StatusOK, view, nil)
}

func (h *TransferHandler) Resolve(w http.ResponseWriter, r *http.Request) {
	caller, ok := middleware.PrincipalFromContext(r.Context())
	if !ok {
		writeError(w, apierror.Forbidden("authentication required", ""))
		return
	}

	var req resolveRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}

	view, err := h.transfers.Resolve(r.Context(), caller, chi.URLParam(r, "transferID"), model.TransferStatus(req.Resolution))
	if err != nil {
		writeError(w, err)
		return
	}

	writeSuccess(w, http.StatusOK, view, nil)
}

func (h *TransferHandler) Get(w http.ResponseWriter, r *http.Request) {
	h.simpleTransition(w, r, func(caller model.Principal, id string) (model.TransferView, error) {
		return h.transfers.Get(r.Context(), caller, id)
	})
}

// UserTransfers lists an identity's transfers in either direction:
// GET /users/{userID}/transfers?direction=sent|received.
func (h *TransferHandler) UserTransfers(w http.ResponseWriter, r *http.Request) {
	caller, ok := middleware.PrincipalFromContext(r.Context())
	if !ok {
		writeError(w, apierror.Forbidden("authentication required", ""))
		return
	}

	identity := chi.URLParam(r, "userID")

	var views []model.TransferView
	var err error
	switch r.URL.Query().Get("direction") {
	case "sent":
		views, err = h.transfers.SentBy(r.Context(), caller, identity)
	case "received":
		views, err = h.transfers.ReceivedBy(r.Context(), caller, identity)
	default:
		writeError(w, apierror.InvalidArgument("direction must be sent or received", ""))
		return
	}
	if err != nil {
		writeError(w, err)
		return
	}

	writeSuccess(w, http.StatusOK, views, nil)
}

func (h *TransferHandler) simpleTransition(w http.ResponseWriter, r *http.Request, op func(model.Principal, string) (model.TransferView, error)) {
	caller, ok := middleware.PrincipalFromContext(r.Context())
	if !ok {
		writeError(w, apierror.Forbidden("authentication required", ""))
		return
	}

	view, err := op(caller, chi.URLParam(r, "transferID"))
	if err != nil {
		writeError(w, err)
		return
	}

	writeSuccess(w, http.StatusOK, view, nil)
}
