package handler

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/mat-tom-creator/fileledger/internal/middleware"
	"github.com/mat-tom-creator/fileledger/internal/model"
	"github.com/mat-tom-creator/fileledger/internal/service"
	"github.com/mat-tom-creator/fileledger/pkg/apierror"
)

type FileHandler struct {
	registry *service.RegistryService
}

func NewFileHandler(registry *service.RegistryService) *FileHandler {
	return &FileHandler{registry: registry}
}

type grantRequest struct {
	Grantee   string    `json:"grantee"`
	Level     string    `json:"level"`
	ExpiresAt time.Time `json:"expires_at,omitzero"`
}

func (h *FileHandler) Register(w http.ResponseWriter, r *http.Request) {
	caller, ok := middleware.PrincipalFromContext(r.Context())
	if !ok {
		writeError(w, apierror.Forbidden("authentication required", ""))
		return
	}

	var input service.RegisterFileInput
	if err := decodeJSON(r, &input); err != nil {
		writeError(w, err)
		return
	}

	view, err := h.registry.Register(r.Context(), caller, input)
	if err != nil {
		writeError(w, err)
		return
	}

	writeSuccess(w, http.StatusCreated, view, nil)
}

func (h *FileHandler) Update(w http.ResponseWriter, r *http.Request) {
	caller, ok := middleware.PrincipalFromContext(r.Context())
	if !ok {
		writeError(w, apierror.Forbidden("authentication required", ""))
		return
	}

	var input service.UpdateFileInput
	if err := decodeJSON(r, &input); err != nil {
		writeError(w, err)
		return
	}

	view, err := h.registry.Update(r.Context(), caller, chi.URLParam(r, "fileID"), input)
	if err != nil {
		writeError(w, err)
		return
	}

	writeSuccess(w, http.StatusOK, view, nil)
}

func (h *FileHandler) Delete(w http.ResponseWriter, r *http.Request) {
	caller, ok := middleware.PrincipalFromContext(r.Context())
	if !ok {
		writeError(w, apierror.Forbidden("authentication required", ""))
		return
	}

	if err := h.registry.Delete(r.Context(), caller, chi.URLParam(r, "fileID")); err != nil {
		writeError(w, err)
		return
	}

	writeSuccess(w, http.StatusOK, map[string]string{"status": "deleted"}, nil)
}

func (h *FileHandler) Metadata(w http.ResponseWriter, r *http.Request) {
	caller, ok := middleware.PrincipalFromContext(r.Context())
	if !ok {
		writeError(w, apierror.Forbidden("authentication required", ""))
		return
	}

	view, err := h.registry.Metadata(r.Context(), caller, chi.URLParam(r, "fileID"))
	if err != nil {
		writeError(w, err)
		return
	}

	writeSuccess(w, http.StatusOK, view, nil)
}

// CheckAccess answers the pure access predicate for any identity and
// level, e.g. GET /files/{fileID}/access?identity=abc&level=read.
func (h *FileHandler) CheckAccess(w http.ResponseWriter, r *http.Request) {
	identity := r.URL.Query().Get("identity")
	level, err := model.ParseAccessLevel(r.URL.Query().Get("level"))
	if err != nil {
		writeError(w, apierror.InvalidArgument("invalid access level", r.URL.Query().Get("level")))
		return
	}

	allowed, err := h.registry.CheckAccess(r.Context(), chi.URLParam(r, "fileID"), identity, level)
	if err != nil {
		writeError(w, err)
		return
	}

	writeSuccess(w, http.StatusOK, map[string]bool{"allowed": allowed}, nil)
}

func (h *FileHandler) Grant(w http.ResponseWriter, r *http.Request) {
	caller, ok := middleware.PrincipalFromContext(r.Context())
	if !ok {
		writeError(w, apierror.Forbidden("authentication required", ""))
		return
	}

	var req grantRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}

	level, err := model.ParseAccessLevel(req.Level)
	if err != nil {
		writeError(w, apierror.InvalidArgument("invalid access level", req.Level))
		return
	}

	grant, err := h.registry.Grant(r.Context(), caller, chi.URLParam(r, "fileID"), req.Grantee, level, req.ExpiresAt)
	if err != nil {
		writeError(w, err)
		return
	}

	writeSuccess(w, http.StatusCreated, grant, nil)
}

func (h *FileHandler) Revoke(w http.ResponseWriter, r *http.Request) {
	caller, ok := middleware.PrincipalFromContext(r.Context())
	if !ok {
		writeError(w, apierror.Forbidden("authentication required", ""))
		return
	}

	err := h.registry.Revoke(r.Context(), caller, chi.URLParam(r, "fileID"), chi.URLParam(r, "granteeID"))
	if err != nil {
		writeError(w, err)
		return
	}

	writeSuccess(w, http.StatusOK, map[string]string{"status": "revoked"}, nil)
}

func (h *FileHandler) Grants(w http.ResponseWriter, r *http.Request) {
	caller, ok := middleware.PrincipalFromContext(r.Context())
	if !ok {
		writeError(w, apierror.Forbidden("authentication required", ""))
		return
	}

	grants, err := h.registry.Grants(r.Context(), caller, chi.URLParam(r, "fileID"))
	if err != nil {
		writeError(w, err)
		return
	}

	writeSuccess(w, http.StatusOK, grants, nil)
}

func (h *FileHandler) UserFiles(w http.ResponseWriter, r *http.Request) {
	ids, err := h.registry.UserFiles(r.Context(), chi.URLParam(r, "userID"))
	if err != nil {
		writeError(w, err)
		return
	}

	writeSuccess(w, http.StatusOK, ids, nil)
}
