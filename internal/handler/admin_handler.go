package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/mat-tom-creator/fileledger/internal/middleware"
	"github.com/mat-tom-creator/fileledger/internal/service"
	"github.com/mat-tom-creator/fileledger/pkg/apierror"
)

type AdminHandler struct {
	policy *service.PolicyService
}

func NewAdminHandler(policy *service.PolicyService) *AdminHandler {
	return &AdminHandler{policy: policy}
}

func (h *AdminHandler) Settings(w http.ResponseWriter, r *http.Request) {
	caller, ok := middleware.PrincipalFromContext(r.Context())
	if !ok {
		writeError(w, apierror.Forbidden("authentication required", ""))
		return
	}

	view, err := h.policy.CurrentSettings(caller)
	if err != nil {
		writeError(w, err)
		return
	}

	writeSuccess(w, http.StatusOK, view, nil)
}

func (h *AdminHandler) UpdateSettings(w http.ResponseWriter, r *http.Request) {
	caller, ok := middleware.PrincipalFromContext(r.Context())
	if !ok {
		writeError(w, apierror.Forbidden("authentication required", ""))
		return
	}

	var view service.SettingsView
	if err := decodeJSON(r, &view); err != nil {
		writeError(w, err)
		return
	}

	if err := h.policy.UpdateSettings(r.Context(), caller, view); err != nil {
		writeError(w, err)
		return
	}

	writeSuccess(w, http.StatusOK, view, nil)
}

type roleRequest struct {
	Role string `json:"role"`
}

func (h *AdminHandler) GrantRole(w http.ResponseWriter, r *http.Request) {
	caller, ok := middleware.PrincipalFromContext(r.Context())
	if !ok {
		writeError(w, apierror.Forbidden("authentication required", ""))
		return
	}

	var req roleRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}

	identity := chi.URLParam(r, "identity")
	if err := h.policy.GrantRole(r.Context(), caller, identity, req.Role); err != nil {
		writeError(w, err)
		return
	}

	writeSuccess(w, http.StatusOK, map[string]string{"identity": identity, "role": req.Role}, nil)
}

func (h *AdminHandler) RevokeRole(w http.ResponseWriter, r *http.Request) {
	caller, ok := middleware.PrincipalFromContext(r.Context())
	if !ok {
		writeError(w, apierror.Forbidden("authentication required", ""))
		return
	}

	identity := chi.URLParam(r, "identity")
	role := chi.URLParam(r, "role")
	if err := h.policy.RevokeRole(r.Context(), caller, identity, role); err != nil {
		writeError(w, err)
		return
	}

	writeSuccess(w, http.StatusOK, map[string]string{"identity": identity, "role": role}, nil)
}

func (h *AdminHandler) Roles(w http.ResponseWriter, r *http.Request) {
	if _, ok := middleware.PrincipalFromContext(r.Context()); !ok {
		writeError(w, apierror.Forbidden("authentication required", ""))
		return
	}

	identity := chi.URLParam(r, "identity")
	roles, err := h.policy.RolesOf(r.Context(), identity)
	if err != nil {
		writeError(w, err)
		return
	}

	writeSuccess(w, http.StatusOK, map[string]any{"identity": identity, "roles": roles}, nil)
}

func (h *AdminHandler) AddTrustedCaller(w http.ResponseWriter, r *http.Request) {
	caller, ok := middleware.PrincipalFromContext(r.Context())
	if !ok {
		writeError(w, apierror.Forbidden("authentication required", ""))
		return
	}

	identity := chi.URLParam(r, "identity")
	if err := h.policy.AddTrustedCaller(r.Context(), caller, identity); err != nil {
		writeError(w, err)
		return
	}

	writeSuccess(w, http.StatusOK, map[string]string{"identity": identity}, nil)
}

func (h *AdminHandler) RemoveTrustedCaller(w http.ResponseWriter, r *http.Request) {
	caller, ok := middleware.PrincipalFromContext(r.Context())
	if !ok {
		writeError(w, apierror.Forbidden("authentication required", ""))
		return
	}

	identity := chi.URLParam(r, "identity")
	if err := h.policy.RemoveTrustedCaller(r.Context(), caller, identity); err != nil {
		writeError(w, err)
		return
	}

	writeSuccess(w, http.StatusOK, map[string]string{"identity": identity}, nil)
}
