package console

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"resumedesk.org/internal/audit"
	"resumedesk.org/internal/upstream"
)

type adminRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
	RoleID   string `json:"roleId"`
	IsActive bool   `json:"isActive"`
}

func (req *adminRequest) validate(requirePassword bool) string {
	req.Name = strings.TrimSpace(req.Name)
	req.Email = strings.TrimSpace(req.Email)
	req.RoleID = strings.TrimSpace(req.RoleID)
	switch {
	case req.Name == "":
		return "name is required"
	case req.Email == "":
		return "email is required"
	case req.RoleID == "":
		return "roleId is required"
	case requirePassword && req.Password == "":
		return "password is required"
	}
	return ""
}

func (req adminRequest) form() upstream.AdminForm {
	return upstream.AdminForm{
		Name:     req.Name,
		Email:    req.Email,
		Password: req.Password,
		RoleID:   req.RoleID,
		IsActive: req.IsActive,
	}
}

func (a *API) adminList(w http.ResponseWriter, r *http.Request) ([]upstream.AdminAccount, bool) {
	admins, err := a.up.ListAdmins(r.Context())
	if err != nil {
		a.upstreamError(w, r, err)
		return nil, false
	}
	if admins == nil {
		admins = []upstream.AdminAccount{}
	}
	return admins, true
}

// handleAdminManagement returns the screen payload: the accounts plus
// the roles that populate the role selector.
func (a *API) handleAdminManagement(w http.ResponseWriter, r *http.Request) {
	admins, ok := a.adminList(w, r)
	if !ok {
		return
	}
	roles, err := a.up.ListRoles(r.Context())
	if err != nil {
		a.upstreamError(w, r, err)
		return
	}
	if roles == nil {
		roles = []upstream.Role{}
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"admins": admins,
		"roles":  roles,
	})
}

func (a *API) respondAdminList(w http.ResponseWriter, r *http.Request) {
	admins, ok := a.adminList(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"admins": admins})
}

func (a *API) handleCreateAdmin(w http.ResponseWriter, r *http.Request) {
	var req adminRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, "invalid request body")
		return
	}
	if msg := req.validate(true); msg != "" {
		writeError(w, r, http.StatusBadRequest, msg)
		return
	}
	if err := a.up.CreateAdmin(r.Context(), req.form()); err != nil {
		a.upstreamError(w, r, err)
		return
	}
	_ = audit.LogEvent(r.Context(), "admin.create", map[string]any{"email": req.Email})
	a.respondAdminList(w, r)
}

// handleUpdateAdmin accepts an empty password as "leave unchanged"; the
// form never echoes the stored one back.
func (a *API) handleUpdateAdmin(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	var req adminRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, "invalid request body")
		return
	}
	if msg := req.validate(false); msg != "" {
		writeError(w, r, http.StatusBadRequest, msg)
		return
	}
	if err := a.up.UpdateAdmin(r.Context(), id, req.form()); err != nil {
		a.upstreamError(w, r, err)
		return
	}
	_ = audit.LogEvent(r.Context(), "admin.update", map[string]any{"id": id})
	a.respondAdminList(w, r)
}

func (a *API) handleDeleteAdmin(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if !a.confirmDelete(w, r, "admins", id) {
		return
	}
	if err := a.up.DeleteAdmin(r.Context(), id); err != nil {
		a.upstreamError(w, r, err)
		return
	}
	_ = audit.LogEvent(r.Context(), "admin.delete", map[string]any{"id": id})
	a.respondAdminList(w, r)
}
