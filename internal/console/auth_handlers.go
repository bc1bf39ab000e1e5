package console

import (
	"errors"
	"net/http"
	"strings"

	"resumedesk.org/internal/audit"
	"resumedesk.org/internal/guard"
	"resumedesk.org/internal/session"
	"resumedesk.org/internal/upstream"
)

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// handleLogin exchanges credentials for a session. A rejected login is
// the one place an auth failure answers 401 instead of redirecting:
// the caller is already on the login screen.
func (a *API) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, "invalid request body")
		return
	}
	req.Email = strings.TrimSpace(req.Email)
	if req.Email == "" || req.Password == "" {
		writeError(w, r, http.StatusBadRequest, "email and password are required")
		return
	}

	result, err := a.up.Login(r.Context(), upstream.Credentials{Email: req.Email, Password: req.Password})
	if err != nil {
		if upstream.IsAuth(err) {
			writeError(w, r, http.StatusUnauthorized, upstream.Message(err, "invalid credentials"))
			return
		}
		a.upstreamError(w, r, err)
		return
	}

	sess := session.Session{
		Token:       result.Token,
		Email:       req.Email,
		Role:        result.Role,
		Permissions: result.Permissions,
	}
	if err := a.sessions.Set(r.Context(), sess); err != nil {
		if errors.Is(err, session.ErrIncomplete) {
			writeError(w, r, http.StatusBadGateway, "product API returned an incomplete session")
			return
		}
		writeError(w, r, http.StatusInternalServerError, "could not establish session")
		return
	}

	_ = audit.LogEvent(audit.WithActor(r.Context(), req.Email), "login", map[string]any{
		"role": result.Role,
	})
	writeJSON(w, http.StatusOK, map[string]any{
		"role":        result.Role,
		"permissions": result.Permissions,
	})
}

// handleLogout clears the session. Idempotent: logging out twice, or
// with a session already invalidated elsewhere, still lands on login.
func (a *API) handleLogout(w http.ResponseWriter, r *http.Request) {
	_ = audit.LogEvent(r.Context(), "logout", nil)
	if err := a.sessions.Clear(r.Context()); err != nil {
		writeError(w, r, http.StatusInternalServerError, "could not clear session")
		return
	}
	http.Redirect(w, r, guard.LoginPath, http.StatusSeeOther)
}
