package console

import (
	"net/http"
	"strings"

	"resumedesk.org/internal/ids"
)

// Deletes are two-phase. The first request receives a one-time token and
// nothing reaches the product API; only a repeat carrying the token in
// X-Confirm-Token performs the delete. The pending token lives in
// session scratch, so it dies with the session and never confirms a
// different record than the one it was issued for.

const confirmHeader = "X-Confirm-Token"

func pendingDeleteKey(resource string) string {
	return "pending_delete:" + resource
}

// confirmDelete reports whether the caller has confirmed deleting the
// identified record. When it returns false the response has been
// written.
func (a *API) confirmDelete(w http.ResponseWriter, r *http.Request, resource, id string) bool {
	got := strings.TrimSpace(r.Header.Get(confirmHeader))
	key := pendingDeleteKey(resource)

	if got == "" {
		token := ids.New()
		a.sessions.PutScratch(r.Context(), key, token+"|"+id)
		writeJSON(w, http.StatusConflict, map[string]any{
			"confirmRequired": true,
			"confirmToken":    token,
		})
		return false
	}

	pending := a.sessions.GetScratch(r.Context(), key)
	token, pendingID, ok := strings.Cut(pending, "|")
	if !ok || token != got || pendingID != id {
		writeError(w, r, http.StatusConflict, "delete confirmation expired, request it again")
		return false
	}
	a.sessions.DeleteScratch(r.Context(), key)
	return true
}
