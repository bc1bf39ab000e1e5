package console

import (
	"net/http"

	"resumedesk.org/internal/upstream"
)

// handleOverview aggregates the product-wide counters shown on the
// landing screen.
func (a *API) handleOverview(w http.ResponseWriter, r *http.Request) {
	downloads, err := a.up.TotalDownloads(r.Context())
	if err != nil {
		a.upstreamError(w, r, err)
		return
	}
	users, err := a.up.TotalUsers(r.Context())
	if err != nil {
		a.upstreamError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"totalDownloads": downloads,
		"totalUsers":     users,
	})
}

// handlePreview sniffs an uploaded image and returns it as a data URI so
// the form can show it before anything is sent to the product API.
func (a *API) handlePreview(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(a.maxBody); err != nil {
		writeError(w, r, http.StatusBadRequest, "invalid multipart form")
		return
	}
	img, err := formFile(r, "image")
	if err != nil {
		writeError(w, r, http.StatusBadRequest, "could not read image")
		return
	}
	if img == nil {
		writeError(w, r, http.StatusBadRequest, "image file is required")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"dataUri": upstream.PreviewDataURI(*img),
	})
}
