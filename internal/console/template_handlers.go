package console

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"resumedesk.org/internal/audit"
	"resumedesk.org/internal/upstream"
)

// The toggle negates the last visibility this visit has seen, not a
// value the client sends. The snapshot is refreshed on every list read
// and updated from the server's echo after each toggle; concurrent
// editors therefore converge on last-write-wins.
const visibilityScratchKey = "template_visibility"

func (a *API) readVisibilitySnapshot(r *http.Request) map[string]bool {
	snap := map[string]bool{}
	raw := a.sessions.GetScratch(r.Context(), visibilityScratchKey)
	if raw != "" {
		_ = json.Unmarshal([]byte(raw), &snap)
	}
	return snap
}

func (a *API) writeVisibilitySnapshot(r *http.Request, snap map[string]bool) {
	data, err := json.Marshal(snap)
	if err != nil {
		return
	}
	a.sessions.PutScratch(r.Context(), visibilityScratchKey, string(data))
}

func (a *API) snapshotTemplates(r *http.Request, templates []upstream.Template) {
	snap := make(map[string]bool, len(templates))
	for _, t := range templates {
		snap[strconv.Itoa(t.TemplateNumber)] = t.IsVisible
	}
	a.writeVisibilitySnapshot(r, snap)
}

func (a *API) respondTemplateList(w http.ResponseWriter, r *http.Request) {
	templates, err := a.up.ListTemplates(r.Context())
	if err != nil {
		a.upstreamError(w, r, err)
		return
	}
	if templates == nil {
		templates = []upstream.Template{}
	}
	a.snapshotTemplates(r, templates)
	writeJSON(w, http.StatusOK, templates)
}

func (a *API) handleListTemplates(w http.ResponseWriter, r *http.Request) {
	a.respondTemplateList(w, r)
}

func templateNumber(w http.ResponseWriter, r *http.Request) (int, bool) {
	raw := chi.URLParam(r, "number")
	n, err := strconv.Atoi(raw)
	if err != nil || n <= 0 {
		writeError(w, r, http.StatusBadRequest, "invalid template number")
		return 0, false
	}
	return n, true
}

func (a *API) templateForm(w http.ResponseWriter, r *http.Request) (upstream.TemplateForm, bool) {
	if err := r.ParseMultipartForm(a.maxBody); err != nil {
		writeError(w, r, http.StatusBadRequest, "invalid multipart form")
		return upstream.TemplateForm{}, false
	}
	form := upstream.TemplateForm{Name: strings.TrimSpace(r.FormValue("name"))}
	if form.Name == "" {
		writeError(w, r, http.StatusBadRequest, "name is required")
		return upstream.TemplateForm{}, false
	}
	img, err := formFile(r, "image")
	if err != nil {
		writeError(w, r, http.StatusBadRequest, "could not read image")
		return upstream.TemplateForm{}, false
	}
	form.Image = img
	return form, true
}

func (a *API) handleCreateTemplate(w http.ResponseWriter, r *http.Request) {
	form, ok := a.templateForm(w, r)
	if !ok {
		return
	}
	if err := a.up.CreateTemplate(r.Context(), form); err != nil {
		a.upstreamError(w, r, err)
		return
	}
	_ = audit.LogEvent(r.Context(), "template.create", map[string]any{"name": form.Name})
	a.respondTemplateList(w, r)
}

func (a *API) handleUpdateTemplate(w http.ResponseWriter, r *http.Request) {
	number, ok := templateNumber(w, r)
	if !ok {
		return
	}
	form, ok := a.templateForm(w, r)
	if !ok {
		return
	}
	if err := a.up.UpdateTemplate(r.Context(), number, form); err != nil {
		a.upstreamError(w, r, err)
		return
	}
	_ = audit.LogEvent(r.Context(), "template.update", map[string]any{"number": number})
	a.respondTemplateList(w, r)
}

func (a *API) handleDeleteTemplate(w http.ResponseWriter, r *http.Request) {
	number, ok := templateNumber(w, r)
	if !ok {
		return
	}
	if !a.confirmDelete(w, r, "templates", strconv.Itoa(number)) {
		return
	}
	if err := a.up.DeleteTemplate(r.Context(), number); err != nil {
		a.upstreamError(w, r, err)
		return
	}
	_ = audit.LogEvent(r.Context(), "template.delete", map[string]any{"number": number})
	a.respondTemplateList(w, r)
}

func (a *API) handleToggleTemplate(w http.ResponseWriter, r *http.Request) {
	number, ok := templateNumber(w, r)
	if !ok {
		return
	}
	key := strconv.Itoa(number)

	snap := a.readVisibilitySnapshot(r)
	current, seen := snap[key]
	if !seen {
		templates, err := a.up.ListTemplates(r.Context())
		if err != nil {
			a.upstreamError(w, r, err)
			return
		}
		a.snapshotTemplates(r, templates)
		found := false
		for _, t := range templates {
			if t.TemplateNumber == number {
				current, found = t.IsVisible, true
				break
			}
		}
		if !found {
			writeError(w, r, http.StatusNotFound, "template not found")
			return
		}
		snap = a.readVisibilitySnapshot(r)
	}

	echoed, err := a.up.SetVisibility(r.Context(), number, !current)
	if err != nil {
		a.upstreamError(w, r, err)
		return
	}
	snap[key] = echoed.IsVisible
	a.writeVisibilitySnapshot(r, snap)

	_ = audit.LogEvent(r.Context(), "template.toggle", map[string]any{
		"number":  number,
		"visible": echoed.IsVisible,
	})
	a.respondTemplateList(w, r)
}
