package console

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"resumedesk.org/internal/audit"
	"resumedesk.org/internal/upstream"
)

func (a *API) respondBlogList(w http.ResponseWriter, r *http.Request) {
	blogs, err := a.up.ListBlogs(r.Context())
	if err != nil {
		a.upstreamError(w, r, err)
		return
	}
	if blogs == nil {
		blogs = []upstream.BlogPost{}
	}
	writeJSON(w, http.StatusOK, blogs)
}

func (a *API) handleListBlogs(w http.ResponseWriter, r *http.Request) {
	a.respondBlogList(w, r)
}

func (a *API) blogForm(w http.ResponseWriter, r *http.Request) (upstream.BlogForm, bool) {
	if err := r.ParseMultipartForm(a.maxBody); err != nil {
		writeError(w, r, http.StatusBadRequest, "invalid multipart form")
		return upstream.BlogForm{}, false
	}
	form := upstream.BlogForm{
		Title:       strings.TrimSpace(r.FormValue("title")),
		Description: strings.TrimSpace(r.FormValue("description")),
	}
	if form.Title == "" || form.Description == "" {
		writeError(w, r, http.StatusBadRequest, "title and description are required")
		return upstream.BlogForm{}, false
	}
	img, err := formFile(r, "image")
	if err != nil {
		writeError(w, r, http.StatusBadRequest, "could not read image")
		return upstream.BlogForm{}, false
	}
	form.Image = img
	return form, true
}

func (a *API) handleCreateBlog(w http.ResponseWriter, r *http.Request) {
	form, ok := a.blogForm(w, r)
	if !ok {
		return
	}
	if err := a.up.CreateBlog(r.Context(), form); err != nil {
		a.upstreamError(w, r, err)
		return
	}
	_ = audit.LogEvent(r.Context(), "blog.create", map[string]any{"title": form.Title})
	a.respondBlogList(w, r)
}

func (a *API) handleUpdateBlog(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	form, ok := a.blogForm(w, r)
	if !ok {
		return
	}
	if err := a.up.UpdateBlog(r.Context(), id, form); err != nil {
		a.upstreamError(w, r, err)
		return
	}
	_ = audit.LogEvent(r.Context(), "blog.update", map[string]any{"id": id})
	a.respondBlogList(w, r)
}

func (a *API) handleDeleteBlog(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if !a.confirmDelete(w, r, "blogs", id) {
		return
	}
	if err := a.up.DeleteBlog(r.Context(), id); err != nil {
		a.upstreamError(w, r, err)
		return
	}
	_ = audit.LogEvent(r.Context(), "blog.delete", map[string]any{"id": id})
	a.respondBlogList(w, r)
}
