// Package console is the HTTP surface of the staff admin console. Every
// screen route is gated by the access guard, resource reads and mutations
// are proxied to the product API, and each mutation responds with the
// re-fetched authoritative list instead of a locally patched one.
package console

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"resumedesk.org/internal/guard"
	"resumedesk.org/internal/obs"
	"resumedesk.org/internal/session"
	"resumedesk.org/internal/upstream"
)

// Options tune the console surface. Zero values fall back to defaults.
type Options struct {
	Version         string
	LoginRatePerSec int
	LoginRateBurst  int
	MaxBodyBytes    int64
}

// API wires the session store and the product API client into handlers.
type API struct {
	sessions *session.Store
	up       *upstream.Client
	version  string

	loginLimiter *ipLimiter
	maxBody      int64
}

// New builds the console API.
func New(sessions *session.Store, up *upstream.Client, opts Options) *API {
	version := opts.Version
	if version == "" {
		version = "dev"
	}
	perSec, burst := opts.LoginRatePerSec, opts.LoginRateBurst
	if perSec <= 0 {
		perSec = 2
	}
	if burst <= 0 {
		burst = 5
	}
	maxBody := opts.MaxBodyBytes
	if maxBody <= 0 {
		maxBody = 10 << 20
	}
	return &API{
		sessions:     sessions,
		up:           up,
		version:      version,
		loginLimiter: newIPLimiter(perSec, burst),
		maxBody:      maxBody,
	}
}

// Handler assembles the router. The guard middleware re-evaluates access
// on every request; nothing about admission is cached.
func (a *API) Handler() http.Handler {
	r := chi.NewRouter()

	r.Use(requestID)
	r.Use(obs.Instrument)
	r.Use(logging)
	r.Use(securityHeaders)
	r.Use(maxBody(a.maxBody))
	r.Use(a.sessions.Manager().LoadAndSave)
	r.Use(a.actorContext)

	r.Get("/healthz", a.handleHealthz)
	r.Get("/readyz", a.handleReadyz)
	r.Method(http.MethodGet, "/metrics", obs.Handler())

	r.With(a.loginLimiter.middleware).Post("/login", a.handleLogin)

	r.Group(func(pr chi.Router) {
		pr.Use(a.require(guard.AnySession))

		pr.Post("/logout", a.handleLogout)
		pr.Get("/overview", a.handleOverview)
		pr.Post("/preview", a.handlePreview)

		pr.Route("/blogs", func(br chi.Router) {
			br.Get("/", a.handleListBlogs)
			br.Post("/", a.handleCreateBlog)
			br.Put("/{id}", a.handleUpdateBlog)
			br.Delete("/{id}", a.handleDeleteBlog)
		})

		pr.Route("/templates", func(tr chi.Router) {
			tr.Get("/", a.handleListTemplates)
			tr.Post("/", a.handleCreateTemplate)
			tr.Put("/{number}", a.handleUpdateTemplate)
			tr.Delete("/{number}", a.handleDeleteTemplate)
			tr.Post("/{number}/toggle", a.handleToggleTemplate)
		})
	})

	r.Group(func(sr chi.Router) {
		sr.Use(a.require(guard.SuperAdmin))

		sr.Get("/admin-management", a.handleAdminManagement)
		sr.Route("/admin-management/admins", func(ar chi.Router) {
			ar.Post("/", a.handleCreateAdmin)
			ar.Put("/{id}", a.handleUpdateAdmin)
			ar.Delete("/{id}", a.handleDeleteAdmin)
		})
	})

	return r
}

func (a *API) handleHealthz(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":  "ok",
		"service": "resumedesk-console",
		"version": a.version,
	})
}

func (a *API) handleReadyz(w http.ResponseWriter, r *http.Request) {
	if err := a.up.Ping(r.Context()); err != nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]any{
			"status": "not_ready",
			"error":  "product API unreachable",
		})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"status": "ready"})
}
