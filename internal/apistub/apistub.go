// Package apistub is an in-memory double of the remote product API. It
// implements the console's upstream contract (bearer auth, JSON admin
// CRUD, multipart blog/template CRUD, visibility partial update, metric
// counters) for local development and contract tests.
package apistub

import (
	"encoding/json"
	"net/http"
	"path"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"resumedesk.org/internal/upstream"
)

type adminRecord struct {
	ID           string
	Name         string
	Email        string
	PasswordHash string
	RoleID       string
	IsActive     bool
}

// Server holds the stub state. All access is serialized by one mutex;
// the stub favors simplicity over throughput.
type Server struct {
	secret   []byte
	tokenTTL time.Duration

	mu        sync.Mutex
	revoked   bool
	admins    []adminRecord
	roles     []upstream.Role
	blogs     []upstream.BlogPost
	templates []upstream.Template
	calls     map[string]int

	totalDownloads int64
	totalUsers     int64
}

// New seeds the stub with the starter roles, one super admin
// (root@resumedesk.org / changeme) and a few template slots.
func New(secret string) *Server {
	s := &Server{
		secret:   []byte(secret),
		tokenTTL: time.Hour,
		calls:    map[string]int{},
		roles: []upstream.Role{
			{
				ID:   uuid.NewString(),
				Name: "super_admin",
				Permissions: map[string]bool{
					"blogs":     true,
					"templates": true,
					"admins":    true,
				},
			},
			{
				ID:   uuid.NewString(),
				Name: "admin",
				Permissions: map[string]bool{
					"blogs":     true,
					"templates": true,
				},
			},
		},
		templates: []upstream.Template{
			{TemplateNumber: 1, Name: "Modern", Image: "/uploads/template1.png", IsVisible: true},
			{TemplateNumber: 2, Name: "Creative", Image: "/uploads/template2.png", IsVisible: true},
			{TemplateNumber: 3, Name: "Minimal", Image: "/uploads/template3.png", IsVisible: false},
		},
		totalDownloads: 12345,
		totalUsers:     1234,
	}
	s.MustSeedAdmin("Root", "root@resumedesk.org", "changeme", "super_admin", true)
	return s
}

// MustSeedAdmin adds an account with a bcrypt-hashed password. Panics on
// unknown role names; seeding is a startup-time operation.
func (s *Server) MustSeedAdmin(name, email, password, roleName string, active bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	role, ok := s.roleByNameLocked(roleName)
	if !ok {
		panic("apistub: unknown role " + roleName)
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	if err != nil {
		panic(err)
	}
	s.admins = append(s.admins, adminRecord{
		ID:           uuid.NewString(),
		Name:         name,
		Email:        strings.ToLower(email),
		PasswordHash: string(hash),
		RoleID:       role.ID,
		IsActive:     active,
	})
}

// RevokeTokens makes every subsequent authenticated call fail with 401,
// simulating upstream-side session expiry.
func (s *Server) RevokeTokens() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.revoked = true
}

// Calls returns how many times the named operation (e.g. "blogs.list")
// was served.
func (s *Server) Calls(name string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls[name]
}

// AdminPasswordHash exposes the stored hash so tests can assert that an
// update without a password left it untouched.
func (s *Server) AdminPasswordHash(email string) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, a := range s.admins {
		if a.Email == strings.ToLower(email) {
			return a.PasswordHash
		}
	}
	return ""
}

// Template returns the current state of a template slot.
func (s *Server) Template(number int) (upstream.Template, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, t := range s.templates {
		if t.TemplateNumber == number {
			return t, true
		}
	}
	return upstream.Template{}, false
}

func (s *Server) count(name string) {
	s.calls[name]++
}

func (s *Server) roleByNameLocked(name string) (upstream.Role, bool) {
	for _, r := range s.roles {
		if r.Name == name {
			return r, true
		}
	}
	return upstream.Role{}, false
}

func (s *Server) roleByIDLocked(id string) (upstream.Role, bool) {
	for _, r := range s.roles {
		if r.ID == id {
			return r, true
		}
	}
	return upstream.Role{}, false
}

// Handler returns the stub's HTTP surface.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()

	r.Post("/login", s.handleLogin)
	r.Get("/total-downloads", s.handleTotalDownloads)

	r.Group(func(pr chi.Router) {
		pr.Use(s.requireAuth)
		pr.Get("/api/users/total", s.handleTotalUsers)

		pr.Route("/api/admin", func(ar chi.Router) {
			ar.Get("/", s.handleListAdmins)
			ar.Post("/", s.handleCreateAdmin)
			ar.Get("/roles", s.handleListRoles)
			ar.Put("/{id}", s.handleUpdateAdmin)
			ar.Delete("/{id}", s.handleDeleteAdmin)
		})

		pr.Route("/api/blogs", func(br chi.Router) {
			br.Get("/", s.handleListBlogs)
			br.Post("/", s.handleCreateBlog)
			br.Put("/{id}", s.handleUpdateBlog)
			br.Delete("/{id}", s.handleDeleteBlog)
		})

		pr.Route("/api/templates", func(tr chi.Router) {
			tr.Get("/", s.handleListTemplates)
			tr.Post("/", s.handleCreateTemplate)
			tr.Put("/{number}", s.handleUpdateTemplate)
			tr.Delete("/{number}", s.handleDeleteTemplate)
		})
	})

	return r
}

func (s *Server) requireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		header := r.Header.Get("Authorization")
		const prefix = "Bearer "
		if !strings.HasPrefix(header, prefix) {
			writeMessage(w, http.StatusUnauthorized, "Authorization token required")
			return
		}
		s.mu.Lock()
		revoked := s.revoked
		s.mu.Unlock()
		if revoked {
			writeMessage(w, http.StatusUnauthorized, "Invalid or expired token")
			return
		}
		if _, _, err := s.parseToken(strings.TrimPrefix(header, prefix)); err != nil {
			writeMessage(w, http.StatusUnauthorized, "Invalid or expired token")
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var creds upstream.Credentials
	if err := json.NewDecoder(r.Body).Decode(&creds); err != nil {
		writeMessage(w, http.StatusBadRequest, "Malformed request body")
		return
	}

	s.mu.Lock()
	s.count("auth.login")
	var account *adminRecord
	for i := range s.admins {
		if s.admins[i].Email == strings.ToLower(strings.TrimSpace(creds.Email)) {
			account = &s.admins[i]
			break
		}
	}
	if account == nil {
		s.mu.Unlock()
		writeMessage(w, http.StatusUnauthorized, "Invalid email or password")
		return
	}
	if !account.IsActive {
		s.mu.Unlock()
		writeMessage(w, http.StatusForbidden, "Account is inactive")
		return
	}
	hash := account.PasswordHash
	role, _ := s.roleByIDLocked(account.RoleID)
	s.mu.Unlock()

	if bcrypt.CompareHashAndPassword([]byte(hash), []byte(creds.Password)) != nil {
		writeMessage(w, http.StatusUnauthorized, "Invalid email or password")
		return
	}

	token, err := s.issueToken(account.Email, role.Name)
	if err != nil {
		writeMessage(w, http.StatusInternalServerError, "Token generation failed")
		return
	}
	writeJSON(w, http.StatusOK, upstream.LoginResult{
		Token:       token,
		Role:        role.Name,
		Permissions: role.Permissions,
	})
}

func (s *Server) handleTotalDownloads(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	n := s.totalDownloads
	s.count("metrics.downloads")
	s.mu.Unlock()
	writeJSON(w, http.StatusOK, map[string]int64{"totalDownloads": n})
}

func (s *Server) handleTotalUsers(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	n := s.totalUsers
	s.count("metrics.users")
	s.mu.Unlock()
	writeJSON(w, http.StatusOK, map[string]int64{"totalUsers": n})
}

// --- admins ---

type adminPayload struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
	RoleID   string `json:"roleId"`
	IsActive bool   `json:"isActive"`
}

func (s *Server) adminViewLocked(rec adminRecord) upstream.AdminAccount {
	role, _ := s.roleByIDLocked(rec.RoleID)
	return upstream.AdminAccount{
		ID:       rec.ID,
		Name:     rec.Name,
		Email:    rec.Email,
		Role:     role,
		IsActive: rec.IsActive,
	}
}

func (s *Server) handleListAdmins(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	s.count("admins.list")
	out := make([]upstream.AdminAccount, 0, len(s.admins))
	for _, rec := range s.admins {
		out = append(out, s.adminViewLocked(rec))
	}
	s.mu.Unlock()
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleListRoles(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	s.count("admins.roles")
	out := make([]upstream.Role, len(s.roles))
	copy(out, s.roles)
	s.mu.Unlock()
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleCreateAdmin(w http.ResponseWriter, r *http.Request) {
	var payload adminPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		writeMessage(w, http.StatusBadRequest, "Malformed request body")
		return
	}
	if payload.Name == "" || payload.Email == "" || payload.Password == "" {
		writeMessage(w, http.StatusBadRequest, "Name, email and password are required")
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.count("admins.create")
	if _, ok := s.roleByIDLocked(payload.RoleID); !ok {
		writeMessage(w, http.StatusBadRequest, "Invalid role")
		return
	}
	email := strings.ToLower(payload.Email)
	for _, a := range s.admins {
		if a.Email == email {
			writeMessage(w, http.StatusBadRequest, "Email already exists")
			return
		}
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(payload.Password), bcrypt.MinCost)
	if err != nil {
		writeMessage(w, http.StatusInternalServerError, "Hash failure")
		return
	}
	rec := adminRecord{
		ID:           uuid.NewString(),
		Name:         payload.Name,
		Email:        email,
		PasswordHash: string(hash),
		RoleID:       payload.RoleID,
		IsActive:     payload.IsActive,
	}
	s.admins = append(s.admins, rec)
	writeJSON(w, http.StatusCreated, s.adminViewLocked(rec))
}

func (s *Server) handleUpdateAdmin(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	var payload adminPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		writeMessage(w, http.StatusBadRequest, "Malformed request body")
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.count("admins.update")
	for i := range s.admins {
		if s.admins[i].ID != id {
			continue
		}
		if _, ok := s.roleByIDLocked(payload.RoleID); !ok {
			writeMessage(w, http.StatusBadRequest, "Invalid role")
			return
		}
		email := strings.ToLower(payload.Email)
		for _, other := range s.admins {
			if other.ID != id && other.Email == email {
				writeMessage(w, http.StatusBadRequest, "Email already exists")
				return
			}
		}
		s.admins[i].Name = payload.Name
		s.admins[i].Email = email
		s.admins[i].RoleID = payload.RoleID
		s.admins[i].IsActive = payload.IsActive
		// Absent password means leave the stored hash unchanged.
		if payload.Password != "" {
			hash, err := bcrypt.GenerateFromPassword([]byte(payload.Password), bcrypt.MinCost)
			if err != nil {
				writeMessage(w, http.StatusInternalServerError, "Hash failure")
				return
			}
			s.admins[i].PasswordHash = string(hash)
		}
		writeJSON(w, http.StatusOK, s.adminViewLocked(s.admins[i]))
		return
	}
	writeMessage(w, http.StatusNotFound, "Admin not found")
}

func (s *Server) handleDeleteAdmin(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	s.mu.Lock()
	defer s.mu.Unlock()
	s.count("admins.delete")
	for i := range s.admins {
		if s.admins[i].ID == id {
			s.admins = append(s.admins[:i], s.admins[i+1:]...)
			writeJSON(w, http.StatusOK, map[string]string{"message": "Admin deleted"})
			return
		}
	}
	writeMessage(w, http.StatusNotFound, "Admin not found")
}

// --- blogs ---

func (s *Server) handleListBlogs(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	s.count("blogs.list")
	out := make([]upstream.BlogPost, len(s.blogs))
	copy(out, s.blogs)
	s.mu.Unlock()
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleCreateBlog(w http.ResponseWriter, r *http.Request) {
	title, description, image, err := parseBlogForm(r)
	if err != nil {
		writeMessage(w, http.StatusBadRequest, err.Error())
		return
	}
	if title == "" {
		writeMessage(w, http.StatusBadRequest, "Title is required")
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.count("blogs.create")
	post := upstream.BlogPost{
		ID:          uuid.NewString(),
		Title:       title,
		Description: description,
		Image:       image,
	}
	s.blogs = append(s.blogs, post)
	writeJSON(w, http.StatusCreated, post)
}

func (s *Server) handleUpdateBlog(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	title, description, image, err := parseBlogForm(r)
	if err != nil {
		writeMessage(w, http.StatusBadRequest, err.Error())
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.count("blogs.update")
	for i := range s.blogs {
		if s.blogs[i].ID != id {
			continue
		}
		s.blogs[i].Title = title
		s.blogs[i].Description = description
		// No new file uploaded: the stored image is retained.
		if image != "" {
			s.blogs[i].Image = image
		}
		writeJSON(w, http.StatusOK, s.blogs[i])
		return
	}
	writeMessage(w, http.StatusNotFound, "Blog not found")
}

func (s *Server) handleDeleteBlog(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	s.mu.Lock()
	defer s.mu.Unlock()
	s.count("blogs.delete")
	for i := range s.blogs {
		if s.blogs[i].ID == id {
			s.blogs = append(s.blogs[:i], s.blogs[i+1:]...)
			writeJSON(w, http.StatusOK, map[string]string{"message": "Blog deleted"})
			return
		}
	}
	writeMessage(w, http.StatusNotFound, "Blog not found")
}

// --- templates ---

func (s *Server) handleListTemplates(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	s.count("templates.list")
	out := make([]upstream.Template, len(s.templates))
	copy(out, s.templates)
	s.mu.Unlock()
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleCreateTemplate(w http.ResponseWriter, r *http.Request) {
	name, image, err := parseTemplateForm(r)
	if err != nil {
		writeMessage(w, http.StatusBadRequest, err.Error())
		return
	}
	if name == "" {
		writeMessage(w, http.StatusBadRequest, "Name is required")
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.count("templates.create")
	next := 1
	for _, t := range s.templates {
		if t.TemplateNumber >= next {
			next = t.TemplateNumber + 1
		}
	}
	tpl := upstream.Template{
		TemplateNumber: next,
		Name:           name,
		Image:          image,
		IsVisible:      false,
	}
	s.templates = append(s.templates, tpl)
	writeJSON(w, http.StatusCreated, tpl)
}

func (s *Server) handleUpdateTemplate(w http.ResponseWriter, r *http.Request) {
	number, err := strconv.Atoi(chi.URLParam(r, "number"))
	if err != nil {
		writeMessage(w, http.StatusBadRequest, "Invalid template number")
		return
	}

	// A JSON body with only isVisible is the dedicated visibility toggle;
	// multipart bodies are full edits.
	if strings.HasPrefix(r.Header.Get("Content-Type"), "application/json") {
		var update struct {
			IsVisible bool `json:"isVisible"`
		}
		if err := json.NewDecoder(r.Body).Decode(&update); err != nil {
			writeMessage(w, http.StatusBadRequest, "Malformed request body")
			return
		}
		s.mu.Lock()
		defer s.mu.Unlock()
		s.count("templates.toggle")
		for i := range s.templates {
			if s.templates[i].TemplateNumber == number {
				s.templates[i].IsVisible = update.IsVisible
				writeJSON(w, http.StatusOK, s.templates[i])
				return
			}
		}
		writeMessage(w, http.StatusNotFound, "Template not found")
		return
	}

	name, image, err := parseTemplateForm(r)
	if err != nil {
		writeMessage(w, http.StatusBadRequest, err.Error())
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.count("templates.update")
	for i := range s.templates {
		if s.templates[i].TemplateNumber != number {
			continue
		}
		s.templates[i].Name = name
		if image != "" {
			s.templates[i].Image = image
		}
		writeJSON(w, http.StatusOK, s.templates[i])
		return
	}
	writeMessage(w, http.StatusNotFound, "Template not found")
}

func (s *Server) handleDeleteTemplate(w http.ResponseWriter, r *http.Request) {
	number, err := strconv.Atoi(chi.URLParam(r, "number"))
	if err != nil {
		writeMessage(w, http.StatusBadRequest, "Invalid template number")
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.count("templates.delete")
	for i := range s.templates {
		if s.templates[i].TemplateNumber == number {
			s.templates = append(s.templates[:i], s.templates[i+1:]...)
			writeJSON(w, http.StatusOK, map[string]string{"message": "Template deleted"})
			return
		}
	}
	writeMessage(w, http.StatusNotFound, "Template not found")
}

// --- helpers ---

const maxUploadMemory = 8 << 20

func parseBlogForm(r *http.Request) (title, description, image string, err error) {
	if err := r.ParseMultipartForm(maxUploadMemory); err != nil {
		return "", "", "", err
	}
	title = strings.TrimSpace(r.FormValue("title"))
	description = strings.TrimSpace(r.FormValue("description"))
	image = storedImagePath(r, "blog")
	return title, description, image, nil
}

func parseTemplateForm(r *http.Request) (name, image string, err error) {
	if err := r.ParseMultipartForm(maxUploadMemory); err != nil {
		return "", "", err
	}
	name = strings.TrimSpace(r.FormValue("name"))
	image = storedImagePath(r, "template")
	return name, image, nil
}

// storedImagePath pretends to persist the upload and returns the
// server-relative path a real API would hand back. Empty when no file
// part was sent.
func storedImagePath(r *http.Request, kind string) string {
	_, hdr, err := r.FormFile("image")
	if err != nil {
		return ""
	}
	ext := path.Ext(hdr.Filename)
	if ext == "" {
		ext = ".png"
	}
	return "/uploads/" + kind + "-" + uuid.NewString() + ext
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func writeMessage(w http.ResponseWriter, code int, msg string) {
	writeJSON(w, code, map[string]string{"message": msg})
}
