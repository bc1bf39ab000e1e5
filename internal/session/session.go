package session

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/alexedwards/scs/v2"
)

// Staff roles known to the console.
const (
	RoleAdmin      = "admin"
	RoleSuperAdmin = "super_admin"
)

// ErrIncomplete is returned when a write would store a token without a role
// or vice versa.
var ErrIncomplete = errors.New("session: token and role must be set together")

// Session is the authenticated staff principal held for a browser visit.
type Session struct {
	Token       string          `json:"token"`
	Email       string          `json:"email"`
	Role        string          `json:"role"`
	Permissions map[string]bool `json:"permissions,omitempty"`
}

// Valid reports whether the session satisfies the token-implies-role invariant.
func (s Session) Valid() bool {
	return strings.TrimSpace(s.Token) != "" && strings.TrimSpace(s.Role) != ""
}

// IsSuperAdmin reports whether the principal holds the super_admin role.
func (s Session) IsSuperAdmin() bool {
	return s.Role == RoleSuperAdmin
}

// Can reports whether the principal carries the named capability.
func (s Session) Can(perm string) bool {
	return s.Permissions[perm]
}

const sessionKey = "console_session"

// Store persists the staff session in a cookie-backed scs session. The
// token/role pair is written and cleared only through Set and Clear; every
// reader goes through Read, which tolerates missing or malformed data.
type Store struct {
	manager *scs.SessionManager
}

// NewStore builds a session store. A nil backing keeps sessions in process
// memory; pass an scs.Store (e.g. goredisstore) to survive restarts.
func NewStore(lifetime time.Duration, secureCookies bool, backing scs.Store) *Store {
	m := scs.New()
	if backing != nil {
		m.Store = backing
	}
	if lifetime > 0 {
		m.Lifetime = lifetime
	}
	m.Cookie.HttpOnly = true
	m.Cookie.SameSite = http.SameSiteLaxMode
	m.Cookie.Secure = secureCookies
	return &Store{manager: m}
}

// Manager exposes the scs manager for the LoadAndSave middleware.
func (st *Store) Manager() *scs.SessionManager {
	return st.manager
}

// Set stores the session as a single JSON blob under one key, so a reader
// can never observe a token without its role. The scs token is renewed to
// defeat session fixation.
func (st *Store) Set(ctx context.Context, sess Session) error {
	if !sess.Valid() {
		return ErrIncomplete
	}
	data, err := json.Marshal(sess)
	if err != nil {
		return err
	}
	if err := st.manager.RenewToken(ctx); err != nil {
		return err
	}
	st.manager.Put(ctx, sessionKey, string(data))
	return nil
}

// Read returns the current session. Absent, malformed or incomplete data
// reads as logged out rather than surfacing a partial session.
func (st *Store) Read(ctx context.Context) (Session, bool) {
	raw := st.manager.GetString(ctx, sessionKey)
	if raw == "" {
		return Session{}, false
	}
	var sess Session
	if err := json.Unmarshal([]byte(raw), &sess); err != nil {
		return Session{}, false
	}
	if !sess.Valid() {
		return Session{}, false
	}
	return sess, true
}

// Token returns the bearer token for upstream calls, empty when logged out.
func (st *Store) Token(ctx context.Context) string {
	sess, ok := st.Read(ctx)
	if !ok {
		return ""
	}
	return sess.Token
}

// Clear destroys the session and all per-visit scratch state. Idempotent.
func (st *Store) Clear(ctx context.Context) error {
	st.manager.Remove(ctx, sessionKey)
	return st.manager.Destroy(ctx)
}

const scratchPrefix = "scratch:"

// PutScratch stores per-visit view state (pending delete confirmations,
// the last seen template visibility) next to the session blob.
func (st *Store) PutScratch(ctx context.Context, key, value string) {
	st.manager.Put(ctx, scratchPrefix+key, value)
}

// GetScratch returns previously stored view state, empty when absent.
func (st *Store) GetScratch(ctx context.Context, key string) string {
	return st.manager.GetString(ctx, scratchPrefix+key)
}

// DeleteScratch removes one view-state entry.
func (st *Store) DeleteScratch(ctx context.Context, key string) {
	st.manager.Remove(ctx, scratchPrefix+key)
}
