package auth

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/gorilla/sessions"

	"gymdash/internal/core"
	applog "gymdash/internal/log"
)

// SessionName is the cookie name.
const SessionName = "gymdash-session"

const (
	isAuthKey    = "is_authenticated"
	adminIDKey   = "admin_id"
	adminNameKey = "admin_name"
	adminMailKey = "admin_email"
)

// Session describes who is operating the dashboard. The zero value is an
// anonymous session.
type Session struct {
	AdminID string
	Name    string
	Email   string
}

// Authenticated reports whether an administrator is signed in.
func (s Session) Authenticated() bool {
	return s.AdminID != ""
}

// DisplayName returns the name, or the email when no name was given.
func (s Session) DisplayName() string {
	if s.Name != "" {
		return s.Name
	}
	return s.Email
}

// SessionOf builds the session for admin.
func SessionOf(admin core.Admin) Session {
	return Session{AdminID: admin.ID, Name: admin.Name, Email: admin.Email}
}

type ctxKey string

const sessionCtxKey ctxKey = "auth-session"

// WithSession stores s in ctx.
func WithSession(ctx context.Context, s Session) context.Context {
	return context.WithValue(ctx, sessionCtxKey, s)
}

// FromContext returns the session stored by the session middleware, or an
// anonymous one.
func FromContext(ctx context.Context) Session {
	s, _ := ctx.Value(sessionCtxKey).(Session)
	return s
}

// Manager reads and writes the session cookie.
type Manager struct {
	store  *sessions.CookieStore
	logger *applog.Logger
}

// NewManager builds a cookie store. With secure=true cookies are Secure and
// SameSite=None; otherwise SameSite=Lax so plain-http development works.
func NewManager(sessionKey string, secure bool, logger *applog.Logger) (*Manager, error) {
	if sessionKey == "" {
		return nil, fmt.Errorf("session key is empty; provide 32+ random chars")
	}
	if logger == nil {
		logger = applog.Discard()
	}
	logger = logger.WithComponent(applog.ComponentAuth)
	if len(sessionKey) < 32 {
		logger.Warn("Session key is short; 32+ chars recommended", "length", len(sessionKey))
	}

	store := sessions.NewCookieStore([]byte(sessionKey))
	store.Options = &sessions.Options{
		Path:     "/",
		MaxAge:   60 * 60 * 12,
		Secure:   secure,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	}
	if secure {
		store.Options.SameSite = http.SameSiteNoneMode
	}
	return &Manager{store: store, logger: logger}, nil
}

// Load returns the session carried by r.
func (m *Manager) Load(r *http.Request) Session {
	sess, err := m.store.Get(r, SessionName)
	if err != nil {
		return Session{}
	}
	if ok, _ := sess.Values[isAuthKey].(bool); !ok {
		return Session{}
	}
	return Session{
		AdminID: getString(sess, adminIDKey),
		Name:    getString(sess, adminNameKey),
		Email:   getString(sess, adminMailKey),
	}
}

// SignIn writes a session cookie for admin.
func (m *Manager) SignIn(w http.ResponseWriter, r *http.Request, admin core.Admin) error {
	s := SessionOf(admin)
	sess, _ := m.store.Get(r, SessionName)
	sess.Values[isAuthKey] = true
	sess.Values[adminIDKey] = s.AdminID
	sess.Values[adminNameKey] = s.Name
	sess.Values[adminMailKey] = s.Email
	if err := sess.Save(r, w); err != nil {
		return fmt.Errorf("save session: %w", err)
	}
	return nil
}

// SignOut expires the session cookie.
func (m *Manager) SignOut(w http.ResponseWriter, r *http.Request) error {
	sess, _ := m.store.Get(r, SessionName)
	sess.Values = map[interface{}]interface{}{}
	sess.Options.MaxAge = -1
	if err := sess.Save(r, w); err != nil {
		return fmt.Errorf("clear session: %w", err)
	}
	return nil
}

// LoadSession puts the request's session into its context.
func (m *Manager) LoadSession(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s := m.Load(r)
		next.ServeHTTP(w, r.WithContext(WithSession(r.Context(), s)))
	})
}

// RequireSignedIn rejects anonymous requests. API callers get a 401 JSON
// body, HTMX requests an HX-Redirect, and browsers a redirect to /login.
func RequireSignedIn(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if FromContext(r.Context()).Authenticated() {
			next.ServeHTTP(w, r)
			return
		}

		ret := url.QueryEscape(r.URL.RequestURI())
		switch {
		case strings.HasPrefix(r.URL.Path, "/api/"):
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusUnauthorized)
			_, _ = w.Write([]byte(`{"error":"unauthorized"}`))
		case r.Header.Get("HX-Request") == "true":
			w.Header().Set("HX-Redirect", "/login?return="+ret)
			w.WriteHeader(http.StatusUnauthorized)
		default:
			http.Redirect(w, r, "/login?return="+ret, http.StatusSeeOther)
		}
	})
}

func getString(s *sessions.Session, key string) string {
	if v, ok := s.Values[key].(string); ok {
		return v
	}
	return ""
}
