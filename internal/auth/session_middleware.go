// Eden - Autonomous Farm Controller
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/eden

package auth

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/tomtom215/eden/internal/logging"
	"github.com/tomtom215/eden/internal/models"
)

// SessionCookieName is the dashboard session cookie.
const SessionCookieName = "eden_session"

// LoginPath is where RequireAuth sends unauthenticated browsers.
const LoginPath = "/login"

type contextKey string

const sessionContextKey contextKey = "eden_session"

// SessionMiddlewareConfig configures the session cookie.
type SessionMiddlewareConfig struct {
	CookieName     string
	SessionTTL     time.Duration
	SlidingSession bool
	CookiePath     string
	CookieSecure   bool
	CookieSameSite http.SameSite
}

// DefaultSessionMiddlewareConfig returns the dashboard defaults.
func DefaultSessionMiddlewareConfig() *SessionMiddlewareConfig {
	return &SessionMiddlewareConfig{
		CookieName:     SessionCookieName,
		SessionTTL:     24 * time.Hour,
		SlidingSession: true,
		CookiePath:     "/",
		CookieSameSite: http.SameSiteLaxMode,
	}
}

// SessionMiddleware issues and validates session cookies.
type SessionMiddleware struct {
	store  SessionStore
	config *SessionMiddlewareConfig
}

// NewSessionMiddleware creates the middleware. A nil config uses defaults.
func NewSessionMiddleware(store SessionStore, config *SessionMiddlewareConfig) *SessionMiddleware {
	if config == nil {
		config = DefaultSessionMiddlewareConfig()
	}
	if config.CookieName == "" {
		config.CookieName = SessionCookieName
	}
	if config.SessionTTL <= 0 {
		config.SessionTTL = 24 * time.Hour
	}
	if config.CookiePath == "" {
		config.CookiePath = "/"
	}
	return &SessionMiddleware{store: store, config: config}
}

// SessionFromContext returns the session Authenticate attached, or nil.
func SessionFromContext(ctx context.Context) *Session {
	s, _ := ctx.Value(sessionContextKey).(*Session)
	return s
}

// Authenticate attaches the session named by the cookie to the request
// context. Requests without a valid session pass through unchanged.
func (m *SessionMiddleware) Authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		cookie, err := r.Cookie(m.config.CookieName)
		if err != nil || cookie.Value == "" {
			next.ServeHTTP(w, r)
			return
		}

		session, err := m.store.Get(r.Context(), cookie.Value)
		if err != nil {
			if !errors.Is(err, ErrSessionNotFound) && !errors.Is(err, ErrSessionExpired) {
				logging.Ctx(r.Context()).Error().Err(err).Msg("Session lookup error")
			}
			next.ServeHTTP(w, r)
			return
		}

		if m.config.SlidingSession {
			if err := m.store.Touch(r.Context(), session.ID, time.Now().Add(m.config.SessionTTL)); err != nil {
				logging.Ctx(r.Context()).Warn().Err(err).Msg("Failed to touch session")
			}
		}

		ctx := context.WithValue(r.Context(), sessionContextKey, session)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// RequireAuth rejects requests without a session. Browsers are redirected
// to the login page; API and websocket clients get 401.
func (m *SessionMiddleware) RequireAuth(next http.Handler) http.Handler {
	return m.Authenticate(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if SessionFromContext(r.Context()) != nil {
			next.ServeHTTP(w, r)
			return
		}
		if wantsRedirect(r) {
			http.Redirect(w, r, LoginPath, http.StatusSeeOther)
			return
		}
		http.Error(w, "Unauthorized: authentication required", http.StatusUnauthorized)
	}))
}

// wantsRedirect reports whether r looks like a browser page load.
func wantsRedirect(r *http.Request) bool {
	if strings.HasPrefix(r.URL.Path, "/api/") || r.Header.Get("Upgrade") != "" {
		return false
	}
	return r.Method == http.MethodGet || r.Method == http.MethodHead
}

// CreateSession stores a fresh session for user and sets the cookie. Any
// session named by oldSessionID is deleted first.
func (m *SessionMiddleware) CreateSession(ctx context.Context, w http.ResponseWriter, user *models.UserAccount, oldSessionID string) (*Session, error) {
	if oldSessionID != "" {
		if err := m.store.Delete(ctx, oldSessionID); err != nil {
			logging.Ctx(ctx).Warn().Err(err).Msg("Failed to delete previous session")
		}
	}

	session, err := NewSession(user, m.config.SessionTTL)
	if err != nil {
		return nil, err
	}
	if err := m.store.Create(ctx, session); err != nil {
		return nil, err
	}
	m.setCookie(w, session.ID, int(m.config.SessionTTL.Seconds()))
	return session, nil
}

// DestroySession deletes the session and clears the cookie.
func (m *SessionMiddleware) DestroySession(ctx context.Context, w http.ResponseWriter, sessionID string) error {
	m.setCookie(w, "", -1)
	if sessionID == "" {
		return nil
	}
	return m.store.Delete(ctx, sessionID)
}

// SessionIDFromRequest returns the raw cookie value, if any.
func (m *SessionMiddleware) SessionIDFromRequest(r *http.Request) string {
	cookie, err := r.Cookie(m.config.CookieName)
	if err != nil {
		return ""
	}
	return cookie.Value
}

func (m *SessionMiddleware) setCookie(w http.ResponseWriter, value string, maxAge int) {
	http.SetCookie(w, &http.Cookie{
		Name:     m.config.CookieName,
		Value:    value,
		Path:     m.config.CookiePath,
		MaxAge:   maxAge,
		Secure:   m.config.CookieSecure,
		HttpOnly: true,
		SameSite: m.config.CookieSameSite,
	})
}
