// Eden - Autonomous Farm Controller
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/eden

package api

import (
	"errors"
	"net/http"
	"net/url"

	"github.com/tomtom215/eden/internal/auth"
	"github.com/tomtom215/eden/internal/control"
	"github.com/tomtom215/eden/internal/logging"
)

const (
	flashCookieName = "eden_flash"

	// MsgRegistered is flashed on the login page after registration.
	MsgRegistered = "Registration successful. Please log in."
	// MsgLoggedOut is flashed on the login page after logout.
	MsgLoggedOut = "You have been logged out."

	msgTryAgain = "Something went wrong. Please try again."

	// maxFormBytes bounds login and register bodies.
	maxFormBytes = 4 << 10
)

// Dashboard renders the current snapshot, or the repository fallback
// before the first cycle completes.
func (h *Handler) Dashboard(w http.ResponseWriter, r *http.Request) {
	session := auth.SessionFromContext(r.Context())

	snap, err := control.GetCurrentOrFallback(r.Context(), h.handle, h.repo, h.trendWindow)
	if err != nil {
		logging.Ctx(r.Context()).Error().Err(err).Msg("Failed to build dashboard snapshot")
		http.Error(w, "Farm data is temporarily unavailable.", http.StatusServiceUnavailable)
		return
	}

	page := dashboardPage{
		Title:    "Dashboard",
		Snapshot: snap,
		Empty:    snap.Reading == nil,
	}
	if session != nil {
		page.Username = session.Username
	}
	h.render(w, r, http.StatusOK, pageDashboard, page)
}

// LoginPage renders the login form with any pending flash message.
func (h *Handler) LoginPage(w http.ResponseWriter, r *http.Request) {
	if auth.SessionFromContext(r.Context()) != nil {
		http.Redirect(w, r, "/", http.StatusSeeOther)
		return
	}
	h.render(w, r, http.StatusOK, pageLogin, formPage{Title: "Log in", Flash: popFlash(w, r)})
}

// Login verifies the submitted credentials and starts a session.
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxFormBytes)
	if err := r.ParseForm(); err != nil {
		h.render(w, r, http.StatusBadRequest, pageLogin, formPage{Title: "Log in", Error: auth.MsgInvalidCredentials})
		return
	}
	username := r.PostForm.Get("username")
	password := r.PostForm.Get("password")

	user, err := h.auth.Login(r.Context(), username, password)
	switch {
	case errors.Is(err, auth.ErrInvalidCredentials):
		h.render(w, r, http.StatusUnauthorized, pageLogin, formPage{
			Title:    "Log in",
			Error:    auth.MsgInvalidCredentials,
			Username: username,
		})
		return
	case err != nil:
		logging.Ctx(r.Context()).Error().Err(err).Msg("Login failed")
		h.render(w, r, http.StatusInternalServerError, pageLogin, formPage{Title: "Log in", Error: msgTryAgain})
		return
	}

	if _, err := h.sessions.CreateSession(r.Context(), w, user, h.sessions.SessionIDFromRequest(r)); err != nil {
		logging.Ctx(r.Context()).Error().Err(err).Msg("Failed to create session")
		h.render(w, r, http.StatusInternalServerError, pageLogin, formPage{Title: "Log in", Error: msgTryAgain})
		return
	}

	logging.Ctx(r.Context()).Info().Str("username", user.Username).Msg("User logged in")
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

// RegisterPage renders the registration form. Logged-in users go to the
// dashboard.
func (h *Handler) RegisterPage(w http.ResponseWriter, r *http.Request) {
	if auth.SessionFromContext(r.Context()) != nil {
		http.Redirect(w, r, "/", http.StatusSeeOther)
		return
	}
	h.render(w, r, http.StatusOK, pageRegister, formPage{Title: "Register", Flash: popFlash(w, r)})
}

// Register creates an account and sends the user to the login page.
func (h *Handler) Register(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxFormBytes)
	if err := r.ParseForm(); err != nil {
		h.render(w, r, http.StatusBadRequest, pageRegister, formPage{Title: "Register", Error: msgTryAgain})
		return
	}
	username := r.PostForm.Get("username")
	password := r.PostForm.Get("password")

	_, err := h.auth.Register(r.Context(), username, password)
	var verr *auth.ValidationError
	switch {
	case errors.As(err, &verr):
		h.render(w, r, http.StatusBadRequest, pageRegister, formPage{
			Title:    "Register",
			Error:    verr.Message,
			Username: username,
		})
		return
	case err != nil:
		logging.Ctx(r.Context()).Error().Err(err).Msg("Registration failed")
		h.render(w, r, http.StatusInternalServerError, pageRegister, formPage{Title: "Register", Error: msgTryAgain})
		return
	}

	setFlash(w, MsgRegistered)
	http.Redirect(w, r, "/login", http.StatusSeeOther)
}

// Logout ends the session and returns to the login page.
func (h *Handler) Logout(w http.ResponseWriter, r *http.Request) {
	if err := h.sessions.DestroySession(r.Context(), w, h.sessions.SessionIDFromRequest(r)); err != nil {
		logging.Ctx(r.Context()).Warn().Err(err).Msg("Failed to delete session on logout")
	}
	setFlash(w, MsgLoggedOut)
	http.Redirect(w, r, "/login", http.StatusSeeOther)
}

func setFlash(w http.ResponseWriter, message string) {
	http.SetCookie(w, &http.Cookie{
		Name:     flashCookieName,
		Value:    url.QueryEscape(message),
		Path:     "/",
		MaxAge:   60,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
}

// popFlash returns the pending flash message and clears it.
func popFlash(w http.ResponseWriter, r *http.Request) string {
	cookie, err := r.Cookie(flashCookieName)
	if err != nil {
		return ""
	}
	http.SetCookie(w, &http.Cookie{
		Name:     flashCookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
	message, err := url.QueryUnescape(cookie.Value)
	if err != nil {
		return ""
	}
	return message
}
