// Eden - Autonomous Farm Controller
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/eden

package api

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/tomtom215/eden/internal/auth"
	"github.com/tomtom215/eden/internal/control"
	"github.com/tomtom215/eden/internal/database"
	"github.com/tomtom215/eden/internal/state"
	"github.com/tomtom215/eden/internal/websocket"
)

const (
	testUser     = "farmer"
	testPassword = "harvest-2026"
)

type fakeLoop struct{ state control.State }

func (f fakeLoop) State() control.State { return f.state }

type fixture struct {
	repo     *database.MemoryStore
	handle   *state.Handle
	hub      *websocket.Hub
	auth     *auth.Service
	sessions auth.SessionStore
	handler  *Handler
	router   http.Handler
}

type fixtureOption func(*Dependencies, *ChiMiddlewareConfig)

func newFixture(t *testing.T, opts ...fixtureOption) *fixture {
	t.Helper()

	repo := database.NewMemoryStore()
	store := auth.NewMemorySessionStore()
	f := &fixture{
		repo:     repo,
		handle:   state.NewHandle(),
		hub:      websocket.NewHub(),
		auth:     auth.NewService(repo, auth.WithBcryptCost(bcrypt.MinCost)),
		sessions: store,
	}

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	go func() { _ = f.hub.RunWithContext(ctx) }()

	deps := Dependencies{
		Repository:     repo,
		Handle:         f.handle,
		Loop:           fakeLoop{state: control.StateSleeping},
		Auth:           f.auth,
		Sessions:       auth.NewSessionMiddleware(store, nil),
		Hub:            f.hub,
		AllowedOrigins: []string{"http://farm.example"},
		Version:        "test",
	}
	mwConfig := DefaultChiMiddlewareConfig()
	for _, opt := range opts {
		opt(&deps, mwConfig)
	}

	h, err := NewHandler(deps)
	if err != nil {
		t.Fatalf("NewHandler() error = %v", err)
	}
	f.handler = h
	f.router = NewRouter(h, NewChiMiddleware(mwConfig))
	return f
}

// login registers the test user and returns a valid session cookie.
func (f *fixture) login(t *testing.T) *http.Cookie {
	t.Helper()
	ctx := context.Background()
	user, err := f.auth.Register(ctx, testUser, testPassword)
	if err != nil {
		t.Fatalf("Register() error = %v", err)
	}
	session, err := auth.NewSession(user, time.Hour)
	if err != nil {
		t.Fatalf("NewSession() error = %v", err)
	}
	if err := f.sessions.Create(ctx, session); err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	return &http.Cookie{Name: auth.SessionCookieName, Value: session.ID}
}

func (f *fixture) do(req *http.Request, cookies ...*http.Cookie) *httptest.ResponseRecorder {
	for _, c := range cookies {
		req.AddCookie(c)
	}
	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, req)
	return rec
}

func postForm(path string, values url.Values) *http.Request {
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(values.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return req
}

func responseCookie(rec *httptest.ResponseRecorder, name string) *http.Cookie {
	for _, c := range rec.Result().Cookies() {
		if c.Name == name {
			return c
		}
	}
	return nil
}

func TestNewHandlerRequiresDependencies(t *testing.T) {
	t.Parallel()

	if _, err := NewHandler(Dependencies{}); err == nil {
		t.Error("NewHandler() with no dependencies should fail")
	}
	repo := database.NewMemoryStore()
	if _, err := NewHandler(Dependencies{Repository: repo, Handle: state.NewHandle()}); err == nil {
		t.Error("NewHandler() without auth should fail")
	}
}

func TestProtectedRoutesWithoutSession(t *testing.T) {
	t.Parallel()
	f := newFixture(t)

	tests := []struct {
		name         string
		path         string
		upgrade      bool
		wantStatus   int
		wantLocation string
	}{
		{name: "dashboard redirects", path: "/", wantStatus: http.StatusSeeOther, wantLocation: auth.LoginPath},
		{name: "snapshot api", path: "/api/v1/snapshot", wantStatus: http.StatusUnauthorized},
		{name: "actions api", path: "/api/v1/actions", wantStatus: http.StatusUnauthorized},
		{name: "trend api", path: "/api/v1/trend", wantStatus: http.StatusUnauthorized},
		{name: "websocket", path: "/ws", upgrade: true, wantStatus: http.StatusUnauthorized},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			req := httptest.NewRequest(http.MethodGet, tt.path, nil)
			if tt.upgrade {
				req.Header.Set("Connection", "Upgrade")
				req.Header.Set("Upgrade", "websocket")
			}
			rec := f.do(req)
			if rec.Code != tt.wantStatus {
				t.Fatalf("status = %d, want %d", rec.Code, tt.wantStatus)
			}
			if tt.wantLocation != "" && rec.Header().Get("Location") != tt.wantLocation {
				t.Errorf("Location = %q, want %q", rec.Header().Get("Location"), tt.wantLocation)
			}
		})
	}
}

func TestPublicRoutes(t *testing.T) {
	t.Parallel()
	f := newFixture(t)

	for _, path := range []string{"/login", "/register", "/api/v1/health", "/metrics"} {
		t.Run(path, func(t *testing.T) {
			t.Parallel()
			rec := f.do(httptest.NewRequest(http.MethodGet, path, nil))
			if rec.Code != http.StatusOK {
				t.Errorf("GET %s status = %d, want 200", path, rec.Code)
			}
		})
	}
}

func TestLoginLogoutFlow(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	if _, err := f.auth.Register(context.Background(), testUser, testPassword); err != nil {
		t.Fatalf("Register() error = %v", err)
	}

	t.Run("wrong password", func(t *testing.T) {
		rec := f.do(postForm("/login", url.Values{"username": {testUser}, "password": {"not-the-password"}}))
		if rec.Code != http.StatusUnauthorized {
			t.Fatalf("status = %d, want 401", rec.Code)
		}
		if !strings.Contains(rec.Body.String(), auth.MsgInvalidCredentials) {
			t.Errorf("body missing %q", auth.MsgInvalidCredentials)
		}
		if responseCookie(rec, auth.SessionCookieName) != nil {
			t.Error("failed login must not set a session cookie")
		}
	})

	t.Run("unknown user gets the same message", func(t *testing.T) {
		rec := f.do(postForm("/login", url.Values{"username": {"nobody"}, "password": {testPassword}}))
		if rec.Code != http.StatusUnauthorized || !strings.Contains(rec.Body.String(), auth.MsgInvalidCredentials) {
			t.Errorf("status = %d, body = %s", rec.Code, rec.Body.String())
		}
	})

	rec := f.do(postForm("/login", url.Values{"username": {testUser}, "password": {testPassword}}))
	if rec.Code != http.StatusSeeOther || rec.Header().Get("Location") != "/" {
		t.Fatalf("login status = %d, Location = %q", rec.Code, rec.Header().Get("Location"))
	}
	session := responseCookie(rec, auth.SessionCookieName)
	if session == nil || session.Value == "" {
		t.Fatal("login did not set a session cookie")
	}

	rec = f.do(httptest.NewRequest(http.MethodGet, "/", nil), session)
	if rec.Code != http.StatusOK {
		t.Fatalf("dashboard status = %d, want 200", rec.Code)
	}
	body := rec.Body.String()
	if !strings.Contains(body, "No sensor data yet") || !strings.Contains(body, testUser) {
		t.Errorf("dashboard body unexpected: %s", body)
	}

	for _, path := range []string{"/login", "/register"} {
		rec = f.do(httptest.NewRequest(http.MethodGet, path, nil), session)
		if rec.Code != http.StatusSeeOther || rec.Header().Get("Location") != "/" {
			t.Errorf("logged-in GET %s status = %d, Location = %q; want 303 to /", path, rec.Code, rec.Header().Get("Location"))
		}
	}

	rec = f.do(httptest.NewRequest(http.MethodGet, "/logout", nil), session)
	if rec.Code != http.StatusSeeOther || rec.Header().Get("Location") != "/login" {
		t.Fatalf("logout status = %d, Location = %q", rec.Code, rec.Header().Get("Location"))
	}
	flash := responseCookie(rec, flashCookieName)
	if flash == nil {
		t.Fatal("logout did not set a flash cookie")
	}

	rec = f.do(httptest.NewRequest(http.MethodGet, "/login", nil), flash)
	if !strings.Contains(rec.Body.String(), MsgLoggedOut) {
		t.Errorf("login page missing flash %q", MsgLoggedOut)
	}
	if cleared := responseCookie(rec, flashCookieName); cleared == nil || cleared.MaxAge >= 0 {
		t.Error("flash cookie was not cleared after display")
	}

	rec = f.do(httptest.NewRequest(http.MethodGet, "/", nil), session)
	if rec.Code != http.StatusSeeOther {
		t.Errorf("dashboard after logout status = %d, want 303", rec.Code)
	}
}

func TestRegisterForm(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	if _, err := f.auth.Register(context.Background(), "taken", testPassword); err != nil {
		t.Fatalf("Register() error = %v", err)
	}

	tests := []struct {
		name     string
		username string
		password string
		wantMsg  string
	}{
		{name: "short password", username: "newfarmer", password: "short", wantMsg: auth.MsgPasswordTooShort},
		{name: "duplicate username", username: "taken", password: testPassword, wantMsg: auth.MsgUsernameTaken},
		{name: "empty username", username: "", password: testPassword, wantMsg: "Username is required."},
		{name: "invalid username", username: "bad name", password: testPassword, wantMsg: "Username may only contain letters"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			rec := f.do(postForm("/register", url.Values{"username": {tt.username}, "password": {tt.password}}))
			if rec.Code != http.StatusBadRequest {
				t.Fatalf("status = %d, want 400", rec.Code)
			}
			if !strings.Contains(rec.Body.String(), tt.wantMsg) {
				t.Errorf("body missing %q", tt.wantMsg)
			}
		})
	}

	t.Run("success redirects to login with flash", func(t *testing.T) {
		t.Parallel()
		rec := f.do(postForm("/register", url.Values{"username": {"newcomer"}, "password": {testPassword}}))
		if rec.Code != http.StatusSeeOther || rec.Header().Get("Location") != "/login" {
			t.Fatalf("status = %d, Location = %q", rec.Code, rec.Header().Get("Location"))
		}
		flash := responseCookie(rec, flashCookieName)
		if flash == nil {
			t.Fatal("missing flash cookie")
		}
		page := f.do(httptest.NewRequest(http.MethodGet, "/login", nil), flash)
		if !strings.Contains(page.Body.String(), MsgRegistered) {
			t.Errorf("login page missing %q", MsgRegistered)
		}
		if _, err := f.auth.Login(context.Background(), "newcomer", testPassword); err != nil {
			t.Errorf("Login() after registration error = %v", err)
		}
	})
}

func TestAuthRateLimit(t *testing.T) {
	t.Parallel()
	f := newFixture(t, func(_ *Dependencies, mw *ChiMiddlewareConfig) {
		mw.RateLimitRequests = 2
		mw.RateLimitWindow = time.Minute
	})

	form := url.Values{"username": {"nobody"}, "password": {"whatever1"}}
	for i := 0; i < 2; i++ {
		if rec := f.do(postForm("/login", form)); rec.Code != http.StatusUnauthorized {
			t.Fatalf("attempt %d status = %d, want 401", i+1, rec.Code)
		}
	}
	if rec := f.do(postForm("/login", form)); rec.Code != http.StatusTooManyRequests {
		t.Errorf("third attempt status = %d, want 429", rec.Code)
	}
	if rec := f.do(httptest.NewRequest(http.MethodGet, "/login", nil)); rec.Code != http.StatusOK {
		t.Errorf("GET /login is not rate limited, status = %d", rec.Code)
	}
}

func TestRequestIDHeader(t *testing.T) {
	t.Parallel()
	f := newFixture(t)

	rec := f.do(httptest.NewRequest(http.MethodGet, "/api/v1/health", nil))
	if rec.Header().Get("X-Request-Id") == "" {
		t.Error("response is missing a generated request id")
	}

	req := httptest.NewRequest(http.MethodGet, "/api/v1/health", nil)
	req.Header.Set("X-Request-Id", "probe-42")
	rec = f.do(req)
	if got := rec.Header().Get("X-Request-Id"); got != "probe-42" {
		t.Errorf("X-Request-Id = %q, want probe-42", got)
	}
	if !strings.Contains(rec.Body.String(), `"request_id":"probe-42"`) {
		t.Errorf("envelope missing request id: %s", rec.Body.String())
	}
}

func TestSecurityHeaders(t *testing.T) {
	t.Parallel()
	f := newFixture(t)

	page := f.do(httptest.NewRequest(http.MethodGet, "/login", nil))
	if !strings.Contains(page.Header().Get("Content-Security-Policy"), "script-src 'none'") {
		t.Errorf("page CSP = %q", page.Header().Get("Content-Security-Policy"))
	}
	api := f.do(httptest.NewRequest(http.MethodGet, "/api/v1/health", nil))
	if api.Header().Get("X-Content-Type-Options") != "nosniff" {
		t.Error("API response missing nosniff")
	}
	if api.Header().Get("Content-Type") != "application/json" {
		t.Errorf("Content-Type = %q", api.Header().Get("Content-Type"))
	}
}
