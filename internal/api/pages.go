// Eden - Autonomous Farm Controller
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/eden

package api

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"net/http"
	"time"

	"github.com/tomtom215/eden/internal/logging"
	"github.com/tomtom215/eden/internal/models"
)

//go:embed templates/*.html
var templateFS embed.FS

const (
	pageDashboard = "dashboard"
	pageLogin     = "login"
	pageRegister  = "register"
)

// pageSet maps a page name to the layout combined with that page.
type pageSet map[string]*template.Template

var pageFuncs = template.FuncMap{
	"when": func(t time.Time) string {
		if t.IsZero() {
			return "-"
		}
		return t.UTC().Format("2006-01-02 15:04:05 UTC")
	},
	"fixed1": func(v float64) string { return fmt.Sprintf("%.1f", v) },
	"fixed2": func(v float64) string { return fmt.Sprintf("%.2f", v) },
}

func parsePages() (pageSet, error) {
	pages := make(pageSet, 3)
	for _, name := range []string{pageDashboard, pageLogin, pageRegister} {
		tmpl, err := template.New("layout.html").Funcs(pageFuncs).
			ParseFS(templateFS, "templates/layout.html", "templates/"+name+".html")
		if err != nil {
			return nil, fmt.Errorf("parse %s template: %w", name, err)
		}
		pages[name] = tmpl
	}
	return pages, nil
}

// formPage is the data for the login and register pages.
type formPage struct {
	Title    string
	Flash    string
	Error    string
	Username string
}

// dashboardPage is the data for the dashboard.
type dashboardPage struct {
	Title    string
	Username string
	Snapshot *models.Snapshot
	Empty    bool
}

// render executes the page into a buffer first so a template error never
// leaves a half-written response.
func (h *Handler) render(w http.ResponseWriter, r *http.Request, status int, page string, data any) {
	tmpl, ok := h.pages[page]
	if !ok {
		logging.Ctx(r.Context()).Error().Str("page", page).Msg("Unknown page template")
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		logging.Ctx(r.Context()).Error().Err(err).Str("page", page).Msg("Failed to render page")
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	if _, err := buf.WriteTo(w); err != nil {
		logging.Ctx(r.Context()).Debug().Err(err).Msg("Failed to write page")
	}
}
