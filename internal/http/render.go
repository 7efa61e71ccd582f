package http

import (
	"bytes"
	"fmt"
	"html/template"
	"io/fs"
	"net/http"
	"path"

	"github.com/shopspring/decimal"

	"portfel/internal/core"
	plog "portfel/internal/log"
	"portfel/internal/services"
)

const layoutTemplate = "templates/layout.html"

var hundred = decimal.NewFromInt(100)

var templateFuncs = template.FuncMap{
	"money": func(d decimal.Decimal) string { return core.FormatAmount(d) },
	"negative": func(d decimal.Decimal) bool {
		return d.IsNegative()
	},
	"signed": func(kind core.Kind, d decimal.Decimal) string {
		return core.FormatAmount(core.Effect(kind, d))
	},
}

// loadTemplates parses every page together with the shared layout. Each page
// defines "title" and "content"; the layout is executed as "layout".
func loadTemplates(fsys fs.FS) (map[string]*template.Template, error) {
	pages, err := fs.Glob(fsys, "templates/*.html")
	if err != nil {
		return nil, err
	}
	out := make(map[string]*template.Template, len(pages))
	for _, p := range pages {
		if p == layoutTemplate {
			continue
		}
		t, err := template.New(path.Base(p)).Funcs(templateFuncs).ParseFS(fsys, layoutTemplate, p)
		if err != nil {
			return nil, fmt.Errorf("parse %s: %w", p, err)
		}
		out[path.Base(p)] = t
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("no page templates found")
	}
	return out, nil
}

// page is the data every template receives.
type page struct {
	Flash    *Flash
	LoggedIn bool
	Actor    services.Actor
	Data     any
}

// render executes a page into a buffer first so template errors never leave
// a half-written response behind.
func (s *Server) render(w http.ResponseWriter, r *http.Request, name string, data any) {
	t, ok := s.templates[name]
	if !ok {
		s.serverError(w, r, "render", fmt.Errorf("unknown template %q", name))
		return
	}

	p := page{Flash: takeFlash(w, r), Data: data}
	if a, ok := actorFrom(r.Context()); ok {
		p.LoggedIn = true
		p.Actor = a
	}

	var buf bytes.Buffer
	if err := t.ExecuteTemplate(&buf, "layout", p); err != nil {
		plog.FromContext(r.Context()).WithComponent(plog.ComponentTemplate).ErrorContext(r.Context(), "Template execution failed",
			plog.FieldError, err,
			"template", name)
		http.Error(w, "Something went wrong.", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = buf.WriteTo(w)
}

// redirect starts a post/redirect/get answer carrying the cookie settings of
// this server.
func (s *Server) redirect(location string) *RedirectBuilder {
	return Redirect(location).Secure(s.config.SecureCookies)
}

// serverError logs an unexpected failure and answers with a generic 500.
func (s *Server) serverError(w http.ResponseWriter, r *http.Request, op string, err error) {
	plog.FromContext(r.Context()).ErrorContext(r.Context(), "Request failed",
		plog.FieldOperation, op, plog.FieldError, err)
	ErrorPage(w, http.StatusInternalServerError, "Something went wrong. Please try again.")
}

// logLedger records a successful balance mutation.
func logLedger(r *http.Request, op string, t core.Transaction) {
	fields := plog.NewFields().
		WithOperation(op).
		WithLedger(t.SubBudgetID, string(t.Kind), core.FormatAmount(t.Amount))
	plog.FromContext(r.Context()).InfoContext(r.Context(), "Ledger updated", fields.ToSlice()...)
}

// fail answers a failed form post. Errors the user can fix are flashed on a
// redirect back to location; anything else is logged and flashed generically.
func (s *Server) fail(w http.ResponseWriter, r *http.Request, location, op string, err error) {
	if services.IsUserError(err) {
		s.redirect(location).Error(userMessage(err)).Write(w, r)
		return
	}
	plog.FromContext(r.Context()).ErrorContext(r.Context(), "Form action failed",
		plog.FieldOperation, op, plog.FieldError, err)
	s.redirect(location).Error("Something went wrong. Please try again.").Write(w, r)
}
