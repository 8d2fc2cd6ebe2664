package handlers

import (
	"bytes"
	"html/template"
	"net/http"

	"github.com/gorilla/csrf"

	"github.com/shindakun/areagate/internal/i18n"
	"github.com/shindakun/areagate/internal/models"
)

// TemplateData holds common data passed to templates
type TemplateData struct {
	Title        string
	Language     string
	Messages     []models.FlashMessage
	Translations i18n.Table
	Session      *models.Session
	Action       string // Form target of the login page
	LogoutURL    string
	Status       int
	Error        string
	Version      string
	CSRFToken    string // CSRF token for forms
	CSRFField    string
}

// templateFuncs returns custom template functions
func templateFuncs() template.FuncMap {
	return template.FuncMap{
		"t": func(table i18n.Table, namespace, key string) string {
			return table.Get(namespace, key)
		},
	}
}

// renderTemplate renders a page inside the base layout. The page is executed
// into a buffer first so a template error never leaves a half written body.
func (h *Handlers) renderTemplate(w http.ResponseWriter, r *http.Request, status int, page string, data TemplateData) error {
	data.CSRFToken = csrf.Token(r)
	data.CSRFField = h.csrfField
	data.Version = h.version

	tmpl, err := template.New("").Funcs(templateFuncs()).ParseFS(h.templates,
		"layouts/base.html",
		"pages/"+page+".html",
	)
	if err != nil {
		return err
	}

	var buf bytes.Buffer
	if err := tmpl.ExecuteTemplate(&buf, "base", data); err != nil {
		return err
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, err = buf.WriteTo(w)
	return err
}
