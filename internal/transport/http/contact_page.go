package http

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/shopspring/decimal"

	"sitekit/internal/forms"
	"sitekit/internal/rest"
	"sitekit/internal/services"
	"sitekit/internal/templates"
	api "sitekit/pkg/contracts/api/v1"
)

// ContactPage serves the server-rendered contact form. The template
// receives the bound form under "Form"; fields that fail validation
// get their error class from the store's form decorator.
type ContactPage struct {
	contacts *services.ContactService
	store    *templates.Store
	logger   *slog.Logger
}

// NewContactPage creates the contact page handler.
func NewContactPage(contacts *services.ContactService, store *templates.Store, logger *slog.Logger) *ContactPage {
	if logger == nil {
		logger = slog.Default()
	}
	return &ContactPage{
		contacts: contacts,
		store:    store,
		logger:   logger.With(slog.String("handler", "contact_page")),
	}
}

func contactForm() *forms.Form {
	return forms.New(
		forms.NewField("name", "Name"),
		forms.NewField("email", "Email").WithWidget(forms.NewWidget("email")),
		forms.NewField("budget", "Budget").WithWidget(forms.NewWidget("number")),
		forms.NewField("message", "Message").WithWidget(forms.NewWidget("textarea")),
	)
}

// Show renders an empty contact form.
func (p *ContactPage) Show(w http.ResponseWriter, r *http.Request) {
	p.render(w, r, contactForm(), false)
}

// Submit binds the posted values, runs them through the contact
// service and re-renders the form with its errors on failure.
func (p *ContactPage) Submit(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, "bad form data", http.StatusBadRequest)
		return
	}

	form := contactForm()
	form.Bind(r.PostForm)

	req := api.ContactRequest{
		Name:    form.Field("name").Value,
		Email:   form.Field("email").Value,
		Message: form.Field("message").Value,
	}
	if raw := form.Field("budget").Value; raw != "" {
		budget, err := decimal.NewFromString(raw)
		if err != nil {
			form.AddError("budget", "must be a number")
		} else {
			req.Budget = budget
		}
	}

	if !form.HasErrors() {
		if _, err := p.contacts.Submit(r.Context(), req); err != nil {
			var verr rest.ValidationError
			if !errors.As(err, &verr) {
				p.logger.ErrorContext(r.Context(), "contact submit failed",
					slog.String("error", err.Error()))
				http.Error(w, "Internal Server Error", http.StatusInternalServerError)
				return
			}
			for field, messages := range verr {
				for _, msg := range messages {
					form.AddError(field, msg)
				}
			}
		}
	}

	if form.HasErrors() {
		p.render(w, r, form, false)
		return
	}
	p.render(w, r, contactForm(), true)
}

func (p *ContactPage) render(w http.ResponseWriter, r *http.Request, form *forms.Form, sent bool) {
	body, err := p.store.RenderRequest(r, "contact.html", map[string]any{
		"Form": form,
		"Sent": sent,
	})
	if err != nil {
		if errors.Is(err, templates.ErrNotFound) {
			http.NotFound(w, r)
			return
		}
		p.logger.ErrorContext(r.Context(), "contact page render failed",
			slog.String("error", err.Error()))
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if form.HasErrors() {
		w.WriteHeader(http.StatusUnprocessableEntity)
	}
	w.Write(body)
}
