package toolbar

import (
	"bytes"
	"html/template"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"sitekit/internal/middleware"
	"sitekit/internal/security"
	"sitekit/internal/services"
)

// recentUserLimit bounds the impersonation list.
const recentUserLimit = 10

// UserPanel lets an admin switch to another recently-logged-in user
// and back. The impersonated session keeps the admin's identity in
// ImpersonatorID so restore works without re-authentication.
type UserPanel struct {
	users  *services.UserService
	codec  *security.Codec
	logger *slog.Logger
}

// NewUserPanel creates the user panel.
func NewUserPanel(users *services.UserService, codec *security.Codec, logger *slog.Logger) *UserPanel {
	if logger == nil {
		logger = slog.Default()
	}
	return &UserPanel{
		users:  users,
		codec:  codec,
		logger: logger.With(slog.String("panel", "user")),
	}
}

// Name implements Panel.
func (p *UserPanel) Name() string { return "user" }

// Title implements Panel.
func (p *UserPanel) Title() string { return "User" }

// Nav implements Panel: the current username, or "anonymous".
func (p *UserPanel) Nav(r *http.Request) template.HTML {
	if user := middleware.UserFromContext(r.Context()); user != nil {
		return template.HTML(template.HTMLEscapeString(user.Username))
	}
	return "anonymous"
}

// Content implements Panel: current identity plus the recent-login
// list with impersonation forms.
func (p *UserPanel) Content(r *http.Request) template.HTML {
	data := map[string]any{
		"User":    middleware.UserFromContext(r.Context()),
		"Session": middleware.SessionFromContext(r.Context()),
		"Recent":  p.users.Recent(r.Context(), recentUserLimit),
	}

	var buf bytes.Buffer
	if err := pages.ExecuteTemplate(&buf, "user_panel.html", data); err != nil {
		p.logger.ErrorContext(r.Context(), "user panel render failed",
			slog.String("error", err.Error()))
		return ""
	}
	return template.HTML(buf.String())
}

// Routes implements RouteProvider.
func (p *UserPanel) Routes() chi.Router {
	r := chi.NewRouter()
	r.Post("/impersonate", p.impersonate)
	r.Post("/restore", p.restore)
	return r
}

// impersonate switches the session to the submitted username.
// Admins only; the toolbar access check does not cover this because
// an impersonated session may reach it too.
func (p *UserPanel) impersonate(w http.ResponseWriter, r *http.Request) {
	actor := middleware.UserFromContext(r.Context())
	if actor == nil || !actor.Admin {
		http.Error(w, "Forbidden", http.StatusForbidden)
		return
	}

	if err := r.ParseForm(); err != nil {
		http.Error(w, "Bad Request", http.StatusBadRequest)
		return
	}
	target, err := p.users.GetByUsername(r.Context(), r.PostFormValue("username"))
	if err != nil {
		http.Error(w, "Unknown user", http.StatusNotFound)
		return
	}

	cookie, err := p.codec.Cookie(security.Session{
		UserID:         target.ID,
		ImpersonatorID: actor.ID,
		IssuedAt:       time.Now(),
	})
	if err != nil {
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}

	p.logger.InfoContext(r.Context(), "impersonation started",
		slog.String("admin", actor.Username),
		slog.String("target", target.Username),
	)
	http.SetCookie(w, cookie)
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

// restore returns an impersonated session to the impersonator.
func (p *UserPanel) restore(w http.ResponseWriter, r *http.Request) {
	session := middleware.SessionFromContext(r.Context())
	if session == nil || !session.Impersonated() {
		http.Error(w, "Not impersonating", http.StatusBadRequest)
		return
	}

	cookie, err := p.codec.Cookie(security.Session{
		UserID:   session.ImpersonatorID,
		IssuedAt: time.Now(),
	})
	if err != nil {
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}

	p.logger.InfoContext(r.Context(), "impersonation ended",
		slog.String("impersonator_id", session.ImpersonatorID))
	http.SetCookie(w, cookie)
	http.Redirect(w, r, "/", http.StatusSeeOther)
}
