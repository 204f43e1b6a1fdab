package http

import (
	"log/slog"
	"net/http"

	"sitekit/internal/rest"
	"sitekit/internal/services"
	api "sitekit/pkg/contracts/api/v1"
)

// ContactResource accepts contact form submissions from anyone and
// lets admins read the inbox.
type ContactResource struct {
	contacts *services.ContactService
	logger   *slog.Logger
}

// NewContactResource creates the contact resource.
func NewContactResource(contacts *services.ContactService, logger *slog.Logger) *ContactResource {
	if logger == nil {
		logger = slog.Default()
	}
	return &ContactResource{
		contacts: contacts,
		logger:   logger.With(slog.String("resource", "contact")),
	}
}

// Auth allows anonymous submissions.
func (res *ContactResource) Auth(r *http.Request) error { return nil }

// Post stores a submission. Field validation happens in the service so
// the same rules apply to every entry point.
func (res *ContactResource) Post(r *http.Request) (any, error) {
	var req api.ContactRequest
	if err := rest.DecodeJSON(r, &req); err != nil {
		return nil, err
	}

	msg, err := res.contacts.Submit(r.Context(), req)
	if err != nil {
		return nil, err
	}
	res.logger.InfoContext(r.Context(), "contact message received",
		slog.String("id", msg.ID),
		slog.String("email", msg.Email),
	)
	return msg, nil
}

// Get returns the inbox, newest first. Admin only.
func (res *ContactResource) Get(r *http.Request) (any, error) {
	if err := requireAdmin(r); err != nil {
		return nil, err
	}
	return res.contacts.List(r.Context()), nil
}
