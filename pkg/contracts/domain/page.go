// Package domain contains the core domain types shared between the
// services, transport and toolbar layers.
package domain

import "time"

// Page is a content page stored as an HTML file inside the site
// directory. The slug doubles as the file stem, so "about" is served
// from about.html by the template fallback.
type Page struct {
	Slug      string    `json:"slug"`
	Title     string    `json:"title"`
	Body      string    `json:"body"`
	Size      int64     `json:"size"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Payload returns the wire representation of the page.
func (p Page) Payload() any {
	return map[string]any{
		"slug":       p.Slug,
		"title":      p.Title,
		"body":       p.Body,
		"size":       p.Size,
		"updated_at": p.UpdatedAt.UTC().Format(time.RFC3339),
	}
}
