// Package api contains API contract definitions for sitekit.
// Version v1 represents the current stable API version.
package api

import "github.com/shopspring/decimal"

// Page API requests

// PageCreateRequest represents a request to create a content page.
type PageCreateRequest struct {
	Slug  string `json:"slug" validate:"required,min=1,max=128"`
	Title string `json:"title" validate:"required,min=1,max=256"`
	Body  string `json:"body" validate:"required"`
}

// PageUpdateRequest represents a request to update a content page.
type PageUpdateRequest struct {
	Slug  string `json:"slug" validate:"required,min=1,max=128"`
	Title string `json:"title" validate:"omitempty,min=1,max=256"`
	Body  string `json:"body" validate:"required"`
}

// Contact API requests

// ContactRequest represents a contact form submission.
type ContactRequest struct {
	Name    string          `json:"name" validate:"required,min=1,max=128"`
	Email   string          `json:"email" validate:"required,email"`
	Message string          `json:"message" validate:"required,min=1,max=4096"`
	Budget  decimal.Decimal `json:"budget" validate:"-"`
}

// Auth API requests

// LoginRequest represents a session login request.
type LoginRequest struct {
	Username string `json:"username" validate:"required,min=1,max=64"`
	Password string `json:"password" validate:"required,min=1"`
}
