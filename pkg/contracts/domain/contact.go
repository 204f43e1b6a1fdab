package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// ContactMessage is a message submitted through the contact API.
// Budget uses decimal.Decimal so monetary values survive JSON
// round-trips without float precision loss.
type ContactMessage struct {
	ID        string          `json:"id"`
	Name      string          `json:"name"`
	Email     string          `json:"email"`
	Message   string          `json:"message"`
	Budget    decimal.Decimal `json:"budget"`
	CreatedAt time.Time       `json:"created_at"`
}

// Payload returns the wire representation of the message. The budget
// serializes as a string, matching decimal.Decimal's own MarshalJSON.
func (m ContactMessage) Payload() any {
	return map[string]any{
		"id":         m.ID,
		"name":       m.Name,
		"email":      m.Email,
		"message":    m.Message,
		"budget":     m.Budget,
		"created_at": m.CreatedAt.UTC().Format(time.RFC3339),
	}
}
