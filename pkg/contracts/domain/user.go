package domain

import "time"

// User is an entry in the in-memory user directory.
// PasswordHash is a bcrypt hash and never leaves the process.
type User struct {
	ID        string    `json:"id"`
	Username  string    `json:"username"`
	Name      string    `json:"name"`
	Admin     bool      `json:"admin"`
	LastLogin time.Time `json:"last_login"`

	PasswordHash []byte `json:"-"`
}

// Payload returns the wire representation of the user, leaving the
// password hash out.
func (u User) Payload() any {
	out := map[string]any{
		"id":       u.ID,
		"username": u.Username,
		"name":     u.Name,
		"admin":    u.Admin,
	}
	if !u.LastLogin.IsZero() {
		out["last_login"] = u.LastLogin.UTC().Format(time.RFC3339)
	}
	return out
}
