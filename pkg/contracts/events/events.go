// Package events defines the wire protocol for the toolbar's live
// request feed.
package events

import "time"

// Feed message types.
const (
	TypeConnection = "connection"
	TypeRequest    = "request"
)

// Envelope wraps every message sent over the feed socket.
type Envelope struct {
	Type      string    `json:"type"`
	Timestamp time.Time `json:"timestamp"`
	Data      any       `json:"data,omitempty"`
}

// RequestEvent describes one handled HTTP request.
type RequestEvent struct {
	ID         string        `json:"id"`
	Method     string        `json:"method"`
	Path       string        `json:"path"`
	Status     int           `json:"status"`
	Duration   time.Duration `json:"duration_ns"`
	RemoteAddr string        `json:"remote_addr"`
	Time       time.Time     `json:"time"`
}
