package toolbar

import (
	"bytes"
	"fmt"
	"html/template"
	"log/slog"
	"net/http"
	"sync"

	"github.com/go-chi/chi/v5"

	"sitekit/internal/config"
	ws "sitekit/internal/websocket"
	"sitekit/pkg/contracts/events"
)

// RequestsPanel keeps a bounded history of handled requests and
// streams new ones to toolbar clients over websocket. It implements
// middleware.RequestRecorder.
type RequestsPanel struct {
	hub    *ws.Hub
	wsCfg  config.WebSocketConfig
	size   int
	logger *slog.Logger

	mu      sync.RWMutex
	history []events.RequestEvent
}

// NewRequestsPanel creates the requests panel with a history ring of
// the given size.
func NewRequestsPanel(hub *ws.Hub, wsCfg config.WebSocketConfig, size int, logger *slog.Logger) *RequestsPanel {
	if size <= 0 {
		size = 100
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &RequestsPanel{
		hub:    hub,
		wsCfg:  wsCfg,
		size:   size,
		logger: logger.With(slog.String("panel", "requests")),
	}
}

// Record implements middleware.RequestRecorder: append to the ring
// and broadcast to connected feed clients.
func (p *RequestsPanel) Record(e events.RequestEvent) {
	p.mu.Lock()
	p.history = append(p.history, e)
	if len(p.history) > p.size {
		p.history = p.history[len(p.history)-p.size:]
	}
	p.mu.Unlock()

	p.hub.Broadcast(events.TypeRequest, e)
}

// History returns the recorded events, newest first.
func (p *RequestsPanel) History() []events.RequestEvent {
	p.mu.RLock()
	defer p.mu.RUnlock()

	out := make([]events.RequestEvent, len(p.history))
	for i, e := range p.history {
		out[len(p.history)-1-i] = e
	}
	return out
}

// Name implements Panel.
func (p *RequestsPanel) Name() string { return "requests" }

// Title implements Panel.
func (p *RequestsPanel) Title() string { return "Requests" }

// Nav implements Panel: the number of recorded requests.
func (p *RequestsPanel) Nav(r *http.Request) template.HTML {
	p.mu.RLock()
	n := len(p.history)
	p.mu.RUnlock()
	return template.HTML(template.HTMLEscapeString(fmt.Sprintf("%d requests", n)))
}

// Content implements Panel: the request history table.
func (p *RequestsPanel) Content(r *http.Request) template.HTML {
	var buf bytes.Buffer
	err := pages.ExecuteTemplate(&buf, "requests_panel.html", map[string]any{
		"History": p.History(),
	})
	if err != nil {
		p.logger.ErrorContext(r.Context(), "requests panel render failed",
			slog.String("error", err.Error()))
		return ""
	}
	return template.HTML(buf.String())
}

// Routes implements RouteProvider: the websocket feed endpoint.
func (p *RequestsPanel) Routes() chi.Router {
	r := chi.NewRouter()
	r.Get("/feed", p.feed)
	return r
}

// feed upgrades the connection and attaches it to the hub.
func (p *RequestsPanel) feed(w http.ResponseWriter, r *http.Request) {
	if err := ws.Serve(p.hub, p.wsCfg, w, r); err != nil {
		p.logger.WarnContext(r.Context(), "feed upgrade failed",
			slog.String("error", err.Error()))
	}
}
