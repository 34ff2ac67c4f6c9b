package sse

import (
	"encoding/json"
	"log/slog"

	"github.com/mcoot/hostguard/internal/api/response"
	"github.com/mcoot/hostguard/internal/model"
)

// Broadcaster publishes engine events to SSE clients. It implements
// model.Observer and never blocks.
type Broadcaster struct {
	hub    *Hub
	logger *slog.Logger
}

// NewBroadcaster creates a new Broadcaster
func NewBroadcaster(hub *Hub, logger *slog.Logger) *Broadcaster {
	return &Broadcaster{
		hub:    hub,
		logger: logger.With(slog.String("component", "sse-broadcaster")),
	}
}

// Notify sends evt as an SSE event named after its type
func (b *Broadcaster) Notify(evt model.Event) {
	data, err := json.Marshal(response.EventFromModel(evt))
	if err != nil {
		b.logger.Error("sse failed to encode event",
			slog.String("event", string(evt.Type)),
			slog.String("error", err.Error()))
		return
	}
	b.hub.BroadcastEvent(string(evt.Type), string(data))
}
