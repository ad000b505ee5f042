package notifications

import (
	"context"
	"encoding/json"
	"fmt"

	"habitpal/internal/models"
)

// Dispatcher serializes relationship events and routes them to users. With
// Redis configured events go through pub/sub so every API instance delivers
// them; otherwise they go straight to the local hub.
type Dispatcher struct {
	hub      *Hub
	notifier *Notifier
}

// NewDispatcher returns a Dispatcher. Either argument may be nil.
func NewDispatcher(hub *Hub, notifier *Notifier) *Dispatcher {
	return &Dispatcher{hub: hub, notifier: notifier}
}

// PublishUser delivers event to every connection of userID.
func (d *Dispatcher) PublishUser(ctx context.Context, userID uint, event models.RealtimeEvent) error {
	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal %s event: %w", event.Type, err)
	}
	if d.notifier.Enabled() {
		if err := d.notifier.PublishUser(ctx, userID, string(data)); err != nil {
			return fmt.Errorf("publish %s event: %w", event.Type, err)
		}
		return nil
	}
	if d.hub != nil {
		d.hub.Broadcast(userID, data)
	}
	return nil
}
