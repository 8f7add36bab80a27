package noop

import (
	"context"
	"encoding/json"
	"log"

	"gstpipeline/internal/port"
)

type noopNotifier struct{}

// NewNoopNotifier creates a Notifier that logs notifications to stdout
// instead of dispatching them. Used in development and in tests.
func NewNoopNotifier() port.Notifier {
	return &noopNotifier{}
}

func (n *noopNotifier) Send(_ context.Context, notification port.Notification) error {
	payload, _ := json.Marshal(notification.Payload)
	log.Printf("[NOOP NOTIFY] kind=%s title=%q payload=%s",
		notification.Kind, notification.Title, payload)
	return nil
}
