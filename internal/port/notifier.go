package port

import "context"

// Notification is one outbound message to the notification sink. For a
// pipeline failure, Kind carries the severity and Title the error code and
// name.
type Notification struct {
	Kind    string
	Title   string
	Payload map[string]interface{}
}

// Notifier dispatches pipeline notifications (approval requests, failures).
type Notifier interface {
	Send(ctx context.Context, n Notification) error
}
