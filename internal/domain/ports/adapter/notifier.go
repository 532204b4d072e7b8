package adapter

import "context"

// Notification is a best-effort outbound message.
type Notification struct {
	To      string
	Subject string
	HTML    string
	Text    string
}

// Notifier delivers notifications over one channel (email, chat, ...).
type Notifier interface {
	Name() string
	Send(ctx context.Context, n Notification) error
}
