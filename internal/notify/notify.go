// Package notify delivers best-effort account event notifications to an
// outbound webhook without blocking the request path.
package notify

import (
	"context"
	"time"
)

// Event types.
const (
	EventSignup = "signup"
	EventLogin  = "login"
)

// Event describes an account event worth announcing.
type Event struct {
	Type      string
	Email     string
	Username  string
	IP        string
	UserAgent string
	Time      time.Time
}

// Notifier accepts events for asynchronous delivery. Notify never blocks on
// delivery and never reports delivery failures to the caller.
type Notifier interface {
	Notify(e Event)
}

// Sender performs one synchronous delivery.
type Sender interface {
	Send(ctx context.Context, e Event) error
}

// Nop discards every event. It is used when no webhook is configured.
type Nop struct{}

func (Nop) Notify(Event) {}
