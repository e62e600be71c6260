// Package notify is the fan-out side of attendance and progression writes.
// Publication is best effort: a failed publish is logged and swallowed so
// that a committed write is never failed by its notification.
package notify

import (
	"context"
	"encoding/json"
	"log"

	"campustrack/internal/queue"
)

// MessageType tags queue messages carrying a notification payload.
const MessageType = "notification"

// Payload is what ends up in the notifications table once the worker
// processes it.
type Payload struct {
	UserID  string `json:"user_id"`
	Type    string `json:"type"`
	Title   string `json:"title"`
	Message string `json:"message"`
	Link    string `json:"link"`
}

// Notifier delivers notifications to users. Implementations must be safe to
// call after a transaction commits and must never block the caller on
// delivery.
type Notifier interface {
	Notify(ctx context.Context, p Payload)
}

// QueueNotifier publishes payloads onto the work queue for the worker to
// persist.
type QueueNotifier struct {
	q queue.Queue
}

// NewQueueNotifier wraps a queue backend.
func NewQueueNotifier(q queue.Queue) *QueueNotifier {
	return &QueueNotifier{q: q}
}

// Notify publishes one payload, logging failures instead of returning them.
func (n *QueueNotifier) Notify(ctx context.Context, p Payload) {
	raw, err := json.Marshal(p)
	if err != nil {
		log.Printf("notify: marshal failed for user %s: %v", p.UserID, err)
		return
	}
	if err := n.q.Publish(ctx, queue.Message{Type: MessageType, Body: raw}); err != nil {
		log.Printf("notify: publish failed for user %s: %v", p.UserID, err)
	}
}

// Discard drops every notification; used in tests and when no queue is
// configured.
type Discard struct{}

// Notify implements Notifier.
func (Discard) Notify(context.Context, Payload) {}
