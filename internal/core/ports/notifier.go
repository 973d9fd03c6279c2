package ports

import "context"

const (
	TopicAwaitingConfirmations = "safe_tx.awaiting_confirmations"
	TopicConfirmed             = "safe_tx.confirmed"
	TopicExecutable            = "safe_tx.executable"

	// AnyTopic subscribes to every topic.
	AnyTopic = "*"
)

// IsKnownTopic returns whether topic is one of those published by the
// coordinator.
func IsKnownTopic(topic string) bool {
	switch topic {
	case TopicAwaitingConfirmations, TopicConfirmed, TopicExecutable:
		return true
	}
	return false
}

// Event is a notification about a safe transaction.
type Event struct {
	ID            string `json:"id"`
	Topic         string `json:"topic"`
	Safe          string `json:"safe"`
	SafeTxHash    string `json:"safeTxHash"`
	OrderID       string `json:"orderId,omitempty"`
	Status        string `json:"status"`
	Confirmations int    `json:"confirmations"`
	Threshold     int    `json:"threshold"`
	Timestamp     int64  `json:"timestamp"`
}

// Notifier delivers events to the subscribers of their topic.
type Notifier interface {
	Publish(ctx context.Context, event Event) error
}
