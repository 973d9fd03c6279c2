package pubsub

import (
	"fmt"
	"net/url"

	"github.com/google/uuid"
	"github.com/safeswap/safeswap-daemon/internal/core/ports"
)

// Subscription is a webhook endpoint notified of the events of a topic. If
// Secret is set, requests carry a JWT signed with it.
type Subscription struct {
	ID       string `json:"id"`
	Topic    string `json:"topic"`
	Endpoint string `json:"endpoint"`
	Secret   string `json:"secret"`
}

func NewSubscription(topic, endpoint, secret string) (*Subscription, error) {
	if topic != ports.AnyTopic && !ports.IsKnownTopic(topic) {
		return nil, fmt.Errorf("unknown topic %s", topic)
	}
	if _, err := url.ParseRequestURI(endpoint); err != nil {
		return nil, fmt.Errorf("invalid webhook endpoint, must be a valid URI")
	}
	id := uuid.New().String()
	return &Subscription{id, topic, endpoint, secret}, nil
}

func (s *Subscription) IsSecured() bool {
	return len(s.Secret) > 0
}
