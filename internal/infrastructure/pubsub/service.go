package pubsub

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/golang-jwt/jwt/v5"
	log "github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/safeswap/safeswap-daemon/internal/core/ports"
	"github.com/safeswap/safeswap-daemon/pkg/httputil"
)

const tokenValidity = 5 * time.Minute

// Service delivers events to webhook subscribers with POST requests whose
// body is the JSON encoded event.
type Service struct {
	store      SubscriptionStore
	httpClient *httputil.Client
}

func NewService(
	store SubscriptionStore, httpClient *httputil.Client,
) (*Service, error) {
	if store == nil {
		return nil, fmt.Errorf("missing subscription store")
	}
	if httpClient == nil {
		return nil, fmt.Errorf("missing http client")
	}
	return &Service{store, httpClient}, nil
}

func (ws *Service) Subscribe(topic, endpoint, secret string) (string, error) {
	sub, err := NewSubscription(topic, endpoint, secret)
	if err != nil {
		return "", err
	}
	if err := ws.store.Add(*sub); err != nil {
		return "", err
	}
	return sub.ID, nil
}

func (ws *Service) Unsubscribe(id string) error {
	return ws.store.Remove(id)
}

func (ws *Service) ListSubscriptionsForTopic(topic string) ([]Subscription, error) {
	return ws.store.ListForTopic(topic)
}

// Publish invokes every webhook subscribed to the topic of the event, or to
// any topic. All endpoints are invoked even if some fail.
func (ws *Service) Publish(ctx context.Context, event ports.Event) error {
	if !ports.IsKnownTopic(event.Topic) {
		return fmt.Errorf("unknown topic %s", event.Topic)
	}

	subs, err := ws.store.ListForTopic(event.Topic)
	if err != nil {
		return err
	}
	if len(subs) <= 0 {
		return nil
	}

	payload, err := json.Marshal(event)
	if err != nil {
		return err
	}

	eg := &errgroup.Group{}
	for i := range subs {
		sub := subs[i]
		eg.Go(func() error {
			if err := ws.doRequest(ctx, sub, event, string(payload)); err != nil {
				log.WithError(err).Warnf(
					"failed to notify %s of event %s", sub.Endpoint, event.ID,
				)
				return err
			}
			return nil
		})
	}
	return eg.Wait()
}

func (ws *Service) Close() {
	ws.store.Close()
}

func (ws *Service) doRequest(
	ctx context.Context, sub Subscription, event ports.Event, payload string,
) error {
	headers := map[string]string{
		"Content-Type": "application/json",
	}
	if sub.IsSecured() {
		now := time.Now()
		token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
			ID:        event.ID,
			Subject:   event.Topic,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(tokenValidity)),
		})
		tokenString, err := token.SignedString([]byte(sub.Secret))
		if err != nil {
			return err
		}
		headers["Authorization"] = fmt.Sprintf("Bearer %s", tokenString)
	}

	status, resp, err := ws.httpClient.NewHTTPRequest(
		ctx, http.MethodPost, sub.Endpoint, payload, headers,
	)
	if err != nil {
		return err
	}
	if status < http.StatusOK || status >= http.StatusMultipleChoices {
		return fmt.Errorf("webhook responded with status %d: %s", status, resp)
	}
	return nil
}
