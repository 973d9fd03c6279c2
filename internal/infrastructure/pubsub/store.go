package pubsub

import (
	"fmt"
	"path/filepath"

	"github.com/dgraph-io/badger/v3"
	"github.com/dgraph-io/badger/v3/options"
	"github.com/timshannon/badgerhold/v4"

	"github.com/safeswap/safeswap-daemon/internal/core/ports"
)

// SubscriptionStore persists webhook subscriptions.
type SubscriptionStore interface {
	Add(sub Subscription) error
	Remove(id string) error
	// ListForTopic returns the subscriptions to the topic and those to any
	// topic.
	ListForTopic(topic string) ([]Subscription, error)
	Close()
}

type subscriptionStore struct {
	store *badgerhold.Store
}

// NewSubscriptionStore returns a badgerhold backed store. An empty
// baseDbDir opens an in-memory database.
func NewSubscriptionStore(
	baseDbDir string, logger badger.Logger,
) (SubscriptionStore, error) {
	opts := badger.DefaultOptions("")
	opts.Logger = logger
	if len(baseDbDir) > 0 {
		opts = badger.DefaultOptions(filepath.Join(baseDbDir, "pubsub"))
		opts.Logger = logger
		opts.Compression = options.ZSTD
	} else {
		opts.InMemory = true
	}

	store, err := badgerhold.Open(badgerhold.Options{
		Encoder:          badgerhold.DefaultEncode,
		Decoder:          badgerhold.DefaultDecode,
		SequenceBandwith: 100,
		Options:          opts,
	})
	if err != nil {
		return nil, fmt.Errorf("opening pubsub db: %w", err)
	}
	return &subscriptionStore{store}, nil
}

func (s *subscriptionStore) Add(sub Subscription) error {
	if err := s.store.Insert(sub.ID, sub); err != nil {
		if err == badgerhold.ErrKeyExists {
			return nil
		}
		return err
	}
	return nil
}

func (s *subscriptionStore) Remove(id string) error {
	if err := s.store.Delete(id, Subscription{}); err != nil {
		if err == badgerhold.ErrNotFound {
			return fmt.Errorf("webhook not found")
		}
		return err
	}
	return nil
}

func (s *subscriptionStore) ListForTopic(topic string) ([]Subscription, error) {
	var subs []Subscription
	query := badgerhold.Where("Topic").Eq(topic).
		Or(badgerhold.Where("Topic").Eq(ports.AnyTopic)).
		SortBy("ID")
	if err := s.store.Find(&subs, query); err != nil {
		return nil, err
	}
	return subs, nil
}

func (s *subscriptionStore) Close() {
	s.store.Close()
}
