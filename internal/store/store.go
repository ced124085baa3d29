package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/redis/go-redis/v9"
)

var ErrNotFound = errors.New("document not found")

// Store is the replicated document store: put, get and subscribe over keyed
// JSON documents. Last put wins; subscribers receive the whole current
// document on every change, with no ordering guarantee relative to the
// writer's own prior writes. All ordering is reconstructed by the callers.
type Store struct {
	client *redis.Client
	logger *slog.Logger
}

func New(client *redis.Client, logger *slog.Logger) *Store {
	return &Store{
		client: client,
		logger: logger.With("component", "store"),
	}
}

// Put overwrites the document under key and notifies subscribers with the
// written body. Absent fields are stripped by the JSON encoding.
func (that *Store) Put(ctx context.Context, key string, doc any) error {
	body, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("could not marshal document: %w", err)
	}

	if err = that.client.Set(ctx, key, body, 0).Err(); err != nil {
		return fmt.Errorf("failed to set document: %w", err)
	}

	if err = that.client.Publish(ctx, channelFor(key), body).Err(); err != nil {
		return fmt.Errorf("failed to publish document: %w", err)
	}

	return nil
}

func (that *Store) Get(ctx context.Context, key string, into any) error {
	response, err := that.client.Get(ctx, key).Result()
	if errors.Is(err, redis.Nil) {
		return ErrNotFound
	}

	if err != nil {
		return fmt.Errorf("failed to get document: %w", err)
	}

	if err = json.Unmarshal([]byte(response), into); err != nil {
		return fmt.Errorf("failed to unmarshal document: %w", err)
	}

	return nil
}

func (that *Store) Delete(ctx context.Context, key string) error {
	if err := that.client.Del(ctx, key).Err(); err != nil {
		return fmt.Errorf("failed to delete document: %w", err)
	}

	return nil
}

// Subscribe delivers every change of the document under key to onChange and
// returns an unsubscribe function. Delivery stops when the context is done
// or unsubscribe is called.
func (that *Store) Subscribe(ctx context.Context, key string, onChange func(body []byte)) (func(), error) {
	log := that.logger.With("method", "Subscribe", "key", key)

	sub := that.client.Subscribe(ctx, channelFor(key))

	// Force the subscription to be established before returning.
	if _, err := sub.Receive(ctx); err != nil {
		_ = sub.Close()
		return nil, fmt.Errorf("failed to subscribe: %w", err)
	}

	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-sub.Channel():
				if !ok {
					return
				}

				onChange([]byte(msg.Payload))
			}
		}
	}()

	unsubscribe := func() {
		if err := sub.Close(); err != nil {
			log.Error("failed to close subscription", "error", err)
		}
	}

	return unsubscribe, nil
}

func channelFor(key string) string {
	return "changes:" + key
}
