// Package pubsub implements the message bus gateway on Google Cloud Pub/Sub.
package pubsub

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"cloud.google.com/go/pubsub"
	"go.uber.org/zap"

	"github.com/placelens/placelens/internal/gateway"
	"github.com/placelens/placelens/internal/progress"
)

// channelAttribute carries the logical channel name on each message; the
// realtime gateway subscribes to the topic and filters on it.
const channelAttribute = "channel"

// Gateway publishes progress envelopes to a single Pub/Sub topic, one
// message per logical channel. Delivery is fire-and-forget: no retry, no
// backpressure, and nothing is kept for subscribers that connect later.
type Gateway struct {
	client *pubsub.Client
	topic  *pubsub.Topic
	logger *zap.Logger
}

// New connects to Pub/Sub and verifies the topic exists. The caller owns
// the gateway lifecycle and must Close it on shutdown.
func New(ctx context.Context, projectID, topicID string, logger *zap.Logger) (*Gateway, error) {
	if projectID == "" || topicID == "" {
		return nil, fmt.Errorf("pubsub project id and topic id are required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	client, err := pubsub.NewClient(ctx, projectID)
	if err != nil {
		return nil, fmt.Errorf("create pubsub client: %w", err)
	}
	topic := client.Topic(topicID)
	exists, err := topic.Exists(ctx)
	if err != nil {
		if closeErr := client.Close(); closeErr != nil {
			logger.Warn("close pubsub client after topic check failure", zap.Error(closeErr))
		}
		return nil, fmt.Errorf("check pubsub topic %q: %w", topicID, err)
	}
	if !exists {
		if closeErr := client.Close(); closeErr != nil {
			logger.Warn("close pubsub client after topic check failure", zap.Error(closeErr))
		}
		return nil, fmt.Errorf("pubsub topic %q does not exist in project %q", topicID, projectID)
	}
	return &Gateway{client: client, topic: topic, logger: logger}, nil
}

// Publish wraps the event in the standard envelope and publishes it tagged
// with the channel name.
func (g *Gateway) Publish(ctx context.Context, channel string, evt progress.Event) error {
	if g == nil || g.topic == nil {
		return errors.New("pubsub gateway is not configured")
	}
	if channel == "" {
		return errors.New("channel is required")
	}
	if err := evt.Validate(); err != nil {
		return fmt.Errorf("invalid progress event: %w", err)
	}
	data, err := json.Marshal(gateway.Wrap(evt))
	if err != nil {
		return fmt.Errorf("marshal envelope: %w", err)
	}
	result := g.topic.Publish(ctx, &pubsub.Message{
		Data:       data,
		Attributes: map[string]string{channelAttribute: channel},
	})
	if _, err := result.Get(ctx); err != nil {
		return fmt.Errorf("publish to channel %q: %w", channel, err)
	}
	return nil
}

// PublishToMany fans the same envelope out to every channel concurrently.
// Each publish is independent; failures are joined and returned but never
// abort sibling publishes.
func (g *Gateway) PublishToMany(ctx context.Context, channels []string, evt progress.Event) error {
	var (
		wg   sync.WaitGroup
		mu   sync.Mutex
		errs []error
	)
	for _, ch := range channels {
		wg.Add(1)
		go func(ch string) {
			defer wg.Done()
			if err := g.Publish(ctx, ch, evt); err != nil {
				g.logger.Warn("channel publish failed", zap.String("channel", ch), zap.Error(err))
				mu.Lock()
				errs = append(errs, err)
				mu.Unlock()
			}
		}(ch)
	}
	wg.Wait()
	return errors.Join(errs...)
}

// Close stops the topic's publish goroutines and releases the client.
func (g *Gateway) Close() error {
	if g == nil || g.client == nil {
		return nil
	}
	g.topic.Stop()
	if err := g.client.Close(); err != nil {
		return fmt.Errorf("close pubsub client: %w", err)
	}
	return nil
}
