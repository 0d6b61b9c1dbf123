// Package memory provides an in-process gateway for tests and local runs.
package memory

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/placelens/placelens/internal/gateway"
	"github.com/placelens/placelens/internal/progress"
)

// Gateway records published envelopes per channel. Safe for concurrent use.
type Gateway struct {
	mu       sync.Mutex
	messages map[string][]gateway.Envelope
	failing  map[string]error
}

// New creates an empty in-memory gateway.
func New() *Gateway {
	return &Gateway{
		messages: map[string][]gateway.Envelope{},
		failing:  map[string]error{},
	}
}

// FailChannel makes every subsequent publish to the channel return err.
func (g *Gateway) FailChannel(channel string, err error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.failing[channel] = err
}

// Publish wraps and records the event under the channel name.
func (g *Gateway) Publish(_ context.Context, channel string, evt progress.Event) error {
	if channel == "" {
		return errors.New("channel is required")
	}
	if err := evt.Validate(); err != nil {
		return fmt.Errorf("invalid progress event: %w", err)
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	if err, ok := g.failing[channel]; ok {
		return err
	}
	g.messages[channel] = append(g.messages[channel], gateway.Wrap(evt))
	return nil
}

// PublishToMany records the event on every channel; failures are joined.
func (g *Gateway) PublishToMany(ctx context.Context, channels []string, evt progress.Event) error {
	var errs []error
	for _, ch := range channels {
		if err := g.Publish(ctx, ch, evt); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Messages returns a copy of the envelopes published to the channel.
func (g *Gateway) Messages(channel string) []gateway.Envelope {
	g.mu.Lock()
	defer g.mu.Unlock()
	return append([]gateway.Envelope(nil), g.messages[channel]...)
}

// Events unwraps the progress events published to the channel, in order.
func (g *Gateway) Events(channel string) []progress.Event {
	envelopes := g.Messages(channel)
	events := make([]progress.Event, 0, len(envelopes))
	for _, env := range envelopes {
		if evt, ok := env.Data.(progress.Event); ok {
			events = append(events, evt)
		}
	}
	return events
}
