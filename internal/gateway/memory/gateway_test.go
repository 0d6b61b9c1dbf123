package memory

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/placelens/placelens/internal/progress"
)

// TestPublishWrapsEnvelope checks the fixed wire format around each event.
func TestPublishWrapsEnvelope(t *testing.T) {
	t.Parallel()

	g := New()
	evt := progress.Started("resolving location", 10)
	require.NoError(t, g.Publish(context.Background(), "user:7", evt))

	msgs := g.Messages("user:7")
	require.Len(t, msgs, 1)
	require.Equal(t, 200, msgs[0].Status)
	require.Equal(t, "Success", msgs[0].Message)
	require.Nil(t, msgs[0].Error)
	require.Equal(t, evt, msgs[0].Data)
}

// TestPublishRejectsInvalid ensures malformed events never reach a channel.
func TestPublishRejectsInvalid(t *testing.T) {
	t.Parallel()

	g := New()
	err := g.Publish(context.Background(), "user:7", progress.Event{Status: "bogus", Message: "x"})
	require.Error(t, err)
	require.Empty(t, g.Messages("user:7"))

	require.Error(t, g.Publish(context.Background(), "", progress.Started("x", 10)))
}

// TestPublishToManyIndependentFailures verifies one failing channel does not
// block delivery to the others.
func TestPublishToManyIndependentFailures(t *testing.T) {
	t.Parallel()

	g := New()
	bad := errors.New("connection reset")
	g.FailChannel("user:2", bad)

	evt := progress.Processing("collecting reviews", 50)
	err := g.PublishToMany(context.Background(), []string{"user:1", "user:2", "user:3"}, evt)
	require.ErrorIs(t, err, bad)

	require.Len(t, g.Messages("user:1"), 1)
	require.Empty(t, g.Messages("user:2"))
	require.Len(t, g.Messages("user:3"), 1)
}
