//go:build integration

package rabbitmq

import (
	"context"
	"encoding/json"
	"log/slog"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/phrazzld/classifier-worker/internal/ciutil"
	"github.com/phrazzld/classifier-worker/internal/domain"
)

func TestBroker_RoundTrip(t *testing.T) {
	url := ciutil.RequireURL(t, "rabbitmq", ciutil.AMQPURL())

	name := "classifier-it-" + uuid.NewString()
	logger := slog.New(slog.NewTextHandler(os.Stdout, nil))

	broker, err := Dial(url, logger, name)
	require.NoError(t, err)
	defer func() { assert.NoError(t, broker.Close()) }()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	status := domain.StatusMessage{JobID: "it-1", Status: domain.StatusCompleted}
	require.NoError(t, broker.StatusPublisher(name).Report(ctx, status))

	q := broker.Queue(name, 50*time.Millisecond)
	msgs, err := q.Receive(ctx, 10, 5*time.Second)
	require.NoError(t, err)
	require.Len(t, msgs, 1)

	var decoded domain.StatusMessage
	require.NoError(t, json.Unmarshal(msgs[0].Body, &decoded))
	assert.Equal(t, status, decoded)

	require.NoError(t, q.Delete(ctx, msgs[0]))
}
