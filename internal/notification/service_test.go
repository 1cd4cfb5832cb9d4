package notification

import (
	"bytes"
	"context"
	"errors"
	"log"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dgibisch/doit2-sub002/pkg/sse"
)

type fakePublishResult struct {
	err error
}

func (r fakePublishResult) Get(ctx context.Context) (string, error) {
	return "", r.err
}

func TestAwaitEmitLogsFailure(t *testing.T) {
	var buf bytes.Buffer
	log.SetOutput(&buf)
	defer log.SetOutput(os.Stderr)

	awaitEmit(fakePublishResult{err: errors.New("topic gone")}, EventMessageReceived)

	assert.Contains(t, buf.String(), "failed to emit event message_received")
}

func TestAwaitEmitQuietOnSuccess(t *testing.T) {
	var buf bytes.Buffer
	log.SetOutput(&buf)
	defer log.SetOutput(os.Stderr)

	awaitEmit(fakePublishResult{}, EventMessageReceived)

	assert.Empty(t, buf.String())
}

func TestCloseWithoutPubSub(t *testing.T) {
	svc, err := NewService(sse.NewManager(), nil, nil, "", "", "")
	require.NoError(t, err)

	svc.Close()

	// A closed in-process service still accepts events without blocking.
	svc.Publish(Event{Type: EventMessageReceived, UserID: "u1"})
}
