package audit_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/solamate/fundpool/internal/audit"
)

func TestNewEventAppliesOptions(t *testing.T) {
	e := audit.NewEvent(
		audit.KindEventCreated,
		audit.WithData(map[string]string{"address": "abc"}),
		audit.WithMetadata(map[string]string{"request_id": "r1"}),
	)

	assert.NotEqual(t, "", e.ID.String())
	assert.Equal(t, audit.KindEventCreated, e.Kind)
	assert.Equal(t, map[string]string{"address": "abc"}, e.Data)
	assert.Equal(t, "r1", e.Metadata["request_id"])
	assert.False(t, e.CreatedAt.IsZero())
}

func TestWorkerDrainsBufferOnShutdown(t *testing.T) {
	recorder := audit.NewMemoryRecorder()
	worker := audit.NewWorker(recorder, 16)
	worker.Start()

	for i := 0; i < 10; i++ {
		worker.Log(audit.NewEvent(audit.KindSplitCreated))
	}
	worker.Log(audit.NewEvent(audit.KindEventClosed))

	worker.Shutdown()

	assert.Equal(t, 11, recorder.Len())

	created, err := recorder.GetByKind(context.Background(), audit.KindSplitCreated)
	require.NoError(t, err)
	assert.Len(t, created, 10)

	closed, err := recorder.GetByKind(context.Background(), audit.KindEventClosed)
	require.NoError(t, err)
	assert.Len(t, closed, 1)
}

func TestWorkerDropsWhenBufferIsFull(t *testing.T) {
	recorder := audit.NewMemoryRecorder()
	// Never started, so nothing drains the channel
	worker := audit.NewWorker(recorder, 2)

	for i := 0; i < 5; i++ {
		worker.Log(audit.NewEvent(audit.KindEventCreated))
	}

	worker.Start()
	worker.Shutdown()

	// Only the buffered two made it through
	assert.Equal(t, 2, recorder.Len())
}
