package enrichment

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"signalguard/internal/models"
	"signalguard/internal/store"
)

func TestQueue_EnqueueSetsPendingAndJobID(t *testing.T) {
	s := store.NewMemoryStore()
	q := NewQueue(s, time.Hour)
	ctx := context.Background()

	input := models.EmailInput{RawEmail: "user@example.com"}
	partial := models.Envelope{Email: "user@example.com", NormalizedEmail: "user@example.com"}

	jobID, err := q.Enqueue(ctx, input, partial)
	require.NoError(t, err)
	assert.NotEmpty(t, jobID)

	envelope, ok, err := q.Result(ctx, jobID)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, models.EnrichmentPending, envelope.Enrichment.Status)
	require.NotNil(t, envelope.Enrichment.JobID)
	assert.Equal(t, jobID, *envelope.Enrichment.JobID)
}

func TestQueue_DequeueReturnsEnqueuedJob(t *testing.T) {
	s := store.NewMemoryStore()
	q := NewQueue(s, time.Hour)
	ctx := context.Background()

	input := models.EmailInput{RawEmail: "user@example.com", IP: "1.2.3.4"}
	partial := models.Envelope{Email: "user@example.com"}

	jobID, err := q.Enqueue(ctx, input, partial)
	require.NoError(t, err)

	job, ok, err := q.Dequeue(ctx, time.Second)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, jobID, job.JobID)
	assert.Equal(t, "user@example.com", job.Input.RawEmail)
	assert.Equal(t, "1.2.3.4", job.Input.IP)
}

func TestQueue_DequeueTimesOutWhenEmpty(t *testing.T) {
	s := store.NewMemoryStore()
	q := NewQueue(s, time.Hour)
	ctx := context.Background()

	_, ok, err := q.Dequeue(ctx, 10*time.Millisecond)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestQueue_CompleteResultOverwritesPartial(t *testing.T) {
	s := store.NewMemoryStore()
	q := NewQueue(s, time.Hour)
	ctx := context.Background()

	jobID, err := q.Enqueue(ctx, models.EmailInput{RawEmail: "user@example.com"}, models.Envelope{})
	require.NoError(t, err)

	full := models.Envelope{
		Email:       "user@example.com",
		RiskSummary: models.RiskSummary{Score: 42, Level: models.LevelMedium, Action: models.ActionChallenge},
	}
	require.NoError(t, q.CompleteResult(ctx, jobID, full))

	envelope, ok, err := q.Result(ctx, jobID)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, models.EnrichmentComplete, envelope.Enrichment.Status)
	assert.Equal(t, 42, envelope.RiskSummary.Score)
}

func TestQueue_FailResultKeepsPartialAndMarksFailed(t *testing.T) {
	s := store.NewMemoryStore()
	q := NewQueue(s, time.Hour)
	ctx := context.Background()

	partial := models.Envelope{Email: "user@example.com", RiskSummary: models.RiskSummary{Score: 10}}
	jobID, err := q.Enqueue(ctx, models.EmailInput{RawEmail: "user@example.com"}, partial)
	require.NoError(t, err)

	require.NoError(t, q.FailResult(ctx, jobID, partial))

	envelope, ok, err := q.Result(ctx, jobID)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, models.EnrichmentFailed, envelope.Enrichment.Status)
	assert.Equal(t, 10, envelope.RiskSummary.Score)
}

func TestQueue_ResultMissingJobReturnsNotOK(t *testing.T) {
	s := store.NewMemoryStore()
	q := NewQueue(s, time.Hour)
	ctx := context.Background()

	_, ok, err := q.Result(ctx, "nonexistent")
	require.NoError(t, err)
	assert.False(t, ok)
}
