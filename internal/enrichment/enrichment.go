// Package enrichment implements the fast-path/background-enrichment
// split: after a FAST-mode analyse, the API handler (see cmd/api)
// pushes an EnrichmentJob onto a FIFO queue and writes a pollable
// per-job result; a worker (see cmd/worker)
// later consumes the queue, runs the FULL probe set, and overwrites the
// result. The split between a thin queue client and a worker loop
// follows a prior thin-client/runner pattern, generalized behind the
// store.Store interface instead of a bare *redis.Client global.
package enrichment

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"signalguard/internal/models"
	"signalguard/internal/store"
)

const queueKey = "jobs:enrich"

func resultKey(jobID string) string {
	return "result:" + jobID
}

// Queue is the job queue and result store: cmd/api produces jobs and
// polls results, cmd/worker consumes jobs and writes final results.
type Queue struct {
	store     store.Store
	resultTTL time.Duration
}

func NewQueue(s store.Store, resultTTL time.Duration) *Queue {
	return &Queue{store: s, resultTTL: resultTTL}
}

// Enqueue pushes a job for partial, assigns it a random UUID job id via
// google/uuid, writes the pending partial envelope to its results key,
// and returns the job id for the caller to attach to the response
// envelope's enrichment.job_id.
func (q *Queue) Enqueue(ctx context.Context, input models.EmailInput, partial models.Envelope) (string, error) {
	jobID := uuid.NewString()
	partial.Enrichment = models.Enrichment{Status: models.EnrichmentPending, JobID: models.StrPtr(jobID)}

	job := models.EnrichmentJob{
		JobID:           jobID,
		CreatedAtUnix:   unixNow(),
		Input:           input,
		PartialEnvelope: partial,
	}

	payload, err := json.Marshal(job)
	if err != nil {
		return "", fmt.Errorf("marshal enrichment job: %w", err)
	}
	if err := q.store.PushJob(ctx, queueKey, payload); err != nil {
		return "", err
	}

	resultPayload, err := json.Marshal(partial)
	if err != nil {
		return "", fmt.Errorf("marshal partial envelope: %w", err)
	}
	if err := q.store.Set(ctx, resultKey(jobID), resultPayload, q.resultTTL); err != nil {
		return "", err
	}
	return jobID, nil
}

// Result fetches the current state of a job's envelope for polling
// clients (GET /results/{job_id}).
func (q *Queue) Result(ctx context.Context, jobID string) (models.Envelope, bool, error) {
	payload, ok, err := q.store.Get(ctx, resultKey(jobID))
	if err != nil || !ok {
		return models.Envelope{}, false, err
	}
	var envelope models.Envelope
	if err := json.Unmarshal(payload, &envelope); err != nil {
		return models.Envelope{}, false, err
	}
	return envelope, true, nil
}

// Dequeue blocks up to timeout for the next job, used by worker loops.
func (q *Queue) Dequeue(ctx context.Context, timeout time.Duration) (models.EnrichmentJob, bool, error) {
	payload, ok, err := q.store.PopJob(ctx, queueKey, timeout)
	if err != nil || !ok {
		return models.EnrichmentJob{}, false, err
	}
	var job models.EnrichmentJob
	if err := json.Unmarshal(payload, &job); err != nil {
		return models.EnrichmentJob{}, false, fmt.Errorf("unmarshal enrichment job: %w", err)
	}
	return job, true, nil
}

// CompleteResult overwrites the per-job result with the fully enriched
// envelope, marking enrichment.status = COMPLETE.
func (q *Queue) CompleteResult(ctx context.Context, jobID string, envelope models.Envelope) error {
	envelope.Enrichment = models.Enrichment{Status: models.EnrichmentComplete, JobID: models.StrPtr(jobID)}
	payload, err := json.Marshal(envelope)
	if err != nil {
		return err
	}
	return q.store.Set(ctx, resultKey(jobID), payload, q.resultTTL)
}

// FailResult marks a job FAILED, keeping the last-known partial envelope
// in the body for callers who polled it before the failure. cmd/worker
// calls it on the first failed analyse of a job; jobs are not retried.
func (q *Queue) FailResult(ctx context.Context, jobID string, partial models.Envelope) error {
	partial.Enrichment = models.Enrichment{Status: models.EnrichmentFailed, JobID: models.StrPtr(jobID)}
	payload, err := json.Marshal(partial)
	if err != nil {
		return err
	}
	return q.store.Set(ctx, resultKey(jobID), payload, q.resultTTL)
}

// unixNow exists only so the rest of this package never calls time.Now
// directly, keeping the one wall-clock read easy to find.
func unixNow() int64 {
	return time.Now().Unix()
}
