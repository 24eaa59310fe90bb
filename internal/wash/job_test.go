package wash

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/hibiken/asynq"
	"github.com/stretchr/testify/require"

	"github.com/odyssey-erp/costwash/jobs"
)

func TestFulfillmentJobRunsWash(t *testing.T) {
	f := newFixture()
	job := NewFulfillmentJob(f.service(), nil, discardLogger())
	payload, err := json.Marshal(jobs.WashFulfillmentPayload{EventType: "ship", RecordID: "2001"})
	require.NoError(t, err)

	err = job.Handle(context.Background(), asynq.NewTask(jobs.TaskWashFulfillment, payload))
	require.NoError(t, err)
	require.Len(t, f.ledger.docs, 1)
}

func TestFulfillmentJobSkipsRetryOnBadPayload(t *testing.T) {
	job := NewFulfillmentJob(newFixture().service(), nil, discardLogger())

	err := job.Handle(context.Background(), asynq.NewTask(jobs.TaskWashFulfillment, []byte("{")))
	require.ErrorIs(t, err, asynq.SkipRetry)

	err = job.Handle(context.Background(), asynq.NewTask(jobs.TaskWashFulfillment, []byte(`{"event_type":"ship"}`)))
	require.ErrorIs(t, err, asynq.SkipRetry)
}

func TestFulfillmentJobSkipDoesNotError(t *testing.T) {
	f := newFixture()
	job := NewFulfillmentJob(f.service(), nil, discardLogger())
	payload, _ := json.Marshal(jobs.WashFulfillmentPayload{EventType: "ship", RecordID: "missing"})

	require.NoError(t, job.Handle(context.Background(), asynq.NewTask(jobs.TaskWashFulfillment, payload)))
	require.Equal(t, "record_not_found", f.recorder.outcomes[0].reason)
}

type stubShippedSource struct {
	ids   []string
	err   error
	since time.Time
	limit int
}

func (s *stubShippedSource) UnwashedShipments(_ context.Context, since time.Time, limit int) ([]string, error) {
	s.since, s.limit = since, limit
	return s.ids, s.err
}

type stubEnqueuer struct {
	payloads []jobs.WashFulfillmentPayload
	failOn   string
}

func (e *stubEnqueuer) EnqueueWash(_ context.Context, payload jobs.WashFulfillmentPayload) (*asynq.TaskInfo, error) {
	if payload.RecordID == e.failOn {
		return nil, errors.New("redis down")
	}
	e.payloads = append(e.payloads, payload)
	return &asynq.TaskInfo{ID: "t-" + payload.RecordID}, nil
}

func TestSweepJobEnqueuesCandidates(t *testing.T) {
	source := &stubShippedSource{ids: []string{"1", "2", "3"}}
	enqueuer := &stubEnqueuer{failOn: "2"}
	job := NewSweepJob(source, enqueuer, nil, discardLogger())
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	job.now = func() time.Time { return now }

	err := job.Handle(context.Background(), asynq.NewTask(jobs.TaskWashSweep, nil))
	require.NoError(t, err)
	require.Equal(t, now.Add(-24*time.Hour), source.since)
	require.Equal(t, 500, source.limit)
	require.Len(t, enqueuer.payloads, 2)
	for _, p := range enqueuer.payloads {
		require.Equal(t, "ship", p.EventType)
	}
}

func TestSweepJobHonoursPayloadAndSourceError(t *testing.T) {
	source := &stubShippedSource{}
	job := NewSweepJob(source, &stubEnqueuer{}, nil, discardLogger())
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	job.now = func() time.Time { return now }
	payload, _ := json.Marshal(jobs.WashSweepPayload{Lookback: time.Hour, Limit: 10})

	require.NoError(t, job.Handle(context.Background(), asynq.NewTask(jobs.TaskWashSweep, payload)))
	require.Equal(t, now.Add(-time.Hour), source.since)
	require.Equal(t, 10, source.limit)

	source.err = errors.New("query failed")
	err := job.Handle(context.Background(), asynq.NewTask(jobs.TaskWashSweep, payload))
	require.ErrorContains(t, err, "wash sweep")
}
