package wash

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"

	jobmetrics "github.com/odyssey-erp/costwash/internal/jobs"
	"github.com/odyssey-erp/costwash/jobs"
)

// FulfillmentJob processes wash tasks.
type FulfillmentJob struct {
	service *Service
	metrics *jobmetrics.Metrics
	logger  *slog.Logger
}

// NewFulfillmentJob constructs a job handler. metrics may be nil.
func NewFulfillmentJob(service *Service, metrics *jobmetrics.Metrics, logger *slog.Logger) *FulfillmentJob {
	return &FulfillmentJob{service: service, metrics: metrics, logger: logger}
}

// Handle fulfils the asynq.HandlerFunc contract. Only malformed payloads are
// reported as errors; every decoded event resolves through Run.
func (j *FulfillmentJob) Handle(ctx context.Context, task *asynq.Task) error {
	tracker := j.metrics.Track(jobs.TaskWashFulfillment)
	var payload jobs.WashFulfillmentPayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		return tracker.End(fmt.Errorf("decode wash payload: %v: %w", err, asynq.SkipRetry))
	}
	if payload.RecordID == "" {
		return tracker.End(fmt.Errorf("wash payload missing record_id: %w", asynq.SkipRetry))
	}
	out := j.service.Run(ctx, Event{
		Type:       EventType(payload.EventType),
		RecordType: payload.RecordType,
		RecordID:   payload.RecordID,
	})
	if j.logger != nil {
		j.logger.Info("wash job",
			slog.String("record_id", out.RecordID),
			slog.Bool("created", out.Created),
			slog.String("adjustment_id", out.AdjustmentID),
			slog.String("reason", string(out.Reason)),
			slog.Int("results", len(out.Results)),
			slog.Int("skipped_lines", len(out.Skipped)),
		)
	}
	return tracker.End(nil)
}

// ShippedSource lists recently shipped fulfillments that have no wash.
type ShippedSource interface {
	UnwashedShipments(ctx context.Context, since time.Time, limit int) ([]string, error)
}

// Enqueuer submits wash tasks.
type Enqueuer interface {
	EnqueueWash(ctx context.Context, payload jobs.WashFulfillmentPayload) (*asynq.TaskInfo, error)
}

const (
	defaultSweepLookback = 24 * time.Hour
	defaultSweepLimit    = 500
)

// SweepJob re-enqueues shipments whose trigger was lost.
type SweepJob struct {
	source   ShippedSource
	enqueuer Enqueuer
	metrics  *jobmetrics.Metrics
	logger   *slog.Logger
	now      func() time.Time
}

// NewSweepJob constructs a SweepJob.
func NewSweepJob(source ShippedSource, enqueuer Enqueuer, metrics *jobmetrics.Metrics, logger *slog.Logger) *SweepJob {
	if logger == nil {
		logger = slog.Default()
	}
	return &SweepJob{source: source, enqueuer: enqueuer, metrics: metrics, logger: logger, now: time.Now}
}

// Handle fulfils the asynq.HandlerFunc contract.
func (j *SweepJob) Handle(ctx context.Context, task *asynq.Task) error {
	tracker := j.metrics.Track(jobs.TaskWashSweep)
	var payload jobs.WashSweepPayload
	if len(task.Payload()) > 0 {
		if err := json.Unmarshal(task.Payload(), &payload); err != nil {
			return tracker.End(fmt.Errorf("decode sweep payload: %v: %w", err, asynq.SkipRetry))
		}
	}
	if payload.Lookback <= 0 {
		payload.Lookback = defaultSweepLookback
	}
	if payload.Limit <= 0 {
		payload.Limit = defaultSweepLimit
	}
	ids, err := j.source.UnwashedShipments(ctx, j.now().Add(-payload.Lookback), payload.Limit)
	if err != nil {
		return tracker.End(fmt.Errorf("wash sweep: %w", err))
	}
	enqueued := 0
	for _, id := range ids {
		_, err := j.enqueuer.EnqueueWash(ctx, jobs.WashFulfillmentPayload{
			EventType: string(EventShip),
			RecordID:  id,
		})
		if err != nil {
			j.logger.Warn("wash sweep enqueue", slog.String("record_id", id), slog.Any("error", err))
			continue
		}
		enqueued++
	}
	j.logger.Info("wash sweep", slog.Int("candidates", len(ids)), slog.Int("enqueued", enqueued))
	return tracker.End(nil)
}
