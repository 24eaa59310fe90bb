package jobs

import (
	"encoding/json"
	"errors"
	"time"

	"github.com/hibiken/asynq"
)

const (
	// QueueDefault is the default queue name for background jobs.
	QueueDefault = "default"
	// TaskWashFulfillment runs the cost variance wash for one fulfillment.
	TaskWashFulfillment = "wash:fulfillment"
	// TaskWashSweep re-enqueues recently shipped fulfillments that have no wash yet.
	TaskWashSweep = "wash:sweep"
)

// WashFulfillmentPayload mirrors the trigger event of a fulfillment.
type WashFulfillmentPayload struct {
	EventType   string    `json:"event_type"`
	RecordType  string    `json:"record_type,omitempty"`
	RecordID    string    `json:"record_id"`
	RequestedAt time.Time `json:"requested_at"`
}

// NewWashFulfillmentTask constructs an Asynq task. The wash resolves every
// run itself, so the task is never retried.
func NewWashFulfillmentTask(payload WashFulfillmentPayload) (*asynq.Task, error) {
	if payload.RecordID == "" {
		return nil, errors.New("jobs: wash payload requires record_id")
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskWashFulfillment, data, asynq.Queue(QueueDefault), asynq.MaxRetry(0)), nil
}

// WashSweepPayload bounds the sweep window.
type WashSweepPayload struct {
	Lookback time.Duration `json:"lookback"`
	Limit    int           `json:"limit"`
}

// NewWashSweepTask constructs the periodic sweep task.
func NewWashSweepTask(payload WashSweepPayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskWashSweep, data, asynq.Queue(QueueDefault), asynq.MaxRetry(1)), nil
}
