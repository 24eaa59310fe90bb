package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/hibiken/asynq"

	"github.com/odyssey-erp/costwash/internal/wash"
	"github.com/odyssey-erp/costwash/jobs"
)

// Enqueuer submits wash tasks.
type Enqueuer interface {
	EnqueueWash(ctx context.Context, payload jobs.WashFulfillmentPayload) (*asynq.TaskInfo, error)
}

// QueueInspector reads queue state.
type QueueInspector interface {
	GetQueueInfo(queue string) (*asynq.QueueInfo, error)
}

// Runner executes a wash inline.
type Runner interface {
	Run(ctx context.Context, ev wash.Event) wash.Outcome
}

// JobsCLI wraps manual management helpers for wash jobs.
type JobsCLI struct {
	enqueuer  Enqueuer
	inspector QueueInspector
	runner    Runner
}

// NewJobsCLI builds the helpers. runner is only needed for --sync triggers.
func NewJobsCLI(enqueuer Enqueuer, inspector QueueInspector, runner Runner) *JobsCLI {
	return &JobsCLI{enqueuer: enqueuer, inspector: inspector, runner: runner}
}

// TriggerOptions defines flags for wash-trigger.
type TriggerOptions struct {
	RecordID  string
	EventType string
	Sync      bool
	Stdout    io.Writer
	Stderr    io.Writer
}

// TriggerCommand enqueues, or with Sync runs, a wash for one fulfillment.
func (c *JobsCLI) TriggerCommand(ctx context.Context, opts TriggerOptions) int {
	if opts.Stdout == nil {
		opts.Stdout = os.Stdout
	}
	if opts.Stderr == nil {
		opts.Stderr = os.Stderr
	}
	recordID := strings.TrimSpace(opts.RecordID)
	if recordID == "" {
		_, _ = fmt.Fprintln(opts.Stderr, "wash-trigger: record id is required")
		return 2
	}
	eventType := opts.EventType
	if eventType == "" {
		eventType = string(wash.EventShip)
	}
	if opts.Sync {
		if c.runner == nil {
			_, _ = fmt.Fprintln(opts.Stderr, "wash-trigger: sync run not configured")
			return 1
		}
		out := c.runner.Run(ctx, wash.Event{Type: wash.EventType(eventType), RecordID: recordID})
		if err := json.NewEncoder(opts.Stdout).Encode(out); err != nil {
			_, _ = fmt.Fprintf(opts.Stderr, "wash-trigger: encode outcome: %v\n", err)
			return 1
		}
		if out.Reason == wash.SkipFailed {
			return 10
		}
		return 0
	}
	if c.enqueuer == nil {
		_, _ = fmt.Fprintln(opts.Stderr, "wash-trigger: queue not configured")
		return 1
	}
	info, err := c.enqueuer.EnqueueWash(ctx, jobs.WashFulfillmentPayload{EventType: eventType, RecordID: recordID})
	if err != nil {
		_, _ = fmt.Fprintf(opts.Stderr, "wash-trigger: %v\n", err)
		return 1
	}
	taskID := ""
	if info != nil {
		taskID = info.ID
	}
	_, _ = fmt.Fprintf(opts.Stdout, "enqueued %s for fulfillment %s (task %s)\n", jobs.TaskWashFulfillment, recordID, taskID)
	return 0
}

// QueueStats summarises the current queue state.
type QueueStats struct {
	Queue     string `json:"queue"`
	Pending   int    `json:"pending"`
	Active    int    `json:"active"`
	Scheduled int    `json:"scheduled"`
	Retry     int    `json:"retry"`
	Archived  int    `json:"archived"`
	Failed    int    `json:"failed_today"`
}

// InspectQueue reports the queue metrics for the default queue.
func (c *JobsCLI) InspectQueue(ctx context.Context) (QueueStats, error) {
	if c == nil || c.inspector == nil {
		return QueueStats{}, errors.New("jobs cli: inspector not configured")
	}
	info, err := c.inspector.GetQueueInfo(jobs.QueueDefault)
	if err != nil {
		return QueueStats{}, err
	}
	stats := QueueStats{Queue: jobs.QueueDefault}
	if info != nil {
		stats.Pending = info.Pending
		stats.Active = info.Active
		stats.Scheduled = info.Scheduled
		stats.Retry = info.Retry
		stats.Archived = info.Archived
		stats.Failed = info.Failed
	}
	return stats, nil
}

// InspectOptions defines flags for jobs-inspect.
type InspectOptions struct {
	JSONOutput bool
	Stdout     io.Writer
	Stderr     io.Writer
}

// InspectCommand prints queue stats.
func (c *JobsCLI) InspectCommand(ctx context.Context, opts InspectOptions) int {
	if opts.Stdout == nil {
		opts.Stdout = os.Stdout
	}
	if opts.Stderr == nil {
		opts.Stderr = os.Stderr
	}
	stats, err := c.InspectQueue(ctx)
	if err != nil {
		_, _ = fmt.Fprintf(opts.Stderr, "jobs-inspect: %v\n", err)
		return 1
	}
	if opts.JSONOutput {
		if err := json.NewEncoder(opts.Stdout).Encode(stats); err != nil {
			_, _ = fmt.Fprintf(opts.Stderr, "jobs-inspect: encode json: %v\n", err)
			return 1
		}
		return 0
	}
	tw := tabwriter.NewWriter(opts.Stdout, 0, 4, 2, ' ', 0)
	_, _ = fmt.Fprintln(tw, "QUEUE\tPENDING\tACTIVE\tSCHEDULED\tRETRY\tARCHIVED\tFAILED")
	_, _ = fmt.Fprintf(tw, "%s\t%d\t%d\t%d\t%d\t%d\t%d\n", stats.Queue, stats.Pending, stats.Active, stats.Scheduled, stats.Retry, stats.Archived, stats.Failed)
	_ = tw.Flush()
	return 0
}
