package washhttp

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/hibiken/asynq"

	"github.com/odyssey-erp/costwash/internal/platform/httpx"
	"github.com/odyssey-erp/costwash/internal/wash"
	"github.com/odyssey-erp/costwash/jobs"
)

// Runner executes a wash inline.
type Runner interface {
	Run(ctx context.Context, ev wash.Event) wash.Outcome
}

// Enqueuer submits wash tasks to the worker queue.
type Enqueuer interface {
	EnqueueWash(ctx context.Context, payload jobs.WashFulfillmentPayload) (*asynq.TaskInfo, error)
}

// Handler accepts fulfillment events over HTTP.
type Handler struct {
	runner    Runner
	enqueuer  Enqueuer
	validator *validator.Validate
	logger    *slog.Logger
	rateLimit int
}

// Config wires the handler. Enqueuer may be nil, in which case only sync mode works.
type Config struct {
	Runner    Runner
	Enqueuer  Enqueuer
	Logger    *slog.Logger
	RateLimit int
}

// NewHandler constructs Handler.
func NewHandler(cfg Config) *Handler {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{
		runner:    cfg.Runner,
		enqueuer:  cfg.Enqueuer,
		validator: validator.New(),
		logger:    logger,
		rateLimit: cfg.RateLimit,
	}
}

type eventRequest struct {
	EventType  string `json:"event_type" validate:"required,oneof=create edit xedit ship delete"`
	RecordType string `json:"record_type" validate:"omitempty,max=64"`
	RecordID   string `json:"record_id" validate:"required,max=64"`
}

type enqueueResponse struct {
	TaskID   string `json:"task_id"`
	Queue    string `json:"queue"`
	RecordID string `json:"record_id"`
}

func (h *Handler) handleEvent(w http.ResponseWriter, r *http.Request) {
	var req eventRequest
	if err := httpx.DecodeJSON(w, r, &req); err != nil {
		httpx.RespondError(w, fmt.Errorf("%w: malformed json", httpx.ErrValidation))
		return
	}
	req.RecordID = strings.TrimSpace(req.RecordID)
	if err := h.validator.Struct(req); err != nil {
		httpx.RespondError(w, fmt.Errorf("%w: %s", httpx.ErrValidation, describeValidation(err)))
		return
	}
	ev := wash.Event{Type: wash.EventType(req.EventType), RecordType: req.RecordType, RecordID: req.RecordID}

	if r.URL.Query().Get("mode") == "sync" {
		out, shared, err := singleflightRun(r.Context(), "wash:"+ev.RecordID, func(ctx context.Context) wash.Outcome {
			return h.runner.Run(ctx, ev)
		})
		if err != nil {
			h.logger.Warn("wash sync run abandoned", slog.String("record_id", ev.RecordID), slog.Any("error", err))
			httpx.Problem(w, http.StatusGatewayTimeout, httpx.TypeTimeout, "Timeout", "request ended before the run finished")
			return
		}
		if shared {
			w.Header().Set("X-Wash-Shared", "true")
		}
		httpx.JSON(w, http.StatusOK, out)
		return
	}

	if h.enqueuer == nil {
		httpx.RespondError(w, fmt.Errorf("%w: queue not configured, use mode=sync", httpx.ErrUnavailable))
		return
	}
	info, err := h.enqueuer.EnqueueWash(r.Context(), jobs.WashFulfillmentPayload{
		EventType:  req.EventType,
		RecordType: req.RecordType,
		RecordID:   req.RecordID,
	})
	if err != nil {
		h.logger.Error("enqueue wash", slog.String("record_id", req.RecordID), slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	resp := enqueueResponse{RecordID: req.RecordID, Queue: jobs.QueueDefault}
	if info != nil {
		resp.TaskID = info.ID
		resp.Queue = info.Queue
	}
	httpx.JSON(w, http.StatusAccepted, resp)
}

func describeValidation(err error) string {
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return err.Error()
	}
	parts := make([]string, 0, len(fieldErrs))
	for _, fe := range fieldErrs {
		parts = append(parts, fmt.Sprintf("%s failed %s", jsonField(fe.Field()), fe.Tag()))
	}
	return strings.Join(parts, "; ")
}

func jsonField(name string) string {
	switch name {
	case "EventType":
		return "event_type"
	case "RecordType":
		return "record_type"
	case "RecordID":
		return "record_id"
	}
	return name
}
