package jobs

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/require"
)

func TestNewWashFulfillmentTask(t *testing.T) {
	at := time.Date(2026, 5, 4, 10, 0, 0, 0, time.UTC)
	task, err := NewWashFulfillmentTask(WashFulfillmentPayload{EventType: "ship", RecordID: "2001", RequestedAt: at})
	require.NoError(t, err)
	require.Equal(t, TaskWashFulfillment, task.Type())

	var decoded WashFulfillmentPayload
	require.NoError(t, json.Unmarshal(task.Payload(), &decoded))
	require.Equal(t, "2001", decoded.RecordID)
	require.True(t, at.Equal(decoded.RequestedAt))

	_, err = NewWashFulfillmentTask(WashFulfillmentPayload{EventType: "ship"})
	require.Error(t, err)
}

func TestNewWashSweepTask(t *testing.T) {
	task, err := NewWashSweepTask(WashSweepPayload{Lookback: time.Hour, Limit: 50})
	require.NoError(t, err)
	require.Equal(t, TaskWashSweep, task.Type())
	require.JSONEq(t, `{"lookback":3600000000000,"limit":50}`, string(task.Payload()))
}

func TestHealthWithoutInspector(t *testing.T) {
	r := chi.NewRouter()
	r.Route("/jobs", NewHandler(nil, slog.New(slog.NewTextHandler(io.Discard, nil))).MountRoutes)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/jobs/health", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	require.JSONEq(t, `{"queue":"default","pending":0,"failed":0}`, rec.Body.String())
}
