package observability

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newJSONLogger(buf *bytes.Buffer) *slog.Logger {
	return slog.New(NewContextHandler(slog.NewJSONHandler(buf, &slog.HandlerOptions{Level: slog.LevelDebug})))
}

func lastRecord(t *testing.T, buf *bytes.Buffer) map[string]any {
	t.Helper()
	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	var rec map[string]any
	require.NoError(t, json.Unmarshal([]byte(lines[len(lines)-1]), &rec))
	return rec
}

func TestContextValuesAccumulate(t *testing.T) {
	ctx := WithCycle(context.Background(), "c-1", "poll")
	ctx = WithPartition(ctx, "44-1")
	ctx = WithJob(ctx, "gazette-scan")

	lc := GetContext(ctx)
	assert.Equal(t, LogContext{CycleID: "c-1", Mode: "poll", Partition: "44-1", Job: "gazette-scan"}, lc)
	assert.Len(t, Attrs(ctx), 4)
	assert.Empty(t, Attrs(context.Background()))
}

func TestContextHandler_AddsAttrs(t *testing.T) {
	var buf bytes.Buffer
	logger := newJSONLogger(&buf)

	ctx := WithCycle(t.Context(), "c-9", "backfill")
	logger.InfoContext(ctx, "merged")

	rec := lastRecord(t, &buf)
	assert.Equal(t, "c-9", rec["cycle_id"])
	assert.Equal(t, "backfill", rec["mode"])
}

func TestContextHandler_NoContextNoAttrs(t *testing.T) {
	var buf bytes.Buffer
	newJSONLogger(&buf).Info("plain")

	rec := lastRecord(t, &buf)
	assert.NotContains(t, rec, "cycle_id")
}

func TestContextHandler_DoesNotDuplicateBoundKeys(t *testing.T) {
	var buf bytes.Buffer
	logger := newJSONLogger(&buf).With(slog.String("cycle_id", "bound"))

	logger.InfoContext(WithCycle(t.Context(), "ctx", "poll"), "x")
	assert.Equal(t, 1, strings.Count(buf.String(), `"cycle_id"`))
	assert.Equal(t, "bound", lastRecord(t, &buf)["cycle_id"])

	buf.Reset()
	newJSONLogger(&buf).InfoContext(WithJob(t.Context(), "ctx-job"), "y", slog.String("job", "explicit"))
	assert.Equal(t, 1, strings.Count(buf.String(), `"job"`))
}

func TestNewContextHandler_Idempotent(t *testing.T) {
	h := NewContextHandler(slog.NewTextHandler(&bytes.Buffer{}, nil))
	assert.Same(t, h, NewContextHandler(h))
}
