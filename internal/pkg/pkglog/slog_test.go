package pkglog

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

type captureHandler struct {
	attrs map[string]slog.Value
}

func (h *captureHandler) Enabled(_ context.Context, _ slog.Level) bool {
	return true
}

func (h *captureHandler) Handle(_ context.Context, r slog.Record) error {
	if h.attrs == nil {
		h.attrs = make(map[string]slog.Value)
	}
	r.Attrs(func(a slog.Attr) bool {
		h.attrs[a.Key] = a.Value
		return true
	})
	return nil
}

func (h *captureHandler) WithAttrs(_ []slog.Attr) slog.Handler {
	return h
}

func (h *captureHandler) WithGroup(_ string) slog.Handler {
	return h
}

func TestContextHandlerAddsServiceAndRunID(t *testing.T) {
	capture := &captureHandler{}
	handler := &contextHandler{Handler: capture}

	ctx := SetRunID(context.Background(), "run-abc")
	rec := slog.NewRecord(time.Now(), slog.LevelInfo, "hello", 0)

	require.NoError(t, handler.Handle(ctx, rec))
	require.Equal(t, ServiceName, capture.attrs["service"].String())
	require.Equal(t, "run-abc", capture.attrs["_cID"].String())
}

func TestContextHandlerSkipsMissingRunID(t *testing.T) {
	capture := &captureHandler{}
	handler := &contextHandler{Handler: capture}

	rec := slog.NewRecord(time.Now(), slog.LevelInfo, "hello", 0)

	require.NoError(t, handler.Handle(context.Background(), rec))
	_, ok := capture.attrs["_cID"]
	require.False(t, ok)
	require.Equal(t, ServiceName, capture.attrs["service"].String())
}

func TestInitLoggingWritesJSON(t *testing.T) {
	prev := slog.Default()
	t.Cleanup(func() { slog.SetDefault(prev) })

	var buf bytes.Buffer
	InitLogging(&buf, slog.LevelInfo)

	slog.InfoContext(SetRunID(context.Background(), "run-1"), "converted", "rows", 3)
	slog.Debug("dropped")

	var rec map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &rec))
	require.Equal(t, "INFO", rec["severity"])
	require.Equal(t, "converted", rec["msg"])
	require.Equal(t, "run-1", rec["_cID"])
	require.Equal(t, ServiceName, rec["service"])
	require.Contains(t, rec, "ts")
}

func TestParseLevel(t *testing.T) {
	require.Equal(t, slog.LevelDebug, ParseLevel("debug"))
	require.Equal(t, slog.LevelWarn, ParseLevel("WARN"))
	require.Equal(t, slog.LevelInfo, ParseLevel("nonsense"))
}
