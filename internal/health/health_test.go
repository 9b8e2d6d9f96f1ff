package health

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func ok() PingFunc { return func(context.Context) error { return nil } }

func failing(msg string) PingFunc {
	return func(context.Context) error { return errors.New(msg) }
}

func decode(t *testing.T, w *httptest.ResponseRecorder) Report {
	t.Helper()

	var report Report
	require.NoError(t, json.NewDecoder(w.Body).Decode(&report))
	return report
}

func TestHandler_Healthy(t *testing.T) {
	handler := NewHandler("v1.0.0")
	handler.Critical("storage", ok())

	w := httptest.NewRecorder()
	handler.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/healthz", nil))

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "application/json", w.Header().Get("Content-Type"))

	report := decode(t, w)
	assert.Equal(t, StatusHealthy, report.Status)
	assert.Equal(t, "v1.0.0", report.Version)
	require.Len(t, report.Checks, 1)
	assert.Equal(t, "storage", report.Checks[0].Name)
	assert.True(t, report.Checks[0].Critical)
}

func TestHandler_CriticalFailure(t *testing.T) {
	handler := NewHandler("v1.0.0")
	handler.Critical("storage", failing("connection refused"))

	w := httptest.NewRecorder()
	handler.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/healthz", nil))

	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	report := decode(t, w)
	assert.Equal(t, StatusUnhealthy, report.Status)
	assert.Equal(t, "connection refused", report.Checks[0].Message)
}

func TestHandler_OptionalFailureDegrades(t *testing.T) {
	handler := NewHandler("dev")
	handler.Critical("storage", ok())
	handler.Optional("kafka", failing("no brokers"))

	report := handler.Evaluate(context.Background())

	assert.Equal(t, StatusDegraded, report.Status)
	require.Len(t, report.Checks, 2)
	assert.Equal(t, "kafka", report.Checks[0].Name)
	assert.Equal(t, "storage", report.Checks[1].Name)
	assert.True(t, handler.Ready(context.Background()))
}

func TestHandler_RegisterReplacesByName(t *testing.T) {
	handler := NewHandler("dev")
	handler.Critical("storage", failing("down"))
	handler.Critical("storage", ok())

	report := handler.Evaluate(context.Background())
	require.Len(t, report.Checks, 1)
	assert.Equal(t, StatusHealthy, report.Status)
}

func TestHandler_CheckTimeout(t *testing.T) {
	handler := NewHandler("dev")
	handler.SetTimeout(20 * time.Millisecond)
	handler.Critical("slow", PingFunc(func(ctx context.Context) error {
		<-ctx.Done()
		return ctx.Err()
	}))

	report := handler.Evaluate(context.Background())

	assert.Equal(t, StatusUnhealthy, report.Status)
	assert.Equal(t, context.DeadlineExceeded.Error(), report.Checks[0].Message)
}

func TestLivenessHandler(t *testing.T) {
	w := httptest.NewRecorder()
	LivenessHandler(w, httptest.NewRequest(http.MethodGet, "/livez", nil))

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "ok", w.Body.String())
}

func TestReadinessHandler(t *testing.T) {
	tests := []struct {
		name     string
		pinger   PingFunc
		wantCode int
		wantBody string
	}{
		{name: "ready", pinger: ok(), wantCode: http.StatusOK, wantBody: "ready"},
		{name: "not ready", pinger: failing("down"), wantCode: http.StatusServiceUnavailable, wantBody: "not ready"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			handler := NewHandler("dev")
			handler.Critical("storage", tt.pinger)

			w := httptest.NewRecorder()
			handler.ReadinessHandler(w, httptest.NewRequest(http.MethodGet, "/readyz", nil))

			assert.Equal(t, tt.wantCode, w.Code)
			assert.Equal(t, tt.wantBody, w.Body.String())
		})
	}
}
