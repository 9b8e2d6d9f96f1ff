package main

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vladislavdragonenkov/frogcafe/internal/service/httpapi"
	"github.com/vladislavdragonenkov/frogcafe/internal/service/orders"
	"github.com/vladislavdragonenkov/frogcafe/internal/storage/memory"
)

func newCafeServer(t *testing.T, toads int) (*httptest.Server, *memory.Store) {
	t.Helper()

	gin.SetMode(gin.TestMode)
	store := memory.NewStore(memory.WithToads(toads))
	server := httptest.NewServer(httpapi.NewRouter(orders.NewManager(store)))
	t.Cleanup(server.Close)
	return server, store
}

func TestParseMode(t *testing.T) {
	mode, err := parseMode(" Create ")
	require.NoError(t, err)
	assert.Equal(t, modeCreate, mode)

	mode, err = parseMode("lifecycle")
	require.NoError(t, err)
	assert.Equal(t, modeLifecycle, mode)

	_, err = parseMode("create-pay")
	assert.Error(t, err)
}

func TestParseConfig(t *testing.T) {
	cfg, err := parseConfig(nil)
	require.NoError(t, err)
	assert.Equal(t, "http://localhost:8080", cfg.baseURL)
	assert.Equal(t, modeCreate, cfg.mode)
	assert.Equal(t, int64(4), cfg.issuedStatusID)

	cfg, err = parseConfig([]string{"-url", "http://cafe:8080/", "-total", "10", "-concurrency", "2", "-mode", "lifecycle"})
	require.NoError(t, err)
	assert.Equal(t, "http://cafe:8080", cfg.baseURL)
	assert.Equal(t, 10, cfg.total)
	assert.Equal(t, 2, cfg.concurrency)
	assert.Equal(t, modeLifecycle, cfg.mode)

	invalid := [][]string{
		{"-total", "0"},
		{"-concurrency", "-1"},
		{"-timeout", "0s"},
		{"-mode", "burst"},
		{"-url", " "},
		{"-user-base", "0"},
		{"-unknown"},
	}
	for _, args := range invalid {
		_, err := parseConfig(args)
		assert.Error(t, err, "%v", args)
	}
}

func TestRun_CreateModeNeverDuplicatesToads(t *testing.T) {
	server, store := newCafeServer(t, 5)

	cfg := config{baseURL: server.URL, total: 20, concurrency: 8, timeout: 2 * time.Second, mode: modeCreate, userBase: 100}
	result := run(context.Background(), cfg, server.Client())

	assert.Equal(t, int64(20), result.TotalScenarios)
	assert.Zero(t, result.FailedScenarios)
	assert.Equal(t, 5, result.OrdersWithToad)
	assert.Equal(t, 15, result.OrdersWithout)
	assert.Empty(t, result.DuplicateToadIDs)
	assert.Equal(t, 20, store.OrderCount())
	assert.Equal(t, 0, store.FreeToads())
	assert.Equal(t, int64(20), result.Methods[methodCreate].Codes["201"])
}

func TestRun_LifecycleModeRecyclesToads(t *testing.T) {
	server, store := newCafeServer(t, 2)

	cfg := config{baseURL: server.URL, total: 12, concurrency: 2, timeout: 2 * time.Second, mode: modeLifecycle, issuedStatusID: 4, userBase: 1}
	result := run(context.Background(), cfg, server.Client())

	assert.Zero(t, result.FailedScenarios)
	assert.Equal(t, 0, store.OrderCount())
	assert.Equal(t, 2, store.FreeToads())
	assert.Equal(t, int64(12), result.Methods[methodDelete].Success)
	assert.Empty(t, result.DuplicateToadIDs)
}

func TestRun_ReportsFailures(t *testing.T) {
	server, _ := newCafeServer(t, 1)

	cfg := config{baseURL: server.URL, total: 3, concurrency: 1, timeout: time.Second, mode: modeLifecycle, issuedStatusID: 99, userBase: 1}
	result := run(context.Background(), cfg, server.Client())

	assert.Equal(t, int64(3), result.FailedScenarios)
	assert.Equal(t, int64(3), result.Methods[methodSetStatus].Codes["404"])
	_, deleted := result.Methods[methodDelete]
	assert.False(t, deleted)
}

func TestCollector_DuplicateDetection(t *testing.T) {
	c := newCollector()
	one, two := int64(1), int64(2)
	c.recordToad(&one)
	c.recordToad(&two)
	c.recordToad(&one)
	c.recordToad(nil)

	created := c.buildReport(modeCreate, time.Now(), time.Second)
	assert.Equal(t, []int64{1}, created.DuplicateToadIDs)
	assert.Equal(t, 3, created.OrdersWithToad)
	assert.Equal(t, 1, created.OrdersWithout)

	recycled := c.buildReport(modeLifecycle, time.Now(), time.Second)
	assert.Empty(t, recycled.DuplicateToadIDs)
}

func TestUtilityFunctions(t *testing.T) {
	summary := buildLatencySummary([]float64{4, 1, 3, 2})
	assert.Equal(t, 1.0, summary.Min)
	assert.Equal(t, 4.0, summary.Max)
	assert.Equal(t, 2.5, summary.Avg)
	assert.Equal(t, 2.5, summary.P50)

	assert.Equal(t, latencySummary{}, buildLatencySummary(nil))
	assert.Equal(t, 7.0, percentile([]float64{7}, 99))
	assert.Equal(t, 0.25, ratio(1, 4))
	assert.Zero(t, ratio(1, 0))
	assert.Equal(t, "transport_error", codeLabel(0))
	assert.Equal(t, "412", codeLabel(http.StatusPreconditionFailed))
}

func TestWriteJSONReport(t *testing.T) {
	require.NoError(t, writeJSONReport("", report{}))

	path := filepath.Join(t.TempDir(), "reports", "load.json")
	require.NoError(t, writeJSONReport(path, report{Mode: modeCreate, TotalScenarios: 3}))

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	var decoded report
	require.NoError(t, json.Unmarshal(raw, &decoded))
	assert.Equal(t, int64(3), decoded.TotalScenarios)
}

func TestPrintReport(t *testing.T) {
	var out bytes.Buffer
	result := report{
		Mode:             modeCreate,
		TotalScenarios:   2,
		DuplicateToadIDs: []int64{3},
		Methods: map[string]methodReport{
			methodCreate: {Calls: 2, Success: 2},
		},
	}
	printReport(&out, result, config{baseURL: "http://cafe", total: 2, concurrency: 1})

	assert.Contains(t, out.String(), "target=http://cafe mode=create")
	assert.Contains(t, out.String(), methodCreate)
	assert.Contains(t, out.String(), "VIOLATION")
}
