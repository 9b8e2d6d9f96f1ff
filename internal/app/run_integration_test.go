package app

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"strings"
	"testing"
	"time"

	log "github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRun_MemoryServesOrdersAndShutsDown(t *testing.T) {
	cfg := DefaultConfig()
	cfg.HTTPAddr = fmt.Sprintf("127.0.0.1:%d", findFreePort(t))
	cfg.GRPCAddr = "127.0.0.1:0"
	cfg.MetricsAddr = fmt.Sprintf("127.0.0.1:%d", findFreePort(t))
	cfg.MemoryToads = 1

	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() { errCh <- Run(ctx, cfg) }()

	base := "http://" + cfg.HTTPAddr
	require.Eventually(t, func() bool {
		resp, err := http.Get(base + "/orders/1")
		if err != nil {
			return false
		}
		resp.Body.Close()
		return resp.StatusCode == http.StatusUnauthorized
	}, 3*time.Second, 20*time.Millisecond)

	req, err := http.NewRequest(http.MethodPost, base+"/orders", nil)
	require.NoError(t, err)
	req.Header.Set("X-User-ID", "42")
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	var order struct {
		ID     int64  `json:"id"`
		Status string `json:"status"`
		ToadID *int64 `json:"toad_id"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&order))
	assert.Equal(t, "Created", order.Status)
	require.NotNil(t, order.ToadID)
	assert.Equal(t, int64(1), *order.ToadID)

	ready, err := http.Get("http://" + cfg.MetricsAddr + "/readyz")
	require.NoError(t, err)
	ready.Body.Close()
	assert.Equal(t, http.StatusOK, ready.StatusCode)

	cancel()
	select {
	case err := <-errCh:
		assert.True(t, errors.Is(err, context.Canceled), "expected context.Canceled, got %v", err)
	case <-time.After(10 * time.Second):
		t.Fatal("Run did not return after cancel")
	}
}

func TestRun_InvalidStorageDriver(t *testing.T) {
	cfg := DefaultConfig()
	cfg.StorageDriver = "invalid-driver"
	cfg.HTTPAddr = "127.0.0.1:0"
	cfg.GRPCAddr = "127.0.0.1:0"
	cfg.MetricsAddr = "127.0.0.1:0"

	err := Run(context.Background(), cfg)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported storage driver")
}

func TestRun_InvalidLifecycleNames(t *testing.T) {
	cfg := DefaultConfig()
	cfg.StatusIssued = cfg.StatusCreated

	require.Error(t, Run(context.Background(), cfg))
}

func TestRun_InvalidTracingExporter(t *testing.T) {
	cfg := DefaultConfig()
	cfg.TracingExporter = "zipkin"

	require.Error(t, Run(context.Background(), cfg))
}

func TestInitRuntimeDependencies_PostgresSuccess(t *testing.T) {
	dsn := strings.TrimSpace(os.Getenv("CAFE_POSTGRES_TEST_DSN"))
	if dsn == "" {
		t.Skip("CAFE_POSTGRES_TEST_DSN is not set")
	}

	cfg := DefaultConfig()
	cfg.StorageDriver = StorageDriverPostgres
	cfg.PostgresDSN = dsn
	cfg.PostgresAutoMigrate = true

	deps, err := initRuntimeDependencies(context.Background(), cfg, log.WithField("test", "postgres-init"))
	if err != nil {
		t.Skipf("postgres is not available for app integration test: %v", err)
	}
	defer func() { _ = deps.closeFn() }()

	require.NotNil(t, deps.uow)
	require.NotNil(t, deps.outboxRepo)
	require.NoError(t, deps.storage.Ping(context.Background()))
}
