package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"math"
	"net/http"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"
)

type loadMode string

const (
	// modeCreate только создаёт заказы: все они остаются живыми, жабы не должны повторяться.
	modeCreate loadMode = "create"
	// modeLifecycle создаёт, выдаёт и удаляет заказ, возвращая жабу в пул.
	modeLifecycle loadMode = "lifecycle"
)

const (
	methodCreate    = "POST /orders"
	methodSetStatus = "PUT /orders/:id/status"
	methodDelete    = "DELETE /orders/:id"
	methodScenario  = "scenario"
)

type config struct {
	baseURL        string
	total          int
	concurrency    int
	timeout        time.Duration
	mode           loadMode
	issuedStatusID int64
	userBase       int64
	outputPath     string
}

type latencySummary struct {
	Min float64 `json:"min"`
	Max float64 `json:"max"`
	Avg float64 `json:"avg"`
	P50 float64 `json:"p50"`
	P95 float64 `json:"p95"`
	P99 float64 `json:"p99"`
}

type methodReport struct {
	Calls     int64            `json:"calls"`
	Success   int64            `json:"success"`
	Failed    int64            `json:"failed"`
	ErrorRate float64          `json:"error_rate"`
	Codes     map[string]int64 `json:"codes"`
	LatencyMs latencySummary   `json:"latency_ms"`
}

type report struct {
	StartedAt        time.Time               `json:"started_at"`
	DurationSeconds  float64                 `json:"duration_seconds"`
	Mode             loadMode                `json:"mode"`
	TotalScenarios   int64                   `json:"total_scenarios"`
	FailedScenarios  int64                   `json:"failed_scenarios"`
	RPS              float64                 `json:"rps"`
	OrdersWithToad   int                     `json:"orders_with_toad"`
	OrdersWithout    int                     `json:"orders_without_toad"`
	DuplicateToadIDs []int64                 `json:"duplicate_toad_ids,omitempty"`
	Methods          map[string]methodReport `json:"methods"`
}

type methodStats struct {
	calls     int64
	success   int64
	failed    int64
	codes     map[string]int64
	latencies []float64
}

// collector собирает задержки по методам и выданные заказам жабы.
type collector struct {
	mu      sync.Mutex
	methods map[string]*methodStats
	toads   map[int64]int
	noToad  int
}

func newCollector() *collector {
	return &collector{
		methods: make(map[string]*methodStats),
		toads:   make(map[int64]int),
	}
}

func (c *collector) record(method string, latency time.Duration, code int, ok bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	stats, exists := c.methods[method]
	if !exists {
		stats = &methodStats{codes: make(map[string]int64)}
		c.methods[method] = stats
	}

	stats.calls++
	if ok {
		stats.success++
	} else {
		stats.failed++
	}
	stats.codes[codeLabel(code)]++
	stats.latencies = append(stats.latencies, float64(latency.Microseconds())/1000.0)
}

func (c *collector) recordToad(toadID *int64) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if toadID == nil {
		c.noToad++
		return
	}
	c.toads[*toadID]++
}

func (c *collector) buildReport(mode loadMode, startedAt time.Time, duration time.Duration) report {
	c.mu.Lock()
	defer c.mu.Unlock()

	result := report{
		StartedAt:       startedAt.UTC(),
		DurationSeconds: duration.Seconds(),
		Mode:            mode,
		OrdersWithout:   c.noToad,
		Methods:         make(map[string]methodReport, len(c.methods)),
	}

	for name, stats := range c.methods {
		codes := make(map[string]int64, len(stats.codes))
		for code, count := range stats.codes {
			codes[code] = count
		}
		result.Methods[name] = methodReport{
			Calls:     stats.calls,
			Success:   stats.success,
			Failed:    stats.failed,
			ErrorRate: ratio(stats.failed, stats.calls),
			Codes:     codes,
			LatencyMs: buildLatencySummary(stats.latencies),
		}
	}
	if scenario, ok := c.methods[methodScenario]; ok {
		result.TotalScenarios = scenario.calls
		result.FailedScenarios = scenario.failed
	}
	if duration > 0 {
		result.RPS = float64(result.TotalScenarios) / duration.Seconds()
	}

	for toadID, count := range c.toads {
		result.OrdersWithToad += count
		// В lifecycle-режиме жаба возвращается в пул и может достаться следующему заказу.
		if count > 1 && mode == modeCreate {
			result.DuplicateToadIDs = append(result.DuplicateToadIDs, toadID)
		}
	}
	sort.Slice(result.DuplicateToadIDs, func(i, j int) bool {
		return result.DuplicateToadIDs[i] < result.DuplicateToadIDs[j]
	})

	return result
}

func parseConfig(args []string) (config, error) {
	var cfg config
	var mode string

	fs := flag.NewFlagSet("loadtest", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	fs.StringVar(&cfg.baseURL, "url", "http://localhost:8080", "Frog Café API base URL")
	fs.IntVar(&cfg.total, "total", 200, "total scenarios to execute")
	fs.IntVar(&cfg.concurrency, "concurrency", 16, "parallel workers")
	fs.DurationVar(&cfg.timeout, "timeout", 5*time.Second, "per-request timeout")
	fs.StringVar(&mode, "mode", string(modeCreate), "scenario: create|lifecycle")
	fs.Int64Var(&cfg.issuedStatusID, "issued-status-id", 4, "status id of the issued status (lifecycle mode)")
	fs.Int64Var(&cfg.userBase, "user-base", 1000, "first user id; worker i sends user-base+i")
	fs.StringVar(&cfg.outputPath, "out", "", "optional path for JSON report")
	if err := fs.Parse(args); err != nil {
		return config{}, err
	}

	parsedMode, err := parseMode(mode)
	if err != nil {
		return config{}, err
	}
	cfg.mode = parsedMode
	cfg.baseURL = strings.TrimRight(strings.TrimSpace(cfg.baseURL), "/")

	switch {
	case cfg.baseURL == "":
		return config{}, errors.New("url must not be empty")
	case cfg.total <= 0:
		return config{}, errors.New("total must be > 0")
	case cfg.concurrency <= 0:
		return config{}, errors.New("concurrency must be > 0")
	case cfg.timeout <= 0:
		return config{}, errors.New("timeout must be > 0")
	case cfg.userBase <= 0:
		return config{}, errors.New("user-base must be > 0")
	}
	return cfg, nil
}

func parseMode(value string) (loadMode, error) {
	switch loadMode(strings.ToLower(strings.TrimSpace(value))) {
	case modeCreate:
		return modeCreate, nil
	case modeLifecycle:
		return modeLifecycle, nil
	default:
		return "", fmt.Errorf("unsupported mode %q (use create|lifecycle)", value)
	}
}

type createdOrder struct {
	ID     int64  `json:"id"`
	ToadID *int64 `json:"toad_id"`
}

type client struct {
	http    *http.Client
	baseURL string
	stats   *collector
}

func (c *client) do(ctx context.Context, method, name, path string, userID int64, body string, want int) (*http.Response, error) {
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return nil, err
	}
	req.Header.Set("X-User-ID", strconv.FormatInt(userID, 10))
	req.Header.Set("X-User-Role", "1")
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		c.stats.record(name, time.Since(start), 0, false)
		return nil, err
	}
	ok := resp.StatusCode == want
	c.stats.record(name, time.Since(start), resp.StatusCode, ok)
	if !ok {
		_, _ = io.Copy(io.Discard, resp.Body)
		resp.Body.Close()
		return nil, fmt.Errorf("%s: unexpected status %d", name, resp.StatusCode)
	}
	return resp, nil
}

func (c *client) createOrder(ctx context.Context, userID int64) (createdOrder, error) {
	resp, err := c.do(ctx, http.MethodPost, methodCreate, "/orders", userID, "", http.StatusCreated)
	if err != nil {
		return createdOrder{}, err
	}
	defer resp.Body.Close()

	var order createdOrder
	if err := json.NewDecoder(resp.Body).Decode(&order); err != nil {
		return createdOrder{}, fmt.Errorf("decode order: %w", err)
	}
	return order, nil
}

func (c *client) issueAndDelete(ctx context.Context, orderID, userID, issuedStatusID int64) error {
	path := "/orders/" + strconv.FormatInt(orderID, 10)
	body := fmt.Sprintf(`{"status_id":%d}`, issuedStatusID)

	resp, err := c.do(ctx, http.MethodPut, methodSetStatus, path+"/status", userID, body, http.StatusOK)
	if err != nil {
		return err
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	resp.Body.Close()

	resp, err = c.do(ctx, http.MethodDelete, methodDelete, path, userID, "", http.StatusNoContent)
	if err != nil {
		return err
	}
	resp.Body.Close()
	return nil
}

func runScenario(ctx context.Context, c *client, cfg config, userID int64) error {
	ctx, cancel := context.WithTimeout(ctx, cfg.timeout)
	defer cancel()

	order, err := c.createOrder(ctx, userID)
	if err != nil {
		return err
	}
	c.stats.recordToad(order.ToadID)
	if cfg.mode == modeCreate {
		return nil
	}
	return c.issueAndDelete(ctx, order.ID, userID, cfg.issuedStatusID)
}

// run выполняет cfg.total сценариев в cfg.concurrency воркерах.
func run(ctx context.Context, cfg config, httpClient *http.Client) report {
	stats := newCollector()
	c := &client{http: httpClient, baseURL: cfg.baseURL, stats: stats}

	jobs := make(chan int)
	go func() {
		defer close(jobs)
		for i := 0; i < cfg.total; i++ {
			select {
			case <-ctx.Done():
				return
			case jobs <- i:
			}
		}
	}()

	startedAt := time.Now()
	var wg sync.WaitGroup
	for w := 0; w < cfg.concurrency; w++ {
		wg.Add(1)
		go func(worker int) {
			defer wg.Done()
			userID := cfg.userBase + int64(worker)
			for range jobs {
				start := time.Now()
				err := runScenario(ctx, c, cfg, userID)
				stats.record(methodScenario, time.Since(start), 0, err == nil)
			}
		}(w)
	}
	wg.Wait()

	return stats.buildReport(cfg.mode, startedAt, time.Since(startedAt))
}

func writeJSONReport(path string, result report) error {
	if strings.TrimSpace(path) == "" {
		return nil
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create report dir: %w", err)
		}
	}
	payload, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal report: %w", err)
	}
	if err := os.WriteFile(path, payload, 0o600); err != nil {
		return fmt.Errorf("write report: %w", err)
	}
	return nil
}

func printReport(w io.Writer, result report, cfg config) {
	_, _ = fmt.Fprintf(w, "target=%s mode=%s total=%d concurrency=%d\n", cfg.baseURL, result.Mode, cfg.total, cfg.concurrency)
	_, _ = fmt.Fprintf(w, "duration=%.2fs rps=%.1f scenarios=%d failed=%d\n",
		result.DurationSeconds, result.RPS, result.TotalScenarios, result.FailedScenarios)
	_, _ = fmt.Fprintf(w, "orders with toad=%d without toad=%d\n", result.OrdersWithToad, result.OrdersWithout)

	names := make([]string, 0, len(result.Methods))
	for name := range result.Methods {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		m := result.Methods[name]
		_, _ = fmt.Fprintf(w, "%-24s calls=%d ok=%d failed=%d p50=%.2fms p95=%.2fms p99=%.2fms\n",
			name, m.Calls, m.Success, m.Failed, m.LatencyMs.P50, m.LatencyMs.P95, m.LatencyMs.P99)
	}

	if len(result.DuplicateToadIDs) > 0 {
		_, _ = fmt.Fprintf(w, "VIOLATION: toads handed to several live orders: %v\n", result.DuplicateToadIDs)
	}
}

func codeLabel(code int) string {
	if code == 0 {
		return "transport_error"
	}
	return strconv.Itoa(code)
}

func buildLatencySummary(values []float64) latencySummary {
	if len(values) == 0 {
		return latencySummary{}
	}

	sorted := make([]float64, len(values))
	copy(sorted, values)
	sort.Float64s(sorted)

	var sum float64
	for _, value := range sorted {
		sum += value
	}

	return latencySummary{
		Min: sorted[0],
		Max: sorted[len(sorted)-1],
		Avg: sum / float64(len(sorted)),
		P50: percentile(sorted, 50),
		P95: percentile(sorted, 95),
		P99: percentile(sorted, 99),
	}
}

func percentile(sorted []float64, p float64) float64 {
	if len(sorted) == 0 {
		return 0
	}
	if len(sorted) == 1 {
		return sorted[0]
	}

	rank := (p / 100.0) * float64(len(sorted)-1)
	lower := int(math.Floor(rank))
	upper := int(math.Ceil(rank))
	if lower == upper {
		return sorted[lower]
	}

	weight := rank - float64(lower)
	return sorted[lower] + (sorted[upper]-sorted[lower])*weight
}

func ratio(failed, total int64) float64 {
	if total == 0 {
		return 0
	}
	return float64(failed) / float64(total)
}

func main() {
	cfg, err := parseConfig(os.Args[1:])
	if err != nil {
		_, _ = fmt.Fprintf(os.Stderr, "invalid arguments: %v\n", err)
		os.Exit(2)
	}

	ctx := context.Background()
	result := run(ctx, cfg, &http.Client{Timeout: cfg.timeout})
	printReport(os.Stdout, result, cfg)

	if err := writeJSONReport(cfg.outputPath, result); err != nil {
		_, _ = fmt.Fprintf(os.Stderr, "%v\n", err)
		os.Exit(1)
	}
	if len(result.DuplicateToadIDs) > 0 {
		os.Exit(3)
	}
}
