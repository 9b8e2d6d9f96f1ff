package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vladislavdragonenkov/frogcafe/internal/domain"
	"github.com/vladislavdragonenkov/frogcafe/internal/metrics"
	"github.com/vladislavdragonenkov/frogcafe/internal/service/orders"
	"github.com/vladislavdragonenkov/frogcafe/internal/storage/memory"
)

const (
	statusReadyID  = 3
	statusIssuedID = 4
)

func init() {
	gin.SetMode(gin.TestMode)
}

type apiFixture struct {
	store  *memory.Store
	router *gin.Engine
}

func newFixture(t *testing.T, toads int, opts ...orders.Option) apiFixture {
	t.Helper()

	store := memory.NewStore(memory.WithToads(toads))
	manager := orders.NewManager(store, opts...)
	return apiFixture{store: store, router: NewRouter(manager)}
}

func (f apiFixture) do(method, path string, body any, userID int64, role domain.Role) *httptest.ResponseRecorder {
	var reader *bytes.Reader
	switch v := body.(type) {
	case nil:
		reader = bytes.NewReader(nil)
	case string:
		reader = bytes.NewReader([]byte(v))
	default:
		raw, _ := json.Marshal(v)
		reader = bytes.NewReader(raw)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if userID > 0 {
		req.Header.Set(HeaderUserID, strconv.FormatInt(userID, 10))
		req.Header.Set(HeaderUserRole, strconv.Itoa(int(role)))
	}

	w := httptest.NewRecorder()
	f.router.ServeHTTP(w, req)
	return w
}

func (f apiFixture) create(t *testing.T, userID int64) OrderResponse {
	t.Helper()

	w := f.do(http.MethodPost, "/orders", nil, userID, domain.RoleCustomer)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	var order OrderResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &order))
	return order
}

func decodeProblem(t *testing.T, w *httptest.ResponseRecorder) Problem {
	t.Helper()

	assert.Equal(t, ContentTypeProblemJSON, w.Header().Get("Content-Type"))
	var problem Problem
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &problem))
	return problem
}

func TestCreateOrder(t *testing.T) {
	f := newFixture(t, 2)

	order := f.create(t, 42)

	assert.Positive(t, order.ID)
	assert.Equal(t, "Created", order.Status)
	require.NotNil(t, order.ToadID)
	assert.Equal(t, int64(1), *order.ToadID)
	assert.Empty(t, order.Items)
	assert.False(t, order.CreatedAt.IsZero())
}

func TestCreateOrder_ResponseShape(t *testing.T) {
	f := newFixture(t, 0)

	w := f.do(http.MethodPost, "/orders", nil, 42, domain.RoleCustomer)
	require.Equal(t, http.StatusCreated, w.Code)

	var raw map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &raw))
	assert.NotContains(t, raw, "toad_id")
	assert.Equal(t, []any{}, raw["items"])
	assert.Contains(t, raw, "created_at")
}

func TestCreateOrder_RequireToadExhausted(t *testing.T) {
	f := newFixture(t, 1, orders.WithAllocationPolicy(orders.PolicyRequireToad))
	f.create(t, 1)

	w := f.do(http.MethodPost, "/orders", nil, 2, domain.RoleCustomer)

	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, http.StatusConflict, decodeProblem(t, w).Status)
	assert.Equal(t, 1, f.store.OrderCount())
}

func TestCreateOrder_MissingInitialStatus(t *testing.T) {
	store := memory.NewStore(memory.WithToads(1), memory.WithStatuses("Cooking", "Issued"))
	router := NewRouter(orders.NewManager(store))

	req := httptest.NewRequest(http.MethodPost, "/orders", nil)
	req.Header.Set(HeaderUserID, "5")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Equal(t, 0, store.OrderCount())
	assert.Equal(t, 1, store.FreeToads())
}

func TestIdentity(t *testing.T) {
	f := newFixture(t, 1)

	tests := []struct {
		name   string
		userID string
		role   string
	}{
		{name: "missing user", userID: ""},
		{name: "non numeric user", userID: "abc"},
		{name: "negative user", userID: "-3"},
		{name: "bad role", userID: "7", role: "admin"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/orders", nil)
			if tt.userID != "" {
				req.Header.Set(HeaderUserID, tt.userID)
			}
			if tt.role != "" {
				req.Header.Set(HeaderUserRole, tt.role)
			}
			w := httptest.NewRecorder()
			f.router.ServeHTTP(w, req)

			assert.Equal(t, http.StatusUnauthorized, w.Code)
			assert.Equal(t, "/orders", decodeProblem(t, w).Instance)
		})
	}
	assert.Equal(t, 0, f.store.OrderCount())
}

func TestParseCaller_DefaultsToCustomer(t *testing.T) {
	caller, ok := parseCaller("12", "")
	require.True(t, ok)
	assert.Equal(t, domain.Caller{UserID: 12, Role: domain.RoleCustomer}, caller)

	caller, ok = parseCaller(" 3 ", "0")
	require.True(t, ok)
	assert.True(t, caller.IsAdmin())
}

func TestGetOrder_Access(t *testing.T) {
	f := newFixture(t, 2)
	order := f.create(t, 10)
	path := fmt.Sprintf("/orders/%d", order.ID)

	own := f.do(http.MethodGet, path, nil, 10, domain.RoleCustomer)
	assert.Equal(t, http.StatusOK, own.Code)

	other := f.do(http.MethodGet, path, nil, 11, domain.RoleCustomer)
	assert.Equal(t, http.StatusForbidden, other.Code)

	admin := f.do(http.MethodGet, path, nil, 99, domain.RoleAdmin)
	assert.Equal(t, http.StatusOK, admin.Code)

	missing := f.do(http.MethodGet, "/orders/999", nil, 10, domain.RoleCustomer)
	assert.Equal(t, http.StatusNotFound, missing.Code)

	badID := f.do(http.MethodGet, "/orders/abc", nil, 10, domain.RoleCustomer)
	assert.Equal(t, http.StatusBadRequest, badID.Code)
}

func TestGetOrder_WithItems(t *testing.T) {
	f := newFixture(t, 1)
	order := f.create(t, 10)

	soup := f.store.AddMenuItem(domain.LineItem{DishName: "Swamp soup", Category: "soups", IsAvailable: true, QuantityLeft: 5})
	fly := f.store.AddMenuItem(domain.LineItem{DishName: "Fly pie", Category: "desserts", IsAvailable: false})
	require.NoError(t, f.store.AddCartItem(order.ID, soup))
	require.NoError(t, f.store.AddCartItem(order.ID, soup))
	require.NoError(t, f.store.AddCartItem(order.ID, fly))

	w := f.do(http.MethodGet, fmt.Sprintf("/orders/%d", order.ID), nil, 10, domain.RoleCustomer)
	require.Equal(t, http.StatusOK, w.Code)

	var got OrderResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &got))
	assert.ElementsMatch(t, []ItemResponse{
		{MenuItemID: soup, DishName: "Swamp soup", Category: "soups", IsAvailable: true, Quantity: 2},
		{MenuItemID: fly, DishName: "Fly pie", Category: "desserts", IsAvailable: false, Quantity: 1},
	}, got.Items)
}

func TestSetStatus(t *testing.T) {
	f := newFixture(t, 1)
	order := f.create(t, 10)
	path := fmt.Sprintf("/orders/%d/status", order.ID)

	w := f.do(http.MethodPut, path, map[string]int64{"status_id": statusReadyID}, 10, domain.RoleCustomer)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var got OrderResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &got))
	assert.Equal(t, "Ready", got.Status)
	assert.Equal(t, order.ToadID, got.ToadID)
}

func TestSetStatus_Failures(t *testing.T) {
	f := newFixture(t, 1)
	order := f.create(t, 10)
	path := fmt.Sprintf("/orders/%d/status", order.ID)

	tests := []struct {
		name     string
		path     string
		body     any
		wantCode int
	}{
		{name: "unknown status", path: path, body: map[string]int64{"status_id": 77}, wantCode: http.StatusNotFound},
		{name: "unknown order", path: "/orders/555/status", body: map[string]int64{"status_id": statusReadyID}, wantCode: http.StatusNotFound},
		{name: "missing status_id", path: path, body: map[string]string{}, wantCode: http.StatusBadRequest},
		{name: "malformed json", path: path, body: "{status_id:", wantCode: http.StatusBadRequest},
		{name: "wrong type", path: path, body: `{"status_id":"ready"}`, wantCode: http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := f.do(http.MethodPut, tt.path, tt.body, 10, domain.RoleCustomer)
			assert.Equal(t, tt.wantCode, w.Code, w.Body.String())
			assert.Equal(t, tt.wantCode, decodeProblem(t, w).Status)
		})
	}

	still := f.do(http.MethodGet, fmt.Sprintf("/orders/%d", order.ID), nil, 10, domain.RoleCustomer)
	assert.Contains(t, still.Body.String(), `"status":"Created"`)
}

func TestDeleteOrder(t *testing.T) {
	f := newFixture(t, 1)
	order := f.create(t, 10)
	path := fmt.Sprintf("/orders/%d", order.ID)

	notIssued := f.do(http.MethodDelete, path, nil, 10, domain.RoleCustomer)
	assert.Equal(t, http.StatusPreconditionFailed, notIssued.Code)
	assert.Equal(t, 1, f.store.OrderCount())

	issue := f.do(http.MethodPut, path+"/status", map[string]int64{"status_id": statusIssuedID}, 10, domain.RoleCustomer)
	require.Equal(t, http.StatusOK, issue.Code)

	deleted := f.do(http.MethodDelete, path, nil, 10, domain.RoleCustomer)
	assert.Equal(t, http.StatusNoContent, deleted.Code)
	assert.Empty(t, deleted.Body.String())
	assert.Equal(t, 0, f.store.OrderCount())

	taken, ok := f.store.ToadTaken(*order.ToadID)
	require.True(t, ok)
	assert.False(t, taken)

	again := f.do(http.MethodDelete, path, nil, 10, domain.RoleCustomer)
	assert.Equal(t, http.StatusNotFound, again.Code)
}

func TestClearAll(t *testing.T) {
	f := newFixture(t, 3)
	f.create(t, 10)
	f.create(t, 11)

	forbidden := f.do(http.MethodDelete, "/orders", nil, 10, domain.RoleCustomer)
	assert.Equal(t, http.StatusForbidden, forbidden.Code)
	assert.Equal(t, 2, f.store.OrderCount())

	cleared := f.do(http.MethodDelete, "/orders", nil, 1, domain.RoleAdmin)
	assert.Equal(t, http.StatusNoContent, cleared.Code)
	assert.Equal(t, 0, f.store.OrderCount())
	// Очистка не возвращает жаб в пул.
	assert.Equal(t, 1, f.store.FreeToads())
}

func TestRouter_UnknownRoute(t *testing.T) {
	f := newFixture(t, 1)

	w := f.do(http.MethodGet, "/menu", nil, 1, domain.RoleCustomer)

	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "/menu", decodeProblem(t, w).Instance)
}

func TestRouter_RequestIDAndMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	httpMetrics := metrics.NewHTTPMetricsWithRegisterer(reg)
	store := memory.NewStore(memory.WithToads(1))
	router := NewRouter(orders.NewManager(store), WithHTTPMetrics(httpMetrics))

	req := httptest.NewRequest(http.MethodPost, "/orders", nil)
	req.Header.Set(HeaderUserID, "3")
	req.Header.Set(HeaderRequestID, "req-123")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusCreated, w.Code)
	assert.Equal(t, "req-123", w.Header().Get(HeaderRequestID))

	generated := httptest.NewRecorder()
	router.ServeHTTP(generated, httptest.NewRequest(http.MethodGet, "/orders/1", nil))
	assert.NotEmpty(t, generated.Header().Get(HeaderRequestID))

	assert.Equal(t, 2, testutil.CollectAndCount(reg, "cafe_http_requests_total"))
}

func TestProblemFor(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{err: domain.ErrOrderNotFound, want: http.StatusNotFound},
		{err: fmt.Errorf("set status: %w", domain.ErrStatusNotFound), want: http.StatusNotFound},
		{err: domain.ErrForbidden, want: http.StatusForbidden},
		{err: domain.ErrOrderNotIssued, want: http.StatusPreconditionFailed},
		{err: domain.ErrToadPoolExhausted, want: http.StatusConflict},
		{err: domain.ErrInitialStatusMissing, want: http.StatusInternalServerError},
		{err: fmt.Errorf("%w: commit: boom", domain.ErrPersistence), want: http.StatusInternalServerError},
		{err: context.Canceled, want: http.StatusInternalServerError},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, problemFor(tt.err).Status, tt.err.Error())
	}

	hidden := problemFor(fmt.Errorf("%w: insert order: pq secret", domain.ErrPersistence))
	assert.Empty(t, hidden.Detail)
}
