package httpapi

import (
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/frogcafe/internal/domain"
	"github.com/vladislavdragonenkov/frogcafe/internal/metrics"
)

// Заголовки, которые выставляет шлюз аутентификации перед сервисом.
const (
	HeaderUserID    = "X-User-ID"
	HeaderUserRole  = "X-User-Role"
	HeaderRequestID = "X-Request-ID"
)

const (
	callerKey    = "frogcafe.caller"
	requestIDKey = "frogcafe.request_id"
)

// requestID пробрасывает X-Request-ID или выдаёт новый.
func requestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := strings.TrimSpace(c.GetHeader(HeaderRequestID))
		if id == "" {
			id = uuid.NewString()
		}
		c.Set(requestIDKey, id)
		c.Header(HeaderRequestID, id)
		c.Next()
	}
}

// accessLog пишет по строке на запрос и наблюдает HTTP-метрики.
func accessLog(logger *log.Entry, httpMetrics *metrics.HTTPMetrics) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		elapsed := time.Since(start)
		route := c.FullPath()
		if httpMetrics != nil {
			httpMetrics.Observe(c.Request.Method, route, c.Writer.Status(), elapsed)
		}

		entry := logger.WithFields(log.Fields{
			"method":      c.Request.Method,
			"route":       route,
			"status":      c.Writer.Status(),
			"duration_ms": elapsed.Milliseconds(),
			"request_id":  c.GetString(requestIDKey),
		})
		if len(c.Errors) > 0 {
			entry = entry.WithError(c.Errors.Last().Err)
		}
		if c.Writer.Status() >= 500 {
			entry.Warn("request failed")
			return
		}
		entry.Debug("request served")
	}
}

// identity извлекает вызывающего из заголовков шлюза; без X-User-ID запрос отклоняется.
func identity() gin.HandlerFunc {
	return func(c *gin.Context) {
		caller, ok := parseCaller(c.GetHeader(HeaderUserID), c.GetHeader(HeaderUserRole))
		if !ok {
			respondProblem(c, problemUnauthenticated.withDetail("missing or malformed caller identity"))
			return
		}
		c.Set(callerKey, caller)
		c.Next()
	}
}

func parseCaller(rawUserID, rawRole string) (domain.Caller, bool) {
	userID, err := strconv.ParseInt(strings.TrimSpace(rawUserID), 10, 64)
	if err != nil || userID <= 0 {
		return domain.Caller{}, false
	}

	role := domain.RoleCustomer
	if raw := strings.TrimSpace(rawRole); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 0 {
			return domain.Caller{}, false
		}
		role = domain.Role(parsed)
	}
	return domain.Caller{UserID: userID, Role: role}, true
}

// requireAdmin пропускает только администраторов.
func requireAdmin() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !callerFrom(c).IsAdmin() {
			respondProblem(c, problemForbidden.withDetail("admin role required"))
			return
		}
		c.Next()
	}
}

func callerFrom(c *gin.Context) domain.Caller {
	if v, ok := c.Get(callerKey); ok {
		if caller, ok := v.(domain.Caller); ok {
			return caller
		}
	}
	return domain.Caller{Role: domain.RoleCustomer}
}
