package httpapi

import (
	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"go.opentelemetry.io/otel/trace"

	"github.com/vladislavdragonenkov/frogcafe/internal/metrics"
	"github.com/vladislavdragonenkov/frogcafe/internal/service/orders"
)

// ServiceName — имя сервиса в серверных спанах otelgin.
const ServiceName = "frogcafe-api"

// RouterOption настраивает роутер.
type RouterOption func(*routerOptions)

type routerOptions struct {
	logger         *log.Entry
	metrics        *metrics.HTTPMetrics
	tracerProvider trace.TracerProvider
}

// WithRouterLogger задаёт logger для access-лога.
func WithRouterLogger(logger *log.Entry) RouterOption {
	return func(o *routerOptions) {
		if logger != nil {
			o.logger = logger
		}
	}
}

// WithHTTPMetrics включает Prometheus-метрики запросов.
func WithHTTPMetrics(m *metrics.HTTPMetrics) RouterOption {
	return func(o *routerOptions) {
		o.metrics = m
	}
}

// WithTracerProvider задаёт провайдер для серверных спанов.
func WithTracerProvider(tp trace.TracerProvider) RouterOption {
	return func(o *routerOptions) {
		o.tracerProvider = tp
	}
}

// NewRouter собирает gin-роутер API заказов.
func NewRouter(service orders.Service, opts ...RouterOption) *gin.Engine {
	options := routerOptions{logger: log.WithField("component", "http-api")}
	for _, opt := range opts {
		opt(&options)
	}

	otelOpts := []otelgin.Option{}
	if options.tracerProvider != nil {
		otelOpts = append(otelOpts, otelgin.WithTracerProvider(options.tracerProvider))
	}

	router := gin.New()
	router.HandleMethodNotAllowed = true
	router.Use(
		gin.Recovery(),
		requestID(),
		otelgin.Middleware(ServiceName, otelOpts...),
		accessLog(options.logger, options.metrics),
	)
	router.NoRoute(func(c *gin.Context) {
		respondProblem(c, problemNotFound.withDetail("route not found"))
	})

	api := NewOrdersAPI(service)
	group := router.Group("/orders", identity())
	group.POST("", api.CreateOrder)
	group.DELETE("", requireAdmin(), api.ClearAll)
	group.GET("/:id", api.GetOrder)
	group.PUT("/:id/status", api.SetStatus)
	group.DELETE("/:id", api.DeleteOrder)

	return router
}
