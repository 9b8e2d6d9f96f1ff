package orders

import (
	"context"
	"errors"

	log "github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	nooptrace "go.opentelemetry.io/otel/trace/noop"

	"github.com/vladislavdragonenkov/frogcafe/internal/domain"
	"github.com/vladislavdragonenkov/frogcafe/internal/metrics"
)

const tracerName = "github.com/vladislavdragonenkov/frogcafe/internal/service/orders"

// Instrumented оборачивает Service трассировкой, логированием и метриками.
type Instrumented struct {
	inner   Service
	tracer  trace.Tracer
	logger  *log.Entry
	metrics *metrics.OrderMetrics
}

// InstrumentOption настраивает Instrumented.
type InstrumentOption func(*Instrumented)

// InstrumentWithTracer задаёт tracer для спанов операций.
func InstrumentWithTracer(tracer trace.Tracer) InstrumentOption {
	return func(s *Instrumented) {
		s.tracer = tracer
	}
}

// InstrumentWithLogger задаёт logger.
func InstrumentWithLogger(logger *log.Entry) InstrumentOption {
	return func(s *Instrumented) {
		s.logger = logger
	}
}

// InstrumentWithMetrics задаёт prometheus-метрики операций.
func InstrumentWithMetrics(m *metrics.OrderMetrics) InstrumentOption {
	return func(s *Instrumented) {
		s.metrics = m
	}
}

// NewInstrumented оборачивает inner.
func NewInstrumented(inner Service, opts ...InstrumentOption) *Instrumented {
	s := &Instrumented{inner: inner}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	if s.tracer == nil {
		s.tracer = nooptrace.NewTracerProvider().Tracer(tracerName)
	}
	if s.logger == nil {
		s.logger = log.WithField("component", "order-service")
	}
	return s
}

func (s *Instrumented) CreateOrder(ctx context.Context, userID int64) (domain.Order, error) {
	ctx, span := s.tracer.Start(ctx, "Orders.CreateOrder", trace.WithAttributes(attribute.Int64("user.id", userID)))
	defer span.End()
	done := s.begin("create")

	order, err := s.inner.CreateOrder(ctx, userID)
	done(err)
	if err != nil {
		return domain.Order{}, s.fail(span, err, "failed to create order", log.Fields{"user_id": userID})
	}

	if s.metrics != nil {
		s.metrics.RecordToadClaim(order.HasToad())
	}
	fields := log.Fields{"order_id": order.ID, "user_id": userID, "status": order.StatusName}
	if order.ToadID != nil {
		fields["toad_id"] = *order.ToadID
		span.SetAttributes(attribute.Int64("toad.id", *order.ToadID))
	}
	span.SetAttributes(attribute.Int64("order.id", order.ID))
	s.logger.WithFields(fields).Info("order created")
	return order, nil
}

func (s *Instrumented) GetOrder(ctx context.Context, caller domain.Caller, orderID int64) (domain.Order, error) {
	ctx, span := s.tracer.Start(ctx, "Orders.GetOrder", trace.WithAttributes(
		attribute.Int64("order.id", orderID),
		attribute.Int64("user.id", caller.UserID),
	))
	defer span.End()
	done := s.begin("get")

	order, err := s.inner.GetOrder(ctx, caller, orderID)
	done(err)
	if err != nil {
		return domain.Order{}, s.fail(span, err, "failed to get order", log.Fields{"order_id": orderID})
	}
	span.SetAttributes(attribute.Int("order.items", len(order.Items)))
	return order, nil
}

func (s *Instrumented) SetStatus(ctx context.Context, orderID, statusID int64) (domain.Order, error) {
	ctx, span := s.tracer.Start(ctx, "Orders.SetStatus", trace.WithAttributes(
		attribute.Int64("order.id", orderID),
		attribute.Int64("status.id", statusID),
	))
	defer span.End()
	done := s.begin("set_status")

	order, err := s.inner.SetStatus(ctx, orderID, statusID)
	done(err)
	if err != nil {
		return domain.Order{}, s.fail(span, err, "failed to set order status", log.Fields{
			"order_id":  orderID,
			"status_id": statusID,
		})
	}

	s.logger.WithFields(log.Fields{"order_id": orderID, "status": order.StatusName}).Info("order status changed")
	return order, nil
}

func (s *Instrumented) DeleteOrder(ctx context.Context, orderID int64) error {
	ctx, span := s.tracer.Start(ctx, "Orders.DeleteOrder", trace.WithAttributes(attribute.Int64("order.id", orderID)))
	defer span.End()
	done := s.begin("delete")

	err := s.inner.DeleteOrder(ctx, orderID)
	done(err)
	if err != nil {
		return s.fail(span, err, "failed to delete order", log.Fields{"order_id": orderID})
	}

	s.logger.WithField("order_id", orderID).Info("order deleted")
	return nil
}

func (s *Instrumented) ClearAll(ctx context.Context) (int64, error) {
	ctx, span := s.tracer.Start(ctx, "Orders.ClearAll")
	defer span.End()
	done := s.begin("clear_all")

	removed, err := s.inner.ClearAll(ctx)
	done(err)
	if err != nil {
		return 0, s.fail(span, err, "failed to clear orders", nil)
	}

	if s.metrics != nil {
		s.metrics.RecordCleared(removed)
	}
	span.SetAttributes(attribute.Int64("orders.removed", removed))
	s.logger.WithField("removed", removed).Info("all orders cleared")
	return removed, nil
}

func (s *Instrumented) begin(operation string) func(error) {
	if s.metrics == nil {
		return func(error) {}
	}
	finish := s.metrics.Begin(operation)
	return func(err error) {
		finish(resultLabel(err))
	}
}

// fail записывает ошибку в спан и лог. Ошибки клиента логируются как предупреждения.
func (s *Instrumented) fail(span trace.Span, err error, msg string, fields log.Fields) error {
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())

	entry := s.logger.WithError(err)
	if fields != nil {
		entry = entry.WithFields(fields)
	}
	if isClientError(err) {
		entry.Warn(msg)
	} else {
		entry.Error(msg)
	}
	return err
}

func isClientError(err error) bool {
	return domain.IsNotFound(err) || domain.IsPrecondition(err) || errors.Is(err, domain.ErrForbidden)
}

func resultLabel(err error) string {
	switch {
	case err == nil:
		return metrics.ResultSuccess
	case domain.IsNotFound(err):
		return metrics.ResultNotFound
	case domain.IsPrecondition(err):
		return metrics.ResultPrecondition
	case errors.Is(err, domain.ErrForbidden):
		return metrics.ResultForbidden
	case domain.IsConfiguration(err):
		return metrics.ResultConfig
	default:
		return metrics.ResultError
	}
}

var _ Service = (*Instrumented)(nil)
