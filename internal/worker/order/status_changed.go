package order

import (
	"context"
	"encoding/json"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/fx"
	"go.uber.org/zap"

	"github.com/nordwell/ordercore/internal/config"
	"github.com/nordwell/ordercore/internal/entity"
	"github.com/nordwell/ordercore/internal/messaging"
	ordersvc "github.com/nordwell/ordercore/internal/service/order"
	"github.com/nordwell/ordercore/internal/worker"
)

var workerTracer = otel.Tracer("github.com/nordwell/ordercore/worker/order")

// Module registers order-related worker handlers.
var Module = fx.Module("worker_order",
	fx.Provide(
		fx.Annotate(
			NewStatusChangedHandler,
			fx.ResultTags(`group:"worker.handlers"`),
		),
	),
)

// NewStatusChangedHandler sets up the handler driving post-payment
// automation: when an order reaches paid, the invoice is exported to
// the ERP and a tracking number is issued.
func NewStatusChangedHandler(logger *zap.Logger, cfg config.Config, svc *ordersvc.Service) worker.HandlerRegistration {
	handler := func(ctx context.Context, msg messaging.Message) error {
		ctx, span := workerTracer.Start(ctx, "worker.orders.process", trace.WithAttributes(
			attribute.String("messaging.topic", msg.Topic),
		))
		defer span.End()

		var event ordersvc.Event
		if err := json.Unmarshal(msg.Value, &event); err != nil {
			logger.Error("failed to decode order event", zap.Error(err))

			span.RecordError(err)
			span.SetStatus(codes.Error, "decode error")
			return err
		}

		if event.Event != ordersvc.EventOrderStatusChanged || event.To != entity.StatusPaid {
			logger.Debug("ignoring order event",
				zap.String("event", event.Event),
				zap.String("order_number", event.OrderNumber),
				zap.String("to", string(event.To)),
			)
			return nil
		}

		if err := svc.ProcessPaid(ctx, event.OrderID); err != nil {
			logger.Error("post-payment processing failed",
				zap.String("order_id", event.OrderID.String()),
				zap.String("order_number", event.OrderNumber),
				zap.Error(err),
			)
			span.RecordError(err)
			span.SetStatus(codes.Error, "processing error")
			return err
		}

		logger.Info("post-payment processing completed",
			zap.String("order_id", event.OrderID.String()),
			zap.String("order_number", event.OrderNumber),
		)
		return nil
	}

	return worker.HandlerRegistration{
		Topic:   cfg.Messaging.Kafka.Topic,
		Handler: handler,
	}
}
