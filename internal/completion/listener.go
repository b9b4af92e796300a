package completion

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/Osama092/ThreadGen-Backend/internal/dispatch"
	"github.com/Osama092/ThreadGen-Backend/shared/metrics"
)

// Message is the payload workers publish on the shared completion queues.
// The status discriminator is mandatory; the remaining fields identify the
// business record and carry the result or the error string.
type Message struct {
	Status        string `json:"status"`
	CorrelationID string `json:"correlation_id"`
	CampaignID    string `json:"campaignId"`
	TTSText       string `json:"ttsText"`
	VideoURL      string `json:"video_url"`
	UserID        string `json:"user_id"`
	Transcript    string `json:"transcript"`
	Error         string `json:"error"`
}

// IsSuccess reports whether the worker marked the outcome successful.
func (m *Message) IsSuccess() bool {
	return m.Status == "success"
}

// Applier applies one completion message to the persisted business record.
// Implementations must be idempotent under redelivery.
type Applier interface {
	Name() string
	Apply(ctx context.Context, msg *Message) error
}

// Consumer is the slice of the RabbitMQ client the listener needs.
type Consumer interface {
	ConsumeCompletions(queue string) (<-chan amqp.Delivery, error)
}

// Listener is a standing consumer on one durable, shared completion queue.
// Workers report terminal job outcomes here out-of-band from the original
// HTTP request, so records are updated even when the dispatcher already
// answered "processing" (or the process restarted since submission).
type Listener struct {
	queue   string
	broker  Consumer
	applier Applier
	logger  *slog.Logger
}

func NewListener(queue string, broker Consumer, applier Applier, logger *slog.Logger) *Listener {
	return &Listener{
		queue:   queue,
		broker:  broker,
		applier: applier,
		logger:  logger,
	}
}

// Start begins consuming the completion queue in a background goroutine
// that runs until the context is canceled or the delivery channel closes.
func (l *Listener) Start(ctx context.Context) error {
	deliveries, err := l.broker.ConsumeCompletions(l.queue)
	if err != nil {
		return fmt.Errorf("failed to start completion listener on %q: %w", l.queue, err)
	}

	l.logger.Info("Completion listener started",
		slog.String("queue", l.queue),
		slog.String("applier", l.applier.Name()),
	)

	go l.run(ctx, deliveries)
	return nil
}

func (l *Listener) run(ctx context.Context, deliveries <-chan amqp.Delivery) {
	for {
		select {
		case <-ctx.Done():
			l.logger.Info("Completion listener stopped",
				slog.String("queue", l.queue),
			)
			return
		case delivery, ok := <-deliveries:
			if !ok {
				l.logger.Warn("Completion delivery channel closed",
					slog.String("queue", l.queue),
				)
				return
			}
			l.Handle(ctx, delivery)
		}
	}
}

// Handle processes a single completion delivery. Poison messages (bodies
// that cannot be parsed, or that carry no status) are negatively
// acknowledged without requeue; everything else is acked, including applier
// failures, which are logged rather than redelivered.
func (l *Listener) Handle(ctx context.Context, delivery amqp.Delivery) {
	var msg Message
	if err := json.Unmarshal(delivery.Body, &msg); err != nil || msg.Status == "" {
		metrics.CompletionMessages.WithLabelValues(l.applier.Name(), "poison").Inc()
		l.logger.Error("Poison completion message",
			slog.String("queue", l.queue),
			slog.String("body", string(delivery.Body)),
		)
		if nackErr := delivery.Nack(false, false); nackErr != nil {
			l.logger.Error("Failed to nack poison message",
				slog.Any("error", nackErr),
			)
		}
		return
	}

	if msg.CorrelationID == "" {
		msg.CorrelationID = delivery.CorrelationId
	}

	if err := l.applier.Apply(ctx, &msg); err != nil {
		l.logger.Error("Failed to apply completion message",
			slog.String("queue", l.queue),
			slog.String("correlation_id", msg.CorrelationID),
			slog.Any("error", err),
		)
	}

	if msg.IsSuccess() {
		metrics.CompletionMessages.WithLabelValues(l.applier.Name(), "success").Inc()
	} else {
		metrics.CompletionMessages.WithLabelValues(l.applier.Name(), "failed").Inc()
	}

	if err := delivery.Ack(false); err != nil {
		l.logger.Error("Failed to ack completion message",
			slog.String("queue", l.queue),
			slog.Any("error", err),
		)
	}
}

// LateReplyHandler adapts late dispatcher replies onto the same appliers the
// completion queues use, so a reply that lost the timeout race still updates
// the business record.
type LateReplyHandler struct {
	appliers map[string]Applier
	logger   *slog.Logger
}

// NewLateReplyHandler maps work-queue names to their appliers.
func NewLateReplyHandler(appliers map[string]Applier, logger *slog.Logger) *LateReplyHandler {
	return &LateReplyHandler{
		appliers: appliers,
		logger:   logger,
	}
}

// Handle converts a raw worker reply into a completion message and applies
// it. Unknown queues are logged and dropped; the reply was already acked.
func (h *LateReplyHandler) Handle(queue, correlationID string, reply dispatch.Reply) {
	applier, ok := h.appliers[queue]
	if !ok {
		h.logger.Warn("Late reply for queue without completion fallback",
			slog.String("queue", queue),
			slog.String("correlation_id", correlationID),
		)
		return
	}

	raw, err := json.Marshal(reply)
	if err != nil {
		h.logger.Error("Failed to encode late reply",
			slog.String("correlation_id", correlationID),
			slog.Any("error", err),
		)
		return
	}

	var msg Message
	if err := json.Unmarshal(raw, &msg); err != nil {
		h.logger.Error("Failed to decode late reply",
			slog.String("correlation_id", correlationID),
			slog.Any("error", err),
		)
		return
	}
	if msg.CorrelationID == "" {
		msg.CorrelationID = correlationID
	}

	if err := applier.Apply(context.Background(), &msg); err != nil {
		h.logger.Error("Failed to apply late reply",
			slog.String("queue", queue),
			slog.String("correlation_id", correlationID),
			slog.Any("error", err),
		)
	}
}
