package dispatch

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/Osama092/ThreadGen-Backend/shared/metrics"
)

// ErrBrokerUnavailable marks infrastructure-level failures: the submitting
// call fails immediately and no correlation entry is left behind.
var ErrBrokerUnavailable = errors.New("message broker unavailable")

// Broker is the slice of the RabbitMQ client the dispatcher needs.
type Broker interface {
	EnsureWorkQueue(route string) error
	DeclareReplyQueue(route string) (string, error)
	ConsumeReplies(route, queue string) (<-chan amqp.Delivery, error)
	PublishJob(ctx context.Context, route string, body []byte, correlationID, replyTo string) error
}

// Job is the unit of offloaded work published to a work queue. Immutable
// once published; the dispatcher does not persist it.
type Job struct {
	JobID         string                 `json:"job_id"`
	Queue         string                 `json:"queue"`
	CorrelationID string                 `json:"correlation_id"`
	Payload       map[string]interface{} `json:"payload"`
	SubmittedAt   time.Time              `json:"submitted_at"`
}

// Outcome is the result of Submit: either the worker's reply arrived within
// the deadline (Completed) or the job is still processing.
type Outcome struct {
	Completed     bool
	Reply         Reply
	JobID         string
	CorrelationID string
}

// LateReplyFunc receives replies that arrive after the submitter already
// answered "processing". The HTTP response is never touched from here.
type LateReplyFunc func(queue, correlationID string, reply Reply)

// Dispatcher turns a fire-and-forget broker into a virtual RPC channel: it
// publishes a job, opens a private reply queue, and races the reply against
// a wall-clock deadline. One dispatcher serves every job type.
type Dispatcher struct {
	broker    Broker
	registry  *Registry
	logger    *slog.Logger
	lateReply LateReplyFunc
}

// NewDispatcher creates a dispatcher over the given broker. lateReply may be
// nil when no completion fallback exists for late replies.
func NewDispatcher(broker Broker, logger *slog.Logger, lateReply LateReplyFunc) *Dispatcher {
	return &Dispatcher{
		broker:    broker,
		registry:  NewRegistry(),
		logger:    logger,
		lateReply: lateReply,
	}
}

// Registry exposes the correlation registry, mainly for tests and shutdown
// introspection.
func (d *Dispatcher) Registry() *Registry {
	return d.registry
}

// Submit publishes a job to the route's durable work queue and waits up to
// timeout for the worker's reply on a private exclusive queue. Exactly one
// of Completed/Processing is returned per call. Context cancellation is
// settled the same way as the deadline: the entry expires and the eventual
// reply is handled by the late-reply path.
func (d *Dispatcher) Submit(ctx context.Context, route string, payload map[string]interface{}, timeout time.Duration) (*Outcome, error) {
	if err := d.broker.EnsureWorkQueue(route); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBrokerUnavailable, err)
	}

	replyQueue, err := d.broker.DeclareReplyQueue(route)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBrokerUnavailable, err)
	}

	correlationID := uuid.New().String()
	job := Job{
		JobID:         uuid.New().String(),
		Queue:         route,
		CorrelationID: correlationID,
		Payload:       payload,
		SubmittedAt:   time.Now(),
	}

	body, err := json.Marshal(job)
	if err != nil {
		return nil, fmt.Errorf("failed to encode job payload: %w", err)
	}

	e, err := d.registry.Register(correlationID, replyQueue)
	if err != nil {
		return nil, err
	}

	deliveries, err := d.broker.ConsumeReplies(route, replyQueue)
	if err != nil {
		d.registry.Remove(correlationID)
		return nil, fmt.Errorf("%w: %v", ErrBrokerUnavailable, err)
	}

	// The consumer outlives Submit on timeout so the late reply is still
	// acked and forwarded to the completion path.
	go d.consumeReplies(deliveries, route, correlationID)

	if err := d.broker.PublishJob(ctx, route, body, correlationID, replyQueue); err != nil {
		d.registry.Remove(correlationID)
		return nil, fmt.Errorf("%w: %v", ErrBrokerUnavailable, err)
	}

	metrics.JobsSubmitted.WithLabelValues(route).Inc()
	d.logger.Info("Job submitted",
		slog.String("queue", route),
		slog.String("job_id", job.JobID),
		slog.String("correlation_id", correlationID),
		slog.Duration("timeout", timeout),
	)

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case reply := <-e.replyCh:
		metrics.JobOutcomes.WithLabelValues(route, "completed").Inc()
		return &Outcome{Completed: true, Reply: reply, JobID: job.JobID, CorrelationID: correlationID}, nil
	case <-timer.C:
	case <-ctx.Done():
	}

	if !d.registry.Expire(correlationID) {
		// The reply consumer won the race between the deadline firing and
		// the expire attempt; the buffered channel already holds the reply.
		reply := <-e.replyCh
		metrics.JobOutcomes.WithLabelValues(route, "completed").Inc()
		return &Outcome{Completed: true, Reply: reply, JobID: job.JobID, CorrelationID: correlationID}, nil
	}

	metrics.JobOutcomes.WithLabelValues(route, "processing").Inc()
	d.logger.Info("Job still processing at deadline",
		slog.String("queue", route),
		slog.String("job_id", job.JobID),
		slog.String("correlation_id", correlationID),
	)
	return &Outcome{Completed: false, JobID: job.JobID, CorrelationID: correlationID}, nil
}

// Publish sends a job to a work queue without opening a reply race. Used by
// campaign fan-out, where every item's terminal outcome funnels into the
// shared completion queue named by replyTo.
func (d *Dispatcher) Publish(ctx context.Context, route string, payload map[string]interface{}, correlationID, replyTo string) error {
	if err := d.broker.EnsureWorkQueue(route); err != nil {
		return fmt.Errorf("%w: %v", ErrBrokerUnavailable, err)
	}

	job := Job{
		JobID:         uuid.New().String(),
		Queue:         route,
		CorrelationID: correlationID,
		Payload:       payload,
		SubmittedAt:   time.Now(),
	}
	body, err := json.Marshal(job)
	if err != nil {
		return fmt.Errorf("failed to encode job payload: %w", err)
	}

	if err := d.broker.PublishJob(ctx, route, body, correlationID, replyTo); err != nil {
		return fmt.Errorf("%w: %v", ErrBrokerUnavailable, err)
	}

	metrics.JobsSubmitted.WithLabelValues(route).Inc()
	return nil
}

// consumeReplies adjudicates every message on one private reply queue
// through the registry. All matching messages are acked exactly once; an
// unparseable reply settles as an error-shaped result rather than crashing
// the listener or hanging the submitter.
func (d *Dispatcher) consumeReplies(deliveries <-chan amqp.Delivery, route, correlationID string) {
	for delivery := range deliveries {
		if delivery.CorrelationId != correlationID {
			// Foreign message on an exclusive queue. Ack so the broker
			// does not redeliver it forever.
			if err := delivery.Ack(false); err != nil {
				d.logger.Error("Failed to ack mismatched reply",
					slog.Any("error", err),
				)
			}
			continue
		}

		var reply Reply
		if err := json.Unmarshal(delivery.Body, &reply); err != nil {
			d.logger.Error("Unparseable worker reply",
				slog.String("queue", route),
				slog.String("correlation_id", correlationID),
				slog.Any("error", err),
			)
			reply = Reply{"status": "error", "error": "unparseable worker reply"}
		}

		if err := delivery.Ack(false); err != nil {
			d.logger.Error("Failed to ack worker reply",
				slog.String("correlation_id", correlationID),
				slog.Any("error", err),
			)
		}

		switch d.registry.Resolve(correlationID, reply) {
		case ResolveDelivered:
			return
		case ResolveLate:
			metrics.JobOutcomes.WithLabelValues(route, "late_reply").Inc()
			d.logger.Info("Late worker reply routed to completion path",
				slog.String("queue", route),
				slog.String("correlation_id", correlationID),
			)
			if d.lateReply != nil {
				d.lateReply(route, correlationID, reply)
			}
			return
		case ResolveUnknown:
			d.logger.Warn("Duplicate worker reply discarded",
				slog.String("queue", route),
				slog.String("correlation_id", correlationID),
			)
		}
	}
}
