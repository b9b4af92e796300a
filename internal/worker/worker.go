package worker

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/Osama092/ThreadGen-Backend/internal/dispatch"
)

// Broker is the slice of the RabbitMQ client the worker needs.
type Broker interface {
	EnsureWorkQueue(route string) error
	ConsumeWork(route string) (<-chan amqp.Delivery, error)
	PublishReply(ctx context.Context, route, replyTo string, body []byte, correlationID string) error
	PublishJob(ctx context.Context, route string, body []byte, correlationID, replyTo string) error
}

// Config holds worker configuration
type Config struct {
	Logger          *slog.Logger
	Broker          Broker
	Concurrency     int
	ProcessingDelay time.Duration
	FailureRate     float64

	RequestCompletionQueue  string
	ThreadCompletionQueue   string
	CloningCompletionQueue  string
	CampaignCompletionQueue string
}

type job struct {
	route    string
	delivery amqp.Delivery
}

// Worker is a stand-in for the real media pipeline. It consumes every work
// queue, sleeps for the configured processing delay, and reports a synthetic
// result over the same reply and completion channels the real workers use.
type Worker struct {
	logger *slog.Logger
	broker Broker
	cfg    *Config

	workerID string
	jobsChan chan job
	wg       sync.WaitGroup
	stopChan chan struct{}
}

// NewWorker creates a new worker instance
func NewWorker(cfg *Config) *Worker {
	return &Worker{
		logger:   cfg.Logger,
		broker:   cfg.Broker,
		cfg:      cfg,
		workerID: fmt.Sprintf("worker-%s", uuid.New().String()[:8]),
		jobsChan: make(chan job),
		stopChan: make(chan struct{}),
	}
}

// Start subscribes to every work queue and spawns the processing pool.
// Blocks until the context is canceled.
func (w *Worker) Start(ctx context.Context) error {
	routes := []string{
		dispatch.QueueGenerate,
		dispatch.QueueThread,
		dispatch.QueueTranscript,
		dispatch.QueueCloning,
	}

	w.logger.Info("Starting worker",
		slog.String("worker_id", w.workerID),
		slog.Int("concurrency", w.cfg.Concurrency),
		slog.Duration("processing_delay", w.cfg.ProcessingDelay),
	)

	for _, route := range routes {
		if err := w.broker.EnsureWorkQueue(route); err != nil {
			return fmt.Errorf("failed to declare work queue %q: %w", route, err)
		}
		deliveries, err := w.broker.ConsumeWork(route)
		if err != nil {
			return fmt.Errorf("failed to consume work queue %q: %w", route, err)
		}

		w.wg.Add(1)
		go w.forward(ctx, route, deliveries)
	}

	w.spawnPool(ctx)

	<-ctx.Done()
	w.logger.Info("Worker context canceled, stopping...")
	return nil
}

// Stop gracefully stops the worker
func (w *Worker) Stop() {
	w.logger.Info("Stopping worker...")
	close(w.stopChan)
	w.wg.Wait()
	w.logger.Info("Worker stopped")
}

// forward pushes one queue's deliveries into the shared jobs channel.
func (w *Worker) forward(ctx context.Context, route string, deliveries <-chan amqp.Delivery) {
	defer w.wg.Done()

	for {
		select {
		case <-w.stopChan:
			return
		case <-ctx.Done():
			return
		case d, ok := <-deliveries:
			if !ok {
				w.logger.Warn("Work queue consumer closed",
					slog.String("route", route),
				)
				return
			}
			select {
			case w.jobsChan <- job{route: route, delivery: d}:
			case <-w.stopChan:
				return
			case <-ctx.Done():
				return
			}
		}
	}
}

// spawnPool spawns N processing goroutines based on concurrency configuration
func (w *Worker) spawnPool(ctx context.Context) {
	for i := 0; i < w.cfg.Concurrency; i++ {
		w.wg.Add(1)
		go w.workerLoop(ctx, i)
	}

	w.logger.Info("Worker pool spawned",
		slog.Int("worker_count", w.cfg.Concurrency),
	)
}

// workerLoop is the main processing loop for each worker goroutine
func (w *Worker) workerLoop(ctx context.Context, workerNum int) {
	defer w.wg.Done()

	workerName := fmt.Sprintf("%s-%d", w.workerID, workerNum)

	for {
		select {
		case <-w.stopChan:
			w.logger.Info("Worker goroutine stopping",
				slog.String("worker_name", workerName),
			)
			return
		case <-ctx.Done():
			return
		case j := <-w.jobsChan:
			w.process(ctx, j)
		}
	}
}
