package worker

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"math/rand"
	"time"

	"github.com/Osama092/ThreadGen-Backend/internal/dispatch"
)

// result mirrors the payload shape the completion listeners and the reply
// race both decode.
type result struct {
	Status        string `json:"status"`
	CorrelationID string `json:"correlation_id,omitempty"`
	CampaignID    string `json:"campaignId,omitempty"`
	TTSText       string `json:"ttsText,omitempty"`
	VideoURL      string `json:"video_url,omitempty"`
	UserID        string `json:"user_id,omitempty"`
	Transcript    string `json:"transcript,omitempty"`
	Error         string `json:"error,omitempty"`
}

// process simulates one job. The delivery is acked after the result has been
// published; a malformed body is dropped without requeue.
func (w *Worker) process(ctx context.Context, j job) {
	var payload dispatch.Job
	if err := json.Unmarshal(j.delivery.Body, &payload); err != nil {
		w.logger.Error("Dropping unparseable job",
			slog.String("route", j.route),
			slog.Any("error", err),
		)
		_ = j.delivery.Nack(false, false)
		return
	}

	correlationID := j.delivery.CorrelationId
	if correlationID == "" {
		correlationID = payload.CorrelationID
	}

	// Simulated processing time
	select {
	case <-ctx.Done():
		_ = j.delivery.Nack(false, true)
		return
	case <-w.stopChan:
		_ = j.delivery.Nack(false, true)
		return
	case <-time.After(w.cfg.ProcessingDelay):
	}

	res := w.synthesize(j.route, correlationID, payload.Payload)

	body, err := json.Marshal(res)
	if err != nil {
		w.logger.Error("Failed to marshal result", slog.Any("error", err))
		_ = j.delivery.Nack(false, false)
		return
	}

	replyTo := j.delivery.ReplyTo
	completionQueue := w.completionQueue(j.route, payload.Payload)

	// Campaign jobs address the shared completion queue directly as their
	// reply destination; publish there once, durably.
	if replyTo != "" && replyTo == completionQueue {
		if err := w.publishCompletion(ctx, completionQueue, body, correlationID); err != nil {
			w.logger.Error("Failed to publish completion",
				slog.String("queue", completionQueue),
				slog.Any("error", err),
			)
			_ = j.delivery.Nack(false, true)
			return
		}
	} else {
		if replyTo != "" {
			if err := w.broker.PublishReply(ctx, j.route, replyTo, body, correlationID); err != nil {
				// Reply queues vanish when the requester disconnects;
				// the completion path still records the outcome.
				w.logger.Warn("Failed to publish reply",
					slog.String("reply_to", replyTo),
					slog.Any("error", err),
				)
			}
		}
		if completionQueue != "" {
			if err := w.publishCompletion(ctx, completionQueue, body, correlationID); err != nil {
				w.logger.Error("Failed to publish completion",
					slog.String("queue", completionQueue),
					slog.Any("error", err),
				)
				_ = j.delivery.Nack(false, true)
				return
			}
		}
	}

	if err := j.delivery.Ack(false); err != nil {
		w.logger.Error("Failed to ack job", slog.Any("error", err))
		return
	}

	w.logger.Info("Job processed",
		slog.String("route", j.route),
		slog.String("correlation_id", correlationID),
		slog.String("status", res.Status),
	)
}

// synthesize fabricates a plausible worker result for a route.
func (w *Worker) synthesize(route, correlationID string, payload map[string]interface{}) *result {
	res := &result{
		Status:        "success",
		CorrelationID: correlationID,
	}

	if rand.Float64() < w.cfg.FailureRate {
		res.Status = "error"
		res.Error = "simulated processing failure"
	}

	if s, ok := payload["campaignId"].(string); ok {
		res.CampaignID = s
	}
	if s, ok := payload["ttsText"].(string); ok {
		res.TTSText = s
	}
	if s, ok := payload["user"].(string); ok {
		res.UserID = s
	}
	if s, ok := payload["userId"].(string); ok {
		res.UserID = s
	}

	if res.Status != "success" {
		return res
	}

	switch route {
	case dispatch.QueueGenerate:
		res.VideoURL = fmt.Sprintf("https://cdn.example.com/videos/%s.mp4", correlationID)
	case dispatch.QueueTranscript:
		res.Transcript = "This is a simulated transcript of the uploaded media."
	}
	return res
}

// completionQueue maps a route to its durable completion queue. Campaign
// generation jobs carry a source marker and report to the campaign queue;
// transcripts are synchronous only and have none.
func (w *Worker) completionQueue(route string, payload map[string]interface{}) string {
	switch route {
	case dispatch.QueueGenerate:
		if src, ok := payload["source"].(string); ok && src == "campaign" {
			return w.cfg.CampaignCompletionQueue
		}
		return w.cfg.RequestCompletionQueue
	case dispatch.QueueThread:
		return w.cfg.ThreadCompletionQueue
	case dispatch.QueueCloning:
		return w.cfg.CloningCompletionQueue
	default:
		return ""
	}
}

func (w *Worker) publishCompletion(ctx context.Context, queue string, body []byte, correlationID string) error {
	if err := w.broker.EnsureWorkQueue(queue); err != nil {
		return err
	}
	return w.broker.PublishJob(ctx, queue, body, correlationID, "")
}
