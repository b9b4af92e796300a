package completion

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeAcknowledger struct {
	mu    sync.Mutex
	acks  int
	nacks int
}

func (a *fakeAcknowledger) Ack(tag uint64, multiple bool) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.acks++
	return nil
}

func (a *fakeAcknowledger) Nack(tag uint64, multiple, requeue bool) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.nacks++
	return nil
}

func (a *fakeAcknowledger) Reject(tag uint64, requeue bool) error {
	return a.Nack(tag, false, requeue)
}

type recordingApplier struct {
	mu       sync.Mutex
	applied  []*Message
	applyErr error
}

func (a *recordingApplier) Name() string { return "recording" }

func (a *recordingApplier) Apply(ctx context.Context, msg *Message) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.applied = append(a.applied, msg)
	return a.applyErr
}

func (a *recordingApplier) count() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return len(a.applied)
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func delivery(body string, ack *fakeAcknowledger) amqp.Delivery {
	return amqp.Delivery{Acknowledger: ack, Body: []byte(body)}
}

func TestListener_Handle(t *testing.T) {
	tests := []struct {
		name      string
		body      string
		applyErr  error
		wantAcks  int
		wantNacks int
		wantApply int
	}{
		{
			name:      "successful completion is applied and acked",
			body:      `{"status":"success","correlation_id":"c1","video_url":"https://cdn/v.mp4"}`,
			wantAcks:  1,
			wantApply: 1,
		},
		{
			name:      "failed completion is applied and acked",
			body:      `{"status":"error","correlation_id":"c1","error":"render crashed"}`,
			wantAcks:  1,
			wantApply: 1,
		},
		{
			name:      "unparseable body is nacked without requeue",
			body:      `{{{not json`,
			wantNacks: 1,
		},
		{
			name:      "missing status discriminator is poison",
			body:      `{"correlation_id":"c1"}`,
			wantNacks: 1,
		},
		{
			name:      "applier error still acks",
			body:      `{"status":"success","correlation_id":"c1"}`,
			applyErr:  errors.New("db down"),
			wantAcks:  1,
			wantApply: 1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			applier := &recordingApplier{applyErr: tt.applyErr}
			l := NewListener("request_completion", nil, applier, testLogger())

			ack := &fakeAcknowledger{}
			l.Handle(context.Background(), delivery(tt.body, ack))

			assert.Equal(t, tt.wantAcks, ack.acks)
			assert.Equal(t, tt.wantNacks, ack.nacks)
			assert.Equal(t, tt.wantApply, applier.count())
		})
	}
}

func TestListener_HandleFillsCorrelationFromProperty(t *testing.T) {
	applier := &recordingApplier{}
	l := NewListener("request_completion", nil, applier, testLogger())

	ack := &fakeAcknowledger{}
	d := amqp.Delivery{
		Acknowledger:  ack,
		CorrelationId: "from-property",
		Body:          []byte(`{"status":"success"}`),
	}
	l.Handle(context.Background(), d)

	require.Equal(t, 1, applier.count())
	assert.Equal(t, "from-property", applier.applied[0].CorrelationID)

	// An explicit body value wins over the property
	d.Body = []byte(`{"status":"success","correlation_id":"from-body"}`)
	l.Handle(context.Background(), d)
	assert.Equal(t, "from-body", applier.applied[1].CorrelationID)
}

func TestLateReplyHandler_RoutesToApplier(t *testing.T) {
	videoApplier := &recordingApplier{}
	h := NewLateReplyHandler(map[string]Applier{
		"generate": videoApplier,
	}, testLogger())

	h.Handle("generate", "corr-1", map[string]interface{}{
		"status":    "success",
		"video_url": "https://cdn/late.mp4",
	})

	require.Equal(t, 1, videoApplier.count())
	msg := videoApplier.applied[0]
	assert.Equal(t, "corr-1", msg.CorrelationID)
	assert.Equal(t, "https://cdn/late.mp4", msg.VideoURL)
	assert.True(t, msg.IsSuccess())
}

func TestLateReplyHandler_UnknownQueueDropped(t *testing.T) {
	videoApplier := &recordingApplier{}
	h := NewLateReplyHandler(map[string]Applier{
		"generate": videoApplier,
	}, testLogger())

	h.Handle("transcript", "corr-1", map[string]interface{}{"status": "success"})
	assert.Equal(t, 0, videoApplier.count())
}
