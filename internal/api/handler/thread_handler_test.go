package handler

import (
	"errors"
	"net/http"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Osama092/ThreadGen-Backend/internal/api/model"
	"github.com/Osama092/ThreadGen-Backend/internal/dispatch"
)

func threadBody() map[string]interface{} {
	return map[string]interface{}{
		"user_id":     "user-1",
		"user_name":   "alice",
		"thread_name": "welcome",
		"description": "intro flow",
		"tts_text":    "hello {name}",
		"color":       "#ff6600",
		"smart_pause": true,
		"subtitle":    true,
	}
}

func TestAddThread_CreatesPendingAndDispatches(t *testing.T) {
	deps := newTestDeps()

	w := performJSON(t, deps.handler.AddThread, http.MethodPost, "/api/v1/threads", threadBody())

	assert.Equal(t, http.StatusCreated, w.Code)
	body := decodeBody(t, w)
	assert.Equal(t, model.StatusPending, body["status"])
	assert.NotEmpty(t, body["thread_id"])
	assert.NotEmpty(t, body["correlation_id"])

	require.Len(t, deps.store.threads, 1)
	thread := deps.store.threads[0]
	assert.Equal(t, model.StatusPending, thread.Status)
	assert.Equal(t, "hello {name}", thread.TTSText)
	assert.True(t, thread.SmartPause)

	require.Len(t, deps.dispatcher.publishes, 1)
	call := deps.dispatcher.publishes[0]
	assert.Equal(t, dispatch.QueueThread, call.route)
	assert.Equal(t, thread.CorrelationID, call.correlationID)
	assert.Equal(t, "thread_completion", call.replyTo)
	assert.Equal(t, thread.ThreadID, call.payload["threadId"])
	assert.Equal(t, "alice", call.payload["userName"])
}

func TestAddThread_DuplicateName(t *testing.T) {
	deps := newTestDeps()
	deps.store.threads = append(deps.store.threads, model.Thread{
		ThreadID: "thread-1", UserID: "user-1", ThreadName: "welcome", Status: model.StatusReady,
	})

	w := performJSON(t, deps.handler.AddThread, http.MethodPost, "/api/v1/threads", threadBody())

	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Len(t, deps.store.threads, 1)
	assert.Empty(t, deps.dispatcher.publishes)
}

func TestAddThread_MissingFields(t *testing.T) {
	deps := newTestDeps()

	w := performJSON(t, deps.handler.AddThread, http.MethodPost, "/api/v1/threads",
		map[string]interface{}{"user_id": "user-1"})

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Empty(t, deps.store.threads)
}

func TestAddThread_BrokerDown(t *testing.T) {
	deps := newTestDeps()
	deps.dispatcher.publishErr = errors.New("connection refused")

	w := performJSON(t, deps.handler.AddThread, http.MethodPost, "/api/v1/threads", threadBody())

	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}

func TestListThreads(t *testing.T) {
	deps := newTestDeps()
	deps.store.threads = append(deps.store.threads,
		model.Thread{ThreadID: "thread-1", UserID: "user-1", ThreadName: "welcome", Status: model.StatusReady},
		model.Thread{ThreadID: "thread-2", UserID: "user-2", ThreadName: "other", Status: model.StatusReady},
	)

	w := performJSON(t, deps.handler.ListThreads, http.MethodGet, "/api/v1/threads/user/user-1", nil,
		gin.Param{Key: "userId", Value: "user-1"})

	assert.Equal(t, http.StatusOK, w.Code)
	body := decodeBody(t, w)
	threads := body["threads"].([]interface{})
	require.Len(t, threads, 1)
	assert.Equal(t, "thread-1", threads[0].(map[string]interface{})["thread_id"])
}

func TestGetTranscript_Outcomes(t *testing.T) {
	body := map[string]interface{}{
		"user_id":     "user-1",
		"user_name":   "alice",
		"thread_name": "welcome",
		"video_path":  "/uploads/clip.mp4",
	}

	tests := []struct {
		name       string
		outcome    *dispatch.Outcome
		submitErr  error
		wantStatus int
		check      func(*testing.T, map[string]interface{})
	}{
		{
			name: "fast worker returns transcript",
			outcome: &dispatch.Outcome{
				Completed: true,
				Reply:     dispatch.Reply{"status": "success", "transcript": "hello there"},
			},
			wantStatus: http.StatusOK,
			check: func(t *testing.T, body map[string]interface{}) {
				assert.Equal(t, "hello there", body["transcript"])
			},
		},
		{
			name:       "slow worker answers processing",
			outcome:    &dispatch.Outcome{Completed: false, CorrelationID: "corr-9"},
			wantStatus: http.StatusAccepted,
			check: func(t *testing.T, body map[string]interface{}) {
				assert.Equal(t, "corr-9", body["correlationId"])
			},
		},
		{
			name: "worker failure",
			outcome: &dispatch.Outcome{
				Completed: true,
				Reply:     dispatch.Reply{"status": "error", "error": "no audio track"},
			},
			wantStatus: http.StatusBadGateway,
			check: func(t *testing.T, body map[string]interface{}) {
				assert.Equal(t, "no audio track", body["error"])
			},
		},
		{
			name:       "broker down",
			submitErr:  dispatch.ErrBrokerUnavailable,
			wantStatus: http.StatusServiceUnavailable,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			deps := newTestDeps()
			deps.dispatcher.outcome = tt.outcome
			deps.dispatcher.submitErr = tt.submitErr

			w := performJSON(t, deps.handler.GetTranscript, http.MethodPost, "/api/v1/threads/transcript", body)

			assert.Equal(t, tt.wantStatus, w.Code)
			if tt.check != nil {
				tt.check(t, decodeBody(t, w))
			}
			require.Len(t, deps.dispatcher.submits, 1)
			assert.Equal(t, dispatch.QueueTranscript, deps.dispatcher.submits[0].route)
		})
	}
}
