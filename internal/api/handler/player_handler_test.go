package handler

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/Osama092/ThreadGen-Backend/internal/api/model"
)

func TestPlayerConfig(t *testing.T) {
	deps := newTestDeps()
	deps.store.keys["key-1"] = &model.APIKey{APIKey: "key-1", UserID: "user-1"}
	deps.store.threads = append(deps.store.threads, model.Thread{
		ThreadID:     "thread-1",
		UserID:       "user-1",
		ThreadName:   "welcome",
		Color:        "#ff6600",
		SmartPause:   true,
		Subtitle:     true,
		FastProgress: false,
		Status:       model.StatusReady,
	})

	w := performJSON(t, deps.handler.PlayerConfig, http.MethodGet,
		"/api/v1/player/config?apiKey=key-1&threadName=welcome", nil)

	assert.Equal(t, http.StatusOK, w.Code)
	body := decodeBody(t, w)
	assert.Equal(t, "welcome", body["threadName"])
	assert.Equal(t, "#ff6600", body["color"])
	assert.Equal(t, true, body["smartPause"])
	assert.Equal(t, false, body["fastProgress"])
}

func TestPlayerConfig_Validation(t *testing.T) {
	tests := []struct {
		name      string
		target    string
		seed      func(*testDeps)
		wantError string
	}{
		{
			name:      "missing query params",
			target:    "/api/v1/player/config?apiKey=key-1",
			wantError: "apiKey and threadName are required",
		},
		{
			name:      "unknown api key",
			target:    "/api/v1/player/config?apiKey=bogus&threadName=welcome",
			wantError: "Invalid apiKey",
		},
		{
			name:      "thread not owned by key user",
			target:    "/api/v1/player/config?apiKey=key-1&threadName=other",
			wantError: "Invalid threadName",
		},
		{
			name:   "thread not ready",
			target: "/api/v1/player/config?apiKey=key-1&threadName=draft",
			seed: func(deps *testDeps) {
				deps.store.threads = append(deps.store.threads, model.Thread{
					ThreadID: "thread-2", UserID: "user-1", ThreadName: "draft", Status: model.StatusPending,
				})
			},
			wantError: "Thread is not ready",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			deps := newTestDeps()
			deps.store.keys["key-1"] = &model.APIKey{APIKey: "key-1", UserID: "user-1"}
			deps.store.threads = append(deps.store.threads, model.Thread{
				ThreadID: "thread-9", UserID: "user-2", ThreadName: "other", Status: model.StatusReady,
			})
			if tt.seed != nil {
				tt.seed(deps)
			}

			w := performJSON(t, deps.handler.PlayerConfig, http.MethodGet, tt.target, nil)

			assert.Equal(t, http.StatusBadRequest, w.Code)
			assert.Equal(t, tt.wantError, decodeBody(t, w)["error"])
		})
	}
}
