package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"

	"github.com/Osama092/ThreadGen-Backend/internal/api/model"
	"github.com/Osama092/ThreadGen-Backend/internal/api/storage"
	"github.com/Osama092/ThreadGen-Backend/internal/billing"
	"github.com/Osama092/ThreadGen-Backend/internal/config"
	"github.com/Osama092/ThreadGen-Backend/internal/dispatch"
	"github.com/Osama092/ThreadGen-Backend/internal/sse"
)

// fakeStore is an in-memory Store. A non-nil failWith makes every call fail
// with that error.
type fakeStore struct {
	users     map[string]*model.User
	keys      map[string]*model.APIKey
	threads   []model.Thread
	campaigns map[string]*model.Campaign
	items     map[string][]model.CampaignItem
	requests  []model.Request

	listRows   []model.Request
	lastFilter storage.RequestFilter
	keyUses    map[string]int
	failWith   error
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		users:     make(map[string]*model.User),
		keys:      make(map[string]*model.APIKey),
		campaigns: make(map[string]*model.Campaign),
		items:     make(map[string][]model.CampaignItem),
		keyUses:   make(map[string]int),
	}
}

func (s *fakeStore) CreateUser(_ context.Context, user *model.User) error {
	if s.failWith != nil {
		return s.failWith
	}
	s.users[user.UserID] = user
	return nil
}

func (s *fakeStore) GetUserByID(_ context.Context, userID string) (*model.User, error) {
	if s.failWith != nil {
		return nil, s.failWith
	}
	user, ok := s.users[userID]
	if !ok {
		return nil, storage.ErrNotFound
	}
	return user, nil
}

func (s *fakeStore) AddKPIs(_ context.Context, userID string, ttsUsed, videosWatched int) error {
	if s.failWith != nil {
		return s.failWith
	}
	user, ok := s.users[userID]
	if !ok {
		return fmt.Errorf("no such user: %w", storage.ErrNotFound)
	}
	user.TTSUsed += ttsUsed
	user.VideosWatch += videosWatched
	return nil
}

func (s *fakeStore) SetVoiceCloned(_ context.Context, userID string, cloned bool) (bool, error) {
	if s.failWith != nil {
		return false, s.failWith
	}
	user, ok := s.users[userID]
	if !ok {
		return false, nil
	}
	user.VoiceCloned = cloned
	return true, nil
}

func (s *fakeStore) GetAPIKey(_ context.Context, apiKey string) (*model.APIKey, error) {
	if s.failWith != nil {
		return nil, s.failWith
	}
	key, ok := s.keys[apiKey]
	if !ok {
		return nil, storage.ErrNotFound
	}
	return key, nil
}

func (s *fakeStore) GetUserAPIKey(_ context.Context, apiKey, userID string) (*model.APIKey, error) {
	if s.failWith != nil {
		return nil, s.failWith
	}
	key, ok := s.keys[apiKey]
	if !ok || key.UserID != userID {
		return nil, storage.ErrNotFound
	}
	return key, nil
}

func (s *fakeStore) ListAPIKeysByUser(_ context.Context, userID string) ([]model.APIKey, error) {
	if s.failWith != nil {
		return nil, s.failWith
	}
	var out []model.APIKey
	for _, key := range s.keys {
		if key.UserID == userID {
			out = append(out, *key)
		}
	}
	return out, nil
}

func (s *fakeStore) IncrementKeyUses(_ context.Context, apiKey string, n int) error {
	if s.failWith != nil {
		return s.failWith
	}
	s.keyUses[apiKey] += n
	if key, ok := s.keys[apiKey]; ok {
		key.NUses += n
	}
	return nil
}

func (s *fakeStore) RenameAPIKey(_ context.Context, apiKey, keyName string) error {
	if s.failWith != nil {
		return s.failWith
	}
	key, ok := s.keys[apiKey]
	if !ok {
		return fmt.Errorf("no such key: %w", storage.ErrNotFound)
	}
	key.KeyName = keyName
	return nil
}

func (s *fakeStore) DeleteAPIKey(_ context.Context, apiKey string) error {
	if s.failWith != nil {
		return s.failWith
	}
	if _, ok := s.keys[apiKey]; !ok {
		return fmt.Errorf("no such key: %w", storage.ErrNotFound)
	}
	delete(s.keys, apiKey)
	return nil
}

func (s *fakeStore) GenerateUniqueKey(_ context.Context, userID, keyName string, generate func() string) (*model.APIKey, error) {
	if s.failWith != nil {
		return nil, s.failWith
	}
	key := &model.APIKey{
		APIKey:    generate(),
		UserID:    userID,
		KeyName:   keyName,
		CreatedAt: time.Now(),
	}
	s.keys[key.APIKey] = key
	return key, nil
}

func (s *fakeStore) CreateThread(_ context.Context, thread *model.Thread) error {
	if s.failWith != nil {
		return s.failWith
	}
	s.threads = append(s.threads, *thread)
	return nil
}

func (s *fakeStore) GetThreadByName(_ context.Context, threadName string) (*model.Thread, error) {
	if s.failWith != nil {
		return nil, s.failWith
	}
	for i := range s.threads {
		if s.threads[i].ThreadName == threadName {
			return &s.threads[i], nil
		}
	}
	return nil, storage.ErrNotFound
}

func (s *fakeStore) GetUserThread(_ context.Context, threadName, userID string) (*model.Thread, error) {
	if s.failWith != nil {
		return nil, s.failWith
	}
	for i := range s.threads {
		if s.threads[i].ThreadName == threadName && s.threads[i].UserID == userID {
			return &s.threads[i], nil
		}
	}
	return nil, storage.ErrNotFound
}

func (s *fakeStore) ListThreadsByUser(_ context.Context, userID string) ([]model.Thread, error) {
	if s.failWith != nil {
		return nil, s.failWith
	}
	var out []model.Thread
	for _, t := range s.threads {
		if t.UserID == userID {
			out = append(out, t)
		}
	}
	return out, nil
}

func (s *fakeStore) CampaignNameExists(_ context.Context, userID, name string) (bool, error) {
	if s.failWith != nil {
		return false, s.failWith
	}
	for _, cam := range s.campaigns {
		if cam.UserID == userID && cam.Name == name {
			return true, nil
		}
	}
	return false, nil
}

func (s *fakeStore) CreateCampaign(_ context.Context, campaign *model.Campaign, items []model.CampaignItem) error {
	if s.failWith != nil {
		return s.failWith
	}
	s.campaigns[campaign.CampaignID] = campaign
	s.items[campaign.CampaignID] = items
	return nil
}

func (s *fakeStore) GetCampaign(_ context.Context, campaignID string) (*model.Campaign, error) {
	if s.failWith != nil {
		return nil, s.failWith
	}
	cam, ok := s.campaigns[campaignID]
	if !ok {
		return nil, storage.ErrNotFound
	}
	return cam, nil
}

func (s *fakeStore) ListCampaignsByUser(_ context.Context, userID string) ([]model.Campaign, error) {
	if s.failWith != nil {
		return nil, s.failWith
	}
	var out []model.Campaign
	for _, cam := range s.campaigns {
		if cam.UserID == userID {
			out = append(out, *cam)
		}
	}
	return out, nil
}

func (s *fakeStore) ListCampaignItems(_ context.Context, campaignID string) ([]model.CampaignItem, error) {
	if s.failWith != nil {
		return nil, s.failWith
	}
	return s.items[campaignID], nil
}

func (s *fakeStore) UpdateCampaign(_ context.Context, campaignID, name, description string) error {
	if s.failWith != nil {
		return s.failWith
	}
	cam, ok := s.campaigns[campaignID]
	if !ok {
		return fmt.Errorf("no such campaign: %w", storage.ErrNotFound)
	}
	cam.Name = name
	cam.Description = description
	return nil
}

func (s *fakeStore) CreateRequest(_ context.Context, req *model.Request) error {
	if s.failWith != nil {
		return s.failWith
	}
	s.requests = append(s.requests, *req)
	return nil
}

func (s *fakeStore) ListRequests(_ context.Context, filter storage.RequestFilter) ([]model.Request, error) {
	if s.failWith != nil {
		return nil, s.failWith
	}
	s.lastFilter = filter
	return s.listRows, nil
}

type submitCall struct {
	route   string
	payload map[string]interface{}
	timeout time.Duration
}

type publishCall struct {
	route         string
	payload       map[string]interface{}
	correlationID string
	replyTo       string
}

type fakeDispatcher struct {
	outcome    *dispatch.Outcome
	submitErr  error
	publishErr error
	submits    []submitCall
	publishes  []publishCall
}

func (d *fakeDispatcher) Submit(_ context.Context, route string, payload map[string]interface{}, timeout time.Duration) (*dispatch.Outcome, error) {
	d.submits = append(d.submits, submitCall{route: route, payload: payload, timeout: timeout})
	if d.submitErr != nil {
		return nil, d.submitErr
	}
	return d.outcome, nil
}

func (d *fakeDispatcher) Publish(_ context.Context, route string, payload map[string]interface{}, correlationID, replyTo string) error {
	d.publishes = append(d.publishes, publishCall{route: route, payload: payload, correlationID: correlationID, replyTo: replyTo})
	return d.publishErr
}

type fakeBilling struct {
	allowance  int
	sub        *billing.Subscription
	subErr     error
	txns       []billing.Transaction
	cancelBody json.RawMessage
	paymentTxn json.RawMessage
	callErr    error
}

func (b *fakeBilling) SubscriptionByEmail(_ context.Context, _ string) (*billing.Subscription, error) {
	return b.sub, b.subErr
}

func (b *fakeBilling) Transactions(_ context.Context, _, _ string) ([]billing.Transaction, error) {
	return b.txns, b.callErr
}

func (b *fakeBilling) CancelSubscription(_ context.Context, _ string) (json.RawMessage, error) {
	return b.cancelBody, b.callErr
}

func (b *fakeBilling) UpdatePaymentTransaction(_ context.Context, _ string) (json.RawMessage, error) {
	return b.paymentTxn, b.callErr
}

func (b *fakeBilling) VideoAllowance(_ context.Context, _ string) int {
	return b.allowance
}

type hubEvent struct {
	identity string
	payload  interface{}
}

type fakeHub struct {
	events []hubEvent
}

func (h *fakeHub) Subscribe(identity string) *sse.Subscriber {
	return &sse.Subscriber{Identity: identity, Ch: make(chan sse.Event, 16), ConnectedAt: time.Now()}
}

func (h *fakeHub) Unsubscribe(_ *sse.Subscriber) {}

func (h *fakeHub) Publish(identity string, payload interface{}) bool {
	h.events = append(h.events, hubEvent{identity: identity, payload: payload})
	return true
}

type testDeps struct {
	store      *fakeStore
	dispatcher *fakeDispatcher
	billing    *fakeBilling
	hub        *fakeHub
	handler    *Handler
}

func newTestDeps() *testDeps {
	gin.SetMode(gin.TestMode)

	deps := &testDeps{
		store:      newFakeStore(),
		dispatcher: &fakeDispatcher{},
		billing:    &fakeBilling{allowance: 5},
		hub:        &fakeHub{},
	}
	deps.handler = New(&Dependencies{
		Logger:     slog.New(slog.NewTextHandler(io.Discard, nil)),
		Store:      deps.store,
		Dispatcher: deps.dispatcher,
		Billing:    deps.billing,
		Hub:        deps.hub,
		Dispatch: config.DispatchConfig{
			GenerateTimeout:         time.Second,
			ThreadTimeout:           time.Second,
			TranscriptTimeout:       time.Second,
			CloningTimeout:          time.Second,
			RequestCompletionQueue:  "request_completion",
			ThreadCompletionQueue:   "thread_completion",
			CloningCompletionQueue:  "cloning_completion",
			CampaignCompletionQueue: "campaign_completion",
		},
	})
	return deps
}

// performJSON invokes a handler directly with a JSON body and optional route
// params, skipping the router.
func performJSON(t *testing.T, handle gin.HandlerFunc, method, target string, body interface{}, params ...gin.Param) *httptest.ResponseRecorder {
	t.Helper()

	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	req := httptest.NewRequest(method, target, reader)
	req.Header.Set("Content-Type", "application/json")
	c.Request = req
	c.Params = params

	handle(c)
	return w
}

func decodeBody(t *testing.T, w *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var out map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out))
	return out
}
