package handler

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/Osama092/ThreadGen-Backend/internal/api/model"
	"github.com/Osama092/ThreadGen-Backend/internal/api/storage"
	"github.com/Osama092/ThreadGen-Backend/internal/billing"
	"github.com/Osama092/ThreadGen-Backend/internal/config"
	"github.com/Osama092/ThreadGen-Backend/internal/dispatch"
	"github.com/Osama092/ThreadGen-Backend/internal/sse"
)

// Dispatcher is the slice of the job dispatcher the HTTP layer uses.
type Dispatcher interface {
	Submit(ctx context.Context, route string, payload map[string]interface{}, timeout time.Duration) (*dispatch.Outcome, error)
	Publish(ctx context.Context, route string, payload map[string]interface{}, correlationID, replyTo string) error
}

// Store is the slice of the document store the HTTP layer uses.
type Store interface {
	CreateUser(ctx context.Context, user *model.User) error
	GetUserByID(ctx context.Context, userID string) (*model.User, error)
	AddKPIs(ctx context.Context, userID string, ttsUsed, videosWatched int) error
	SetVoiceCloned(ctx context.Context, userID string, cloned bool) (bool, error)

	GetAPIKey(ctx context.Context, apiKey string) (*model.APIKey, error)
	GetUserAPIKey(ctx context.Context, apiKey, userID string) (*model.APIKey, error)
	ListAPIKeysByUser(ctx context.Context, userID string) ([]model.APIKey, error)
	IncrementKeyUses(ctx context.Context, apiKey string, n int) error
	RenameAPIKey(ctx context.Context, apiKey, keyName string) error
	DeleteAPIKey(ctx context.Context, apiKey string) error
	GenerateUniqueKey(ctx context.Context, userID, keyName string, generate func() string) (*model.APIKey, error)

	CreateThread(ctx context.Context, thread *model.Thread) error
	GetThreadByName(ctx context.Context, threadName string) (*model.Thread, error)
	GetUserThread(ctx context.Context, threadName, userID string) (*model.Thread, error)
	ListThreadsByUser(ctx context.Context, userID string) ([]model.Thread, error)

	CampaignNameExists(ctx context.Context, userID, name string) (bool, error)
	CreateCampaign(ctx context.Context, campaign *model.Campaign, items []model.CampaignItem) error
	GetCampaign(ctx context.Context, campaignID string) (*model.Campaign, error)
	ListCampaignsByUser(ctx context.Context, userID string) ([]model.Campaign, error)
	ListCampaignItems(ctx context.Context, campaignID string) ([]model.CampaignItem, error)
	UpdateCampaign(ctx context.Context, campaignID, name, description string) error

	CreateRequest(ctx context.Context, req *model.Request) error
	ListRequests(ctx context.Context, filter storage.RequestFilter) ([]model.Request, error)
}

// Billing is the slice of the Paddle client the HTTP layer uses.
type Billing interface {
	SubscriptionByEmail(ctx context.Context, email string) (*billing.Subscription, error)
	Transactions(ctx context.Context, customerID, subscriptionID string) ([]billing.Transaction, error)
	CancelSubscription(ctx context.Context, subscriptionID string) (json.RawMessage, error)
	UpdatePaymentTransaction(ctx context.Context, subscriptionID string) (json.RawMessage, error)
	VideoAllowance(ctx context.Context, email string) int
}

// Hub is the slice of the SSE hub the HTTP layer uses.
type Hub interface {
	Subscribe(identity string) *sse.Subscriber
	Unsubscribe(sub *sse.Subscriber)
	Publish(identity string, payload interface{}) bool
}

// Dependencies holds all dependencies needed by handlers
type Dependencies struct {
	Logger     *slog.Logger
	Store      Store
	Dispatcher Dispatcher
	Billing    Billing
	Hub        Hub
	Dispatch   config.DispatchConfig
}

// Handler carries every HTTP endpoint of the API service.
type Handler struct {
	logger     *slog.Logger
	store      Store
	dispatcher Dispatcher
	billing    Billing
	hub        Hub
	dispatch   config.DispatchConfig
}

// New creates the handler set from its dependencies.
func New(deps *Dependencies) *Handler {
	return &Handler{
		logger:     deps.Logger,
		store:      deps.Store,
		dispatcher: deps.Dispatcher,
		billing:    deps.Billing,
		hub:        deps.Hub,
		dispatch:   deps.Dispatch,
	}
}
