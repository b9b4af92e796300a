package handler

import (
	"encoding/json"
	"net/http"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Osama092/ThreadGen-Backend/internal/billing"
)

func TestGetSubscription(t *testing.T) {
	deps := newTestDeps()
	deps.billing.sub = &billing.Subscription{ID: "sub_1", Status: "active", CustomerID: "ctm_1"}

	w := performJSON(t, deps.handler.GetSubscription, http.MethodGet,
		"/api/v1/billing/subscription/alice@example.com", nil,
		gin.Param{Key: "email", Value: "alice@example.com"})

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "sub_1", decodeBody(t, w)["id"])
}

func TestGetSubscription_NoneFound(t *testing.T) {
	deps := newTestDeps()

	w := performJSON(t, deps.handler.GetSubscription, http.MethodGet,
		"/api/v1/billing/subscription/alice@example.com", nil,
		gin.Param{Key: "email", Value: "alice@example.com"})

	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestGetSubscription_ProviderDown(t *testing.T) {
	deps := newTestDeps()
	deps.billing.subErr = billing.ErrBillingUnavailable

	w := performJSON(t, deps.handler.GetSubscription, http.MethodGet,
		"/api/v1/billing/subscription/alice@example.com", nil,
		gin.Param{Key: "email", Value: "alice@example.com"})

	assert.Equal(t, http.StatusBadGateway, w.Code)
}

func TestGetTransactions(t *testing.T) {
	deps := newTestDeps()
	deps.billing.sub = &billing.Subscription{ID: "sub_1", CustomerID: "ctm_1"}
	deps.billing.txns = []billing.Transaction{
		{ID: "txn_1", CustomerID: "ctm_1", SubscriptionID: "sub_1", Status: "completed"},
	}

	w := performJSON(t, deps.handler.GetTransactions, http.MethodGet,
		"/api/v1/billing/transactions/alice@example.com", nil,
		gin.Param{Key: "email", Value: "alice@example.com"})

	assert.Equal(t, http.StatusOK, w.Code)
	txns := decodeBody(t, w)["transactions"].([]interface{})
	require.Len(t, txns, 1)
	assert.Equal(t, "txn_1", txns[0].(map[string]interface{})["id"])
}

func TestCancelSubscription_RawPassthrough(t *testing.T) {
	deps := newTestDeps()
	deps.billing.cancelBody = json.RawMessage(`{"data": {"id": "sub_1", "status": "canceled"}}`)

	w := performJSON(t, deps.handler.CancelSubscription, http.MethodPost,
		"/api/v1/billing/subscriptions/sub_1/cancel", nil,
		gin.Param{Key: "subscriptionId", Value: "sub_1"})

	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"data": {"id": "sub_1", "status": "canceled"}}`, w.Body.String())
}

func TestUpdatePaymentMethod_RawPassthrough(t *testing.T) {
	deps := newTestDeps()
	deps.billing.paymentTxn = json.RawMessage(`{"data": {"id": "txn_9"}}`)

	w := performJSON(t, deps.handler.UpdatePaymentMethod, http.MethodPost,
		"/api/v1/billing/payment/sub_1", nil,
		gin.Param{Key: "subscriptionId", Value: "sub_1"})

	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"data": {"id": "txn_9"}}`, w.Body.String())
}
