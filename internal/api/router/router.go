package router

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/Osama092/ThreadGen-Backend/internal/api/handler"
	"github.com/Osama092/ThreadGen-Backend/shared/metrics"
)

// SetupRouter configures and returns the Gin router with all routes
func SetupRouter(deps *handler.Dependencies) *gin.Engine {
	r := gin.New()

	// Middleware
	r.Use(gin.Recovery())
	r.Use(LoggerMiddleware(deps.Logger))
	r.Use(CORSMiddleware())

	// Health check endpoint
	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":  "healthy",
			"service": "threadgen-api",
		})
	})

	r.GET("/metrics", gin.WrapH(metrics.Handler()))

	h := handler.New(deps)

	// Live updates stream
	r.GET("/subscribe", h.Subscribe)

	// API v1 routes
	v1 := r.Group("/api/v1")
	{
		threads := v1.Group("/threads")
		{
			threads.POST("", h.AddThread)
			threads.POST("/transcript", h.GetTranscript)
			threads.GET("/user/:userId", h.ListThreads)
		}

		videos := v1.Group("/videos")
		{
			videos.POST("", h.GenerateVideo)
		}

		campaigns := v1.Group("/campaigns")
		{
			campaigns.POST("", h.AddCampaign)
			campaigns.GET("/user/:userId", h.ListCampaigns)
			campaigns.GET("/user/:userId/:campaignId", h.GetCampaign)
			campaigns.PUT("/:campaignId", h.UpdateCampaign)
		}

		users := v1.Group("/users")
		{
			users.POST("", h.AddUser)
			users.GET("/:userId", h.GetUser)
			users.POST("/kpis", h.AddKPIs)
			users.GET("/:userId/kpis", h.GetKPIs)
			users.POST("/voice", h.CloneVoice)
		}

		keys := v1.Group("/keys")
		{
			keys.POST("", h.CreateKey)
			keys.GET("/user/:userId", h.ListKeys)
			keys.PATCH("/:apiKey", h.RenameKey)
			keys.DELETE("/:apiKey", h.DeleteKey)
		}

		requests := v1.Group("/requests")
		{
			requests.GET("", h.ListRequests)
			requests.POST("", h.AddRequest)
		}

		v1.GET("/player/config", h.PlayerConfig)

		billingGroup := v1.Group("/billing")
		{
			billingGroup.GET("/subscription/:email", h.GetSubscription)
			billingGroup.GET("/transactions/:email", h.GetTransactions)
			billingGroup.POST("/subscriptions/:subscriptionId/cancel", h.CancelSubscription)
			billingGroup.POST("/payment/:subscriptionId", h.UpdatePaymentMethod)
		}
	}

	return r
}
