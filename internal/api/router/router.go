package router

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/phamtq/msg-delivery/internal/api/handler"
)

// SetupRouter configures and returns the Gin router with all routes
func SetupRouter(deps *handler.Dependencies, apiKey string) *gin.Engine {
	r := gin.New()

	// Middleware
	r.Use(gin.Recovery())
	r.Use(LoggerMiddleware(deps.Logger))
	r.Use(CORSMiddleware())

	// Health check endpoint
	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":  "healthy",
			"service": "msg-enqueue-api",
		})
	})

	messageHandler := handler.NewMessageHandler(deps)

	// API v1 routes, guarded by the API key
	v1 := r.Group("/api/v1")
	v1.Use(APIKeyMiddleware(apiKey))
	{
		// POST /api/v1/messages - Enqueue a message job
		v1.POST("/messages", messageHandler.EnqueueMessage)
	}

	return r
}
