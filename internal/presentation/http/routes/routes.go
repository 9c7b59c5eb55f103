// Package routes provides HTTP route configuration for the presentation layer.
package routes

import (
	"github.com/gin-gonic/gin"

	"github.com/dailymirror/mirror-go/internal/application/container"
	"github.com/dailymirror/mirror-go/internal/presentation/http/handlers"
	"github.com/dailymirror/mirror-go/internal/presentation/http/middleware"
)

// SetupRoutes configures all HTTP routes and middleware with dependency injection.
func SetupRoutes(container *container.Container) *gin.Engine {
	r := gin.Default()

	r.Use(middleware.CORSMiddleware())

	// Initialize handlers
	recommendationHandlers := handlers.NewRecommendationHandlers(container.RecommendationService, container.CacheManager, container.Logger)
	feedbackHandlers := handlers.NewFeedbackHandlers(container.FeedbackService, container.Logger)
	notificationHandlers := handlers.NewNotificationHandlers(container.NotificationService, container.Coordinator, container.Logger)
	systemHandlers := handlers.NewSystemHandlers(container.CacheManager, container.Logger)
	wsHandlers := handlers.NewWSHandlers(container.Hub, container.Logger)

	api := r.Group("/api/v1")
	{
		users := api.Group("/users/:userId")
		{
			users.GET("/recommendations/today", recommendationHandlers.GetToday)
			users.POST("/recommendations/pregenerate", recommendationHandlers.PostPreGenerate)
			users.POST("/outfits/:outfitId/worn", recommendationHandlers.PostWorn)
			users.POST("/outfits/:outfitId/favorite", recommendationHandlers.PostFavorite)

			users.POST("/feedback", feedbackHandlers.PostFeedback)

			users.GET("/notifications", notificationHandlers.GetNotifications)
			users.POST("/notifications/daily-mirror", notificationHandlers.PostDailyMirror)
			users.POST("/notifications/timezone", notificationHandlers.PostTimezone)
			users.POST("/notifications/re-engage", notificationHandlers.PostReEngage)
		}

		api.GET("/images/optimize", systemHandlers.GetOptimizedImage)
		api.GET("/metrics", systemHandlers.GetMetrics)
		api.GET("/health", systemHandlers.GetHealth)
	}

	// In-app notification hub connections live outside the API group.
	r.GET("/ws/notifications/:userId", wsHandlers.Connect)

	return r
}
