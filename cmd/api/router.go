package api

import (
	"log"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/dgibisch/doit2-sub002/internal/auth/delivery"
	chatdomain "github.com/dgibisch/doit2-sub002/internal/chat/domain"
)

func SetupRoutes(r *gin.Engine, h *Handler) {
	api := r.Group("/api")
	{
		// Health check (no auth required)
		api.GET("/health", func(c *gin.Context) {
			c.JSON(http.StatusOK, gin.H{"status": "ok"})
		})

		// SSE endpoint. Each connection also carries the caller's chat-list
		// projection as "chats" events.
		api.GET("/events", delivery.AuthMiddleware(h.authUsecase), func(c *gin.Context) {
			userID := c.GetString("userID")

			// Hub registration precedes the subscription so the projection's
			// initial snapshot reaches this connection.
			conn := h.sseManager.Connect(userID)
			defer conn.Close()

			unsubscribe, err := h.chatUsecase.SubscribeUserChats(c.Request.Context(), userID, func(chats []chatdomain.ChatSummary) {
				h.sseManager.SendToUser(userID, "chats", gin.H{"chats": chats})
			})
			if err != nil {
				log.Printf("[SSE] chat projection unavailable for user %s: %v", userID, err)
			} else {
				defer unsubscribe()
			}

			conn.Serve(c)
		})

		// Auth routes
		auth := api.Group("/auth")
		{
			if h.config.IsDev() {
				auth.POST("/token", h.authHandler.DevToken)
			}
			auth.GET("/me", delivery.AuthMiddleware(h.authUsecase), h.authHandler.Me)
		}

		// Task routes (protected)
		tasks := api.Group("/tasks")
		tasks.Use(delivery.AuthMiddleware(h.authUsecase))
		{
			tasks.GET("", h.taskHandler.GetTasks)
			tasks.POST("", h.taskHandler.CreateTask)
			tasks.GET("/mine", h.taskHandler.GetOwnTasks)
			tasks.GET("/:id", h.taskHandler.GetTaskByID)
			tasks.POST("/:id/apply", h.taskHandler.Apply)
			tasks.POST("/:id/accept", h.taskHandler.Accept)
			tasks.GET("/:id/applications", h.taskHandler.GetApplications)
			tasks.POST("/:id/complete", h.taskHandler.Complete)
			tasks.POST("/:id/bookmark", h.taskHandler.ToggleBookmark)
			tasks.GET("/:id/comments", h.taskHandler.GetComments)
			tasks.POST("/:id/comments", h.taskHandler.AddComment)
			tasks.GET("/:id/comments/events", h.taskHandler.StreamComments)
		}

		// Chat routes (protected)
		chats := api.Group("/chats")
		chats.Use(delivery.AuthMiddleware(h.authUsecase))
		{
			chats.GET("", h.chatHandler.GetChats)
			chats.GET("/events", h.chatHandler.StreamChats)
			chats.GET("/:id/messages", h.chatHandler.GetMessages)
			chats.GET("/:id/messages/events", h.chatHandler.StreamMessages)
			chats.POST("/:id/messages", h.chatHandler.SendMessage)
			chats.POST("/:id/read", h.chatHandler.MarkRead)
			chats.POST("/:id/location/request", h.chatHandler.RequestLocation)
			chats.POST("/:id/location/respond", h.chatHandler.RespondLocation)
		}

		// User routes (protected)
		users := api.Group("/users")
		users.Use(delivery.AuthMiddleware(h.authUsecase))
		{
			users.GET("/:id", h.userHandler.GetProfile)
			users.GET("/:id/reviews", h.userHandler.GetReviews)
		}

		// Bookmark and device routes (protected)
		api.GET("/bookmarks", delivery.AuthMiddleware(h.authUsecase), h.userHandler.GetBookmarks)

		devices := api.Group("/devices")
		devices.Use(delivery.AuthMiddleware(h.authUsecase))
		{
			devices.POST("", h.userHandler.RegisterDeviceToken)
			devices.DELETE("", h.userHandler.UnregisterDeviceToken)
		}
	}
}
