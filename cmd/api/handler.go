package api

import (
	authDelivery "github.com/dgibisch/doit2-sub002/internal/auth/delivery"
	authUsecase "github.com/dgibisch/doit2-sub002/internal/auth/usecase"
	chatDelivery "github.com/dgibisch/doit2-sub002/internal/chat/delivery"
	chatUsecasePkg "github.com/dgibisch/doit2-sub002/internal/chat/usecase"
	reviewUsecasePkg "github.com/dgibisch/doit2-sub002/internal/review/usecase"
	taskDelivery "github.com/dgibisch/doit2-sub002/internal/task/delivery"
	taskUsecasePkg "github.com/dgibisch/doit2-sub002/internal/task/usecase"
	userDelivery "github.com/dgibisch/doit2-sub002/internal/user/delivery"
	userUsecasePkg "github.com/dgibisch/doit2-sub002/internal/user/usecase"
	"github.com/dgibisch/doit2-sub002/pkg/config"
	"github.com/dgibisch/doit2-sub002/pkg/sse"

	"github.com/gin-gonic/gin"
)

type Handler struct {
	authUsecase authUsecase.AuthUsecase
	chatUsecase chatUsecasePkg.ChatUsecase
	sseManager  *sse.Manager
	config      *config.Config
	authHandler *authDelivery.AuthHandler
	taskHandler *taskDelivery.TaskHandler
	chatHandler *chatDelivery.ChatHandler
	userHandler *userDelivery.UserHandler
}

func NewHandler(
	authUc authUsecase.AuthUsecase,
	taskUc taskUsecasePkg.TaskUsecase,
	chatUc chatUsecasePkg.ChatUsecase,
	reviewUc reviewUsecasePkg.ReviewUsecase,
	userUc userUsecasePkg.UserUsecase,
	sseManager *sse.Manager,
	cfg *config.Config,
) *Handler {
	return &Handler{
		authUsecase: authUc,
		chatUsecase: chatUc,
		sseManager:  sseManager,
		config:      cfg,
		authHandler: authDelivery.NewAuthHandler(authUc, userUc),
		taskHandler: taskDelivery.NewTaskHandler(taskUc, reviewUc, userUc),
		chatHandler: chatDelivery.NewChatHandler(chatUc),
		userHandler: userDelivery.NewUserHandler(userUc, reviewUc),
	}
}

func (h *Handler) Start(addr string) error {
	if !h.config.IsDev() {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.Default()

	// CORS middleware
	r.Use(func(c *gin.Context) {
		origin := c.Request.Header.Get("Origin")
		if origin != "" {
			c.Writer.Header().Set("Access-Control-Allow-Origin", origin)
		} else {
			c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		}

		c.Writer.Header().Set("Access-Control-Allow-Credentials", "true")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Content-Length, Accept-Encoding, X-CSRF-Token, Authorization, accept, origin, Cache-Control, X-Requested-With")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "POST, OPTIONS, GET, PUT, DELETE, PATCH")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}

		c.Next()
	})

	SetupRoutes(r, h)

	return r.Run(addr)
}
