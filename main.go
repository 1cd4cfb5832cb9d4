package main

import (
	"context"
	"log"

	firebase "firebase.google.com/go/v4"
	fbauth "firebase.google.com/go/v4/auth"
	"google.golang.org/api/option"

	api "github.com/dgibisch/doit2-sub002/cmd/api"
	authUsecase "github.com/dgibisch/doit2-sub002/internal/auth/usecase"
	chatRepo "github.com/dgibisch/doit2-sub002/internal/chat/repository"
	chatUsecase "github.com/dgibisch/doit2-sub002/internal/chat/usecase"
	"github.com/dgibisch/doit2-sub002/internal/notification"
	reviewRepo "github.com/dgibisch/doit2-sub002/internal/review/repository"
	reviewUsecase "github.com/dgibisch/doit2-sub002/internal/review/usecase"
	taskRepo "github.com/dgibisch/doit2-sub002/internal/task/repository"
	taskUsecase "github.com/dgibisch/doit2-sub002/internal/task/usecase"
	userRepo "github.com/dgibisch/doit2-sub002/internal/user/repository"
	userUsecase "github.com/dgibisch/doit2-sub002/internal/user/usecase"
	"github.com/dgibisch/doit2-sub002/pkg/config"
	"github.com/dgibisch/doit2-sub002/pkg/fcm"
	"github.com/dgibisch/doit2-sub002/pkg/sse"
	"github.com/dgibisch/doit2-sub002/pkg/store"
)

func main() {
	// Load configuration
	cfg := config.Load()
	ctx := context.Background()

	// Initialize the document store backend
	docStore, err := newStore(ctx, cfg)
	if err != nil {
		log.Fatal("Failed to initialize document store:", err)
	}
	log.Printf("Using %s store backend", cfg.StoreBackend)

	// Initialize repositories (dependency injection)
	userRepository := userRepo.NewUserRepository(docStore)
	taskRepository := taskRepo.NewTaskRepository(docStore)
	applicationRepository := taskRepo.NewApplicationRepository(docStore)
	commentRepository := taskRepo.NewCommentRepository(docStore)
	chatRepository := chatRepo.NewChatRepository(docStore)
	messageRepository := chatRepo.NewMessageRepository(docStore)
	reviewRepository := reviewRepo.NewReviewRepository(docStore)

	// Initialize SSE Manager
	sseManager := sse.NewManager()
	go sseManager.Run()

	// Initialize FCM client (optional, events still reach SSE without it)
	var fcmClient *fcm.Client
	if cfg.FirebaseCredentials != "" {
		fcmClient, err = fcm.NewClient(cfg.FirebaseCredentials)
		if err != nil {
			log.Printf("[WARN] Failed to initialize FCM client (push notifications disabled): %v", err)
		}
	}

	// Initialize the collaboration event service
	notifService, err := notification.NewService(sseManager, userRepository, fcmClient, cfg.FirebaseProjectID, cfg.PubSubTopic, cfg.FirebaseCredentials)
	if err != nil {
		log.Fatal("Failed to initialize notification service:", err)
	}
	defer notifService.Close()
	go notifService.Start(ctx)

	// Initialize Firebase auth when credentials are configured
	var firebaseAuth *fbauth.Client
	if cfg.FirebaseCredentials != "" {
		app, err := firebase.NewApp(ctx, &firebase.Config{ProjectID: cfg.FirebaseProjectID}, option.WithCredentialsFile(cfg.FirebaseCredentials))
		if err != nil {
			log.Fatal("Failed to initialize Firebase app:", err)
		}
		firebaseAuth, err = app.Auth(ctx)
		if err != nil {
			log.Fatal("Failed to initialize Firebase auth:", err)
		}
	} else {
		log.Printf("[WARN] No Firebase credentials configured, using local dev tokens")
	}

	// Initialize use cases (dependency injection)
	authUc := authUsecase.NewAuthUsecase(cfg, firebaseAuth)
	userUc := userUsecase.NewUserUsecase(userRepository)
	chatUc := chatUsecase.NewChatUsecase(chatRepository, messageRepository, taskRepository, userRepository, notifService)
	taskUc := taskUsecase.NewTaskUsecase(taskRepository, applicationRepository, commentRepository, chatRepository, chatUc, notifService)
	reviewUc := reviewUsecase.NewReviewUsecase(reviewRepository, taskRepository, userRepository, notifService)

	// Initialize HTTP handler
	handler := api.NewHandler(authUc, taskUc, chatUc, reviewUc, userUc, sseManager, cfg)

	// Start server
	log.Printf("Server starting on port %s", cfg.Port)
	if err := handler.Start(":" + cfg.Port); err != nil {
		log.Fatal("Failed to start server:", err)
	}
}

func newStore(ctx context.Context, cfg *config.Config) (store.Store, error) {
	switch cfg.StoreBackend {
	case "firestore":
		return store.NewFirestoreStore(ctx, cfg.FirebaseProjectID, cfg.FirebaseCredentials)
	case "postgres":
		return store.NewPostgresStore(cfg.PostgresDSN)
	default:
		return store.NewMemoryStore(), nil
	}
}
