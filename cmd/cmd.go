package cmd

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"matrimony-backend/internal/config"
	"matrimony-backend/internal/handlers"
	"matrimony-backend/internal/middleware"
	"matrimony-backend/internal/repository"
	"matrimony-backend/internal/services"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

func Run() {
	// Load configuration
	cfg, err := config.Load("config.yaml")
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}

	// Setup logger
	setupLogger(cfg.Log.Level)

	// Connect to database
	db, err := pgxpool.New(context.Background(), cfg.Database.DSN())
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to database")
	}
	defer db.Close()

	if err := db.Ping(context.Background()); err != nil {
		log.Fatal().Err(err).Msg("Failed to ping database")
	}
	log.Info().Msg("Database connection established")

	// Initialize repositories
	userRepo := repository.NewUserRepository(db)
	interestRepo := repository.NewInterestRepository(db)
	photoRepo := repository.NewPhotoRepository(db)
	notificationRepo := repository.NewNotificationRepository(db)
	messageRepo := repository.NewMessageRepository(db)

	// Initialize services
	wsHub := services.NewWSHub()
	userService := services.NewUserService(userRepo, cfg.JWT.Secret)
	notificationService, err := services.NewNotificationService(notificationRepo, userRepo, wsHub, cfg.APNs)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create notification service")
	}
	interestService := services.NewInterestService(interestRepo, userRepo, notificationService)
	photoAccessGuard := services.NewPhotoAccessGuard(interestRepo)
	photoService, err := services.NewPhotoService(photoRepo, photoAccessGuard, cfg.AWS)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create photo service")
	}
	messageService := services.NewMessageService(messageRepo, interestService, wsHub)

	// Initialize handlers
	userHandler := handlers.NewUserHandler(userService)
	interestHandler := handlers.NewInterestHandler(interestService)
	photoHandler := handlers.NewPhotoHandler(photoService, photoAccessGuard)
	notificationHandler := handlers.NewNotificationHandler(notificationService)
	messageHandler := handlers.NewMessageHandler(messageService)
	wsHandler := handlers.NewWebSocketHandler(wsHub, userService)

	// Setup router
	r := chi.NewRouter()

	// Middleware
	r.Use(chiMiddleware.RequestID)
	r.Use(chiMiddleware.RealIP)
	r.Use(chiMiddleware.Logger)
	r.Use(chiMiddleware.Recoverer)
	r.Use(corsMiddleware)

	// Routes
	r.Route("/api/v1", func(r chi.Router) {
		// Public routes
		r.Post("/users", userHandler.Register)

		// Protected routes
		r.Group(func(r chi.Router) {
			r.Use(middleware.AuthMiddleware(userService))

			r.Get("/users/{user_id}", userHandler.GetProfile)
			r.Put("/users/me/push-token", userHandler.UpdatePushToken)
			r.Get("/users/{user_id}/photos", photoHandler.ListUserPhotos)
			r.Get("/users/{user_id}/photo-access", photoHandler.CheckPhotoAccess)

			r.Post("/interests", interestHandler.SendInterest)
			r.Get("/interests/received", interestHandler.ListReceived)
			r.Get("/interests/sent", interestHandler.ListSent)
			r.Delete("/interests/sent/{receiver_id}", interestHandler.Undo)
			r.Post("/interests/{interest_id}/respond", interestHandler.Respond)
			r.Post("/interests/{interest_id}/photo-access", interestHandler.GrantPhotoAccess)
			r.Delete("/interests/{interest_id}/photo-access", interestHandler.RevokePhotoAccess)

			r.Post("/photos/upload", photoHandler.UploadPhoto)
			r.Delete("/photos/{photo_id}", photoHandler.DeletePhoto)

			r.Get("/notifications", notificationHandler.List)
			r.Post("/notifications/{notification_id}/read", notificationHandler.MarkRead)

			r.Post("/messages", messageHandler.SendMessage)
			r.Get("/messages/{user_id}", messageHandler.ListConversation)
		})
	})

	// WebSocket route
	r.Get("/ws", wsHandler.HandleWebSocket)

	// Create HTTP server
	srv := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in goroutine
	go func() {
		log.Info().
			Str("host", cfg.Server.Host).
			Int("port", cfg.Server.Port).
			Msg("Starting server")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("Server failed to start")
		}
	}()

	// Wait for interrupt signal for graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
	}

	log.Info().Msg("Server exited")
}

// setupLogger configures zerolog logger
func setupLogger(level string) {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})

	switch level {
	case "debug":
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	case "info":
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	case "warn":
		zerolog.SetGlobalLevel(zerolog.WarnLevel)
	case "error":
		zerolog.SetGlobalLevel(zerolog.ErrorLevel)
	default:
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	}
}

// corsMiddleware handles CORS
func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Authorization, Content-Type")

		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}
