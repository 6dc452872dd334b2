package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/flowlytix/distribution-backend/internal/lot/consumers"
	"github.com/flowlytix/distribution-backend/internal/lot/events"
	"github.com/flowlytix/distribution-backend/internal/lot/handler"
	"github.com/flowlytix/distribution-backend/internal/lot/repository"
	"github.com/flowlytix/distribution-backend/internal/lot/service"
	"github.com/flowlytix/distribution-backend/pkg/auth"
	"github.com/flowlytix/distribution-backend/pkg/config"
	"github.com/flowlytix/distribution-backend/pkg/database"
	"github.com/flowlytix/distribution-backend/pkg/httputil"
	"github.com/flowlytix/distribution-backend/pkg/logger"
	"github.com/flowlytix/distribution-backend/pkg/messaging"
)

func main() {
	// Load configuration with validation (fails fast in production if required config is missing)
	cfg, err := config.LoadWithValidation("lot-service")
	if err != nil {
		fmt.Fprintf(os.Stderr, "configuration error: %v\n", err)
		os.Exit(1)
	}

	// Initialize logger
	log := logger.New("lot-service", cfg.Server.Environment)
	log.Info().Msg("starting Lot Service")

	// Connect to database
	db, err := database.New(&cfg.Database, log)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to database")
	}
	defer db.Close()

	// Connect to RabbitMQ
	rmq, err := messaging.New(&cfg.RabbitMQ, log)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to RabbitMQ")
	}
	defer rmq.Close()

	// Initialize event publisher
	publisher, err := events.NewLotEventPublisher(rmq, log)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to create event publisher")
	}

	// Initialize repositories
	lotRepo := repository.NewLotBatchRepository(db)
	historyRepo := repository.NewHistoryRepository(db)
	productRepo := repository.NewProductRepository(db)
	agencyRepo := repository.NewAgencyRepository(db)
	userRepo := repository.NewUserRepository(db)

	// Initialize service
	lotService := service.NewLotService(
		lotRepo, historyRepo, productRepo, agencyRepo, userRepo,
		publisher, cfg.Lot, log,
	)

	// Initialize handlers
	lotHandler := handler.NewLotHandler(lotService, log)

	// Start user event consumer
	userConsumer, err := consumers.NewUserEventConsumer(rmq, userRepo, log)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to create user event consumer")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := userConsumer.Start(ctx); err != nil {
		log.Fatal().Err(err).Msg("failed to start user event consumer")
	}

	// Start the expiry sweeper
	sweeper := service.NewExpirySweeper(lotService, cfg.Lot.ExpirySweepInterval, log)
	sweeper.Start(ctx)

	// Create router
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.RealIP)
	r.Use(httputil.RequestID)
	r.Use(httputil.Logger(log))
	r.Use(httputil.Recoverer(log))
	r.Use(cors.Handler(cors.Options{
		AllowOriginFunc: func(r *http.Request, origin string) bool {
			// Allow localhost variations (development)
			if origin == "http://localhost:3000" || origin == "http://localhost:5173" {
				return true
			}
			return false
		},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Request-ID"},
		AllowCredentials: true,
		MaxAge:           300,
	}))
	r.Use(httputil.Auth(auth.NewVerifier(&cfg.Auth)))

	// Health check
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		httputil.JSON(w, http.StatusOK, map[string]interface{}{
			"status":   "healthy",
			"service":  "lot-service",
			"database": db.Health(r.Context()),
			"rabbitmq": rmq.Health(),
		})
	})

	// API routes
	r.Route("/api/v1", func(r chi.Router) {
		lotHandler.Routes(r)
	})

	// Create server
	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      r,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	// Start server
	go func() {
		log.Info().Str("addr", addr).Msg("server listening")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("server error")
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("shutting down server")

	// Cancel context to stop the consumer and sweeper
	cancel()
	sweeper.Stop()

	// Graceful shutdown
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("server forced to shutdown")
	}

	log.Info().Msg("server stopped")
}
