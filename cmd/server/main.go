package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/eventcraft/service-booking/internal/application"
	"github.com/eventcraft/service-booking/internal/config"
	bookingDomain "github.com/eventcraft/service-booking/internal/domain/booking"
	bookingEvents "github.com/eventcraft/service-booking/internal/events"
	"github.com/eventcraft/service-booking/internal/handler"
	"github.com/eventcraft/service-booking/internal/platform/auth"
	"github.com/eventcraft/service-booking/internal/platform/clock"
	"github.com/eventcraft/service-booking/internal/platform/database"
	"github.com/eventcraft/service-booking/internal/platform/health"
	"github.com/eventcraft/service-booking/internal/platform/kafka"
	"github.com/eventcraft/service-booking/internal/platform/logger"
	"github.com/eventcraft/service-booking/internal/platform/middleware"
	"github.com/eventcraft/service-booking/internal/repository"
)

const serviceName = "service-booking"

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	// Initialize logger
	log, err := logger.NewNamed(cfg.AppEnv, serviceName, cfg.LogLevel)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to create logger: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = log.Sync() }()

	log.Info("starting "+serviceName,
		zap.String("port", cfg.Port),
		zap.String("store_driver", cfg.StoreDriver),
		zap.Bool("kafka_enabled", cfg.KafkaConfig.Enabled),
	)

	// Open the booking store
	bookingRepo, checks, closeStore := openStore(cfg, log)
	defer closeStore()

	// Initialize JWT manager
	jwtManager := auth.NewJWTManager(cfg.JWTConfig.Secret, cfg.JWTConfig.AccessTTL)

	// Initialize the event producer
	var publisher interface {
		application.EventPublisher
		Close() error
	}
	if cfg.KafkaConfig.Enabled {
		publisher = kafka.NewProducer(cfg.KafkaConfig.Brokers, log)
	} else {
		publisher = kafka.NewNopProducer(log)
	}
	defer func() { _ = publisher.Close() }()

	// Initialize application service
	engine := bookingDomain.NewLifecycleEngine(bookingDomain.NewDefaultCancellationPolicy())
	bookingService := application.NewBookingService(
		bookingRepo,
		engine,
		clock.Real(),
		publisher,
		log,
		cfg.StoreTimeout,
	)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Start the payment event consumer in a goroutine
	if cfg.KafkaConfig.Enabled {
		groupID := cfg.KafkaConfig.GroupPrefix + "booking-service"
		paymentConsumer := bookingEvents.NewPaymentEventConsumer(
			cfg.KafkaConfig.Brokers,
			groupID,
			bookingService,
			log,
		)
		defer func() { _ = paymentConsumer.Close() }()

		go func() {
			log.Info("starting payment event consumer", zap.String("group_id", groupID))
			if err := paymentConsumer.Start(ctx); err != nil && !errors.Is(err, context.Canceled) {
				log.Error("payment event consumer error", zap.Error(err))
			}
		}()
	}

	// Setup Gin router
	if cfg.AppEnv != "development" {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()

	// Apply global middleware
	router.Use(middleware.RecoveryMiddleware(log))
	router.Use(middleware.LoggerMiddleware(log))
	router.Use(middleware.RequestIDMiddleware())
	router.Use(middleware.CORSMiddleware())
	router.Use(middleware.SecurityHeadersMiddleware())

	// Register health check routes
	health.NewHandler(serviceName, checks).RegisterRoutes(router)

	// Register routes
	handler.NewBookingHandler(bookingService).RegisterRoutes(&router.RouterGroup, jwtManager)
	handler.NewAdminBookingHandler(bookingService).RegisterRoutes(&router.RouterGroup, jwtManager)

	// Create HTTP server
	srv := &http.Server{
		Addr:         cfg.Port,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in a goroutine
	go func() {
		log.Info("HTTP server starting", zap.String("addr", cfg.Port))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("HTTP server error", zap.Error(err))
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("shutting down " + serviceName + "...")

	// Cancel the consumer context
	cancel()

	// Shutdown HTTP server with timeout
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("HTTP server forced shutdown", zap.Error(err))
	}

	log.Info(serviceName + " stopped")
}

// openStore builds the configured booking repository along with its
// readiness checks and a close func.
func openStore(cfg *config.ServiceConfig, log *zap.Logger) (bookingDomain.BookingRepository, map[string]health.Pinger, func()) {
	if cfg.StoreDriver == config.StoreDriverMemory {
		log.Warn("using in-memory booking store; data is lost on restart")
		return repository.NewMemoryBookingRepository(), nil, func() {}
	}

	dbConfig := database.PostgresConfig{
		Host:         cfg.DBConfig.Host,
		Port:         cfg.DBConfig.Port,
		User:         cfg.DBConfig.User,
		Password:     cfg.DBConfig.Password,
		DBName:       cfg.DBConfig.DBName,
		SSLMode:      cfg.DBConfig.SSLMode,
		MaxOpenConns: cfg.DBConfig.MaxOpenConns,
	}
	db, err := database.Connect(dbConfig, log)
	if err != nil {
		log.Fatal("failed to connect to database", zap.Error(err))
	}

	// Run database migrations
	if cfg.AppEnv == "development" {
		if err := db.AutoMigrate(&repository.BookingModel{}); err != nil {
			log.Fatal("failed to run auto-migration", zap.Error(err))
		}
		log.Info("database migration completed (dev auto-migrate)")
	} else {
		if err := database.RunMigrations(dbConfig.DatabaseURL(), cfg.MigrationsPath, log); err != nil {
			log.Fatal("failed to run migrations", zap.Error(err))
		}
	}

	sqlDB, err := db.DB()
	if err != nil {
		log.Fatal("failed to get sql.DB", zap.Error(err))
	}
	closeDB := func() {
		if err := sqlDB.Close(); err != nil {
			log.Warn("failed to close database", zap.Error(err))
		}
	}
	return repository.NewGormBookingRepository(db), map[string]health.Pinger{"database": sqlDB}, closeDB
}
