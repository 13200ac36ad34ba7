package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Dhoini/Chat-microservice/internal/api/rest"
	"github.com/Dhoini/Chat-microservice/internal/app"
	"github.com/Dhoini/Chat-microservice/internal/config"
	"github.com/Dhoini/Chat-microservice/internal/db"
	"github.com/Dhoini/Chat-microservice/internal/kafka"
	"github.com/Dhoini/Chat-microservice/internal/repository"
	"github.com/Dhoini/Chat-microservice/pkg/logger"

	"github.com/gin-gonic/gin"
)

func main() {
	log := logger.New(logger.INFO)
	defer log.Sync()

	log.Infow("Chat microservice starting up...")

	cfg, err := config.LoadConfig("config.yml")
	if err != nil {
		log.Fatalw("Failed to load configuration", "error", err)
	}
	if cfg.Auth.JWTSecret == "" {
		log.Warnw("JWT Secret is not set!")
	}

	if cfg.App.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	// Подключаемся к базе данных
	database, err := db.Connect(cfg.Database.DSN, log)
	if err != nil {
		log.Fatalw("Failed to connect to database", "error", err)
	}
	defer func() {
		if err := database.Close(); err != nil {
			log.Errorw("Error closing database connection", "error", err)
		}
	}()

	// Инициализируем Redis кеш
	redisCache, err := repository.NewRedisCacheRepository(
		cfg.Redis.Addr,
		cfg.Redis.Password,
		cfg.Redis.DB,
		log,
	)
	if err != nil {
		// Не фатально, но предупреждаем
		log.Warnw("Failed to initialize Redis cache, continuing without caching", "error", err)
	} else {
		defer func() {
			if err := redisCache.Close(); err != nil {
				log.Errorw("Error closing Redis connection", "error", err)
			}
		}()
	}

	// Репозитории
	var userRepo repository.UserRepository = repository.NewPostgresUserRepository(database, log)
	if redisCache != nil {
		userRepo = repository.NewCachedUserRepository(userRepo, redisCache, log)
		log.Infow("Using cached user repository")
	} else {
		log.Infow("Using non-cached user repository")
	}
	convRepo := repository.NewPostgresConversationRepository(database, log)

	// Инициализируем Kafka Producer
	var producer kafka.Producer
	producer, err = kafka.NewKafkaProducer(cfg.Kafka.Brokers, log)
	if err != nil {
		log.Warnw("Failed to initialize Kafka producer, continuing without event publishing", "error", err)
		producer = kafka.NewNoOpProducer()
	} else {
		defer func() {
			if err := producer.Close(); err != nil {
				log.Errorw("Error closing Kafka producer", "error", err)
			}
		}()
	}

	// Собираем приложение
	application := app.NewApp(cfg, userRepo, convRepo, producer, log)
	application.SystemMetrics.StartRecording(15 * time.Second)
	defer application.SystemMetrics.Stop()

	router := rest.SetupRouter(log, application.Registry, application.AuthMiddleware, rest.Handlers{
		Chat:         application.Handlers.Chat,
		Conversation: application.Handlers.Conversation,
		Usage:        application.Handlers.Usage,
	})

	server := rest.NewServer(router, cfg, log)

	go func() {
		if err := server.Start(); err != nil {
			log.Fatalw("Failed to start HTTP server", "error", err)
		}
	}()

	// Ожидаем сигнал завершения
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Infow("Shutdown signal received")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Errorw("Server forced to shutdown", "error", err)
	}

	log.Infow("Chat microservice stopped")
}
