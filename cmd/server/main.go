package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/honeynil/spriteshop/internal/api"
	"github.com/honeynil/spriteshop/internal/config"
	"github.com/honeynil/spriteshop/internal/handler"
	"github.com/honeynil/spriteshop/internal/infrastructure/kafka"
	"github.com/honeynil/spriteshop/internal/infrastructure/redis"
	"github.com/honeynil/spriteshop/internal/observability"
	core "github.com/honeynil/spriteshop/internal/repository/sqlite"
	service "github.com/honeynil/spriteshop/internal/services"
	"github.com/honeynil/spriteshop/internal/upload"
)

func main() {
	// Инициализируем логи, метрики, трейсы
	shutdown := observability.Setup("spriteshop")
	defer shutdown(context.Background())

	cfg := config.Load()

	// Открываем SQLite
	db, err := core.Open(cfg.SQLitePath)
	if err != nil {
		log.Fatalf("Failed to open SQLite: %v", err)
	}
	defer db.Close()

	// Инициализируем зависимости
	userRepo := core.NewSQLiteUserRepository(db)
	spriteRepo := core.NewSQLiteSpriteRepository(db)
	redisClient := redis.NewClient(cfg.RedisAddr)
	defer redisClient.Close()
	producer := kafka.NewProducer(cfg.KafkaBrokers)
	defer producer.Close()

	uploads, err := upload.NewValidator(cfg.UploadDir)
	if err != nil {
		log.Fatalf("Failed to prepare upload dir: %v", err)
	}

	// Инициализируем сервис
	svc := service.NewMarketService(userRepo, spriteRepo, redisClient, producer, cfg.JWTSecret, cfg.SessionTTL)

	// Консьюмер снимает кэш деталей при событиях листингов
	consumerCtx, cancelConsumer := context.WithCancel(context.Background())
	spriteConsumer := kafka.NewConsumer(cfg.KafkaBrokers, "sprites", "spriteshop-group", redisClient)
	go spriteConsumer.Consume(consumerCtx)
	defer spriteConsumer.Close()
	defer cancelConsumer()

	// Настраиваем роутер
	h := handler.NewHandler(svc, uploads, cfg.JWTSecret)
	router := api.SetupRouter(h, redisClient, cfg.JWTSecret)

	// Запускаем сервер
	server := &http.Server{
		Addr:    cfg.ListenAddr,
		Handler: router,
	}
	go func() {
		log.Printf("Starting server on %s", cfg.ListenAddr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server failed: %v", err)
		}
	}()

	// Graceful shutdown
	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		log.Fatalf("Server shutdown failed: %v", err)
	}
	log.Println("Server stopped")
}
