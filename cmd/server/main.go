package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"storefront-service/config"
	"storefront-service/internal/api"
	"storefront-service/internal/backend"
	"storefront-service/internal/broker"
	"storefront-service/internal/cart"
	"storefront-service/internal/checkout"
	"storefront-service/internal/sessionstore"
	"storefront-service/internal/util"
	"storefront-service/internal/worker"

	"github.com/gin-gonic/gin"
)

func main() {

	cfg := config.Load()

	if err := util.InitLogger(cfg.Server.Env); err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer util.SyncLogger()

	logger := util.GetLogger()
	logger.Info("Starting storefront service")

	tp, err := util.InitTracer("storefront-service", cfg.Observ.JaegerEndpoint)
	if err != nil {
		log.Fatalf("Failed to initialize tracer: %v", err)
	}
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := tp.Shutdown(ctx); err != nil {
			log.Printf("Error shutting down tracer: %v", err)
		}
	}()

	sessionTTL := time.Duration(cfg.Redis.SessionTTLSeconds) * time.Second
	cacheTTL := time.Duration(cfg.Redis.CacheTTLSeconds) * time.Second

	var storage interface {
		sessionstore.Store
		backend.Cache
	}
	redisStore, err := sessionstore.NewRedis(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB, sessionTTL, cacheTTL)
	if err != nil {
		// Degraded mode: carts live only as long as the process.
		log.Printf("Redis unavailable, using in-memory session storage: %v", err)
		storage = sessionstore.NewMemory()
	} else {
		defer redisStore.Close()
		storage = redisStore
		log.Println("Redis connected")
	}

	backendClient := backend.NewClient(cfg.Backend.URL, time.Duration(cfg.Backend.TimeoutSeconds)*time.Second, storage)

	var publisher checkout.Publisher
	var catalogWorker *worker.CatalogWorker

	workerCtx, workerCancel := context.WithCancel(context.Background())
	defer workerCancel()

	if cfg.Kafka.Enabled {
		producer := broker.NewProducer(cfg.Kafka.Brokers, cfg.Kafka.TopicOrders)
		defer producer.Close()
		publisher = broker.NewEventPublisher(producer)
		log.Println("Kafka producer initialized")

		consumer := broker.NewConsumer(cfg.Kafka.Brokers, cfg.Kafka.TopicOrders, cfg.Kafka.ConsumerGroup)
		catalogWorker = worker.NewCatalogWorker(consumer, backendClient)
		go func() {
			if err := catalogWorker.Start(workerCtx); err != nil {
				log.Printf("Catalog worker error: %v", err)
			}
		}()
	}

	cartService := cart.NewService(storage)
	checkoutService := checkout.NewService(cartService, backendClient, storage, publisher)

	if cfg.Server.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.Default()
	handler := api.NewHandler(backendClient, cartService, checkoutService)
	handler.SetupRoutes(router)

	srv := &http.Server{
		Addr:    fmt.Sprintf(":%s", cfg.Server.Port),
		Handler: router,
	}

	go func() {
		log.Printf("Starting HTTP server on port %s", cfg.Server.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Shutting down server...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("Server forced to shutdown: %v", err)
	}

	workerCancel()
	if catalogWorker != nil {
		catalogWorker.Stop()
	}

	log.Println("Server exited")
}
