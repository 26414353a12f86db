package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	c "github.com/omaressamii/high-class-sub002/internal/cache"
	"github.com/omaressamii/high-class-sub002/internal/consumer"
	h "github.com/omaressamii/high-class-sub002/internal/http"
	"github.com/omaressamii/high-class-sub002/internal/reconcile"
	"github.com/omaressamii/high-class-sub002/internal/repository"
	s "github.com/omaressamii/high-class-sub002/internal/service"
)

type Config struct {
	HTTPPort          string
	MongoURI          string
	MongoDBName       string
	RedisAddr         string
	RedisPassword     string
	KafkaBrokers      []string
	ReconcileInterval time.Duration
	RequestTimeout    time.Duration
	ShutdownTimeout   time.Duration
}

func loadConfig() *Config {
	cfg := &Config{
		HTTPPort:        getEnv("HTTP_PORT", "8080"),
		MongoURI:        getEnv("MONGO_URI", "mongodb://localhost:27017"),
		MongoDBName:     getEnv("MONGO_DB_NAME", "rentaldb"),
		RedisAddr:       getEnv("REDIS_ADDR", "localhost:6379"),
		RedisPassword:   getEnv("REDIS_PASSWORD", ""),
		RequestTimeout:  30 * time.Second,
		ShutdownTimeout: 10 * time.Second,
	}

	if brokers := getEnv("KAFKA_BROKERS", ""); brokers != "" {
		cfg.KafkaBrokers = strings.Split(brokers, ",")
	}

	interval, err := time.ParseDuration(getEnv("RECONCILE_INTERVAL", "10m"))
	if err != nil {
		log.Fatalf("invalid RECONCILE_INTERVAL: %v", err)
	}
	cfg.ReconcileInterval = interval

	return cfg
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func main() {
	cfg := loadConfig()

	// Set up MongoDB connection
	ctx := context.Background()
	mongoDB, err := repository.ConnectMongoDB(ctx, cfg.MongoURI, cfg.MongoDBName)
	if err != nil {
		log.Fatalf("Failed to connect to MongoDB: %v", err)
	}
	log.Printf("Connected to MongoDB at %s", cfg.MongoURI)

	orderRepo := repository.NewMongoOrderRepository(mongoDB)
	productRepo := repository.NewMongoProductRepository(mongoDB)
	if err := orderRepo.CreateIndexes(ctx); err != nil {
		log.Fatalf("Failed to create order indexes: %v", err)
	}
	if err := productRepo.CreateIndexes(ctx); err != nil {
		log.Fatalf("Failed to create product indexes: %v", err)
	}

	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       0,
	})
	defer redisClient.Close()
	if err := redisClient.Ping(ctx).Err(); err != nil {
		log.Fatal("Redis connection failed:", err)
	}
	log.Printf("Redis ping succeeded")

	cache := c.NewRedisCache(redisClient)
	reservations := s.NewReservationService(productRepo, orderRepo, cache)
	job := reconcile.NewJob(orderRepo, productRepo, cache)

	if cfg.ReconcileInterval > 0 {
		runner := reconcile.NewRunner(job, cfg.ReconcileInterval)
		runner.Start()
		defer runner.Close()
		log.Printf("Reconciliation runner started, interval %s", cfg.ReconcileInterval)
	}

	consumerCtx, cancelConsumer := context.WithCancel(ctx)
	defer cancelConsumer()
	if len(cfg.KafkaBrokers) > 0 {
		eventsConsumer := consumer.NewOrderEventsConsumer(job, cache, cfg.KafkaBrokers...)
		defer eventsConsumer.Close()
		go eventsConsumer.Run(consumerCtx)
		log.Printf("Order events consumer started on %v", cfg.KafkaBrokers)
	}

	handler := h.NewReservationHandler(reservations, job, orderRepo, cfg.RequestTimeout)

	r := chi.NewRouter()
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(h.RequestIDMiddleware)

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"status":"ok"}`))
	})

	r.Route("/api/v1", func(r chi.Router) {
		r.Route("/products/{product_id}", func(r chi.Router) {
			r.Get("/availability", handler.CheckAvailability)
			r.Get("/calendar", handler.Calendar)
		})
		r.Post("/reservations", handler.Reserve)
		r.Post("/reconcile", handler.Reconcile)
	})

	srv := &http.Server{
		Addr:         ":" + cfg.HTTPPort,
		Handler:      otelhttp.NewHandler(r, "reservation-service"),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Printf("Reservation service starting on :%s", cfg.HTTPPort)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("server error: %v", err)
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("shutting down server...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Fatalf("server forced to shutdown: %v", err)
	}

	mongoDB.Client().Disconnect(ctx)
	log.Println("server exited")
}
