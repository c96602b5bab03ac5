package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	redisclient "github.com/redis/go-redis/v9"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	mongoadapter "tourstay/internal/adapters/mongo"
	"tourstay/internal/adapters/rabbit"
	redisadapter "tourstay/internal/adapters/redis"
	"tourstay/internal/booking"
	"tourstay/internal/config"
	httphandler "tourstay/internal/http"
	"tourstay/internal/mailer"
	"tourstay/internal/observability"
	"tourstay/internal/ratelimit"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	shutdown, err := observability.SetupOTel(context.Background(), cfg.OTLPEndpoint)
	if err != nil {
		log.Fatalf("failed to setup otel: %v", err)
	}
	defer shutdown()

	logger := observability.NewLogger()

	mongoClient, err := mongo.Connect(context.Background(), options.Client().ApplyURI(cfg.MongoURI))
	if err != nil {
		log.Fatalf("failed to connect to mongo: %v", err)
	}
	defer mongoClient.Disconnect(context.Background())
	mongoDB := mongoClient.Database(cfg.MongoDB)
	bookingRepo := mongoadapter.NewBookingRepository(mongoClient, mongoDB, logger)
	hotelRepo := mongoadapter.NewHotelRepository(mongoDB, logger)
	storeRepo := mongoadapter.NewStoreRepository(mongoDB, logger)
	if err := storeRepo.EnsureIndexes(context.Background()); err != nil {
		logger.Warn("failed to ensure store indexes: ", err)
	}

	redisClient := redisclient.NewClient(&redisclient.Options{Addr: cfg.RedisAddr})
	cache := redisadapter.NewCache(redisClient, logger)
	queue := redisadapter.NewEmailQueue(redisClient)
	rl := ratelimit.NewRateLimiter(cache)

	// Booking events are best-effort; run without the publisher when the
	// broker is not configured or unreachable.
	var events booking.EventPublisher
	if cfg.RabbitURL != "" {
		rabbitConn, err := amqp.Dial(cfg.RabbitURL)
		if err != nil {
			logger.Warn("rabbitmq unavailable, events disabled: ", err)
		} else {
			defer rabbitConn.Close()
			pub, err := rabbit.NewPublisher(rabbitConn)
			if err != nil {
				logger.Warn("failed to create event publisher: ", err)
			} else {
				events = pub
			}
		}
	}

	smtp := mailer.New(cfg, logger)
	svc := booking.NewService(bookingRepo, hotelRepo, cache, queue, smtp, events, logger, cfg.MailFrom, cfg.LockTTL, cfg.CacheTTL)

	handlers := httphandler.NewHandlers(cfg, svc, hotelRepo, storeRepo, cache, logger)
	r := httphandler.SetupRouter(handlers, logger, rl, cfg.JWTSecret)

	srv := &http.Server{
		Addr:    cfg.HTTPAddr,
		Handler: r,
	}

	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("listen: %s\n", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info("Shutdown Server ...")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Fatal("Server Shutdown:", err)
	}
	logger.Info("Server exiting")
}
