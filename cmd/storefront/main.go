package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	c "github.com/fjod/storefront/internal/cache"
	"github.com/fjod/storefront/internal/config"
	h "github.com/fjod/storefront/internal/http"
	"github.com/fjod/storefront/internal/invoice"
	"github.com/fjod/storefront/internal/logger"
	"github.com/fjod/storefront/internal/publisher"
	"github.com/fjod/storefront/internal/repository"
	s "github.com/fjod/storefront/internal/service"
	"github.com/fjod/storefront/internal/telemetry"
	"github.com/fjod/storefront/internal/view"
	"github.com/redis/go-redis/v9"
)

const (
	serviceName    = "storefront"
	serviceVersion = "0.1.0"
)

func main() {
	cfg := config.Load()
	log := logger.New(logger.Options{
		Service: serviceName,
		Env:     cfg.AppEnv,
		Level:   cfg.LogLevel,
	})

	if err := run(cfg, log); err != nil {
		log.Error("storefront stopped with error", "error", err)
		os.Exit(1)
	}
}

func run(cfg *config.Config, log *slog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	shutdownTracer, err := telemetry.InitTracerProvider(ctx, cfg.OTLPEndpoint, serviceName, serviceVersion)
	if err != nil {
		return err
	}
	defer shutdownTracer(context.Background())

	metricsHandler, shutdownMeter, err := telemetry.InitMeterProvider(serviceName, serviceVersion)
	if err != nil {
		return err
	}
	defer shutdownMeter(context.Background())

	// Product catalog
	products, err := repository.NewProductRepository(cfg.ProductDBPath)
	if err != nil {
		return err
	}
	defer products.Close()
	if err := products.RunMigrations(cfg.MigrationsPath); err != nil {
		return err
	}
	log.Info("product catalog ready", "path", cfg.ProductDBPath)

	// Users, carts and orders
	mongoDB, err := repository.ConnectMongoDB(ctx, cfg.MongoURI, cfg.MongoDBName)
	if err != nil {
		return err
	}
	defer mongoDB.Client().Disconnect(context.Background())
	if err := repository.CreateIndexes(ctx, mongoDB); err != nil {
		return err
	}
	log.Info("connected to MongoDB", "database", cfg.MongoDBName)

	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       0,
	})
	defer redisClient.Close()
	if err := redisClient.Ping(ctx).Err(); err != nil {
		// carts are served from MongoDB until Redis comes back
		log.Warn("redis ping failed", "addr", cfg.RedisAddr, "error", err)
	}

	users := repository.NewUserRepository(mongoDB)
	orderRepo := repository.NewOrderRepository(mongoDB)

	cache := c.NewBreakerCache(c.NewRedisCache(redisClient), log)
	carts := s.NewCartService(users, products, cache, log)
	orders := s.NewOrderService(orderRepo, carts, log)

	if len(cfg.KafkaBrokers) > 0 {
		poller := publisher.NewOutboxPoller(orderRepo, publisher.NewKafkaWriter(cfg.KafkaBrokers...), log)
		poller.Start(ctx)
		// runs before the Mongo disconnect; stop ends the poll loop on every
		// return path, Close waits for it
		defer func() {
			stop()
			poller.Close()
		}()
		log.Info("outbox poller started", "brokers", cfg.KafkaBrokers, "topic", publisher.OrdersTopic)
	} else {
		log.Warn("KAFKA_BROKERS not set, order events stay in the outbox")
	}

	renderer, err := view.NewTemplateRenderer()
	if err != nil {
		return err
	}

	router := h.NewRouter(h.RouterConfig{
		Products:           h.NewProductHandler(products, renderer, log, cfg.RequestTimeout),
		Carts:              h.NewCartHandler(carts, renderer, log, cfg.RequestTimeout),
		Orders:             h.NewOrdersHandler(orders, invoice.NewStore(cfg.DataDir), renderer, log, cfg.RequestTimeout),
		Users:              users,
		View:               renderer,
		Logger:             log,
		Metrics:            metricsHandler,
		RequestTimeout:     cfg.RequestTimeout,
		MaxRequestBodySize: cfg.MaxRequestBodySize,
	})

	srv := &http.Server{
		Addr:         ":" + cfg.HTTPPort,
		Handler:      router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: cfg.RequestTimeout + 5*time.Second,
		IdleTimeout:  60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("storefront listening", "port", cfg.HTTPPort)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	log.Info("shutting down server...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}

	log.Info("server exited")
	return nil
}
