package main

import (
	"context"
	"database/sql"
	"errors"
	"net"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"

	_ "github.com/go-sql-driver/mysql"
	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"google.golang.org/grpc"

	"github.com/rl1809/restaurant-ordering/internal/adapter/handler"
	"github.com/rl1809/restaurant-ordering/internal/adapter/messaging"
	"github.com/rl1809/restaurant-ordering/internal/adapter/storage"
	"github.com/rl1809/restaurant-ordering/internal/config"
	"github.com/rl1809/restaurant-ordering/internal/core/service"
	"github.com/rl1809/restaurant-ordering/internal/port"
)

func main() {
	logger, err := zap.NewProduction()
	if err != nil {
		panic(err)
	}
	defer logger.Sync()

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("failed to load config", zap.Error(err))
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Initialize MySQL
	db, err := sql.Open("mysql", cfg.MySQLDSN)
	if err != nil {
		logger.Fatal("failed to connect mysql", zap.Error(err))
	}
	db.SetMaxOpenConns(cfg.MySQLMaxOpenConns)
	db.SetMaxIdleConns(cfg.MySQLMaxIdleConns)
	db.SetConnMaxLifetime(cfg.MySQLConnLifetime)

	if err := db.PingContext(ctx); err != nil {
		logger.Fatal("failed to ping mysql", zap.Error(err))
	}
	logger.Info("connected to mysql")

	// Initialize Redis
	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		PoolSize: cfg.RedisPoolSize,
	})
	if err := rdb.Ping(ctx).Err(); err != nil {
		logger.Fatal("failed to connect redis", zap.Error(err))
	}
	logger.Info("connected to redis")

	// Initialize adapters
	redisAdapter := storage.NewRedisAdapter(rdb).WithIdempotencyTTL(cfg.IdempotencyTTL)
	mysqlAdapter := storage.NewMySQLAdapter(db)

	if cfg.MigrateOnStart {
		if err := mysqlAdapter.Migrate(ctx); err != nil {
			logger.Fatal("failed to migrate schema", zap.Error(err))
		}
	}

	var publisher port.OrderPublisher
	var amqpConn *amqp.Connection
	if cfg.AMQPURL != "" {
		amqpConn, err = amqp.Dial(cfg.AMQPURL)
		if err != nil {
			logger.Fatal("failed to connect rabbitmq", zap.Error(err))
		}
		amqpPublisher, err := messaging.NewAMQPPublisher(amqpConn, cfg.AMQPQueue)
		if err != nil {
			logger.Fatal("failed to set up kitchen queue", zap.Error(err))
		}
		defer amqpPublisher.Close()
		publisher = amqpPublisher
		logger.Info("kitchen notifications enabled", zap.String("queue", cfg.AMQPQueue))
	}

	// Initialize services
	cartService := service.NewCartService(redisAdapter, mysqlAdapter, redisAdapter, logger, cfg.QueueSize)
	contactService := service.NewContactService(mysqlAdapter, redisAdapter, logger)

	// Start checkout workers
	var wg sync.WaitGroup
	for i := 0; i < cfg.WorkerCount; i++ {
		worker := service.NewCheckoutWorker(i, mysqlAdapter, redisAdapter, publisher, logger)
		wg.Add(1)
		go func() {
			defer wg.Done()
			worker.Run(cartService.GetOrderQueue())
		}()
	}
	logger.Info("started checkout workers", zap.Int("count", cfg.WorkerCount))

	// Initialize gRPC server
	grpcServer := grpc.NewServer()
	healthReporter := handler.NewHealthReporter(map[string]handler.Pinger{
		"mysql": mysqlAdapter,
		"redis": redisAdapter,
	}, cfg.HealthInterval, logger)
	healthReporter.Register(grpcServer)
	go healthReporter.Run(ctx)

	lis, err := net.Listen("tcp", cfg.GRPCAddr)
	if err != nil {
		logger.Fatal("failed to listen", zap.String("addr", cfg.GRPCAddr), zap.Error(err))
	}

	go func() {
		logger.Info("gRPC server listening", zap.String("addr", cfg.GRPCAddr))
		if err := grpcServer.Serve(lis); err != nil {
			logger.Error("gRPC server error", zap.Error(err))
		}
	}()

	// Initialize HTTP server
	authenticator := handler.NewAuthenticator(cfg.JWTSecret)
	httpHandler := handler.NewHTTPHandler(cartService, contactService, authenticator, logger)
	mux := http.NewServeMux()
	httpHandler.Register(mux)

	httpServer := &http.Server{
		Addr:    cfg.HTTPAddr,
		Handler: mux,
	}

	go func() {
		logger.Info("HTTP server listening", zap.String("addr", cfg.HTTPAddr))
		if err := httpServer.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			logger.Error("HTTP server error", zap.Error(err))
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer shutdownCancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Warn("HTTP shutdown", zap.Error(err))
	}
	logger.Info("HTTP server stopped")

	healthReporter.Shutdown()
	grpcServer.GracefulStop()
	cancel()
	logger.Info("gRPC server stopped")

	// Close checkout queue and wait for workers
	cartService.Close()
	wg.Wait()
	logger.Info("workers stopped")

	// Close connections
	if amqpConn != nil {
		amqpConn.Close()
	}
	rdb.Close()
	db.Close()
	logger.Info("connections closed")
}
