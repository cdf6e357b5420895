package main

import (
	"context"
	"database/sql"
	"errors"
	"flag"
	"fmt"
	"log"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/go-sql-driver/mysql"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"

	"github.com/rl1809/showroom/internal/adapter/handler"
	"github.com/rl1809/showroom/internal/adapter/storage"
	"github.com/rl1809/showroom/internal/config"
	"github.com/rl1809/showroom/internal/core/service"
	"github.com/rl1809/showroom/internal/logging"
	"github.com/rl1809/showroom/internal/port"
)

// store bundles every repository a backend provides.
type store interface {
	port.Transactor
	port.InventoryRepository
	port.CartRepository
	port.LedgerRepository
	port.CategoryRepository
	port.UserRepository
}

func main() {
	configPath := flag.String("config", "", "path to YAML config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logger, err := logging.New(cfg.Logger)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logger.Sync() //nolint:errcheck

	if err := run(cfg, logger); err != nil {
		logger.Fatal("server exited", zap.Error(err))
	}
}

func run(cfg *config.Config, logger *zap.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	st, closeStore, err := openStore(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer closeStore()

	locker, closeLocker, err := openLocker(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer closeLocker()

	checkoutService := service.NewCheckoutService(st, st, st, st, locker, logger.Named("checkout"))
	cartService := service.NewCartService(st, st, logger.Named("cart"))
	services := handler.Services{
		Checkout:   checkoutService,
		Carts:      cartService,
		Catalog:    service.NewCatalogService(st, st, st, logger.Named("catalog")),
		Accounts:   service.NewAccountService(st, st, st, st, logger.Named("account")),
		Statistics: service.NewStatisticsService(st, st, st, st),
	}

	g, gctx := errgroup.WithContext(ctx)

	var grpcServer *grpc.Server
	if cfg.GRPC.Addr != "" {
		lis, err := net.Listen("tcp", cfg.GRPC.Addr)
		if err != nil {
			return fmt.Errorf("listen grpc: %w", err)
		}
		grpcServer = grpc.NewServer()
		handler.RegisterCartServiceServer(grpcServer, handler.NewGRPCHandler(checkoutService, cartService, logger.Named("grpc"), cfg.CheckoutTimeout))

		healthServer := health.NewServer()
		healthServer.SetServingStatus("", healthpb.HealthCheckResponse_SERVING)
		healthpb.RegisterHealthServer(grpcServer, healthServer)

		g.Go(func() error {
			logger.Info("gRPC server listening", zap.String("addr", cfg.GRPC.Addr))
			return grpcServer.Serve(lis)
		})
	}

	var httpServer *http.Server
	if cfg.HTTP.Addr != "" {
		mux := http.NewServeMux()
		handler.NewHTTPHandler(services, logger.Named("http"), cfg.CheckoutTimeout).Routes(mux)
		httpServer = &http.Server{
			Addr:              cfg.HTTP.Addr,
			Handler:           mux,
			ReadHeaderTimeout: 10 * time.Second,
		}
		g.Go(func() error {
			logger.Info("HTTP server listening", zap.String("addr", cfg.HTTP.Addr))
			if err := httpServer.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
				return err
			}
			return nil
		})
	}

	// Graceful shutdown
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutting down")

		if httpServer != nil {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.HTTP.ShutdownTimeout)
			defer cancel()
			if err := httpServer.Shutdown(shutdownCtx); err != nil {
				logger.Warn("HTTP shutdown", zap.Error(err))
			}
			logger.Info("HTTP server stopped")
		}
		if grpcServer != nil {
			grpcServer.GracefulStop()
			logger.Info("gRPC server stopped")
		}
		return nil
	})

	return g.Wait()
}

func openStore(ctx context.Context, cfg *config.Config, logger *zap.Logger) (store, func(), error) {
	if cfg.Store == config.StoreMemory {
		logger.Warn("using in-memory store, data is lost on exit")
		return storage.NewMemoryAdapter(), func() {}, nil
	}

	db, err := sql.Open("mysql", cfg.MySQL.DSN)
	if err != nil {
		return nil, nil, fmt.Errorf("open mysql: %w", err)
	}
	db.SetMaxOpenConns(cfg.MySQL.MaxOpenConns)
	db.SetMaxIdleConns(cfg.MySQL.MaxIdleConns)
	db.SetConnMaxLifetime(cfg.MySQL.ConnMaxLifetime)

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, nil, fmt.Errorf("ping mysql: %w", err)
	}
	logger.Info("connected to mysql")

	adapter := storage.NewMySQLAdapter(db)
	if cfg.MySQL.AutoMigrate {
		if err := adapter.EnsureSchema(ctx); err != nil {
			db.Close()
			return nil, nil, fmt.Errorf("migrate: %w", err)
		}
	}
	return adapter, func() { db.Close() }, nil
}

// openLocker prefers the Redis lock so that several server instances share
// checkout exclusion. Without Redis the lock is process-local.
func openLocker(ctx context.Context, cfg *config.Config, logger *zap.Logger) (port.CheckoutLocker, func(), error) {
	if cfg.Redis.Addr == "" {
		logger.Warn("redis not configured, checkout lock is process-local")
		return storage.NewMemoryLocker(), func() {}, nil
	}

	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		PoolSize: cfg.Redis.PoolSize,
	})
	adapter := storage.NewRedisAdapter(rdb, cfg.Redis.LockTTL)
	if err := adapter.Ping(ctx); err != nil {
		rdb.Close()
		return nil, nil, fmt.Errorf("connect redis: %w", err)
	}
	logger.Info("connected to redis", zap.String("addr", cfg.Redis.Addr))
	return adapter, func() { rdb.Close() }, nil
}

func init() {
	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "usage: %s [-config path]\n", os.Args[0])
		flag.PrintDefaults()
	}
}
