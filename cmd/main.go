package main

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/joho/godotenv"
	_ "github.com/lib/pq"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	"google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"

	"storefront-service/internal/api"
	"storefront-service/internal/cart"
	"storefront-service/internal/catalog"
	"storefront-service/internal/config"
	"storefront-service/internal/domain"
	"storefront-service/internal/logger"
	"storefront-service/internal/remote"
	"storefront-service/internal/session"
	"storefront-service/internal/store"
)

const (
	defaultAppName = "StorefrontService"
)

func main() {
	if err := godotenv.Load(); err != nil {
		logrus.Info("no .env file found, relying on system environment")
	}

	// --- Configuration Loading ---
	cfg, err := config.Load()
	if err != nil {
		logrus.WithError(err).Fatal("error loading configuration")
	}
	log := logger.New(defaultAppName, logger.Options{Level: cfg.LogLevel, Format: cfg.LogFormat, Env: cfg.AppEnv})
	log.WithFields(logrus.Fields{"storage": cfg.Storage.Backend, "remote": cfg.Remote.BaseURL != ""}).Info("starting service")

	// --- Slot Storage ---
	slots, err := openSlotStorage(context.Background(), cfg, log)
	if err != nil {
		log.WithError(err).Fatal("failed to initialize slot storage")
	}

	// --- Catalog ---
	products, stockTable, err := buildCatalog(cfg, log)
	if err != nil {
		log.WithError(err).Fatal("failed to initialize catalog")
	}
	notifier := cart.NotifierFunc(func(n cart.Notification) {
		log.WithField("level", n.Level).Debug(n.Message)
	})
	sessions := session.NewRegistry(session.Options{
		Stock:    stockTable,
		Slots:    slots,
		Notifier: notifier,
		Logger:   log,
		IdleTTL:  cfg.Storage.SessionIdleTTL,
	})
	sweepCtx, stopSweep := context.WithCancel(context.Background())
	defer stopSweep()
	go sessions.Run(sweepCtx)

	// --- Initialize API Handlers ---
	httpAPIHandler := api.NewHTTPHandler(products, sessions, log)
	grpcAPIHandler := api.NewGRPCHandler(products, log)

	// --- Setup & Start HTTP Server ---
	httpRouter := chi.NewRouter()
	setupBaseMiddleware(httpRouter, log)
	registerHealthCheck(httpRouter, log, slots, products)
	httpAPIHandler.RegisterRoutes(httpRouter)

	httpServer := &http.Server{
		Addr:         ":" + cfg.HttpServer.Port,
		Handler:      httpRouter,
		ReadTimeout:  cfg.HttpServer.TimeoutRead,
		WriteTimeout: cfg.HttpServer.TimeoutWrite,
		IdleTimeout:  cfg.HttpServer.TimeoutIdle,
	}

	go func() {
		log.WithField("port", cfg.HttpServer.Port).Info("HTTP server listening")
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.WithError(err).Fatal("HTTP server ListenAndServe error")
		}
		log.Info("HTTP server has stopped")
	}()

	// --- Setup & Start gRPC Server ---
	var grpcServer *grpc.Server
	if cfg.GrpcServer.Enabled {
		grpcServer = setupGRPCServer(log, grpcAPIHandler)
		grpcListener, err := net.Listen("tcp", ":"+cfg.GrpcServer.Port)
		if err != nil {
			log.WithError(err).WithField("port", cfg.GrpcServer.Port).Fatal("failed to listen for gRPC")
		}
		go func() {
			log.WithField("port", cfg.GrpcServer.Port).Info("gRPC server listening")
			if err := grpcServer.Serve(grpcListener); err != nil && !errors.Is(err, grpc.ErrServerStopped) {
				log.WithError(err).Fatal("gRPC server Serve error")
			}
			log.Info("gRPC server has stopped")
		}()
	}

	// --- Graceful Shutdown ---
	shutdownComplete := make(chan struct{})
	go waitForShutdown(log, httpServer, grpcServer, slots, shutdownComplete)

	<-shutdownComplete
	log.Info("service shutdown sequence finished")
}

// openSlotStorage connects the configured backend for cart and wishlist slots.
func openSlotStorage(ctx context.Context, cfg *config.Config, log logrus.FieldLogger) (store.SlotStorer, error) {
	switch cfg.Storage.Backend {
	case "postgres":
		db, err := sql.Open("postgres", cfg.Postgres.DSN())
		if err != nil {
			return nil, fmt.Errorf("open postgres: %w", err)
		}
		pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		defer cancel()
		if err := db.PingContext(pingCtx); err != nil {
			db.Close()
			return nil, fmt.Errorf("ping postgres: %w", err)
		}
		pg := store.NewPostgresStore(db, log)
		if err := pg.EnsureSchema(pingCtx); err != nil {
			db.Close()
			return nil, err
		}
		log.Info("postgres slot storage ready")
		return pg, nil
	case "redis":
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		rs := store.NewRedisStore(client, cfg.Redis.Prefix, cfg.Redis.SlotTTL)
		pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		defer cancel()
		if err := rs.Ping(pingCtx); err != nil {
			client.Close()
			return nil, fmt.Errorf("ping redis: %w", err)
		}
		log.WithField("addr", cfg.Redis.Addr).Info("redis slot storage ready")
		return rs, nil
	default:
		log.Warn("memory slot storage: carts and wishlists are lost on restart")
		return store.NewMemoryStore(), nil
	}
}

// buildCatalog loads the local catalog, wires the remote source when configured and
// returns the query service together with the stock table carts are checked against.
func buildCatalog(cfg *config.Config, log logrus.FieldLogger) (*catalog.Service, cart.StockChecker, error) {
	display, ok := domain.ParseSizeChartType(cfg.Catalog.DisplaySizeSystem)
	if !ok {
		return nil, nil, fmt.Errorf("invalid CATALOG_DISPLAY_SIZE_SYSTEM: %q", cfg.Catalog.DisplaySizeSystem)
	}

	var mc *catalog.MockCatalog
	var err error
	if cfg.Catalog.MockPath != "" {
		mc, err = catalog.LoadMockCatalogFile(cfg.Catalog.MockPath)
	} else {
		mc, err = catalog.DefaultMockCatalog()
	}
	if err != nil {
		return nil, nil, err
	}
	stockTable := mc.StockTable(cfg.Catalog.DefaultStock)

	opts := catalog.Options{
		Mock:       mc,
		Normalizer: catalog.NewNormalizer(nil, display),
		Stock:      stockTable,
		FetchSize:  cfg.Remote.FetchSize,
		Logger:     log.WithField("component", "catalog"),
	}
	if cfg.Remote.BaseURL != "" {
		doer, err := remote.BuildTransport(remote.TransportOptions{
			HTTPClient: remote.NewHTTPClient(cfg.Remote.Timeout),
			Retries:    cfg.Remote.Retries,
			Logger:     log,
		})
		if err != nil {
			return nil, nil, err
		}
		client, err := remote.New(remote.Options{
			BaseURL:   cfg.Remote.BaseURL,
			Doer:      doer,
			RateLimit: cfg.Remote.RateLimit,
			Burst:     cfg.Remote.Burst,
			Logger:    log,
		})
		if err != nil {
			return nil, nil, err
		}
		opts.Remote = client
	}

	log.WithFields(logrus.Fields{
		"display_sizes": display,
		"stock_entries": stockTable.Len(),
		"remote":        opts.Remote != nil,
	}).Info("catalog ready")
	return catalog.NewService(opts), stockTable, nil
}

func setupBaseMiddleware(router *chi.Mux, log logrus.FieldLogger) {
	router.Use(middleware.RequestID)
	router.Use(middleware.RealIP)
	router.Use(middleware.Logger)
	router.Use(middleware.Recoverer)
	router.Use(middleware.Timeout(60 * time.Second))
	log.Debug("base HTTP middleware registered")
}

func registerHealthCheck(router *chi.Mux, log logrus.FieldLogger, slots store.SlotStorer, products *catalog.Service) {
	healthPath := "/api/v1/healthz"
	router.Get(healthPath, func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		storageStatus := "healthy"
		if p, ok := slots.(store.Pinger); ok {
			if err := p.Ping(ctx); err != nil {
				storageStatus = "unhealthy"
				log.WithError(err).Warn("health check storage ping failed")
			}
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK) // always 200, the payload carries the detail
		json.NewEncoder(w).Encode(map[string]interface{}{
			"status":      "healthy",
			"serviceName": defaultAppName,
			"timestamp":   time.Now().UTC().Format(time.RFC3339),
			"storage":     storageStatus,
			"remote":      products.RemoteEnabled(),
		})
	})
	log.WithField("path", healthPath).Debug("HTTP health check registered")
}

func setupGRPCServer(log logrus.FieldLogger, grpcAPIHandler *api.GRPCHandler) *grpc.Server {
	s := grpc.NewServer()

	api.RegisterCatalogServer(s, grpcAPIHandler)
	grpc_health_v1.RegisterHealthServer(s, health.NewServer())
	reflection.Register(s)
	log.WithField("grpc_service", api.CatalogServiceName).Info("gRPC services registered")

	return s
}

func waitForShutdown(
	log logrus.FieldLogger,
	httpServer *http.Server,
	grpcServer *grpc.Server,
	slots store.SlotStorer,
	shutdownComplete chan struct{},
) {
	defer close(shutdownComplete)

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGINT, syscall.SIGTERM)
	receivedSignal := <-sigChan
	log.WithField("signal", receivedSignal.String()).Info("starting graceful shutdown")

	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancelShutdown()

	stoppedGrpc := make(chan struct{})
	go func() {
		if grpcServer != nil {
			grpcServer.GracefulStop()
		}
		close(stoppedGrpc)
	}()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.WithError(err).Warn("HTTP server graceful shutdown failed")
	} else {
		log.Info("HTTP server gracefully shut down")
	}

	select {
	case <-stoppedGrpc:
		log.Info("gRPC server gracefully shut down")
	case <-shutdownCtx.Done():
		log.WithError(shutdownCtx.Err()).Warn("gRPC server graceful shutdown timed out, forcing stop")
		grpcServer.Stop()
	}

	if c, ok := slots.(io.Closer); ok {
		if err := c.Close(); err != nil {
			log.WithError(err).Warn("error closing slot storage")
		}
	}

	log.Info("graceful shutdown sequence completed")
}
