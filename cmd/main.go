package main

import (
	"context"
	"net/http"
	"os"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/alotrabong/branch-orders-service/internal/application"
	"github.com/alotrabong/branch-orders-service/internal/config"
	"github.com/alotrabong/branch-orders-service/internal/kafka"
	"github.com/alotrabong/branch-orders-service/internal/logger"
	"github.com/alotrabong/branch-orders-service/internal/migrate"
	"github.com/alotrabong/branch-orders-service/internal/presentation"
	"github.com/alotrabong/branch-orders-service/internal/repository"
)

func main() {
	logger.Init()
	cfg, err := config.LoadConfig()
	if err != nil {
		logger.Warn("config load failed", "err", err)
		os.Exit(1)
	}

	if err := migrate.Up(cfg.DB_STRING); err != nil {
		logger.Warn("migrations failed", "err", err)
		os.Exit(1)
	}

	// DB pool
	pool, err := pgxpool.New(context.Background(), cfg.DB_STRING)
	if err != nil {
		logger.Warn("pgxpool new failed", "err", err)
		os.Exit(1)
	}
	defer pool.Close()

	if err := pool.Ping(context.Background()); err != nil {
		logger.Warn("db ping failed", "err", err)
		os.Exit(1)
	}
	logger.Info("db connected")

	// Kafka producer for order status events
	prod := kafka.NewProducer(cfg.KAFKA_BROKERS, cfg.KAFKA_TOPIC)
	defer prod.Close()

	// Wiring
	orderRepo := repository.NewOrderRepository(pool)
	commissionRepo := repository.NewCommissionRepository(pool)
	inventoryRepo := repository.NewInventoryRepository(pool)

	ordersSvc := application.NewOrdersService(orderRepo, prod)
	commissionsSvc := application.NewCommissionsService(commissionRepo)
	revenueSvc := application.NewRevenueService(orderRepo, commissionsSvc)

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))

	h := presentation.NewHandler(ordersSvc, commissionsSvc, revenueSvc, inventoryRepo)
	h.Register(r)

	addr := ":" + cfg.HTTP_PORT
	logger.Info("starting http", "addr", addr)
	if err := http.ListenAndServe(addr, r); err != nil {
		logger.Warn("http server crashed", "err", err)
		os.Exit(1)
	}
}
