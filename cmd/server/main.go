package main

import (
	"context"
	"log"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/codage11/pricer3d/internal/config"
	"github.com/codage11/pricer3d/internal/db"
	"github.com/codage11/pricer3d/internal/logging"
	"github.com/codage11/pricer3d/internal/material"
	"github.com/codage11/pricer3d/internal/migrations"
	"github.com/codage11/pricer3d/internal/quote"
)

type server struct {
	logger  *zap.Logger
	catalog *material.Catalog
	store   quote.Store
	cfg     config.Config
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logger, err := logging.New(cfg.AppEnv)
	if err != nil {
		log.Fatalf("failed to build logger: %v", err)
	}
	defer logger.Sync()

	store, cleanup, err := openQuoteStore(cfg, logger)
	if err != nil {
		logger.Fatal("failed to open quote store", zap.Error(err))
	}
	defer cleanup()

	srv := &server{
		logger:  logger,
		catalog: material.Default(),
		store:   store,
		cfg:     cfg,
	}

	r := chi.NewRouter()
	r.Get("/healthz", srv.handleHealthz)
	r.Route("/api", func(r chi.Router) {
		r.Get("/materials", srv.handleMaterials)
		r.Post("/analyze", srv.handleAnalyze)
		r.Get("/quotes", srv.handleQuotesList)
		r.Post("/quotes", srv.handleQuoteCreate)
		r.Get("/quotes/export", srv.handleQuotesExport)
		r.Get("/quotes/{id}", srv.handleQuoteGet)
		r.Delete("/quotes/{id}", srv.handleQuoteDelete)
		r.Post("/quotes/{id}/duplicate", srv.handleQuoteDuplicate)
	})

	addr := ":" + cfg.Port
	logger.Info("listening", zap.String("addr", addr), zap.String("quote_store", cfg.QuoteStore))
	if err := http.ListenAndServe(addr, r); err != nil {
		logger.Fatal("server stopped", zap.Error(err))
	}
}

// openQuoteStore builds the configured quote store backend and returns it
// together with a cleanup function for its resources.
func openQuoteStore(cfg config.Config, logger *zap.Logger) (quote.Store, func(), error) {
	switch cfg.QuoteStore {
	case config.StoreMemory:
		return quote.NewMemoryStore(), func() {}, nil

	case config.StoreRedis:
		store := quote.NewRedisStore(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := store.Ping(ctx); err != nil {
			store.Close()
			return nil, nil, err
		}
		return store, func() { _ = store.Close() }, nil

	default: // config.StoreSQLite
		database, err := db.Open(cfg.DBPath)
		if err != nil {
			return nil, nil, err
		}
		if cfg.IsDev() {
			if err := migrations.Up(database, "migrations"); err != nil {
				database.Close()
				return nil, nil, err
			}
			logger.Info("database migrations applied", zap.String("db_path", cfg.DBPath))
		}
		return quote.NewSQLiteStore(database), func() { _ = database.Close() }, nil
	}
}
