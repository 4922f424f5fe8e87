package main

import (
	"context"
	"database/sql"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	_ "github.com/lib/pq"
	"go.uber.org/zap"

	"github.com/jortegab/cash-denomination-ledger/internal/auth"
	"github.com/jortegab/cash-denomination-ledger/internal/cashdesk"
	"github.com/jortegab/cash-denomination-ledger/internal/config"
	"github.com/jortegab/cash-denomination-ledger/internal/events/kafka"
	"github.com/jortegab/cash-denomination-ledger/internal/interfaces"
	"github.com/jortegab/cash-denomination-ledger/internal/ledger"
	"github.com/jortegab/cash-denomination-ledger/internal/models"
	"github.com/jortegab/cash-denomination-ledger/internal/reconcile"
	"github.com/jortegab/cash-denomination-ledger/internal/server"
	"github.com/jortegab/cash-denomination-ledger/internal/storage/memory"
	"github.com/jortegab/cash-denomination-ledger/internal/storage/postgres"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("no .env file found, relying on system env vars")
	}
	cfg := config.Load()

	logger, err := zap.NewProduction()
	if err != nil {
		log.Fatalf("logger: %v", err)
	}
	defer logger.Sync()

	store, err := buildStore(cfg, logger)
	if err != nil {
		logger.Fatal("store init failed", zap.Error(err))
	}

	var publisher interfaces.EventPublisher
	if len(cfg.KafkaBrokers) > 0 {
		kp := kafka.NewPublisher(cfg.KafkaBrokers, cfg.KafkaTopic)
		defer kp.Close()
		publisher = kp
	}

	authenticator := auth.NewAuthenticator(auth.Config{
		User:       cfg.User,
		PIN:        cfg.PIN,
		Secret:     []byte(cfg.SessionSecret),
		SessionTTL: cfg.SessionTTL,
	})

	engine := reconcile.New(store, logger)
	poster := ledger.NewPoster(store, cfg.HistoryCollection, logger)
	desk := cashdesk.NewService(store, engine, poster, publisher, map[models.AccountID]string{
		models.AccountWallet:  cfg.WalletCollection,
		models.AccountSavings: cfg.SavingsCollection,
	}, logger)

	handler := server.NewHandler(desk, authenticator, logger)
	srv := &http.Server{Addr: cfg.HTTPAddr, Handler: server.NewRouter(handler)}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("starting server", zap.String("addr", cfg.HTTPAddr))
		errCh <- srv.ListenAndServe()
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-quit:
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		logger.Info("shutting down")
		if err := srv.Shutdown(ctx); err != nil {
			logger.Fatal("shutdown failed", zap.Error(err))
		}
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("server failed", zap.Error(err))
		}
	}
}

// buildStore picks postgres when DATABASE_URL is set, otherwise a seeded
// in-memory store for dependency-free local runs.
func buildStore(cfg config.AppConfig, logger *zap.Logger) (interfaces.Store, error) {
	if cfg.DatabaseURL != "" {
		db, err := sql.Open("postgres", cfg.DatabaseURL)
		if err != nil {
			return nil, err
		}
		if err := db.Ping(); err != nil {
			return nil, err
		}
		pg := postgres.NewStore(db)
		if err := pg.EnsureSchema(context.Background()); err != nil {
			return nil, err
		}
		logger.Info("using postgres store")
		return pg, nil
	}

	mem := memory.NewStore()
	seedDefaults(mem, cfg)
	logger.Info("using in-memory store with default seed")
	return mem, nil
}

// seedDefaults creates the two inventories and the history collection.
// Inventory rows normally pre-exist out of band; the in-memory store has no
// out of band, so the standard euro denomination set is seeded here.
func seedDefaults(mem *memory.Store, cfg config.AppConfig) {
	header := []string{"Denomination", "Count", "Subtotal"}
	denominations := []string{
		"500,00 €", "200,00 €", "100,00 €", "50,00 €", "20,00 €", "10,00 €",
		"5,00 €", "2,00 €", "1,00 €", "0,50 €", "0,20 €", "0,10 €",
		"0,05 €", "0,02 €", "0,01 €",
	}
	rows := make([][]string, 0, len(denominations))
	for _, d := range denominations {
		rows = append(rows, []string{d, "0", "0,00 €"})
	}
	mem.Seed(cfg.WalletCollection, header, rows...)
	mem.Seed(cfg.SavingsCollection, header, rows...)
	mem.Seed(cfg.HistoryCollection,
		[]string{"Date", "Amount", "Tendered", "Change", "Balance", "Notes"})
}
