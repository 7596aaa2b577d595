package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"commodity-sim-go/internal/config"
	"commodity-sim-go/internal/database"
	"commodity-sim-go/internal/logger"
	"commodity-sim-go/internal/market"
	"commodity-sim-go/internal/session"
	"commodity-sim-go/internal/store"
	"go.uber.org/zap"
)

func main() {
	// Load application configuration
	cfg, err := config.LoadConfig("./configs")
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	// Initialize logger
	log, err := logger.NewLogger(cfg.Logger)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()
	log.Info("Configuration loaded")

	// Pick the snapshot store: database when a DSN is configured,
	// in-memory otherwise.
	var snapshots store.SnapshotStore
	if cfg.Database.DSN != "" {
		db, err := database.NewDatabase(cfg.Database.DSN)
		if err != nil {
			log.Fatal("Failed to connect to database", zap.Error(err))
		}
		snapshots = store.NewDBSnapshotStore(db)
		log.Info("Using database snapshot store", zap.String("dsn", cfg.Database.DSN))
	} else {
		snapshots = store.NewMemorySnapshotStore()
		log.Warn("No database DSN configured, snapshots will not survive restarts")
	}

	// Setup context for graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		sigchan := make(chan os.Signal, 1)
		signal.Notify(sigchan, syscall.SIGINT, syscall.SIGTERM)
		<-sigchan
		log.Info("Shutdown signal received, gracefully shutting down...")
		cancel()
	}()

	// Start the market simulator
	sim := market.New(&cfg.Market, log)
	go sim.Run(ctx)

	// Session manager over the simulator and snapshot store
	manager := session.NewManager(cfg.Trading.StartingBalance, sim, snapshots, log)

	// Setup HTTP server
	mux := http.NewServeMux()
	apiHandler := NewAPIHandler(log, manager, sim)

	mux.HandleFunc("/api/health", apiHandler.HealthHandler)
	mux.HandleFunc("/api/login", apiHandler.LoginHandler)
	mux.HandleFunc("/api/logout", apiHandler.LogoutHandler)
	mux.HandleFunc("/api/buy", apiHandler.BuyHandler)
	mux.HandleFunc("/api/sell", apiHandler.SellHandler)
	mux.HandleFunc("/api/price", apiHandler.PriceHandler)
	mux.HandleFunc("/api/history", apiHandler.HistoryHandler)
	mux.HandleFunc("/api/transactions", apiHandler.TransactionsHandler)
	mux.HandleFunc("/api/portfolio", apiHandler.PortfolioHandler)
	mux.HandleFunc("/api/profile", apiHandler.ProfileHandler)
	mux.HandleFunc("/api/profile/status", apiHandler.ProfileStatusHandler)

	addr := fmt.Sprintf(":%d", cfg.Server.Port)
	server := &http.Server{Addr: addr, Handler: mux}

	go func() {
		<-ctx.Done()
		server.Shutdown(context.Background())
	}()

	log.Info("Starting web server", zap.String("address", addr))
	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Fatal("Web server failed", zap.Error(err))
	}

	log.Info("Server has been shut down.")
}
