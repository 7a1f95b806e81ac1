package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"propeller/offchain/internal/api"
	"propeller/offchain/internal/blockchain/evm"
	solanaclient "propeller/offchain/internal/blockchain/solana"
	"propeller/offchain/internal/blockchain/wormhole"
	"propeller/offchain/internal/config"
	"propeller/offchain/internal/database"
	"propeller/offchain/internal/models"
	"propeller/offchain/internal/store"
	"propeller/offchain/internal/worker"

	"go.uber.org/zap"
)

func main() {
	// Initialize logger
	logger, err := initLogger()
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer logger.Sync()

	logger.Info("Starting Propeller Offchain Service")

	// Load configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		logger.Fatal("Failed to load configuration", zap.Error(err))
	}

	logger.Info("Configuration loaded",
		zap.Int("server_port", cfg.Server.Port),
		zap.String("db_host", cfg.Database.Host),
		zap.String("env", string(cfg.Env)),
		zap.Int("num_evm_chains", len(cfg.Chains)))

	environment := config.EnvironmentFor(cfg.Env)

	// Connect to database
	db, err := database.Connect(database.Config{
		Host:     cfg.Database.Host,
		Port:     cfg.Database.Port,
		User:     cfg.Database.User,
		Password: cfg.Database.Password,
		DBName:   cfg.Database.DBName,
		SSLMode:  cfg.Database.SSLMode,
	})
	if err != nil {
		logger.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer db.Close()

	logger.Info("Database connected successfully")

	// Run migrations
	if err := database.RunMigrations(db); err != nil {
		logger.Fatal("Failed to run migrations", zap.Error(err))
	}
	logger.Info("Database migrations applied successfully")

	// Load persisted interaction states
	interactionStore := store.NewStore(logger, db, environment)
	loadCtx, loadCancel := context.WithTimeout(context.Background(), 30*time.Second)
	if err := interactionStore.Load(loadCtx); err != nil {
		loadCancel()
		logger.Fatal("Failed to load interaction states", zap.Error(err))
	}
	loadCancel()

	// Initialize chain clients
	evmClients := make(map[models.Ecosystem]worker.EVMClient, len(cfg.Chains))
	for ecosystem, chainCfg := range cfg.Chains {
		client, err := evm.NewClient(chainCfg, logger.Named(string(ecosystem)))
		if err != nil {
			logger.Fatal("Failed to initialize EVM client",
				zap.String("ecosystem", string(ecosystem)),
				zap.Error(err))
		}
		defer client.Close()
		logger.Info("EVM relayer ready",
			zap.String("ecosystem", string(ecosystem)),
			zap.String("relayer_address", client.RelayerAddress().Hex()))
		evmClients[ecosystem] = client
	}

	solClient, err := solanaclient.NewClient(cfg.Solana, environment, logger.Named("solana"))
	if err != nil {
		logger.Fatal("Failed to initialize Solana client", zap.Error(err))
	}

	attestationClient, err := wormhole.NewClient(cfg, logger)
	if err != nil {
		logger.Fatal("Failed to initialize attestation client", zap.Error(err))
	}

	logger.Info("Chain clients initialized")

	// Initialize executor and runner
	executor := worker.NewExecutor(logger, interactionStore, environment, evmClients, solClient, attestationClient)
	runner := worker.NewRunner(logger, interactionStore, executor)

	// Initialize API handlers
	apiHandler := api.NewHandler(interactionStore, environment, solClient, runner, logger)
	router := api.SetupRouter(apiHandler, logger)

	// Create HTTP server
	serverAddr := fmt.Sprintf(":%d", cfg.Server.Port)
	httpServer := &http.Server{
		Addr:         serverAddr,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start HTTP server in goroutine
	serverErrors := make(chan error, 1)
	go func() {
		logger.Info("Starting HTTP server",
			zap.String("addr", serverAddr))
		serverErrors <- httpServer.ListenAndServe()
	}()

	logger.Info("Service initialized successfully",
		zap.String("status", "ready"),
		zap.Int("interactions", interactionStore.Count()),
		zap.Int("port", cfg.Server.Port))

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	// Wait for interrupt signal or server error
	select {
	case err := <-serverErrors:
		logger.Fatal("HTTP server error", zap.Error(err))
	case sig := <-quit:
		logger.Info("Received shutdown signal", zap.String("signal", sig.String()))
	}

	logger.Info("Shutting down service...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Error("HTTP server shutdown error", zap.Error(err))
		httpServer.Close()
	} else {
		logger.Info("HTTP server stopped gracefully")
	}

	logger.Info("Service stopped successfully")
}

func initLogger() (*zap.Logger, error) {
	env := os.Getenv("ENV")
	if env == "production" {
		return zap.NewProduction()
	}
	return zap.NewDevelopment()
}
