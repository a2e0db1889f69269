package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"sweetswap/internal/config"
	"sweetswap/internal/generator"
	"sweetswap/internal/handler"
	"sweetswap/internal/llm"
	"sweetswap/internal/logger"
	"sweetswap/internal/nutrition"
	"sweetswap/internal/repository"
	"sweetswap/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"go.uber.org/zap"
)

func main() {
	// .env is optional; real environment variables take precedence
	envErr := godotenv.Load()

	configPath := os.Getenv("SWEETSWAP_CONFIG")
	if configPath == "" {
		configPath = "configs/config.yml"
	}

	cfg, cfgErr := config.LoadConfig(configPath)
	if cfgErr != nil {
		cfg = config.Default()
	}

	log, err := logger.New(cfg.Logging.Mode)
	if err != nil {
		panic(err)
	}
	defer log.Sync()

	log.Info("Starting SweetSwap service...")
	if envErr == nil {
		log.Info("Loaded environment from .env")
	}
	if cfgErr != nil {
		log.Warn("Config file not loaded, using defaults and environment",
			zap.String("path", configPath),
			zap.Error(cfgErr))
	}

	// Text generation chain; without credentials the generator uses its fallback
	var completer generator.Completer
	var providerInfo handler.ProviderInfo
	if providers := cfg.ProviderConfigs(); len(providers) > 0 {
		multiClient, err := llm.NewMultiProviderClient(llm.MultiProviderConfig{
			Providers:   providers,
			MaxFailures: cfg.MaxFailuresBeforeSwitch,
		}, log)
		if err != nil {
			log.Warn("Failed to initialize generation providers, using fallback substitutes",
				zap.Error(err))
		} else {
			defer multiClient.Close()
			completer = multiClient
			providerInfo = multiClient
			log.Info("Generation providers initialized",
				zap.Int("provider_count", len(providers)))
		}
	} else {
		log.Warn("No generation credentials configured, using fallback substitutes")
	}

	nutritionClient := nutrition.NewClient(nutrition.Config{
		APIKey:  cfg.Nutrition.APIKey,
		BaseURL: cfg.Nutrition.BaseURL,
		Timeout: cfg.Nutrition.Timeout,
	}, log)
	if !nutritionClient.Enabled() {
		log.Info("Nutrition API key not configured, lookups disabled")
	}

	db, err := repository.NewDB(cfg.Database.Type, cfg.Database.Path, log)
	if err != nil {
		log.Fatal("Failed to open database", zap.Error(err))
	}
	defer db.Close()

	repo, err := repository.NewCatalogRepository(db, log)
	if err != nil {
		log.Fatal("Failed to initialize repository", zap.Error(err))
	}

	resolver := service.NewResolver(repo, nutritionClient, generator.New(completer, log), log)
	apiHandler := handler.NewHandler(resolver, providerInfo, log)

	gin.SetMode(gin.ReleaseMode)
	router := handler.NewRouter(apiHandler, log)

	serverAddr := fmt.Sprintf(":%s", cfg.Server.Port)

	srv := &http.Server{
		Addr:    serverAddr,
		Handler: router,
	}

	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	log.Info("SweetSwap service is running",
		zap.String("address", serverAddr),
		zap.String("database", cfg.Database.Type))

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Fatal("Server forced to shutdown", zap.Error(err))
	}

	log.Info("Server exited")
}
