package main

import (
	"context"
	"fmt"
	"os"

	"sweetswap/internal/config"
	"sweetswap/internal/logger"
	"sweetswap/internal/repository"
	"sweetswap/internal/seed"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var (
		configPath string
		csvPath    string
	)

	cmd := &cobra.Command{
		Use:          "seed",
		Short:        "Load curated drink substitutions from CSV into the catalog",
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			_ = godotenv.Load()

			cfg, cfgErr := config.LoadConfig(configPath)
			if cfgErr != nil {
				cfg = config.Default()
			}

			log, err := logger.New(cfg.Logging.Mode)
			if err != nil {
				return err
			}
			defer log.Sync()

			if cfgErr != nil {
				log.Warn("Config file not loaded, using defaults and environment",
					zap.String("path", configPath),
					zap.String("database", cfg.Database.Path),
					zap.Error(cfgErr))
			}

			return run(cmd.Context(), cfg, csvPath, log)
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "configs/config.yml", "path to config file")
	cmd.Flags().StringVarP(&csvPath, "file", "f", "data/seed_substitutions.csv", "path to seed CSV")

	return cmd
}

func run(ctx context.Context, cfg *config.Config, csvPath string, log *zap.Logger) error {
	if ctx == nil {
		ctx = context.Background()
	}

	file, err := os.Open(csvPath)
	if err != nil {
		return fmt.Errorf("failed to open seed file: %w", err)
	}
	defer file.Close()

	db, err := repository.NewDB(cfg.Database.Type, cfg.Database.Path, log)
	if err != nil {
		return err
	}
	defer db.Close()

	repo, err := repository.NewCatalogRepository(db, log)
	if err != nil {
		return err
	}

	result, err := seed.NewLoader(repo, log).Load(ctx, file)
	if err != nil {
		return err
	}

	stats, err := repo.GetStats(ctx)
	if err != nil {
		return err
	}

	fmt.Printf("Loaded %d substitutions (%d already present)\n", result.Loaded, result.Skipped)
	fmt.Printf("  Drinks: %d\n  Substitutions: %d\n", stats.Drinks, stats.Substitutions)
	return nil
}
