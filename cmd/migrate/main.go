package main

import (
	"context"
	"log"
	"os"
	"slices"
	"strings"

	_ "github.com/joho/godotenv/autoload"
	"go.uber.org/zap"

	"github.com/fdg312/plateplan/internal/catalog"
	"github.com/fdg312/plateplan/internal/config"
	"github.com/fdg312/plateplan/internal/dbmigrate"
	"github.com/fdg312/plateplan/internal/logging"
	"github.com/fdg312/plateplan/internal/storage/postgres"
)

func main() {
	allowed := append(slices.Clone(dbmigrate.Commands), "seed")
	if len(os.Args) < 2 {
		log.Fatalf("usage: go run ./cmd/migrate [%s]", strings.Join(allowed, "|"))
	}

	command := os.Args[1]
	if !slices.Contains(allowed, command) {
		log.Fatalf("unsupported command %q (allowed: %s)", command, strings.Join(allowed, ", "))
	}

	cfg := config.Load()
	logger, err := logging.New(cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		log.Fatalf("FATAL logger: %v", err)
	}
	defer logger.Sync()
	for _, w := range cfg.Warnings {
		logger.Warn("config", zap.String("warning", w))
	}

	target, err := dbmigrate.SelectTarget(cfg)
	if err != nil {
		logger.Fatal("no database", zap.Error(err))
	}
	if target.Warning != "" {
		logger.Warn(target.Warning)
	}
	logger.Info("migrate",
		zap.String("command", command),
		zap.String("using", target.Source),
		zap.String("db", target.Redacted()))

	ctx := context.Background()
	if command == "seed" {
		if err := seed(ctx, target.URL, logger); err != nil {
			logger.Fatal("seed failed", zap.Error(err))
		}
		return
	}

	if err := dbmigrate.Run(ctx, command, target.URL, logger.Named("goose")); err != nil {
		logger.Fatal("migrate failed", zap.Error(err))
	}
	logger.Info("migrate completed", zap.String("command", command))
}

// seed upserts the built-in recipe catalog and plan templates.
func seed(ctx context.Context, dbURL string, logger *zap.Logger) error {
	data, err := catalog.Load()
	if err != nil {
		return err
	}

	store, err := postgres.New(ctx, dbURL)
	if err != nil {
		return err
	}
	defer store.Close()

	if err := data.Apply(ctx, store); err != nil {
		return err
	}
	logger.Info("seed completed",
		zap.Int("recipes", len(data.Recipes)),
		zap.Int("templates", len(data.Templates)))
	return nil
}
