package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	_ "github.com/joho/godotenv/autoload"
	"go.uber.org/zap"

	"github.com/fdg312/plateplan/internal/config"
	"github.com/fdg312/plateplan/internal/dbmigrate"
	"github.com/fdg312/plateplan/internal/httpserver"
	"github.com/fdg312/plateplan/internal/logging"
)

func main() {
	cfg := config.Load()

	logger, err := logging.New(cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		log.Fatalf("FATAL logger: %v", err)
	}
	defer logger.Sync()

	printStartupBanner(logger, cfg)
	for _, w := range cfg.Warnings {
		logger.Warn("config", zap.String("warning", w))
	}

	if err := cfg.Validate(); err != nil {
		logger.Fatal("invalid configuration", zap.Error(err))
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if cfg.RunMigrationsOnStartup {
		target, err := dbmigrate.SelectTarget(cfg)
		if err != nil {
			logger.Fatal("startup migrations", zap.Error(err))
		}
		if target.Warning != "" {
			logger.Warn(target.Warning)
		}

		logger.Info("startup migrations",
			zap.String("command", "up"),
			zap.String("using", target.Source),
			zap.String("db", target.Redacted()))
		if err := dbmigrate.Run(ctx, "up", target.URL, logger.Named("migrate")); err != nil {
			logger.Fatal("startup migrations failed", zap.Error(err))
		}
		logger.Info("startup migrations completed")
	}

	server, err := httpserver.New(ctx, cfg, logger)
	if err != nil {
		logger.Fatal("server init failed", zap.Error(err))
	}
	defer server.Close()

	errCh := make(chan error, 1)
	go func() { errCh <- server.Start() }()

	select {
	case err := <-errCh:
		if err != nil {
			logger.Fatal("server stopped", zap.Error(err))
		}
	case <-ctx.Done():
		logger.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil && !errors.Is(err, context.DeadlineExceeded) {
			logger.Error("graceful shutdown failed", zap.Error(err))
		}
	}
}

// printStartupBanner logs a one-time summary of the resolved configuration.
// Secrets are only reported as "set" / "not set".
func printStartupBanner(logger *zap.Logger, cfg *config.Config) {
	logger.Info("plateplan api",
		zap.String("env", cfg.Env),
		zap.Int("port", cfg.Port),
		zap.String("log_level", cfg.LogLevel),
		zap.String("timezone", cfg.Timezone.String()),
	)
	logger.Info("database",
		zap.String("runtime_url", describeDBURL(cfg.DatabaseURL, cfg.DatabaseURLPooled)),
		zap.String("pooled", config.SetOrNot(cfg.DatabaseURLPooled)),
		zap.String("direct", config.SetOrNot(cfg.DatabaseURLDirect)),
		zap.Bool("migrations_on_startup", cfg.RunMigrationsOnStartup),
	)
	logger.Info("auth",
		zap.String("auth_mode", cfg.AuthMode),
		zap.Bool("auth_required", cfg.AuthRequired),
		zap.String("jwt_secret", secretStatus(cfg.JWTSecret, "change_me")),
	)

	blobFields := []zap.Field{
		zap.String("blob_mode", cfg.Blob.Mode),
		zap.String("exports_mode", displayExportsMode(cfg)),
		zap.String("effective", cfg.Blob.EffectiveExportsMode()),
	}
	if cfg.Blob.EffectiveExportsMode() != config.BlobModeLocal {
		blobFields = append(blobFields, zap.String("s3", cfg.Blob.S3.DiagnosticsSummary()))
	}
	logger.Info("blob", blobFields...)

	logger.Info("cache",
		zap.String("redis_url", config.SetOrNot(cfg.RedisURL)),
		zap.Duration("recipe_ttl", cfg.RecipeCacheTTL),
		zap.Bool("metrics", cfg.MetricsEnabled),
	)
}

func secretStatus(v, insecureDefault string) string {
	v = strings.TrimSpace(v)
	if v == "" {
		return "not set"
	}
	if v == insecureDefault {
		return fmt.Sprintf("set (DEFAULT, insecure '%s')", insecureDefault)
	}
	return "set (custom)"
}

func describeDBURL(runtime, pooled string) string {
	if runtime == "" {
		return "not set (will use in-memory storage)"
	}
	if pooled != "" && runtime == pooled {
		return "set (via DATABASE_URL_POOLED)"
	}
	return "set"
}

func displayExportsMode(cfg *config.Config) string {
	if cfg.Blob.ExportsModeSet {
		return cfg.Blob.ExportsMode
	}
	return fmt.Sprintf("(inherits BLOB_MODE=%s)", cfg.Blob.Mode)
}
