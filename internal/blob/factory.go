package blob

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	appcfg "github.com/fdg312/plateplan/internal/config"
	"github.com/fdg312/plateplan/internal/logging"
)

// ExportsURLPrefix is the api route that serves locally stored exports.
const ExportsURLPrefix = "/v1/exports"

// NewBlobStore builds the store for mode local|s3|auto. Auto falls back to
// the local disk when S3 is not configured or fails to initialize.
func NewBlobStore(ctx context.Context, mode string, cfg appcfg.BlobConfig, logger *zap.Logger) (Store, string, error) {
	logger = logging.OrNop(logger).Named("blob")

	mode = strings.ToLower(strings.TrimSpace(mode))
	if mode == "" {
		mode = appcfg.BlobModeLocal
	}

	switch mode {
	case appcfg.BlobModeLocal:
		logger.Info("mode=local (forced)", zap.String("dir", cfg.LocalDir))
		return newLocal(cfg)

	case appcfg.BlobModeAuto:
		if !cfg.S3.IsConfigured() {
			level, code, msg := cfg.S3.Diagnostics()
			fields := []zap.Field{zap.String("code", code), zap.String("summary", cfg.S3.DiagnosticsSummary())}
			if level == "WARN" {
				logger.Warn(msg, fields...)
			} else {
				logger.Info(msg, fields...)
			}
			logger.Info("mode=local (auto, S3 not configured)")
			return newLocal(cfg)
		}

		store, err := NewS3Store(ctx, cfg.S3)
		if err != nil {
			logger.Warn("s3 init failed, fallback=local", zap.Error(err))
			return newLocal(cfg)
		}

		logger.Info("mode=s3 (auto, configured)", zap.String("summary", cfg.S3.DiagnosticsSummary()))
		return store, appcfg.BlobModeS3, nil

	case appcfg.BlobModeS3:
		if missing := cfg.S3.MissingRequired(); len(missing) > 0 {
			logger.Error("s3 config incomplete", zap.Strings("missing", missing), zap.String("summary", cfg.S3.DiagnosticsSummary()))
			return nil, "", fmt.Errorf("blob mode s3 requested but missing required config: %s", strings.Join(missing, ", "))
		}

		store, err := NewS3Store(ctx, cfg.S3)
		if err != nil {
			return nil, "", fmt.Errorf("blob mode s3 init failed: %w", err)
		}

		logger.Info("mode=s3 (forced)", zap.String("summary", cfg.S3.DiagnosticsSummary()))
		return store, appcfg.BlobModeS3, nil

	default:
		return nil, "", fmt.Errorf("unsupported blob mode: %s", mode)
	}
}

func newLocal(cfg appcfg.BlobConfig) (Store, string, error) {
	store, err := NewLocalStore(cfg.LocalDir, ExportsURLPrefix)
	if err != nil {
		return nil, "", err
	}
	return store, appcfg.BlobModeLocal, nil
}
