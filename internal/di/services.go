// Package di provides dependency injection for service implementations.
package di

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/aristath/turtle/internal/clients/kiwoom"
	"github.com/aristath/turtle/internal/config"
	"github.com/aristath/turtle/internal/modules/portfolio"
	"github.com/aristath/turtle/internal/modules/reconciliation"
	"github.com/aristath/turtle/internal/modules/trading"
	"github.com/aristath/turtle/internal/reliability"
	"github.com/aristath/turtle/internal/scheduler"
	"github.com/rs/zerolog"
)

// InitializeServices creates clients and services in dependency order
func InitializeServices(container *Container, cfg *config.Config, log zerolog.Logger) error {
	if container == nil || container.PortfolioRepo == nil {
		return fmt.Errorf("repositories must be initialized before services")
	}

	// Broker
	container.KiwoomClient = kiwoom.NewClient(log,
		kiwoom.WithBaseURL(cfg.Kiwoom.BaseURL),
		kiwoom.WithRateLimit(cfg.Kiwoom.RateLimit),
		kiwoom.WithTimeout(cfg.Kiwoom.Timeout),
	)
	container.BrokerGateway = kiwoom.NewGateway(container.KiwoomClient, log)
	switch {
	case !cfg.Kiwoom.HasCredentials():
		log.Warn().Msg("Kiwoom credentials not configured - portfolio reads will use the stored ledger")
	case cfg.Kiwoom.AccountNo == "":
		log.Warn().Msg("KIWOOM_ACCOUNT_NO not set - no account is linked to the broker")
	default:
		log.Info().Str("account_id", cfg.Kiwoom.AccountNo).Msg("Broker account linked")
	}

	// Ledger writers share one locker with the reconciliation write-back
	container.AccountLocks = portfolio.NewAccountLocker()
	container.PortfolioService = portfolio.NewService(
		container.PortfolioRepo,
		container.AccountLocks,
		portfolio.Defaults{
			InitialBalance: cfg.DefaultInitialBalance,
			RiskSettings:   cfg.FallbackRisk,
		},
		log,
	)
	container.TradingService = trading.NewService(
		container.PortfolioDB.Conn(),
		container.PortfolioRepo,
		container.TradeRepo,
		container.AccountLocks,
		log,
	)

	container.Engine = reconciliation.NewEngine(
		container.PortfolioRepo,
		container.BrokerGateway,
		container.AccountLocks,
		reconciliation.EngineConfig{
			AppKey:                cfg.Kiwoom.AppKey,
			SecretKey:             cfg.Kiwoom.SecretKey,
			BrokerAccountID:       cfg.Kiwoom.AccountNo,
			DefaultInitialBalance: cfg.DefaultInitialBalance,
			FallbackRisk:          cfg.FallbackRisk,
			Timeout:               cfg.Kiwoom.Timeout,
		},
		log,
	)
	container.Sessions = &reconciliation.SessionHolder{}

	// Off-site backups (optional)
	if cfg.Backup.Bucket != "" {
		store, err := reliability.NewS3Client(context.Background(), reliability.S3Config{
			Endpoint:        cfg.Backup.Endpoint,
			Region:          cfg.Backup.Region,
			Bucket:          cfg.Backup.Bucket,
			AccessKeyID:     cfg.Backup.AccessKeyID,
			SecretAccessKey: cfg.Backup.SecretKey,
		}, log)
		if err != nil {
			return fmt.Errorf("failed to create backup store: %w", err)
		}
		container.ObjectStore = store
		container.BackupService = reliability.NewBackupService(
			container.PortfolioDB,
			store,
			filepath.Join(cfg.DataDir, "backups"),
			log,
		)
	}

	container.Scheduler = scheduler.New(log)

	log.Info().Msg("Services initialized")
	return nil
}
