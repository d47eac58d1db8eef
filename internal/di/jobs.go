// Package di provides dependency injection for scheduler jobs.
package di

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/aristath/turtle/internal/config"
	"github.com/aristath/turtle/internal/reliability"
	"github.com/aristath/turtle/internal/scheduler"
	"github.com/rs/zerolog"
)

const (
	checkDatabaseSchedule = "0 0 * * * *" // hourly
	reconcileJobTimeout   = 5 * time.Minute
	backupJobTimeout      = 10 * time.Minute
)

// RegisterJobs creates the background jobs and schedules the enabled ones.
// Every job is returned for manual triggering via API, scheduled or not.
func RegisterJobs(container *Container, cfg *config.Config, log zerolog.Logger) (*JobInstances, error) {
	if container == nil || container.Scheduler == nil {
		return nil, fmt.Errorf("services must be initialized before jobs")
	}

	instances := &JobInstances{}

	// ==========================================
	// Database health
	// ==========================================
	checkDatabase := scheduler.NewCheckDatabaseJob(container.PortfolioDB, log)
	if err := container.Scheduler.AddJob(checkDatabaseSchedule, checkDatabase); err != nil {
		return nil, fmt.Errorf("failed to schedule %s: %w", checkDatabase.Name(), err)
	}
	instances.CheckDatabase = checkDatabase

	// ==========================================
	// Broker reconciliation
	// ==========================================
	reconcile := scheduler.NewReconcileJob(
		container.Engine,
		container.Sessions,
		reconcileJobTimeout,
		log,
	)
	if cfg.ReconcileSchedule != "" {
		if err := container.Scheduler.AddJob(cfg.ReconcileSchedule, reconcile); err != nil {
			return nil, fmt.Errorf("failed to schedule %s: %w", reconcile.Name(), err)
		}
	}
	instances.Reconcile = reconcile

	// ==========================================
	// Off-site backup
	// ==========================================
	if container.BackupService != nil {
		if err := os.MkdirAll(filepath.Join(cfg.DataDir, "backups"), 0755); err != nil {
			return nil, fmt.Errorf("failed to create backup staging directory: %w", err)
		}
		backup := reliability.NewBackupJob(container.BackupService, cfg.Backup.RetentionDays, backupJobTimeout, log)
		if cfg.Backup.Schedule != "" {
			if err := container.Scheduler.AddJob(cfg.Backup.Schedule, backup); err != nil {
				return nil, fmt.Errorf("failed to schedule %s: %w", backup.Name(), err)
			}
		}
		instances.Backup = backup
	}

	log.Info().Int("jobs", len(instances.All())).Msg("Jobs registered")
	return instances, nil
}
