/**
 * Package di provides dependency injection type definitions.
 *
 * The Container holds every long-lived instance and is handed to the HTTP
 * server and main for startup and shutdown.
 */
package di

import (
	"github.com/aristath/turtle/internal/clients/kiwoom"
	"github.com/aristath/turtle/internal/database"
	"github.com/aristath/turtle/internal/modules/portfolio"
	"github.com/aristath/turtle/internal/modules/reconciliation"
	"github.com/aristath/turtle/internal/modules/trading"
	"github.com/aristath/turtle/internal/reliability"
	"github.com/aristath/turtle/internal/scheduler"
)

// Container holds all dependencies for the application
type Container struct {
	// Database (single portfolio.db: account documents + closed-trade journal)
	PortfolioDB *database.DB

	// Clients - External API integrations
	KiwoomClient  *kiwoom.Client
	BrokerGateway *kiwoom.Gateway
	ObjectStore   reliability.ObjectStore // nil when backups are disabled

	// Repositories - Data access layer
	PortfolioRepo *portfolio.Repository
	TradeRepo     *trading.TradeRepository

	// Services - Business logic layer
	AccountLocks     *portfolio.AccountLocker // shared by every writer so one account never interleaves
	PortfolioService *portfolio.Service
	TradingService   *trading.Service
	Engine           *reconciliation.Engine
	Sessions         *reconciliation.SessionHolder // broker session shared by HTTP reads and the reconcile job
	BackupService    *reliability.BackupService    // nil when backups are disabled

	Scheduler *scheduler.Scheduler
}

// JobInstances holds the registered jobs for manual triggering via API
type JobInstances struct {
	CheckDatabase scheduler.Job
	Reconcile     scheduler.Job
	Backup        scheduler.Job // nil when backups are disabled
}

// All returns the non-nil jobs keyed by name
func (j *JobInstances) All() map[string]scheduler.Job {
	jobs := make(map[string]scheduler.Job)
	for _, job := range []scheduler.Job{j.CheckDatabase, j.Reconcile, j.Backup} {
		if job != nil {
			jobs[job.Name()] = job
		}
	}
	return jobs
}

// Close releases the database
func (c *Container) Close() error {
	if c.PortfolioDB == nil {
		return nil
	}
	return c.PortfolioDB.Close()
}
