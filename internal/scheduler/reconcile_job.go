package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/aristath/turtle/internal/modules/reconciliation"
	"github.com/rs/zerolog"
)

// ReconcileJob refreshes the broker-linked account so its stored cash and
// equity track the live account between reads
type ReconcileJob struct {
	engine   *reconciliation.Engine
	sessions *reconciliation.SessionHolder
	timeout  time.Duration
	log      zerolog.Logger
}

// NewReconcileJob creates a reconcile job
func NewReconcileJob(
	engine *reconciliation.Engine,
	sessions *reconciliation.SessionHolder,
	timeout time.Duration,
	log zerolog.Logger,
) *ReconcileJob {
	return &ReconcileJob{
		engine:   engine,
		sessions: sessions,
		timeout:  timeout,
		log:      log.With().Str("job", "reconcile_accounts").Logger(),
	}
}

// Name returns the job name
func (j *ReconcileJob) Name() string {
	return "reconcile_accounts"
}

// Run reconciles the broker account. Other accounts have nothing to pull.
func (j *ReconcileJob) Run() error {
	accountID := j.engine.BrokerAccountID()
	if accountID == "" {
		j.log.Debug().Msg("No broker account configured, nothing to reconcile")
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), j.timeout)
	defer cancel()

	res, err := j.engine.ReconcileWithHolder(ctx, j.sessions, accountID)
	if err != nil {
		return fmt.Errorf("failed to reconcile %s: %w", accountID, err)
	}

	event := j.log.Info()
	if !res.View.Persisted {
		event = j.log.Warn()
	}
	event.
		Str("account_id", accountID).
		Str("tier", string(res.View.Tier)).
		Bool("persisted", res.View.Persisted).
		Msg("Reconciliation pass completed")
	return nil
}
