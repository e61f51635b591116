package notification

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"
)

// TaskConfig holds the cadences of the three background loops.
type TaskConfig struct {
	RetryInterval   time.Duration
	ReceiptInterval time.Duration
	SweepInterval   time.Duration
}

// DefaultTaskConfig matches the provider-recommended receipt polling
// cadence and the reference retry/sweep intervals.
func DefaultTaskConfig() TaskConfig {
	return TaskConfig{
		RetryInterval:   5 * time.Minute,
		ReceiptInterval: 15 * time.Minute,
		SweepInterval:   time.Hour,
	}
}

// Tasks owns the periodic background jobs: retry sweep, receipt
// reconciliation, and expiry sweep. One scheduler with three named jobs;
// the jobs coordinate only through the record store.
type Tasks struct {
	svc  *Service
	cron *cron.Cron
	log  zerolog.Logger
}

func NewTasks(svc *Service, cfg TaskConfig, log zerolog.Logger) *Tasks {
	t := &Tasks{
		svc:  svc,
		cron: cron.New(),
		log:  log,
	}

	t.cron.Schedule(cron.Every(cfg.RetryInterval), cron.FuncJob(t.runRetry))
	t.cron.Schedule(cron.Every(cfg.ReceiptInterval), cron.FuncJob(t.runReceipts))
	t.cron.Schedule(cron.Every(cfg.SweepInterval), cron.FuncJob(t.runSweep))

	return t
}

// Start launches the scheduler and kicks off immediate first runs of the
// retry and receipt jobs so pending work is picked up right after boot.
func (t *Tasks) Start() {
	t.log.Info().Msg("starting background notification tasks")

	go func() {
		t.runReceipts()
		t.runRetry()
	}()

	t.cron.Start()
}

// Stop halts the scheduler. Running jobs finish on their own.
func (t *Tasks) Stop() {
	t.cron.Stop()
	t.log.Info().Msg("background notification tasks stopped")
}

func (t *Tasks) runRetry() {
	if err := t.svc.RetryFailed(context.Background()); err != nil {
		t.log.Error().Err(err).Msg("retry task failed")
	}
}

func (t *Tasks) runReceipts() {
	if err := t.svc.CheckReceipts(context.Background()); err != nil {
		t.log.Error().Err(err).Msg("receipt task failed")
	}
}

func (t *Tasks) runSweep() {
	if err := t.svc.SweepExpired(context.Background()); err != nil {
		t.log.Error().Err(err).Msg("sweep task failed")
	}
}
