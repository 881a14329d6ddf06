package scheduler

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/pricewise/pricewise/internal/modules/history"
	"github.com/pricewise/pricewise/internal/modules/pricing"
	"github.com/pricewise/pricewise/internal/modules/training"
	"github.com/pricewise/pricewise/internal/reliability"
)

// PriceUpdateJob reprices every in-stock product.
type PriceUpdateJob struct {
	coordinator *pricing.Coordinator
	log         zerolog.Logger
}

func NewPriceUpdateJob(coordinator *pricing.Coordinator, log zerolog.Logger) *PriceUpdateJob {
	return &PriceUpdateJob{
		coordinator: coordinator,
		log:         log.With().Str("job", "price_update").Logger(),
	}
}

func (j *PriceUpdateJob) Name() string { return "price_update" }

func (j *PriceUpdateJob) Run() error {
	result, err := j.coordinator.UpdateAll()
	if err != nil {
		return err
	}

	j.log.Info().
		Int("updated", result.Updated).
		Int("failed", result.Failed).
		Msg("Price update pass completed")

	return nil
}

// HistoryRollupJob snapshots weekly sales counters into the history
// store and rotates them for the new week.
type HistoryRollupJob struct {
	rollup *history.RollupService
}

func NewHistoryRollupJob(rollup *history.RollupService) *HistoryRollupJob {
	return &HistoryRollupJob{rollup: rollup}
}

func (j *HistoryRollupJob) Name() string { return "history_rollup" }

func (j *HistoryRollupJob) Run() error {
	return j.rollup.Run()
}

// TrainJob retrains the pricing model and invalidates the cached one so
// the next prediction picks up the new artifact.
type TrainJob struct {
	trainer *training.Trainer
	learned *pricing.LearnedStrategy
	log     zerolog.Logger
}

func NewTrainJob(trainer *training.Trainer, learned *pricing.LearnedStrategy, log zerolog.Logger) *TrainJob {
	return &TrainJob{
		trainer: trainer,
		learned: learned,
		log:     log.With().Str("job", "train").Logger(),
	}
}

func (j *TrainJob) Name() string { return "train" }

func (j *TrainJob) Run() error {
	artifact, err := j.trainer.Train()
	if err != nil {
		return err
	}

	j.learned.Invalidate()

	j.log.Info().
		Int("model_version", artifact.ModelVersion).
		Float64("test_mae", artifact.Metrics.TestMAE).
		Msg("Model retrained and activated")

	return nil
}

// BackupJob archives the databases and model artifact.
type BackupJob struct {
	backup  *reliability.BackupService
	timeout time.Duration
}

func NewBackupJob(backup *reliability.BackupService) *BackupJob {
	return &BackupJob{backup: backup, timeout: 10 * time.Minute}
}

func (j *BackupJob) Name() string { return "backup" }

func (j *BackupJob) Run() error {
	ctx, cancel := context.WithTimeout(context.Background(), j.timeout)
	defer cancel()

	return j.backup.Run(ctx)
}
