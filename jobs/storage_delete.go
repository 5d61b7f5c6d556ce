package jobs

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/hibiken/asynq"

	jobmetrics "github.com/aspire-solar/billdesk/internal/jobs"
	"github.com/aspire-solar/billdesk/internal/observability"
	"github.com/aspire-solar/billdesk/internal/storage"
)

// StorageDeleteJob removes files whose owning rows are already gone.
type StorageDeleteJob struct {
	Store   storage.Store
	Logger  *slog.Logger
	Metrics *jobmetrics.Metrics
	Files   *observability.Metrics
}

// NewStorageDeleteJob constructs the job handler.
func NewStorageDeleteJob(store storage.Store, logger *slog.Logger, metrics *jobmetrics.Metrics, files *observability.Metrics) *StorageDeleteJob {
	return &StorageDeleteJob{Store: store, Logger: logger, Metrics: metrics, Files: files}
}

// Handle executes a storage:delete task. Missing files count as removed.
func (j *StorageDeleteJob) Handle(ctx context.Context, task *asynq.Task) error {
	if j == nil || j.Store == nil {
		return fmt.Errorf("jobs: storage delete not configured: %w", asynq.SkipRetry)
	}
	payload, err := decode[StorageDeletePayload](task)
	if err != nil {
		return err
	}
	if payload.FileName == "" {
		return fmt.Errorf("%w: file_name: %w", errEmptyPayload, asynq.SkipRetry)
	}
	tracker := j.Metrics.Track(TaskStorageDelete)
	err = j.Store.Delete(ctx, payload.FileName)
	if storage.IsNotFound(err) {
		err = nil
	}
	j.Files.FileRemoved(err == nil)
	if err != nil {
		retried, _ := asynq.GetRetryCount(ctx)
		jobLog(j.Logger, TaskStorageDelete).Warn("remove file",
			slog.String("file", payload.FileName), slog.Int("retry", retried), slog.Any("error", err))
		return tracker.End(err)
	}
	jobLog(j.Logger, TaskStorageDelete).Info("file removed", slog.String("file", payload.FileName))
	return tracker.End(nil)
}

func jobLog(logger *slog.Logger, task string) *slog.Logger {
	if logger == nil {
		logger = slog.Default()
	}
	return logger.With(slog.String("job", task))
}
