package jobs

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/hibiken/asynq"

	"github.com/aspire-solar/billdesk/internal/invoice"
	jobmetrics "github.com/aspire-solar/billdesk/internal/jobs"
)

// InvoiceDocuments is the invoice behaviour the render jobs need.
type InvoiceDocuments interface {
	RegenerateDocument(ctx context.Context, id string) (*invoice.Invoice, error)
	List(ctx context.Context, filter invoice.ListFilter) ([]invoice.Invoice, error)
}

// InvoiceRenderJob renders invoice PDFs out of band.
type InvoiceRenderJob struct {
	Invoices  InvoiceDocuments
	Scheduler invoice.RenderScheduler
	Logger    *slog.Logger
	Metrics   *jobmetrics.Metrics
}

// NewInvoiceRenderJob constructs the job handler.
func NewInvoiceRenderJob(invoices InvoiceDocuments, scheduler invoice.RenderScheduler, logger *slog.Logger, metrics *jobmetrics.Metrics) *InvoiceRenderJob {
	return &InvoiceRenderJob{Invoices: invoices, Scheduler: scheduler, Logger: logger, Metrics: metrics}
}

// Handle executes an invoice:render task. Deleted invoices are dropped
// without retry.
func (j *InvoiceRenderJob) Handle(ctx context.Context, task *asynq.Task) error {
	if j == nil || j.Invoices == nil {
		return fmt.Errorf("jobs: invoice render not configured: %w", asynq.SkipRetry)
	}
	payload, err := decode[InvoiceRenderPayload](task)
	if err != nil {
		return err
	}
	tracker := j.Metrics.Track(TaskInvoiceRender)
	inv, err := j.Invoices.RegenerateDocument(ctx, payload.InvoiceID)
	if errors.Is(err, invoice.ErrNotFound) {
		jobLog(j.Logger, TaskInvoiceRender).Info("invoice gone", slog.String("invoice_id", payload.InvoiceID))
		return tracker.End(nil)
	}
	if err != nil {
		jobLog(j.Logger, TaskInvoiceRender).Warn("render invoice", slog.String("invoice_id", payload.InvoiceID), slog.Any("error", err))
		return tracker.End(err)
	}
	jobLog(j.Logger, TaskInvoiceRender).Info("invoice rendered",
		slog.String("invoice_id", inv.ID), slog.String("number", inv.InvoiceNumber))
	return tracker.End(nil)
}

// HandleBackfill executes an invoice:backfill task, scheduling a render for
// every invoice still missing its PDF.
func (j *InvoiceRenderJob) HandleBackfill(ctx context.Context, task *asynq.Task) error {
	if j == nil || j.Invoices == nil || j.Scheduler == nil {
		return fmt.Errorf("jobs: invoice backfill not configured: %w", asynq.SkipRetry)
	}
	payload, err := decode[InvoiceBackfillPayload](task)
	if err != nil {
		return err
	}
	tracker := j.Metrics.Track(TaskInvoiceBackfill)
	pending, err := j.Invoices.List(ctx, invoice.ListFilter{MissingDocument: true, Limit: payload.Limit})
	if err != nil {
		return tracker.End(err)
	}
	var errs []error
	for _, inv := range pending {
		if err := j.Scheduler.ScheduleInvoiceRender(ctx, inv.ID); err != nil {
			errs = append(errs, err)
		}
	}
	jobLog(j.Logger, TaskInvoiceBackfill).Info("backfill scheduled",
		slog.Int("invoices", len(pending)), slog.Int("failed", len(errs)))
	return tracker.End(errors.Join(errs...))
}
