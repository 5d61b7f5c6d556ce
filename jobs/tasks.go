// Package jobs runs background work on asynq: removing stored files and
// rendering invoice PDFs that could not be produced inline.
package jobs

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/hibiken/asynq"
)

const (
	// QueueDefault is the default queue name for background jobs.
	QueueDefault = "default"
	// TaskStorageDelete removes a stored file.
	TaskStorageDelete = "storage:delete"
	// TaskInvoiceRender renders and attaches an invoice PDF.
	TaskInvoiceRender = "invoice:render"
	// TaskInvoiceBackfill schedules renders for invoices without a PDF.
	TaskInvoiceBackfill = "invoice:backfill"

	storageDeleteRetries = 5
	invoiceRenderRetries = 3
)

var errEmptyPayload = errors.New("jobs: empty payload field")

// StorageDeletePayload names the file to remove.
type StorageDeletePayload struct {
	FileName string `json:"file_name"`
}

// InvoiceRenderPayload names the invoice to render.
type InvoiceRenderPayload struct {
	InvoiceID string `json:"invoice_id"`
}

// InvoiceBackfillPayload caps how many invoices one sweep schedules.
type InvoiceBackfillPayload struct {
	Limit int `json:"limit"`
}

// NewStorageDeleteTask constructs a file removal task.
func NewStorageDeleteTask(fileName string) (*asynq.Task, error) {
	fileName = strings.TrimSpace(fileName)
	if fileName == "" {
		return nil, fmt.Errorf("%w: file_name", errEmptyPayload)
	}
	body, err := json.Marshal(StorageDeletePayload{FileName: fileName})
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskStorageDelete, body, asynq.Queue(QueueDefault), asynq.MaxRetry(storageDeleteRetries)), nil
}

// NewInvoiceRenderTask constructs an invoice render task.
func NewInvoiceRenderTask(invoiceID string) (*asynq.Task, error) {
	if strings.TrimSpace(invoiceID) == "" {
		return nil, fmt.Errorf("%w: invoice_id", errEmptyPayload)
	}
	body, err := json.Marshal(InvoiceRenderPayload{InvoiceID: invoiceID})
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskInvoiceRender, body, asynq.Queue(QueueDefault), asynq.MaxRetry(invoiceRenderRetries)), nil
}

// NewInvoiceBackfillTask constructs the periodic sweep task.
func NewInvoiceBackfillTask(limit int) (*asynq.Task, error) {
	if limit <= 0 {
		limit = 50
	}
	body, err := json.Marshal(InvoiceBackfillPayload{Limit: limit})
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskInvoiceBackfill, body, asynq.Queue(QueueDefault)), nil
}

func decode[T any](task *asynq.Task) (T, error) {
	var payload T
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		return payload, fmt.Errorf("jobs: decode %s: %v: %w", task.Type(), err, asynq.SkipRetry)
	}
	return payload, nil
}
