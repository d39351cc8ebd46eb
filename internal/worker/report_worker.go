// Package worker recomputes and exports monthly reports in response to
// ledger change messages, with a periodic pass as backup for lost
// messages.
package worker

import (
	"context"
	"fmt"
	"time"

	"tally/internal/amqp"
	"tally/internal/log"
	"tally/internal/services"
)

// ReportExporter is the outbound side of the worker.
type ReportExporter interface {
	ExportReport(ctx context.Context, report services.MonthReport) error
}

type ReportWorker struct {
	summaries *services.SummaryService
	exporter  ReportExporter
	interval  time.Duration
	logger    *log.Logger
}

func NewReportWorker(summaries *services.SummaryService, exporter ReportExporter, interval time.Duration, logger *log.Logger) *ReportWorker {
	if logger == nil {
		logger = log.New(log.DefaultConfig())
	}
	return &ReportWorker{
		summaries: summaries,
		exporter:  exporter,
		interval:  interval,
		logger:    logger.WithComponent(log.ComponentWorker),
	}
}

// HandleChangeMessage recomputes the changed month and exports it.
// Returning an error requeues the message.
func (w *ReportWorker) HandleChangeMessage(ctx context.Context, msg *amqp.LedgerChangeMessage) error {
	w.logger.InfoContext(ctx, "Processing ledger change",
		log.FieldTransactionID, msg.TransactionID,
		log.FieldYear, msg.Year,
		log.FieldMonth, msg.Month,
		"action", msg.Action)

	// The cached entry predates the change.
	w.summaries.InvalidateMonth(msg.Year, msg.Month)

	return w.exportMonth(ctx, msg.Year, msg.Month)
}

// Run exports the current month at startup and then on every tick until
// the context is cancelled.
func (w *ReportWorker) Run(ctx context.Context) error {
	if err := w.exportCurrentMonth(ctx); err != nil {
		w.logger.ErrorContext(ctx, "Startup export failed", log.FieldError, err)
	}

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			w.logger.InfoContext(ctx, "Report worker stopping", "reason", ctx.Err())
			return ctx.Err()
		case <-ticker.C:
			if err := w.exportCurrentMonth(ctx); err != nil {
				w.logger.ErrorContext(ctx, "Periodic export failed", log.FieldError, err)
			}
		}
	}
}

func (w *ReportWorker) exportCurrentMonth(ctx context.Context) error {
	now := time.Now().UTC()
	return w.exportMonth(ctx, now.Year(), int(now.Month()))
}

func (w *ReportWorker) exportMonth(ctx context.Context, year, month int) error {
	report, err := w.summaries.Report(ctx, year, month)
	if err != nil {
		return fmt.Errorf("compute report: %w", err)
	}
	if w.exporter == nil {
		w.logger.WarnContext(ctx, "No exporter configured, skipping export",
			log.FieldYear, year, log.FieldMonth, month)
		return nil
	}
	if err := w.exporter.ExportReport(ctx, report); err != nil {
		return fmt.Errorf("export report: %w", err)
	}
	return nil
}
