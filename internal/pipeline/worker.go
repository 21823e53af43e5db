package pipeline

import (
	"context"
	"log/slog"
)

// Worker processes a single comparison job.
type Worker struct {
	cmp *Comparer
	log *slog.Logger
}

func NewWorker(cmp *Comparer, log *slog.Logger) *Worker {
	return &Worker{cmp: cmp, log: log}
}

// Process runs extraction and reconciliation for a job.
func (w *Worker) Process(ctx context.Context, job *Job) {
	log := w.log.With("job_id", job.ID, "filename_a", job.FilenameA, "filename_b", job.FilenameB)
	a, b := job.Uploads()

	// Phase 1: pages of both files.
	job.SetStatus(StatusExtracting, "extracting")
	docA, docB, err := w.cmp.ExtractBoth(ctx, a, b, job.Mode)
	if err != nil {
		log.Error("page extraction failed", "error", err)
		job.AddError(err.Error())
		job.Release()
		job.SetStatus(StatusFailed, "extracting")
		return
	}
	job.SetDocuments(docA, docB)

	// Phase 2: pairing and field comparison.
	job.SetStatus(StatusReconciling, "reconciling")
	rows, err := w.cmp.Reconcile(docA, docB)
	if err != nil {
		log.Error("reconciliation failed", "error", err)
		job.AddError(err.Error())
		job.Release()
		job.SetStatus(StatusFailed, "reconciling")
		return
	}
	job.SetRows(rows)
	job.SetStatus(StatusCompleted, "done")
	log.Info("job complete", "rows", len(rows))
}
