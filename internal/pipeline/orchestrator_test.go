package pipeline

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/dgallion1/payrecon/internal/config"
	"github.com/dgallion1/payrecon/internal/pages"
	"github.com/dgallion1/payrecon/internal/reconcile"
)

const (
	slipA = "Monsieur DUPONT Jean\nMatricule : E042\nSalaire brut 2 500,00\nNet à payer 1 890,00"
	slipB = "Monsieur DUPONT Jean\nMatricule : E042\nSalaire brut 2 500,00\nNet payé 1 880,00"
)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func testComparer(t *testing.T) *Comparer {
	t.Helper()
	cmp, err := NewComparerFromConfig(config.Config{StatsWindow: time.Hour}, quietLogger())
	if err != nil {
		t.Fatalf("comparer: %v", err)
	}
	return cmp
}

func waitFor(t *testing.T, job *Job, want JobStatus) JobSnapshot {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		snap := job.Snapshot()
		if snap.Status == want {
			return snap
		}
		if snap.Status == StatusFailed && want != StatusFailed {
			t.Fatalf("job failed: %v", snap.Progress.Errors)
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("job did not reach %q, last status %q", want, job.Snapshot().Status)
	return JobSnapshot{}
}

func TestComparer_Compare(t *testing.T) {
	cmp := testComparer(t)
	out, err := cmp.Compare(context.Background(),
		Upload{Name: "silae.txt", Data: []byte(slipA)},
		Upload{Name: "wagyz.txt", Data: []byte(slipB)},
		pages.ModeAuto,
	)
	if err != nil {
		t.Fatalf("compare: %v", err)
	}
	if out.DocA.Method != pages.MethodPlain || out.DocB.Method != pages.MethodPlain {
		t.Errorf("unexpected methods %q/%q", out.DocA.Method, out.DocB.Method)
	}
	if len(out.Rows) != 1 {
		t.Fatalf("expected one row, got %d", len(out.Rows))
	}
	if s := reconcile.Summarize(out.Rows); s.Paired != 1 || s.Mismatches != 1 {
		t.Errorf("unexpected summary %+v", s)
	}

	snap := cmp.Stats().Snapshot()
	if snap.Extract.Count != 2 || snap.Reconcile.Count != 1 || snap.Total.Count != 1 {
		t.Errorf("unexpected stats %+v", snap)
	}
	if snap.Extract.Units != 2 || snap.Reconcile.Units != 1 || snap.Total.Units != 2 {
		t.Errorf("unexpected units %+v", snap)
	}
	if plain := snap.Extract.ByMethod[pages.MethodPlain]; plain.Count != 2 || plain.Units != 2 {
		t.Errorf("unexpected plain text breakdown %+v", snap.Extract.ByMethod)
	}
}

func TestComparer_UnsupportedFormat(t *testing.T) {
	cmp := testComparer(t)
	_, err := cmp.Compare(context.Background(),
		Upload{Name: "a.txt", Data: []byte(slipA)},
		Upload{Name: "b.xlsx", Data: []byte("PK")},
		pages.ModeAuto,
	)
	if !errors.Is(err, pages.ErrUnsupportedFormat) {
		t.Fatalf("expected ErrUnsupportedFormat, got %v", err)
	}
}

func TestNewComparerFromConfig_SchemaFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "fields.yaml")
	if err := os.WriteFile(path, []byte("fields: [\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	if _, err := NewComparerFromConfig(config.Config{SchemaFile: path}, quietLogger()); err == nil {
		t.Fatal("expected an error for a malformed schema file")
	}
}

func TestOrchestrator_ProcessesJob(t *testing.T) {
	cfg := config.Config{WorkerCount: 1, MaxQueueSize: 4, JobTTL: time.Hour}
	orch := NewOrchestrator(cfg, testComparer(t), quietLogger())
	orch.Start(context.Background())
	defer orch.Stop()

	job := NewJob(Upload{Name: "a.txt", Data: []byte(slipA)}, Upload{Name: "b.txt", Data: []byte(slipB)}, pages.ModeAuto)
	if err := orch.Submit(job); err != nil {
		t.Fatalf("submit: %v", err)
	}
	if orch.GetJob(job.ID) != job {
		t.Fatal("expected job to be registered")
	}

	snap := waitFor(t, job, StatusCompleted)
	if snap.Phase != "done" {
		t.Errorf("expected phase done, got %q", snap.Phase)
	}
	if snap.Progress.PagesA != 1 || snap.Progress.PagesB != 1 {
		t.Errorf("unexpected page counts %d/%d", snap.Progress.PagesA, snap.Progress.PagesB)
	}
	if len(snap.Rows) != 1 || snap.Summary == nil || snap.Summary.Paired != 1 {
		t.Errorf("unexpected result rows=%d summary=%+v", len(snap.Rows), snap.Summary)
	}
}

func TestOrchestrator_FailedJob(t *testing.T) {
	cfg := config.Config{WorkerCount: 1, MaxQueueSize: 4, JobTTL: time.Hour}
	orch := NewOrchestrator(cfg, testComparer(t), quietLogger())
	orch.Start(context.Background())
	defer orch.Stop()

	job := NewJob(Upload{Name: "a.odt", Data: []byte("x")}, Upload{Name: "b.txt", Data: []byte(slipB)}, pages.ModeAuto)
	if err := orch.Submit(job); err != nil {
		t.Fatalf("submit: %v", err)
	}

	snap := waitFor(t, job, StatusFailed)
	if snap.Phase != "extracting" {
		t.Errorf("expected failure while extracting, got %q", snap.Phase)
	}
	if len(snap.Progress.Errors) != 1 {
		t.Errorf("expected one error, got %v", snap.Progress.Errors)
	}
}

func TestOrchestrator_QueueFull(t *testing.T) {
	// Workers are not started, so the queue never drains.
	cfg := config.Config{WorkerCount: 1, MaxQueueSize: 1, JobTTL: time.Hour}
	orch := NewOrchestrator(cfg, testComparer(t), quietLogger())
	defer orch.Stop()

	first := NewJob(Upload{Name: "a.txt"}, Upload{Name: "b.txt"}, pages.ModeAuto)
	if err := orch.Submit(first); err != nil {
		t.Fatalf("first submit: %v", err)
	}
	second := NewJob(Upload{Name: "a.txt"}, Upload{Name: "b.txt"}, pages.ModeAuto)
	err := orch.Submit(second)
	if !errors.Is(err, ErrQueueFull) {
		t.Fatalf("expected ErrQueueFull, got %v", err)
	}
	if second.Snapshot().Status != StatusFailed {
		t.Errorf("expected rejected job to be failed, got %q", second.Snapshot().Status)
	}
	if orch.QueueDepth() != 1 {
		t.Errorf("expected queue depth 1, got %d", orch.QueueDepth())
	}
}
