// Package ingest walks a corpus directory and brings the document store up
// to date: new files are ingested, changed files fully replaced, unchanged
// files skipped without re-running extraction, and per-file failures are
// counted without aborting the run.
package ingest

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/google/uuid"

	"github.com/starford/quire/internal/apperr"
	"github.com/starford/quire/internal/checksum"
	"github.com/starford/quire/internal/models"
	"github.com/starford/quire/internal/pdf"
	"github.com/starford/quire/internal/store"
	"github.com/starford/quire/internal/textnorm"
)

// Outcome tags the result of ingesting one file.
type Outcome int

const (
	OutcomeIngested Outcome = iota
	OutcomeUpdated
	OutcomeSkipped
	OutcomeFailed
)

func (o Outcome) String() string {
	switch o {
	case OutcomeIngested:
		return "ingested"
	case OutcomeUpdated:
		return "updated"
	case OutcomeSkipped:
		return "skipped"
	case OutcomeFailed:
		return "failed"
	}
	return "unknown"
}

// Runner executes ingestion runs against one store.
type Runner struct {
	store     store.Corpus
	extractor pdf.Extractor
	log       *slog.Logger

	// OnOutcome, when non-nil, is called after each file is processed.
	OnOutcome func(outcome Outcome, path string)
}

// NewRunner wires a runner from its collaborators.
func NewRunner(st store.Corpus, extractor pdf.Extractor, logger *slog.Logger) *Runner {
	return &Runner{store: st, extractor: extractor, log: logger}
}

// Run ingests every PDF under sourceDir. It fails before touching the store
// when sourceDir is missing or not a directory. Per-file errors increment
// Failed and the run continues; the returned error is non-nil only for
// whole-run conditions (bad source dir, cancelled context, discovery
// failure). Discovered == Ingested+Updated+Skipped+Failed always holds on
// a completed run.
func (r *Runner) Run(ctx context.Context, sourceDir string) (models.IngestStats, error) {
	var stats models.IngestStats

	info, err := os.Stat(sourceDir)
	if err != nil {
		return stats, apperr.InvalidArgumentf("source directory does not exist: %s", sourceDir)
	}
	if !info.IsDir() {
		return stats, apperr.InvalidArgumentf("source path is not a directory: %s", sourceDir)
	}

	paths, err := Discover(sourceDir)
	if err != nil {
		return stats, err
	}
	stats.Discovered = len(paths)

	log := r.log.With(slog.String("run_id", uuid.NewString()))
	log.Info("ingest: run started",
		slog.String("source_dir", sourceDir),
		slog.Int("discovered", stats.Discovered))

	for _, path := range paths {
		select {
		case <-ctx.Done():
			return stats, ctx.Err()
		default:
		}

		outcome, err := r.ingestOne(path)
		if r.OnOutcome != nil {
			r.OnOutcome(outcome, path)
		}
		if err != nil {
			stats.Failed++
			log.Warn("ingest: file failed", slog.String("path", path), slog.String("error", err.Error()))
			continue
		}
		switch outcome {
		case OutcomeIngested:
			stats.Ingested++
			log.Info("ingest: new document", slog.String("path", path))
		case OutcomeUpdated:
			stats.Updated++
			log.Info("ingest: updated document", slog.String("path", path))
		case OutcomeSkipped:
			stats.Skipped++
			log.Debug("ingest: unchanged", slog.String("path", path))
		}
	}

	log.Info("ingest: run complete",
		slog.Int("discovered", stats.Discovered),
		slog.Int("ingested", stats.Ingested),
		slog.Int("updated", stats.Updated),
		slog.Int("skipped", stats.Skipped),
		slog.Int("failed", stats.Failed))
	return stats, nil
}

// ingestOne carries one file through digest, change check, extraction,
// normalization, and the transactional write. Unchanged files return
// OutcomeSkipped before extraction ever runs.
func (r *Runner) ingestOne(path string) (Outcome, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return OutcomeFailed, fmt.Errorf("read: %w", err)
	}
	digest := checksum.Sum(data)

	existing, err := r.store.LoadExisting(path)
	if err != nil {
		return OutcomeFailed, err
	}
	if existing != nil && existing.SHA256 == digest {
		return OutcomeSkipped, nil
	}

	rawPages, err := r.extractor.ExtractPages(data)
	if err != nil {
		return OutcomeFailed, fmt.Errorf("extract: %w", err)
	}
	pages := make([]string, len(rawPages))
	for i, raw := range rawPages {
		pages[i] = textnorm.Normalize(raw)
	}

	written, err := r.store.WriteDocument(path, filepath.Base(path), digest, pages, existing)
	if err != nil {
		return OutcomeFailed, err
	}
	if written == store.WriteUpdated {
		return OutcomeUpdated, nil
	}
	return OutcomeIngested, nil
}
