package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/dgallion1/plotextract/internal/catalogue"
	"github.com/dgallion1/plotextract/internal/config"
	"github.com/dgallion1/plotextract/internal/imagetool"
	"github.com/dgallion1/plotextract/internal/latex"
	"github.com/dgallion1/plotextract/internal/pdftext"
	"github.com/dgallion1/plotextract/internal/record"
	"github.com/dgallion1/plotextract/internal/refcontext"
)

// Batch fans a list of archives out over a bounded set of workers.
type Batch struct {
	jobs    *JobStore
	worker  *Worker
	workers int
	log     *slog.Logger

	squash *record.SquashWriter
	client *catalogue.Client
}

// NewBatch builds the collaborators described by cfg. Close must be called
// once the batch is done to finish the squash file.
func NewBatch(cfg config.Config, log *slog.Logger) (*Batch, error) {
	b := &Batch{
		jobs:    NewJobStore(),
		workers: cfg.Workers,
		log:     log,
	}

	var lookup Lookuper
	if cfg.CatalogueURL != "" {
		client, err := catalogue.NewClient(cfg.CatalogueURL, cfg.CatalogueTimeout, cfg.CatalogueCacheSize)
		if err != nil {
			return nil, err
		}
		b.client = client
		lookup = retryLookup{next: client, log: log, backoff: Backoff}
	}

	if cfg.SquashFile != "" {
		sq, err := record.CreateSquash(cfg.SquashFile)
		if err != nil {
			return nil, err
		}
		b.squash = sq
	}

	scan := latex.DefaultOptions()
	scan.CaptionSearchBack = cfg.CaptionSearchBack
	scan.CaptionSearchForward = cfg.CaptionSearchForward

	converter := imagetool.Exec{Binary: cfg.ConvertBinary, Timeout: cfg.ConvertTimeout}
	if !converter.Available() {
		log.Warn("image converter not found, PostScript and PDF figures will be skipped", "binary", cfg.ConvertBinary)
	}
	tool := imagetool.New(converter, log)
	pdf := &pdftext.Extractor{FallbackPdftotext: cfg.PDFFallbackPdftotext, Timeout: cfg.ConvertTimeout}

	b.worker = NewWorker(WorkerConfig{
		ScratchDir:     cfg.ScratchDir,
		OutputDir:      cfg.OutputDir,
		KeepScratch:    cfg.KeepScratch,
		ExtractTimeout: cfg.ExtractTimeout,
		Scan:           scan,
		Context: refcontext.Options{
			Window:     cfg.ContextWindow,
			Words:      cfg.ContextWords,
			Sentences:  cfg.ContextSentences,
			Disallowed: cfg.ContextDisallowed,
		},
		PDFText: cfg.PDFText,
	}, tool, pdf, lookup, b.squash, log)
	return b, nil
}

// Run processes every archive and returns the final job snapshots in
// submission order. Per-archive failures are recorded on their jobs.
func (b *Batch) Run(ctx context.Context, archives []string) []JobSnapshot {
	start := time.Now()
	var g errgroup.Group
	g.SetLimit(max(b.workers, 1))

	for _, a := range archives {
		job := NewJob(a)
		b.jobs.Put(job)
		g.Go(func() error {
			if ctx.Err() != nil {
				job.AddError(ctx.Err().Error())
				job.SetStatus(StatusFailed, "queued")
				return nil
			}
			b.worker.Process(ctx, job)
			return nil
		})
	}
	g.Wait()

	snaps := b.jobs.Snapshots()
	counts := make(map[JobStatus]int)
	for _, s := range snaps {
		counts[s.Status]++
	}
	b.log.Info("batch complete",
		"archives", len(archives),
		"completed", counts[StatusCompleted],
		"empty", counts[StatusEmpty],
		"timeout", counts[StatusTimeout],
		"failed", counts[StatusFailed],
		"elapsed", time.Since(start).String(),
	)
	return snaps
}

// Close finishes the squash file and releases catalogue connections.
func (b *Batch) Close() error {
	if b.client != nil {
		b.client.Close()
	}
	if b.squash != nil {
		if err := b.squash.Close(); err != nil {
			return fmt.Errorf("close squash file: %w", err)
		}
		b.log.Info("squash file closed", "path", b.squash.Path(), "records", b.squash.Records())
	}
	return nil
}
