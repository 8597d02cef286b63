package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/dgallion1/plotextract/internal/archive"
	"github.com/dgallion1/plotextract/internal/figure"
	"github.com/dgallion1/plotextract/internal/imagetool"
	"github.com/dgallion1/plotextract/internal/latex"
	"github.com/dgallion1/plotextract/internal/pdftext"
	"github.com/dgallion1/plotextract/internal/record"
	"github.com/dgallion1/plotextract/internal/refcontext"
)

// WorkerConfig carries what a Worker needs beyond its collaborators.
type WorkerConfig struct {
	ScratchDir     string
	OutputDir      string
	KeepScratch    bool
	ExtractTimeout time.Duration

	Scan    latex.Options
	Context refcontext.Options

	// PDFText enables text sidecars for archives without LaTeX source.
	PDFText bool
}

// Worker processes a single archive.
type Worker struct {
	cfg       WorkerConfig
	tool      *imagetool.Tool
	contexts  *refcontext.Extractor
	pdf       *pdftext.Extractor
	catalogue Lookuper
	squash    *record.SquashWriter
	log       *slog.Logger
}

// NewWorker wires a worker. catalogue and squash may be nil: records then
// carry no catalogue id and are written one file per archive.
func NewWorker(cfg WorkerConfig, tool *imagetool.Tool, pdf *pdftext.Extractor, catalogue Lookuper, squash *record.SquashWriter, log *slog.Logger) *Worker {
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}
	return &Worker{
		cfg:       cfg,
		tool:      tool,
		contexts:  refcontext.New(cfg.Context),
		pdf:       pdf,
		catalogue: catalogue,
		squash:    squash,
		log:       log,
	}
}

// Process runs the full extraction pipeline for a job. Outcomes are
// recorded on the job; nothing is returned.
func (w *Worker) Process(ctx context.Context, job *Job) {
	log := w.log.With("job_id", job.ID, "archive", job.Archive)

	hash, err := FileHashHex(job.Archive)
	if err != nil {
		log.Error("archive unreadable", "error", err)
		job.AddError(err.Error())
		job.SetStatus(StatusFailed, "extracting")
		return
	}
	job.setHash(hash)

	// Phase 1: Extract
	job.SetStatus(StatusExtracting, "extracting")
	scratch := filepath.Join(w.cfg.ScratchDir, job.Identifier+"_"+job.ID)
	keep := w.cfg.KeepScratch
	defer func() {
		if !keep {
			os.RemoveAll(scratch)
		}
	}()

	extractCtx := ctx
	if w.cfg.ExtractTimeout > 0 {
		var cancel context.CancelFunc
		extractCtx, cancel = context.WithTimeout(ctx, w.cfg.ExtractTimeout)
		defer cancel()
	}
	res, err := archive.Extract(extractCtx, job.Archive, scratch)
	if err != nil {
		job.AddError(fmt.Sprintf("extract: %s", err))
		if errors.Is(err, archive.ErrTimeout) {
			log.Warn("extraction timed out", "error", err)
			job.SetStatus(StatusTimeout, "extracting")
			return
		}
		log.Error("extraction failed", "error", err)
		job.SetStatus(StatusFailed, "extracting")
		return
	}
	job.SetExtracted(len(res.All), len(res.Sources), len(res.Images))
	log.Info("extracted archive", "files", len(res.All), "sources", len(res.Sources), "images", len(res.Images))

	if len(res.Sources) == 0 {
		if w.textOnly(ctx, log, job, res) {
			keep = true
		}
		return
	}
	if len(res.Images) == 0 {
		log.Info("no images in archive")
		job.SetStatus(StatusEmpty, "extracting")
		return
	}

	// Phase 2: Convert
	job.SetStatus(StatusConverting, "converting")
	images := w.tool.ConvertAll(ctx, res.Images)
	job.SetConverted(len(images))
	if len(images) == 0 {
		log.Warn("no image could be converted")
		job.AddError("no convertible images")
		job.SetStatus(StatusEmpty, "converting")
		return
	}

	// Phase 3: Scan
	job.SetStatus(StatusScanning, "scanning")
	tuples := w.scan(ctx, log, job, res, images)
	job.SetFigures(len(tuples))
	if len(tuples) == 0 {
		log.Info("no figures found")
		job.SetStatus(StatusEmpty, "scanning")
		return
	}

	// Phase 4: Write
	job.SetStatus(StatusWriting, "writing")
	var refno *int64
	if w.catalogue != nil {
		refno, err = w.catalogue.Lookup(ctx, job.Identifier)
		if err != nil {
			log.Warn("catalogue lookup failed, writing record without id", "error", err)
			job.AddError(fmt.Sprintf("catalogue: %s", err))
		}
	}

	rec, sidecars := record.Build(tuples, job.Identifier, refno)
	if rec == nil {
		job.SetStatus(StatusEmpty, "writing")
		return
	}
	// Record paths point into scratch from here on.
	keep = true

	if err := record.WriteSidecars(sidecars); err != nil {
		log.Error("writing context sidecars failed", "error", err)
		job.AddError(err.Error())
		job.SetStatus(StatusFailed, "writing")
		return
	}

	output, err := w.writeRecord(rec, job.Identifier)
	if err != nil {
		log.Error("writing record failed", "error", err)
		job.AddError(err.Error())
		job.SetStatus(StatusFailed, "writing")
		return
	}
	job.SetWritten(len(rec.Entries), len(sidecars), output)
	log.Info("archive complete", "figures", len(tuples), "entries", len(rec.Entries), "output", output)
	job.SetStatus(StatusCompleted, "done")
}

// textOnly handles an archive without LaTeX source: at most a PDF text
// sidecar is produced. It sets the final job status and reports whether a
// sidecar was written.
func (w *Worker) textOnly(ctx context.Context, log *slog.Logger, job *Job, res archive.Result) bool {
	if !w.cfg.PDFText || w.pdf == nil {
		log.Info("no latex source")
		job.SetStatus(StatusEmpty, "extracting")
		return false
	}
	pdf, ok := pdftext.FindPDF(res.All)
	if !ok {
		log.Info("no latex source and no pdf")
		job.SetStatus(StatusEmpty, "extracting")
		return false
	}
	out, err := w.pdf.WriteSidecar(ctx, pdf)
	if err != nil {
		job.AddError(fmt.Sprintf("pdf text: %s", err))
		if errors.Is(err, pdftext.ErrTimeout) {
			log.Warn("pdf text extraction timed out", "pdf", pdf, "error", err)
			job.SetStatus(StatusTimeout, "pdf text")
			return false
		}
		log.Warn("pdf text extraction failed", "pdf", pdf, "error", err)
		job.SetStatus(StatusEmpty, "pdf text")
		return false
	}
	job.SetWritten(0, 1, out)
	log.Info("wrote pdf text sidecar", "path", out)
	job.SetStatus(StatusEmpty, "pdf text")
	return true
}

// scan runs the figure scanner over every source, resolves image names to
// converted files and attaches reference contexts.
func (w *Worker) scan(ctx context.Context, log *slog.Logger, job *Job, res archive.Result, images []string) []figure.Tuple {
	locator := figure.NewLocator(images)

	opts := w.cfg.Scan
	opts.CommasOK = res.CommasInNames
	opts.Images = locator
	opts.Rotator = w.tool
	opts.Log = log
	scanner := latex.NewScanner(opts)

	texts := make(map[string]string)
	var all []figure.Tuple
	for _, src := range res.Sources {
		found, err := scanner.ScanFile(ctx, src, true)
		if err != nil {
			log.Warn("scan failed", "source", src, "error", err)
			job.AddError(err.Error())
			continue
		}
		for _, t := range found {
			if t.Source == "" {
				t.Source = src
			}
			img, ok := locator.Locate(t.Image, filepath.Dir(t.Source))
			if !ok && t.Source != src {
				img, ok = locator.Locate(t.Image, filepath.Dir(src))
			}
			if !ok {
				log.Debug("figure image not found", "image", t.Image, "source", t.Source)
				continue
			}
			t.Image = img

			text, seen := texts[t.Source]
			if !seen {
				data, err := os.ReadFile(t.Source)
				if err != nil {
					log.Warn("reading source for contexts failed", "source", t.Source, "error", err)
				}
				text = string(data)
				texts[t.Source] = text
			}
			all = append(all, w.contexts.Extract(t, text))
		}
	}
	return figure.Dedup(all)
}

func (w *Worker) writeRecord(rec *record.Record, identifier string) (string, error) {
	if w.squash != nil {
		if err := w.squash.Append(rec); err != nil {
			return "", err
		}
		return w.squash.Path(), nil
	}
	path := filepath.Join(w.cfg.OutputDir, identifier+".xml")
	if err := rec.WriteFile(path); err != nil {
		return "", err
	}
	return path, nil
}
