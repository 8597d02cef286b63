package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"sort"
	"syscall"

	"github.com/dgallion1/plotextract/internal/config"
	"github.com/dgallion1/plotextract/internal/pipeline"
)

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	fs := flag.NewFlagSet("plotextract", flag.ContinueOnError)
	fs.Usage = func() {
		fmt.Fprintln(fs.Output(), "usage: plotextract [flags] archive...")
		fs.PrintDefaults()
	}
	var (
		envFile   = fs.String("env", "", "read environment variables from this file (default ./.env if present)")
		dir       = fs.String("dir", "", "process every regular file in this directory")
		squash    = fs.String("squash", "", "append all records to this single file")
		out       = fs.String("out", "", "directory for per-archive record files")
		scratch   = fs.String("scratch", "", "directory archives are extracted into")
		workers   = fs.Int("workers", 0, "archives processed in parallel")
		catalogue = fs.String("catalogue", "", "catalogue base URL for record id lookups")
		pdfText   = fs.Bool("pdf-text", false, "write a text sidecar for archives that only contain a PDF")
		keep      = fs.Bool("keep-scratch", false, "keep extracted files of empty or failed archives")
	)
	if err := fs.Parse(args); err != nil {
		return 2
	}

	var envErr error
	if *envFile != "" {
		envErr = config.LoadEnv(*envFile)
	} else {
		envErr = config.LoadEnv()
	}

	cfg := config.Load()
	log := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: cfg.SlogLevel()}))
	if envErr != nil {
		log.Error("loading env file failed", "error", envErr)
		return 1
	}

	// Flags override the environment.
	fs.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "squash":
			cfg.SquashFile = *squash
		case "out":
			cfg.OutputDir = *out
		case "scratch":
			cfg.ScratchDir = *scratch
		case "workers":
			if *workers > 0 {
				cfg.Workers = *workers
			}
		case "catalogue":
			cfg.CatalogueURL = *catalogue
		case "pdf-text":
			cfg.PDFText = *pdfText
		case "keep-scratch":
			cfg.KeepScratch = *keep
		}
	})
	if err := cfg.Validate(); err != nil {
		log.Error("invalid configuration", "error", err)
		return 1
	}

	archives := fs.Args()
	if *dir != "" {
		found, err := listDir(*dir)
		if err != nil {
			log.Error("reading archive directory failed", "dir", *dir, "error", err)
			return 1
		}
		archives = append(archives, found...)
	}
	if len(archives) == 0 {
		fs.Usage()
		return 2
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	batch, err := pipeline.NewBatch(cfg, log)
	if err != nil {
		log.Error("preparing outputs failed", "error", err)
		return 1
	}

	log.Info("starting plotextract", "archives", len(archives), "workers", cfg.Workers)
	snaps := batch.Run(ctx, archives)
	if err := batch.Close(); err != nil {
		log.Error("finishing outputs failed", "error", err)
		return 1
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(snaps); err != nil {
		log.Error("writing summary failed", "error", err)
		return 1
	}
	return 0
}

// listDir returns the regular files directly inside dir, sorted.
func listDir(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	var files []string
	for _, e := range entries {
		if e.Type().IsRegular() {
			files = append(files, filepath.Join(dir, e.Name()))
		}
	}
	sort.Strings(files)
	return files, nil
}
