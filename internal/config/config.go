package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/dgallion1/plotextract/internal/refcontext"
)

type Config struct {
	// Locations
	ScratchDir  string
	OutputDir   string
	SquashFile  string
	KeepScratch bool

	// Worker pool
	Workers int

	// External tools
	ExtractTimeout time.Duration
	ConvertTimeout time.Duration
	ConvertBinary  string

	// Caption search
	CaptionSearchBack    int
	CaptionSearchForward int

	// Reference context
	ContextWindow     int
	ContextWords      int
	ContextSentences  int
	ContextDisallowed []string

	// PDF
	PDFText              bool
	PDFFallbackPdftotext bool

	// Catalogue lookup
	CatalogueURL       string
	CatalogueTimeout   time.Duration
	CatalogueCacheSize int

	LogLevel string
}

// LoadEnv copies variables from the given .env files into the environment
// without overriding ones already set. With no files, ./.env is read if it
// exists.
func LoadEnv(files ...string) error {
	if len(files) == 0 {
		if _, err := os.Stat(".env"); err != nil {
			return nil
		}
		files = []string{".env"}
	}
	if err := godotenv.Load(files...); err != nil {
		return fmt.Errorf("load env file: %w", err)
	}
	return nil
}

func Load() Config {
	cfg := Config{
		ScratchDir:  envOr("PLOT_SCRATCH_DIR", filepath.Join(os.TempDir(), "plotextract")),
		OutputDir:   envOr("PLOT_OUTPUT_DIR", "out"),
		SquashFile:  os.Getenv("PLOT_SQUASH_FILE"),
		KeepScratch: envBool("PLOT_KEEP_SCRATCH", false),

		Workers: envInt("PLOT_WORKERS", 4),

		ExtractTimeout: envDuration("PLOT_EXTRACT_TIMEOUT", 5*time.Minute),
		ConvertTimeout: envDuration("PLOT_CONVERT_TIMEOUT", 2*time.Minute),
		ConvertBinary:  envOr("PLOT_CONVERT_BINARY", "convert"),

		CaptionSearchBack:    envInt("PLOT_CAPTION_SEARCH_BACK", 25),
		CaptionSearchForward: envInt("PLOT_CAPTION_SEARCH_FORWARD", 5),

		ContextWindow:     envInt("PLOT_CONTEXT_WINDOW", 750),
		ContextWords:      envInt("PLOT_CONTEXT_WORDS", 75),
		ContextSentences:  envInt("PLOT_CONTEXT_SENTENCES", 2),
		ContextDisallowed: envList("PLOT_CONTEXT_DISALLOWED", slices.Clone(refcontext.DefaultDisallowed)),

		PDFText:              envBool("PLOT_PDF_TEXT", false),
		PDFFallbackPdftotext: envBool("PLOT_PDF_FALLBACK_PDFTOTEXT", true),

		CatalogueURL:       os.Getenv("CATALOGUE_URL"),
		CatalogueTimeout:   envDuration("CATALOGUE_TIMEOUT", 30*time.Second),
		CatalogueCacheSize: envInt("CATALOGUE_CACHE_SIZE", 1024),

		LogLevel: envOr("LOG_LEVEL", "info"),
	}

	if cfg.Workers <= 0 {
		cfg.Workers = 4
	}
	if cfg.ExtractTimeout <= 0 {
		cfg.ExtractTimeout = 5 * time.Minute
	}
	if cfg.ConvertTimeout <= 0 {
		cfg.ConvertTimeout = 2 * time.Minute
	}
	// Zero is a meaningful search distance.
	if cfg.CaptionSearchBack < 0 {
		cfg.CaptionSearchBack = 25
	}
	if cfg.CaptionSearchForward < 0 {
		cfg.CaptionSearchForward = 5
	}
	if cfg.ContextWindow <= 0 {
		cfg.ContextWindow = 750
	}
	if cfg.ContextWords <= 0 {
		cfg.ContextWords = 75
	}
	if cfg.ContextSentences <= 0 {
		cfg.ContextSentences = 2
	}
	if cfg.CatalogueTimeout <= 0 {
		cfg.CatalogueTimeout = 30 * time.Second
	}
	if cfg.CatalogueCacheSize <= 0 {
		cfg.CatalogueCacheSize = 1024
	}

	return cfg
}

func (c Config) Validate() error {
	var errs []error
	if c.OutputDir == "" && c.SquashFile == "" {
		errs = append(errs, fmt.Errorf("one of PLOT_OUTPUT_DIR or PLOT_SQUASH_FILE is required"))
	}
	if c.ScratchDir == "" {
		errs = append(errs, fmt.Errorf("PLOT_SCRATCH_DIR is required"))
	}
	if c.ConvertBinary == "" {
		errs = append(errs, fmt.Errorf("PLOT_CONVERT_BINARY must not be empty"))
	}
	if _, err := parseLevel(c.LogLevel); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

// SlogLevel maps LogLevel onto slog; unknown values mean info.
func (c Config) SlogLevel() slog.Level {
	l, err := parseLevel(c.LogLevel)
	if err != nil {
		return slog.LevelInfo
	}
	return l
}

func parseLevel(s string) (slog.Level, error) {
	var l slog.Level
	if err := l.UnmarshalText([]byte(s)); err != nil {
		return slog.LevelInfo, fmt.Errorf("LOG_LEVEL %q: %w", s, err)
	}
	return l, nil
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func envBool(key string, fallback bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return fallback
}

func envDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}

// envList splits a comma separated value, dropping blanks.
func envList(key string, fallback []string) []string {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	var out []string
	for _, part := range strings.Split(v, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	if len(out) == 0 {
		return fallback
	}
	return out
}
