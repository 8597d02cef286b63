package config

import (
	"log/slog"
	"os"
	"path/filepath"
	"reflect"
	"testing"
	"time"

	"github.com/dgallion1/plotextract/internal/refcontext"
)

func TestLoad_Defaults(t *testing.T) {
	cfg := Load()
	if cfg.Workers != 4 {
		t.Errorf("expected 4 workers, got %d", cfg.Workers)
	}
	if cfg.CaptionSearchBack != 25 || cfg.CaptionSearchForward != 5 {
		t.Errorf("unexpected caption search %d/%d", cfg.CaptionSearchBack, cfg.CaptionSearchForward)
	}
	if cfg.ContextWindow != 750 || cfg.ContextWords != 75 || cfg.ContextSentences != 2 {
		t.Errorf("unexpected context limits %d/%d/%d", cfg.ContextWindow, cfg.ContextWords, cfg.ContextSentences)
	}
	if !reflect.DeepEqual(cfg.ContextDisallowed, refcontext.DefaultDisallowed) {
		t.Errorf("unexpected disallowed list %v", cfg.ContextDisallowed)
	}
	if !cfg.PDFFallbackPdftotext {
		t.Error("expected pdftotext fallback on by default")
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("defaults should validate: %v", err)
	}
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("PLOT_WORKERS", "9")
	t.Setenv("PLOT_CONVERT_TIMEOUT", "15s")
	t.Setenv("PLOT_CAPTION_SEARCH_BACK", "0")
	t.Setenv("PLOT_CONTEXT_DISALLOWED", "section, ,figure")
	t.Setenv("PLOT_PDF_TEXT", "true")
	t.Setenv("CATALOGUE_URL", "http://catalogue.local")

	cfg := Load()
	if cfg.Workers != 9 {
		t.Errorf("expected 9, got %d", cfg.Workers)
	}
	if cfg.ConvertTimeout != 15*time.Second {
		t.Errorf("expected 15s, got %s", cfg.ConvertTimeout)
	}
	if cfg.CaptionSearchBack != 0 {
		t.Errorf("expected zero search distance kept, got %d", cfg.CaptionSearchBack)
	}
	if !reflect.DeepEqual(cfg.ContextDisallowed, []string{"section", "figure"}) {
		t.Errorf("unexpected list %v", cfg.ContextDisallowed)
	}
	if !cfg.PDFText || cfg.CatalogueURL != "http://catalogue.local" {
		t.Errorf("unexpected cfg %+v", cfg)
	}
}

func TestLoad_NonPositiveFallsBack(t *testing.T) {
	t.Setenv("PLOT_WORKERS", "-2")
	t.Setenv("PLOT_CONTEXT_WORDS", "0")
	t.Setenv("PLOT_EXTRACT_TIMEOUT", "not-a-duration")
	t.Setenv("PLOT_CAPTION_SEARCH_FORWARD", "-1")

	cfg := Load()
	if cfg.Workers != 4 || cfg.ContextWords != 75 || cfg.ExtractTimeout != 5*time.Minute || cfg.CaptionSearchForward != 5 {
		t.Errorf("expected defaults, got %+v", cfg)
	}
}

func TestValidate(t *testing.T) {
	cfg := Load()
	cfg.OutputDir = ""
	cfg.SquashFile = ""
	cfg.LogLevel = "loud"
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected validation error")
	}

	cfg.SquashFile = "all.xml"
	cfg.LogLevel = "debug"
	if err := cfg.Validate(); err != nil {
		t.Errorf("expected valid config, got %v", err)
	}
	if cfg.SlogLevel() != slog.LevelDebug {
		t.Errorf("expected debug level, got %s", cfg.SlogLevel())
	}
}

func TestLoadEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.env")
	if err := os.WriteFile(path, []byte("PLOT_TEST_ONLY_KEY=from-file\nPLOT_TEST_PRESET=from-file\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	t.Setenv("PLOT_TEST_PRESET", "from-env")
	t.Setenv("PLOT_TEST_ONLY_KEY", "")
	os.Unsetenv("PLOT_TEST_ONLY_KEY")

	if err := LoadEnv(path); err != nil {
		t.Fatalf("load env: %v", err)
	}
	t.Cleanup(func() { os.Unsetenv("PLOT_TEST_ONLY_KEY") })

	if got := os.Getenv("PLOT_TEST_ONLY_KEY"); got != "from-file" {
		t.Errorf("expected from-file, got %q", got)
	}
	if got := os.Getenv("PLOT_TEST_PRESET"); got != "from-env" {
		t.Errorf("existing variables must win, got %q", got)
	}

	if err := LoadEnv(filepath.Join(t.TempDir(), "missing.env")); err == nil {
		t.Error("expected error for explicit missing file")
	}
}
