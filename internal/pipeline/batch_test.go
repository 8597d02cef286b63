package pipeline

import (
	"bytes"
	"context"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/dgallion1/plotextract/internal/config"
)

func testLogger() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}

func testConfig(t *testing.T) config.Config {
	t.Helper()
	cfg := config.Load()
	cfg.ScratchDir = t.TempDir()
	cfg.OutputDir = filepath.Join(t.TempDir(), "out")
	cfg.SquashFile = ""
	cfg.ConvertBinary = "definitely-not-installed"
	cfg.CatalogueURL = ""
	cfg.Workers = 2
	return cfg
}

func TestBatch_Run(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("p") == "1234.5678" {
			w.Write([]byte(`[31]`))
			return
		}
		w.Write([]byte(`[]`))
	}))
	defer srv.Close()

	cfg := testConfig(t)
	cfg.CatalogueURL = srv.URL
	cfg.SquashFile = filepath.Join(t.TempDir(), "squash.xml")

	var logs bytes.Buffer
	b, err := NewBatch(cfg, slog.New(slog.NewJSONHandler(&logs, nil)))
	if err != nil {
		t.Fatal(err)
	}
	missing := filepath.Join(t.TempDir(), "missing.tar.gz")
	archives := []string{paperArchive(t), missing, writeTarGz(t, "empty.tar.gz", [][2]string{{"notes.txt", "hello"}})}

	snaps := b.Run(context.Background(), archives)
	if err := b.Close(); err != nil {
		t.Fatal(err)
	}

	if len(snaps) != 3 {
		t.Fatalf("expected 3 snapshots, got %d", len(snaps))
	}
	want := []JobStatus{StatusCompleted, StatusFailed, StatusEmpty}
	for i, s := range snaps {
		if s.Archive != archives[i] {
			t.Errorf("position %d: expected archive %q, got %q", i, archives[i], s.Archive)
		}
		if s.Status != want[i] {
			t.Errorf("%s: expected %q, got %q", s.Archive, want[i], s.Status)
		}
	}

	data, err := os.ReadFile(cfg.SquashFile)
	if err != nil {
		t.Fatal(err)
	}
	doc := string(data)
	if !strings.HasSuffix(strings.TrimSpace(doc), "</collection>") {
		t.Errorf("expected closed collection, got %q", doc)
	}
	if !strings.Contains(doc, `<controlfield tag="001">31</controlfield>`) {
		t.Errorf("expected catalogue id in record:\n%s", doc)
	}
	if !strings.Contains(logs.String(), `"msg":"squash file closed"`) || !strings.Contains(logs.String(), `"records":1`) {
		t.Errorf("expected squash close logged with one record, got:\n%s", logs.String())
	}
}

func TestBatch_CancelledBeforeStart(t *testing.T) {
	b, err := NewBatch(testConfig(t), testLogger())
	if err != nil {
		t.Fatal(err)
	}
	defer b.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	snaps := b.Run(ctx, []string{paperArchive(t)})
	if len(snaps) != 1 || snaps[0].Status != StatusFailed {
		t.Errorf("expected one failed job, got %+v", snaps)
	}
}
