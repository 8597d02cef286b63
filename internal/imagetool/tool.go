// Package imagetool normalises extracted figure images to PNG and applies
// rotations requested by the LaTeX source.
package imagetool

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
)

// Tool picks the in-process Raster path where it can and falls back to the
// external converter otherwise.
type Tool struct {
	raster Raster
	exec   Exec
	log    *slog.Logger
}

func New(exec Exec, log *slog.Logger) *Tool {
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}
	return &Tool{exec: exec, log: log}
}

// Convert produces a PNG for in. PNG files are used as they are.
func (t *Tool) Convert(ctx context.Context, in string) Result {
	if strings.EqualFold(filepath.Ext(in), ".png") {
		return Result{Outcome: Converted, Path: in}
	}
	out := pngPath(in)
	if IsRaster(in) {
		res := t.raster.Convert(ctx, in, out)
		if res.OK() || res.Outcome == Timeout {
			return res
		}
		t.log.Debug("in-process conversion failed, trying converter", "image", in, "error", res.Err)
	}
	return t.exec.Convert(ctx, in, out)
}

// ConvertAll converts every image and returns the PNG paths that were
// produced, in input order. Failures are logged and dropped.
func (t *Tool) ConvertAll(ctx context.Context, images []string) []string {
	out := make([]string, 0, len(images))
	for _, img := range images {
		res := t.Convert(ctx, img)
		if !res.OK() {
			t.log.Warn("image conversion failed", "image", img, "outcome", res.Outcome.String(), "error", res.Err)
			continue
		}
		out = append(out, res.Path)
	}
	return out
}

// Rotate turns path clockwise by degrees in place.
func (t *Tool) Rotate(ctx context.Context, path string, degrees int) Result {
	if IsRaster(path) {
		return t.raster.Rotate(ctx, path, degrees)
	}
	return t.exec.Rotate(ctx, path, degrees)
}

// pngPath names the conversion output: the input with its extension swapped
// for .png, or with .png appended when that name is already taken.
func pngPath(in string) string {
	out := strings.TrimSuffix(in, filepath.Ext(in)) + ".png"
	if _, err := os.Stat(out); err == nil {
		return in + ".png"
	}
	return out
}
