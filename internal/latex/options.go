package latex

import (
	"context"
	"log/slog"

	"github.com/dgallion1/plotextract/internal/figure"
	"github.com/dgallion1/plotextract/internal/imagetool"
)

// Rotator applies a rotation to an extracted image file in place.
type Rotator interface {
	Rotate(ctx context.Context, path string, degrees int) imagetool.Result
}

// Options configures a Scanner.
type Options struct {
	// Lines searched before and after a flush point for a fallback caption.
	CaptionSearchBack    int
	CaptionSearchForward int

	// CommasOK lets filenames contain commas; set when the archive has such files.
	CommasOK bool

	// Images and Rotator are needed to honour rotate=/angle= directives.
	// Rotation is skipped when either is nil.
	Images  *figure.Locator
	Rotator Rotator

	Log *slog.Logger
}

// DefaultOptions returns the stock search limits.
func DefaultOptions() Options {
	return Options{
		CaptionSearchBack:    25,
		CaptionSearchForward: 5,
	}
}
