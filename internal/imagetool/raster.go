package imagetool

import (
	"context"
	"fmt"
	"image"
	"path/filepath"
	"strings"

	"github.com/anthonynsimon/bild/transform"
	"github.com/disintegration/imaging"
)

// rasterExts are the formats decoded in-process.
var rasterExts = map[string]bool{
	".png": true, ".jpg": true, ".jpeg": true, ".gif": true,
	".bmp": true, ".tif": true, ".tiff": true,
}

// IsRaster reports whether path has a format Raster can decode.
func IsRaster(path string) bool {
	return rasterExts[strings.ToLower(filepath.Ext(path))]
}

// Raster converts and rotates bitmap images without external tools.
type Raster struct{}

// Convert decodes in and re-encodes it as out; the format follows out's
// extension.
func (Raster) Convert(ctx context.Context, in, out string) Result {
	if err := ctx.Err(); err != nil {
		return fromContext(err)
	}
	img, err := imaging.Open(in, imaging.AutoOrientation(true))
	if err != nil {
		return Result{Outcome: Failed, Err: fmt.Errorf("decode %s: %w", in, err)}
	}
	if err := imaging.Save(img, out); err != nil {
		return Result{Outcome: Failed, Err: fmt.Errorf("encode %s: %w", out, err)}
	}
	return Result{Outcome: Converted, Path: out}
}

// Rotate turns the image at path clockwise by degrees and overwrites it.
func (Raster) Rotate(ctx context.Context, path string, degrees int) Result {
	if err := ctx.Err(); err != nil {
		return fromContext(err)
	}
	img, err := imaging.Open(path)
	if err != nil {
		return Result{Outcome: Failed, Err: fmt.Errorf("decode %s: %w", path, err)}
	}
	if err := imaging.Save(rotate(img, degrees), path); err != nil {
		return Result{Outcome: Failed, Err: fmt.Errorf("encode %s: %w", path, err)}
	}
	return Result{Outcome: Converted, Path: path}
}

// rotate uses lossless quarter turns where possible. imaging turns
// counter-clockwise, bild clockwise.
func rotate(img image.Image, degrees int) image.Image {
	switch ((degrees % 360) + 360) % 360 {
	case 0:
		return img
	case 90:
		return imaging.Rotate270(img)
	case 180:
		return imaging.Rotate180(img)
	case 270:
		return imaging.Rotate90(img)
	default:
		return transform.Rotate(img, float64(degrees), &transform.RotationOptions{ResizeBounds: true})
	}
}
