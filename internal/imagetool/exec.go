package imagetool

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strconv"
	"strings"
	"time"
)

// ErrNoBinary is reported when the external converter is not installed.
var ErrNoBinary = errors.New("image converter not found")

// Exec runs an ImageMagick style "convert" binary for formats that cannot
// be decoded in-process (PostScript, PDF, SVG).
type Exec struct {
	Binary  string
	Timeout time.Duration
}

// Available reports whether Binary can be found on PATH.
func (e Exec) Available() bool {
	_, err := exec.LookPath(e.Binary)
	return err == nil
}

func (e Exec) Convert(ctx context.Context, in, out string) Result {
	res := e.run(ctx, in, out)
	if res.OK() {
		res.Path = out
	}
	return res
}

// Rotate turns the image at path clockwise by degrees in place.
func (e Exec) Rotate(ctx context.Context, path string, degrees int) Result {
	res := e.run(ctx, path, "-rotate", strconv.Itoa(degrees), path)
	if res.OK() {
		res.Path = path
	}
	return res
}

func (e Exec) run(ctx context.Context, args ...string) Result {
	bin, err := exec.LookPath(e.Binary)
	if err != nil {
		return Result{Outcome: Failed, Err: fmt.Errorf("%w: %s", ErrNoBinary, e.Binary)}
	}
	if e.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.Timeout)
		defer cancel()
	}

	var stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, bin, args...)
	cmd.Stderr = &stderr
	cmd.WaitDelay = time.Second
	if err := cmd.Run(); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return fromContext(ctxErr)
		}
		msg := strings.TrimSpace(stderr.String())
		return Result{Outcome: Failed, Err: fmt.Errorf("%s: %w: %s", e.Binary, err, msg)}
	}
	return Result{Outcome: Converted}
}
